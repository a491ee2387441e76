package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CustomerEventPayload struct {
	CustomerID uuid.UUID `json:"customerId"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
	Address    string    `json:"address,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CustomerCreatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type CustomerUpdatedEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Payload   CustomerEventPayload `json:"payload"`
}

type DebtCreatedEvent struct {
	DebtID      uuid.UUID  `json:"debtId"`
	CustomerID  uuid.UUID  `json:"customerId"`
	TotalAmount string     `json:"totalAmount"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

type PaymentRecordedEvent struct {
	PaymentID       uuid.UUID `json:"paymentId"`
	DebtID          uuid.UUID `json:"debtId"`
	Amount          string    `json:"amount"`
	Method          string    `json:"method"`
	RemainingAmount string    `json:"remainingAmount"`
	Timestamp       time.Time `json:"timestamp"`
}

type DebtSettledEvent struct {
	DebtID     uuid.UUID `json:"debtId"`
	CustomerID uuid.UUID `json:"customerId"`
	Timestamp  time.Time `json:"timestamp"`
}

func (p *RabbitMQEventPublisher) PublishCustomerCreated(ctx context.Context, event CustomerCreatedEvent) error {
	return p.publish(ctx, routingKeyCustomerCreated, event)
}

func (p *RabbitMQEventPublisher) PublishCustomerUpdated(ctx context.Context, event CustomerUpdatedEvent) error {
	return p.publish(ctx, routingKeyCustomerUpdated, event)
}

func (p *RabbitMQEventPublisher) PublishDebtCreated(ctx context.Context, event DebtCreatedEvent) error {
	return p.publish(ctx, routingKeyDebtCreated, event)
}

func (p *RabbitMQEventPublisher) PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error {
	return p.publish(ctx, routingKeyPaymentRecorded, event)
}

func (p *RabbitMQEventPublisher) PublishDebtSettled(ctx context.Context, event DebtSettledEvent) error {
	return p.publish(ctx, routingKeyDebtSettled, event)
}

var _ EventPublisher = (*RabbitMQEventPublisher)(nil)
