package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"debt-ledger/internal/event"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
)

const customerNotFound = "Customer not found by repository"

type CustomerService interface {
	CreateCustomer(ctx context.Context, name, phone, email, address, notes string) (*Customer, error)
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*Customer, error)
	ListCustomers(ctx context.Context, search string) ([]*Customer, error)
	UpdateCustomer(ctx context.Context, customerID uuid.UUID, update Update) (*Customer, error)
	DeleteCustomer(ctx context.Context, customerID uuid.UUID) error
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	pub    event.EventPublisher
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, eventPublisher event.EventPublisher, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		logger.Warn("Warning: No logger provided to NewCustomerService, using default stderr handler")
	}
	if eventPublisher == nil {
		eventPublisher = event.NewNoopPublisher()
	}

	return &customerService{
		repo:   repo,
		pub:    eventPublisher,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func newCustomerEventPayload(cust *Customer) event.CustomerEventPayload {
	if cust == nil {
		return event.CustomerEventPayload{}
	}
	return event.CustomerEventPayload{
		CustomerID: cust.CustomerID,
		Name:       cust.Name,
		Phone:      cust.Phone,
		Email:      cust.Email,
		Address:    cust.Address,
		CreatedAt:  cust.CreatedAt,
		UpdatedAt:  cust.UpdatedAt,
	}
}

func (s *customerService) publishCustomerUpdated(ctx context.Context, cust *Customer) {
	if cust == nil {
		s.logger.ErrorContext(ctx, "Attempted to publish update event for nil customer")
		return
	}
	evt := event.CustomerUpdatedEvent{
		Timestamp: time.Now(),
		Payload:   newCustomerEventPayload(cust),
	}
	if err := s.pub.PublishCustomerUpdated(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish customer update event", slog.Any("error", err))
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, name, phone, email, address, notes string) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to create new customer")

	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		s.logger.WarnContext(ctx, "Validation failed: name is empty")
		return nil, apperrors.NewValidationError("name", "cannot be empty")
	}
	if phone == "" {
		s.logger.WarnContext(ctx, "Validation failed: phone is empty", slog.String("name", name))
		return nil, apperrors.NewValidationError("phone", "cannot be empty")
	}

	cust := NewCustomer(name, phone, email, address, notes)

	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	createdEvent := event.CustomerCreatedEvent{
		Timestamp: time.Now(),
		Payload:   newCustomerEventPayload(cust),
	}
	if pubErr := s.pub.PublishCustomerCreated(ctx, createdEvent); pubErr != nil {
		s.logger.ErrorContext(ctx, "Customer created, but failed to publish creation event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Successfully created new customer", slog.String("customerID", cust.CustomerID.String()))
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID uuid.UUID) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to get customer by ID", slog.String("customerID", customerID.String()))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound)
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %s: %w", customerID, err)
	}

	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context, search string) ([]*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to list customers", slog.String("search", search))

	customers, err := s.repo.FindAll(ctx, strings.TrimSpace(search))
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully retrieved customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, customerID uuid.UUID, update Update) (*Customer, error) {
	s.logger.InfoContext(ctx, "Attempting to update customer", slog.String("customerID", customerID.String()))

	if update.IsEmpty() {
		s.logger.WarnContext(ctx, "Validation failed: nothing to update")
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrInvalidArgument)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, apperrors.NewValidationError("name", "cannot be empty")
	}
	if update.Phone != nil && strings.TrimSpace(*update.Phone) == "" {
		return nil, apperrors.NewValidationError("phone", "cannot be empty")
	}

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, customerNotFound)
			return nil, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Repository error finding customer for update", slog.Any("error", err))
		return nil, fmt.Errorf("cannot find customer %s to update: %w", customerID, err)
	}

	if !cust.Apply(update) {
		s.logger.InfoContext(ctx, "No change needed, skipping save")
		return cust, nil
	}

	if err := s.repo.Save(ctx, cust); err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to save updated customer", slog.Any("error", err))
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to save customer %s: %w", customerID, err)
	}

	s.publishCustomerUpdated(ctx, cust)

	s.logger.InfoContext(ctx, "Successfully updated customer")
	return cust, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, customerID uuid.UUID) error {
	s.logger.InfoContext(ctx, "Attempting to delete customer", slog.String("customerID", customerID.String()))

	err := s.repo.Delete(ctx, customerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			s.logger.WarnContext(ctx, customerNotFound)
			return ErrNotFound
		case errors.Is(err, ErrHasOutstandingDebt):
			s.logger.WarnContext(ctx, "Business rule failed: customer still owes money")
			return fmt.Errorf("%w: %w", apperrors.ErrConflict, ErrHasOutstandingDebt)
		}
		s.logger.ErrorContext(ctx, "Repository error deleting customer", slog.Any("error", err))
		return fmt.Errorf("failed to delete customer %s: %w", customerID, err)
	}

	s.logger.InfoContext(ctx, "Successfully deleted customer")
	return nil
}
