package user

import (
	"time"

	"github.com/google/uuid"
)

// User is an operator account for the ledger. PasswordHash holds a bcrypt
// hash and is never serialized.
type User struct {
	UserID       uuid.UUID
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
}

func NewUser(username, email, fullName, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		UserID:       uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
}
