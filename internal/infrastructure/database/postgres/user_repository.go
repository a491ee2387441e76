package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"debt-ledger/internal/domain/user"
	"debt-ledger/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ user.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db DBPool, logger *slog.Logger) *UserRepository {
	if db == nil {
		panic("DBPool cannot be nil for UserRepository")
	}
	return &UserRepository{db: db, logger: logger.With("component", "UserRepository")}
}

func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	sql := `
        INSERT INTO users (id, username, email, full_name, password_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, sql, u.UserID, u.Username, u.Email, u.FullName, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.WarnContext(ctx, "User unique constraint violation", "constraint", pgErr.ConstraintName)
			if strings.Contains(pgErr.ConstraintName, "email") {
				return user.ErrEmailTaken
			}
			return user.ErrUsernameTaken
		}
		r.logger.ErrorContext(ctx, "Failed to insert user", "username", u.Username, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "User created in DB", "user_id", u.UserID)
	return nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `
        SELECT id, username, email, full_name, password_hash, created_at
        FROM users
        WHERE username = $1`

	var u user.User
	err := r.db.QueryRow(ctx, query, username).Scan(
		&u.UserID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "User not found", "username", username)
			return nil, user.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get user by username", "username", username, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &u, nil
}
