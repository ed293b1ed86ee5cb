package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
)

const uniqueViolation = "23505"

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewUserRepository(db *sql.DB, logger *logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	query := `SELECT id, email, name, password_hash, role
			  FROM users WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, model.NormalizeEmail(email)).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// Create allocates max(id)+1 under a table lock that excludes concurrent
// creators but not readers.
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	user.Email = model.NormalizeEmail(user.Email)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return model.User{}, fmt.Errorf("failed to lock users table: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM users`).Scan(&user.ID); err != nil {
		return model.User{}, fmt.Errorf("failed to allocate user id: %w", err)
	}

	query := `INSERT INTO users (id, email, name, password_hash, role)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err = tx.ExecContext(ctx, query, user.ID, user.Email, user.Name, user.PasswordHash, string(user.Role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.User{}, model.ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, fmt.Errorf("failed to commit user: %w", err)
	}

	r.logger.Info("Postgres store: user created",
		"user_id", user.ID)

	return user, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *UserRepository) Close() error {
	return r.db.Close()
}
