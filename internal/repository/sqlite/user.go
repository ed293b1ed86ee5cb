// Package sqlite stores users as JSON documents in an embedded SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
	"github.com/dtroode/threatgate/internal/repository/sqlite/migrations"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db     *sql.DB
	path   string
	logger *logger.Logger
}

// DSN builds a connection string with a busy timeout so that concurrent
// writers wait instead of failing.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open opens the database at path and applies pending migrations.
func Open(ctx context.Context, path string, logger *logger.Logger) (*UserRepository, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer per process; other processes wait on busy_timeout.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("SQLite store: opened",
		"path", path)

	return &UserRepository{db: db, path: path, logger: logger}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply sqlite migrations: %w", err)
	}

	return nil
}

// Path returns the database file location.
func (r *UserRepository) Path() string {
	return r.path
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	var (
		id       int64
		document string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, document FROM users WHERE email = ?`,
		model.NormalizeEmail(email),
	).Scan(&id, &document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	var user model.User
	if err := json.Unmarshal([]byte(document), &user); err != nil {
		return model.User{}, fmt.Errorf("failed to decode user document %d: %w", id, err)
	}
	user.ID = id

	return user, nil
}

// Create allocates max(id)+1 and stores the user in one statement.
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	user.ID = 0
	user.Email = model.NormalizeEmail(user.Email)

	document, err := json.Marshal(user)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to encode user document: %w", err)
	}

	query := `INSERT INTO users (id, email, document)
			  SELECT next.id, ?, json_set(?, '$.id', next.id)
			  FROM (SELECT COALESCE(MAX(id), 0) + 1 AS id FROM users) AS next
			  RETURNING id`

	err = r.db.QueryRowContext(ctx, query, user.Email, string(document)).Scan(&user.ID)
	if err != nil {
		if isConstraintViolation(err) {
			return model.User{}, model.ErrAlreadyExists
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Info("SQLite store: user created",
		"user_id", user.ID)

	return user, nil
}

// Ping checks the connection and that the users table is readable.
func (r *UserRepository) Ping(ctx context.Context) error {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return fmt.Errorf("sqlite store is unhealthy: %w", err)
	}
	return nil
}

func (r *UserRepository) Close() error {
	return r.db.Close()
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
