// Package file stores users in a flat JSON snapshot file.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
)

// ErrCorrupt is returned when the user file cannot be decoded.
var ErrCorrupt = errors.New("user file is corrupt")

var _ model.UserStore = (*UserRepository)(nil)

// UserRepository keeps every user in one JSON array that is read fully and
// rewritten wholesale. Repositories on the same path share one lock, so
// writes are serialized across the whole process and replace the file
// atomically. Other processes writing the same file are not coordinated.
type UserRepository struct {
	path   string
	mu     *sync.Mutex
	logger *logger.Logger
}

var (
	pathLocksMu sync.Mutex
	pathLocks   = map[string]*sync.Mutex{}
)

// lockFor returns the lock shared by every repository on path.
func lockFor(path string) *sync.Mutex {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()

	mu, ok := pathLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		pathLocks[key] = mu
	}
	return mu
}

func NewUserRepository(path string, logger *logger.Logger) *UserRepository {
	return &UserRepository{
		path:   path,
		mu:     lockFor(path),
		logger: logger,
	}
}

// Path returns the location of the snapshot file.
func (r *UserRepository) Path() string {
	return r.path
}

// FindByEmail matches emails case-insensitively. An unreadable file is
// treated as empty.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	r.mu.Lock()
	users, err := ReadUsers(r.path)
	r.mu.Unlock()
	if err != nil {
		r.logger.Error("File store: failed to read users, treating store as empty",
			"path", r.path,
			"error", err.Error())
		return model.User{}, model.ErrNotFound
	}

	key := model.NormalizeEmail(email)
	for _, u := range users {
		if model.NormalizeEmail(u.Email) == key {
			return u, nil
		}
	}

	return model.User{}, model.ErrNotFound
}

// Create appends user with the next id. It refuses to overwrite a file it
// cannot read.
func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := ReadUsers(r.path)
	if err != nil {
		return model.User{}, fmt.Errorf("refusing to overwrite unreadable user file: %w", err)
	}

	user.Email = model.NormalizeEmail(user.Email)

	var maxID int64
	for _, u := range users {
		if model.NormalizeEmail(u.Email) == user.Email {
			return model.User{}, model.ErrAlreadyExists
		}
		maxID = max(maxID, u.ID)
	}
	user.ID = maxID + 1

	if err := writeUsers(r.path, append(users, user)); err != nil {
		return model.User{}, err
	}

	r.logger.Info("File store: user created",
		"user_id", user.ID,
		"path", r.path)

	return user, nil
}

// Ping reports whether the file can be decoded.
func (r *UserRepository) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := ReadUsers(r.path)
	return err
}

// ReadUsers decodes a user file. A missing or blank file holds no users.
func ReadUsers(path string) ([]model.User, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var users []model.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return users, nil
}

func writeUsers(path string, users []model.User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace user file: %w", err)
	}

	return nil
}
