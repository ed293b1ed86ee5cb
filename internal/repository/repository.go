// Package repository selects and opens the user store backend.
package repository

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dtroode/threatgate/internal/config"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
	"github.com/dtroode/threatgate/internal/repository/file"
	"github.com/dtroode/threatgate/internal/repository/postgres"
	"github.com/dtroode/threatgate/internal/repository/sqlite"
)

// Store is an opened user store together with what was chosen.
type Store struct {
	model.UserStore
	Backend string
	// Location is the file path or DSN of the backend.
	Location string
	close    func() error
}

// Close releases the backend's resources.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// IsFileAt reports whether the store is the flat file backend at path.
func (s *Store) IsFileAt(path string) bool {
	if s.Backend != config.BackendFile {
		return false
	}
	return samePath(s.Location, path)
}

// Open opens the configured backend once at startup. The auto backend
// prefers sqlite and falls back to the flat file.
func Open(ctx context.Context, cfg config.Store, logger *logger.Logger) (*Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return openSQLite(ctx, cfg, logger)
	case config.BackendFile:
		return openFile(cfg, logger), nil
	case config.BackendPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.BackendAuto, "":
		store, err := openSQLite(ctx, cfg, logger)
		if err == nil {
			return store, nil
		}
		logger.Warn("Repository: sqlite unavailable, falling back to file store",
			"sqlite_path", cfg.SQLitePath,
			"file_path", cfg.FilePath,
			"error", err.Error())
		return openFile(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openSQLite(ctx context.Context, cfg config.Store, logger *logger.Logger) (*Store, error) {
	repo, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
	if err != nil {
		return nil, err
	}
	return &Store{UserStore: repo, Backend: config.BackendSQLite, Location: cfg.SQLitePath, close: repo.Close}, nil
}

func openFile(cfg config.Store, logger *logger.Logger) *Store {
	repo := file.NewUserRepository(cfg.FilePath, logger)
	return &Store{UserStore: repo, Backend: config.BackendFile, Location: cfg.FilePath}
}

func openPostgres(ctx context.Context, cfg config.Store, logger *logger.Logger) (*Store, error) {
	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	repo := postgres.NewUserRepository(db, logger)
	return &Store{UserStore: repo, Backend: config.BackendPostgres, Location: "postgres", close: repo.Close}, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
