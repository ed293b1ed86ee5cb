// Package legacy imports users from a flat file left by earlier
// deployments into the active store.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
	"github.com/dtroode/threatgate/internal/repository/file"
)

// ImportedSuffix is appended to the legacy file once it has been imported.
const ImportedSuffix = ".imported"

// Result summarizes one migration run.
type Result struct {
	Imported int
	Skipped  int
	Failed   int
	Archived bool
}

// Migrate copies records whose email is absent from store, assigning
// fresh ids. The legacy file is renamed to path+ImportedSuffix when every
// record was either imported or already present, so a second run finds
// nothing to do.
func Migrate(ctx context.Context, path string, store model.UserStore, logger *logger.Logger) (Result, error) {
	var res Result

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("Legacy migration: no legacy file",
			"path", path)
		return res, nil
	}

	users, err := file.ReadUsers(path)
	if err != nil {
		return res, fmt.Errorf("failed to read legacy users: %w", err)
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		email := model.NormalizeEmail(u.Email)
		if email == "" {
			logger.Warn("Legacy migration: skipping record without email",
				"legacy_id", u.ID)
			res.Failed++
			continue
		}

		_, err := store.FindByEmail(ctx, email)
		if err == nil {
			res.Skipped++
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			logger.Error("Legacy migration: failed to look up user",
				"email", email,
				"error", err.Error())
			res.Failed++
			continue
		}

		_, err = store.Create(ctx, model.User{
			Name:         u.Name,
			Email:        email,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
		})
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			res.Skipped++
		case err != nil:
			logger.Error("Legacy migration: failed to import user",
				"email", email,
				"error", err.Error())
			res.Failed++
		default:
			res.Imported++
		}
	}

	if res.Failed > 0 {
		logger.Warn("Legacy migration: some records were not imported, keeping legacy file",
			"path", path,
			"imported", res.Imported,
			"failed", res.Failed)
		return res, nil
	}

	if err := os.Rename(path, path+ImportedSuffix); err != nil {
		return res, fmt.Errorf("failed to archive legacy file: %w", err)
	}
	res.Archived = true

	logger.Info("Legacy migration: completed",
		"path", path,
		"imported", res.Imported,
		"skipped", res.Skipped)

	return res, nil
}
