package legacy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	servermocks "github.com/dtroode/threatgate/internal/mocks"
	"github.com/dtroode/threatgate/internal/model"
	"github.com/dtroode/threatgate/internal/repository/sqlite"
	tu "github.com/dtroode/threatgate/internal/testutil"
)

func writeLegacy(t *testing.T, users []model.User) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users.json")
	data, err := json.MarshalIndent(users, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

func TestMigrate_TwiceImportsOnce(t *testing.T) {
	ctx := context.Background()
	path := writeLegacy(t, []model.User{
		{ID: 7, Name: "Root", Email: "Root@Legacy.io", PasswordHash: "$2a$10$a", Role: model.RoleAdmin},
		{ID: 9, Name: "Ann", Email: "ann@legacy.io", PasswordHash: "$2a$10$b"},
		{ID: 12, Name: "Bob", Email: "bob@legacy.io", PasswordHash: "$2a$10$c", Role: model.RoleAdmin},
	})

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "users.db"), tu.MakeNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Create(ctx, model.User{Name: "Existing", Email: "bob@legacy.io", PasswordHash: "keep"})
	require.NoError(t, err)

	first, err := Migrate(ctx, path, store, tu.MakeNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 2, Skipped: 1, Archived: true}, first)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(path + ImportedSuffix)
	assert.NoError(t, err)

	second, err := Migrate(ctx, path, store, tu.MakeNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)

	root, err := store.FindByEmail(ctx, "root@legacy.io")
	require.NoError(t, err)
	assert.Equal(t, int64(2), root.ID, "legacy ids are not preserved")
	assert.Equal(t, "$2a$10$a", root.PasswordHash)
	assert.Equal(t, model.RoleAdmin, root.Role)

	bob, err := store.FindByEmail(ctx, "bob@legacy.io")
	require.NoError(t, err)
	assert.Equal(t, "keep", bob.PasswordHash)
}

func TestMigrate_NoLegacyFile(t *testing.T) {
	store := servermocks.NewUserStore(t)

	res, err := Migrate(context.Background(), filepath.Join(t.TempDir(), "users.json"), store, tu.MakeNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestMigrate_CorruptLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o600))
	store := servermocks.NewUserStore(t)

	_, err := Migrate(context.Background(), path, store, tu.MakeNoopLogger())
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "corrupt legacy file must stay in place")
}

func TestMigrate_FailuresKeepLegacyFile(t *testing.T) {
	ctx := context.Background()
	path := writeLegacy(t, []model.User{
		{Email: "ok@legacy.io"},
		{Email: "broken@legacy.io"},
	})
	store := servermocks.NewUserStore(t)

	store.On("FindByEmail", mock.Anything, "ok@legacy.io").Return(model.User{}, model.ErrNotFound)
	store.On("FindByEmail", mock.Anything, "broken@legacy.io").Return(model.User{}, model.ErrNotFound)
	store.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool { return u.Email == "ok@legacy.io" })).
		Return(model.User{ID: 1, Email: "ok@legacy.io"}, nil)
	store.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool { return u.Email == "broken@legacy.io" })).
		Return(model.User{}, assert.AnError)

	res, err := Migrate(ctx, path, store, tu.MakeNoopLogger())
	require.NoError(t, err)
	assert.Equal(t, Result{Imported: 1, Failed: 1}, res)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
