package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/threatgate/internal/model"
	tu "github.com/dtroode/threatgate/internal/testutil"
)

func openRepo(t *testing.T) *UserRepository {
	t.Helper()

	r, err := Open(context.Background(), filepath.Join(t.TempDir(), "users.db"), tu.MakeNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)

	created, err := r.Create(ctx, model.User{ID: 99, Name: "Root", Email: " Root@Example.com", PasswordHash: "$2a$12$abc", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "root@example.com", created.Email)

	for _, email := range []string{"root@example.com", "ROOT@EXAMPLE.COM", "Root@Example.com "} {
		got, err := r.FindByEmail(ctx, email)
		require.NoError(t, err, email)
		assert.Equal(t, created, got)
	}

	_, err = r.FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserRepository_SequentialIDs(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)

	for i := 1; i <= 3; i++ {
		u, err := r.Create(ctx, model.User{Email: fmt.Sprintf("u%d@x.io", i)})
		require.NoError(t, err)
		assert.Equal(t, int64(i), u.ID)
	}
}

func TestUserRepository_DocumentCarriesID(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)

	_, err := r.Create(ctx, model.User{Email: "a@b.c", Role: model.RoleAdmin})
	require.NoError(t, err)

	var id int64
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT json_extract(document, '$.id') FROM users WHERE email = 'a@b.c'`).Scan(&id))
	assert.Equal(t, int64(1), id)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)

	_, err := r.Create(ctx, model.User{Email: "dup@x.io"})
	require.NoError(t, err)

	_, err = r.Create(ctx, model.User{Email: "DUP@x.io"})
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
}

func TestUserRepository_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)

	const n = 20
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := r.Create(ctx, model.User{Email: fmt.Sprintf("c%d@x.io", i)})
			if assert.NoError(t, err) {
				ids <- u.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestUserRepository_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.db")

	r, err := Open(ctx, path, tu.MakeNoopLogger())
	require.NoError(t, err)
	_, err = r.Create(ctx, model.User{Email: "keep@x.io"})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r, err = Open(ctx, path, tu.MakeNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	got, err := r.FindByEmail(ctx, "keep@x.io")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}

func TestUserRepository_Ping(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)

	require.NoError(t, r.Ping(ctx))

	require.NoError(t, r.Close())
	assert.Error(t, r.Ping(ctx))
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "users.db"), tu.MakeNoopLogger())
	assert.Error(t, err)
}
