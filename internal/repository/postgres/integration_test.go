//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/threatgate/internal/model"
	repo "github.com/dtroode/threatgate/internal/repository/postgres"
	tu "github.com/dtroode/threatgate/internal/testutil"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "threatgate_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/threatgate_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestUserRepository_Postgres(t *testing.T) {
	ctx := context.Background()
	db, err := repo.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ur := repo.NewUserRepository(db, tu.MakeNoopLogger())
	require.NoError(t, ur.Ping(ctx))

	created, err := ur.Create(ctx, model.User{Name: "Admin", Email: "Admin@Example.com", PasswordHash: "$2a$12$x", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := ur.FindByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = ur.Create(ctx, model.User{Email: "admin@example.com"})
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ur.Create(ctx, model.User{Email: fmt.Sprintf("p%d@example.com", i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	last, err := ur.Create(ctx, model.User{Email: "last@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), last.ID)

	// Migrations are idempotent.
	require.NoError(t, repo.Migrate(ctx, db))
}
