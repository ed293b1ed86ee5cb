package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/threatgate/internal/model"
	"github.com/dtroode/threatgate/internal/repository/file"
)

func setupFileStore(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users.json")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("STORE_FILE_PATH", path)

	prev := hashCost
	hashCost = bcrypt.MinCost
	t.Cleanup(func() { hashCost = prev })

	return path
}

func TestRun_PasswordStdin(t *testing.T) {
	path := setupFileStore(t)

	var out bytes.Buffer
	err := run(context.Background(),
		[]string{"--email", " Admin@Example.com ", "--name", "Admin", "--password-stdin"},
		strings.NewReader("s3cret\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "created user 1 (admin@example.com)")

	users, err := file.ReadUsers(path)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@example.com", users[0].Email)
	assert.Equal(t, "Admin", users[0].Name)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte("s3cret")))
}

func TestRun_PromptsForPassword(t *testing.T) {
	path := setupFileStore(t)

	prev := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("typed"), nil }
	t.Cleanup(func() { readPassword = prev })

	var out bytes.Buffer
	err := run(context.Background(), []string{"--email", "viewer@example.com", "--role", "viewer"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Password: ")

	users, err := file.ReadUsers(path)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, model.Role("viewer"), users[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte("typed")))
}

func TestRun_PromptError(t *testing.T) {
	setupFileStore(t)

	prev := readPassword
	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	t.Cleanup(func() { readPassword = prev })

	err := run(context.Background(), []string{"--email", "a@b.c"}, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a terminal")
}

func TestRun_Validation(t *testing.T) {
	setupFileStore(t)

	tests := []struct {
		name    string
		args    []string
		stdin   string
		wantErr string
	}{
		{name: "missing email", args: []string{"--password-stdin"}, stdin: "pw\n", wantErr: "--email is required"},
		{name: "empty password", args: []string{"--email", "a@b.c", "--password-stdin"}, stdin: "\n", wantErr: "password must not be empty"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, strings.NewReader(tt.stdin), &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"--help"}, strings.NewReader(""), &out)
	assert.ErrorIs(t, err, pflag.ErrHelp)
	assert.Contains(t, out.String(), "--password-stdin")
}

func TestRun_Duplicate(t *testing.T) {
	path := setupFileStore(t)
	args := []string{"--email", "admin@example.com", "--password-stdin"}

	require.NoError(t, run(context.Background(), args, strings.NewReader("one\n"), &bytes.Buffer{}))

	err := run(context.Background(), args, strings.NewReader("two\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	users, err := file.ReadUsers(path)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRun_BadBackend(t *testing.T) {
	setupFileStore(t)
	t.Setenv("STORE_BACKEND", "mongo")

	err := run(context.Background(), []string{"--email", "a@b.c", "--password-stdin"}, strings.NewReader("pw\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORE_BACKEND")
}
