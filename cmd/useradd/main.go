// Command useradd provisions a user into the configured store.
//
// Usage:
//
//	useradd --email admin@example.com --name Admin [--role admin] [--password-stdin]
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/dtroode/threatgate/internal/config"
	"github.com/dtroode/threatgate/internal/logger"
	"github.com/dtroode/threatgate/internal/model"
	"github.com/dtroode/threatgate/internal/password"
	"github.com/dtroode/threatgate/internal/repository"
)

// Seams for tests.
var (
	readPassword = term.ReadPassword
	hashCost     = password.ProvisioningCost
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "useradd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flagSet := pflag.NewFlagSet("useradd", pflag.ContinueOnError)
	flagSet.SetOutput(stdout)

	var (
		email         string
		name          string
		role          string
		passwordStdin bool
		logLevel      int
	)
	flagSet.StringVar(&email, "email", "", "email of the new user (required)")
	flagSet.StringVar(&name, "name", "", "display name of the new user")
	flagSet.StringVar(&role, "role", string(model.RoleAdmin), "role of the new user")
	flagSet.BoolVar(&passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	flagSet.IntVar(&logLevel, "log-level", 0, "slog level")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	email = model.NormalizeEmail(email)
	if email == "" {
		return errors.New("--email is required")
	}

	plain, err := promptPassword(stdin, stdout, passwordStdin)
	if err != nil {
		return err
	}
	if plain == "" {
		return errors.New("password must not be empty")
	}

	hash, err := password.Hash(plain, hashCost)
	if err != nil {
		return err
	}

	storeCfg, err := config.NewStoreConfig()
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, *storeCfg, logger.New(logLevel, "text"))
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	defer store.Close()

	user, err := store.Create(ctx, model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         model.Role(role),
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		return fmt.Errorf("user %s already exists", email)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "created user %d (%s) in %s store\n", user.ID, user.Email, store.Backend)
	return nil
}

func promptPassword(stdin io.Reader, stdout io.Writer, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(stdout, "Password: ")
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(stdout)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
