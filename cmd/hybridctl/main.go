// hybridctl is the operator CLI of the hybrid-work service. It applies
// migrations, loads seed data and recovers the administrator account.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/example/hybrid-work/internal/application"
	"github.com/example/hybrid-work/internal/persistence"
	"github.com/example/hybrid-work/internal/persistence/sqlite"
	"github.com/example/hybrid-work/internal/persistence/sqlite/migration"
	"github.com/example/hybrid-work/internal/seed"
)

const (
	adminID    = "admin-root"
	adminOrgID = "acme"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

var commands = []command{
	{"migrate", "apply pending schema migrations", runMigrate},
	{"seed", "load demo data (or --file dataset.yaml)", runSeed},
	{"reset-admin-password", "create the administrator or reset its password", runResetAdminPassword},
}

type environment struct {
	stdout io.Writer
	logger *slog.Logger
	now    func() time.Time
	hash   func(string) (string, error)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	env := &environment{
		stdout: stdout,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		now:    time.Now,
		hash:   application.HashPassword,
	}
	return env.dispatch(ctx, args)
}

func (env *environment) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(env.stdout)
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(ctx, env, args[1:])
		}
	}
	printUsage(env.stdout)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: hybridctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-22s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every command accepts --db (default $HYBRIDWORK_SQLITE_PATH or hybridwork.db).")
}

func newFlagSet(name string, db *string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	defaultPath := strings.TrimSpace(os.Getenv("HYBRIDWORK_SQLITE_PATH"))
	if defaultPath == "" {
		defaultPath = "hybridwork.db"
	}
	flags.StringVar(db, "db", defaultPath, "path to the SQLite database")
	return flags
}

func (env *environment) openStore(ctx context.Context, path string) (*sqlite.Store, error) {
	store, err := sqlite.Open(migration.DefaultSQLiteConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx, env.logger); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func runMigrate(ctx context.Context, env *environment, args []string) error {
	var db string
	flags := newFlagSet("migrate", &db)
	if err := flags.Parse(args); err != nil {
		return err
	}
	store, err := env.openStore(ctx, db)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(env.stdout, "schema of %s is up to date\n", db)
	return nil
}

func runSeed(ctx context.Context, env *environment, args []string) error {
	var db, file string
	flags := newFlagSet("seed", &db)
	flags.StringVarP(&file, "file", "f", "", "YAML dataset to load instead of the built-in demo")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var (
		ds  seed.Dataset
		err error
	)
	if file == "" {
		ds, err = seed.Demo()
	} else {
		ds, err = seed.LoadFile(file)
	}
	if err != nil {
		return err
	}

	store, err := env.openStore(ctx, db)
	if err != nil {
		return err
	}
	defer store.Close()

	seeder := seed.NewSeeder(seed.Repositories{
		Users:      store.Users,
		Desks:      store.Desks,
		Presence:   store.Presence,
		Threads:    store.Threads,
		Calendar:   store.Calendar,
		Transactor: store,
	}, env.hash, uuid.NewString, env.now, env.logger)

	summary, err := seeder.Apply(ctx, ds)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "seeded %d users, %d desks, %d threads, %d messages, %d events\n",
		summary.Users, summary.Desks, summary.Threads, summary.Messages, summary.Events)
	return nil
}

func runResetAdminPassword(ctx context.Context, env *environment, args []string) error {
	var db, username, email, password string
	flags := newFlagSet("reset-admin-password", &db)
	flags.StringVar(&username, "username", "admin", "administrator username")
	flags.StringVar(&email, "email", "admin@acme.com", "email used when the administrator is created")
	flags.StringVar(&password, "password", "", "new password (required)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if len(password) < application.MinPasswordLength {
		return fmt.Errorf("--password must be at least %d characters long", application.MinPasswordLength)
	}

	store, err := env.openStore(ctx, db)
	if err != nil {
		return err
	}
	defer store.Close()

	hash, err := env.hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := env.now()

	existing, err := store.Users.GetUserByLogin(ctx, username)
	switch {
	case err == nil:
		if !existing.IsAdmin() {
			return fmt.Errorf("user %q exists but is not an administrator", username)
		}
		existing.PasswordHash = hash
		existing.UpdatedAt = now
		if err := store.Users.UpdateUser(ctx, existing); err != nil {
			return fmt.Errorf("update administrator: %w", err)
		}
		fmt.Fprintf(env.stdout, "password of %s reset\n", existing.Username)
		return nil
	case !errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("look up administrator: %w", err)
	}

	admin := persistence.User{
		ID:           adminID,
		OrgID:        adminOrgID,
		Name:         "Administrator",
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         persistence.RoleAdmin,
		TimeZone:     "UTC",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.Users.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create administrator: %w", err)
	}
	fmt.Fprintf(env.stdout, "administrator %s created\n", username)
	return nil
}
