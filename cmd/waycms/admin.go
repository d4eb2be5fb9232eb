package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/waycms/waycms/internal/adapter/email"
	"github.com/waycms/waycms/internal/adapter/postgres"
	"github.com/waycms/waycms/internal/config"
	"github.com/waycms/waycms/internal/domain/user"
	"github.com/waycms/waycms/internal/logger"
	"github.com/waycms/waycms/internal/service"
)

// runAdmin dispatches admin subcommands (create-user, reset-password, list-users).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-user":
		return runAdminCreateUser(args[1:])
	case "reset-password":
		return runAdminResetPassword(args[1:])
	case "list-users":
		return runAdminListUsers(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: waycms admin <command> [options]

Commands:
  create-user      Create a new user
  reset-password   Reset a user's password
  list-users       List all users
  help             Show this help message

Examples:
  waycms admin create-user --email new@example.com --name "New Editor"
  waycms admin create-user --email boss@example.com --name "Boss" --admin
  waycms admin reset-password --email admin@example.com
  waycms admin list-users
`)
}

func loadAdminDeps() (*service.AuthService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	store := postgres.NewStore(pool)
	mailer := email.NewMailer(cfg.Email)
	authSvc := service.NewAuthService(store, mailer, cfg.Auth, cfg.Server.BaseURL, log)

	cleanup := func() {
		logCloser.Close()
		pool.Close()
	}
	return authSvc, cleanup, nil
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	addr := fs.String("email", "", "user email address (required)")
	name := fs.String("name", "", "user display name")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	admin := fs.Bool("admin", false, "grant admin rights")
	noPassword := fs.Bool("no-password", false, "create a magic-link-only user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *addr == "" {
		return fmt.Errorf("--email is required")
	}

	pass := *password
	if pass == "" && !*noPassword {
		var err error
		pass, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	u, err := authSvc.CreateUser(ctx, user.CreateRequest{
		Email:    *addr,
		Name:     *name,
		Password: pass,
		IsAdmin:  *admin,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(os.Stderr, "User created: %s (id=%s, admin=%t)\n", u.Email, u.ID, u.IsAdmin)
	return nil
}

func runAdminResetPassword(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	addr := fs.String("email", "", "user email address (required)")
	password := fs.String("password", "", "new password (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *addr == "" {
		return fmt.Errorf("--email is required")
	}

	newPass := *password
	if newPass == "" {
		var err error
		newPass, err = promptPassword("New password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if newPass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	u, err := authSvc.GetUserByEmail(ctx, *addr)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if err := authSvc.ResetPassword(ctx, u.ID, newPass); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Password reset successfully for %s\n", u.Email)
	return nil
}

func runAdminListUsers(args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	authSvc, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	users, err := authSvc.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEMAIL\tNAME\tADMIN\tPASSWORD\tLAST_LOGIN")
	for i := range users {
		lastLogin := "never"
		if users[i].LastLogin != nil {
			lastLogin = users[i].LastLogin.UTC().Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%s\n",
			users[i].ID, users[i].Email, users[i].Name, users[i].IsAdmin, users[i].HasPassword(), lastLogin)
	}
	return w.Flush()
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after password input
	if err != nil {
		return "", err
	}
	return string(b), nil
}
