package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/camazac/realty/internal/server/auth"
	"github.com/camazac/realty/internal/server/storage/sqlite"
	"github.com/camazac/realty/internal/validation"
)

var adminFlags struct {
	username string
	email    string
	fullName string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator or promote an existing user",
	Long: `Create an administrator account. If the username already exists the
user is promoted to administrator; the password is changed only when given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, err := cfg.NewLogger(os.Stderr)
		if err != nil {
			return err
		}

		in, err := normalizeAdmin(auth.NewUser{
			Username: adminFlags.username,
			Email:    adminFlags.email,
			FullName: adminFlags.fullName,
			Password: adminFlags.password,
		})
		if err != nil {
			return err
		}

		db, err := sqlite.New(ctx, cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		credentials, err := auth.NewCredentials(logger, db, cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}

		_, lookupErr := db.GetUserByUsername(ctx, in.Username)
		exists := lookupErr == nil

		// Новому пользователю пароль обязателен
		if in.Password == "" && !exists {
			in.Password, err = promptPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := validation.ValidatePassword(in.Password); err != nil {
				return err
			}
		}

		user, created, err := credentials.EnsureAdmin(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}

		logger.InfoContext(ctx, "admin ready", slog.String("user_id", user.ID), slog.Bool("created", created))

		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created\n", user.Username)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "User %s promoted to admin\n", user.Username)
		}
		return nil
	},
}

func init() {
	flags := createAdminCmd.Flags()
	flags.StringVar(&adminFlags.username, "username", "admin", "admin username")
	flags.StringVar(&adminFlags.email, "email", "admin@example.com", "admin email")
	flags.StringVar(&adminFlags.fullName, "full-name", "Administrator", "admin full name")
	flags.StringVar(&adminFlags.password, "password", "", "admin password (prompted when empty)")
	flags.StringVar(&serveFlags.dbPath, "db", "", "path to SQLite database")
}

// normalizeAdmin приводит данные администратора к виду, как при регистрации
// Пустой пароль допустим: для существующего пользователя он не меняется
func normalizeAdmin(in auth.NewUser) (auth.NewUser, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if err := validation.ValidateUsername(in.Username); err != nil {
		return auth.NewUser{}, err
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return auth.NewUser{}, err
	}
	if in.FullName == "" {
		return auth.NewUser{}, errors.New("full name cannot be empty")
	}
	if in.Password != "" {
		if err := validation.ValidatePassword(in.Password); err != nil {
			return auth.NewUser{}, err
		}
	}

	return in, nil
}

// promptPassword читает пароль с терминала дважды
func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--password is required when stdin is not a terminal")
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(out, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}

	return string(first), nil
}
