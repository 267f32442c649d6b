package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const (
	tempPasswordLength = 16
	minPasswordLength  = 8
)

func newCreateAdminCmd(open Opener) *cobra.Command {
	var (
		email    string
		name     string
		password string
	)
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing one",
		Long: `Create an admin account. When the email is already registered the account is
promoted to admin and its password replaced.

Without --password a temporary password is generated and printed once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, open, func(ctx context.Context, env *Env) error {
				return createAdmin(ctx, cmd, env, email, name, password)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email address (required)")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name for a new account")
	cmd.Flags().StringVar(&password, "password", "", "password to set (generated when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func createAdmin(ctx context.Context, cmd *cobra.Command, env *Env, email, name, password string) error {
	email = users.NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email %q", email)
	}

	generated := false
	if password == "" {
		pw, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return fmt.Errorf("generate password: %w", err)
		}
		password = pw
		generated = true
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	hash, err := security.HashPassword(password, env.Config.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, created, err := users.NewRepository(env.DB.DB()).ProvisionAdmin(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("provision admin: %w", err)
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", email, user.ID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s) to admin\n", email, user.ID)
	}

	if env.Logger != nil {
		env.Logger.Info(env.Logger.WithFields(ctx, map[string]any{"email": email}), "admin account provisioned")
	}
	if generated {
		fmt.Fprintf(cmd.OutOrStdout(), "temporary password: %s\n", password)
	}
	return nil
}
