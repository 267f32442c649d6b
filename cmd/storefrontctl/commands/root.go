// Package commands implements storefrontctl, the operator CLI for admin bootstrap
// and stock maintenance.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Env is what a subcommand needs to talk to the store.
type Env struct {
	Config *config.Config
	DB     *db.Client
	Logger *logger.Logger
}

// Opener builds an Env and returns a func releasing it.
type Opener func(ctx context.Context) (*Env, func() error, error)

// Execute runs the CLI against the configured database.
func Execute() {
	if err := NewRootCmd(openFromEnvironment).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd assembles the command tree. Subcommands open the store lazily so
// --help works without a database.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Storefront operator tooling",
		Long:          "Bootstrap admin accounts and maintain per-size stock levels.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCreateAdminCmd(open),
		newRestockCmd(open),
		newListLowStockCmd(open),
	)
	return root
}

func openFromEnvironment(ctx context.Context) (*Env, func() error, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "storefrontctl",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, err
	}
	return &Env{Config: cfg, DB: client, Logger: logg}, client.Close, nil
}

// withEnv opens the store for the duration of fn.
func withEnv(cmd *cobra.Command, open Opener, fn func(ctx context.Context, env *Env) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, release, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if release != nil {
		defer func() {
			if cerr := release(); cerr != nil && err == nil {
				err = cerr
			}
		}()
	}
	return fn(ctx, env)
}
