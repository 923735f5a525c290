package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/francescomari/portier/pkg/config"
	"github.com/francescomari/portier/pkg/directory"
	pgdir "github.com/francescomari/portier/pkg/directory/postgres"
	"github.com/francescomari/portier/pkg/password"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users in the postgres directory.",
	}

	cmd.AddCommand(
		userAddCmd(),
		userDelCmd(),
	)

	return cmd
}

// openDirectory connects to the postgres directory named by the
// loaded configuration.
func openDirectory(ctx context.Context) (*pgdir.Directory, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if cfg.Directory.Type != "postgres" {
		return nil, fmt.Errorf("user management requires directory.type \"postgres\", got %q", cfg.Directory.Type)
	}

	return pgdir.New(ctx, pgdir.Config{
		DSN:            cfg.Directory.Postgres.DSN,
		MaxConns:       cfg.Directory.Postgres.MaxConns,
		MinConns:       cfg.Directory.Postgres.MinConns,
		MigrateOnStart: cfg.Directory.Postgres.MigrateOnStart,
	})
}

func userAddCmd() *cobra.Command {
	var (
		pw            string
		disabled      bool
		impersonators []string
		attributes    map[string]string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create or update a user.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			dir, err := openDirectory(ctx)
			if err != nil {
				return err
			}
			defer dir.Close()

			user := &directory.User{
				Name:          args[0],
				Disabled:      disabled,
				Impersonators: impersonators,
				Attributes:    attributes,
			}

			// Users without a password can still authenticate through
			// verified schemes such as bearer tokens.
			if pw != "" {
				hash, err := password.Hash(pw)
				if err != nil {
					return err
				}
				user.PasswordHash = hash
			}

			if err := dir.UpsertUser(ctx, user); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %s saved\n", user.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&pw, "password", "", "Password to hash and store.")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Disable the user.")
	cmd.Flags().StringSliceVar(&impersonators, "impersonators", nil, "Users allowed to act as this one.")
	cmd.Flags().StringToStringVar(&attributes, "attr", nil, "Per-user attributes (key=value).")

	return cmd
}

func userDelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <name>",
		Short: "Delete a user.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			dir, err := openDirectory(ctx)
			if err != nil {
				return err
			}
			defer dir.Close()

			if err := dir.DeleteUser(ctx, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user %s deleted\n", args[0])
			return nil
		},
	}
}
