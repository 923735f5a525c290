package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/francescomari/portier/pkg/password"
)

func hashpwCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hashpw [password]",
		Short: "Hash a password for the user directory.",
		Long: "Hash a password with argon2id for use in the directory configuration.\n" +
			"Reads the password from stdin when no argument is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password: %w", err)
				}
				pw = strings.TrimRight(line, "\r\n")
			}

			if pw == "" {
				return fmt.Errorf("password must not be empty")
			}

			hash, err := password.Hash(pw)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
