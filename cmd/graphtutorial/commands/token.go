package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewTokenCommand creates the token command.
func NewTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Display an access token",
		Long:  "Sign in if needed and print a Graph access token for the configured user scopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createUserClient(cmd)
			if err != nil {
				return err
			}

			token, err := client.GetUserToken(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get access token: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)

			return err
		},
	}
}
