package commands

import (
	"fmt"
	"io"

	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewMeCommand creates the me command.
func NewMeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "me",
		Aliases: []string{"whoami", "user"},
		Short:   "Show the signed-in user",
		Long:    "Display the display name and email address of the signed-in user",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createUserClient(cmd)
			if err != nil {
				return err
			}

			user, err := client.GetCurrentUser(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}

			out := cmd.OutOrStdout()

			format, err := outputFormat(out)
			if err != nil {
				return err
			}

			return renderProfile(out, format, user)
		},
	}
}

func renderProfile(w io.Writer, format string, user *graph.UserProfile) error {
	if done, err := renderStructured(w, format, user); done {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")
	_ = table.Append("Display Name", valueOrNA(user.DisplayName))
	_ = table.Append("Email", valueOrNA(user.Email()))
	_ = table.Append("User Principal Name", valueOrNA(user.UserPrincipalName))

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
