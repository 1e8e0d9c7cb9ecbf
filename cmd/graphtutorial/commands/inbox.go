package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewInboxCommand creates the inbox command.
func NewInboxCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "inbox",
		Aliases: []string{"mail"},
		Short:   "List the newest inbox messages",
		Long:    "List the 25 most recently received messages in the signed-in user's inbox",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createUserClient(cmd)
			if err != nil {
				return err
			}

			page, err := client.GetInboxPage(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list inbox: %w", err)
			}

			out := cmd.OutOrStdout()

			format, err := outputFormat(out)
			if err != nil {
				return err
			}

			return renderInbox(out, format, page, time.Local)
		},
	}
}

func renderInbox(w io.Writer, format string, page *graph.MessageCollectionPage, loc *time.Location) error {
	if done, err := renderStructured(w, format, page); done {
		return err
	}

	if len(page.Messages) == 0 {
		_, err := fmt.Fprintln(w, "No messages found")

		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Received", "From", "Status", "Subject")

	for _, message := range page.Messages {
		status := "Unread"
		if message.IsRead {
			status = "Read"
		}

		_ = table.Append(
			message.ReceivedDateTime.In(loc).Format("2006-01-02 15:04"),
			valueOrNA(message.Sender()),
			status,
			truncate(valueOrNA(message.Subject), maxSubjectLength),
		)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if page.HasMore() {
		_, err := fmt.Fprintln(w, "More messages available in the inbox")

		return err
	}

	return nil
}
