package cmd

import (
	"fmt"
	"io"

	"github.com/bnema/we-quota-cli/internal/application"
	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Inspect the service numbers wq knows about",
	}
	cmd.AddCommand(newAccountListCmd(app))

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List service numbers with their sign-in state and last quota update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := app.service.GetStatusAll(cmd.Context())
			if err != nil {
				return err
			}

			return writeAccountRows(cmd.OutOrStdout(), statuses)
		},
	}
}

// writeAccountRows prints one tab separated row per account:
// id, name, sign-in state, last quota update.
func writeAccountRows(w io.Writer, statuses []application.Status) error {
	for _, status := range statuses {
		state := "signed out"
		if status.SignedIn {
			state = "signed in"
		}

		updated := "never"
		if captured := status.CapturedAt(); !captured.IsZero() {
			updated = captured.Local().Format(domain.TimestampLayout)
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", status.Account.ID, status.Account.Name, state, updated); err != nil {
			return err
		}
	}

	return nil
}
