package cmd

import (
	"context"

	"github.com/bnema/we-quota-cli/internal/application"
	"github.com/bnema/we-quota-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newQuotaCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Fetch and display the remaining internet quota",
		Long:  "Sign in to the portal with the stored credentials, fetch the current quota and display it. Snapshots are saved for `wq status`.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuotaFetch(cmd, app, accountID, asJSON)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Service number (default: all accounts)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func runQuotaFetch(cmd *cobra.Command, app *app, accountID string, asJSON bool) error {
	var statuses []application.Status
	fetch := func(ctx context.Context) error {
		var err error
		statuses, err = refreshStatuses(ctx, app.service, accountID)
		return err
	}

	var fetchErr error
	if asJSON {
		fetchErr = fetch(cmd.Context())
	} else {
		fetchErr = runQuotaFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching quota...", fetch)
	}

	// Accounts that refreshed are still shown when others failed.
	if len(statuses) > 0 {
		if err := writeStatusesOutput(cmd, app, statuses, asJSON); err != nil {
			return err
		}
	}

	return describeError(fetchErr)
}

func refreshStatuses(ctx context.Context, svc *application.Service, accountID string) ([]application.Status, error) {
	if accountID == "" {
		return svc.RefreshAll(ctx)
	}

	status, err := svc.RefreshQuota(ctx, domain.AccountID(domain.NormalizeServiceNumber(accountID)))
	if status.Account.ID == "" {
		return nil, err
	}

	return []application.Status{status}, err
}
