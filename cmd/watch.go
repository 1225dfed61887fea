package cmd

import (
	"context"
	"fmt"
	"time"

	statusadapter "github.com/bnema/we-quota-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/we-quota-cli/internal/adapters/repo/toml"
	"github.com/bnema/we-quota-cli/internal/application"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the quota of every account on screen and refresh it periodically",
		Long:  "Show a live view of every account. The quota is refreshed on start, then every refresh interval and on demand with `r`.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval < 0 {
				return fmt.Errorf("invalid refresh interval %s", interval)
			}
			if interval > 0 {
				app.refreshInterval = interval
			}
			return runWatch(cmd, app)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval such as 5m (default from refresh.interval)")

	return cmd
}

func runWatch(cmd *cobra.Command, app *app) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	statuses, err := app.service.GetStatusAll(ctx)
	if err != nil {
		return describeError(err)
	}

	var refresher *application.Refresher
	model := statusadapter.NewLiveModel(statuses, statusadapter.LiveOptions{
		StaleAfter: app.staleAfter,
		Refresh: func() bool {
			return refresher.Trigger()
		},
		Load: func() ([]application.Status, error) {
			return app.service.GetStatusAll(ctx)
		},
		Now: app.now,
	})

	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	refresher = application.NewRefresher(app.service.RefreshAll, application.RefresherConfig{
		Interval: app.refreshInterval,
		Logger:   app.logger.With("component", "refresher"),
		Clock:    app.now,
		OnResult: func(result application.RefreshResult) {
			program.Send(statusadapter.RefreshResultMsg(result))
		},
	})

	watcher, err := tomlrepo.NewWatcher(app.accountsPath, tomlrepo.WatcherConfig{
		Logger: app.logger.With("component", "accounts-watcher"),
		OnChange: func() {
			program.Send(statusadapter.AccountsChangedMsg{})
		},
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		_ = watcher.Stop()
		return err
	}

	refresher.Start(ctx)

	_, runErr := program.Run()

	cancel()
	refresher.Stop()
	if err := watcher.Stop(); err != nil {
		app.logger.Warn("stop accounts watcher", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("run live view: %w", runErr)
	}

	return nil
}
