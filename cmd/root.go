package cmd

import "github.com/spf13/cobra"

// annotationSkipWiring marks commands that run without configuration.
const annotationSkipWiring = "wq/skip-wiring"

func Execute() error {
	return newRootCmd().Execute()
}

// newRootCmd registers every command up front and wires the application
// only for commands that need it, so a broken config file still leaves
// help and version working.
func newRootCmd() *cobra.Command {
	var logLevel string
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "wq",
		Short:         "WE quota CLI (wq): check your Telecom Egypt internet quota",
		Long:          "wq signs in to the WE (Telecom Egypt) self-service portal, fetches the remaining internet quota of your service numbers and shows it in the terminal, once or continuously.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default from log.level)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if skipsWiring(cmd) {
			return nil
		}

		wired, err := wireApp()
		if err != nil {
			return err
		}
		*app = *wired

		raw := app.configLogLevel
		if logLevel != "" {
			raw = logLevel
		}

		level, err := parseLogLevel(raw)
		if err != nil {
			return err
		}
		app.logLevel.Set(level)
		return nil
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newLoginCmd(app),
		newLogoutCmd(app),
		newQuotaCmd(app),
		newStatusCmd(app),
		newWatchCmd(app),
	)

	return rootCmd
}

func skipsWiring(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationSkipWiring] == "true" {
			return true
		}
		if c.Name() == "help" || c.Name() == "completion" || c.Name() == cobra.ShellCompRequestCmd || c.Name() == cobra.ShellCompNoDescRequestCmd {
			return true
		}
	}
	return false
}
