package main

import (
	"github.com/spf13/cobra"
)

const appVersion = "0.3.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fatalf("%v", err)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "overtime-agent",
		Short:         "Record and confirm overtime against the attendance sheet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Version = appVersion
	cmd.SetVersionTemplate("overtime-agent v{{.Version}}\n")
	cmd.PersistentFlags().StringVar(&configPath, "config", "config/local.yaml", "Path to configuration file")

	// commands that talk to the backend open the app lazily
	open := func() (*app, error) { return newApp(configPath) }

	cmd.AddCommand(
		newValidateCommand(),
		newLookupCommand(open),
		newSubmitCommand(open),
		newPendingCommand(open),
		newConfirmCommand(open),
		newHistoryCommand(open),
		newServeCommand(open),
		newVersionCommand(),
	)
	return cmd
}
