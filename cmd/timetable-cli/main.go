package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/timetable-api/cmd/timetable-cli/commands"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

func main() {
	app := &commands.AppContext{}
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "timetable",
		Short:         "Offline weekly timetable generator",
		Long:          `Generates weekly class timetables from a YAML or JSON request and verifies existing timetables against their input.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.Logger = logger.NewConsole(logLevel)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(commands.GenerateCmd(app))
	rootCmd.AddCommand(commands.VerifyCmd(app))
	rootCmd.AddCommand(commands.TokenCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
