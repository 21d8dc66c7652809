package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "fontbot",
		Short: "Font styling chat bot",
		Long:  `fontbot polls a bot API and answers every text message with a numbered list of decorative renditions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), configPath)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: $CONFIG_PATH or ./config.yaml)")

	root.AddCommand(
		newRunCommand(&configPath),
		newRenderCommand(),
		newMigrateCommand(&configPath),
		newTokenCommand(),
		newVersionCommand(),
	)
	return root
}
