package cli

import (
	"os"

	"decaquiz-service/internal/config"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	port       string
	configPath string
}

func (o *globalOptions) load() (config.Config, error) {
	return config.Load(o.configPath)
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "decaquiz",
		Short:        "Live multiple-choice quizzes joined by room code, with polled leaderboards",
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")
	flags.StringVar(&opts.configPath, "config", defaultConfig, "path to YAML config")

	cmd.AddCommand(
		newStartCmd(opts),
		newMigrateCmd(opts),
		newSweepCmd(opts),
		newParseCmd(opts),
	)
	return cmd
}
