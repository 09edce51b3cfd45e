// Package commands defines all Cobra CLI commands for the fundfaq binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fundfaq/fundfaq-go/internal/audit"
	"github.com/fundfaq/fundfaq-go/internal/config"
	"github.com/fundfaq/fundfaq-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fundfaq",
		Short: "fundfaq answers questions about a catalog of mutual funds",
		Long: `fundfaq is a retrieval-augmented answering engine over a catalog of
mutual fund facts (expense ratio, exit load, minimum SIP, lock-in,
riskometer, benchmark).

It chunks the catalog into passages, embeds them, and answers natural
language questions from the retrieved context, citing the source page of
the fund the answer is about.

The embedding and generation backends are selected via EMBEDDING_PROVIDER
and GENERATOR_PROVIDER environment variables or a YAML config file
(~/.fundfaq/config.yaml). See 'fundfaq --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A local .env is optional; real env vars always win.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.fundfaq/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewIndexCmd(),
		NewFundsCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
