package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fundfaq/fundfaq-go/internal/logging"
)

// NewAskCmd constructs the `fundfaq ask` command, which answers a single
// natural language question from the fund catalog.
func NewAskCmd() *cobra.Command {
	var reindex bool
	var noGenerate bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the fund catalog",
		Long: `Ask a natural language question about the funds in the catalog.

The answer is grounded in the indexed fund facts and cites the source page
of the fund it is about. If the vector index is empty it is built first.

Examples:
  fundfaq ask "what is the expense ratio of the flexi cap fund?"
  fundfaq ask --reindex "does the ELSS fund have a lock-in period?"
  fundfaq ask --no-generate "exit load for the liquid fund"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, !noGenerate)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.close()

			if err := ensureIndexed(ctx, a, log, reindex); err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			result, err := a.engine.AnswerQuery(ctx, args[0])
			if err != nil {
				// The result still carries a readable failure answer.
				log.Debug("answer failed", "error", err)
			}

			fmt.Println(result.Answer)
			if len(result.SourceURLs) > 0 {
				fmt.Println("\nSources:")
				for _, u := range result.SourceURLs {
					fmt.Printf("  - %s\n", u)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", false, "Rebuild the vector index before answering")
	cmd.Flags().BoolVar(&noGenerate, "no-generate", false, "Skip the chat model and answer by field extraction only")

	return cmd
}
