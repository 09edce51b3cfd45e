package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fundfaq/fundfaq-go/internal/logging"
)

// NewIndexCmd constructs the `fundfaq index` command, which rebuilds the
// vector index from the fund catalog.
func NewIndexCmd() *cobra.Command {
	var importPath string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the vector index from the fund catalog",
		Long: `Chunk every valid catalog record into passages, embed them, and rebuild
the vector index. An existing index is cleared first.

With a memory index (INDEX_BACKEND=memory, the default) the result is
discarded at exit; use INDEX_BACKEND=bolt or INDEX_BACKEND=qdrant for a
persistent index worth rebuilding ahead of time.

Examples:
  INDEX_BACKEND=bolt fundfaq index
  INDEX_BACKEND=qdrant fundfaq index --import funds.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, false)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer a.close()

			if importPath != "" {
				n, err := a.store.ImportFile(ctx, importPath)
				if err != nil {
					return fmt.Errorf("index: import %s: %w", importPath, err)
				}
				log.Info("catalog imported", slog.String("path", importPath), slog.Int("records", n))
			}

			if err := ensureIndexed(ctx, a, log, true); err != nil {
				return fmt.Errorf("index: %w", err)
			}

			count, err := a.index.Count(ctx)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			fmt.Printf("indexed %d passages\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&importPath, "import", "", "JSON file of fund records to import into the catalog first")

	return cmd
}
