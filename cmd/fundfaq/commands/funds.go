package commands

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fundfaq/fundfaq-go/internal/logging"
)

// NewFundsCmd constructs the `fundfaq funds` command group for inspecting
// and loading the fund catalog.
func NewFundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "funds",
		Short: "Inspect and load the fund catalog",
	}
	cmd.AddCommand(newFundsListCmd(), newFundsImportCmd())
	return cmd
}

// newFundsListCmd constructs `fundfaq funds list`, which prints every
// catalog record with its validation status and provenance URL.
func newFundsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the funds in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openCatalog()
			if err != nil {
				return fmt.Errorf("funds list: %w", err)
			}
			defer func() { _ = store.Close() }()

			records, err := store.All(ctx)
			if err != nil {
				return fmt.Errorf("funds list: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("catalog is empty; run 'fundfaq funds import --file <file>' to load records")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FUND\tSTATUS\tSOURCE")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.ValidationStatus, r.SourceURL)
			}
			return w.Flush()
		},
	}
}

// newFundsImportCmd constructs `fundfaq funds import`, which loads a JSON
// snapshot of fund records into the catalog.
func newFundsImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON snapshot of fund records into the catalog",
		Long: `Import fund records from a JSON file produced by the data acquisition
pipeline. Existing records with the same fund name are replaced.

Example:
  fundfaq funds import --file funds.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()

			store, err := openCatalog()
			if err != nil {
				return fmt.Errorf("funds import: %w", err)
			}
			defer func() { _ = store.Close() }()

			n, err := store.ImportFile(ctx, file)
			if err != nil {
				return fmt.Errorf("funds import: %w", err)
			}
			log.Info("catalog imported", slog.String("path", file), slog.Int("records", n))
			fmt.Printf("imported %d records\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file of fund records (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
