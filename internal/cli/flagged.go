package cli

import (
	"github.com/spf13/cobra"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/pipeline"
)

// flaggedCmd represents the flagged command
var flaggedCmd = &cobra.Command{
	Use:   "flagged",
	Short: "Rebuild the master flagged assertions list",
	Long: `Scans every Stage-1 run found in the output directory, combines it
with the Stage-2 aggregates when available, and rebuilds the master
list of assertions needing attention.

An assertion is flagged when its initial verdict is Refuted or
Uncertain, its Stage-2 majority is Refuted, or its final decision is
"Needs Review". Entries are deduplicated by normalized assertion text;
the most recent run wins on collision.

Artifacts written:
  master_flagged_assertions.json
  master_flagged_assertions.csv`,
	RunE: runFlagged,
}

func init() {
	rootCmd.AddCommand(flaggedCmd)
}

func runFlagged(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	logging.Setup(cfg.Output.Dir, verbose)
	defer logging.Close()

	return pipeline.New(cfg).MergeFlagged()
}
