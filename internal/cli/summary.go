package cli

import (
	"github.com/spf13/cobra"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/pipeline"
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Run Stage 3: merge stages into final decisions and a summary",
	Long: `Merges the Stage-1 verdicts with the Stage-2 aggregates into the
final three-way classification per assertion:

  Supported    - majority Supported with agreement >= 0.6
  Refuted      - majority Refuted with agreement >= 0.6
  Needs Review - everything else

Artifacts written:
  final_results.json
  final_results.csv
  final_summary.txt`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	logging.Setup(cfg.Output.Dir, verbose)
	defer logging.Close()

	return pipeline.New(cfg).FinalSummary()
}
