package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/pipeline"
)

var (
	runPasses  int
	runTimeout time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <chapter>",
	Short: "Run the full pipeline: stage1, flagged, verify, summary",
	Long: `Runs all stages in order for a single chapter:

  1. stage1  - extract, retrieve, single-pass verdicts
  2. flagged - intermediate master flagged list
  3. verify  - multi-pass verification
  4. summary - final decisions + human-readable summary

The pipeline halts at the first stage failure; artifacts already
flushed by earlier stages are kept.

Example:
  OPENAI_API_KEY=sk-... verifact run chapter3.md --passes 5`,
	Args: cobra.ExactArgs(1),
	RunE: runFull,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runPasses, "passes", 5, "number of Stage-2 verification passes")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Hour, "overall pipeline timeout")
}

func runFull(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	logging.Setup(cfg.Output.Dir, verbose)
	defer logging.Close()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	return pipeline.New(cfg).Run(ctx, args[0], runPasses)
}
