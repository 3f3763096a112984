package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/pipeline"
)

var (
	verifyPasses  int
	verifyWorkers int
	verifyTimeout time.Duration
)

// verifyCmd represents the verify (Stage 2) command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run Stage 2: multi-pass verification over the frozen evidence",
	Long: `Stage 2 replays the fact-checking reasoning N times in batch mode
(one oracle call per pass) over the evidence store built in Stage 1.
The evidence is never re-retrieved: pass-to-pass variance comes only
from the oracle's temperature-driven sampling.

A pass whose response cannot be parsed is skipped entirely, so the
number of passes is an upper bound on samples per assertion.

Artifacts written:
  verification_raw_passes.json
  verification_aggregated.json

Example:
  verifact verify --passes 5
  verifact verify --passes 7 --pass-workers 3`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().IntVar(&verifyPasses, "passes", 5, "number of verification passes")
	verifyCmd.Flags().IntVar(&verifyWorkers, "pass-workers", 1, "concurrent passes (1 = sequential)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 30*time.Minute, "overall stage timeout")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if cmd.Flags().Changed("pass-workers") {
		cfg.Verify.PassWorkers = verifyWorkers
	}
	logging.Setup(cfg.Output.Dir, verbose)
	defer logging.Close()

	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	return pipeline.New(cfg).Stage2(ctx, verifyPasses)
}
