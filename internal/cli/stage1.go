package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/pipeline"
)

var stage1Timeout time.Duration

// stage1Cmd represents the stage1 command
var stage1Cmd = &cobra.Command{
	Use:   "stage1 <chapter>",
	Short: "Run Stage 1: extract assertions, retrieve evidence, single-pass verdicts",
	Long: `Stage 1 performs the heavy work once per chapter:

- Read the chapter file (.md, .txt, or .html)
- Build a local TF-IDF context index over the chapter
- Extract all factual assertions in a single oracle call
- Retrieve external + local evidence for each assertion
- Judge each assertion once against its evidence

Artifacts written to the output directory:
  assertions_run1.json
  fact_check_results_run1.json
  evidence_store.json

Stage 2 reuses these artifacts without repeating any heavy work.

Example:
  verifact stage1 chapter3.md
  OPENAI_API_KEY=sk-... verifact stage1 chapter3.md --output results`,
	Args: cobra.ExactArgs(1),
	RunE: runStage1,
}

func init() {
	rootCmd.AddCommand(stage1Cmd)

	stage1Cmd.Flags().DurationVar(&stage1Timeout, "timeout", 30*time.Minute, "overall stage timeout")
}

func runStage1(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	logging.Setup(cfg.Output.Dir, verbose)
	defer logging.Close()

	ctx, cancel := context.WithTimeout(context.Background(), stage1Timeout)
	defer cancel()

	return pipeline.New(cfg).Stage1(ctx, args[0])
}
