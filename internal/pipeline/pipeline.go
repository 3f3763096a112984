// Package pipeline wires the stages together: Stage 1 (extract, retrieve,
// single-pass verdicts), Stage 2 (multi-pass verification), the flagged
// list merge, and the final summary. One stage's complete output is the
// next stage's complete input; missing upstream artifacts abort a stage
// with no partial output.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlebedev/verifact/internal/checker"
	"github.com/mlebedev/verifact/internal/decide"
	"github.com/mlebedev/verifact/internal/index"
	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/model"
	"github.com/mlebedev/verifact/internal/oracle"
	"github.com/mlebedev/verifact/internal/retrieve"
	"github.com/mlebedev/verifact/internal/store"
	"github.com/mlebedev/verifact/internal/verify"
)

// baselineRunID is the Stage-1 run id of the optimized pipeline. Older
// artifacts with higher run ids are still picked up by the flagged merge.
const baselineRunID = 1

// Pipeline holds the constructed collaborators for a run.
type Pipeline struct {
	cfg    model.Config
	paths  store.Paths
	oracle oracle.Oracle
}

// New creates a pipeline from configuration. The oracle is constructed
// lazily: artifact-only steps (flagged merge, final summary) never touch
// the judgment service.
func New(cfg model.Config) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		paths: store.NewPaths(cfg.Output.Dir),
	}
}

// NewWithOracle creates a pipeline with an injected oracle.
func NewWithOracle(cfg model.Config, o oracle.Oracle) *Pipeline {
	p := New(cfg)
	p.oracle = o
	return p
}

func (p *Pipeline) getOracle() (oracle.Oracle, error) {
	if p.oracle == nil {
		o, err := oracle.NewChatOracle(p.cfg.Oracle)
		if err != nil {
			return nil, fmt.Errorf("create oracle: %w", err)
		}
		p.oracle = o
	}
	return p.oracle, nil
}

// Paths exposes the artifact layout for this pipeline's output directory.
func (p *Pipeline) Paths() store.Paths {
	return p.paths
}

// Stage1 runs the heavy single pass: read the chapter, build the local
// context index, extract assertions, retrieve evidence once per assertion,
// and judge each assertion once.
func (p *Pipeline) Stage1(ctx context.Context, chapterPath string) error {
	logging.L().Info("========== STAGE 1: Single-Pass Fact-Checking ==========")

	text, err := readChapter(chapterPath)
	if err != nil {
		return err
	}
	logging.L().Infof("loaded chapter (%d words)", len(strings.Fields(text)))

	if err := p.paths.EnsureDir(); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	o, err := p.getOracle()
	if err != nil {
		return fmt.Errorf("stage 1: %w", err)
	}

	idx := index.New(p.cfg.Index.ChunkSize, p.cfg.Index.ChunkOverlap)
	idx.Build(text)

	assertions, err := o.Extract(ctx, filepath.Base(chapterPath), text)
	if err != nil {
		return fmt.Errorf("stage 1: %w", err)
	}
	if len(assertions) == 0 {
		return fmt.Errorf("stage 1: no assertions extracted, nothing to fact-check")
	}
	logging.L().Infof("extracted %d assertions", len(assertions))

	retriever := retrieve.NewRetriever(p.cfg.Retrieval)
	chk := checker.New(o, retriever, idx, p.cfg)

	ev := store.NewEvidenceStore()
	results := chk.CheckAll(ctx, assertions, ev, baselineRunID)

	if err := store.SaveJSON(p.paths.Assertions(baselineRunID), assertions); err != nil {
		return fmt.Errorf("stage 1: %w", err)
	}
	if err := store.SaveJSON(p.paths.Stage1Results(baselineRunID), results); err != nil {
		return fmt.Errorf("stage 1: %w", err)
	}
	if err := ev.Save(p.paths.EvidenceStore()); err != nil {
		return fmt.Errorf("stage 1: %w", err)
	}

	logging.L().Info("stage 1 complete, artifacts saved")
	return nil
}

// Stage2 replays the single-pass checker numPasses times in batch mode
// over the frozen evidence store and aggregates the surviving verdicts.
func (p *Pipeline) Stage2(ctx context.Context, numPasses int) error {
	logging.L().Info("========== STAGE 2: Multi-Pass Verification ==========")

	if numPasses <= 0 {
		numPasses = p.cfg.Verify.NumPasses
	}

	var assertions []model.Assertion
	if err := store.LoadJSON(p.paths.Assertions(baselineRunID), &assertions); err != nil {
		return fmt.Errorf("stage 2: assertions missing, run stage 1 first: %w", err)
	}
	if len(assertions) == 0 {
		return fmt.Errorf("stage 2: no assertions found, run stage 1 first")
	}

	ev, err := store.LoadEvidenceStore(p.paths.EvidenceStore())
	if err != nil {
		return fmt.Errorf("stage 2: evidence store missing, run stage 1 first: %w", err)
	}

	o, err := p.getOracle()
	if err != nil {
		return fmt.Errorf("stage 2: %w", err)
	}

	chk := checker.New(o, nil, nil, p.cfg)
	engine := verify.NewEngine(chk, p.cfg.Verify.Temperature, p.cfg.Verify.PassWorkers)

	logging.L().Infof("running %d batched verification passes", numPasses)
	raw := engine.Run(ctx, assertions, ev, baselineRunID, numPasses)

	if err := store.SaveJSON(p.paths.RawPasses(), raw); err != nil {
		return fmt.Errorf("stage 2: %w", err)
	}

	aggregated := verify.Aggregate(raw)
	if err := store.SaveJSON(p.paths.Aggregated(), aggregated); err != nil {
		return fmt.Errorf("stage 2: %w", err)
	}

	logging.L().Infof("stage 2 complete: %d raw verdicts, %d aggregates", len(raw), len(aggregated))
	return nil
}

// MergeFlagged scans all historical Stage-1 runs plus the Stage-2
// aggregates and rebuilds the master flagged list.
func (p *Pipeline) MergeFlagged() error {
	logging.L().Info("========== BUILDING MASTER FLAGGED ASSERTIONS LIST ==========")

	runIDs := p.paths.DiscoverRuns()
	if len(runIDs) == 0 {
		return fmt.Errorf("merge flagged: no stage 1 results found, run stage 1 first")
	}
	logging.L().Infof("found stage-1 runs: %v", runIDs)

	// Stage-2 aggregates are optional at flagging time.
	var aggregates []model.AggregateRecord
	if err := store.LoadJSON(p.paths.Aggregated(), &aggregates); err != nil {
		logging.L().Warnf("no stage-2 aggregates available: %v", err)
	}

	runs := make([]decide.RunArtifacts, 0, len(runIDs))
	for _, runID := range runIDs {
		var assertions []model.Assertion
		var stage1 []model.VerdictRecord
		if err := store.LoadJSON(p.paths.Assertions(runID), &assertions); err != nil {
			logging.L().Errorf("skipping run %d: %v", runID, err)
			continue
		}
		if err := store.LoadJSON(p.paths.Stage1Results(runID), &stage1); err != nil {
			logging.L().Errorf("skipping run %d: %v", runID, err)
			continue
		}
		runs = append(runs, decide.RunArtifacts{RunID: runID, Assertions: assertions, Stage1: stage1})
	}

	flagged := decide.MergeFlagged(runs, aggregates)

	if err := store.SaveJSON(p.paths.FlaggedJSON(), flagged); err != nil {
		return fmt.Errorf("merge flagged: %w", err)
	}
	if err := store.WriteFlaggedCSV(p.paths.FlaggedCSV(), flagged); err != nil {
		return fmt.Errorf("merge flagged: %w", err)
	}

	logging.L().Infof("flagged %d assertions", len(flagged))
	return nil
}

// FinalSummary merges Stage-1 verdicts and Stage-2 aggregates into the
// final results and the human-readable summary.
func (p *Pipeline) FinalSummary() error {
	logging.L().Info("========== STAGE 3: Final Summary ==========")

	var assertions []model.Assertion
	var stage1 []model.VerdictRecord
	var aggregates []model.AggregateRecord

	if err := store.LoadJSON(p.paths.Assertions(baselineRunID), &assertions); err != nil {
		return fmt.Errorf("final summary: %w", err)
	}
	if err := store.LoadJSON(p.paths.Stage1Results(baselineRunID), &stage1); err != nil {
		return fmt.Errorf("final summary: %w", err)
	}
	if err := store.LoadJSON(p.paths.Aggregated(), &aggregates); err != nil {
		return fmt.Errorf("final summary: %w", err)
	}
	if len(assertions) == 0 || len(stage1) == 0 {
		return fmt.Errorf("final summary: missing stage 1 or stage 2 data")
	}

	final := decide.BuildFinal(assertions, stage1, aggregates)

	if err := store.SaveJSON(p.paths.FinalJSON(), final); err != nil {
		return fmt.Errorf("final summary: %w", err)
	}
	if err := store.WriteFinalCSV(p.paths.FinalCSV(), final); err != nil {
		return fmt.Errorf("final summary: %w", err)
	}

	summary := decide.Summary(final)
	if err := os.WriteFile(p.paths.Summary(), []byte(summary), 0644); err != nil {
		return fmt.Errorf("final summary: write summary: %w", err)
	}

	logging.L().Infof("final summary complete: %d records", len(final))
	return nil
}

// Run composes the full pipeline: Stage 1, the intermediate flagged list,
// Stage 2, and the final summary, halting at the first stage failure.
func (p *Pipeline) Run(ctx context.Context, chapterPath string, numPasses int) error {
	logging.L().Info("========== FULL FACT-CHECKING PIPELINE START ==========")

	if err := p.Stage1(ctx, chapterPath); err != nil {
		return err
	}
	if err := p.MergeFlagged(); err != nil {
		return err
	}
	if err := p.Stage2(ctx, numPasses); err != nil {
		return err
	}
	if err := p.FinalSummary(); err != nil {
		return err
	}

	logging.L().Info("========== FULL PIPELINE COMPLETE ==========")
	return nil
}

// readChapter loads the chapter text. HTML chapters are reduced to their
// visible text before indexing and extraction.
func readChapter(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("chapter file not found: %w", err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text = retrieve.ExtractText(text)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("chapter file %s is empty", path)
	}
	return text, nil
}
