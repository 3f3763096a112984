// Package verify implements the multi-pass verification engine and the
// aggregation of per-pass verdicts into one summary per assertion.
package verify

import (
	"context"
	"sync"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/model"
	"github.com/mlebedev/verifact/internal/store"
)

// BatchChecker judges the whole assertion set in one call for one pass.
type BatchChecker interface {
	CheckBatch(ctx context.Context, assertions []model.Assertion, ev *store.EvidenceStore, runID, passID int, temperature float64) ([]model.VerdictRecord, error)
}

// Engine replays the batch checker N times over the same frozen evidence.
// Passes share no mutable state: each writes into its own buffer and the
// buffers are concatenated in pass order after the join. A pass whose
// response cannot be used is skipped entirely, so the number of passes is
// an upper bound on samples per assertion, not a guarantee.
type Engine struct {
	checker     BatchChecker
	temperature float64
	passWorkers int
}

// NewEngine creates an engine. Temperature is the Stage-2 setting, higher
// than Stage 1's to diversify reasoning across passes. passWorkers bounds
// pass-level parallelism; values below 2 run passes sequentially.
func NewEngine(checker BatchChecker, temperature float64, passWorkers int) *Engine {
	if passWorkers < 1 {
		passWorkers = 1
	}
	return &Engine{
		checker:     checker,
		temperature: temperature,
		passWorkers: passWorkers,
	}
}

// Run executes numPasses verification passes for run runID and returns
// all surviving verdicts, ordered by pass.
func (e *Engine) Run(ctx context.Context, assertions []model.Assertion, ev *store.EvidenceStore, runID, numPasses int) []model.VerdictRecord {
	if numPasses < 1 || len(assertions) == 0 {
		return nil
	}

	// One result buffer per pass; never a shared mutable list.
	buffers := make([][]model.VerdictRecord, numPasses)

	if e.passWorkers == 1 {
		for p := 1; p <= numPasses; p++ {
			buffers[p-1] = e.runPass(ctx, assertions, ev, runID, p, numPasses)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, e.passWorkers)
		for p := 1; p <= numPasses; p++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(passID int) {
				defer wg.Done()
				defer func() { <-sem }()
				buffers[passID-1] = e.runPass(ctx, assertions, ev, runID, passID, numPasses)
			}(p)
		}
		wg.Wait()
	}

	var all []model.VerdictRecord
	for _, buf := range buffers {
		all = append(all, buf...)
	}
	return all
}

func (e *Engine) runPass(ctx context.Context, assertions []model.Assertion, ev *store.EvidenceStore, runID, passID, numPasses int) []model.VerdictRecord {
	logging.L().Infof("verification pass %d/%d", passID, numPasses)

	records, err := e.checker.CheckBatch(ctx, assertions, ev, runID, passID, e.temperature)
	if err != nil {
		// Skipped, not substituted: a failed pass contributes no samples.
		logging.L().Errorf("pass %d skipped: %v", passID, err)
		return nil
	}
	return records
}
