// Package checker produces one verdict per assertion for a given
// (run, pass) pair. Stage 1 judges assertions one by one while building
// the evidence store; Stage 2 judges the entire batch in a single oracle
// call against the frozen store.
package checker

import (
	"context"

	"github.com/mlebedev/verifact/internal/index"
	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/model"
	"github.com/mlebedev/verifact/internal/oracle"
	"github.com/mlebedev/verifact/internal/store"
)

// EvidenceSearcher is the external retrieval capability.
type EvidenceSearcher interface {
	Search(ctx context.Context, query string, max int) []model.EvidenceDocument
}

// ContextIndex is the in-chapter similarity capability.
type ContextIndex interface {
	Built() bool
	Search(query string, k int) []index.Passage
}

// Checker orchestrates oracle calls over assertions and evidence.
type Checker struct {
	oracle    oracle.Oracle
	retriever EvidenceSearcher
	idx       ContextIndex

	temperature float64 // Stage-1 baseline
	maxDocs     int
	localTopK   int
}

// New creates a checker. The retriever and index may be nil when a stage
// needs no fresh evidence (Stage 2 replays the store).
func New(o oracle.Oracle, retriever EvidenceSearcher, idx ContextIndex, cfg model.Config) *Checker {
	localTopK := cfg.Retrieval.LocalTopK
	if localTopK <= 0 {
		localTopK = 3
	}
	return &Checker{
		oracle:      o,
		retriever:   retriever,
		idx:         idx,
		temperature: cfg.Oracle.Temperature,
		maxDocs:     cfg.Retrieval.MaxEvidenceDocs,
		localTopK:   localTopK,
	}
}

// CheckAll runs the Stage-1 pass: retrieve evidence for each assertion,
// freeze it into the store, and judge each assertion once. A terminal
// oracle failure degrades that assertion to the fallback verdict; the
// batch always completes.
func (c *Checker) CheckAll(ctx context.Context, assertions []model.Assertion, ev *store.EvidenceStore, runID int) []model.VerdictRecord {
	records := make([]model.VerdictRecord, 0, len(assertions))

	for _, a := range assertions {
		docs := c.gatherEvidence(ctx, a.Text)
		ev.Put(a.ID, a.Text, docs)

		verdict, err := c.oracle.Judge(ctx, a.Text, docs, c.temperature)
		if err != nil {
			logging.L().Errorf("assertion %d: oracle failed after retries: %v", a.ID, err)
			verdict = oracle.Fallback(err.Error())
		}

		records = append(records, model.VerdictRecord{
			AssertionID: a.ID,
			Label:       verdict.Label,
			Reasoning:   verdict.Reasoning,
			Confidence:  verdict.Confidence,
			RunID:       runID,
			PassID:      1,
		})
	}
	return records
}

// CheckBatch runs one Stage-2 pass: a single oracle call covering every
// assertion with its frozen evidence. An unusable response is an error;
// the caller skips the pass entirely.
func (c *Checker) CheckBatch(ctx context.Context, assertions []model.Assertion, ev *store.EvidenceStore, runID, passID int, temperature float64) ([]model.VerdictRecord, error) {
	items := make([]oracle.BatchItem, 0, len(assertions))
	for _, a := range assertions {
		items = append(items, oracle.BatchItem{
			ID:        a.ID,
			Assertion: a.Text,
			Evidence:  ev.Get(a.ID),
		})
	}

	verdicts, err := c.oracle.JudgeBatch(ctx, items, temperature)
	if err != nil {
		return nil, err
	}

	records := make([]model.VerdictRecord, 0, len(verdicts))
	for _, v := range verdicts {
		records = append(records, model.VerdictRecord{
			AssertionID: v.ID,
			Label:       v.Label,
			Reasoning:   v.Reasoning,
			Confidence:  v.Confidence,
			RunID:       runID,
			PassID:      passID,
		})
	}
	return records, nil
}

// gatherEvidence combines external retrieval with in-chapter context,
// capped at the evidence limit.
func (c *Checker) gatherEvidence(ctx context.Context, assertion string) []model.EvidenceDocument {
	var docs []model.EvidenceDocument

	if c.retriever != nil {
		docs = append(docs, c.retriever.Search(ctx, assertion, c.maxDocs)...)
	}

	if c.idx != nil && c.idx.Built() {
		for _, passage := range c.idx.Search(assertion, c.localTopK) {
			docs = append(docs, model.EvidenceDocument{
				Title:   "Chapter Context",
				Snippet: passage.Text,
				Source:  model.SourceLocal,
			})
		}
	}

	if len(docs) > c.maxDocs {
		docs = docs[:c.maxDocs]
	}
	return docs
}
