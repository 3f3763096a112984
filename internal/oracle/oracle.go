package oracle

import (
	"context"

	"github.com/mlebedev/verifact/internal/model"
)

// Verdict is the oracle's structured judgment of one assertion.
type Verdict struct {
	Label      model.Label
	Reasoning  string
	Confidence float64
}

// BatchItem pairs an assertion with its frozen evidence for batch judging.
type BatchItem struct {
	ID        int                      `json:"index"`
	Assertion string                   `json:"assertion"`
	Evidence  []model.EvidenceDocument `json:"evidence"`
}

// IndexedVerdict tags a Verdict with the assertion it judges.
type IndexedVerdict struct {
	ID int
	Verdict
}

// Oracle is the external judgment service. It is unreliable by contract:
// implementations return Fallback verdicts on malformed output and errors
// only on terminal transport failure, so one bad response never aborts a
// batch.
type Oracle interface {
	// Judge evaluates one assertion against its evidence. The evidence
	// may be empty; the verdict still resolves (typically Uncertain).
	Judge(ctx context.Context, assertion string, docs []model.EvidenceDocument, temperature float64) (Verdict, error)

	// JudgeBatch evaluates every item in one call, expecting a strict
	// JSON array keyed by assertion id. Corrupt items are dropped; a
	// response that is not an array is an error (the caller skips the
	// whole pass).
	JudgeBatch(ctx context.Context, items []BatchItem, temperature float64) ([]IndexedVerdict, error)

	// Extract pulls checkable factual assertions out of the chapter text.
	Extract(ctx context.Context, chapterName, content string) ([]model.Assertion, error)
}

// Fallback is the verdict substituted when the oracle's output cannot be
// parsed: Uncertain at zero confidence, with the raw text preserved.
func Fallback(raw string) Verdict {
	return Verdict{
		Label:      model.LabelUncertain,
		Reasoning:  raw,
		Confidence: 0.0,
	}
}
