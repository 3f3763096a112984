// Package decide merges Stage-1 verdicts with Stage-2 aggregates into
// final classifications, maintains the master flagged list, and renders
// the human-readable summary.
package decide

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mlebedev/verifact/internal/model"
)

// agreementThreshold is the minimum agreement ratio for a decisive
// Supported or Refuted outcome.
const agreementThreshold = 0.6

// Decide computes the final classification. The Stage-1 initial label is
// accepted for audit symmetry but does not affect the outcome: only the
// Stage-2 majority and its agreement ratio decide.
func Decide(initial, majority model.Label, agreementRatio float64) model.Decision {
	_ = initial

	if majority == model.LabelSupported && agreementRatio >= agreementThreshold {
		return model.DecisionSupported
	}
	if majority == model.LabelRefuted && agreementRatio >= agreementThreshold {
		return model.DecisionRefuted
	}
	return model.DecisionNeedsReview
}

// BuildFinal merges assertions, Stage-1 verdicts, and Stage-2 aggregates
// into final records, ordered by assertion id. An assertion missing from
// a stage's output gets default values (Uncertain, zero confidence, zero
// agreement) rather than being dropped.
func BuildFinal(assertions []model.Assertion, stage1 []model.VerdictRecord, aggregates []model.AggregateRecord) []model.FinalRecord {
	s1 := make(map[int]model.VerdictRecord, len(stage1))
	for _, r := range stage1 {
		s1[r.AssertionID] = r
	}
	s2 := make(map[int]model.AggregateRecord, len(aggregates))
	for _, r := range aggregates {
		s2[r.AssertionID] = r
	}

	sorted := append([]model.Assertion(nil), assertions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	records := make([]model.FinalRecord, 0, len(sorted))
	for _, a := range sorted {
		initial := model.LabelUncertain
		var initialConf float64
		if r, ok := s1[a.ID]; ok {
			initial = r.Label
			initialConf = r.Confidence
		}

		majority := model.LabelUncertain
		var agg model.AggregateRecord
		if r, ok := s2[a.ID]; ok {
			agg = r
			majority = r.MajorityLabel
		}

		records = append(records, model.FinalRecord{
			AssertionID:       a.ID,
			Text:              a.Text,
			InitialLabel:      initial,
			InitialConfidence: initialConf,
			MajorityLabel:     majority,
			AgreementRatio:    agg.AgreementRatio,
			MeanConfidence:    agg.MeanConfidence,
			NumSupported:      agg.NumSupported,
			NumRefuted:        agg.NumRefuted,
			NumUncertain:      agg.NumUncertain,
			FinalDecision:     Decide(initial, majority, agg.AgreementRatio),
		})
	}
	return records
}

// Summary renders the human-readable totals: overall count, final
// decision counts, and Stage-2 majority counts.
func Summary(records []model.FinalRecord) string {
	decisions := make(map[model.Decision]int)
	majorities := make(map[model.Label]int)
	for _, r := range records {
		decisions[r.FinalDecision]++
		majorities[r.MajorityLabel]++
	}

	var sb strings.Builder
	sb.WriteString("FINAL FACT-CHECKING SUMMARY\n")
	sb.WriteString("=============================\n")
	fmt.Fprintf(&sb, "Total assertions analyzed: %d\n\n", len(records))

	sb.WriteString("Final decisions:\n")
	fmt.Fprintf(&sb, "  Supported:    %d\n", decisions[model.DecisionSupported])
	fmt.Fprintf(&sb, "  Refuted:      %d\n", decisions[model.DecisionRefuted])
	fmt.Fprintf(&sb, "  Needs Review: %d\n\n", decisions[model.DecisionNeedsReview])

	sb.WriteString("Stage-2 Majority Verdicts:\n")
	for _, label := range []model.Label{model.LabelSupported, model.LabelRefuted, model.LabelUncertain} {
		if count := majorities[label]; count > 0 {
			fmt.Fprintf(&sb, "  %s: %d\n", label, count)
		}
	}
	return sb.String()
}
