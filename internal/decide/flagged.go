package decide

import (
	"sort"
	"strings"

	"github.com/mlebedev/verifact/internal/model"
)

// IsFlagged reports whether an assertion needs human attention: the
// initial verdict was not Supported, the multi-pass majority refuted it,
// or the final decision is Needs Review.
func IsFlagged(initial, majority model.Label, final model.Decision) bool {
	return initial == model.LabelRefuted ||
		initial == model.LabelUncertain ||
		majority == model.LabelRefuted ||
		final == model.DecisionNeedsReview
}

// RunArtifacts is one historical Stage-1 run plus the shared Stage-2
// aggregates, as discovered on disk at flagging time.
type RunArtifacts struct {
	RunID      int
	Assertions []model.Assertion
	Stage1     []model.VerdictRecord
}

// MergeFlagged scans every discovered run and builds the master flagged
// list, deduplicated by normalized assertion text. Runs must be supplied
// in ascending run id order: on a text collision the later run's values
// win.
func MergeFlagged(runs []RunArtifacts, aggregates []model.AggregateRecord) []model.FlaggedRecord {
	s2 := make(map[int]model.AggregateRecord, len(aggregates))
	for _, r := range aggregates {
		s2[r.AssertionID] = r
	}

	master := make(map[string]model.FlaggedRecord)
	var order []string

	for _, run := range runs {
		texts := make(map[int]string, len(run.Assertions))
		for _, a := range run.Assertions {
			texts[a.ID] = a.Text
		}

		for _, row := range run.Stage1 {
			text := strings.TrimSpace(texts[row.AssertionID])
			if text == "" {
				continue
			}

			majority := model.LabelUncertain
			agreement := 0.0
			if agg, ok := s2[row.AssertionID]; ok {
				majority = agg.MajorityLabel
				agreement = agg.AgreementRatio
			}
			final := Decide(row.Label, majority, agreement)

			if !IsFlagged(row.Label, majority, final) {
				continue
			}

			key := strings.ToLower(text)
			if _, seen := master[key]; !seen {
				order = append(order, key)
			}
			master[key] = model.FlaggedRecord{
				AssertionID:   row.AssertionID,
				Text:          text,
				InitialLabel:  row.Label,
				MajorityLabel: majority,
				FinalDecision: final,
				Reasoning:     row.Reasoning,
				RunID:         run.RunID,
			}
		}
	}

	records := make([]model.FlaggedRecord, 0, len(master))
	for _, key := range order {
		records = append(records, master[key])
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RunID != records[j].RunID {
			return records[i].RunID < records[j].RunID
		}
		return records[i].AssertionID < records[j].AssertionID
	})
	return records
}
