package verify

import (
	"math"
	"sort"

	"github.com/mlebedev/verifact/internal/model"
)

// Aggregate reduces all pass verdicts into one record per assertion:
// majority label, agreement ratio, mean confidence, and per-label counts.
// The reduction is order-independent and idempotent over the same input
// multiset. Assertions with zero samples do not appear in the output.
func Aggregate(verdicts []model.VerdictRecord) []model.AggregateRecord {
	grouped := make(map[int][]model.VerdictRecord)
	for _, v := range verdicts {
		grouped[v.AssertionID] = append(grouped[v.AssertionID], v)
	}

	ids := make([]int, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	records := make([]model.AggregateRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, aggregateOne(id, grouped[id]))
	}
	return records
}

func aggregateOne(id int, samples []model.VerdictRecord) model.AggregateRecord {
	counts := make(map[model.Label]int, 3)
	var confSum float64
	for _, s := range samples {
		counts[s.Label]++
		confSum += s.Confidence
	}

	majority, topCount := majorityLabel(counts)
	total := len(samples)

	// On a tie the majority resolves to Uncertain but the agreement ratio
	// still reflects the mode's share of the samples.
	return model.AggregateRecord{
		AssertionID:    id,
		MajorityLabel:  majority,
		AgreementRatio: round4(float64(topCount) / float64(total)),
		MeanConfidence: round4(confSum / float64(total)),
		NumSupported:   counts[model.LabelSupported],
		NumRefuted:     counts[model.LabelRefuted],
		NumUncertain:   counts[model.LabelUncertain],
	}
}

// majorityLabel returns the mode of the labels and its count. A multiway
// tie has no defined majority and resolves to Uncertain; the count is
// still the mode's.
func majorityLabel(counts map[model.Label]int) (model.Label, int) {
	best := model.LabelUncertain
	bestCount := -1
	tied := false
	// Fixed iteration order keeps the tie check deterministic.
	for _, label := range []model.Label{model.LabelSupported, model.LabelRefuted, model.LabelUncertain} {
		c := counts[label]
		switch {
		case c > bestCount:
			best, bestCount, tied = label, c, false
		case c == bestCount:
			tied = true
		}
	}
	if tied {
		return model.LabelUncertain, bestCount
	}
	return best, bestCount
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
