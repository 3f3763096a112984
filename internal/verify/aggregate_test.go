package verify

import (
	"math"
	"testing"

	"github.com/mlebedev/verifact/internal/model"
)

func verdict(id int, label model.Label, conf float64, passID int) model.VerdictRecord {
	return model.VerdictRecord{
		AssertionID: id,
		Label:       label,
		Confidence:  conf,
		RunID:       1,
		PassID:      passID,
	}
}

func TestAggregate_UnanimousSupported(t *testing.T) {
	var verdicts []model.VerdictRecord
	for p := 1; p <= 5; p++ {
		verdicts = append(verdicts, verdict(0, model.LabelSupported, 0.9, p))
	}

	records := Aggregate(verdicts)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.MajorityLabel != model.LabelSupported {
		t.Errorf("majority = %s, want Supported", r.MajorityLabel)
	}
	if r.AgreementRatio != 1.0 {
		t.Errorf("agreement = %v, want 1.0", r.AgreementRatio)
	}
	if r.MeanConfidence != 0.9 {
		t.Errorf("mean confidence = %v, want 0.9", r.MeanConfidence)
	}
	if r.NumSupported != 5 || r.NumRefuted != 0 || r.NumUncertain != 0 {
		t.Errorf("counts = %d/%d/%d, want 5/0/0", r.NumSupported, r.NumRefuted, r.NumUncertain)
	}
}

func TestAggregate_SplitVerdicts(t *testing.T) {
	verdicts := []model.VerdictRecord{
		verdict(3, model.LabelSupported, 0.8, 1),
		verdict(3, model.LabelRefuted, 0.7, 2),
		verdict(3, model.LabelUncertain, 0.5, 3),
		verdict(3, model.LabelSupported, 0.9, 4),
		verdict(3, model.LabelRefuted, 0.6, 5),
	}

	records := Aggregate(verdicts)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.MajorityLabel != model.LabelUncertain {
		t.Errorf("2-2-1 tie should resolve to Uncertain, got %s", r.MajorityLabel)
	}
	if r.AgreementRatio != 0.4 {
		t.Errorf("agreement = %v, want 0.4 (mode count / total)", r.AgreementRatio)
	}
	if got, want := r.MeanConfidence, 0.7; math.Abs(got-want) > 1e-9 {
		t.Errorf("mean confidence = %v, want %v", got, want)
	}
	if r.NumSupported+r.NumRefuted+r.NumUncertain != 5 {
		t.Errorf("counts must sum to sample count, got %d/%d/%d",
			r.NumSupported, r.NumRefuted, r.NumUncertain)
	}
}

func TestAggregate_TwoWayTieResolvesUncertain(t *testing.T) {
	verdicts := []model.VerdictRecord{
		verdict(0, model.LabelSupported, 0.9, 1),
		verdict(0, model.LabelSupported, 0.9, 2),
		verdict(0, model.LabelRefuted, 0.9, 3),
		verdict(0, model.LabelRefuted, 0.9, 4),
	}

	r := Aggregate(verdicts)[0]
	if r.MajorityLabel != model.LabelUncertain {
		t.Errorf("2-2 tie should resolve to Uncertain, got %s", r.MajorityLabel)
	}
	if r.AgreementRatio != 0.5 {
		t.Errorf("agreement = %v, want 0.5 (mode count / total)", r.AgreementRatio)
	}
}

func TestAggregate_MajorityWinsNonTie(t *testing.T) {
	verdicts := []model.VerdictRecord{
		verdict(0, model.LabelRefuted, 0.8, 1),
		verdict(0, model.LabelRefuted, 0.8, 2),
		verdict(0, model.LabelRefuted, 0.9, 3),
		verdict(0, model.LabelSupported, 0.7, 4),
		verdict(0, model.LabelUncertain, 0.3, 5),
	}

	r := Aggregate(verdicts)[0]
	if r.MajorityLabel != model.LabelRefuted {
		t.Errorf("majority = %s, want Refuted", r.MajorityLabel)
	}
	if r.AgreementRatio != 0.6 {
		t.Errorf("agreement = %v, want 0.6", r.AgreementRatio)
	}
}

func TestAggregate_DegradedPasses(t *testing.T) {
	// Two of five passes failed to parse: only three samples survive.
	verdicts := []model.VerdictRecord{
		verdict(0, model.LabelSupported, 0.9, 1),
		verdict(0, model.LabelSupported, 0.8, 3),
		verdict(0, model.LabelRefuted, 0.6, 5),
	}

	r := Aggregate(verdicts)[0]
	if r.NumSupported+r.NumRefuted+r.NumUncertain != 3 {
		t.Fatalf("expected 3 samples, got %d",
			r.NumSupported+r.NumRefuted+r.NumUncertain)
	}
	if r.MajorityLabel != model.LabelSupported {
		t.Errorf("majority = %s, want Supported", r.MajorityLabel)
	}
	if r.AgreementRatio != 0.6667 {
		t.Errorf("agreement = %v, want 0.6667 (rounded to 4 decimals)", r.AgreementRatio)
	}
}

func TestAggregate_ZeroSampleAssertionsOmitted(t *testing.T) {
	verdicts := []model.VerdictRecord{
		verdict(0, model.LabelSupported, 0.9, 1),
		verdict(2, model.LabelRefuted, 0.7, 1),
	}

	records := Aggregate(verdicts)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].AssertionID != 0 || records[1].AssertionID != 2 {
		t.Errorf("records must be sorted by assertion id, got %d then %d",
			records[0].AssertionID, records[1].AssertionID)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	forward := []model.VerdictRecord{
		verdict(0, model.LabelSupported, 0.8, 1),
		verdict(0, model.LabelRefuted, 0.4, 2),
		verdict(0, model.LabelSupported, 0.6, 3),
	}
	reversed := []model.VerdictRecord{forward[2], forward[1], forward[0]}

	a := Aggregate(forward)[0]
	b := Aggregate(reversed)[0]
	if a != b {
		t.Errorf("aggregate differs under reordering: %+v vs %+v", a, b)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if records := Aggregate(nil); len(records) != 0 {
		t.Errorf("expected no records for empty input, got %d", len(records))
	}
}

func TestRound4(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1.0 / 3.0, 0.3333},
		{2.0 / 3.0, 0.6667},
		{0.5, 0.5},
		{0.123456, 0.1235},
	}
	for _, c := range cases {
		if got := round4(c.in); got != c.want {
			t.Errorf("round4(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
