package model

// Label is the three-way verdict an oracle pass assigns to an assertion.
type Label string

const (
	LabelSupported Label = "Supported"
	LabelRefuted   Label = "Refuted"
	LabelUncertain Label = "Uncertain"
)

// ParseLabel normalizes free-form oracle output into a Label.
// Anything unrecognized resolves to Uncertain.
func ParseLabel(s string) Label {
	switch Label(canonical(s)) {
	case LabelSupported:
		return LabelSupported
	case LabelRefuted:
		return LabelRefuted
	default:
		return LabelUncertain
	}
}

// Decision is the terminal three-way classification after merging stages.
type Decision string

const (
	DecisionSupported   Decision = "Supported"
	DecisionRefuted     Decision = "Refuted"
	DecisionNeedsReview Decision = "Needs Review"
)

// Assertion is a single factual claim extracted from the chapter.
// IDs are 0-based, contiguous, and stable across all stages.
type Assertion struct {
	ID       int    `json:"index"`
	Text     string `json:"original_statement"`
	Section  string `json:"section,omitempty"`
	Position int    `json:"sentence_number"`
}

// VerdictRecord is one oracle judgment of one assertion in one pass.
type VerdictRecord struct {
	AssertionID int     `json:"index"`
	Label       Label   `json:"final_verdict"`
	Reasoning   string  `json:"reasoning"`
	Confidence  float64 `json:"confidence"`
	RunID       int     `json:"run_id"`
	PassID      int     `json:"pass_id"`
}

// AggregateRecord reduces all surviving pass verdicts for one assertion.
type AggregateRecord struct {
	AssertionID    int     `json:"index"`
	MajorityLabel  Label   `json:"majority_verdict"`
	AgreementRatio float64 `json:"agreement_ratio"`
	MeanConfidence float64 `json:"mean_confidence"`
	NumSupported   int     `json:"num_supported"`
	NumRefuted     int     `json:"num_refuted"`
	NumUncertain   int     `json:"num_uncertain"`
}

// FinalRecord merges the Stage-1 verdict with the Stage-2 aggregate.
// InitialLabel is carried for audit only; the decision rule ignores it.
type FinalRecord struct {
	AssertionID       int      `json:"index"`
	Text              string   `json:"assertion"`
	InitialLabel      Label    `json:"initial_verdict"`
	InitialConfidence float64  `json:"initial_confidence"`
	MajorityLabel     Label    `json:"majority_verdict"`
	AgreementRatio    float64  `json:"agreement_ratio"`
	MeanConfidence    float64  `json:"mean_confidence"`
	NumSupported      int      `json:"num_supported"`
	NumRefuted        int      `json:"num_refuted"`
	NumUncertain      int      `json:"num_uncertain"`
	FinalDecision     Decision `json:"final_decision"`
}

// FlaggedRecord marks an assertion whose initial, aggregate, or final
// signal indicates unresolved uncertainty. Deduplicated by normalized
// text across all historical runs.
type FlaggedRecord struct {
	AssertionID   int      `json:"index"`
	Text          string   `json:"original_statement"`
	InitialLabel  Label    `json:"initial_verdict"`
	MajorityLabel Label    `json:"stage2_majority"`
	FinalDecision Decision `json:"final_decision,omitempty"`
	Reasoning     string   `json:"reasoning,omitempty"`
	RunID         int      `json:"run_id"`
}

func canonical(s string) string {
	out := make([]rune, 0, len(s))
	upperNext := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '"':
			continue
		case upperNext && r >= 'a' && r <= 'z':
			out = append(out, r-32)
			upperNext = false
		case !upperNext && r >= 'A' && r <= 'Z':
			out = append(out, r+32)
		default:
			out = append(out, r)
			upperNext = false
		}
	}
	return string(out)
}
