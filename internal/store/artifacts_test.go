package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlebedev/verifact/internal/model"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func TestPaths_Layout(t *testing.T) {
	p := NewPaths("out")

	cases := map[string]string{
		p.Assertions(1):    filepath.Join("out", "assertions_run1.json"),
		p.Stage1Results(2): filepath.Join("out", "fact_check_results_run2.json"),
		p.EvidenceStore():  filepath.Join("out", "evidence_store.json"),
		p.RawPasses():      filepath.Join("out", "verification_raw_passes.json"),
		p.Aggregated():     filepath.Join("out", "verification_aggregated.json"),
		p.FinalJSON():      filepath.Join("out", "final_results.json"),
		p.FinalCSV():       filepath.Join("out", "final_results.csv"),
		p.FlaggedJSON():    filepath.Join("out", "master_flagged_assertions.json"),
		p.FlaggedCSV():     filepath.Join("out", "master_flagged_assertions.csv"),
		p.Summary():        filepath.Join("out", "final_summary.txt"),
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	}
}

func TestNewPaths_DefaultDir(t *testing.T) {
	if p := NewPaths(""); p.Dir != "output" {
		t.Errorf("default dir = %q, want output", p.Dir)
	}
}

func TestDiscoverRuns(t *testing.T) {
	dir := t.TempDir()
	p := NewPaths(dir)

	for _, name := range []string{
		"fact_check_results_run3.json",
		"fact_check_results_run1.json",
		"fact_check_results_run10.json",
		"fact_check_results_runX.json", // non-numeric, ignored
		"assertions_run1.json",         // different artifact, ignored
	} {
		if err := writeFile(filepath.Join(dir, name), "[]"); err != nil {
			t.Fatal(err)
		}
	}

	runs := p.DiscoverRuns()
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %v", runs)
	}
	for i, want := range []int{1, 3, 10} {
		if runs[i] != want {
			t.Errorf("runs[%d] = %d, want %d (ascending order)", i, runs[i], want)
		}
	}
}

func TestDiscoverRuns_EmptyDir(t *testing.T) {
	p := NewPaths(t.TempDir())
	if runs := p.DiscoverRuns(); len(runs) != 0 {
		t.Errorf("expected no runs, got %v", runs)
	}
}

func TestSaveLoadJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verdicts.json")

	in := []model.VerdictRecord{
		{AssertionID: 0, Label: model.LabelSupported, Reasoning: "ok", Confidence: 0.9, RunID: 1, PassID: 1},
		{AssertionID: 1, Label: model.LabelRefuted, Confidence: 0.7, RunID: 1, PassID: 2},
	}
	if err := SaveJSON(path, in); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}

	var out []model.VerdictRecord
	if err := LoadJSON(path, &out); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestLoadJSON_MissingFile(t *testing.T) {
	var out []model.VerdictRecord
	if err := LoadJSON(filepath.Join(t.TempDir(), "absent.json"), &out); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteFinalCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final.csv")

	records := []model.FinalRecord{
		{
			AssertionID:    0,
			Text:           "claim with, comma",
			InitialLabel:   model.LabelSupported,
			MajorityLabel:  model.LabelSupported,
			AgreementRatio: 0.8,
			MeanConfidence: 0.85,
			NumSupported:   4,
			NumRefuted:     1,
			FinalDecision:  model.DecisionSupported,
		},
	}
	if err := WriteFinalCSV(path, records); err != nil {
		t.Fatalf("WriteFinalCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "index" || rows[0][10] != "final_decision" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "claim with, comma" {
		t.Errorf("comma in text not preserved: %q", rows[1][1])
	}
	if rows[1][5] != "0.8" || rows[1][10] != "Supported" {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestWriteFlaggedCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagged.csv")

	records := []model.FlaggedRecord{
		{
			AssertionID:   3,
			Text:          "dubious claim",
			InitialLabel:  model.LabelRefuted,
			MajorityLabel: model.LabelUncertain,
			FinalDecision: model.DecisionNeedsReview,
			RunID:         2,
		},
	}
	if err := WriteFlaggedCSV(path, records); err != nil {
		t.Fatalf("WriteFlaggedCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	want := []string{"3", "dubious claim", "Refuted", "Uncertain", "Needs Review", "2"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("column %d = %q, want %q", i, rows[1][i], cell)
		}
	}
}
