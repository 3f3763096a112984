package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mlebedev/verifact/internal/model"
)

// Paths resolves every artifact file under one output directory.
type Paths struct {
	Dir string
}

// NewPaths creates the artifact layout rooted at dir.
func NewPaths(dir string) Paths {
	if dir == "" {
		dir = "output"
	}
	return Paths{Dir: dir}
}

// EnsureDir creates the output directory.
func (p Paths) EnsureDir() error {
	return os.MkdirAll(p.Dir, 0755)
}

func (p Paths) Assertions(runID int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("assertions_run%d.json", runID))
}

func (p Paths) Stage1Results(runID int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("fact_check_results_run%d.json", runID))
}

func (p Paths) EvidenceStore() string {
	return filepath.Join(p.Dir, "evidence_store.json")
}

func (p Paths) RawPasses() string {
	return filepath.Join(p.Dir, "verification_raw_passes.json")
}

func (p Paths) Aggregated() string {
	return filepath.Join(p.Dir, "verification_aggregated.json")
}

func (p Paths) FinalJSON() string { return filepath.Join(p.Dir, "final_results.json") }
func (p Paths) FinalCSV() string  { return filepath.Join(p.Dir, "final_results.csv") }

func (p Paths) FlaggedJSON() string {
	return filepath.Join(p.Dir, "master_flagged_assertions.json")
}

func (p Paths) FlaggedCSV() string {
	return filepath.Join(p.Dir, "master_flagged_assertions.csv")
}

func (p Paths) Summary() string { return filepath.Join(p.Dir, "final_summary.txt") }

// DiscoverRuns finds the run ids of all Stage-1 result files present.
func (p Paths) DiscoverRuns() []int {
	matches, err := filepath.Glob(filepath.Join(p.Dir, "fact_check_results_run*.json"))
	if err != nil {
		return nil
	}

	seen := make(map[int]bool)
	var runs []int
	for _, path := range matches {
		name := filepath.Base(path)
		name = strings.TrimPrefix(name, "fact_check_results_run")
		name = strings.TrimSuffix(name, ".json")
		id, err := strconv.Atoi(name)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		runs = append(runs, id)
	}
	sort.Ints(runs)
	return runs
}

// SaveJSON writes v as indented JSON.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadJSON reads path into v. Missing files are returned as errors so the
// caller can treat them as fatal preconditions.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteFinalCSV mirrors the final results to CSV.
func WriteFinalCSV(path string, records []model.FinalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"index", "assertion", "initial_verdict", "initial_confidence",
		"majority_verdict", "agreement_ratio", "mean_confidence",
		"num_supported", "num_refuted", "num_uncertain", "final_decision",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.AssertionID),
			r.Text,
			string(r.InitialLabel),
			formatFloat(r.InitialConfidence),
			string(r.MajorityLabel),
			formatFloat(r.AgreementRatio),
			formatFloat(r.MeanConfidence),
			strconv.Itoa(r.NumSupported),
			strconv.Itoa(r.NumRefuted),
			strconv.Itoa(r.NumUncertain),
			string(r.FinalDecision),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteFlaggedCSV mirrors the flagged list to CSV.
func WriteFlaggedCSV(path string, records []model.FlaggedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"index", "original_statement", "initial_verdict", "stage2_majority", "final_decision", "run_id"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.AssertionID),
			r.Text,
			string(r.InitialLabel),
			string(r.MajorityLabel),
			string(r.FinalDecision),
			strconv.Itoa(r.RunID),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
