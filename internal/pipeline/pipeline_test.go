package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mlebedev/verifact/internal/model"
	"github.com/mlebedev/verifact/internal/oracle"
	"github.com/mlebedev/verifact/internal/store"
)

// scriptedOracle extracts two fixed assertions, supports the first one on
// every pass, and cycles the second through a disagreeing verdict sequence.
type scriptedOracle struct {
	mu     sync.Mutex
	passes int
	script []model.Label
}

func (s *scriptedOracle) Extract(ctx context.Context, chapterName, content string) ([]model.Assertion, error) {
	return []model.Assertion{
		{ID: 0, Text: "Aspirin inhibits cyclooxygenase enzymes.", Position: 1},
		{ID: 1, Text: "All fevers respond to aspirin.", Position: 2},
	}, nil
}

func (s *scriptedOracle) Judge(ctx context.Context, assertion string, docs []model.EvidenceDocument, temperature float64) (oracle.Verdict, error) {
	if strings.HasPrefix(assertion, "All fevers") {
		return oracle.Verdict{Label: model.LabelRefuted, Reasoning: "overgeneralized", Confidence: 0.7}, nil
	}
	return oracle.Verdict{Label: model.LabelSupported, Reasoning: "well established", Confidence: 0.9}, nil
}

func (s *scriptedOracle) JudgeBatch(ctx context.Context, items []oracle.BatchItem, temperature float64) ([]oracle.IndexedVerdict, error) {
	s.mu.Lock()
	label := s.script[s.passes%len(s.script)]
	s.passes++
	s.mu.Unlock()

	verdicts := make([]oracle.IndexedVerdict, 0, len(items))
	for _, item := range items {
		v := oracle.Verdict{Label: model.LabelSupported, Reasoning: "stable", Confidence: 0.9}
		if item.ID == 1 {
			v = oracle.Verdict{Label: label, Reasoning: "varies", Confidence: 0.5}
		}
		verdicts = append(verdicts, oracle.IndexedVerdict{ID: item.ID, Verdict: v})
	}
	return verdicts, nil
}

func quietRetrievalServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/esearch.fcgi" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"esearchresult": map[string]any{"idlist": []string{}},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func testPipeline(t *testing.T, o oracle.Oracle, retrievalURL string) *Pipeline {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Retrieval.PubMedBaseURL = retrievalURL
	cfg.Retrieval.RatePerSecond = 100
	cfg.Retrieval.RateBurst = 100
	cfg.Retrieval.Timeout = 5 * time.Second
	return NewWithOracle(cfg, o)
}

func writeChapter(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chapter.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPipeline_FullRun(t *testing.T) {
	server := quietRetrievalServer(t)
	defer server.Close()

	o := &scriptedOracle{script: []model.Label{
		model.LabelSupported, model.LabelRefuted, model.LabelUncertain,
		model.LabelSupported, model.LabelRefuted,
	}}
	p := testPipeline(t, o, server.URL)
	chapter := writeChapter(t, strings.Repeat("Aspirin is a widely used analgesic and antipyretic drug. ", 30))

	if err := p.Run(context.Background(), chapter, 5); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Final results: assertion 0 decisive, assertion 1 sent to review.
	var final []model.FinalRecord
	if err := store.LoadJSON(p.Paths().FinalJSON(), &final); err != nil {
		t.Fatalf("load final results: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("expected 2 final records, got %d", len(final))
	}

	if final[0].FinalDecision != model.DecisionSupported {
		t.Errorf("assertion 0: decision = %s, want Supported", final[0].FinalDecision)
	}
	if final[0].AgreementRatio != 1.0 || final[0].MeanConfidence != 0.9 {
		t.Errorf("assertion 0: agreement/confidence = %v/%v, want 1/0.9",
			final[0].AgreementRatio, final[0].MeanConfidence)
	}

	// 2-2-1 split: majority ties to Uncertain, so the decision is review.
	if final[1].MajorityLabel != model.LabelUncertain {
		t.Errorf("assertion 1: majority = %s, want Uncertain", final[1].MajorityLabel)
	}
	if final[1].FinalDecision != model.DecisionNeedsReview {
		t.Errorf("assertion 1: decision = %s, want Needs Review", final[1].FinalDecision)
	}

	// Raw passes: 2 assertions x 5 passes.
	var raw []model.VerdictRecord
	if err := store.LoadJSON(p.Paths().RawPasses(), &raw); err != nil {
		t.Fatalf("load raw passes: %v", err)
	}
	if len(raw) != 10 {
		t.Errorf("expected 10 raw verdicts, got %d", len(raw))
	}

	// Evidence store round-trips.
	ev, err := store.LoadEvidenceStore(p.Paths().EvidenceStore())
	if err != nil {
		t.Fatalf("load evidence store: %v", err)
	}
	if ev.Len() != 2 {
		t.Errorf("evidence store holds %d entries, want 2", ev.Len())
	}

	// Summary file exists with totals.
	summary, err := os.ReadFile(p.Paths().Summary())
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(summary), "Total assertions analyzed: 2") {
		t.Errorf("summary missing totals:\n%s", summary)
	}

	// The merge inside Run happens before Stage 2, so no aggregates exist
	// yet and every assertion defaults to Needs Review.
	var flagged []model.FlaggedRecord
	if err := store.LoadJSON(p.Paths().FlaggedJSON(), &flagged); err != nil {
		t.Fatalf("load flagged: %v", err)
	}
	if len(flagged) != 2 {
		t.Errorf("expected both assertions flagged before aggregates exist, got %+v", flagged)
	}

	// Re-merging after Stage 2 narrows the list to the refuted assertion.
	if err := p.MergeFlagged(); err != nil {
		t.Fatalf("MergeFlagged: %v", err)
	}
	if err := store.LoadJSON(p.Paths().FlaggedJSON(), &flagged); err != nil {
		t.Fatalf("reload flagged: %v", err)
	}
	if len(flagged) != 1 || flagged[0].AssertionID != 1 {
		t.Errorf("expected only assertion 1 flagged after aggregation, got %+v", flagged)
	}
	if flagged[0].InitialLabel != model.LabelRefuted {
		t.Errorf("flagged initial label = %s, want Refuted", flagged[0].InitialLabel)
	}
}

func TestPipeline_Stage2RequiresStage1Artifacts(t *testing.T) {
	p := testPipeline(t, &scriptedOracle{script: []model.Label{model.LabelSupported}}, "http://invalid.localhost")
	if err := p.Stage2(context.Background(), 5); err == nil {
		t.Fatal("expected error when stage 1 artifacts are missing")
	}
}

func TestPipeline_MergeFlaggedRequiresRuns(t *testing.T) {
	p := testPipeline(t, &scriptedOracle{script: []model.Label{model.LabelSupported}}, "http://invalid.localhost")
	if err := p.MergeFlagged(); err == nil {
		t.Fatal("expected error when no stage 1 runs exist")
	}
}

func TestPipeline_FinalSummaryRequiresArtifacts(t *testing.T) {
	p := testPipeline(t, &scriptedOracle{script: []model.Label{model.LabelSupported}}, "http://invalid.localhost")
	if err := p.FinalSummary(); err == nil {
		t.Fatal("expected error when upstream artifacts are missing")
	}
}

func TestReadChapter_PlainText(t *testing.T) {
	path := writeChapter(t, "The heart has four chambers.")
	text, err := readChapter(path)
	if err != nil {
		t.Fatalf("readChapter: %v", err)
	}
	if text != "The heart has four chambers." {
		t.Errorf("text = %q", text)
	}
}

func TestReadChapter_HTMLStripped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.html")
	src := "<html><body><h1>Anatomy</h1><p>The heart has four chambers.</p><script>x()</script></body></html>"
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	text, err := readChapter(path)
	if err != nil {
		t.Fatalf("readChapter: %v", err)
	}
	if strings.Contains(text, "<p>") || strings.Contains(text, "x()") {
		t.Errorf("html not stripped: %q", text)
	}
	if !strings.Contains(text, "four chambers") {
		t.Errorf("visible text lost: %q", text)
	}
}

func TestReadChapter_Missing(t *testing.T) {
	if _, err := readChapter(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing chapter")
	}
}

func TestReadChapter_Empty(t *testing.T) {
	path := writeChapter(t, "   \n ")
	if _, err := readChapter(path); err == nil {
		t.Fatal("expected error for empty chapter")
	}
}
