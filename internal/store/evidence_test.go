package store

import (
	"path/filepath"
	"testing"

	"github.com/mlebedev/verifact/internal/model"
)

func sampleDocs() []model.EvidenceDocument {
	return []model.EvidenceDocument{
		{
			Title:   "Aspirin pharmacology",
			URL:     "https://pubmed.ncbi.nlm.nih.gov/12345/",
			Snippet: "Aspirin irreversibly acetylates COX-1.",
			Source:  model.SourceLiterature,
			Metadata: map[string]string{
				"pmid": "12345",
			},
		},
		{
			Title:   "NSAID overview",
			URL:     "https://example.com/nsaids",
			Snippet: "Overview of non-steroidal anti-inflammatory drugs.",
			Source:  model.SourceWeb,
		},
	}
}

func TestEvidenceStore_PutFirstWriteWins(t *testing.T) {
	s := NewEvidenceStore()
	s.Put(0, "aspirin claim", sampleDocs())
	s.Put(0, "overwrite attempt", []model.EvidenceDocument{{Title: "other"}})

	docs := s.Get(0)
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs from the first Put, got %d", len(docs))
	}
	if docs[0].Title != "Aspirin pharmacology" {
		t.Errorf("second Put overwrote the entry: %q", docs[0].Title)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestEvidenceStore_GetReturnsCopy(t *testing.T) {
	s := NewEvidenceStore()
	s.Put(0, "claim", sampleDocs())

	docs := s.Get(0)
	docs[0].Title = "mutated"

	if again := s.Get(0); again[0].Title != "Aspirin pharmacology" {
		t.Errorf("caller mutation leaked into the store: %q", again[0].Title)
	}
}

func TestEvidenceStore_GetMissing(t *testing.T) {
	s := NewEvidenceStore()
	if docs := s.Get(42); docs != nil {
		t.Errorf("expected nil for missing id, got %d docs", len(docs))
	}
}

func TestEvidenceStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evidence_store.json")

	s := NewEvidenceStore()
	s.Put(0, "claim zero", sampleDocs())
	s.Put(7, "claim seven", sampleDocs()[:1])

	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadEvidenceStore(path)
	if err != nil {
		t.Fatalf("LoadEvidenceStore: %v", err)
	}

	if got := loaded.IDs(); len(got) != 2 || got[0] != 0 || got[1] != 7 {
		t.Fatalf("loaded ids = %v, want [0 7]", got)
	}
	docs := loaded.Get(0)
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs for id 0, got %d", len(docs))
	}
	if docs[0].Source != model.SourceLiterature || docs[0].Metadata["pmid"] != "12345" {
		t.Errorf("doc fields lost in round trip: %+v", docs[0])
	}
}

func TestLoadEvidenceStore_MissingFile(t *testing.T) {
	if _, err := LoadEvidenceStore(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEvidenceStore_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := writeFile(path, "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadEvidenceStore(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadEvidenceStore_NonNumericKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	if err := writeFile(path, `{"abc": {"assertion": "x", "evidence_docs": []}}`); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadEvidenceStore(path); err == nil {
		t.Fatal("expected error for non-numeric assertion id key")
	}
}
