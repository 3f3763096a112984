// Package store persists the pipeline's run artifacts: the evidence
// store built in Stage 1 and the per-stage JSON/CSV result files.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/mlebedev/verifact/internal/model"
)

// EvidenceStore maps assertion id to the evidence retrieved for it.
// Built once in Stage 1, read-only afterward: Put is first-write-wins and
// there is no update or delete. Pass-to-pass variance in Stage 2 must come
// only from the oracle, never from evidence drift.
type EvidenceStore struct {
	mu      sync.RWMutex
	entries map[int]evidenceEntry
}

type evidenceEntry struct {
	Assertion string                   `json:"assertion"`
	Docs      []model.EvidenceDocument `json:"evidence_docs"`
}

// NewEvidenceStore creates an empty store.
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{entries: make(map[int]evidenceEntry)}
}

// Put stores the evidence for an assertion. A second Put for the same id
// is ignored: evidence is immutable for the lifetime of a run.
func (s *EvidenceStore) Put(id int, assertion string, docs []model.EvidenceDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return
	}
	s.entries[id] = evidenceEntry{
		Assertion: assertion,
		Docs:      append([]model.EvidenceDocument(nil), docs...),
	}
}

// Get returns the stored evidence for an assertion, or an empty slice if
// absent.
func (s *EvidenceStore) Get(id int) []model.EvidenceDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil
	}
	return append([]model.EvidenceDocument(nil), entry.Docs...)
}

// Len returns the number of assertions with stored evidence.
func (s *EvidenceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Save persists the store as JSON. Assertion ids are serialized as string
// keys; that is a persistence-format detail only.
func (s *EvidenceStore) Save(path string) error {
	s.mu.RLock()
	out := make(map[string]evidenceEntry, len(s.entries))
	for id, entry := range s.entries {
		out[strconv.Itoa(id)] = entry
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal evidence store: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write evidence store: %w", err)
	}
	return nil
}

// LoadEvidenceStore reads a persisted store. A missing or unreadable file
// is a fatal precondition for the stages that depend on it.
func LoadEvidenceStore(path string) (*EvidenceStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evidence store: %w", err)
	}

	var raw map[string]evidenceEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse evidence store: %w", err)
	}

	s := NewEvidenceStore()
	for key, entry := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid assertion id %q in evidence store", key)
		}
		s.entries[id] = entry
	}
	return s, nil
}

// IDs returns the stored assertion ids in ascending order.
func (s *EvidenceStore) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
