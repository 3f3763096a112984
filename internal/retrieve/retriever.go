// Package retrieve fetches ranked external evidence for an assertion from
// the biomedical literature (PubMed) and the web (Tavily). Failures at any
// source are logged and treated as zero results; the pipeline continues
// with whatever evidence it has.
package retrieve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/model"
)

// Retriever is the external evidence search capability.
type Retriever struct {
	cfg        model.RetrievalConfig
	httpClient *http.Client
	cache      Cache
	limiter    *Limiter
	expander   *Expander
}

// NewRetriever creates a retriever from configuration.
func NewRetriever(cfg model.RetrievalConfig) *Retriever {
	if cfg.MaxEvidenceDocs <= 0 {
		cfg.MaxEvidenceDocs = 8
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	var cache Cache = NewMemoryCache(cfg.CacheTTL, 10*time.Minute)
	if cfg.CacheDir != "" {
		cache = NewLayeredCache(
			NewMemoryCache(cfg.CacheTTL, 10*time.Minute),
			NewDiskCache(filepath.Clean(cfg.CacheDir), cfg.CacheTTL),
		)
	}

	limiter := NewLimiter(cfg.RatePerSecond, cfg.RateBurst)
	// NCBI allows 3 req/s without an API key, 10 with one.
	if cfg.NCBIAPIKey == "" {
		limiter.SetDomainRate("eutils.ncbi.nlm.nih.gov", 3, 3)
	}

	r := &Retriever{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		limiter:    limiter,
	}
	if cfg.ExpandSnippets {
		r.expander = NewExpander(cfg.Timeout, cfg.UserAgent, cfg.MaxBodyBytes, limiter)
	}
	return r
}

// Search returns up to max deduplicated evidence documents for the query.
// PubMed is queried first; Tavily fills the remainder when configured.
func (r *Retriever) Search(ctx context.Context, query string, max int) []model.EvidenceDocument {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if max <= 0 || max > r.cfg.MaxEvidenceDocs {
		max = r.cfg.MaxEvidenceDocs
	}

	var all []model.EvidenceDocument

	pubmed, err := r.searchPubMed(ctx, query, max)
	if err != nil {
		logging.L().Errorf("pubmed retrieval failed: %v", err)
	}
	all = append(all, pubmed...)

	if len(all) < max && r.cfg.TavilyAPIKey != "" {
		web, err := r.searchTavily(ctx, query, max-len(all))
		if err != nil {
			logging.L().Errorf("tavily retrieval failed: %v", err)
		}
		all = append(all, web...)
	}

	docs := dedupe(all)
	if len(docs) > max {
		docs = docs[:max]
	}

	if r.expander != nil {
		for i, doc := range docs {
			if doc.Source == model.SourceWeb {
				docs[i] = r.expander.Expand(ctx, doc)
			}
		}
	}

	logging.L().Infof("retrieved %d evidence docs (max %d) for query: %.80s", len(docs), max, query)
	return docs
}

// dedupe drops documents sharing a normalized (url, title) pair,
// preserving order. Documents with neither url nor title are dropped.
func dedupe(docs []model.EvidenceDocument) []model.EvidenceDocument {
	seen := make(map[string]bool, len(docs))
	unique := make([]model.EvidenceDocument, 0, len(docs))
	for _, doc := range docs {
		key := doc.DedupKey()
		if key == "|" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, doc)
	}
	return unique
}

func readBounded(body io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	data, err := io.ReadAll(io.LimitReader(body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}
