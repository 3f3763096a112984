package retrieve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/model"
)

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Snippet     string `json:"snippet"`
	Description string `json:"description"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// searchTavily queries the Tavily web search API. Used as a secondary
// source after PubMed.
func (r *Retriever) searchTavily(ctx context.Context, query string, maxResults int) ([]model.EvidenceDocument, error) {
	if r.cfg.TavilyAPIKey == "" {
		return nil, nil
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:     r.cfg.TavilyAPIKey,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	key := CacheKey("tavily", query+"|"+fmt.Sprintf("%d", maxResults))
	body, found := r.cache.Get(key)
	if !found {
		if err := r.limiter.Wait(ctx, r.cfg.TavilyEndpoint); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.TavilyEndpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		body, err = readBounded(resp.Body, r.cfg.MaxBodyBytes)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		_ = r.cache.Set(key, body, r.cfg.CacheTTL)
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	docs := make([]model.EvidenceDocument, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		title := item.Title
		if title == "" {
			title = "Web result"
		}
		snippet := item.Content
		if snippet == "" {
			snippet = item.Snippet
		}
		if snippet == "" {
			snippet = item.Description
		}
		docs = append(docs, model.EvidenceDocument{
			Title:   title,
			URL:     item.URL,
			Snippet: snippet,
			Source:  model.SourceWeb,
		})
	}

	logging.L().Debugf("tavily returned %d candidate docs", len(docs))
	return docs, nil
}
