package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/model"
)

// searchPubMed runs an esearch + efetch round-trip against the NCBI
// E-utilities and parses the MEDLINE records into evidence documents.
func (r *Retriever) searchPubMed(ctx context.Context, query string, maxResults int) ([]model.EvidenceDocument, error) {
	ids, err := r.pubMedSearch(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}
	if len(ids) == 0 {
		logging.L().Debug("pubmed returned no results")
		return nil, nil
	}

	medline, err := r.pubMedFetch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("pubmed efetch: %w", err)
	}

	docs := parseMedline(medline)
	logging.L().Debugf("pubmed returned %d candidate docs", len(docs))
	return docs, nil
}

func (r *Retriever) pubMedSearch(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", fmt.Sprintf("%d", maxResults))
	params.Set("sort", "relevance")
	params.Set("retmode", "json")
	if r.cfg.NCBIEmail != "" {
		params.Set("email", r.cfg.NCBIEmail)
	}
	if r.cfg.NCBIAPIKey != "" {
		params.Set("api_key", r.cfg.NCBIAPIKey)
	}

	endpoint := r.cfg.PubMedBaseURL + "/esearch.fcgi?" + params.Encode()
	body, err := r.get(ctx, "pubmed-esearch", endpoint)
	if err != nil {
		return nil, err
	}

	var result struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode esearch response: %w", err)
	}
	return result.ESearchResult.IDList, nil
}

func (r *Retriever) pubMedFetch(ctx context.Context, ids []string) (string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("rettype", "medline")
	params.Set("retmode", "text")
	if r.cfg.NCBIEmail != "" {
		params.Set("email", r.cfg.NCBIEmail)
	}
	if r.cfg.NCBIAPIKey != "" {
		params.Set("api_key", r.cfg.NCBIAPIKey)
	}

	endpoint := r.cfg.PubMedBaseURL + "/efetch.fcgi?" + params.Encode()
	body, err := r.get(ctx, "pubmed-efetch", endpoint)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// parseMedline extracts PMID, title (TI), and abstract (AB) from MEDLINE
// text records separated by blank lines.
func parseMedline(medline string) []model.EvidenceDocument {
	var docs []model.EvidenceDocument

	for _, entry := range strings.Split(strings.TrimSpace(medline), "\n\n") {
		var pmid string
		var titleParts, abstractParts []string

		for _, line := range strings.Split(entry, "\n") {
			switch {
			case strings.HasPrefix(line, "PMID- "):
				pmid = strings.TrimSpace(line[len("PMID- "):])
			case strings.HasPrefix(line, "TI  - "):
				titleParts = append(titleParts, strings.TrimSpace(line[len("TI  - "):]))
			case strings.HasPrefix(line, "AB  - "):
				abstractParts = append(abstractParts, strings.TrimSpace(line[len("AB  - "):]))
			case strings.HasPrefix(line, "      "):
				// continuation of the previous field
				if len(abstractParts) > 0 {
					abstractParts = append(abstractParts, strings.TrimSpace(line))
				} else if len(titleParts) > 0 {
					titleParts = append(titleParts, strings.TrimSpace(line))
				}
			}
		}

		title := strings.Join(titleParts, " ")
		abstract := strings.Join(abstractParts, " ")
		if title == "" && abstract == "" {
			continue
		}

		var docURL string
		if pmid != "" {
			docURL = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
		}
		snippet := abstract
		if snippet == "" {
			snippet = title
		}
		if title == "" {
			title = "PubMed article"
		}

		docs = append(docs, model.EvidenceDocument{
			Title:    title,
			URL:      docURL,
			Snippet:  snippet,
			Source:   model.SourceLiterature,
			Metadata: map[string]string{"pmid": pmid},
		})
	}
	return docs
}

func (r *Retriever) get(ctx context.Context, provider, endpoint string) ([]byte, error) {
	key := CacheKey(provider, endpoint)
	if cached, found := r.cache.Get(key); found {
		return cached, nil
	}

	if err := r.limiter.Wait(ctx, endpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := readBounded(resp.Body, r.cfg.MaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	_ = r.cache.Set(key, body, r.cfg.CacheTTL)
	return body, nil
}
