package retrieve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mlebedev/verifact/internal/logging"
	"github.com/mlebedev/verifact/internal/model"
)

const maxExpandedSnippet = 1500 // characters kept from a fetched page

// Expander enriches a web evidence document by fetching its page and
// extracting readable text, honoring robots.txt and the shared limiter.
type Expander struct {
	httpClient *http.Client
	robots     *RobotsChecker
	limiter    *Limiter
	userAgent  string
	maxBytes   int64
}

// NewExpander creates an expander with the given fetch limits.
func NewExpander(timeout time.Duration, userAgent string, maxBytes int64, limiter *Limiter) *Expander {
	return &Expander{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		robots:    NewRobotsChecker(userAgent, timeout),
		limiter:   limiter,
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Expand replaces a short snippet with page text when the page allows it.
// Failure leaves the document unchanged; expansion is best-effort.
func (e *Expander) Expand(ctx context.Context, doc model.EvidenceDocument) model.EvidenceDocument {
	if doc.URL == "" || len(doc.Snippet) >= maxExpandedSnippet {
		return doc
	}

	allowed, err := e.robots.CanFetch(ctx, doc.URL)
	if err != nil || !allowed {
		return doc
	}
	if err := e.limiter.Wait(ctx, doc.URL); err != nil {
		return doc
	}

	text, err := e.fetchText(ctx, doc.URL)
	if err != nil {
		logging.L().Debugf("snippet expansion failed for %s: %v", doc.URL, err)
		return doc
	}
	if len(text) > len(doc.Snippet) {
		doc.Snippet = text
	}
	return doc
}

func (e *Expander) fetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	text := ExtractText(string(body))
	if len(text) > maxExpandedSnippet {
		text = text[:maxExpandedSnippet]
	}
	return text, nil
}

// ExtractText strips tags from an HTML document, skipping script and
// style content.
func ExtractText(htmlSrc string) string {
	doc, err := html.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}
