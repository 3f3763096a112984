package model

// EvidenceSource classifies where an evidence document came from.
type EvidenceSource string

const (
	SourceLiterature EvidenceSource = "primary-literature" // PubMed and similar
	SourceWeb        EvidenceSource = "web"                // general web search
	SourceLocal      EvidenceSource = "local-context"      // in-chapter passages
)

// EvidenceDocument is one retrieved snippet offered as support or
// refutation for an assertion. Immutable once stored.
type EvidenceDocument struct {
	Title    string            `json:"title"`
	URL      string            `json:"url,omitempty"`
	Snippet  string            `json:"snippet"`
	Source   EvidenceSource    `json:"source"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DedupKey is the normalized (url, title) pair used to deduplicate
// documents within a retrieval call.
func (d EvidenceDocument) DedupKey() string {
	return normalize(d.URL) + "|" + normalize(d.Title)
}

func normalize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 32
		}
		out = append(out, r)
	}
	return string(out)
}
