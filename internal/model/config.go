package model

import "time"

// Config is the full pipeline configuration. Built once at startup from
// flags, environment, and the optional config file; passed into each
// component's constructor.
type Config struct {
	Oracle    OracleConfig    `yaml:"oracle"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Index     IndexConfig     `yaml:"index"`
	Verify    VerifyConfig    `yaml:"verify"`
	Output    OutputConfig    `yaml:"output"`
}

// OracleConfig controls the verdict oracle (an OpenAI-compatible
// chat-completions endpoint).
type OracleConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"` // Stage-1 baseline temperature
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	Attempts    int           `yaml:"attempts"` // bounded retry per call
}

// RetrievalConfig controls external evidence retrieval.
type RetrievalConfig struct {
	NCBIEmail       string        `yaml:"ncbi_email"`
	NCBIAPIKey      string        `yaml:"ncbi_api_key"`
	PubMedBaseURL   string        `yaml:"pubmed_base_url"`
	TavilyAPIKey    string        `yaml:"tavily_api_key"`
	TavilyEndpoint  string        `yaml:"tavily_endpoint"`
	MaxEvidenceDocs int           `yaml:"max_evidence_docs"`
	LocalTopK       int           `yaml:"local_top_k"`
	Timeout         time.Duration `yaml:"timeout"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	RateBurst       int           `yaml:"rate_burst"`
	CacheDir        string        `yaml:"cache_dir"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	ExpandSnippets  bool          `yaml:"expand_snippets"` // robots-gated page fetch
	UserAgent       string        `yaml:"user_agent"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// IndexConfig controls the local TF-IDF context index.
type IndexConfig struct {
	ChunkSize    int `yaml:"chunk_size"`    // words per chunk
	ChunkOverlap int `yaml:"chunk_overlap"` // overlapping words between chunks
}

// VerifyConfig controls Stage-2 multi-pass verification.
type VerifyConfig struct {
	NumPasses   int     `yaml:"num_passes"`
	Temperature float64 `yaml:"temperature"` // higher than Stage 1 to diversify reasoning
	PassWorkers int     `yaml:"pass_workers"`
}

// OutputConfig controls where run artifacts land.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Verbose bool   `yaml:"verbose"`
}

// DefaultConfig returns the defaults the reference pipeline ships with.
func DefaultConfig() Config {
	return Config{
		Oracle: OracleConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   4096,
			Timeout:     60 * time.Second,
			Attempts:    3,
		},
		Retrieval: RetrievalConfig{
			PubMedBaseURL:   "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			TavilyEndpoint:  "https://api.tavily.com/search",
			MaxEvidenceDocs: 8,
			LocalTopK:       3,
			Timeout:         20 * time.Second,
			RatePerSecond:   2,
			RateBurst:       5,
			CacheTTL:        24 * time.Hour,
			UserAgent:       "Verifact/0.1 (+https://github.com/mlebedev/verifact)",
			MaxBodyBytes:    2_000_000,
		},
		Index: IndexConfig{
			ChunkSize:    500,
			ChunkOverlap: 100,
		},
		Verify: VerifyConfig{
			NumPasses:   5,
			Temperature: 0.55,
			PassWorkers: 1,
		},
		Output: OutputConfig{
			Dir: "output",
		},
	}
}
