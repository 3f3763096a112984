// Package index provides a lightweight TF-IDF similarity index over the
// chapter text. It is single-document, rebuilt each Stage-1 run, and never
// persisted: its only job is to surface in-chapter context passages for an
// assertion.
package index

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/mlebedev/verifact/internal/logging"
)

// Chunk is one sliding-window slice of the chapter.
type Chunk struct {
	Text        string
	SourceTitle string
	StartWord   int
	EndWord     int
}

// Passage is a retrieval hit: a chunk plus its similarity score.
type Passage struct {
	Text        string  `json:"text"`
	SourceTitle string  `json:"source_title"`
	Score       float64 `json:"score"`
}

// Index is a TF-IDF (unigram + bigram) index over fixed-size word chunks.
type Index struct {
	chunkSize    int
	chunkOverlap int

	chunks  []Chunk
	df      map[string]int
	vectors []map[string]float64
}

// New creates an index with the given chunking parameters. Chunk size is
// in words; overlap is clamped below the chunk size.
func New(chunkSize, chunkOverlap int) *Index {
	if chunkSize < 50 {
		chunkSize = 50
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Index{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Build chunks the text and computes TF-IDF vectors for every chunk.
func (ix *Index) Build(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		logging.L().Error("index: empty text, index not built")
		return
	}

	ix.chunks = chunkText(text, ix.chunkSize, ix.chunkOverlap)
	if len(ix.chunks) == 0 {
		return
	}

	// Document frequencies over all chunks.
	ix.df = make(map[string]int)
	termSets := make([]map[string]int, len(ix.chunks))
	for i, c := range ix.chunks {
		counts := termCounts(c.Text)
		termSets[i] = counts
		for term := range counts {
			ix.df[term]++
		}
	}

	ix.vectors = make([]map[string]float64, len(ix.chunks))
	for i, counts := range termSets {
		ix.vectors[i] = ix.vectorize(counts)
	}

	logging.L().Infof("index: built TF-IDF index over %d chunks", len(ix.chunks))
}

// Built reports whether Build produced a usable index.
func (ix *Index) Built() bool {
	return len(ix.vectors) > 0
}

// Search returns the top-k chunks by cosine similarity to the query.
func (ix *Index) Search(query string, k int) []Passage {
	if !ix.Built() {
		return nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	if k < 1 {
		k = 1
	}

	qvec := ix.vectorize(termCounts(query))

	type scored struct {
		idx   int
		score float64
	}
	hits := make([]scored, 0, len(ix.vectors))
	for i, vec := range ix.vectors {
		hits = append(hits, scored{idx: i, score: dot(qvec, vec)})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if k > len(hits) {
		k = len(hits)
	}
	passages := make([]Passage, 0, k)
	for _, h := range hits[:k] {
		passages = append(passages, Passage{
			Text:        ix.chunks[h.idx].Text,
			SourceTitle: ix.chunks[h.idx].SourceTitle,
			Score:       h.score,
		})
	}
	return passages
}

// vectorize builds an L2-normalized TF-IDF vector with smoothed IDF.
func (ix *Index) vectorize(counts map[string]int) map[string]float64 {
	n := float64(len(ix.chunks))
	vec := make(map[string]float64, len(counts))
	var norm float64
	for term, count := range counts {
		idf := math.Log((1+n)/(1+float64(ix.df[term]))) + 1
		w := float64(count) * idf
		vec[term] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for term := range vec {
			vec[term] /= norm
		}
	}
	return vec
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, w := range a {
		sum += w * b[term]
	}
	return sum
}

// termCounts tokenizes into lowercase words and emits unigram + bigram
// counts.
func termCounts(text string) map[string]int {
	words := tokenize(text)
	counts := make(map[string]int, len(words)*2)
	for i, w := range words {
		counts[w]++
		if i > 0 {
			counts[words[i-1]+" "+w]++
		}
	}
	return counts
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// chunkText slides a fixed-size word window over the text.
func chunkText(text string, size, overlap int) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []Chunk
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			Text:        strings.Join(words[start:end], " "),
			SourceTitle: "Chapter",
			StartWord:   start,
			EndWord:     end,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
