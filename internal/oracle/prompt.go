package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlebedev/verifact/internal/model"
)

// buildExtractionPrompt asks the oracle for a strict JSON array of
// checkable factual assertions found in the chapter.
func buildExtractionPrompt(chapterName, content string) string {
	if chapterName == "" {
		chapterName = "Chapter"
	}

	return strings.TrimSpace(fmt.Sprintf(`You are a meticulous scientific assistant.

Read the following chapter and extract concise factual assertions that can be
objectively checked against the biomedical and scientific literature.

The chapter is called: %q

---------------- CHAPTER START ----------------
%s
----------------- CHAPTER END -----------------

INSTRUCTIONS:

1. Identify individual factual statements that are specific enough to be
   verified or refuted, and primarily scientific, biomedical, or technical.
2. Make each assertion self-contained: someone reading only that sentence
   should understand what is being claimed. Avoid vague qualitative claims.
3. Output a strict JSON array ONLY. No prose, no markdown, no extra keys.
   Each element MUST have exactly these keys:
     "index": integer, 0-based and contiguous
     "original_statement": string, the concise factual assertion
     "section": string or null, a coarse section label if inferable
     "sentence_number": integer, approximate sentence position

Now produce the JSON array of assertions.`, chapterName, content))
}

// buildFactCheckPrompt asks the oracle to judge one assertion against the
// provided evidence, returning a single strict JSON object.
func buildFactCheckPrompt(assertion string, docs []model.EvidenceDocument) string {
	var evidence strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&evidence, "DOCUMENT %d:\n  Source: %s\n  Title: %s\n  URL: %s\n  Snippet: %s\n\n",
			i+1, doc.Source, doc.Title, doc.URL, doc.Snippet)
	}
	if len(docs) == 0 {
		evidence.WriteString("(no evidence documents retrieved)\n")
	}

	return strings.TrimSpace(fmt.Sprintf(`You are a rigorous scientific fact-checking system.

Evaluate the following assertion using ONLY the evidence documents below.

---------------- ASSERTION TO CHECK ----------------
%s
----------------- EVIDENCE DOCUMENTS ----------------
%s----------------- END OF EVIDENCE -------------------

Determine whether the assertion is:
  "Supported": evidence consistently and directly supports it.
  "Refuted":   evidence contradicts it or shows it is false.
  "Uncertain": evidence is mixed, weak, indirect, or insufficient.

Output a single strict JSON object ONLY, with exactly these keys:
  "final_verdict": "Supported" | "Refuted" | "Uncertain"
  "reasoning": string referencing the key evidence documents
  "confidence": number between 0.0 and 1.0

No prose, no markdown, no extra keys.`, assertion, evidence.String()))
}

// buildBatchPrompt embeds every assertion with its frozen evidence into a
// single prompt, expecting one JSON array back.
func buildBatchPrompt(items []BatchItem) string {
	payload, _ := json.MarshalIndent(items, "", "  ")

	return strings.TrimSpace(fmt.Sprintf(`You are a scientific fact-checking system.

You will receive an array of objects. Each contains:
- "index"
- "assertion"
- "evidence": list of evidence documents

For EACH item, output an object with EXACT keys:
- "index"
- "final_verdict": Supported | Refuted | Uncertain
- "reasoning"
- "confidence": number 0.0-1.0

Output MUST be a strict JSON array. No prose, no markdown.

INPUT ARRAY:
%s`, payload))
}
