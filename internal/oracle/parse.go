package oracle

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mlebedev/verifact/internal/model"
)

// stripFences removes a markdown code fence if the oracle wrapped its JSON
// in one despite instructions.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseVerdict decodes a single verdict object. Returns ok=false when the
// payload is not a JSON object; missing fields get defaults (Uncertain, 0.0).
func parseVerdict(raw string) (Verdict, bool) {
	cleaned := stripFences(raw)
	if !gjson.Valid(cleaned) {
		return Verdict{}, false
	}
	root := gjson.Parse(cleaned)
	if !root.IsObject() {
		return Verdict{}, false
	}

	return Verdict{
		Label:      model.ParseLabel(root.Get("final_verdict").String()),
		Reasoning:  root.Get("reasoning").String(),
		Confidence: clampConfidence(root.Get("confidence").Float()),
	}, true
}

// parseVerdictArray decodes a batch response. The payload must be a JSON
// array; individual corrupt items (missing index) are dropped so that one
// bad element never costs the whole pass.
func parseVerdictArray(raw string) ([]IndexedVerdict, error) {
	cleaned := stripFences(raw)
	if !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("batch response is not valid JSON")
	}
	root := gjson.Parse(cleaned)
	if !root.IsArray() {
		return nil, fmt.Errorf("batch response is not a JSON array")
	}

	var verdicts []IndexedVerdict
	root.ForEach(func(_, item gjson.Result) bool {
		idx := item.Get("index")
		if !item.IsObject() || !idx.Exists() {
			return true // skip corrupt item
		}
		verdicts = append(verdicts, IndexedVerdict{
			ID: int(idx.Int()),
			Verdict: Verdict{
				Label:      model.ParseLabel(item.Get("final_verdict").String()),
				Reasoning:  item.Get("reasoning").String(),
				Confidence: clampConfidence(item.Get("confidence").Float()),
			},
		})
		return true
	})
	return verdicts, nil
}

// parseAssertions decodes the extraction response into assertions,
// dropping items without a statement.
func parseAssertions(raw string) ([]model.Assertion, error) {
	cleaned := stripFences(raw)
	if !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("extraction response is not valid JSON")
	}
	root := gjson.Parse(cleaned)
	if !root.IsArray() {
		return nil, fmt.Errorf("extraction response is not a JSON array")
	}

	var assertions []model.Assertion
	i := 0
	root.ForEach(func(_, item gjson.Result) bool {
		stmt := item.Get("original_statement").String()
		if stmt == "" {
			stmt = item.Get("statement").String()
		}
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			return true
		}
		position := i
		if n := item.Get("sentence_number"); n.Exists() {
			position = int(n.Int())
		}
		assertions = append(assertions, model.Assertion{
			ID:       i,
			Text:     stmt,
			Section:  item.Get("section").String(),
			Position: position,
		})
		i++
		return true
	})
	return assertions, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
