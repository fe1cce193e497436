package collaborator

import (
	"fmt"
	"strings"

	"github.com/mfgplan/allocator/pkg/feedback"
	"github.com/mfgplan/allocator/pkg/planning"
	"github.com/tidwall/gjson"
)

// ExtractAllocation scrapes an allocation and optional rationale out of
// untrusted collaborator text. It accepts either a document with an
// "allocation" object or a bare object mapping machine names to units,
// possibly embedded in surrounding prose or a fenced code block. The result
// is raw: callers run it through feasibility repair before pricing.
func ExtractAllocation(text string) (planning.Allocation, string, error) {
	doc := firstJSONObject(text)
	if doc == "" {
		return nil, "", fmt.Errorf("%w: no JSON object in proposal text", planning.ErrCollaboratorUnavailable)
	}

	parsed := gjson.Parse(doc)
	rationale := parsed.Get("rationale").String()
	if rationale == "" {
		rationale = parsed.Get("reasoning").String()
	}

	source := parsed.Get("allocation")
	if !source.Exists() {
		source = parsed.Get("machine_allocations")
	}
	if !source.Exists() {
		source = parsed
	}

	alloc := make(planning.Allocation)
	source.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			alloc[key.String()] = int(value.Int())
		}
		return true
	})
	if len(alloc) == 0 {
		return nil, "", fmt.Errorf("%w: proposal text carries no machine units", planning.ErrCollaboratorUnavailable)
	}
	return alloc, rationale, nil
}

// ExtractFeedback scrapes a feedback record out of untrusted reviewer text.
// Missing fields degrade to the safe default record rather than failing.
func ExtractFeedback(role, text string) feedback.Record {
	doc := firstJSONObject(text)
	if doc == "" {
		return feedback.DefaultRecord(role)
	}
	parsed := gjson.Parse(doc)

	record := feedback.Record{Role: role}
	record.Assessment = parsed.Get("assessment_rating").String()
	if record.Assessment == "" {
		record.Assessment = parsed.Get("assessment").String()
	}
	if record.Assessment == "" {
		return feedback.DefaultRecord(role)
	}
	record.Recommendations = stringList(parsed.Get("key_recommendations"), parsed.Get("recommendations"))
	record.Concerns = stringList(parsed.Get("concerns"))
	record.MathematicallyVerified = parsed.Get("mathematically_verified").Bool()
	record.AlternativesTested = parsed.Get("alternatives_tested").Bool()
	return record
}

func stringList(results ...gjson.Result) []string {
	for _, result := range results {
		if !result.IsArray() {
			continue
		}
		var items []string
		result.ForEach(func(_, value gjson.Result) bool {
			if s := strings.TrimSpace(value.String()); s != "" {
				items = append(items, s)
			}
			return true
		})
		if len(items) > 0 {
			return items
		}
	}
	return nil
}

// firstJSONObject returns the first balanced top-level JSON object in text,
// skipping braces inside string literals.
func firstJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if gjson.Valid(candidate) {
						return candidate
					}
					i = len(text)
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			return ""
		}
		start += 1 + next
	}
	return ""
}
