package grading

import (
	"encoding/json"
	"strings"
)

// ParseSelection parses the externally-supplied serialized list of selected
// option ids. Two encodings are accepted: a JSON array (of strings or
// numbers) or a comma-separated list. Malformed input degrades to "nothing
// selected"; a corrupt client payload grades as a wrong answer instead of
// failing the submission. Duplicate ids collapse; first-seen order is
// preserved.
func ParseSelection(serialized string) []string {
	s := strings.TrimSpace(serialized)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		return dedupe(parseJSONList(s))
	}
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}
	return dedupe(ids)
}

func parseJSONList(s string) []string {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil
	}
	ids := make([]string, 0, len(raw))
	for _, el := range raw {
		var str string
		if err := json.Unmarshal(el, &str); err == nil {
			if str = strings.TrimSpace(str); str != "" {
				ids = append(ids, str)
			}
			continue
		}
		var num json.Number
		if err := json.Unmarshal(el, &num); err == nil {
			ids = append(ids, num.String())
			continue
		}
		// non-scalar element: treat the whole payload as unparseable
		return nil
	}
	return ids
}

func dedupe(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FormatSelection is the inverse used when echoing stored answers back to
// clients: a stable comma-separated list.
func FormatSelection(ids []string) string {
	return strings.Join(ids, ",")
}
