package rag

import "strings"

// Kind classifies a generation outcome.
type Kind int

const (
	// KindText is a usable, non-empty generation.
	KindText Kind = iota
	// KindEmpty means the API returned a well-formed response with no
	// extractable text.
	KindEmpty
	// KindRateLimited means the API rejected the call for quota reasons.
	KindRateLimited
	// KindFailed is any other generation failure.
	KindFailed
)

// Outcome is a normalized generation result. Exactly one of Text and Message
// is meaningful: Text for KindText, Message for KindFailed.
type Outcome struct {
	Kind    Kind
	Text    string
	Message string
}

// textFields are the candidate field names tried, in order, when looking for
// generated text in a response node.
var textFields = []string{"text", "content", "value"}

// normalize classifies a decoded generation tree. The response shape drifts
// across API versions, so every level tolerates both a collection and a
// single item, and missing or oddly typed fields degrade to KindEmpty rather
// than a panic or error.
func normalize(body any) Outcome {
	node := first(body)
	candidates := first(field(node, "candidates"))
	content := first(field(candidates, "content"))
	parts := field(content, "parts")

	// parts may be a list of part objects or a single part.
	for _, p := range items(parts) {
		if text := extractText(p); text != "" {
			return Outcome{Kind: KindText, Text: text}
		}
	}
	return Outcome{Kind: KindEmpty}
}

// normalizeError classifies a transport or API error from the generation
// call. A 429 with a quota message is surfaced as its own kind so callers
// can tell users to come back later.
func normalizeError(err error) Outcome {
	msg := err.Error()
	if strings.Contains(msg, "429") && strings.Contains(strings.ToLower(msg), "quota") {
		return Outcome{Kind: KindRateLimited}
	}
	return Outcome{Kind: KindFailed, Message: msg}
}

// extractText pulls a non-empty string out of a part node, trying each
// candidate field name, then the node itself.
func extractText(node any) string {
	for _, name := range textFields {
		if s, ok := field(node, name).(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	if s, ok := node.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// field reads a map key, returning nil for non-maps and absent keys.
func field(node any, name string) any {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	return m[name]
}

// first unwraps a collection to its first element; scalars and maps pass
// through unchanged. Empty collections become nil.
func first(node any) any {
	if list, ok := node.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return node
}

// items views a node as a collection: lists are returned as-is, nil becomes
// empty, anything else becomes a single-item collection.
func items(node any) []any {
	switch v := node.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}
