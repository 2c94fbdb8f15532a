package rag

import (
	"encoding/json"
	"errors"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var tree any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return tree
}

func TestNormalizeCanonicalShape(t *testing.T) {
	tree := decode(t, `{
		"candidates": [
			{"content": {"parts": [{"text": "  The answer is 42.  "}]}}
		]
	}`)
	out := normalize(tree)
	if out.Kind != KindText {
		t.Fatalf("Kind = %v, want KindText", out.Kind)
	}
	if out.Text != "The answer is 42." {
		t.Errorf("Text = %q", out.Text)
	}
}

func TestNormalizeSinglePartNotList(t *testing.T) {
	tree := decode(t, `{
		"candidates": {"content": {"parts": {"text": "hello"}}}
	}`)
	out := normalize(tree)
	if out.Kind != KindText || out.Text != "hello" {
		t.Errorf("got %+v, want text hello", out)
	}
}

func TestNormalizeAlternateFieldNames(t *testing.T) {
	for _, field := range []string{"content", "value"} {
		tree := decode(t, `{
			"candidates": [{"content": {"parts": [{"`+field+`": "via alternate"}]}}]
		}`)
		out := normalize(tree)
		if out.Kind != KindText || out.Text != "via alternate" {
			t.Errorf("field %q: got %+v", field, out)
		}
	}
}

func TestNormalizeSkipsEmptyParts(t *testing.T) {
	tree := decode(t, `{
		"candidates": [{"content": {"parts": [
			{"text": "   "},
			{"text": "second part wins"}
		]}}]
	}`)
	out := normalize(tree)
	if out.Kind != KindText || out.Text != "second part wins" {
		t.Errorf("got %+v", out)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"no candidates":    `{"candidates": []}`,
		"null body":        `null`,
		"missing parts":    `{"candidates": [{"content": {}}]}`,
		"whitespace text":  `{"candidates": [{"content": {"parts": [{"text": "  "}]}}]}`,
		"non-string text":  `{"candidates": [{"content": {"parts": [{"text": 7}]}}]}`,
		"unexpected shape": `{"candidates": "surprise"}`,
	} {
		out := normalize(decode(t, raw))
		if out.Kind != KindEmpty {
			t.Errorf("%s: Kind = %v, want KindEmpty", name, out.Kind)
		}
	}
}

func TestNormalizeErrorQuota(t *testing.T) {
	out := normalizeError(errors.New("gemini: status 429: Quota exceeded for quota metric"))
	if out.Kind != KindRateLimited {
		t.Fatalf("Kind = %v, want KindRateLimited", out.Kind)
	}
}

func TestNormalizeError429WithoutQuota(t *testing.T) {
	out := normalizeError(errors.New("gemini: status 429: too many requests"))
	if out.Kind != KindFailed {
		t.Fatalf("Kind = %v, want KindFailed for 429 without quota wording", out.Kind)
	}
}

func TestNormalizeErrorGeneric(t *testing.T) {
	out := normalizeError(errors.New("gemini: status 500: internal"))
	if out.Kind != KindFailed {
		t.Fatalf("Kind = %v, want KindFailed", out.Kind)
	}
	if out.Message != "gemini: status 500: internal" {
		t.Errorf("Message = %q", out.Message)
	}
}
