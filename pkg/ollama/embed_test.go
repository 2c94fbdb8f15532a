package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func embedServer(t *testing.T, dims int, fail bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaEmbedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "all-minilm" {
			t.Errorf("model = %q", req.Model)
		}
		if fail {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}
		vec := make([]float64, dims)
		vec[0] = float64(len(req.Prompt))
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embedding: vec})
	}))
}

func TestEncode(t *testing.T) {
	srv := embedServer(t, 8, false)
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "all-minilm", 8)
	vectors, err := c.Encode(context.Background(), []string{"one", "three"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 8 {
			t.Errorf("vector %d has %d dims", i, len(v))
		}
	}
	// Order preserved: the fake encodes prompt length in the first element.
	if vectors[0][0] != 3 || vectors[1][0] != 5 {
		t.Errorf("vector order lost: %v, %v", vectors[0][0], vectors[1][0])
	}
}

func TestEncodeDimsMismatch(t *testing.T) {
	srv := embedServer(t, 4, false)
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "all-minilm", 8)
	_, err := c.Encode(context.Background(), []string{"text"})
	if err == nil || !strings.Contains(err.Error(), "4 dims, want 8") {
		t.Fatalf("err = %v, want dims mismatch", err)
	}
}

func TestEncodeServerError(t *testing.T) {
	srv := embedServer(t, 8, true)
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "all-minilm", 8)
	_, err := c.Encode(context.Background(), []string{"text"})
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("err = %v", err)
	}
}

func TestEncodeBatchFailsAtomically(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbedResp{Embedding: make([]float64, 8)})
	}))
	defer srv.Close()

	c := NewEmbedClient(srv.URL, "all-minilm", 8)
	vectors, err := c.Encode(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("Encode succeeded with a failing item")
	}
	if vectors != nil {
		t.Errorf("partial vectors returned: %v", vectors)
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("batch [%d]", 1)) {
		t.Errorf("err = %v, want failing index", err)
	}
	if calls != 2 {
		t.Errorf("server called %d times, want stop after first failure", calls)
	}
}
