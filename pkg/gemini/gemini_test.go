package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient("test-key", "gemini-2.5-flash", 0)
	c.baseURL = srv.URL
	return c
}

func TestGenerate(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv).Generate(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotPath != "/gemini-2.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %q", gotKey)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 1 || gotReq.Contents[0].Parts[0].Text != "say hi" {
		t.Errorf("request = %+v", gotReq)
	}

	tree, ok := resp.Body.(map[string]any)
	if !ok {
		t.Fatalf("Body is %T", resp.Body)
	}
	if _, ok := tree["candidates"]; !ok {
		t.Errorf("decoded tree = %v", tree)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Quota exceeded for requests","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), "q")
	if err == nil {
		t.Fatal("Generate succeeded on 429")
	}
	// The error carries both the status code and the API message so the
	// caller's normalizer can detect quota exhaustion.
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "Quota exceeded") {
		t.Errorf("err = %v", err)
	}
}

func TestGenerateUnparseableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream timeout"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "upstream timeout") {
		t.Errorf("err = %v, want raw body fallback", err)
	}
}

func TestGenerateThrottles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient("k", "m", 1000)
	c.baseURL = srv.URL
	for i := 0; i < 3; i++ {
		if _, err := c.Generate(context.Background(), "q"); err != nil {
			t.Fatalf("Generate %d: %v", i, err)
		}
	}
}
