// Package gemini provides a generation client for the Google Gemini API.
//
// The API's response shape varies across versions and finish states, so the
// client deliberately does not bind it to a struct: Generate returns the
// decoded JSON tree as-is and leaves interpretation to the caller's
// normalizer.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Response wraps the decoded generation response body.
type Response struct {
	Body any
}

// Client calls the Gemini generateContent endpoint. Calls are throttled by a
// token bucket so a burst of questions does not burn through the API quota.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	limiter *rate.Limiter
	client  *http.Client
}

// NewClient creates a Gemini client. rps bounds outgoing request rate;
// rps <= 0 disables throttling.
func NewClient(apiKey, model string, rps float64) *Client {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		model:   model,
		limiter: limiter,
		client:  &http.Client{},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// Generate sends the prompt and returns the decoded response tree. Non-2xx
// statuses become errors carrying the status code and the API's message text,
// which callers inspect for quota exhaustion.
func (c *Client) Generate(ctx context.Context, prompt string) (Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("gemini: rate wait: %w", err)
		}
	}

	body, _ := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("gemini: generate: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, apiErrorMessage(raw))
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return Response{}, fmt.Errorf("gemini: decode response: %w", err)
	}
	return Response{Body: tree}, nil
}

// apiErrorMessage pulls the error message out of an API error body, falling
// back to the raw body when the shape is unexpected.
func apiErrorMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return string(raw)
}
