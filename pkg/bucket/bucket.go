// Package bucket provides a client for a Supabase-Storage-compatible object
// store: upload by key, public URL retrieval, delete by key.
package bucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const publicPrefix = "/storage/v1/object/public/"

// Client addresses one bucket in the object store.
type Client struct {
	baseURL    string
	bucket     string
	serviceKey string
	client     *http.Client
}

// New creates a bucket client. baseURL is the project root, without a
// trailing slash.
func New(baseURL, bucket, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		client:     &http.Client{},
	}
}

// Upload stores data under key and returns the durable public URL.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("bucket: upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("bucket: upload %s: status %d: %s", key, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return c.PublicURL(key), nil
}

// Remove deletes the object under key.
func (c *Client) Remove(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bucket: remove %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("bucket: remove %s: status %d", key, resp.StatusCode)
	}
	return nil
}

// PublicURL returns the public URL for key without contacting the store.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s%s%s/%s", c.baseURL, publicPrefix, c.bucket, key)
}

// KeyFromURL recovers the storage key from a public URL produced by this
// client's bucket.
func (c *Client) KeyFromURL(fileURL string) (string, bool) {
	return KeyFromURL(fileURL, c.bucket)
}

// KeyFromURL recovers the storage key from a public URL produced by the named
// bucket. Returns false when the URL does not address that bucket.
func KeyFromURL(fileURL, bucket string) (string, bool) {
	idx := strings.Index(fileURL, publicPrefix)
	if idx < 0 {
		return "", false
	}
	rest := fileURL[idx+len(publicPrefix):]
	prefix := bucket + "/"
	if !strings.HasPrefix(rest, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(rest, prefix)
	// Strip any query string, e.g. signed-URL tokens.
	if q := strings.IndexByte(key, '?'); q >= 0 {
		key = key[:q]
	}
	if key == "" {
		return "", false
	}
	return key, true
}
