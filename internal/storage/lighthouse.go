package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// LighthouseInternalError reports a failed upload to the Lighthouse pinning service.
type LighthouseInternalError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *LighthouseInternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lighthouse upload failed: %v", e.Err)
	}
	return fmt.Sprintf("lighthouse upload failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *LighthouseInternalError) Unwrap() error {
	return e.Err
}

// Lighthouse uploads through the Lighthouse API and reads back through its gateway.
type Lighthouse struct {
	apiURL     string
	gatewayURL string
	token      string
	client     *http.Client
}

func NewLighthouse(apiURL, gatewayURL, token string, client *http.Client) *Lighthouse {
	return &Lighthouse{
		apiURL:     strings.TrimRight(apiURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		token:      token,
		client:     client,
	}
}

func (c *Lighthouse) Add(ctx context.Context, name string, r io.Reader) (string, error) {
	req, err := newUploadRequest(ctx, c.apiURL+"/api/v0/add", name, r)
	if err != nil {
		return "", &LighthouseInternalError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &LighthouseInternalError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &LighthouseInternalError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	hash, err := decodeHash(resp.Body)
	if err != nil {
		return "", &LighthouseInternalError{StatusCode: resp.StatusCode, Err: err}
	}
	return hash, nil
}

func (c *Lighthouse) Cat(ctx context.Context, hash string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gatewayURL+"/ipfs/"+url.PathEscape(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return readAll(c.client, req, "lighthouse gateway")
}
