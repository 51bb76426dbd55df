package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// IPFS talks to the HTTP API of an IPFS node.
type IPFS struct {
	apiURL string
	client *http.Client
}

func NewIPFS(apiURL string, client *http.Client) *IPFS {
	return &IPFS{apiURL: strings.TrimRight(apiURL, "/"), client: client}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size any    `json:"Size"`
}

func (c *IPFS) Add(ctx context.Context, name string, r io.Reader) (string, error) {
	req, err := newUploadRequest(ctx, c.apiURL+"/api/v0/add?pin=true", name, r)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("ipfs add: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return decodeHash(resp.Body)
}

func (c *IPFS) Cat(ctx context.Context, hash string) ([]byte, error) {
	endpoint := c.apiURL + "/api/v0/cat?arg=" + url.QueryEscape(hash)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	return readAll(c.client, req, "ipfs cat")
}

func newUploadRequest(ctx context.Context, endpoint, name string, r io.Reader) (*http.Request, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func decodeHash(r io.Reader) (string, error) {
	var out addResponse
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding add response: %w", err)
	}
	if out.Hash == "" {
		return "", fmt.Errorf("add response carries no hash")
	}
	return out.Hash, nil
}

func readAll(client *http.Client, req *http.Request, op string) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s: status %d", op, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: reading body: %w", op, err)
	}
	return data, nil
}
