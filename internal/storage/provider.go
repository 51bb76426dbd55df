// Package storage publishes files and metadata to content-addressed stores and
// reads them back by URI. The URI scheme names the provider: ipfs://<hash> is
// served by an IPFS node, filecoin://<hash> by the Lighthouse pinning service.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/singnet/snet-marketplace-service-sub000/pkg/apperr"
	"github.com/singnet/snet-marketplace-service-sub000/pkg/config"
)

// Provider names, also used as URI schemes.
const (
	ProviderIPFS     = "ipfs"
	ProviderFilecoin = "filecoin"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported storage provider")
	ErrInvalidURI          = errors.New("invalid storage uri")
)

// Backend is one content-addressed store.
type Backend interface {
	Add(ctx context.Context, name string, r io.Reader) (string, error)
	Cat(ctx context.Context, hash string) ([]byte, error)
}

// StorageProvider routes publish and fetch calls to the backend a provider name
// or URI selects.
type StorageProvider struct {
	backends map[string]Backend
	tempDir  string
}

// New builds a provider over explicit backends. tempDir may be empty to use the
// system default.
func New(backends map[string]Backend, tempDir string) *StorageProvider {
	return &StorageProvider{backends: backends, tempDir: tempDir}
}

// NewFromConfig wires the IPFS and Lighthouse backends from configuration.
func NewFromConfig(cfg *config.StorageConfig) *StorageProvider {
	client := &http.Client{Timeout: cfg.Timeout()}
	return New(map[string]Backend{
		ProviderIPFS:     NewIPFS(cfg.IPFSAPIURL, client),
		ProviderFilecoin: NewLighthouse(cfg.LighthouseAPIURL, cfg.LighthouseGatewayURL, cfg.LighthouseToken, client),
	}, cfg.TempDir)
}

func (p *StorageProvider) backend(op, provider string) (Backend, error) {
	b, ok := p.backends[provider]
	if !ok {
		return nil, &apperr.Error{
			Kind:    apperr.KindValidation,
			Op:      op,
			Message: fmt.Sprintf("provider %q", provider),
			Err:     ErrUnsupportedProvider,
		}
	}
	return b, nil
}

// FormatURI builds the URI for hash stored with provider.
func FormatURI(provider, hash string) string {
	return provider + "://" + hash
}

// ParseURI splits a storage URI into provider and hash.
func ParseURI(uri string) (provider, hash string, err error) {
	provider, hash, ok := strings.Cut(uri, "://")
	if !ok || hash == "" || strings.Contains(hash, "/") {
		return "", "", apperr.Wrap(apperr.KindValidation, "parse storage uri", fmt.Errorf("%w: %q", ErrInvalidURI, uri))
	}
	return provider, hash, nil
}

// Publish uploads the file at path and returns its URI. With archive set the file
// must be a zip; it is repacked as a normalized tar.gz first so identical content
// always publishes to the same hash.
func (p *StorageProvider) Publish(ctx context.Context, path, provider string, archive bool) (string, error) {
	b, err := p.backend("publish", provider)
	if err != nil {
		return "", err
	}

	upload, name := path, filepath.Base(path)
	if archive {
		tmp, err := os.CreateTemp(p.tempDir, "publish-*.tar.gz")
		if err != nil {
			return "", fmt.Errorf("creating archive: %w", err)
		}
		tmpName := tmp.Name()
		defer os.Remove(tmpName)

		err = ZipToTarGz(path, tmp)
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return "", err
		}
		upload = tmpName
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".tar.gz"
	}

	f, err := os.Open(upload)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", upload, err)
	}
	defer f.Close()

	hash, err := b.Add(ctx, name, f)
	if err != nil {
		return "", apperr.External("publish to "+provider, err)
	}
	return FormatURI(provider, hash), nil
}

// PublishBytes uploads in-memory content such as generated metadata.
func (p *StorageProvider) PublishBytes(ctx context.Context, name string, data []byte, provider string) (string, error) {
	b, err := p.backend("publish", provider)
	if err != nil {
		return "", err
	}
	hash, err := b.Add(ctx, name, bytes.NewReader(data))
	if err != nil {
		return "", apperr.External("publish to "+provider, err)
	}
	return FormatURI(provider, hash), nil
}

// Fetch returns the raw content behind uri.
func (p *StorageProvider) Fetch(ctx context.Context, uri string) ([]byte, error) {
	provider, hash, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	b, err := p.backend("fetch", provider)
	if err != nil {
		return nil, err
	}
	data, err := b.Cat(ctx, hash)
	if err != nil {
		return nil, apperr.External("fetch from "+provider, err)
	}
	return data, nil
}

// Get fetches uri and decodes it as a JSON object.
func (p *StorageProvider) Get(ctx context.Context, uri string) (map[string]any, error) {
	data, err := p.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.External("decode "+uri, err)
	}
	return out, nil
}
