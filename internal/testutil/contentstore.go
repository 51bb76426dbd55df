package testutil

import (
	"crypto/sha256"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
)

// ContentStore is an httptest stand-in for an IPFS API node that also serves a
// Lighthouse style upload endpoint and gateway. Content is addressed by a CIDv0
// computed from the uploaded bytes.
type ContentStore struct {
	*httptest.Server

	// Token, when set, is required as a bearer token on uploads.
	Token string
	// FailUploads makes every upload return 500.
	FailUploads bool

	mu      sync.Mutex
	objects map[string][]byte
	adds    int
}

// NewContentStore starts the fake and closes it when the test ends.
func NewContentStore(t *testing.T) *ContentStore {
	t.Helper()

	cs := &ContentStore{objects: make(map[string][]byte)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/add", cs.handleAdd)
	mux.HandleFunc("/api/v0/cat", cs.handleCat)
	mux.HandleFunc("/ipfs/", cs.handleGateway)
	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)

	return cs
}

// CID returns the address the fake assigns to data.
func CID(data []byte) string {
	sum := sha256.Sum256(data)
	return base58.Encode(append([]byte{0x12, 0x20}, sum[:]...))
}

// Object returns the bytes stored under hash.
func (cs *ContentStore) Object(hash string) ([]byte, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	b, ok := cs.objects[hash]
	return b, ok
}

// Put stores data as if it had been uploaded and returns its hash.
func (cs *ContentStore) Put(data []byte) string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	hash := CID(data)
	cs.objects[hash] = append([]byte(nil), data...)
	return hash
}

// Adds returns the number of successful uploads.
func (cs *ContentStore) Adds() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.adds
}

func (cs *ContentStore) handleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if cs.Token != "" && r.Header.Get("Authorization") != "Bearer "+cs.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if cs.FailUploads {
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hash := cs.Put(data)
	cs.mu.Lock()
	cs.adds++
	cs.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"Name": header.Filename,
		"Hash": hash,
		"Size": len(data),
	})
}

func (cs *ContentStore) handleCat(w http.ResponseWriter, r *http.Request) {
	cs.serve(w, r.URL.Query().Get("arg"))
}

func (cs *ContentStore) handleGateway(w http.ResponseWriter, r *http.Request) {
	cs.serve(w, strings.TrimPrefix(r.URL.Path, "/ipfs/"))
}

func (cs *ContentStore) serve(w http.ResponseWriter, hash string) {
	data, ok := cs.Object(hash)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	_, _ = w.Write(data)
}
