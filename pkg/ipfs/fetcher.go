// Package ipfs resolves metadata URLs found in ERC725Y values and fetches the
// documents they point to.
package ipfs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/yourusername/lsp-examples/pkg/config"
	"github.com/yourusername/lsp-examples/pkg/storage"
)

var (
	ErrUnsupportedScheme = errors.New("ipfs: unsupported url scheme")
	ErrInvalidCID        = errors.New("ipfs: invalid cid")
	ErrBadStatus         = errors.New("ipfs: unexpected gateway status")
	ErrTooLarge          = errors.New("ipfs: document too large")
)

// maxBodySize bounds documents read from a gateway
const maxBodySize = 10 << 20

// Cache stores fetched documents by URL
type Cache interface {
	GetMetadata(url string) (*storage.MetadataRecord, error)
	SaveMetadata(record *storage.MetadataRecord) error
}

// Fetcher downloads metadata documents through an IPFS gateway
type Fetcher struct {
	gateway string
	verify  bool
	client  *http.Client
	logger  *zap.Logger
	cache   Cache
}

// NewFetcher creates a fetcher for the configured gateway. cache may be nil.
func NewFetcher(cfg config.IPFSConfig, logger *zap.Logger, cache Cache) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		gateway: strings.TrimRight(cfg.Gateway, "/"),
		verify:  cfg.Verify,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		cache:   cache,
	}
}

// ResolveURL turns an ipfs:// URL into a gateway link. http(s) URLs are
// returned unchanged.
func (f *Fetcher) ResolveURL(raw string) (string, error) {
	switch {
	case strings.HasPrefix(raw, "ipfs://"):
		rest := strings.TrimPrefix(raw, "ipfs://")
		rest = strings.TrimPrefix(rest, "ipfs/")
		root, _, _ := strings.Cut(rest, "/")
		if _, err := cid.Decode(root); err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidCID, root, err)
		}
		return f.gateway + "/" + rest, nil
	case strings.HasPrefix(raw, "https://"), strings.HasPrefix(raw, "http://"):
		return raw, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, raw)
}

// Fetch downloads the document behind a metadata URL
func (f *Fetcher) Fetch(ctx context.Context, raw string) ([]byte, error) {
	if strings.HasPrefix(raw, "data:") {
		return decodeDataURI(raw)
	}

	if f.cache != nil {
		record, err := f.cache.GetMetadata(raw)
		if err != nil {
			f.logger.Warn("metadata cache lookup failed", zap.String("url", raw), zap.Error(err))
		} else if record != nil {
			f.logger.Debug("metadata cache hit", zap.String("url", raw))
			return record.Body, nil
		}
	}

	link, err := f.ResolveURL(raw)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	f.logger.Debug("fetching metadata", zap.String("url", raw), zap.String("link", link))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrBadStatus, link, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, link, maxBodySize)
	}

	if f.cache != nil {
		record := &storage.MetadataRecord{
			URL:  raw,
			Hash: crypto.Keccak256Hash(body).Hex(),
			Body: body,
		}
		if err := f.cache.SaveMetadata(record); err != nil {
			f.logger.Warn("failed to cache metadata", zap.String("url", raw), zap.Error(err))
		}
	}

	return body, nil
}

// FetchJSON downloads a document and unmarshals it into out
func (f *Fetcher) FetchJSON(ctx context.Context, raw string, out any) error {
	body, err := f.Fetch(ctx, raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse metadata from %s: %w", raw, err)
	}
	return nil
}

func decodeDataURI(raw string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data uri", ErrUnsupportedScheme)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data uri: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data uri: %w", err)
	}
	return []byte(data), nil
}
