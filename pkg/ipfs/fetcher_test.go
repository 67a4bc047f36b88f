package ipfs

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lsp-examples/pkg/config"
	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/storage"
)

const sampleCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

func newGateway(t *testing.T, docs map[string][]byte) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		body, ok := docs[strings.TrimPrefix(r.URL.Path, "/ipfs/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestResolveURL(t *testing.T) {
	f := NewFetcher(config.IPFSConfig{Gateway: "https://api.universalprofile.cloud/ipfs/"}, nil, nil)

	link, err := f.ResolveURL("ipfs://" + sampleCID)
	require.NoError(t, err)
	assert.Equal(t, "https://api.universalprofile.cloud/ipfs/"+sampleCID, link)

	link, err = f.ResolveURL("ipfs://" + sampleCID + "/metadata/1.json")
	require.NoError(t, err)
	assert.Equal(t, "https://api.universalprofile.cloud/ipfs/"+sampleCID+"/metadata/1.json", link)

	link, err = f.ResolveURL("https://example.com/a.json")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.json", link)

	_, err = f.ResolveURL("ipfs://not-a-cid")
	assert.ErrorIs(t, err, ErrInvalidCID)

	_, err = f.ResolveURL("ftp://example.com/a.json")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestFetchJSON(t *testing.T) {
	doc := []byte(`{"LSP4Metadata":{"name":"` + gofakeit.Name() + `"}}`)
	srv, _ := newGateway(t, map[string][]byte{sampleCID: doc})
	f := NewFetcher(config.IPFSConfig{Gateway: srv.URL + "/ipfs"}, nil, nil)

	var out map[string]any
	require.NoError(t, f.FetchJSON(context.Background(), "ipfs://"+sampleCID, &out))
	assert.Contains(t, out, "LSP4Metadata")
}

func TestFetchBadStatus(t *testing.T) {
	srv, _ := newGateway(t, map[string][]byte{})
	f := NewFetcher(config.IPFSConfig{Gateway: srv.URL + "/ipfs"}, nil, nil)

	_, err := f.Fetch(context.Background(), "ipfs://"+sampleCID)
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestFetchTooLarge(t *testing.T) {
	doc := make([]byte, maxBodySize+1)
	srv, _ := newGateway(t, map[string][]byte{sampleCID: doc})

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	f := NewFetcher(config.IPFSConfig{Gateway: srv.URL + "/ipfs"}, nil, store)
	url := "ipfs://" + sampleCID

	_, err = f.Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrTooLarge)

	cached, err := store.GetMetadata(url)
	require.NoError(t, err)
	assert.Nil(t, cached, "oversized documents are not cached")
}

func TestFetchUsesCache(t *testing.T) {
	doc := []byte(`{"LSP3Profile":{"name":"alice"}}`)
	srv, hits := newGateway(t, map[string][]byte{sampleCID: doc})

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	f := NewFetcher(config.IPFSConfig{Gateway: srv.URL + "/ipfs"}, nil, store)
	url := "ipfs://" + sampleCID

	first, err := f.Fetch(context.Background(), url)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	record, err := store.GetMetadata(url)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, erc725.NewVerifiableURI(url, doc).Verification.Data, record.Hash)
}

func TestFetchDataURI(t *testing.T) {
	f := NewFetcher(config.IPFSConfig{}, nil, nil)
	doc := `{"name":"x"}`

	got, err := f.Fetch(context.Background(), "data:application/json;base64,"+base64.StdEncoding.EncodeToString([]byte(doc)))
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))

	got, err = f.Fetch(context.Background(), "data:application/json;charset=UTF-8,%7B%22name%22%3A%22x%22%7D")
	require.NoError(t, err)
	assert.Equal(t, doc, string(got))
}

func TestFetchVerified(t *testing.T) {
	doc := []byte(`{"LSP4Metadata":{"description":"sample"}}`)
	srv, _ := newGateway(t, map[string][]byte{sampleCID: doc})
	f := NewFetcher(config.IPFSConfig{Gateway: srv.URL + "/ipfs", Verify: true}, nil, nil)
	url := "ipfs://" + sampleCID

	body, err := f.FetchVerified(context.Background(), erc725.NewVerifiableURI(url, doc))
	require.NoError(t, err)
	assert.Equal(t, doc, body)

	_, err = f.FetchVerified(context.Background(), erc725.NewVerifiableURI(url, []byte("other")))
	assert.ErrorIs(t, err, ErrHashMismatch)

	lax := NewFetcher(config.IPFSConfig{Gateway: srv.URL + "/ipfs"}, nil, nil)
	_, err = lax.FetchVerified(context.Background(), erc725.NewVerifiableURI(url, []byte("other")))
	assert.NoError(t, err)
}

func TestVerifySkipsUnknownMethod(t *testing.T) {
	v := erc725.VerifiableURI{
		Verification: erc725.Verification{Method: "0x00000000", Data: "0x1234"},
		URL:          "ipfs://" + sampleCID,
	}
	assert.NoError(t, Verify(v, []byte("anything")))
}

func TestContentURL(t *testing.T) {
	content := []byte(gofakeit.Sentence(8))

	u, err := ContentURL(content)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "ipfs://b"), "CIDv1 renders in base32")

	again, err := ContentURL(content)
	require.NoError(t, err)
	assert.Equal(t, u, again)

	f := NewFetcher(config.IPFSConfig{Gateway: "https://gw.example/ipfs"}, nil, nil)
	_, err = f.ResolveURL(u)
	assert.NoError(t, err)
}
