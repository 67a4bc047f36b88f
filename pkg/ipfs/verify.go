package ipfs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/yourusername/lsp-examples/pkg/erc725"
)

var ErrHashMismatch = errors.New("ipfs: content hash mismatch")

// Verify checks fetched content against the hash of a VerifiableURI.
// Unknown methods and empty verification data are not checked.
func Verify(v erc725.VerifiableURI, content []byte) error {
	switch v.Verification.Method {
	case erc725.MethodKeccak256Bytes, erc725.MethodKeccak256UTF8:
	default:
		return nil
	}
	if v.Verification.Data == "" || v.Verification.Data == "0x" {
		return nil
	}

	got := crypto.Keccak256Hash(content).Hex()
	if !strings.EqualFold(got, v.Verification.Data) {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, v.Verification.Data, got)
	}
	return nil
}

// FetchVerified downloads the document of a VerifiableURI and, when the
// fetcher was configured to verify, checks its hash.
func (f *Fetcher) FetchVerified(ctx context.Context, v erc725.VerifiableURI) ([]byte, error) {
	body, err := f.Fetch(ctx, v.URL)
	if err != nil {
		return nil, err
	}
	if !f.verify {
		return body, nil
	}
	if err := Verify(v, body); err != nil {
		return nil, err
	}
	return body, nil
}

// ContentCID returns the CIDv1 (raw codec, sha2-256) of content
func ContentCID(content []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(content, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ContentURL returns the ipfs:// URL content would be pinned under
func ContentURL(content []byte) (string, error) {
	c, err := ContentCID(content)
	if err != nil {
		return "", err
	}
	return "ipfs://" + c.String(), nil
}
