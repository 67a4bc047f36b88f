package main

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/lsp"
	"github.com/yourusername/lsp-examples/pkg/lsp/lsptest"
)

const baseURL = "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG/"

var (
	assetAddr = common.HexToAddress("0x8734600968c7e7193bb9b1b005677b4edbadcd18")
	tokenOne  = common.BigToHash(big.NewInt(1))
	codec     = erc725.New(erc725.LSP8IdentifiableDigitalAsset)
)

func encodeBaseURI(t *testing.T, url string) []byte {
	t.Helper()
	out, err := erc725.EncodeVerifiableURI(erc725.NewVerifiableURI(url, nil))
	require.NoError(t, err)
	return out
}

func mustKey(t *testing.T, name string) common.Hash {
	t.Helper()
	key, err := codec.EncodeKeyName(name)
	require.NoError(t, err)
	return key
}

func newAsset(t *testing.T, format int64) (*lsptest.Contract, *lsp.Client) {
	t.Helper()
	backend := lsptest.NewBackend(4201)
	asset := backend.Deploy(assetAddr)
	asset.Interfaces[lsp.InterfaceLSP8] = true
	asset.Data[mustKey(t, "LSP8TokenIdFormat")] = common.BigToHash(big.NewInt(format)).Bytes()
	return asset, lsp.NewClient(backend)
}

func TestTokenMetadataURL(t *testing.T) {
	asset, client := newAsset(t, 0)
	asset.Data[mustKey(t, "LSP8TokenMetadataBaseURI")] = encodeBaseURI(t, baseURL)

	format, err := getTokenIDFormat(context.Background(), client, codec, assetAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(0), format.Int64())

	link, err := tokenMetadataURL(context.Background(), client, codec, assetAddr, tokenOne, format)
	require.NoError(t, err)
	assert.Equal(t, baseURL+"0x0000000000000000000000000000000000000000000000000000000000000001", link)
}

func TestTokenMetadataURLMixedFormat(t *testing.T) {
	asset, client := newAsset(t, 100)
	asset.Data[mustKey(t, "LSP8TokenMetadataBaseURI")] = encodeBaseURI(t, baseURL)
	tokenBase := "https://example.com/tokens/"
	asset.TokenData[[2]common.Hash{tokenOne, mustKey(t, "LSP8TokenIdFormat")}] = encodeBaseURI(t, tokenBase)

	format, err := getTokenIDFormat(context.Background(), client, codec, assetAddr)
	require.NoError(t, err)

	link, err := tokenMetadataURL(context.Background(), client, codec, assetAddr, tokenOne, format)
	require.NoError(t, err)
	assert.Equal(t, tokenBase+tokenOne.Hex(), link)
}

func TestTokenMetadataURLNotLSP8(t *testing.T) {
	asset, client := newAsset(t, 0)
	delete(asset.Interfaces, lsp.InterfaceLSP8)

	_, err := tokenMetadataURL(context.Background(), client, codec, assetAddr, tokenOne, big.NewInt(0))
	assert.ErrorIs(t, err, errNotLSP8)
}

func TestTokenMetadataURLNoBaseURI(t *testing.T) {
	_, client := newAsset(t, 0)

	_, err := tokenMetadataURL(context.Background(), client, codec, assetAddr, tokenOne, big.NewInt(0))
	assert.ErrorIs(t, err, errNoBaseURI)
}

func TestGetTokenIDFormatNotAContract(t *testing.T) {
	_, client := newAsset(t, 0)
	_, err := getTokenIDFormat(context.Background(), client, codec, common.HexToAddress("0x00000000000000000000000000000000000000e0"))
	assert.ErrorIs(t, err, lsp.ErrNoCode)
}

func TestParseTokenID(t *testing.T) {
	id, err := parseTokenID("", "0x01")
	require.NoError(t, err)
	assert.Equal(t, tokenOne, id)

	_, err = parseTokenID("nothex", "")
	assert.Error(t, err)
}
