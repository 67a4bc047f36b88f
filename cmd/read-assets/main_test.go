package main

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/lsp"
	"github.com/yourusername/lsp-examples/pkg/lsp/lsptest"
)

var (
	profileAddr = common.HexToAddress("0x0Ac71c67Fa5E4c9d4af4f99d7Ad6132936C2d6A3")
	assetA      = common.HexToAddress("0xfE85568Fea15A7ED3c56F7ca6544F2b96Aeb1774")
	assetB      = common.HexToAddress("0xdb86734b1e27F9A1e73627af6238171BD7d3716C")
)

func newFixture(t *testing.T) (*lsptest.Backend, *lsp.Client) {
	t.Helper()
	backend := lsptest.NewBackend(4201)
	profile := backend.Deploy(profileAddr)

	arrayKey, err := erc725.EncodeKeyName("LSP5ReceivedAssets[]")
	require.NoError(t, err)
	profile.Data[arrayKey] = erc725.EncodeArrayLength(2)
	profile.Data[erc725.ArrayElementKey(arrayKey, 0)] = assetA.Bytes()
	profile.Data[erc725.ArrayElementKey(arrayKey, 1)] = assetB.Bytes()

	a := backend.Deploy(assetA)
	a.Interfaces[lsp.InterfaceERC725Y] = true
	a.Balances[profileAddr] = big.NewInt(0)
	b := backend.Deploy(assetB)
	b.Balances[profileAddr] = big.NewInt(1)

	return backend, lsp.NewClient(backend)
}

func TestFetchReceivedAssets(t *testing.T) {
	_, client := newFixture(t)
	profile := lsp.NewProfile(client, profileAddr, erc725.New(erc725.LSP5ReceivedAssets), nil)

	assets, err := fetchReceivedAssets(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{assetA, assetB}, assets)
}

func TestFetchReceivedAssetsNotAContract(t *testing.T) {
	_, client := newFixture(t)
	eoa := common.HexToAddress("0x00000000000000000000000000000000000000e0")
	profile := lsp.NewProfile(client, eoa, erc725.New(erc725.LSP5ReceivedAssets), nil)

	_, err := fetchReceivedAssets(context.Background(), profile)
	assert.ErrorIs(t, err, lsp.ErrNoCode)
}

func TestFetchOwnedAssets(t *testing.T) {
	_, client := newFixture(t)

	owned, err := fetchOwnedAssets(context.Background(), client, profileAddr, []common.Address{assetA, assetB})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{assetB}, owned)
}

func TestCheckERC725YInterface(t *testing.T) {
	_, client := newFixture(t)
	codec := erc725.New(erc725.LSP4DigitalAsset)

	assert.True(t, checkERC725YInterface(context.Background(), lsp.NewProfile(client, assetA, codec, nil), zap.NewNop()))
	assert.False(t, checkERC725YInterface(context.Background(), lsp.NewProfile(client, assetB, codec, nil), zap.NewNop()))

	missing := common.HexToAddress("0x00000000000000000000000000000000000000e0")
	assert.False(t, checkERC725YInterface(context.Background(), lsp.NewProfile(client, missing, codec, nil), zap.NewNop()))
}

func TestDecodeAssetData(t *testing.T) {
	uri := erc725.NewVerifiableURI("ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", []byte(`{}`))
	encoded, err := erc725.EncodeJSONURL(uri)
	require.NoError(t, err)

	decoded, err := decodeAssetData(erc725.New(erc725.LSP4DigitalAsset), encoded)
	require.NoError(t, err)
	assert.Equal(t, "LSP4Metadata", decoded.Name)
	assert.Equal(t, uri, decoded.Value)
}
