package erc725

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemasLoad(t *testing.T) {
	for name, set := range SchemaSets {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, set)
			for _, schema := range set {
				assert.NotEmpty(t, schema.Key, schema.Name)
				assert.NotEmpty(t, schema.ValueContent, schema.Name)
			}
		})
	}

	// LSP4Metadata sits at index 3, the examples rely on it
	assert.Equal(t, "LSP4Metadata", LSP4DigitalAsset[3].Name)
}

func TestFindByKey(t *testing.T) {
	codec := New(LSP6KeyManager)

	key, err := EncodeKeyName("AddressPermissions:Permissions:<address>", "0xcafecafecafecafecafecafecafecafecafecafe")
	require.NoError(t, err)
	schema, ok := codec.Schemas().FindByKey(key)
	require.True(t, ok)
	assert.Equal(t, "AddressPermissions:Permissions:<address>", schema.Name)

	arrayKey, err := EncodeKeyName("AddressPermissions[]")
	require.NoError(t, err)
	schema, ok = codec.Schemas().FindByKey(ArrayElementKey(arrayKey, 2))
	require.True(t, ok)
	assert.Equal(t, "AddressPermissions[]", schema.Name)

	_, ok = codec.Schemas().FindByKey(common.HexToHash("0x01"))
	assert.False(t, ok)
}

func TestEncodeDecodePermissionData(t *testing.T) {
	codec := New(LSP6KeyManager)
	beneficiary := "0xcafecafecafecafecafecafecafecafecafecafe"
	permission := "0x0000000000000000000000000000000000000000000000000000000000040000"

	encoded, err := codec.EncodeData(EncodeInput{
		KeyName:         "AddressPermissions:Permissions:<address>",
		DynamicKeyParts: []string{beneficiary},
		Value:           permission,
	})
	require.NoError(t, err)
	require.Len(t, encoded.Keys, 1)
	assert.Equal(t, "0x4b80742de2bf82acb3630000cafecafecafecafecafecafecafecafecafecafe", encoded.Keys[0].Hex())
	assert.Equal(t, []string{permission}, encoded.HexValues())

	decoded, err := codec.DecodeData(DecodeInput{
		KeyName:         "AddressPermissions:Permissions:<address>",
		DynamicKeyParts: []string{beneficiary},
		Value:           encoded.Values[0],
	})
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "AddressPermissions:Permissions:"+beneficiary, decoded[0].Name)
	assert.Equal(t, permission, decoded[0].Value)
}

func TestEncodeArrayAppend(t *testing.T) {
	codec := New(LSP6KeyManager)
	controller := common.HexToAddress("0xcafecafecafecafecafecafecafecafecafecafe")

	encoded, err := codec.EncodeData(EncodeInput{
		KeyName:       "AddressPermissions[]",
		Value:         []common.Address{controller},
		StartingIndex: 2,
	})
	require.NoError(t, err)
	require.Len(t, encoded.Keys, 2)

	arrayKey, err := EncodeKeyName("AddressPermissions[]")
	require.NoError(t, err)
	assert.Equal(t, arrayKey, encoded.Keys[0])
	assert.Equal(t, EncodeArrayLength(3), encoded.Values[0])
	assert.Equal(t, ArrayElementKey(arrayKey, 2), encoded.Keys[1])
	assert.Equal(t, controller.Bytes(), encoded.Values[1])

	_, err = codec.EncodeData(EncodeInput{
		KeyName:          "AddressPermissions[]",
		Value:            []common.Address{controller},
		StartingIndex:    2,
		TotalArrayLength: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDecodeArray(t *testing.T) {
	codec := New(LSP5ReceivedAssets)
	a := common.HexToAddress("0x0000000000000000000000000000000000000001")
	b := common.HexToAddress("0x0000000000000000000000000000000000000002")

	decoded, err := codec.DecodeArray("LSP5ReceivedAssets[]", [][]byte{a.Bytes(), b.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, []any{a.Hex(), b.Hex()}, decoded.Value)

	_, err = codec.DecodeArray("LSP5ReceivedAssetsMap:<address>", nil)
	assert.ErrorIs(t, err, ErrInvalidKeyName)
}

func TestDecodeDataArrayLength(t *testing.T) {
	codec := New(LSP6KeyManager)
	decoded, err := codec.DecodeData(DecodeInput{KeyName: "AddressPermissions[]", Value: EncodeArrayLength(4)})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), decoded[0].Value)
}

func TestDecodeByKey(t *testing.T) {
	codec := New(LSP4DigitalAsset, LSP8IdentifiableDigitalAsset)

	key, err := EncodeKeyName("LSP8TokenIdFormat")
	require.NoError(t, err)
	decoded, err := codec.DecodeByKey(key, common.LeftPadBytes([]byte{0x02}, 32))
	require.NoError(t, err)
	assert.Equal(t, "LSP8TokenIdFormat", decoded.Name)
	assert.Equal(t, big.NewInt(2), decoded.Value)

	creators, err := EncodeKeyName("LSP4Creators[]")
	require.NoError(t, err)
	decoded, err = codec.DecodeByKey(ArrayElementKey(creators, 1), common.HexToAddress("0x01").Bytes())
	require.NoError(t, err)
	assert.Equal(t, "LSP4Creators[1]", decoded.Name)

	_, err = codec.DecodeByKey(common.HexToHash("0x1234"), nil)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestEncodeMetadata(t *testing.T) {
	codec := New(LSP4DigitalAsset)
	uri := NewVerifiableURI("ipfs://QmSample", []byte(`{}`))

	encoded, err := codec.EncodeData(
		EncodeInput{KeyName: "LSP4Metadata", Value: uri},
		EncodeInput{KeyName: "LSP4TokenName", Value: "Sample"},
	)
	require.NoError(t, err)
	require.Len(t, encoded.Keys, 2)
	assert.Equal(t, "0x9afb95cacc9f95858ec44aa8c3b685511002e30ae54415823f406128b85b238e", encoded.Keys[0].Hex())

	decoded, err := codec.DecodeData(
		DecodeInput{KeyName: "LSP4Metadata", Value: encoded.Values[0]},
		DecodeInput{KeyName: "LSP4TokenName", Value: encoded.Values[1]},
	)
	require.NoError(t, err)
	assert.Equal(t, uri, decoded[0].Value)
	assert.Equal(t, "Sample", decoded[1].Value)
}

func TestUnknownKeyName(t *testing.T) {
	codec := New(LSP4DigitalAsset)
	_, err := codec.EncodeKeyName("LSP3Profile")
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, err = codec.DecodeData(DecodeInput{KeyName: "Nope", Value: hexutil.MustDecode("0x01")})
	assert.ErrorIs(t, err, ErrUnknownKey)
}
