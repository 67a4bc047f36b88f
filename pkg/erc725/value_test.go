package erc725

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifiableURIRoundTrip(t *testing.T) {
	content := []byte(`{"LSP4Metadata":{"name":"sample"}}`)
	v := NewVerifiableURI("ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", content)

	raw, err := EncodeVerifiableURI(v)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hexutil.Encode(raw), "0x00008019f9b10020"))

	decoded, err := DecodeVerifiableURI(raw)
	require.NoError(t, err)
	assert.Equal(t, v, decoded)
	assert.Equal(t, MethodKeccak256Bytes, decoded.Verification.Method)
}

func TestDecodeLegacyJSONURL(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	raw := hexutil.MustDecode("0x6f357c6a" + hash)
	raw = append(raw, []byte("ipfs://QmLegacy")...)

	decoded, err := DecodeVerifiableURI(raw)
	require.NoError(t, err)
	assert.Equal(t, MethodKeccak256UTF8, decoded.Verification.Method)
	assert.Equal(t, "0x"+hash, decoded.Verification.Data)
	assert.Equal(t, "ipfs://QmLegacy", decoded.URL)

	encoded, err := EncodeJSONURL(decoded)
	require.NoError(t, err)
	assert.Equal(t, raw, encoded)
}

func TestDecodeVerifiableURITruncated(t *testing.T) {
	_, err := DecodeVerifiableURI(hexutil.MustDecode("0x00008019f9b10020abcd"))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = DecodeVerifiableURI([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDecodeValueEmpty(t *testing.T) {
	v, err := DecodeValue("bytes", "VerifiableURI", nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDecodeValueScalars(t *testing.T) {
	v, err := DecodeValue("uint256", "Number", common.LeftPadBytes([]byte{0x64}, 32))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), v)

	v, err = DecodeValue("string", "String", []byte("My Token"))
	require.NoError(t, err)
	assert.Equal(t, "My Token", v)

	addr := common.HexToAddress("0x0Ac71c67Fa5E4c9d4af4f99d7Ad6132936C2d6A3")
	v, err = DecodeValue("address", "Address", addr.Bytes())
	require.NoError(t, err)
	assert.Equal(t, addr.Hex(), v)

	v, err = DecodeValue("bool", "Boolean", []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = DecodeValue("uint256", "Number", []byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = DecodeValue("string", "String", []byte{0xff, 0xfe})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDecodeValueLiteral(t *testing.T) {
	v, err := DecodeValue("bytes4", "0x5ef83ad9", hexutil.MustDecode("0x5ef83ad9"))
	require.NoError(t, err)
	assert.Equal(t, "0x5ef83ad9", v)

	_, err = DecodeValue("bytes4", "0x5ef83ad9", hexutil.MustDecode("0xdeadbeef"))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDecodeValueTuple(t *testing.T) {
	raw := hexutil.MustDecode("0xe33f65c3" + "00000000000000000000000000000005")

	v, err := DecodeValue("(bytes4,uint128)", "(Bytes4,Number)", raw)
	require.NoError(t, err)
	assert.Equal(t, []any{"0xe33f65c3", big.NewInt(5)}, v)

	_, err = DecodeValue("(bytes4,uint128)", "(Bytes4,Number)", raw[:10])
	assert.ErrorIs(t, err, ErrInvalidValue)

	encoded, err := EncodeValue("(bytes4,uint128)", "(Bytes4,Number)", []any{"0xe33f65c3", 5})
	require.NoError(t, err)
	assert.Equal(t, raw, encoded)
}

func TestCompactBytesArray(t *testing.T) {
	raw := hexutil.MustDecode("0x0002cafe0001ff")

	v, err := DecodeValue("bytes[CompactBytesArray]", "Bytes", raw)
	require.NoError(t, err)
	assert.Equal(t, []any{"0xcafe", "0xff"}, v)

	encoded, err := EncodeValue("bytes[CompactBytesArray]", "Bytes", []string{"0xcafe", "0xff"})
	require.NoError(t, err)
	assert.Equal(t, raw, encoded)

	_, err = DecodeValue("bytes[CompactBytesArray]", "Bytes", hexutil.MustDecode("0x0005cafe"))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestAllowedCallsTuple(t *testing.T) {
	target := common.HexToAddress("0xcafecafecafecafecafecafecafecafecafecafe")
	call := []any{"0x00000002", target.Hex(), "0xffffffff", "0xffffffff"}

	raw, err := EncodeValue("(bytes4,address,bytes4,bytes4)[CompactBytesArray]", "(BitArray,Address,Bytes4,Bytes4)", []any{call})
	require.NoError(t, err)
	assert.Len(t, raw, 2+32)

	v, err := DecodeValue("(bytes4,address,bytes4,bytes4)[CompactBytesArray]", "(BitArray,Address,Bytes4,Bytes4)", raw)
	require.NoError(t, err)
	assert.Equal(t, []any{call}, v)
}

func TestEncodeValueNumberWidth(t *testing.T) {
	raw, err := EncodeValue("uint256", "Number", 1)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	raw, err = EncodeValue("uint128", "Number", "0x10")
	require.NoError(t, err)
	assert.Equal(t, common.LeftPadBytes([]byte{0x10}, 16), raw)

	_, err = EncodeValue("uint8", "Number", 256)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = EncodeValue("uint256", "Number", -1)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestEncodeValueBitArrayPads(t *testing.T) {
	raw, err := EncodeValue("bytes32", "BitArray", "0x040000")
	require.NoError(t, err)
	assert.Equal(t, common.LeftPadBytes([]byte{0x04, 0x00, 0x00}, 32), raw)

	_, err = EncodeValue("bytes32", "Bytes32", "0x040000")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestEncodeValueWrongType(t *testing.T) {
	_, err := EncodeValue("address", "Address", 42)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = EncodeValue("bytes", "VerifiableURI", "ipfs://x")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestArrayLength(t *testing.T) {
	n, err := DecodeArrayLength(EncodeArrayLength(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	n, err = DecodeArrayLength(common.LeftPadBytes([]byte{0x07}, 32))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)

	n, err = DecodeArrayLength(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = DecodeArrayLength([]byte{0x01})
	assert.ErrorIs(t, err, ErrInvalidValue)
}
