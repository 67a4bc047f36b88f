package erc725

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Verification methods of a VerifiableURI
const (
	MethodKeccak256UTF8  = "keccak256(utf8)"
	MethodKeccak256Bytes = "keccak256(bytes)"
)

var methodIDs = map[string][4]byte{
	MethodKeccak256UTF8:  {0x6f, 0x35, 0x7c, 0x6a},
	MethodKeccak256Bytes: {0x80, 0x19, 0xf9, 0xb1},
}

// VerifiableURI points to an off-chain JSON document together with the
// data needed to check the fetched bytes.
type VerifiableURI struct {
	Verification Verification `json:"verification"`
	URL          string       `json:"url"`
}

// Verification holds the hash method and the expected hash
type Verification struct {
	Method string `json:"method"`
	Data   string `json:"data"`
}

// NewVerifiableURI builds a VerifiableURI hashing content with keccak256(bytes)
func NewVerifiableURI(url string, content []byte) VerifiableURI {
	return VerifiableURI{
		Verification: Verification{
			Method: MethodKeccak256Bytes,
			Data:   crypto.Keccak256Hash(content).Hex(),
		},
		URL: url,
	}
}

func methodName(id []byte) string {
	for name, known := range methodIDs {
		if bytes.Equal(known[:], id) {
			return name
		}
	}
	return hexutil.Encode(id)
}

func methodID(name string) ([]byte, error) {
	if id, ok := methodIDs[name]; ok {
		return id[:], nil
	}
	raw, err := hexutil.Decode(name)
	if err != nil || len(raw) != 4 {
		return nil, fmt.Errorf("%w: unknown verification method %q", ErrInvalidValue, name)
	}
	return raw, nil
}

// EncodeVerifiableURI encodes 0x0000 ++ method ++ uint16(len) ++ data ++ url
func EncodeVerifiableURI(v VerifiableURI) ([]byte, error) {
	id, err := methodID(v.Verification.Method)
	if err != nil {
		return nil, err
	}

	var data []byte
	if v.Verification.Data != "" {
		data, err = hexutil.Decode(v.Verification.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: verification data: %v", ErrInvalidValue, err)
		}
	}
	if len(data) > 0xffff {
		return nil, fmt.Errorf("%w: verification data too long", ErrInvalidValue)
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{0x00, 0x00})
	buf.Write(id)
	binary.Write(buf, binary.BigEndian, uint16(len(data)))
	buf.Write(data)
	buf.WriteString(v.URL)
	return buf.Bytes(), nil
}

// EncodeJSONURL encodes the legacy layout: method ++ bytes32 hash ++ url
func EncodeJSONURL(v VerifiableURI) ([]byte, error) {
	id, err := methodID(v.Verification.Method)
	if err != nil {
		return nil, err
	}
	hash, err := hexutil.Decode(v.Verification.Data)
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("%w: JSONURL hash must be 32 bytes", ErrInvalidValue)
	}
	out := append(append(id, hash...), []byte(v.URL)...)
	return out, nil
}

// DecodeVerifiableURI decodes both the current VerifiableURI layout and the
// legacy JSONURL layout, told apart by the 0x0000 prefix.
func DecodeVerifiableURI(data []byte) (VerifiableURI, error) {
	if len(data) >= 2 && data[0] == 0x00 && data[1] == 0x00 {
		if len(data) < 8 {
			return VerifiableURI{}, fmt.Errorf("%w: VerifiableURI too short", ErrInvalidValue)
		}
		n := int(binary.BigEndian.Uint16(data[6:8]))
		if len(data) < 8+n {
			return VerifiableURI{}, fmt.Errorf("%w: VerifiableURI verification data truncated", ErrInvalidValue)
		}
		return VerifiableURI{
			Verification: Verification{
				Method: methodName(data[2:6]),
				Data:   hexutil.Encode(data[8 : 8+n]),
			},
			URL: string(data[8+n:]),
		}, nil
	}

	if len(data) < 36 {
		return VerifiableURI{}, fmt.Errorf("%w: JSONURL too short", ErrInvalidValue)
	}
	return VerifiableURI{
		Verification: Verification{
			Method: methodName(data[:4]),
			Data:   hexutil.Encode(data[4:36]),
		},
		URL: string(data[36:]),
	}, nil
}

// EncodeArrayLength encodes an LSP2 array length as uint128
func EncodeArrayLength(n uint64) []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[8:], n)
	return out
}

// MaxArrayLength is the largest array length read element by element
const MaxArrayLength = 10_000

// DecodeArrayLength accepts uint128 lengths and the legacy uint256 layout
func DecodeArrayLength(data []byte) (uint64, error) {
	switch len(data) {
	case 0:
		return 0, nil
	case 16, 32:
		n := new(big.Int).SetBytes(data)
		if !n.IsUint64() {
			return 0, fmt.Errorf("%w: array length overflows", ErrInvalidValue)
		}
		return n.Uint64(), nil
	}
	return 0, fmt.Errorf("%w: array length must be 16 or 32 bytes, got %d", ErrInvalidValue, len(data))
}

// DecodeValue decodes raw value bytes according to a schema's valueType and
// valueContent. Empty values decode to nil.
func DecodeValue(valueType, valueContent string, data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}

	if elemType, ok := strings.CutSuffix(valueType, "[CompactBytesArray]"); ok {
		elems, err := splitCompactBytesArray(data)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(elems))
		for _, elem := range elems {
			v, err := DecodeValue(elemType, valueContent, elem)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	if strings.HasPrefix(valueType, "(") {
		return decodeTuple(valueType, valueContent, data)
	}

	return decodeContent(valueType, valueContent, data)
}

// EncodeValue is the inverse of DecodeValue
func EncodeValue(valueType, valueContent string, value any) ([]byte, error) {
	if value == nil {
		return []byte{}, nil
	}

	if elemType, ok := strings.CutSuffix(valueType, "[CompactBytesArray]"); ok {
		items, err := toSlice(value)
		if err != nil {
			return nil, err
		}
		buf := new(bytes.Buffer)
		for _, item := range items {
			enc, err := EncodeValue(elemType, valueContent, item)
			if err != nil {
				return nil, err
			}
			if len(enc) > 0xffff {
				return nil, fmt.Errorf("%w: CompactBytesArray element too long", ErrInvalidValue)
			}
			binary.Write(buf, binary.BigEndian, uint16(len(enc)))
			buf.Write(enc)
		}
		return buf.Bytes(), nil
	}

	if strings.HasPrefix(valueType, "(") {
		types := splitTuple(valueType)
		contents := splitTuple(valueContent)
		if len(types) != len(contents) {
			return nil, fmt.Errorf("%w: tuple %s does not match %s", ErrInvalidValue, valueType, valueContent)
		}
		items, err := toSlice(value)
		if err != nil {
			return nil, err
		}
		if len(items) != len(types) {
			return nil, fmt.Errorf("%w: tuple %s needs %d values, got %d", ErrInvalidValue, valueType, len(types), len(items))
		}
		var out []byte
		for i := range types {
			enc, err := encodeContent(types[i], contents[i], items[i])
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		}
		return out, nil
	}

	return encodeContent(valueType, valueContent, value)
}

func decodeTuple(valueType, valueContent string, data []byte) (any, error) {
	types := splitTuple(valueType)
	contents := splitTuple(valueContent)
	if len(types) != len(contents) {
		return nil, fmt.Errorf("%w: tuple %s does not match %s", ErrInvalidValue, valueType, valueContent)
	}

	out := make([]any, 0, len(types))
	offset := 0
	for i, typ := range types {
		size, ok := fixedSize(typ)
		if !ok {
			return nil, fmt.Errorf("%w: tuple member %s has no fixed size", ErrInvalidValue, typ)
		}
		if offset+size > len(data) {
			return nil, fmt.Errorf("%w: tuple %s truncated", ErrInvalidValue, valueType)
		}
		v, err := decodeContent(typ, contents[i], data[offset:offset+size])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		offset += size
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%w: tuple %s has %d trailing bytes", ErrInvalidValue, valueType, len(data)-offset)
	}
	return out, nil
}

func decodeContent(valueType, valueContent string, data []byte) (any, error) {
	if strings.HasPrefix(valueContent, "0x") {
		got := hexutil.Encode(data)
		if !strings.EqualFold(got, valueContent) {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidValue, valueContent, got)
		}
		return got, nil
	}

	size, fixed := fixedSize(valueType)
	if fixed && len(data) != size {
		return nil, fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidValue, valueType, size, len(data))
	}

	switch content := strings.ToLower(valueContent); content {
	case "number":
		if len(data) > 32 {
			return nil, fmt.Errorf("%w: number wider than 32 bytes", ErrInvalidValue)
		}
		return new(big.Int).SetBytes(data), nil
	case "string", "url":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: not valid utf-8", ErrInvalidValue)
		}
		return string(data), nil
	case "address":
		if len(data) != common.AddressLength {
			return nil, fmt.Errorf("%w: address must be 20 bytes", ErrInvalidValue)
		}
		return common.BytesToAddress(data).Hex(), nil
	case "boolean":
		if len(data) != 1 {
			return nil, fmt.Errorf("%w: boolean must be 1 byte", ErrInvalidValue)
		}
		return data[0] == 0x01, nil
	case "verifiableuri", "jsonurl", "asseturl":
		return DecodeVerifiableURI(data)
	case "bitarray", "keccak256", "bytes":
		return hexutil.Encode(data), nil
	default:
		if n, ok := bytesN(content); ok {
			if len(data) != n {
				return nil, fmt.Errorf("%w: %s must be %d bytes", ErrInvalidValue, valueContent, n)
			}
			return hexutil.Encode(data), nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported valueContent %q", ErrInvalidValue, valueContent)
}

func encodeContent(valueType, valueContent string, value any) ([]byte, error) {
	if strings.HasPrefix(valueContent, "0x") {
		return hexutil.Decode(valueContent)
	}

	size, fixed := fixedSize(valueType)

	switch content := strings.ToLower(valueContent); content {
	case "number":
		n, err := toBigInt(value)
		if err != nil {
			return nil, err
		}
		width := 32
		if fixed {
			width = size
		}
		if n.Sign() < 0 || len(n.Bytes()) > width {
			return nil, fmt.Errorf("%w: %s does not fit %s", ErrInvalidValue, n, valueType)
		}
		return n.FillBytes(make([]byte, width)), nil
	case "string", "url":
		switch v := value.(type) {
		case string:
			return []byte(v), nil
		case []byte:
			return v, nil
		}
	case "address":
		switch v := value.(type) {
		case common.Address:
			return v.Bytes(), nil
		case string:
			if common.IsHexAddress(v) {
				return common.HexToAddress(v).Bytes(), nil
			}
		}
	case "boolean":
		if v, ok := value.(bool); ok {
			if v {
				return []byte{0x01}, nil
			}
			return []byte{0x00}, nil
		}
	case "verifiableuri", "jsonurl", "asseturl":
		var v VerifiableURI
		switch u := value.(type) {
		case VerifiableURI:
			v = u
		case *VerifiableURI:
			v = *u
		default:
			return nil, fmt.Errorf("%w: %s expects a VerifiableURI, got %T", ErrInvalidValue, valueContent, value)
		}
		if content == "verifiableuri" {
			return EncodeVerifiableURI(v)
		}
		return EncodeJSONURL(v)
	default:
		if _, ok := bytesN(content); ok || content == "bitarray" || content == "keccak256" || content == "bytes" {
			raw, err := toBytes(value)
			if err != nil {
				return nil, err
			}
			if fixed && len(raw) != size {
				if content != "bitarray" || len(raw) > size {
					return nil, fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidValue, valueType, size, len(raw))
				}
				// Bit arrays are numbers; pad on the left
				raw = common.LeftPadBytes(raw, size)
			}
			return raw, nil
		}
		return nil, fmt.Errorf("%w: unsupported valueContent %q", ErrInvalidValue, valueContent)
	}
	return nil, fmt.Errorf("%w: cannot encode %T as %s", ErrInvalidValue, value, valueContent)
}

func splitCompactBytesArray(data []byte) ([][]byte, error) {
	var out [][]byte
	for offset := 0; offset < len(data); {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("%w: CompactBytesArray length prefix truncated", ErrInvalidValue)
		}
		n := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if offset+n > len(data) {
			return nil, fmt.Errorf("%w: CompactBytesArray element truncated", ErrInvalidValue)
		}
		out = append(out, data[offset:offset+n])
		offset += n
	}
	return out, nil
}

func splitTuple(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// fixedSize returns the byte width of a static ABI-like type
func fixedSize(typ string) (int, bool) {
	switch {
	case typ == "address":
		return common.AddressLength, true
	case typ == "bool":
		return 1, true
	case strings.HasPrefix(typ, "uint"):
		bits, err := strconv.Atoi(strings.TrimPrefix(typ, "uint"))
		if err != nil || bits%8 != 0 {
			return 0, false
		}
		return bits / 8, true
	case strings.HasPrefix(typ, "bytes"):
		return bytesN(typ)
	}
	return 0, false
}

func bytesN(typ string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(typ, "bytes"))
	if err != nil || n < 1 || n > 32 {
		return 0, false
	}
	return n, true
}

func toSlice(value any) ([]any, error) {
	if items, ok := value.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, fmt.Errorf("%w: expected a list, got %T", ErrInvalidValue, value)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func toBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case common.Hash:
		return v.Bytes(), nil
	case [32]byte:
		return v[:], nil
	case [4]byte:
		return v[:], nil
	case string:
		raw, err := hexutil.Decode(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidValue, v, err)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("%w: cannot use %T as bytes", ErrInvalidValue, value)
}

func toBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return v, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case string:
		if n, ok := parseBigInt(v); ok {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot use %v (%T) as a number", ErrInvalidValue, value, value)
}
