package erc725

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeyTypeOf infers the LSP2 key type from the shape of a key name
func KeyTypeOf(name string) (KeyType, error) {
	if strings.HasSuffix(name, "[]") {
		return KeyTypeArray, nil
	}
	switch strings.Count(name, ":") {
	case 0:
		return KeyTypeSingleton, nil
	case 1:
		return KeyTypeMapping, nil
	case 2:
		return KeyTypeMappingWithGrouping, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKeyName, name)
}

// EncodeKeyName derives the 32-byte data key for a key name, substituting
// dynamic <type> words with dynamicParts in order.
func EncodeKeyName(name string, dynamicParts ...string) (common.Hash, error) {
	keyType, err := KeyTypeOf(name)
	if err != nil {
		return common.Hash{}, err
	}

	parts := dynamicParts
	var key []byte

	switch keyType {
	case KeyTypeArray:
		if isDynamicWord(strings.TrimSuffix(name, "[]")) {
			return common.Hash{}, fmt.Errorf("%w: array key %q cannot be dynamic", ErrInvalidKeyName, name)
		}
		key = crypto.Keccak256([]byte(name))

	case KeyTypeSingleton:
		key, err = encodeWord(name, 32, &parts)
		if err != nil {
			return common.Hash{}, err
		}

	case KeyTypeMapping:
		words := strings.Split(name, ":")
		first, err := encodeWord(words[0], 10, &parts)
		if err != nil {
			return common.Hash{}, err
		}
		last, err := encodeWord(words[1], 20, &parts)
		if err != nil {
			return common.Hash{}, err
		}
		key = append(append(first, 0x00, 0x00), last...)

	case KeyTypeMappingWithGrouping:
		words := strings.Split(name, ":")
		first, err := encodeWord(words[0], 6, &parts)
		if err != nil {
			return common.Hash{}, err
		}
		second, err := encodeWord(words[1], 4, &parts)
		if err != nil {
			return common.Hash{}, err
		}
		last, err := encodeWord(words[2], 20, &parts)
		if err != nil {
			return common.Hash{}, err
		}
		key = append(append(append(first, second...), 0x00, 0x00), last...)
	}

	if len(parts) != 0 {
		return common.Hash{}, fmt.Errorf("%w: %d unused dynamic parts for %q", ErrDynamicPart, len(parts), name)
	}

	return common.BytesToHash(key), nil
}

// KeyTemplate renders the key of a name as hex, leaving dynamic words as
// their <type> placeholder (e.g. 0x4b80742de2bf82acb3630000<address>).
func KeyTemplate(name string) (string, error) {
	keyType, err := KeyTypeOf(name)
	if err != nil {
		return "", err
	}

	var sizes []int
	switch keyType {
	case KeyTypeArray, KeyTypeSingleton:
		return singleWordTemplate(name), nil
	case KeyTypeMapping:
		sizes = []int{10, 20}
	case KeyTypeMappingWithGrouping:
		sizes = []int{6, 4, 20}
	}

	words := strings.Split(name, ":")
	var b strings.Builder
	b.WriteString("0x")
	for i, word := range words {
		if i == len(words)-1 {
			b.WriteString("0000")
		}
		if isDynamicWord(word) {
			b.WriteString(word)
			continue
		}
		b.WriteString(hex.EncodeToString(crypto.Keccak256([]byte(word))[:sizes[i]]))
	}
	return b.String(), nil
}

func singleWordTemplate(name string) string {
	if isDynamicWord(strings.TrimSuffix(name, "[]")) {
		return name
	}
	return crypto.Keccak256Hash([]byte(name)).Hex()
}

// ArrayElementKey returns the key of element index of an LSP2 array:
// bytes16(arrayKey) ++ uint128(index)
func ArrayElementKey(arrayKey common.Hash, index uint64) common.Hash {
	var key common.Hash
	copy(key[:16], arrayKey[:16])
	binary.BigEndian.PutUint64(key[24:], index)
	return key
}

// ArrayIndex extracts the element index from an array element key
func ArrayIndex(elementKey common.Hash) uint64 {
	return binary.BigEndian.Uint64(elementKey[24:])
}

// SubstituteName replaces the <type> words of a name with dynamic parts
func SubstituteName(name string, dynamicParts ...string) string {
	words := strings.Split(name, ":")
	i := 0
	for w, word := range words {
		if isDynamicWord(word) && i < len(dynamicParts) {
			words[w] = dynamicParts[i]
			i++
		}
	}
	return strings.Join(words, ":")
}

func isDynamicWord(word string) bool {
	return strings.HasPrefix(word, "<") && strings.HasSuffix(word, ">")
}

func encodeWord(word string, size int, parts *[]string) ([]byte, error) {
	if !isDynamicWord(word) {
		return crypto.Keccak256([]byte(word))[:size], nil
	}
	if len(*parts) == 0 {
		return nil, fmt.Errorf("%w: missing value for %s", ErrDynamicPart, word)
	}
	value := (*parts)[0]
	*parts = (*parts)[1:]
	return encodeDynamicPart(strings.Trim(word, "<>"), value, size)
}

func encodeDynamicPart(typ, value string, size int) ([]byte, error) {
	out := make([]byte, size)

	switch {
	case typ == "address":
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("%w: %q is not an address", ErrDynamicPart, value)
		}
		addr := common.HexToAddress(value)
		copy(out, addr.Bytes())
		return out, nil

	case typ == "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a bool", ErrDynamicPart, value)
		}
		if b {
			out[size-1] = 1
		}
		return out, nil

	case typ == "string":
		return crypto.Keccak256([]byte(value))[:size], nil

	case strings.HasPrefix(typ, "uint") || strings.HasPrefix(typ, "int"):
		n, ok := parseBigInt(value)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("%w: %q is not an unsigned integer", ErrDynamicPart, value)
		}
		if len(n.Bytes()) > size {
			return nil, fmt.Errorf("%w: %q does not fit in %d bytes", ErrDynamicPart, value, size)
		}
		return n.FillBytes(out), nil

	case strings.HasPrefix(typ, "bytes"):
		raw, err := hexutil.Decode(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not hex: %v", ErrDynamicPart, value, err)
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(typ, "bytes")); err == nil && len(raw) > n {
			return nil, fmt.Errorf("%w: %q is longer than %s", ErrDynamicPart, value, typ)
		}
		// bytesN words are left-aligned and cut to the word size
		copy(out, raw)
		return out, nil
	}

	return nil, fmt.Errorf("%w: unsupported dynamic type <%s>", ErrDynamicPart, typ)
}

func parseBigInt(s string) (*big.Int, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}
