// Package erc725 encodes and decodes ERC725Y data keys and values following
// the LSP2 JSON schema rules.
package erc725

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DataValue is one decoded key-value pair
type DataValue struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// DecodeInput is a raw value read from a contract
type DecodeInput struct {
	KeyName         string
	DynamicKeyParts []string
	Value           []byte
}

// EncodeInput is a value to be written to a contract. For array key names
// Value is the list of elements; StartingIndex and TotalArrayLength allow
// appending to an existing array.
type EncodeInput struct {
	KeyName          string
	DynamicKeyParts  []string
	Value            any
	StartingIndex    uint64
	TotalArrayLength uint64
}

// Encoded holds keys and values ready for setData / setDataBatch
type Encoded struct {
	Keys   []common.Hash
	Values [][]byte
}

// ERC725 binds a schema set for encoding and decoding
type ERC725 struct {
	schemas Schemas
}

// New creates a codec over the given schema sets
func New(sets ...Schemas) *ERC725 {
	return &ERC725{schemas: Merge(sets...)}
}

// Schemas returns the schema entries known to the codec
func (e *ERC725) Schemas() Schemas {
	return e.schemas
}

// Schema looks up a schema entry by key name
func (e *ERC725) Schema(name string) (Schema, error) {
	schema, ok := e.schemas.Find(name)
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}
	return schema, nil
}

// EncodeKeyName derives the data key of a known key name
func (e *ERC725) EncodeKeyName(name string, dynamicParts ...string) (common.Hash, error) {
	if _, err := e.Schema(name); err != nil {
		return common.Hash{}, err
	}
	return EncodeKeyName(name, dynamicParts...)
}

// DecodeData decodes raw values by key name. Array key names decode their
// value as the array length.
func (e *ERC725) DecodeData(inputs ...DecodeInput) ([]DataValue, error) {
	out := make([]DataValue, 0, len(inputs))
	for _, in := range inputs {
		schema, err := e.Schema(in.KeyName)
		if err != nil {
			return nil, err
		}
		key, err := EncodeKeyName(in.KeyName, in.DynamicKeyParts...)
		if err != nil {
			return nil, err
		}

		var value any
		if schema.KeyType == KeyTypeArray {
			n, err := DecodeArrayLength(in.Value)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", in.KeyName, err)
			}
			value = n
		} else {
			value, err = DecodeValue(schema.ValueType, schema.ValueContent, in.Value)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", in.KeyName, err)
			}
		}

		out = append(out, DataValue{
			Key:   key.Hex(),
			Name:  SubstituteName(in.KeyName, in.DynamicKeyParts...),
			Value: value,
		})
	}
	return out, nil
}

// DecodeArray decodes the elements of an array key read element by element
func (e *ERC725) DecodeArray(name string, elements [][]byte) (DataValue, error) {
	schema, err := e.Schema(name)
	if err != nil {
		return DataValue{}, err
	}
	if schema.KeyType != KeyTypeArray {
		return DataValue{}, fmt.Errorf("%w: %s is not an array", ErrInvalidKeyName, name)
	}

	values := make([]any, 0, len(elements))
	for i, raw := range elements {
		v, err := DecodeValue(schema.ValueType, schema.ValueContent, raw)
		if err != nil {
			return DataValue{}, fmt.Errorf("decode %s element %d: %w", name, i, err)
		}
		values = append(values, v)
	}

	return DataValue{Key: schema.Key, Name: name, Value: values}, nil
}

// DecodeByKey decodes a raw value by its concrete data key
func (e *ERC725) DecodeByKey(key common.Hash, raw []byte) (DataValue, error) {
	schema, ok := e.schemas.FindByKey(key)
	if !ok {
		return DataValue{}, fmt.Errorf("%w: %s", ErrUnknownKey, key.Hex())
	}

	name := schema.Name
	var value any
	var err error
	switch {
	case schema.KeyType == KeyTypeArray && key.Hex() == schema.Key:
		value, err = DecodeArrayLength(raw)
	case schema.KeyType == KeyTypeArray:
		name = fmt.Sprintf("%s[%d]", name[:len(name)-2], ArrayIndex(key))
		value, err = DecodeValue(schema.ValueType, schema.ValueContent, raw)
	default:
		value, err = DecodeValue(schema.ValueType, schema.ValueContent, raw)
	}
	if err != nil {
		return DataValue{}, fmt.Errorf("decode %s: %w", schema.Name, err)
	}

	return DataValue{Key: key.Hex(), Name: name, Value: value}, nil
}

// EncodeData encodes values into keys and values for setDataBatch
func (e *ERC725) EncodeData(inputs ...EncodeInput) (*Encoded, error) {
	encoded := &Encoded{}
	for _, in := range inputs {
		schema, err := e.Schema(in.KeyName)
		if err != nil {
			return nil, err
		}
		key, err := EncodeKeyName(in.KeyName, in.DynamicKeyParts...)
		if err != nil {
			return nil, err
		}

		if schema.KeyType != KeyTypeArray {
			value, err := EncodeValue(schema.ValueType, schema.ValueContent, in.Value)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", in.KeyName, err)
			}
			encoded.Keys = append(encoded.Keys, key)
			encoded.Values = append(encoded.Values, value)
			continue
		}

		items, err := toSlice(in.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", in.KeyName, err)
		}
		total := in.TotalArrayLength
		if total == 0 {
			total = in.StartingIndex + uint64(len(items))
		}
		if total < in.StartingIndex+uint64(len(items)) {
			return nil, fmt.Errorf("%w: %s total length %d is shorter than written elements", ErrInvalidValue, in.KeyName, total)
		}

		encoded.Keys = append(encoded.Keys, key)
		encoded.Values = append(encoded.Values, EncodeArrayLength(total))
		for i, item := range items {
			value, err := EncodeValue(schema.ValueType, schema.ValueContent, item)
			if err != nil {
				return nil, fmt.Errorf("encode %s[%d]: %w", in.KeyName, i, err)
			}
			encoded.Keys = append(encoded.Keys, ArrayElementKey(key, in.StartingIndex+uint64(i)))
			encoded.Values = append(encoded.Values, value)
		}
	}
	return encoded, nil
}

// HexValues renders encoded values as 0x strings for printing
func (enc *Encoded) HexValues() []string {
	out := make([]string, len(enc.Values))
	for i, v := range enc.Values {
		out[i] = hexutil.Encode(v)
	}
	return out
}
