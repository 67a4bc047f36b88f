package lsp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/ipfs"
	"github.com/yourusername/lsp-examples/pkg/storage"
)

// batchPageSize bounds the number of keys sent in one getDataBatch call
const batchPageSize = 100

// SnapshotRecorder keeps raw values read from contracts
type SnapshotRecorder interface {
	SaveSnapshot(record *storage.SnapshotRecord) error
}

// Profile binds a schema set to one ERC725Y contract
type Profile struct {
	client    *Client
	address   common.Address
	codec     *erc725.ERC725
	fetcher   *ipfs.Fetcher
	snapshots SnapshotRecorder
}

// NewProfile creates a schema-aware view of an ERC725Y contract. fetcher
// may be nil when FetchData is not used.
func NewProfile(client *Client, address common.Address, codec *erc725.ERC725, fetcher *ipfs.Fetcher) *Profile {
	return &Profile{client: client, address: address, codec: codec, fetcher: fetcher}
}

// WithSnapshots records every raw value read through the profile
func (p *Profile) WithSnapshots(r SnapshotRecorder) *Profile {
	p.snapshots = r
	return p
}

// Address returns the contract address
func (p *Profile) Address() common.Address {
	return p.address
}

// GetData reads and decodes one key name. Array key names are read element
// by element and decode to the list of elements.
func (p *Profile) GetData(ctx context.Context, name string, dynamicParts ...string) (erc725.DataValue, error) {
	schema, err := p.codec.Schema(name)
	if err != nil {
		return erc725.DataValue{}, err
	}
	key, err := p.codec.EncodeKeyName(name, dynamicParts...)
	if err != nil {
		return erc725.DataValue{}, err
	}

	raw, err := p.client.GetData(ctx, p.address, key)
	if err != nil {
		return erc725.DataValue{}, err
	}
	p.snapshot(key, erc725.SubstituteName(name, dynamicParts...), raw)

	if schema.KeyType != erc725.KeyTypeArray {
		values, err := p.codec.DecodeData(erc725.DecodeInput{KeyName: name, DynamicKeyParts: dynamicParts, Value: raw})
		if err != nil {
			return erc725.DataValue{}, err
		}
		return values[0], nil
	}

	length, err := erc725.DecodeArrayLength(raw)
	if err != nil {
		return erc725.DataValue{}, fmt.Errorf("decode %s: %w", name, err)
	}
	if length == 0 {
		return erc725.DataValue{Key: key.Hex(), Name: name, Value: []any{}}, nil
	}

	if length > erc725.MaxArrayLength {
		return erc725.DataValue{}, fmt.Errorf("decode %s: %w: array length %d exceeds %d", name, erc725.ErrInvalidValue, length, erc725.MaxArrayLength)
	}

	elements := make([][]byte, 0, length)
	for start := uint64(0); start < length; start += batchPageSize {
		end := min(start+batchPageSize, length)
		pageKeys := make([]common.Hash, 0, end-start)
		for i := start; i < end; i++ {
			pageKeys = append(pageKeys, erc725.ArrayElementKey(key, i))
		}
		page, err := p.client.GetDataBatch(ctx, p.address, pageKeys)
		if err != nil {
			return erc725.DataValue{}, err
		}
		for i, element := range page {
			p.snapshot(pageKeys[i], fmt.Sprintf("%s[%d]", name[:len(name)-2], start+uint64(i)), element)
		}
		elements = append(elements, page...)
	}

	return p.codec.DecodeArray(name, elements)
}

// FetchData reads a key name and, when the value is a VerifiableURI,
// replaces it with the JSON document it points to.
func (p *Profile) FetchData(ctx context.Context, name string, dynamicParts ...string) (erc725.DataValue, error) {
	value, err := p.GetData(ctx, name, dynamicParts...)
	if err != nil {
		return erc725.DataValue{}, err
	}

	uri, ok := value.Value.(erc725.VerifiableURI)
	if !ok {
		return value, nil
	}
	if p.fetcher == nil {
		return erc725.DataValue{}, fmt.Errorf("fetch %s: no metadata fetcher configured", name)
	}

	body, err := p.fetcher.FetchVerified(ctx, uri)
	if err != nil {
		return erc725.DataValue{}, fmt.Errorf("fetch %s: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return erc725.DataValue{}, fmt.Errorf("fetch %s: invalid JSON: %w", name, err)
	}
	value.Value = doc
	return value, nil
}

// SupportsERC725Y checks the current and legacy ERC725Y interface ids
func (p *Profile) SupportsERC725Y(ctx context.Context) (bool, error) {
	for _, id := range [][4]byte{InterfaceERC725Y, InterfaceERC725YLegacy, InterfaceERC725YLegacy2} {
		ok, err := p.client.SupportsInterface(ctx, p.address, id)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (p *Profile) snapshot(key common.Hash, name string, raw []byte) {
	if p.snapshots == nil {
		return
	}
	err := p.snapshots.SaveSnapshot(&storage.SnapshotRecord{
		Address: p.address.Hex(),
		DataKey: key.Hex(),
		KeyName: name,
		Value:   hexutil.Encode(raw),
	})
	if err != nil {
		p.client.logger.Warn("failed to record snapshot", zap.String("key", key.Hex()), zap.Error(err))
	}
}
