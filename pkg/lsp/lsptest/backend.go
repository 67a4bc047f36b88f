// Package lsptest provides an in-memory contract backend for tests.
package lsptest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/yourusername/lsp-examples/pkg/lsp"
)

var ErrUnknownMethod = errors.New("lsptest: unknown method")

// Contract is the state of one fake contract
type Contract struct {
	Data       map[common.Hash][]byte
	TokenData  map[[2]common.Hash][]byte
	Interfaces map[[4]byte]bool
	Owner      common.Address
	Balances   map[common.Address]*big.Int
	// Target receives the payloads of execute(bytes), as a Key Manager
	// forwards calls to the profile it controls
	Target common.Address
}

// NewContract creates an empty contract
func NewContract() *Contract {
	return &Contract{
		Data:       make(map[common.Hash][]byte),
		TokenData:  make(map[[2]common.Hash][]byte),
		Interfaces: make(map[[4]byte]bool),
		Balances:   make(map[common.Address]*big.Int),
	}
}

// Backend implements lsp.Backend over in-memory contracts
type Backend struct {
	mu sync.Mutex

	Contracts map[common.Address]*Contract
	Sent      []*types.Transaction
	// PendingPolls is how many receipt lookups report NotFound before a
	// transaction is mined
	PendingPolls int
	// Revert makes every sent transaction fail
	Revert bool
	// Calls counts read-only calls by method name
	Calls map[string]int

	chainID  *big.Int
	nonces   map[common.Address]uint64
	receipts map[common.Hash]*types.Receipt
	polls    map[common.Hash]int
}

// NewBackend creates an empty backend for the given chain id
func NewBackend(chainID int64) *Backend {
	return &Backend{
		Contracts: make(map[common.Address]*Contract),
		Calls:     make(map[string]int),
		chainID:   big.NewInt(chainID),
		nonces:    make(map[common.Address]uint64),
		receipts:  make(map[common.Hash]*types.Receipt),
		polls:     make(map[common.Hash]int),
	}
}

// Deploy registers a contract at address and returns it
func (b *Backend) Deploy(address common.Address) *Contract {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := NewContract()
	b.Contracts[address] = c
	return c
}

// CallContract runs a read-only call
func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.Contracts[*call.To]
	if !ok {
		return nil, nil
	}
	if len(call.Data) < 4 {
		return nil, ErrUnknownMethod
	}
	method, err := lsp.ABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, err)
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	b.Calls[method.Name]++

	switch method.Name {
	case "getData":
		key := common.Hash(args[0].([32]byte))
		return method.Outputs.Pack(valueOrEmpty(c.Data[key]))
	case "getDataBatch":
		keys := args[0].([][32]byte)
		values := make([][]byte, len(keys))
		for i, k := range keys {
			values[i] = valueOrEmpty(c.Data[common.Hash(k)])
		}
		return method.Outputs.Pack(values)
	case "getDataForTokenId":
		token := common.Hash(args[0].([32]byte))
		key := common.Hash(args[1].([32]byte))
		return method.Outputs.Pack(valueOrEmpty(c.TokenData[[2]common.Hash{token, key}]))
	case "supportsInterface":
		return method.Outputs.Pack(c.Interfaces[args[0].([4]byte)])
	case "owner":
		return method.Outputs.Pack(c.Owner)
	case "balanceOf":
		balance, ok := c.Balances[args[0].(common.Address)]
		if !ok {
			balance = new(big.Int)
		}
		return method.Outputs.Pack(balance)
	}
	return nil, fmt.Errorf("%w: %s is not a read", ErrUnknownMethod, method.Name)
}

// CodeAt reports non-empty code for deployed contracts
func (b *Backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.Contracts[account]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

// PendingNonceAt returns the next nonce of account
func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

// SuggestGasPrice returns a fixed gas price
func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// ChainID returns the configured chain id
func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

// SendTransaction applies setData, setDataBatch and execute transactions
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	from, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	if tx.Nonce() != b.nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), b.nonces[from])
	}
	if tx.To() == nil {
		return errors.New("contract creation not supported")
	}

	status := types.ReceiptStatusSuccessful
	if b.Revert {
		status = types.ReceiptStatusFailed
	} else if err := b.apply(*tx.To(), tx.Data()); err != nil {
		return err
	}

	b.nonces[from]++
	b.Sent = append(b.Sent, tx)
	b.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(len(b.Sent))),
		GasUsed:     21_000,
	}
	return nil
}

func (b *Backend) apply(to common.Address, data []byte) error {
	c, ok := b.Contracts[to]
	if !ok {
		return fmt.Errorf("no contract at %s", to.Hex())
	}
	if len(data) < 4 {
		return ErrUnknownMethod
	}
	method, err := lsp.ABI.MethodById(data[:4])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownMethod, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return err
	}

	switch method.Name {
	case "setData":
		c.Data[common.Hash(args[0].([32]byte))] = args[1].([]byte)
		return nil
	case "setDataBatch":
		keys := args[0].([][32]byte)
		values := args[1].([][]byte)
		if len(keys) != len(values) {
			return errors.New("setDataBatch: length mismatch")
		}
		for i, k := range keys {
			c.Data[common.Hash(k)] = values[i]
		}
		return nil
	case "execute":
		return b.apply(c.Target, args[0].([]byte))
	}
	return fmt.Errorf("%w: %s is not a write", ErrUnknownMethod, method.Name)
}

// TransactionReceipt returns the receipt once PendingPolls lookups passed
func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	if b.polls[txHash] < b.PendingPolls {
		b.polls[txHash]++
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func valueOrEmpty(v []byte) []byte {
	if v == nil {
		return []byte{}
	}
	return v
}
