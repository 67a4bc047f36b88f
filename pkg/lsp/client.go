// Package lsp calls LUKSO standard contracts (ERC725Y stores, LSP7/LSP8
// assets and the LSP6 Key Manager) over JSON-RPC.
package lsp

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/yourusername/lsp-examples/pkg/config"
	"github.com/yourusername/lsp-examples/pkg/keys"
	"github.com/yourusername/lsp-examples/pkg/storage"
)

var (
	ErrNoCode   = errors.New("lsp: no contract code at address")
	ErrTxFailed = errors.New("lsp: transaction reverted")
	ErrTimeout  = errors.New("lsp: transaction not mined")
)

// Backend is the subset of ethclient.Client the client needs
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TxRecorder keeps track of sent transactions
type TxRecorder interface {
	SaveTransaction(record *storage.TransactionRecord) error
}

// Client calls LSP contracts through a Backend
type Client struct {
	backend  Backend
	key      *ecdsa.PrivateKey
	gasLimit uint64
	polling  config.PollingConfig
	logger   *zap.Logger
	recorder TxRecorder
}

// Option configures a Client
type Option func(*Client)

// WithSigner sets the EOA used for writes
func WithSigner(key *ecdsa.PrivateKey) Option {
	return func(c *Client) { c.key = key }
}

// WithGasLimit sets the gas limit of sent transactions
func WithGasLimit(limit uint64) Option {
	return func(c *Client) { c.gasLimit = limit }
}

// WithPolling sets how long writes wait for a receipt
func WithPolling(p config.PollingConfig) Option {
	return func(c *Client) { c.polling = p }
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRecorder records sent transactions and their outcome
func WithRecorder(r TxRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient creates a client over an existing backend
func NewClient(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend:  backend,
		gasLimit: 300_000,
		polling:  config.PollingConfig{MaxAttempts: 120, IntervalMS: 1000},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to a JSON-RPC endpoint
func Dial(ctx context.Context, cfg config.RPCConfig, opts ...Option) (*Client, error) {
	if cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	ec, err := ethclient.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.URL, err)
	}
	return NewClient(ec, opts...), nil
}

// Close releases the underlying connection
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// From returns the signer address, or the zero address without a signer
func (c *Client) From() common.Address {
	if c.key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(c.key.PublicKey)
}

// call packs a read-only method call, runs it and unpacks the outputs
func (c *Client) call(ctx context.Context, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	output, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call to %s failed: %w", method, to.Hex(), err)
	}

	if len(output) == 0 {
		code, err := c.backend.CodeAt(ctx, to, nil)
		if err == nil && len(code) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoCode, to.Hex())
		}
	}

	values, err := ABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return values, nil
}

// GetData reads one ERC725Y value
func (c *Client) GetData(ctx context.Context, address common.Address, key common.Hash) ([]byte, error) {
	out, err := c.call(ctx, address, "getData", [32]byte(key))
	if err != nil {
		return nil, err
	}
	return out[0].([]byte), nil
}

// GetDataBatch reads several ERC725Y values in one call
func (c *Client) GetDataBatch(ctx context.Context, address common.Address, keys []common.Hash) ([][]byte, error) {
	out, err := c.call(ctx, address, "getDataBatch", toBytes32(keys))
	if err != nil {
		return nil, err
	}
	return out[0].([][]byte), nil
}

// GetDataForTokenID reads a value stored for a single LSP8 token
func (c *Client) GetDataForTokenID(ctx context.Context, address common.Address, tokenID, key common.Hash) ([]byte, error) {
	out, err := c.call(ctx, address, "getDataForTokenId", [32]byte(tokenID), [32]byte(key))
	if err != nil {
		return nil, err
	}
	return out[0].([]byte), nil
}

// SupportsInterface runs the ERC165 check
func (c *Client) SupportsInterface(ctx context.Context, address common.Address, id [4]byte) (bool, error) {
	out, err := c.call(ctx, address, "supportsInterface", id)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// Owner returns the owner of a contract. The owner of a Universal Profile
// is its Key Manager.
func (c *Client) Owner(ctx context.Context, address common.Address) (common.Address, error) {
	out, err := c.call(ctx, address, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// BalanceOf returns the LSP7/LSP8 balance of holder
func (c *Client) BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error) {
	out, err := c.call(ctx, asset, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// ChainID returns the chain id of the connected node
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.backend.ChainID(ctx)
}

// SetData writes one ERC725Y value from the signer
func (c *Client) SetData(ctx context.Context, address common.Address, key common.Hash, value []byte) (*types.Receipt, error) {
	input, err := PackSetData([32]byte(key), value)
	if err != nil {
		return nil, fmt.Errorf("failed to pack setData: %w", err)
	}
	return c.transact(ctx, address, "setData", input)
}

// SetDataBatch writes several ERC725Y values in one transaction
func (c *Client) SetDataBatch(ctx context.Context, address common.Address, keys []common.Hash, values [][]byte) (*types.Receipt, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("setDataBatch: %d keys but %d values", len(keys), len(values))
	}
	input, err := PackSetDataBatch(toBytes32(keys), values)
	if err != nil {
		return nil, fmt.Errorf("failed to pack setDataBatch: %w", err)
	}
	return c.transact(ctx, address, "setDataBatch", input)
}

// Execute sends an ABI-encoded payload through a Key Manager
func (c *Client) Execute(ctx context.Context, keyManager common.Address, payload []byte) (*types.Receipt, error) {
	input, err := ABI.Pack("execute", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to pack execute: %w", err)
	}
	return c.transact(ctx, keyManager, "execute", input)
}

// transact signs a legacy transaction, sends it and waits for the receipt
func (c *Client) transact(ctx context.Context, to common.Address, method string, input []byte) (*types.Receipt, error) {
	if c.key == nil {
		return nil, keys.ErrNoSigner
	}
	from := c.From()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      c.gasLimit,
		To:       &to,
		Data:     input,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}
	c.logger.Info("transaction sent",
		zap.String("method", method),
		zap.String("to", to.Hex()),
		zap.String("hash", signed.Hash().Hex()),
	)
	c.record(signed.Hash(), to, method, "pending", 0)

	receipt, err := c.WaitMined(ctx, signed.Hash())
	if receipt != nil {
		status := "success"
		if receipt.Status != types.ReceiptStatusSuccessful {
			status = "failed"
		}
		c.record(signed.Hash(), to, method, status, receipt.BlockNumber.Uint64())
	}
	return receipt, err
}

// WaitMined polls until a receipt is available
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	interval := time.Duration(c.polling.IntervalMS) * time.Millisecond
	for attempt := 1; attempt <= c.polling.MaxAttempts; attempt++ {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrTxFailed, hash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("poll attempt %d failed: %w", attempt, err)
		}

		c.logger.Debug("waiting for receipt", zap.String("hash", hash.Hex()), zap.Int("attempt", attempt))
		if attempt < c.polling.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts", ErrTimeout, hash.Hex(), c.polling.MaxAttempts)
}

func (c *Client) record(hash common.Hash, to common.Address, method, status string, block uint64) {
	if c.recorder == nil {
		return
	}
	err := c.recorder.SaveTransaction(&storage.TransactionRecord{
		Hash:        hash.Hex(),
		Contract:    to.Hex(),
		Method:      method,
		Status:      status,
		BlockNumber: block,
	})
	if err != nil {
		c.logger.Warn("failed to record transaction", zap.String("hash", hash.Hex()), zap.Error(err))
	}
}

func toBytes32(keys []common.Hash) [][32]byte {
	out := make([][32]byte, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}
