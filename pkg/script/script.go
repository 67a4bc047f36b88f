// Package script holds the bootstrap shared by the example programs.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yourusername/lsp-examples/pkg/config"
	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/ipfs"
	"github.com/yourusername/lsp-examples/pkg/keys"
	"github.com/yourusername/lsp-examples/pkg/lsp"
	"github.com/yourusername/lsp-examples/pkg/storage"
)

var ErrInvalidAddress = errors.New("invalid address")

// Flags are the command line options every example accepts
type Flags struct {
	ConfigFile string
	RPCURL     string
	Gateway    string
	DBPath     string
	NoVerify   bool
	Verbose    bool
}

// Register binds the flags to a command
func (f *Flags) Register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.ConfigFile, "config", "", "path to a YAML config file")
	pf.StringVar(&f.RPCURL, "rpc", "", "JSON-RPC endpoint (overrides config)")
	pf.StringVar(&f.Gateway, "gateway", "", "IPFS gateway (overrides config)")
	pf.StringVar(&f.DBPath, "db", "", "SQLite cache path; enables the cache")
	pf.BoolVar(&f.NoVerify, "no-verify", false, "skip hash checks of fetched metadata")
	pf.BoolVarP(&f.Verbose, "verbose", "v", false, "enable debug logging")
}

// Load reads the config file, then applies env and flag overrides
func (f *Flags) Load() (*config.Config, error) {
	cfg, err := config.LoadConfig(f.ConfigFile)
	if err != nil {
		return nil, err
	}
	if f.RPCURL != "" {
		cfg.RPC.URL = f.RPCURL
	}
	if f.Gateway != "" {
		cfg.IPFS.Gateway = f.Gateway
	}
	if f.DBPath != "" {
		cfg.Database.Path = f.DBPath
		cfg.Database.Enabled = true
	}
	if f.NoVerify {
		cfg.IPFS.Verify = false
	}
	return cfg, nil
}

// NewLogger builds a production zap logger, at debug level when verbose
func NewLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// App is everything an example needs to talk to the chain
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Client  *lsp.Client
	Fetcher *ipfs.Fetcher
	Store   *storage.Store
}

// Setup loads config, opens the optional cache and dials the node. When
// withSigner is set the signer key must be configured.
func Setup(ctx context.Context, flags *Flags, withSigner bool) (*App, error) {
	logger, err := NewLogger(flags.Verbose)
	if err != nil {
		return nil, err
	}
	cfg, err := flags.Load()
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}

	var cache ipfs.Cache
	if cfg.Database.Enabled {
		store, err := storage.NewStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		app.Store = store
		cache = store
		logger.Debug("cache enabled", zap.String("path", cfg.Database.Path))
	}
	app.Fetcher = ipfs.NewFetcher(cfg.IPFS, logger, cache)

	opts := []lsp.Option{
		lsp.WithLogger(logger),
		lsp.WithGasLimit(cfg.Signer.GasLimit),
		lsp.WithPolling(cfg.Polling),
	}
	if app.Store != nil {
		opts = append(opts, lsp.WithRecorder(app.Store))
	}
	if withSigner {
		key, err := keys.Load(cfg.Signer)
		if err != nil {
			app.Close()
			return nil, err
		}
		opts = append(opts, lsp.WithSigner(key))
		logger.Info("signer loaded", zap.String("address", keys.Address(key).Hex()))
	}

	client, err := lsp.Dial(ctx, cfg.RPC, opts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Client = client
	logger.Debug("connected", zap.String("rpc", cfg.RPC.URL))

	return app, nil
}

// Profile returns a schema-aware view of address over the app's client
func (a *App) Profile(address common.Address, sets ...erc725.Schemas) *lsp.Profile {
	p := lsp.NewProfile(a.Client, address, erc725.New(sets...), a.Fetcher)
	if a.Store != nil {
		p.WithSnapshots(a.Store)
	}
	return p
}

// Close releases the client, the cache and flushes the logger
func (a *App) Close() {
	if a.Client != nil {
		a.Client.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

// ParseAddress validates a hex address argument
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// AddressOr parses flagValue, or fallback when the flag was not given
func AddressOr(flagValue, fallback string) (common.Address, error) {
	if flagValue != "" {
		return ParseAddress(flagValue)
	}
	return ParseAddress(fallback)
}

// Step prints the header of a numbered step
func Step(n int) {
	pterm.DefaultSection.Println(fmt.Sprintf("step %d -----", n))
}

// PrintJSON prints v as indented JSON on stdout
func PrintJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// Main runs a root command and exits 1 on error
func Main(cmd *cobra.Command) {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}
