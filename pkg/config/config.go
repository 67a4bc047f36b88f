package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the LSP example programs
type Config struct {
	RPC      RPCConfig      `yaml:"rpc"`
	IPFS     IPFSConfig     `yaml:"ipfs"`
	Signer   SignerConfig   `yaml:"signer"`
	Database DatabaseConfig `yaml:"database"`
	DataDir  DataDirConfig  `yaml:"data_dir"`
	Polling  PollingConfig  `yaml:"polling"`
	Samples  SamplesConfig  `yaml:"samples"`
}

// RPCConfig contains JSON-RPC node connection settings
type RPCConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// IPFSConfig contains gateway settings for resolving ipfs:// URLs
type IPFSConfig struct {
	Gateway        string `yaml:"gateway"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Verify         bool   `yaml:"verify"`
}

// SignerConfig contains the EOA used for write examples
type SignerConfig struct {
	PrivateKey string `yaml:"private_key"`
	KeyFile    string `yaml:"key_file"`
	GasLimit   uint64 `yaml:"gas_limit"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// DataDirConfig contains data directory settings
type DataDirConfig struct {
	Path    string `yaml:"path"`     // Base data directory
	KeysDir string `yaml:"keys_dir"` // Where signer key files are stored
}

// PollingConfig controls how long writes wait for a receipt
type PollingConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	IntervalMS  int `yaml:"interval_ms"`
}

// SamplesConfig holds the sample contracts the examples read from
type SamplesConfig struct {
	ProfileAddress           string `yaml:"profile_address"`
	ControlledProfileAddress string `yaml:"controlled_profile_address"`
	AssetAddress             string `yaml:"asset_address"`
	EditableAssetAddress     string `yaml:"editable_asset_address"`
	LSP8AssetAddress         string `yaml:"lsp8_asset_address"`
	TokenID                  string `yaml:"token_id"`
	BeneficiaryAddress       string `yaml:"beneficiary_address"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".lsp-examples")

	return &Config{
		RPC: RPCConfig{
			URL:            "https://rpc.testnet.lukso.network",
			TimeoutSeconds: 30,
		},
		IPFS: IPFSConfig{
			Gateway:        "https://api.universalprofile.cloud/ipfs",
			TimeoutSeconds: 30,
			Verify:         true,
		},
		Signer: SignerConfig{
			GasLimit: 300_000,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "lsp-examples.db"),
		},
		DataDir: DataDirConfig{
			Path:    dataDir,
			KeysDir: filepath.Join(dataDir, "keys"),
		},
		Polling: PollingConfig{
			MaxAttempts: 120, // Wait up to 2 minutes
			IntervalMS:  1000,
		},
		Samples: SamplesConfig{
			ProfileAddress:           "0x0Ac71c67Fa5E4c9d4af4f99d7Ad6132936C2d6A3",
			ControlledProfileAddress: "0xC26508178c4D7d3Ad43Dcb9F9bb1fab9ceeD58B5",
			AssetAddress:             "0xfE85568Fea15A7ED3c56F7ca6544F2b96Aeb1774",
			EditableAssetAddress:     "0xdb86734b1e27F9A1e73627af6238171BD7d3716C",
			LSP8AssetAddress:         "0x8734600968c7e7193bb9b1b005677b4edbadcd18",
			TokenID:                  "0x0000000000000000000000000000000000000000000000000000000000000001",
			BeneficiaryAddress:       "0xcafecafecafecafecafecafecafecafecafecafe",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(cfgFile string) (*Config, error) {
	cfg := DefaultConfig()

	if cfgFile != "" {
		data, err := os.ReadFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if val := os.Getenv("LUKSO_RPC_URL"); val != "" {
		c.RPC.URL = val
	}
	if val := os.Getenv("IPFS_GATEWAY"); val != "" {
		c.IPFS.Gateway = val
	}
	if val := os.Getenv("PRIVATE_KEY"); val != "" {
		c.Signer.PrivateKey = val
	}
	if val := os.Getenv("KEY_FILE"); val != "" {
		c.Signer.KeyFile = val
	}
	if val := os.Getenv("GAS_LIMIT"); val != "" {
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GAS_LIMIT %q: %w", val, err)
		}
		c.Signer.GasLimit = n
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		c.Database.Path = val
		c.Database.Enabled = true
	}
	return nil
}

// EnsureDataDir creates the data and keys directories
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir.Path, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(c.DataDir.KeysDir, 0700); err != nil { // Keys dir should be more restrictive
		return fmt.Errorf("failed to create keys directory: %w", err)
	}
	return nil
}
