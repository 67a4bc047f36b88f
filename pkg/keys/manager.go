package keys

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/yourusername/lsp-examples/pkg/config"
)

var (
	ErrNoSigner       = errors.New("no signer configured: set PRIVATE_KEY or signer.key_file")
	ErrPlaceholderKey = errors.New("private key is still the 0x... placeholder")
)

// KeyFile represents the key file for an EOA controller
type KeyFile struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// ParsePrivateKey parses a hex private key with or without 0x prefix
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, ErrNoSigner
	}
	if strings.Contains(hexKey, "...") {
		return nil, ErrPlaceholderKey
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// GenerateKey creates a new secp256k1 key
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Address returns the EOA address of a private key
func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// GetKeyFilePath returns the path for an EOA's key file
func GetKeyFilePath(dir string, addr common.Address) string {
	return filepath.Join(dir, fmt.Sprintf("eoa_%s.json", strings.ToLower(addr.Hex())))
}

// SaveKeyFile saves a key file to disk and returns its path
func SaveKeyFile(dir string, key *ecdsa.PrivateKey) (string, error) {
	addr := Address(key)
	keyFile := &KeyFile{
		Address:    addr.Hex(),
		PrivateKey: "0x" + common.Bytes2Hex(crypto.FromECDSA(key)),
	}

	data, err := json.MarshalIndent(keyFile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal key file: %w", err)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := GetKeyFilePath(dir, addr)
	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}

	return path, nil
}

// LoadKeyFile loads a key file from disk
func LoadKeyFile(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("key file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var keyFile KeyFile
	if err := json.Unmarshal(data, &keyFile); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}

	key, err := ParsePrivateKey(keyFile.PrivateKey)
	if err != nil {
		return nil, err
	}
	if keyFile.Address != "" && !strings.EqualFold(keyFile.Address, Address(key).Hex()) {
		return nil, fmt.Errorf("key file address %s does not match key address %s", keyFile.Address, Address(key).Hex())
	}

	return key, nil
}

// KeyFileExists checks if a key file exists
func KeyFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load returns the signer configured by a private key or a key file
func Load(cfg config.SignerConfig) (*ecdsa.PrivateKey, error) {
	if cfg.PrivateKey != "" {
		return ParsePrivateKey(cfg.PrivateKey)
	}
	if cfg.KeyFile != "" {
		return LoadKeyFile(cfg.KeyFile)
	}
	return nil, ErrNoSigner
}
