package main

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lsp-examples/pkg/config"
	"github.com/yourusername/lsp-examples/pkg/keys"
)

func TestCreateEOA(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir.Path = dir
	cfg.DataDir.KeysDir = filepath.Join(dir, "keys")

	address, path, err := createEOA(cfg)
	require.NoError(t, err)
	assert.True(t, common.IsHexAddress(address))
	assert.Equal(t, keys.GetKeyFilePath(cfg.DataDir.KeysDir, common.HexToAddress(address)), path)

	key, err := keys.Load(config.SignerConfig{KeyFile: path})
	require.NoError(t, err)
	assert.Equal(t, address, keys.Address(key).Hex())
}
