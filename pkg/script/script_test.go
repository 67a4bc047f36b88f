package script

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFlagsOverrideConfig(t *testing.T) {
	t.Setenv("LUKSO_RPC_URL", "https://env.example")
	t.Setenv("IPFS_GATEWAY", "")
	t.Setenv("DB_PATH", "")

	dbPath := filepath.Join(t.TempDir(), "cache.db")
	flags := &Flags{Gateway: "https://gw.example/ipfs", DBPath: dbPath, NoVerify: true}

	cfg, err := flags.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.RPC.URL)
	assert.Equal(t, "https://gw.example/ipfs", cfg.IPFS.Gateway)
	assert.Equal(t, dbPath, cfg.Database.Path)
	assert.True(t, cfg.Database.Enabled)
	assert.False(t, cfg.IPFS.Verify)

	flags.RPCURL = "https://flag.example"
	cfg, err = flags.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example", cfg.RPC.URL)
}

func TestRegisterFlags(t *testing.T) {
	var flags Flags
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	flags.Register(cmd)

	require.NoError(t, cmd.ParseFlags([]string{"--rpc", "https://x.example", "-v", "--no-verify"}))
	assert.Equal(t, "https://x.example", flags.RPCURL)
	assert.True(t, flags.Verbose)
	assert.True(t, flags.NoVerify)
}

func TestAddressOr(t *testing.T) {
	addr, err := AddressOr("", "0x0Ac71c67Fa5E4c9d4af4f99d7Ad6132936C2d6A3")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x0Ac71c67Fa5E4c9d4af4f99d7Ad6132936C2d6A3"), addr)

	addr, err = AddressOr("0xcafecafecafecafecafecafecafecafecafecafe", "0x0Ac71c67Fa5E4c9d4af4f99d7Ad6132936C2d6A3")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xcafecafecafecafecafecafecafecafecafecafe"), addr)

	_, err = AddressOr("0x1234", "")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
