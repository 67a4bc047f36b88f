package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/lsp-examples/pkg/config"
	"github.com/yourusername/lsp-examples/pkg/keys"
	"github.com/yourusername/lsp-examples/pkg/script"
)

var flags script.Flags

var rootCmd = &cobra.Command{
	Use:   "create-eoa",
	Short: "Create an EOA key file to sign the write examples with",
	Long: `Generates a secp256k1 key and stores it in the keys directory. Pass the
printed path as signer.key_file (or KEY_FILE) to give-permissions and
attach-metadata, after the address was given permissions on the profile.`,
	RunE: run,
}

func main() {
	flags.Register(rootCmd)
	script.Main(rootCmd)
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := script.NewLogger(flags.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := flags.Load()
	if err != nil {
		return err
	}

	address, path, err := createEOA(cfg)
	if err != nil {
		return err
	}
	logger.Debug("key file written", zap.String("path", path))

	pterm.Success.Println(fmt.Sprintf("EOA %s created", address))
	pterm.Info.Println(fmt.Sprintf("key file: %s", path))
	return nil
}

// createEOA generates a key and saves it under the configured keys directory
func createEOA(cfg *config.Config) (string, string, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return "", "", err
	}

	key, err := keys.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}
	path, err := keys.SaveKeyFile(cfg.DataDir.KeysDir, key)
	if err != nil {
		return "", "", err
	}
	return keys.Address(key).Hex(), path, nil
}
