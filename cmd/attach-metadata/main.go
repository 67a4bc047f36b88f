package main

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/ipfs"
	"github.com/yourusername/lsp-examples/pkg/lsp"
	"github.com/yourusername/lsp-examples/pkg/script"
)

//go:embed sample_metadata.json
var sampleMetadata []byte

var (
	flags        script.Flags
	assetAddress string
	metadataFile string
	metadataURL  string
)

var rootCmd = &cobra.Command{
	Use:   "attach-metadata",
	Short: "Attach LSP4 metadata to an LSP7/LSP8 asset from its owner EOA",
	Long: `Reads the current LSP4Metadata of an asset, encodes a new metadata document
as a VerifiableURI and writes it with setDataBatch. Without --url the
document is referenced by the ipfs:// URL of its CIDv1; pin it there
separately.`,
	RunE: run,
}

func main() {
	flags.Register(rootCmd)
	rootCmd.Flags().StringVar(&assetAddress, "asset", "", "asset address (default: sample editable asset)")
	rootCmd.Flags().StringVar(&metadataFile, "metadata", "", "LSP4 metadata JSON file (default: built-in sample)")
	rootCmd.Flags().StringVar(&metadataURL, "url", "", "URL the metadata is published under")
	script.Main(rootCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := script.Setup(ctx, &flags, true)
	if err != nil {
		return err
	}
	defer app.Close()

	assetAddr, err := script.AddressOr(assetAddress, app.Config.Samples.EditableAssetAddress)
	if err != nil {
		return err
	}

	doc := sampleMetadata
	if metadataFile != "" {
		doc, err = os.ReadFile(metadataFile)
		if err != nil {
			return fmt.Errorf("failed to read metadata file: %w", err)
		}
	}

	asset := app.Profile(assetAddr, erc725.LSP4DigitalAsset)
	current, err := asset.GetData(ctx, "LSP4Metadata")
	if err != nil {
		return fmt.Errorf("failed to read current metadata: %w", err)
	}
	pterm.Info.Println("Current token metadata:")
	if err := script.PrintJSON(current); err != nil {
		return err
	}

	receipt, err := attachAssetMetadata(ctx, app.Client, asset, doc, metadataURL, app.Logger)
	if err != nil {
		return err
	}

	pterm.Success.Println("Token metadata updated:")
	return script.PrintJSON(receipt)
}

// encodeMetadata compacts doc and encodes it as the LSP4Metadata value.
// An empty url defaults to the ipfs:// URL of the document's CID.
func encodeMetadata(doc []byte, url string) (*erc725.Encoded, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, doc); err != nil {
		return nil, fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	content := compact.Bytes()

	if url == "" {
		var err error
		url, err = ipfs.ContentURL(content)
		if err != nil {
			return nil, fmt.Errorf("failed to derive metadata CID: %w", err)
		}
	}

	codec := erc725.New(erc725.LSP4DigitalAsset)
	return codec.EncodeData(erc725.EncodeInput{
		KeyName: "LSP4Metadata",
		Value:   erc725.NewVerifiableURI(url, content),
	})
}

// attachAssetMetadata writes new LSP4Metadata to asset from the signer
func attachAssetMetadata(ctx context.Context, client *lsp.Client, asset *lsp.Profile, doc []byte, url string, logger *zap.Logger) (*types.Receipt, error) {
	encoded, err := encodeMetadata(doc, url)
	if err != nil {
		return nil, err
	}
	logger.Info("metadata encoded",
		zap.Strings("keys", hashesToHex(encoded)),
		zap.Strings("values", encoded.HexValues()),
	)

	return client.SetDataBatch(ctx, asset.Address(), encoded.Keys, encoded.Values)
}

func hashesToHex(enc *erc725.Encoded) []string {
	out := make([]string, len(enc.Keys))
	for i, k := range enc.Keys {
		out[i] = k.Hex()
	}
	return out
}
