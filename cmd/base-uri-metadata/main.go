package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/lsp"
	"github.com/yourusername/lsp-examples/pkg/script"
)

var (
	errNotLSP8        = errors.New("asset is not an LSP8")
	errNoBaseURI      = errors.New("base URI is not set")
	errInterfaceCheck = errors.New("could not check for LSP8 interface")
)

// mixedFormatThreshold is the first LSP8TokenIdFormat value of the mixed formats
const mixedFormatThreshold = 100

var (
	flags        script.Flags
	assetAddress string
	tokenID      string
)

var rootCmd = &cobra.Command{
	Use:   "base-uri-metadata",
	Short: "Fetch the metadata of an LSP8 token through LSP8TokenMetadataBaseURI",
	RunE:  run,
}

func main() {
	flags.Register(rootCmd)
	rootCmd.Flags().StringVar(&assetAddress, "asset", "", "LSP8 asset address (default: sample LSP8 asset)")
	rootCmd.Flags().StringVar(&tokenID, "token-id", "", "bytes32 token id (default: sample token id)")
	script.Main(rootCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := script.Setup(ctx, &flags, false)
	if err != nil {
		return err
	}
	defer app.Close()

	asset, err := script.AddressOr(assetAddress, app.Config.Samples.LSP8AssetAddress)
	if err != nil {
		return err
	}
	id, err := parseTokenID(tokenID, app.Config.Samples.TokenID)
	if err != nil {
		return err
	}

	codec := erc725.New(erc725.LSP8IdentifiableDigitalAsset)

	format, err := getTokenIDFormat(ctx, app.Client, codec, asset)
	if err != nil {
		pterm.Error.Println("Could not retrieve LSP8TokenIdFormat. Please provide an LSP8 asset address.")
		return err
	}
	fmt.Println("Token ID Format: ", format)

	link, err := tokenMetadataURL(ctx, app.Client, codec, asset, id, format)
	switch {
	case errors.Is(err, errNotLSP8):
		fmt.Println("Asset is not an LSP8.")
		return nil
	case errors.Is(err, errNoBaseURI):
		fmt.Println("BaseURI is not set.")
		return nil
	case errors.Is(err, errInterfaceCheck):
		pterm.Error.Println("Could not check for LSP8 interface. Please provide an LSP8 asset address.")
		return err
	case err != nil:
		return err
	}

	var metadata any
	if err := app.Fetcher.FetchJSON(ctx, link, &metadata); err != nil {
		return err
	}
	fmt.Print("Metadata Contents: ")
	return script.PrintJSON(metadata)
}

func parseTokenID(flagValue, fallback string) (common.Hash, error) {
	s := flagValue
	if s == "" {
		s = fallback
	}
	raw, err := hexutil.Decode(s)
	if err != nil || len(raw) > common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid token id %q: expected up to 32 hex bytes", s)
	}
	return common.BytesToHash(raw), nil
}

// getTokenIDFormat reads the global LSP8TokenIdFormat of an asset
func getTokenIDFormat(ctx context.Context, client *lsp.Client, codec *erc725.ERC725, asset common.Address) (*big.Int, error) {
	key, err := codec.EncodeKeyName("LSP8TokenIdFormat")
	if err != nil {
		return nil, err
	}
	raw, err := client.GetData(ctx, asset, key)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

// tokenMetadataURL builds the metadata URL of tokenID from the base URI
func tokenMetadataURL(ctx context.Context, client *lsp.Client, codec *erc725.ERC725, asset common.Address, tokenID common.Hash, format *big.Int) (string, error) {
	isLSP8, err := client.SupportsInterface(ctx, asset, lsp.InterfaceLSP8)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInterfaceCheck, err)
	}
	if !isLSP8 {
		return "", errNotLSP8
	}

	baseURIKey, err := codec.EncodeKeyName("LSP8TokenMetadataBaseURI")
	if err != nil {
		return "", err
	}
	baseURI, err := client.GetData(ctx, asset, baseURIKey)
	if err != nil {
		return "", err
	}
	if len(baseURI) == 0 {
		return "", errNoBaseURI
	}

	// Mixed formats store a per-token value under the LSP8TokenIdFormat key
	if format.Cmp(big.NewInt(mixedFormatThreshold)) >= 0 {
		formatKey, err := codec.EncodeKeyName("LSP8TokenIdFormat")
		if err != nil {
			return "", err
		}
		baseURI, err = client.GetDataForTokenID(ctx, asset, tokenID, formatKey)
		if err != nil {
			return "", fmt.Errorf("failed to read token data: %w", err)
		}
	}

	decoded, err := codec.DecodeData(erc725.DecodeInput{KeyName: "LSP8TokenMetadataBaseURI", Value: baseURI})
	if err != nil {
		return "", err
	}
	uri, ok := decoded[0].Value.(erc725.VerifiableURI)
	if !ok {
		return "", errNoBaseURI
	}
	return uri.URL + tokenID.Hex(), nil
}
