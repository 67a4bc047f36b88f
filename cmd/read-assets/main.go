package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/lsp"
	"github.com/yourusername/lsp-examples/pkg/script"
)

var (
	flags          script.Flags
	profileAddress string
	assetAddress   string
	showOwned      bool
)

var rootCmd = &cobra.Command{
	Use:   "read-assets",
	Short: "Read the assets of a Universal Profile and fetch an asset's metadata",
	Long: `Walks through reading LSP5ReceivedAssets[] of a Universal Profile, checking an
asset for the ERC725Y interface, reading and decoding its LSP4Metadata and
fetching the JSON document it points to.`,
	RunE: run,
}

func main() {
	flags.Register(rootCmd)
	rootCmd.Flags().StringVar(&profileAddress, "profile", "", "Universal Profile address (default: sample profile)")
	rootCmd.Flags().StringVar(&assetAddress, "asset", "", "digital asset address (default: sample asset)")
	rootCmd.Flags().BoolVar(&showOwned, "owned", false, "also list received assets with a non-zero balance")
	script.Main(rootCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := script.Setup(ctx, &flags, false)
	if err != nil {
		return err
	}
	defer app.Close()

	profileAddr, err := script.AddressOr(profileAddress, app.Config.Samples.ProfileAddress)
	if err != nil {
		return err
	}
	assetAddr, err := script.AddressOr(assetAddress, app.Config.Samples.AssetAddress)
	if err != nil {
		return err
	}

	script.Step(1)
	profile := app.Profile(profileAddr, erc725.LSP3UniversalProfileMetadata, erc725.LSP5ReceivedAssets)
	receivedAssets, err := fetchReceivedAssets(ctx, profile)
	if err != nil {
		app.Logger.Debug("received assets read failed", zap.Error(err))
		fmt.Println("Could not fetch UP's received assets. Check that this address is an ERC725 Contract")
	}
	fmt.Println(receivedAssets)

	if showOwned {
		script.Step(2)
		owned, err := fetchOwnedAssets(ctx, app.Client, profileAddr, receivedAssets)
		if err != nil {
			return fmt.Errorf("failed to check balances: %w", err)
		}
		fmt.Println(owned)
	}

	script.Step(3)
	fmt.Println(checkERC725YInterface(ctx, app.Profile(assetAddr, erc725.LSP4DigitalAsset), app.Logger))

	script.Step(4)
	codec := erc725.New(erc725.LSP4DigitalAsset)
	metadataKey, err := codec.EncodeKeyName("LSP4Metadata")
	if err != nil {
		return err
	}
	encoded, err := app.Client.GetData(ctx, assetAddr, metadataKey)
	if err != nil {
		pterm.Error.Println("Data of assets address could not be loaded")
		return err
	}
	fmt.Println(hexutil.Encode(encoded))

	script.Step(5)
	decoded, err := decodeAssetData(codec, encoded)
	if err != nil {
		pterm.Error.Println("Data of an asset could not be decoded")
		return err
	}
	if err := script.PrintJSON(decoded); err != nil {
		return err
	}

	script.Step(6)
	uri, ok := decoded.Value.(erc725.VerifiableURI)
	if !ok {
		return fmt.Errorf("LSP4Metadata of %s is not set", assetAddr.Hex())
	}
	link, err := app.Fetcher.ResolveURL(uri.URL)
	if err != nil {
		pterm.Error.Println("URL could not be fetched")
		return err
	}
	fmt.Println(link)

	script.Step(7)
	body, err := app.Fetcher.FetchVerified(ctx, uri)
	if err != nil {
		pterm.Error.Println("JSON data of IPFS link could not be fetched")
		return err
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("invalid metadata JSON: %w", err)
	}
	return script.PrintJSON(doc)
}

// fetchReceivedAssets reads LSP5ReceivedAssets[] of a profile
func fetchReceivedAssets(ctx context.Context, profile *lsp.Profile) ([]common.Address, error) {
	value, err := profile.GetData(ctx, "LSP5ReceivedAssets[]")
	if err != nil {
		return nil, err
	}
	items, _ := value.Value.([]any)
	assets := make([]common.Address, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected received asset entry %v", item)
		}
		assets = append(assets, common.HexToAddress(s))
	}
	return assets, nil
}

// fetchOwnedAssets keeps the assets owner holds a balance of. Balances are
// read concurrently; the result keeps the order of assets.
func fetchOwnedAssets(ctx context.Context, client *lsp.Client, owner common.Address, assets []common.Address) ([]common.Address, error) {
	balances := make([]*big.Int, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			balance, err := client.BalanceOf(gctx, asset, owner)
			if err != nil {
				return fmt.Errorf("balanceOf on %s: %w", asset.Hex(), err)
			}
			balances[i] = balance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var owned []common.Address
	for i, balance := range balances {
		if balance.Sign() > 0 {
			owned = append(owned, assets[i])
		}
	}
	return owned, nil
}

// checkERC725YInterface reports whether asset has a key-value store.
// Errors are logged and count as unsupported.
func checkERC725YInterface(ctx context.Context, asset *lsp.Profile, logger *zap.Logger) bool {
	ok, err := asset.SupportsERC725Y(ctx)
	if err != nil {
		logger.Warn("Address could not be checked for ERC725 interface", zap.String("asset", asset.Address().Hex()), zap.Error(err))
		return false
	}
	return ok
}

func decodeAssetData(codec *erc725.ERC725, encoded []byte) (erc725.DataValue, error) {
	values, err := codec.DecodeData(erc725.DecodeInput{KeyName: "LSP4Metadata", Value: encoded})
	if err != nil {
		return erc725.DataValue{}, err
	}
	return values[0], nil
}
