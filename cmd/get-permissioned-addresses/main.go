package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/lsp"
	"github.com/yourusername/lsp-examples/pkg/permissions"
	"github.com/yourusername/lsp-examples/pkg/script"
)

var (
	flags          script.Flags
	profileAddress string
)

var rootCmd = &cobra.Command{
	Use:   "get-permissioned-addresses",
	Short: "List the controllers of a Universal Profile and their permissions",
	RunE:  run,
}

func main() {
	flags.Register(rootCmd)
	rootCmd.Flags().StringVar(&profileAddress, "profile", "", "Universal Profile address (default: sample profile)")
	script.Main(rootCmd)
}

// controller is an address listed in AddressPermissions[] with its permissions
type controller struct {
	Address     common.Address
	Permissions permissions.Decoded
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

	controllers, err := getPermissionedAddresses(ctx, app.Profile(profileAddr, erc725.LSP6KeyManager))
	if err != nil {
		return err
	}

	for _, c := range controllers {
		out, err := json.MarshalIndent(c.Permissions, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("decoded permission for %s = %s\n", c.Address.Hex(), out)
	}
	return nil
}

// getPermissionedAddresses reads AddressPermissions[] and the permissions
// of every listed address
func getPermissionedAddresses(ctx context.Context, profile *lsp.Profile) ([]controller, error) {
	list, err := profile.GetData(ctx, "AddressPermissions[]")
	if err != nil {
		return nil, fmt.Errorf("failed to read AddressPermissions[]: %w", err)
	}
	items, _ := list.Value.([]any)

	controllers := make([]controller, 0, len(items))
	for _, item := range items {
		address, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected AddressPermissions[] entry %v", item)
		}

		value, err := profile.GetData(ctx, "AddressPermissions:Permissions:<address>", address)
		if err != nil {
			return nil, fmt.Errorf("failed to read permissions of %s: %w", address, err)
		}

		var decoded permissions.Decoded
		if raw, ok := value.Value.(string); ok {
			decoded, err = permissions.DecodeHex(raw)
		} else {
			decoded, err = permissions.Decode(nil)
		}
		if err != nil {
			return nil, err
		}

		controllers = append(controllers, controller{Address: common.HexToAddress(address), Permissions: decoded})
	}
	return controllers, nil
}
