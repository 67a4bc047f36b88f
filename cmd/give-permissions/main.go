package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/lsp"
	"github.com/yourusername/lsp-examples/pkg/permissions"
	"github.com/yourusername/lsp-examples/pkg/script"
)

var (
	flags              script.Flags
	profileAddress     string
	beneficiaryAddress string
	permissionList     string
	addController      bool
)

var rootCmd = &cobra.Command{
	Use:   "give-permissions",
	Short: "Grant permissions on a Universal Profile to another address",
	Long: `Encodes LSP6 permissions for a beneficiary and writes them to the
Universal Profile through its Key Manager. The signer (PRIVATE_KEY or a key
file) must be a controller allowed to edit permissions.`,
	RunE: run,
}

func main() {
	flags.Register(rootCmd)
	rootCmd.Flags().StringVar(&profileAddress, "profile", "", "Universal Profile address (default: sample controlled profile)")
	rootCmd.Flags().StringVar(&beneficiaryAddress, "beneficiary", "", "address receiving the permissions (default: sample beneficiary)")
	rootCmd.Flags().StringVar(&permissionList, "permissions", "SETDATA", "comma separated permission names, or ALL_PERMISSIONS")
	rootCmd.Flags().BoolVar(&addController, "add-controller", false, "also append the beneficiary to AddressPermissions[]")
	script.Main(rootCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := script.Setup(ctx, &flags, true)
	if err != nil {
		return err
	}
	defer app.Close()

	profileAddr, err := script.AddressOr(profileAddress, app.Config.Samples.ControlledProfileAddress)
	if err != nil {
		return err
	}
	beneficiary, err := script.AddressOr(beneficiaryAddress, app.Config.Samples.BeneficiaryAddress)
	if err != nil {
		return err
	}
	perms, err := permissions.Parse(permissionList)
	if err != nil {
		return err
	}

	profile := app.Profile(profileAddr, erc725.LSP6KeyManager)
	granted, err := grantPermissions(ctx, app.Client, profile, beneficiary, perms, addController, app.Logger)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(granted, "", "  ")
	if err != nil {
		return err
	}
	pterm.Success.Println(fmt.Sprintf("The beneficiary address %s has now the following permissions:", beneficiary.Hex()))
	fmt.Println(string(out))
	return nil
}

// grantPermissions writes the permissions of beneficiary through the Key
// Manager owning profile and reads them back
func grantPermissions(ctx context.Context, client *lsp.Client, profile *lsp.Profile, beneficiary common.Address, perms map[string]bool, addController bool, logger *zap.Logger) (permissions.Decoded, error) {
	// step 1 - the Key Manager is the owner of the profile
	keyManager, err := client.Owner(ctx, profile.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to read profile owner: %w", err)
	}
	logger.Info("key manager resolved", zap.String("address", keyManager.Hex()))

	// step 2 - encode the beneficiary permissions
	value, err := permissions.EncodeHex(perms)
	if err != nil {
		return nil, err
	}

	// step 3.1 - encode the data key-value pairs
	inputs := []erc725.EncodeInput{{
		KeyName:         "AddressPermissions:Permissions:<address>",
		DynamicKeyParts: []string{beneficiary.Hex()},
		Value:           value,
	}}
	if addController {
		input, listed, err := controllerInput(ctx, profile, beneficiary)
		if err != nil {
			return nil, err
		}
		if listed {
			logger.Info("beneficiary already listed in AddressPermissions[]")
		} else {
			inputs = append(inputs, input)
		}
	}

	codec := erc725.New(erc725.LSP6KeyManager)
	data, err := codec.EncodeData(inputs...)
	if err != nil {
		return nil, err
	}

	// step 3.2 - encode the payload for the Key Manager
	var payload []byte
	if len(data.Keys) == 1 {
		payload, err = lsp.PackSetData(data.Keys[0], data.Values[0])
	} else {
		keys := make([][32]byte, len(data.Keys))
		for i, k := range data.Keys {
			keys[i] = k
		}
		payload, err = lsp.PackSetDataBatch(keys, data.Values)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	// step 4 - send the transaction via the Key Manager
	receipt, err := client.Execute(ctx, keyManager, payload)
	if err != nil {
		return nil, err
	}
	logger.Info("permissions updated",
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed),
	)

	raw, err := client.GetData(ctx, profile.Address(), data.Keys[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read back permissions: %w", err)
	}
	return permissions.Decode(raw)
}

// controllerInput builds the AddressPermissions[] append for beneficiary and
// reports whether it is already listed
func controllerInput(ctx context.Context, profile *lsp.Profile, beneficiary common.Address) (erc725.EncodeInput, bool, error) {
	current, err := profile.GetData(ctx, "AddressPermissions[]")
	if err != nil {
		return erc725.EncodeInput{}, false, fmt.Errorf("failed to read AddressPermissions[]: %w", err)
	}
	items, _ := current.Value.([]any)
	for _, item := range items {
		if s, ok := item.(string); ok && strings.EqualFold(s, beneficiary.Hex()) {
			return erc725.EncodeInput{}, true, nil
		}
	}

	n := uint64(len(items))
	return erc725.EncodeInput{
		KeyName:          "AddressPermissions[]",
		Value:            []any{beneficiary.Hex()},
		StartingIndex:    n,
		TotalArrayLength: n + 1,
	}, false, nil
}
