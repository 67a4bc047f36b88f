package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/yourusername/lsp-examples/pkg/erc725"
	"github.com/yourusername/lsp-examples/pkg/script"
	"github.com/yourusername/lsp-examples/pkg/storage"
)

var (
	flags      script.Flags
	address    string
	schemaList string
	fetch      bool
	listKeys   bool
)

var rootCmd = &cobra.Command{
	Use:   "get-data <key name> [dynamic parts...]",
	Short: "Read and decode any ERC725Y key of a contract",
	Example: `  get-data LSP3Profile --fetch
  get-data "AddressPermissions:Permissions:<address>" 0xcafecafecafecafecafecafecafecafecafecafe
  get-data --list --schemas lsp6`,
	RunE: run,
}

func main() {
	flags.Register(rootCmd)
	rootCmd.Flags().StringVar(&address, "address", "", "ERC725Y contract address (default: sample profile)")
	rootCmd.Flags().StringVar(&schemaList, "schemas", "lsp3,lsp4,lsp5,lsp6,lsp8", "comma separated schema sets")
	rootCmd.Flags().BoolVar(&fetch, "fetch", false, "fetch the JSON document of VerifiableURI values")
	rootCmd.Flags().BoolVar(&listKeys, "list", false, "list the key names of the selected schema sets")
	script.Main(rootCmd)
}

func run(cmd *cobra.Command, args []string) error {
	sets, err := schemaSets(schemaList)
	if err != nil {
		return err
	}

	if listKeys {
		data := pterm.TableData{{"Name", "Key", "Value"}}
		for _, s := range erc725.Merge(sets...) {
			data = append(data, []string{s.Name, s.Key, s.ValueContent})
		}
		return pterm.DefaultTable.WithHasHeader(true).WithData(data).Render()
	}
	if len(args) == 0 {
		return fmt.Errorf("a key name is required (see --list)")
	}

	ctx := cmd.Context()
	app, err := script.Setup(ctx, &flags, false)
	if err != nil {
		return err
	}
	defer app.Close()

	addr, err := script.AddressOr(address, app.Config.Samples.ProfileAddress)
	if err != nil {
		return err
	}
	name, parts := args[0], args[1:]

	profile := app.Profile(addr, sets...)
	key, err := erc725.New(sets...).EncodeKeyName(name, parts...)
	if err != nil {
		return err
	}

	var previous *storage.SnapshotRecord
	if app.Store != nil {
		previous, err = app.Store.LatestSnapshot(addr.Hex(), key.Hex())
		if err != nil {
			return err
		}
	}

	var value erc725.DataValue
	if fetch {
		value, err = profile.FetchData(ctx, name, parts...)
	} else {
		value, err = profile.GetData(ctx, name, parts...)
	}
	if err != nil {
		return err
	}
	if err := script.PrintJSON(value); err != nil {
		return err
	}

	if previous != nil {
		latest, err := app.Store.LatestSnapshot(addr.Hex(), key.Hex())
		if err != nil {
			return err
		}
		if latest != nil && latest.Value != previous.Value {
			pterm.Warning.Println(fmt.Sprintf("value changed since %s (was %s)", previous.ReadAt.Format("2006-01-02 15:04:05"), previous.Value))
		} else {
			pterm.Info.Println(fmt.Sprintf("value unchanged since %s", previous.ReadAt.Format("2006-01-02 15:04:05")))
		}
	}
	return nil
}

// schemaSets resolves a comma separated list of schema set names
func schemaSets(list string) ([]erc725.Schemas, error) {
	var sets []erc725.Schemas
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		set, ok := erc725.SchemaSets[name]
		if !ok {
			known := make([]string, 0, len(erc725.SchemaSets))
			for k := range erc725.SchemaSets {
				known = append(known, k)
			}
			sort.Strings(known)
			return nil, fmt.Errorf("unknown schema set %q (known: %s)", name, strings.Join(known, ", "))
		}
		sets = append(sets, set)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no schema sets selected")
	}
	return sets, nil
}
