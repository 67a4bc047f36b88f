package erc725

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// KeyType is the LSP2 key layout of a schema entry
type KeyType string

const (
	KeyTypeSingleton           KeyType = "Singleton"
	KeyTypeArray               KeyType = "Array"
	KeyTypeMapping             KeyType = "Mapping"
	KeyTypeMappingWithGrouping KeyType = "MappingWithGrouping"
)

// Schema describes one ERC725Y data key and how its value is encoded
type Schema struct {
	Name         string  `json:"name"`
	Key          string  `json:"key"`
	KeyType      KeyType `json:"keyType"`
	ValueType    string  `json:"valueType"`
	ValueContent string  `json:"valueContent"`
}

// IsDynamic reports whether the key name contains <type> placeholders
func (s Schema) IsDynamic() bool {
	return strings.Contains(s.Name, "<")
}

// Matches reports whether a concrete data key belongs to this schema.
// Dynamic schemas match on the static prefix of their key.
func (s Schema) Matches(key common.Hash) bool {
	keyHex := strings.ToLower(key.Hex())
	tmpl := strings.ToLower(s.Key)
	idx := strings.Index(tmpl, "<")
	if idx < 0 {
		if s.KeyType == KeyTypeArray && tmpl != keyHex {
			// Element keys share the first 16 bytes with the array key
			return strings.HasPrefix(keyHex, tmpl[:34])
		}
		return tmpl == keyHex
	}
	return strings.HasPrefix(keyHex, tmpl[:idx])
}

// Schemas is an ordered list of schema entries
type Schemas []Schema

// Find returns the schema with the given key name
func (s Schemas) Find(name string) (Schema, bool) {
	for _, schema := range s {
		if schema.Name == name {
			return schema, true
		}
	}
	return Schema{}, false
}

// FindByKey returns the schema a concrete data key was derived from
func (s Schemas) FindByKey(key common.Hash) (Schema, bool) {
	// Static keys first so a dynamic prefix never shadows an exact match
	for _, schema := range s {
		if !schema.IsDynamic() && strings.EqualFold(schema.Key, key.Hex()) {
			return schema, true
		}
	}
	for _, schema := range s {
		if schema.Matches(key) {
			return schema, true
		}
	}
	return Schema{}, false
}

// Merge concatenates schema sets, dropping duplicates by name
func Merge(sets ...Schemas) Schemas {
	seen := make(map[string]bool)
	var out Schemas
	for _, set := range sets {
		for _, schema := range set {
			if seen[schema.Name] {
				continue
			}
			seen[schema.Name] = true
			out = append(out, schema)
		}
	}
	return out
}

//go:embed schemas/*.json
var schemaFS embed.FS

// Published schema sets
var (
	LSP3UniversalProfileMetadata = mustLoad("LSP3UniversalProfileMetadata")
	LSP4DigitalAsset             = mustLoad("LSP4DigitalAsset")
	LSP5ReceivedAssets           = mustLoad("LSP5ReceivedAssets")
	LSP6KeyManager               = mustLoad("LSP6KeyManager")
	LSP8IdentifiableDigitalAsset = mustLoad("LSP8IdentifiableDigitalAsset")
)

// SchemaSets maps the short names accepted on the command line to schema sets
var SchemaSets = map[string]Schemas{
	"lsp3": LSP3UniversalProfileMetadata,
	"lsp4": LSP4DigitalAsset,
	"lsp5": LSP5ReceivedAssets,
	"lsp6": LSP6KeyManager,
	"lsp8": LSP8IdentifiableDigitalAsset,
}

// Load reads an embedded schema set and fills in each entry's key
func Load(name string) (Schemas, error) {
	data, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("schema set %s not found: %w", name, err)
	}

	var schemas Schemas
	if err := json.Unmarshal(data, &schemas); err != nil {
		return nil, fmt.Errorf("failed to parse schema set %s: %w", name, err)
	}

	for i := range schemas {
		key, err := KeyTemplate(schemas[i].Name)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", schemas[i].Name, err)
		}
		schemas[i].Key = key
	}

	return schemas, nil
}

func mustLoad(name string) Schemas {
	schemas, err := Load(name)
	if err != nil {
		panic(err)
	}
	return schemas
}
