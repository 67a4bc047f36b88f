package lsp

import (
	_ "embed"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abis/LSP.json
var lspABIJSON string

// ABI covers the ERC725Y, LSP7/LSP8 and Key Manager methods the examples call
var ABI = mustParseABI(lspABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Interface ids checked with supportsInterface
var (
	InterfaceERC725Y        = [4]byte{0x62, 0x9a, 0xa6, 0x94}
	InterfaceERC725YLegacy  = [4]byte{0x71, 0x4d, 0xf7, 0x7c} // ERC725Y v3
	InterfaceERC725YLegacy2 = [4]byte{0x5a, 0x98, 0x8c, 0x0f} // ERC725Y v2
	InterfaceLSP0           = [4]byte{0x24, 0x87, 0x1b, 0x3d}
	InterfaceLSP6           = [4]byte{0x23, 0xf3, 0x4c, 0x62}
	InterfaceLSP7           = [4]byte{0xc5, 0x2d, 0x60, 0x08}
	InterfaceLSP8           = [4]byte{0x3a, 0x27, 0x17, 0x06}
)

// PackSetData ABI-encodes setData(bytes32,bytes), e.g. as a Key Manager payload
func PackSetData(key [32]byte, value []byte) ([]byte, error) {
	return ABI.Pack("setData", key, value)
}

// PackSetDataBatch ABI-encodes setDataBatch(bytes32[],bytes[])
func PackSetDataBatch(keys [][32]byte, values [][]byte) ([]byte, error) {
	return ABI.Pack("setDataBatch", keys, values)
}
