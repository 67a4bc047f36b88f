// Package permissions encodes and decodes LSP6 Key Manager permission
// bitmasks stored under AddressPermissions:Permissions:<address>.
package permissions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrUnknownPermission = errors.New("permissions: unknown permission")

// Permission is a named bit of the bytes32 permission value
type Permission struct {
	Name string
	Bit  uint64
}

// Known lists every LSP6 permission in bit order
var Known = []Permission{
	{"CHANGEOWNER", 0x1},
	{"ADDCONTROLLER", 0x2},
	{"EDITPERMISSIONS", 0x4},
	{"ADDEXTENSIONS", 0x8},
	{"CHANGEEXTENSIONS", 0x10},
	{"ADDUNIVERSALRECEIVERDELEGATE", 0x20},
	{"CHANGEUNIVERSALRECEIVERDELEGATE", 0x40},
	{"REENTRANCY", 0x80},
	{"SUPER_TRANSFERVALUE", 0x100},
	{"TRANSFERVALUE", 0x200},
	{"SUPER_CALL", 0x400},
	{"CALL", 0x800},
	{"SUPER_STATICCALL", 0x1000},
	{"STATICCALL", 0x2000},
	{"SUPER_DELEGATECALL", 0x4000},
	{"DELEGATECALL", 0x8000},
	{"DEPLOY", 0x10000},
	{"SUPER_SETDATA", 0x20000},
	{"SETDATA", 0x40000},
	{"ENCRYPT", 0x80000},
	{"DECRYPT", 0x100000},
	{"SIGN", 0x200000},
	{"EXECUTE_RELAY_CALL", 0x400000},
}

// AllPermissions grants everything except REENTRANCY and the delegatecall permissions
const AllPermissions uint64 = 0x7f3f7f

func lookup(name string) (Permission, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, p := range Known {
		if p.Name == upper {
			return p, true
		}
	}
	return Permission{}, false
}

// Encode returns the bytes32 value for the permissions set to true
func Encode(perms map[string]bool) ([]byte, error) {
	var mask uint64
	for name, enabled := range perms {
		p, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPermission, name)
		}
		if enabled {
			mask |= p.Bit
		}
	}
	return new(big.Int).SetUint64(mask).FillBytes(make([]byte, 32)), nil
}

// EncodeHex is Encode rendered as a 0x string
func EncodeHex(perms map[string]bool) (string, error) {
	raw, err := Encode(perms)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(raw), nil
}

// Parse turns "SETDATA,CALL" into a permission map. "ALL_PERMISSIONS"
// expands to the default full set.
func Parse(list string) (map[string]bool, error) {
	perms := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if strings.EqualFold(name, "ALL_PERMISSIONS") {
			for _, p := range Known {
				if AllPermissions&p.Bit != 0 {
					perms[p.Name] = true
				}
			}
			continue
		}
		p, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPermission, name)
		}
		perms[p.Name] = true
	}
	return perms, nil
}

// Entry is one permission with its state
type Entry struct {
	Name    string
	Enabled bool
}

// Decoded is a full permission table in bit order
type Decoded []Entry

// Decode reads a permission value of up to 32 bytes
func Decode(raw []byte) (Decoded, error) {
	if len(raw) > 32 {
		return nil, fmt.Errorf("permissions: value is %d bytes, want at most 32", len(raw))
	}
	mask := new(big.Int).SetBytes(raw)

	out := make(Decoded, 0, len(Known))
	for _, p := range Known {
		bit := new(big.Int).SetUint64(p.Bit)
		out = append(out, Entry{Name: p.Name, Enabled: new(big.Int).And(mask, bit).Sign() != 0})
	}
	return out, nil
}

// DecodeHex decodes a 0x-prefixed permission value. "0x" decodes to no permissions.
func DecodeHex(s string) (Decoded, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("permissions: invalid hex %q: %w", s, err)
	}
	return Decode(raw)
}

// Has reports whether the named permission is enabled
func (d Decoded) Has(name string) bool {
	for _, e := range d {
		if e.Name == strings.ToUpper(name) {
			return e.Enabled
		}
	}
	return false
}

// Enabled lists the enabled permission names in bit order
func (d Decoded) Enabled() []string {
	var names []string
	for _, e := range d {
		if e.Enabled {
			names = append(names, e.Name)
		}
	}
	return names
}

// MarshalJSON renders the table as an object keeping bit order
func (d Decoded) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		if e.Enabled {
			buf.WriteString(":true")
		} else {
			buf.WriteString(":false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
