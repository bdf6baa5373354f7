package genesis

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zibert/ACDM/crypto"
)

// modulePrefix names a module account instead of spelling out its address.
const modulePrefix = "module:"

// ParseBech32Account decodes an acdm bech32 address. "module:<name>" resolves
// to the module account and a 0x-prefixed hex address is accepted as is.
func ParseBech32Account(addr string) ([20]byte, error) {
	var out [20]byte
	addr = strings.TrimSpace(addr)
	if name, ok := strings.CutPrefix(addr, modulePrefix); ok {
		if name == "" {
			return out, fmt.Errorf("decode account: empty module name")
		}
		return crypto.ModuleAddress(name), nil
	}
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		if !common.IsHexAddress(addr) {
			return out, fmt.Errorf("decode account: invalid hex address %q", addr)
		}
		return common.HexToAddress(addr), nil
	}
	decoded, err := crypto.DecodeAddress(addr)
	if err != nil {
		return out, fmt.Errorf("decode bech32 account: %w", err)
	}
	return decoded.Raw(), nil
}
