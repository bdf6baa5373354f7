package events

import (
	"math/big"
	"strconv"

	"github.com/zibert/ACDM/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatAddress(addr [20]byte) string {
	return crypto.FromRaw(addr).String()
}

func zeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}
