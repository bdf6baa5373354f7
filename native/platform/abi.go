package platform

import (
	"fmt"

	"github.com/zibert/ACDM/native/common"
)

// GovernedABI describes the calls a passed proposal may make on the platform.
const GovernedABI = `[
	{"type":"function","name":"setFirstLevelSaleAward","stateMutability":"nonpayable","inputs":[{"name":"_sr1","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"setSecondLevelSaleAward","stateMutability":"nonpayable","inputs":[{"name":"_sr2","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"setTradeAward","stateMutability":"nonpayable","inputs":[{"name":"_tr","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"sendSavedEthersToOwner","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"burnXXXToken","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

var governedCalls = common.MustCodec(GovernedABI)

func EncodeSetFirstLevelSaleAward(value uint64) ([]byte, error) {
	return governedCalls.Pack("setFirstLevelSaleAward", value)
}

func EncodeSetSecondLevelSaleAward(value uint64) ([]byte, error) {
	return governedCalls.Pack("setSecondLevelSaleAward", value)
}

func EncodeSetTradeAward(value uint64) ([]byte, error) {
	return governedCalls.Pack("setTradeAward", value)
}

func EncodeSendSavedEthersToOwner() ([]byte, error) {
	return governedCalls.Pack("sendSavedEthersToOwner")
}

func EncodeBurnXXXToken() ([]byte, error) {
	return governedCalls.Pack("burnXXXToken")
}

// DescribeCall returns the method signature a payload targets.
func DescribeCall(payload []byte) (string, error) {
	return governedCalls.Selector(payload)
}

// Apply executes a governed call against the platform.
func (e *Engine) Apply(caller [20]byte, payload []byte) error {
	name, args, err := governedCalls.Decode(payload)
	if err != nil {
		return err
	}
	award := func() (uint64, error) {
		value, ok := args[0].(uint64)
		if !ok {
			return 0, fmt.Errorf("platform: %s: unexpected argument %T", name, args[0])
		}
		return value, nil
	}
	switch name {
	case "setFirstLevelSaleAward":
		value, err := award()
		if err != nil {
			return err
		}
		return e.SetFirstLevelSaleAward(caller, value)
	case "setSecondLevelSaleAward":
		value, err := award()
		if err != nil {
			return err
		}
		return e.SetSecondLevelSaleAward(caller, value)
	case "setTradeAward":
		value, err := award()
		if err != nil {
			return err
		}
		return e.SetTradeAward(caller, value)
	case "sendSavedEthersToOwner":
		return e.SendSavedEthersToOwner(caller)
	case "burnXXXToken":
		return e.BurnXXX(caller)
	default:
		return common.ErrUnknownSelector
	}
}

var _ common.Executable = (*Engine)(nil)
