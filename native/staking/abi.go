package staking

import (
	"fmt"

	"github.com/zibert/ACDM/native/common"
)

// GovernedABI describes the calls a passed proposal may make on the vault.
const GovernedABI = `[
	{"type":"function","name":"setRoot","stateMutability":"nonpayable","inputs":[{"name":"_root","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"setTimeToUnstake","stateMutability":"nonpayable","inputs":[{"name":"_timeToUnstake","type":"uint64"}],"outputs":[]}
]`

var governedCalls = common.MustCodec(GovernedABI)

// EncodeSetRoot builds the payload for a root update proposal.
func EncodeSetRoot(root [32]byte) ([]byte, error) {
	return governedCalls.Pack("setRoot", root)
}

// EncodeSetTimeToUnstake builds the payload for an unstake delay proposal.
func EncodeSetTimeToUnstake(delay uint64) ([]byte, error) {
	return governedCalls.Pack("setTimeToUnstake", delay)
}

// DescribeCall returns the method signature a payload targets.
func DescribeCall(payload []byte) (string, error) {
	return governedCalls.Selector(payload)
}

// Apply executes a governed call against the vault.
func (e *Engine) Apply(caller [20]byte, payload []byte) error {
	name, args, err := governedCalls.Decode(payload)
	if err != nil {
		return err
	}
	switch name {
	case "setRoot":
		root, ok := args[0].([32]byte)
		if !ok {
			return fmt.Errorf("staking: setRoot: unexpected argument %T", args[0])
		}
		return e.SetAllowListRoot(caller, root)
	case "setTimeToUnstake":
		delay, ok := args[0].(uint64)
		if !ok {
			return fmt.Errorf("staking: setTimeToUnstake: unexpected argument %T", args[0])
		}
		return e.SetUnstakeDelay(caller, delay)
	default:
		return common.ErrUnknownSelector
	}
}

var _ common.Executable = (*Engine)(nil)
