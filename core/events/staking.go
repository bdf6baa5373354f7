package events

import (
	"encoding/hex"
	"math/big"

	"github.com/zibert/ACDM/core/types"
)

const (
	TypeStakingStaked           = "staking.staked"
	TypeStakingClaimed          = "staking.claimed"
	TypeStakingUnstakeRequested = "staking.unstakeRequested"
	TypeStakingUnstaked         = "staking.unstaked"
	TypeStakingRootUpdated      = "staking.rootUpdated"
	TypeStakingDelayUpdated     = "staking.unstakeDelayUpdated"
	TypeStakingGovernorSet      = "staking.governorSet"
)

// StakingStaked is emitted when a new position is opened.
type StakingStaked struct {
	ID     uint64
	Owner  [20]byte
	Amount *big.Int
}

func (StakingStaked) EventType() string { return TypeStakingStaked }

func (e StakingStaked) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingStaked,
		Attributes: map[string]string{
			"id":     formatUint(e.ID),
			"owner":  formatAddress(e.Owner),
			"amount": formatAmount(e.Amount),
		},
	}
}

// StakingClaimed reports a reward payout and the whole periods it covered.
type StakingClaimed struct {
	ID      uint64
	Owner   [20]byte
	Reward  *big.Int
	Periods uint64
}

func (StakingClaimed) EventType() string { return TypeStakingClaimed }

func (e StakingClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingClaimed,
		Attributes: map[string]string{
			"id":      formatUint(e.ID),
			"owner":   formatAddress(e.Owner),
			"reward":  formatAmount(e.Reward),
			"periods": formatUint(e.Periods),
		},
	}
}

type StakingUnstakeRequested struct {
	ID          uint64
	Owner       [20]byte
	RequestedAt uint64
}

func (StakingUnstakeRequested) EventType() string { return TypeStakingUnstakeRequested }

func (e StakingUnstakeRequested) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingUnstakeRequested,
		Attributes: map[string]string{
			"id":          formatUint(e.ID),
			"owner":       formatAddress(e.Owner),
			"requestedAt": formatUint(e.RequestedAt),
		},
	}
}

type StakingUnstaked struct {
	ID     uint64
	Owner  [20]byte
	Amount *big.Int
}

func (StakingUnstaked) EventType() string { return TypeStakingUnstaked }

func (e StakingUnstaked) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingUnstaked,
		Attributes: map[string]string{
			"id":     formatUint(e.ID),
			"owner":  formatAddress(e.Owner),
			"amount": formatAmount(e.Amount),
		},
	}
}

type StakingRootUpdated struct {
	Root    [32]byte
	Version uint64
}

func (StakingRootUpdated) EventType() string { return TypeStakingRootUpdated }

func (e StakingRootUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingRootUpdated,
		Attributes: map[string]string{
			"root":    "0x" + hex.EncodeToString(e.Root[:]),
			"version": formatUint(e.Version),
		},
	}
}

type StakingDelayUpdated struct {
	Delay   uint64
	Version uint64
}

func (StakingDelayUpdated) EventType() string { return TypeStakingDelayUpdated }

func (e StakingDelayUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingDelayUpdated,
		Attributes: map[string]string{
			"delay":   formatUint(e.Delay),
			"version": formatUint(e.Version),
		},
	}
}

type StakingGovernorSet struct {
	Governor [20]byte
}

func (StakingGovernorSet) EventType() string { return TypeStakingGovernorSet }

func (e StakingGovernorSet) Event() *types.Event {
	return &types.Event{
		Type:       TypeStakingGovernorSet,
		Attributes: map[string]string{"governor": formatAddress(e.Governor)},
	}
}
