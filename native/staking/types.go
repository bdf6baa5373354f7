package staking

import (
	"math/big"
)

// Position is a single staked deposit.
type Position struct {
	ID               uint64
	Owner            [20]byte
	Amount           *big.Int
	StakedAt         uint64
	LastClaim        uint64
	UnstakeRequested bool
	RequestedAt      uint64
	Released         bool
}

// Active reports whether the position still contributes voting weight.
func (p *Position) Active() bool {
	return p != nil && !p.UnstakeRequested && !p.Released
}

// Params are the governed parameters of the vault. Version increments on every
// governed update.
type Params struct {
	Root         [32]byte
	UnstakeDelay uint64
	Version      uint64
}

// RewardPolicy fixes the flat reward schedule: RateBps of principal per whole
// Period elapsed since the last claim.
type RewardPolicy struct {
	Period  uint64
	RateBps uint64
}

const (
	DefaultUnstakeDelay  uint64 = 3 * 24 * 60 * 60
	DefaultRewardPeriod  uint64 = 7 * 24 * 60 * 60
	DefaultRewardRateBps uint64 = 300
)

// DefaultRewardPolicy pays 3% of principal per week.
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{Period: DefaultRewardPeriod, RateBps: DefaultRewardRateBps}
}

// Reward computes the payout for the whole periods between lastClaim and now.
// The second result is the number of periods consumed.
func (p RewardPolicy) Reward(principal *big.Int, lastClaim, now uint64) (*big.Int, uint64) {
	if principal == nil || p.Period == 0 || now <= lastClaim {
		return big.NewInt(0), 0
	}
	periods := (now - lastClaim) / p.Period
	if periods == 0 {
		return big.NewInt(0), 0
	}
	reward := new(big.Int).Mul(principal, new(big.Int).SetUint64(p.RateBps))
	reward.Mul(reward, new(big.Int).SetUint64(periods))
	reward.Quo(reward, big.NewInt(10_000))
	return reward, periods
}
