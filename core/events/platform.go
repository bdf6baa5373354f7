package events

import (
	"math/big"

	"github.com/zibert/ACDM/core/types"
)

const (
	TypePlatformRoundStarted   = "platform.roundStarted"
	TypePlatformACDMBought     = "platform.acdmBought"
	TypePlatformReferralReward = "platform.referralReward"
	TypePlatformAddOrder       = "platform.addOrder"
	TypePlatformChangeOrder    = "platform.changeOrder"
	TypePlatformRemoveOrder    = "platform.removeOrder"
	TypePlatformRegistered     = "platform.registered"
	TypePlatformAwardUpdated   = "platform.awardUpdated"
	TypePlatformSavedEtherSent = "platform.savedEtherSent"
	TypePlatformXXXBurned      = "platform.xxxBurned"
)

type PlatformRoundStarted struct {
	Round     string
	StartedAt uint64
	Price     *big.Int
	Tokens    *big.Int
}

func (PlatformRoundStarted) EventType() string { return TypePlatformRoundStarted }

func (e PlatformRoundStarted) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformRoundStarted,
		Attributes: map[string]string{
			"round":     e.Round,
			"startedAt": formatUint(e.StartedAt),
			"price":     formatAmount(e.Price),
			"tokens":    formatAmount(e.Tokens),
		},
	}
}

type PlatformACDMBought struct {
	Buyer    [20]byte
	Amount   *big.Int
	Cost     *big.Int
	Refunded *big.Int
}

func (PlatformACDMBought) EventType() string { return TypePlatformACDMBought }

func (e PlatformACDMBought) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformACDMBought,
		Attributes: map[string]string{
			"buyer":    formatAddress(e.Buyer),
			"amount":   formatAmount(e.Amount),
			"cost":     formatAmount(e.Cost),
			"refunded": formatAmount(e.Refunded),
		},
	}
}

// PlatformReferralReward is emitted for each referral level paid on a purchase.
type PlatformReferralReward struct {
	Buyer    [20]byte
	Referrer [20]byte
	Level    uint64
	Amount   *big.Int
}

func (PlatformReferralReward) EventType() string { return TypePlatformReferralReward }

func (e PlatformReferralReward) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformReferralReward,
		Attributes: map[string]string{
			"buyer":    formatAddress(e.Buyer),
			"referrer": formatAddress(e.Referrer),
			"level":    formatUint(e.Level),
			"amount":   formatAmount(e.Amount),
		},
	}
}

type PlatformAddOrder struct {
	ID                uint64
	Seller            [20]byte
	Amount            *big.Int
	TokenPriceInEther *big.Int
}

func (PlatformAddOrder) EventType() string { return TypePlatformAddOrder }

func (e PlatformAddOrder) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformAddOrder,
		Attributes: map[string]string{
			"id":                formatUint(e.ID),
			"seller":            formatAddress(e.Seller),
			"amount":            formatAmount(e.Amount),
			"tokenPriceInEther": formatAmount(e.TokenPriceInEther),
		},
	}
}

type PlatformChangeOrder struct {
	ID        uint64
	Buyer     [20]byte
	Reduction *big.Int
}

func (PlatformChangeOrder) EventType() string { return TypePlatformChangeOrder }

func (e PlatformChangeOrder) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformChangeOrder,
		Attributes: map[string]string{
			"id":        formatUint(e.ID),
			"buyer":     formatAddress(e.Buyer),
			"reduction": formatAmount(e.Reduction),
		},
	}
}

type PlatformRemoveOrder struct {
	ID       uint64
	Seller   [20]byte
	Returned *big.Int
}

func (PlatformRemoveOrder) EventType() string { return TypePlatformRemoveOrder }

func (e PlatformRemoveOrder) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformRemoveOrder,
		Attributes: map[string]string{
			"id":       formatUint(e.ID),
			"seller":   formatAddress(e.Seller),
			"returned": formatAmount(e.Returned),
		},
	}
}

type PlatformRegistered struct {
	Referred [20]byte
	Referrer [20]byte
}

func (PlatformRegistered) EventType() string { return TypePlatformRegistered }

func (e PlatformRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformRegistered,
		Attributes: map[string]string{
			"referred": formatAddress(e.Referred),
			"referrer": formatAddress(e.Referrer),
		},
	}
}

type PlatformAwardUpdated struct {
	Name    string
	Value   uint64
	Version uint64
}

func (PlatformAwardUpdated) EventType() string { return TypePlatformAwardUpdated }

func (e PlatformAwardUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformAwardUpdated,
		Attributes: map[string]string{
			"name":    e.Name,
			"value":   formatUint(e.Value),
			"version": formatUint(e.Version),
		},
	}
}

type PlatformSavedEtherSent struct {
	To     [20]byte
	Amount *big.Int
}

func (PlatformSavedEtherSent) EventType() string { return TypePlatformSavedEtherSent }

func (e PlatformSavedEtherSent) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformSavedEtherSent,
		Attributes: map[string]string{
			"to":     formatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}

type PlatformXXXBurned struct {
	EtherIn *big.Int
	Burned  *big.Int
}

func (PlatformXXXBurned) EventType() string { return TypePlatformXXXBurned }

func (e PlatformXXXBurned) Event() *types.Event {
	return &types.Event{
		Type: TypePlatformXXXBurned,
		Attributes: map[string]string{
			"etherIn": formatAmount(e.EtherIn),
			"burned":  formatAmount(e.Burned),
		},
	}
}
