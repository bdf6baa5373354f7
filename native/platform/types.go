package platform

import (
	"math/big"
)

// RoundKind identifies which trading mode is active.
type RoundKind uint8

const (
	RoundUninitialized RoundKind = iota
	RoundSale
	RoundTrade
)

func (k RoundKind) String() string {
	switch k {
	case RoundUninitialized:
		return "uninitialized"
	case RoundSale:
		return "sale"
	case RoundTrade:
		return "trade"
	default:
		return "unknown"
	}
}

// Round is the platform-wide phase. Tokens is the sale allocation still on
// offer, in whole tokens. TradeVolume accumulates ether paid during a trade
// round and sizes the next sale round.
type Round struct {
	Kind        RoundKind
	StartedAt   uint64
	Price       *big.Int
	Tokens      *big.Int
	TradeVolume *big.Int
}

// Order is an escrowed trade-round offer. Amount is the unsold remainder in
// whole tokens; Price is wei per whole token.
type Order struct {
	ID     uint64
	Seller [20]byte
	Amount *big.Int
	Price  *big.Int
}

// Awards are the governed referral shares in parts per thousand. Version
// increments on every governed change.
type Awards struct {
	FirstLevel  uint64
	SecondLevel uint64
	Trade       uint64
	Version     uint64
}

// Params are the fixed economics of the platform.
type Params struct {
	RoundDuration  uint64
	InitialPrice   *big.Int
	InitialSupply  *big.Int
	PriceIncrement *big.Int
	Decimals       uint8
}

const (
	awardDenominator = 1000

	DefaultRoundDuration uint64 = 3 * 24 * 60 * 60
	DefaultDecimals      uint8  = 6

	DefaultFirstLevelAward  uint64 = 50
	DefaultSecondLevelAward uint64 = 30
	DefaultTradeAward       uint64 = 25
)

// DefaultParams opens at 100000 tokens for 0.00001 ether each and grows the
// price by 3% plus 0.000004 ether per round.
func DefaultParams() Params {
	return Params{
		RoundDuration:  DefaultRoundDuration,
		InitialPrice:   big.NewInt(10_000_000_000_000),
		InitialSupply:  big.NewInt(100_000),
		PriceIncrement: big.NewInt(4_000_000_000_000),
		Decimals:       DefaultDecimals,
	}
}

// DefaultAwards returns the launch referral shares.
func DefaultAwards() Awards {
	return Awards{
		FirstLevel:  DefaultFirstLevelAward,
		SecondLevel: DefaultSecondLevelAward,
		Trade:       DefaultTradeAward,
	}
}

// unit is the base-unit size of one whole token.
func (p Params) unit() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(p.Decimals)), nil)
}

// NextPrice applies the round-over-round price formula.
func (p Params) NextPrice(price *big.Int) *big.Int {
	next := new(big.Int).Mul(price, big.NewInt(103))
	next.Quo(next, big.NewInt(100))
	return next.Add(next, p.PriceIncrement)
}

func share(value *big.Int, perThousand uint64) *big.Int {
	out := new(big.Int).Mul(value, new(big.Int).SetUint64(perThousand))
	return out.Quo(out, big.NewInt(awardDenominator))
}
