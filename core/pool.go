package core

import (
	"math/big"

	"github.com/holiman/uint256"

	coreerrors "github.com/zibert/ACDM/core/errors"
	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/crypto"
	"github.com/zibert/ACDM/native/platform"
)

// PoolAddress holds the reserves of the ETH/XXX constant product pool used to
// buy back reward tokens. Genesis allocations seed it via "module:pool".
var PoolAddress = crypto.ModuleAddress("pool")

const (
	DefaultPoolFeeBps uint64 = 30
	bpsDenominator    uint64 = 10_000
)

var (
	ErrPoolEmpty    = coreerrors.New(coreerrors.ErrPreconditionFailed, "pool", "no liquidity")
	ErrPoolOverflow = coreerrors.New(coreerrors.ErrInvalidArgument, "pool", "amount overflow")
	ErrPoolNoOutput = coreerrors.New(coreerrors.ErrPreconditionFailed, "pool", "swap yields nothing")
)

// reservePool prices swaps against the pool's ledger balances with
// out = reserveOut * inAfterFee / (reserveIn + inAfterFee).
type reservePool struct {
	manager *state.Manager
	feeBps  uint64
}

func (p *reservePool) reserves() (*uint256.Int, *uint256.Int, error) {
	eth, err := p.manager.Balance(PoolAddress[:], state.TokenETH)
	if err != nil {
		return nil, nil, err
	}
	xxx, err := p.manager.Balance(PoolAddress[:], state.TokenXXX)
	if err != nil {
		return nil, nil, err
	}
	ethRes, overflow := uint256.FromBig(eth)
	if overflow {
		return nil, nil, ErrPoolOverflow
	}
	xxxRes, overflow := uint256.FromBig(xxx)
	if overflow {
		return nil, nil, ErrPoolOverflow
	}
	return ethRes, xxxRes, nil
}

// Quote returns the XXX paid for etherIn without moving funds.
func (p *reservePool) Quote(etherIn *big.Int) (*big.Int, error) {
	in, overflow := uint256.FromBig(etherIn)
	if overflow {
		return nil, ErrPoolOverflow
	}
	ethRes, xxxRes, err := p.reserves()
	if err != nil {
		return nil, err
	}
	if ethRes.IsZero() || xxxRes.IsZero() {
		return nil, ErrPoolEmpty
	}
	fee := p.feeBps
	if fee >= bpsDenominator {
		fee = bpsDenominator - 1
	}
	inAfterFee, overflow := new(uint256.Int).MulOverflow(in, uint256.NewInt(bpsDenominator-fee))
	if overflow {
		return nil, ErrPoolOverflow
	}
	numerator, overflow := new(uint256.Int).MulOverflow(xxxRes, inAfterFee)
	if overflow {
		return nil, ErrPoolOverflow
	}
	denominator, overflow := new(uint256.Int).MulOverflow(ethRes, uint256.NewInt(bpsDenominator))
	if overflow {
		return nil, ErrPoolOverflow
	}
	if _, overflow := denominator.AddOverflow(denominator, inAfterFee); overflow {
		return nil, ErrPoolOverflow
	}
	out := new(uint256.Int).Div(numerator, denominator)
	if out.IsZero() {
		return nil, ErrPoolNoOutput
	}
	return out.ToBig(), nil
}

func (p *reservePool) SwapETHForXXX(holder [20]byte, etherIn *big.Int) (*big.Int, error) {
	out, err := p.Quote(etherIn)
	if err != nil {
		return nil, err
	}
	if err := p.manager.Transfer(state.TokenETH, holder[:], PoolAddress[:], etherIn); err != nil {
		return nil, err
	}
	if err := p.manager.Transfer(state.TokenXXX, PoolAddress[:], holder[:], out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ platform.LiquidityPool = (*reservePool)(nil)
