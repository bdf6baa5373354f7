package core

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/native/governance"
	"github.com/zibert/ACDM/native/platform"
	"github.com/zibert/ACDM/native/staking"
)

// Stake deposits amount of LP collateral for an allow-listed caller.
func (n *Node) Stake(caller [20]byte, amount *big.Int, proof []common.Hash) (uint64, error) {
	var id uint64
	err := n.transact("staking", "stake", true, func(tx *transition) error {
		var err error
		id, err = tx.staking.Stake(caller, amount, proof)
		return err
	})
	return id, err
}

func (n *Node) Claim(caller [20]byte, id uint64) (*big.Int, error) {
	var reward *big.Int
	err := n.transact("staking", "claim", true, func(tx *transition) error {
		var err error
		reward, err = tx.staking.Claim(caller, id)
		return err
	})
	return reward, err
}

// Unstake advances a position one unstaking phase and reports whether the
// principal was released.
func (n *Node) Unstake(caller [20]byte, id uint64) (bool, error) {
	var released bool
	err := n.transact("staking", "unstake", true, func(tx *transition) error {
		var err error
		released, err = tx.staking.Unstake(caller, id)
		return err
	})
	return released, err
}

func (n *Node) StakingSetGovernor(caller, governor [20]byte) error {
	return n.transact("staking", "set_governor", true, func(tx *transition) error {
		return tx.staking.SetGovernor(caller, governor)
	})
}

func (n *Node) Position(id uint64) (*staking.Position, error) {
	var pos *staking.Position
	err := n.view(func(tx *transition) error {
		var err error
		pos, err = tx.staking.Position(id)
		return err
	})
	return pos, err
}

func (n *Node) PositionsOf(owner [20]byte) ([]*staking.Position, error) {
	var out []*staking.Position
	err := n.view(func(tx *transition) error {
		var err error
		out, err = tx.staking.PositionsOf(owner)
		return err
	})
	return out, err
}

func (n *Node) StakingParams() (*staking.Params, error) {
	var params *staking.Params
	err := n.view(func(tx *transition) error {
		var err error
		params, err = tx.staking.Params()
		return err
	})
	return params, err
}

func (n *Node) VotingWeight(addr [20]byte) (*big.Int, error) {
	var weight *big.Int
	err := n.view(func(tx *transition) error {
		var err error
		weight, err = tx.staking.VotingWeight(addr)
		return err
	})
	return weight, err
}

func (n *Node) AddProposal(caller, recipient [20]byte, payload []byte, description string) (uint64, error) {
	var id uint64
	err := n.transact("governance", "add_proposal", true, func(tx *transition) error {
		var err error
		id, err = tx.governance.AddProposal(caller, recipient, payload, description)
		return err
	})
	return id, err
}

func (n *Node) Vote(caller [20]byte, id uint64, support bool) error {
	return n.transact("governance", "vote", true, func(tx *transition) error {
		return tx.governance.Vote(caller, id, support)
	})
}

func (n *Node) Delegate(caller [20]byte, id uint64, to [20]byte) error {
	return n.transact("governance", "delegate", true, func(tx *transition) error {
		return tx.governance.Delegate(caller, id, to)
	})
}

// FinishProposal tallies a proposal whose debating period has ended and, when
// it passed, executes its payload. A failing payload still finishes the
// proposal.
func (n *Node) FinishProposal(id uint64) (governance.Outcome, error) {
	var outcome governance.Outcome
	var callErr string
	err := n.transact("governance", "finish_proposal", true, func(tx *transition) error {
		var err error
		outcome, err = tx.governance.FinishProposal(id)
		if err != nil {
			return err
		}
		if p, perr := tx.governance.Proposal(id); perr == nil {
			callErr = p.CallError
		}
		return nil
	})
	if err != nil {
		return outcome, err
	}
	n.metrics.ObserveProposalOutcome(outcome.String())
	attrs := []any{slog.Uint64("proposal", id), slog.String("outcome", outcome.String())}
	if callErr != "" {
		attrs = append(attrs, slog.String("call_error", callErr))
	}
	n.logger.Info("proposal finished", attrs...)
	return outcome, nil
}

func (n *Node) Proposal(id uint64) (*governance.Proposal, error) {
	var p *governance.Proposal
	err := n.view(func(tx *transition) error {
		var err error
		p, err = tx.governance.Proposal(id)
		return err
	})
	return p, err
}

func (n *Node) Ballot(id uint64, addr [20]byte) (*governance.Ballot, error) {
	var b *governance.Ballot
	err := n.view(func(tx *transition) error {
		var err error
		b, err = tx.governance.Ballot(id, addr)
		return err
	})
	return b, err
}

func (n *Node) GovernanceConfig() (*governance.Config, error) {
	var cfg *governance.Config
	err := n.view(func(tx *transition) error {
		var err error
		cfg, err = tx.governance.Config()
		return err
	})
	return cfg, err
}

func (n *Node) Register(caller, referrer [20]byte) error {
	return n.transact("platform", "register", true, func(tx *transition) error {
		return tx.platform.Register(caller, referrer)
	})
}

func (n *Node) StartFirstSaleRound() error {
	return n.roundTransition("start_first_sale_round", (*platform.Engine).StartFirstSaleRound)
}

func (n *Node) StartSaleRound() error {
	return n.roundTransition("start_sale_round", (*platform.Engine).StartSaleRound)
}

func (n *Node) StartTradeRound() error {
	return n.roundTransition("start_trade_round", (*platform.Engine).StartTradeRound)
}

func (n *Node) roundTransition(operation string, fn func(*platform.Engine) error) error {
	var round *platform.Round
	err := n.transact("platform", operation, true, func(tx *transition) error {
		if err := fn(tx.platform); err != nil {
			return err
		}
		var err error
		round, err = tx.platform.Round()
		return err
	})
	if err != nil {
		return err
	}
	price, _ := new(big.Float).SetInt(round.Price).Float64()
	n.metrics.SetRound(uint8(round.Kind), price)
	n.logger.Info("platform round started",
		slog.String("kind", round.Kind.String()),
		slog.String("price", round.Price.String()),
		slog.String("tokens", round.Tokens.String()))
	return nil
}

// BuyACDM spends value of ether in the active sale round and returns the
// whole tokens bought.
func (n *Node) BuyACDM(caller [20]byte, value *big.Int) (*big.Int, error) {
	var amount *big.Int
	err := n.transact("platform", "buy_acdm", true, func(tx *transition) error {
		var err error
		amount, err = tx.platform.BuyACDM(caller, value)
		return err
	})
	return amount, err
}

func (n *Node) AddOrder(caller [20]byte, amount, price *big.Int) (uint64, error) {
	var id uint64
	err := n.transact("platform", "add_order", true, func(tx *transition) error {
		var err error
		id, err = tx.platform.AddOrder(caller, amount, price)
		return err
	})
	return id, err
}

func (n *Node) RemoveOrder(caller [20]byte, id uint64) error {
	return n.transact("platform", "remove_order", true, func(tx *transition) error {
		return tx.platform.RemoveOrder(caller, id)
	})
}

func (n *Node) Buy(caller [20]byte, id uint64, amount, value *big.Int) error {
	return n.transact("platform", "buy", true, func(tx *transition) error {
		return tx.platform.Buy(caller, id, amount, value)
	})
}

func (n *Node) Round() (*platform.Round, error) {
	var round *platform.Round
	err := n.view(func(tx *transition) error {
		var err error
		round, err = tx.platform.Round()
		return err
	})
	return round, err
}

func (n *Node) Awards() (*platform.Awards, error) {
	var awards *platform.Awards
	err := n.view(func(tx *transition) error {
		var err error
		awards, err = tx.platform.Awards()
		return err
	})
	return awards, err
}

func (n *Node) Order(id uint64) (*platform.Order, error) {
	var order *platform.Order
	err := n.view(func(tx *transition) error {
		var err error
		order, err = tx.platform.Order(id)
		return err
	})
	return order, err
}

func (n *Node) OpenOrders() ([]uint64, error) {
	var ids []uint64
	err := n.view(func(tx *transition) error {
		var err error
		ids, err = tx.platform.OpenOrders()
		return err
	})
	return ids, err
}

func (n *Node) Referrer(addr [20]byte) ([20]byte, bool, error) {
	var ref [20]byte
	var ok bool
	err := n.view(func(tx *transition) error {
		var err error
		ref, ok, err = tx.platform.Referrer(addr)
		return err
	})
	return ref, ok, err
}

func (n *Node) SavedEther() (*big.Int, error) {
	var saved *big.Int
	err := n.view(func(tx *transition) error {
		var err error
		saved, err = tx.platform.SavedEther()
		return err
	})
	return saved, err
}

// Balance returns the ledger balance of addr in symbol.
func (n *Node) Balance(addr [20]byte, symbol string) (*big.Int, error) {
	var bal *big.Int
	err := n.view(func(tx *transition) error {
		var err error
		bal, err = tx.manager.Balance(addr[:], symbol)
		return err
	})
	return bal, err
}

// FundAccount credits development funds in ETH and LP. It only works when the
// faucet is enabled.
func (n *Node) FundAccount(addr [20]byte, amount *big.Int) error {
	if !n.faucet {
		return ErrFaucetDisabled
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("node: faucet amount must be positive")
	}
	return n.transact("node", "faucet", true, func(tx *transition) error {
		for _, symbol := range []string{state.TokenETH, state.TokenLP} {
			if err := tx.manager.Mint(symbol, nil, addr[:], amount); err != nil {
				return err
			}
		}
		return nil
	})
}
