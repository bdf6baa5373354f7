package governance

import (
	"math/big"
)

// Outcome enumerates the lifecycle phases of a proposal. Every phase other
// than OutcomeOpen is terminal.
type Outcome uint8

const (
	// OutcomeOpen marks proposals still inside or awaiting finish after
	// their voting window.
	OutcomeOpen Outcome = iota
	// OutcomeQuorumNotReached marks proposals closed because yes+no stayed
	// below the minimum quorum.
	OutcomeQuorumNotReached
	// OutcomeRejected marks proposals where no-weight matched or exceeded
	// yes-weight.
	OutcomeRejected
	// OutcomeExecutedOk marks passed proposals whose call succeeded.
	OutcomeExecutedOk
	// OutcomeExecutedFailed marks passed proposals whose call failed. The
	// proposal is closed regardless.
	OutcomeExecutedFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOpen:
		return "open"
	case OutcomeQuorumNotReached:
		return "quorum_not_reached"
	case OutcomeRejected:
		return "rejected"
	case OutcomeExecutedOk:
		return "executed_ok"
	case OutcomeExecutedFailed:
		return "executed_failed"
	default:
		return "unknown"
	}
}

// Proposal captures an administrative call awaiting a vote. Payload is the
// opaque selector and encoded arguments forwarded verbatim to Recipient.
type Proposal struct {
	ID          uint64
	Recipient   [20]byte
	Payload     []byte
	Description string
	CreatedAt   uint64
	EndsAt      uint64
	Yes         *big.Int
	No          *big.Int
	Finished    bool
	Outcome     Outcome
	CallError   string
}

// Ballot is a participant's single record on a proposal: either a direct vote
// or a delegation, never both. Counted is set on a delegation once the
// delegate's vote absorbed its weight.
type Ballot struct {
	Voted     bool
	Support   bool
	Delegated bool
	Delegate  [20]byte
	Counted   bool
	Weight    *big.Int
}

// Config holds the voting rules fixed at genesis.
type Config struct {
	Chair          [20]byte
	MinimumQuorum  *big.Int
	DebatingPeriod uint64
}

// DefaultMinimumQuorum is 10 whole collateral tokens.
func DefaultMinimumQuorum() *big.Int {
	return new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))
}

const DefaultDebatingPeriod uint64 = 3 * 24 * 60 * 60
