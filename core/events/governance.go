package events

import (
	"math/big"
	"strconv"

	"github.com/zibert/ACDM/core/types"
)

const (
	TypeGovernanceProposalAdded    = "governance.addProposal"
	TypeGovernanceVoted            = "governance.voted"
	TypeGovernanceDelegated        = "governance.delegated"
	TypeGovernanceQuorumNotReached = "governance.minimumQuorumNotReached"
	TypeGovernanceProposalRejected = "governance.proposalRejected"
	TypeGovernanceCallStatus       = "governance.callStatus"
)

type GovernanceProposalAdded struct {
	ID          uint64
	Recipient   [20]byte
	Description string
	EndsAt      uint64
}

func (GovernanceProposalAdded) EventType() string { return TypeGovernanceProposalAdded }

func (e GovernanceProposalAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeGovernanceProposalAdded,
		Attributes: map[string]string{
			"id":          formatUint(e.ID),
			"recipient":   formatAddress(e.Recipient),
			"description": e.Description,
			"endsAt":      formatUint(e.EndsAt),
		},
	}
}

// GovernanceVoted records the weight a ballot added, delegated weight included.
type GovernanceVoted struct {
	ID        uint64
	Voter     [20]byte
	Support   bool
	Weight    *big.Int
	Delegated *big.Int
}

func (GovernanceVoted) EventType() string { return TypeGovernanceVoted }

func (e GovernanceVoted) Event() *types.Event {
	return &types.Event{
		Type: TypeGovernanceVoted,
		Attributes: map[string]string{
			"id":        formatUint(e.ID),
			"voter":     formatAddress(e.Voter),
			"support":   strconv.FormatBool(e.Support),
			"weight":    formatAmount(e.Weight),
			"delegated": formatAmount(e.Delegated),
		},
	}
}

type GovernanceDelegated struct {
	ID   uint64
	From [20]byte
	To   [20]byte
}

func (GovernanceDelegated) EventType() string { return TypeGovernanceDelegated }

func (e GovernanceDelegated) Event() *types.Event {
	return &types.Event{
		Type: TypeGovernanceDelegated,
		Attributes: map[string]string{
			"id":   formatUint(e.ID),
			"from": formatAddress(e.From),
			"to":   formatAddress(e.To),
		},
	}
}

type GovernanceQuorumNotReached struct {
	ID  uint64
	Yes *big.Int
	No  *big.Int
}

func (GovernanceQuorumNotReached) EventType() string { return TypeGovernanceQuorumNotReached }

func (e GovernanceQuorumNotReached) Event() *types.Event {
	return &types.Event{
		Type: TypeGovernanceQuorumNotReached,
		Attributes: map[string]string{
			"id":  formatUint(e.ID),
			"yes": formatAmount(e.Yes),
			"no":  formatAmount(e.No),
		},
	}
}

type GovernanceProposalRejected struct {
	ID  uint64
	Yes *big.Int
	No  *big.Int
}

func (GovernanceProposalRejected) EventType() string { return TypeGovernanceProposalRejected }

func (e GovernanceProposalRejected) Event() *types.Event {
	return &types.Event{
		Type: TypeGovernanceProposalRejected,
		Attributes: map[string]string{
			"id":  formatUint(e.ID),
			"yes": formatAmount(e.Yes),
			"no":  formatAmount(e.No),
		},
	}
}

// GovernanceCallStatus reports the outcome of executing a passed proposal.
type GovernanceCallStatus struct {
	ID      uint64
	Success bool
	Reason  string
}

func (GovernanceCallStatus) EventType() string { return TypeGovernanceCallStatus }

func (e GovernanceCallStatus) Event() *types.Event {
	attrs := map[string]string{
		"id":     formatUint(e.ID),
		"status": strconv.FormatBool(e.Success),
	}
	if e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	return &types.Event{Type: TypeGovernanceCallStatus, Attributes: attrs}
}
