package rpc

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/zibert/ACDM/native/governance"
	"github.com/zibert/ACDM/native/platform"
	"github.com/zibert/ACDM/native/staking"
)

type addProposalParams struct {
	signedFields
	Caller      string `json:"caller"`
	Recipient   string `json:"recipient"`
	Payload     string `json:"payload"`
	Description string `json:"description"`
}

type voteParams struct {
	signedFields
	Caller  string `json:"caller"`
	ID      uint64 `json:"id"`
	Support bool   `json:"support"`
}

type delegateParams struct {
	signedFields
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
	To     string `json:"to"`
}

type proposalParams struct {
	ID      uint64 `json:"id"`
	Address string `json:"address,omitempty"`
}

type proposalResult struct {
	ID          uint64 `json:"id"`
	Recipient   string `json:"recipient"`
	Payload     string `json:"payload"`
	Signature   string `json:"signature,omitempty"`
	Description string `json:"description"`
	CreatedAt   uint64 `json:"createdAt"`
	EndsAt      uint64 `json:"endsAt"`
	Yes         string `json:"yes"`
	No          string `json:"no"`
	Finished    bool   `json:"finished"`
	Outcome     string `json:"outcome"`
	CallError   string `json:"callError,omitempty"`
}

// describePayload names the governed method a payload targets, when the
// recipient is a known module.
func describePayload(recipient [20]byte, payload []byte) string {
	var (
		sig string
		err error
	)
	switch recipient {
	case staking.VaultAddress:
		sig, err = staking.DescribeCall(payload)
	case platform.Address:
		sig, err = platform.DescribeCall(payload)
	default:
		return ""
	}
	if err != nil {
		return ""
	}
	return sig
}

func proposalResultFrom(p *governance.Proposal) proposalResult {
	return proposalResult{
		ID:          p.ID,
		Recipient:   formatAddress(p.Recipient),
		Payload:     hexutil.Encode(p.Payload),
		Signature:   describePayload(p.Recipient, p.Payload),
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		EndsAt:      p.EndsAt,
		Yes:         formatAmount(p.Yes),
		No:          formatAmount(p.No),
		Finished:    p.Finished,
		Outcome:     p.Outcome.String(),
		CallError:   p.CallError,
	}
}

func (s *Server) handleAddProposal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addProposalParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	payload, err := decodeHex(params.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid payload", err.Error())
		return
	}
	id, err := s.node.AddProposal(caller, recipient, payload, params.Description)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"id": id})
}

func (s *Server) handleVote(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params voteParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.Vote(caller, params.ID, params.Support); err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleDelegate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params delegateParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := parseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid delegate address", err.Error())
		return
	}
	if err := s.node.Delegate(caller, params.ID, to); err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleFinishProposal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params proposalParams
	if !decodeParams(w, req, &params) {
		return
	}
	outcome, err := s.node.FinishProposal(params.ID)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"outcome": outcome.String()})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params proposalParams
	if !decodeParams(w, req, &params) {
		return
	}
	p, err := s.node.Proposal(params.ID)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, proposalResultFrom(p))
}

func (s *Server) handleGetBallot(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params proposalParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	ballot, err := s.node.Ballot(params.ID, addr)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	if ballot == nil {
		writeResult(w, req.ID, nil)
		return
	}
	result := map[string]interface{}{
		"voted":     ballot.Voted,
		"support":   ballot.Support,
		"delegated": ballot.Delegated,
		"weight":    formatAmount(ballot.Weight),
	}
	if ballot.Delegated {
		result["delegate"] = formatAddress(ballot.Delegate)
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGovernanceConfig(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	cfg, err := s.node.GovernanceConfig()
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"chair":          formatAddress(cfg.Chair),
		"minimumQuorum":  formatAmount(cfg.MinimumQuorum),
		"debatingPeriod": cfg.DebatingPeriod,
	})
}
