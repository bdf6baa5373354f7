package rpc

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zibert/ACDM/native/staking"
)

type stakeParams struct {
	signedFields
	Caller string   `json:"caller"`
	Amount string   `json:"amount"`
	Proof  []string `json:"proof"`
}

type positionParams struct {
	signedFields
	Caller string `json:"caller,omitempty"`
	ID     uint64 `json:"id"`
}

type addressParams struct {
	Address string `json:"address"`
}

type positionResult struct {
	ID               uint64 `json:"id"`
	Owner            string `json:"owner"`
	Amount           string `json:"amount"`
	StakedAt         uint64 `json:"stakedAt"`
	LastClaim        uint64 `json:"lastClaim"`
	UnstakeRequested bool   `json:"unstakeRequested"`
	RequestedAt      uint64 `json:"requestedAt,omitempty"`
	Released         bool   `json:"released"`
}

func positionResultFrom(pos *staking.Position) positionResult {
	return positionResult{
		ID:               pos.ID,
		Owner:            formatAddress(pos.Owner),
		Amount:           formatAmount(pos.Amount),
		StakedAt:         pos.StakedAt,
		LastClaim:        pos.LastClaim,
		UnstakeRequested: pos.UnstakeRequested,
		RequestedAt:      pos.RequestedAt,
		Released:         pos.Released,
	}
}

func parseProof(raw []string) ([]common.Hash, error) {
	proof := make([]common.Hash, 0, len(raw))
	for i, entry := range raw {
		b, err := decodeHex(entry)
		if err != nil || len(b) != common.HashLength {
			return nil, fmt.Errorf("proof[%d]: expected 32-byte hex hash", i)
		}
		proof = append(proof, common.BytesToHash(b))
	}
	return proof, nil
}

func (s *Server) handleStake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params stakeParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proof, err := parseProof(params.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := s.node.Stake(caller, amount, proof)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"id": id})
}

func (s *Server) handleClaim(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params positionParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	reward, err := s.node.Claim(caller, params.ID)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"reward": formatAmount(reward)})
}

func (s *Server) handleUnstake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params positionParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	released, err := s.node.Unstake(caller, params.ID)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"released": released})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params positionParams
	if !decodeParams(w, req, &params) {
		return
	}
	pos, err := s.node.Position(params.ID)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, positionResultFrom(pos))
}

func (s *Server) handlePositionsOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	positions, err := s.node.PositionsOf(owner)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	out := make([]positionResult, 0, len(positions))
	for _, pos := range positions {
		out = append(out, positionResultFrom(pos))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleVotingWeight(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	weight, err := s.node.VotingWeight(addr)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"weight": formatAmount(weight)})
}

func (s *Server) handleStakingParams(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params, err := s.node.StakingParams()
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"root":         common.Hash(params.Root).Hex(),
		"unstakeDelay": params.UnstakeDelay,
		"version":      params.Version,
	})
}
