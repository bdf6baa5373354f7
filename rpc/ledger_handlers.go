package rpc

import (
	"net/http"
	"strings"

	"github.com/zibert/ACDM/core/types"
)

type balanceParams struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

type fundParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type eventsParams struct {
	Limit int `json:"limit"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params balanceParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	token := strings.ToUpper(strings.TrimSpace(params.Token))
	if token == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "token is required", nil)
		return
	}
	bal, err := s.node.Balance(addr, token)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{
		"address": formatAddress(addr),
		"token":   token,
		"balance": formatAmount(bal),
	})
}

func (s *Server) handleFundAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params fundParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.FundAccount(addr, amount); err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params := eventsParams{}
	if len(req.Params) > 0 && !decodeParams(w, req, &params) {
		return
	}
	evts := s.node.Events(params.Limit)
	if evts == nil {
		evts = []*types.Event{}
	}
	writeResult(w, req.ID, evts)
}

// handleGetNonce reports the last nonce accepted from an address. Signed
// requests must use a larger one.
func (s *Server) handleGetNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	nonce, err := s.node.Nonce(addr)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"address": formatAddress(addr),
		"nonce":   nonce,
	})
}
