package rpc

import (
	"net/http"

	"github.com/zibert/ACDM/native/platform"
)

type registerParams struct {
	signedFields
	Caller   string `json:"caller"`
	Referrer string `json:"referrer"`
}

type buyACDMParams struct {
	signedFields
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

type addOrderParams struct {
	signedFields
	Caller string `json:"caller"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

type orderParams struct {
	signedFields
	Caller string `json:"caller,omitempty"`
	ID     uint64 `json:"id"`
	Amount string `json:"amount,omitempty"`
	Value  string `json:"value,omitempty"`
}

type roundResult struct {
	Kind        string `json:"kind"`
	StartedAt   uint64 `json:"startedAt"`
	Price       string `json:"price"`
	Tokens      string `json:"tokens"`
	TradeVolume string `json:"tradeVolume"`
}

type orderResult struct {
	ID     uint64 `json:"id"`
	Seller string `json:"seller"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

func orderResultFrom(o *platform.Order) orderResult {
	return orderResult{
		ID:     o.ID,
		Seller: formatAddress(o.Seller),
		Amount: formatAmount(o.Amount),
		Price:  formatAmount(o.Price),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params registerParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	referrer, err := parseAddress(params.Referrer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid referrer address", err.Error())
		return
	}
	if err := s.node.Register(caller, referrer); err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

// startRound runs a round transition and replies with the new round.
func (s *Server) startRound(w http.ResponseWriter, r *http.Request, req *RPCRequest, start func() error) {
	if err := start(); err != nil {
		writeNodeError(w, req, err)
		return
	}
	s.handleRound(w, r, req)
}

func (s *Server) handleStartFirstSaleRound(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.startRound(w, r, req, s.node.StartFirstSaleRound)
}

func (s *Server) handleStartSaleRound(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.startRound(w, r, req, s.node.StartSaleRound)
}

func (s *Server) handleStartTradeRound(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.startRound(w, r, req, s.node.StartTradeRound)
}

func (s *Server) handleBuyACDM(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params buyACDMParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	value, err := parseAmount(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.node.BuyACDM(caller, value)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": formatAmount(amount)})
}

func (s *Server) handleAddOrder(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addOrderParams
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
	price, err := parseAmount(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := s.node.AddOrder(caller, amount, price)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"id": id})
}

func (s *Server) handleRemoveOrder(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params orderParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.RemoveOrder(caller, params.ID); err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleBuyOrder(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params orderParams
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
	value, err := parseAmount(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.Buy(caller, params.ID, amount, value); err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleRound(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	round, err := s.node.Round()
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, roundResult{
		Kind:        round.Kind.String(),
		StartedAt:   round.StartedAt,
		Price:       formatAmount(round.Price),
		Tokens:      formatAmount(round.Tokens),
		TradeVolume: formatAmount(round.TradeVolume),
	})
}

func (s *Server) handleAwards(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	awards, err := s.node.Awards()
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{
		"firstLevel":  awards.FirstLevel,
		"secondLevel": awards.SecondLevel,
		"trade":       awards.Trade,
		"version":     awards.Version,
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params orderParams
	if !decodeParams(w, req, &params) {
		return
	}
	order, err := s.node.Order(params.ID)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, orderResultFrom(order))
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	ids, err := s.node.OpenOrders()
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	out := make([]orderResult, 0, len(ids))
	for _, id := range ids {
		order, err := s.node.Order(id)
		if err != nil {
			writeNodeError(w, req, err)
			return
		}
		out = append(out, orderResultFrom(order))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleReferrer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	ref, ok, err := s.node.Referrer(addr)
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, map[string]string{})
		return
	}
	writeResult(w, req.ID, map[string]string{"referrer": formatAddress(ref)})
}

func (s *Server) handleSavedEther(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	saved, err := s.node.SavedEther()
	if err != nil {
		writeNodeError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"saved": formatAmount(saved)})
}
