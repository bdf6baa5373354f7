package rpc

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/zibert/ACDM/core"
	"github.com/zibert/ACDM/core/genesis"
	"github.com/zibert/ACDM/core/types"
	"github.com/zibert/ACDM/crypto"
	"github.com/zibert/ACDM/native/platform"
	"github.com/zibert/ACDM/storage"
)

const testJWTSecret = "rpc-test-secret"

var (
	operatorKey = mustKey("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	outsiderKey = mustKey("8f2a55949038a9610f50fb23b5883af3b4ecb3c3bb792cbcefbd1542c692be63")
	operator    = keyAddress(operatorKey)
	outsider    = keyAddress(outsiderKey)
)

// nextNonce only grows, so every signed call in the package is fresh.
var nextNonce atomic.Uint64

func mustKey(hexKey string) *ecdsa.PrivateKey {
	key, err := ethcrypto.HexToECDSA(hexKey)
	if err != nil {
		panic(err)
	}
	return key
}

func keyAddress(key *ecdsa.PrivateKey) [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	return out
}

func newTestServer(t *testing.T, cfg ServerConfig, opts ...core.Option) *Server {
	t.Helper()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts = append([]core.Option{core.WithClock(func() time.Time { return at })}, opts...)
	node, err := core.NewNode(storage.NewMemDB(), core.DefaultEconomics(), opts...)
	require.NoError(t, err)
	require.NoError(t, node.InitGenesis(genesis.DevSpec(operator, at)))
	srv, err := NewServer(node, cfg)
	require.NoError(t, err)
	return srv
}

type rpcCall struct {
	method string
	params interface{}
	token  string
	// key signs the params when set. A zero nonce draws a fresh one.
	key   *ecdsa.PrivateKey
	nonce uint64
}

func (c rpcCall) do(t *testing.T, handler http.Handler) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()
	body := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": c.method}
	switch {
	case c.key != nil:
		fields, ok := c.params.(map[string]interface{})
		require.True(t, ok, "signed params must be an object")
		nonce := c.nonce
		if nonce == 0 {
			nonce = nextNonce.Add(1)
		}
		fields["nonce"] = nonce
		raw, err := json.Marshal(fields)
		require.NoError(t, err)
		sig, err := SignRequest(c.key, c.method, raw)
		require.NoError(t, err)
		body["params"] = []interface{}{json.RawMessage(raw), sig}
	case c.params != nil:
		body["params"] = []interface{}{c.params}
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	handler := srv.Router()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownMethod(t *testing.T) {
	handler := newTestServer(t, ServerConfig{}).Router()
	rec, resp := rpcCall{method: "nope"}.do(t, handler)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMutatingMethodsRequireToken(t *testing.T) {
	handler := newTestServer(t, ServerConfig{JWTSecret: testJWTSecret}).Router()

	rec, resp := rpcCall{method: "platform_startFirstSaleRound"}.do(t, handler)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	bad, err := IssueToken("other-secret", "operator", time.Minute)
	require.NoError(t, err)
	rec, _ = rpcCall{method: "platform_startFirstSaleRound", token: bad}.do(t, handler)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := IssueToken(testJWTSecret, "operator", time.Minute)
	require.NoError(t, err)
	rec, resp = rpcCall{method: "platform_startFirstSaleRound", token: token}.do(t, handler)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Nil(t, resp.Error)

	// reads stay open
	rec, _ = rpcCall{method: "platform_round"}.do(t, handler)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestModuleErrorsMapToKindCodes(t *testing.T) {
	handler := newTestServer(t, ServerConfig{}).Router()
	caller := crypto.FromRaw(operator).String()

	cases := []struct {
		name   string
		call   rpcCall
		status int
		code   int
	}{
		{
			name:   "not found",
			call:   rpcCall{method: "gov_getProposal", params: map[string]interface{}{"id": 42}},
			status: http.StatusNotFound,
			code:   codeNotFound,
		},
		{
			name:   "precondition",
			call:   rpcCall{method: "platform_startTradeRound"},
			status: http.StatusConflict,
			code:   codePreconditionFailed,
		},
		{
			name: "unauthorized",
			call: rpcCall{method: "gov_addProposal", key: outsiderKey, params: map[string]interface{}{
				"caller":    crypto.FromRaw(outsider).String(),
				"recipient": "module:platform",
				"payload":   "0x",
			}},
			status: http.StatusForbidden,
			code:   codeUnauthorizedCall,
		},
		{
			name:   "invalid argument",
			call:   rpcCall{method: "platform_register", key: operatorKey, params: map[string]interface{}{"caller": caller, "referrer": caller}},
			status: http.StatusBadRequest,
			code:   codeInvalidArgument,
		},
		{
			name: "proof rejected",
			call: rpcCall{method: "staking_stake", key: outsiderKey, params: map[string]interface{}{
				"caller": crypto.FromRaw(outsider).String(),
				"amount": "1000",
			}},
			status: http.StatusForbidden,
			code:   codeProofRejected,
		},
		{
			name:   "faucet disabled",
			call:   rpcCall{method: "acdm_fundAccount", params: map[string]interface{}{"address": caller, "amount": "1"}},
			status: http.StatusConflict,
			code:   codePreconditionFailed,
		},
		{
			name:   "bad params",
			call:   rpcCall{method: "acdm_getBalance", params: map[string]interface{}{"address": "junk", "token": "ETH"}},
			status: http.StatusBadRequest,
			code:   codeInvalidParams,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := tc.call.do(t, handler)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.NotNil(t, resp.Error)
			require.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestProposalRoundTrip(t *testing.T) {
	handler := newTestServer(t, ServerConfig{}).Router()
	payload, err := platform.EncodeSetTradeAward(30)
	require.NoError(t, err)
	caller := crypto.FromRaw(operator).String()

	rec, resp := rpcCall{method: "gov_addProposal", key: operatorKey, params: map[string]interface{}{
		"caller":      caller,
		"recipient":   "module:platform",
		"payload":     hexutil.Encode(payload),
		"description": "trade award to 3%",
	}}.do(t, handler)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Nil(t, resp.Error)

	_, resp = rpcCall{method: "gov_getProposal", params: map[string]interface{}{"id": 0}}.do(t, handler)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "setTradeAward(uint64)", result["signature"])
	require.Equal(t, "open", result["outcome"])
}

func TestSignedMethodsRecoverCaller(t *testing.T) {
	handler := newTestServer(t, ServerConfig{}).Router()
	payload, err := platform.EncodeSetTradeAward(30)
	require.NoError(t, err)
	proposal := func() map[string]interface{} {
		return map[string]interface{}{
			"caller":    crypto.FromRaw(operator).String(),
			"recipient": "module:platform",
			"payload":   hexutil.Encode(payload),
		}
	}

	// no signature
	rec, resp := rpcCall{method: "gov_addProposal", params: proposal()}.do(t, handler)
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	require.Equal(t, codeInvalidSignature, resp.Error.Code)

	// signed by someone other than the named caller
	rec, resp = rpcCall{method: "gov_addProposal", key: outsiderKey, params: proposal()}.do(t, handler)
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	require.Equal(t, codeInvalidSignature, resp.Error.Code)

	// a signature binds the method name too
	raw, err := json.Marshal(map[string]interface{}{"caller": crypto.FromRaw(operator).String(), "referrer": "module:platform", "nonce": 1})
	require.NoError(t, err)
	sig, err := SignRequest(operatorKey, "platform_buyACDM", raw)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0", "id": 1, "method": "platform_register",
		"params": []interface{}{json.RawMessage(raw), sig},
	})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	require.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())

	_, resp = rpcCall{method: "gov_getProposal", params: map[string]interface{}{"id": 0}}.do(t, handler)
	require.Equal(t, codeNotFound, resp.Error.Code)

	rec, resp = rpcCall{method: "gov_addProposal", key: operatorKey, params: proposal()}.do(t, handler)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Nil(t, resp.Error)
}

func TestSignedNonceCannotBeReplayed(t *testing.T) {
	handler := newTestServer(t, ServerConfig{}).Router()
	caller := crypto.FromRaw(operator).String()
	call := func(nonce uint64) (*httptest.ResponseRecorder, RPCResponse) {
		return rpcCall{method: "staking_stake", key: operatorKey, nonce: nonce, params: map[string]interface{}{
			"caller": caller,
			"amount": "1000",
		}}.do(t, handler)
	}

	rec, resp := call(7)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Nil(t, resp.Error)

	for _, nonce := range []uint64{7, 3} {
		rec, resp = call(nonce)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		require.Equal(t, codeInvalidArgument, resp.Error.Code)
	}

	_, resp = rpcCall{method: "acdm_getNonce", params: map[string]interface{}{"address": caller}}.do(t, handler)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 7, result["nonce"])

	rec, _ = call(8)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	handler := newTestServer(t, ServerConfig{RateLimitPerSecond: 0.001, RateLimitBurst: 1}).Router()
	rec, _ := rpcCall{method: "platform_round"}.do(t, handler)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, resp := rpcCall{method: "platform_round"}.do(t, handler)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}

func TestEventStreamReplaysBacklog(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	require.NoError(t, srv.node.StartFirstSaleRound())
	httpSrv := httptest.NewServer(srv.Router())
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(httpSrv.URL, "http")+"/ws/events?backlog=1", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var evt types.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	require.Equal(t, "platform.roundStarted", evt.Type)
}

func TestEventStreamRejectsBadBacklog(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/events?backlog=-1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplayCursorSkipsReplayedEvents(t *testing.T) {
	var cursor replayCursor
	for _, seq := range []uint64{4, 5} {
		require.True(t, cursor.advance(&types.Event{Sequence: seq}))
	}
	// committed between subscribe and backlog read
	require.False(t, cursor.advance(&types.Event{Sequence: 5}))
	require.False(t, cursor.advance(&types.Event{Sequence: 3}))
	require.False(t, cursor.advance(nil))
	require.True(t, cursor.advance(&types.Event{Sequence: 6}))
}
