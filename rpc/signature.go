package rpc

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	codeInvalidSignature = -32002
	signaturePrefix      = "\x19ACDM RPC request:\n"
)

// signedFields is carried by every parameter object that names a caller.
type signedFields struct {
	Nonce uint64 `json:"nonce,omitempty"`
}

type signedEnvelope struct {
	Caller string `json:"caller"`
	Nonce  uint64 `json:"nonce"`
}

// RequestDigest is the hash a caller signs: the method name followed by the
// exact bytes of its parameter object.
func RequestDigest(method string, params []byte) []byte {
	return ethcrypto.Keccak256([]byte(signaturePrefix+method+"\n"), params)
}

// SignRequest returns the 0x-prefixed signature to send as the second
// parameter of a signed method.
func SignRequest(key *ecdsa.PrivateKey, method string, params []byte) (string, error) {
	if key == nil {
		return "", fmt.Errorf("signing key required")
	}
	sig, err := ethcrypto.Sign(RequestDigest(method, params), key)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

func recoverSigner(method string, params []byte, signature string) ([20]byte, error) {
	var zero [20]byte
	sig, err := decodeHex(signature)
	if err != nil {
		return zero, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != 65 {
		return zero, fmt.Errorf("signature must be 65 bytes")
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(RequestDigest(method, params), sig)
	if err != nil {
		return zero, fmt.Errorf("invalid signature: %w", err)
	}
	var out [20]byte
	copy(out[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return out, nil
}

// verifyCaller checks that params are [object, signature], that the signature
// recovers the object's caller and that its nonce is fresh. On success the
// signature is dropped so handlers see a single parameter object.
func (s *Server) verifyCaller(w http.ResponseWriter, req *RPCRequest) bool {
	if len(req.Params) != 2 {
		writeError(w, http.StatusUnauthorized, req.ID, codeInvalidSignature, "parameter object and signature expected", nil)
		return false
	}
	var signature string
	if err := json.Unmarshal(req.Params[1], &signature); err != nil || strings.TrimSpace(signature) == "" {
		writeError(w, http.StatusUnauthorized, req.ID, codeInvalidSignature, "signature must be a hex string", nil)
		return false
	}
	var envelope signedEnvelope
	if err := json.Unmarshal(req.Params[0], &envelope); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	caller, err := parseAddress(envelope.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return false
	}
	if envelope.Nonce == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "nonce must be greater than zero", nil)
		return false
	}
	signer, err := recoverSigner(req.Method, req.Params[0], signature)
	if err != nil {
		writeError(w, http.StatusUnauthorized, req.ID, codeInvalidSignature, err.Error(), nil)
		return false
	}
	if signer != caller {
		writeError(w, http.StatusUnauthorized, req.ID, codeInvalidSignature, "signature does not match caller", nil)
		return false
	}
	if err := s.node.ConsumeNonce(caller, envelope.Nonce); err != nil {
		writeNodeError(w, req, err)
		return false
	}
	req.Params = req.Params[:1]
	return true
}
