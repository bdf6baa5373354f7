package main

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/zibert/ACDM/config"
	"github.com/zibert/ACDM/crypto"
	"github.com/zibert/ACDM/native/platform"
	"github.com/zibert/ACDM/rpc"
)

func TestResolveGenesisPathPrecedence(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key != genesisPathEnv {
			t.Fatalf("unexpected lookup key: %s", key)
		}
		return "env-path", true
	}

	t.Run("cli flag takes precedence", func(t *testing.T) {
		path, err := resolveGenesisPath("cli-path", "cfg-path", true, lookup)
		if err != nil {
			t.Fatalf("resolveGenesisPath returned error: %v", err)
		}
		if path != "cli-path" {
			t.Fatalf("unexpected path: got %q want %q", path, "cli-path")
		}
	})

	t.Run("environment overrides config", func(t *testing.T) {
		path, err := resolveGenesisPath("", "cfg-path", true, lookup)
		if err != nil {
			t.Fatalf("resolveGenesisPath returned error: %v", err)
		}
		if path != "env-path" {
			t.Fatalf("unexpected path: got %q want %q", path, "env-path")
		}
	})

	t.Run("autogenesis yields empty path", func(t *testing.T) {
		emptyLookup := func(string) (string, bool) { return "", false }
		path, err := resolveGenesisPath("", "", true, emptyLookup)
		if err != nil {
			t.Fatalf("resolveGenesisPath returned error: %v", err)
		}
		if path != "" {
			t.Fatalf("expected empty path, got %q", path)
		}
	})
}

func TestResolveGenesisPathErrorWhenRequired(t *testing.T) {
	emptyLookup := func(string) (string, bool) { return "", false }
	if _, err := resolveGenesisPath("", "", false, emptyLookup); err == nil {
		t.Fatalf("expected error when no genesis sources available and autogenesis disabled")
	}
}

func TestResolveAllowAutogenesis(t *testing.T) {
	env := func(value string) envLookupFunc {
		return func(string) (string, bool) { return value, value != "" }
	}
	allow, err := resolveAllowAutogenesis(false, false, false, env("true"))
	if err != nil || !allow {
		t.Fatalf("environment should enable autogenesis: %v %v", allow, err)
	}
	allow, err = resolveAllowAutogenesis(true, true, false, env("true"))
	if err != nil || allow {
		t.Fatalf("cli flag should win: %v %v", allow, err)
	}
	if _, err := resolveAllowAutogenesis(false, false, false, env("maybe")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAutogenesisNeedsDevOwner(t *testing.T) {
	emptyLookup := func(string) (string, bool) { return "", false }
	cfg := config.Default()
	if _, err := loadGenesis("", cfg, true, emptyLookup); err == nil {
		t.Fatalf("expected error without dev owner")
	}
	owner := [20]byte{0x42}
	cfg.Genesis.DevOwner = crypto.FromRaw(owner).String()
	spec, err := loadGenesis("", cfg, true, emptyLookup)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("dev genesis invalid: %v", err)
	}
	if spec.OwnerAddress() != owner {
		t.Fatalf("unexpected owner %x", spec.OwnerAddress())
	}
}

func TestEconomicsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Platform.InitialPrice = "20_000_000_000_000"
	econ, err := economicsFromConfig(cfg)
	if err != nil {
		t.Fatalf("economics: %v", err)
	}
	if econ.Platform.InitialPrice.Cmp(big.NewInt(2e13)) != 0 {
		t.Fatalf("unexpected initial price %s", econ.Platform.InitialPrice)
	}
	if econ.Reward.RateBps != 300 || econ.DebatingPeriod != cfg.Governance.DebatingPeriodSeconds {
		t.Fatalf("unexpected economics %+v", econ)
	}

	cfg.Governance.MinimumQuorum = "ten"
	if _, err := economicsFromConfig(cfg); err == nil {
		t.Fatalf("expected quorum parse error")
	}
}

func TestEncodePayload(t *testing.T) {
	result, err := encodePayload("setFirstLevelSaleAward", []string{"40"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if result.Signature != "setFirstLevelSaleAward(uint64)" {
		t.Fatalf("unexpected signature %q", result.Signature)
	}
	if result.Recipient != crypto.FromRaw(platform.Address).String() {
		t.Fatalf("unexpected recipient %s", result.Recipient)
	}

	if _, err := encodePayload("burnXXXToken", []string{"1"}); err == nil {
		t.Fatalf("expected argument error")
	}
	if _, err := encodePayload("selfDestruct", nil); err == nil {
		t.Fatalf("expected unknown method error")
	}
	if _, err := encodePayload("setRoot", []string{"0x1234"}); err == nil {
		t.Fatalf("expected short root error")
	}
}

func TestSignParamsStampsCaller(t *testing.T) {
	key, err := ethcrypto.HexToECDSA("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	params, err := signParams(key, "gov_vote", []byte(`{"caller":"ignored","id":18446744073709551615,"support":true}`), 4)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	object, ok := params[0].(json.RawMessage)
	if !ok {
		t.Fatalf("unexpected object %T", params[0])
	}
	var fields struct {
		Caller string `json:"caller"`
		ID     uint64 `json:"id"`
		Nonce  uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(object, &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	signer := ethcrypto.PubkeyToAddress(key.PublicKey)
	var raw [20]byte
	copy(raw[:], signer.Bytes())
	if fields.Caller != crypto.FromRaw(raw).String() || fields.Nonce != 4 || fields.ID != ^uint64(0) {
		t.Fatalf("unexpected fields %+v", fields)
	}

	sig, err := hexutil.Decode(params[1].(string))
	if err != nil {
		t.Fatalf("signature: %v", err)
	}
	pub, err := ethcrypto.SigToPub(rpc.RequestDigest("gov_vote", object), sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if ethcrypto.PubkeyToAddress(*pub) != signer {
		t.Fatalf("signature recovers %s", ethcrypto.PubkeyToAddress(*pub).Hex())
	}

	if _, err := signParams(key, "gov_vote", []byte(`{}`), 0); err == nil {
		t.Fatalf("expected zero nonce error")
	}
}

func TestBuildAllowListProofs(t *testing.T) {
	a := crypto.FromRaw([20]byte{0x01}).String()
	b := crypto.FromRaw([20]byte{0x02}).String()
	result, err := buildAllowList([]string{a, b}, true)
	if err != nil {
		t.Fatalf("allow list: %v", err)
	}
	if len(result.Proofs) != 2 || len(result.Proofs[a]) != 1 {
		t.Fatalf("unexpected proofs %+v", result.Proofs)
	}
	if _, err := buildAllowList(nil, false); err == nil {
		t.Fatalf("expected empty tree error")
	}
}

func TestSetupTelemetryRejectsBadHeaders(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Traces = true
	cfg.Telemetry.HeadersEnv = "ACDM_OTEL_HEADERS"
	lookup := func(key string) (string, bool) { return "broken", key == "ACDM_OTEL_HEADERS" }
	if _, err := setupTelemetry(context.Background(), cfg, lookup); err == nil {
		t.Fatalf("expected header parse error")
	}
	cfg.Telemetry.Traces = false
	tel, err := setupTelemetry(context.Background(), cfg, func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("setup disabled telemetry: %v", err)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
