package state

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "github.com/zibert/ACDM/core/errors"
	"github.com/zibert/ACDM/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.Overlay) {
	t.Helper()
	ov := storage.NewOverlay(storage.NewMemDB())
	return NewManager(ov), ov
}

func TestKVRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	type record struct {
		ID    uint64
		Owner [20]byte
		Value *big.Int
	}
	in := record{ID: 7, Owner: [20]byte{1}, Value: big.NewInt(42)}
	if err := mgr.KVPut([]byte("rec/7"), in); err != nil {
		t.Fatalf("put: %v", err)
	}
	var out record
	ok, err := mgr.KVGet([]byte("rec/7"), &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.ID != 7 || out.Owner != in.Owner || out.Value.Cmp(in.Value) != 0 {
		t.Fatalf("unexpected record: %+v", out)
	}
	if err := mgr.KVDelete([]byte("rec/7")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = mgr.KVGet([]byte("rec/7"), &out)
	if err != nil || ok {
		t.Fatalf("expected missing record, ok=%v err=%v", ok, err)
	}
}

func TestKVAppendDeduplicates(t *testing.T) {
	mgr, _ := newTestManager(t)
	var empty [][]byte
	if err := mgr.KVGetList([]byte("list"), &empty); err != nil {
		t.Fatalf("get empty list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected initialised empty list")
	}
	for _, v := range [][]byte{{1}, {2}, {1}} {
		if err := mgr.KVAppend([]byte("list"), v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	var list [][]byte
	if err := mgr.KVGetList([]byte("list"), &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
}

func TestLedgerTransferMintBurn(t *testing.T) {
	mgr, _ := newTestManager(t)
	authority := []byte("minter-minter-minter")
	alice := []byte("alice-alice-alice-al")
	bob := []byte("bob-bob-bob-bob-bob-")
	if err := mgr.RegisterToken(TokenACDM, "ACDM", 6); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := mgr.SetTokenMintAuthority(TokenACDM, authority); err != nil {
		t.Fatalf("authority: %v", err)
	}
	if err := mgr.Mint(TokenACDM, alice, alice, big.NewInt(10)); !errors.Is(err, ErrMintUnauthorized) {
		t.Fatalf("expected unauthorized mint, got %v", err)
	}
	if err := mgr.Mint(TokenACDM, authority, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := mgr.Transfer(TokenACDM, alice, bob, big.NewInt(30)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	err := mgr.Transfer(TokenACDM, bob, alice, big.NewInt(31))
	if !errors.Is(err, coreerrors.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	if err := mgr.Burn(TokenACDM, alice, big.NewInt(70)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	aliceBal, _ := mgr.Balance(alice, TokenACDM)
	bobBal, _ := mgr.Balance(bob, "acdm")
	if aliceBal.Sign() != 0 || bobBal.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("unexpected balances alice=%s bob=%s", aliceBal, bobBal)
	}
	meta, err := mgr.Token(TokenACDM)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if meta.TotalSupply.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("unexpected supply %s", meta.TotalSupply)
	}
	if err := mgr.RegisterToken("acdm", "dup", 6); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestSetBalanceRejectsOverflow(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.RegisterToken(TokenETH, "Ether", 18); err != nil {
		t.Fatalf("register: %v", err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	if err := mgr.SetBalance([]byte("acct"), TokenETH, huge); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestEnsureStateVersion(t *testing.T) {
	mgr, ov := newTestManager(t)
	if err := EnsureStateVersion(ov, false); err != nil {
		t.Fatalf("fresh store should pass: %v", err)
	}
	if err := mgr.SetStateVersion(StateVersion + 1); err != nil {
		t.Fatalf("set version: %v", err)
	}
	if err := EnsureStateVersion(ov, false); !errors.Is(err, ErrStateVersionMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := EnsureStateVersion(ov, true); err != nil {
		t.Fatalf("migration override should pass: %v", err)
	}
}
