package staking

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	coreerrors "github.com/zibert/ACDM/core/errors"
	"github.com/zibert/ACDM/core/events"
	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/crypto"
	"github.com/zibert/ACDM/storage"
)

type fakeParticipation struct {
	open map[[20]byte]uint64
}

func (f *fakeParticipation) OpenParticipations(addr [20]byte) (uint64, error) {
	return f.open[addr], nil
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(e events.Event) { c.events = append(c.events, e) }

type vaultFixture struct {
	engine   *Engine
	manager  *state.Manager
	clock    time.Time
	tree     *crypto.MerkleTree
	owner    [20]byte
	governor [20]byte
	alice    [20]byte
	outsider [20]byte
	votes    *fakeParticipation
	emitter  *captureEmitter
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newVaultFixture(t *testing.T) *vaultFixture {
	t.Helper()
	f := &vaultFixture{
		manager:  state.NewManager(storage.NewOverlay(storage.NewMemDB())),
		clock:    time.Unix(1_700_000_000, 0),
		owner:    [20]byte{0x01},
		governor: [20]byte{0x02},
		alice:    [20]byte{0x03},
		outsider: [20]byte{0x04},
		votes:    &fakeParticipation{open: map[[20]byte]uint64{}},
		emitter:  &captureEmitter{},
	}
	tree, err := crypto.NewAddressTree([][20]byte{f.owner, f.alice})
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	f.tree = tree
	for _, symbol := range []string{state.TokenLP, state.TokenXXX} {
		if err := f.manager.RegisterToken(symbol, symbol, 18); err != nil {
			t.Fatalf("register %s: %v", symbol, err)
		}
	}
	for _, holder := range [][20]byte{f.owner, f.alice, f.outsider} {
		if err := f.manager.Mint(state.TokenLP, nil, holder[:], ether(100)); err != nil {
			t.Fatalf("mint lp: %v", err)
		}
	}
	if err := f.manager.Mint(state.TokenXXX, nil, VaultAddress[:], ether(1000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}

	f.engine = NewEngine()
	f.engine.SetState(f.manager)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() time.Time { return f.clock })
	f.engine.SetParticipation(f.votes)
	if err := f.engine.Init(f.owner, Params{Root: tree.Root(), UnstakeDelay: DefaultUnstakeDelay}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := f.engine.SetGovernor(f.owner, f.governor); err != nil {
		t.Fatalf("set governor: %v", err)
	}
	return f
}

func (f *vaultFixture) proof(t *testing.T, addr [20]byte) []common.Hash {
	t.Helper()
	proof, ok := f.tree.Proof(crypto.MerkleLeaf(addr))
	if !ok {
		t.Fatalf("no proof for %x", addr)
	}
	return proof
}

func (f *vaultFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *vaultFixture) balance(t *testing.T, addr [20]byte, symbol string) *big.Int {
	t.Helper()
	bal, err := f.manager.Balance(addr[:], symbol)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

const day = 24 * time.Hour

func TestStakeZeroAmountFailsRegardlessOfProof(t *testing.T) {
	f := newVaultFixture(t)
	proofs := [][]common.Hash{f.proof(t, f.owner), nil, {common.Hash{0xff}}}
	for _, proof := range proofs {
		_, err := f.engine.Stake(f.owner, big.NewInt(0), proof)
		if !errors.Is(err, ErrZeroAmount) || !errors.Is(err, coreerrors.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	}
	if _, err := f.engine.Stake(f.owner, nil, nil); !errors.Is(err, coreerrors.ErrInvalidArgument) {
		t.Fatalf("nil amount should be rejected, got %v", err)
	}
}

func TestStakeRejectsOutsider(t *testing.T) {
	f := newVaultFixture(t)
	_, err := f.engine.Stake(f.outsider, ether(10), f.proof(t, f.owner))
	if !errors.Is(err, coreerrors.ErrProofRejected) {
		t.Fatalf("expected proof rejection, got %v", err)
	}
	if f.balance(t, f.outsider, state.TokenLP).Cmp(ether(100)) != 0 {
		t.Fatalf("rejected stake must not move collateral")
	}
}

func TestStakeAssignsSequentialIDsAndWeight(t *testing.T) {
	f := newVaultFixture(t)
	first, err := f.engine.Stake(f.owner, ether(10), f.proof(t, f.owner))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	second, err := f.engine.Stake(f.owner, ether(5), f.proof(t, f.owner))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	if first != 0 || second != 1 {
		t.Fatalf("unexpected ids %d %d", first, second)
	}
	weight, err := f.engine.VotingWeight(f.owner)
	if err != nil {
		t.Fatalf("weight: %v", err)
	}
	if weight.Cmp(ether(15)) != 0 {
		t.Fatalf("unexpected weight %s", weight)
	}
	if f.balance(t, VaultAddress, state.TokenLP).Cmp(ether(15)) != 0 {
		t.Fatalf("vault should hold the collateral")
	}
	positions, err := f.engine.PositionsOf(f.owner)
	if err != nil || len(positions) != 2 {
		t.Fatalf("positions: %v %d", err, len(positions))
	}
	if len(f.emitter.events) == 0 || f.emitter.events[len(f.emitter.events)-1].EventType() != events.TypeStakingStaked {
		t.Fatalf("expected staked event")
	}
}

func TestClaimPaysWholeWeeks(t *testing.T) {
	f := newVaultFixture(t)
	id, err := f.engine.Stake(f.owner, ether(10), f.proof(t, f.owner))
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	hundredths := func(n int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e16))
	}

	f.advance(10*day + time.Second)
	if _, err := f.engine.Claim(f.owner, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.balance(t, f.owner, state.TokenXXX); got.Cmp(hundredths(30)) != 0 {
		t.Fatalf("expected 0.3, got %s", got)
	}

	f.advance(4*day + time.Second)
	if _, err := f.engine.Claim(f.owner, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.balance(t, f.owner, state.TokenXXX); got.Cmp(hundredths(60)) != 0 {
		t.Fatalf("expected 0.6, got %s", got)
	}

	f.advance(15*day + time.Second)
	if _, err := f.engine.Claim(f.owner, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.balance(t, f.owner, state.TokenXXX); got.Cmp(hundredths(120)) != 0 {
		t.Fatalf("expected 1.2, got %s", got)
	}
}

func TestClaimTwiceFailsWithNothingToTransfer(t *testing.T) {
	f := newVaultFixture(t)
	id, _ := f.engine.Stake(f.owner, ether(10), f.proof(t, f.owner))
	if _, err := f.engine.Claim(f.owner, id); !errors.Is(err, ErrNothingToTransfer) {
		t.Fatalf("expected nothing to transfer before a full period, got %v", err)
	}
	f.advance(7*day + time.Second)
	if _, err := f.engine.Claim(f.owner, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_, err := f.engine.Claim(f.owner, id)
	if !errors.Is(err, ErrNothingToTransfer) || !errors.Is(err, coreerrors.ErrPreconditionFailed) {
		t.Fatalf("expected nothing to transfer, got %v", err)
	}
}

func TestClaimRequiresOwner(t *testing.T) {
	f := newVaultFixture(t)
	id, _ := f.engine.Stake(f.owner, ether(10), f.proof(t, f.owner))
	f.advance(8 * day)
	if _, err := f.engine.Claim(f.alice, id); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.engine.Claim(f.owner, 99); !errors.Is(err, coreerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClaimFailsWhenPoolIsEmpty(t *testing.T) {
	f := newVaultFixture(t)
	if err := f.manager.Burn(state.TokenXXX, VaultAddress[:], ether(1000)); err != nil {
		t.Fatalf("drain pool: %v", err)
	}
	id, _ := f.engine.Stake(f.owner, ether(10), f.proof(t, f.owner))
	f.advance(8 * day)
	if _, err := f.engine.Claim(f.owner, id); !errors.Is(err, coreerrors.ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	pos, _ := f.engine.Position(id)
	if pos.LastClaim != pos.StakedAt {
		t.Fatalf("failed claim must not advance last claim")
	}
}

func TestUnstakeTwoPhase(t *testing.T) {
	f := newVaultFixture(t)
	id, _ := f.engine.Stake(f.owner, ether(10), f.proof(t, f.owner))

	if _, err := f.engine.Unstake(f.alice, id); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected owner check, got %v", err)
	}
	released, err := f.engine.Unstake(f.owner, id)
	if err != nil || released {
		t.Fatalf("first call should record the request: released=%v err=%v", released, err)
	}
	if err := f.engine.RequestUnstake(f.owner, id); !errors.Is(err, ErrAlreadyRequested) {
		t.Fatalf("expected already requested, got %v", err)
	}
	weight, _ := f.engine.VotingWeight(f.owner)
	if weight.Sign() != 0 {
		t.Fatalf("requested position must not carry weight, got %s", weight)
	}

	f.advance(3*day - time.Second)
	_, err = f.engine.Unstake(f.owner, id)
	if !errors.Is(err, ErrUnstakeTooEarly) || !errors.Is(err, coreerrors.ErrPreconditionFailed) {
		t.Fatalf("expected too early, got %v", err)
	}

	f.advance(time.Second)
	released, err = f.engine.Unstake(f.owner, id)
	if err != nil || !released {
		t.Fatalf("expected release: released=%v err=%v", released, err)
	}
	if got := f.balance(t, f.owner, state.TokenLP); got.Cmp(ether(100)) != 0 {
		t.Fatalf("expected full principal back, got %s", got)
	}
	if _, err := f.engine.Unstake(f.owner, id); !errors.Is(err, ErrAlreadyReleased) {
		t.Fatalf("expected already released, got %v", err)
	}
}

func TestUnstakeBlockedByOpenParticipation(t *testing.T) {
	f := newVaultFixture(t)
	id, _ := f.engine.Stake(f.owner, ether(10), f.proof(t, f.owner))
	f.votes.open[f.owner] = 1
	if _, err := f.engine.Unstake(f.owner, id); !errors.Is(err, ErrActiveVotings) {
		t.Fatalf("expected active votings, got %v", err)
	}
	pos, _ := f.engine.Position(id)
	if pos.UnstakeRequested {
		t.Fatalf("blocked request must not be recorded")
	}

	f.votes.open[f.owner] = 0
	if _, err := f.engine.Unstake(f.owner, id); err != nil {
		t.Fatalf("request: %v", err)
	}
	f.advance(3 * day)
	f.votes.open[f.owner] = 1
	if _, err := f.engine.Unstake(f.owner, id); !errors.Is(err, ErrActiveVotings) {
		t.Fatalf("release should also wait for open votes, got %v", err)
	}
}

func TestGovernedSettersRequireGovernor(t *testing.T) {
	f := newVaultFixture(t)
	if err := f.engine.SetUnstakeDelay(f.alice, 42); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected not allowed, got %v", err)
	}
	if err := f.engine.SetAllowListRoot(f.owner, [32]byte{1}); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	payload, err := EncodeSetTimeToUnstake(42)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := f.engine.Apply(f.governor, payload); err != nil {
		t.Fatalf("apply: %v", err)
	}
	params, _ := f.engine.Params()
	if params.UnstakeDelay != 42 || params.Version != 1 {
		t.Fatalf("unexpected params %+v", params)
	}

	next, _ := crypto.NewAddressTree([][20]byte{f.outsider})
	payload, _ = EncodeSetRoot(next.Root())
	if err := f.engine.Apply(f.governor, payload); err != nil {
		t.Fatalf("apply root: %v", err)
	}
	proof, _ := next.Proof(crypto.MerkleLeaf(f.outsider))
	if _, err := f.engine.Stake(f.outsider, ether(1), proof); err != nil {
		t.Fatalf("outsider should now be allowed: %v", err)
	}
	if _, err := f.engine.Stake(f.alice, ether(1), f.proof(t, f.alice)); !errors.Is(err, ErrNotInWhiteList) {
		t.Fatalf("old members should be rejected, got %v", err)
	}
	sig, err := DescribeCall(payload)
	if err != nil || sig != "setRoot(bytes32)" {
		t.Fatalf("unexpected signature %q err=%v", sig, err)
	}
}

func TestSettersWithoutGovernor(t *testing.T) {
	f := &vaultFixture{manager: state.NewManager(storage.NewOverlay(storage.NewMemDB()))}
	engine := NewEngine()
	engine.SetState(f.manager)
	if err := engine.Init([20]byte{1}, Params{}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := engine.SetUnstakeDelay([20]byte{1}, 0); !errors.Is(err, ErrGovernorNotSet) {
		t.Fatalf("expected dao not init, got %v", err)
	}
	if err := engine.Init([20]byte{1}, Params{}); !errors.Is(err, ErrAlreadyInitialised) {
		t.Fatalf("expected double init to fail, got %v", err)
	}
}

func TestSetGovernorOwnerOnlyAndIdempotent(t *testing.T) {
	f := newVaultFixture(t)
	if err := f.engine.SetGovernor(f.alice, f.alice); !errors.Is(err, ErrOnlyOwner) {
		t.Fatalf("expected only owner, got %v", err)
	}
	if err := f.engine.SetGovernor(f.owner, f.governor); err != nil {
		t.Fatalf("same governor should be accepted: %v", err)
	}
	if err := f.engine.SetGovernor(f.owner, f.alice); !errors.Is(err, ErrGovernorAlreadySet) {
		t.Fatalf("expected already set, got %v", err)
	}
}

func TestRewardPolicyIsLinear(t *testing.T) {
	policy := RewardPolicy{Period: 100, RateBps: 250}
	principal := big.NewInt(1_000_000)
	whole, periods := policy.Reward(principal, 0, 1000)
	if periods != 10 || whole.Int64() != 250_000 {
		t.Fatalf("unexpected reward %s over %d periods", whole, periods)
	}
	first, p1 := policy.Reward(principal, 0, 400)
	second, p2 := policy.Reward(principal, 400, 1000)
	if p1+p2 != periods || new(big.Int).Add(first, second).Cmp(whole) != 0 {
		t.Fatalf("split accrual should match a single claim")
	}
	if zero, n := policy.Reward(principal, 1000, 1000); zero.Sign() != 0 || n != 0 {
		t.Fatalf("no time elapsed should accrue nothing")
	}
}
