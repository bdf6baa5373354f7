package governance

import (
	"errors"
	"math/big"
	"testing"
	"time"

	coreerrors "github.com/zibert/ACDM/core/errors"
	"github.com/zibert/ACDM/core/events"
	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/storage"
)

type fakeWeights struct {
	weights map[[20]byte]*big.Int
}

func (f *fakeWeights) VotingWeight(addr [20]byte) (*big.Int, error) {
	if w, ok := f.weights[addr]; ok {
		return new(big.Int).Set(w), nil
	}
	return big.NewInt(0), nil
}

type recordingExecutor struct {
	calls   int
	caller  [20]byte
	payload []byte
	err     error
}

func (r *recordingExecutor) Call(recipient, caller [20]byte, payload []byte) error {
	r.calls++
	r.caller = caller
	r.payload = append([]byte(nil), payload...)
	return r.err
}

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(e events.Event) { c.events = append(c.events, e) }

func (c *captureEmitter) last() string {
	if len(c.events) == 0 {
		return ""
	}
	return c.events[len(c.events)-1].EventType()
}

var (
	chair     = [20]byte{0xc0}
	recipient = [20]byte{0xee}
	alice     = [20]byte{0x01}
	bob       = [20]byte{0x02}
	carol     = [20]byte{0x03}
	dave      = [20]byte{0x04}
	nobody    = [20]byte{0x05}
)

type governorFixture struct {
	engine  *Engine
	clock   time.Time
	weights *fakeWeights
	exec    *recordingExecutor
	emitter *captureEmitter
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newGovernorFixture(t *testing.T) *governorFixture {
	t.Helper()
	f := &governorFixture{
		clock: time.Unix(1_700_000_000, 0),
		weights: &fakeWeights{weights: map[[20]byte]*big.Int{
			alice: ether(6),
			bob:   ether(3),
			carol: ether(2),
			dave:  ether(1),
		}},
		exec:    &recordingExecutor{},
		emitter: &captureEmitter{},
	}
	f.engine = NewEngine()
	f.engine.SetState(state.NewManager(storage.NewOverlay(storage.NewMemDB())))
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() time.Time { return f.clock })
	f.engine.SetWeightSource(f.weights)
	f.engine.SetExecutor(f.exec)
	if err := f.engine.Init(Config{Chair: chair, MinimumQuorum: ether(10), DebatingPeriod: DefaultDebatingPeriod}); err != nil {
		t.Fatalf("init: %v", err)
	}
	return f
}

func (f *governorFixture) propose(t *testing.T) uint64 {
	t.Helper()
	id, err := f.engine.AddProposal(chair, recipient, []byte{0xde, 0xad, 0xbe, 0xef}, "raise award")
	if err != nil {
		t.Fatalf("add proposal: %v", err)
	}
	return id
}

func (f *governorFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

const period = time.Duration(DefaultDebatingPeriod) * time.Second

func TestInitRejectsSecondCall(t *testing.T) {
	f := newGovernorFixture(t)
	if err := f.engine.Init(Config{Chair: alice}); !errors.Is(err, ErrAlreadyInitialised) {
		t.Fatalf("expected already initialised, got %v", err)
	}
}

func TestAddProposalChairOnly(t *testing.T) {
	f := newGovernorFixture(t)
	if _, err := f.engine.AddProposal(alice, recipient, nil, ""); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := f.engine.AddProposal(chair, [20]byte{}, nil, ""); !errors.Is(err, coreerrors.ErrInvalidArgument) {
		t.Fatalf("expected invalid recipient, got %v", err)
	}
	first := f.propose(t)
	second := f.propose(t)
	if first != 0 || second != 1 {
		t.Fatalf("unexpected ids %d %d", first, second)
	}
	p, err := f.engine.Proposal(first)
	if err != nil {
		t.Fatalf("proposal: %v", err)
	}
	if p.EndsAt-p.CreatedAt != DefaultDebatingPeriod || p.Outcome != OutcomeOpen {
		t.Fatalf("unexpected proposal %+v", p)
	}
	if f.emitter.last() != events.TypeGovernanceProposalAdded {
		t.Fatalf("expected proposal added event")
	}
}

func TestVoteChecks(t *testing.T) {
	f := newGovernorFixture(t)
	if err := f.engine.Vote(alice, 7, true); !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected not exist, got %v", err)
	}
	id := f.propose(t)
	if err := f.engine.Vote(nobody, id, true); !errors.Is(err, ErrNoVotingTokens) {
		t.Fatalf("expected zero weight rejection, got %v", err)
	}
	if err := f.engine.Vote(alice, id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := f.engine.Vote(alice, id, false); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected already voted, got %v", err)
	}
	if err := f.engine.Delegate(bob, id, carol); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if err := f.engine.Vote(bob, id, true); !errors.Is(err, ErrAlreadyVotedOrDelegated) {
		t.Fatalf("expected already delegated, got %v", err)
	}
	f.advance(period)
	if err := f.engine.Vote(carol, id, true); !errors.Is(err, ErrVotingOver) {
		t.Fatalf("expected voting over at the boundary, got %v", err)
	}
}

func TestDelegationChecks(t *testing.T) {
	f := newGovernorFixture(t)
	id := f.propose(t)
	cases := []struct {
		name string
		from [20]byte
		to   [20]byte
		want error
	}{
		{"zero deposit", nobody, alice, ErrZeroDeposit},
		{"self", alice, alice, ErrSelfDelegation},
		{"zero target", alice, [20]byte{}, ErrZeroDelegate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := f.engine.Delegate(tc.from, id, tc.to); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if err := f.engine.Vote(alice, id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := f.engine.Delegate(bob, id, alice); !errors.Is(err, ErrDelegationToVoted) {
		t.Fatalf("expected delegation to voted, got %v", err)
	}
	if err := f.engine.Delegate(bob, id, carol); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if err := f.engine.Delegate(bob, id, dave); !errors.Is(err, ErrAlreadyVotedOrDelegated) {
		t.Fatalf("expected second delegation rejected, got %v", err)
	}
	if err := f.engine.Delegate(dave, id, bob); !errors.Is(err, ErrDelegationToDelegated) {
		t.Fatalf("expected delegation to delegated, got %v", err)
	}
	if err := f.engine.Delegate(carol, id, dave); !errors.Is(err, ErrDelegatorHasIncoming) {
		t.Fatalf("expected multi-hop rejection, got %v", err)
	}
}

func TestDelegatedWeightCountedExactlyOnce(t *testing.T) {
	f := newGovernorFixture(t)
	id := f.propose(t)
	if err := f.engine.Delegate(bob, id, carol); err != nil {
		t.Fatalf("delegate bob: %v", err)
	}
	if err := f.engine.Delegate(dave, id, carol); err != nil {
		t.Fatalf("delegate dave: %v", err)
	}
	// Weight is read when the delegate votes.
	f.weights.weights[bob] = ether(4)
	if err := f.engine.Vote(carol, id, false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := f.engine.Vote(alice, id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	yes, no, err := f.engine.Votes(id)
	if err != nil {
		t.Fatalf("votes: %v", err)
	}
	if yes.Cmp(ether(6)) != 0 || no.Cmp(ether(7)) != 0 {
		t.Fatalf("unexpected tally yes=%s no=%s", yes, no)
	}
	b, err := f.engine.Ballot(id, bob)
	if err != nil || b == nil || !b.Counted || b.Weight.Cmp(ether(4)) != 0 {
		t.Fatalf("bob's delegation should be marked counted: %+v %v", b, err)
	}
	voted, ok := f.emitter.events[len(f.emitter.events)-2].(events.GovernanceVoted)
	if !ok || voted.Delegated.Cmp(ether(5)) != 0 || voted.Weight.Cmp(ether(7)) != 0 {
		t.Fatalf("unexpected voted event %+v", f.emitter.events[len(f.emitter.events)-2])
	}
}

func TestVoterWithoutStakeCastsDelegatedWeight(t *testing.T) {
	f := newGovernorFixture(t)
	id := f.propose(t)
	if err := f.engine.Delegate(bob, id, nobody); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if err := f.engine.Vote(nobody, id, true); err != nil {
		t.Fatalf("vote with delegated weight only: %v", err)
	}
	yes, no, err := f.engine.Votes(id)
	if err != nil {
		t.Fatalf("votes: %v", err)
	}
	if yes.Cmp(ether(3)) != 0 || no.Sign() != 0 {
		t.Fatalf("unexpected tally yes=%s no=%s", yes, no)
	}
	b, err := f.engine.Ballot(id, bob)
	if err != nil || b == nil || !b.Counted {
		t.Fatalf("delegation should be counted: %+v %v", b, err)
	}

	// nothing own and nothing delegated
	other := f.propose(t)
	if err := f.engine.Vote(nobody, other, true); !errors.Is(err, ErrNoVotingTokens) {
		t.Fatalf("expected no voting tokens, got %v", err)
	}
}

func TestFinishBoundaryAndExecution(t *testing.T) {
	f := newGovernorFixture(t)
	id := f.propose(t)
	if err := f.engine.Vote(alice, id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := f.engine.Delegate(bob, id, carol); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if err := f.engine.Vote(carol, id, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	open, err := f.engine.OpenParticipations(bob)
	if err != nil || open != 1 {
		t.Fatalf("delegator should be participating: %d %v", open, err)
	}

	f.advance(period - time.Second)
	if _, err := f.engine.FinishProposal(id); !errors.Is(err, ErrVotingInProgress) {
		t.Fatalf("expected voting in progress, got %v", err)
	}
	f.advance(time.Second)
	outcome, err := f.engine.FinishProposal(id)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if outcome != OutcomeExecutedOk || f.exec.calls != 1 || f.exec.caller != Address {
		t.Fatalf("expected executed call, got %s calls=%d", outcome, f.exec.calls)
	}
	if string(f.exec.payload) != "\xde\xad\xbe\xef" {
		t.Fatalf("payload not forwarded verbatim: %x", f.exec.payload)
	}
	if _, err := f.engine.FinishProposal(id); !errors.Is(err, ErrVotingFinished) {
		t.Fatalf("expected voting finished, got %v", err)
	}
	for _, addr := range [][20]byte{alice, bob, carol} {
		open, err := f.engine.OpenParticipations(addr)
		if err != nil || open != 0 {
			t.Fatalf("participation should be released for %x: %d %v", addr, open, err)
		}
	}
}

func TestFinishOutcomes(t *testing.T) {
	t.Run("quorum not reached", func(t *testing.T) {
		f := newGovernorFixture(t)
		id := f.propose(t)
		if err := f.engine.Vote(alice, id, true); err != nil {
			t.Fatalf("vote: %v", err)
		}
		f.advance(period)
		outcome, err := f.engine.FinishProposal(id)
		if err != nil || outcome != OutcomeQuorumNotReached {
			t.Fatalf("expected quorum not reached, got %s %v", outcome, err)
		}
		if f.exec.calls != 0 || f.emitter.last() != events.TypeGovernanceQuorumNotReached {
			t.Fatalf("no call expected")
		}
	})
	t.Run("tie rejects", func(t *testing.T) {
		f := newGovernorFixture(t)
		f.weights.weights[bob] = ether(6)
		id := f.propose(t)
		if err := f.engine.Vote(alice, id, true); err != nil {
			t.Fatalf("vote: %v", err)
		}
		if err := f.engine.Vote(bob, id, false); err != nil {
			t.Fatalf("vote: %v", err)
		}
		f.advance(period)
		outcome, err := f.engine.FinishProposal(id)
		if err != nil || outcome != OutcomeRejected {
			t.Fatalf("expected rejected, got %s %v", outcome, err)
		}
		if f.exec.calls != 0 {
			t.Fatalf("rejected proposal must not execute")
		}
	})
	t.Run("failed call still finishes", func(t *testing.T) {
		f := newGovernorFixture(t)
		f.exec.err = errors.New("not allowed")
		id := f.propose(t)
		for _, voter := range [][20]byte{alice, bob, carol} {
			if err := f.engine.Vote(voter, id, true); err != nil {
				t.Fatalf("vote: %v", err)
			}
		}
		f.advance(period)
		outcome, err := f.engine.FinishProposal(id)
		if err != nil || outcome != OutcomeExecutedFailed {
			t.Fatalf("expected executed failed, got %s %v", outcome, err)
		}
		p, err := f.engine.Proposal(id)
		if err != nil || !p.Finished || p.CallError != "not allowed" {
			t.Fatalf("unexpected proposal %+v %v", p, err)
		}
		status, ok := f.emitter.events[len(f.emitter.events)-1].(events.GovernanceCallStatus)
		if !ok || status.Success {
			t.Fatalf("expected failed call status event")
		}
	})
}
