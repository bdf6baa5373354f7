package governance

import (
	"math/big"
	"time"

	"github.com/zibert/ACDM/core/events"
	"github.com/zibert/ACDM/crypto"
)

// Address is the identity the governor presents when executing proposals.
var Address = crypto.ModuleAddress(moduleName)

type governanceState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// WeightSource reports the current voting weight of an address.
type WeightSource interface {
	VotingWeight(addr [20]byte) (*big.Int, error)
}

// Executor forwards a passed proposal's payload to its recipient. A returned
// error is recorded as the call outcome.
type Executor interface {
	Call(recipient, caller [20]byte, payload []byte) error
}

// Engine runs proposals, ballots and delegations.
type Engine struct {
	state    governanceState
	emitter  events.Emitter
	nowFn    func() time.Time
	weights  WeightSource
	executor Executor
}

// NewEngine constructs a governor engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine to the state backend providing persistence helpers.
func (e *Engine) SetState(state governanceState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

func (e *Engine) SetWeightSource(src WeightSource) { e.weights = src }

func (e *Engine) SetExecutor(exec Executor) { e.executor = exec }

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return uint64(time.Now().Unix())
	}
	ts := e.nowFn().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

// Init stores the voting rules. It runs once at genesis.
func (e *Engine) Init(cfg Config) error {
	if e.state == nil {
		return errStateNotConfigured
	}
	ok, err := e.state.KVGet(configKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialised
	}
	if cfg.MinimumQuorum == nil {
		cfg.MinimumQuorum = DefaultMinimumQuorum()
	}
	return e.state.KVPut(configKey, &cfg)
}

// Config returns the stored voting rules.
func (e *Engine) Config() (*Config, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	cfg := &Config{MinimumQuorum: DefaultMinimumQuorum(), DebatingPeriod: DefaultDebatingPeriod}
	if _, err := e.state.KVGet(configKey, cfg); err != nil {
		return nil, err
	}
	if cfg.MinimumQuorum == nil {
		cfg.MinimumQuorum = big.NewInt(0)
	}
	return cfg, nil
}

// Proposal loads a proposal by id.
func (e *Engine) Proposal(id uint64) (*Proposal, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	p := new(Proposal)
	ok, err := e.state.KVGet(proposalKey(id), p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNotFound
	}
	if p.Yes == nil {
		p.Yes = big.NewInt(0)
	}
	if p.No == nil {
		p.No = big.NewInt(0)
	}
	return p, nil
}

// Votes returns the cumulative yes and no weight of a proposal.
func (e *Engine) Votes(id uint64) (*big.Int, *big.Int, error) {
	p, err := e.Proposal(id)
	if err != nil {
		return nil, nil, err
	}
	return p.Yes, p.No, nil
}

// Ballot returns addr's record on a proposal, or nil when it has none.
func (e *Engine) Ballot(id uint64, addr [20]byte) (*Ballot, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	b := new(Ballot)
	ok, err := e.state.KVGet(ballotKey(id, addr), b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if b.Weight == nil {
		b.Weight = big.NewInt(0)
	}
	return b, nil
}

// OpenParticipations counts the unfinished proposals addr voted or delegated on.
func (e *Engine) OpenParticipations(addr [20]byte) (uint64, error) {
	if e.state == nil {
		return 0, errStateNotConfigured
	}
	var count uint64
	if _, err := e.state.KVGet(openCountKey(addr), &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) weightOf(addr [20]byte) (*big.Int, error) {
	if e.weights == nil {
		return big.NewInt(0), nil
	}
	w, err := e.weights.VotingWeight(addr)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return big.NewInt(0), nil
	}
	return w, nil
}

// AddProposal opens a proposal. Only the chair may call it.
func (e *Engine) AddProposal(caller, recipient [20]byte, payload []byte, description string) (uint64, error) {
	cfg, err := e.Config()
	if err != nil {
		return 0, err
	}
	if caller != cfg.Chair {
		return 0, ErrNotChair
	}
	if recipient == ([20]byte{}) {
		return 0, ErrZeroRecipient
	}
	var id uint64
	if _, err := e.state.KVGet(nextProposalIDKey, &id); err != nil {
		return 0, err
	}
	now := e.now()
	p := &Proposal{
		ID:          id,
		Recipient:   recipient,
		Payload:     append([]byte(nil), payload...),
		Description: description,
		CreatedAt:   now,
		EndsAt:      now + cfg.DebatingPeriod,
		Yes:         big.NewInt(0),
		No:          big.NewInt(0),
	}
	if err := e.state.KVPut(proposalKey(id), p); err != nil {
		return 0, err
	}
	if err := e.state.KVPut(nextProposalIDKey, id+1); err != nil {
		return 0, err
	}
	e.emit(events.GovernanceProposalAdded{ID: id, Recipient: recipient, Description: description, EndsAt: p.EndsAt})
	return id, nil
}

// openForBallots loads a proposal whose window [CreatedAt, EndsAt) contains now.
func (e *Engine) openForBallots(id uint64) (*Proposal, error) {
	p, err := e.Proposal(id)
	if err != nil {
		return nil, err
	}
	if p.Finished || e.now() >= p.EndsAt {
		return nil, ErrVotingOver
	}
	return p, nil
}

func (e *Engine) recordParticipation(id uint64, addr [20]byte) error {
	if err := e.state.KVAppend(participantsKey(id), addr[:]); err != nil {
		return err
	}
	open, err := e.OpenParticipations(addr)
	if err != nil {
		return err
	}
	return e.state.KVPut(openCountKey(addr), open+1)
}

// Vote adds the caller's current weight, plus the weight of every delegation
// pointed at the caller that has not been counted yet, to the chosen side.
func (e *Engine) Vote(caller [20]byte, id uint64, support bool) error {
	p, err := e.openForBallots(id)
	if err != nil {
		return err
	}
	ballot, err := e.Ballot(id, caller)
	if err != nil {
		return err
	}
	if ballot != nil {
		if ballot.Voted {
			return ErrAlreadyVoted
		}
		return ErrAlreadyVotedOrDelegated
	}
	own, err := e.weightOf(caller)
	if err != nil {
		return err
	}

	var delegators [][]byte
	if err := e.state.KVGetList(incomingKey(id, caller), &delegators); err != nil {
		return err
	}
	type folded struct {
		from   [20]byte
		ballot *Ballot
	}
	var pending []folded
	delegated := new(big.Int)
	for _, raw := range delegators {
		var from [20]byte
		copy(from[:], raw)
		db, err := e.Ballot(id, from)
		if err != nil {
			return err
		}
		if db == nil || !db.Delegated || db.Counted || db.Delegate != caller {
			continue
		}
		w, err := e.weightOf(from)
		if err != nil {
			return err
		}
		db.Counted = true
		db.Weight = w
		pending = append(pending, folded{from: from, ballot: db})
		delegated.Add(delegated, w)
	}
	// A voter without stake may still cast the weight delegated to it.
	if own.Sign() == 0 && delegated.Sign() == 0 {
		return ErrNoVotingTokens
	}
	for _, f := range pending {
		if err := e.state.KVPut(ballotKey(id, f.from), f.ballot); err != nil {
			return err
		}
	}

	total := new(big.Int).Add(own, delegated)
	if support {
		p.Yes = new(big.Int).Add(p.Yes, total)
	} else {
		p.No = new(big.Int).Add(p.No, total)
	}
	if err := e.state.KVPut(proposalKey(id), p); err != nil {
		return err
	}
	if err := e.state.KVPut(ballotKey(id, caller), &Ballot{Voted: true, Support: support, Weight: total}); err != nil {
		return err
	}
	if err := e.recordParticipation(id, caller); err != nil {
		return err
	}
	e.emit(events.GovernanceVoted{ID: id, Voter: caller, Support: support, Weight: total, Delegated: delegated})
	return nil
}

// Delegate points the caller's weight on one proposal at another address. The
// weight is read when the delegate votes. Chains longer than one hop are
// rejected in both directions.
func (e *Engine) Delegate(caller [20]byte, id uint64, to [20]byte) error {
	if _, err := e.openForBallots(id); err != nil {
		return err
	}
	own, err := e.weightOf(caller)
	if err != nil {
		return err
	}
	if own.Sign() == 0 {
		return ErrZeroDeposit
	}
	ballot, err := e.Ballot(id, caller)
	if err != nil {
		return err
	}
	if ballot != nil {
		return ErrAlreadyVotedOrDelegated
	}
	if to == ([20]byte{}) {
		return ErrZeroDelegate
	}
	if to == caller {
		return ErrSelfDelegation
	}
	target, err := e.Ballot(id, to)
	if err != nil {
		return err
	}
	if target != nil {
		if target.Voted {
			return ErrDelegationToVoted
		}
		return ErrDelegationToDelegated
	}
	var incoming [][]byte
	if err := e.state.KVGetList(incomingKey(id, caller), &incoming); err != nil {
		return err
	}
	if len(incoming) > 0 {
		return ErrDelegatorHasIncoming
	}

	if err := e.state.KVPut(ballotKey(id, caller), &Ballot{Delegated: true, Delegate: to, Weight: big.NewInt(0)}); err != nil {
		return err
	}
	if err := e.state.KVAppend(incomingKey(id, to), caller[:]); err != nil {
		return err
	}
	if err := e.recordParticipation(id, caller); err != nil {
		return err
	}
	e.emit(events.GovernanceDelegated{ID: id, From: caller, To: to})
	return nil
}

func (e *Engine) releaseParticipants(id uint64) error {
	var participants [][]byte
	if err := e.state.KVGetList(participantsKey(id), &participants); err != nil {
		return err
	}
	for _, raw := range participants {
		var addr [20]byte
		copy(addr[:], raw)
		open, err := e.OpenParticipations(addr)
		if err != nil {
			return err
		}
		if open <= 1 {
			if err := e.state.KVDelete(openCountKey(addr)); err != nil {
				return err
			}
			continue
		}
		if err := e.state.KVPut(openCountKey(addr), open-1); err != nil {
			return err
		}
	}
	return nil
}

// FinishProposal closes a proposal once its window has elapsed. A passed
// proposal's payload is forwarded to its recipient; a failing call is
// recorded as OutcomeExecutedFailed and does not fail the finish.
func (e *Engine) FinishProposal(id uint64) (Outcome, error) {
	p, err := e.Proposal(id)
	if err != nil {
		return OutcomeOpen, err
	}
	if p.Finished {
		return p.Outcome, ErrVotingFinished
	}
	if e.now() < p.EndsAt {
		return OutcomeOpen, ErrVotingInProgress
	}
	cfg, err := e.Config()
	if err != nil {
		return OutcomeOpen, err
	}

	p.Finished = true
	total := new(big.Int).Add(p.Yes, p.No)
	switch {
	case total.Cmp(cfg.MinimumQuorum) < 0:
		p.Outcome = OutcomeQuorumNotReached
		e.emit(events.GovernanceQuorumNotReached{ID: id, Yes: p.Yes, No: p.No})
	case p.No.Cmp(p.Yes) >= 0:
		p.Outcome = OutcomeRejected
		e.emit(events.GovernanceProposalRejected{ID: id, Yes: p.Yes, No: p.No})
	default:
		callErr := e.execute(p)
		if callErr != nil {
			p.Outcome = OutcomeExecutedFailed
			p.CallError = callErr.Error()
		} else {
			p.Outcome = OutcomeExecutedOk
		}
		e.emit(events.GovernanceCallStatus{ID: id, Success: callErr == nil, Reason: p.CallError})
	}

	if err := e.releaseParticipants(id); err != nil {
		return OutcomeOpen, err
	}
	if err := e.state.KVPut(proposalKey(id), p); err != nil {
		return OutcomeOpen, err
	}
	return p.Outcome, nil
}

func (e *Engine) execute(p *Proposal) error {
	if e.executor == nil {
		return errNoExecutor
	}
	return e.executor.Call(p.Recipient, Address, p.Payload)
}
