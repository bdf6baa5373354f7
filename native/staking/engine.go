package staking

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zibert/ACDM/core/events"
	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/crypto"
)

// VaultAddress holds staked collateral and the pre-funded reward pool.
var VaultAddress = crypto.ModuleAddress(moduleName)

type vaultState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	Transfer(symbol string, from, to []byte, amount *big.Int) error
}

// ParticipationView reports how many open proposals an address has voted on
// or delegated in.
type ParticipationView interface {
	OpenParticipations(addr [20]byte) (uint64, error)
}

// Engine implements the staking vault.
type Engine struct {
	state         vaultState
	emitter       events.Emitter
	nowFn         func() time.Time
	participation ParticipationView
	policy        RewardPolicy
}

// NewEngine constructs a vault engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
		policy:  DefaultRewardPolicy(),
	}
}

// SetState wires the engine to the state backend.
func (e *Engine) SetState(s vaultState) { e.state = s }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
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

// SetParticipation wires the governor view used to block unstaking.
func (e *Engine) SetParticipation(view ParticipationView) { e.participation = view }

// SetRewardPolicy replaces the reward schedule.
func (e *Engine) SetRewardPolicy(policy RewardPolicy) { e.policy = policy }

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

// Init records the deploying owner and the initial parameters. It runs once at
// genesis.
func (e *Engine) Init(owner [20]byte, params Params) error {
	if e.state == nil {
		return errStateNotConfigured
	}
	ok, err := e.state.KVGet(ownerKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialised
	}
	if err := e.state.KVPut(ownerKey, owner); err != nil {
		return err
	}
	return e.state.KVPut(paramsKey, &params)
}

// Params returns the current governed parameters.
func (e *Engine) Params() (*Params, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	params := &Params{UnstakeDelay: DefaultUnstakeDelay}
	if _, err := e.state.KVGet(paramsKey, params); err != nil {
		return nil, err
	}
	return params, nil
}

func (e *Engine) putParams(params *Params) error {
	params.Version++
	return e.state.KVPut(paramsKey, params)
}

// Owner returns the deploying owner identity.
func (e *Engine) Owner() ([20]byte, error) {
	var owner [20]byte
	if e.state == nil {
		return owner, errStateNotConfigured
	}
	_, err := e.state.KVGet(ownerKey, &owner)
	return owner, err
}

// Governor returns the registered governor and whether one is set.
func (e *Engine) Governor() ([20]byte, bool, error) {
	var gov [20]byte
	if e.state == nil {
		return gov, false, errStateNotConfigured
	}
	ok, err := e.state.KVGet(governorKey, &gov)
	return gov, ok, err
}

// Position loads a position by id.
func (e *Engine) Position(id uint64) (*Position, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	pos := new(Position)
	ok, err := e.state.KVGet(positionKey(id), pos)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPositionNotFound
	}
	if pos.Amount == nil {
		pos.Amount = big.NewInt(0)
	}
	return pos, nil
}

// PositionsOf lists every position ever opened by owner.
func (e *Engine) PositionsOf(owner [20]byte) ([]*Position, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	var ids [][]byte
	if err := e.state.KVGetList(holderIndexKey(owner), &ids); err != nil {
		return nil, err
	}
	out := make([]*Position, 0, len(ids))
	for _, raw := range ids {
		pos, err := e.Position(binary.BigEndian.Uint64(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

// VotingWeight is the sum of principals of addr's positions that have no
// unstake request.
func (e *Engine) VotingWeight(addr [20]byte) (*big.Int, error) {
	if e.state == nil {
		return nil, errStateNotConfigured
	}
	weight := new(big.Int)
	if _, err := e.state.KVGet(weightKey(addr), weight); err != nil {
		return nil, err
	}
	return weight, nil
}

func (e *Engine) adjustWeight(addr [20]byte, delta *big.Int) error {
	weight, err := e.VotingWeight(addr)
	if err != nil {
		return err
	}
	weight.Add(weight, delta)
	if weight.Sign() <= 0 {
		return e.state.KVDelete(weightKey(addr))
	}
	return e.state.KVPut(weightKey(addr), weight)
}

// Stake opens a position for caller after checking the allow-list proof.
func (e *Engine) Stake(caller [20]byte, amount *big.Int, proof []common.Hash) (uint64, error) {
	if e.state == nil {
		return 0, errStateNotConfigured
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrZeroAmount
	}
	params, err := e.Params()
	if err != nil {
		return 0, err
	}
	if !crypto.VerifyMerkleProof(params.Root, crypto.MerkleLeaf(caller), proof) {
		return 0, ErrNotInWhiteList
	}
	if err := e.state.Transfer(state.TokenLP, caller[:], VaultAddress[:], amount); err != nil {
		return 0, err
	}

	var id uint64
	if _, err := e.state.KVGet(nextPositionIDKey, &id); err != nil {
		return 0, err
	}
	now := e.now()
	pos := &Position{
		ID:        id,
		Owner:     caller,
		Amount:    new(big.Int).Set(amount),
		StakedAt:  now,
		LastClaim: now,
	}
	if err := e.state.KVPut(positionKey(id), pos); err != nil {
		return 0, err
	}
	if err := e.state.KVPut(nextPositionIDKey, id+1); err != nil {
		return 0, err
	}
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	if err := e.state.KVAppend(holderIndexKey(caller), idBytes); err != nil {
		return 0, err
	}
	if err := e.adjustWeight(caller, amount); err != nil {
		return 0, err
	}
	e.emit(events.StakingStaked{ID: id, Owner: caller, Amount: pos.Amount})
	return id, nil
}

// Claim pays the reward accrued on a position in whole periods.
func (e *Engine) Claim(caller [20]byte, id uint64) (*big.Int, error) {
	pos, err := e.Position(id)
	if err != nil {
		return nil, err
	}
	if pos.Owner != caller {
		return nil, ErrNotOwner
	}
	if pos.Released {
		return nil, ErrNothingToTransfer
	}
	now := e.now()
	reward, periods := e.policy.Reward(pos.Amount, pos.LastClaim, now)
	if reward.Sign() == 0 {
		return nil, ErrNothingToTransfer
	}
	if err := e.state.Transfer(state.TokenXXX, VaultAddress[:], caller[:], reward); err != nil {
		return nil, err
	}
	pos.LastClaim += periods * e.policy.Period
	if err := e.state.KVPut(positionKey(id), pos); err != nil {
		return nil, err
	}
	e.emit(events.StakingClaimed{ID: id, Owner: caller, Reward: reward, Periods: periods})
	return reward, nil
}

func (e *Engine) ensureNoOpenParticipation(addr [20]byte) error {
	if e.participation == nil {
		return nil
	}
	open, err := e.participation.OpenParticipations(addr)
	if err != nil {
		return err
	}
	if open > 0 {
		return ErrActiveVotings
	}
	return nil
}

// Unstake advances a position through its two unstaking phases: the first call
// records a request, a call once the delay has elapsed releases the principal.
// It reports whether the principal was released.
func (e *Engine) Unstake(caller [20]byte, id uint64) (bool, error) {
	pos, err := e.Position(id)
	if err != nil {
		return false, err
	}
	if pos.Owner != caller {
		return false, ErrNotOwner
	}
	if !pos.UnstakeRequested {
		return false, e.RequestUnstake(caller, id)
	}
	if err := e.CompleteUnstake(caller, id); err != nil {
		return false, err
	}
	return true, nil
}

// RequestUnstake starts the unstake delay for a position.
func (e *Engine) RequestUnstake(caller [20]byte, id uint64) error {
	pos, err := e.Position(id)
	if err != nil {
		return err
	}
	if pos.Owner != caller {
		return ErrNotOwner
	}
	if pos.UnstakeRequested {
		return ErrAlreadyRequested
	}
	if err := e.ensureNoOpenParticipation(caller); err != nil {
		return err
	}
	pos.UnstakeRequested = true
	pos.RequestedAt = e.now()
	if err := e.state.KVPut(positionKey(id), pos); err != nil {
		return err
	}
	if err := e.adjustWeight(caller, new(big.Int).Neg(pos.Amount)); err != nil {
		return err
	}
	e.emit(events.StakingUnstakeRequested{ID: id, Owner: caller, RequestedAt: pos.RequestedAt})
	return nil
}

// CompleteUnstake returns the principal once the delay since the request has
// elapsed.
func (e *Engine) CompleteUnstake(caller [20]byte, id uint64) error {
	pos, err := e.Position(id)
	if err != nil {
		return err
	}
	if pos.Owner != caller {
		return ErrNotOwner
	}
	if pos.Released {
		return ErrAlreadyReleased
	}
	if !pos.UnstakeRequested {
		return ErrNotRequested
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	now := e.now()
	if now < pos.RequestedAt || now-pos.RequestedAt < params.UnstakeDelay {
		return ErrUnstakeTooEarly
	}
	if err := e.ensureNoOpenParticipation(caller); err != nil {
		return err
	}
	if err := e.state.Transfer(state.TokenLP, VaultAddress[:], caller[:], pos.Amount); err != nil {
		return err
	}
	pos.Released = true
	if err := e.state.KVPut(positionKey(id), pos); err != nil {
		return err
	}
	e.emit(events.StakingUnstaked{ID: id, Owner: caller, Amount: pos.Amount})
	return nil
}

// SetGovernor registers the governor. Only the owner may call it, and once set
// only the same address is accepted again.
func (e *Engine) SetGovernor(caller, governor [20]byte) error {
	owner, err := e.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return ErrOnlyOwner
	}
	if governor == ([20]byte{}) {
		return ErrZeroGovernor
	}
	current, ok, err := e.Governor()
	if err != nil {
		return err
	}
	if ok {
		if current == governor {
			return nil
		}
		return ErrGovernorAlreadySet
	}
	if err := e.state.KVPut(governorKey, governor); err != nil {
		return err
	}
	e.emit(events.StakingGovernorSet{Governor: governor})
	return nil
}

func (e *Engine) requireGovernor(caller [20]byte) error {
	gov, ok, err := e.Governor()
	if err != nil {
		return err
	}
	if !ok {
		return ErrGovernorNotSet
	}
	if caller != gov {
		return ErrNotAllowed
	}
	return nil
}

// SetAllowListRoot replaces the allow-list commitment.
func (e *Engine) SetAllowListRoot(caller [20]byte, root [32]byte) error {
	if err := e.requireGovernor(caller); err != nil {
		return err
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	params.Root = root
	if err := e.putParams(params); err != nil {
		return err
	}
	e.emit(events.StakingRootUpdated{Root: root, Version: params.Version})
	return nil
}

// SetUnstakeDelay replaces the delay between an unstake request and release.
func (e *Engine) SetUnstakeDelay(caller [20]byte, delay uint64) error {
	if err := e.requireGovernor(caller); err != nil {
		return err
	}
	params, err := e.Params()
	if err != nil {
		return err
	}
	params.UnstakeDelay = delay
	if err := e.putParams(params); err != nil {
		return err
	}
	e.emit(events.StakingDelayUpdated{Delay: delay, Version: params.Version})
	return nil
}
