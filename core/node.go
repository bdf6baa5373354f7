package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/zibert/ACDM/core/events"
	"github.com/zibert/ACDM/core/genesis"
	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/core/types"
	"github.com/zibert/ACDM/crypto"
	"github.com/zibert/ACDM/native/governance"
	"github.com/zibert/ACDM/native/platform"
	"github.com/zibert/ACDM/native/staking"
	"github.com/zibert/ACDM/observability/metrics"
	"github.com/zibert/ACDM/storage"
)

var (
	// ErrNotInitialised is returned when a transition runs before genesis.
	ErrNotInitialised = errors.New("node: genesis not applied")
	// ErrAlreadyInitialised is returned when genesis is applied twice.
	ErrAlreadyInitialised = errors.New("node: genesis already applied")
	// ErrFaucetDisabled is returned by FundAccount outside development mode.
	ErrFaucetDisabled = errors.New("node: faucet disabled")
)

var genesisKey = []byte("node/genesis")

const maxRetainedEvents = 4096

// Economics are the parameters written into state at genesis plus the reward
// schedule applied on every claim.
type Economics struct {
	UnstakeDelay   uint64
	Reward         staking.RewardPolicy
	MinimumQuorum  *big.Int
	DebatingPeriod uint64
	Platform       platform.Params
}

func DefaultEconomics() Economics {
	return Economics{
		UnstakeDelay:   staking.DefaultUnstakeDelay,
		Reward:         staking.DefaultRewardPolicy(),
		MinimumQuorum:  governance.DefaultMinimumQuorum(),
		DebatingPeriod: governance.DefaultDebatingPeriod,
		Platform:       platform.DefaultParams(),
	}
}

// Option customises a Node.
type Option func(*Node)

// WithClock replaces the wall clock. The node never lets time go backwards.
func WithClock(clock func() time.Time) Option {
	return func(n *Node) {
		if clock != nil {
			n.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

func WithMetrics(m *metrics.NodeMetrics) Option {
	return func(n *Node) { n.metrics = m }
}

// WithPoolFee sets the swap fee, in basis points, charged by the buy-back
// pool.
func WithPoolFee(bps uint64) Option {
	return func(n *Node) { n.poolFeeBps = bps }
}

// WithAllowMigrate lets the node open a database written with another state
// schema version.
func WithAllowMigrate(allow bool) Option {
	return func(n *Node) { n.migrate = allow }
}

// WithFaucet enables FundAccount.
func WithFaucet(enabled bool) Option {
	return func(n *Node) { n.faucet = enabled }
}

// Node is the central controller: it owns the database and runs every
// operation as a single atomic transition against it.
type Node struct {
	db         storage.Database
	econ       Economics
	clock      func() time.Time
	lastNow    time.Time
	poolFeeBps uint64
	faucet     bool
	migrate    bool
	logger     *slog.Logger
	metrics    *metrics.NodeMetrics

	stateMu     sync.Mutex
	eventMu     sync.RWMutex
	events      []*types.Event
	eventSeq    uint64
	subscribers map[*subscriber]struct{}
}

func NewNode(db storage.Database, econ Economics, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database must not be nil")
	}
	if econ.MinimumQuorum == nil {
		econ.MinimumQuorum = governance.DefaultMinimumQuorum()
	}
	n := &Node{
		db:         db,
		econ:       econ,
		clock:      func() time.Time { return time.Now().UTC() },
		poolFeeBps: DefaultPoolFeeBps,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := state.EnsureStateVersion(storage.NewOverlay(db), n.migrate); err != nil {
		return nil, err
	}
	return n, nil
}

// tick reads the clock once for a transition. Readings earlier than the last
// one are clamped so time stays monotone.
func (n *Node) tick() time.Time {
	now := n.clock()
	if now.Before(n.lastNow) {
		now = n.lastNow
	}
	n.lastNow = now
	return now
}

func (n *Node) peek() time.Time {
	if now := n.clock(); now.After(n.lastNow) {
		return now
	}
	return n.lastNow
}

// Initialized reports whether genesis has been applied to the database.
func (n *Node) Initialized() (bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return state.NewManager(storage.NewOverlay(n.db)).KVGet(genesisKey, nil)
}

// InitGenesis seeds the ledger and bootstraps the three modules: the vault
// and platform are owned by the genesis owner and administered by the
// governor, and the vault's reward pool is minted.
func (n *Node) InitGenesis(spec *genesis.GenesisSpec) error {
	if spec == nil {
		return fmt.Errorf("node: genesis spec must not be nil")
	}
	return n.transact("node", "genesis", false, func(tx *transition) error {
		if ok, err := tx.manager.KVGet(genesisKey, nil); err != nil {
			return err
		} else if ok {
			return ErrAlreadyInitialised
		}
		if err := spec.Validate(); err != nil {
			return err
		}
		if err := spec.Apply(tx.manager); err != nil {
			return err
		}
		if err := tx.manager.SetStateVersion(state.StateVersion); err != nil {
			return err
		}

		tree, err := crypto.NewAddressTree(spec.AllowListAddresses())
		if err != nil {
			return fmt.Errorf("allow list: %w", err)
		}
		owner := spec.OwnerAddress()
		if err := tx.staking.Init(owner, staking.Params{Root: tree.Root(), UnstakeDelay: n.econ.UnstakeDelay}); err != nil {
			return err
		}
		if err := tx.staking.SetGovernor(owner, governance.Address); err != nil {
			return err
		}
		if err := tx.manager.Mint(state.TokenXXX, nil, staking.VaultAddress[:], spec.RewardPoolAmount()); err != nil {
			return err
		}
		if err := tx.governance.Init(governance.Config{
			Chair:          spec.ChairAddress(),
			MinimumQuorum:  new(big.Int).Set(n.econ.MinimumQuorum),
			DebatingPeriod: n.econ.DebatingPeriod,
		}); err != nil {
			return err
		}
		if err := tx.platform.Init(owner, governance.Address, n.econ.Platform); err != nil {
			return err
		}
		return tx.manager.KVPut(genesisKey, uint64(spec.GenesisTimestamp().Unix()))
	})
}

// transact runs fn as one atomic transition: one clock read, one overlay,
// committed only when fn succeeds. Events reach the log after commit.
func (n *Node) transact(module, operation string, requireGenesis bool, fn func(tx *transition) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	overlay := storage.NewOverlay(n.db)
	buffer := &events.Buffer{}
	tx := n.newTransition(overlay, buffer, n.tick())

	err := func() error {
		if requireGenesis {
			ok, err := tx.manager.KVGet(genesisKey, nil)
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotInitialised
			}
		}
		return fn(tx)
	}()
	if err != nil {
		overlay.Discard()
		n.metrics.ObserveTransition(module, operation, "rejected")
		n.logger.Debug("transition rejected",
			slog.String("module", module),
			slog.String("operation", operation),
			slog.Any("error", err))
		return err
	}
	if err := overlay.Commit(); err != nil {
		n.metrics.ObserveTransition(module, operation, "error")
		return fmt.Errorf("commit %s.%s: %w", module, operation, err)
	}

	committed := buffer.Events()
	n.appendEvents(committed, tx.now)
	n.metrics.ObserveTransition(module, operation, "ok")
	n.metrics.AddEvents(len(committed))
	n.logger.Debug("transition committed",
		slog.String("module", module),
		slog.String("operation", operation),
		slog.Int("events", len(committed)),
		slog.Int64("time", tx.now.Unix()))
	return nil
}

// view runs fn against a throwaway overlay. Nothing it writes persists.
func (n *Node) view(fn func(tx *transition) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	overlay := storage.NewOverlay(n.db)
	defer overlay.Discard()
	return fn(n.newTransition(overlay, &events.Buffer{}, n.peek()))
}

func (n *Node) appendEvents(evts []events.Event, now time.Time) {
	if len(evts) == 0 {
		return
	}
	n.eventMu.Lock()
	defer n.eventMu.Unlock()
	for _, evt := range evts {
		payload, ok := evt.(events.Typed)
		if !ok {
			continue
		}
		if event := payload.Event(); event != nil {
			n.eventSeq++
			event.Sequence = n.eventSeq
			event.Time = now.Unix()
			n.events = append(n.events, event)
			n.publish(event)
		}
	}
	if overflow := len(n.events) - maxRetainedEvents; overflow > 0 {
		n.events = append([]*types.Event(nil), n.events[overflow:]...)
	}
}

// Events returns up to limit of the most recent committed events, oldest
// first. A non-positive limit returns everything retained.
func (n *Node) Events(limit int) []*types.Event {
	n.eventMu.RLock()
	defer n.eventMu.RUnlock()
	start := 0
	if limit > 0 && len(n.events) > limit {
		start = len(n.events) - limit
	}
	return append([]*types.Event(nil), n.events[start:]...)
}

// Close ends every event subscription and releases the underlying database.
func (n *Node) Close() {
	n.eventMu.Lock()
	for sub := range n.subscribers {
		n.detach(sub)
	}
	n.eventMu.Unlock()

	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.db.Close()
}
