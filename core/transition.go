package core

import (
	"time"

	"github.com/zibert/ACDM/core/events"
	"github.com/zibert/ACDM/core/state"
	"github.com/zibert/ACDM/native/common"
	"github.com/zibert/ACDM/native/governance"
	"github.com/zibert/ACDM/native/platform"
	"github.com/zibert/ACDM/native/staking"
	"github.com/zibert/ACDM/storage"
)

// transition binds the three module engines to one overlay, one clock reading
// and one event buffer.
type transition struct {
	node    *Node
	overlay *storage.Overlay
	buffer  *events.Buffer
	now     time.Time
	manager *state.Manager

	staking    *staking.Engine
	governance *governance.Engine
	platform   *platform.Engine
}

func (n *Node) newTransition(overlay *storage.Overlay, buffer *events.Buffer, now time.Time) *transition {
	tx := &transition{
		node:    n,
		overlay: overlay,
		buffer:  buffer,
		now:     now,
		manager: state.NewManager(overlay),
	}
	nowFn := func() time.Time { return tx.now }

	tx.staking = staking.NewEngine()
	tx.staking.SetState(tx.manager)
	tx.staking.SetEmitter(buffer)
	tx.staking.SetNowFunc(nowFn)
	tx.staking.SetRewardPolicy(n.econ.Reward)

	tx.governance = governance.NewEngine()
	tx.governance.SetState(tx.manager)
	tx.governance.SetEmitter(buffer)
	tx.governance.SetNowFunc(nowFn)
	tx.governance.SetWeightSource(tx.staking)
	tx.governance.SetExecutor(tx)

	tx.platform = platform.NewEngine()
	tx.platform.SetState(tx.manager)
	tx.platform.SetEmitter(buffer)
	tx.platform.SetNowFunc(nowFn)
	tx.platform.SetLiquidityPool(&reservePool{manager: tx.manager, feeBps: n.poolFeeBps})

	tx.staking.SetParticipation(tx.governance)
	return tx
}

// Call executes a governed payload against the module at recipient inside a
// nested overlay. A failing call leaves no trace in the enclosing transition.
func (tx *transition) Call(recipient, caller [20]byte, payload []byte) error {
	child := tx.overlay.Begin()
	buffer := &events.Buffer{}
	inner := tx.node.newTransition(child, buffer, tx.now)

	registry := common.NewRegistry()
	registry.Register(staking.VaultAddress, inner.staking)
	registry.Register(platform.Address, inner.platform)

	if err := registry.Call(recipient, caller, payload); err != nil {
		child.Discard()
		return err
	}
	if err := child.Commit(); err != nil {
		return err
	}
	for _, evt := range buffer.Events() {
		tx.buffer.Emit(evt)
	}
	return nil
}

var _ governance.Executor = (*transition)(nil)
