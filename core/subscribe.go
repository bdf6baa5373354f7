package core

import (
	"context"

	"github.com/zibert/ACDM/core/types"
)

const subscriberBuffer = 256

type subscriber struct {
	ch   chan *types.Event
	done chan struct{}
}

// detach must be called with eventMu held.
func (n *Node) detach(sub *subscriber) {
	if _, ok := n.subscribers[sub]; !ok {
		return
	}
	delete(n.subscribers, sub)
	close(sub.ch)
	close(sub.done)
}

// SubscribeEvents streams events from transitions committed after the call.
// A subscriber that falls more than a buffer behind misses events instead of
// stalling commits. The channel closes when ctx ends or cancel is called.
func (n *Node) SubscribeEvents(ctx context.Context) (<-chan *types.Event, func()) {
	sub := &subscriber{ch: make(chan *types.Event, subscriberBuffer), done: make(chan struct{})}
	n.eventMu.Lock()
	if n.subscribers == nil {
		n.subscribers = make(map[*subscriber]struct{})
	}
	n.subscribers[sub] = struct{}{}
	n.eventMu.Unlock()

	cancel := func() {
		n.eventMu.Lock()
		defer n.eventMu.Unlock()
		n.detach(sub)
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()
	return sub.ch, cancel
}

// publish must be called with eventMu held.
func (n *Node) publish(event *types.Event) {
	for sub := range n.subscribers {
		select {
		case sub.ch <- event:
		default:
		}
	}
}
