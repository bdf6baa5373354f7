package core

import (
	coreerrors "github.com/zibert/ACDM/core/errors"
)

var ErrStaleNonce = coreerrors.New(coreerrors.ErrInvalidArgument, "node", "nonce already used")

func nonceKey(addr [20]byte) []byte {
	return append([]byte("node/nonce/"), addr[:]...)
}

// Nonce returns the highest request nonce accepted for addr, zero if none.
func (n *Node) Nonce(addr [20]byte) (uint64, error) {
	var last uint64
	err := n.view(func(tx *transition) error {
		_, err := tx.manager.KVGet(nonceKey(addr), &last)
		return err
	})
	return last, err
}

// ConsumeNonce records nonce for addr. It must exceed every nonce accepted
// before; gaps are allowed. A consumed nonce stays used even when the request
// it authorised then fails.
func (n *Node) ConsumeNonce(addr [20]byte, nonce uint64) error {
	return n.transact("node", "consume_nonce", true, func(tx *transition) error {
		var last uint64
		if _, err := tx.manager.KVGet(nonceKey(addr), &last); err != nil {
			return err
		}
		if nonce <= last {
			return ErrStaleNonce
		}
		return tx.manager.KVPut(nonceKey(addr), nonce)
	})
}
