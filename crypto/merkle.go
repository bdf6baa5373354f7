package crypto

import (
	"bytes"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrEmptyTree is returned when a Merkle tree is built without leaves.
var ErrEmptyTree = errors.New("merkle: no leaves")

// MerkleLeaf hashes an account identifier the way allow-list commitments
// expect: keccak256 over the identifier left padded to a 32 byte word.
func MerkleLeaf(addr [AddressLength]byte) common.Hash {
	return crypto.Keccak256Hash(common.LeftPadBytes(addr[:], 32))
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// VerifyMerkleProof folds the proof into the leaf using sorted pair hashing
// and reports whether the result equals root.
func VerifyMerkleProof(root common.Hash, leaf common.Hash, proof []common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// MerkleTree is a sorted-leaf, sorted-pair keccak tree. An unpaired node is
// promoted to the next level unchanged.
type MerkleTree struct {
	levels [][]common.Hash
}

// NewMerkleTree builds a tree over the supplied leaves.
func NewMerkleTree(leaves []common.Hash) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	level := append([]common.Hash(nil), leaves...)
	sort.Slice(level, func(i, j int) bool { return bytes.Compare(level[i][:], level[j][:]) < 0 })
	tree := &MerkleTree{levels: [][]common.Hash{level}}
	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		tree.levels = append(tree.levels, next)
		level = next
	}
	return tree, nil
}

// NewAddressTree builds an allow-list tree over account identifiers.
func NewAddressTree(addrs [][AddressLength]byte) (*MerkleTree, error) {
	leaves := make([]common.Hash, len(addrs))
	for i, addr := range addrs {
		leaves[i] = MerkleLeaf(addr)
	}
	return NewMerkleTree(leaves)
}

// Root returns the commitment at the top of the tree.
func (t *MerkleTree) Root() common.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path for leaf, or false when the leaf is absent.
func (t *MerkleTree) Proof(leaf common.Hash) ([]common.Hash, bool) {
	index := -1
	for i, candidate := range t.levels[0] {
		if candidate == leaf {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, false
	}
	proof := make([]common.Hash, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, true
}
