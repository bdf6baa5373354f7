package state

import (
	"bytes"
	"fmt"
	"reflect"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Store is the raw key-value surface the manager writes through. A missing
// key reads as a nil value.
type Store interface {
	Get(key []byte) ([]byte, error)
	Update(key, value []byte) error
	Delete(key []byte) error
}

// Manager provides typed access to application state: the token ledger and
// the RLP-encoded records owned by native modules.
type Manager struct {
	store Store
}

// NewManager creates a state manager operating on the provided store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

var errEmptyKey = fmt.Errorf("kv: key must not be empty")

// hashKey maps a module key into the record keyspace. Hashing keeps
// variable-length module prefixes from colliding with ledger keys.
func hashKey(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errEmptyKey
	}
	return ethcrypto.Keccak256(key), nil
}

func (m *Manager) load(key []byte) ([]byte, []byte, error) {
	hashed, err := hashKey(key)
	if err != nil {
		return nil, nil, err
	}
	data, err := m.store.Get(hashed)
	if err != nil {
		return nil, nil, err
	}
	return hashed, data, nil
}

// KVPut RLP-encodes value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	hashed, err := hashKey(key)
	if err != nil {
		return err
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.store.Update(hashed, encoded)
}

// KVGet decodes the record under key into out and reports whether it exists.
// A nil out only checks presence.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	_, data, err := m.load(key)
	if err != nil || len(data) == 0 {
		return false, err
	}
	if out != nil {
		if err := rlp.DecodeBytes(data, out); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (m *Manager) KVDelete(key []byte) error {
	hashed, err := hashKey(key)
	if err != nil {
		return err
	}
	return m.store.Delete(hashed)
}

// KVAppend adds value to the set of byte strings under key. Members keep
// insertion order and repeats are dropped.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	hashed, data, err := m.load(key)
	if err != nil {
		return err
	}
	var members [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &members); err != nil {
			return err
		}
	}
	for _, member := range members {
		if bytes.Equal(member, value) {
			return nil
		}
	}
	encoded, err := rlp.EncodeToBytes(append(members, bytes.Clone(value)))
	if err != nil {
		return err
	}
	return m.store.Update(hashed, encoded)
}

// KVGetList decodes the list under key into the slice pointed to by out. A
// missing key yields an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	_, data, err := m.load(key)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		return rlp.DecodeBytes(data, out)
	}
	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Ptr || dst.IsNil() || dst.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("kv: destination must be a non-nil slice pointer")
	}
	dst.Elem().Set(reflect.MakeSlice(dst.Elem().Type(), 0, 0))
	return nil
}
