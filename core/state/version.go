package state

import (
	"errors"
	"fmt"
)

// StateVersion is the record layout this binary reads and writes. Bump it
// whenever a stored record changes shape.
const StateVersion uint32 = 1

var (
	stateVersionKey = []byte("state/version")

	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
)

// SetStateVersion stamps the schema version. Genesis calls it once.
func (m *Manager) SetStateVersion(version uint32) error {
	return m.KVPut(stateVersionKey, version)
}

// StateVersion returns the stamped schema version, if any.
func (m *Manager) StateVersion() (uint32, bool, error) {
	var version uint32
	ok, err := m.KVGet(stateVersionKey, &version)
	if err != nil {
		return 0, false, fmt.Errorf("state: read schema version: %w", err)
	}
	return version, ok, nil
}

// EnsureStateVersion fails when store was stamped by a binary with another
// layout, unless allowMigrate is set. An unstamped store passes so genesis can
// stamp it.
func EnsureStateVersion(store Store, allowMigrate bool) error {
	if store == nil {
		return fmt.Errorf("state: store must not be nil")
	}
	version, ok, err := NewManager(store).StateVersion()
	if err != nil {
		return err
	}
	if !ok || version == StateVersion || allowMigrate {
		return nil
	}
	return fmt.Errorf("%w: on-disk=%d expected=%d", ErrStateVersionMismatch, version, StateVersion)
}
