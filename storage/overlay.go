package storage

import (
	"errors"
	"sort"
)

// ErrOverlayClosed is returned when an overlay is used after Commit or Discard.
var ErrOverlayClosed = errors.New("overlay: closed")

type overlayEntry struct {
	value   []byte
	deleted bool
}

// Overlay buffers writes on top of a Database. Children created with Begin
// see their parent's pending writes; committing a child folds its writes into
// the parent while committing the root flushes everything in one batch.
type Overlay struct {
	db     Database
	parent *Overlay
	dirty  map[string]overlayEntry
	closed bool
}

// NewOverlay opens a root overlay over db.
func NewOverlay(db Database) *Overlay {
	return &Overlay{db: db, dirty: make(map[string]overlayEntry)}
}

// Begin opens a nested overlay whose writes stay private until Commit.
func (o *Overlay) Begin() *Overlay {
	return &Overlay{db: o.db, parent: o, dirty: make(map[string]overlayEntry)}
}

// Get returns the value for key, or nil when the key is absent.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if o.closed {
		return nil, ErrOverlayClosed
	}
	for cur := o; cur != nil; cur = cur.parent {
		if entry, ok := cur.dirty[string(key)]; ok {
			if entry.deleted {
				return nil, nil
			}
			return append([]byte(nil), entry.value...), nil
		}
	}
	value, err := o.db.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// Update stages a write.
func (o *Overlay) Update(key, value []byte) error {
	if o.closed {
		return ErrOverlayClosed
	}
	o.dirty[string(key)] = overlayEntry{value: append([]byte(nil), value...)}
	return nil
}

// Delete stages a removal.
func (o *Overlay) Delete(key []byte) error {
	if o.closed {
		return ErrOverlayClosed
	}
	o.dirty[string(key)] = overlayEntry{deleted: true}
	return nil
}

// Len reports the number of staged keys.
func (o *Overlay) Len() int { return len(o.dirty) }

// Commit publishes staged writes to the parent overlay or, for a root
// overlay, to the database.
func (o *Overlay) Commit() error {
	if o.closed {
		return ErrOverlayClosed
	}
	o.closed = true
	if o.parent != nil {
		for key, entry := range o.dirty {
			o.parent.dirty[key] = entry
		}
		o.dirty = nil
		return nil
	}
	if len(o.dirty) == 0 {
		return nil
	}
	keys := make([]string, 0, len(o.dirty))
	for key := range o.dirty {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := o.db.NewBatch()
	for _, key := range keys {
		entry := o.dirty[key]
		if entry.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), entry.value)
	}
	o.dirty = nil
	return o.db.Write(batch)
}

// Discard drops staged writes.
func (o *Overlay) Discard() {
	o.closed = true
	o.dirty = nil
}
