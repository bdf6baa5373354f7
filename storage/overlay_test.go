package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestOverlayCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)

	key := crypto.Keccak256([]byte("key"))
	value := []byte("value")

	ov := NewOverlay(db1)
	require.NoError(t, ov.Update(key, value))
	require.NoError(t, ov.Commit())

	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := NewOverlay(db2).Get(key)
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestOverlayDiscardLeavesDatabaseUntouched(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("a"), []byte("1")))

	ov := NewOverlay(db)
	require.NoError(t, ov.Update([]byte("a"), []byte("2")))
	require.NoError(t, ov.Delete([]byte("a")))
	got, err := ov.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, got)
	ov.Discard()

	stored, err := db.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), stored)
}

func TestOverlayNestedChildDiscard(t *testing.T) {
	db := NewMemDB()
	root := NewOverlay(db)
	require.NoError(t, root.Update([]byte("outer"), []byte("kept")))

	child := root.Begin()
	got, err := child.Get([]byte("outer"))
	require.NoError(t, err)
	require.Equal(t, []byte("kept"), got)

	require.NoError(t, child.Update([]byte("inner"), []byte("dropped")))
	child.Discard()

	got, err = root.Get([]byte("inner"))
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, root.Commit())
	_, err = db.Get([]byte("inner"))
	require.ErrorIs(t, err, ErrNotFound)
	stored, err := db.Get([]byte("outer"))
	require.NoError(t, err)
	require.Equal(t, []byte("kept"), stored)
}

func TestOverlayNestedChildCommit(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("gone"), []byte("x")))
	root := NewOverlay(db)
	child := root.Begin()
	require.NoError(t, child.Update([]byte("inner"), []byte("v")))
	require.NoError(t, child.Delete([]byte("gone")))
	require.NoError(t, child.Commit())
	require.ErrorIs(t, child.Update([]byte("late"), nil), ErrOverlayClosed)
	require.NoError(t, root.Commit())

	stored, err := db.Get([]byte("inner"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), stored)
	_, err = db.Get([]byte("gone"))
	require.ErrorIs(t, err, ErrNotFound)
}
