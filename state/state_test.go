// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versefi/verse/lvldb"
	"github.com/versefi/verse/verse"
)

var (
	addr = verse.BytesToAddress([]byte("svc"))
	key  = verse.BytesToBytes32([]byte("k1"))
)

func TestStructuredStorageRoundTrip(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := New(db)

	tests := []struct {
		name  string
		put   any
		empty any
	}{
		{"big.Int", big.NewInt(123456), new(big.Int)},
		{"uint64", uint64(42), new(uint64)},
		{"bool", true, new(bool)},
		{"address", verse.BytesToAddress([]byte("a1")), new(verse.Address)},
		{"bytes32", verse.BytesToBytes32([]byte("b1")), new(verse.Bytes32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, st.SetStructuredStorage(addr, key, tt.put))
			require.NoError(t, st.GetStructuredStorage(addr, key, tt.empty))
			switch v := tt.empty.(type) {
			case *big.Int:
				assert.Equal(t, tt.put, v)
			case *uint64:
				assert.Equal(t, tt.put, *v)
			case *bool:
				assert.Equal(t, tt.put, *v)
			case *verse.Address:
				assert.Equal(t, tt.put, *v)
			case *verse.Bytes32:
				assert.Equal(t, tt.put, *v)
			}
		})
	}
}

func TestCheckpointRevert(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := New(db)

	require.NoError(t, st.SetStructuredStorage(addr, key, uint64(1)))

	rev := st.NewCheckpoint()
	require.NoError(t, st.SetStructuredStorage(addr, key, uint64(2)))
	other := verse.BytesToBytes32([]byte("k2"))
	require.NoError(t, st.SetStructuredStorage(addr, other, uint64(3)))

	st.RevertTo(rev)

	var got uint64
	require.NoError(t, st.GetStructuredStorage(addr, key, &got))
	assert.Equal(t, uint64(1), got)
	require.NoError(t, st.GetStructuredStorage(addr, other, &got))
	assert.Zero(t, got)
}

func TestStagePersists(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	st := New(db)
	require.NoError(t, st.SetStructuredStorage(addr, key, uint64(7)))
	require.NoError(t, st.Stage())

	// a fresh state over the same store reads the staged value
	st2 := New(db)
	var got uint64
	require.NoError(t, st2.GetStructuredStorage(addr, key, &got))
	assert.Equal(t, uint64(7), got)
}

func TestZeroValueFreesSlot(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	st := New(db)
	require.NoError(t, st.SetStructuredStorage(addr, key, uint64(7)))
	require.NoError(t, st.Stage())

	require.NoError(t, st.SetStructuredStorage(addr, key, uint64(0)))
	require.NoError(t, st.Stage())

	st2 := New(db)
	var got uint64
	require.NoError(t, st2.GetStructuredStorage(addr, key, &got))
	assert.Zero(t, got)

	// the backing slot is gone, not just zeroed
	raw, err := st2.GetRawStorage(addr, key)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestRevertDiscardedFromStage(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)

	st := New(db)
	rev := st.NewCheckpoint()
	require.NoError(t, st.SetStructuredStorage(addr, key, uint64(9)))
	st.RevertTo(rev)
	require.NoError(t, st.Stage())

	st2 := New(db)
	var got uint64
	require.NoError(t, st2.GetStructuredStorage(addr, key, &got))
	assert.Zero(t, got)
}
