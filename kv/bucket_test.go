// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versefi/verse/kv"
	"github.com/versefi/verse/lvldb"
)

func TestBucketNamespacing(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b1 := kv.Bucket("b1-")
	b2 := kv.Bucket("b2-")

	require.NoError(t, b1.NewPutter(db).Put([]byte("k"), []byte("v1")))
	require.NoError(t, b2.NewPutter(db).Put([]byte("k"), []byte("v2")))

	got, err := b1.NewGetter(db).Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	got, err = b2.NewGetter(db).Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	// raw store sees the prefixed key only
	has, err := db.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)
	has, err = db.Has([]byte("b1-k"))
	require.NoError(t, err)
	assert.True(t, has)

	_, err = b1.NewGetter(db).Get([]byte("missing"))
	assert.True(t, db.IsNotFound(err))
}

func TestBucketIterate(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b := kv.Bucket("b-")
	p := b.NewPutter(db)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, p.Put([]byte(k), []byte("v"+k)))
	}
	// keys outside the bucket are invisible to its iterator
	require.NoError(t, db.Put([]byte("z"), []byte("zz")))

	var keys []string
	it := b.NewGetter(db).NewIterator(kv.Range{})
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	require.NoError(t, it.Error())

	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestBucketBatch(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b := kv.Bucket("b-")
	batch := b.NewPutter(db).NewBatch()
	require.NoError(t, batch.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, batch.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, batch.Delete([]byte("k2")))
	require.NoError(t, batch.Write())

	got, err := b.NewGetter(db).Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	has, err := b.NewGetter(db).Has([]byte("k2"))
	require.NoError(t, err)
	assert.False(t, has)
}
