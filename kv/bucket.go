// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket provides a logical key namespace over a kv store.
type Bucket string

var bufPool = sync.Pool{
	New: func() any { return &buf{} },
}

type buf struct {
	k []byte
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		GetFunc
		HasFunc
		IsNotFoundFunc
		NewIteratorFunc
	}{
		func(key []byte) ([]byte, error) {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Get(buf.k)
		},
		func(key []byte) (bool, error) {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Has(buf.k)
		},
		src.IsNotFound,
		func(r Range) Iterator {
			return b.newIterator(src, r)
		},
	}
}

// NewPutter creates a bucket putter from the source putter.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		PutFunc
		DeleteFunc
		NewBatchFunc
	}{
		func(key, val []byte) error {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Put(buf.k, val)
		},
		func(key []byte) error {
			buf := bufPool.Get().(*buf)
			defer bufPool.Put(buf)
			buf.k = append(append(buf.k[:0], b...), key...)

			return src.Delete(buf.k)
		},
		func() Batch {
			return &bucketBatch{src.NewBatch(), b}
		},
	}
}

// NewGetPutter creates a bucket get-putter from the source get-putter.
func (b Bucket) NewGetPutter(src GetPutter) GetPutter {
	return &struct {
		Getter
		Putter
	}{b.NewGetter(src), b.NewPutter(src)}
}

func (b Bucket) newIterator(src Getter, r Range) Iterator {
	from := append([]byte(b), r.From...)
	var to []byte
	if len(r.To) == 0 {
		to = util.BytesPrefix([]byte(b)).Limit
	} else {
		to = append([]byte(b), r.To...)
	}
	iter := src.NewIterator(Range{From: from, To: to})
	return &bucketIterator{iter, len(b)}
}

type bucketIterator struct {
	Iterator
	prefixLen int
}

// Key returns the key with the bucket prefix stripped.
func (it *bucketIterator) Key() []byte {
	return it.Iterator.Key()[it.prefixLen:]
}

type bucketBatch struct {
	Batch
	b Bucket
}

func (bb *bucketBatch) Put(key, val []byte) error {
	return bb.Batch.Put(append([]byte(bb.b), key...), val)
}

func (bb *bucketBatch) Delete(key []byte) error {
	return bb.Batch.Delete(append([]byte(bb.b), key...))
}
