// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry keeps the pool bookkeeping the reward allocator reads:
// which liquidity pool backs a gauge and where that gauge's rewards go.
// The core only ever reads it.
package registry

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/versefi/verse/state"
	"github.com/versefi/verse/verse"
)

var (
	// ErrNotAuthorized is returned when a mutating call comes from an
	// account other than the owner.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUnknownPool is returned for an out-of-range pool id.
	ErrUnknownPool = errors.New("unknown pool")
)

// PoolInfo describes one registered pool.
type PoolInfo struct {
	LPToken    verse.Address
	Gauge      verse.Address
	RewardSink verse.Address
	Shutdown   bool
}

var (
	_ state.StorageEncoder = (*PoolInfo)(nil)
	_ state.StorageDecoder = (*PoolInfo)(nil)
)

// Encode implements state.StorageEncoder.
func (p *PoolInfo) Encode() ([]byte, error) {
	if p.LPToken.IsZero() && p.Gauge.IsZero() && p.RewardSink.IsZero() && !p.Shutdown {
		return nil, nil
	}
	return rlp.EncodeToBytes(p)
}

// Decode implements state.StorageDecoder.
func (p *PoolInfo) Decode(data []byte) error {
	if len(data) == 0 {
		*p = PoolInfo{}
		return nil
	}
	return rlp.DecodeBytes(data, p)
}

// Registry is the read surface the allocator depends on.
type Registry interface {
	PoolLength() (uint64, error)
	PoolInfo(id uint64) (*PoolInfo, error)
}

// Book is a state-backed pool registry.
type Book struct {
	addr  verse.Address
	owner verse.Address
	state *state.State
}

var _ Registry = (*Book)(nil)

// NewBook creates a registry owning the storage space of addr, with
// mutations gated on owner.
func NewBook(addr, owner verse.Address, st *state.State) *Book {
	return &Book{addr, owner, st}
}

var poolCountKey = verse.BytesToBytes32([]byte("pool-count"))

func poolKey(id uint64) verse.Bytes32 {
	var b [9]byte
	b[0] = 'p'
	binary.BigEndian.PutUint64(b[1:], id)
	return verse.BytesToBytes32(b[:])
}

// PoolLength returns the number of registered pools.
func (b *Book) PoolLength() (uint64, error) {
	var n uint64
	if err := b.state.GetStructuredStorage(b.addr, poolCountKey, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// PoolInfo returns the pool registered under id.
func (b *Book) PoolInfo(id uint64) (*PoolInfo, error) {
	n, err := b.PoolLength()
	if err != nil {
		return nil, err
	}
	if id >= n {
		return nil, errors.WithMessagef(ErrUnknownPool, "id %d", id)
	}
	var info PoolInfo
	if err := b.state.GetStructuredStorage(b.addr, poolKey(id), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// AddPool registers a pool and returns its id. Owner only.
func (b *Book) AddPool(caller verse.Address, info *PoolInfo) (uint64, error) {
	if caller != b.owner {
		return 0, ErrNotAuthorized
	}
	n, err := b.PoolLength()
	if err != nil {
		return 0, err
	}
	if err := b.state.SetStructuredStorage(b.addr, poolKey(n), info); err != nil {
		return 0, err
	}
	if err := b.state.SetStructuredStorage(b.addr, poolCountKey, n+1); err != nil {
		return 0, err
	}
	return n, nil
}

// ShutdownPool marks a pool as shut down. Owner only.
func (b *Book) ShutdownPool(caller verse.Address, id uint64) error {
	if caller != b.owner {
		return ErrNotAuthorized
	}
	info, err := b.PoolInfo(id)
	if err != nil {
		return err
	}
	info.Shutdown = true
	return b.state.SetStructuredStorage(b.addr, poolKey(id), info)
}

// SinkOf resolves the reward sink of the pool backing the given gauge.
func SinkOf(r Registry, gauge verse.Address) (verse.Address, error) {
	n, err := r.PoolLength()
	if err != nil {
		return verse.Address{}, err
	}
	for id := uint64(0); id < n; id++ {
		info, err := r.PoolInfo(id)
		if err != nil {
			return verse.Address{}, err
		}
		if info.Gauge == gauge && !info.Shutdown {
			return info.RewardSink, nil
		}
	}
	return verse.Address{}, errors.WithMessagef(ErrUnknownPool, "gauge %v", gauge)
}
