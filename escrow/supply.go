// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package escrow

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/versefi/verse/epoch"
	"github.com/versefi/verse/state"
	"github.com/versefi/verse/verse"
)

var supplyCursorKey = verse.Bytes32(crypto.Keccak256Hash([]byte("supply-cursor")))

func supplyKey(weekStart uint64) verse.Bytes32 {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], weekStart)
	return verse.Bytes32(crypto.Keccak256Hash([]byte("supply"), ts[:]))
}

// SupplyCache caches total decaying supply per week boundary. The cached
// values serve as the denominator of pro-rata splits, so a boundary is
// only usable once the cache's cursor has passed it.
type SupplyCache struct {
	addr      verse.Address
	state     *state.State
	clock     epoch.Clock
	src       PointSource
	startTime uint64
}

// NewSupplyCache creates a supply cache owning the storage space of addr.
// startTime anchors the first cached boundary.
func NewSupplyCache(addr verse.Address, st *state.State, clock epoch.Clock, src PointSource, startTime uint64) *SupplyCache {
	return &SupplyCache{addr, st, clock, src, startTime}
}

// Cursor returns the next boundary to cache.
func (c *SupplyCache) Cursor() (uint64, error) {
	var cur uint64
	if err := c.state.GetStructuredStorage(c.addr, supplyCursorKey, &cur); err != nil {
		return 0, err
	}
	if cur == 0 {
		cur = c.clock.Floor(c.startTime)
	}
	return cur, nil
}

// CheckpointThroughWeek caches the total supply at each whole week
// boundary between the cursor and the week containing now, bounded to
// verse.MaxCatchUpIterations boundaries per call. Re-invoking once caught
// up is a no-op; a cursor further behind is caught up across calls.
func (c *SupplyCache) CheckpointThroughWeek(now uint64) error {
	t, err := c.Cursor()
	if err != nil {
		return err
	}
	roundedNow := c.clock.Floor(now)
	if t > roundedNow {
		return nil
	}
	for range verse.MaxCatchUpIterations {
		if t > roundedNow {
			break
		}
		supply, err := c.src.TotalSupplyAt(t)
		if err != nil {
			return err
		}
		if err := c.state.SetStructuredStorage(c.addr, supplyKey(t), supply); err != nil {
			return err
		}
		t += c.clock.Duration()
	}
	return c.state.SetStructuredStorage(c.addr, supplyCursorKey, t)
}

// SupplyAt returns the cached supply at the given week boundary.
// Boundaries not yet checkpointed read as zero; callers gate on Cursor.
func (c *SupplyCache) SupplyAt(weekStart uint64) (*big.Int, error) {
	supply := new(big.Int)
	if err := c.state.GetStructuredStorage(c.addr, supplyKey(weekStart), supply); err != nil {
		return nil, err
	}
	return supply, nil
}
