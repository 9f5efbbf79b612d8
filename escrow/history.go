// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package escrow stores decaying voting-power curves per account and
// answers balance-at-timestamp queries over them. Point sequences are
// append-only; balances between points follow linear bias-minus-slope
// decay clamped at zero.
package escrow

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/versefi/verse/cache"
	"github.com/versefi/verse/log"
	"github.com/versefi/verse/metrics"
	"github.com/versefi/verse/state"
	"github.com/versefi/verse/verse"
)

var (
	logger = log.WithContext("pkg", "escrow")

	metricPointsRecorded = metrics.LazyLoadCounter("escrow_points_recorded_count")

	// ErrOrderingViolation is returned when a point is recorded with a
	// timestamp before the account's last recorded point.
	ErrOrderingViolation = errors.New("point timestamp out of order")
)

// globalAccount is the reserved key under which the aggregate
// (total-supply) curve is stored.
var globalAccount = verse.BytesToAddress([]byte("total-supply"))

// PointSource is a read-only view of a vote-escrow point history.
// It is the seam through which collaborators (and tests) supply
// synthetic histories.
type PointSource interface {
	PointCount(acct verse.Address) (uint64, error)
	PointAt(acct verse.Address, i uint64) (Point, error)
	TotalSupplyAt(t uint64) (*big.Int, error)
}

// History is a state-backed, append-only point history per account,
// including the aggregate supply curve.
type History struct {
	addr  verse.Address
	state *state.State
	cache *cache.LRU
}

var _ PointSource = (*History)(nil)

// New creates a history owning the storage space of addr.
func New(addr verse.Address, st *state.State) *History {
	c, _ := cache.NewLRU(256)
	return &History{addr: addr, state: st, cache: c}
}

func countKey(acct verse.Address) verse.Bytes32 {
	return verse.BytesToBytes32(append([]byte("c"), acct.Bytes()...))
}

func pointKey(acct verse.Address, i uint64) verse.Bytes32 {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], i)
	return verse.Bytes32(crypto.Keccak256Hash(acct.Bytes(), idx[:]))
}

// PointCount returns the number of recorded points for acct.
func (h *History) PointCount(acct verse.Address) (uint64, error) {
	var n uint64
	if err := h.state.GetStructuredStorage(h.addr, countKey(acct), &n); err != nil {
		return 0, err
	}
	return n, nil
}

// PointAt returns the i-th recorded point for acct.
func (h *History) PointAt(acct verse.Address, i uint64) (Point, error) {
	var p Point
	if err := h.state.GetStructuredStorage(h.addr, pointKey(acct, i), &p); err != nil {
		return Point{}, err
	}
	return p, nil
}

// RecordPoint appends a point to acct's history.
// The timestamp must not precede the last recorded point; bias and slope
// must be non-negative.
func (h *History) RecordPoint(acct verse.Address, p Point) error {
	if p.Bias.Sign() < 0 || p.Slope.Sign() < 0 {
		return errors.New("negative bias or slope")
	}
	n, err := h.PointCount(acct)
	if err != nil {
		return err
	}
	if n > 0 {
		last, err := h.PointAt(acct, n-1)
		if err != nil {
			return err
		}
		if p.Timestamp < last.Timestamp {
			return errors.WithMessagef(ErrOrderingViolation, "account %v", acct)
		}
	}
	if err := h.state.SetStructuredStorage(h.addr, pointKey(acct, n), &p); err != nil {
		return err
	}
	if err := h.state.SetStructuredStorage(h.addr, countKey(acct), n+1); err != nil {
		return err
	}
	// evict whatever an earlier reverted operation may have cached for
	// this length
	h.cache.Forget(pointsCacheKey{acct, n + 1})
	metricPointsRecorded().Add(1)
	logger.Trace("point recorded", "account", acct, "ts", p.Timestamp, "bias", p.Bias, "slope", p.Slope)
	return nil
}

// RecordGlobalPoint appends a point to the aggregate supply curve.
func (h *History) RecordGlobalPoint(p Point) error {
	return h.RecordPoint(globalAccount, p)
}

// pointsCacheKey keys cached sequences by length as well as account.
// Sequences are append-only, so a (account, count) entry never goes
// stale: a journal revert rolls the count back and leaves any entry
// cached for the reverted length unreachable.
type pointsCacheKey struct {
	acct verse.Address
	n    uint64
}

// points loads acct's full point sequence, via the LRU cache.
func (h *History) points(acct verse.Address) ([]Point, error) {
	n, err := h.PointCount(acct)
	if err != nil {
		return nil, err
	}
	v, err := h.cache.GetOrLoad(pointsCacheKey{acct, n}, func(any) (any, error) {
		pts := make([]Point, n)
		var err error
		for i := uint64(0); i < n; i++ {
			if pts[i], err = h.PointAt(acct, i); err != nil {
				return nil, err
			}
		}
		return pts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Point), nil
}

// BalanceAt evaluates acct's curve at time t.
// It returns zero before the first point and extrapolates decay beyond
// the last point.
func (h *History) BalanceAt(acct verse.Address, t uint64) (*big.Int, error) {
	pts, err := h.points(acct)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 || t < pts[0].Timestamp {
		return &big.Int{}, nil
	}
	// binary search for the latest point with Timestamp <= t
	lo, hi := 0, len(pts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if pts[mid].Timestamp <= t {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return pts[lo].Evaluate(t), nil
}

// TotalSupplyAt evaluates the aggregate supply curve at time t.
func (h *History) TotalSupplyAt(t uint64) (*big.Int, error) {
	return h.BalanceAt(globalAccount, t)
}
