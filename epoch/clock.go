// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package epoch maps wall-clock time to monotonic epoch indexes.
// Two clocks with different durations coexist in the protocol: the short
// weekly accounting epoch and the longer voting epoch. Duration is always
// carried by the clock instance, never by a global.
package epoch

// Clock buckets timestamps into fixed-duration epochs.
type Clock struct {
	duration uint64
}

// NewClock creates a clock with the given epoch duration in seconds.
// It panics on zero duration.
func NewClock(duration uint64) Clock {
	if duration == 0 {
		panic("epoch: zero duration")
	}
	return Clock{duration}
}

// Duration returns the epoch duration in seconds.
func (c Clock) Duration() uint64 {
	return c.duration
}

// Index returns the epoch index containing t.
func (c Clock) Index(t uint64) uint64 {
	return t / c.duration
}

// Start returns the start timestamp of the epoch with the given index.
func (c Clock) Start(idx uint64) uint64 {
	return idx * c.duration
}

// Floor rounds t down to the start of its epoch.
func (c Clock) Floor(t uint64) uint64 {
	return t / c.duration * c.duration
}

// Ceil rounds t up to the nearest epoch boundary.
// A timestamp already on a boundary is returned unchanged.
func (c Clock) Ceil(t uint64) uint64 {
	return (t + c.duration - 1) / c.duration * c.duration
}

// Next returns the start of the epoch after the one containing t.
func (c Clock) Next(t uint64) uint64 {
	return c.Floor(t) + c.duration
}
