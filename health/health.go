// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package health tracks checkpoint housekeeping liveness for the daemon.
package health

import (
	"sync"
	"time"
)

const defaultMaxStaleness = 30 * time.Minute

// Status is the JSON shape served by the admin health endpoint.
type Status struct {
	Healthy        bool       `json:"healthy"`
	Bootstrapped   bool       `json:"bootstrapped"`
	LastCheckpoint *time.Time `json:"lastCheckpoint"`
	SupplyCursor   uint64     `json:"supplyCursor"`
}

// Health records housekeeping progress and answers liveness queries.
type Health struct {
	lock           sync.RWMutex
	bootstrapped   bool
	lastCheckpoint time.Time
	supplyCursor   uint64
}

func New() *Health {
	return &Health{}
}

// BootstrapStatus marks whether initial catch-up has completed.
func (h *Health) BootstrapStatus(done bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.bootstrapped = done
}

// MarkCheckpoint records a completed housekeeping round and the supply
// cursor it advanced to.
func (h *Health) MarkCheckpoint(supplyCursor uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.lastCheckpoint = time.Now()
	h.supplyCursor = supplyCursor
}

// Status reports healthy when bootstrap finished and the latest
// housekeeping round is younger than maxStaleness.
func (h *Health) Status(maxStaleness time.Duration) *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	if maxStaleness == 0 {
		maxStaleness = defaultMaxStaleness
	}

	var last *time.Time
	fresh := false
	if !h.lastCheckpoint.IsZero() {
		t := h.lastCheckpoint
		last = &t
		fresh = time.Since(t) <= maxStaleness
	}

	return &Status{
		Healthy:        h.bootstrapped && fresh,
		Bootstrapped:   h.bootstrapped,
		LastCheckpoint: last,
		SupplyCursor:   h.supplyCursor,
	}
}

// DefaultMaxStaleness exposes the fallback window used by Status.
func DefaultMaxStaleness() time.Duration { return defaultMaxStaleness }
