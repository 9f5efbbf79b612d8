// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package guard provides an explicit call-depth guard for mutating entry
// points. A service embeds a Guard and brackets each state-changing call
// with Enter/Leave, so a collaborator calling back into the service
// mid-operation fails fast instead of observing half-applied state.
package guard

import "github.com/pkg/errors"

// ErrReentry is returned when a guarded entry point is re-entered.
var ErrReentry = errors.New("reentry disallowed")

// Guard is a non-blocking single-acquisition lock.
// The zero value is ready to use. It is not safe for concurrent use;
// it detects recursive entry within a single call stack.
type Guard struct {
	entered bool
}

// Enter acquires the guard. It fails with ErrReentry if already held.
func (g *Guard) Enter() error {
	if g.entered {
		return ErrReentry
	}
	g.entered = true
	return nil
}

// Leave releases the guard. It must be called on all exit paths,
// typically via defer.
func (g *Guard) Leave() {
	g.entered = false
}
