// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package emission isolates "how much to mint this epoch" from "how to
// distribute what was minted". The distributing side only ever sees the
// Policy interface, so emission schedules are swappable.
package emission

import "math/big"

// Policy yields the reward pool minted for a given epoch index.
type Policy interface {
	AmountForEpoch(idx uint64) *big.Int
}

// FixedPolicy emits a constant amount per epoch.
type FixedPolicy struct {
	amount *big.Int
}

var _ Policy = (*FixedPolicy)(nil)

// NewFixedPolicy creates a fixed per-epoch emission.
func NewFixedPolicy(amount *big.Int) *FixedPolicy {
	return &FixedPolicy{new(big.Int).Set(amount)}
}

// AmountForEpoch implements Policy.
func (p *FixedPolicy) AmountForEpoch(uint64) *big.Int {
	return new(big.Int).Set(p.amount)
}
