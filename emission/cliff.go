// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package emission

import "math/big"

// CliffPolicy is the superseded inflation schedule: emissions step down
// at fixed cliffs until a total cap is exhausted. Kept behind the Policy
// interface so switching schedules never touches distribution code.
type CliffPolicy struct {
	initial        *big.Int // emission of epoch 0
	reduction      *big.Int // emission lost per cliff
	epochsPerCliff uint64
	totalCliffs    uint64
}

var _ Policy = (*CliffPolicy)(nil)

// NewCliffPolicy creates a stepped-decay emission schedule.
// After totalCliffs cliffs the emission is zero.
func NewCliffPolicy(initial, reduction *big.Int, epochsPerCliff, totalCliffs uint64) *CliffPolicy {
	if epochsPerCliff == 0 {
		panic("emission: zero epochs per cliff")
	}
	return &CliffPolicy{
		initial:        new(big.Int).Set(initial),
		reduction:      new(big.Int).Set(reduction),
		epochsPerCliff: epochsPerCliff,
		totalCliffs:    totalCliffs,
	}
}

// AmountForEpoch implements Policy.
func (p *CliffPolicy) AmountForEpoch(idx uint64) *big.Int {
	cliff := idx / p.epochsPerCliff
	if cliff >= p.totalCliffs {
		return &big.Int{}
	}
	cut := new(big.Int).SetUint64(cliff)
	cut.Mul(cut, p.reduction)
	amount := new(big.Int).Sub(p.initial, cut)
	if amount.Sign() < 0 {
		amount.SetInt64(0)
	}
	return amount
}
