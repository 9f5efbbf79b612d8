// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package verse

import "math/big"

// Constants of the accounting protocol.
const (
	// WeekDuration is the short accounting epoch used by fee distribution
	// and supply checkpointing.
	WeekDuration uint64 = 7 * 24 * 3600

	// VotePeriodDuration is the longer epoch on which gauge votes are cast.
	VotePeriodDuration uint64 = 2 * WeekDuration

	// FullWeight is the fixed total a gauge vote's weights must sum to,
	// in basis points.
	FullWeight uint64 = 10_000

	// MaxCatchUpIterations bounds the work done by a single catch-up call
	// (supply checkpointing, inflow attribution, claim walking). A cursor
	// further behind than this is caught up across multiple calls.
	MaxCatchUpIterations = 20
)

var (
	// E18 is the fixed-point scale shared with the token ledger.
	E18 = big.NewInt(1e18)
)
