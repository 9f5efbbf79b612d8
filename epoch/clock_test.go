// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/versefi/verse/verse"
)

func TestClock(t *testing.T) {
	c := NewClock(verse.WeekDuration)

	tests := []struct {
		ret      any
		expected any
	}{
		{c.Index(0), uint64(0)},
		{c.Index(verse.WeekDuration - 1), uint64(0)},
		{c.Index(verse.WeekDuration), uint64(1)},
		{c.Start(3), 3 * verse.WeekDuration},
		{c.Floor(verse.WeekDuration + 1), verse.WeekDuration},
		{c.Floor(verse.WeekDuration), verse.WeekDuration},
		{c.Ceil(verse.WeekDuration), verse.WeekDuration},
		{c.Ceil(verse.WeekDuration + 1), 2 * verse.WeekDuration},
		{c.Next(verse.WeekDuration), 2 * verse.WeekDuration},
		{c.Duration(), verse.WeekDuration},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.ret)
	}
}

func TestClockMonotonic(t *testing.T) {
	c := NewClock(verse.VotePeriodDuration)

	var last uint64
	for ts := uint64(0); ts < 10*verse.VotePeriodDuration; ts += verse.VotePeriodDuration / 3 {
		idx := c.Index(ts)
		assert.GreaterOrEqual(t, idx, last)
		last = idx
	}
}

func TestClockZeroDuration(t *testing.T) {
	assert.Panics(t, func() { NewClock(0) })
}
