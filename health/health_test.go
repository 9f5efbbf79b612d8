// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	h := New()

	// fresh tracker: nothing happened yet
	s := h.Status(0)
	assert.False(t, s.Healthy)
	assert.False(t, s.Bootstrapped)
	assert.Nil(t, s.LastCheckpoint)

	// bootstrapped but never checkpointed is still unhealthy
	h.BootstrapStatus(true)
	s = h.Status(0)
	assert.False(t, s.Healthy)
	assert.True(t, s.Bootstrapped)

	h.MarkCheckpoint(12345)
	s = h.Status(time.Minute)
	assert.True(t, s.Healthy)
	assert.Equal(t, uint64(12345), s.SupplyCursor)
	assert.NotNil(t, s.LastCheckpoint)

	// the fallback window behaves like passing it explicitly
	assert.True(t, h.Status(DefaultMaxStaleness()).Healthy)

	// a stale checkpoint flips back to unhealthy
	s = h.Status(time.Nanosecond)
	assert.False(t, s.Healthy)
}
