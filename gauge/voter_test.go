// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gauge

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versefi/verse/emission"
	"github.com/versefi/verse/epoch"
	"github.com/versefi/verse/lvldb"
	"github.com/versefi/verse/registry"
	"github.com/versefi/verse/state"
	"github.com/versefi/verse/token"
	"github.com/versefi/verse/verse"
)

const votePeriod = 2000

var (
	owner  = verse.BytesToAddress([]byte("owner"))
	admin  = verse.BytesToAddress([]byte("admin"))
	gauge1 = verse.BytesToAddress([]byte("g1"))
	gauge2 = verse.BytesToAddress([]byte("g2"))
	sink1  = verse.BytesToAddress([]byte("s1"))
	sink2  = verse.BytesToAddress([]byte("s2"))
)

func newTestVoter(t *testing.T) (*Voter, *token.Book, *state.State) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)

	book := registry.NewBook(verse.BytesToAddress([]byte("registry")), owner, st)
	for _, p := range []*registry.PoolInfo{
		{LPToken: verse.BytesToAddress([]byte("lp1")), Gauge: gauge1, RewardSink: sink1},
		{LPToken: verse.BytesToAddress([]byte("lp2")), Gauge: gauge2, RewardSink: sink2},
	} {
		_, err := book.AddPool(owner, p)
		require.NoError(t, err)
	}

	v := New(
		verse.BytesToAddress([]byte("voter")), admin,
		st, epoch.NewClock(votePeriod), book,
		emission.NewFixedPolicy(big.NewInt(10000)),
	)
	tok := token.NewBook(verse.BytesToAddress([]byte("tok")), st)
	return v, tok, st
}

func TestVoteWeightValidation(t *testing.T) {
	v, _, _ := newTestVoter(t)

	gauges := []verse.Address{gauge1, gauge2}

	tests := []struct {
		name    string
		caller  verse.Address
		weights []uint64
		wantErr error
	}{
		{"not the admin", owner, []uint64{6000, 4000}, ErrNotAuthorized},
		{"sum below full weight", admin, []uint64{6000, 3999}, ErrWeightSum},
		{"sum above full weight", admin, []uint64{6000, 4001}, ErrWeightSum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Vote(tt.caller, 2100, gauges, tt.weights)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// rejected votes leave the epoch open
	voted, err := v.Voted(2100)
	require.NoError(t, err)
	assert.False(t, voted)

	assert.Error(t, v.Vote(admin, 2100, gauges, []uint64{10000}))
	assert.Error(t, v.Vote(admin, 2100, []verse.Address{gauge1, gauge1}, []uint64{5000, 5000}))
}

func TestVoteOncePerEpoch(t *testing.T) {
	v, _, _ := newTestVoter(t)

	require.NoError(t, v.Vote(admin, 2100, []verse.Address{gauge1, gauge2}, []uint64{6000, 4000}))

	w, err := v.Weight(2100, gauge1)
	require.NoError(t, err)
	assert.Equal(t, uint64(6000), w)

	// same epoch, any timestamp inside it
	err = v.Vote(admin, 3900, []verse.Address{gauge1}, []uint64{10000})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	// the next epoch is fresh
	require.NoError(t, v.Vote(admin, 4000, []verse.Address{gauge1}, []uint64{10000}))
}

func TestNoDepositGaugeExcludedFromDenominator(t *testing.T) {
	v, _, _ := newTestVoter(t)

	require.NoError(t, v.SetNoDepositGauge(admin, gauge2, true))
	assert.ErrorIs(t, v.SetNoDepositGauge(owner, gauge2, true), ErrNotAuthorized)

	require.NoError(t, v.Vote(admin, 2100, []verse.Address{gauge1, gauge2}, []uint64{6000, 4000}))

	// gauge1 holds the whole pool: 10000 * 6000 / 6000
	amount, err := v.AmountToSend(2100, gauge1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10000), amount)

	amount, err = v.AmountToSend(2100, gauge2)
	require.NoError(t, err)
	assert.Zero(t, amount.Sign())
}

func TestNoDepositSnapshotFixedAtVoteTime(t *testing.T) {
	v, tok, _ := newTestVoter(t)

	require.NoError(t, v.SetNoDepositGauge(admin, gauge2, true))
	require.NoError(t, v.Vote(admin, 2100, []verse.Address{gauge1, gauge2}, []uint64{6000, 4000}))
	require.NoError(t, tok.Mint(verse.BytesToAddress([]byte("voter")), big.NewInt(10000)))

	// flipping the flag after the vote must not re-admit gauge2 into the
	// epoch's split; paying it 4000/6000 on top of gauge1's full pool
	// would over-disburse the emission
	require.NoError(t, v.SetNoDepositGauge(admin, gauge2, false))

	amount, err := v.AmountToSend(2100, gauge2)
	require.NoError(t, err)
	assert.Zero(t, amount.Sign())

	err = v.ProcessRewards(tok, 2100, gauge2)
	assert.ErrorIs(t, err, ErrNothingToProcess)

	require.NoError(t, v.ProcessRewards(tok, 2100, gauge1))
	balance, err := tok.BalanceOf(sink1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10000), balance)

	// the opposite flip is equally inert for the voted epoch
	require.NoError(t, v.SetNoDepositGauge(admin, gauge1, true))
	amount, err = v.AmountToSend(2100, gauge1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10000), amount)
}

func TestAmountToSendUnvotedEpoch(t *testing.T) {
	v, _, _ := newTestVoter(t)

	amount, err := v.AmountToSend(2100, gauge1)
	require.NoError(t, err)
	assert.Zero(t, amount.Sign())
}

func TestProcessRewards(t *testing.T) {
	v, tok, _ := newTestVoter(t)

	require.NoError(t, v.Vote(admin, 2100, []verse.Address{gauge1, gauge2}, []uint64{6000, 4000}))
	require.NoError(t, tok.Mint(verse.BytesToAddress([]byte("voter")), big.NewInt(10000)))

	require.NoError(t, v.ProcessRewards(tok, 2100, gauge1))

	balance, err := tok.BalanceOf(sink1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(6000), balance)

	// a processed gauge stays processed for the whole epoch
	err = v.ProcessRewards(tok, 3900, gauge1)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	require.NoError(t, v.ProcessRewards(tok, 2100, gauge2))
	balance, err = tok.BalanceOf(sink2)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(4000), balance)
}

func TestProcessRewardsBatchAtomic(t *testing.T) {
	v, tok, _ := newTestVoter(t)

	require.NoError(t, v.SetNoDepositGauge(admin, gauge2, true))
	require.NoError(t, v.Vote(admin, 2100, []verse.Address{gauge1, gauge2}, []uint64{6000, 4000}))
	require.NoError(t, tok.Mint(verse.BytesToAddress([]byte("voter")), big.NewInt(10000)))

	// gauge2 yields nothing, so the whole batch must roll back
	err := v.ProcessRewards(tok, 2100, gauge1, gauge2)
	assert.ErrorIs(t, err, ErrNothingToProcess)

	balance, err := tok.BalanceOf(sink1)
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())

	// the rollback reopened gauge1
	require.NoError(t, v.ProcessRewards(tok, 2100, gauge1))
	balance, err = tok.BalanceOf(sink1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10000), balance)
}
