// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package merkledrop

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versefi/verse/lvldb"
	"github.com/versefi/verse/state"
	"github.com/versefi/verse/token"
	"github.com/versefi/verse/verse"
)

var (
	dropsAddr = verse.BytesToAddress([]byte("drops"))
	owner     = verse.BytesToAddress([]byte("owner"))
	locker    = verse.BytesToAddress([]byte("locker"))
	sink      = verse.BytesToAddress([]byte("penalty-sink"))
	alice     = verse.BytesToAddress([]byte("alice"))
	bob       = verse.BytesToAddress([]byte("bob"))
)

func combine(a, b verse.Bytes32) verse.Bytes32 {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return verse.Bytes32(crypto.Keccak256Hash(a[:], b[:]))
	}
	return verse.Bytes32(crypto.Keccak256Hash(b[:], a[:]))
}

type fixture struct {
	reg *Registry
	tok *token.Book
	now uint64
}

func newFixture(t *testing.T, penaltyBps uint64) *fixture {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)

	f := &fixture{now: 100}
	f.tok = token.NewBook(verse.BytesToAddress([]byte("tok")), st)
	f.reg = New(dropsAddr, owner, st, f.tok, locker, sink, penaltyBps, func() uint64 { return f.now })
	return f
}

// twoLeafDrop sets a funded drop over two claims and returns per-leaf
// proofs.
func (f *fixture) twoLeafDrop(t *testing.T, epochStart uint64, amtA, amtB, total int64) (proofA, proofB []verse.Bytes32) {
	leafA := Leaf(alice, epochStart, big.NewInt(amtA))
	leafB := Leaf(bob, epochStart, big.NewInt(amtB))
	root := combine(leafA, leafB)

	require.NoError(t, f.reg.SetDrop(owner, epochStart, &Drop{
		Root:       root,
		Total:      big.NewInt(total),
		StartTime:  1000,
		ExpiryTime: 5000,
	}))
	require.NoError(t, f.tok.Mint(dropsAddr, big.NewInt(total)))
	return []verse.Bytes32{leafB}, []verse.Bytes32{leafA}
}

func TestSetDrop(t *testing.T) {
	f := newFixture(t, 0)

	root := verse.BytesToBytes32([]byte("root"))
	drop := &Drop{Root: root, Total: big.NewInt(1000), StartTime: 1000, ExpiryTime: 5000}

	assert.ErrorIs(t, f.reg.SetDrop(alice, 0, drop), ErrNotAuthorized)

	require.NoError(t, f.reg.SetDrop(owner, 0, drop))
	assert.ErrorIs(t, f.reg.SetDrop(owner, 0, drop), ErrAlreadySet)

	got, err := f.reg.GetDrop(0)
	require.NoError(t, err)
	assert.Equal(t, root, got.Root)
	assert.Equal(t, big.NewInt(1000), got.Total)

	_, err = f.reg.GetDrop(7)
	assert.ErrorIs(t, err, ErrUnknownDrop)

	// a drop cannot be set once its window opened
	f.now = 1000
	assert.Error(t, f.reg.SetDrop(owner, 1, drop))
}

func TestClaimPaysOnce(t *testing.T) {
	f := newFixture(t, 0)
	proofA, proofB := f.twoLeafDrop(t, 0, 400, 600, 1000)

	f.now = 1000
	require.NoError(t, f.reg.Claim(0, alice, big.NewInt(400), proofA, false))

	balance, err := f.tok.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), balance)

	err = f.reg.Claim(0, alice, big.NewInt(400), proofA, false)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	require.NoError(t, f.reg.Claim(0, bob, big.NewInt(600), proofB, false))
	balance, err = f.tok.BalanceOf(bob)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), balance)
}

func TestClaimRejectsBadProof(t *testing.T) {
	f := newFixture(t, 0)
	proofA, _ := f.twoLeafDrop(t, 0, 400, 600, 1000)
	f.now = 1000

	// wrong amount
	err := f.reg.Claim(0, alice, big.NewInt(9999), proofA, false)
	assert.ErrorIs(t, err, ErrInvalidProof)

	// wrong account for the proof
	err = f.reg.Claim(0, bob, big.NewInt(400), proofA, false)
	assert.ErrorIs(t, err, ErrInvalidProof)

	// a failed claim leaves the slot claimable
	require.NoError(t, f.reg.Claim(0, alice, big.NewInt(400), proofA, false))
}

func TestClaimWindow(t *testing.T) {
	f := newFixture(t, 0)
	proofA, _ := f.twoLeafDrop(t, 0, 400, 600, 1000)

	f.now = 999
	assert.ErrorIs(t, f.reg.Claim(0, alice, big.NewInt(400), proofA, false), ErrNotActive)

	f.now = 5000
	assert.ErrorIs(t, f.reg.Claim(0, alice, big.NewInt(400), proofA, false), ErrNotActive)

	f.now = 4999
	require.NoError(t, f.reg.Claim(0, alice, big.NewInt(400), proofA, false))
}

func TestClaimPenaltyWithheld(t *testing.T) {
	f := newFixture(t, 1000) // 10%
	proofA, proofB := f.twoLeafDrop(t, 0, 400, 600, 1000)
	f.now = 1000

	require.NoError(t, f.reg.Claim(0, alice, big.NewInt(400), proofA, false))

	balance, err := f.tok.BalanceOf(alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(360), balance)

	pending, err := f.reg.PendingPenalty()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(40), pending)

	// the lock branch skips the penalty entirely
	require.NoError(t, f.reg.Claim(0, bob, big.NewInt(600), proofB, true))
	balance, err = f.tok.BalanceOf(locker)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), balance)

	require.NoError(t, f.reg.ForwardPenalty())
	balance, err = f.tok.BalanceOf(sink)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(40), balance)

	pending, err = f.reg.PendingPenalty()
	require.NoError(t, err)
	assert.Zero(t, pending.Sign())

	// nothing pending: forwarding again is a no-op
	require.NoError(t, f.reg.ForwardPenalty())
}

func TestClaimOverAllocation(t *testing.T) {
	f := newFixture(t, 0)

	// a malformed root promising more than the drop's total
	proofA, proofB := f.twoLeafDrop(t, 0, 700, 700, 1000)
	require.NoError(t, f.tok.Mint(dropsAddr, big.NewInt(400)))
	f.now = 1000

	require.NoError(t, f.reg.Claim(0, alice, big.NewInt(700), proofA, false))

	err := f.reg.Claim(0, bob, big.NewInt(700), proofB, false)
	assert.ErrorIs(t, err, ErrOverAllocation)

	// the failed claim rolled back completely
	claimed, err := f.reg.Claimed(0, bob)
	require.NoError(t, err)
	assert.False(t, claimed)
	balance, err := f.tok.BalanceOf(bob)
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())
}

func TestSweepResidual(t *testing.T) {
	f := newFixture(t, 0)
	proofA, _ := f.twoLeafDrop(t, 0, 400, 600, 1000)

	f.now = 1000
	require.NoError(t, f.reg.Claim(0, alice, big.NewInt(400), proofA, false))

	_, err := f.reg.Sweep(owner, 0, owner)
	assert.ErrorIs(t, err, ErrNotActive)

	f.now = 5000
	_, err = f.reg.Sweep(alice, 0, alice)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	residual, err := f.reg.Sweep(owner, 0, owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), residual)

	balance, err := f.tok.BalanceOf(owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(600), balance)

	_, err = f.reg.Sweep(owner, 0, owner)
	assert.ErrorIs(t, err, ErrAlreadySet)
}

func TestVerifyProof(t *testing.T) {
	l1 := Leaf(alice, 0, big.NewInt(1))
	l2 := Leaf(bob, 0, big.NewInt(2))
	l3 := Leaf(alice, 1, big.NewInt(3))
	l4 := Leaf(bob, 1, big.NewInt(4))

	n12 := combine(l1, l2)
	n34 := combine(l3, l4)
	root := combine(n12, n34)

	assert.True(t, VerifyProof(root, l1, []verse.Bytes32{l2, n34}))
	assert.True(t, VerifyProof(root, l4, []verse.Bytes32{l3, n12}))
	assert.False(t, VerifyProof(root, l1, []verse.Bytes32{l3, n34}))
	assert.False(t, VerifyProof(root, l1, nil))

	// single-leaf tree: the leaf is the root
	assert.True(t, VerifyProof(l1, l1, nil))
}
