// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package merkledrop pays per-epoch token allocations proven by merkle
// proofs, exactly once per (epoch, account). Claimants either lock the
// full amount through the locker sink or take payment directly, minus a
// configured penalty withheld for later forwarding. Residuals become
// sweepable after expiry.
package merkledrop

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/versefi/verse/guard"
	"github.com/versefi/verse/log"
	"github.com/versefi/verse/metrics"
	"github.com/versefi/verse/state"
	"github.com/versefi/verse/token"
	"github.com/versefi/verse/verse"
)

var (
	logger = log.WithContext("pkg", "merkledrop")

	metricClaims = metrics.LazyLoadCounterVec("merkledrop_claims_count", []string{"locked"})

	// ErrNotAuthorized is returned when a mutating config call comes
	// from an account other than the owner.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUnknownDrop is returned when no drop exists for the epoch.
	ErrUnknownDrop = errors.New("unknown drop")

	// ErrAlreadySet guards write-once drop creation per epoch.
	ErrAlreadySet = errors.New("drop already set")

	// ErrNotActive is returned outside the [start, expiry) window.
	ErrNotActive = errors.New("drop not active")

	// ErrAlreadyClaimed guards the claim-once bitmap; terminal, no
	// reversal.
	ErrAlreadyClaimed = errors.New("already claimed")

	// ErrInvalidProof is returned when merkle verification fails.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrOverAllocation means claims against an epoch exceeded its
	// allocated total. Unreachable under correctly constructed roots;
	// it is an invariant check, not an expected user error.
	ErrOverAllocation = errors.New("claims exceed drop allocation")
)

// Drop is one epoch's merkle distribution.
type Drop struct {
	Root       verse.Bytes32
	Total      *big.Int
	StartTime  uint64
	ExpiryTime uint64
}

var (
	_ state.StorageEncoder = (*Drop)(nil)
	_ state.StorageDecoder = (*Drop)(nil)
)

// Encode implements state.StorageEncoder.
func (d *Drop) Encode() ([]byte, error) {
	if d.Root.IsZero() {
		return nil, nil
	}
	return rlp.EncodeToBytes(d)
}

// Decode implements state.StorageDecoder.
func (d *Drop) Decode(data []byte) error {
	if len(data) == 0 {
		*d = Drop{Total: &big.Int{}}
		return nil
	}
	return rlp.DecodeBytes(data, d)
}

// Registry stores per-epoch drops and their claim-once bitmaps.
type Registry struct {
	addr        verse.Address
	owner       verse.Address
	state       *state.State
	tok         token.Token
	locker      verse.Address
	penaltySink verse.Address
	penaltyBps  uint64
	now         func() uint64

	lock guard.Guard
}

// New creates a drop registry owning the storage space of addr.
// Non-locking claims forfeit penaltyBps basis points into a pending pool
// forwarded to penaltySink; locking claims route the full amount to the
// locker sink.
func New(
	addr, owner verse.Address,
	st *state.State,
	tok token.Token,
	locker, penaltySink verse.Address,
	penaltyBps uint64,
	now func() uint64,
) *Registry {
	if penaltyBps > verse.FullWeight {
		panic("merkledrop: penalty above full weight")
	}
	return &Registry{
		addr:        addr,
		owner:       owner,
		state:       st,
		tok:         tok,
		locker:      locker,
		penaltySink: penaltySink,
		penaltyBps:  penaltyBps,
		now:         now,
	}
}

func dropKey(epochStart uint64) verse.Bytes32 {
	var b [9]byte
	b[0] = 'd'
	binary.BigEndian.PutUint64(b[1:], epochStart)
	return verse.BytesToBytes32(b[:])
}

func claimedKey(epochStart uint64, account verse.Address) verse.Bytes32 {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], epochStart)
	return verse.Bytes32(crypto.Keccak256Hash([]byte("claimed"), ts[:], account.Bytes()))
}

func claimedTotalKey(epochStart uint64) verse.Bytes32 {
	var b [9]byte
	b[0] = 'e'
	binary.BigEndian.PutUint64(b[1:], epochStart)
	return verse.BytesToBytes32(b[:])
}

func accountTotalKey(account verse.Address) verse.Bytes32 {
	return verse.BytesToBytes32(append([]byte("a"), account.Bytes()...))
}

func sweptKey(epochStart uint64) verse.Bytes32 {
	var b [9]byte
	b[0] = 's'
	binary.BigEndian.PutUint64(b[1:], epochStart)
	return verse.BytesToBytes32(b[:])
}

var pendingPenaltyKey = verse.BytesToBytes32([]byte("pending-penalty"))

// GetDrop returns the drop set for the epoch, or ErrUnknownDrop.
func (r *Registry) GetDrop(epochStart uint64) (*Drop, error) {
	var d Drop
	if err := r.state.GetStructuredStorage(r.addr, dropKey(epochStart), &d); err != nil {
		return nil, err
	}
	if d.Root.IsZero() {
		return nil, errors.WithMessagef(ErrUnknownDrop, "epoch %d", epochStart)
	}
	return &d, nil
}

// SetDrop creates the epoch's drop. Owner only, write-once, and only
// before the drop's start time.
func (r *Registry) SetDrop(caller verse.Address, epochStart uint64, d *Drop) error {
	if caller != r.owner {
		return ErrNotAuthorized
	}
	if d.Root.IsZero() {
		return errors.New("zero root")
	}
	if d.StartTime >= d.ExpiryTime {
		return errors.New("expiry not after start")
	}
	if r.now() >= d.StartTime {
		return errors.New("drop starts in the past")
	}
	var existing Drop
	if err := r.state.GetStructuredStorage(r.addr, dropKey(epochStart), &existing); err != nil {
		return err
	}
	if !existing.Root.IsZero() {
		return errors.WithMessagef(ErrAlreadySet, "epoch %d", epochStart)
	}
	logger.Info("drop set", "epoch", epochStart, "total", d.Total, "start", d.StartTime, "expiry", d.ExpiryTime)
	return r.state.SetStructuredStorage(r.addr, dropKey(epochStart), d)
}

// Claimed reports whether account already claimed the epoch's drop.
func (r *Registry) Claimed(epochStart uint64, account verse.Address) (bool, error) {
	var claimed bool
	if err := r.state.GetStructuredStorage(r.addr, claimedKey(epochStart, account), &claimed); err != nil {
		return false, err
	}
	return claimed, nil
}

// PendingPenalty returns the penalty pool not yet forwarded.
func (r *Registry) PendingPenalty() (*big.Int, error) {
	pending := new(big.Int)
	if err := r.state.GetStructuredStorage(r.addr, pendingPenaltyKey, pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// Claim validates the proof and pays account its allocation exactly once.
// Locking routes the full amount to the locker sink; otherwise the
// penalty fraction is withheld and the remainder paid directly.
func (r *Registry) Claim(epochStart uint64, account verse.Address, amount *big.Int, proof []verse.Bytes32, lockIt bool) error {
	if err := r.lock.Enter(); err != nil {
		return err
	}
	defer r.lock.Leave()

	rev := r.state.NewCheckpoint()
	if err := r.claim(epochStart, account, amount, proof, lockIt); err != nil {
		r.state.RevertTo(rev)
		return err
	}
	return nil
}

func (r *Registry) claim(epochStart uint64, account verse.Address, amount *big.Int, proof []verse.Bytes32, lockIt bool) error {
	if amount.Sign() <= 0 {
		return errors.New("zero amount")
	}
	d, err := r.GetDrop(epochStart)
	if err != nil {
		return err
	}
	now := r.now()
	if now < d.StartTime || now >= d.ExpiryTime {
		return errors.WithMessagef(ErrNotActive, "epoch %d at %d", epochStart, now)
	}
	claimed, err := r.Claimed(epochStart, account)
	if err != nil {
		return err
	}
	if claimed {
		return errors.WithMessagef(ErrAlreadyClaimed, "account %v epoch %d", account, epochStart)
	}
	if !VerifyProof(d.Root, Leaf(account, epochStart, amount), proof) {
		return errors.WithMessagef(ErrInvalidProof, "account %v epoch %d", account, epochStart)
	}

	if err := r.state.SetStructuredStorage(r.addr, claimedKey(epochStart, account), true); err != nil {
		return err
	}
	epochTotal := new(big.Int)
	if err := r.state.GetStructuredStorage(r.addr, claimedTotalKey(epochStart), epochTotal); err != nil {
		return err
	}
	epochTotal.Add(epochTotal, amount)
	if epochTotal.Cmp(d.Total) > 0 {
		return errors.WithMessagef(ErrOverAllocation, "epoch %d claimed %v of %v", epochStart, epochTotal, d.Total)
	}
	if err := r.state.SetStructuredStorage(r.addr, claimedTotalKey(epochStart), epochTotal); err != nil {
		return err
	}
	accountTotal := new(big.Int)
	if err := r.state.GetStructuredStorage(r.addr, accountTotalKey(account), accountTotal); err != nil {
		return err
	}
	if err := r.state.SetStructuredStorage(r.addr, accountTotalKey(account), accountTotal.Add(accountTotal, amount)); err != nil {
		return err
	}

	if lockIt {
		if err := r.tok.Transfer(r.addr, r.locker, amount); err != nil {
			return err
		}
	} else {
		penalty := new(big.Int).SetUint64(r.penaltyBps)
		penalty.Mul(penalty, amount)
		penalty.Div(penalty, new(big.Int).SetUint64(verse.FullWeight))
		if penalty.Sign() > 0 {
			pending, err := r.PendingPenalty()
			if err != nil {
				return err
			}
			if err := r.state.SetStructuredStorage(r.addr, pendingPenaltyKey, pending.Add(pending, penalty)); err != nil {
				return err
			}
		}
		if err := r.tok.Transfer(r.addr, account, new(big.Int).Sub(amount, penalty)); err != nil {
			return err
		}
	}

	metricClaims().AddWithLabel(1, map[string]string{"locked": boolLabel(lockIt)})
	logger.Info("drop claimed", "epoch", epochStart, "account", account, "amount", amount, "locked", lockIt)
	return nil
}

// ForwardPenalty flushes the pending penalty pool to the penalty sink.
// Anyone may call it.
func (r *Registry) ForwardPenalty() error {
	if err := r.lock.Enter(); err != nil {
		return err
	}
	defer r.lock.Leave()

	rev := r.state.NewCheckpoint()
	if err := r.forwardPenalty(); err != nil {
		r.state.RevertTo(rev)
		return err
	}
	return nil
}

func (r *Registry) forwardPenalty() error {
	pending, err := r.PendingPenalty()
	if err != nil {
		return err
	}
	if pending.Sign() == 0 {
		return nil
	}
	if err := r.state.SetStructuredStorage(r.addr, pendingPenaltyKey, new(big.Int)); err != nil {
		return err
	}
	if err := r.tok.Transfer(r.addr, r.penaltySink, pending); err != nil {
		return err
	}
	logger.Info("penalty forwarded", "amount", pending, "sink", r.penaltySink)
	return nil
}

// Sweep recovers the unclaimed residual of an expired drop. Owner only,
// once per epoch.
func (r *Registry) Sweep(caller verse.Address, epochStart uint64, to verse.Address) (*big.Int, error) {
	if err := r.lock.Enter(); err != nil {
		return nil, err
	}
	defer r.lock.Leave()

	rev := r.state.NewCheckpoint()
	amount, err := r.sweep(caller, epochStart, to)
	if err != nil {
		r.state.RevertTo(rev)
		return nil, err
	}
	return amount, nil
}

func (r *Registry) sweep(caller verse.Address, epochStart uint64, to verse.Address) (*big.Int, error) {
	if caller != r.owner {
		return nil, ErrNotAuthorized
	}
	d, err := r.GetDrop(epochStart)
	if err != nil {
		return nil, err
	}
	if r.now() < d.ExpiryTime {
		return nil, errors.WithMessagef(ErrNotActive, "epoch %d not expired", epochStart)
	}
	var swept bool
	if err := r.state.GetStructuredStorage(r.addr, sweptKey(epochStart), &swept); err != nil {
		return nil, err
	}
	if swept {
		return nil, errors.WithMessagef(ErrAlreadySet, "epoch %d swept", epochStart)
	}
	claimedTotal := new(big.Int)
	if err := r.state.GetStructuredStorage(r.addr, claimedTotalKey(epochStart), claimedTotal); err != nil {
		return nil, err
	}
	residual := new(big.Int).Sub(d.Total, claimedTotal)
	if err := r.state.SetStructuredStorage(r.addr, sweptKey(epochStart), true); err != nil {
		return nil, err
	}
	if residual.Sign() > 0 {
		if err := r.tok.Transfer(r.addr, to, residual); err != nil {
			return nil, err
		}
	}
	logger.Info("drop swept", "epoch", epochStart, "residual", residual, "to", to)
	return residual, nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
