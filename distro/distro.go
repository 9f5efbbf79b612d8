// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package distro attributes token inflows to weekly buckets and pays each
// account its pro-rata share exactly once per week. Attribution and claim
// walking are bounded per call and resume from persisted cursors, so a
// long-dormant distributor catches up across repeated calls.
package distro

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/versefi/verse/epoch"
	"github.com/versefi/verse/escrow"
	"github.com/versefi/verse/guard"
	"github.com/versefi/verse/log"
	"github.com/versefi/verse/metrics"
	"github.com/versefi/verse/state"
	"github.com/versefi/verse/token"
	"github.com/versefi/verse/verse"
)

var (
	logger = log.WithContext("pkg", "distro")

	metricClaims          = metrics.LazyLoadCounterVec("distro_claims_count", []string{"token"})
	metricClaimIterations = metrics.LazyLoadHistogram("distro_claim_iterations", metrics.BucketIterations)

	// ErrZeroSupply indicates a pro-rata split against a zero supply
	// denominator. It is unreachable by construction; hitting it means
	// the supply cache and the balance curves disagree.
	ErrZeroSupply = errors.New("zero supply denominator")
)

// Escrow is the read-only balance view the distributor needs.
type Escrow interface {
	BalanceAt(acct verse.Address, t uint64) (*big.Int, error)
	PointCount(acct verse.Address) (uint64, error)
	PointAt(acct verse.Address, i uint64) (escrow.Point, error)
}

// Distributor implements weekly pro-rata fee distribution.
type Distributor struct {
	addr   verse.Address
	state  *state.State
	clock  epoch.Clock
	escrow Escrow
	supply *escrow.SupplyCache
	now    func() uint64

	lock guard.Guard
}

// New creates a distributor owning the storage space of addr.
// The now func supplies wall-clock seconds and exists to keep tests
// deterministic.
func New(
	addr verse.Address,
	st *state.State,
	clock epoch.Clock,
	esc Escrow,
	supply *escrow.SupplyCache,
	now func() uint64,
) *Distributor {
	return &Distributor{
		addr:   addr,
		state:  st,
		clock:  clock,
		escrow: esc,
		supply: supply,
		now:    now,
	}
}

// Address returns the distributor's own address, the holder of all
// undistributed funds.
func (d *Distributor) Address() verse.Address {
	return d.addr
}

func tokenStateKey(tok verse.Address) verse.Bytes32 {
	return verse.BytesToBytes32(append([]byte("t"), tok.Bytes()...))
}

func userStateKey(user verse.Address) verse.Bytes32 {
	return verse.BytesToBytes32(append([]byte("u"), user.Bytes()...))
}

func tokensPerWeekKey(tok verse.Address, weekStart uint64) verse.Bytes32 {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], weekStart)
	return verse.Bytes32(crypto.Keccak256Hash([]byte("tpw"), tok.Bytes(), ts[:]))
}

func claimCursorKey(user, tok verse.Address) verse.Bytes32 {
	return verse.Bytes32(crypto.Keccak256Hash([]byte("cursor"), user.Bytes(), tok.Bytes()))
}

func (d *Distributor) getTokenState(tok verse.Address) (*tokenState, error) {
	var ts tokenState
	if err := d.state.GetStructuredStorage(d.addr, tokenStateKey(tok), &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (d *Distributor) setTokenState(tok verse.Address, ts *tokenState) error {
	return d.state.SetStructuredStorage(d.addr, tokenStateKey(tok), ts)
}

func (d *Distributor) getUserState(user verse.Address) (*userState, error) {
	var us userState
	if err := d.state.GetStructuredStorage(d.addr, userStateKey(user), &us); err != nil {
		return nil, err
	}
	return &us, nil
}

// TokensPerWeek returns the reward bucket assigned to the week starting
// at weekStart.
func (d *Distributor) TokensPerWeek(tok verse.Address, weekStart uint64) (*big.Int, error) {
	bucket := new(big.Int)
	if err := d.state.GetStructuredStorage(d.addr, tokensPerWeekKey(tok, weekStart), bucket); err != nil {
		return nil, err
	}
	return bucket, nil
}

// TokenCursor returns the time the token's inflow accounting is caught
// up to, zero if the token was never checkpointed.
func (d *Distributor) TokenCursor(tok verse.Address) (uint64, error) {
	ts, err := d.getTokenState(tok)
	if err != nil {
		return 0, err
	}
	return ts.LastCheckpoint, nil
}

// ClaimCursor returns the start of the next unclaimed week for the
// (user, token) pair, zero if the pair never claimed.
func (d *Distributor) ClaimCursor(user, tok verse.Address) (uint64, error) {
	var cur uint64
	if err := d.state.GetStructuredStorage(d.addr, claimCursorKey(user, tok), &cur); err != nil {
		return 0, err
	}
	return cur, nil
}

// CheckpointSupply advances the supply cache through the current week.
func (d *Distributor) CheckpointSupply() error {
	rev := d.state.NewCheckpoint()
	if err := d.supply.CheckpointThroughWeek(d.now()); err != nil {
		d.state.RevertTo(rev)
		return err
	}
	return nil
}

// CheckpointUser records that user's balance curve is accounted through
// now. Self-service: only affects the given account's cursors.
func (d *Distributor) CheckpointUser(user verse.Address) error {
	rev := d.state.NewCheckpoint()
	if err := d.checkpointUser(user, d.now()); err != nil {
		d.state.RevertTo(rev)
		return err
	}
	return nil
}

func (d *Distributor) checkpointUser(user verse.Address, now uint64) error {
	us, err := d.getUserState(user)
	if err != nil {
		return err
	}
	if us.FirstEligible == 0 {
		n, err := d.escrow.PointCount(user)
		if err != nil {
			return err
		}
		if n == 0 {
			// no curve yet, nothing to account
			return nil
		}
		first, err := d.escrow.PointAt(user, 0)
		if err != nil {
			return err
		}
		us.FirstEligible = first.Timestamp
	}
	if now < us.LastCheckpoint {
		return nil
	}
	us.LastCheckpoint = now
	us.LastEpochIndex = d.clock.Index(now)
	return d.state.SetStructuredStorage(d.addr, userStateKey(user), us)
}

// CheckpointToken detects token balance received since the last
// checkpoint and spreads it across the elapsed weeks pro-rata to time.
// Unless forced, a second call within the same week is a no-op outside
// the trailing seventh of the week; this only bounds the cost of
// redundant checkpointing and has no bearing on correctness.
func (d *Distributor) CheckpointToken(tok token.Token, force bool) error {
	if err := d.lock.Enter(); err != nil {
		return err
	}
	defer d.lock.Leave()

	rev := d.state.NewCheckpoint()
	if err := d.checkpointToken(tok, d.now(), force); err != nil {
		d.state.RevertTo(rev)
		return err
	}
	return nil
}

func (d *Distributor) checkpointToken(tok token.Token, now uint64, force bool) error {
	ts, err := d.getTokenState(tok.Address())
	if err != nil {
		return err
	}
	fresh := ts.Start == 0
	if fresh {
		ts.Start = now
		ts.LastCheckpoint = now
	}
	if !force && !fresh &&
		d.clock.Floor(now) == d.clock.Floor(ts.LastCheckpoint) &&
		now > ts.LastCheckpoint &&
		now < d.clock.Next(now)-d.clock.Duration()/7 {
		return nil
	}

	balance, err := tok.BalanceOf(d.addr)
	if err != nil {
		return err
	}
	delta := new(big.Int).Sub(balance, ts.CachedBalance)
	if delta.Sign() < 0 {
		return errors.New("cached balance exceeds held balance")
	}
	if delta.Sign() == 0 && !force && !fresh && now == ts.LastCheckpoint {
		return nil
	}

	t := ts.LastCheckpoint
	sinceLast := now - t
	attributed := new(big.Int)

	if sinceLast == 0 {
		// same-timestamp inflow lands in the current week
		if delta.Sign() > 0 {
			if err := d.addToWeek(tok.Address(), d.clock.Floor(now), delta); err != nil {
				return err
			}
			attributed.Set(delta)
		}
	} else {
		for range verse.MaxCatchUpIterations {
			thisWeek := d.clock.Floor(t)
			end := thisWeek + d.clock.Duration()
			if now < end {
				end = now
			}
			if delta.Sign() > 0 {
				inc := new(big.Int).SetUint64(end - t)
				inc.Mul(inc, delta)
				inc.Div(inc, new(big.Int).SetUint64(sinceLast))
				if inc.Sign() > 0 {
					if err := d.addToWeek(tok.Address(), thisWeek, inc); err != nil {
						return err
					}
					attributed.Add(attributed, inc)
				}
			}
			t = end
			if t >= now {
				break
			}
		}
	}

	// Rounding dust and any tail beyond the iteration cap stay outside
	// CachedBalance, so the next checkpoint re-detects them as inflow.
	ts.LastCheckpoint = t
	ts.CachedBalance.Add(ts.CachedBalance, attributed)
	logger.Debug("token checkpointed",
		"token", tok.Address(), "through", t, "attributed", attributed)
	return d.setTokenState(tok.Address(), ts)
}

func (d *Distributor) addToWeek(tok verse.Address, weekStart uint64, amount *big.Int) error {
	bucket, err := d.TokensPerWeek(tok, weekStart)
	if err != nil {
		return err
	}
	bucket.Add(bucket, amount)
	return d.state.SetStructuredStorage(d.addr, tokensPerWeekKey(tok, weekStart), bucket)
}

// floorEpoch returns the earliest week start that is NOT yet safe to pay
// out: either the supply or the user's curve hasn't been checkpointed
// through it, or the token inflow hasn't been attributed through it.
func (d *Distributor) floorEpoch(us *userState, ts *tokenState) (uint64, error) {
	supplyCursor, err := d.supply.Cursor()
	if err != nil {
		return 0, err
	}
	safe := min(supplyCursor, us.LastCheckpoint)
	floor := min(d.clock.Ceil(safe), d.clock.Floor(ts.LastCheckpoint))
	return floor, nil
}

// Claimable previews the amount the next Claim would pay, without
// mutating any cursor. It walks at most verse.MaxCatchUpIterations weeks.
func (d *Distributor) Claimable(user verse.Address, tok token.Token) (*big.Int, error) {
	amount, _, err := d.claimable(user, tok.Address())
	return amount, err
}

func (d *Distributor) claimable(user, tok verse.Address) (*big.Int, uint64, error) {
	us, err := d.getUserState(user)
	if err != nil {
		return nil, 0, err
	}
	ts, err := d.getTokenState(tok)
	if err != nil {
		return nil, 0, err
	}
	cursor, err := d.ClaimCursor(user, tok)
	if err != nil {
		return nil, 0, err
	}
	if us.FirstEligible == 0 || ts.Start == 0 {
		return &big.Int{}, cursor, nil
	}
	if cursor == 0 {
		cursor = max(d.clock.Floor(us.FirstEligible), d.clock.Floor(ts.Start))
	}
	floor, err := d.floorEpoch(us, ts)
	if err != nil {
		return nil, 0, err
	}

	amount := new(big.Int)
	iterations := 0
	for range verse.MaxCatchUpIterations {
		if cursor >= floor {
			break
		}
		iterations++
		bal, err := d.escrow.BalanceAt(user, cursor)
		if err != nil {
			return nil, 0, err
		}
		if bal.Sign() > 0 {
			supply, err := d.supply.SupplyAt(cursor)
			if err != nil {
				return nil, 0, err
			}
			if supply.Sign() == 0 {
				return nil, 0, errors.WithMessagef(ErrZeroSupply, "week %d", cursor)
			}
			bucket, err := d.TokensPerWeek(tok, cursor)
			if err != nil {
				return nil, 0, err
			}
			share := bucket.Mul(bucket, bal)
			share.Div(share, supply)
			amount.Add(amount, share)
		}
		cursor += d.clock.Duration()
	}
	metricClaimIterations().Observe(int64(iterations))
	return amount, cursor, nil
}

// Claim pays out the user's accumulated share of tok and advances the
// claim cursor, including over zero-balance weeks. A zero amount is a
// benign no-op, not an error.
func (d *Distributor) Claim(user verse.Address, tok token.Token) (*big.Int, error) {
	if err := d.lock.Enter(); err != nil {
		return nil, err
	}
	defer d.lock.Leave()

	rev := d.state.NewCheckpoint()
	amount, err := d.claim(user, tok)
	if err != nil {
		d.state.RevertTo(rev)
		return nil, err
	}
	return amount, nil
}

func (d *Distributor) claim(user verse.Address, tok token.Token) (*big.Int, error) {
	now := d.now()
	if err := d.supply.CheckpointThroughWeek(now); err != nil {
		return nil, err
	}
	if err := d.checkpointUser(user, now); err != nil {
		return nil, err
	}
	if err := d.checkpointToken(tok, now, false); err != nil {
		return nil, err
	}

	amount, cursor, err := d.claimable(user, tok.Address())
	if err != nil {
		return nil, err
	}
	old, err := d.ClaimCursor(user, tok.Address())
	if err != nil {
		return nil, err
	}
	// the cursor only ever moves forward; a week is never paid twice
	if cursor > old {
		if err := d.state.SetStructuredStorage(d.addr, claimCursorKey(user, tok.Address()), cursor); err != nil {
			return nil, err
		}
	}
	if amount.Sign() == 0 {
		return amount, nil
	}

	ts, err := d.getTokenState(tok.Address())
	if err != nil {
		return nil, err
	}
	ts.CachedBalance.Sub(ts.CachedBalance, amount)
	if ts.CachedBalance.Sign() < 0 {
		return nil, errors.New("claim exceeds cached balance")
	}
	if err := d.setTokenState(tok.Address(), ts); err != nil {
		return nil, err
	}
	if err := tok.Transfer(d.addr, user, amount); err != nil {
		return nil, err
	}

	metricClaims().AddWithLabel(1, map[string]string{"token": tok.Address().String()})
	logger.Info("claimed", "user", user, "token", tok.Address(), "amount", amount, "cursor", cursor)
	return amount, nil
}
