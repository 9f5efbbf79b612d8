// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package gauge allocates each voting epoch's reward pool across gauges
// by vote weight. A vote is cast once per epoch and must sum to
// verse.FullWeight; no-deposit gauges carry weight in the vote but are
// excluded from the payout denominator, concentrating the pool on the
// remaining gauges.
package gauge

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/versefi/verse/emission"
	"github.com/versefi/verse/epoch"
	"github.com/versefi/verse/guard"
	"github.com/versefi/verse/log"
	"github.com/versefi/verse/metrics"
	"github.com/versefi/verse/registry"
	"github.com/versefi/verse/state"
	"github.com/versefi/verse/token"
	"github.com/versefi/verse/verse"
)

var (
	logger = log.WithContext("pkg", "gauge")

	metricVotes     = metrics.LazyLoadCounter("gauge_votes_count")
	metricProcessed = metrics.LazyLoadCounterVec("gauge_rewards_processed_count", []string{"gauge"})

	// ErrNotAuthorized is returned when the caller is not the
	// designated voter.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrAlreadyVoted is returned on a second vote for the same epoch.
	ErrAlreadyVoted = errors.New("epoch already voted")

	// ErrWeightSum is returned when vote weights don't sum to
	// verse.FullWeight. The whole vote is rejected; no partial weights
	// are recorded.
	ErrWeightSum = errors.New("weights must sum to full weight")

	// ErrAlreadyProcessed guards the write-once payout per (epoch, gauge).
	ErrAlreadyProcessed = errors.New("gauge already processed for epoch")

	// ErrNothingToProcess is returned when a gauge's computed amount is
	// zero. Unlike pull-based claims this is fatal: processing a
	// zero-amount gauge is a double-call or a misconfigured vote.
	ErrNothingToProcess = errors.New("nothing to process")
)

// Voter records per-epoch gauge votes and forwards each gauge's share of
// the epoch's emission to its reward sink.
type Voter struct {
	addr     verse.Address
	voter    verse.Address
	state    *state.State
	clock    epoch.Clock
	registry registry.Registry
	policy   emission.Policy

	lock guard.Guard
}

// New creates a voter owning the storage space of addr. Votes and
// no-deposit configuration are gated on the voter account.
func New(
	addr, voter verse.Address,
	st *state.State,
	clock epoch.Clock,
	reg registry.Registry,
	policy emission.Policy,
) *Voter {
	return &Voter{
		addr:     addr,
		voter:    voter,
		state:    st,
		clock:    clock,
		registry: reg,
		policy:   policy,
	}
}

func epochKey(prefix byte, epochStart uint64) verse.Bytes32 {
	var b [9]byte
	b[0] = prefix
	binary.BigEndian.PutUint64(b[1:], epochStart)
	return verse.BytesToBytes32(b[:])
}

func gaugeEpochKey(prefix string, epochStart uint64, g verse.Address) verse.Bytes32 {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], epochStart)
	return verse.Bytes32(crypto.Keccak256Hash([]byte(prefix), ts[:], g.Bytes()))
}

func noDepositKey(g verse.Address) verse.Bytes32 {
	return verse.BytesToBytes32(append([]byte("nd"), g.Bytes()...))
}

// SetNoDepositGauge flags a gauge whose vote weight is recorded but
// excluded from the payout denominator. Voter only.
func (v *Voter) SetNoDepositGauge(caller, g verse.Address, noDeposit bool) error {
	if caller != v.voter {
		return ErrNotAuthorized
	}
	return v.state.SetStructuredStorage(v.addr, noDepositKey(g), noDeposit)
}

func (v *Voter) isNoDeposit(g verse.Address) (bool, error) {
	var nd bool
	if err := v.state.GetStructuredStorage(v.addr, noDepositKey(g), &nd); err != nil {
		return false, err
	}
	return nd, nil
}

// epochNoDeposit reads the classification snapshotted when the epoch was
// voted. Flipping the live flag afterwards must not change that epoch's
// split.
func (v *Voter) epochNoDeposit(epochStart uint64, g verse.Address) (bool, error) {
	var nd bool
	if err := v.state.GetStructuredStorage(v.addr, gaugeEpochKey("n", epochStart, g), &nd); err != nil {
		return false, err
	}
	return nd, nil
}

// Voted reports whether the epoch containing t has received its vote.
func (v *Voter) Voted(t uint64) (bool, error) {
	var voted bool
	if err := v.state.GetStructuredStorage(v.addr, epochKey('v', v.clock.Floor(t)), &voted); err != nil {
		return false, err
	}
	return voted, nil
}

// Weight returns the recorded weight for (epoch containing t, gauge).
func (v *Voter) Weight(t uint64, g verse.Address) (uint64, error) {
	var w uint64
	if err := v.state.GetStructuredStorage(v.addr, gaugeEpochKey("w", v.clock.Floor(t), g), &w); err != nil {
		return 0, err
	}
	return w, nil
}

func (v *Voter) distributionWeight(epochStart uint64) (uint64, error) {
	var w uint64
	if err := v.state.GetStructuredStorage(v.addr, epochKey('d', epochStart), &w); err != nil {
		return 0, err
	}
	return w, nil
}

// Vote records the weight vector for the epoch containing t.
// Callable once per epoch; weights must sum to verse.FullWeight or the
// whole vote is rejected.
func (v *Voter) Vote(caller verse.Address, t uint64, gauges []verse.Address, weights []uint64) error {
	if err := v.lock.Enter(); err != nil {
		return err
	}
	defer v.lock.Leave()

	rev := v.state.NewCheckpoint()
	if err := v.vote(caller, t, gauges, weights); err != nil {
		v.state.RevertTo(rev)
		return err
	}
	return nil
}

func (v *Voter) vote(caller verse.Address, t uint64, gauges []verse.Address, weights []uint64) error {
	if caller != v.voter {
		return ErrNotAuthorized
	}
	if len(gauges) != len(weights) {
		return errors.New("gauges/weights length mismatch")
	}
	epochStart := v.clock.Floor(t)

	voted, err := v.Voted(epochStart)
	if err != nil {
		return err
	}
	if voted {
		return errors.WithMessagef(ErrAlreadyVoted, "epoch %d", epochStart)
	}

	var total, distTotal uint64
	seen := make(map[verse.Address]bool, len(gauges))
	for i, g := range gauges {
		if seen[g] {
			return errors.Errorf("duplicate gauge %v", g)
		}
		seen[g] = true
		total += weights[i]
	}
	if total != verse.FullWeight {
		return errors.WithMessagef(ErrWeightSum, "got %d", total)
	}

	for i, g := range gauges {
		nd, err := v.isNoDeposit(g)
		if err != nil {
			return err
		}
		if !nd {
			distTotal += weights[i]
		}
		// snapshot the classification; the denominator is fixed at vote
		// time and payouts must read the same membership
		if err := v.state.SetStructuredStorage(v.addr, gaugeEpochKey("n", epochStart, g), nd); err != nil {
			return err
		}
		if err := v.state.SetStructuredStorage(v.addr, gaugeEpochKey("w", epochStart, g), weights[i]); err != nil {
			return err
		}
	}
	if err := v.state.SetStructuredStorage(v.addr, epochKey('d', epochStart), distTotal); err != nil {
		return err
	}
	if err := v.state.SetStructuredStorage(v.addr, epochKey('v', epochStart), true); err != nil {
		return err
	}
	metricVotes().Add(1)
	logger.Info("vote recorded", "epoch", epochStart, "gauges", len(gauges), "distWeight", distTotal)
	return nil
}

// AmountToSend computes a gauge's share of the epoch's emission:
// pool * weight / distributionWeight. No-deposit gauges and epochs
// without a vote yield zero.
func (v *Voter) AmountToSend(t uint64, g verse.Address) (*big.Int, error) {
	epochStart := v.clock.Floor(t)
	nd, err := v.epochNoDeposit(epochStart, g)
	if err != nil {
		return nil, err
	}
	if nd {
		return &big.Int{}, nil
	}
	w, err := v.Weight(epochStart, g)
	if err != nil {
		return nil, err
	}
	distTotal, err := v.distributionWeight(epochStart)
	if err != nil {
		return nil, err
	}
	if w == 0 || distTotal == 0 {
		return &big.Int{}, nil
	}
	pool := v.policy.AmountForEpoch(v.clock.Index(epochStart))
	amount := new(big.Int).SetUint64(w)
	amount.Mul(amount, pool)
	amount.Div(amount, new(big.Int).SetUint64(distTotal))
	return amount, nil
}

func (v *Voter) processed(epochStart uint64, g verse.Address) (bool, error) {
	var done bool
	if err := v.state.GetStructuredStorage(v.addr, gaugeEpochKey("p", epochStart, g), &done); err != nil {
		return false, err
	}
	return done, nil
}

// ProcessRewards forwards each listed gauge's share of the epoch's pool
// to its reward sink. The batch is atomic: one failing gauge aborts and
// rolls back the whole call, including siblings already marked.
func (v *Voter) ProcessRewards(tok token.Token, t uint64, gauges ...verse.Address) error {
	if err := v.lock.Enter(); err != nil {
		return err
	}
	defer v.lock.Leave()

	rev := v.state.NewCheckpoint()
	if err := v.processRewards(tok, t, gauges); err != nil {
		v.state.RevertTo(rev)
		return err
	}
	return nil
}

func (v *Voter) processRewards(tok token.Token, t uint64, gauges []verse.Address) error {
	epochStart := v.clock.Floor(t)
	for _, g := range gauges {
		amount, err := v.AmountToSend(epochStart, g)
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return errors.WithMessagef(ErrNothingToProcess, "gauge %v epoch %d", g, epochStart)
		}
		done, err := v.processed(epochStart, g)
		if err != nil {
			return err
		}
		if done {
			return errors.WithMessagef(ErrAlreadyProcessed, "gauge %v epoch %d", g, epochStart)
		}
		if err := v.state.SetStructuredStorage(v.addr, gaugeEpochKey("p", epochStart, g), true); err != nil {
			return err
		}
		sink, err := registry.SinkOf(v.registry, g)
		if err != nil {
			return err
		}
		if err := tok.Transfer(v.addr, sink, amount); err != nil {
			return err
		}
		metricProcessed().AddWithLabel(1, map[string]string{"gauge": g.String()})
		logger.Info("rewards processed", "epoch", epochStart, "gauge", g, "amount", amount, "sink", sink)
	}
	return nil
}
