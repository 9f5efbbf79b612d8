// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"time"

	"github.com/versefi/verse/distro"
	"github.com/versefi/verse/emission"
	"github.com/versefi/verse/epoch"
	"github.com/versefi/verse/escrow"
	"github.com/versefi/verse/gauge"
	"github.com/versefi/verse/merkledrop"
	"github.com/versefi/verse/registry"
	"github.com/versefi/verse/state"
	"github.com/versefi/verse/token"
	"github.com/versefi/verse/verse"
)

// services bundles the accounting engine built from one config and one
// ledger state.
type services struct {
	cfg       *Config
	state     *state.State
	clock     epoch.Clock
	voteClock epoch.Clock

	escrow      *escrow.History
	supply      *escrow.SupplyCache
	distributor *distro.Distributor
	registry    *registry.Book
	voter       *gauge.Voter
	drops       *merkledrop.Registry

	tokens []token.Token
}

func buildServices(cfg *Config, st *state.State, now func() uint64) *services {
	clock := epoch.NewClock(cfg.EpochDuration)
	voteClock := epoch.NewClock(cfg.VotePeriodDuration)

	esc := escrow.New(verse.MustParseAddress(cfg.Accounts.Escrow), st)
	supply := escrow.NewSupplyCache(
		verse.MustParseAddress(cfg.Accounts.SupplyCache),
		st, clock, esc, cfg.LaunchTime,
	)
	dist := distro.New(
		verse.MustParseAddress(cfg.Accounts.Distributor),
		st, clock, esc, supply, now,
	)
	reg := registry.NewBook(
		verse.MustParseAddress(cfg.Accounts.Registry),
		verse.MustParseAddress(cfg.Owner),
		st,
	)
	voter := gauge.New(
		verse.MustParseAddress(cfg.Accounts.GaugeVoter),
		verse.MustParseAddress(cfg.Voter),
		st, voteClock, reg, emissionPolicy(cfg),
	)

	tokens := make([]token.Token, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens = append(tokens, token.NewBook(verse.MustParseAddress(t), st))
	}

	var drops *merkledrop.Registry
	if len(tokens) > 0 {
		drops = merkledrop.New(
			verse.MustParseAddress(cfg.Accounts.Drops),
			verse.MustParseAddress(cfg.Owner),
			st, tokens[0],
			verse.MustParseAddress(cfg.Drops.LockerSink),
			verse.MustParseAddress(cfg.Drops.PenaltySink),
			cfg.Drops.PenaltyBps,
			now,
		)
	}

	return &services{
		cfg:         cfg,
		state:       st,
		clock:       clock,
		voteClock:   voteClock,
		escrow:      esc,
		supply:      supply,
		distributor: dist,
		registry:    reg,
		voter:       voter,
		drops:       drops,
		tokens:      tokens,
	}
}

func emissionPolicy(cfg *Config) emission.Policy {
	switch cfg.Emission.Mode {
	case "cliff":
		initial, _ := parseBig(cfg.Emission.Initial)
		reduction, _ := parseBig(cfg.Emission.Reduction)
		return emission.NewCliffPolicy(initial, reduction, cfg.Emission.EpochsPerCliff, cfg.Emission.TotalCliffs)
	default:
		amount, _ := parseBig(cfg.Emission.Amount)
		if amount == nil {
			amount = new(big.Int)
		}
		return emission.NewFixedPolicy(amount)
	}
}

// checkpoint runs one housekeeping round: advance the supply cache, then
// pull token inflow into week buckets, then flush the journal.
func (s *services) checkpoint() error {
	if err := s.distributor.CheckpointSupply(); err != nil {
		return err
	}
	for _, tok := range s.tokens {
		if err := s.distributor.CheckpointToken(tok, false); err != nil {
			return err
		}
	}
	return s.state.Stage()
}

func nowFunc() func() uint64 {
	return func() uint64 { return uint64(time.Now().Unix()) }
}
