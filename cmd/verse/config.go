// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/versefi/verse/verse"
)

// Config is the daemon's yaml configuration. Account fields are the
// ledger addresses whose storage spaces the services own.
type Config struct {
	// LaunchTime anchors the first accounting epoch, in unix seconds.
	LaunchTime uint64 `yaml:"launchTime"`

	// EpochDuration defaults to one week.
	EpochDuration uint64 `yaml:"epochDuration"`

	// VotePeriodDuration defaults to two weeks.
	VotePeriodDuration uint64 `yaml:"votePeriodDuration"`

	Owner string `yaml:"owner"`
	Voter string `yaml:"voter"`

	Accounts struct {
		Escrow      string `yaml:"escrow"`
		SupplyCache string `yaml:"supplyCache"`
		Distributor string `yaml:"distributor"`
		Registry    string `yaml:"registry"`
		GaugeVoter  string `yaml:"gaugeVoter"`
		Drops       string `yaml:"drops"`
	} `yaml:"accounts"`

	// Tokens lists reward token addresses tracked by the distributor.
	Tokens []string `yaml:"tokens"`

	Drops struct {
		PenaltyBps  uint64 `yaml:"penaltyBps"`
		PenaltySink string `yaml:"penaltySink"`
		LockerSink  string `yaml:"lockerSink"`
	} `yaml:"drops"`

	Emission struct {
		// Mode selects the epoch emission schedule (fixed|cliff).
		Mode           string `yaml:"mode"`
		Amount         string `yaml:"amount"`
		Initial        string `yaml:"initial"`
		Reduction      string `yaml:"reduction"`
		EpochsPerCliff uint64 `yaml:"epochsPerCliff"`
		TotalCliffs    uint64 `yaml:"totalCliffs"`
	} `yaml:"emission"`

	Housekeeping struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"housekeeping"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config [%v]", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config [%v]", path)
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "validate config [%v]", path)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.EpochDuration == 0 {
		c.EpochDuration = verse.WeekDuration
	}
	if c.VotePeriodDuration == 0 {
		c.VotePeriodDuration = verse.VotePeriodDuration
	}
	if c.Housekeeping.Interval == 0 {
		c.Housekeeping.Interval = 10 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.LaunchTime == 0 {
		return errors.New("launchTime required")
	}
	for name, s := range map[string]string{
		"owner":                c.Owner,
		"voter":                c.Voter,
		"accounts.escrow":      c.Accounts.Escrow,
		"accounts.supplyCache": c.Accounts.SupplyCache,
		"accounts.distributor": c.Accounts.Distributor,
		"accounts.registry":    c.Accounts.Registry,
		"accounts.gaugeVoter":  c.Accounts.GaugeVoter,
		"accounts.drops":       c.Accounts.Drops,
	} {
		if _, err := verse.ParseAddress(s); err != nil {
			return errors.Wrapf(err, "%s", name)
		}
	}
	for _, t := range c.Tokens {
		if _, err := verse.ParseAddress(t); err != nil {
			return errors.Wrapf(err, "tokens [%v]", t)
		}
	}
	if len(c.Tokens) > 0 {
		if _, err := verse.ParseAddress(c.Drops.PenaltySink); err != nil {
			return errors.Wrap(err, "drops.penaltySink")
		}
		if _, err := verse.ParseAddress(c.Drops.LockerSink); err != nil {
			return errors.Wrap(err, "drops.lockerSink")
		}
	}
	if c.Drops.PenaltyBps > verse.FullWeight {
		return errors.Errorf("drops.penaltyBps above %d", verse.FullWeight)
	}
	switch c.Emission.Mode {
	case "", "fixed":
		if _, ok := parseBig(c.Emission.Amount); !ok {
			return errors.New("emission.amount invalid")
		}
	case "cliff":
		if _, ok := parseBig(c.Emission.Initial); !ok {
			return errors.New("emission.initial invalid")
		}
		if _, ok := parseBig(c.Emission.Reduction); !ok {
			return errors.New("emission.reduction invalid")
		}
		if c.Emission.EpochsPerCliff == 0 || c.Emission.TotalCliffs == 0 {
			return errors.New("emission cliff schedule incomplete")
		}
	default:
		return errors.Errorf("unknown emission mode [%v]", c.Emission.Mode)
	}
	return nil
}

func parseBig(s string) (*big.Int, bool) {
	if s == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(s, 10)
}
