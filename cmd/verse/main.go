// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/beevik/ntp"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/versefi/verse/cmd/verse/httpserver"
	"github.com/versefi/verse/health"
	"github.com/versefi/verse/log"
	"github.com/versefi/verse/metrics"
	"github.com/versefi/verse/state"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Verse",
		Usage:     "Epoch reward accounting daemon",
		Copyright: "2026 The verse developers",
		Flags: []cli.Flag{
			dataDirFlag,
			configFlag,
			cacheFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableAdminFlag,
			adminAddrFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "catchup",
				Usage: "advance the supply cache and token buckets to the present, then exit",
				Flags: []cli.Flag{
					dataDirFlag,
					configFlag,
					cacheFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: catchupAction,
			},
			{
				Name:  "status",
				Usage: "print accounting cursors and recent week buckets",
				Flags: []cli.Flag{
					dataDirFlag,
					configFlag,
					cacheFlag,
					verbosityFlag,
					jsonLogsFlag,
				},
				Action: statusAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	dataDir := makeDataDir(ctx)
	mainDB := openMainDB(ctx, dataDir)
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	st := state.New(mainDB)
	svcs := buildServices(cfg, st, nowFunc())

	healthStatus := health.New()

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		logger.Info("metrics server started", "url", url)
		defer closeFunc()
	}

	if ctx.Bool(enableAdminFlag.Name) {
		url, closeFunc, err := httpserver.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, healthStatus)
		if err != nil {
			return err
		}
		logger.Info("admin server started", "url", url)
		defer closeFunc()
	}

	printStartupMessage(cfg, dataDir)

	exitCtx := handleExitSignal()
	goes, runCtx := errgroup.WithContext(exitCtx)
	goes.Go(func() error {
		return houseKeeping(runCtx, svcs, healthStatus)
	})
	return goes.Wait()
}

// houseKeeping periodically advances the accounting cursors and watches
// for wall clock drift.
func houseKeeping(ctx context.Context, svcs *services, healthStatus *health.Health) error {
	logger.Debug("enter house keeping")

	// first round brings a cold ledger up to date
	if err := catchUp(ctx, svcs, nil); err != nil {
		return err
	}
	healthStatus.BootstrapStatus(true)
	if cur, err := svcs.supply.Cursor(); err == nil {
		healthStatus.MarkCheckpoint(cur)
	}

	checkpointTicker := time.NewTicker(svcs.cfg.Housekeeping.Interval)
	clockSyncTicker := time.NewTicker(10 * time.Minute)

	defer func() {
		logger.Debug("leave house keeping")
		checkpointTicker.Stop()
		clockSyncTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-checkpointTicker.C:
			if err := svcs.checkpoint(); err != nil {
				logger.Error("housekeeping checkpoint failed", "err", err)
				continue
			}
			cur, err := svcs.supply.Cursor()
			if err != nil {
				return err
			}
			healthStatus.MarkCheckpoint(cur)
		case <-clockSyncTicker.C:
			go checkClockOffset(svcs.cfg.EpochDuration)
		}
	}
}

func checkClockOffset(epochDuration uint64) {
	resp, err := ntp.Query("pool.ntp.org")
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}
	// epoch attribution tolerates drift far below one epoch; warn long
	// before it matters
	if resp.ClockOffset > time.Duration(epochDuration)*time.Second/1000 {
		logger.Warn("clock offset detected", "offset", common.PrettyDuration(resp.ClockOffset))
	}
}

func printStartupMessage(cfg *Config, dataDir string) {
	fmt.Printf(`Starting %v
    Version     %v
    Data dir    [%v]
    Launch time [%v]
    Epoch       [%vs]
    Vote period [%vs]
    Tokens      [%v]
`,
		"Verse",
		fullVersion(),
		dataDir,
		time.Unix(int64(cfg.LaunchTime), 0).UTC().Format(time.RFC3339),
		cfg.EpochDuration,
		cfg.VotePeriodDuration,
		len(cfg.Tokens),
	)
}
