// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/versefi/verse/state"
)

func catchupAction(ctx *cli.Context) error {
	initLogger(ctx)

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	dataDir := makeDataDir(ctx)
	mainDB := openMainDB(ctx, dataDir)
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	st := state.New(mainDB)
	svcs := buildServices(cfg, st, nowFunc())

	cursor, err := svcs.supply.Cursor()
	if err != nil {
		return err
	}
	target := svcs.clock.Floor(nowFunc()())
	if cursor > target {
		fmt.Println(">> Already caught up <<")
		return nil
	}

	fmt.Println(">> Catching up week boundaries <<")
	bar := pb.New64(int64(target/svcs.clock.Duration())).
		Set64(int64(cursor / svcs.clock.Duration())).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	if err := catchUp(handleExitSignal(), svcs, bar); err != nil {
		return err
	}
	bar.Finish()
	return nil
}

// catchUp repeats bounded housekeeping rounds until the supply cursor
// passes the current week. The bar is optional.
func catchUp(ctx context.Context, svcs *services, bar *pb.ProgressBar) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		before, err := svcs.supply.Cursor()
		if err != nil {
			return err
		}
		if before > svcs.clock.Floor(nowFunc()()) {
			return nil
		}
		if err := svcs.checkpoint(); err != nil {
			return err
		}
		after, err := svcs.supply.Cursor()
		if err != nil {
			return err
		}
		if after == before {
			return errors.New("catch up stalled")
		}
		if bar != nil {
			bar.Set64(int64(after / svcs.clock.Duration()))
		}
	}
}
