// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/versefi/verse/state"
)

const statusRecentWeeks = 4

func statusAction(ctx *cli.Context) error {
	initLogger(ctx)

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	dataDir := makeDataDir(ctx)
	mainDB := openMainDB(ctx, dataDir)
	defer mainDB.Close()

	st := state.New(mainDB)
	svcs := buildServices(cfg, st, nowFunc())

	cursor, err := svcs.supply.Cursor()
	if err != nil {
		return err
	}
	fmt.Printf("supply cursor   %v (%v)\n", cursor, fmtTime(cursor))

	for _, tok := range svcs.tokens {
		tokCursor, err := svcs.distributor.TokenCursor(tok.Address())
		if err != nil {
			return err
		}
		fmt.Printf("token %v\n", tok.Address())
		fmt.Printf("    cursor  %v (%v)\n", tokCursor, fmtTime(tokCursor))

		week := svcs.clock.Floor(tokCursor)
		for i := 0; i < statusRecentWeeks && week >= svcs.clock.Duration()*uint64(i+1); i++ {
			ws := week - svcs.clock.Duration()*uint64(i)
			bucket, err := svcs.distributor.TokensPerWeek(tok.Address(), ws)
			if err != nil {
				return err
			}
			supply, err := svcs.supply.SupplyAt(ws)
			if err != nil {
				return err
			}
			fmt.Printf("    week %v  bucket %v  supply %v\n", fmtTime(ws), bucket, supply)
		}
	}
	return nil
}

func fmtTime(t uint64) string {
	if t == 0 {
		return "never"
	}
	return time.Unix(int64(t), 0).UTC().Format(time.RFC3339)
}
