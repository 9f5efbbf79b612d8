// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package distro

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/versefi/verse/state"
)

type (
	// tokenState tracks inflow attribution per distributed token.
	// CachedBalance never exceeds the actual token balance held; it only
	// shrinks through claim debits.
	tokenState struct {
		Start          uint64
		LastCheckpoint uint64
		CachedBalance  *big.Int
	}

	// userState is owned exclusively by the checkpoint routine for that
	// account; no cross-account mutation.
	userState struct {
		FirstEligible  uint64
		LastCheckpoint uint64
		LastEpochIndex uint64
	}
)

var (
	_ state.StorageEncoder = (*tokenState)(nil)
	_ state.StorageDecoder = (*tokenState)(nil)

	_ state.StorageEncoder = (*userState)(nil)
	_ state.StorageDecoder = (*userState)(nil)
)

func (t *tokenState) Encode() ([]byte, error) {
	if t.Start == 0 && t.LastCheckpoint == 0 && t.CachedBalance.Sign() == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes(t)
}

func (t *tokenState) Decode(data []byte) error {
	if len(data) == 0 {
		*t = tokenState{CachedBalance: &big.Int{}}
		return nil
	}
	return rlp.DecodeBytes(data, t)
}

func (u *userState) Encode() ([]byte, error) {
	if u.FirstEligible == 0 && u.LastCheckpoint == 0 && u.LastEpochIndex == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes(u)
}

func (u *userState) Decode(data []byte) error {
	if len(data) == 0 {
		*u = userState{}
		return nil
	}
	return rlp.DecodeBytes(data, u)
}
