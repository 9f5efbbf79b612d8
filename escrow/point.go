// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package escrow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/versefi/verse/state"
)

// Point is one sample of an account's decaying voting-power curve.
// The balance at time t >= Timestamp is max(Bias - Slope*(t-Timestamp), 0).
// A zero slope denotes a permanent lock that never decays.
type Point struct {
	Bias      *big.Int
	Slope     *big.Int
	Timestamp uint64
	BlockRef  uint32
}

// Evaluate returns the curve value at t, clamped to zero.
// For t before Timestamp the bias is returned unchanged; callers are
// expected to select the proper point first.
func (p *Point) Evaluate(t uint64) *big.Int {
	v := new(big.Int).Set(p.Bias)
	if p.Slope.Sign() != 0 && t > p.Timestamp {
		decay := new(big.Int).SetUint64(t - p.Timestamp)
		decay.Mul(decay, p.Slope)
		v.Sub(v, decay)
	}
	if v.Sign() < 0 {
		// canonical zero, so callers can deep-compare against big.NewInt(0)
		return new(big.Int)
	}
	return v
}

var (
	_ state.StorageEncoder = (*Point)(nil)
	_ state.StorageDecoder = (*Point)(nil)
)

// Encode implements state.StorageEncoder.
func (p *Point) Encode() ([]byte, error) {
	if p.Bias.Sign() == 0 && p.Slope.Sign() == 0 && p.Timestamp == 0 && p.BlockRef == 0 {
		return nil, nil
	}
	return rlp.EncodeToBytes(p)
}

// Decode implements state.StorageDecoder.
func (p *Point) Decode(data []byte) error {
	if len(data) == 0 {
		*p = Point{Bias: &big.Int{}, Slope: &big.Int{}}
		return nil
	}
	return rlp.DecodeBytes(data, p)
}
