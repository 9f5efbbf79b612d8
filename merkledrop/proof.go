// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package merkledrop

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/versefi/verse/verse"
)

// Leaf computes the claim leaf hash for (account, epoch, amount).
// The amount is fixed-width big-endian so leaves are unambiguous.
func Leaf(account verse.Address, epochStart uint64, amount *big.Int) verse.Bytes32 {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], epochStart)
	var amt [32]byte
	amount.FillBytes(amt[:])
	return verse.Bytes32(crypto.Keccak256Hash(account.Bytes(), ts[:], amt[:]))
}

// VerifyProof checks a sorted-pair merkle proof of leaf against root.
func VerifyProof(root, leaf verse.Bytes32, proof []verse.Bytes32) bool {
	computed := leaf
	for _, p := range proof {
		if bytes.Compare(computed[:], p[:]) <= 0 {
			computed = verse.Bytes32(crypto.Keccak256Hash(computed[:], p[:]))
		} else {
			computed = verse.Bytes32(crypto.Keccak256Hash(p[:], computed[:]))
		}
	}
	return computed == root
}
