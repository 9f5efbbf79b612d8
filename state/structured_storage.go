// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/versefi/verse/verse"
)

// StorageEncoder storage data types encoding themselves should implement this.
// Returning empty bytes means the value occupies no storage.
type StorageEncoder interface {
	Encode() ([]byte, error)
}

// StorageDecoder storage data types decoding themselves should implement this.
// It must accept empty bytes as the zero value.
type StorageDecoder interface {
	Decode([]byte) error
}

// SetStructuredStorage encodes val and stores it under (addr, key).
// Zero values encode to empty bytes and free the slot.
func (s *State) SetStructuredStorage(addr verse.Address, key verse.Bytes32, val any) error {
	return s.EncodeStorage(addr, key, func() ([]byte, error) {
		switch v := val.(type) {
		case StorageEncoder:
			return v.Encode()
		case *big.Int:
			if v.Sign() == 0 {
				return nil, nil
			}
			return rlp.EncodeToBytes(v)
		case uint64:
			if v == 0 {
				return nil, nil
			}
			return rlp.EncodeToBytes(v)
		case bool:
			if !v {
				return nil, nil
			}
			return rlp.EncodeToBytes(v)
		case verse.Address:
			if v.IsZero() {
				return nil, nil
			}
			return rlp.EncodeToBytes(bytes.TrimLeft(v[:], "\x00"))
		case verse.Bytes32:
			if v.IsZero() {
				return nil, nil
			}
			return rlp.EncodeToBytes(bytes.TrimLeft(v[:], "\x00"))
		default:
			return nil, errors.Errorf("state: unsupported storage type %T", val)
		}
	})
}

// GetStructuredStorage loads the value stored under (addr, key) into val.
// Missing slots decode to zero values.
func (s *State) GetStructuredStorage(addr verse.Address, key verse.Bytes32, val any) error {
	return s.DecodeStorage(addr, key, func(raw []byte) error {
		switch v := val.(type) {
		case StorageDecoder:
			return v.Decode(raw)
		case *big.Int:
			if len(raw) == 0 {
				v.SetInt64(0)
				return nil
			}
			return rlp.DecodeBytes(raw, v)
		case *uint64:
			if len(raw) == 0 {
				*v = 0
				return nil
			}
			return rlp.DecodeBytes(raw, v)
		case *bool:
			if len(raw) == 0 {
				*v = false
				return nil
			}
			return rlp.DecodeBytes(raw, v)
		case *verse.Address:
			if len(raw) == 0 {
				*v = verse.Address{}
				return nil
			}
			_, content, _, err := rlp.Split(raw)
			if err != nil {
				return err
			}
			*v = verse.BytesToAddress(content)
			return nil
		case *verse.Bytes32:
			if len(raw) == 0 {
				*v = verse.Bytes32{}
				return nil
			}
			_, content, _, err := rlp.Split(raw)
			if err != nil {
				return err
			}
			*v = verse.BytesToBytes32(content)
			return nil
		default:
			return errors.Errorf("state: unsupported storage type %T", val)
		}
	})
}
