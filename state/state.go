// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/versefi/verse/kv"
	"github.com/versefi/verse/verse"
)

const storageBucket = kv.Bucket("st")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

type storageKey struct {
	addr verse.Address
	key  verse.Bytes32
}

func (k storageKey) bytes() []byte {
	return append(append(make([]byte, 0, verse.AddressLength+32), k.addr[:]...), k.key[:]...)
}

// State manages structured storage of all services, with checkpoint-revert
// semantics. Each mutating operation pushes a checkpoint on entry and either
// commits or reverts to it, so an aborted operation leaves no partial writes.
type State struct {
	store kv.GetPutter
	sm    *journal
	err   error
}

// New create state object backed by the given store.
func New(store kv.GetPutter) *State {
	st := &State{store: store}
	st.sm = newJournal(func(key storageKey) ([]byte, bool, error) {
		data, err := storageBucket.NewGetter(store).Get(key.bytes())
		if err != nil {
			if store.IsNotFound(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return data, true, nil
	})
	// base level holds writes until staged
	st.sm.Push()
	return st
}

func (s *State) setError(err error) {
	if s.err == nil {
		s.err = &Error{err}
	}
}

// Err returns the first error encountered by state access, if any.
// All getters keep returning zero values after an error occurred.
func (s *State) Err() error {
	return s.err
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts to the checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// GetRawStorage gets raw storage value for the given address and key.
func (s *State) GetRawStorage(addr verse.Address, key verse.Bytes32) (rlp.RawValue, error) {
	if s.err != nil {
		return nil, s.err
	}
	v, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		s.setError(err)
		return nil, s.err
	}
	return v, nil
}

// SetRawStorage sets raw storage value for the given address and key.
// Empty raw value means deletion.
func (s *State) SetRawStorage(addr verse.Address, key verse.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage sets storage value encoded by given enc function.
// Empty encoded value is treated as deletion.
func (s *State) EncodeStorage(addr verse.Address, key verse.Bytes32, enc func() ([]byte, error)) error {
	if s.err != nil {
		return s.err
	}
	raw, err := enc()
	if err != nil {
		s.setError(err)
		return s.err
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage gets and decodes storage value via the given dec function.
func (s *State) DecodeStorage(addr verse.Address, key verse.Bytes32, dec func([]byte) error) error {
	if s.err != nil {
		return s.err
	}
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		s.setError(err)
		return s.err
	}
	return nil
}

// Stage flushes all committed writes to the backing store in one batch.
// The journal is collapsed to a fresh base level afterwards.
func (s *State) Stage() error {
	if s.err != nil {
		return s.err
	}
	batch := storageBucket.NewPutter(s.store).NewBatch()
	var err error
	s.sm.Journal(func(key storageKey, value []byte) bool {
		if len(value) == 0 {
			err = batch.Delete(key.bytes())
		} else {
			err = batch.Put(key.bytes(), value)
		}
		return err == nil
	})
	if err != nil {
		s.setError(err)
		return s.err
	}
	if err := batch.Write(); err != nil {
		s.setError(err)
		return s.err
	}
	s.sm = newJournal(s.sm.src)
	s.sm.Push()
	return nil
}
