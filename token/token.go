// Copyright (c) 2026 The verse developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token defines the narrow transfer surface the accounting core
// needs from a token, plus Book, a ledger-backed implementation used for
// wiring and tests. Transfer failures are fatal to the enclosing
// operation; the caller's state journal rolls everything back.
package token

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/versefi/verse/state"
	"github.com/versefi/verse/verse"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the
	// holder's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a delegated transfer
	// exceeds the spender's approved allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Token is the transfer collaborator interface.
type Token interface {
	// Address identifies the token; per-token accounting state is
	// keyed by it.
	Address() verse.Address

	BalanceOf(holder verse.Address) (*big.Int, error)

	// Transfer moves amount from one holder to another.
	Transfer(from, to verse.Address, amount *big.Int) error
}

// Book is a token implemented directly on ledger state.
type Book struct {
	addr  verse.Address
	state *state.State
}

var _ Token = (*Book)(nil)

// NewBook creates a token book owning the storage space of addr.
func NewBook(addr verse.Address, st *state.State) *Book {
	return &Book{addr, st}
}

func balanceKey(holder verse.Address) verse.Bytes32 {
	return verse.BytesToBytes32(append([]byte("b"), holder.Bytes()...))
}

func allowanceKey(owner, spender verse.Address) verse.Bytes32 {
	k := append([]byte("a"), owner.Bytes()...)
	return verse.BytesToBytes32(append(k, spender.Bytes()...))
}

// Address returns the token's address.
func (b *Book) Address() verse.Address {
	return b.addr
}

// BalanceOf returns the balance of holder.
func (b *Book) BalanceOf(holder verse.Address) (*big.Int, error) {
	bal := new(big.Int)
	if err := b.state.GetStructuredStorage(b.addr, balanceKey(holder), bal); err != nil {
		return nil, err
	}
	return bal, nil
}

// Mint credits amount to holder.
func (b *Book) Mint(holder verse.Address, amount *big.Int) error {
	bal, err := b.BalanceOf(holder)
	if err != nil {
		return err
	}
	return b.state.SetStructuredStorage(b.addr, balanceKey(holder), bal.Add(bal, amount))
}

// Transfer moves amount from one holder to another.
func (b *Book) Transfer(from, to verse.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return errors.New("negative amount")
	}
	fromBal, err := b.BalanceOf(from)
	if err != nil {
		return err
	}
	if from == to {
		if fromBal.Cmp(amount) < 0 {
			return errors.WithMessagef(ErrInsufficientBalance, "holder %v", from)
		}
		return nil
	}
	if fromBal.Cmp(amount) < 0 {
		return errors.WithMessagef(ErrInsufficientBalance, "holder %v", from)
	}
	toBal, err := b.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := b.state.SetStructuredStorage(b.addr, balanceKey(from), fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return b.state.SetStructuredStorage(b.addr, balanceKey(to), toBal.Add(toBal, amount))
}

// Approve sets spender's allowance over owner's balance.
func (b *Book) Approve(owner, spender verse.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("negative amount")
	}
	return b.state.SetStructuredStorage(b.addr, allowanceKey(owner, spender), amount)
}

// Allowance returns spender's remaining allowance over owner's balance.
func (b *Book) Allowance(owner, spender verse.Address) (*big.Int, error) {
	allowance := new(big.Int)
	if err := b.state.GetStructuredStorage(b.addr, allowanceKey(owner, spender), allowance); err != nil {
		return nil, err
	}
	return allowance, nil
}

// TransferFrom moves amount from owner to `to`, debiting spender's
// allowance.
func (b *Book) TransferFrom(owner, spender, to verse.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	allowance, err := b.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return errors.WithMessagef(ErrInsufficientAllowance, "spender %v", spender)
	}
	if err := b.Transfer(owner, to, amount); err != nil {
		return err
	}
	return b.state.SetStructuredStorage(b.addr, allowanceKey(owner, spender), allowance.Sub(allowance, amount))
}
