// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package governance

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// VotesToken is a token whose balances carry voting power once delegated.
// It keeps a checkpoint history per delegate and of the total supply, so
// power can be queried at any past block.
type VotesToken struct {
	address     common.Address
	clock       Clock
	balances    map[common.Address]*uint256.Int
	delegates   map[common.Address]common.Address
	checkpoints map[common.Address]*Checkpoints
	totalSupply Checkpoints
	journal     Journal
	log         log.Logger
}

// NewVotesToken creates an empty token at address.
func NewVotesToken(address common.Address, clock Clock) *VotesToken {
	return &VotesToken{
		address:     address,
		clock:       clock,
		balances:    make(map[common.Address]*uint256.Int),
		delegates:   make(map[common.Address]common.Address),
		checkpoints: make(map[common.Address]*Checkpoints),
		journal:     nopJournal{},
		log:         log.New("token", address),
	}
}

// Address returns the token address.
func (t *VotesToken) Address() common.Address { return t.address }

// Mint creates amount tokens for to.
func (t *VotesToken) Mint(to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	supply, overflow := new(uint256.Int).AddOverflow(t.totalSupply.Latest(), amount)
	if overflow {
		return ErrValueOverflow
	}
	now := t.clock.Clock()
	if err := t.totalSupply.push(t.journal, now, supply); err != nil {
		return err
	}
	setEntry(t.journal, t.balances, to, new(uint256.Int).Add(t.BalanceOf(to), amount))
	return t.moveVotingPower(common.Address{}, t.delegates[to], amount)
}

// Transfer moves amount tokens, and the voting power attached to them,
// from one holder to another.
func (t *VotesToken) Transfer(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	balance := t.BalanceOf(from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientBalance, balance.Dec(), amount.Dec())
	}
	setEntry(t.journal, t.balances, from, new(uint256.Int).Sub(balance, amount))
	setEntry(t.journal, t.balances, to, new(uint256.Int).Add(t.BalanceOf(to), amount))
	return t.moveVotingPower(t.delegates[from], t.delegates[to], amount)
}

// Delegate assigns the voting power of account to delegatee. Delegating to
// oneself is required before one's own balance counts as votes.
func (t *VotesToken) Delegate(account, delegatee common.Address) error {
	old := t.delegates[account]
	setEntry(t.journal, t.delegates, account, delegatee)
	t.log.Debug("Delegate changed", "account", account, "from", old, "to", delegatee)
	return t.moveVotingPower(old, delegatee, t.BalanceOf(account))
}

// Delegates returns the current delegate of account.
func (t *VotesToken) Delegates(account common.Address) common.Address {
	return t.delegates[account]
}

// BalanceOf returns the token balance of account.
func (t *VotesToken) BalanceOf(account common.Address) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

// TotalSupply returns the current total supply.
func (t *VotesToken) TotalSupply() *uint256.Int {
	return t.totalSupply.Latest()
}

// Votes returns the current voting power of account.
func (t *VotesToken) Votes(account common.Address) *uint256.Int {
	if cps, ok := t.checkpoints[account]; ok {
		return cps.Latest()
	}
	return new(uint256.Int)
}

// VotingPowerAt returns the voting power of account at timepoint.
func (t *VotesToken) VotingPowerAt(account common.Address, timepoint uint64) (*uint256.Int, error) {
	if now := t.clock.Clock(); timepoint > now {
		return nil, fmt.Errorf("%w: %d > %d", ErrFutureLookup, timepoint, now)
	}
	cps, ok := t.checkpoints[account]
	if !ok {
		return new(uint256.Int), nil
	}
	return cps.UpperLookup(timepoint), nil
}

// TotalSupplyAt returns the total supply at timepoint.
func (t *VotesToken) TotalSupplyAt(timepoint uint64) (*uint256.Int, error) {
	if now := t.clock.Clock(); timepoint > now {
		return nil, fmt.Errorf("%w: %d > %d", ErrFutureLookup, timepoint, now)
	}
	return t.totalSupply.UpperLookup(timepoint), nil
}

// NumCheckpoints returns the length of the checkpoint history of account.
func (t *VotesToken) NumCheckpoints(account common.Address) int {
	if cps, ok := t.checkpoints[account]; ok {
		return cps.Len()
	}
	return 0
}

// CheckpointAt returns the i-th checkpoint of account.
func (t *VotesToken) CheckpointAt(account common.Address, i int) (Checkpoint, bool) {
	cps, ok := t.checkpoints[account]
	if !ok || i < 0 || i >= cps.Len() {
		return Checkpoint{}, false
	}
	return cps.At(i), true
}

func (t *VotesToken) moveVotingPower(from, to common.Address, amount *uint256.Int) error {
	if from == to || amount.IsZero() {
		return nil
	}
	now := t.clock.Clock()
	if from != (common.Address{}) {
		cps := t.history(from)
		if err := cps.push(t.journal, now, new(uint256.Int).Sub(cps.Latest(), amount)); err != nil {
			return err
		}
	}
	if to != (common.Address{}) {
		cps := t.history(to)
		if err := cps.push(t.journal, now, new(uint256.Int).Add(cps.Latest(), amount)); err != nil {
			return err
		}
	}
	return nil
}

func (t *VotesToken) history(account common.Address) *Checkpoints {
	cps, ok := t.checkpoints[account]
	if !ok {
		cps = new(Checkpoints)
		setEntry(t.journal, t.checkpoints, account, cps)
	}
	return cps
}
