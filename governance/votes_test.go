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
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// manualClock is a Clock advanced by hand.
type manualClock struct {
	block uint64
	time  uint64
}

func (c *manualClock) Clock() uint64     { return c.block }
func (c *manualClock) Timestamp() uint64 { return c.time }

func TestCheckpoints_PushAndLookup(t *testing.T) {
	var cps Checkpoints
	for _, cp := range []struct{ key, value uint64 }{{2, 10}, {5, 20}, {5, 25}, {9, 0}} {
		if err := cps.Push(cp.key, uint256.NewInt(cp.value)); err != nil {
			t.Fatalf("push %d: %v", cp.key, err)
		}
	}
	if cps.Len() != 3 {
		t.Fatalf("len = %d, want 3 (same-key pushes overwrite)", cps.Len())
	}
	if err := cps.Push(4, uint256.NewInt(1)); !errors.Is(err, ErrCheckpointOutOfOrder) {
		t.Fatalf("out of order push error = %v, want %v", err, ErrCheckpointOutOfOrder)
	}

	tests := []struct {
		key  uint64
		want uint64
	}{
		{0, 0}, {1, 0}, {2, 10}, {4, 10}, {5, 25}, {8, 25}, {9, 0}, {100, 0},
	}
	for _, tt := range tests {
		if got := cps.UpperLookup(tt.key).Uint64(); got != tt.want {
			t.Errorf("UpperLookup(%d) = %d, want %d", tt.key, got, tt.want)
		}
	}
	if got := cps.At(1); got.Key != 5 || got.Value.Uint64() != 25 {
		t.Errorf("At(1) = (%d, %d), want (5, 25)", got.Key, got.Value.Uint64())
	}
}

func TestCheckpoints_ReturnsCopies(t *testing.T) {
	var cps Checkpoints
	cps.Push(1, uint256.NewInt(7))
	cps.Latest().SetUint64(99)
	cps.UpperLookup(1).SetUint64(99)
	if got := cps.Latest().Uint64(); got != 7 {
		t.Fatalf("history mutated through returned value: %d", got)
	}
}

func TestVotesToken_Delegation(t *testing.T) {
	clock := &manualClock{}
	token := NewVotesToken(tokenAddr, clock)
	holder, delegatee := common.HexToAddress("0x1"), common.HexToAddress("0x2")

	if err := token.Mint(holder, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !token.Votes(holder).IsZero() {
		t.Fatal("undelegated balance counts as votes")
	}

	clock.block = 1
	if err := token.Delegate(holder, holder); err != nil {
		t.Fatalf("self delegate: %v", err)
	}
	clock.block = 3
	if err := token.Delegate(holder, delegatee); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	clock.block = 5

	tests := []struct {
		account   common.Address
		timepoint uint64
		want      uint64
	}{
		{holder, 0, 0},
		{holder, 1, 100},
		{holder, 2, 100},
		{holder, 3, 0},
		{delegatee, 2, 0},
		{delegatee, 3, 100},
		{delegatee, 5, 100},
	}
	for _, tt := range tests {
		got, err := token.VotingPowerAt(tt.account, tt.timepoint)
		if err != nil {
			t.Fatalf("VotingPowerAt(%s, %d): %v", tt.account, tt.timepoint, err)
		}
		if got.Uint64() != tt.want {
			t.Errorf("VotingPowerAt(%s, %d) = %d, want %d", tt.account, tt.timepoint, got.Uint64(), tt.want)
		}
	}
	if _, err := token.VotingPowerAt(holder, 6); !errors.Is(err, ErrFutureLookup) {
		t.Fatalf("future lookup error = %v, want %v", err, ErrFutureLookup)
	}
	if token.Delegates(holder) != delegatee {
		t.Fatal("delegate not recorded")
	}
	if n := token.NumCheckpoints(holder); n != 2 {
		t.Fatalf("holder checkpoints = %d, want 2", n)
	}
}

func TestVotesToken_TransferMovesVotes(t *testing.T) {
	clock := &manualClock{}
	token := NewVotesToken(tokenAddr, clock)
	a, b := common.HexToAddress("0xa"), common.HexToAddress("0xb")
	token.Mint(a, uint256.NewInt(30))
	token.Delegate(a, a)
	token.Delegate(b, b)

	clock.block = 2
	if err := token.Transfer(a, b, uint256.NewInt(10)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := token.Votes(a).Uint64(); got != 20 {
		t.Errorf("votes(a) = %d, want 20", got)
	}
	if got := token.Votes(b).Uint64(); got != 10 {
		t.Errorf("votes(b) = %d, want 10", got)
	}
	if err := token.Transfer(a, b, uint256.NewInt(21)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraft error = %v, want %v", err, ErrInsufficientBalance)
	}
	if err := token.Transfer(a, common.Address{}, uint256.NewInt(1)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("burn error = %v, want %v", err, ErrZeroAddress)
	}

	clock.block = 4
	token.Mint(b, uint256.NewInt(5))
	supply, err := token.TotalSupplyAt(3)
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply.Uint64() != 30 {
		t.Errorf("supply at 3 = %d, want 30", supply.Uint64())
	}
	if got := token.TotalSupply().Uint64(); got != 35 {
		t.Errorf("supply = %d, want 35", got)
	}
}
