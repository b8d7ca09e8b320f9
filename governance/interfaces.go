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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ethgov/governor/ledger"
)

// Clock is the ledger's notion of time: block numbers for voting,
// timestamps for the timelock.
type Clock interface {
	// Clock returns the current block number
	Clock() uint64

	// Timestamp returns the current block time in seconds
	Timestamp() uint64
}

// Journal records the inverse of an in-memory contract write so the write
// can be undone when the call that made it reverts
type Journal interface {
	// Record registers undo to run if the enclosing call frame fails
	Record(undo func())
}

// CallExecutor runs a batch of target calls all-or-nothing
type CallExecutor interface {
	// ExecuteBatch invokes every call in order on behalf of caller
	ExecuteBatch(caller common.Address, calls []ledger.Call) error
}

// VotingPowerOracle exposes checkpointed voting power
type VotingPowerOracle interface {
	// VotingPowerAt returns the votes of account at or before timepoint
	VotingPowerAt(account common.Address, timepoint uint64) (*uint256.Int, error)

	// TotalSupplyAt returns the total supply at or before timepoint
	TotalSupplyAt(timepoint uint64) (*uint256.Int, error)

	// Delegate moves the voting power of account to delegatee
	Delegate(account, delegatee common.Address) error
}

// TimelockController is the scheduler proposals are queued in
type TimelockController interface {
	// Address returns the timelock address, the executor of proposals
	Address() common.Address

	// MinDelay returns the minimum scheduling delay in seconds
	MinDelay() uint64

	// ScheduleBatch schedules an operation and returns its id
	ScheduleBatch(caller common.Address, op *Operation) (common.Hash, error)

	// ExecuteBatch executes a ready operation
	ExecuteBatch(caller common.Address, op *Operation) error

	// Cancel drops a pending operation
	Cancel(caller common.Address, id common.Hash) error

	// IsOperation reports whether id was ever scheduled and not cancelled
	IsOperation(id common.Hash) bool

	// IsOperationPending reports whether id is scheduled and not executed
	IsOperationPending(id common.Hash) bool

	// IsOperationReady reports whether id is pending and its delay passed
	IsOperationReady(id common.Hash) bool

	// IsOperationDone reports whether id was executed
	IsOperationDone(id common.Hash) bool

	// Timestamp returns the ready timestamp of id
	Timestamp(id common.Hash) uint64
}
