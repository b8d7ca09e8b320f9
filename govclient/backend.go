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

// Package govclient drives a governor contract on a ledger: the in-process
// simulated chain or an Ethereum node over JSON-RPC. Every mutating call
// blocks until the transaction has the configured number of confirmations.
package govclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/governance"
	"github.com/holiman/uint256"
)

var (
	errEmptyProposal   = errors.New("proposal has no calls")
	errBadConfirmation = errors.New("confirmations must be at least 1")
)

// Head is the latest block a backend observes.
type Head struct {
	Number uint64
	Time   uint64
}

// ProposalInput is everything needed to submit, queue, execute or cancel a
// proposal. The proposal id is derived from it, never read from a receipt.
type ProposalInput struct {
	Targets     []common.Address
	Values      []*uint256.Int
	Calldatas   [][]byte
	Description string
}

// DescriptionHash returns keccak256 of the description.
func (p *ProposalInput) DescriptionHash() common.Hash {
	return governance.DescriptionHash(p.Description)
}

// ID returns the proposal id the governor assigns to p.
func (p *ProposalInput) ID() common.Hash {
	return governance.HashProposal(p.Targets, p.Values, p.Calldatas, p.DescriptionHash())
}

// OperationID returns the id of the timelock operation governor schedules
// when p is queued.
func (p *ProposalInput) OperationID(governor common.Address) common.Hash {
	return governance.NewOperation(governor, p.Targets, p.Values, p.Calldatas, p.DescriptionHash()).ID
}

// Validate rejects inputs the governor would refuse for their shape alone.
func (p *ProposalInput) Validate() error {
	if len(p.Targets) == 0 {
		return fmt.Errorf("%w: %w", governance.ErrInvalidProposalLength, errEmptyProposal)
	}
	if len(p.Targets) != len(p.Values) || len(p.Targets) != len(p.Calldatas) {
		return fmt.Errorf("%w: %d targets, %d values, %d calldatas", governance.ErrInvalidProposalLength,
			len(p.Targets), len(p.Values), len(p.Calldatas))
	}
	return nil
}

func (p *ProposalInput) bigValues() []*big.Int {
	out := make([]*big.Int, len(p.Values))
	for i, v := range p.Values {
		if v == nil {
			out[i] = new(big.Int)
		} else {
			out[i] = v.ToBig()
		}
	}
	return out
}

// ProposalInfo is the governor's view of a proposal.
type ProposalInfo struct {
	ID           common.Hash
	State        governance.ProposalState
	Proposer     common.Address
	Snapshot     uint64 // vote start block
	Deadline     uint64 // vote end block
	ETA          uint64 // timelock ready timestamp, zero until queued
	ForVotes     *uint256.Int
	AgainstVotes *uint256.Int
	AbstainVotes *uint256.Int
}

// Backend submits governor calls from one account and reads governor state.
type Backend interface {
	// Account returns the sender of mutating calls
	Account() common.Address

	// Governor returns the governor contract address
	Governor() common.Address

	// Confirmations returns how many blocks, including its own, a mutating
	// call waits for before it returns
	Confirmations() uint64

	// ChainID returns the chain the backend is connected to
	ChainID(ctx context.Context) (uint64, error)

	// Head returns the latest block
	Head(ctx context.Context) (Head, error)

	// Propose submits p and returns its id
	Propose(ctx context.Context, p *ProposalInput) (common.Hash, error)

	// CastVote votes on id with an optional reason
	CastVote(ctx context.Context, id common.Hash, support governance.VoteType, reason string) error

	// Queue schedules a succeeded proposal in the timelock
	Queue(ctx context.Context, p *ProposalInput) error

	// Execute runs a queued proposal whose delay has passed
	Execute(ctx context.Context, p *ProposalInput) error

	// Cancel cancels a proposal that has not been executed
	Cancel(ctx context.Context, p *ProposalInput) error

	// State returns the lifecycle state of id
	State(ctx context.Context, id common.Hash) (governance.ProposalState, error)

	// Proposal returns the full view of id
	Proposal(ctx context.Context, id common.Hash) (*ProposalInfo, error)

	// HasVoted reports whether account has voted on id
	HasVoted(ctx context.Context, id common.Hash, account common.Address) (bool, error)
}

// DevClock moves a development chain forward. Production networks have no
// DevClock; code paths that need one take it as an explicit argument.
type DevClock interface {
	// MoveBlocks mines n empty blocks
	MoveBlocks(ctx context.Context, n uint64) error

	// MoveTime shifts the timestamp of the next block by seconds
	MoveTime(ctx context.Context, seconds uint64) error
}
