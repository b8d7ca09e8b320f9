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

import "errors"

// Proposal validation errors
var (
	ErrInvalidProposalLength  = errors.New("invalid proposal length")
	ErrProposalAlreadyExists  = errors.New("proposal already exists")
	ErrBelowProposalThreshold = errors.New("proposer votes below proposal threshold")
	ErrNonexistentProposal    = errors.New("proposal does not exist")
	ErrInvalidVoteType        = errors.New("invalid vote type")
	ErrValueOverflow          = errors.New("value overflows uint256")
)

// Lifecycle errors
var (
	ErrProposalNotActive       = errors.New("proposal is not active")
	ErrAlreadyVoted            = errors.New("voter has already voted on this proposal")
	ErrProposalNotSucceeded    = errors.New("proposal has not succeeded")
	ErrAlreadyQueued           = errors.New("proposal already queued")
	ErrProposalNotQueued       = errors.New("proposal is not queued")
	ErrTimelockNotReady        = errors.New("timelock operation is not ready")
	ErrAlreadyExecuted         = errors.New("proposal already executed")
	ErrUnexpectedProposalState = errors.New("unexpected proposal state")
	ErrCallReverted            = errors.New("target call reverted")
	ErrAlreadyCanceled         = errors.New("proposal already canceled")
)

// Authorization errors
var (
	ErrUnauthorized   = errors.New("caller is not the proposer or a canceller")
	ErrOnlyGovernance = errors.New("caller is not the governance executor")
)

// Timelock errors
var (
	ErrDelayTooShort             = errors.New("delay below timelock minimum")
	ErrOperationAlreadyScheduled = errors.New("operation already scheduled")
	ErrNotReady                  = errors.New("operation is not ready")
	ErrPredecessorNotExecuted    = errors.New("predecessor operation not executed")
	ErrMissingRole               = errors.New("account is missing role")
	ErrOperationNotPending       = errors.New("operation is not pending")
	ErrUnauthorizedCaller        = errors.New("caller must be the timelock itself")
	ErrInvalidOperationLength    = errors.New("invalid operation length")
)

// Voting power errors
var (
	ErrFutureLookup         = errors.New("lookup of a future timepoint")
	ErrCheckpointOutOfOrder = errors.New("checkpoint key out of order")
	ErrInsufficientBalance  = errors.New("insufficient token balance")
	ErrZeroAddress          = errors.New("zero address")
)

// Settings errors
var (
	ErrInvalidVotingPeriod   = errors.New("voting period must be positive")
	ErrInvalidQuorumFraction = errors.New("quorum numerator over denominator")
	ErrUnknownSelector       = errors.New("unknown function selector")
)

// Environment errors
var (
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient ledger failure")
)
