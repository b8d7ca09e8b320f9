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
	"context"
	"errors"
)

// ErrorKind groups errors by how a caller should react to them.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindValidation: malformed input, rejected before any state change.
	KindValidation
	// KindStateGuard: the call does not fit the current lifecycle state.
	KindStateGuard
	// KindAuthorization: the caller lacks the privilege.
	KindAuthorization
	// KindExecution: a target call failed and the batch was reverted.
	KindExecution
	// KindTransient: the ledger could not be reached or did not confirm.
	KindTransient
	// KindConfiguration: local settings or persisted records are unusable.
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateGuard:
		return "state-guard"
	case KindAuthorization:
		return "authorization"
	case KindExecution:
		return "execution"
	case KindTransient:
		return "transient"
	case KindConfiguration:
		return "configuration"
	}
	return "unknown"
}

var errorKinds = []struct {
	kind ErrorKind
	errs []error
}{
	// Checked first: a reverted batch wraps the target's own error.
	{KindExecution, []error{ErrCallReverted}},
	{KindTransient, []error{ErrTransient, context.DeadlineExceeded}},
	{KindConfiguration, []error{ErrConfiguration}},
	{KindValidation, []error{
		ErrInvalidProposalLength, ErrBelowProposalThreshold, ErrNonexistentProposal,
		ErrInvalidVoteType, ErrValueOverflow, ErrInvalidOperationLength, ErrDelayTooShort,
		ErrFutureLookup, ErrZeroAddress, ErrInvalidVotingPeriod, ErrInvalidQuorumFraction,
		ErrUnknownSelector,
	}},
	{KindStateGuard, []error{
		ErrProposalAlreadyExists, ErrProposalNotActive, ErrAlreadyVoted, ErrProposalNotSucceeded,
		ErrAlreadyQueued, ErrProposalNotQueued, ErrTimelockNotReady, ErrAlreadyExecuted,
		ErrUnexpectedProposalState, ErrAlreadyCanceled, ErrOperationAlreadyScheduled,
		ErrNotReady, ErrPredecessorNotExecuted, ErrOperationNotPending,
	}},
	{KindAuthorization, []error{
		ErrUnauthorized, ErrOnlyGovernance, ErrMissingRole, ErrUnauthorizedCaller,
	}},
}

// Classify reports the kind of err.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, group := range errorKinds {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.kind
			}
		}
	}
	return KindUnknown
}

// IsRetryable reports whether repeating the same call later may succeed:
// transient failures and guards that only wait on the clock.
func IsRetryable(err error) bool {
	if Classify(err) == KindTransient {
		return true
	}
	return errors.Is(err, ErrProposalNotActive) || errors.Is(err, ErrTimelockNotReady) ||
		errors.Is(err, ErrNotReady)
}
