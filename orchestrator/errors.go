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

package orchestrator

import (
	"fmt"

	"github.com/ethgov/governor/governance"
)

// Terminal outcomes. They wrap ErrUnexpectedProposalState, so Classify
// reports them as state-guard errors.
var (
	ErrDefeated = fmt.Errorf("%w: proposal defeated", governance.ErrUnexpectedProposalState)
	ErrCanceled = fmt.Errorf("%w: proposal canceled", governance.ErrUnexpectedProposalState)
	ErrExpired  = fmt.Errorf("%w: proposal expired", governance.ErrUnexpectedProposalState)

	// ErrRecordMismatch means the stored record for a description belongs
	// to a proposal with different calls.
	ErrRecordMismatch = fmt.Errorf("%w: stored proposal differs", governance.ErrConfiguration)
)

// terminalError maps a state no driver action can leave to its error.
func terminalError(state governance.ProposalState) error {
	switch state {
	case governance.ProposalDefeated:
		return ErrDefeated
	case governance.ProposalCanceled:
		return ErrCanceled
	case governance.ProposalExpired:
		return ErrExpired
	}
	return nil
}
