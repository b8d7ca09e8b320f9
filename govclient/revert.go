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

package govclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethgov/governor/governance"
)

// revertCode is the JSON-RPC error code nodes use for reverted calls.
const revertCode = 3

// revertSentinels maps contract custom errors to the package sentinels the
// simulated contracts return, so both backends classify alike.
var revertSentinels = map[string]error{
	"GovernorNonexistentProposal":       governance.ErrNonexistentProposal,
	"GovernorUnexpectedProposalState":   governance.ErrUnexpectedProposalState,
	"GovernorAlreadyCastVote":           governance.ErrAlreadyVoted,
	"GovernorInvalidVoteType":           governance.ErrInvalidVoteType,
	"GovernorInsufficientProposerVotes": governance.ErrBelowProposalThreshold,
	"GovernorInvalidProposalLength":     governance.ErrInvalidProposalLength,
	"GovernorOnlyExecutor":              governance.ErrOnlyGovernance,
	"GovernorOnlyProposer":              governance.ErrUnauthorized,
	"GovernorInvalidVotingPeriod":       governance.ErrInvalidVotingPeriod,
	"GovernorInvalidQuorumFraction":     governance.ErrInvalidQuorumFraction,
	"ERC5805FutureLookup":               governance.ErrFutureLookup,
	"TimelockInsufficientDelay":         governance.ErrDelayTooShort,
	"TimelockUnexpectedOperationState":  governance.ErrNotReady,
	"TimelockUnexecutedPredecessor":     governance.ErrPredecessorNotExecuted,
	"TimelockUnauthorizedCaller":        governance.ErrUnauthorizedCaller,
	"TimelockInvalidOperationLength":    governance.ErrInvalidOperationLength,
	"AccessControlUnauthorizedAccount":  governance.ErrMissingRole,
	"FailedCall":                        governance.ErrCallReverted,
	"FailedInnerCall":                   governance.ErrCallReverted,
}

// decodeError turns a node error into the governance error taxonomy.
// Reverts are decoded from their data, errors the node answered with are
// returned as is and everything else is a transport failure.
func decodeError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := revertData(dataErr.ErrorData()); ok {
			return decodeRevert(data)
		}
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		if rpcErr.ErrorCode() == revertCode {
			return fmt.Errorf("%w: %w", governance.ErrCallReverted, err)
		}
		return err
	}
	return fmt.Errorf("%w: %w", governance.ErrTransient, err)
}

func revertData(v interface{}) ([]byte, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	data, err := hexutil.Decode(s)
	if err != nil || len(data) < 4 {
		return nil, false
	}
	return data, true
}

// decodeRevert resolves revert data against the governor and timelock
// errors, falling back to a plain Error(string) reason.
func decodeRevert(data []byte) error {
	var selector [4]byte
	copy(selector[:], data[:4])
	for _, contract := range []*abi.ABI{&governance.GovernorABI, &governance.TimelockABI} {
		abiErr, err := contract.ErrorByID(selector)
		if err != nil {
			continue
		}
		sentinel, ok := revertSentinels[abiErr.Name]
		if !ok {
			sentinel = governance.ErrCallReverted
		}
		args, err := abiErr.Inputs.Unpack(data[4:])
		if err != nil {
			return fmt.Errorf("%w: %s", sentinel, abiErr.Name)
		}
		return fmt.Errorf("%w: %s%v", sentinel, abiErr.Name, args)
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return fmt.Errorf("%w: %s", governance.ErrCallReverted, reason)
	}
	return fmt.Errorf("%w: revert data %x", governance.ErrCallReverted, data)
}
