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
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/governance"
	"github.com/holiman/uint256"
)

// callFunc runs a read-only call against the governor.
type callFunc func(ctx context.Context, input []byte) ([]byte, error)

func callGovernor(ctx context.Context, call callFunc, method string, args ...interface{}) ([]interface{}, error) {
	input, err := governance.GovernorABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := call(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return governance.GovernorABI.Unpack(method, out)
}

func readState(ctx context.Context, call callFunc, id common.Hash) (governance.ProposalState, error) {
	out, err := callGovernor(ctx, call, "state", id.Big())
	if err != nil {
		return 0, err
	}
	return governance.ProposalState(out[0].(uint8)), nil
}

func readUint(ctx context.Context, call callFunc, method string, id common.Hash) (uint64, error) {
	out, err := callGovernor(ctx, call, method, id.Big())
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

func readProposal(ctx context.Context, call callFunc, id common.Hash) (*ProposalInfo, error) {
	state, err := readState(ctx, call, id)
	if err != nil {
		return nil, err
	}
	info := &ProposalInfo{ID: id, State: state}
	if info.Snapshot, err = readUint(ctx, call, "proposalSnapshot", id); err != nil {
		return nil, err
	}
	if info.Deadline, err = readUint(ctx, call, "proposalDeadline", id); err != nil {
		return nil, err
	}
	if info.ETA, err = readUint(ctx, call, "proposalEta", id); err != nil {
		return nil, err
	}
	out, err := callGovernor(ctx, call, "proposalProposer", id.Big())
	if err != nil {
		return nil, err
	}
	info.Proposer = out[0].(common.Address)

	out, err = callGovernor(ctx, call, "proposalVotes", id.Big())
	if err != nil {
		return nil, err
	}
	info.AgainstVotes, _ = uint256.FromBig(out[0].(*big.Int))
	info.ForVotes, _ = uint256.FromBig(out[1].(*big.Int))
	info.AbstainVotes, _ = uint256.FromBig(out[2].(*big.Int))
	return info, nil
}

func readHasVoted(ctx context.Context, call callFunc, id common.Hash, account common.Address) (bool, error) {
	out, err := callGovernor(ctx, call, "hasVoted", id.Big(), account)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// packBatch encodes one of the batch entry points: propose takes the
// description, queue, execute and cancel take its hash.
func packBatch(method string, p *ProposalInput) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if method == "propose" {
		return governance.GovernorABI.Pack(method, p.Targets, p.bigValues(), p.Calldatas, p.Description)
	}
	return governance.GovernorABI.Pack(method, p.Targets, p.bigValues(), p.Calldatas, [32]byte(p.DescriptionHash()))
}
