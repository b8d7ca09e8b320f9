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
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	addressSliceT, _ = abi.NewType("address[]", "", nil)
	uint256SliceT, _ = abi.NewType("uint256[]", "", nil)
	bytesSliceT, _   = abi.NewType("bytes[]", "", nil)
	bytes32T, _      = abi.NewType("bytes32", "", nil)

	proposalArgs = abi.Arguments{
		{Type: addressSliceT}, {Type: uint256SliceT}, {Type: bytesSliceT}, {Type: bytes32T},
	}
	operationArgs = abi.Arguments{
		{Type: addressSliceT}, {Type: uint256SliceT}, {Type: bytesSliceT}, {Type: bytes32T}, {Type: bytes32T},
	}
)

// DescriptionHash hashes a proposal description the way proposals are
// identified on chain.
func DescriptionHash(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// HashProposal computes the proposal id:
// keccak256(abi.encode(targets, values, calldatas, descriptionHash)).
// Identical inputs always give the same id, so resubmitting a proposal is
// detected rather than duplicated.
func HashProposal(targets []common.Address, values []*uint256.Int, calldatas [][]byte, descriptionHash common.Hash) common.Hash {
	enc, _ := proposalArgs.Pack(targets, toBigs(values), calldatas, [32]byte(descriptionHash))
	return crypto.Keccak256Hash(enc)
}

// HashOperationBatch computes a timelock operation id:
// keccak256(abi.encode(targets, values, payloads, predecessor, salt)).
func HashOperationBatch(targets []common.Address, values []*uint256.Int, payloads [][]byte, predecessor, salt common.Hash) common.Hash {
	enc, _ := operationArgs.Pack(targets, toBigs(values), payloads, [32]byte(predecessor), [32]byte(salt))
	return crypto.Keccak256Hash(enc)
}

// TimelockSalt derives the salt a governor schedules a proposal with:
// bytes20(governor) xor descriptionHash. It keeps operations of different
// governors sharing one timelock apart.
func TimelockSalt(governor common.Address, descriptionHash common.Hash) common.Hash {
	salt := descriptionHash
	for i := 0; i < common.AddressLength; i++ {
		salt[i] ^= governor[i]
	}
	return salt
}

// NewOperation builds the timelock operation that executes a proposal.
func NewOperation(governor common.Address, targets []common.Address, values []*uint256.Int, calldatas [][]byte, descriptionHash common.Hash) *Operation {
	salt := TimelockSalt(governor, descriptionHash)
	op := &Operation{
		Targets:  append([]common.Address(nil), targets...),
		Values:   cloneAmounts(values),
		Payloads: calldatas,
		Salt:     salt,
	}
	op.ID = HashOperationBatch(op.Targets, op.Values, op.Payloads, op.Predecessor, op.Salt)
	return op
}

func toBigs(values []*uint256.Int) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = new(big.Int)
		} else {
			out[i] = v.ToBig()
		}
	}
	return out
}

func fromBigs(values []*big.Int) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		u, overflow := uint256.FromBig(v)
		if overflow {
			return nil, ErrValueOverflow
		}
		out[i] = u
	}
	return out, nil
}
