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

package genesis

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Deployment order of a governance system: each contract is created by the
// deployer with the next nonce.
const (
	TokenNonce = iota
	TimelockNonce
	GovernorNonce
	BoxNonce
)

// CalculateContractAddress deterministically calculates a contract address
// based on the deployer address and nonce using CREATE opcode rules
func CalculateContractAddress(deployer common.Address, nonce uint64) common.Address {
	// keccak256(rlp([deployer, nonce]))
	data, _ := rlp.EncodeToBytes([]interface{}{deployer, nonce})
	hash := crypto.Keccak256Hash(data)

	var addr common.Address
	copy(addr[:], hash[12:])
	return addr
}

// PredictAddresses returns where a fresh deployer, starting at nonce, will
// create the token, timelock, governor and box.
func PredictAddresses(deployer common.Address, nonce uint64) (token, timelock, governor, box common.Address) {
	return CalculateContractAddress(deployer, nonce+TokenNonce),
		CalculateContractAddress(deployer, nonce+TimelockNonce),
		CalculateContractAddress(deployer, nonce+GovernorNonce),
		CalculateContractAddress(deployer, nonce+BoxNonce)
}
