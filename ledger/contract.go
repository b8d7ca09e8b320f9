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

package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Contract is code living at an address of the simulated chain.
type Contract interface {
	Call(env *Env, input []byte) ([]byte, error)
}

// ContractFunc adapts a plain function to the Contract interface.
type ContractFunc func(env *Env, input []byte) ([]byte, error)

// Call implements Contract.
func (f ContractFunc) Call(env *Env, input []byte) ([]byte, error) {
	return f(env, input)
}

// Call is a single (target, value, calldata) triple.
type Call struct {
	Target common.Address
	Value  *uint256.Int
	Data   []byte
}

// Env is the execution context of one contract invocation.
type Env struct {
	tx     *Tx
	state  *journal
	caller common.Address
	self   common.Address
	value  *uint256.Int
}

// Caller returns the immediate caller of the contract.
func (e *Env) Caller() common.Address { return e.caller }

// Self returns the address of the executing contract.
func (e *Env) Self() common.Address { return e.self }

// Value returns the amount transferred with the call.
func (e *Env) Value() *uint256.Int {
	if e.value == nil {
		return new(uint256.Int)
	}
	return e.value.Clone()
}

// Header returns the block the call executes in.
func (e *Env) Header() Header { return e.tx.header }

// GetState reads a storage slot of the executing contract.
func (e *Env) GetState(key common.Hash) common.Hash {
	return e.state.getState(e.self, key)
}

// SetState writes a storage slot of the executing contract.
func (e *Env) SetState(key, value common.Hash) {
	e.state.setState(e.self, key, value)
}

// Call invokes another contract with the executing contract as caller.
func (e *Env) Call(to common.Address, value *uint256.Int, input []byte) ([]byte, error) {
	return e.tx.call(e.state, e.self, to, value, input)
}
