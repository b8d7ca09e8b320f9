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
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const boxABIJSON = `[
	{"type":"function","name":"store","stateMutability":"nonpayable","inputs":[{"name":"newValue","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"retrieve","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]}
]`

// BoxABI is the interface of the Box configuration store.
var BoxABI = mustParseABI(boxABIJSON)

var (
	boxValueSlot = common.Hash{}
	boxOwnerSlot = common.BigToHash(big.NewInt(1))
)

// Box is an ownable single-value store. It is the usual target of governance
// proposals: ownership is handed to the timelock so only executed proposals
// can change the value.
type Box struct {
	initialOwner common.Address
}

// NewBox creates a Box owned by owner.
func NewBox(owner common.Address) *Box {
	return &Box{initialOwner: owner}
}

// Call implements Contract.
func (b *Box) Call(env *Env, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, ErrShortCalldata
	}
	method, err := BoxABI.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrUnknownMethod, input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "store":
		if err := b.onlyOwner(env); err != nil {
			return nil, err
		}
		env.SetState(boxValueSlot, common.BigToHash(args[0].(*big.Int)))
		return nil, nil

	case "retrieve":
		return method.Outputs.Pack(env.GetState(boxValueSlot).Big())

	case "owner":
		return method.Outputs.Pack(b.owner(env))

	case "transferOwnership":
		if err := b.onlyOwner(env); err != nil {
			return nil, err
		}
		newOwner := args[0].(common.Address)
		if newOwner == (common.Address{}) {
			return nil, ErrZeroOwner
		}
		env.SetState(boxOwnerSlot, common.BytesToHash(newOwner.Bytes()))
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method.Name)
}

func (b *Box) owner(env *Env) common.Address {
	stored := env.GetState(boxOwnerSlot)
	if stored == (common.Hash{}) {
		return b.initialOwner
	}
	return common.BytesToAddress(stored.Bytes())
}

func (b *Box) onlyOwner(env *Env) error {
	if owner := b.owner(env); env.Caller() != owner {
		return fmt.Errorf("%w: caller %s, owner %s", ErrNotOwner, env.Caller(), owner)
	}
	return nil
}

// BoxValue reads the committed value of the Box at addr.
func BoxValue(c *Chain, addr common.Address) *uint256.Int {
	return new(uint256.Int).SetBytes(c.StorageAt(addr, boxValueSlot).Bytes())
}

// PackBoxStore encodes a store(value) call.
func PackBoxStore(value *big.Int) ([]byte, error) {
	return BoxABI.Pack("store", value)
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
