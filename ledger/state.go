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
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/holiman/uint256"
)

var balancePrefix = []byte("b")

type slotKey struct {
	addr common.Address
	key  common.Hash
}

// journal is a write overlay on top of the committed contract state. Nested
// journals back call batches that must apply all-or-nothing.
type journal struct {
	db       ethdb.KeyValueReader
	parent   *journal
	slots    map[slotKey]common.Hash
	balances map[common.Address]*uint256.Int
}

func newJournal(db ethdb.KeyValueReader, parent *journal) *journal {
	return &journal{
		db:       db,
		parent:   parent,
		slots:    make(map[slotKey]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
	}
}

func (j *journal) getState(addr common.Address, key common.Hash) common.Hash {
	for cur := j; cur != nil; cur = cur.parent {
		if v, ok := cur.slots[slotKey{addr, key}]; ok {
			return v
		}
	}
	return readSlot(j.db, addr, key)
}

func (j *journal) setState(addr common.Address, key, value common.Hash) {
	j.slots[slotKey{addr, key}] = value
}

func (j *journal) balance(addr common.Address) *uint256.Int {
	for cur := j; cur != nil; cur = cur.parent {
		if v, ok := cur.balances[addr]; ok {
			return v.Clone()
		}
	}
	return readBalance(j.db, addr)
}

func (j *journal) setBalance(addr common.Address, amount *uint256.Int) {
	j.balances[addr] = amount.Clone()
}

func (j *journal) transfer(from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	fromBal := j.balance(from)
	if fromBal.Lt(amount) {
		return ErrInsufficientBalance
	}
	j.setBalance(from, new(uint256.Int).Sub(fromBal, amount))
	j.setBalance(to, new(uint256.Int).Add(j.balance(to), amount))
	return nil
}

// merge folds a child journal into its parent.
func (j *journal) merge() {
	for k, v := range j.slots {
		j.parent.slots[k] = v
	}
	for k, v := range j.balances {
		j.parent.balances[k] = v
	}
}

// flush writes a root journal into the batch.
func (j *journal) flush(batch ethdb.Batch) error {
	for k, v := range j.slots {
		if err := batch.Put(slotDBKey(k.addr, k.key), v.Bytes()); err != nil {
			return err
		}
	}
	for addr, amount := range j.balances {
		b := amount.Bytes32()
		if err := batch.Put(balanceDBKey(addr), b[:]); err != nil {
			return err
		}
	}
	return nil
}

func slotDBKey(addr common.Address, key common.Hash) []byte {
	out := make([]byte, 0, common.AddressLength+common.HashLength)
	out = append(out, addr.Bytes()...)
	return append(out, key.Bytes()...)
}

func balanceDBKey(addr common.Address) []byte {
	return append(append([]byte{}, balancePrefix...), addr.Bytes()...)
}

func readSlot(db ethdb.KeyValueReader, addr common.Address, key common.Hash) common.Hash {
	enc, err := db.Get(slotDBKey(addr, key))
	if err != nil || len(enc) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(enc)
}

func readBalance(db ethdb.KeyValueReader, addr common.Address) *uint256.Int {
	enc, err := db.Get(balanceDBKey(addr))
	if err != nil || len(enc) == 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).SetBytes(enc)
}
