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

// Package ledger implements an in-process, single-writer chain used to run
// the governance contracts during development and in tests.
package ledger

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Header identifies a block of the simulated chain.
type Header struct {
	Number uint64
	Time   uint64
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash      common.Hash
	From        common.Address
	BlockNumber uint64
	BlockTime   uint64
}

// Config holds the genesis parameters of a simulated chain.
type Config struct {
	ChainID     uint64
	GenesisTime uint64              // defaults to the wall clock
	DB          ethdb.KeyValueStore // defaults to an in-memory database
}

// Chain is a simulated ledger. All mutating calls go through Transact, which
// serializes them and mines one block per successful call. A call that fails
// leaves no trace, the way a reverting transaction never makes it past gas
// estimation.
type Chain struct {
	mu        sync.RWMutex
	db        ethdb.KeyValueStore
	chainID   uint64
	head      Header
	timeShift uint64
	current   atomic.Pointer[Header]
	tx        *Tx

	contracts map[common.Address]Contract
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*Receipt
	log       log.Logger
}

// New creates a simulated chain at block zero.
func New(cfg Config) *Chain {
	db := cfg.DB
	if db == nil {
		db = memorydb.New()
	}
	genesisTime := cfg.GenesisTime
	if genesisTime == 0 {
		genesisTime = uint64(time.Now().Unix())
	}
	c := &Chain{
		db:        db,
		chainID:   cfg.ChainID,
		head:      Header{Number: 0, Time: genesisTime},
		contracts: make(map[common.Address]Contract),
		nonces:    make(map[common.Address]uint64),
		receipts:  make(map[common.Hash]*Receipt),
		log:       log.New("chain", cfg.ChainID),
	}
	c.publishHead()
	return c
}

// ChainID returns the chain identifier.
func (c *Chain) ChainID() uint64 { return c.chainID }

// Deploy installs contract code at addr.
func (c *Chain) Deploy(addr common.Address, contract Contract) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.contracts[addr]; exists {
		return fmt.Errorf("%w: %s", ErrContractExists, addr)
	}
	c.contracts[addr] = contract
	c.log.Debug("Deployed contract", "address", addr)
	return nil
}

// HasCode reports whether a contract lives at addr.
func (c *Chain) HasCode(addr common.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.contracts[addr]
	return ok
}

// Transact runs fn as a transaction sent by from. If fn succeeds the state it
// wrote is committed and a block is mined; otherwise nothing changes.
func (c *Chain) Transact(from common.Address, fn func(tx *Tx) error) (*Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	header := c.nextHeader()
	tx := &Tx{
		chain:  c,
		header: header,
		from:   from,
		nonce:  c.nonces[from],
		state:  newJournal(c.db, nil),
	}
	tx.active = tx.state
	c.tx = tx
	c.current.Store(&header)
	defer func() {
		c.tx = nil
		c.publishHead()
	}()

	if err := fn(tx); err != nil {
		tx.revertTo(0)
		return nil, err
	}
	batch := c.db.NewBatch()
	if err := tx.state.flush(batch); err != nil {
		tx.revertTo(0)
		return nil, err
	}
	if err := batch.Write(); err != nil {
		tx.revertTo(0)
		return nil, err
	}
	c.head = header
	c.timeShift = 0
	c.nonces[from]++

	receipt := &Receipt{
		TxHash:      tx.Hash(),
		From:        from,
		BlockNumber: header.Number,
		BlockTime:   header.Time,
	}
	c.receipts[receipt.TxHash] = receipt
	c.log.Trace("Mined transaction", "hash", receipt.TxHash, "from", from, "number", header.Number)
	return receipt, nil
}

// CallContract executes input against to at the head block without
// committing anything, the way eth_call does.
func (c *Chain) CallContract(from, to common.Address, input []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := &Tx{
		chain:  c,
		header: c.head,
		from:   from,
		nonce:  c.nonces[from],
		state:  newJournal(c.db, nil),
	}
	tx.active = tx.state
	c.tx = tx
	defer func() {
		tx.revertTo(0)
		c.tx = nil
	}()

	return tx.Call(to, nil, input)
}

// View runs fn under the read lock, observing the latest mined block.
func (c *Chain) View(fn func() error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return fn()
}

// ExecuteBatch runs calls in order on behalf of caller inside the current
// transaction. The first failing call reverts the whole batch.
func (c *Chain) ExecuteBatch(caller common.Address, calls []Call) error {
	if c.tx == nil {
		return ErrNoTransaction
	}
	return c.tx.executeBatch(caller, calls)
}

// Record registers undo as the inverse of a write a contract made to state it
// keeps outside slot storage. If the call frame that made the write fails,
// or the transaction is only simulated, the undo functions run in reverse
// order. Outside a transaction writes are final and Record does nothing.
//
// Record must only be called from contract code running inside Transact or
// CallContract.
func (c *Chain) Record(undo func()) {
	if c.tx != nil {
		c.tx.undo = append(c.tx.undo, undo)
	}
}

// Clock returns the block number contracts observe: the pending block inside
// a transaction and the head block otherwise.
func (c *Chain) Clock() uint64 { return c.current.Load().Number }

// Timestamp returns the block time contracts observe.
func (c *Chain) Timestamp() uint64 { return c.current.Load().Time }

// Head returns the latest mined block.
func (c *Chain) Head() Header {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.head
}

// Nonce returns the number of transactions mined from addr.
func (c *Chain) Nonce(addr common.Address) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.nonces[addr]
}

// Receipt looks up a mined transaction.
func (c *Chain) Receipt(hash common.Hash) (*Receipt, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.receipts[hash]
	if !ok {
		return nil, ErrReceiptNotFound
	}
	cpy := *r
	return &cpy, nil
}

// Confirmations returns how many blocks, including its own, sit on top of
// the block that mined hash.
func (c *Chain) Confirmations(hash common.Hash) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.receipts[hash]
	if !ok {
		return 0, ErrReceiptNotFound
	}
	return c.head.Number - r.BlockNumber + 1, nil
}

// Balance returns the native balance of addr.
func (c *Chain) Balance(addr common.Address) *uint256.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return readBalance(c.db, addr)
}

// SetBalance funds addr at genesis.
func (c *Chain) SetBalance(addr common.Address, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := amount.Bytes32()
	return c.db.Put(balanceDBKey(addr), b[:])
}

// StorageAt reads a committed storage slot.
func (c *Chain) StorageAt(addr common.Address, key common.Hash) common.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return readSlot(c.db, addr, key)
}

// AdvanceBlocks mines n empty blocks. Development chains only.
func (c *Chain) AdvanceBlocks(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := uint64(0); i < n; i++ {
		c.head = c.nextHeader()
		c.timeShift = 0
	}
	c.publishHead()
	c.log.Debug("Moved blocks", "count", n, "number", c.head.Number)
}

// AdvanceTime shifts the timestamp of the next mined block by seconds.
// Development chains only.
func (c *Chain) AdvanceTime(seconds uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeShift += seconds
	c.log.Debug("Moved time", "seconds", seconds)
}

func (c *Chain) nextHeader() Header {
	return Header{
		Number: c.head.Number + 1,
		Time:   c.head.Time + 1 + c.timeShift,
	}
}

func (c *Chain) publishHead() {
	h := c.head
	c.current.Store(&h)
}

// Tx is a transaction being executed.
type Tx struct {
	chain  *Chain
	header Header
	from   common.Address
	nonce  uint64
	state  *journal
	active *journal // journal of the innermost running call
	undo   []func() // inverses of in-memory contract writes, oldest first
}

// From returns the sender.
func (tx *Tx) From() common.Address { return tx.from }

// Header returns the pending block.
func (tx *Tx) Header() Header { return tx.header }

// Hash derives the transaction hash from chain id, sender and nonce.
func (tx *Tx) Hash() common.Hash {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], tx.chain.chainID)
	binary.BigEndian.PutUint64(buf[8:], tx.nonce)
	return crypto.Keccak256Hash(buf[:], tx.from.Bytes())
}

// Call invokes a contract with the sender as caller.
func (tx *Tx) Call(to common.Address, value *uint256.Int, input []byte) ([]byte, error) {
	return tx.call(tx.state, tx.from, to, value, input)
}

// revertTo undoes the in-memory writes recorded after mark.
func (tx *Tx) revertTo(mark int) {
	for i := len(tx.undo) - 1; i >= mark; i-- {
		tx.undo[i]()
	}
	tx.undo = tx.undo[:mark]
}

func (tx *Tx) call(parent *journal, caller, to common.Address, value *uint256.Int, input []byte) ([]byte, error) {
	mark := len(tx.undo)
	state := newJournal(tx.chain.db, parent)
	if err := state.transfer(caller, to, value); err != nil {
		return nil, err
	}
	contract, ok := tx.chain.contracts[to]
	if !ok {
		if len(input) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoContract, to)
		}
		state.merge()
		return nil, nil
	}
	env := &Env{tx: tx, state: state, caller: caller, self: to, value: value}
	outer := tx.active
	tx.active = state
	out, err := contract.Call(env, input)
	tx.active = outer
	if err != nil {
		tx.revertTo(mark)
		return nil, err
	}
	state.merge()
	return out, nil
}

func (tx *Tx) executeBatch(caller common.Address, calls []Call) error {
	mark := len(tx.undo)
	batch := newJournal(tx.chain.db, tx.active)
	for i, call := range calls {
		if _, err := tx.call(batch, caller, call.Target, call.Value, call.Data); err != nil {
			tx.revertTo(mark)
			return fmt.Errorf("call %d to %s reverted: %w", i, call.Target, err)
		}
	}
	batch.merge()
	return nil
}
