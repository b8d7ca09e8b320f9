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
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethgov/governor/ledger"
)

// Timelock roles
var (
	AdminRole     = common.Hash{}
	ProposerRole  = crypto.Keccak256Hash([]byte("PROPOSER_ROLE"))
	ExecutorRole  = crypto.Keccak256Hash([]byte("EXECUTOR_ROLE"))
	CancellerRole = crypto.Keccak256Hash([]byte("CANCELLER_ROLE"))
)

// doneTimestamp marks an executed operation.
const doneTimestamp = 1

// Timelock is a role-gated scheduler: operations are scheduled by proposers,
// become executable after a delay and are executed all-or-nothing.
type Timelock struct {
	address    common.Address
	clock      Clock
	executor   CallExecutor
	minDelay   uint64
	roles      map[common.Hash]mapset.Set[common.Address]
	timestamps map[common.Hash]uint64
	operations map[common.Hash]*Operation
	journal    Journal
	log        log.Logger
}

// NewTimelock creates a timelock at address. The timelock administers itself;
// config.Admin, when set, is an additional admin meant to be renounced once
// setup is complete.
func NewTimelock(address common.Address, config *TimelockConfig, clock Clock, executor CallExecutor) *Timelock {
	tl := &Timelock{
		address:    address,
		clock:      clock,
		executor:   executor,
		minDelay:   config.MinDelay,
		roles:      make(map[common.Hash]mapset.Set[common.Address]),
		timestamps: make(map[common.Hash]uint64),
		operations: make(map[common.Hash]*Operation),
		journal:    nopJournal{},
		log:        log.New("timelock", address),
	}
	tl.grant(AdminRole, address)
	if config.Admin != (common.Address{}) {
		tl.grant(AdminRole, config.Admin)
	}
	for _, p := range config.Proposers {
		tl.grant(ProposerRole, p)
		tl.grant(CancellerRole, p)
	}
	for _, e := range config.Executors {
		tl.grant(ExecutorRole, e)
	}
	for _, c := range config.Cancellers {
		tl.grant(CancellerRole, c)
	}
	return tl
}

// Address returns the timelock address.
func (tl *Timelock) Address() common.Address { return tl.address }

// MinDelay returns the minimum delay in seconds.
func (tl *Timelock) MinDelay() uint64 { return tl.minDelay }

// HasRole reports whether account holds role.
func (tl *Timelock) HasRole(role common.Hash, account common.Address) bool {
	members, ok := tl.roles[role]
	return ok && members.Contains(account)
}

// IsProposer reports whether account may schedule operations.
func (tl *Timelock) IsProposer(account common.Address) bool {
	return tl.HasRole(ProposerRole, account)
}

// IsExecutor reports whether account may execute ready operations. Granting
// the executor role to the zero address opens execution to everyone.
func (tl *Timelock) IsExecutor(account common.Address) bool {
	return tl.HasRole(ExecutorRole, account) || tl.HasRole(ExecutorRole, common.Address{})
}

// IsCanceller reports whether account may cancel pending operations.
func (tl *Timelock) IsCanceller(account common.Address) bool {
	return tl.HasRole(CancellerRole, account)
}

// RoleMembers lists the holders of role.
func (tl *Timelock) RoleMembers(role common.Hash) []common.Address {
	members, ok := tl.roles[role]
	if !ok {
		return nil
	}
	return members.ToSlice()
}

// GrantRole gives role to account. Admins only.
func (tl *Timelock) GrantRole(caller common.Address, role common.Hash, account common.Address) error {
	if err := tl.checkRole(AdminRole, caller); err != nil {
		return err
	}
	tl.grant(role, account)
	return nil
}

// RevokeRole takes role from account. Admins only.
func (tl *Timelock) RevokeRole(caller common.Address, role common.Hash, account common.Address) error {
	if err := tl.checkRole(AdminRole, caller); err != nil {
		return err
	}
	tl.revoke(role, account)
	return nil
}

// RenounceRole drops role from the caller.
func (tl *Timelock) RenounceRole(caller common.Address, role common.Hash) error {
	tl.revoke(role, caller)
	return nil
}

// UpdateDelay changes the minimum delay. It can only be reached through an
// operation executed by the timelock itself.
func (tl *Timelock) UpdateDelay(caller common.Address, delay uint64) error {
	if caller != tl.address {
		return fmt.Errorf("%w: %s", ErrUnauthorizedCaller, caller)
	}
	tl.log.Info("Minimum delay updated", "old", tl.minDelay, "new", delay)
	setValue(tl.journal, &tl.minDelay, delay)
	return nil
}

// ScheduleBatch schedules op to become executable after delay seconds.
func (tl *Timelock) ScheduleBatch(caller common.Address, op *Operation) (common.Hash, error) {
	if err := tl.checkRole(ProposerRole, caller); err != nil {
		return common.Hash{}, err
	}
	if len(op.Targets) != len(op.Values) || len(op.Targets) != len(op.Payloads) {
		return common.Hash{}, ErrInvalidOperationLength
	}
	id := HashOperationBatch(op.Targets, op.Values, op.Payloads, op.Predecessor, op.Salt)
	// Done operations stay registered so an executed batch can never be replayed.
	if tl.IsOperation(id) {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrOperationAlreadyScheduled, id)
	}
	if op.Delay < tl.minDelay {
		return common.Hash{}, fmt.Errorf("%w: %d < %d", ErrDelayTooShort, op.Delay, tl.minDelay)
	}
	stored := &Operation{
		ID:          id,
		Targets:     append([]common.Address(nil), op.Targets...),
		Values:      cloneAmounts(op.Values),
		Payloads:    op.Payloads,
		Predecessor: op.Predecessor,
		Salt:        op.Salt,
		Delay:       op.Delay,
	}
	setEntry(tl.journal, tl.operations, id, stored)
	setEntry(tl.journal, tl.timestamps, id, tl.clock.Timestamp()+op.Delay)
	tl.log.Info("Operation scheduled", "id", id, "calls", len(op.Targets), "ready", tl.timestamps[id])
	return id, nil
}

// ExecuteBatch runs a ready operation. Any failing call reverts the batch and
// leaves the operation pending.
func (tl *Timelock) ExecuteBatch(caller common.Address, op *Operation) error {
	if !tl.IsExecutor(caller) {
		return fmt.Errorf("%w: %s lacks %s", ErrMissingRole, caller, roleName(ExecutorRole))
	}
	id := HashOperationBatch(op.Targets, op.Values, op.Payloads, op.Predecessor, op.Salt)
	if !tl.IsOperationPending(id) {
		return fmt.Errorf("%w: %s", ErrOperationNotPending, id)
	}
	if ready, now := tl.timestamps[id], tl.clock.Timestamp(); now < ready {
		return fmt.Errorf("%w: %s ready at %d, now %d", ErrNotReady, id, ready, now)
	}
	if op.Predecessor != (common.Hash{}) && !tl.IsOperationDone(op.Predecessor) {
		return fmt.Errorf("%w: %s", ErrPredecessorNotExecuted, op.Predecessor)
	}
	calls := make([]ledger.Call, len(op.Targets))
	for i := range op.Targets {
		calls[i] = ledger.Call{Target: op.Targets[i], Value: op.Values[i], Data: op.Payloads[i]}
	}
	if err := tl.executor.ExecuteBatch(tl.address, calls); err != nil {
		return fmt.Errorf("%w: %w", ErrCallReverted, err)
	}
	setEntry(tl.journal, tl.timestamps, id, doneTimestamp)
	tl.log.Info("Operation executed", "id", id)
	return nil
}

// Cancel drops a pending operation.
func (tl *Timelock) Cancel(caller common.Address, id common.Hash) error {
	if err := tl.checkRole(CancellerRole, caller); err != nil {
		return err
	}
	if !tl.IsOperationPending(id) {
		return fmt.Errorf("%w: %s", ErrOperationNotPending, id)
	}
	deleteEntry(tl.journal, tl.timestamps, id)
	deleteEntry(tl.journal, tl.operations, id)
	tl.log.Info("Operation cancelled", "id", id)
	return nil
}

// IsOperation reports whether id is scheduled or done.
func (tl *Timelock) IsOperation(id common.Hash) bool {
	return tl.timestamps[id] > 0
}

// IsOperationPending reports whether id is scheduled and not yet executed.
func (tl *Timelock) IsOperationPending(id common.Hash) bool {
	return tl.timestamps[id] > doneTimestamp
}

// IsOperationReady reports whether id is pending and its delay has passed.
func (tl *Timelock) IsOperationReady(id common.Hash) bool {
	ts := tl.timestamps[id]
	return ts > doneTimestamp && ts <= tl.clock.Timestamp()
}

// IsOperationDone reports whether id was executed.
func (tl *Timelock) IsOperationDone(id common.Hash) bool {
	return tl.timestamps[id] == doneTimestamp
}

// Timestamp returns the ready time of id, 1 once done and 0 if unknown.
func (tl *Timelock) Timestamp(id common.Hash) uint64 {
	return tl.timestamps[id]
}

// Operation returns a scheduled operation.
func (tl *Timelock) Operation(id common.Hash) (*Operation, bool) {
	op, ok := tl.operations[id]
	return op, ok
}

func (tl *Timelock) checkRole(role common.Hash, account common.Address) error {
	if !tl.HasRole(role, account) {
		return fmt.Errorf("%w: %s lacks %s", ErrMissingRole, account, roleName(role))
	}
	return nil
}

func (tl *Timelock) grant(role common.Hash, account common.Address) {
	members, ok := tl.roles[role]
	if !ok {
		members = mapset.NewThreadUnsafeSet[common.Address]()
		tl.roles[role] = members
	}
	if members.Add(account) {
		tl.journal.Record(func() { members.Remove(account) })
		tl.log.Debug("Role granted", "role", roleName(role), "account", account)
	}
}

func (tl *Timelock) revoke(role common.Hash, account common.Address) {
	if members, ok := tl.roles[role]; ok && members.Contains(account) {
		members.Remove(account)
		tl.journal.Record(func() { members.Add(account) })
		tl.log.Debug("Role revoked", "role", roleName(role), "account", account)
	}
}

func roleName(role common.Hash) string {
	switch role {
	case AdminRole:
		return "DEFAULT_ADMIN_ROLE"
	case ProposerRole:
		return "PROPOSER_ROLE"
	case ExecutorRole:
		return "EXECUTOR_ROLE"
	case CancellerRole:
		return "CANCELLER_ROLE"
	}
	return role.Hex()
}
