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
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/ledger"
	"github.com/holiman/uint256"
)

var (
	tlProposer  = common.HexToAddress("0x1001")
	tlExecutor  = common.HexToAddress("0x1002")
	tlCanceller = common.HexToAddress("0x1003")
	tlStranger  = common.HexToAddress("0x1004")
)

func newTestTimelock(t *testing.T, executors ...common.Address) (*ledger.Chain, *Timelock) {
	t.Helper()

	chain := ledger.New(ledger.Config{ChainID: 1337, GenesisTime: 1000})
	if executors == nil {
		executors = []common.Address{tlExecutor}
	}
	tl := NewTimelock(timelockAddr, &TimelockConfig{
		MinDelay:   60,
		Proposers:  []common.Address{tlProposer},
		Executors:  executors,
		Cancellers: []common.Address{tlCanceller},
	}, chain, chain)
	if err := chain.Deploy(timelockAddr, tl); err != nil {
		t.Fatalf("deploy timelock: %v", err)
	}
	if err := chain.Deploy(boxAddr, ledger.NewBox(timelockAddr)); err != nil {
		t.Fatalf("deploy box: %v", err)
	}
	return chain, tl
}

func boxOperation(t *testing.T, value int64, salt byte) *Operation {
	t.Helper()

	p := boxProposal(t, boxAddr, value, "")
	return &Operation{
		Targets:  p.targets,
		Values:   p.values,
		Payloads: p.calldatas,
		Salt:     common.Hash{salt},
		Delay:    60,
	}
}

func schedule(chain *ledger.Chain, tl *Timelock, caller common.Address, op *Operation) (common.Hash, error) {
	var id common.Hash
	_, err := chain.Transact(caller, func(*ledger.Tx) (err error) {
		id, err = tl.ScheduleBatch(caller, op)
		return err
	})
	return id, err
}

func executeOp(chain *ledger.Chain, tl *Timelock, caller common.Address, op *Operation) error {
	_, err := chain.Transact(caller, func(*ledger.Tx) error {
		return tl.ExecuteBatch(caller, op)
	})
	return err
}

func TestTimelock_Roles(t *testing.T) {
	_, tl := newTestTimelock(t)

	tests := []struct {
		name    string
		check   func(common.Address) bool
		account common.Address
		want    bool
	}{
		{"proposer", tl.IsProposer, tlProposer, true},
		{"proposer cancels", tl.IsCanceller, tlProposer, true},
		{"executor", tl.IsExecutor, tlExecutor, true},
		{"canceller", tl.IsCanceller, tlCanceller, true},
		{"canceller cannot propose", tl.IsProposer, tlCanceller, false},
		{"stranger cannot execute", tl.IsExecutor, tlStranger, false},
	}
	for _, tt := range tests {
		if got := tt.check(tt.account); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
	if !tl.HasRole(AdminRole, timelockAddr) {
		t.Error("timelock does not administer itself")
	}
}

func TestTimelock_OpenExecutor(t *testing.T) {
	chain, tl := newTestTimelock(t, common.Address{})
	if !tl.IsExecutor(tlStranger) {
		t.Fatal("zero address executor should open execution")
	}
	op := boxOperation(t, 5, 1)
	if _, err := schedule(chain, tl, tlProposer, op); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	chain.AdvanceTime(60)
	if err := executeOp(chain, tl, tlStranger, op); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if v := ledger.BoxValue(chain, boxAddr); v.Uint64() != 5 {
		t.Fatalf("box value = %d, want 5", v.Uint64())
	}
}

func TestTimelock_Schedule(t *testing.T) {
	chain, tl := newTestTimelock(t)
	op := boxOperation(t, 1, 1)

	if _, err := schedule(chain, tl, tlStranger, op); !errors.Is(err, ErrMissingRole) {
		t.Fatalf("stranger schedule error = %v, want %v", err, ErrMissingRole)
	}
	short := *op
	short.Delay = 59
	if _, err := schedule(chain, tl, tlProposer, &short); !errors.Is(err, ErrDelayTooShort) {
		t.Fatalf("short delay error = %v, want %v", err, ErrDelayTooShort)
	}
	bad := *op
	bad.Values = nil
	if _, err := schedule(chain, tl, tlProposer, &bad); !errors.Is(err, ErrInvalidOperationLength) {
		t.Fatalf("bad length error = %v, want %v", err, ErrInvalidOperationLength)
	}

	id, err := schedule(chain, tl, tlProposer, op)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if want := HashOperationBatch(op.Targets, op.Values, op.Payloads, op.Predecessor, op.Salt); id != want {
		t.Fatalf("id = %s, want %s", id, want)
	}
	if got, want := tl.Timestamp(id), chain.Head().Time+60; got != want {
		t.Fatalf("ready timestamp = %d, want %d", got, want)
	}
	if !tl.IsOperationPending(id) || tl.IsOperationReady(id) || tl.IsOperationDone(id) {
		t.Fatal("freshly scheduled operation should be pending only")
	}
	if _, err := schedule(chain, tl, tlProposer, op); !errors.Is(err, ErrOperationAlreadyScheduled) {
		t.Fatalf("duplicate schedule error = %v, want %v", err, ErrOperationAlreadyScheduled)
	}
}

func TestTimelock_Execute(t *testing.T) {
	chain, tl := newTestTimelock(t)
	op := boxOperation(t, 9, 1)
	id, err := schedule(chain, tl, tlProposer, op)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if err := executeOp(chain, tl, tlExecutor, op); !errors.Is(err, ErrNotReady) {
		t.Fatalf("early execute error = %v, want %v", err, ErrNotReady)
	}
	chain.AdvanceTime(59)
	if err := executeOp(chain, tl, tlStranger, op); !errors.Is(err, ErrMissingRole) {
		t.Fatalf("stranger execute error = %v, want %v", err, ErrMissingRole)
	}
	if err := executeOp(chain, tl, tlExecutor, op); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !tl.IsOperationDone(id) || tl.IsOperationPending(id) {
		t.Fatal("executed operation should be done")
	}
	if err := executeOp(chain, tl, tlExecutor, op); !errors.Is(err, ErrOperationNotPending) {
		t.Fatalf("replayed execute error = %v, want %v", err, ErrOperationNotPending)
	}
	if _, err := schedule(chain, tl, tlProposer, op); !errors.Is(err, ErrOperationAlreadyScheduled) {
		t.Fatalf("reschedule of done operation error = %v, want %v", err, ErrOperationAlreadyScheduled)
	}
}

func TestTimelock_Predecessor(t *testing.T) {
	chain, tl := newTestTimelock(t)
	first := boxOperation(t, 1, 1)
	firstID, err := schedule(chain, tl, tlProposer, first)
	if err != nil {
		t.Fatalf("schedule first: %v", err)
	}
	second := boxOperation(t, 2, 2)
	second.Predecessor = firstID
	if _, err := schedule(chain, tl, tlProposer, second); err != nil {
		t.Fatalf("schedule second: %v", err)
	}
	chain.AdvanceTime(60)

	if err := executeOp(chain, tl, tlExecutor, second); !errors.Is(err, ErrPredecessorNotExecuted) {
		t.Fatalf("execute error = %v, want %v", err, ErrPredecessorNotExecuted)
	}
	if err := executeOp(chain, tl, tlExecutor, first); err != nil {
		t.Fatalf("execute first: %v", err)
	}
	if err := executeOp(chain, tl, tlExecutor, second); err != nil {
		t.Fatalf("execute second: %v", err)
	}
	if v := ledger.BoxValue(chain, boxAddr); v.Uint64() != 2 {
		t.Fatalf("box value = %d, want 2", v.Uint64())
	}
}

func TestTimelock_Cancel(t *testing.T) {
	chain, tl := newTestTimelock(t)
	op := boxOperation(t, 1, 1)
	id, err := schedule(chain, tl, tlProposer, op)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	cancel := func(caller common.Address) error {
		_, err := chain.Transact(caller, func(*ledger.Tx) error { return tl.Cancel(caller, id) })
		return err
	}
	if err := cancel(tlExecutor); !errors.Is(err, ErrMissingRole) {
		t.Fatalf("executor cancel error = %v, want %v", err, ErrMissingRole)
	}
	if err := cancel(tlCanceller); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if tl.IsOperation(id) {
		t.Fatal("cancelled operation still registered")
	}
	if err := cancel(tlCanceller); !errors.Is(err, ErrOperationNotPending) {
		t.Fatalf("second cancel error = %v, want %v", err, ErrOperationNotPending)
	}
	// A cancelled operation can be scheduled again.
	if _, err := schedule(chain, tl, tlProposer, op); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
}

func TestTimelock_SelfAdministration(t *testing.T) {
	chain, tl := newTestTimelock(t)

	if err := tl.UpdateDelay(tlProposer, 1); !errors.Is(err, ErrUnauthorizedCaller) {
		t.Fatalf("direct update delay error = %v, want %v", err, ErrUnauthorizedCaller)
	}
	if err := tl.GrantRole(tlProposer, ProposerRole, tlStranger); !errors.Is(err, ErrMissingRole) {
		t.Fatalf("grant by non-admin error = %v, want %v", err, ErrMissingRole)
	}

	updateDelay, err := TimelockABI.Pack("updateDelay", bigU64(120))
	if err != nil {
		t.Fatal(err)
	}
	grant, err := TimelockABI.Pack("grantRole", [32]byte(ProposerRole), tlStranger)
	if err != nil {
		t.Fatal(err)
	}
	op := &Operation{
		Targets:  []common.Address{timelockAddr, timelockAddr},
		Values:   []*uint256.Int{new(uint256.Int), new(uint256.Int)},
		Payloads: [][]byte{updateDelay, grant},
		Delay:    60,
	}
	if _, err := schedule(chain, tl, tlProposer, op); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	chain.AdvanceTime(60)
	if err := executeOp(chain, tl, tlExecutor, op); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if tl.MinDelay() != 120 {
		t.Fatalf("min delay = %d, want 120", tl.MinDelay())
	}
	if !tl.IsProposer(tlStranger) {
		t.Fatal("role grant did not apply")
	}

	if err := tl.RenounceRole(tlStranger, ProposerRole); err != nil {
		t.Fatalf("renounce: %v", err)
	}
	if tl.IsProposer(tlStranger) {
		t.Fatal("renounced role still held")
	}
}
