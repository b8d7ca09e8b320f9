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
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/ledger"
	"github.com/holiman/uint256"
)

func TestCalculateContractAddress(t *testing.T) {
	deployer := common.HexToAddress("0x1234567890123456789012345678901234567890")

	for nonce := uint64(0); nonce < 4; nonce++ {
		if got, want := CalculateContractAddress(deployer, nonce), crypto.CreateAddress(deployer, nonce); got != want {
			t.Errorf("nonce %d: got %s, want %s", nonce, got, want)
		}
	}
	if CalculateContractAddress(deployer, 0) == CalculateContractAddress(deployer, 1) {
		t.Error("different nonces should produce different addresses")
	}
}

func TestPredictAddresses(t *testing.T) {
	token, timelock, governor, box := PredictAddresses(DevDeployer, 5)
	for i, addr := range []common.Address{token, timelock, governor, box} {
		if want := CalculateContractAddress(DevDeployer, uint64(5+i)); addr != want {
			t.Errorf("contract %d at %s, want %s", i, addr, want)
		}
	}
}

func newDevChain() *ledger.Chain {
	return ledger.New(ledger.Config{ChainID: 31337, GenesisTime: 1_700_000_000})
}

func TestDeploy_Roles(t *testing.T) {
	chain := newDevChain()
	d, err := Deploy(chain, DefaultBootstrapConfig())
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	token, timelock, governor, box := PredictAddresses(DevDeployer, 0)
	if d.Addresses.Token != token || d.Addresses.Timelock != timelock || d.Addresses.Governor != governor || d.Box != box {
		t.Fatalf("unexpected addresses %+v box %s", d.Addresses, d.Box)
	}
	for _, addr := range []common.Address{token, timelock, governor, box} {
		if !chain.HasCode(addr) {
			t.Fatalf("no contract at %s", addr)
		}
	}

	tl := d.Contracts.Timelock()
	tests := []struct {
		name    string
		role    common.Hash
		account common.Address
		want    bool
	}{
		{"governor proposes", governance.ProposerRole, governor, true},
		{"governor cancels", governance.CancellerRole, governor, true},
		{"anyone executes", governance.ExecutorRole, common.Address{}, true},
		{"deployer no longer cancels", governance.CancellerRole, DevDeployer, false},
		{"deployer no longer admin", governance.AdminRole, DevDeployer, false},
		{"deployer does not propose", governance.ProposerRole, DevDeployer, false},
		{"timelock administers itself", governance.AdminRole, timelock, true},
	}
	for _, tt := range tests {
		if got := tl.HasRole(tt.role, tt.account); got != tt.want {
			t.Errorf("%s: HasRole = %v, want %v", tt.name, got, tt.want)
		}
	}
	if tl.MinDelay() != 3600 {
		t.Errorf("min delay = %d, want 3600", tl.MinDelay())
	}

	input, err := ledger.BoxABI.Pack("owner")
	if err != nil {
		t.Fatal(err)
	}
	out, err := chain.CallContract(DevDeployer, box, input)
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if owner := common.BytesToAddress(out); owner != timelock {
		t.Fatalf("box owner = %s, want timelock %s", owner, timelock)
	}

	supply := DefaultBootstrapConfig().InitialSupply
	if votes := d.Contracts.Token().Votes(DevDeployer); !votes.Eq(supply) {
		t.Fatalf("deployer votes = %s, want %s", votes.Dec(), supply.Dec())
	}
	if n := chain.Nonce(DevDeployer); n < BoxNonce+1 {
		t.Fatalf("deployer nonce = %d, want at least %d", n, BoxNonce+1)
	}
}

func TestDeploy_Allocations(t *testing.T) {
	holder := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	idle := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	cfg := DefaultBootstrapConfig()
	cfg.BoxValue = 7
	cfg.Allocations = []Allocation{
		{Holder: holder, Amount: uint256.NewInt(1000), Delegate: true},
		{Holder: idle, Amount: uint256.NewInt(500)},
	}
	chain := newDevChain()
	d, err := Deploy(chain, cfg)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	token := d.Contracts.Token()
	if got := token.Votes(holder).Uint64(); got != 1000 {
		t.Errorf("holder votes = %d, want 1000", got)
	}
	if got := token.BalanceOf(idle).Uint64(); got != 500 {
		t.Errorf("idle balance = %d, want 500", got)
	}
	if !token.Votes(idle).IsZero() {
		t.Error("undelegated allocation carries votes")
	}
	want := new(uint256.Int).Sub(cfg.InitialSupply, uint256.NewInt(1500))
	if got := token.Votes(DevDeployer); !got.Eq(want) {
		t.Errorf("deployer votes = %s, want %s", got.Dec(), want.Dec())
	}
	if got := ledger.BoxValue(chain, d.Box); got.Uint64() != 7 {
		t.Errorf("box value = %d, want 7", got.Uint64())
	}
}

func TestDeploy_RequiresDeployer(t *testing.T) {
	cfg := DefaultBootstrapConfig()
	cfg.Deployer = common.Address{}
	if _, err := Deploy(newDevChain(), cfg); !errors.Is(err, errNoDeployer) {
		t.Fatalf("error = %v, want %v", err, errNoDeployer)
	}
}

func TestDeploy_ProposalLifecycle(t *testing.T) {
	chain := newDevChain()
	d, err := Deploy(chain, DefaultBootstrapConfig())
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	gov := d.Contracts.Governor()
	data, err := ledger.PackBoxStore(big.NewInt(100))
	if err != nil {
		t.Fatal(err)
	}
	targets := []common.Address{d.Box}
	values := []*uint256.Int{new(uint256.Int)}
	calldatas := [][]byte{data}
	const description = "Proposal #1 - update  value of box to 100"
	descHash := governance.DescriptionHash(description)
	id := governance.HashProposal(targets, values, calldatas, descHash)

	send := func(name string, fn func() error) {
		t.Helper()
		if _, err := chain.Transact(DevDeployer, func(*ledger.Tx) error { return fn() }); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	send("propose", func() error {
		_, err := gov.Propose(DevDeployer, targets, values, calldatas, description)
		return err
	})
	chain.AdvanceBlocks(1)
	send("vote", func() error {
		_, err := gov.CastVoteWithReason(id, DevDeployer, governance.VoteFor, "Don't ask,just I do")
		return err
	})
	chain.AdvanceBlocks(6)
	send("queue", func() error {
		_, err := gov.Queue(DevDeployer, targets, values, calldatas, descHash)
		return err
	})
	chain.AdvanceTime(3601)
	send("execute", func() error {
		_, err := gov.Execute(DevDeployer, targets, values, calldatas, descHash)
		return err
	})

	if state, err := d.Contracts.State(id); err != nil || state != governance.ProposalExecuted {
		t.Fatalf("state = %v (%v), want Executed", state, err)
	}
	if got := ledger.BoxValue(chain, d.Box); got.Uint64() != 100 {
		t.Fatalf("box value = %d, want 100", got.Uint64())
	}
}
