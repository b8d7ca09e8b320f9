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

// Package genesis deploys a complete governance system on a simulated chain,
// the way a development network is bootstrapped.
package genesis

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/ledger"
	"github.com/holiman/uint256"
)

// DevDeployer is the first account of the usual development node mnemonic.
var DevDeployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

var errNoDeployer = errors.New("bootstrap: deployer not set")

// Allocation hands tokens from the deployer to a holder at bootstrap.
type Allocation struct {
	Holder   common.Address
	Amount   *uint256.Int
	Delegate bool // self-delegate on behalf of the holder
}

// BootstrapConfig holds the network bootstrap configuration
type BootstrapConfig struct {
	Deployer      common.Address
	InitialSupply *uint256.Int // minted to the deployer, who self-delegates
	Allocations   []Allocation

	Governor *governance.GovernorConfig
	// MinDelay and Cancellers are honoured; proposer, executor and admin
	// roles are always set up by Deploy.
	Timelock *governance.TimelockConfig

	// BoxValue is stored in the box before ownership moves to the timelock.
	BoxValue uint64
}

// DefaultBootstrapConfig returns the default bootstrap configuration
func DefaultBootstrapConfig() *BootstrapConfig {
	supply := new(uint256.Int).Mul(uint256.NewInt(1_000_000), uint256.NewInt(1e18))
	return &BootstrapConfig{
		Deployer:      DevDeployer,
		InitialSupply: supply,
		Governor:      governance.DefaultGovernorConfig(),
		Timelock:      governance.DefaultTimelockConfig(),
	}
}

// Deployment is a bootstrapped governance system.
type Deployment struct {
	Deployer  common.Address
	Addresses governance.Addresses
	Box       common.Address
	Contracts *governance.GovernanceContract
}

// setupCall is one configuration transaction sent after the contracts exist.
type setupCall struct {
	name   string
	from   common.Address
	to     common.Address
	abi    abi.ABI
	method string
	args   []interface{}
}

// Deploy creates the token, timelock, governor and box on chain and wires
// their roles:
//
//  1. the token mints the initial supply to the deployer, who self-delegates
//  2. the timelock starts with no proposers or executors and the deployer as admin
//  3. the governor votes with the token and executes through the timelock
//  4. the governor becomes proposer and canceller, execution is opened to
//     everyone, and the deployer gives up its roles
//  5. the box is deployed and handed over to the timelock
//
// Once Deploy returns, only executed proposals can change the box.
func Deploy(chain *ledger.Chain, cfg *BootstrapConfig) (*Deployment, error) {
	if cfg.Deployer == (common.Address{}) {
		return nil, errNoDeployer
	}
	deployer := cfg.Deployer
	logger := log.New("deployer", deployer)

	tokenAddr, timelockAddr, governorAddr, boxAddr := PredictAddresses(deployer, chain.Nonce(deployer))
	addrs := governance.Addresses{Token: tokenAddr, Timelock: timelockAddr, Governor: governorAddr}

	tlConfig := governance.DefaultTimelockConfig()
	if cfg.Timelock != nil {
		tlConfig.MinDelay = cfg.Timelock.MinDelay
		tlConfig.Cancellers = cfg.Timelock.Cancellers
	}
	tlConfig.Admin = deployer
	govConfig := cfg.Governor
	if govConfig == nil {
		govConfig = governance.DefaultGovernorConfig()
	}
	gc, err := governance.NewGovernanceContract(chain, addrs, govConfig, tlConfig)
	if err != nil {
		return nil, err
	}
	if err := chain.Deploy(boxAddr, ledger.NewBox(deployer)); err != nil {
		return nil, err
	}

	// One creation transaction per contract keeps the deployer nonce in step
	// with the predicted addresses. The token constructor mints the supply.
	for nonce := TokenNonce; nonce <= BoxNonce; nonce++ {
		create := func(*ledger.Tx) error { return nil }
		if nonce == TokenNonce && cfg.InitialSupply != nil {
			create = func(*ledger.Tx) error { return gc.Token().Mint(deployer, cfg.InitialSupply) }
		}
		if _, err := chain.Transact(deployer, create); err != nil {
			return nil, fmt.Errorf("create contract %d: %w", nonce, err)
		}
	}
	logger.Info("Deployed governance contracts", "token", tokenAddr, "timelock", timelockAddr,
		"governor", governorAddr, "box", boxAddr)

	tl, token := governance.TimelockABI, governance.TokenABI
	calls := []setupCall{
		{"delegate", deployer, tokenAddr, token, "delegate", []interface{}{deployer}},
		{"grant proposer", deployer, timelockAddr, tl, "grantRole", []interface{}{[32]byte(governance.ProposerRole), governorAddr}},
		{"grant canceller", deployer, timelockAddr, tl, "grantRole", []interface{}{[32]byte(governance.CancellerRole), governorAddr}},
		{"open execution", deployer, timelockAddr, tl, "grantRole", []interface{}{[32]byte(governance.ExecutorRole), common.Address{}}},
		{"revoke canceller", deployer, timelockAddr, tl, "revokeRole", []interface{}{[32]byte(governance.CancellerRole), deployer}},
		{"renounce admin", deployer, timelockAddr, tl, "renounceRole", []interface{}{[32]byte(governance.AdminRole), deployer}},
	}
	if cfg.BoxValue != 0 {
		calls = append(calls, setupCall{"store", deployer, boxAddr, ledger.BoxABI, "store",
			[]interface{}{new(uint256.Int).SetUint64(cfg.BoxValue).ToBig()}})
	}
	calls = append(calls, setupCall{"hand over box", deployer, boxAddr, ledger.BoxABI, "transferOwnership",
		[]interface{}{timelockAddr}})
	for _, alloc := range cfg.Allocations {
		calls = append(calls, setupCall{"allocate", deployer, tokenAddr, token, "transfer",
			[]interface{}{alloc.Holder, alloc.Amount.ToBig()}})
		if alloc.Delegate {
			calls = append(calls, setupCall{"delegate", alloc.Holder, tokenAddr, token, "delegate",
				[]interface{}{alloc.Holder}})
		}
	}
	for _, call := range calls {
		if err := send(chain, call); err != nil {
			return nil, err
		}
		logger.Debug("Setup transaction mined", "step", call.name, "to", call.to)
	}
	logger.Info("Governance roles set up", "minDelay", tlConfig.MinDelay, "votingDelay", govConfig.VotingDelay,
		"votingPeriod", govConfig.VotingPeriod)

	return &Deployment{
		Deployer:  deployer,
		Addresses: addrs,
		Box:       boxAddr,
		Contracts: gc,
	}, nil
}

func send(chain *ledger.Chain, call setupCall) error {
	input, err := call.abi.Pack(call.method, call.args...)
	if err != nil {
		return fmt.Errorf("%s: %w", call.name, err)
	}
	_, err = chain.Transact(call.from, func(tx *ledger.Tx) error {
		_, err := tx.Call(call.to, nil, input)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", call.name, err)
	}
	return nil
}
