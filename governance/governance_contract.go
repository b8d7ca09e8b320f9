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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/ledger"
)

// Addresses locates the contracts of one governance deployment.
type Addresses struct {
	Token    common.Address
	Timelock common.Address
	Governor common.Address
}

// GovernanceContract bundles the token, timelock and governor of one
// deployment on a simulated chain.
type GovernanceContract struct {
	chain    *ledger.Chain
	token    *VotesToken
	timelock *Timelock
	governor *Governor
}

// NewGovernanceContract creates the three contracts and deploys them on
// chain. The timelock executes its batches through the chain, and the
// governor is not granted any timelock role: that is left to the deployer.
func NewGovernanceContract(chain *ledger.Chain, addrs Addresses, govConfig *GovernorConfig, tlConfig *TimelockConfig) (*GovernanceContract, error) {
	token := NewVotesToken(addrs.Token, chain)
	timelock := NewTimelock(addrs.Timelock, tlConfig, chain, chain)
	governor, err := NewGovernor(addrs.Governor, govConfig, chain, token, timelock)
	if err != nil {
		return nil, err
	}
	token.journal = chain
	timelock.journal = chain
	governor.journal = chain
	for _, c := range []struct {
		addr     common.Address
		contract ledger.Contract
	}{
		{addrs.Token, token},
		{addrs.Timelock, timelock},
		{addrs.Governor, governor},
	} {
		if err := chain.Deploy(c.addr, c.contract); err != nil {
			return nil, fmt.Errorf("deploy %s: %w", c.addr, err)
		}
	}
	return &GovernanceContract{
		chain:    chain,
		token:    token,
		timelock: timelock,
		governor: governor,
	}, nil
}

// Chain returns the chain hosting the deployment.
func (gc *GovernanceContract) Chain() *ledger.Chain { return gc.chain }

// Token returns the votes token.
func (gc *GovernanceContract) Token() *VotesToken { return gc.token }

// Timelock returns the timelock controller.
func (gc *GovernanceContract) Timelock() *Timelock { return gc.timelock }

// Governor returns the governor.
func (gc *GovernanceContract) Governor() *Governor { return gc.governor }

// Addresses returns where the contracts are deployed.
func (gc *GovernanceContract) Addresses() Addresses {
	return Addresses{
		Token:    gc.token.Address(),
		Timelock: gc.timelock.Address(),
		Governor: gc.governor.Address(),
	}
}

// State returns the state of a proposal as of the latest block.
func (gc *GovernanceContract) State(id common.Hash) (ProposalState, error) {
	var state ProposalState
	err := gc.chain.View(func() (err error) {
		state, err = gc.governor.State(id)
		return err
	})
	return state, err
}
