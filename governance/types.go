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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ProposalState is the derived lifecycle state of a proposal
type ProposalState uint8

const (
	ProposalPending   ProposalState = 0 // voting not yet open
	ProposalActive    ProposalState = 1 // voting open
	ProposalCanceled  ProposalState = 2 // canceled by proposer or canceller
	ProposalDefeated  ProposalState = 3 // vote closed without majority or quorum
	ProposalSucceeded ProposalState = 4 // vote closed, awaiting queue
	ProposalQueued    ProposalState = 5 // scheduled in the timelock
	ProposalExpired   ProposalState = 6 // grace period after ETA elapsed
	ProposalExecuted  ProposalState = 7 // executed through the timelock
)

var proposalStateNames = [...]string{
	"Pending", "Active", "Canceled", "Defeated", "Succeeded", "Queued", "Expired", "Executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return "Unknown"
}

// Terminal reports whether no further transition is possible.
func (s ProposalState) Terminal() bool {
	switch s {
	case ProposalCanceled, ProposalDefeated, ProposalExpired, ProposalExecuted:
		return true
	}
	return false
}

// VoteType is the support value of a vote
type VoteType uint8

const (
	VoteAgainst VoteType = 0
	VoteFor     VoteType = 1
	VoteAbstain VoteType = 2
)

func (v VoteType) String() string {
	switch v {
	case VoteAgainst:
		return "Against"
	case VoteFor:
		return "For"
	case VoteAbstain:
		return "Abstain"
	}
	return "Unknown"
}

// Valid reports whether v is one of the three vote types.
func (v VoteType) Valid() bool {
	return v <= VoteAbstain
}

// Proposal represents a governance proposal
type Proposal struct {
	ID              common.Hash      // hashProposal(targets, values, calldatas, descriptionHash)
	Proposer        common.Address   // account that submitted the proposal
	Targets         []common.Address // call targets
	Values          []*uint256.Int   // native value per call
	Calldatas       [][]byte         // calldata per call
	Description     string           // free text description
	DescriptionHash common.Hash      // keccak256 of the description
	VoteStart       uint64           // snapshot block, voting opens here
	VoteEnd         uint64           // last block of the voting window
	ForVotes        *uint256.Int
	AgainstVotes    *uint256.Int
	AbstainVotes    *uint256.Int
	Canceled        bool
	Executed        bool
	OperationID     common.Hash // timelock operation, set by queue
	ETA             uint64      // timestamp the operation becomes executable
}

func (p *Proposal) copy() *Proposal {
	cpy := *p
	cpy.Targets = append([]common.Address(nil), p.Targets...)
	cpy.Values = cloneAmounts(p.Values)
	cpy.Calldatas = make([][]byte, len(p.Calldatas))
	for i, data := range p.Calldatas {
		cpy.Calldatas[i] = common.CopyBytes(data)
	}
	cpy.ForVotes = p.ForVotes.Clone()
	cpy.AgainstVotes = p.AgainstVotes.Clone()
	cpy.AbstainVotes = p.AbstainVotes.Clone()
	return &cpy
}

// TotalVotes returns the sum of all three tally buckets.
func (p *Proposal) TotalVotes() *uint256.Int {
	total := new(uint256.Int).Add(p.ForVotes, p.AgainstVotes)
	return total.Add(total, p.AbstainVotes)
}

// VoteRecord represents a cast vote
type VoteRecord struct {
	ProposalID common.Hash
	Voter      common.Address
	Support    VoteType
	Weight     *uint256.Int // voting power at the proposal snapshot
	Reason     string
	Block      uint64 // block the vote was cast in
}

// Operation is a batch scheduled in the timelock
type Operation struct {
	ID          common.Hash
	Targets     []common.Address
	Values      []*uint256.Int
	Payloads    [][]byte
	Predecessor common.Hash
	Salt        common.Hash
	Delay       uint64
}

// GovernorConfig holds the governance parameters
type GovernorConfig struct {
	VotingDelay       uint64       // blocks between propose and vote start
	VotingPeriod      uint64       // blocks the vote stays open
	ProposalThreshold *uint256.Int // votes required to propose
	QuorumNumerator   uint64       // quorum as a fraction of total supply
	QuorumDenominator uint64
	// GracePeriod is how long, in seconds after its ETA, a queued proposal
	// stays executable. Zero means queued proposals never expire.
	GracePeriod uint64
	// Cancellers may cancel any proposal that has not been executed.
	Cancellers []common.Address
}

// DefaultGovernorConfig returns the default governance parameters
func DefaultGovernorConfig() *GovernorConfig {
	return &GovernorConfig{
		VotingDelay:       1, // 1 block
		VotingPeriod:      5, // 5 blocks
		ProposalThreshold: new(uint256.Int),
		QuorumNumerator:   4, // 4% of the total supply
		QuorumDenominator: 100,
		GracePeriod:       0, // no expiry
	}
}

func (c *GovernorConfig) copy() *GovernorConfig {
	cpy := *c
	if c.ProposalThreshold != nil {
		cpy.ProposalThreshold = c.ProposalThreshold.Clone()
	} else {
		cpy.ProposalThreshold = new(uint256.Int)
	}
	cpy.Cancellers = append([]common.Address(nil), c.Cancellers...)
	return &cpy
}

// Validate checks the parameters for consistency.
func (c *GovernorConfig) Validate() error {
	if c.VotingPeriod == 0 {
		return ErrInvalidVotingPeriod
	}
	if c.QuorumDenominator == 0 || c.QuorumNumerator > c.QuorumDenominator {
		return ErrInvalidQuorumFraction
	}
	return nil
}

// TimelockConfig holds the timelock setup
type TimelockConfig struct {
	MinDelay   uint64           // seconds
	Proposers  []common.Address // granted proposer and canceller
	Executors  []common.Address // the zero address opens execution to anyone
	Cancellers []common.Address
	Admin      common.Address // optional external admin, zero for none
}

// DefaultTimelockConfig returns the default timelock setup
func DefaultTimelockConfig() *TimelockConfig {
	return &TimelockConfig{
		MinDelay: 3600, // 1 hour
	}
}

func cloneAmounts(values []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = new(uint256.Int)
		} else {
			out[i] = v.Clone()
		}
	}
	return out
}
