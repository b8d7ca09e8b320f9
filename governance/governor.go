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
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
)

// Governor is the proposal lifecycle state machine. Only the tallies, the
// terminal flags and the queued operation are stored; the state of a
// proposal is recomputed from the clock on every call.
//
// Mutating methods validate everything before their first write, so a call
// that returns an error leaves the governor untouched. Once deployed on a
// chain every write is journaled and undone if the enclosing call reverts.
type Governor struct {
	address    common.Address
	config     *GovernorConfig
	clock      Clock
	token      VotingPowerOracle
	timelock   TimelockController
	cancellers mapset.Set[common.Address]
	numerators Checkpoints

	proposals map[common.Hash]*Proposal
	votes     map[common.Hash]map[common.Address]*VoteRecord
	order     []common.Hash
	journal   Journal
	log       log.Logger
}

// NewGovernor creates a governor at address voting with token and executing
// through timelock.
func NewGovernor(address common.Address, config *GovernorConfig, clock Clock, token VotingPowerOracle, timelock TimelockController) (*Governor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	g := &Governor{
		address:    address,
		config:     config.copy(),
		clock:      clock,
		token:      token,
		timelock:   timelock,
		cancellers: mapset.NewThreadUnsafeSet[common.Address](config.Cancellers...),
		proposals:  make(map[common.Hash]*Proposal),
		votes:      make(map[common.Hash]map[common.Address]*VoteRecord),
		journal:    nopJournal{},
		log:        log.New("governor", address),
	}
	if err := g.numerators.Push(clock.Clock(), uint256.NewInt(config.QuorumNumerator)); err != nil {
		return nil, err
	}
	return g, nil
}

// Address returns the governor address.
func (g *Governor) Address() common.Address { return g.address }

// Timelock returns the timelock proposals execute through.
func (g *Governor) Timelock() TimelockController { return g.timelock }

// Propose creates a proposal and returns its id.
func (g *Governor) Propose(proposer common.Address, targets []common.Address, values []*uint256.Int, calldatas [][]byte, description string) (common.Hash, error) {
	if len(targets) == 0 || len(targets) != len(values) || len(targets) != len(calldatas) {
		return common.Hash{}, fmt.Errorf("%w: targets=%d values=%d calldatas=%d",
			ErrInvalidProposalLength, len(targets), len(values), len(calldatas))
	}
	descriptionHash := DescriptionHash(description)
	id := HashProposal(targets, values, calldatas, descriptionHash)
	if _, exists := g.proposals[id]; exists {
		return id, fmt.Errorf("%w: %s", ErrProposalAlreadyExists, id)
	}
	now := g.clock.Clock()
	if !g.config.ProposalThreshold.IsZero() {
		var snapshot uint64
		if now > 0 {
			snapshot = now - 1
		}
		votes, err := g.token.VotingPowerAt(proposer, snapshot)
		if err != nil {
			return common.Hash{}, err
		}
		if votes.Lt(g.config.ProposalThreshold) {
			return common.Hash{}, fmt.Errorf("%w: %s has %s, need %s",
				ErrBelowProposalThreshold, proposer, votes.Dec(), g.config.ProposalThreshold.Dec())
		}
	}
	voteStart := now + g.config.VotingDelay
	p := &Proposal{
		ID:              id,
		Proposer:        proposer,
		Targets:         targets,
		Values:          values,
		Calldatas:       calldatas,
		Description:     description,
		DescriptionHash: descriptionHash,
		VoteStart:       voteStart,
		VoteEnd:         voteStart + g.config.VotingPeriod,
		ForVotes:        new(uint256.Int),
		AgainstVotes:    new(uint256.Int),
		AbstainVotes:    new(uint256.Int),
	}
	setEntry(g.journal, g.proposals, id, p.copy())
	setEntry(g.journal, g.votes, id, make(map[common.Address]*VoteRecord))
	setValue(g.journal, &g.order, append(g.order, id))

	g.log.Info("Proposal created", "id", id, "proposer", proposer, "calls", len(targets),
		"voteStart", p.VoteStart, "voteEnd", p.VoteEnd)
	return id, nil
}

// State derives the current state of a proposal.
func (g *Governor) State(id common.Hash) (ProposalState, error) {
	p, ok := g.proposals[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNonexistentProposal, id)
	}
	return g.state(p)
}

func (g *Governor) state(p *Proposal) (ProposalState, error) {
	if p.Executed {
		return ProposalExecuted, nil
	}
	if p.Canceled {
		return ProposalCanceled, nil
	}
	now := g.clock.Clock()
	if now < p.VoteStart {
		return ProposalPending, nil
	}
	if now <= p.VoteEnd {
		return ProposalActive, nil
	}
	succeeded, err := g.voteSucceeded(p)
	if err != nil {
		return 0, err
	}
	if !succeeded {
		return ProposalDefeated, nil
	}
	if p.OperationID == (common.Hash{}) {
		return ProposalSucceeded, nil
	}
	switch {
	case g.timelock.IsOperationDone(p.OperationID):
		// Executed directly through the timelock.
		return ProposalExecuted, nil
	case !g.timelock.IsOperationPending(p.OperationID):
		// Cancelled directly in the timelock.
		return ProposalCanceled, nil
	}
	if g.config.GracePeriod > 0 && g.clock.Timestamp() >= p.ETA+g.config.GracePeriod {
		return ProposalExpired, nil
	}
	return ProposalQueued, nil
}

// voteSucceeded applies the majority and quorum rules to the final tally.
func (g *Governor) voteSucceeded(p *Proposal) (bool, error) {
	if !p.ForVotes.Gt(p.AgainstVotes) {
		return false, nil
	}
	quorum, err := g.Quorum(p.VoteStart)
	if err != nil {
		return false, err
	}
	return !p.TotalVotes().Lt(quorum), nil
}

// Quorum returns the votes needed at timepoint: a fraction of the total
// supply, using the quorum numerator that was in force at that time.
func (g *Governor) Quorum(timepoint uint64) (*uint256.Int, error) {
	supply, err := g.token.TotalSupplyAt(timepoint)
	if err != nil {
		return nil, err
	}
	quorum := new(uint256.Int).Mul(supply, g.numerators.UpperLookup(timepoint))
	return quorum.Div(quorum, uint256.NewInt(g.config.QuorumDenominator)), nil
}

// CastVote records a vote without reason and returns its weight.
func (g *Governor) CastVote(id common.Hash, voter common.Address, support VoteType) (*uint256.Int, error) {
	return g.CastVoteWithReason(id, voter, support, "")
}

// CastVoteWithReason records a vote and returns its weight. The weight is
// the voting power of voter at the proposal snapshot, never at vote time.
func (g *Governor) CastVoteWithReason(id common.Hash, voter common.Address, support VoteType, reason string) (*uint256.Int, error) {
	p, ok := g.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNonexistentProposal, id)
	}
	state, err := g.state(p)
	if err != nil {
		return nil, err
	}
	if state != ProposalActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrProposalNotActive, id, state)
	}
	if !support.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVoteType, support)
	}
	if _, voted := g.votes[id][voter]; voted {
		return nil, fmt.Errorf("%w: %s on %s", ErrAlreadyVoted, voter, id)
	}
	weight, err := g.token.VotingPowerAt(voter, p.VoteStart)
	if err != nil {
		return nil, err
	}
	g.touch(p)
	switch support {
	case VoteFor:
		p.ForVotes.Add(p.ForVotes, weight)
	case VoteAgainst:
		p.AgainstVotes.Add(p.AgainstVotes, weight)
	case VoteAbstain:
		p.AbstainVotes.Add(p.AbstainVotes, weight)
	}
	setEntry(g.journal, g.votes[id], voter, &VoteRecord{
		ProposalID: id,
		Voter:      voter,
		Support:    support,
		Weight:     weight.Clone(),
		Reason:     reason,
		Block:      g.clock.Clock(),
	})
	g.log.Info("Vote cast", "id", id, "voter", voter, "support", support, "weight", weight.Dec())
	return weight, nil
}

// Queue schedules a succeeded proposal in the timelock.
func (g *Governor) Queue(caller common.Address, targets []common.Address, values []*uint256.Int, calldatas [][]byte, descriptionHash common.Hash) (common.Hash, error) {
	id := HashProposal(targets, values, calldatas, descriptionHash)
	p, ok := g.proposals[id]
	if !ok {
		return id, fmt.Errorf("%w: %s", ErrNonexistentProposal, id)
	}
	state, err := g.state(p)
	if err != nil {
		return id, err
	}
	switch state {
	case ProposalSucceeded:
	case ProposalQueued:
		return id, fmt.Errorf("%w: %s", ErrAlreadyQueued, id)
	default:
		return id, fmt.Errorf("%w: %s is %s", ErrProposalNotSucceeded, id, state)
	}
	op := NewOperation(g.address, targets, values, calldatas, descriptionHash)
	op.Delay = g.timelock.MinDelay()
	opID, err := g.timelock.ScheduleBatch(g.address, op)
	if err != nil {
		return id, fmt.Errorf("queue %s: %w", id, err)
	}
	g.touch(p)
	p.OperationID = opID
	p.ETA = g.clock.Timestamp() + op.Delay

	g.log.Info("Proposal queued", "id", id, "operation", opID, "eta", p.ETA)
	return id, nil
}

// Execute runs a queued proposal through the timelock. If any call fails the
// proposal stays queued and may be executed again later.
func (g *Governor) Execute(caller common.Address, targets []common.Address, values []*uint256.Int, calldatas [][]byte, descriptionHash common.Hash) (common.Hash, error) {
	id := HashProposal(targets, values, calldatas, descriptionHash)
	p, ok := g.proposals[id]
	if !ok {
		return id, fmt.Errorf("%w: %s", ErrNonexistentProposal, id)
	}
	state, err := g.state(p)
	if err != nil {
		return id, err
	}
	switch state {
	case ProposalQueued:
	case ProposalExecuted:
		return id, fmt.Errorf("%w: %s", ErrAlreadyExecuted, id)
	default:
		return id, fmt.Errorf("%w: %s is %s", ErrProposalNotQueued, id, state)
	}
	if !g.timelock.IsOperationReady(p.OperationID) {
		return id, fmt.Errorf("%w: %s ready at %d, now %d",
			ErrTimelockNotReady, id, g.timelock.Timestamp(p.OperationID), g.clock.Timestamp())
	}
	op := NewOperation(g.address, targets, values, calldatas, descriptionHash)
	if err := g.timelock.ExecuteBatch(g.address, op); err != nil {
		g.log.Warn("Proposal execution failed", "id", id, "err", err)
		return id, fmt.Errorf("execute %s: %w", id, err)
	}
	g.touch(p)
	p.Executed = true

	g.log.Info("Proposal executed", "id", id, "operation", p.OperationID)
	return id, nil
}

// Cancel cancels a proposal. The proposer may cancel before the vote
// closes; a canceller may cancel anything not yet executed.
func (g *Governor) Cancel(caller common.Address, targets []common.Address, values []*uint256.Int, calldatas [][]byte, descriptionHash common.Hash) (common.Hash, error) {
	id := HashProposal(targets, values, calldatas, descriptionHash)
	p, ok := g.proposals[id]
	if !ok {
		return id, fmt.Errorf("%w: %s", ErrNonexistentProposal, id)
	}
	state, err := g.state(p)
	if err != nil {
		return id, err
	}
	switch state {
	case ProposalExecuted:
		return id, fmt.Errorf("%w: %s", ErrAlreadyExecuted, id)
	case ProposalCanceled:
		return id, fmt.Errorf("%w: %s", ErrAlreadyCanceled, id)
	case ProposalDefeated, ProposalExpired:
		return id, fmt.Errorf("%w: %s is %s", ErrUnexpectedProposalState, id, state)
	}
	isCanceller := g.cancellers.Contains(caller)
	if !isCanceller {
		if caller != p.Proposer {
			return id, fmt.Errorf("%w: %s", ErrUnauthorized, caller)
		}
		if state != ProposalPending && state != ProposalActive {
			return id, fmt.Errorf("%w: proposer cannot cancel %s proposal %s", ErrUnexpectedProposalState, state, id)
		}
	}
	if p.OperationID != (common.Hash{}) && g.timelock.IsOperationPending(p.OperationID) {
		if err := g.timelock.Cancel(g.address, p.OperationID); err != nil {
			return id, fmt.Errorf("cancel %s: %w", id, err)
		}
	}
	g.touch(p)
	p.Canceled = true

	g.log.Info("Proposal canceled", "id", id, "by", caller, "state", state)
	return id, nil
}

// Proposal returns a copy of a proposal.
func (g *Governor) Proposal(id common.Hash) (*Proposal, error) {
	p, ok := g.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNonexistentProposal, id)
	}
	return p.copy(), nil
}

// Proposals returns copies of all proposals in creation order.
func (g *Governor) Proposals() []*Proposal {
	out := make([]*Proposal, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.proposals[id].copy())
	}
	return out
}

// Votes returns the votes cast on a proposal.
func (g *Governor) Votes(id common.Hash) ([]*VoteRecord, error) {
	votes, ok := g.votes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNonexistentProposal, id)
	}
	out := make([]*VoteRecord, 0, len(votes))
	for _, v := range votes {
		cpy := *v
		cpy.Weight = v.Weight.Clone()
		out = append(out, &cpy)
	}
	return out, nil
}

// HasVoted reports whether account voted on a proposal.
func (g *Governor) HasVoted(id common.Hash, account common.Address) bool {
	_, voted := g.votes[id][account]
	return voted
}

// ProposalEta returns the timestamp a queued proposal becomes executable.
func (g *Governor) ProposalEta(id common.Hash) uint64 {
	if p, ok := g.proposals[id]; ok {
		return p.ETA
	}
	return 0
}

// Settings returns a copy of the current parameters.
func (g *Governor) Settings() *GovernorConfig {
	cfg := g.config.copy()
	cfg.Cancellers = g.cancellers.ToSlice()
	return cfg
}

// SetVotingDelay updates the voting delay. Governance only.
func (g *Governor) SetVotingDelay(caller common.Address, delay uint64) error {
	if err := g.onlyGovernance(caller); err != nil {
		return err
	}
	g.log.Info("Voting delay updated", "old", g.config.VotingDelay, "new", delay)
	setValue(g.journal, &g.config.VotingDelay, delay)
	return nil
}

// SetVotingPeriod updates the voting period. Governance only.
func (g *Governor) SetVotingPeriod(caller common.Address, period uint64) error {
	if err := g.onlyGovernance(caller); err != nil {
		return err
	}
	if period == 0 {
		return ErrInvalidVotingPeriod
	}
	g.log.Info("Voting period updated", "old", g.config.VotingPeriod, "new", period)
	setValue(g.journal, &g.config.VotingPeriod, period)
	return nil
}

// SetProposalThreshold updates the proposal threshold. Governance only.
func (g *Governor) SetProposalThreshold(caller common.Address, threshold *uint256.Int) error {
	if err := g.onlyGovernance(caller); err != nil {
		return err
	}
	g.log.Info("Proposal threshold updated", "old", g.config.ProposalThreshold.Dec(), "new", threshold.Dec())
	setValue(g.journal, &g.config.ProposalThreshold, threshold.Clone())
	return nil
}

// UpdateQuorumNumerator changes the quorum fraction for proposals created
// from now on. Governance only.
func (g *Governor) UpdateQuorumNumerator(caller common.Address, numerator uint64) error {
	if err := g.onlyGovernance(caller); err != nil {
		return err
	}
	if numerator > g.config.QuorumDenominator {
		return fmt.Errorf("%w: %d/%d", ErrInvalidQuorumFraction, numerator, g.config.QuorumDenominator)
	}
	if err := g.numerators.push(g.journal, g.clock.Clock(), uint256.NewInt(numerator)); err != nil {
		return err
	}
	g.log.Info("Quorum numerator updated", "old", g.config.QuorumNumerator, "new", numerator)
	setValue(g.journal, &g.config.QuorumNumerator, numerator)
	return nil
}

// QuorumNumerator returns the quorum numerator in force at timepoint.
func (g *Governor) QuorumNumerator(timepoint uint64) uint64 {
	return g.numerators.UpperLookup(timepoint).Uint64()
}

// touch records the current contents of p before it is modified in place.
func (g *Governor) touch(p *Proposal) {
	old := p.copy()
	g.journal.Record(func() { *p = *old })
}

func (g *Governor) onlyGovernance(caller common.Address) error {
	if caller != g.timelock.Address() {
		return fmt.Errorf("%w: %s", ErrOnlyGovernance, caller)
	}
	return nil
}
