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
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethgov/governor/ledger"
	"github.com/holiman/uint256"
)

const governorABIJSON = `[
	{"type":"function","name":"propose","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"calldatas","type":"bytes[]"},{"name":"description","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"castVote","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"support","type":"uint8"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"castVoteWithReason","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"support","type":"uint8"},{"name":"reason","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"queue","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"calldatas","type":"bytes[]"},{"name":"descriptionHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"execute","stateMutability":"payable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"calldatas","type":"bytes[]"},{"name":"descriptionHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"calldatas","type":"bytes[]"},{"name":"descriptionHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"state","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"hashProposal","stateMutability":"pure","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"calldatas","type":"bytes[]"},{"name":"descriptionHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"proposalSnapshot","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"proposalDeadline","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"proposalEta","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"proposalProposer","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"hasVoted","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"proposalVotes","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"againstVotes","type":"uint256"},{"name":"forVotes","type":"uint256"},{"name":"abstainVotes","type":"uint256"}]},
	{"type":"function","name":"quorum","stateMutability":"view","inputs":[{"name":"timepoint","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"votingDelay","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"votingPeriod","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"proposalThreshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"clock","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint48"}]},
	{"type":"function","name":"quorumNumerator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"quorumDenominator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"timelock","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"setVotingDelay","stateMutability":"nonpayable","inputs":[{"name":"newVotingDelay","type":"uint48"}],"outputs":[]},
	{"type":"function","name":"setVotingPeriod","stateMutability":"nonpayable","inputs":[{"name":"newVotingPeriod","type":"uint32"}],"outputs":[]},
	{"type":"function","name":"setProposalThreshold","stateMutability":"nonpayable","inputs":[{"name":"newProposalThreshold","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"updateQuorumNumerator","stateMutability":"nonpayable","inputs":[{"name":"newQuorumNumerator","type":"uint256"}],"outputs":[]},
	{"type":"error","name":"GovernorNonexistentProposal","inputs":[{"name":"proposalId","type":"uint256"}]},
	{"type":"error","name":"GovernorUnexpectedProposalState","inputs":[{"name":"proposalId","type":"uint256"},{"name":"current","type":"uint8"},{"name":"expectedStates","type":"bytes32"}]},
	{"type":"error","name":"GovernorAlreadyCastVote","inputs":[{"name":"voter","type":"address"}]},
	{"type":"error","name":"GovernorInvalidVoteType","inputs":[]},
	{"type":"error","name":"GovernorInsufficientProposerVotes","inputs":[{"name":"proposer","type":"address"},{"name":"votes","type":"uint256"},{"name":"threshold","type":"uint256"}]},
	{"type":"error","name":"GovernorInvalidProposalLength","inputs":[{"name":"targets","type":"uint256"},{"name":"calldatas","type":"uint256"},{"name":"values","type":"uint256"}]},
	{"type":"error","name":"GovernorOnlyExecutor","inputs":[{"name":"account","type":"address"}]},
	{"type":"error","name":"GovernorOnlyProposer","inputs":[{"name":"account","type":"address"}]},
	{"type":"error","name":"GovernorInvalidVotingPeriod","inputs":[{"name":"votingPeriod","type":"uint256"}]},
	{"type":"error","name":"GovernorInvalidQuorumFraction","inputs":[{"name":"quorumNumerator","type":"uint256"},{"name":"quorumDenominator","type":"uint256"}]},
	{"type":"error","name":"ERC5805FutureLookup","inputs":[{"name":"timepoint","type":"uint256"},{"name":"clock","type":"uint48"}]}
]`

const timelockABIJSON = `[
	{"type":"function","name":"getMinDelay","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"hasRole","stateMutability":"view","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isOperation","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isOperationPending","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isOperationReady","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isOperationDone","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getTimestamp","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"hashOperationBatch","stateMutability":"pure","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"payloads","type":"bytes[]"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"scheduleBatch","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"payloads","type":"bytes[]"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"},{"name":"delay","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"executeBatch","stateMutability":"payable","inputs":[{"name":"targets","type":"address[]"},{"name":"values","type":"uint256[]"},{"name":"payloads","type":"bytes[]"},{"name":"predecessor","type":"bytes32"},{"name":"salt","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[{"name":"id","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"updateDelay","stateMutability":"nonpayable","inputs":[{"name":"newDelay","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"grantRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"revokeRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"renounceRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"bytes32"},{"name":"callerConfirmation","type":"address"}],"outputs":[]},
	{"type":"function","name":"PROPOSER_ROLE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"EXECUTOR_ROLE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"CANCELLER_ROLE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"DEFAULT_ADMIN_ROLE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"error","name":"TimelockInsufficientDelay","inputs":[{"name":"delay","type":"uint256"},{"name":"minDelay","type":"uint256"}]},
	{"type":"error","name":"TimelockUnexpectedOperationState","inputs":[{"name":"operationId","type":"bytes32"},{"name":"expectedStates","type":"bytes32"}]},
	{"type":"error","name":"TimelockUnexecutedPredecessor","inputs":[{"name":"predecessorId","type":"bytes32"}]},
	{"type":"error","name":"TimelockUnauthorizedCaller","inputs":[{"name":"caller","type":"address"}]},
	{"type":"error","name":"TimelockInvalidOperationLength","inputs":[{"name":"targets","type":"uint256"},{"name":"payloads","type":"uint256"},{"name":"values","type":"uint256"}]},
	{"type":"error","name":"AccessControlUnauthorizedAccount","inputs":[{"name":"account","type":"address"},{"name":"neededRole","type":"bytes32"}]},
	{"type":"error","name":"FailedCall","inputs":[]},
	{"type":"error","name":"FailedInnerCall","inputs":[]}
]`

const tokenABIJSON = `[
	{"type":"function","name":"delegate","stateMutability":"nonpayable","inputs":[{"name":"delegatee","type":"address"}],"outputs":[]},
	{"type":"function","name":"delegates","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getVotes","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPastVotes","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"timepoint","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPastTotalSupply","stateMutability":"view","inputs":[{"name":"timepoint","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"numCheckpoints","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"clock","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint48"}]}
]`

var (
	// GovernorABI is the interface of the governor contract.
	GovernorABI = mustParseABI(governorABIJSON)
	// TimelockABI is the interface of the timelock controller.
	TimelockABI = mustParseABI(timelockABIJSON)
	// TokenABI is the interface of the votes token.
	TokenABI = mustParseABI(tokenABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// unpackCall resolves the method selected by input and decodes its arguments.
func unpackCall(contract *abi.ABI, input []byte) (*abi.Method, []interface{}, error) {
	if len(input) < 4 {
		return nil, nil, ledger.ErrShortCalldata
	}
	method, err := contract.MethodById(input[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %x", ErrUnknownSelector, input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

// batchArgs decodes the (targets, values, calldatas) triple shared by the
// proposal and operation entry points.
func batchArgs(args []interface{}) ([]common.Address, []*uint256.Int, [][]byte, error) {
	values, err := fromBigs(args[1].([]*big.Int))
	if err != nil {
		return nil, nil, nil, err
	}
	return args[0].([]common.Address), values, args[2].([][]byte), nil
}

func proposalID(arg interface{}) common.Hash {
	return common.BigToHash(arg.(*big.Int))
}

func hashArg(arg interface{}) common.Hash {
	return common.Hash(arg.([32]byte))
}

func bigU64(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// Call implements ledger.Contract. Entry points act for the immediate caller
// and write at once, so later calls of the same batch observe the change.
func (g *Governor) Call(env *ledger.Env, input []byte) ([]byte, error) {
	method, args, err := unpackCall(&GovernorABI, input)
	if err != nil {
		return nil, err
	}
	caller := env.Caller()

	switch method.Name {
	case "propose":
		targets, values, calldatas, err := batchArgs(args)
		if err != nil {
			return nil, err
		}
		id, err := g.Propose(caller, targets, values, calldatas, args[3].(string))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(id.Big())

	case "castVote", "castVoteWithReason":
		var reason string
		if len(args) == 3 {
			reason = args[2].(string)
		}
		weight, err := g.CastVoteWithReason(proposalID(args[0]), caller, VoteType(args[1].(uint8)), reason)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(weight.ToBig())

	case "queue", "execute", "cancel":
		targets, values, calldatas, err := batchArgs(args)
		if err != nil {
			return nil, err
		}
		descriptionHash := hashArg(args[3])
		var id common.Hash
		switch method.Name {
		case "queue":
			id, err = g.Queue(caller, targets, values, calldatas, descriptionHash)
		case "execute":
			id, err = g.Execute(caller, targets, values, calldatas, descriptionHash)
		default:
			id, err = g.Cancel(caller, targets, values, calldatas, descriptionHash)
		}
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(id.Big())

	case "hashProposal":
		targets, values, calldatas, err := batchArgs(args)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(HashProposal(targets, values, calldatas, hashArg(args[3])).Big())

	case "state":
		state, err := g.State(proposalID(args[0]))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(uint8(state))

	case "proposalSnapshot", "proposalDeadline", "proposalProposer":
		// Unknown proposals read as zero values.
		p := g.proposals[proposalID(args[0])]
		if p == nil {
			p = &Proposal{}
		}
		switch method.Name {
		case "proposalSnapshot":
			return method.Outputs.Pack(bigU64(p.VoteStart))
		case "proposalDeadline":
			return method.Outputs.Pack(bigU64(p.VoteEnd))
		}
		return method.Outputs.Pack(p.Proposer)

	case "proposalEta":
		return method.Outputs.Pack(bigU64(g.ProposalEta(proposalID(args[0]))))

	case "hasVoted":
		return method.Outputs.Pack(g.HasVoted(proposalID(args[0]), args[1].(common.Address)))

	case "proposalVotes":
		p, err := g.Proposal(proposalID(args[0]))
		if err != nil {
			return method.Outputs.Pack(new(big.Int), new(big.Int), new(big.Int))
		}
		return method.Outputs.Pack(p.AgainstVotes.ToBig(), p.ForVotes.ToBig(), p.AbstainVotes.ToBig())

	case "quorum":
		quorum, err := g.Quorum(args[0].(*big.Int).Uint64())
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(quorum.ToBig())

	case "votingDelay":
		return method.Outputs.Pack(bigU64(g.config.VotingDelay))
	case "votingPeriod":
		return method.Outputs.Pack(bigU64(g.config.VotingPeriod))
	case "proposalThreshold":
		return method.Outputs.Pack(g.config.ProposalThreshold.ToBig())
	case "clock":
		return method.Outputs.Pack(bigU64(g.clock.Clock()))
	case "quorumNumerator":
		return method.Outputs.Pack(g.numerators.Latest().ToBig())
	case "quorumDenominator":
		return method.Outputs.Pack(bigU64(g.config.QuorumDenominator))
	case "timelock":
		return method.Outputs.Pack(g.timelock.Address())

	case "setVotingDelay":
		return nil, g.SetVotingDelay(caller, args[0].(*big.Int).Uint64())

	case "setVotingPeriod":
		return nil, g.SetVotingPeriod(caller, uint64(args[0].(uint32)))

	case "setProposalThreshold":
		threshold, overflow := uint256.FromBig(args[0].(*big.Int))
		if overflow {
			return nil, ErrValueOverflow
		}
		return nil, g.SetProposalThreshold(caller, threshold)

	case "updateQuorumNumerator":
		numerator := args[0].(*big.Int)
		if !numerator.IsUint64() {
			return nil, fmt.Errorf("%w: %s/%d", ErrInvalidQuorumFraction, numerator, g.config.QuorumDenominator)
		}
		return nil, g.UpdateQuorumNumerator(caller, numerator.Uint64())
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, method.Name)
}

// Call implements ledger.Contract.
func (tl *Timelock) Call(env *ledger.Env, input []byte) ([]byte, error) {
	method, args, err := unpackCall(&TimelockABI, input)
	if err != nil {
		return nil, err
	}
	caller := env.Caller()

	switch method.Name {
	case "getMinDelay":
		return method.Outputs.Pack(bigU64(tl.minDelay))
	case "hasRole":
		return method.Outputs.Pack(tl.HasRole(hashArg(args[0]), args[1].(common.Address)))
	case "isOperation":
		return method.Outputs.Pack(tl.IsOperation(hashArg(args[0])))
	case "isOperationPending":
		return method.Outputs.Pack(tl.IsOperationPending(hashArg(args[0])))
	case "isOperationReady":
		return method.Outputs.Pack(tl.IsOperationReady(hashArg(args[0])))
	case "isOperationDone":
		return method.Outputs.Pack(tl.IsOperationDone(hashArg(args[0])))
	case "getTimestamp":
		return method.Outputs.Pack(bigU64(tl.Timestamp(hashArg(args[0]))))
	case "PROPOSER_ROLE":
		return method.Outputs.Pack([32]byte(ProposerRole))
	case "EXECUTOR_ROLE":
		return method.Outputs.Pack([32]byte(ExecutorRole))
	case "CANCELLER_ROLE":
		return method.Outputs.Pack([32]byte(CancellerRole))
	case "DEFAULT_ADMIN_ROLE":
		return method.Outputs.Pack([32]byte(AdminRole))

	case "hashOperationBatch":
		targets, values, payloads, err := batchArgs(args)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack([32]byte(HashOperationBatch(targets, values, payloads, hashArg(args[3]), hashArg(args[4]))))

	case "scheduleBatch", "executeBatch":
		targets, values, payloads, err := batchArgs(args)
		if err != nil {
			return nil, err
		}
		op := &Operation{
			Targets:     targets,
			Values:      values,
			Payloads:    payloads,
			Predecessor: hashArg(args[3]),
			Salt:        hashArg(args[4]),
		}
		if method.Name == "executeBatch" {
			return nil, tl.ExecuteBatch(caller, op)
		}
		delay := args[5].(*big.Int)
		if !delay.IsUint64() {
			return nil, ErrValueOverflow
		}
		op.Delay = delay.Uint64()
		_, err = tl.ScheduleBatch(caller, op)
		return nil, err

	case "cancel":
		return nil, tl.Cancel(caller, hashArg(args[0]))

	case "updateDelay":
		delay := args[0].(*big.Int)
		if !delay.IsUint64() {
			return nil, ErrValueOverflow
		}
		return nil, tl.UpdateDelay(caller, delay.Uint64())

	case "grantRole":
		return nil, tl.GrantRole(caller, hashArg(args[0]), args[1].(common.Address))

	case "revokeRole":
		return nil, tl.RevokeRole(caller, hashArg(args[0]), args[1].(common.Address))

	case "renounceRole":
		if confirm := args[1].(common.Address); confirm != caller {
			return nil, fmt.Errorf("%w: %s renouncing for %s", ErrUnauthorized, caller, confirm)
		}
		return nil, tl.RenounceRole(caller, hashArg(args[0]))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, method.Name)
}

// Call implements ledger.Contract.
func (t *VotesToken) Call(env *ledger.Env, input []byte) ([]byte, error) {
	method, args, err := unpackCall(&TokenABI, input)
	if err != nil {
		return nil, err
	}
	caller := env.Caller()

	switch method.Name {
	case "delegate":
		return nil, t.Delegate(caller, args[0].(common.Address))
	case "delegates":
		return method.Outputs.Pack(t.Delegates(args[0].(common.Address)))
	case "getVotes":
		return method.Outputs.Pack(t.Votes(args[0].(common.Address)).ToBig())
	case "getPastVotes":
		votes, err := t.VotingPowerAt(args[0].(common.Address), args[1].(*big.Int).Uint64())
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(votes.ToBig())
	case "getPastTotalSupply":
		supply, err := t.TotalSupplyAt(args[0].(*big.Int).Uint64())
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(supply.ToBig())
	case "balanceOf":
		return method.Outputs.Pack(t.BalanceOf(args[0].(common.Address)).ToBig())
	case "totalSupply":
		return method.Outputs.Pack(t.TotalSupply().ToBig())
	case "numCheckpoints":
		return method.Outputs.Pack(uint32(t.NumCheckpoints(args[0].(common.Address))))
	case "clock":
		return method.Outputs.Pack(bigU64(t.clock.Clock()))
	case "transfer":
		to := args[0].(common.Address)
		amount, overflow := uint256.FromBig(args[1].(*big.Int))
		if overflow {
			return nil, ErrValueOverflow
		}
		if err := t.Transfer(caller, to, amount); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, method.Name)
}
