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

package govclient

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethgov/governor/governance"
	"github.com/ethgov/governor/ledger"
)

const defaultPollInterval = 100 * time.Millisecond

// Simulated is a Backend over the in-process ledger. Calls are mined as soon
// as they are sent; confirmations only grow as later blocks are mined.
type Simulated struct {
	chain         *ledger.Chain
	governor      common.Address
	from          common.Address
	confirmations uint64
	poll          time.Duration
	log           log.Logger
}

// NewSimulated returns a backend sending from the given account.
func NewSimulated(chain *ledger.Chain, governor, from common.Address, confirmations uint64) (*Simulated, error) {
	if confirmations == 0 {
		return nil, fmt.Errorf("%w: %w", governance.ErrConfiguration, errBadConfirmation)
	}
	if !chain.HasCode(governor) {
		return nil, fmt.Errorf("%w: no governor at %s", governance.ErrConfiguration, governor)
	}
	return &Simulated{
		chain:         chain,
		governor:      governor,
		from:          from,
		confirmations: confirmations,
		poll:          defaultPollInterval,
		log:           log.New("backend", "simulated", "account", from),
	}, nil
}

// As returns a backend on the same chain sending from another account.
func (s *Simulated) As(from common.Address) *Simulated {
	cpy := *s
	cpy.from = from
	cpy.log = log.New("backend", "simulated", "account", from)
	return &cpy
}

// Account implements Backend.
func (s *Simulated) Account() common.Address { return s.from }

// Confirmations implements Backend.
func (s *Simulated) Confirmations() uint64 { return s.confirmations }

// Governor implements Backend.
func (s *Simulated) Governor() common.Address { return s.governor }

// ChainID implements Backend.
func (s *Simulated) ChainID(context.Context) (uint64, error) { return s.chain.ChainID(), nil }

// Head implements Backend.
func (s *Simulated) Head(context.Context) (Head, error) {
	h := s.chain.Head()
	return Head{Number: h.Number, Time: h.Time}, nil
}

// Propose implements Backend.
func (s *Simulated) Propose(ctx context.Context, p *ProposalInput) (common.Hash, error) {
	input, err := packBatch("propose", p)
	if err != nil {
		return common.Hash{}, err
	}
	out, err := s.send(ctx, "propose", input)
	if err != nil {
		return common.Hash{}, err
	}
	res, err := governance.GovernorABI.Unpack("propose", out)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BigToHash(res[0].(*big.Int)), nil
}

// CastVote implements Backend.
func (s *Simulated) CastVote(ctx context.Context, id common.Hash, support governance.VoteType, reason string) error {
	input, err := governance.GovernorABI.Pack("castVoteWithReason", id.Big(), uint8(support), reason)
	if err != nil {
		return err
	}
	_, err = s.send(ctx, "castVoteWithReason", input)
	return err
}

// Queue implements Backend.
func (s *Simulated) Queue(ctx context.Context, p *ProposalInput) error {
	return s.sendBatch(ctx, "queue", p)
}

// Execute implements Backend.
func (s *Simulated) Execute(ctx context.Context, p *ProposalInput) error {
	return s.sendBatch(ctx, "execute", p)
}

// Cancel implements Backend.
func (s *Simulated) Cancel(ctx context.Context, p *ProposalInput) error {
	return s.sendBatch(ctx, "cancel", p)
}

// State implements Backend.
func (s *Simulated) State(ctx context.Context, id common.Hash) (governance.ProposalState, error) {
	return readState(ctx, s.call, id)
}

// Proposal implements Backend.
func (s *Simulated) Proposal(ctx context.Context, id common.Hash) (*ProposalInfo, error) {
	return readProposal(ctx, s.call, id)
}

// HasVoted implements Backend.
func (s *Simulated) HasVoted(ctx context.Context, id common.Hash, account common.Address) (bool, error) {
	return readHasVoted(ctx, s.call, id, account)
}

func (s *Simulated) call(ctx context.Context, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.chain.CallContract(s.from, s.governor, input)
}

func (s *Simulated) sendBatch(ctx context.Context, method string, p *ProposalInput) error {
	input, err := packBatch(method, p)
	if err != nil {
		return err
	}
	_, err = s.send(ctx, method, input)
	return err
}

// send mines input as a transaction to the governor and waits for the
// configured confirmations.
func (s *Simulated) send(ctx context.Context, method string, input []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	receipt, err := s.chain.Transact(s.from, func(tx *ledger.Tx) error {
		var err error
		out, err = tx.Call(s.governor, nil, input)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if err := s.waitConfirmed(ctx, receipt.TxHash); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	s.log.Debug("Confirmed transaction", "method", method, "hash", receipt.TxHash, "block", receipt.BlockNumber)
	return out, nil
}

func (s *Simulated) waitConfirmed(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		n, err := s.chain.Confirmations(hash)
		if err != nil {
			return err
		}
		if n >= s.confirmations {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d of %d confirmations for %s: %w", governance.ErrTransient, n, s.confirmations, hash, ctx.Err())
		case <-ticker.C:
		}
	}
}
