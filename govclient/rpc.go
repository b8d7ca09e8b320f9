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
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethgov/governor/governance"
)

var errNoKey = errors.New("no signing key")

// RPCConfig configures a JSON-RPC backend.
type RPCConfig struct {
	URL           string
	Governor      common.Address
	Key           *ecdsa.PrivateKey
	Confirmations uint64
	PollInterval  time.Duration // receipt and head polling, defaults to 1s
}

// RPC is a Backend for a governor deployed on an Ethereum node.
type RPC struct {
	raw           *rpc.Client
	client        *ethclient.Client
	governor      common.Address
	key           *ecdsa.PrivateKey
	from          common.Address
	chainID       *big.Int
	confirmations uint64
	poll          time.Duration
	log           log.Logger
}

// Dial connects to the node at cfg.URL.
func Dial(ctx context.Context, cfg RPCConfig) (*RPC, error) {
	if err := checkRPCConfig(cfg); err != nil {
		return nil, err
	}
	raw, err := rpc.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, decodeError(err))
	}
	b, err := NewRPC(ctx, raw, cfg)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return b, nil
}

// NewRPC wraps an established connection.
func NewRPC(ctx context.Context, raw *rpc.Client, cfg RPCConfig) (*RPC, error) {
	if err := checkRPCConfig(cfg); err != nil {
		return nil, err
	}
	client := ethclient.NewClient(raw)
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", decodeError(err))
	}
	poll := cfg.PollInterval
	if poll == 0 {
		poll = time.Second
	}
	from := crypto.PubkeyToAddress(cfg.Key.PublicKey)
	return &RPC{
		raw:           raw,
		client:        client,
		governor:      cfg.Governor,
		key:           cfg.Key,
		from:          from,
		chainID:       chainID,
		confirmations: cfg.Confirmations,
		poll:          poll,
		log:           log.New("backend", "rpc", "account", from),
	}, nil
}

func checkRPCConfig(cfg RPCConfig) error {
	if cfg.Key == nil {
		return fmt.Errorf("%w: %w", governance.ErrConfiguration, errNoKey)
	}
	if cfg.Confirmations == 0 {
		return fmt.Errorf("%w: %w", governance.ErrConfiguration, errBadConfirmation)
	}
	if cfg.Governor == (common.Address{}) {
		return fmt.Errorf("%w: governor address not set", governance.ErrConfiguration)
	}
	return nil
}

// Close drops the connection.
func (b *RPC) Close() { b.raw.Close() }

// DevClock returns a clock over the same connection. Only development
// nodes answer its calls.
func (b *RPC) DevClock() *RPCClock { return NewRPCClock(b.raw) }

// Account implements Backend.
func (b *RPC) Account() common.Address { return b.from }

// Confirmations implements Backend.
func (b *RPC) Confirmations() uint64 { return b.confirmations }

// Governor implements Backend.
func (b *RPC) Governor() common.Address { return b.governor }

// ChainID implements Backend.
func (b *RPC) ChainID(context.Context) (uint64, error) { return b.chainID.Uint64(), nil }

// Head implements Backend.
func (b *RPC) Head(ctx context.Context) (Head, error) {
	h, err := b.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return Head{}, decodeError(err)
	}
	return Head{Number: h.Number.Uint64(), Time: h.Time}, nil
}

// Propose implements Backend.
func (b *RPC) Propose(ctx context.Context, p *ProposalInput) (common.Hash, error) {
	input, err := packBatch("propose", p)
	if err != nil {
		return common.Hash{}, err
	}
	if err := b.send(ctx, "propose", input); err != nil {
		return common.Hash{}, err
	}
	return p.ID(), nil
}

// CastVote implements Backend.
func (b *RPC) CastVote(ctx context.Context, id common.Hash, support governance.VoteType, reason string) error {
	input, err := governance.GovernorABI.Pack("castVoteWithReason", id.Big(), uint8(support), reason)
	if err != nil {
		return err
	}
	return b.send(ctx, "castVoteWithReason", input)
}

// Queue implements Backend.
func (b *RPC) Queue(ctx context.Context, p *ProposalInput) error {
	return b.sendBatch(ctx, "queue", p)
}

// Execute implements Backend.
func (b *RPC) Execute(ctx context.Context, p *ProposalInput) error {
	return b.sendBatch(ctx, "execute", p)
}

// Cancel implements Backend.
func (b *RPC) Cancel(ctx context.Context, p *ProposalInput) error {
	return b.sendBatch(ctx, "cancel", p)
}

// State implements Backend.
func (b *RPC) State(ctx context.Context, id common.Hash) (governance.ProposalState, error) {
	return readState(ctx, b.call, id)
}

// Proposal implements Backend.
func (b *RPC) Proposal(ctx context.Context, id common.Hash) (*ProposalInfo, error) {
	return readProposal(ctx, b.call, id)
}

// HasVoted implements Backend.
func (b *RPC) HasVoted(ctx context.Context, id common.Hash, account common.Address) (bool, error) {
	return readHasVoted(ctx, b.call, id, account)
}

func (b *RPC) call(ctx context.Context, input []byte) ([]byte, error) {
	out, err := b.client.CallContract(ctx, ethereum.CallMsg{From: b.from, To: &b.governor, Data: input}, nil)
	if err != nil {
		return nil, decodeError(err)
	}
	return out, nil
}

func (b *RPC) sendBatch(ctx context.Context, method string, p *ProposalInput) error {
	input, err := packBatch(method, p)
	if err != nil {
		return err
	}
	return b.send(ctx, method, input)
}

// send signs and submits input to the governor, then blocks until the
// transaction is mined and confirmed. Gas estimation doubles as a dry run:
// a call that would revert fails here with the decoded contract error.
func (b *RPC) send(ctx context.Context, method string, input []byte) error {
	msg := ethereum.CallMsg{From: b.from, To: &b.governor, Data: input}
	gas, err := b.client.EstimateGas(ctx, msg)
	if err != nil {
		return fmt.Errorf("%s: %w", method, decodeError(err))
	}
	nonce, err := b.client.PendingNonceAt(ctx, b.from)
	if err != nil {
		return fmt.Errorf("%s: nonce: %w", method, decodeError(err))
	}
	txdata, err := b.txData(ctx, nonce, gas, input)
	if err != nil {
		return fmt.Errorf("%s: fees: %w", method, decodeError(err))
	}
	tx, err := types.SignNewTx(b.key, types.LatestSignerForChainID(b.chainID), txdata)
	if err != nil {
		return err
	}
	if err := b.client.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("%s: send: %w", method, decodeError(err))
	}
	b.log.Debug("Sent transaction", "method", method, "hash", tx.Hash(), "nonce", nonce)

	receipt, err := b.waitMined(ctx, tx.Hash())
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s: %w: transaction %s failed in block %d", method, governance.ErrCallReverted, tx.Hash(), receipt.BlockNumber)
	}
	if err := b.waitConfirmed(ctx, receipt.BlockNumber.Uint64()); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	b.log.Debug("Confirmed transaction", "method", method, "hash", tx.Hash(), "block", receipt.BlockNumber)
	return nil
}

// txData prices a dynamic fee transaction, or a legacy one on chains
// without a base fee.
func (b *RPC) txData(ctx context.Context, nonce, gas uint64, input []byte) (types.TxData, error) {
	head, err := b.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	gas += gas / 5
	if head.BaseFee == nil {
		price, err := b.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return &types.LegacyTx{Nonce: nonce, GasPrice: price, Gas: gas, To: &b.governor, Data: input}, nil
	}
	tip, err := b.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, err
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	return &types.DynamicFeeTx{
		ChainID:   b.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &b.governor,
		Data:      input,
	}, nil
}

func (b *RPC) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		receipt, err := b.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, decodeError(err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: transaction %s not mined: %w", governance.ErrTransient, hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// waitConfirmed blocks until block has b.confirmations blocks including
// itself on top of it.
func (b *RPC) waitConfirmed(ctx context.Context, block uint64) error {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	target := block + b.confirmations - 1
	for {
		head, err := b.client.BlockNumber(ctx)
		if err != nil {
			return decodeError(err)
		}
		if head >= target {
			return nil
		}
		var have uint64
		if head >= block {
			have = head - block + 1
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: block %d has %d of %d confirmations: %w", governance.ErrTransient,
				block, have, b.confirmations, ctx.Err())
		case <-ticker.C:
		}
	}
}
