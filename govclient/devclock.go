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

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethgov/governor/ledger"
)

// SimulatedClock advances the in-process ledger.
type SimulatedClock struct {
	chain *ledger.Chain
}

// NewSimulatedClock returns a DevClock for chain.
func NewSimulatedClock(chain *ledger.Chain) *SimulatedClock {
	return &SimulatedClock{chain: chain}
}

// MoveBlocks implements DevClock.
func (c *SimulatedClock) MoveBlocks(ctx context.Context, n uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.chain.AdvanceBlocks(n)
	return nil
}

// MoveTime implements DevClock.
func (c *SimulatedClock) MoveTime(ctx context.Context, seconds uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.chain.AdvanceTime(seconds)
	return nil
}

// RPCClock advances a development node through its evm_mine and
// evm_increaseTime methods.
type RPCClock struct {
	client *rpc.Client
}

// NewRPCClock returns a DevClock talking to client.
func NewRPCClock(client *rpc.Client) *RPCClock {
	return &RPCClock{client: client}
}

// MoveBlocks implements DevClock.
func (c *RPCClock) MoveBlocks(ctx context.Context, n uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := c.client.CallContext(ctx, nil, "evm_mine"); err != nil {
			return decodeError(err)
		}
	}
	log.Info("Moved blocks", "count", n)
	return nil
}

// MoveTime implements DevClock.
func (c *RPCClock) MoveTime(ctx context.Context, seconds uint64) error {
	if err := c.client.CallContext(ctx, nil, "evm_increaseTime", seconds); err != nil {
		return decodeError(err)
	}
	log.Info("Moved time", "seconds", seconds)
	return nil
}
