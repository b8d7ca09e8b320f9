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

// Package storage persists proposal records between orchestration steps.
package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethgov/governor/governance"
)

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("proposal record not found")
	// ErrCorrupt marks a store that cannot be parsed. It is a configuration
	// error: a half written record must never read as "no proposal".
	ErrCorrupt = fmt.Errorf("%w: corrupt proposal store", governance.ErrConfiguration)
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("proposal store closed")
)

// ProposalRecord is what the orchestrator remembers about a proposal. It
// holds everything needed to rederive the proposal and operation ids.
type ProposalRecord struct {
	ChainID         uint64           `json:"chainId"`
	ProposalID      common.Hash      `json:"proposalId"`
	DescriptionHash common.Hash      `json:"descriptionHash"`
	Description     string           `json:"description"`
	Targets         []common.Address `json:"targets"`
	Values          []*big.Int       `json:"values"`
	Calldatas       []hexutil.Bytes  `json:"calldatas"`
	OperationID     common.Hash      `json:"operationId"`
	Stage           string           `json:"stage"`
	UpdatedAt       uint64           `json:"updatedAt"`
}

// Copy returns a deep copy of the record.
func (r *ProposalRecord) Copy() *ProposalRecord {
	cpy := *r
	cpy.Targets = append([]common.Address(nil), r.Targets...)
	cpy.Values = make([]*big.Int, len(r.Values))
	for i, v := range r.Values {
		cpy.Values[i] = new(big.Int).Set(v)
	}
	cpy.Calldatas = make([]hexutil.Bytes, len(r.Calldatas))
	for i, data := range r.Calldatas {
		cpy.Calldatas[i] = common.CopyBytes(data)
	}
	return &cpy
}

// Store keeps proposal records keyed by (chain id, description hash).
type Store interface {
	// Put inserts or replaces the record for its key.
	Put(rec *ProposalRecord) error

	// Get returns the record for a key, ErrNotFound if there is none.
	Get(chainID uint64, descriptionHash common.Hash) (*ProposalRecord, error)

	// List returns all records of a chain in insertion order.
	List(chainID uint64) ([]*ProposalRecord, error)

	// Close releases the store.
	Close() error
}
