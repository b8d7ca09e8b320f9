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

package storage

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type recordKey struct {
	chainID         uint64
	descriptionHash common.Hash
}

// MemoryStore is a Store kept in memory, for tests and simulated chains.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]*ProposalRecord
	order   map[uint64][]common.Hash
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]*ProposalRecord),
		order:   make(map[uint64][]common.Hash),
	}
}

// Put implements Store.
func (s *MemoryStore) Put(rec *ProposalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	key := recordKey{rec.ChainID, rec.DescriptionHash}
	if _, ok := s.records[key]; !ok {
		s.order[rec.ChainID] = append(s.order[rec.ChainID], rec.DescriptionHash)
	}
	s.records[key] = rec.Copy()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(chainID uint64, descriptionHash common.Hash) (*ProposalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	rec, ok := s.records[recordKey{chainID, descriptionHash}]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Copy(), nil
}

// List implements Store.
func (s *MemoryStore) List(chainID uint64) ([]*ProposalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make([]*ProposalRecord, 0, len(s.order[chainID]))
	for _, h := range s.order[chainID] {
		out = append(out, s.records[recordKey{chainID, h}].Copy())
	}
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
