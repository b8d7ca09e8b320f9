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
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
)

// recordPrefix + chainID (uint64 big endian) + descriptionHash -> rlp(storedRecord)
var recordPrefix = []byte("gp")

// storedRecord is the rlp layout of a record. Sequence numbers keep List in
// insertion order, since keys sort by description hash.
type storedRecord struct {
	Seq    uint64
	Record *ProposalRecord
}

// DBStore keeps records in a key-value database.
type DBStore struct {
	mu sync.Mutex // serializes sequence allocation
	db ethdb.KeyValueStore
}

// NewDBStore wraps db.
func NewDBStore(db ethdb.KeyValueStore) *DBStore {
	return &DBStore{db: db}
}

func chainPrefix(chainID uint64) []byte {
	key := make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], chainID)
	return key
}

func recordDBKey(chainID uint64, descriptionHash common.Hash) []byte {
	return append(chainPrefix(chainID), descriptionHash.Bytes()...)
}

// Put implements Store.
func (s *DBStore) Put(rec *ProposalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordDBKey(rec.ChainID, rec.DescriptionHash)
	var seq uint64
	existing, err := s.load(key)
	switch {
	case err == nil:
		seq = existing.Seq
	case errors.Is(err, ErrNotFound):
		if seq, err = s.nextSeq(rec.ChainID); err != nil {
			return err
		}
	default:
		return err
	}
	data, err := rlp.EncodeToBytes(&storedRecord{Seq: seq, Record: rec})
	if err != nil {
		return err
	}
	return s.db.Put(key, data)
}

// Get implements Store.
func (s *DBStore) Get(chainID uint64, descriptionHash common.Hash) (*ProposalRecord, error) {
	stored, err := s.load(recordDBKey(chainID, descriptionHash))
	if err != nil {
		return nil, err
	}
	return stored.Record, nil
}

// List implements Store.
func (s *DBStore) List(chainID uint64) ([]*ProposalRecord, error) {
	stored, err := s.scan(chainID)
	if err != nil {
		return nil, err
	}
	out := make([]*ProposalRecord, len(stored))
	for _, st := range stored {
		if st.Seq >= uint64(len(out)) || out[st.Seq] != nil {
			return nil, fmt.Errorf("%w: bad sequence %d", ErrCorrupt, st.Seq)
		}
		out[st.Seq] = st.Record
	}
	return out, nil
}

// Close implements Store.
func (s *DBStore) Close() error {
	return s.db.Close()
}

func (s *DBStore) load(key []byte) (*storedRecord, error) {
	ok, err := s.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	stored := new(storedRecord)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return stored, nil
}

func (s *DBStore) scan(chainID uint64) ([]*storedRecord, error) {
	it := s.db.NewIterator(chainPrefix(chainID), nil)
	defer it.Release()

	var out []*storedRecord
	for it.Next() {
		stored := new(storedRecord)
		if err := rlp.DecodeBytes(it.Value(), stored); err != nil {
			return nil, fmt.Errorf("%w: %x: %v", ErrCorrupt, it.Key(), err)
		}
		out = append(out, stored)
	}
	return out, it.Error()
}

func (s *DBStore) nextSeq(chainID uint64) (uint64, error) {
	stored, err := s.scan(chainID)
	if err != nil {
		return 0, err
	}
	return uint64(len(stored)), nil
}
