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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gofrs/flock"
)

// FileStore keeps records in a single JSON document of the form
// {"<chainId>": [records...]}. Writes go to a temporary file that is renamed
// over the document, under an advisory file lock shared with other
// processes using the same path.
type FileStore struct {
	mu   sync.Mutex // flock does not exclude goroutines of one process
	path string
	lock *flock.Flock
	log  log.Logger
}

type fileDocument map[string][]*ProposalRecord

// NewFileStore opens the document at path. The file need not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
		log:  log.New("store", path),
	}, nil
}

// Put implements Store.
func (s *FileStore) Put(rec *ProposalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	key := strconv.FormatUint(rec.ChainID, 10)
	records := doc[key]
	replaced := false
	for i, existing := range records {
		if existing.DescriptionHash == rec.DescriptionHash {
			records[i] = rec.Copy()
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec.Copy())
	}
	doc[key] = records
	if err := s.write(doc); err != nil {
		return err
	}
	s.log.Debug("Stored proposal record", "chain", rec.ChainID, "id", rec.ProposalID, "stage", rec.Stage)
	return nil
}

// Get implements Store.
func (s *FileStore) Get(chainID uint64, descriptionHash common.Hash) (*ProposalRecord, error) {
	records, err := s.List(chainID)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.DescriptionHash == descriptionHash {
			return rec, nil
		}
	}
	return nil, ErrNotFound
}

// List implements Store.
func (s *FileStore) List(chainID uint64) ([]*ProposalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc[strconv.FormatUint(chainID, 10)], nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return s.lock.Close()
}

// read parses the document. A missing file is an empty document; anything
// that does not parse is ErrCorrupt.
func (s *FileStore) read() (fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(fileDocument), nil
	}
	if err != nil {
		return nil, err
	}
	doc := make(fileDocument)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	for chain, records := range doc {
		for _, rec := range records {
			if rec == nil || len(rec.Targets) == 0 || len(rec.Targets) != len(rec.Values) || len(rec.Targets) != len(rec.Calldatas) {
				return nil, fmt.Errorf("%w: %s: incomplete record for chain %s", ErrCorrupt, s.path, chain)
			}
		}
	}
	return doc, nil
}

func (s *FileStore) write(doc fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
