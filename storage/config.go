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
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethgov/governor/governance"
)

// Store kinds.
const (
	KindMemory  = "memory"
	KindFile    = "file"
	KindLevelDB = "leveldb"
	// KindMemoryDB runs the database layout on an in-memory database.
	KindMemoryDB = "memorydb"
)

// StoreConfig defines configuration for the storage module
type StoreConfig struct {
	Kind    string // one of the Kind constants
	Path    string // JSON file or database directory
	Cache   int    // leveldb cache in megabytes
	Handles int    // leveldb open file handles
}

// DefaultStoreConfig keeps records in proposals.json.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Kind:    KindFile,
		Path:    "proposals.json",
		Cache:   16,
		Handles: 16,
	}
}

// Open creates the store described by cfg.
func Open(cfg StoreConfig) (Store, error) {
	switch cfg.Kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: file store needs a path", governance.ErrConfiguration)
		}
		return NewFileStore(cfg.Path)
	case KindLevelDB:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: leveldb store needs a path", governance.ErrConfiguration)
		}
		db, err := leveldb.New(cfg.Path, cfg.Cache, cfg.Handles, "govctl/store/", false)
		if err != nil {
			return nil, err
		}
		return NewDBStore(db), nil
	case KindMemoryDB:
		return NewDBStore(memorydb.New()), nil
	}
	return nil, fmt.Errorf("%w: unknown store kind %q", governance.ErrConfiguration, cfg.Kind)
}
