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
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethgov/governor/governance"
	"github.com/stretchr/testify/require"
)

func testRecord(chainID uint64, description string) *ProposalRecord {
	return &ProposalRecord{
		ChainID:         chainID,
		ProposalID:      common.HexToHash("0x1234"),
		DescriptionHash: governance.DescriptionHash(description),
		Description:     description,
		Targets:         []common.Address{common.HexToAddress("0xb0")},
		Values:          []*big.Int{big.NewInt(0)},
		Calldatas:       []hexutil.Bytes{{0x60, 0x57, 0x36, 0x1d}},
		Stage:           "submitted",
		UpdatedAt:       1_700_000_000,
	}
}

func storeImplementations(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "proposals.json"))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"db":     NewDBStore(memorydb.New()),
	}
}

func TestStore_PutGetList(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			first := testRecord(31337, "Proposal #1 - update  value of box to 100")
			second := testRecord(31337, "Proposal #2")
			other := testRecord(11155111, "Proposal #1 - update  value of box to 100")
			for _, rec := range []*ProposalRecord{first, second, other} {
				require.NoError(t, store.Put(rec))
			}

			got, err := store.Get(31337, first.DescriptionHash)
			require.NoError(t, err)
			require.Equal(t, first.ProposalID, got.ProposalID)
			require.Equal(t, first.Description, got.Description)
			require.Equal(t, first.Targets, got.Targets)
			require.Equal(t, 0, first.Values[0].Cmp(got.Values[0]))
			require.Equal(t, first.Calldatas, got.Calldatas)

			list, err := store.List(31337)
			require.NoError(t, err)
			require.Len(t, list, 2)
			require.Equal(t, first.DescriptionHash, list[0].DescriptionHash)
			require.Equal(t, second.DescriptionHash, list[1].DescriptionHash)

			list, err = store.List(1)
			require.NoError(t, err)
			require.Empty(t, list)

			_, err = store.Get(31337, common.Hash{1})
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutReplaces(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			rec := testRecord(31337, "replace")
			require.NoError(t, store.Put(rec))
			require.NoError(t, store.Put(testRecord(31337, "after")))

			rec.Stage = "queued"
			rec.OperationID = common.HexToHash("0xabcd")
			require.NoError(t, store.Put(rec))

			got, err := store.Get(31337, rec.DescriptionHash)
			require.NoError(t, err)
			require.Equal(t, "queued", got.Stage)
			require.Equal(t, rec.OperationID, got.OperationID)

			list, err := store.List(31337)
			require.NoError(t, err)
			require.Len(t, list, 2)
			require.Equal(t, rec.DescriptionHash, list[0].DescriptionHash, "replacing keeps the original position")
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	rec := testRecord(1, "copy")
	require.NoError(t, store.Put(rec))

	rec.Targets[0] = common.Address{}
	got, err := store.Get(1, rec.DescriptionHash)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xb0"), got.Targets[0])

	require.NoError(t, store.Close())
	_, err = store.Get(1, rec.DescriptionHash)
	require.ErrorIs(t, err, ErrClosed)
}

func TestFileStore_Shape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(testRecord(31337, "shape")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"31337": [`)
	require.Contains(t, string(data), `"calldatas": [`)
	require.Contains(t, string(data), `"0x6057361d"`)
}

func TestFileStore_CorruptIsConfigurationError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `{"31337": [{"chainId": 31337, "proposalId": "0x12`},
		{"not json", "proposalId=0x1234"},
		{"incomplete record", `{"31337": [{"chainId": 31337, "targets": ["0x00000000000000000000000000000000000000b0"]}]}`},
		{"null record", `{"31337": [null]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "proposals.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			store, err := NewFileStore(path)
			require.NoError(t, err)
			defer store.Close()

			_, err = store.Get(31337, common.Hash{})
			require.ErrorIs(t, err, ErrCorrupt)
			require.ErrorIs(t, err, governance.ErrConfiguration)
			require.False(t, errors.Is(err, ErrNotFound))
			require.Equal(t, governance.KindConfiguration, governance.Classify(err))

			// A corrupt document is never overwritten.
			require.ErrorIs(t, store.Put(testRecord(31337, "x")), ErrCorrupt)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, tt.content, string(data))
		})
	}
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proposals.json")
	a, err := NewFileStore(path)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewFileStore(path)
	require.NoError(t, err)
	defer b.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		for j, store := range []*FileStore{a, b} {
			wg.Add(1)
			go func(store *FileStore, desc string) {
				defer wg.Done()
				errs <- store.Put(testRecord(31337, desc))
			}(store, fmt.Sprintf("writer %d proposal %d", j, i))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	list, err := a.List(31337)
	require.NoError(t, err)
	require.Len(t, list, 20)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg     StoreConfig
		wantErr bool
	}{
		{StoreConfig{Kind: KindMemory}, false},
		{StoreConfig{Kind: KindMemoryDB}, false},
		{StoreConfig{Kind: KindFile, Path: filepath.Join(dir, "p.json")}, false},
		{StoreConfig{Kind: KindLevelDB, Path: filepath.Join(dir, "db"), Cache: 16, Handles: 16}, false},
		{StoreConfig{Kind: KindFile}, true},
		{StoreConfig{Kind: "redis"}, true},
	}
	for _, tt := range tests {
		store, err := Open(tt.cfg)
		if tt.wantErr {
			require.ErrorIs(t, err, governance.ErrConfiguration, "kind %q", tt.cfg.Kind)
			continue
		}
		require.NoError(t, err, "kind %q", tt.cfg.Kind)
		require.NoError(t, store.Put(testRecord(5, "open")))
		list, err := store.List(5)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NoError(t, store.Close())
	}
}
