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
	"sort"

	"github.com/holiman/uint256"
)

// Checkpoint is a value valid from block Key onwards
type Checkpoint struct {
	Key   uint64
	Value *uint256.Int
}

// Checkpoints is an append-only history of values ordered by key.
type Checkpoints struct {
	items []Checkpoint
}

// Push records value at key. Pushing at the latest key overwrites it, pushing
// at an older key fails.
func (c *Checkpoints) Push(key uint64, value *uint256.Int) error {
	if n := len(c.items); n > 0 {
		last := &c.items[n-1]
		if last.Key > key {
			return ErrCheckpointOutOfOrder
		}
		if last.Key == key {
			last.Value = value.Clone()
			return nil
		}
	}
	c.items = append(c.items, Checkpoint{Key: key, Value: value.Clone()})
	return nil
}

// push is Push with the previous history recorded in j.
func (c *Checkpoints) push(j Journal, key uint64, value *uint256.Int) error {
	n := len(c.items)
	var last Checkpoint
	if n > 0 {
		last = c.items[n-1]
	}
	if err := c.Push(key, value); err != nil {
		return err
	}
	j.Record(func() {
		c.items = c.items[:n]
		if n > 0 {
			c.items[n-1] = last
		}
	})
	return nil
}

// Latest returns the most recent value, zero if empty.
func (c *Checkpoints) Latest() *uint256.Int {
	if len(c.items) == 0 {
		return new(uint256.Int)
	}
	return c.items[len(c.items)-1].Value.Clone()
}

// UpperLookup returns the value of the last checkpoint with a key lower or
// equal to key, zero if there is none.
func (c *Checkpoints) UpperLookup(key uint64) *uint256.Int {
	idx := sort.Search(len(c.items), func(i int) bool {
		return c.items[i].Key > key
	})
	if idx == 0 {
		return new(uint256.Int)
	}
	return c.items[idx-1].Value.Clone()
}

// Len returns the number of checkpoints.
func (c *Checkpoints) Len() int { return len(c.items) }

// At returns the checkpoint at position i.
func (c *Checkpoints) At(i int) Checkpoint {
	cp := c.items[i]
	return Checkpoint{Key: cp.Key, Value: cp.Value.Clone()}
}
