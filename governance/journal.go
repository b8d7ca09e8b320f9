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

// nopJournal drops undo records. Contracts use it until they are deployed on
// a chain that can revert them.
type nopJournal struct{}

func (nopJournal) Record(func()) {}

// setEntry writes m[k] = v and records how to restore the previous entry.
func setEntry[K comparable, V any](j Journal, m map[K]V, k K, v V) {
	old, existed := m[k]
	m[k] = v
	j.Record(func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// deleteEntry removes m[k] and records how to restore it.
func deleteEntry[K comparable, V any](j Journal, m map[K]V, k K) {
	old, existed := m[k]
	if !existed {
		return
	}
	delete(m, k)
	j.Record(func() { m[k] = old })
}

// setValue assigns v to *ptr and records how to restore the old value.
func setValue[V any](j Journal, ptr *V, v V) {
	old := *ptr
	*ptr = v
	j.Record(func() { *ptr = old })
}
