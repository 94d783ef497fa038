// Copyright The NRI Plugins Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// children maps label value tuples to per-tuple child metrics (cells).
// Lookups of existing children only take the read lock. Children are
// created at most once per tuple and never removed.
type children[T any] struct {
	sync.RWMutex
	name       string
	labelNames []string
	newChild   func(labelValues []string) T
	entries    map[uint64][]*child[T]
}

type child[T any] struct {
	labelValues []string
	cell        T
}

func newChildren[T any](name string, labelNames []string, newChild func([]string) T) *children[T] {
	c := &children[T]{
		name:       name,
		labelNames: labelNames,
		newChild:   newChild,
		entries:    make(map[uint64][]*child[T]),
	}
	if len(labelNames) == 0 {
		c.entries[hashLabelValues(nil)] = []*child[T]{{cell: newChild(nil)}}
	}
	return c
}

// get returns the child for the given label values, creating it if necessary.
func (c *children[T]) get(labelValues ...string) (T, error) {
	if len(labelValues) != len(c.labelNames) {
		var zero T
		return zero, arityError(c.name, len(c.labelNames), len(labelValues))
	}

	h := hashLabelValues(labelValues)

	c.RLock()
	e, ok := c.lookup(h, labelValues)
	c.RUnlock()
	if ok {
		return e.cell, nil
	}

	c.Lock()
	defer c.Unlock()

	if e, ok := c.lookup(h, labelValues); ok {
		return e.cell, nil
	}

	values := append([]string(nil), labelValues...)
	e = &child[T]{labelValues: values, cell: c.newChild(values)}
	c.entries[h] = append(c.entries[h], e)

	return e.cell, nil
}

// lookup must be called with the lock held.
func (c *children[T]) lookup(h uint64, labelValues []string) (*child[T], bool) {
	for _, e := range c.entries[h] {
		if equalStrings(e.labelValues, labelValues) {
			return e, true
		}
	}
	return nil, false
}

// snapshot returns the current children sorted by label values. The
// children themselves are shared, their values are read by the caller.
func (c *children[T]) snapshot() []*child[T] {
	c.RLock()
	all := make([]*child[T], 0, len(c.entries))
	for _, chain := range c.entries {
		all = append(all, chain...)
	}
	c.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return lessStrings(all[i].labelValues, all[j].labelValues)
	})

	return all
}

func hashLabelValues(labelValues []string) uint64 {
	h := xxhash.New()
	for _, v := range labelValues {
		h.WriteString(v)
		h.Write([]byte{0xff})
	}
	return h.Sum64()
}

func lessStrings(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
