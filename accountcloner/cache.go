// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package accountcloner

import (
	"sync"

	log "github.com/erigontech/erigon-lib/log/v3"
)

// cloneCache maps an account key to its last cloning outcome. It is the
// only place the worker's cross-request state for "what did we last do
// with this key" lives.
//
// Invariant: writes for a given key must be externally serialized by the
// caller (the listener-registry single-flight in listeners.go achieves
// this). cloneCache itself only guards against torn reads/writes, not
// against two concurrent refreshes racing each other; see the
// compare-and-skip note on put below.
type cloneCache struct {
	mu      sync.RWMutex
	entries map[AccountKey]CloneOutcome
}

func newCloneCache() *cloneCache {
	return &cloneCache{entries: make(map[AccountKey]CloneOutcome)}
}

func (c *cloneCache) get(key AccountKey) (CloneOutcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.entries[key]
	return o, ok
}

// put records outcome for key. If a Cloned outcome with a strictly higher
// at_slot is already present for the same key, the write is discarded: a
// refresh that was scheduled before a fresher one landed should not undo
// it. This is additional safety on top of single-flight serialization
// (spec.md's §9 open question), not a replacement for it — two refreshes
// for the same key should not be in flight concurrently in the first
// place.
func (c *cloneCache) put(outcome CloneOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[outcome.Key]; ok && existing.Cloned && outcome.Cloned {
		if existing.Snapshot.AtSlot > outcome.Snapshot.AtSlot {
			log.Debug("discarding stale cache write", "key", outcome.Key, "incoming_slot", outcome.Snapshot.AtSlot, "existing_slot", existing.Snapshot.AtSlot)
			return
		}
	}
	c.entries[outcome.Key] = outcome
}
