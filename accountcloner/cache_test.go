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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneCacheGetMissReturnsFalse(t *testing.T) {
	c := newCloneCache()
	_, ok := c.get(AccountKeyFromBytes([]byte("absent")))
	assert.False(t, ok)
}

func TestCloneCachePutThenGetRoundTrips(t *testing.T) {
	c := newCloneCache()
	key := AccountKeyFromBytes([]byte("key"))
	outcome := NewClonedOutcome(ChainSnapshot{Key: key, AtSlot: 10}, Signature{})

	c.put(outcome)
	got, ok := c.get(key)

	assert.True(t, ok)
	assert.Equal(t, outcome, got)
}

func TestCloneCachePutDiscardsStaleClonedWriteBehindNewerOne(t *testing.T) {
	c := newCloneCache()
	key := AccountKeyFromBytes([]byte("key"))
	fresh := NewClonedOutcome(ChainSnapshot{Key: key, AtSlot: 20}, Signature{})
	stale := NewClonedOutcome(ChainSnapshot{Key: key, AtSlot: 10}, Signature{})

	c.put(fresh)
	c.put(stale)

	got, ok := c.get(key)
	assert.True(t, ok)
	assert.Equal(t, Slot(20), got.Snapshot.AtSlot)
}

func TestCloneCachePutOverwritesUnclonableWithClonedRegardlessOfSlot(t *testing.T) {
	c := newCloneCache()
	key := AccountKeyFromBytes([]byte("key"))
	refusal := NewUnclonableOutcome(key, ReasonDoesNotAllowUndelegatedAccount, 100)
	cloned := NewClonedOutcome(ChainSnapshot{Key: key, AtSlot: 5}, Signature{})

	c.put(refusal)
	c.put(cloned)

	got, ok := c.get(key)
	assert.True(t, ok)
	assert.True(t, got.Cloned)
}
