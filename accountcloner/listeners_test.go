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

func TestListenerRegistryFirstRegistrantIsReportedAsFirst(t *testing.T) {
	r := newListenerRegistry()
	key := AccountKeyFromBytes([]byte("key"))

	isFirst := r.register(key, make(resultSink, 1))

	assert.True(t, isFirst)
}

func TestListenerRegistrySecondRegistrantJoinsWithoutBeingFirst(t *testing.T) {
	r := newListenerRegistry()
	key := AccountKeyFromBytes([]byte("key"))

	r.register(key, make(resultSink, 1))
	isFirst := r.register(key, make(resultSink, 1))

	assert.False(t, isFirst)
}

func TestListenerRegistryDrainReturnsAllRegisteredSinksAndClearsEntry(t *testing.T) {
	r := newListenerRegistry()
	key := AccountKeyFromBytes([]byte("key"))
	r.register(key, make(resultSink, 1))
	r.register(key, make(resultSink, 1))

	sinks, ok := r.drain(key)
	assert.True(t, ok)
	assert.Len(t, sinks, 2)

	_, ok = r.drain(key)
	assert.False(t, ok)
}

func TestListenerRegistryDrainOnUnknownKeyReportsFalse(t *testing.T) {
	r := newListenerRegistry()
	_, ok := r.drain(AccountKeyFromBytes([]byte("never-registered")))
	assert.False(t, ok)
}
