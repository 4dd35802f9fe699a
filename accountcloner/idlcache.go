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

import lru "github.com/hashicorp/golang-lru/v2"

// idlLookupCache memoizes "did this program have an Anchor/Shank IDL
// account, and if so at which key" so that cloning the same program
// repeatedly doesn't re-derive and re-fetch the IDL address every time.
// A miss (no IDL account at all) is cached too, under a nil *IDLAccount,
// since it's just as expensive to re-derive as a hit.
//
// Bounded rather than unbounded like cloneCache: unlike the clone cache,
// staleness here is harmless (an IDL account essentially never changes
// after a program is deployed), so an LRU eviction policy is strictly a
// memory bound, not a correctness concern.
type idlLookupCache struct {
	cache *lru.Cache[AccountKey, *IDLAccount]
}

func newIDLLookupCache(size int) *idlLookupCache {
	c, err := lru.New[AccountKey, *IDLAccount](size)
	if err != nil {
		// Only returns an error for a non-positive size.
		panic(err)
	}
	return &idlLookupCache{cache: c}
}

func (c *idlLookupCache) get(programID AccountKey) (*IDLAccount, bool) {
	return c.cache.Get(programID)
}

func (c *idlLookupCache) put(programID AccountKey, idl *IDLAccount) {
	c.cache.Add(programID, idl)
}
