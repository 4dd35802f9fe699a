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

// Package clonertest provides in-memory stand-ins for the accountcloner
// package's external collaborators, for use in tests that exercise the
// classifier, cache, and worker without a real chain connection.
package clonertest

import (
	"context"
	"sync"

	"github.com/ephemeral-chain/accountcloner/accountcloner"
)

// FetcherStub is a scripted accountcloner.AccountFetcher: tests register
// what a key should resolve to with the SetXxx methods, then the worker
// or classifier under test calls FetchAccountChainSnapshot as normal.
type FetcherStub struct {
	mu            sync.RWMutex
	known         map[accountcloner.AccountKey]accountcloner.ChainSnapshot
	fetchCounters map[accountcloner.AccountKey]int
}

func NewFetcherStub() *FetcherStub {
	return &FetcherStub{
		known:         make(map[accountcloner.AccountKey]accountcloner.ChainSnapshot),
		fetchCounters: make(map[accountcloner.AccountKey]int),
	}
}

func (f *FetcherStub) SetFeePayerAccount(key accountcloner.AccountKey, atSlot accountcloner.Slot, lamports uint64, owner accountcloner.AccountKey) {
	f.insert(key, accountcloner.ChainSnapshot{
		Key:    key,
		AtSlot: atSlot,
		State:  accountcloner.FeePayerState{Lamports: lamports, Owner: owner},
	})
}

func (f *FetcherStub) SetUndelegatedAccount(key accountcloner.AccountKey, atSlot accountcloner.Slot, account accountcloner.Account) {
	f.insert(key, accountcloner.ChainSnapshot{
		Key:    key,
		AtSlot: atSlot,
		State:  accountcloner.UndelegatedState{Account_: account},
	})
}

func (f *FetcherStub) SetExecutableAccount(key accountcloner.AccountKey, atSlot accountcloner.Slot, owner accountcloner.AccountKey) {
	f.SetUndelegatedAccount(key, atSlot, accountcloner.Account{Owner: owner, Executable: true})
}

func (f *FetcherStub) SetDelegatedAccount(key accountcloner.AccountKey, atSlot accountcloner.Slot, account accountcloner.Account, delegation accountcloner.DelegationRecord) {
	f.insert(key, accountcloner.ChainSnapshot{
		Key:    key,
		AtSlot: atSlot,
		State:  accountcloner.DelegatedState{Account_: account, Delegation: delegation},
	})
}

func (f *FetcherStub) insert(key accountcloner.AccountKey, snapshot accountcloner.ChainSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.known[key] = snapshot
}

// FetchCount reports how many times FetchAccountChainSnapshot was called
// for key, for asserting how many fetches the worker made (for example,
// that coalesced or cache-served requests did not refetch).
func (f *FetcherStub) FetchCount(key accountcloner.AccountKey) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fetchCounters[key]
}

func (f *FetcherStub) FetchAccountChainSnapshot(_ context.Context, key accountcloner.AccountKey, _ *accountcloner.Slot) (accountcloner.ChainSnapshot, error) {
	f.mu.Lock()
	f.fetchCounters[key]++
	snapshot, ok := f.known[key]
	f.mu.Unlock()
	if !ok {
		return accountcloner.ChainSnapshot{}, errAccountNotSetUp(key)
	}
	return snapshot, nil
}
