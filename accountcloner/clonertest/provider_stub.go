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

package clonertest

import (
	"sync"

	"github.com/ephemeral-chain/accountcloner/accountcloner"
)

// ProviderStub is a scripted accountcloner.InternalAccountProvider,
// standing in for the local validator bank during hydration tests.
type ProviderStub struct {
	mu       sync.RWMutex
	accounts map[accountcloner.AccountKey]accountcloner.Account
}

func NewProviderStub() *ProviderStub {
	return &ProviderStub{accounts: make(map[accountcloner.AccountKey]accountcloner.Account)}
}

func (p *ProviderStub) SetAccount(key accountcloner.AccountKey, account accountcloner.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[key] = account
}

func (p *ProviderStub) HasAccount(key accountcloner.AccountKey) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.accounts[key]
	return ok
}

func (p *ProviderStub) GetAllAccounts() []accountcloner.ProvidedAccount {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]accountcloner.ProvidedAccount, 0, len(p.accounts))
	for key, account := range p.accounts {
		out = append(out, accountcloner.ProvidedAccount{Key: key, Account: account})
	}
	return out
}
