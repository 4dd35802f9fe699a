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
	"context"
	"sync"

	"github.com/ephemeral-chain/accountcloner/accountcloner"
	"github.com/google/uuid"
)

// DumperStub is an accountcloner.AccountDumper that records which keys
// were dumped under which variant, instead of mutating any real bank.
type DumperStub struct {
	mu                 sync.RWMutex
	feePayerAccounts   map[accountcloner.AccountKey]struct{}
	undelegatedAccounts map[accountcloner.AccountKey]struct{}
	delegatedAccounts  map[accountcloner.AccountKey]struct{}
	legacyProgramIDs   map[accountcloner.AccountKey]struct{}
	programIDs         map[accountcloner.AccountKey]struct{}
	programDatas       map[accountcloner.AccountKey]struct{}
	programIDLs        map[accountcloner.AccountKey]struct{}
}

func NewDumperStub() *DumperStub {
	return &DumperStub{
		feePayerAccounts:    make(map[accountcloner.AccountKey]struct{}),
		undelegatedAccounts: make(map[accountcloner.AccountKey]struct{}),
		delegatedAccounts:   make(map[accountcloner.AccountKey]struct{}),
		legacyProgramIDs:    make(map[accountcloner.AccountKey]struct{}),
		programIDs:          make(map[accountcloner.AccountKey]struct{}),
		programDatas:        make(map[accountcloner.AccountKey]struct{}),
		programIDLs:         make(map[accountcloner.AccountKey]struct{}),
	}
}

func newUniqueSignature() accountcloner.Signature {
	var sig accountcloner.Signature
	id := uuid.New()
	copy(sig[:16], id[:])
	return sig
}

func (d *DumperStub) DumpFeePayerAccount(_ context.Context, key accountcloner.AccountKey, _ uint64, _ accountcloner.AccountKey) (accountcloner.Signature, error) {
	d.mu.Lock()
	d.feePayerAccounts[key] = struct{}{}
	d.mu.Unlock()
	return newUniqueSignature(), nil
}

func (d *DumperStub) DumpUndelegatedAccount(_ context.Context, key accountcloner.AccountKey, _ accountcloner.Account) (accountcloner.Signature, error) {
	d.mu.Lock()
	d.undelegatedAccounts[key] = struct{}{}
	d.mu.Unlock()
	return newUniqueSignature(), nil
}

func (d *DumperStub) DumpDelegatedAccount(_ context.Context, key accountcloner.AccountKey, _ accountcloner.Account, _ accountcloner.AccountKey) (accountcloner.Signature, error) {
	d.mu.Lock()
	d.delegatedAccounts[key] = struct{}{}
	d.mu.Unlock()
	return newUniqueSignature(), nil
}

func (d *DumperStub) DumpProgramAccountWithLegacyLoader(_ context.Context, key accountcloner.AccountKey, _ accountcloner.Account) (accountcloner.Signature, error) {
	d.mu.Lock()
	d.legacyProgramIDs[key] = struct{}{}
	d.mu.Unlock()
	return newUniqueSignature(), nil
}

func (d *DumperStub) DumpProgramAccounts(_ context.Context, programID accountcloner.AccountKey, _ accountcloner.Account, dataKey accountcloner.AccountKey, _ accountcloner.Account, idl *accountcloner.IDLAccount) (accountcloner.Signature, error) {
	d.mu.Lock()
	d.programIDs[programID] = struct{}{}
	d.programDatas[dataKey] = struct{}{}
	if idl != nil {
		d.programIDLs[idl.Key] = struct{}{}
	}
	d.mu.Unlock()
	return newUniqueSignature(), nil
}

func (d *DumperStub) WasDumpedAsFeePayerAccount(key accountcloner.AccountKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.feePayerAccounts[key]
	return ok
}

func (d *DumperStub) WasDumpedAsUndelegatedAccount(key accountcloner.AccountKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.undelegatedAccounts[key]
	return ok
}

func (d *DumperStub) WasDumpedAsDelegatedAccount(key accountcloner.AccountKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.delegatedAccounts[key]
	return ok
}

func (d *DumperStub) WasDumpedAsLegacyProgram(key accountcloner.AccountKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.legacyProgramIDs[key]
	return ok
}

func (d *DumperStub) WasDumpedAsProgramID(key accountcloner.AccountKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.programIDs[key]
	return ok
}

func (d *DumperStub) WasDumpedAsProgramData(key accountcloner.AccountKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.programDatas[key]
	return ok
}

func (d *DumperStub) WasDumpedAsProgramIDL(key accountcloner.AccountKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.programIDLs[key]
	return ok
}

func (d *DumperStub) WasUntouched(key accountcloner.AccountKey) bool {
	return !d.WasDumpedAsFeePayerAccount(key) &&
		!d.WasDumpedAsUndelegatedAccount(key) &&
		!d.WasDumpedAsDelegatedAccount(key) &&
		!d.WasDumpedAsLegacyProgram(key) &&
		!d.WasDumpedAsProgramID(key) &&
		!d.WasDumpedAsProgramData(key) &&
		!d.WasDumpedAsProgramIDL(key)
}

func (d *DumperStub) ClearHistory() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.feePayerAccounts = make(map[accountcloner.AccountKey]struct{})
	d.undelegatedAccounts = make(map[accountcloner.AccountKey]struct{})
	d.delegatedAccounts = make(map[accountcloner.AccountKey]struct{})
	d.legacyProgramIDs = make(map[accountcloner.AccountKey]struct{})
	d.programIDs = make(map[accountcloner.AccountKey]struct{})
	d.programDatas = make(map[accountcloner.AccountKey]struct{})
	d.programIDLs = make(map[accountcloner.AccountKey]struct{})
}
