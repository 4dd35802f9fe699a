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
)

// UpdatesStub is a scripted accountcloner.AccountUpdates: tests drive its
// view of subscription state directly with SetFirstSubscribedSlot and
// SetLastKnownUpdateSlot, simulating how a real subscription would
// observe slots arriving over time.
type UpdatesStub struct {
	mu                  sync.RWMutex
	monitoringRequested map[accountcloner.AccountKey]int
	firstSubscribed     map[accountcloner.AccountKey]accountcloner.Slot
	lastKnownUpdate     map[accountcloner.AccountKey]accountcloner.Slot
}

func NewUpdatesStub() *UpdatesStub {
	return &UpdatesStub{
		monitoringRequested: make(map[accountcloner.AccountKey]int),
		firstSubscribed:     make(map[accountcloner.AccountKey]accountcloner.Slot),
		lastKnownUpdate:     make(map[accountcloner.AccountKey]accountcloner.Slot),
	}
}

func (u *UpdatesStub) EnsureAccountMonitoring(_ context.Context, key accountcloner.AccountKey) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.monitoringRequested[key]++
	return nil
}

func (u *UpdatesStub) MonitoringRequestCount(key accountcloner.AccountKey) int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.monitoringRequested[key]
}

func (u *UpdatesStub) SetFirstSubscribedSlot(key accountcloner.AccountKey, slot accountcloner.Slot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.firstSubscribed[key] = slot
}

func (u *UpdatesStub) FirstSubscribedSlot(key accountcloner.AccountKey) (accountcloner.Slot, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	slot, ok := u.firstSubscribed[key]
	return slot, ok
}

func (u *UpdatesStub) SetLastKnownUpdateSlot(key accountcloner.AccountKey, slot accountcloner.Slot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastKnownUpdate[key] = slot
}

func (u *UpdatesStub) LastKnownUpdateSlot(key accountcloner.AccountKey) (accountcloner.Slot, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	slot, ok := u.lastKnownUpdate[key]
	return slot, ok
}
