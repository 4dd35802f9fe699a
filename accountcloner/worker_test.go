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

package accountcloner_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ephemeral-chain/accountcloner/accountcloner"
	"github.com/ephemeral-chain/accountcloner/accountcloner/clonertest"
)

func allowAllPermissions() accountcloner.Permissions {
	return accountcloner.Permissions{AllowFeePayer: true, AllowUndelegated: true, AllowDelegated: true, AllowProgram: true, AllowRefresh: true}
}

func startWorker(t *testing.T, w *accountcloner.Worker) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Start(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestWorkerRequestCloneCoalescesConcurrentCallersForSameKey(t *testing.T) {
	fetcher := clonertest.NewFetcherStub()
	dumper := clonertest.NewDumperStub()
	updates := clonertest.NewUpdatesStub()
	provider := clonertest.NewProviderStub()

	key := accountcloner.AccountKeyFromBytes([]byte("concurrent"))
	fetcher.SetUndelegatedAccount(key, 1, accountcloner.Account{Lamports: 7})
	updates.SetFirstSubscribedSlot(key, 1)

	w := accountcloner.NewWorker(provider, fetcher, updates, dumper, accountcloner.WorkerConfig{
		Permissions: allowAllPermissions(),
	})
	stop := startWorker(t, w)
	defer stop()

	var wg sync.WaitGroup
	results := make([]accountcloner.CloneOutcome, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			results[i], errs[i] = w.RequestClone(ctx, key)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.True(t, results[0].Cloned)
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, 1, fetcher.FetchCount(key))
	assert.True(t, dumper.WasDumpedAsUndelegatedAccount(key))
}

func TestWorkerRequestCloneServesPermanentRefusalFromCacheWithoutRefetching(t *testing.T) {
	fetcher := clonertest.NewFetcherStub()
	dumper := clonertest.NewDumperStub()
	updates := clonertest.NewUpdatesStub()
	provider := clonertest.NewProviderStub()

	key := accountcloner.AccountKeyFromBytes([]byte("blacklisted"))
	fetcher.SetUndelegatedAccount(key, 1, accountcloner.Account{Lamports: 7})
	updates.SetFirstSubscribedSlot(key, 1)

	w := accountcloner.NewWorker(provider, fetcher, updates, dumper, accountcloner.WorkerConfig{
		Permissions:         allowAllPermissions(),
		BlacklistedAccounts: []accountcloner.AccountKey{key},
	})
	stop := startWorker(t, w)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	first, err := w.RequestClone(ctx, key)
	require.NoError(t, err)
	assert.False(t, first.Cloned)
	assert.Equal(t, accountcloner.ReasonIsBlacklisted, first.Reason)

	second, err := w.RequestClone(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.FetchCount(key))
}

func TestWorkerHydrateSkipsBlacklistedSentinelAndUpgradeableProgramDataAccounts(t *testing.T) {
	fetcher := clonertest.NewFetcherStub()
	dumper := clonertest.NewDumperStub()
	updates := clonertest.NewUpdatesStub()
	provider := clonertest.NewProviderStub()

	blacklistedKey := accountcloner.AccountKeyFromBytes([]byte("blacklisted"))
	sentinelKey := accountcloner.AccountKeyFromBytes([]byte("sentinel"))
	programDataKey := accountcloner.AccountKeyFromBytes([]byte("program-data"))
	normalKey := accountcloner.AccountKeyFromBytes([]byte("normal"))

	provider.SetAccount(blacklistedKey, accountcloner.Account{Lamports: 1})
	provider.SetAccount(sentinelKey, accountcloner.Account{Lamports: ^uint64(0)})
	provider.SetAccount(programDataKey, accountcloner.Account{Owner: accountcloner.BPFLoaderUpgradeableID, Executable: false})
	provider.SetAccount(normalKey, accountcloner.Account{Lamports: 3})

	fetcher.SetUndelegatedAccount(normalKey, 1, accountcloner.Account{Lamports: 3})
	updates.SetFirstSubscribedSlot(normalKey, 1)

	w := accountcloner.NewWorker(provider, fetcher, updates, dumper, accountcloner.WorkerConfig{
		Permissions:         allowAllPermissions(),
		BlacklistedAccounts: []accountcloner.AccountKey{blacklistedKey},
	})

	err := w.Hydrate(context.Background())
	require.NoError(t, err)

	assert.True(t, dumper.WasUntouched(blacklistedKey))
	assert.True(t, dumper.WasUntouched(sentinelKey))
	assert.True(t, dumper.WasUntouched(programDataKey))
	assert.True(t, dumper.WasDumpedAsUndelegatedAccount(normalKey))
}
