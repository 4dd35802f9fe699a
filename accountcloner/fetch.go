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
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// staleSnapshotError marks a fetch that succeeded but returned a snapshot
// older than the first observed subscription slot — retryable, but
// distinguishable from a genuine fetcher error so the caller can report
// ErrFailedToFetchSatisfactorySlot instead of an opaque fetcher failure
// once retries are exhausted.
type staleSnapshotError struct {
	snapshot ChainSnapshot
}

func (e *staleSnapshotError) Error() string { return "fetched snapshot is older than the subscribed slot" }

// fetchWithFreshness wraps the fetcher with bounded retries until the
// returned snapshot's slot is at least as recent as the first observed
// subscription slot for key. If permissions.AllowRefresh is false, a
// single fetch with no minimum context slot is performed instead: no
// subscription is requested, and nothing is retried.
//
// The minimum context slot used for the winning attempt (nil when refresh
// is disallowed, or when no subscription slot was known yet) is returned
// alongside the snapshot so a caller materializing a program account can
// reuse it for the program-data account's own fetch, instead of fetching
// that sibling account with no freshness floor at all.
func fetchWithFreshness(ctx context.Context, fetcher AccountFetcher, updates AccountUpdates, key AccountKey, permissions Permissions, fetchRetries int, metrics *cloneMetrics) (ChainSnapshot, *Slot, error) {
	if !permissions.AllowRefresh {
		snapshot, err := fetcher.FetchAccountChainSnapshot(ctx, key, nil)
		if err != nil {
			return ChainSnapshot{}, nil, WrapFetcherError(err, "fetch account chain snapshot")
		}
		return snapshot, nil, nil
	}

	if err := updates.EnsureAccountMonitoring(ctx, key); err != nil {
		return ChainSnapshot{}, nil, WrapUpdatesError(err, "ensure account monitoring")
	}

	var result ChainSnapshot
	var usedMinContextSlot *Slot
	attempt := 0
	operation := func() error {
		if attempt > 0 {
			metrics.observeFetchRetry()
		}
		attempt++

		var minContextSlot *Slot
		if first, ok := updates.FirstSubscribedSlot(key); ok {
			minContextSlot = &first
		}
		snapshot, err := fetcher.FetchAccountChainSnapshot(ctx, key, minContextSlot)
		if err != nil {
			return err
		}
		threshold := SlotInfinite
		if first, ok := updates.FirstSubscribedSlot(key); ok {
			threshold = first
		}
		if snapshot.AtSlot >= threshold {
			result = snapshot
			usedMinContextSlot = minContextSlot
			return nil
		}
		return &staleSnapshotError{snapshot: snapshot}
	}

	retries := fetchRetries
	if retries < 1 {
		retries = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(200*time.Millisecond), uint64(retries-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		var stale *staleSnapshotError
		if asStale(err, &stale) {
			return ChainSnapshot{}, nil, ErrFailedToFetchSatisfactorySlot
		}
		return ChainSnapshot{}, nil, WrapFetcherError(err, "fetch account chain snapshot")
	}
	return result, usedMinContextSlot, nil
}

// asStale is a tiny errors.As wrapper kept local to avoid importing the
// standard errors package just for this one call site alongside
// github.com/pkg/errors in errors.go.
func asStale(err error, target **staleSnapshotError) bool {
	for err != nil {
		if s, ok := err.(*staleSnapshotError); ok {
			*target = s
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
