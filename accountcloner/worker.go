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
	"math"

	log "github.com/erigontech/erigon-lib/log/v3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// requestBatchSize bounds how many queued clone requests a single Start
// iteration drains and processes concurrently before going back to
// listening on the request channel.
const requestBatchSize = 100

// lamportsHydrationSentinel rejects hydration candidates with a lamports
// balance so large it could only be a test fixture or corrupted account;
// re-cloning it would be wasted work at best.
const lamportsHydrationSentinel = math.MaxUint64 / 2

// WorkerConfig is the caller-supplied, immutable-after-construction
// configuration for a Worker. There is no file or flag parsing here: the
// integrator owns config sourcing and hands this module a plain struct,
// per this module's external-interfaces boundary.
type WorkerConfig struct {
	Permissions Permissions

	BlacklistedAccounts []AccountKey
	// AllowedProgramIDs, when non-empty, restricts which executable
	// accounts may be cloned. Empty means no allow-list is enforced.
	AllowedProgramIDs []AccountKey

	// PayerInitLamports, when set, overrides the lamports balance used
	// when cloning a fee payer account, instead of the fetched balance.
	PayerInitLamports *uint64

	// FetchRetries bounds the fetch-with-freshness loop's attempts. Zero
	// is rejected by NewWorker in favor of a default of 5.
	FetchRetries int

	ValidatorIdentity AccountKey

	// HydrateFatal, if true, aborts Hydrate on the first per-account
	// error instead of logging and continuing with the rest.
	HydrateFatal bool

	// IDLCacheSize bounds the IDL lookup cache. Zero is rejected by
	// NewWorker in favor of a default of 256.
	IDLCacheSize int

	// MetricsRegisterer receives this worker's prometheus counters. Nil
	// disables registration (counters are still created and incremented,
	// just never exposed).
	MetricsRegisterer prometheus.Registerer
}

// Worker ties the fetcher, classifier, materializer, cache, and listener
// registry together into the single entry point external callers use:
// RequestClone for steady-state requests, Hydrate for the startup pass,
// and Start to run the request-processing loop.
type Worker struct {
	provider InternalAccountProvider
	fetcher  AccountFetcher
	updates  AccountUpdates
	cfg      WorkerConfig

	classifierCfg classifierConfig
	cache         *cloneCache
	listeners     *listenerRegistry
	materializer  *materializer
	metrics       *cloneMetrics

	requests chan AccountKey
}

func NewWorker(provider InternalAccountProvider, fetcher AccountFetcher, updates AccountUpdates, dumper AccountDumper, cfg WorkerConfig) *Worker {
	if cfg.FetchRetries <= 0 {
		cfg.FetchRetries = 5
	}
	if cfg.IDLCacheSize <= 0 {
		cfg.IDLCacheSize = 256
	}

	blacklisted := make(map[AccountKey]struct{}, len(cfg.BlacklistedAccounts))
	for _, k := range cfg.BlacklistedAccounts {
		blacklisted[k] = struct{}{}
	}
	var allowedPrograms map[AccountKey]struct{}
	if len(cfg.AllowedProgramIDs) > 0 {
		allowedPrograms = make(map[AccountKey]struct{}, len(cfg.AllowedProgramIDs))
		for _, k := range cfg.AllowedProgramIDs {
			allowedPrograms[k] = struct{}{}
		}
	}

	metrics := newCloneMetrics(cfg.MetricsRegisterer)
	idlCache := newIDLLookupCache(cfg.IDLCacheSize)

	return &Worker{
		provider: provider,
		fetcher:  fetcher,
		updates:  updates,
		cfg:      cfg,
		classifierCfg: classifierConfig{
			permissions:         cfg.Permissions,
			blacklistedAccounts: blacklisted,
			allowedProgramIDs:   allowedPrograms,
		},
		cache:        newCloneCache(),
		listeners:    newListenerRegistry(),
		materializer: newMaterializer(dumper, fetcher, cfg.PayerInitLamports, idlCache, metrics),
		metrics:      metrics,
		requests:     make(chan AccountKey, requestBatchSize),
	}
}

// RequestClone resolves key to a CloneOutcome, either from cache or by
// enqueuing a fetch+classify+materialize cycle and coalescing with any
// other concurrent callers for the same key.
func (w *Worker) RequestClone(ctx context.Context, key AccountKey) (CloneOutcome, error) {
	if outcome, hit := w.consultCache(key); hit {
		return outcome, nil
	}

	sink := make(resultSink, 1)
	if w.listeners.register(key, sink) {
		select {
		case w.requests <- key:
		case <-ctx.Done():
			return CloneOutcome{}, ctx.Err()
		}
	}

	select {
	case res := <-sink:
		return res.outcome, res.err
	case <-ctx.Done():
		return CloneOutcome{}, ctx.Err()
	}
}

// consultCache implements do_clone_or_use_cache's cache-path decision: it
// reports a usable outcome without ever touching the fetcher, or reports
// that a refresh is required. u is the last known update slot for key,
// defaulting to 0 when the update notifier has no opinion yet.
func (w *Worker) consultCache(key AccountKey) (CloneOutcome, bool) {
	if !w.cfg.Permissions.CanCloneAnything() {
		outcome := NewUnclonableOutcome(key, ReasonNoCloningAllowed, SlotInfinite)
		w.cache.put(outcome)
		w.metrics.observeUnclonable(string(outcome.Reason))
		return outcome, true
	}

	u, ok := w.updates.LastKnownUpdateSlot(key)
	if !ok {
		u = 0
	}

	if outcome, ok := w.cache.get(key); ok {
		if outcome.Cloned {
			if outcome.Snapshot.AtSlot >= u {
				return outcome, true
			}
			return CloneOutcome{}, false
		}
		if outcome.ValidUntilSlot >= u {
			return outcome, true
		}
		return CloneOutcome{}, false
	}

	if w.provider.HasAccount(key) {
		outcome := NewUnclonableOutcome(key, ReasonAlreadyLocallyOverriden, SlotInfinite)
		w.cache.put(outcome)
		w.metrics.observeUnclonable(string(outcome.Reason))
		return outcome, true
	}
	return CloneOutcome{}, false
}

// Start runs the request-processing loop until ctx is canceled. Each
// iteration drains up to requestBatchSize queued keys and processes them
// concurrently via an errgroup, mirroring a channel-fed worker batch loop.
func (w *Worker) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key := <-w.requests:
			batch := make([]AccountKey, 0, requestBatchSize)
			batch = append(batch, key)
		drain:
			for len(batch) < requestBatchSize {
				select {
				case k := <-w.requests:
					batch = append(batch, k)
				default:
					break drain
				}
			}
			w.processBatch(ctx, batch)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context, keys []AccountKey) {
	batchID := uuid.New().String()
	log.Debug("processing clone request batch", "batch_id", batchID, "size", len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			w.processCloneRequest(gctx, key)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) processCloneRequest(ctx context.Context, key AccountKey) {
	outcome, err := w.doClone(ctx, key, RunningStage())

	sinks, ok := w.listeners.drain(key)
	if !ok {
		log.Warn("clone request completed with no registered listeners", "key", key)
		w.metrics.observeListenerViolation()
		return
	}
	result := cloneResult{outcome: outcome, err: err}
	for _, sink := range sinks {
		sink <- result
	}
}

// doClone runs the fetch/classify/materialize pipeline for a single key
// under the given stage and updates the cache with the result. It does
// not consult the cache itself (callers needing a cache check should use
// consultCache first); Hydrate relies on that to force re-evaluation.
func (w *Worker) doClone(ctx context.Context, key AccountKey, stage ValidatorStage) (CloneOutcome, error) {
	snapshot, minCtx, err := fetchWithFreshness(ctx, w.fetcher, w.updates, key, w.cfg.Permissions, w.cfg.FetchRetries, w.metrics)
	if err != nil {
		return CloneOutcome{}, err
	}

	decision := classify(w.classifierCfg, snapshot, stage)
	outcome, wasDumped, err := w.materializer.materialize(ctx, snapshot, decision, w.cache, minCtx)
	if err != nil {
		return CloneOutcome{}, err
	}
	if !outcome.Cloned && !wasDumped {
		w.metrics.observeUnclonable(string(outcome.Reason))
	}
	w.cache.put(outcome)
	return outcome, nil
}

// Hydrate re-evaluates every account the local bank currently holds,
// intended as a one-shot startup pass before Start begins serving
// requests. It skips blacklisted accounts, accounts with an implausibly
// large lamports balance, and non-executable accounts owned by the
// upgradeable loader (those are program-data accounts, cloned indirectly
// alongside their program, never directly).
func (w *Worker) Hydrate(ctx context.Context) error {
	for _, provided := range w.provider.GetAllAccounts() {
		if _, blacklisted := w.classifierCfg.blacklistedAccounts[provided.Key]; blacklisted {
			continue
		}
		if provided.Account.Lamports > lamportsHydrationSentinel {
			continue
		}
		if provided.Account.Owner == BPFLoaderUpgradeableID && !provided.Account.Executable {
			continue
		}

		stage := HydratingStage(w.cfg.ValidatorIdentity, provided.Account.Owner)
		outcome, err := w.doClone(ctx, provided.Key, stage)
		if err != nil {
			log.Warn("hydration failed for account", "key", provided.Key, "err", err)
			if w.cfg.HydrateFatal {
				return err
			}
			continue
		}
		log.Debug("hydrated account", "key", provided.Key, "outcome", outcome)
	}
	return nil
}
