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
	"crypto/sha256"

	log "github.com/erigontech/erigon-lib/log/v3"
)

// deriveProgramDataAddress computes the address of an upgradeable-loader
// program's program-data account. Solana itself derives this as a program
// derived address of the loader; this module only needs a stable,
// collision-resistant function of programID, so it hashes a fixed seed in.
func deriveProgramDataAddress(programID AccountKey) AccountKey {
	return deriveSeeded(programID, "ProgramData")
}

func deriveAnchorIDLAddress(programID AccountKey) AccountKey {
	return deriveSeeded(programID, "anchor:idl")
}

func deriveShankIDLAddress(programID AccountKey) AccountKey {
	return deriveSeeded(programID, "shank:idl")
}

func deriveSeeded(programID AccountKey, seed string) AccountKey {
	h := sha256.New()
	h.Write(programID[:])
	h.Write([]byte(seed))
	return AccountKeyFromBytes(h.Sum(nil))
}

// materializer turns a classifier decision into an actual mutation of the
// local bank via the AccountDumper collaborator, resolving the
// executable-program sub-protocol (legacy loader / deprecated loader /
// upgradeable loader with its program-data and IDL sidecar accounts) along
// the way.
type materializer struct {
	dumper            AccountDumper
	fetcher           AccountFetcher
	payerInitLamports *uint64
	idlCache          *idlLookupCache
	metrics           *cloneMetrics
}

func newMaterializer(dumper AccountDumper, fetcher AccountFetcher, payerInitLamports *uint64, idlCache *idlLookupCache, metrics *cloneMetrics) *materializer {
	return &materializer{
		dumper:            dumper,
		fetcher:           fetcher,
		payerInitLamports: payerInitLamports,
		idlCache:          idlCache,
		metrics:           metrics,
	}
}

// materialize executes decision for snapshot. When decision carries a
// direct outcome (a refusal, or a synthetic hydration-reuse result), the
// dumper is never touched. cache is consulted for the delegated-account
// reuse check (invariant 5): a delegated account already cloned at the
// same delegation slot is not re-dumped, and its existing cache entry is
// left untouched. minCtx is the minimum context slot the outer
// fetch-with-freshness loop settled on for snapshot itself; an upgradeable
// program's program-data sibling fetch reuses it rather than fetching with
// no freshness floor.
func (mz *materializer) materialize(ctx context.Context, snapshot ChainSnapshot, decision cloneDecision, cache *cloneCache, minCtx *Slot) (CloneOutcome, bool, error) {
	if decision.outcome != nil {
		return *decision.outcome, false, nil
	}

	req := decision.dump
	switch req.kind {
	case dumpFeePayer:
		return mz.materializeFeePayer(ctx, snapshot, req)
	case dumpUndelegated:
		return mz.materializeUndelegated(ctx, snapshot, req)
	case dumpDelegated:
		return mz.materializeDelegated(ctx, snapshot, req, cache)
	case dumpProgram:
		return mz.materializeProgram(ctx, snapshot, req, minCtx)
	default:
		o := NewUnclonableOutcome(snapshot.Key, ReasonNoCloningAllowed, SlotInfinite)
		return o, false, nil
	}
}

func (mz *materializer) materializeFeePayer(ctx context.Context, snapshot ChainSnapshot, req *dumpRequest) (CloneOutcome, bool, error) {
	lamports := req.feePayerLamports
	if mz.payerInitLamports != nil {
		lamports = *mz.payerInitLamports
	}
	sig, err := mz.dumper.DumpFeePayerAccount(ctx, snapshot.Key, lamports, req.feePayerOwner)
	if err != nil {
		return CloneOutcome{}, false, WrapDumperError(err, "dump fee payer account")
	}
	mz.metrics.observeClone("feepayer")
	return NewClonedOutcome(snapshot, sig), true, nil
}

func (mz *materializer) materializeUndelegated(ctx context.Context, snapshot ChainSnapshot, req *dumpRequest) (CloneOutcome, bool, error) {
	sig, err := mz.dumper.DumpUndelegatedAccount(ctx, snapshot.Key, req.account)
	if err != nil {
		return CloneOutcome{}, false, WrapDumperError(err, "dump undelegated account")
	}
	mz.metrics.observeClone("undelegated")
	return NewClonedOutcome(snapshot, sig), true, nil
}

func (mz *materializer) materializeDelegated(ctx context.Context, snapshot ChainSnapshot, req *dumpRequest, cache *cloneCache) (CloneOutcome, bool, error) {
	if existing, ok := cache.get(snapshot.Key); ok && existing.Cloned {
		if prior, isDelegated := existing.Snapshot.State.(DelegatedState); isDelegated {
			if prior.Delegation.DelegationSlot == req.delegatedDelegationSlot {
				log.Debug("reusing prior delegated clone, same delegation slot", "key", snapshot.Key, "delegation_slot", req.delegatedDelegationSlot)
				return existing, false, nil
			}
		}
	}
	sig, err := mz.dumper.DumpDelegatedAccount(ctx, snapshot.Key, req.account, req.delegatedOwner)
	if err != nil {
		return CloneOutcome{}, false, WrapDumperError(err, "dump delegated account")
	}
	mz.metrics.observeClone("delegated")
	return NewClonedOutcome(snapshot, sig), true, nil
}

func (mz *materializer) materializeProgram(ctx context.Context, snapshot ChainSnapshot, req *dumpRequest, minCtx *Slot) (CloneOutcome, bool, error) {
	account := req.account
	switch account.Owner {
	case BPFLoaderID:
		sig, err := mz.dumper.DumpProgramAccountWithLegacyLoader(ctx, snapshot.Key, account)
		if err != nil {
			return CloneOutcome{}, false, WrapDumperError(err, "dump program account with legacy loader")
		}
		mz.metrics.observeClone("program")
		return NewClonedOutcome(snapshot, sig), true, nil
	case BPFLoaderDeprecatedID:
		return CloneOutcome{}, false, ErrProgramDataDoesNotExist
	case BPFLoaderUpgradeableID:
		return mz.materializeUpgradeableProgram(ctx, snapshot, account, minCtx)
	default:
		// Not owned by a recognized loader; treat like any other
		// executable undelegated account and dump it as-is.
		sig, err := mz.dumper.DumpProgramAccountWithLegacyLoader(ctx, snapshot.Key, account)
		if err != nil {
			return CloneOutcome{}, false, WrapDumperError(err, "dump program account")
		}
		mz.metrics.observeClone("program")
		return NewClonedOutcome(snapshot, sig), true, nil
	}
}

func (mz *materializer) materializeUpgradeableProgram(ctx context.Context, snapshot ChainSnapshot, programIDAccount Account, minCtx *Slot) (CloneOutcome, bool, error) {
	dataKey := deriveProgramDataAddress(snapshot.Key)
	dataSnapshot, err := mz.fetcher.FetchAccountChainSnapshot(ctx, dataKey, minCtx)
	if err != nil {
		return CloneOutcome{}, false, ErrProgramDataDoesNotExist
	}
	dataAccount, ok := dataSnapshot.State.Account()
	if !ok {
		return CloneOutcome{}, false, ErrProgramDataDoesNotExist
	}

	idl := mz.fetchProgramIDL(ctx, snapshot.Key)

	sig, err := mz.dumper.DumpProgramAccounts(ctx, snapshot.Key, programIDAccount, dataKey, dataAccount, idl)
	if err != nil {
		return CloneOutcome{}, false, WrapDumperError(err, "dump program accounts")
	}
	mz.metrics.observeClone("program")
	return NewClonedOutcome(snapshot, sig), true, nil
}

// fetchProgramIDL resolves programID's IDL sidecar account, trying the
// Anchor convention first and falling back to Shank. A miss either way is
// cached as "no IDL" so repeated clones of the same program don't refetch.
// Unlike the fetch-with-freshness loop used for clone requests proper,
// this is a single best-effort lookup: an IDL account essentially never
// changes after deployment, so there is nothing to retry for.
func (mz *materializer) fetchProgramIDL(ctx context.Context, programID AccountKey) *IDLAccount {
	if cached, ok := mz.idlCache.get(programID); ok {
		return cached
	}

	for _, derive := range []func(AccountKey) AccountKey{deriveAnchorIDLAddress, deriveShankIDLAddress} {
		idlKey := derive(programID)
		snapshot, err := mz.fetcher.FetchAccountChainSnapshot(ctx, idlKey, nil)
		if err != nil {
			continue
		}
		if account, ok := snapshot.State.Account(); ok {
			idl := &IDLAccount{Key: idlKey, Account: account}
			mz.idlCache.put(programID, idl)
			return idl
		}
	}

	mz.idlCache.put(programID, nil)
	return nil
}
