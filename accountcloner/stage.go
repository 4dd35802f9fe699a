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

// ValidatorStage distinguishes the one-shot startup hydration pass from
// steady-state request processing; the two apply different rules for
// whether a delegated account should be re-cloned.
type ValidatorStage struct {
	hydrating bool

	// ValidatorIdentity and ObservedLocalOwner are only meaningful when
	// hydrating is true.
	ValidatorIdentity  AccountKey
	ObservedLocalOwner AccountKey
}

// RunningStage is the steady-state stage: every request for a delegated
// account re-materializes it (the delegation-slot reuse rule against the
// cached clone handles dedup; see materializeDelegated in materializer.go).
func RunningStage() ValidatorStage {
	return ValidatorStage{}
}

// HydratingStage is the startup re-clone stage. validatorIdentity is this
// validator's own identity; observedLocalOwner is the local bank's
// current owner of the account being re-evaluated.
func HydratingStage(validatorIdentity, observedLocalOwner AccountKey) ValidatorStage {
	return ValidatorStage{
		hydrating:          true,
		ValidatorIdentity:  validatorIdentity,
		ObservedLocalOwner: observedLocalOwner,
	}
}

func (s ValidatorStage) IsHydrating() bool { return s.hydrating }

// shouldCloneDelegatedAccount decides whether a delegated account should
// be re-materialized given the current stage.
//
// During hydration, a delegated account may already have been cloned (and
// locally mutated) by the previous run of this very validator; overwriting
// it with the chain's version would discard those local changes. Two
// cases:
//
//   a) it is delegated to us, and we already applied local changes that
//      on-chain state cannot have seen (nothing could have written to it
//      on chain while it was delegated to us) — do not clone.
//   b) it is delegated to a different validator and may have changed in
//      the meantime — clone it.
//
// The record's Authority field decides which case applies when present.
// When it is absent (the zero AccountKey), this falls back to a
// compatibility heuristic: compare the account's locally observed owner
// against the delegation record's (pre-delegation) owner. If they match,
// the account was cloned as delegated-to-us and its owner was overridden
// accordingly; if it had been cloned as a plain readable, its local owner
// would still be the delegation program, not the original owner. This
// heuristic is a narrow compatibility shim for delegation records that
// predate the Authority field and should be retired once all records
// carry one.
func (s ValidatorStage) shouldCloneDelegatedAccount(record DelegationRecord) bool {
	if !s.hydrating {
		return true
	}
	if !record.Authority.IsZero() {
		return record.Authority != s.ValidatorIdentity
	}
	return s.ObservedLocalOwner != record.Owner
}
