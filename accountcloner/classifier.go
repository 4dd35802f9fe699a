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

// cloneDecision is the classifier's verdict: either a dump to perform, or
// an outcome to return directly without touching the dumper.
type cloneDecision struct {
	// dump is non-nil when the decision is to call the dumper.
	dump *dumpRequest
	// outcome is non-nil when the decision shortcuts straight to a
	// result (an Unclonable refusal, or a synthetic Cloned reuse during
	// hydration — see shouldCloneDelegatedAccount).
	outcome *CloneOutcome
}

// dumpRequest names which materializer branch to run and with what
// arguments; see materializer.go.
type dumpRequest struct {
	kind dumpKind

	feePayerLamports uint64
	feePayerOwner    AccountKey

	account Account

	delegatedOwner          AccountKey
	delegatedDelegationSlot Slot
}

type dumpKind int

const (
	dumpFeePayer dumpKind = iota
	dumpUndelegated
	dumpDelegated
	dumpProgram
)

// classifierConfig is the subset of worker configuration the classifier
// needs, passed explicitly so classify stays a pure function of its
// arguments.
type classifierConfig struct {
	permissions        Permissions
	blacklistedAccounts map[AccountKey]struct{}
	allowedProgramIDs   map[AccountKey]struct{} // nil means "no allow-list configured"
}

// classify maps a fetched chain snapshot plus the current validator stage
// to a cloning decision. It performs no I/O and has no side effects.
func classify(cfg classifierConfig, snapshot ChainSnapshot, stage ValidatorStage) cloneDecision {
	key := snapshot.Key

	if _, blacklisted := cfg.blacklistedAccounts[key]; blacklisted {
		o := NewUnclonableOutcome(key, ReasonIsBlacklisted, SlotInfinite)
		return cloneDecision{outcome: &o}
	}
	if !cfg.permissions.CanCloneAnything() {
		o := NewUnclonableOutcome(key, ReasonNoCloningAllowed, SlotInfinite)
		return cloneDecision{outcome: &o}
	}

	switch state := snapshot.State.(type) {
	case FeePayerState:
		return classifyFeePayer(cfg, snapshot, state)
	case UndelegatedState:
		return classifyUndelegated(cfg, snapshot, state)
	case DelegatedState:
		return classifyDelegated(cfg, snapshot, state, stage)
	default:
		o := NewUnclonableOutcome(key, ReasonNoCloningAllowed, SlotInfinite)
		return cloneDecision{outcome: &o}
	}
}

func classifyFeePayer(cfg classifierConfig, snapshot ChainSnapshot, state FeePayerState) cloneDecision {
	if !cfg.permissions.AllowFeePayer {
		o := NewUnclonableOutcome(snapshot.Key, ReasonDoesNotAllowFeePayerAccount, snapshot.AtSlot)
		return cloneDecision{outcome: &o}
	}
	return cloneDecision{dump: &dumpRequest{
		kind:             dumpFeePayer,
		feePayerLamports: state.Lamports,
		feePayerOwner:    state.Owner,
	}}
}

func classifyUndelegated(cfg classifierConfig, snapshot ChainSnapshot, state UndelegatedState) cloneDecision {
	account := state.Account_
	if account.Executable {
		if cfg.allowedProgramIDs != nil {
			if _, ok := cfg.allowedProgramIDs[snapshot.Key]; !ok {
				o := NewUnclonableOutcome(snapshot.Key, ReasonIsNotAnAllowedProgram, SlotInfinite)
				return cloneDecision{outcome: &o}
			}
		}
		if !cfg.permissions.AllowProgram {
			o := NewUnclonableOutcome(snapshot.Key, ReasonDoesNotAllowProgramAccount, snapshot.AtSlot)
			return cloneDecision{outcome: &o}
		}
		return cloneDecision{dump: &dumpRequest{kind: dumpProgram, account: account}}
	}
	if !cfg.permissions.AllowUndelegated {
		o := NewUnclonableOutcome(snapshot.Key, ReasonDoesNotAllowUndelegatedAccount, snapshot.AtSlot)
		return cloneDecision{outcome: &o}
	}
	return cloneDecision{dump: &dumpRequest{kind: dumpUndelegated, account: account}}
}

func classifyDelegated(cfg classifierConfig, snapshot ChainSnapshot, state DelegatedState, stage ValidatorStage) cloneDecision {
	if !cfg.permissions.AllowDelegated {
		o := NewUnclonableOutcome(snapshot.Key, ReasonDoesNotAllowDelegatedAccount, snapshot.AtSlot)
		return cloneDecision{outcome: &o}
	}
	if !stage.shouldCloneDelegatedAccount(state.Delegation) {
		// The account was already cloned by a previous run of this
		// validator (ledger replay). We must not clone it again, but we
		// still need to respond as though we just did.
		outcome := NewClonedOutcome(snapshot, newSyntheticSignature())
		return cloneDecision{outcome: &outcome}
	}
	return cloneDecision{dump: &dumpRequest{
		kind:                    dumpDelegated,
		account:                 state.Account_,
		delegatedOwner:          state.Delegation.Owner,
		delegatedDelegationSlot: state.Delegation.DelegationSlot,
	}}
}
