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
	"encoding/hex"
	"fmt"
)

// AccountKey is the opaque identifier of an on-chain account.
type AccountKey [32]byte

// String renders the key as a hex string; it is not base58, but callers
// in this module only use it for logging and test fixtures.
func (k AccountKey) String() string {
	return hex.EncodeToString(k[:])
}

func (k AccountKey) IsZero() bool {
	return k == AccountKey{}
}

// AccountKeyFromBytes builds an AccountKey from the last bytes of b,
// left-padding with zeroes. It exists so tests and well-known program-id
// constants can be written tersely.
func AccountKeyFromBytes(b []byte) AccountKey {
	var k AccountKey
	if len(b) > len(k) {
		b = b[len(b)-len(k):]
	}
	copy(k[len(k)-len(b):], b)
	return k
}

// Slot is a monotonically non-decreasing sequencing unit of the remote chain.
type Slot uint64

// SlotInfinite marks a validity horizon that never expires: the entry
// remains authoritative no matter how far the observed update slot advances.
const SlotInfinite Slot = ^Slot(0)

// Signature is an opaque transaction signature returned by the dumper.
type Signature [64]byte

func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

func (s Signature) IsZero() bool {
	return s == Signature{}
}

// Account mirrors the subset of on-chain account fields the cloner cares
// about: balance, owning program, executable flag, and opaque data.
type Account struct {
	Lamports   uint64
	Owner      AccountKey
	Executable bool
	Data       []byte
}

// Well-known loader program ids. The upgradeable loader owns a program
// account plus a separate program-data account; the legacy loader stores
// the bytecode directly on the program account; the deprecated loader
// predates both and is no longer supported for cloning.
var (
	BPFLoaderUpgradeableID = AccountKeyFromBytes([]byte("bpf-loader-upgradeable"))
	BPFLoaderID            = AccountKeyFromBytes([]byte("bpf-loader-legacy"))
	BPFLoaderDeprecatedID  = AccountKeyFromBytes([]byte("bpf-loader-deprecated"))
)

// DelegationRecord describes a chain-level delegation of an account's
// writes to a specific validator.
type DelegationRecord struct {
	// Authority is the validator the account is delegated to. The zero
	// value means the record doesn't carry an authority (see
	// ValidatorStage's hydration heuristic in stage.go).
	Authority AccountKey
	// Owner is the account's owner on the base chain, i.e. the owner it
	// had before delegation overrode it locally.
	Owner          AccountKey
	DelegationSlot Slot
	// CommitFrequency is how often, in slots, the delegated state is
	// expected to be committed back to the base chain. The cloner does
	// not act on it; it is carried through for the dumper/commit-back
	// pipeline (out of scope here).
	CommitFrequency uint64
}

// ChainState is the tagged variant of what fetching an account returned.
// Implementations: FeePayerState, UndelegatedState, DelegatedState.
type ChainState interface {
	isChainState()
	// Account returns the underlying account data when the variant
	// carries one. FeePayerState carries no account (it has no data),
	// so it returns (Account{}, false).
	Account() (Account, bool)
}

// FeePayerState is an account with no data, acting only as a lamports
// carrier for transaction fees.
type FeePayerState struct {
	Lamports uint64
	Owner    AccountKey
}

func (FeePayerState) isChainState() {}
func (FeePayerState) Account() (Account, bool) { return Account{}, false }

// UndelegatedState is an account that exists on chain but isn't delegated
// to any validator.
type UndelegatedState struct {
	Account_ Account
}

func (UndelegatedState) isChainState()              {}
func (s UndelegatedState) Account() (Account, bool) { return s.Account_, true }

// DelegatedState is an account whose writes are currently delegated to a
// validator.
type DelegatedState struct {
	Account_   Account
	Delegation DelegationRecord
}

func (DelegatedState) isChainState()              {}
func (s DelegatedState) Account() (Account, bool) { return s.Account_, true }

// ChainSnapshot is an immutable fetch result: the state of Key as of AtSlot.
type ChainSnapshot struct {
	Key    AccountKey
	AtSlot Slot
	State  ChainState
}

// UnclonableReason enumerates why a key cannot be cloned right now (or ever).
type UnclonableReason string

const (
	// Permanent reasons: once recorded, valid until slot SlotInfinite —
	// no update to the account can ever make it clonable again.
	ReasonNoCloningAllowed        UnclonableReason = "no_cloning_allowed"
	ReasonIsBlacklisted           UnclonableReason = "is_blacklisted"
	ReasonIsNotAnAllowedProgram   UnclonableReason = "is_not_an_allowed_program"
	ReasonAlreadyLocallyOverriden UnclonableReason = "already_locally_overriden"

	// Snapshot-scoped reasons: valid only until the snapshot that
	// produced them is superseded by a newer update.
	ReasonDoesNotAllowFeePayerAccount   UnclonableReason = "does_not_allow_feepayer_account"
	ReasonDoesNotAllowUndelegatedAccount UnclonableReason = "does_not_allow_undelegated_account"
	ReasonDoesNotAllowDelegatedAccount  UnclonableReason = "does_not_allow_delegated_account"
	ReasonDoesNotAllowProgramAccount    UnclonableReason = "does_not_allow_program_account"
)

// IsPermanent reports whether r can never become clonable regardless of
// future chain updates.
func (r UnclonableReason) IsPermanent() bool {
	switch r {
	case ReasonNoCloningAllowed, ReasonIsBlacklisted, ReasonIsNotAnAllowedProgram, ReasonAlreadyLocallyOverriden:
		return true
	default:
		return false
	}
}

// CloneOutcome is the result of attempting to clone (or reuse a prior
// clone of) an account. Exactly one of the Cloned/Unclonable shapes is
// populated, selected by the Cloned field.
type CloneOutcome struct {
	Key     AccountKey
	Cloned  bool
	// Populated when Cloned is true.
	Snapshot  ChainSnapshot
	Signature Signature
	// Populated when Cloned is false.
	Reason         UnclonableReason
	ValidUntilSlot Slot
}

// NewClonedOutcome builds a successful clone outcome.
func NewClonedOutcome(snapshot ChainSnapshot, signature Signature) CloneOutcome {
	return CloneOutcome{
		Key:       snapshot.Key,
		Cloned:    true,
		Snapshot:  snapshot,
		Signature: signature,
	}
}

// NewUnclonableOutcome builds a negative clone outcome, authoritative
// until validUntilSlot (SlotInfinite for permanent reasons).
func NewUnclonableOutcome(key AccountKey, reason UnclonableReason, validUntilSlot Slot) CloneOutcome {
	return CloneOutcome{
		Key:            key,
		Cloned:         false,
		Reason:         reason,
		ValidUntilSlot: validUntilSlot,
	}
}

func (o CloneOutcome) String() string {
	if o.Cloned {
		return fmt.Sprintf("Cloned{key=%s, at_slot=%d, sig=%s}", o.Key, o.Snapshot.AtSlot, o.Signature)
	}
	return fmt.Sprintf("Unclonable{key=%s, reason=%s, valid_until=%d}", o.Key, o.Reason, o.ValidUntilSlot)
}

// Permissions is process-wide and immutable after construction; it gates
// which chain-state shapes this worker is willing to clone at all.
type Permissions struct {
	AllowFeePayer   bool
	AllowUndelegated bool
	AllowDelegated  bool
	AllowProgram    bool
	// AllowRefresh, if false, makes the cache write-once: no
	// subscription is requested and no slot-freshness retry loop runs.
	AllowRefresh bool
}

// CanCloneAnything reports whether any permission bit allows cloning at
// all; when false, every request short-circuits to
// ReasonNoCloningAllowed without touching the fetcher.
func (p Permissions) CanCloneAnything() bool {
	return p.AllowFeePayer || p.AllowUndelegated || p.AllowDelegated || p.AllowProgram
}
