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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowAllPermissions() Permissions {
	return Permissions{AllowFeePayer: true, AllowUndelegated: true, AllowDelegated: true, AllowProgram: true, AllowRefresh: true}
}

func TestClassifyBlacklistedAccountIsUnclonableRegardlessOfState(t *testing.T) {
	key := AccountKeyFromBytes([]byte("blacklisted"))
	cfg := classifierConfig{
		permissions:         allowAllPermissions(),
		blacklistedAccounts: map[AccountKey]struct{}{key: {}},
	}
	snapshot := ChainSnapshot{Key: key, AtSlot: 10, State: FeePayerState{Lamports: 5}}

	decision := classify(cfg, snapshot, RunningStage())

	require.NotNil(t, decision.outcome)
	assert.Nil(t, decision.dump)
	assert.False(t, decision.outcome.Cloned)
	assert.Equal(t, ReasonIsBlacklisted, decision.outcome.Reason)
	assert.True(t, decision.outcome.Reason.IsPermanent())
}

func TestClassifyNoPermissionsAtAllIsUnclonable(t *testing.T) {
	key := AccountKeyFromBytes([]byte("key"))
	cfg := classifierConfig{permissions: Permissions{}}
	snapshot := ChainSnapshot{Key: key, AtSlot: 1, State: UndelegatedState{Account_: Account{}}}

	decision := classify(cfg, snapshot, RunningStage())

	require.NotNil(t, decision.outcome)
	assert.Equal(t, ReasonNoCloningAllowed, decision.outcome.Reason)
}

func TestClassifyFeePayerDumpsWhenAllowed(t *testing.T) {
	key := AccountKeyFromBytes([]byte("payer"))
	owner := AccountKeyFromBytes([]byte("owner"))
	cfg := classifierConfig{permissions: allowAllPermissions()}
	snapshot := ChainSnapshot{Key: key, AtSlot: 7, State: FeePayerState{Lamports: 42, Owner: owner}}

	decision := classify(cfg, snapshot, RunningStage())

	require.NotNil(t, decision.dump)
	assert.Equal(t, dumpFeePayer, decision.dump.kind)
	assert.Equal(t, uint64(42), decision.dump.feePayerLamports)
	assert.Equal(t, owner, decision.dump.feePayerOwner)
}

func TestClassifyFeePayerRefusedWhenDisallowed(t *testing.T) {
	key := AccountKeyFromBytes([]byte("payer"))
	cfg := classifierConfig{permissions: Permissions{AllowUndelegated: true}}
	snapshot := ChainSnapshot{Key: key, AtSlot: 7, State: FeePayerState{Lamports: 42}}

	decision := classify(cfg, snapshot, RunningStage())

	require.NotNil(t, decision.outcome)
	assert.Equal(t, ReasonDoesNotAllowFeePayerAccount, decision.outcome.Reason)
	assert.Equal(t, Slot(7), decision.outcome.ValidUntilSlot)
	assert.False(t, decision.outcome.Reason.IsPermanent())
}

func TestClassifyExecutableUndelegatedRequiresAllowedProgramIDWhenListConfigured(t *testing.T) {
	programID := AccountKeyFromBytes([]byte("program"))
	other := AccountKeyFromBytes([]byte("other-program"))
	cfg := classifierConfig{
		permissions:       allowAllPermissions(),
		allowedProgramIDs: map[AccountKey]struct{}{programID: {}},
	}
	snapshot := ChainSnapshot{Key: other, AtSlot: 1, State: UndelegatedState{Account_: Account{Executable: true}}}

	decision := classify(cfg, snapshot, RunningStage())

	require.NotNil(t, decision.outcome)
	assert.Equal(t, ReasonIsNotAnAllowedProgram, decision.outcome.Reason)
	assert.True(t, decision.outcome.Reason.IsPermanent())
}

func TestClassifyExecutableUndelegatedDumpsAsProgramWhenAllowed(t *testing.T) {
	programID := AccountKeyFromBytes([]byte("program"))
	cfg := classifierConfig{permissions: allowAllPermissions()}
	snapshot := ChainSnapshot{Key: programID, AtSlot: 1, State: UndelegatedState{Account_: Account{Executable: true}}}

	decision := classify(cfg, snapshot, RunningStage())

	require.NotNil(t, decision.dump)
	assert.Equal(t, dumpProgram, decision.dump.kind)
}

func TestClassifyPlainUndelegatedDumpsWhenAllowed(t *testing.T) {
	key := AccountKeyFromBytes([]byte("plain"))
	cfg := classifierConfig{permissions: allowAllPermissions()}
	snapshot := ChainSnapshot{Key: key, AtSlot: 1, State: UndelegatedState{Account_: Account{Lamports: 1}}}

	decision := classify(cfg, snapshot, RunningStage())

	require.NotNil(t, decision.dump)
	assert.Equal(t, dumpUndelegated, decision.dump.kind)
}

func TestClassifyDelegatedDumpsDuringRunningStageRegardlessOfReplay(t *testing.T) {
	key := AccountKeyFromBytes([]byte("delegated"))
	cfg := classifierConfig{permissions: allowAllPermissions()}
	delegation := DelegationRecord{Authority: AccountKeyFromBytes([]byte("validator")), DelegationSlot: 100}
	snapshot := ChainSnapshot{Key: key, AtSlot: 100, State: DelegatedState{Account_: Account{}, Delegation: delegation}}

	decision := classify(cfg, snapshot, RunningStage())

	require.NotNil(t, decision.dump)
	assert.Equal(t, dumpDelegated, decision.dump.kind)
}

func TestClassifyDelegatedDuringHydrationReusesPriorCloneWhenDelegatedToSelf(t *testing.T) {
	key := AccountKeyFromBytes([]byte("delegated"))
	validatorIdentity := AccountKeyFromBytes([]byte("me"))
	cfg := classifierConfig{permissions: allowAllPermissions()}
	delegation := DelegationRecord{Authority: validatorIdentity, DelegationSlot: 55}
	snapshot := ChainSnapshot{Key: key, AtSlot: 55, State: DelegatedState{Account_: Account{}, Delegation: delegation}}

	decision := classify(cfg, snapshot, HydratingStage(validatorIdentity, AccountKey{}))

	require.NotNil(t, decision.outcome)
	assert.True(t, decision.outcome.Cloned)
	assert.Nil(t, decision.dump)
}

func TestClassifyDelegatedDuringHydrationDumpsWhenDelegatedToOtherValidator(t *testing.T) {
	key := AccountKeyFromBytes([]byte("delegated"))
	validatorIdentity := AccountKeyFromBytes([]byte("me"))
	otherValidator := AccountKeyFromBytes([]byte("someone-else"))
	cfg := classifierConfig{permissions: allowAllPermissions()}
	delegation := DelegationRecord{Authority: otherValidator, DelegationSlot: 55}
	snapshot := ChainSnapshot{Key: key, AtSlot: 55, State: DelegatedState{Account_: Account{}, Delegation: delegation}}

	decision := classify(cfg, snapshot, HydratingStage(validatorIdentity, AccountKey{}))

	require.NotNil(t, decision.dump)
	assert.Equal(t, dumpDelegated, decision.dump.kind)
}
