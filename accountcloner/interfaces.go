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

import "context"

// InternalAccountProvider reads the local validator bank.
type InternalAccountProvider interface {
	HasAccount(key AccountKey) bool
	GetAllAccounts() []ProvidedAccount
}

// ProvidedAccount pairs a key with the account the local bank currently
// holds for it.
type ProvidedAccount struct {
	Key     AccountKey
	Account Account
}

// AccountFetcher retrieves the latest chain state of an account. It is a
// suspending (blocking) collaborator; implementations should honor ctx
// cancellation.
type AccountFetcher interface {
	FetchAccountChainSnapshot(ctx context.Context, key AccountKey, minContextSlot *Slot) (ChainSnapshot, error)
}

// AccountUpdates tracks subscription-based update notifications for
// accounts the cloner cares about. The cloner never manages subscription
// lifetime beyond requesting monitoring; the update-slot bookkeeping
// itself is owned entirely by this collaborator.
type AccountUpdates interface {
	EnsureAccountMonitoring(ctx context.Context, key AccountKey) error
	LastKnownUpdateSlot(key AccountKey) (Slot, bool)
	FirstSubscribedSlot(key AccountKey) (Slot, bool)
}

// AccountDumper applies account mutations to the local bank.
type AccountDumper interface {
	DumpFeePayerAccount(ctx context.Context, key AccountKey, lamports uint64, owner AccountKey) (Signature, error)
	DumpUndelegatedAccount(ctx context.Context, key AccountKey, account Account) (Signature, error)
	DumpDelegatedAccount(ctx context.Context, key AccountKey, account Account, owner AccountKey) (Signature, error)
	DumpProgramAccountWithLegacyLoader(ctx context.Context, key AccountKey, account Account) (Signature, error)
	DumpProgramAccounts(ctx context.Context, programID AccountKey, programIDAccount Account, dataKey AccountKey, dataAccount Account, idl *IDLAccount) (Signature, error)
}

// IDLAccount is an optional sidecar account describing a program's
// interface, in either Anchor or Shank format.
type IDLAccount struct {
	Key     AccountKey
	Account Account
}
