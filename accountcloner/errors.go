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
	stderrors "errors"

	"github.com/pkg/errors"
)

// ErrFailedToFetchSatisfactorySlot is returned by the fetch-with-freshness
// loop when retries are exhausted and the last attempt came back with a
// snapshot older than the first observed subscription slot for that key.
var ErrFailedToFetchSatisfactorySlot = stderrors.New("failed to fetch a chain snapshot at or after the subscribed slot")

// ErrProgramDataDoesNotExist is returned when an executable's associated
// program-data account is missing, or when the executable is owned by the
// deprecated (no-longer-supported) loader.
var ErrProgramDataDoesNotExist = stderrors.New("program data account does not exist")

// WrapFetcherError tags err as having originated from the AccountFetcher
// collaborator, preserving it for errors.Is/As and adding call-site
// context for logs.
func WrapFetcherError(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, "account fetcher: "+context)
}

// WrapUpdatesError tags err as having originated from the AccountUpdates
// collaborator.
func WrapUpdatesError(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, "account updates: "+context)
}

// WrapDumperError tags err as having originated from the AccountDumper
// collaborator.
func WrapDumperError(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, "account dumper: "+context)
}
