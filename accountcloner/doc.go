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

// Package accountcloner lazily replicates remote chain account state into
// a local validator bank.
//
// The worker in this package fetches the latest chain state of a
// requested account, classifies it into one of several cloning regimes
// (fee-payer, undelegated data, undelegated program, delegated), decides
// whether a previously cloned snapshot can be reused, dispatches the
// appropriate local materialization through an external dumper, and fans
// the outcome out to every caller that asked for the same key at the same
// time.
package accountcloner
