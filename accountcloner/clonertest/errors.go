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

package clonertest

import (
	"fmt"

	"github.com/ephemeral-chain/accountcloner/accountcloner"
)

// errAccountNotSetUp signals a test bug: the code under test asked to
// fetch a key the test never registered with the stub.
func errAccountNotSetUp(key accountcloner.AccountKey) error {
	return fmt.Errorf("account not set up in fetcher stub: %s", key)
}
