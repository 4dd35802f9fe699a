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

import "github.com/google/uuid"

// newSyntheticSignature fabricates a unique placeholder signature for the
// ledger-replay reuse path (classifyDelegated), where no dump actually
// happens and so no real transaction signature exists. Four uuid.v4 draws
// fill the 64-byte signature; collisions are as likely as a uuid
// collision, which is to say not a practical concern here.
func newSyntheticSignature() Signature {
	var sig Signature
	for i := 0; i < 4; i++ {
		id := uuid.New()
		copy(sig[i*16:(i+1)*16], id[:])
	}
	return sig
}
