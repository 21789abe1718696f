// Copyright 2024 The minievm Authors
// This file is part of the minievm library.
//
// The minievm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The minievm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the minievm library. If not, see <http://www.gnu.org/licenses/>.

// Package types holds the data records produced by contract execution.
package types

import "github.com/minievm/minievm/common"

// Log represents a contract log event emitted by the LOG0-LOG4 opcodes.
// Logs are recorded through the state journal, so a reverted frame drops
// the events it emitted.
type Log struct {
	// Address of the contract that generated the event.
	Address common.Address
	// List of topics provided by the contract.
	Topics []common.Hash
	// Supplied by the contract, usually ABI-encoded.
	Data []byte
}
