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

// Package crypto implements the Keccak256 hashing and contract address
// derivation used by the virtual machine.
package crypto

import (
	"hash"

	"github.com/minievm/minievm/common"
	"golang.org/x/crypto/sha3"
)

// KeccakState wraps sha3.state. In addition to the usual hash methods, it
// also supports Read to get a variable amount of data from the hash state.
// Read is faster than Sum because it doesn't copy the internal state.
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState creates a new KeccakState.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// Keccak256 calculates and returns the Keccak256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	b := make([]byte, 32)
	d := NewKeccakState()
	for _, datum := range data {
		d.Write(datum)
	}
	d.Read(b)
	return b
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input
// data, converting it to an internal Hash data structure.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := NewKeccakState()
	for _, datum := range data {
		d.Write(datum)
	}
	d.Read(h[:])
	return h
}

// CreateAddress creates an address given the creating address and nonce.
// The address is the last 20 bytes of keccak256(rlp([sender, nonce])).
func CreateAddress(b common.Address, nonce uint64) common.Address {
	data := rlpAddressNonce(b, nonce)
	return common.BytesToAddress(Keccak256(data)[12:])
}

// CreateAddress2 creates an address given the address bytes, initial
// contract code hash and a salt.
func CreateAddress2(b common.Address, salt [32]byte, inithash []byte) common.Address {
	return common.BytesToAddress(Keccak256([]byte{0xff}, b.Bytes(), salt[:], inithash)[12:])
}

// rlpAddressNonce encodes [address, nonce] as an RLP list. The payload is
// at most 30 bytes, so only the short-form headers are ever needed.
func rlpAddressNonce(addr common.Address, nonce uint64) []byte {
	payload := make([]byte, 0, 30)
	payload = append(payload, 0x80+common.AddressLength)
	payload = append(payload, addr[:]...)
	switch {
	case nonce == 0:
		payload = append(payload, 0x80)
	case nonce < 0x80:
		payload = append(payload, byte(nonce))
	default:
		var be [8]byte
		n := 0
		for i := 7; i >= 0; i-- {
			be[7-i] = byte(nonce >> (uint(i) * 8))
		}
		for n < 8 && be[n] == 0 {
			n++
		}
		payload = append(payload, 0x80+byte(8-n))
		payload = append(payload, be[n:]...)
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, 0xc0+byte(len(payload)))
	return append(out, payload...)
}
