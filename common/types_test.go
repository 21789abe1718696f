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

package common

import (
	"bytes"
	"testing"
)

func TestBytesToAddress(t *testing.T) {
	// Short input is left-padded.
	addr := BytesToAddress([]byte{1})
	if addr != HexToAddress("0x0000000000000000000000000000000000000001") {
		t.Errorf("short input: have %v", addr)
	}
	// Long input is cropped from the left.
	long := make([]byte, 25)
	long[0] = 0xff
	long[24] = 0x01
	addr = BytesToAddress(long)
	if addr != HexToAddress("0x0000000000000000000000000000000000000001") {
		t.Errorf("long input: have %v", addr)
	}
}

func TestHashSetBytes(t *testing.T) {
	var h Hash
	h.SetBytes([]byte{0xab, 0xcd})
	if h[30] != 0xab || h[31] != 0xcd {
		t.Errorf("left-pad failed: %x", h)
	}
	exp := "0x000000000000000000000000000000000000000000000000000000000000abcd"
	if h.Hex() != exp {
		t.Errorf("hex: have %s, want %s", h.Hex(), exp)
	}
}

func TestFromHex(t *testing.T) {
	if b := FromHex("0x0102"); !bytes.Equal(b, []byte{1, 2}) {
		t.Errorf("prefixed: have %x", b)
	}
	if b := FromHex("0102"); !bytes.Equal(b, []byte{1, 2}) {
		t.Errorf("bare: have %x", b)
	}
	// Odd-length input gets a leading zero nibble.
	if b := FromHex("0x102"); !bytes.Equal(b, []byte{1, 2}) {
		t.Errorf("odd: have %x", b)
	}
}

func TestPadBytes(t *testing.T) {
	b := []byte{1, 2}
	if got := LeftPadBytes(b, 4); !bytes.Equal(got, []byte{0, 0, 1, 2}) {
		t.Errorf("left pad: %x", got)
	}
	if got := RightPadBytes(b, 4); !bytes.Equal(got, []byte{1, 2, 0, 0}) {
		t.Errorf("right pad: %x", got)
	}
	// No-op when the slice is already long enough.
	if got := LeftPadBytes(b, 1); !bytes.Equal(got, b) {
		t.Errorf("left pad short: %x", got)
	}
}
