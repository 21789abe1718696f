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

package vm

import (
	"bytes"
	"testing"

	"github.com/minievm/minievm/common"
)

func TestPrecompiledSha256(t *testing.T) {
	p := PrecompiledContracts[common.BytesToAddress([]byte{2})]
	in := []byte("hello")
	exp := common.FromHex("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")

	gas := p.RequiredGas(in)
	ret, remaining, err := RunPrecompiledContract(p, in, gas)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ret, exp) {
		t.Errorf("have %x, want %x", ret, exp)
	}
	if remaining != 0 {
		t.Errorf("expected all gas consumed, %d left", remaining)
	}
}

func TestPrecompiledRipemd160(t *testing.T) {
	p := PrecompiledContracts[common.BytesToAddress([]byte{3})]
	in := []byte("hello")
	// ripemd160("hello"), left-padded to a 32-byte word.
	exp := common.FromHex("000000000000000000000000108f07b8382412612c048d07d13f814118445acd")

	ret, _, err := RunPrecompiledContract(p, in, p.RequiredGas(in))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ret, exp) {
		t.Errorf("have %x, want %x", ret, exp)
	}
}

func TestPrecompiledIdentity(t *testing.T) {
	p := PrecompiledContracts[common.BytesToAddress([]byte{4})]
	in := []byte{1, 2, 3, 4}

	ret, _, err := RunPrecompiledContract(p, in, p.RequiredGas(in))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ret, in) {
		t.Errorf("have %x, want %x", ret, in)
	}
	// The output must be a copy, not an alias.
	ret[0] = 0xff
	if in[0] != 1 {
		t.Error("identity output aliases its input")
	}
}

func TestPrecompiledOutOfGas(t *testing.T) {
	p := PrecompiledContracts[common.BytesToAddress([]byte{2})]
	in := []byte("hello")

	_, _, err := RunPrecompiledContract(p, in, p.RequiredGas(in)-1)
	if err != ErrOutOfGas {
		t.Errorf("have %v, want %v", err, ErrOutOfGas)
	}
}
