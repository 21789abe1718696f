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
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/minievm/minievm/common"
	"github.com/minievm/minievm/core/state"
)

type twoOperandTest struct {
	x        string
	y        string
	expected string
}

func testEnv() *EVM {
	return NewEVM(BlockContext{
		CanTransfer: func(StateDB, common.Address, *uint256.Int) bool { return true },
		Transfer:    func(StateDB, common.Address, common.Address, *uint256.Int) {},
	}, TxContext{}, state.New(), Config{})
}

func testTwoOperandOp(t *testing.T, tests []twoOperandTest, opFn executionFunc, name string) {
	t.Helper()
	var (
		evm   = testEnv()
		stack = newstack()
		pc    = uint64(0)
	)
	scope := &ScopeContext{
		Memory:   NewMemory(),
		Stack:    stack,
		Contract: nil,
	}
	for i, test := range tests {
		x := new(uint256.Int).SetBytes(common.FromHex(test.x))
		y := new(uint256.Int).SetBytes(common.FromHex(test.y))
		expected := new(uint256.Int).SetBytes(common.FromHex(test.expected))
		stack.push(x)
		stack.push(y)
		opFn(&pc, evm.interpreter, scope)
		if len(stack.data) != 1 {
			t.Errorf("%v %d: expected one item on stack after, got %d", name, i, len(stack.data))
		}
		actual := stack.pop()

		if actual.Cmp(expected) != 0 {
			t.Errorf("%v %d, %v(%x, %x): expected  %x, got %x", name, i, name, x, y, expected, actual)
		}
	}
}

func TestByteOp(t *testing.T) {
	tests := []twoOperandTest{
		{"ABCDEF0908070605040302010000000000000000000000000000000000000000", "00", "AB"},
		{"ABCDEF0908070605040302010000000000000000000000000000000000000000", "01", "CD"},
		{"00CDEF090807060504030201ffffffffffffffffffffffffffffffffffffffff", "00", "00"},
		{"00CDEF090807060504030201ffffffffffffffffffffffffffffffffffffffff", "01", "CD"},
		{"0000000000000000000000000000000000000000000000000000000000102030", "1F", "30"},
		{"0000000000000000000000000000000000000000000000000000000000102030", "1E", "20"},
		{"ABCDEF0908070605040302010000000000000000000000000000000000000000", "20", "00"},
		{"ABCDEF0908070605040302010000000000000000000000000000000000000000", "FFFFFFFFFFFFFFFF", "00"},
	}
	testTwoOperandOp(t, tests, opByte, "byte")
}

func TestSHL(t *testing.T) {
	// Testcases from EIP-145, https://eips.ethereum.org/EIPS/eip-145
	tests := []twoOperandTest{
		{"0000000000000000000000000000000000000000000000000000000000000001", "01", "0000000000000000000000000000000000000000000000000000000000000002"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "ff", "8000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "0101", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ff", "8000000000000000000000000000000000000000000000000000000000000000"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000000000", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
	}
	testTwoOperandOp(t, tests, opSHL, "shl")
}

func TestSHR(t *testing.T) {
	// Testcases from EIP-145, https://eips.ethereum.org/EIPS/eip-145
	tests := []twoOperandTest{
		{"0000000000000000000000000000000000000000000000000000000000000001", "00", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "01", "4000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "ff", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "0101", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ff", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"0000000000000000000000000000000000000000000000000000000000000000", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
	}
	testTwoOperandOp(t, tests, opSHR, "shr")
}

func TestSAR(t *testing.T) {
	// Testcases from EIP-145, https://eips.ethereum.org/EIPS/eip-145
	tests := []twoOperandTest{
		{"0000000000000000000000000000000000000000000000000000000000000001", "00", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"0000000000000000000000000000000000000000000000000000000000000001", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "01", "c000000000000000000000000000000000000000000000000000000000000000"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "ff", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "0100", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"8000000000000000000000000000000000000000000000000000000000000000", "0101", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ff", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0100", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
		{"0000000000000000000000000000000000000000000000000000000000000000", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"4000000000000000000000000000000000000000000000000000000000000000", "fe", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "f8", "000000000000000000000000000000000000000000000000000000000000007f"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "fe", "0000000000000000000000000000000000000000000000000000000000000001"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ff", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "0100", "0000000000000000000000000000000000000000000000000000000000000000"},
	}
	testTwoOperandOp(t, tests, opSAR, "sar")
}

func TestWraparoundArithmetic(t *testing.T) {
	// All arithmetic is modulo 2^256. The y column is the top of the
	// stack, i.e. the minuend / dividend.
	testTwoOperandOp(t, []twoOperandTest{
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "01", "0000000000000000000000000000000000000000000000000000000000000000"},
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
	}, opAdd, "add")
	testTwoOperandOp(t, []twoOperandTest{
		{"01", "00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"},
	}, opSub, "sub")
	testTwoOperandOp(t, []twoOperandTest{
		{"02", "8000000000000000000000000000000000000000000000000000000000000000", "0000000000000000000000000000000000000000000000000000000000000000"},
	}, opMul, "mul")
	// MIN_INT256 / -1 wraps back to MIN_INT256.
	testTwoOperandOp(t, []twoOperandTest{
		{"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "8000000000000000000000000000000000000000000000000000000000000000", "8000000000000000000000000000000000000000000000000000000000000000"},
	}, opSdiv, "sdiv")
	// SMOD takes the sign of the dividend: -8 smod 3 is -2.
	testTwoOperandOp(t, []twoOperandTest{
		{"03", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff8", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
	}, opSmod, "smod")
}

func TestDivModByZero(t *testing.T) {
	// Division and modulo by a zero divisor yield zero rather than trapping.
	for _, tc := range []struct {
		name string
		op   executionFunc
	}{
		{"div", opDiv},
		{"sdiv", opSdiv},
		{"mod", opMod},
		{"smod", opSmod},
	} {
		testTwoOperandOp(t, []twoOperandTest{
			{"00", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "00"},
			{"00", "07", "00"},
		}, tc.op, tc.name)
	}
}

func TestAddMod(t *testing.T) {
	var (
		evm   = testEnv()
		stack = newstack()
		pc    = uint64(0)
	)
	scope := &ScopeContext{Memory: NewMemory(), Stack: stack}
	tests := []struct {
		x, y, z, expected string
	}{
		{ // (2^256-2 + 2^256-3) mod (2^256-1) needs the full-precision sum
			"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFE",
			"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFD",
			"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF",
			"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFC",
		},
		{ // 1 + 2 mod 0 is defined to be 0
			"0000000000000000000000000000000000000000000000000000000000000001",
			"0000000000000000000000000000000000000000000000000000000000000002",
			"0000000000000000000000000000000000000000000000000000000000000000",
			"0000000000000000000000000000000000000000000000000000000000000000",
		},
	}
	for i, test := range tests {
		x := new(uint256.Int).SetBytes(common.FromHex(test.x))
		y := new(uint256.Int).SetBytes(common.FromHex(test.y))
		z := new(uint256.Int).SetBytes(common.FromHex(test.z))
		expected := new(uint256.Int).SetBytes(common.FromHex(test.expected))
		stack.push(z)
		stack.push(y)
		stack.push(x)
		opAddmod(&pc, evm.interpreter, scope)
		actual := stack.pop()
		if actual.Cmp(expected) != 0 {
			t.Errorf("test %d: expected %x, got %x", i, expected, actual)
		}
	}
}

func TestOpMstore(t *testing.T) {
	var (
		evm   = testEnv()
		stack = newstack()
		mem   = NewMemory()
		pc    = uint64(0)
	)
	scope := &ScopeContext{Memory: mem, Stack: stack}
	mem.Resize(64)
	v := "abcdef00000000000000abba000000000deaf000000c0de00100000000133700"
	stack.push(new(uint256.Int).SetBytes(common.FromHex(v)))
	stack.push(new(uint256.Int))
	opMstore(&pc, evm.interpreter, scope)
	if got := common.Bytes2Hex(mem.GetCopy(0, 32)); got != v {
		t.Fatalf("Mstore fail, got %v, expected %v", got, v)
	}
	stack.push(new(uint256.Int).SetUint64(0x1))
	stack.push(new(uint256.Int))
	opMstore(&pc, evm.interpreter, scope)
	if common.Bytes2Hex(mem.GetCopy(0, 32)) != "0000000000000000000000000000000000000000000000000000000000000001" {
		t.Fatalf("Mstore failed to overwrite previous value")
	}
}

func TestOpMload(t *testing.T) {
	var (
		evm   = testEnv()
		stack = newstack()
		mem   = NewMemory()
		pc    = uint64(0)
	)
	scope := &ScopeContext{Memory: mem, Stack: stack}
	mem.Resize(96)
	v := "abcdef00000000000000abba000000000deaf000000c0de00100000000133700"
	mem.Set(32, 32, common.FromHex(v))

	// Load back the word stored at a non-zero offset.
	stack.push(new(uint256.Int).SetUint64(32))
	opMload(&pc, evm.interpreter, scope)
	want := new(uint256.Int).SetBytes(common.FromHex(v))
	if got := stack.pop(); got.Cmp(want) != 0 {
		t.Fatalf("Mload fail, got %x, expected %x", got, want)
	}

	// An untouched word reads as zero.
	stack.push(new(uint256.Int))
	opMload(&pc, evm.interpreter, scope)
	if got := stack.pop(); !got.IsZero() {
		t.Fatalf("Mload of zeroed memory returned %x", got)
	}
}

func TestOpTstore(t *testing.T) {
	var (
		statedb  = state.New()
		evm      = NewEVM(BlockContext{}, TxContext{}, statedb, Config{})
		stack    = newstack()
		mem      = NewMemory()
		caller   = common.Address{}
		to       = common.Address{1, 1}
		contract = NewContract(AccountRef(caller), AccountRef(to), new(uint256.Int), 0, nil)
		scope    = &ScopeContext{Memory: mem, Stack: stack, Contract: contract}
		value    = common.Hex2Bytes("abcdef00000000000000abba000000000deaf000000c0de00100000000133700")
		pc       = uint64(0)
	)
	statedb.CreateAccount(caller)
	statedb.CreateAccount(to)

	// Add a value to the transient store and read it back.
	stack.push(new(uint256.Int).SetBytes(value))
	stack.push(new(uint256.Int))
	if _, err := opTstore(&pc, evm.interpreter, scope); err != nil {
		t.Fatal(err)
	}
	stack.push(new(uint256.Int))
	opTload(&pc, evm.interpreter, scope)
	res := stack.pop()
	if res.Bytes32() != common.BytesToHash(value) {
		t.Fatal("mismatch in tload value")
	}

	// In a read-only frame the store must refuse.
	evm.interpreter.readOnly = true
	stack.push(new(uint256.Int).SetBytes(value))
	stack.push(new(uint256.Int))
	if _, err := opTstore(&pc, evm.interpreter, scope); err != ErrWriteProtection {
		t.Fatalf("expected write protection, got %v", err)
	}
}

func TestOpMCopy(t *testing.T) {
	// Test cases from https://eips.ethereum.org/EIPS/eip-5656#test-cases
	var (
		evm   = testEnv()
		stack = newstack()
		pc    = uint64(0)
	)
	for i, tc := range []struct {
		dst, src, len string
		pre           string
		want          string
	}{
		{
			dst: "0x0", src: "0x20", len: "0x20",
			pre:  "0000000000000000000000000000000000000000000000000000000000000000 0101010101010101010101010101010101010101010101010101010101010101",
			want: "0101010101010101010101010101010101010101010101010101010101010101 0101010101010101010101010101010101010101010101010101010101010101",
		},
		{
			dst: "0x0", src: "0x1", len: "0x8",
			pre:  "000102030405060708",
			want: "010203040506070808",
		},
		{
			dst: "0x1", src: "0x0", len: "0x8",
			pre:  "000102030405060708",
			want: "000001020304050607",
		},
	} {
		data := common.FromHex(strings.ReplaceAll(tc.pre, " ", ""))
		// Set pre
		mem := NewMemory()
		mem.Resize(uint64(len(data)))
		mem.Set(0, uint64(len(data)), data)
		// Push stack args
		len, _ := uint256.FromHex(tc.len)
		src, _ := uint256.FromHex(tc.src)
		dst, _ := uint256.FromHex(tc.dst)

		stack.push(len)
		stack.push(src)
		stack.push(dst)
		wantErr := (tc.want == "err")
		// Calc mem expansion
		memSize, overflow := memoryMcopy(stack)
		if overflow {
			t.Fatalf("case %d: unexpected overflow", i)
		}
		memSize = toWordSize(memSize) * 32
		if memSize > uint64(mem.Len()) {
			mem.Resize(memSize)
		}
		scope := &ScopeContext{Memory: mem, Stack: stack}
		_, err := opMcopy(&pc, evm.interpreter, scope)
		if (err != nil) != wantErr {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		want := common.FromHex(strings.ReplaceAll(tc.want, " ", ""))
		if have := mem.store[:len.Uint64()+max64(dst.Uint64(), src.Uint64())]; !bytes.Equal(want, have) {
			t.Errorf("case %d: \nwant: %#x\nhave: %#x\n", i, want, have)
		}
	}
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
