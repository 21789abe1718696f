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

package runtime

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"github.com/minievm/minievm/common"
	"github.com/minievm/minievm/core/asm"
	"github.com/minievm/minievm/core/state"
	"github.com/minievm/minievm/core/vm"
	"github.com/minievm/minievm/crypto"
)

func TestDefaults(t *testing.T) {
	cfg := new(Config)
	setDefaults(cfg)

	if cfg.Difficulty == nil {
		t.Error("expected difficulty to be non nil")
	}
	if cfg.GasLimit == 0 {
		t.Error("didn't expect gaslimit to be zero")
	}
	if cfg.GasPrice == nil {
		t.Error("expected time to be non nil")
	}
	if cfg.Value == nil {
		t.Error("expected time to be non nil")
	}
	if cfg.GetHashFn == nil {
		t.Error("expected time to be non nil")
	}
	if cfg.BaseFee == nil {
		t.Error("expected basefee to be non nil")
	}
}

func TestEVM(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("crashed with: %v", r)
		}
	}()

	Execute([]byte{
		byte(vm.DIFFICULTY),
		byte(vm.TIMESTAMP),
		byte(vm.GASLIMIT),
		byte(vm.PUSH1),
		byte(vm.ORIGIN),
		byte(vm.BLOCKHASH),
		byte(vm.COINBASE),
	}, nil, nil)
}

func TestExecute(t *testing.T) {
	// PUSH1 8, PUSH1 0, MSTORE, PUSH1 32, PUSH1 0, RETURN
	// returns 8 as a 32-byte big-endian word.
	ret, _, err := Execute([]byte{
		byte(vm.PUSH1), 8,
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	}, nil, nil)
	if err != nil {
		t.Fatal("didn't expect error", err)
	}

	num := new(uint256.Int).SetBytes(ret)
	if num.Uint64() != 8 {
		t.Error("expected 8, got", num)
	}
	if len(ret) != 32 {
		t.Errorf("expected a full word, got %d bytes", len(ret))
	}
}

func TestCall(t *testing.T) {
	statedb := state.New()
	address := common.HexToAddress("0xaa")
	statedb.CreateAccount(address)
	statedb.SetCode(address, []byte{
		byte(vm.PUSH1), 10,
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE),
		byte(vm.PUSH1), 32,
		byte(vm.PUSH1), 0,
		byte(vm.RETURN),
	})

	ret, _, err := Call(address, nil, &Config{State: statedb})
	if err != nil {
		t.Fatal("didn't expect error", err)
	}

	num := new(uint256.Int).SetBytes(ret)
	if num.Uint64() != 10 {
		t.Error("expected 10, got", num)
	}
}

func TestRevert(t *testing.T) {
	statedb := state.New()
	address := common.HexToAddress("0xbb")
	statedb.CreateAccount(address)
	// SSTORE(0, 1) then REVERT(0, 0): the write must be rolled back.
	statedb.SetCode(address, []byte{
		byte(vm.PUSH1), 1,
		byte(vm.PUSH1), 0,
		byte(vm.SSTORE),
		byte(vm.PUSH1), 0,
		byte(vm.PUSH1), 0,
		byte(vm.REVERT),
	})

	ret, leftGas, err := Call(address, nil, &Config{State: statedb, GasLimit: 100000})
	if !errors.Is(err, vm.ErrExecutionReverted) {
		t.Fatalf("expected revert, got %v", err)
	}
	if len(ret) != 0 {
		t.Errorf("expected empty revert data, got %x", ret)
	}
	if leftGas == 0 {
		t.Error("revert should refund the remaining gas")
	}
	if statedb.GetState(address, common.Hash{}) != (common.Hash{}) {
		t.Error("reverted store leaked through")
	}
}

func TestRevertWithData(t *testing.T) {
	statedb := state.New()
	address := common.HexToAddress("0xbc")
	statedb.CreateAccount(address)
	// MSTORE8(0, 0x42) then REVERT(0, 1)
	statedb.SetCode(address, []byte{
		byte(vm.PUSH1), 0x42,
		byte(vm.PUSH1), 0,
		byte(vm.MSTORE8),
		byte(vm.PUSH1), 1,
		byte(vm.PUSH1), 0,
		byte(vm.REVERT),
	})

	ret, _, err := Call(address, nil, &Config{State: statedb, GasLimit: 100000})
	if !errors.Is(err, vm.ErrExecutionReverted) {
		t.Fatalf("expected revert, got %v", err)
	}
	if !bytes.Equal(ret, []byte{0x42}) {
		t.Errorf("expected revert data 0x42, got %x", ret)
	}
}

func TestInsufficientBalance(t *testing.T) {
	statedb := state.New()
	sender := common.HexToAddress("0x01")
	dest := common.HexToAddress("0x02")
	statedb.CreateAccount(sender)
	statedb.CreateAccount(dest)

	cfg := &Config{
		State:    statedb,
		Origin:   sender,
		Value:    uint256.NewInt(100), // sender has 0
		GasLimit: 100000,
	}
	_, _, err := Call(dest, nil, cfg)
	if !errors.Is(err, vm.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestCreateAddressDeterminism(t *testing.T) {
	statedb := state.New()
	sender := common.HexToAddress("0x01")
	statedb.CreateAccount(sender)

	cfg := &Config{State: statedb, Origin: sender, GasLimit: 1000000}
	// Init code: return empty runtime code.
	initCode := []byte{byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.RETURN)}

	_, addr0, _, err := Create(initCode, cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, addr1, _, err := Create(initCode, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if addr0 == addr1 {
		t.Error("successive creates must land at distinct addresses")
	}
	if want := crypto.CreateAddress(sender, 0); addr0 != want {
		t.Errorf("first create: have %v, want %v", addr0, want)
	}
	if want := crypto.CreateAddress(sender, 1); addr1 != want {
		t.Errorf("second create: have %v, want %v", addr1, want)
	}
}

func TestCreateDeploysCode(t *testing.T) {
	statedb := state.New()
	sender := common.HexToAddress("0x01")
	statedb.CreateAccount(sender)

	// Init code that returns the runtime code [0xfe] (a single INVALID).
	src := `
		PUSH32 0xfe00000000000000000000000000000000000000000000000000000000000000
		PUSH1 0x00
		MSTORE
		PUSH1 0x01
		PUSH1 0x00
		RETURN
	`
	initCode, err := asm.Assemble(src)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &Config{State: statedb, Origin: sender, GasLimit: 1000000}
	_, addr, _, err := Create(initCode, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if code := statedb.GetCode(addr); !bytes.Equal(code, []byte{0xfe}) {
		t.Errorf("deployed code: have %x, want fe", code)
	}
	if statedb.GetNonce(addr) != 1 {
		t.Error("created contract should start at nonce 1")
	}
}

func TestCallDepthLimit(t *testing.T) {
	statedb := state.New()
	address := common.HexToAddress("0xcc")
	statedb.CreateAccount(address)

	// The contract calls itself recursively, forwarding all gas. The run
	// must stop at the depth bound rather than recursing forever.
	src := `
		PUSH1 0x00
		PUSH1 0x00
		PUSH1 0x00
		PUSH1 0x00
		PUSH1 0x00
		PUSH1 0xcc
		GAS
		CALL
		STOP
	`
	code, err := asm.Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	statedb.SetCode(address, code)

	_, _, err = Call(address, nil, &Config{State: statedb, GasLimit: 10000000})
	if err != nil {
		t.Fatalf("depth-bounded recursion should finish cleanly, got %v", err)
	}
}

func TestNestedRevertRollback(t *testing.T) {
	var (
		statedb = state.New()
		outer   = common.HexToAddress("0xd1")
		inner   = common.HexToAddress("0xd2")
	)
	statedb.CreateAccount(outer)
	statedb.CreateAccount(inner)

	// inner: SSTORE(0, 2) then REVERT(0, 0)
	statedb.SetCode(inner, []byte{
		byte(vm.PUSH1), 2, byte(vm.PUSH1), 0, byte(vm.SSTORE),
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.REVERT),
	})
	// outer: SSTORE(0, 1), CALL(inner), STOP. Outer's write survives, the
	// inner frame's write does not.
	code := []byte{
		byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE),
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.PUSH1), 0,
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.PUSH1), 0xd2,
		byte(vm.GAS), byte(vm.CALL),
		byte(vm.STOP),
	}
	statedb.SetCode(outer, code)

	_, _, err := Call(outer, nil, &Config{State: statedb, GasLimit: 1000000})
	if err != nil {
		t.Fatal(err)
	}
	if got := statedb.GetState(outer, common.Hash{}); got != common.HexToHash("0x01") {
		t.Errorf("outer write lost: %v", got)
	}
	if got := statedb.GetState(inner, common.Hash{}); got != (common.Hash{}) {
		t.Errorf("inner reverted write leaked: %v", got)
	}
}

func TestLogsEmitted(t *testing.T) {
	statedb := state.New()
	address := common.HexToAddress("0xe1")
	statedb.CreateAccount(address)

	// LOG1 with topic 0xff and one byte of data from memory.
	src := `
		PUSH1 0x42
		PUSH1 0x00
		MSTORE8
		PUSH1 0xff
		PUSH1 0x01
		PUSH1 0x00
		LOG1
		STOP
	`
	code, err := asm.Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	statedb.SetCode(address, code)

	if _, _, err := Call(address, nil, &Config{State: statedb, GasLimit: 100000}); err != nil {
		t.Fatal(err)
	}
	logs := statedb.Logs()
	if len(logs) != 1 {
		t.Fatalf("expected one log, got %d", len(logs))
	}
	if logs[0].Address != address {
		t.Errorf("log address: %v", logs[0].Address)
	}
	if len(logs[0].Topics) != 1 || logs[0].Topics[0] != common.HexToHash("0xff") {
		t.Errorf("log topics: %v", logs[0].Topics)
	}
	if !bytes.Equal(logs[0].Data, []byte{0x42}) {
		t.Errorf("log data: %x", logs[0].Data)
	}
}

func TestCallDataAccess(t *testing.T) {
	statedb := state.New()
	address := common.HexToAddress("0xe2")
	statedb.CreateAccount(address)

	// Return the first word of call data.
	src := `
		PUSH1 0x00
		CALLDATALOAD
		PUSH1 0x00
		MSTORE
		PUSH1 0x20
		PUSH1 0x00
		RETURN
	`
	code, err := asm.Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	statedb.SetCode(address, code)

	input := common.LeftPadBytes([]byte{0xde, 0xad}, 32)
	ret, _, err := Call(address, input, &Config{State: statedb, GasLimit: 100000})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ret, input) {
		t.Errorf("have %x, want %x", ret, input)
	}
}

func TestKeccakOpcode(t *testing.T) {
	// KECCAK256 over an empty range must equal the well-known empty hash.
	src := strings.Join([]string{
		"PUSH1 0x00",
		"PUSH1 0x00",
		"KECCAK256",
		"PUSH1 0x00",
		"MSTORE",
		"PUSH1 0x20",
		"PUSH1 0x00",
		"RETURN",
	}, "\n")
	code, err := asm.Assemble(src)
	if err != nil {
		t.Fatal(err)
	}
	ret, _, err := Execute(code, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := crypto.Keccak256(nil)
	if !bytes.Equal(ret, want) {
		t.Errorf("have %x, want %x", ret, want)
	}
}

func TestStateRollbackOnOutOfGas(t *testing.T) {
	statedb := state.New()
	address := common.HexToAddress("0xe3")
	statedb.CreateAccount(address)

	// SSTORE then an infinite loop: the frame dies out-of-gas and the
	// store must be rolled back with it.
	code, err := asm.Assemble(`
		PUSH1 0x01
		PUSH1 0x00
		SSTORE
		JUMPDEST
		PUSH1 0x05
		JUMP
	`)
	if err != nil {
		t.Fatal(err)
	}
	statedb.SetCode(address, code)

	_, leftGas, err := Call(address, nil, &Config{State: statedb, GasLimit: 100000})
	if !errors.Is(err, vm.ErrOutOfGas) {
		t.Fatalf("expected out of gas, got %v", err)
	}
	if leftGas != 0 {
		t.Errorf("out of gas must consume everything, %d left", leftGas)
	}
	if statedb.GetState(address, common.Hash{}) != (common.Hash{}) {
		t.Error("store survived an out-of-gas rollback")
	}
}

func TestTracerSeesSteps(t *testing.T) {
	tracer := vm.NewStructLogger()
	cfg := &Config{
		EVMConfig: vm.Config{Tracer: tracer},
	}
	_, _, err := Execute([]byte{byte(vm.PUSH1), 1, byte(vm.PUSH1), 2, byte(vm.ADD), byte(vm.STOP)}, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	logs := tracer.StructLogs()
	if len(logs) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(logs))
	}
	if logs[2].Op != vm.ADD {
		t.Errorf("step 2: have %v, want ADD", logs[2].Op)
	}
	// After both pushes the stack holds the operands.
	if len(logs[2].Stack) != 2 {
		t.Errorf("ADD should see two stack items, saw %d", len(logs[2].Stack))
	}
}
