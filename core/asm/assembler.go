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

package asm

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/minievm/minievm/core/vm"
)

// Assemble translates line-oriented assembly source into bytecode. Each line
// holds one mnemonic, with PUSH1..PUSH32 followed by a hex immediate. Blank
// lines and text after "//" or ";" are ignored.
func Assemble(src string) ([]byte, error) {
	var code []byte
	for no, line := range strings.Split(src, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = line[:idx]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		instr, err := assembleLine(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", no+1, err)
		}
		code = append(code, instr...)
	}
	return code, nil
}

func assembleLine(fields []string) ([]byte, error) {
	mnemonic := strings.ToUpper(fields[0])
	op, ok := lookupOp(mnemonic)
	if !ok {
		return nil, fmt.Errorf("unknown mnemonic %q", fields[0])
	}
	if !op.IsPush() || op == vm.PUSH0 {
		if len(fields) > 1 {
			return nil, fmt.Errorf("%s takes no operand", mnemonic)
		}
		return []byte{byte(op)}, nil
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("%s needs exactly one operand", mnemonic)
	}
	operand := strings.TrimPrefix(fields[1], "0x")
	if len(operand) == 0 {
		return nil, fmt.Errorf("bad operand %q", fields[1])
	}
	if len(operand)%2 != 0 {
		operand = "0" + operand
	}
	raw, err := hex.DecodeString(operand)
	if err != nil {
		return nil, fmt.Errorf("bad operand %q: %w", fields[1], err)
	}
	// Drop leading zero bytes, then left-pad the value into the
	// immediate width the opcode dictates.
	for len(raw) > 1 && raw[0] == 0 {
		raw = raw[1:]
	}
	size := int(op-vm.PUSH1) + 1
	if len(raw) > size {
		return nil, fmt.Errorf("operand %q does not fit in %d bytes", fields[1], size)
	}
	instr := make([]byte, size+1)
	instr[0] = byte(op)
	copy(instr[1+size-len(raw):], raw)
	return instr, nil
}

// lookupOp resolves a mnemonic, rejecting the placeholder strings the opcode
// stringer produces for unassigned bytes.
func lookupOp(name string) (vm.OpCode, bool) {
	op := vm.StringToOp(name)
	if op == vm.STOP && name != "STOP" {
		return 0, false
	}
	return op, true
}
