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

// Package params holds the execution limits and the gas schedule.
package params

const (
	StackLimit      uint64 = 1024 // Maximum size of the VM stack allowed.
	CallCreateDepth uint64 = 1024 // Maximum depth of call/create stack.
	MaxCodeSize            = 24576
	MaxInitCodeSize        = 2 * MaxCodeSize

	// MaxMemorySize caps a single frame's memory. Offsets and lengths are
	// 256-bit words on the stack; anything above this cap fails cleanly
	// instead of attempting the allocation.
	MaxMemorySize uint64 = 0x1FFFFFFFE0

	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20

	ExpGas     uint64 = 10 // Once per EXP instruction
	ExpByteGas uint64 = 50 // Times ceil(log256(exponent)) for the EXP instruction

	Keccak256Gas     uint64 = 30 // Once per KECCAK256 operation.
	Keccak256WordGas uint64 = 6  // Once per word of the KECCAK256 operand.

	SloadGas       uint64 = 200
	SstoreSetGas   uint64 = 20000 // Once per SSTORE operation from zero to non-zero.
	SstoreResetGas uint64 = 5000  // Once per SSTORE operation touching an existing value.
	TloadGas       uint64 = 100
	TstoreGas      uint64 = 100

	JumpdestGas uint64 = 1

	MemoryGas    uint64 = 3   // Times the address of the (highest referenced byte in memory + 1).
	QuadCoeffDiv uint64 = 512 // Divisor for the quadratic particle of the memory cost equation.
	CopyGas      uint64 = 3   // Times the number of words copied.

	LogGas      uint64 = 375 // Per LOG* operation.
	LogTopicGas uint64 = 375 // Multiplied by the number of LOG* topics.
	LogDataGas  uint64 = 8   // Per byte in a LOG* operation's data.

	BalanceGas      uint64 = 400
	ExtcodeSizeGas  uint64 = 700
	ExtcodeCopyBase uint64 = 700
	ExtcodeHashGas  uint64 = 400
	SelfbalanceGas  uint64 = 5
	BlockhashGas    uint64 = 20

	CallGas              uint64 = 700   // Once per CALL family operation.
	CallStipend          uint64 = 2300  // Free gas given at beginning of a value-transferring call.
	CallValueTransferGas uint64 = 9000  // Paid for CALL when the value transfer is non-zero.
	CallNewAccountGas    uint64 = 25000 // Paid for CALL when the destination address didn't exist prior.

	CreateGas               uint64 = 32000 // Once per CREATE operation and contract-creation transaction.
	CreateDataGas           uint64 = 200   // Per byte of deployed contract code.
	InitCodeWordGas         uint64 = 2     // Per word of the init code when creating a contract.
	SelfdestructGas         uint64 = 5000
	CreateBySelfdestructGas uint64 = 25000 // Paid when SELFDESTRUCT sends funds to a previously empty account.

	// Precompile pricing.
	Sha256BaseGas       uint64 = 60
	Sha256PerWordGas    uint64 = 12
	Ripemd160BaseGas    uint64 = 600
	Ripemd160PerWordGas uint64 = 120
	IdentityBaseGas     uint64 = 15
	IdentityPerWordGas  uint64 = 3
)
