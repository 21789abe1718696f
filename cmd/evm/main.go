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

// evm executes EVM code snippets: assemble, disassemble and run bytecode
// against a fresh in-memory state.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/minievm/minievm/common"
	"github.com/minievm/minievm/core/asm"
	"github.com/minievm/minievm/core/state"
	"github.com/minievm/minievm/core/vm"
	"github.com/minievm/minievm/core/vm/runtime"
)

var log = logrus.New()

var (
	codeFlag = &cli.StringFlag{
		Name:  "code",
		Usage: "EVM bytecode as a hex string",
	}
	codeFileFlag = &cli.StringFlag{
		Name:  "codefile",
		Usage: "file containing EVM bytecode as hex ('-' for stdin)",
	}
	inputFlag = &cli.StringFlag{
		Name:  "input",
		Usage: "call data as a hex string",
	}
	gasFlag = &cli.Uint64Flag{
		Name:  "gas",
		Usage: "gas limit for the execution",
		Value: 10000000,
	}
	priceFlag = &cli.Uint64Flag{
		Name:  "price",
		Usage: "gas price for the execution",
	}
	valueFlag = &cli.Uint64Flag{
		Name:  "value",
		Usage: "value sent with the call",
	}
	senderFlag = &cli.StringFlag{
		Name:  "sender",
		Usage: "sender address",
		Value: "0x73656e646572",
	}
	balanceFlag = &cli.Uint64Flag{
		Name:  "balance",
		Usage: "balance preassigned to the sender",
	}
	createFlag = &cli.BoolFlag{
		Name:  "create",
		Usage: "treat the code as creation code and deploy it",
	}
	traceFlag = &cli.BoolFlag{
		Name:  "trace",
		Usage: "print a structured opcode trace to stderr",
	}
	dumpFlag = &cli.BoolFlag{
		Name:  "dump",
		Usage: "dump the state after the run",
	}
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level (panic, fatal, error, warn, info, debug, trace)",
		Value: "info",
	}
)

func main() {
	app := &cli.App{
		Name:  "evm",
		Usage: "a tool for assembling and running EVM bytecode",
		Flags: []cli.Flag{verbosityFlag},
		Before: func(ctx *cli.Context) error {
			level, err := logrus.ParseLevel(ctx.String(verbosityFlag.Name))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetOutput(os.Stderr)
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			asmCommand,
			disasmCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "run arbitrary EVM bytecode",
	Flags: []cli.Flag{
		codeFlag, codeFileFlag, inputFlag, gasFlag, priceFlag, valueFlag,
		senderFlag, balanceFlag, createFlag, traceFlag, dumpFlag,
	},
	Action: runCmd,
}

func runCmd(ctx *cli.Context) error {
	code, err := readCode(ctx)
	if err != nil {
		return err
	}
	var input []byte
	if in := ctx.String(inputFlag.Name); in != "" {
		if input, err = hexutil(in); err != nil {
			return fmt.Errorf("bad --input: %w", err)
		}
	}

	statedb := state.New()
	sender := common.HexToAddress(ctx.String(senderFlag.Name))
	statedb.CreateAccount(sender)
	if balance := ctx.Uint64(balanceFlag.Name); balance > 0 {
		statedb.AddBalance(sender, uint256.NewInt(balance))
	}

	var tracer *vm.StructLogger
	cfg := &runtime.Config{
		Origin:   sender,
		GasLimit: ctx.Uint64(gasFlag.Name),
		GasPrice: uint256.NewInt(ctx.Uint64(priceFlag.Name)),
		Value:    uint256.NewInt(ctx.Uint64(valueFlag.Name)),
		State:    statedb,
	}
	if ctx.Bool(traceFlag.Name) {
		tracer = vm.NewStructLogger()
		cfg.EVMConfig = vm.Config{Tracer: tracer}
	}

	var (
		ret     []byte
		leftGas uint64
		runErr  error
	)
	if ctx.Bool(createFlag.Name) {
		var addr common.Address
		ret, addr, leftGas, runErr = runtime.Create(code, cfg)
		if runErr == nil {
			log.WithField("address", addr).Info("contract deployed")
		}
	} else {
		ret, _, runErr = runtime.Execute(code, input, cfg)
		leftGas = 0 // Execute does not report leftover gas
	}

	if tracer != nil {
		vm.WriteTrace(os.Stderr, tracer.StructLogs())
	}
	if ctx.Bool(dumpFlag.Name) {
		dumpState(statedb)
	}

	if runErr != nil {
		log.WithError(runErr).Error("execution failed")
		if len(ret) > 0 {
			fmt.Printf("revert data: %#x\n", ret)
		}
		return cli.Exit("", 1)
	}
	log.WithField("gasLeft", leftGas).Debug("execution finished")
	fmt.Printf("%#x\n", ret)
	return nil
}

var asmCommand = &cli.Command{
	Name:      "asm",
	Usage:     "assemble an .easm file into bytecode",
	ArgsUsage: "<file>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return fmt.Errorf("usage: evm asm <file>")
		}
		src, err := os.ReadFile(ctx.Args().First())
		if err != nil {
			return err
		}
		code, err := asm.Assemble(string(src))
		if err != nil {
			return err
		}
		fmt.Printf("%x\n", code)
		return nil
	},
}

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "disassemble hex bytecode",
	ArgsUsage: "<hex>",
	Action: func(ctx *cli.Context) error {
		var in string
		switch {
		case ctx.NArg() == 1:
			in = ctx.Args().First()
		default:
			return fmt.Errorf("usage: evm disasm <hex>")
		}
		return asm.PrintDisassembled(strings.TrimPrefix(strings.TrimSpace(in), "0x"))
	},
}

func readCode(ctx *cli.Context) ([]byte, error) {
	if codeHex := ctx.String(codeFlag.Name); codeHex != "" {
		return hexutil(codeHex)
	}
	if path := ctx.String(codeFileFlag.Name); path != "" {
		var (
			raw []byte
			err error
		)
		if path == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, err
		}
		return hexutil(strings.TrimSpace(string(raw)))
	}
	return nil, fmt.Errorf("either --code or --codefile is required")
}

func hexutil(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}

func dumpState(statedb *state.StateDB) {
	for _, addr := range statedb.Accounts() {
		entry := log.WithFields(logrus.Fields{
			"address": addr,
			"balance": statedb.GetBalance(addr),
			"nonce":   statedb.GetNonce(addr),
			"code":    fmt.Sprintf("%x", statedb.GetCode(addr)),
		})
		entry.Info("account")
		for _, key := range statedb.StorageKeys(addr) {
			log.WithFields(logrus.Fields{
				"address": addr,
				"key":     key,
				"value":   statedb.GetState(addr, key),
			}).Info("storage")
		}
	}
}
