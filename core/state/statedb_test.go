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

package state

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/minievm/minievm/common"
	"github.com/minievm/minievm/core/types"
)

func TestSnapshotRevertBasic(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x01")

	s.CreateAccount(addr)
	s.SetBalance(addr, uint256.NewInt(42))
	s.SetNonce(addr, 7)
	s.SetState(addr, common.HexToHash("0x01"), common.HexToHash("0xaa"))

	snap := s.Snapshot()

	s.SetBalance(addr, uint256.NewInt(100))
	s.SetNonce(addr, 8)
	s.SetState(addr, common.HexToHash("0x01"), common.HexToHash("0xbb"))
	s.SetState(addr, common.HexToHash("0x02"), common.HexToHash("0xcc"))

	s.RevertToSnapshot(snap)

	require.Equal(t, uint64(42), s.GetBalance(addr).Uint64())
	require.Equal(t, uint64(7), s.GetNonce(addr))
	require.Equal(t, common.HexToHash("0xaa"), s.GetState(addr, common.HexToHash("0x01")))
	require.Equal(t, common.Hash{}, s.GetState(addr, common.HexToHash("0x02")),
		"slot written after the snapshot should be gone: %s", spew.Sdump(s.StorageKeys(addr)))
}

func TestSnapshotRevertAccountCreation(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x02")

	snap := s.Snapshot()
	s.CreateAccount(addr)
	s.SetBalance(addr, uint256.NewInt(1))
	require.True(t, s.Exist(addr))

	s.RevertToSnapshot(snap)
	require.False(t, s.Exist(addr), "created account should vanish on revert")
}

func TestNestedSnapshots(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x03")
	key := common.HexToHash("0x01")

	s.CreateAccount(addr)
	s.SetState(addr, key, common.HexToHash("0x01"))

	outer := s.Snapshot()
	s.SetState(addr, key, common.HexToHash("0x02"))

	inner := s.Snapshot()
	s.SetState(addr, key, common.HexToHash("0x03"))
	s.DiscardSnapshot(inner)

	// Discarding the inner marker keeps its mutations but the outer
	// snapshot can still unwind them.
	require.Equal(t, common.HexToHash("0x03"), s.GetState(addr, key))

	s.RevertToSnapshot(outer)
	require.Equal(t, common.HexToHash("0x01"), s.GetState(addr, key))
}

func TestRevertUnknownSnapshotPanics(t *testing.T) {
	s := New()
	id := s.Snapshot()
	s.RevertToSnapshot(id)
	require.Panics(t, func() { s.RevertToSnapshot(id) })
}

func TestSameValueStoreIsNoop(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x04")
	key := common.HexToHash("0x01")

	s.CreateAccount(addr)
	s.SetState(addr, key, common.HexToHash("0xaa"))
	before := s.journal.length()
	s.SetState(addr, key, common.HexToHash("0xaa"))
	require.Equal(t, before, s.journal.length(), "same-value write must not journal")
}

func TestTransientStorageRevert(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x05")
	key := common.HexToHash("0x01")

	s.SetTransientState(addr, key, common.HexToHash("0xaa"))
	snap := s.Snapshot()
	s.SetTransientState(addr, key, common.HexToHash("0xbb"))
	s.RevertToSnapshot(snap)

	require.Equal(t, common.HexToHash("0xaa"), s.GetTransientState(addr, key))
}

func TestLogsRevert(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x06")

	s.AddLog(&types.Log{Address: addr, Data: []byte{1}})
	snap := s.Snapshot()
	s.AddLog(&types.Log{Address: addr, Data: []byte{2}})
	s.AddLog(&types.Log{Address: addr, Data: []byte{3}})
	require.Len(t, s.Logs(), 3)

	s.RevertToSnapshot(snap)
	require.Len(t, s.Logs(), 1)
	require.Equal(t, []byte{1}, s.Logs()[0].Data)
}

func TestSelfDestructRevert(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x07")

	s.CreateAccount(addr)
	s.SetBalance(addr, uint256.NewInt(999))

	snap := s.Snapshot()
	s.SelfDestruct(addr)
	require.True(t, s.HasSelfDestructed(addr))
	require.True(t, s.GetBalance(addr).IsZero())
	// The account itself survives until the end of the run.
	require.True(t, s.Exist(addr))

	s.RevertToSnapshot(snap)
	require.False(t, s.HasSelfDestructed(addr))
	require.Equal(t, uint64(999), s.GetBalance(addr).Uint64())
}

func TestCodeHashSemantics(t *testing.T) {
	s := New()
	missing := common.HexToAddress("0x08")
	codeless := common.HexToAddress("0x09")
	coded := common.HexToAddress("0x0a")

	require.Equal(t, common.Hash{}, s.GetCodeHash(missing), "missing account hashes to zero")

	s.CreateAccount(codeless)
	require.Equal(t, emptyCodeHash, s.GetCodeHash(codeless))

	s.CreateAccount(coded)
	s.SetCode(coded, []byte{0x60, 0x00})
	require.NotEqual(t, emptyCodeHash, s.GetCodeHash(coded))
	require.Equal(t, 2, s.GetCodeSize(coded))
}

func TestEmpty(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x0b")

	require.True(t, s.Empty(addr), "missing account is empty")
	s.CreateAccount(addr)
	require.True(t, s.Empty(addr), "fresh account is empty")
	s.AddBalance(addr, uint256.NewInt(1))
	require.False(t, s.Empty(addr))
}

func TestGetBalanceReturnsCopy(t *testing.T) {
	s := New()
	addr := common.HexToAddress("0x0c")
	s.CreateAccount(addr)
	s.SetBalance(addr, uint256.NewInt(10))

	b := s.GetBalance(addr)
	b.SetUint64(999999)
	require.Equal(t, uint64(10), s.GetBalance(addr).Uint64(), "caller must not be able to mutate state via the returned balance")
}
