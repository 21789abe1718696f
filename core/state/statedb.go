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

// Package state implements the in-memory account store consumed by the
// virtual machine. All mutations flow through a journal so that nested
// snapshots can be reverted exactly, in reverse order of application.
package state

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"

	"github.com/minievm/minievm/common"
	"github.com/minievm/minievm/core/types"
	"github.com/minievm/minievm/crypto"
)

// emptyCodeHash is the known hash of an account with no code.
var emptyCodeHash = crypto.Keccak256Hash(nil)

// Storage is a per-account key/value mapping of 256-bit words.
type Storage map[common.Hash]common.Hash

// stateObject represents an account that is being modified.
type stateObject struct {
	address        common.Address
	balance        uint256.Int
	nonce          uint64
	code           []byte
	codeHash       common.Hash
	storage        Storage
	selfDestructed bool
}

// revision marks a point in the journal that a caller may revert to.
type revision struct {
	id           int
	journalIndex int
}

// StateDB holds accounts, their storage and the logs emitted during a run.
// It is not safe for concurrent use; each run owns its own instance or
// callers serialize access, matching the VM's single-threaded model.
type StateDB struct {
	objects   map[common.Address]*stateObject
	transient map[common.Address]Storage
	logs      []*types.Log

	journal        *journal
	validRevisions []revision
	nextRevisionID int
}

// New creates a new empty state database.
func New() *StateDB {
	return &StateDB{
		objects:   make(map[common.Address]*stateObject),
		transient: make(map[common.Address]Storage),
		journal:   newJournal(),
	}
}

func (s *StateDB) getStateObject(addr common.Address) *stateObject {
	return s.objects[addr]
}

func (s *StateDB) getOrNewStateObject(addr common.Address) *stateObject {
	obj := s.objects[addr]
	if obj == nil {
		s.CreateAccount(addr)
		obj = s.objects[addr]
	}
	return obj
}

// CreateAccount explicitly creates a new account in the state. Calling it
// for an existing account is a no-op.
func (s *StateDB) CreateAccount(addr common.Address) {
	if s.objects[addr] != nil {
		return
	}
	s.journal.append(createObjectChange{account: addr})
	s.objects[addr] = &stateObject{
		address:  addr,
		codeHash: emptyCodeHash,
		storage:  make(Storage),
	}
}

// Exist reports whether the given account exists in the state.
func (s *StateDB) Exist(addr common.Address) bool {
	return s.getStateObject(addr) != nil
}

// Empty reports whether the account is non-existent or empty per the
// EIP-161 definition (no balance, no nonce, no code).
func (s *StateDB) Empty(addr common.Address) bool {
	obj := s.getStateObject(addr)
	return obj == nil || (obj.balance.IsZero() && obj.nonce == 0 && len(obj.code) == 0)
}

// GetBalance returns a copy of the account's balance, zero for missing
// accounts.
func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	if obj := s.getStateObject(addr); obj != nil {
		return new(uint256.Int).Set(&obj.balance)
	}
	return new(uint256.Int)
}

// AddBalance adds amount to the account associated with addr, creating
// the account if it does not exist.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(balanceChange{account: addr, prev: obj.balance})
	obj.balance.Add(&obj.balance, amount)
}

// SubBalance subtracts amount from the account associated with addr.
// Balance checks are the caller's responsibility (CanTransfer).
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(balanceChange{account: addr, prev: obj.balance})
	obj.balance.Sub(&obj.balance, amount)
}

// SetBalance overwrites the account's balance. Used by embedders to fund
// accounts before a run.
func (s *StateDB) SetBalance(addr common.Address, amount *uint256.Int) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(balanceChange{account: addr, prev: obj.balance})
	obj.balance.Set(amount)
}

// GetNonce returns the account's creation counter.
func (s *StateDB) GetNonce(addr common.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.nonce
	}
	return 0
}

// SetNonce updates the account's creation counter.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(nonceChange{account: addr, prev: obj.nonce})
	obj.nonce = nonce
}

// GetCode returns the account's contract code, nil for plain accounts.
func (s *StateDB) GetCode(addr common.Address) []byte {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.code
	}
	return nil
}

// GetCodeSize returns the length of the account's contract code.
func (s *StateDB) GetCodeSize(addr common.Address) int {
	if obj := s.getStateObject(addr); obj != nil {
		return len(obj.code)
	}
	return 0
}

// GetCodeHash returns the keccak256 of the account's code. It is the
// zero hash for non-existent accounts and the empty-code hash for
// accounts without code, so EXTCODEHASH can distinguish the two.
func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.codeHash
	}
	return common.Hash{}
}

// SetCode installs contract code on the account.
func (s *StateDB) SetCode(addr common.Address, code []byte) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(codeChange{account: addr, prevcode: obj.code, prevhash: obj.codeHash})
	obj.code = common.CopyBytes(code)
	obj.codeHash = crypto.Keccak256Hash(code)
}

// GetState retrieves a value from the account's storage, the zero hash
// if the slot was never written.
func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.storage[key]
	}
	return common.Hash{}
}

// SetState updates a value in the account's storage.
func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	obj := s.getOrNewStateObject(addr)
	prev, existed := obj.storage[key]
	if existed && prev == value {
		return
	}
	s.journal.append(storageChange{account: addr, key: key, prevalue: prev, existed: existed})
	obj.storage[key] = value
}

// GetTransientState gets transient storage for a given account.
func (s *StateDB) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return s.transient[addr][key]
}

// SetTransientState sets transient storage for a given account. It adds
// the change to the journal so that it can be rolled back to its previous
// value if there is a revert.
func (s *StateDB) SetTransientState(addr common.Address, key, value common.Hash) {
	prev := s.GetTransientState(addr, key)
	if prev == value {
		return
	}
	s.journal.append(transientStorageChange{account: addr, key: key, prevalue: prev})
	s.setTransientState(addr, key, value)
}

// setTransientState is a lower level setter for transient storage. It is
// called during a revert to restore the previous value.
func (s *StateDB) setTransientState(addr common.Address, key, value common.Hash) {
	slots := s.transient[addr]
	if slots == nil {
		slots = make(Storage)
		s.transient[addr] = slots
	}
	slots[key] = value
}

// SelfDestruct marks the given account as self-destructed and clears its
// balance. The account keeps existing (and its code stays executable)
// until the end of the run, matching contract semantics.
func (s *StateDB) SelfDestruct(addr common.Address) {
	obj := s.getStateObject(addr)
	if obj == nil {
		return
	}
	s.journal.append(selfDestructChange{
		account:     addr,
		prev:        obj.selfDestructed,
		prevBalance: obj.balance,
	})
	obj.selfDestructed = true
	obj.balance.Clear()
}

// HasSelfDestructed reports whether the account was self-destructed in
// this run.
func (s *StateDB) HasSelfDestructed(addr common.Address) bool {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.selfDestructed
	}
	return false
}

// AddLog appends a log record emitted by the running contract.
func (s *StateDB) AddLog(log *types.Log) {
	s.journal.append(addLogChange{})
	s.logs = append(s.logs, log)
}

// Logs returns the ordered list of logs emitted so far, excluding those
// discarded by reverts.
func (s *StateDB) Logs() []*types.Log {
	return s.logs
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	id := s.nextRevisionID
	s.nextRevisionID++
	s.validRevisions = append(s.validRevisions, revision{id, s.journal.length()})
	return id
}

// RevertToSnapshot reverts all state changes made since the given
// revision, including changes recorded under snapshots nested inside it.
func (s *StateDB) RevertToSnapshot(revid int) {
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex

	s.journal.revert(s, snapshot)
	s.validRevisions = s.validRevisions[:idx]
}

// DiscardSnapshot drops the given revision marker while keeping every
// mutation recorded under it. An enclosing snapshot can still revert
// those mutations; only the ability to revert to this marker is lost.
func (s *StateDB) DiscardSnapshot(revid int) {
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be discarded", revid))
	}
	s.validRevisions = s.validRevisions[:idx]
}

// Accounts returns the addresses present in the state, sorted for
// deterministic iteration. Used by embedders to dump state.
func (s *StateDB) Accounts() []common.Address {
	addrs := maps.Keys(s.objects)
	sort.Slice(addrs, func(i, j int) bool {
		for k := 0; k < common.AddressLength; k++ {
			if addrs[i][k] != addrs[j][k] {
				return addrs[i][k] < addrs[j][k]
			}
		}
		return false
	})
	return addrs
}

// StorageKeys returns the written slots of an account, sorted.
func (s *StateDB) StorageKeys(addr common.Address) []common.Hash {
	obj := s.getStateObject(addr)
	if obj == nil {
		return nil
	}
	keys := maps.Keys(obj.storage)
	sort.Slice(keys, func(i, j int) bool {
		for k := 0; k < common.HashLength; k++ {
			if keys[i][k] != keys[j][k] {
				return keys[i][k] < keys[j][k]
			}
		}
		return false
	})
	return keys
}
