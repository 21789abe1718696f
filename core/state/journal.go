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
	"github.com/holiman/uint256"

	"github.com/minievm/minievm/common"
)

// journalEntry is a modification entry in the state change journal that
// can be reverted on demand.
type journalEntry interface {
	// revert undoes the changes introduced by this journal entry.
	revert(*StateDB)
}

// journal contains the list of state modifications applied since the last
// state commit. These are tracked to be able to be reverted in the case of
// an execution exception or request for reversal.
type journal struct {
	entries []journalEntry
}

func newJournal() *journal {
	return &journal{}
}

// append inserts a new modification entry to the end of the change journal.
func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

// revert undoes a batch of journalled modifications along with any
// reverted dirty handling too.
func (j *journal) revert(statedb *StateDB, snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i].revert(statedb)
	}
	j.entries = j.entries[:snapshot]
}

// length returns the current number of entries in the journal.
func (j *journal) length() int {
	return len(j.entries)
}

type (
	// Changes to the account database.
	createObjectChange struct {
		account common.Address
	}
	selfDestructChange struct {
		account     common.Address
		prev        bool // whether account had already self-destructed
		prevBalance uint256.Int
	}

	// Changes to individual accounts.
	balanceChange struct {
		account common.Address
		prev    uint256.Int
	}
	nonceChange struct {
		account common.Address
		prev    uint64
	}
	storageChange struct {
		account  common.Address
		key      common.Hash
		prevalue common.Hash
		existed  bool
	}
	codeChange struct {
		account  common.Address
		prevcode []byte
		prevhash common.Hash
	}
	transientStorageChange struct {
		account  common.Address
		key      common.Hash
		prevalue common.Hash
	}

	// Changes to other state values.
	addLogChange struct{}
)

func (ch createObjectChange) revert(s *StateDB) {
	delete(s.objects, ch.account)
}

func (ch selfDestructChange) revert(s *StateDB) {
	obj := s.getStateObject(ch.account)
	if obj != nil {
		obj.selfDestructed = ch.prev
		obj.balance = ch.prevBalance
	}
}

func (ch balanceChange) revert(s *StateDB) {
	if obj := s.getStateObject(ch.account); obj != nil {
		obj.balance = ch.prev
	}
}

func (ch nonceChange) revert(s *StateDB) {
	if obj := s.getStateObject(ch.account); obj != nil {
		obj.nonce = ch.prev
	}
}

func (ch storageChange) revert(s *StateDB) {
	obj := s.getStateObject(ch.account)
	if obj == nil {
		return
	}
	if ch.existed {
		obj.storage[ch.key] = ch.prevalue
	} else {
		delete(obj.storage, ch.key)
	}
}

func (ch codeChange) revert(s *StateDB) {
	if obj := s.getStateObject(ch.account); obj != nil {
		obj.code = ch.prevcode
		obj.codeHash = ch.prevhash
	}
}

func (ch transientStorageChange) revert(s *StateDB) {
	s.setTransientState(ch.account, ch.key, ch.prevalue)
}

func (ch addLogChange) revert(s *StateDB) {
	s.logs = s.logs[:len(s.logs)-1]
}
