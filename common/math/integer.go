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

// Package math provides overflow-checked integer helpers for the gas and
// memory accounting paths.
package math

import "math"

// MaxUint64 is the maximum value representable by a uint64.
const MaxUint64 = math.MaxUint64

// SafeAdd returns x+y and a flag reporting whether the addition overflowed.
func SafeAdd(x, y uint64) (uint64, bool) {
	return x + y, y > math.MaxUint64-x
}

// SafeMul returns x*y and a flag reporting whether the multiplication
// overflowed.
func SafeMul(x, y uint64) (uint64, bool) {
	if x == 0 || y == 0 {
		return 0, false
	}
	return x * y, y > math.MaxUint64/x
}
