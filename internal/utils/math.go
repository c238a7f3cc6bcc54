// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"math"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Operands whose magnitude is at most sqrtMaxInt can be multiplied
// without overflowing an int.
const (
	sqrtMaxInt = 1<<((bits.UintSize>>1)-1) - 1
	sqrtMinInt = -sqrtMaxInt
)

// Add returns a + b and whether the addition was free of overflow. On
// overflow the wrapped result is returned along with false.
func Add[T constraints.Signed](a, b T) (T, bool) {
	c := a + b
	return c, (c > a) == (b > 0)
}

// Mul returns a * b and whether the multiplication was free of overflow.
func Mul(a, b int) (int, bool) {
	if a >= sqrtMinInt && a <= sqrtMaxInt && b >= sqrtMinInt && b <= sqrtMaxInt {
		return a * b, true
	}
	c := a * b
	if a == 0 || b == 0 {
		return c, true
	}
	if (a == -1 && b == math.MinInt) || (b == -1 && a == math.MinInt) {
		return c, false
	}
	return c, c/b == a
}
