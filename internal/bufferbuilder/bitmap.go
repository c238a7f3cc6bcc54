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

package bufferbuilder

import (
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Validity builds a validity bitmap lazily: no memory is allocated until
// the first invalid slot is appended, so an all-valid builder finishes
// without a bitmap.
type Validity struct {
	mem   memory.Allocator
	buf   *memory.Buffer
	n     int
	nulls int
	want  int
}

// NewValidity returns an empty validity builder backed by mem.
func NewValidity(mem memory.Allocator) *Validity {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Validity{mem: mem}
}

// Len is the number of slots appended.
func (v *Validity) Len() int { return v.n }

// Reserve records a capacity hint used once the bitmap materializes.
func (v *Validity) Reserve(n int) {
	if v.n+n > v.want {
		v.want = v.n + n
	}
	if v.buf != nil {
		v.grow(v.n + n)
	}
}

func (v *Validity) grow(bits int) {
	nbytes := int(bitutil.BytesForBits(int64(bits)))
	if nbytes <= v.buf.Len() {
		return
	}
	if doubled := 2 * v.buf.Len(); doubled > nbytes {
		nbytes = doubled
	}
	v.buf.Resize(nbytes)
}

func (v *Validity) materialize() {
	v.buf = memory.NewResizableBuffer(v.mem)
	want := v.want
	if want < v.n+1 {
		want = v.n + 1
	}
	v.buf.Resize(int(bitutil.BytesForBits(int64(want))))
	bitutil.SetBitsTo(v.buf.Bytes(), 0, int64(v.n), true)
}

// Append adds one slot.
func (v *Validity) Append(valid bool) {
	if !valid && v.buf == nil {
		v.materialize()
	}
	if v.buf != nil {
		v.grow(v.n + 1)
		bitutil.SetBitTo(v.buf.Bytes(), v.n, valid)
	}
	if !valid {
		v.nulls++
	}
	v.n++
}

// AppendN adds n slots with the same validity.
func (v *Validity) AppendN(n int, valid bool) {
	for i := 0; i < n; i++ {
		v.Append(valid)
	}
}

// Finish returns the bitmap (nil when every slot is valid) and the null
// count, then resets the builder. The caller owns the returned buffer.
func (v *Validity) Finish() (*memory.Buffer, int) {
	buf, nulls := v.buf, v.nulls
	if buf != nil {
		buf.Resize(int(bitutil.BytesForBits(int64(v.n))))
	}
	v.buf, v.n, v.nulls, v.want = nil, 0, 0, 0
	return buf, nulls
}

// Release frees the bitmap if one was allocated.
func (v *Validity) Release() {
	if v.buf != nil {
		v.buf.Release()
	}
	v.buf, v.n, v.nulls, v.want = nil, 0, 0, 0
}
