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

// Package bufferbuilder provides growable, allocator-backed buffers whose
// contents can be handed to arrow array data without copying.
package bufferbuilder

import (
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Element is the set of fixed width values a Builder can hold.
type Element interface {
	~int8 | ~uint8 | ~int32 | ~int64 | ~float64
}

// Builder accumulates fixed width values in a memory.Buffer obtained from
// an allocator. Finish transfers ownership of the buffer to the caller.
type Builder[T Element] struct {
	mem  memory.Allocator
	buf  *memory.Buffer
	data []T
	n    int
}

// New returns an empty builder backed by mem.
func New[T Element](mem memory.Allocator) *Builder[T] {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Builder[T]{mem: mem}
}

func sizeOf[T Element]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func castSlice[T Element](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/sizeOf[T]())
}

// Len is the number of values appended so far.
func (b *Builder[T]) Len() int { return b.n }

// Reserve ensures room for at least n more values.
func (b *Builder[T]) Reserve(n int) {
	need := b.n + n
	if need <= len(b.data) {
		return
	}
	if grown := 2 * len(b.data); grown > need {
		need = grown
	}
	if b.buf == nil {
		b.buf = memory.NewResizableBuffer(b.mem)
	}
	b.buf.Reserve(need * sizeOf[T]())
	b.data = castSlice[T](b.buf.Buf())
}

// Append adds a single value.
func (b *Builder[T]) Append(v T) {
	if b.n == len(b.data) {
		b.Reserve(1)
	}
	b.data[b.n] = v
	b.n++
}

// AppendValues adds all of vs.
func (b *Builder[T]) AppendValues(vs ...T) {
	b.Reserve(len(vs))
	b.n += copy(b.data[b.n:], vs)
}

// AppendRepeat adds v n times.
func (b *Builder[T]) AppendRepeat(v T, n int) {
	b.Reserve(n)
	for i := 0; i < n; i++ {
		b.data[b.n+i] = v
	}
	b.n += n
}

// Last returns the most recently appended value, or the zero value.
func (b *Builder[T]) Last() T {
	if b.n == 0 {
		var zero T
		return zero
	}
	return b.data[b.n-1]
}

// Finish returns a buffer holding exactly the appended values and resets
// the builder. The caller owns the returned buffer.
func (b *Builder[T]) Finish() *memory.Buffer {
	buf := b.buf
	if buf == nil {
		buf = memory.NewResizableBuffer(b.mem)
	}
	buf.Resize(b.n * sizeOf[T]())
	b.buf, b.data, b.n = nil, nil, 0
	return buf
}

// Release frees any memory still held by the builder.
func (b *Builder[T]) Release() {
	if b.buf != nil {
		b.buf.Release()
	}
	b.buf, b.data, b.n = nil, nil, 0
}
