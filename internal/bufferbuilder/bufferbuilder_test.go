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

package bufferbuilder_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/internal/bufferbuilder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderFinish(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b := bufferbuilder.New[int32](mem)
	b.Append(0)
	b.AppendValues(2, 2, 5)
	b.AppendRepeat(7, 3)
	assert.Equal(t, 7, b.Len())
	assert.EqualValues(t, 7, b.Last())

	buf := b.Finish()
	defer buf.Release()
	assert.Equal(t, 7*4, buf.Len())
	assert.Equal(t, []int32{0, 2, 2, 5, 7, 7, 7}, arrow.Int32Traits.CastFromBytes(buf.Bytes()))
	assert.Equal(t, 0, b.Len())
}

func TestBuilderGrowth(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b := bufferbuilder.New[float64](mem)
	defer b.Release()
	for i := 0; i < 1000; i++ {
		b.Append(float64(i))
	}
	require.Equal(t, 1000, b.Len())
	assert.Equal(t, 999.0, b.Last())

	b.AppendRepeat(-1, 24)
	buf := b.Finish()
	defer buf.Release()
	values := arrow.Float64Traits.CastFromBytes(buf.Bytes())
	require.Len(t, values, 1024)
	assert.Equal(t, 999.0, values[999])
	assert.Equal(t, -1.0, values[1023])
}

func TestEmptyBuilderFinish(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	buf := bufferbuilder.New[float64](mem).Finish()
	defer buf.Release()
	assert.Equal(t, 0, buf.Len())
}

func TestValidityLazy(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	t.Run("all_valid", func(t *testing.T) {
		v := bufferbuilder.NewValidity(mem)
		v.AppendN(20, true)
		buf, nulls := v.Finish()
		assert.Nil(t, buf)
		assert.Zero(t, nulls)
	})

	t.Run("null_materializes", func(t *testing.T) {
		v := bufferbuilder.NewValidity(mem)
		v.Reserve(3)
		v.AppendN(10, true)
		v.Append(false)
		v.Append(true)
		assert.Equal(t, 12, v.Len())

		buf, nulls := v.Finish()
		require.NotNil(t, buf)
		defer buf.Release()
		assert.Equal(t, 1, nulls)
		bits := buf.Bytes()
		for i := 0; i < 12; i++ {
			assert.Equal(t, i != 10, bitutil.BitIsSet(bits, i), "bit %d", i)
		}
	})

	t.Run("null_run", func(t *testing.T) {
		v := bufferbuilder.NewValidity(mem)
		v.Append(true)
		v.AppendN(9, false)
		v.Append(true)

		buf, nulls := v.Finish()
		require.NotNil(t, buf)
		defer buf.Release()
		assert.Equal(t, 9, nulls)
		assert.Equal(t, 9, 11-bitutil.CountSetBits(buf.Bytes(), 0, 11))
	})
}
