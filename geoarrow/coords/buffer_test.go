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

package coords_test

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/coords"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func build(t *testing.T, mem memory.Allocator, dim geoarrow.Dimension, ct geoarrow.CoordType, flat []float64) *coords.Buffer {
	t.Helper()
	b := coords.NewBuilder(mem, dim, ct)
	defer b.Release()
	require.NoError(t, b.TryPushFlat(dim.Layout(), flat))
	arr := b.Finish(nil, 0)
	defer arr.Release()
	buf, err := coords.NewBuffer(arr)
	require.NoError(t, err)
	return buf
}

func TestBufferLayouts(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	flat := []float64{0, 1, 10, 2, 3, 20, 4, 5, 30}
	for _, ct := range []geoarrow.CoordType{geoarrow.Separated, geoarrow.Interleaved} {
		t.Run(ct.String(), func(t *testing.T) {
			buf := build(t, mem, geoarrow.XYM, ct, flat)
			defer buf.Release()

			assert.Equal(t, 3, buf.Len())
			assert.Equal(t, ct, buf.CoordType())
			assert.True(t, arrow.TypeEqual(geoarrow.CoordStorage(geoarrow.XYM, ct), buf.Array().DataType()))
			assert.Equal(t, flat, buf.AppendFlat(nil, 0, 3))

			c := buf.Value(1)
			assert.Equal(t, 2.0, c.X())
			assert.Equal(t, 3.0, c.Y())
			assert.Equal(t, 20.0, c.M())
			assert.True(t, math.IsNaN(c.Z()))
		})
	}
}

func TestBufferSlice(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	flat := []float64{0, 0, 1, 1, 2, 2, 3, 3, 4, 4}
	for _, ct := range []geoarrow.CoordType{geoarrow.Separated, geoarrow.Interleaved} {
		buf := build(t, mem, geoarrow.XY, ct, flat)
		sl := buf.Slice(1, 3)
		buf.Release()

		require.Equal(t, 3, sl.Len())
		for i := 0; i < sl.Len(); i++ {
			assert.Equal(t, float64(i+1), sl.Value(i).X())
		}
		inner := sl.Slice(1, 2)
		assert.Equal(t, []float64{2, 2, 3, 3}, inner.AppendFlat(nil, 0, 2))
		inner.Release()
		sl.Release()
	}
}

func TestIntoCoordType(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	flat := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	sep := build(t, mem, geoarrow.XYZM, geoarrow.Separated, flat)
	defer sep.Release()

	inter, err := sep.IntoCoordType(mem, geoarrow.Interleaved)
	require.NoError(t, err)
	defer inter.Release()
	assert.Equal(t, geoarrow.Interleaved, inter.CoordType())
	assert.True(t, sep.Equal(inter))

	back, err := inter.IntoCoordType(mem, geoarrow.Separated)
	require.NoError(t, err)
	defer back.Release()
	assert.Equal(t, flat, back.AppendFlat(nil, 0, back.Len()))

	same, err := back.IntoCoordType(mem, geoarrow.Separated)
	require.NoError(t, err)
	assert.Same(t, back, same)
	same.Release()
}

func TestDimensionMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b := coords.NewBuilder(mem, geoarrow.XYZ, geoarrow.Interleaved)
	defer b.Release()

	assert.ErrorIs(t, b.TryPush(geoarrow.XYM, 1, 2, 3), geoarrow.ErrDimensionMismatch)
	assert.ErrorIs(t, b.TryPush(geoarrow.XYZ, 1, 2), geoarrow.ErrDimensionMismatch)
	assert.ErrorIs(t, b.TryPushFlat(geom.XY, []float64{1, 2}), geoarrow.ErrDimensionMismatch)
	assert.Panics(t, func() { b.Push(geoarrow.XY, 1, 2) })
	assert.Equal(t, 0, b.Len())

	require.NoError(t, b.TryPush(geoarrow.XYZ, 1, 2, 3))
	assert.Equal(t, 1, b.Len())
}

func TestCoordEqualNaN(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b := coords.NewBuilder(mem, geoarrow.XY, geoarrow.Separated)
	b.PushNaN()
	b.PushNaN()
	b.Push(geoarrow.XY, 1, math.NaN())
	b.Push(geoarrow.XY, 1, 2)
	arr := b.Finish(nil, 0)
	defer arr.Release()
	buf, err := coords.NewBuffer(arr)
	require.NoError(t, err)
	defer buf.Release()

	assert.True(t, buf.Value(0).IsNaN())
	assert.True(t, buf.Value(0).Equal(buf.Value(1)))
	assert.False(t, buf.Value(2).IsNaN())
	assert.False(t, buf.Value(2).Equal(buf.Value(3)))

	nan := math.NaN()
	want := []float64{nan, nan, nan, nan, 1, nan, 1, 2}
	assert.Empty(t, cmp.Diff(want, buf.AppendFlat(nil, 0, 4), cmpopts.EquateNaNs()))
}

func TestBounds(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b := coords.NewBuilder(mem, geoarrow.XYZ, geoarrow.Interleaved)
	b.Push(geoarrow.XYZ, 3, -1, 5)
	b.PushNaN()
	b.Push(geoarrow.XYZ, -2, 4, 5)
	arr := b.Finish(nil, 0)
	defer arr.Release()
	buf, err := coords.NewBuffer(arr)
	require.NoError(t, err)
	defer buf.Release()

	bounds := buf.Bounds()
	assert.Equal(t, []float64{-2, -1, 5}, []float64{bounds.Min(0), bounds.Min(1), bounds.Min(2)})
	assert.Equal(t, []float64{3, 4, 5}, []float64{bounds.Max(0), bounds.Max(1), bounds.Max(2)})
}
