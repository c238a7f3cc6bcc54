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

package wkb_test

import (
	"encoding/binary"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/geoarrow/geoarrow-go/geoarrow/wkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

var meta = geoarrow.Metadata{CRS: geoarrow.AuthorityCodeCRS("OGC:CRS84")}

func lineStrings(t *testing.T, mem memory.Allocator) geoarray.Array {
	t.Helper()
	arr, err := geoarray.FromGeometries(mem,
		geoarrow.NewLineStringType(geoarrow.XYZ, geoarrow.Interleaved, meta),
		[]geom.T{
			geom.NewLineStringFlat(geom.XYZ, []float64{0, 0, 0, 1, 1, 1}),
			nil,
			geom.NewLineString(geom.XYZ),
		})
	require.NoError(t, err)
	return arr
}

func TestScalarRoundTrip(t *testing.T) {
	g := geom.NewPolygonFlat(geom.XYM, []float64{0, 0, 1, 1, 0, 2, 1, 1, 3, 0, 0, 1}, []int{12})
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		data, err := wkb.Marshal(g, order)
		require.NoError(t, err)

		n, err := wkb.Size(g)
		require.NoError(t, err)
		assert.Len(t, data, n)

		out, err := wkb.Unmarshal(data)
		require.NoError(t, err)
		assert.True(t, geoarray.GeometryEqual(g, out))

		prefix := []byte{0xff}
		appended, err := wkb.Append(prefix, g, order)
		require.NoError(t, err)
		assert.Equal(t, data, appended[1:])
	}

	_, err := wkb.Unmarshal([]byte{0x01, 0x01})
	assert.ErrorIs(t, err, geoarrow.ErrInvalidWKB)
}

func TestEncodeDecode(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	src := lineStrings(t, mem)
	defer src.Release()

	for _, tc := range []struct {
		name    string
		opts    []wkb.Option
		storage arrow.DataType
	}{
		{"binary", nil, arrow.BinaryTypes.Binary},
		{"large", []wkb.Option{wkb.WithLargeOffsets()}, arrow.BinaryTypes.LargeBinary},
		{"big endian", []wkb.Option{wkb.WithByteOrder(binary.BigEndian)}, arrow.BinaryTypes.Binary},
	} {
		t.Run(tc.name, func(t *testing.T) {
			enc, err := wkb.Encode(mem, src, tc.opts...)
			require.NoError(t, err)
			defer enc.Release()

			assert.Equal(t, 3, enc.Len())
			assert.Equal(t, 1, enc.NullN())
			assert.True(t, arrow.TypeEqual(tc.storage, enc.Storage().DataType()))
			assert.True(t, enc.Type().Metadata().Equal(meta))

			dec, err := wkb.Decode(mem, enc, src.Type())
			require.NoError(t, err)
			defer dec.Release()
			assert.True(t, geoarray.Equal(src, dec))
		})
	}
}

func TestEncodeDecodeSlice(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	polys := []geom.T{
		geom.NewMultiPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, [][]int{{8}}),
		nil,
		geom.NewMultiPolygonFlat(geom.XY, []float64{5, 5, 6, 5, 6, 6, 5, 5, 7, 7, 8, 7, 8, 8, 7, 7}, [][]int{{8}, {16}}),
		geom.NewMultiPolygon(geom.XY),
		geom.NewMultiPolygonFlat(geom.XY, []float64{9, 9, 10, 9, 10, 10, 9, 9}, [][]int{{8}}),
	}
	src, err := geoarray.FromGeometries(mem, geoarrow.NewMultiPolygonType(geoarrow.XY, geoarrow.Separated, meta), polys)
	require.NoError(t, err)
	defer src.Release()

	window := src.Slice(2, 3)
	defer window.Release()

	enc, err := wkb.Encode(mem, window)
	require.NoError(t, err)
	defer enc.Release()
	require.Equal(t, 3, enc.Len())
	for i := 0; i < enc.Len(); i++ {
		g, err := enc.Geometry(i)
		require.NoError(t, err)
		assert.True(t, geoarray.GeometryEqual(polys[2+i], g), "row %d", i)
	}

	tail := enc.Slice(1, 2).(*geoarray.WKBArray)
	defer tail.Release()
	dec, err := wkb.Decode(mem, tail, src.Type())
	require.NoError(t, err)
	defer dec.Release()
	want := src.Slice(3, 2)
	defer want.Release()
	assert.True(t, geoarray.Equal(want, dec))
}

func TestDecodeErrors(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b := geoarray.NewWKBBuilder(mem, geoarrow.NewWKBType(geoarrow.Metadata{}))
	b.PushGeometry(geom.NewPointFlat(geom.XY, []float64{1, 2}))
	b.PushGeometry(geom.NewLineStringFlat(geom.XY, []float64{1, 2, 3, 4}))
	arr := b.Finish()
	b.Release()
	defer arr.Release()

	_, err := wkb.Decode(mem, arr, geoarrow.NewPointType(geoarrow.XY, geoarrow.Separated, geoarrow.Metadata{}))
	require.ErrorIs(t, err, geoarrow.ErrUnexpectedGeometry)
	var rowErr *geoarrow.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Row)

	first := arr.Slice(0, 1).(*geoarray.WKBArray)
	defer first.Release()
	_, err = wkb.Decode(mem, first, geoarrow.NewPointType(geoarrow.XYZ, geoarrow.Separated, geoarrow.Metadata{}))
	assert.ErrorIs(t, err, geoarrow.ErrDimensionMismatch)

	mixed, err := wkb.Decode(mem, arr, geoarrow.NewGeometryType(geoarrow.Separated, geoarrow.Metadata{}))
	require.NoError(t, err)
	defer mixed.Release()
	kinds, err := geoarray.InferType(mixed)
	require.NoError(t, err)
	assert.Equal(t, []geoarray.GeometryKind{
		{Kind: geoarrow.KindPoint, Dim: geoarrow.XY},
		{Kind: geoarrow.KindLineString, Dim: geoarrow.XY},
	}, kinds)
}
