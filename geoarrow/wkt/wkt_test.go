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

package wkt_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/geoarrow/geoarrow-go/geoarrow/wkt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestMarshal(t *testing.T) {
	s, err := wkt.Marshal(geom.NewPointFlat(geom.XY, []float64{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, "POINT (1 2)", s)

	gc := geom.NewGeometryCollection()
	require.NoError(t, gc.Push(geom.NewPointFlat(geom.XYZ, []float64{1, 2, 3})))
	s, err = wkt.Marshal(gc)
	require.NoError(t, err)
	assert.Contains(t, s, "(1 2 3)")

	g, err := wkt.Unmarshal(s)
	require.NoError(t, err)
	assert.True(t, geoarray.GeometryEqual(gc, g))

	_, err = wkt.Unmarshal("POINT (1")
	assert.ErrorIs(t, err, geoarrow.ErrInvalidWKT)
}

func TestEncodeDecode(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	meta := geoarrow.Metadata{Edges: geoarrow.EdgesSpherical}
	src, err := geoarray.FromGeometries(mem,
		geoarrow.NewMultiPointType(geoarrow.XY, geoarrow.Separated, meta),
		[]geom.T{
			geom.NewMultiPointFlat(geom.XY, []float64{0, 0, 1, 1}),
			geom.NewMultiPoint(geom.XY),
			nil,
		})
	require.NoError(t, err)
	defer src.Release()

	for _, large := range []bool{false, true} {
		var opts []wkt.Option
		storage := arrow.DataType(arrow.BinaryTypes.String)
		if large {
			opts = append(opts, wkt.WithLargeOffsets())
			storage = arrow.BinaryTypes.LargeString
		}

		enc, err := wkt.Encode(mem, src, opts...)
		require.NoError(t, err)
		assert.True(t, arrow.TypeEqual(storage, enc.Storage().DataType()))
		assert.Equal(t, geoarrow.EdgesSpherical, enc.Type().Metadata().Edges)
		assert.Equal(t, "MULTIPOINT ((0 0), (1 1))", enc.Value(0))
		assert.Equal(t, "MULTIPOINT EMPTY", enc.Value(1))
		assert.True(t, enc.IsNull(2))

		dec, err := wkt.Decode(mem, enc, src.Type())
		require.NoError(t, err)
		assert.True(t, geoarray.Equal(src, dec))

		dec.Release()
		enc.Release()
	}
}

func TestEncodeDecodeSlice(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	src, err := geoarray.FromGeometries(mem,
		geoarrow.NewMultiLineStringType(geoarrow.XY, geoarrow.Interleaved, geoarrow.Metadata{}),
		[]geom.T{
			geom.NewMultiLineStringFlat(geom.XY, []float64{0, 0, 1, 1}, []int{4}),
			nil,
			geom.NewMultiLineStringFlat(geom.XY, []float64{2, 2, 3, 3, 4, 4, 5, 5}, []int{4, 8}),
			geom.NewMultiLineString(geom.XY),
		})
	require.NoError(t, err)
	defer src.Release()

	window := src.Slice(2, 2)
	defer window.Release()

	enc, err := wkt.Encode(mem, window)
	require.NoError(t, err)
	defer enc.Release()
	require.Equal(t, 2, enc.Len())
	assert.Equal(t, "MULTILINESTRING ((2 2, 3 3), (4 4, 5 5))", enc.Value(0))
	assert.Equal(t, "MULTILINESTRING EMPTY", enc.Value(1))

	head := enc.Slice(0, 1).(*geoarray.WKTArray)
	defer head.Release()
	dec, err := wkt.Decode(mem, head, src.Type())
	require.NoError(t, err)
	defer dec.Release()
	want := src.Slice(2, 1)
	defer want.Release()
	assert.True(t, geoarray.Equal(want, dec))
}
