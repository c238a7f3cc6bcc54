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

package cast_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/cast"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

var (
	noMeta = geoarrow.Metadata{}
	wgs84  = geoarrow.Metadata{CRS: geoarrow.AuthorityCodeCRS("EPSG:4326")}
)

func points(t *testing.T, mem memory.Allocator, meta geoarrow.Metadata) geoarray.Array {
	t.Helper()
	arr, err := geoarray.FromGeometries(mem,
		geoarrow.NewPointType(geoarrow.XY, geoarrow.Separated, meta),
		[]geom.T{
			geom.NewPointFlat(geom.XY, []float64{30, 10}),
			nil,
			geom.NewPointEmpty(geom.XY),
		})
	require.NoError(t, err)
	return arr
}

func TestCanCast(t *testing.T) {
	point := geoarrow.NewPointType(geoarrow.XY, geoarrow.Separated, noMeta)
	box := geoarrow.NewBoxType(geoarrow.XY, noMeta)
	mixed := geoarrow.NewGeometryType(geoarrow.Separated, noMeta)

	tests := []struct {
		name string
		from geoarrow.GeoArrowType
		to   geoarrow.GeoArrowType
		err  error
	}{
		{"point to multipoint", point, geoarrow.NewMultiPointType(geoarrow.XY, geoarrow.Interleaved, noMeta), nil},
		{"point to geometry", point, mixed, nil},
		{"point coord type", point, point.WithCoordType(geoarrow.Interleaved), nil},
		{"collection to geometry", geoarrow.NewGeometryCollectionType(geoarrow.XYZ, geoarrow.Separated, noMeta), mixed, nil},
		{"geometry to geometry", mixed, mixed.WithCoordType(geoarrow.Interleaved), nil},
		{"point to wkb", point, geoarrow.NewWKBType(noMeta), nil},
		{"point to large wkt", point, geoarrow.NewLargeWKTType(wgs84), nil},
		{"wkb to point", geoarrow.NewWKBType(noMeta), point, nil},
		{"wkt to geometry", geoarrow.NewWKTType(noMeta), mixed, nil},
		{"box to geometry", box, mixed, nil},
		{"multipoint to point", geoarrow.NewMultiPointType(geoarrow.XY, geoarrow.Separated, noMeta), point, geoarrow.ErrUnsupportedCast},
		{"geometry to point", mixed, point, geoarrow.ErrUnsupportedCast},
		{"linestring to polygon", geoarrow.NewLineStringType(geoarrow.XY, geoarrow.Separated, noMeta),
			geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Separated, noMeta), geoarrow.ErrUnsupportedCast},
		{"box to polygon", box, geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Separated, noMeta), geoarrow.ErrUnsupportedCast},
		{"dimension", point, geoarrow.NewPointType(geoarrow.XYZ, geoarrow.Separated, noMeta), geoarrow.ErrDimensionMismatch},
		{"metadata", point, point.WithMetadata(wgs84), geoarrow.ErrMetadataMismatch},
		{"wkb metadata", geoarrow.NewWKBType(wgs84), point, geoarrow.ErrMetadataMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cast.CanCast(tt.from, tt.to)
			if tt.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestPointToMultiPointToGeometry(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	src := points(t, mem, noMeta)
	defer src.Release()

	multi, err := cast.Cast(mem, src, geoarrow.NewMultiPointType(geoarrow.XY, geoarrow.Interleaved, noMeta))
	require.NoError(t, err)
	defer multi.Release()
	require.IsType(t, (*geoarray.MultiPointArray)(nil), multi)
	mp := multi.(*geoarray.MultiPointArray).Value(0)
	require.Equal(t, 1, mp.NumPoints())
	assert.Equal(t, []float64{30, 10}, mp.FlatCoords())
	assert.True(t, multi.IsNull(1))

	mixed, err := cast.Cast(mem, multi, geoarrow.NewGeometryType(geoarrow.Separated, noMeta))
	require.NoError(t, err)
	defer mixed.Release()
	assert.Equal(t, 3, mixed.Len())
	assert.True(t, geoarray.Equal(multi, mixed))

	_, err = cast.Cast(mem, mixed, geoarrow.NewPointType(geoarrow.XY, geoarrow.Separated, noMeta))
	assert.ErrorIs(t, err, geoarrow.ErrUnsupportedCast)
}

func TestCastIdentity(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	src := points(t, mem, wgs84)
	defer src.Release()

	out, err := cast.Cast(mem, src, src.Type())
	require.NoError(t, err)
	assert.Same(t, src, out)
	out.Release()
}

func TestSerializedCasts(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	src := points(t, mem, wgs84)
	defer src.Release()

	enc, err := cast.Cast(mem, src, geoarrow.NewWKBType(noMeta))
	require.NoError(t, err)
	defer enc.Release()
	assert.True(t, enc.Type().Metadata().Equal(wgs84))
	assert.Equal(t, geoarrow.KindWKB, enc.Type().Kind())

	txt, err := cast.Cast(mem, src, geoarrow.NewWKTType(noMeta))
	require.NoError(t, err)
	defer txt.Release()
	assert.Equal(t, "POINT (30 10)", txt.(*geoarray.WKTArray).Value(0))

	back, err := cast.Cast(mem, enc, src.Type())
	require.NoError(t, err)
	defer back.Release()
	assert.True(t, geoarray.Equal(src, back))
	assert.True(t, back.IsNull(1))
	assert.True(t, back.IsValid(2))

	_, err = cast.Cast(mem, enc, geoarrow.NewPointType(geoarrow.XYZ, geoarrow.Separated, wgs84))
	assert.ErrorIs(t, err, geoarrow.ErrDimensionMismatch)
	var rowErr *geoarrow.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 0, rowErr.Row)
}

func TestCastSlice(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	gs := []geom.T{
		geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, []int{8}),
		nil,
		geom.NewPolygonFlat(geom.XY, []float64{5, 5, 6, 5, 6, 6, 5, 5, 5.5, 5.5, 5.6, 5.5, 5.6, 5.6, 5.5, 5.5}, []int{8, 16}),
		geom.NewPolygon(geom.XY),
		geom.NewPolygonFlat(geom.XY, []float64{9, 9, 10, 9, 10, 10, 9, 9}, []int{8}),
	}
	src, err := geoarray.FromGeometries(mem, geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Separated, noMeta), gs)
	require.NoError(t, err)
	defer src.Release()

	window := src.Slice(2, 3)
	defer window.Release()

	targets := []geoarrow.GeoArrowType{
		geoarrow.NewMultiPolygonType(geoarrow.XY, geoarrow.Interleaved, noMeta),
		geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Interleaved, noMeta),
		geoarrow.NewGeometryType(geoarrow.Separated, noMeta),
		geoarrow.NewWKBType(noMeta),
		geoarrow.NewWKTType(noMeta),
	}
	for _, target := range targets {
		t.Run(target.String(), func(t *testing.T) {
			out, err := cast.Cast(mem, window, target)
			require.NoError(t, err)
			defer out.Release()
			require.Equal(t, 3, out.Len())
			assert.False(t, out.IsNull(0))
			assert.True(t, out.IsValid(1))
			for i := 0; i < out.Len(); i++ {
				g, err := out.Geometry(i)
				require.NoError(t, err)
				assert.Equal(t, gs[2+i] == nil, g == nil, "row %d", i)
				if g == nil {
					continue
				}
				want := gs[2+i]
				if target.Kind() == geoarrow.KindMultiPolygon && !want.Empty() {
					mp := geom.NewMultiPolygon(geom.XY)
					require.NoError(t, mp.Push(want.(*geom.Polygon)))
					want = mp
				}
				assert.True(t, geoarray.GeometryEqual(want, g), "row %d", i)
			}
		})
	}
}

func TestCastChunks(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	typ := geoarrow.NewLineStringType(geoarrow.XY, geoarrow.Separated, noMeta)
	chunks := make([]geoarray.Array, 4)
	for i := range chunks {
		arr, err := geoarray.FromGeometries(mem, typ, []geom.T{
			geom.NewLineStringFlat(geom.XY, []float64{float64(i), 0, float64(i), 1}),
		})
		require.NoError(t, err)
		defer arr.Release()
		chunks[i] = arr
	}

	out, err := cast.CastChunks(context.Background(), mem, chunks, geoarrow.NewWKBType(noMeta))
	require.NoError(t, err)
	require.Len(t, out, len(chunks))
	for i, arr := range out {
		assert.True(t, geoarray.Equal(chunks[i], arr), "chunk %d", i)
		arr.Release()
	}

	bad := geoarray.NewWKBBuilder(mem, geoarrow.NewWKBType(noMeta))
	bad.PushGeometry(geom.NewPointFlat(geom.XY, []float64{1, 1}))
	wkbChunk := bad.Finish()
	bad.Release()
	defer wkbChunk.Release()

	good := geoarray.NewWKBBuilder(mem, geoarrow.NewWKBType(noMeta))
	good.PushGeometry(geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}))
	lsChunk := good.Finish()
	good.Release()
	defer lsChunk.Release()

	_, err = cast.CastChunks(context.Background(), mem, []geoarray.Array{lsChunk, wkbChunk, lsChunk}, typ)
	assert.ErrorIs(t, err, geoarrow.ErrUnexpectedGeometry)
	assert.ErrorContains(t, err, "chunk 1")
}

func TestDowncast(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	mixedType := geoarrow.NewGeometryType(geoarrow.Interleaved, wgs84)
	build := func(gs ...geom.T) geoarray.Array {
		arr, err := geoarray.FromGeometries(mem, mixedType, gs)
		require.NoError(t, err)
		return arr
	}

	t.Run("single shape", func(t *testing.T) {
		arr := build(geom.NewPointFlat(geom.XY, []float64{1, 2}), nil)
		defer arr.Release()
		out, err := cast.Downcast(mem, arr)
		require.NoError(t, err)
		defer out.Release()
		assert.IsType(t, (*geoarray.PointArray)(nil), out)
		assert.Equal(t, geoarrow.Interleaved, out.Type().CoordType())
		assert.True(t, out.Type().Metadata().Equal(wgs84))
		assert.True(t, geoarray.Equal(arr, out))
	})

	t.Run("single part multis", func(t *testing.T) {
		arr := build(
			geom.NewPointFlat(geom.XY, []float64{1, 2}),
			geom.NewMultiPointFlat(geom.XY, []float64{3, 4}))
		defer arr.Release()
		out, err := cast.Downcast(mem, arr)
		require.NoError(t, err)
		defer out.Release()
		require.IsType(t, (*geoarray.PointArray)(nil), out)
		assert.Equal(t, []float64{3, 4}, out.(*geoarray.PointArray).Value(1).FlatCoords())
	})

	t.Run("multi part", func(t *testing.T) {
		arr := build(
			geom.NewPointFlat(geom.XY, []float64{1, 2}),
			geom.NewMultiPointFlat(geom.XY, []float64{3, 4, 5, 6}))
		defer arr.Release()
		out, err := cast.Downcast(mem, arr)
		require.NoError(t, err)
		defer out.Release()
		assert.IsType(t, (*geoarray.MultiPointArray)(nil), out)
	})

	t.Run("mixed dimensions", func(t *testing.T) {
		arr := build(
			geom.NewPointFlat(geom.XY, []float64{1, 2}),
			geom.NewPointFlat(geom.XYZ, []float64{1, 2, 3}))
		defer arr.Release()
		out, err := cast.Downcast(mem, arr)
		require.NoError(t, err)
		defer out.Release()
		assert.Same(t, arr, out)
	})
}
