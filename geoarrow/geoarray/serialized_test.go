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

package geoarray_test

import (
	"bytes"
	"encoding/hex"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// samples returns a valid, a null and an empty geometry of kind k.
func samples(k geoarrow.Kind, d geoarrow.Dimension) []geom.T {
	l, s := d.Layout(), d.Size()
	coords := func(n int, base float64) []float64 {
		out := make([]float64, n*s)
		for i := range out {
			out[i] = base + float64(i)
		}
		return out
	}
	ring := func(base float64) []float64 {
		c := coords(3, base)
		return append(c, c[:s]...)
	}

	switch k {
	case geoarrow.KindPoint:
		return []geom.T{geom.NewPointFlat(l, coords(1, 1)), nil, geom.NewPointEmpty(l)}
	case geoarrow.KindLineString:
		return []geom.T{geom.NewLineStringFlat(l, coords(3, 0)), nil, geom.NewLineString(l)}
	case geoarrow.KindPolygon:
		return []geom.T{geom.NewPolygonFlat(l, ring(0), []int{4 * s}), nil, geom.NewPolygon(l)}
	case geoarrow.KindMultiPoint:
		return []geom.T{geom.NewMultiPointFlat(l, coords(2, 5)), nil, geom.NewMultiPoint(l)}
	case geoarrow.KindMultiLineString:
		return []geom.T{geom.NewMultiLineStringFlat(l, coords(4, 0), []int{2 * s, 4 * s}), nil, geom.NewMultiLineString(l)}
	case geoarrow.KindMultiPolygon:
		flat := append(ring(0), ring(10)...)
		return []geom.T{geom.NewMultiPolygonFlat(l, flat, [][]int{{4 * s}, {8 * s}}), nil, geom.NewMultiPolygon(l)}
	case geoarrow.KindGeometryCollection:
		gc := geom.NewGeometryCollection()
		if err := gc.Push(geom.NewPointFlat(l, coords(1, 0)), geom.NewLineStringFlat(l, coords(2, 3))); err != nil {
			panic(err)
		}
		if err := gc.SetLayout(l); err != nil {
			panic(err)
		}
		return []geom.T{gc, nil, geom.NewGeometryCollection()}
	}
	panic("no samples for " + k.String())
}

var nativeKinds = []geoarrow.Kind{
	geoarrow.KindPoint, geoarrow.KindLineString, geoarrow.KindPolygon, geoarrow.KindMultiPoint,
	geoarrow.KindMultiLineString, geoarrow.KindMultiPolygon, geoarrow.KindGeometryCollection,
}

func TestWKBRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	for _, k := range nativeKinds {
		for _, d := range geoarrow.Dimensions {
			t.Run(geoarrow.UnionChildName(k, d), func(t *testing.T) {
				gs := samples(k, d)
				native, err := geoarray.FromGeometries(mem, geoarrow.NewNativeType(k, d, geoarrow.Separated, geoarrow.Metadata{}), gs)
				require.NoError(t, err)
				defer native.Release()

				values, err := geoarray.Geometries(native)
				require.NoError(t, err)
				for _, typ := range []*geoarrow.SerializedType{geoarrow.NewWKBType(geoarrow.Metadata{}), geoarrow.NewLargeWKBType(geoarrow.Metadata{})} {
					encoded, err := geoarray.FromGeometries(mem, typ, values)
					require.NoError(t, err)
					assert.True(t, encoded.IsNull(1))
					assert.True(t, geoarray.Equal(native, encoded))

					decoded, err := geoarray.Geometries(encoded)
					require.NoError(t, err)
					back, err := geoarray.FromGeometries(mem, geoarrow.NewNativeType(k, d, geoarrow.Interleaved, geoarrow.Metadata{}), decoded)
					require.NoError(t, err)
					assert.True(t, geoarray.Equal(native, back))
					back.Release()
					encoded.Release()
				}
			})
		}
	}
}

func TestWKTRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	for _, k := range nativeKinds {
		t.Run(k.String(), func(t *testing.T) {
			gs := samples(k, geoarrow.XY)
			encoded, err := geoarray.FromGeometries(mem, geoarrow.NewWKTType(geoarrow.Metadata{}), gs)
			require.NoError(t, err)
			defer encoded.Release()
			assert.True(t, encoded.IsNull(1))

			decoded, err := geoarray.Geometries(encoded)
			require.NoError(t, err)
			back, err := geoarray.FromGeometries(mem, geoarrow.NewNativeType(k, geoarrow.XY, geoarrow.Separated, geoarrow.Metadata{}), decoded)
			require.NoError(t, err)
			defer back.Release()

			for i, want := range gs {
				got, err := back.Geometry(i)
				require.NoError(t, err)
				assert.True(t, geoarray.GeometryEqual(want, got), "row %d", i)
			}
		})
	}
}

func TestWKBPointBytes(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b := geoarray.NewWKBBuilder(mem, geoarrow.NewWKBType(geoarrow.Metadata{}))
	defer b.Release()
	b.PushGeometry(pt(30, 10))
	assert.ErrorIs(t, b.TryPushWKB([]byte{0x01, 0x01}), geoarrow.ErrInvalidWKB)

	arr := b.Finish()
	defer arr.Release()
	require.Equal(t, 1, arr.Len())
	assert.Equal(t, "01010000000000000000003e400000000000002440", hex.EncodeToString(arr.Value(0)))
}

func TestWKBCapacityOverflow(t *testing.T) {
	c := geoarray.WKBCapacity{Bytes: math.MaxInt - 8}
	err := c.AddGeometry(pt(1, 2))
	assert.ErrorIs(t, err, geoarrow.ErrOffsetOverflow)

	c = geoarray.WKBCapacity{}
	require.NoError(t, c.AddGeometry(pt(1, 2)))
	require.NoError(t, c.AddGeometry(nil))
	assert.Equal(t, geoarray.WKBCapacity{Bytes: 21, Geoms: 2}, c)
}

func TestInvalidWKTElement(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	sb := array.NewStringBuilder(mem)
	defer sb.Release()
	sb.AppendValues([]string{"POINT (1 2)", "POINT (1"}, nil)
	storage := sb.NewArray()
	defer storage.Release()

	arr, err := geoarray.FromStorage(geoarrow.NewWKTType(geoarrow.Metadata{}), storage)
	require.NoError(t, err)
	defer arr.Release()

	_, err = arr.Geometry(1)
	assert.ErrorIs(t, err, geoarrow.ErrInvalidWKT)
	_, err = geoarray.Geometries(arr)
	var rowErr *geoarrow.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 1, rowErr.Row)
}

func TestRect(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	b := geoarray.NewRectBuilder(mem, geoarrow.NewBoxType(geoarrow.XYZ, geoarrow.Metadata{}))
	defer b.Release()
	b.PushGeometry(geom.NewLineStringFlat(geom.XYZ, []float64{0, 5, 1, 4, 2, 3, 2, -1, math.NaN()}))
	b.PushNull()
	b.PushEmpty()
	b.PushRect(geom.NewBounds(geom.XYZ).Set(1, 1, 1, 2, 2, 2))
	assert.ErrorIs(t, b.TryPushGeometry(pt(1, 1)), geoarrow.ErrDimensionMismatch)

	arr := b.Finish()
	defer arr.Release()
	require.Equal(t, 4, arr.Len())
	assert.Equal(t, 1, arr.NullN())

	bounds := arr.Value(0)
	assert.Equal(t, []float64{0, -1, 1}, []float64{bounds.Min(0), bounds.Min(1), bounds.Min(2)})
	assert.Equal(t, []float64{4, 5, 3}, []float64{bounds.Max(0), bounds.Max(1), bounds.Max(2)})

	assert.Nil(t, arr.Value(1))
	assert.True(t, math.IsNaN(arr.Min(1, 0)))
	assert.True(t, arr.Value(2).IsEmpty())
	assert.True(t, math.IsNaN(arr.Max(2, 2)))

	g, err := arr.Geometry(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 2, 1, 1, 2, 2, 1, 1, 2, 1, 1, 1, 1}, g.FlatCoords())
}

func TestIPCRoundTrip(t *testing.T) {
	require.NoError(t, geoarrow.RegisterExtensionTypes())

	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	gs := []geom.T{pt(1, 2), nil, square(0, 0, 1), geom.NewPointFlat(geom.XYZ, []float64{1, 2, 3}), collection(t, ls(0, 0, 1, 1))}
	crs := geoarrow.AuthorityCodeCRS("EPSG:4326")
	typ := geoarrow.NewGeometryType(geoarrow.Interleaved, geoarrow.Metadata{CRS: crs})
	arr, err := geoarray.FromGeometries(mem, typ, gs)
	require.NoError(t, err)
	defer arr.Release()

	col := arr.ToArrow()
	defer col.Release()
	schema := arrow.NewSchema([]arrow.Field{geoarrow.NewField("geometry", typ, true)}, nil)
	rec := array.NewRecordBatch(schema, []arrow.Array{col}, int64(col.Len()))
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	r, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer r.Release()
	require.True(t, r.Next())

	got, err := geoarray.FromArrow(r.RecordBatch().Column(0))
	require.NoError(t, err)
	defer got.Release()

	assert.True(t, got.Type().ExtensionEquals(typ))
	assert.True(t, got.Type().Metadata().Equal(typ.Metadata()))
	assert.True(t, geoarray.Equal(arr, got))
}
