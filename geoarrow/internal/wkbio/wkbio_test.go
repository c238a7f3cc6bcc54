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

package wkbio_test

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"testing"

	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/internal/wkbio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
)

func fixtures() map[string]geom.T {
	gc := geom.NewGeometryCollection()
	if err := gc.Push(
		geom.NewPointFlat(geom.XYZ, []float64{1, 2, 3}),
		geom.NewLineStringFlat(geom.XYZ, []float64{0, 0, 0, 1, 1, 1}),
	); err != nil {
		panic(err)
	}
	return map[string]geom.T{
		"point":      geom.NewPointFlat(geom.XY, []float64{30, 10}),
		"point_zm":   geom.NewPointFlat(geom.XYZM, []float64{1, 2, 3, 4}),
		"linestring": geom.NewLineStringFlat(geom.XYM, []float64{0, 0, 1, 2, 2, 3, 4, 5, 6}),
		"polygon": geom.NewPolygonFlat(geom.XY,
			[]float64{0, 0, 4, 0, 4, 4, 0, 0, 1, 1, 2, 1, 2, 2, 1, 1}, []int{8, 16}),
		"multipoint":      geom.NewMultiPointFlat(geom.XYZ, []float64{1, 2, 3, 4, 5, 6}),
		"multilinestring": geom.NewMultiLineStringFlat(geom.XY, []float64{0, 0, 1, 1, 2, 2, 3, 3, 4, 4}, []int{4, 10}),
		"multipolygon": geom.NewMultiPolygonFlat(geom.XY,
			[]float64{0, 0, 1, 0, 1, 1, 0, 0, 5, 5, 6, 5, 6, 6, 5, 5}, [][]int{{8}, {16}}),
		"collection":  gc,
		"empty_line":  geom.NewLineString(geom.XY),
		"empty_poly":  geom.NewPolygon(geom.XYZ),
		"empty_multi": geom.NewMultiPolygon(geom.XY),
	}
}

func mustWKT(t *testing.T, g geom.T) string {
	t.Helper()
	s, err := wkt.Marshal(g)
	require.NoError(t, err)
	return s
}

func TestPointBytes(t *testing.T) {
	b, err := wkbio.Marshal(geom.NewPointFlat(geom.XY, []float64{30, 10}), binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, "01010000000000000000003e400000000000002440", hex.EncodeToString(b))

	b, err = wkbio.Marshal(geom.NewPointFlat(geom.XY, []float64{30, 10}), binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, "0000000001403e0000000000004024000000000000", hex.EncodeToString(b))
}

func TestRoundTrip(t *testing.T) {
	for name, g := range fixtures() {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			t.Run(name+"/"+order.String(), func(t *testing.T) {
				size, err := wkbio.Size(g)
				require.NoError(t, err)
				b, err := wkbio.Marshal(g, order)
				require.NoError(t, err)
				assert.Len(t, b, size)

				back, err := wkbio.Unmarshal(b)
				require.NoError(t, err)
				assert.Equal(t, g.Layout(), back.Layout())
				assert.Equal(t, mustWKT(t, g), mustWKT(t, back))
			})
		}
	}
}

func TestMatchesGoGeom(t *testing.T) {
	for name, g := range fixtures() {
		if g.Empty() {
			continue
		}
		t.Run(name, func(t *testing.T) {
			want, err := wkb.Marshal(g, binary.LittleEndian)
			require.NoError(t, err)
			got, err := wkbio.Marshal(g, binary.LittleEndian)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEmptyPoint(t *testing.T) {
	b, err := wkbio.Marshal(geom.NewPointEmpty(geom.XYZ), binary.LittleEndian)
	require.NoError(t, err)
	require.Len(t, b, 5+24)
	assert.True(t, math.IsNaN(math.Float64frombits(binary.LittleEndian.Uint64(b[5:]))))

	back, err := wkbio.Unmarshal(b)
	require.NoError(t, err)
	assert.True(t, back.Empty())
	assert.Equal(t, geom.XYZ, back.Layout())
}

func TestEWKBFlags(t *testing.T) {
	// SRID 4326 point with the EWKB Z flag
	b := binary.LittleEndian.AppendUint32([]byte{1}, 0x80000001|0x20000000)
	b = binary.LittleEndian.AppendUint32(b, 4326)
	for _, v := range []float64{1, 2, 3} {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	g, err := wkbio.Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, geom.XYZ, g.Layout())
	assert.Equal(t, []float64{1, 2, 3}, g.FlatCoords())
}

func TestInvalid(t *testing.T) {
	valid, err := wkbio.Marshal(geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}), binary.LittleEndian)
	require.NoError(t, err)

	huge := binary.LittleEndian.AppendUint32([]byte{1}, 2)
	huge = binary.LittleEndian.AppendUint32(huge, math.MaxUint32)

	tests := map[string][]byte{
		"empty":       {},
		"byte_order":  {7, 1, 0, 0, 0},
		"type":        {1, 99, 0, 0, 0},
		"truncated":   valid[:len(valid)-3],
		"trailing":    append(append([]byte{}, valid...), 0),
		"huge_count":  huge,
		"wrong_child": append(binary.LittleEndian.AppendUint32(binary.LittleEndian.AppendUint32([]byte{1}, 4), 1), valid...),
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := wkbio.Unmarshal(b)
			assert.ErrorIs(t, err, geoarrow.ErrInvalidWKB)
		})
	}
}

func TestUnsupported(t *testing.T) {
	_, err := wkbio.Size(nil)
	assert.ErrorIs(t, err, geoarrow.ErrUnexpectedGeometry)
	_, err = wkbio.Marshal(geom.NewPointFlat(geom.XY, []float64{1, 2}), nil)
	assert.Error(t, err)
}
