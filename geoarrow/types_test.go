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

package geoarrow_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestDimension(t *testing.T) {
	tests := []struct {
		dim    geoarrow.Dimension
		size   int
		name   string
		layout geom.Layout
	}{
		{geoarrow.XY, 2, "xy", geom.XY},
		{geoarrow.XYZ, 3, "xyz", geom.XYZ},
		{geoarrow.XYM, 3, "xym", geom.XYM},
		{geoarrow.XYZM, 4, "xyzm", geom.XYZM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.size, tt.dim.Size())
			assert.Equal(t, tt.name, tt.dim.String())
			assert.Equal(t, tt.layout, tt.dim.Layout())
			back, ok := geoarrow.DimensionFromLayout(tt.layout)
			assert.True(t, ok)
			assert.Equal(t, tt.dim, back)
		})
	}

	_, ok := geoarrow.DimensionFromLayout(geom.NoLayout)
	assert.False(t, ok)
}

func TestTypeCodes(t *testing.T) {
	assert.EqualValues(t, 1, geoarrow.TypeCode(geoarrow.KindPoint, geoarrow.XY))
	assert.EqualValues(t, 17, geoarrow.TypeCode(geoarrow.KindGeometryCollection, geoarrow.XYZ))
	assert.EqualValues(t, 36, geoarrow.TypeCode(geoarrow.KindMultiPolygon, geoarrow.XYZM))

	k, d, ok := geoarrow.ParseTypeCode(23)
	require.True(t, ok)
	assert.Equal(t, geoarrow.KindPolygon, k)
	assert.Equal(t, geoarrow.XYM, d)

	_, _, ok = geoarrow.ParseTypeCode(8)
	assert.False(t, ok)
	_, _, ok = geoarrow.ParseTypeCode(41)
	assert.False(t, ok)
}

func TestNativeStorage(t *testing.T) {
	pt := geoarrow.NewPointType(geoarrow.XYZ, geoarrow.Separated, geoarrow.Metadata{})
	assert.True(t, arrow.TypeEqual(arrow.StructOf(
		arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: "y", Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: "z", Type: arrow.PrimitiveTypes.Float64},
	), pt.StorageType()))

	ipt := geoarrow.NewPointType(geoarrow.XYM, geoarrow.Interleaved, geoarrow.Metadata{})
	fsl, ok := ipt.StorageType().(*arrow.FixedSizeListType)
	require.True(t, ok)
	assert.EqualValues(t, 3, fsl.Len())
	assert.Equal(t, "xym", fsl.ElemField().Name)
	assert.False(t, fsl.ElemField().Nullable)

	mp := geoarrow.NewMultiPolygonType(geoarrow.XY, geoarrow.Separated, geoarrow.Metadata{})
	polys := mp.StorageType().(*arrow.ListType)
	assert.Equal(t, "polygons", polys.ElemField().Name)
	rings := polys.Elem().(*arrow.ListType)
	assert.Equal(t, "rings", rings.ElemField().Name)
	verts := rings.Elem().(*arrow.ListType)
	assert.Equal(t, "vertices", verts.ElemField().Name)

	gc := geoarrow.NewGeometryCollectionType(geoarrow.XYZ, geoarrow.Separated, geoarrow.Metadata{})
	members := gc.StorageType().(*arrow.ListType).Elem().(*arrow.DenseUnionType)
	assert.Equal(t, []arrow.UnionTypeCode{11, 12, 13, 14, 15, 16}, members.TypeCodes())
	assert.Equal(t, "Point Z", members.Fields()[0].Name)

	g := geoarrow.NewGeometryType(geoarrow.Separated, geoarrow.Metadata{})
	u := g.StorageType().(*arrow.DenseUnionType)
	require.Len(t, u.Fields(), 28)
	idx := geoarrow.GeometryChildIndex(geoarrow.KindMultiLineString, geoarrow.XYM)
	assert.EqualValues(t, 25, u.TypeCodes()[idx])
	assert.Equal(t, "MultiLineString M", u.Fields()[idx].Name)

	box := geoarrow.NewBoxType(geoarrow.XYZ, geoarrow.Metadata{})
	st := box.StorageType().(*arrow.StructType)
	var names []string
	for _, f := range st.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"xmin", "ymin", "zmin", "xmax", "ymax", "zmax"}, names)
}

func TestTypeStrings(t *testing.T) {
	meta := geoarrow.Metadata{CRS: geoarrow.AuthorityCodeCRS("EPSG:4326")}
	ls := geoarrow.NewLineStringType(geoarrow.XY, geoarrow.Interleaved, meta)
	assert.Equal(t, "geoarrow.linestring", ls.ExtensionName())
	assert.Equal(t, "extension<geoarrow.linestring[xy, interleaved]>", ls.String())
	assert.Equal(t, meta.Serialize(), ls.Serialize())

	assert.Equal(t, "geoarrow.wkb", geoarrow.NewLargeWKBType(meta).ExtensionName())
	assert.Equal(t, "geoarrow.wkt", geoarrow.NewWKTType(meta).ExtensionName())
	assert.Equal(t, "geoarrow.box", geoarrow.NewBoxType(geoarrow.XY, meta).ExtensionName())
}

func TestExtensionEquals(t *testing.T) {
	crs := geoarrow.Metadata{CRS: geoarrow.AuthorityCodeCRS("EPSG:4326")}
	a := geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Separated, crs)
	assert.True(t, a.ExtensionEquals(geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Separated, crs)))
	assert.False(t, a.ExtensionEquals(geoarrow.NewPolygonType(geoarrow.XYZ, geoarrow.Separated, crs)))
	assert.False(t, a.ExtensionEquals(geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Interleaved, crs)))
	assert.False(t, a.ExtensionEquals(geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Separated, geoarrow.Metadata{})))
	assert.False(t, a.ExtensionEquals(geoarrow.NewMultiPolygonType(geoarrow.XY, geoarrow.Separated, crs)))

	assert.True(t, a.WithMetadata(geoarrow.Metadata{}).ExtensionEquals(
		geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Separated, geoarrow.Metadata{})))
	assert.True(t, a.WithCoordType(geoarrow.Interleaved).ExtensionEquals(
		geoarrow.NewPolygonType(geoarrow.XY, geoarrow.Interleaved, crs)))
}

func TestDeserialize(t *testing.T) {
	for _, k := range []geoarrow.Kind{
		geoarrow.KindPoint, geoarrow.KindLineString, geoarrow.KindPolygon, geoarrow.KindMultiPoint,
		geoarrow.KindMultiLineString, geoarrow.KindMultiPolygon, geoarrow.KindGeometryCollection,
	} {
		for _, d := range geoarrow.Dimensions {
			for _, ct := range []geoarrow.CoordType{geoarrow.Separated, geoarrow.Interleaved} {
				want := geoarrow.NewNativeType(k, d, ct, geoarrow.Metadata{Edges: geoarrow.EdgesKarney})
				got, err := geoarrow.FromExtension(want.ExtensionName(), want.StorageType(), want.Serialize())
				require.NoError(t, err, want.String())
				assert.True(t, want.ExtensionEquals(got), "%s != %s", want, got)
			}
		}
	}

	for _, ct := range []geoarrow.CoordType{geoarrow.Separated, geoarrow.Interleaved} {
		want := geoarrow.NewGeometryType(ct, geoarrow.Metadata{})
		got, err := geoarrow.FromExtension(geoarrow.ExtensionNameGeometry, want.StorageType(), "")
		require.NoError(t, err)
		assert.True(t, want.ExtensionEquals(got))
	}

	for _, d := range geoarrow.Dimensions {
		want := geoarrow.NewBoxType(d, geoarrow.Metadata{})
		got, err := geoarrow.FromExtension(geoarrow.ExtensionNameBox, want.StorageType(), "")
		require.NoError(t, err)
		assert.True(t, want.ExtensionEquals(got))
	}

	got, err := geoarrow.FromExtension(geoarrow.ExtensionNameOGCWKB, arrow.BinaryTypes.LargeBinary, "")
	require.NoError(t, err)
	assert.Equal(t, geoarrow.KindLargeWKB, got.Kind())
	assert.Equal(t, geoarrow.ExtensionNameOGCWKB, got.ExtensionName())

	_, err = geoarrow.FromExtension(geoarrow.ExtensionNameWKT, arrow.BinaryTypes.Binary, "")
	assert.ErrorIs(t, err, geoarrow.ErrInvalidStorage)
	_, err = geoarrow.FromExtension(geoarrow.ExtensionNamePoint, arrow.PrimitiveTypes.Float64, "")
	assert.ErrorIs(t, err, geoarrow.ErrInvalidStorage)
	_, err = geoarrow.FromExtension("geoarrow.triangle", arrow.PrimitiveTypes.Float64, "")
	assert.ErrorIs(t, err, geoarrow.ErrUnknownExtension)
}

func TestGeometrySubsetStorage(t *testing.T) {
	// unions with a subset of children in any order are accepted
	u := arrow.DenseUnionOf([]arrow.Field{
		{Name: "poly", Type: geoarrow.NativeStorage(geoarrow.KindPolygon, geoarrow.XYZ, geoarrow.Interleaved), Nullable: true},
		{Name: "pt", Type: geoarrow.NativeStorage(geoarrow.KindPoint, geoarrow.XY, geoarrow.Interleaved), Nullable: true},
	}, []arrow.UnionTypeCode{13, 1})
	got, err := geoarrow.FromExtension(geoarrow.ExtensionNameGeometry, u, "")
	require.NoError(t, err)
	assert.Equal(t, geoarrow.Interleaved, got.CoordType())

	bad := arrow.DenseUnionOf([]arrow.Field{
		{Name: "pt", Type: geoarrow.NativeStorage(geoarrow.KindPoint, geoarrow.XY, geoarrow.Separated), Nullable: true},
	}, []arrow.UnionTypeCode{11})
	_, err = geoarrow.FromExtension(geoarrow.ExtensionNameGeometry, bad, "")
	assert.ErrorIs(t, err, geoarrow.ErrInvalidStorage)
}

func TestFromField(t *testing.T) {
	meta := geoarrow.Metadata{CRS: geoarrow.AuthorityCodeCRS("EPSG:3857")}
	ls := geoarrow.NewMultiLineStringType(geoarrow.XYM, geoarrow.Separated, meta)

	t.Run("extension", func(t *testing.T) {
		got, err := geoarrow.FromField(geoarrow.NewField("geom", ls, true))
		require.NoError(t, err)
		assert.Same(t, ls, got)
	})

	t.Run("field_metadata", func(t *testing.T) {
		f := geoarrow.StorageField("geom", ls, true)
		assert.False(t, arrow.TypeEqual(f.Type, ls))
		got, err := geoarrow.FromField(f)
		require.NoError(t, err)
		assert.True(t, ls.ExtensionEquals(got))
	})

	t.Run("inferred", func(t *testing.T) {
		tests := []struct {
			dt   arrow.DataType
			kind geoarrow.Kind
		}{
			{arrow.BinaryTypes.Binary, geoarrow.KindWKB},
			{arrow.BinaryTypes.LargeString, geoarrow.KindLargeWKT},
			{geoarrow.NativeStorage(geoarrow.KindPoint, geoarrow.XY, geoarrow.Interleaved), geoarrow.KindPoint},
			{geoarrow.NativeStorage(geoarrow.KindLineString, geoarrow.XY, geoarrow.Separated), geoarrow.KindLineString},
			{geoarrow.NativeStorage(geoarrow.KindMultiPoint, geoarrow.XY, geoarrow.Separated), geoarrow.KindMultiPoint},
			{geoarrow.NativeStorage(geoarrow.KindPolygon, geoarrow.XY, geoarrow.Separated), geoarrow.KindPolygon},
			{geoarrow.NativeStorage(geoarrow.KindMultiLineString, geoarrow.XY, geoarrow.Separated), geoarrow.KindMultiLineString},
			{geoarrow.NativeStorage(geoarrow.KindMultiPolygon, geoarrow.XY, geoarrow.Separated), geoarrow.KindMultiPolygon},
			{geoarrow.NativeStorage(geoarrow.KindGeometryCollection, geoarrow.XY, geoarrow.Separated), geoarrow.KindGeometryCollection},
			{geoarrow.GeometryStorage(geoarrow.Separated), geoarrow.KindGeometry},
		}
		for _, tt := range tests {
			got, err := geoarrow.FromField(arrow.Field{Name: "g", Type: tt.dt})
			require.NoError(t, err, tt.dt.String())
			assert.Equal(t, tt.kind, got.Kind(), tt.dt.String())
		}

		_, err := geoarrow.FromField(arrow.Field{Name: "n", Type: arrow.PrimitiveTypes.Int64})
		assert.ErrorIs(t, err, geoarrow.ErrAmbiguousType)
		_, err = geoarrow.FromField(arrow.Field{Name: "n", Type: arrow.ListOf(arrow.PrimitiveTypes.Int64)})
		assert.ErrorIs(t, err, geoarrow.ErrAmbiguousType)
	})
}

func TestRegisterExtensionTypes(t *testing.T) {
	require.NoError(t, geoarrow.RegisterExtensionTypes())
	require.NoError(t, geoarrow.RegisterExtensionTypes())

	for _, name := range []string{
		geoarrow.ExtensionNamePoint, geoarrow.ExtensionNameGeometry, geoarrow.ExtensionNameBox,
		geoarrow.ExtensionNameWKB, geoarrow.ExtensionNameOGCWKB, geoarrow.ExtensionNameWKT,
	} {
		ext := arrow.GetExtensionType(name)
		require.NotNil(t, ext, name)
		_, ok := ext.(geoarrow.GeoArrowType)
		assert.True(t, ok, name)
	}
}
