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

package geoarray

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/floats"
)

// NewBuilder returns an empty builder for any GeoArrow type.
func NewBuilder(mem memory.Allocator, typ geoarrow.GeoArrowType, opts ...Option) (Builder, error) {
	switch t := typ.(type) {
	case *geoarrow.NativeType:
		if t.Kind() == geoarrow.KindGeometryCollection {
			return NewGeometryCollectionBuilder(mem, t, opts...), nil
		}
		return newChildBuilder(mem, t.Kind(), t.Dim(), t.CoordType(), t.Metadata(), false), nil
	case *geoarrow.GeometryType:
		return NewGeometryBuilder(mem, t, opts...), nil
	case *geoarrow.BoxType:
		return NewRectBuilder(mem, t), nil
	case *geoarrow.SerializedType:
		if t.Kind() == geoarrow.KindWKT || t.Kind() == geoarrow.KindLargeWKT {
			return NewWKTBuilder(mem, t), nil
		}
		return NewWKBBuilder(mem, t, opts...), nil
	}
	return nil, fmt.Errorf("%w: %s", geoarrow.ErrUnknownExtension, typ)
}

// newSizedBuilder counts gs and returns a builder with room for all of
// them.
func newSizedBuilder(mem memory.Allocator, typ geoarrow.GeoArrowType, gs []geom.T, opts []Option) (Builder, error) {
	switch t := typ.(type) {
	case *geoarrow.NativeType:
		switch t.Kind() {
		case geoarrow.KindPoint:
			c, err := PointCapacityFromGeometries(gs)
			if err != nil {
				return nil, err
			}
			return NewPointBuilderWithCapacity(mem, t, c), nil
		case geoarrow.KindLineString:
			c, err := LineStringCapacityFromGeometries(gs)
			if err != nil {
				return nil, err
			}
			return NewLineStringBuilderWithCapacity(mem, t, c), nil
		case geoarrow.KindPolygon:
			c, err := PolygonCapacityFromGeometries(gs)
			if err != nil {
				return nil, err
			}
			return NewPolygonBuilderWithCapacity(mem, t, c), nil
		case geoarrow.KindMultiPoint:
			c, err := MultiPointCapacityFromGeometries(gs)
			if err != nil {
				return nil, err
			}
			return NewMultiPointBuilderWithCapacity(mem, t, c), nil
		case geoarrow.KindMultiLineString:
			c, err := MultiLineStringCapacityFromGeometries(gs)
			if err != nil {
				return nil, err
			}
			return NewMultiLineStringBuilderWithCapacity(mem, t, c), nil
		case geoarrow.KindMultiPolygon:
			c, err := MultiPolygonCapacityFromGeometries(gs)
			if err != nil {
				return nil, err
			}
			return NewMultiPolygonBuilderWithCapacity(mem, t, c), nil
		case geoarrow.KindGeometryCollection:
			c, err := GeometryCollectionCapacityFromGeometries(gs, opts...)
			if err != nil {
				return nil, err
			}
			return NewGeometryCollectionBuilderWithCapacity(mem, t, c, opts...), nil
		}
	case *geoarrow.GeometryType:
		c, err := GeometryCapacityFromGeometries(gs, opts...)
		if err != nil {
			return nil, err
		}
		return NewGeometryBuilderWithCapacity(mem, t, c, opts...), nil
	case *geoarrow.BoxType:
		c, err := RectCapacityFromGeometries(gs)
		if err != nil {
			return nil, err
		}
		return NewRectBuilderWithCapacity(mem, t, c), nil
	case *geoarrow.SerializedType:
		if t.Kind() == geoarrow.KindWKB || t.Kind() == geoarrow.KindLargeWKB {
			c, err := WKBCapacityFromGeometries(gs)
			if err != nil {
				return nil, err
			}
			return NewWKBBuilderWithCapacity(mem, t, c, opts...), nil
		}
	}
	b, err := NewBuilder(mem, typ, opts...)
	if err != nil {
		return nil, err
	}
	if wb, ok := b.(*WKTBuilder); ok {
		wb.Reserve(len(gs), 0)
	}
	return b, nil
}

// FromGeometries builds an array of typ holding gs, nil entries being
// nulls. The geometries are counted first so that every buffer is
// allocated once.
func FromGeometries(mem memory.Allocator, typ geoarrow.GeoArrowType, gs []geom.T, opts ...Option) (Array, error) {
	b, err := newSizedBuilder(mem, typ, gs, opts)
	if err != nil {
		return nil, err
	}
	defer b.Release()

	for i, g := range gs {
		if err := b.TryPushGeometry(g); err != nil {
			return nil, geoarrow.AtRow(i, err)
		}
	}
	return b.NewArray(), nil
}

// GeometryKind is a kind together with its dimension.
type GeometryKind struct {
	Kind geoarrow.Kind
	Dim  geoarrow.Dimension
}

func (g GeometryKind) String() string { return geoarrow.UnionChildName(g.Kind, g.Dim) }

// InferType returns the distinct kinds and dimensions of the non-null
// elements of arr, ordered by union type id. Boxes count as polygons.
func InferType(arr Array) ([]GeometryKind, error) {
	seen := make(map[GeometryKind]struct{})
	switch a := arr.(type) {
	case *GeometryArray:
		for i := 0; i < a.Len(); i++ {
			if a.IsValid(i) {
				k, d := a.TypeID(i)
				seen[GeometryKind{k, d}] = struct{}{}
			}
		}
	case *RectArray:
		if a.Len() > a.NullN() {
			seen[GeometryKind{geoarrow.KindPolygon, a.typ.Dim()}] = struct{}{}
		}
	case *WKBArray, *WKTArray:
		for i := 0; i < arr.Len(); i++ {
			g, err := arr.Geometry(i)
			if err != nil {
				return nil, geoarrow.AtRow(i, err)
			}
			if g == nil {
				continue
			}
			k, _ := geoarrow.KindOf(g)
			d, err := dimensionOf(g)
			if err != nil {
				return nil, geoarrow.AtRow(i, err)
			}
			seen[GeometryKind{k, d}] = struct{}{}
		}
	default:
		t, ok := arr.Type().(*geoarrow.NativeType)
		if !ok {
			return nil, fmt.Errorf("%w: %s", geoarrow.ErrUnknownExtension, arr.Type())
		}
		if arr.Len() > arr.NullN() {
			seen[GeometryKind{t.Kind(), t.Dim()}] = struct{}{}
		}
	}

	out := make([]GeometryKind, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b GeometryKind) int {
		return cmp.Compare(geoarrow.TypeCode(a.Kind, a.Dim), geoarrow.TypeCode(b.Kind, b.Dim))
	})
	return out, nil
}

// Equal reports whether a and b hold the same geometries element by
// element, whatever their types. NaN ordinates compare equal.
func Equal(a, b Array) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		ga, err := a.Geometry(i)
		if err != nil {
			return false
		}
		gb, err := b.Geometry(i)
		if err != nil {
			return false
		}
		if !GeometryEqual(ga, gb) {
			return false
		}
	}
	return true
}

// GeometryEqual compares two geometries by kind, layout and coordinates.
// Empty geometries of the same kind are equal regardless of layout.
func GeometryEqual(a, b geom.T) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	ka, _ := geoarrow.KindOf(a)
	kb, _ := geoarrow.KindOf(b)
	if ka != kb {
		return false
	}
	if pa, ok := a.(*geom.Point); ok {
		pb := b.(*geom.Point)
		if pointEmpty(pa) || pointEmpty(pb) {
			return pointEmpty(pa) && pointEmpty(pb)
		}
	}
	if a.Empty() || b.Empty() {
		return a.Empty() && b.Empty()
	}
	if ca, ok := a.(*geom.GeometryCollection); ok {
		// collections may or may not carry a layout of their own
		cb := b.(*geom.GeometryCollection)
		if ca.NumGeoms() != cb.NumGeoms() {
			return false
		}
		for i := 0; i < ca.NumGeoms(); i++ {
			if !GeometryEqual(ca.Geom(i), cb.Geom(i)) {
				return false
			}
		}
		return true
	}
	if a.Layout() != b.Layout() {
		return false
	}
	if a, ok := a.(*geom.MultiPoint); ok {
		// empty members are either ends or NaN coordinates
		b := b.(*geom.MultiPoint)
		if a.NumPoints() != b.NumPoints() {
			return false
		}
		for i := 0; i < a.NumPoints(); i++ {
			if !GeometryEqual(a.Point(i), b.Point(i)) {
				return false
			}
		}
		return true
	}
	if !floats.Same(a.FlatCoords(), b.FlatCoords()) || !slices.Equal(a.Ends(), b.Ends()) {
		return false
	}
	return slices.EqualFunc(a.Endss(), b.Endss(), func(x, y []int) bool { return slices.Equal(x, y) })
}

func pointEmpty(p *geom.Point) bool {
	for _, v := range p.FlatCoords() {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
