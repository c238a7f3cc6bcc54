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
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/internal/bufferbuilder"
	"github.com/twpayne/go-geom"
)

// GeometryCollectionArray is an array of geoarrow.geometrycollection: a
// list of members held in a six child union of a single dimension.
type GeometryCollectionArray struct {
	base
	typ     *geoarrow.NativeType
	offsets []int32
	members *union
}

func newGeometryCollectionArray(typ *geoarrow.NativeType, storage arrow.Array) (*GeometryCollectionArray, error) {
	list, ok := storage.(*array.List)
	if !ok {
		return nil, fmt.Errorf("%w: geometrycollection expects a list, got %s", geoarrow.ErrInvalidStorage, storage.DataType())
	}
	offsets := listOffsets(list)
	values := list.ListValues()
	if int(offsets[len(offsets)-1]) > values.Len() {
		return nil, fmt.Errorf("%w: geometrycollection offsets end at %d, union has %d values",
			geoarrow.ErrLengthMismatch, offsets[len(offsets)-1], values.Len())
	}

	members := &union{}
	if err := members.init(values, typ.Metadata()); err != nil {
		return nil, err
	}
	a := &GeometryCollectionArray{typ: typ, offsets: offsets, members: members}
	a.base.init(storage)
	a.release = members.Release
	return a, nil
}

func (a *GeometryCollectionArray) Type() geoarrow.GeoArrowType { return a.typ }
func (a *GeometryCollectionArray) ToArrow() arrow.Array { return toArrow(a.typ, a.storage) }
func (a *GeometryCollectionArray) GeomOffsets() []int32 { return a.offsets }

// TryValue returns collection i, or nil when it is null. It fails when a
// member cannot be read or does not fit the collection's layout.
func (a *GeometryCollectionArray) TryValue(i int) (*geom.GeometryCollection, error) {
	if a.IsNull(i) {
		return nil, nil
	}
	gc := geom.NewGeometryCollection()
	for j := a.offsets[i]; j < a.offsets[i+1]; j++ {
		g, err := a.members.Geometry(int(j))
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", j-a.offsets[i], err)
		}
		if g == nil {
			continue
		}
		if err := gc.Push(g); err != nil {
			return nil, err
		}
	}
	if err := gc.SetLayout(a.typ.Dim().Layout()); err != nil {
		return nil, err
	}
	return gc, nil
}

// Value returns collection i, or nil when it is null. It panics when
// TryValue fails.
func (a *GeometryCollectionArray) Value(i int) *geom.GeometryCollection {
	gc, err := a.TryValue(i)
	if err != nil {
		panic(fmt.Sprintf("geoarray: geometrycollection %d: %v", i, err))
	}
	return gc
}

func (a *GeometryCollectionArray) Geometry(i int) (geom.T, error) {
	gc, err := a.TryValue(i)
	if err != nil {
		return nil, geoarrow.AtRow(i, err)
	}
	if gc == nil {
		return nil, nil
	}
	return gc, nil
}

func (a *GeometryCollectionArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*GeometryCollectionArray, error) {
		return newGeometryCollectionArray(a.typ, s)
	})
}

// childBuilder is a builder that can sit inside a union.
type childBuilder interface {
	Builder
	// validate reports whether g, already routed to this builder's kind,
	// would be accepted.
	validate(g geom.T) error
	// pushNulls appends n null elements.
	pushNulls(n int)
	finishStorage() arrow.Array
}

func (b *nestedBuilder) validate(g geom.T) error { return b.checkLayout(g) }

func newChildBuilder(mem memory.Allocator, k geoarrow.Kind, d geoarrow.Dimension, ct geoarrow.CoordType, meta geoarrow.Metadata, preferMulti bool) childBuilder {
	typ := geoarrow.NewNativeType(k, d, ct, meta)
	switch k {
	case geoarrow.KindPoint:
		return NewPointBuilder(mem, typ)
	case geoarrow.KindLineString:
		return NewLineStringBuilder(mem, typ)
	case geoarrow.KindPolygon:
		return NewPolygonBuilder(mem, typ)
	case geoarrow.KindMultiPoint:
		return NewMultiPointBuilder(mem, typ)
	case geoarrow.KindMultiLineString:
		return NewMultiLineStringBuilder(mem, typ)
	case geoarrow.KindMultiPolygon:
		return NewMultiPolygonBuilder(mem, typ)
	case geoarrow.KindGeometryCollection:
		b := NewGeometryCollectionBuilder(mem, typ)
		b.mixed.preferMulti = preferMulti
		return b
	}
	panic("geoarray: not a native kind: " + k.String())
}

// reserveChild forwards the capacity of kind k to the matching builder.
func reserveChild(b childBuilder, c *GeometryCapacity, k geoarrow.Kind, d geoarrow.Dimension) {
	switch b := b.(type) {
	case *PointBuilder:
		b.Reserve(c.Points[d])
	case *LineStringBuilder:
		b.Reserve(c.LineStrings[d])
	case *PolygonBuilder:
		b.Reserve(c.Polygons[d])
	case *MultiPointBuilder:
		b.Reserve(c.MultiPoints[d])
	case *MultiLineStringBuilder:
		b.Reserve(c.MultiLineStrings[d])
	case *MultiPolygonBuilder:
		b.Reserve(c.MultiPolygons[d])
	case *GeometryCollectionBuilder:
		b.Reserve(c.GeometryCollections[d])
	}
}

// mixedBuilder builds the members of geometry collections: a dense union
// of the six non-collection kinds in one dimension.
type mixedBuilder struct {
	mem         memory.Allocator
	dim         geoarrow.Dimension
	ct          geoarrow.CoordType
	meta        geoarrow.Metadata
	preferMulti bool
	children    [6]childBuilder
	types       *bufferbuilder.Builder[int8]
	offsets     *bufferbuilder.Builder[int32]
}

func newMixedBuilder(mem memory.Allocator, d geoarrow.Dimension, ct geoarrow.CoordType, meta geoarrow.Metadata) *mixedBuilder {
	b := &mixedBuilder{
		mem:     mem,
		dim:     d,
		ct:      ct,
		meta:    meta,
		types:   bufferbuilder.New[int8](mem),
		offsets: bufferbuilder.New[int32](mem),
	}
	for k := geoarrow.KindPoint; k <= geoarrow.KindMultiPolygon; k++ {
		b.children[k-1] = newChildBuilder(mem, k, d, ct, meta, false)
	}
	return b
}

func (b *mixedBuilder) Len() int { return b.types.Len() }

func (b *mixedBuilder) reserve(c MixedCapacity) {
	n := c.Geoms()
	b.types.Reserve(n)
	b.offsets.Reserve(n)
	b.children[0].(*PointBuilder).Reserve(c.Points)
	b.children[1].(*LineStringBuilder).Reserve(c.LineStrings)
	b.children[2].(*PolygonBuilder).Reserve(c.Polygons)
	b.children[3].(*MultiPointBuilder).Reserve(c.MultiPoints)
	b.children[4].(*MultiLineStringBuilder).Reserve(c.MultiLineStrings)
	b.children[5].(*MultiPolygonBuilder).Reserve(c.MultiPolygons)
}

// route returns the member as it will be stored and the child that
// stores it.
func (b *mixedBuilder) route(g geom.T) (geom.T, childBuilder, error) {
	if isNil(g) {
		return nil, nil, unexpected(g, "a geometry collection member")
	}
	if b.preferMulti {
		g = toMulti(g)
	}
	k, ok := geoarrow.KindOf(g)
	if !ok || k == geoarrow.KindGeometryCollection {
		return nil, nil, unexpected(g, "a geometry collection member")
	}
	child := b.children[k-1]
	if err := child.validate(g); err != nil {
		return nil, nil, err
	}
	if child.Len() >= math.MaxInt32 {
		return nil, nil, fmt.Errorf("%w: geometry collection member %s", geoarrow.ErrOffsetOverflow, k)
	}
	return g, child, nil
}

func (b *mixedBuilder) validate(members []geom.T) error {
	for _, g := range members {
		if _, _, err := b.route(g); err != nil {
			return err
		}
	}
	return nil
}

// push appends members that validate already accepted.
func (b *mixedBuilder) push(members []geom.T) {
	for _, g := range members {
		g, child, err := b.route(g)
		if err == nil {
			offset := child.Len()
			err = child.TryPushGeometry(g)
			if err == nil {
				k, _ := geoarrow.KindOf(g)
				b.types.Append(geoarrow.TypeCode(k, b.dim))
				b.offsets.Append(int32(offset))
				continue
			}
		}
		panic(err)
	}
}

func (b *mixedBuilder) finishData() arrow.ArrayData {
	n := b.types.Len()
	children := make([]arrow.ArrayData, len(b.children))
	for i, c := range b.children {
		storage := c.finishStorage()
		children[i] = storage.Data()
		children[i].Retain()
		storage.Release()
	}
	types, offsets := b.types.Finish(), b.offsets.Finish()
	data := array.NewData(geoarrow.MixedStorage(b.dim, b.ct), n,
		[]*memory.Buffer{nil, types, offsets}, children, 0, 0)
	for _, c := range children {
		c.Release()
	}
	releaseBuffers(types, offsets)
	return data
}

func releaseBuffers(bufs ...*memory.Buffer) {
	for _, b := range bufs {
		if b != nil {
			b.Release()
		}
	}
}

func (b *mixedBuilder) Release() {
	b.types.Release()
	b.offsets.Release()
	for _, c := range b.children {
		c.Release()
	}
}

// GeometryCollectionBuilder builds a GeometryCollectionArray. Any other
// geometry pushed into it is stored as a one member collection.
type GeometryCollectionBuilder struct {
	typ      *geoarrow.NativeType
	offsets  *bufferbuilder.Builder[int32]
	validity *bufferbuilder.Validity
	mixed    *mixedBuilder
}

func NewGeometryCollectionBuilder(mem memory.Allocator, typ *geoarrow.NativeType, opts ...Option) *GeometryCollectionBuilder {
	checkKind(typ, geoarrow.KindGeometryCollection)
	typ = geoarrow.NewGeometryCollectionType(typ.Dim(), typ.CoordType(), typ.Metadata())
	b := &GeometryCollectionBuilder{
		typ:      typ,
		offsets:  bufferbuilder.New[int32](mem),
		validity: bufferbuilder.NewValidity(mem),
		mixed:    newMixedBuilder(mem, typ.Dim(), typ.CoordType(), typ.Metadata()),
	}
	b.mixed.preferMulti = newConfig(opts).preferMulti
	b.offsets.Append(0)
	return b
}

func NewGeometryCollectionBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.NativeType, capacity GeometryCollectionCapacity, opts ...Option) *GeometryCollectionBuilder {
	b := NewGeometryCollectionBuilder(mem, typ, opts...)
	b.Reserve(capacity)
	return b
}

func (b *GeometryCollectionBuilder) Type() geoarrow.GeoArrowType { return b.typ }
func (b *GeometryCollectionBuilder) Len() int { return b.validity.Len() }

func (b *GeometryCollectionBuilder) Reserve(capacity GeometryCollectionCapacity) {
	b.offsets.Reserve(capacity.Geoms)
	b.validity.Reserve(capacity.Geoms)
	b.mixed.reserve(capacity.Mixed)
}

func (b *GeometryCollectionBuilder) members(g geom.T) ([]geom.T, error) {
	gc, ok := g.(*geom.GeometryCollection)
	if !ok {
		return []geom.T{g}, nil
	}
	if d, ok := geoarrow.DimensionFromLayout(gc.Layout()); ok && d != b.typ.Dim() && !gc.Empty() {
		return nil, fmt.Errorf("%w: %s geometry collection pushed into a %s builder",
			geoarrow.ErrDimensionMismatch, gc.Layout(), b.typ.Dim())
	}
	return gc.Geoms(), nil
}

func (b *GeometryCollectionBuilder) validate(g geom.T) error {
	members, err := b.members(g)
	if err != nil {
		return err
	}
	return b.mixed.validate(members)
}

func (b *GeometryCollectionBuilder) TryPushGeometryCollection(gc *geom.GeometryCollection) error {
	if gc == nil {
		b.PushNull()
		return nil
	}
	return b.TryPushGeometry(gc)
}

func (b *GeometryCollectionBuilder) PushGeometryCollection(gc *geom.GeometryCollection) {
	if err := b.TryPushGeometryCollection(gc); err != nil {
		panic(err)
	}
}

// TryPushGeometry appends a collection, or any other geometry as a one
// member collection. Nested collections are rejected.
func (b *GeometryCollectionBuilder) TryPushGeometry(g geom.T) error {
	if isNil(g) {
		b.PushNull()
		return nil
	}
	members, err := b.members(g)
	if err != nil {
		return err
	}
	if err := b.mixed.validate(members); err != nil {
		return err
	}
	if int64(b.mixed.Len())+int64(len(members)) > math.MaxInt32 {
		return fmt.Errorf("%w: geometry collection builder", geoarrow.ErrOffsetOverflow)
	}
	b.mixed.push(members)
	b.offsets.Append(int32(b.mixed.Len()))
	b.validity.Append(true)
	return nil
}

func (b *GeometryCollectionBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

func (b *GeometryCollectionBuilder) PushNull() {
	b.offsets.Append(b.offsets.Last())
	b.validity.Append(false)
}

func (b *GeometryCollectionBuilder) pushNulls(n int) {
	b.offsets.AppendRepeat(b.offsets.Last(), n)
	b.validity.AppendN(n, false)
}

func (b *GeometryCollectionBuilder) PushEmpty() {
	b.offsets.Append(b.offsets.Last())
	b.validity.Append(true)
}

func (b *GeometryCollectionBuilder) finishStorage() arrow.Array {
	n := b.validity.Len()
	validity, nulls := b.validity.Finish()
	offsets := b.offsets.Finish()
	b.offsets.Append(0)

	child := b.mixed.finishData()
	data := array.NewData(b.typ.StorageType(), n,
		[]*memory.Buffer{validity, offsets}, []arrow.ArrayData{child}, nulls, 0)
	child.Release()
	releaseBuffers(validity, offsets)
	defer data.Release()
	return array.MakeFromData(data)
}

func (b *GeometryCollectionBuilder) Finish() *GeometryCollectionArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newGeometryCollectionArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *GeometryCollectionBuilder) NewArray() Array { return b.Finish() }

func (b *GeometryCollectionBuilder) Release() {
	b.offsets.Release()
	b.validity.Release()
	b.mixed.Release()
}
