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

const numGeometryChildren = 28

// GeometryBuilder builds a GeometryArray. Children are created on first
// use; the finished union always has all 28 children.
//
// A dense union has no validity of its own, so a null is stored as a
// null in some child. Nulls pushed before any geometry are held back
// and written into the child of the first geometry, or into the XY
// point child when the array has no geometry at all.
type GeometryBuilder struct {
	mem         memory.Allocator
	typ         *geoarrow.GeometryType
	preferMulti bool
	children    [numGeometryChildren]childBuilder
	types       *bufferbuilder.Builder[int8]
	offsets     *bufferbuilder.Builder[int32]
	deferred    int
	last        int
}

func NewGeometryBuilder(mem memory.Allocator, typ *geoarrow.GeometryType, opts ...Option) *GeometryBuilder {
	return &GeometryBuilder{
		mem:         mem,
		typ:         geoarrow.NewGeometryType(typ.CoordType(), typ.Metadata()),
		preferMulti: newConfig(opts).preferMulti,
		types:       bufferbuilder.New[int8](mem),
		offsets:     bufferbuilder.New[int32](mem),
		last:        -1,
	}
}

func NewGeometryBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.GeometryType, capacity GeometryCapacity, opts ...Option) *GeometryBuilder {
	b := NewGeometryBuilder(mem, typ, opts...)
	b.Reserve(capacity)
	return b
}

func (b *GeometryBuilder) Type() geoarrow.GeoArrowType { return b.typ }
func (b *GeometryBuilder) Len() int { return b.types.Len() + b.deferred }

func (b *GeometryBuilder) child(idx int) childBuilder {
	if b.children[idx] == nil {
		k := geoarrow.Kind(idx%7 + 1)
		d := geoarrow.Dimension(idx / 7)
		b.children[idx] = newChildBuilder(b.mem, k, d, b.typ.CoordType(), b.typ.Metadata(), b.preferMulti)
	}
	return b.children[idx]
}

// Reserve creates and sizes every child the capacity counts.
func (b *GeometryBuilder) Reserve(capacity GeometryCapacity) {
	capacity = capacity.settled()
	n := capacity.Geoms()
	b.types.Reserve(n)
	b.offsets.Reserve(n)
	for _, d := range geoarrow.Dimensions {
		counts := [...]int{
			capacity.Points[d].Geoms,
			capacity.LineStrings[d].Geoms,
			capacity.Polygons[d].Geoms,
			capacity.MultiPoints[d].Geoms,
			capacity.MultiLineStrings[d].Geoms,
			capacity.MultiPolygons[d].Geoms,
			capacity.GeometryCollections[d].Geoms,
		}
		for i, c := range counts {
			if c == 0 {
				continue
			}
			k := geoarrow.Kind(i + 1)
			reserveChild(b.child(geoarrow.GeometryChildIndex(k, d)), &capacity, k, d)
		}
	}
}

// route returns g as it will be stored and the index of its child.
func (b *GeometryBuilder) route(g geom.T) (geom.T, int, error) {
	d, err := dimensionOf(g)
	if err != nil {
		return nil, 0, err
	}
	if b.preferMulti {
		g = toMulti(g)
	}
	k, ok := geoarrow.KindOf(g)
	if !ok {
		return nil, 0, unexpected(g, "a geometry")
	}
	return g, geoarrow.GeometryChildIndex(k, d), nil
}

func (b *GeometryBuilder) append(idx int, offset int) {
	k := geoarrow.Kind(idx%7 + 1)
	d := geoarrow.Dimension(idx / 7)
	b.types.Append(geoarrow.TypeCode(k, d))
	b.offsets.Append(int32(offset))
}

func (b *GeometryBuilder) pushNullInto(idx int) {
	child := b.child(idx)
	b.append(idx, child.Len())
	child.PushNull()
}

// flushDeferred writes the held back nulls as rows of child idx. Their
// child slots follow whatever the child already holds, so a geometry
// pushed just before them keeps the lower slot.
func (b *GeometryBuilder) flushDeferred(idx int) {
	if b.deferred == 0 {
		return
	}
	k := geoarrow.Kind(idx%7 + 1)
	d := geoarrow.Dimension(idx / 7)
	child := b.child(idx)
	start := child.Len()
	child.pushNulls(b.deferred)
	b.types.AppendRepeat(geoarrow.TypeCode(k, d), b.deferred)
	for i := 0; i < b.deferred; i++ {
		b.offsets.Append(int32(start + i))
	}
	b.deferred = 0
}

func (b *GeometryBuilder) TryPushGeometry(g geom.T) error {
	if isNil(g) {
		b.PushNull()
		return nil
	}
	g, idx, err := b.route(g)
	if err != nil {
		return err
	}
	child := b.child(idx)
	if err := child.validate(g); err != nil {
		return err
	}
	if int64(child.Len())+int64(b.deferred) >= math.MaxInt32 {
		return fmt.Errorf("%w: geometry builder child %s", geoarrow.ErrOffsetOverflow, child.Type())
	}

	offset := child.Len()
	if err := child.TryPushGeometry(g); err != nil {
		return err
	}
	b.flushDeferred(idx)
	b.append(idx, offset)
	b.last = idx
	return nil
}

func (b *GeometryBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

// PushNull appends a null into the child of the latest geometry, or
// defers it while there is none.
func (b *GeometryBuilder) PushNull() {
	if b.last < 0 {
		b.deferred++
		return
	}
	b.pushNullInto(b.last)
}

// PushEmpty appends an empty XY geometry collection.
func (b *GeometryBuilder) PushEmpty() {
	if err := b.TryPushGeometry(geom.NewGeometryCollection()); err != nil {
		panic(err)
	}
}

func (b *GeometryBuilder) finishStorage() arrow.Array {
	b.flushDeferred(geoarrow.GeometryChildIndex(geoarrow.KindPoint, geoarrow.XY))

	n := b.types.Len()
	children := make([]arrow.ArrayData, numGeometryChildren)
	for idx := range children {
		storage := b.child(idx).finishStorage()
		children[idx] = storage.Data()
		children[idx].Retain()
		storage.Release()
	}
	types, offsets := b.types.Finish(), b.offsets.Finish()
	b.last = -1

	data := array.NewData(b.typ.StorageType(), n, []*memory.Buffer{nil, types, offsets}, children, 0, 0)
	for _, c := range children {
		c.Release()
	}
	releaseBuffers(types, offsets)
	defer data.Release()
	return array.MakeFromData(data)
}

// Finish returns the built array and resets the builder.
func (b *GeometryBuilder) Finish() *GeometryArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newGeometryArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *GeometryBuilder) NewArray() Array { return b.Finish() }

func (b *GeometryBuilder) Release() {
	b.types.Release()
	b.offsets.Release()
	for _, c := range b.children {
		if c != nil {
			c.Release()
		}
	}
}
