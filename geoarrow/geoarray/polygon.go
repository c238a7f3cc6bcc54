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
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/twpayne/go-geom"
)

// PolygonArray is an array of geoarrow.polygon: a list of rings, each a
// list of vertices.
type PolygonArray struct {
	nested
}

func newPolygonArray(typ *geoarrow.NativeType, storage arrow.Array) (*PolygonArray, error) {
	a := &PolygonArray{}
	if err := a.init(typ, storage); err != nil {
		return nil, err
	}
	return a, nil
}

// RingOffsets returns the offsets of every ring into the coordinates.
// They are not windowed by Slice.
func (a *PolygonArray) RingOffsets() []int32 { return a.offsets[1] }

func (a *PolygonArray) Value(i int) *geom.Polygon {
	if a.IsNull(i) {
		return nil
	}
	return a.polygon(i)
}

func (a *PolygonArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*PolygonArray, error) {
		return newPolygonArray(a.typ, s)
	})
}

type PolygonBuilder struct {
	nestedBuilder
}

func NewPolygonBuilder(mem memory.Allocator, typ *geoarrow.NativeType) *PolygonBuilder {
	checkKind(typ, geoarrow.KindPolygon)
	b := &PolygonBuilder{}
	b.init(mem, typ)
	return b
}

func NewPolygonBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.NativeType, capacity PolygonCapacity) *PolygonBuilder {
	b := NewPolygonBuilder(mem, typ)
	b.Reserve(capacity)
	return b
}

func (b *PolygonBuilder) Reserve(capacity PolygonCapacity) {
	b.reserve(capacity.Geoms, capacity.Rings, capacity.Coords)
}

func (b *PolygonBuilder) TryPushPolygon(p *geom.Polygon) error {
	if p == nil {
		b.PushNull()
		return nil
	}
	if err := b.checkLayout(p); err != nil {
		return err
	}
	return b.pushRings(p.Layout(), p.FlatCoords(), p.Ends())
}

func (b *PolygonBuilder) PushPolygon(p *geom.Polygon) {
	if err := b.TryPushPolygon(p); err != nil {
		panic(err)
	}
}

// TryPushGeometry also accepts a MultiPolygon with at most one polygon.
func (b *PolygonBuilder) TryPushGeometry(g geom.T) error {
	p, err := asPolygon(g)
	if err != nil {
		return err
	}
	return b.TryPushPolygon(p)
}

func (b *PolygonBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

func (b *PolygonBuilder) Finish() *PolygonArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newPolygonArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *PolygonBuilder) NewArray() Array { return b.Finish() }
