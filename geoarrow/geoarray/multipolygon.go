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

// MultiPolygonArray is an array of geoarrow.multipolygon, three list
// levels deep: polygons, rings, vertices.
type MultiPolygonArray struct {
	nested
}

func newMultiPolygonArray(typ *geoarrow.NativeType, storage arrow.Array) (*MultiPolygonArray, error) {
	a := &MultiPolygonArray{}
	if err := a.init(typ, storage); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *MultiPolygonArray) Value(i int) *geom.MultiPolygon {
	if a.IsNull(i) {
		return nil
	}
	return a.multiPolygon(i)
}

func (a *MultiPolygonArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*MultiPolygonArray, error) {
		return newMultiPolygonArray(a.typ, s)
	})
}

type MultiPolygonBuilder struct {
	nestedBuilder
}

func NewMultiPolygonBuilder(mem memory.Allocator, typ *geoarrow.NativeType) *MultiPolygonBuilder {
	checkKind(typ, geoarrow.KindMultiPolygon)
	b := &MultiPolygonBuilder{}
	b.init(mem, typ)
	return b
}

func NewMultiPolygonBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.NativeType, capacity MultiPolygonCapacity) *MultiPolygonBuilder {
	b := NewMultiPolygonBuilder(mem, typ)
	b.Reserve(capacity)
	return b
}

func (b *MultiPolygonBuilder) Reserve(capacity MultiPolygonCapacity) {
	b.reserve(capacity.Geoms, capacity.Polygons, capacity.Rings, capacity.Coords)
}

func (b *MultiPolygonBuilder) TryPushMultiPolygon(mp *geom.MultiPolygon) error {
	if mp == nil {
		b.PushNull()
		return nil
	}
	return b.pushMultiPolygon(mp)
}

func (b *MultiPolygonBuilder) PushMultiPolygon(mp *geom.MultiPolygon) {
	if err := b.TryPushMultiPolygon(mp); err != nil {
		panic(err)
	}
}

// TryPushGeometry also accepts a Polygon, stored as a one polygon
// MultiPolygon.
func (b *MultiPolygonBuilder) TryPushGeometry(g geom.T) error {
	mp, err := asMultiPolygon(g)
	if err != nil {
		return err
	}
	return b.TryPushMultiPolygon(mp)
}

func (b *MultiPolygonBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

func (b *MultiPolygonBuilder) Finish() *MultiPolygonArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newMultiPolygonArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *MultiPolygonBuilder) NewArray() Array { return b.Finish() }
