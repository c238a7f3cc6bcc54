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

type MultiPointArray struct {
	nested
}

func newMultiPointArray(typ *geoarrow.NativeType, storage arrow.Array) (*MultiPointArray, error) {
	a := &MultiPointArray{}
	if err := a.init(typ, storage); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *MultiPointArray) Value(i int) *geom.MultiPoint {
	if a.IsNull(i) {
		return nil
	}
	return a.multiPoint(i)
}

func (a *MultiPointArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*MultiPointArray, error) {
		return newMultiPointArray(a.typ, s)
	})
}

// MultiPointBuilder builds a MultiPointArray. Empty member points are
// stored as NaN coordinates.
type MultiPointBuilder struct {
	nestedBuilder
}

func NewMultiPointBuilder(mem memory.Allocator, typ *geoarrow.NativeType) *MultiPointBuilder {
	checkKind(typ, geoarrow.KindMultiPoint)
	b := &MultiPointBuilder{}
	b.init(mem, typ)
	return b
}

func NewMultiPointBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.NativeType, capacity MultiPointCapacity) *MultiPointBuilder {
	b := NewMultiPointBuilder(mem, typ)
	b.Reserve(capacity)
	return b
}

func (b *MultiPointBuilder) Reserve(capacity MultiPointCapacity) {
	b.reserve(capacity.Geoms, capacity.Coords)
}

func (b *MultiPointBuilder) TryPushMultiPoint(mp *geom.MultiPoint) error {
	if mp == nil {
		b.PushNull()
		return nil
	}
	return b.pushMultiPoint(mp)
}

func (b *MultiPointBuilder) PushMultiPoint(mp *geom.MultiPoint) {
	if err := b.TryPushMultiPoint(mp); err != nil {
		panic(err)
	}
}

// TryPushGeometry also accepts a Point, stored as a one point
// MultiPoint.
func (b *MultiPointBuilder) TryPushGeometry(g geom.T) error {
	mp, err := asMultiPoint(g)
	if err != nil {
		return err
	}
	return b.TryPushMultiPoint(mp)
}

func (b *MultiPointBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

func (b *MultiPointBuilder) Finish() *MultiPointArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newMultiPointArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *MultiPointBuilder) NewArray() Array { return b.Finish() }
