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

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/twpayne/go-geom"
)

// PointArray is an array of geoarrow.point. Null and empty points both
// store NaN coordinates; only the validity bit tells them apart.
type PointArray struct {
	nested
}

func newPointArray(typ *geoarrow.NativeType, storage arrow.Array) (*PointArray, error) {
	a := &PointArray{}
	if err := a.init(typ, storage); err != nil {
		return nil, err
	}
	return a, nil
}

// Value returns point i, nil when it is null and an empty point when
// every ordinate is NaN.
func (a *PointArray) Value(i int) *geom.Point {
	if a.IsNull(i) {
		return nil
	}
	return a.point(i)
}

func (a *PointArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*PointArray, error) {
		return newPointArray(a.typ, s)
	})
}

func checkKind(typ *geoarrow.NativeType, k geoarrow.Kind) {
	if typ.Kind() != k {
		panic(fmt.Sprintf("geoarray: %s builder created with %s type", k, typ.Kind()))
	}
}

// PointBuilder builds a PointArray.
type PointBuilder struct {
	nestedBuilder
}

// NewPointBuilder panics if typ is not a point type.
func NewPointBuilder(mem memory.Allocator, typ *geoarrow.NativeType) *PointBuilder {
	checkKind(typ, geoarrow.KindPoint)
	b := &PointBuilder{}
	b.init(mem, typ)
	return b
}

func NewPointBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.NativeType, capacity PointCapacity) *PointBuilder {
	b := NewPointBuilder(mem, typ)
	b.Reserve(capacity)
	return b
}

func (b *PointBuilder) Reserve(capacity PointCapacity) { b.reserve(capacity.Geoms) }

// TryPushPoint appends p, or a null when p is nil.
func (b *PointBuilder) TryPushPoint(p *geom.Point) error {
	if p == nil {
		b.PushNull()
		return nil
	}
	return b.pushPoint(p)
}

func (b *PointBuilder) PushPoint(p *geom.Point) {
	if err := b.TryPushPoint(p); err != nil {
		panic(err)
	}
}

// TryPushGeometry also accepts a MultiPoint with at most one point.
func (b *PointBuilder) TryPushGeometry(g geom.T) error {
	p, err := asPoint(g)
	if err != nil {
		return err
	}
	return b.TryPushPoint(p)
}

func (b *PointBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

// Finish returns the built array and resets the builder.
func (b *PointBuilder) Finish() *PointArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newPointArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *PointBuilder) NewArray() Array { return b.Finish() }
