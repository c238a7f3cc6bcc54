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

type LineStringArray struct {
	nested
}

func newLineStringArray(typ *geoarrow.NativeType, storage arrow.Array) (*LineStringArray, error) {
	a := &LineStringArray{}
	if err := a.init(typ, storage); err != nil {
		return nil, err
	}
	return a, nil
}

// Value returns linestring i, or nil when it is null.
func (a *LineStringArray) Value(i int) *geom.LineString {
	if a.IsNull(i) {
		return nil
	}
	return a.lineString(i)
}

func (a *LineStringArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*LineStringArray, error) {
		return newLineStringArray(a.typ, s)
	})
}

type LineStringBuilder struct {
	nestedBuilder
}

func NewLineStringBuilder(mem memory.Allocator, typ *geoarrow.NativeType) *LineStringBuilder {
	checkKind(typ, geoarrow.KindLineString)
	b := &LineStringBuilder{}
	b.init(mem, typ)
	return b
}

func NewLineStringBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.NativeType, capacity LineStringCapacity) *LineStringBuilder {
	b := NewLineStringBuilder(mem, typ)
	b.Reserve(capacity)
	return b
}

func (b *LineStringBuilder) Reserve(capacity LineStringCapacity) {
	b.reserve(capacity.Geoms, capacity.Coords)
}

func (b *LineStringBuilder) TryPushLineString(ls *geom.LineString) error {
	if ls == nil {
		b.PushNull()
		return nil
	}
	if err := b.checkLayout(ls); err != nil {
		return err
	}
	return b.pushLineString(ls.Layout(), ls.FlatCoords())
}

func (b *LineStringBuilder) PushLineString(ls *geom.LineString) {
	if err := b.TryPushLineString(ls); err != nil {
		panic(err)
	}
}

func (b *LineStringBuilder) TryPushGeometry(g geom.T) error {
	ls, err := asLineString(g)
	if err != nil {
		return err
	}
	return b.TryPushLineString(ls)
}

func (b *LineStringBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

func (b *LineStringBuilder) Finish() *LineStringArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newLineStringArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *LineStringBuilder) NewArray() Array { return b.Finish() }
