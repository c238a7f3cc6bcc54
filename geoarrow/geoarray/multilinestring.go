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

type MultiLineStringArray struct {
	nested
}

func newMultiLineStringArray(typ *geoarrow.NativeType, storage arrow.Array) (*MultiLineStringArray, error) {
	a := &MultiLineStringArray{}
	if err := a.init(typ, storage); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *MultiLineStringArray) Value(i int) *geom.MultiLineString {
	if a.IsNull(i) {
		return nil
	}
	return a.multiLineString(i)
}

func (a *MultiLineStringArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*MultiLineStringArray, error) {
		return newMultiLineStringArray(a.typ, s)
	})
}

type MultiLineStringBuilder struct {
	nestedBuilder
}

func NewMultiLineStringBuilder(mem memory.Allocator, typ *geoarrow.NativeType) *MultiLineStringBuilder {
	checkKind(typ, geoarrow.KindMultiLineString)
	b := &MultiLineStringBuilder{}
	b.init(mem, typ)
	return b
}

func NewMultiLineStringBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.NativeType, capacity MultiLineStringCapacity) *MultiLineStringBuilder {
	b := NewMultiLineStringBuilder(mem, typ)
	b.Reserve(capacity)
	return b
}

func (b *MultiLineStringBuilder) Reserve(capacity MultiLineStringCapacity) {
	b.reserve(capacity.Geoms, capacity.LineStrings, capacity.Coords)
}

func (b *MultiLineStringBuilder) TryPushMultiLineString(mls *geom.MultiLineString) error {
	if mls == nil {
		b.PushNull()
		return nil
	}
	if err := b.checkLayout(mls); err != nil {
		return err
	}
	return b.pushRings(mls.Layout(), mls.FlatCoords(), mls.Ends())
}

func (b *MultiLineStringBuilder) PushMultiLineString(mls *geom.MultiLineString) {
	if err := b.TryPushMultiLineString(mls); err != nil {
		panic(err)
	}
}

func (b *MultiLineStringBuilder) TryPushGeometry(g geom.T) error {
	mls, err := asMultiLineString(g)
	if err != nil {
		return err
	}
	return b.TryPushMultiLineString(mls)
}

func (b *MultiLineStringBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

func (b *MultiLineStringBuilder) Finish() *MultiLineStringArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newMultiLineStringArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *MultiLineStringBuilder) NewArray() Array { return b.Finish() }
