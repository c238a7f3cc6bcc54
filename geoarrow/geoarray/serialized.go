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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/internal/wkbio"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

type binaryValues interface {
	arrow.Array
	Value(int) []byte
}

type stringValues interface {
	arrow.Array
	Value(int) string
}

// WKBArray is an array of geoarrow.wkb (or ogc.wkb) with 32 or 64 bit
// offsets.
type WKBArray struct {
	base
	typ    *geoarrow.SerializedType
	values binaryValues
}

func newWKBArray(typ *geoarrow.SerializedType, storage arrow.Array) (*WKBArray, error) {
	values, ok := storage.(binaryValues)
	if !ok {
		return nil, fmt.Errorf("%w: %s from %s", geoarrow.ErrInvalidStorage, typ, storage.DataType())
	}
	a := &WKBArray{typ: typ, values: values}
	a.base.init(storage)
	return a, nil
}

func (a *WKBArray) Type() geoarrow.GeoArrowType { return a.typ }
func (a *WKBArray) ToArrow() arrow.Array { return toArrow(a.typ, a.storage) }

// Value returns the encoded bytes of element i. They alias the array's
// memory.
func (a *WKBArray) Value(i int) []byte { return a.values.Value(i) }

// Geometry decodes element i.
func (a *WKBArray) Geometry(i int) (geom.T, error) {
	if a.IsNull(i) {
		return nil, nil
	}
	return wkbio.Unmarshal(a.values.Value(i))
}

func (a *WKBArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*WKBArray, error) {
		return newWKBArray(a.typ, s)
	})
}

// WKTArray is an array of geoarrow.wkt with 32 or 64 bit offsets.
type WKTArray struct {
	base
	typ    *geoarrow.SerializedType
	values stringValues
}

func newWKTArray(typ *geoarrow.SerializedType, storage arrow.Array) (*WKTArray, error) {
	values, ok := storage.(stringValues)
	if !ok {
		return nil, fmt.Errorf("%w: %s from %s", geoarrow.ErrInvalidStorage, typ, storage.DataType())
	}
	a := &WKTArray{typ: typ, values: values}
	a.base.init(storage)
	return a, nil
}

func (a *WKTArray) Type() geoarrow.GeoArrowType { return a.typ }
func (a *WKTArray) ToArrow() arrow.Array { return toArrow(a.typ, a.storage) }
func (a *WKTArray) Value(i int) string { return a.values.Value(i) }

func (a *WKTArray) Geometry(i int) (geom.T, error) {
	if a.IsNull(i) {
		return nil, nil
	}
	g, err := wkt.Unmarshal(a.values.Value(i))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", geoarrow.ErrInvalidWKT, err)
	}
	return g, nil
}

func (a *WKTArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*WKTArray, error) {
		return newWKTArray(a.typ, s)
	})
}

// WKBBuilder encodes geometries into a WKBArray.
type WKBBuilder struct {
	typ     *geoarrow.SerializedType
	builder *array.BinaryBuilder
	order   binary.ByteOrder
	scratch []byte
}

// NewWKBBuilder panics if typ is not a WKB type.
func NewWKBBuilder(mem memory.Allocator, typ *geoarrow.SerializedType, opts ...Option) *WKBBuilder {
	if typ.Kind() != geoarrow.KindWKB && typ.Kind() != geoarrow.KindLargeWKB {
		panic(fmt.Sprintf("geoarray: wkb builder created with %s type", typ.Kind()))
	}
	return &WKBBuilder{
		typ:     typ,
		builder: array.NewBinaryBuilder(mem, typ.StorageType().(arrow.BinaryDataType)),
		order:   newConfig(opts).byteOrder,
	}
}

func NewWKBBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.SerializedType, capacity WKBCapacity, opts ...Option) *WKBBuilder {
	b := NewWKBBuilder(mem, typ, opts...)
	b.Reserve(capacity)
	return b
}

func (b *WKBBuilder) Type() geoarrow.GeoArrowType { return b.typ }
func (b *WKBBuilder) Len() int { return b.builder.Len() }

func (b *WKBBuilder) Reserve(capacity WKBCapacity) {
	b.builder.Reserve(capacity.Geoms)
	b.builder.ReserveData(capacity.Bytes)
}

func (b *WKBBuilder) checkSize(n int) error {
	if !b.typ.IsLarge() && int64(b.builder.DataLen())+int64(n) > math.MaxInt32 {
		return fmt.Errorf("%w: %s builder holds %d bytes", geoarrow.ErrOffsetOverflow, b.typ.Kind(), b.builder.DataLen())
	}
	return nil
}

func (b *WKBBuilder) TryPushGeometry(g geom.T) error {
	if isNil(g) {
		b.PushNull()
		return nil
	}
	n, err := wkbio.Size(g)
	if err != nil {
		return err
	}
	if err := b.checkSize(n); err != nil {
		return err
	}
	b.scratch, err = wkbio.Append(b.scratch[:0], g, b.order)
	if err != nil {
		return err
	}
	b.builder.Append(b.scratch)
	return nil
}

func (b *WKBBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

// TryPushWKB appends already encoded bytes after checking that they
// decode.
func (b *WKBBuilder) TryPushWKB(data []byte) error {
	if data == nil {
		b.PushNull()
		return nil
	}
	if _, err := wkbio.Unmarshal(data); err != nil {
		return err
	}
	if err := b.checkSize(len(data)); err != nil {
		return err
	}
	b.builder.Append(data)
	return nil
}

func (b *WKBBuilder) PushNull() { b.builder.AppendNull() }

// PushEmpty appends an empty geometry collection.
func (b *WKBBuilder) PushEmpty() {
	if err := b.TryPushGeometry(geom.NewGeometryCollection()); err != nil {
		panic(err)
	}
}

func (b *WKBBuilder) Finish() *WKBArray {
	storage := b.builder.NewArray()
	defer storage.Release()
	a, err := newWKBArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *WKBBuilder) NewArray() Array { return b.Finish() }
func (b *WKBBuilder) Release() { b.builder.Release() }

type stringBuilder interface {
	array.Builder
	Append(string)
	ReserveData(int)
	DataLen() int
}

// WKTBuilder formats geometries into a WKTArray.
type WKTBuilder struct {
	typ     *geoarrow.SerializedType
	builder stringBuilder
}

// NewWKTBuilder panics if typ is not a WKT type.
func NewWKTBuilder(mem memory.Allocator, typ *geoarrow.SerializedType) *WKTBuilder {
	b := &WKTBuilder{typ: typ}
	switch typ.Kind() {
	case geoarrow.KindWKT:
		b.builder = array.NewStringBuilder(mem)
	case geoarrow.KindLargeWKT:
		b.builder = array.NewLargeStringBuilder(mem)
	default:
		panic(fmt.Sprintf("geoarray: wkt builder created with %s type", typ.Kind()))
	}
	return b
}

func (b *WKTBuilder) Type() geoarrow.GeoArrowType { return b.typ }
func (b *WKTBuilder) Len() int { return b.builder.Len() }

// Reserve grows the builder for n more elements of about bytes bytes in
// total.
func (b *WKTBuilder) Reserve(n, bytes int) {
	b.builder.Reserve(n)
	b.builder.ReserveData(bytes)
}

func (b *WKTBuilder) TryPushWKT(s string) error {
	if !b.typ.IsLarge() && int64(b.builder.DataLen())+int64(len(s)) > math.MaxInt32 {
		return fmt.Errorf("%w: %s builder holds %d bytes", geoarrow.ErrOffsetOverflow, b.typ.Kind(), b.builder.DataLen())
	}
	b.builder.Append(s)
	return nil
}

func (b *WKTBuilder) TryPushGeometry(g geom.T) error {
	if isNil(g) {
		b.PushNull()
		return nil
	}
	g, err := wkbio.WithCollectionLayout(g)
	if err != nil {
		return err
	}
	s, err := wkt.Marshal(g)
	if err != nil {
		return fmt.Errorf("%w: %w", geoarrow.ErrInvalidWKT, err)
	}
	return b.TryPushWKT(s)
}

func (b *WKTBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

func (b *WKTBuilder) PushNull() { b.builder.AppendNull() }

func (b *WKTBuilder) PushEmpty() {
	if err := b.TryPushWKT("GEOMETRYCOLLECTION EMPTY"); err != nil {
		panic(err)
	}
}

func (b *WKTBuilder) Finish() *WKTArray {
	storage := b.builder.NewArray()
	defer storage.Release()
	a, err := newWKTArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *WKTBuilder) NewArray() Array { return b.Finish() }
func (b *WKTBuilder) Release() { b.builder.Release() }
