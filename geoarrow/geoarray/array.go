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

// Package geoarray provides typed access to GeoArrow arrays and the
// builders that produce them.
//
// Every array wraps an arrow storage array and shares its reference
// counted buffers: Slice is a window over the same memory and Release
// must be called once per array obtained from a constructor, a Finish or
// a Slice.
package geoarray

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/twpayne/go-geom"
)

// Array is implemented by every geometry array.
type Array interface {
	Type() geoarrow.GeoArrowType
	Len() int
	NullN() int
	IsNull(i int) bool
	IsValid(i int) bool
	// Geometry returns element i as a go-geom geometry, or nil when the
	// element is null. Only serialized arrays can fail to decode.
	Geometry(i int) (geom.T, error)
	// Slice returns a new array over elements [offset, offset+length).
	Slice(offset, length int) Array
	// Storage returns the storage array. It is not retained.
	Storage() arrow.Array
	// ToArrow returns a new extension array over the storage.
	ToArrow() arrow.Array
	Retain()
	Release()
}

// base holds the storage shared by every array. Arrays are reference
// counted on their own so that views derived from the storage, such as a
// coordinate buffer, are released together with it.
type base struct {
	refCount atomic.Int64
	storage  arrow.Array
	release  func()
}

func (b *base) init(storage arrow.Array) {
	storage.Retain()
	b.storage = storage
	b.refCount.Store(1)
}

func (b *base) Len() int { return b.storage.Len() }
func (b *base) NullN() int { return b.storage.NullN() }
func (b *base) IsNull(i int) bool { return b.storage.IsNull(i) }
func (b *base) IsValid(i int) bool { return b.storage.IsValid(i) }
func (b *base) Storage() arrow.Array { return b.storage }
func (b *base) Retain() { b.refCount.Add(1) }

func (b *base) Release() {
	if b.refCount.Add(-1) == 0 {
		if b.release != nil {
			b.release()
		}
		b.storage.Release()
	}
}

func toArrow(typ geoarrow.GeoArrowType, storage arrow.Array) arrow.Array {
	return array.NewExtensionArrayWithStorage(typ, storage)
}

func sliceStorage(storage arrow.Array, offset, length int) arrow.Array {
	return array.NewSlice(storage, int64(offset), int64(offset+length))
}

// sliceWith wraps a slice of storage with wrap, which cannot fail for
// storage that it already accepted unsliced.
func sliceWith[T Array](storage arrow.Array, offset, length int, wrap func(arrow.Array) (T, error)) T {
	s := sliceStorage(storage, offset, length)
	defer s.Release()
	out, err := wrap(s)
	if err != nil {
		panic(err)
	}
	return out
}

// Builder is implemented by every geometry builder.
type Builder interface {
	Type() geoarrow.GeoArrowType
	Len() int
	// TryPushGeometry appends g, or a null when g is nil. A failed push
	// leaves the builder unchanged.
	TryPushGeometry(g geom.T) error
	PushNull()
	PushEmpty()
	// NewArray finishes the builder as an Array and resets it.
	NewArray() Array
	Release()
}

// FromStorage wraps a storage array as an array of typ. The storage is
// validated against typ's kind; its exact field names may differ from
// the canonical layout.
func FromStorage(typ geoarrow.GeoArrowType, storage arrow.Array) (Array, error) {
	if ext, ok := storage.(array.ExtensionArray); ok {
		storage = ext.Storage()
	}
	typ, err := geoarrow.FromExtension(typ.ExtensionName(), storage.DataType(), typ.Serialize())
	if err != nil {
		return nil, err
	}

	switch t := typ.(type) {
	case *geoarrow.NativeType:
		switch t.Kind() {
		case geoarrow.KindPoint:
			return newPointArray(t, storage)
		case geoarrow.KindLineString:
			return newLineStringArray(t, storage)
		case geoarrow.KindPolygon:
			return newPolygonArray(t, storage)
		case geoarrow.KindMultiPoint:
			return newMultiPointArray(t, storage)
		case geoarrow.KindMultiLineString:
			return newMultiLineStringArray(t, storage)
		case geoarrow.KindMultiPolygon:
			return newMultiPolygonArray(t, storage)
		case geoarrow.KindGeometryCollection:
			return newGeometryCollectionArray(t, storage)
		}
	case *geoarrow.GeometryType:
		return newGeometryArray(t, storage)
	case *geoarrow.BoxType:
		return newRectArray(t, storage)
	case *geoarrow.SerializedType:
		switch t.Kind() {
		case geoarrow.KindWKB, geoarrow.KindLargeWKB:
			return newWKBArray(t, storage)
		case geoarrow.KindWKT, geoarrow.KindLargeWKT:
			return newWKTArray(t, storage)
		}
	}
	return nil, fmt.Errorf("%w: %s", geoarrow.ErrUnknownExtension, typ)
}

// FromArrow wraps an extension array, or infers the type of a plain
// storage array.
func FromArrow(arr arrow.Array) (Array, error) {
	typ, err := geoarrow.FromDataType(arr.DataType())
	if err != nil {
		return nil, err
	}
	return FromStorage(typ, arr)
}

// FromField wraps arr using the GeoArrow type described by field, which
// may carry the extension as field metadata.
func FromField(field arrow.Field, arr arrow.Array) (Array, error) {
	typ, err := geoarrow.FromField(field)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field.Name, err)
	}
	return FromStorage(typ, arr)
}

// FromChunked wraps every chunk of a column. On error the chunks already
// wrapped are released.
func FromChunked(field arrow.Field, chunked *arrow.Chunked) ([]Array, error) {
	out := make([]Array, 0, len(chunked.Chunks()))
	for _, chunk := range chunked.Chunks() {
		arr, err := FromField(field, chunk)
		if err != nil {
			for _, a := range out {
				a.Release()
			}
			return nil, err
		}
		out = append(out, arr)
	}
	return out, nil
}

// Geometries returns every element of arr; nulls are nil.
func Geometries(arr Array) ([]geom.T, error) {
	out := make([]geom.T, arr.Len())
	for i := range out {
		g, err := arr.Geometry(i)
		if err != nil {
			return nil, geoarrow.AtRow(i, err)
		}
		out[i] = g
	}
	return out, nil
}

func isNil(g geom.T) bool {
	switch g := g.(type) {
	case nil:
		return true
	case *geom.Point:
		return g == nil
	case *geom.LineString:
		return g == nil
	case *geom.Polygon:
		return g == nil
	case *geom.MultiPoint:
		return g == nil
	case *geom.MultiLineString:
		return g == nil
	case *geom.MultiPolygon:
		return g == nil
	case *geom.GeometryCollection:
		return g == nil
	}
	return false
}

func unexpected(g geom.T, want string) error {
	return fmt.Errorf("%w: %T cannot be stored as %s", geoarrow.ErrUnexpectedGeometry, g, want)
}
