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
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/twpayne/go-geom"
)

// union is the read side of a dense union of native children, shared by
// the Geometry array and the members of a GeometryCollection. Children
// are indexed by child id and are never windowed; the type ids and value
// offsets are.
type union struct {
	base
	arr      *array.DenseUnion
	children []Array
}

func (u *union) init(storage arrow.Array, meta geoarrow.Metadata) error {
	arr, ok := storage.(*array.DenseUnion)
	if !ok {
		return fmt.Errorf("%w: expected a dense union, got %s", geoarrow.ErrInvalidStorage, storage.DataType())
	}

	codes := arr.UnionType().TypeCodes()
	children := make([]Array, 0, len(codes))
	release := func() {
		for _, c := range children {
			c.Release()
		}
	}
	for i, code := range codes {
		k, d, ok := geoarrow.ParseTypeCode(code)
		if !ok {
			release()
			return fmt.Errorf("%w: union type id %d", geoarrow.ErrInvalidStorage, code)
		}
		child, err := FromStorage(geoarrow.NewNativeType(k, d, geoarrow.Separated, meta), arr.Field(i))
		if err != nil {
			release()
			return fmt.Errorf("union child %q: %w", geoarrow.UnionChildName(k, d), err)
		}
		children = append(children, child)
	}

	u.base.init(storage)
	u.arr = arr
	u.children = children
	u.release = release
	return nil
}

// IsNull reports whether element i is null in its child; a dense union
// has no validity of its own.
func (u *union) IsNull(i int) bool {
	return u.children[u.arr.ChildID(i)].IsNull(int(u.arr.ValueOffset(i)))
}

func (u *union) IsValid(i int) bool { return !u.IsNull(i) }

func (u *union) NullN() int {
	n := 0
	for i := 0; i < u.arr.Len(); i++ {
		if u.IsNull(i) {
			n++
		}
	}
	return n
}

// TypeID returns the kind and dimension of element i.
func (u *union) TypeID(i int) (geoarrow.Kind, geoarrow.Dimension) {
	k, d, _ := geoarrow.ParseTypeCode(u.arr.TypeCode(i))
	return k, d
}

// Child returns the child array holding kind k in dimension d, or nil
// when the union has no such child. It is not retained.
func (u *union) Child(k geoarrow.Kind, d geoarrow.Dimension) Array {
	code := geoarrow.TypeCode(k, d)
	for i, c := range u.arr.UnionType().TypeCodes() {
		if c == code {
			return u.children[i]
		}
	}
	return nil
}

func (u *union) Geometry(i int) (geom.T, error) {
	return u.children[u.arr.ChildID(i)].Geometry(int(u.arr.ValueOffset(i)))
}

// GeometryArray is an array of geoarrow.geometry: every element may be
// of any native kind and dimension.
type GeometryArray struct {
	union
	typ *geoarrow.GeometryType
}

func newGeometryArray(typ *geoarrow.GeometryType, storage arrow.Array) (*GeometryArray, error) {
	a := &GeometryArray{typ: typ}
	if err := a.init(storage, typ.Metadata()); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *GeometryArray) Type() geoarrow.GeoArrowType { return a.typ }
func (a *GeometryArray) ToArrow() arrow.Array { return toArrow(a.typ, a.storage) }

// Value returns element i, or nil when it is null.
func (a *GeometryArray) Value(i int) geom.T {
	g, err := a.Geometry(i)
	if err != nil {
		panic(err)
	}
	return g
}

func (a *GeometryArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*GeometryArray, error) {
		return newGeometryArray(a.typ, s)
	})
}
