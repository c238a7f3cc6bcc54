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

// RectArray is an array of geoarrow.box. Each element is an axis
// aligned bounding box; null and empty boxes store NaN bounds.
type RectArray struct {
	base
	typ    *geoarrow.BoxType
	values [8][]float64
}

func newRectArray(typ *geoarrow.BoxType, storage arrow.Array) (*RectArray, error) {
	st, ok := storage.(*array.Struct)
	if !ok || st.NumField() != 2*typ.Dim().Size() {
		return nil, fmt.Errorf("%w: %s box from %s", geoarrow.ErrInvalidStorage, typ.Dim(), storage.DataType())
	}
	a := &RectArray{typ: typ}
	for j := 0; j < st.NumField(); j++ {
		f, ok := st.Field(j).(*array.Float64)
		if !ok || f.Len() != st.Len() {
			return nil, fmt.Errorf("%w: box field %d", geoarrow.ErrInvalidStorage, j)
		}
		a.values[j] = f.Float64Values()
	}
	a.base.init(storage)
	return a, nil
}

func (a *RectArray) Type() geoarrow.GeoArrowType { return a.typ }
func (a *RectArray) ToArrow() arrow.Array { return toArrow(a.typ, a.storage) }

// Min returns the lower bound of element i on axis.
func (a *RectArray) Min(i, axis int) float64 { return a.values[axis][i] }

// Max returns the upper bound of element i on axis.
func (a *RectArray) Max(i, axis int) float64 { return a.values[a.typ.Dim().Size()+axis][i] }

func (a *RectArray) isEmpty(i int) bool {
	for axis := 0; axis < a.typ.Dim().Size(); axis++ {
		if !math.IsNaN(a.Min(i, axis)) || !math.IsNaN(a.Max(i, axis)) {
			return false
		}
	}
	return true
}

// Value returns box i, nil when it is null and an empty bounds when it
// is all NaN.
func (a *RectArray) Value(i int) *geom.Bounds {
	layout := a.typ.Dim().Layout()
	if a.IsNull(i) {
		return nil
	}
	if a.isEmpty(i) {
		return geom.NewBounds(layout)
	}
	size := a.typ.Dim().Size()
	args := make([]float64, 2*size)
	for axis := 0; axis < size; axis++ {
		args[axis] = a.Min(i, axis)
		args[size+axis] = a.Max(i, axis)
	}
	return geom.NewBounds(layout).Set(args...)
}

// Geometry returns the footprint of box i as a polygon; z and m are
// taken from the lower corner.
func (a *RectArray) Geometry(i int) (geom.T, error) {
	if a.IsNull(i) {
		return nil, nil
	}
	layout := a.typ.Dim().Layout()
	if a.isEmpty(i) {
		return geom.NewPolygon(layout), nil
	}
	size := a.typ.Dim().Size()
	xmin, ymin, xmax, ymax := a.Min(i, 0), a.Min(i, 1), a.Max(i, 0), a.Max(i, 1)
	corners := [5][2]float64{{xmin, ymin}, {xmax, ymin}, {xmax, ymax}, {xmin, ymax}, {xmin, ymin}}
	flat := make([]float64, 0, 5*size)
	for _, c := range corners {
		flat = append(flat, c[0], c[1])
		for axis := 2; axis < size; axis++ {
			flat = append(flat, a.Min(i, axis))
		}
	}
	return geom.NewPolygonFlat(layout, flat, []int{len(flat)}), nil
}

func (a *RectArray) Slice(offset, length int) Array {
	return sliceWith(a.storage, offset, length, func(s arrow.Array) (*RectArray, error) {
		return newRectArray(a.typ, s)
	})
}

// RectBuilder builds a RectArray from bounds, or from the bounds of
// arbitrary geometries.
type RectBuilder struct {
	typ      *geoarrow.BoxType
	values   []*bufferbuilder.Builder[float64]
	validity *bufferbuilder.Validity
}

func NewRectBuilder(mem memory.Allocator, typ *geoarrow.BoxType) *RectBuilder {
	typ = geoarrow.NewBoxType(typ.Dim(), typ.Metadata())
	b := &RectBuilder{
		typ:      typ,
		values:   make([]*bufferbuilder.Builder[float64], 2*typ.Dim().Size()),
		validity: bufferbuilder.NewValidity(mem),
	}
	for j := range b.values {
		b.values[j] = bufferbuilder.New[float64](mem)
	}
	return b
}

func NewRectBuilderWithCapacity(mem memory.Allocator, typ *geoarrow.BoxType, capacity RectCapacity) *RectBuilder {
	b := NewRectBuilder(mem, typ)
	b.Reserve(capacity)
	return b
}

func (b *RectBuilder) Type() geoarrow.GeoArrowType { return b.typ }
func (b *RectBuilder) Len() int { return b.validity.Len() }

func (b *RectBuilder) Reserve(capacity RectCapacity) {
	b.validity.Reserve(capacity.Geoms)
	for _, v := range b.values {
		v.Reserve(capacity.Geoms)
	}
}

func (b *RectBuilder) pushNaN(valid bool) {
	for _, v := range b.values {
		v.Append(math.NaN())
	}
	b.validity.Append(valid)
}

// TryPushRect appends bounds, or a null when bounds is nil.
func (b *RectBuilder) TryPushRect(bounds *geom.Bounds) error {
	if bounds == nil {
		b.PushNull()
		return nil
	}
	if bounds.IsEmpty() {
		b.PushEmpty()
		return nil
	}
	if d, ok := geoarrow.DimensionFromLayout(bounds.Layout()); !ok || d != b.typ.Dim() {
		return fmt.Errorf("%w: %s bounds pushed into a %s box builder",
			geoarrow.ErrDimensionMismatch, bounds.Layout(), b.typ.Dim())
	}
	size := b.typ.Dim().Size()
	for axis := 0; axis < size; axis++ {
		b.values[axis].Append(bounds.Min(axis))
		b.values[size+axis].Append(bounds.Max(axis))
	}
	b.validity.Append(true)
	return nil
}

func (b *RectBuilder) PushRect(bounds *geom.Bounds) {
	if err := b.TryPushRect(bounds); err != nil {
		panic(err)
	}
}

// TryPushGeometry appends the bounds of g. NaN ordinates are ignored.
func (b *RectBuilder) TryPushGeometry(g geom.T) error {
	if isNil(g) {
		b.PushNull()
		return nil
	}
	if g.Empty() {
		b.PushEmpty()
		return nil
	}
	d, err := dimensionOf(g)
	if err != nil {
		return err
	}
	if d != b.typ.Dim() {
		return fmt.Errorf("%w: %s geometry pushed into a %s box builder",
			geoarrow.ErrDimensionMismatch, d, b.typ.Dim())
	}

	size := d.Size()
	var lo, hi [4]float64
	for axis := 0; axis < size; axis++ {
		lo[axis], hi[axis] = math.Inf(1), math.Inf(-1)
	}
	if err := extendBounds(&lo, &hi, size, g); err != nil {
		return err
	}
	if math.IsInf(lo[0], 1) {
		b.PushEmpty()
		return nil
	}
	for axis := 0; axis < size; axis++ {
		b.values[axis].Append(lo[axis])
		b.values[size+axis].Append(hi[axis])
	}
	b.validity.Append(true)
	return nil
}

func extendBounds(lo, hi *[4]float64, size int, g geom.T) error {
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for _, member := range gc.Geoms() {
			if isNil(member) || member.Empty() {
				continue
			}
			if member.Stride() != size {
				return fmt.Errorf("%w: %s member in a %d dimensional collection",
					geoarrow.ErrDimensionMismatch, member.Layout(), size)
			}
			if err := extendBounds(lo, hi, size, member); err != nil {
				return err
			}
		}
		return nil
	}
	flat := g.FlatCoords()
	for i := 0; i+size <= len(flat); i += size {
		for axis := 0; axis < size; axis++ {
			v := flat[i+axis]
			if math.IsNaN(v) {
				continue
			}
			lo[axis] = math.Min(lo[axis], v)
			hi[axis] = math.Max(hi[axis], v)
		}
	}
	return nil
}

func (b *RectBuilder) PushGeometry(g geom.T) {
	if err := b.TryPushGeometry(g); err != nil {
		panic(err)
	}
}

func (b *RectBuilder) PushNull() { b.pushNaN(false) }
func (b *RectBuilder) PushEmpty() { b.pushNaN(true) }

func (b *RectBuilder) finishStorage() arrow.Array {
	n := b.validity.Len()
	validity, nulls := b.validity.Finish()
	children := make([]arrow.ArrayData, len(b.values))
	for j, v := range b.values {
		buf := v.Finish()
		children[j] = array.NewData(arrow.PrimitiveTypes.Float64, n, []*memory.Buffer{nil, buf}, nil, 0, 0)
		releaseBuffers(buf)
	}
	data := array.NewData(b.typ.StorageType(), n, []*memory.Buffer{validity}, children, nulls, 0)
	for _, c := range children {
		c.Release()
	}
	releaseBuffers(validity)
	defer data.Release()
	return array.MakeFromData(data)
}

func (b *RectBuilder) Finish() *RectArray {
	storage := b.finishStorage()
	defer storage.Release()
	a, err := newRectArray(b.typ, storage)
	if err != nil {
		panic(err)
	}
	return a
}

func (b *RectBuilder) NewArray() Array { return b.Finish() }

func (b *RectBuilder) Release() {
	b.validity.Release()
	for _, v := range b.values {
		v.Release()
	}
}
