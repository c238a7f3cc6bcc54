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
	"github.com/geoarrow/geoarrow-go/geoarrow/coords"
	"github.com/geoarrow/geoarrow-go/internal/bufferbuilder"
	"github.com/twpayne/go-geom"
)

// nested is the read side shared by the six native shapes. A shape of
// depth d is d levels of List over a coordinate buffer. Every level of
// offsets is windowed to its list's slice, so offsets[0][i] belongs to
// element i of the array.
type nested struct {
	base
	typ     *geoarrow.NativeType
	offsets [3][]int32
	coords  *coords.Buffer
}

// listOffsets returns the Len()+1 offsets of l. List.Offsets exposes the
// whole buffer regardless of the slice offset.
func listOffsets(l *array.List) []int32 {
	if l.Len() == 0 {
		return []int32{0}
	}
	off := l.Data().Offset()
	return l.Offsets()[off : off+l.Len()+1]
}

func (n *nested) init(typ *geoarrow.NativeType, storage arrow.Array) error {
	values := storage
	for level := 0; level < typ.Kind().Depth(); level++ {
		list, ok := values.(*array.List)
		if !ok {
			return fmt.Errorf("%w: %s expects a list at depth %d, got %s",
				geoarrow.ErrInvalidStorage, typ.Kind(), level, values.DataType())
		}
		offs := listOffsets(list)
		values = list.ListValues()
		if offs[0] < 0 || int(offs[len(offs)-1]) > values.Len() {
			return fmt.Errorf("%w: %s offsets at depth %d end at %d, child has %d values",
				geoarrow.ErrLengthMismatch, typ.Kind(), level, offs[len(offs)-1], values.Len())
		}
		n.offsets[level] = offs
	}

	buf, err := coords.NewBuffer(values)
	if err != nil {
		return err
	}
	if buf.Dim() != typ.Dim() {
		buf.Release()
		return fmt.Errorf("%w: %s coordinates in a %s array", geoarrow.ErrDimensionMismatch, buf.Dim(), typ.Dim())
	}
	n.base.init(storage)
	n.typ = typ
	n.coords = buf
	n.release = buf.Release
	return nil
}

func (n *nested) Type() geoarrow.GeoArrowType { return n.typ }
func (n *nested) ToArrow() arrow.Array { return toArrow(n.typ, n.storage) }

// Coords returns the coordinate buffer of the innermost level. It is
// not retained and is not windowed by Slice.
func (n *nested) Coords() *coords.Buffer { return n.coords }

// GeomOffsets returns the Len()+1 outermost offsets of the array. After
// a Slice they still point into the parent's child values, so the first
// entry need not be zero. Points have none.
func (n *nested) GeomOffsets() []int32 { return n.offsets[0] }

func (n *nested) layout() geom.Layout { return n.typ.Dim().Layout() }

// span returns the range of level+1 entries (or coordinates, at the
// innermost level) covered by entries [lo, hi) of level.
func (n *nested) span(level, lo, hi int) (int, int) {
	return int(n.offsets[level][lo]), int(n.offsets[level][hi])
}

// ends converts the entries [lo, hi) of level, whose offsets point into
// coordinates, into go-geom flat ends relative to the coordinate start.
func (n *nested) ends(level, lo, hi, start int) []int {
	if lo == hi {
		return nil
	}
	stride := n.typ.Dim().Size()
	ends := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		ends = append(ends, (int(n.offsets[level][i+1])-start)*stride)
	}
	return ends
}

func (n *nested) point(i int) *geom.Point {
	c := n.coords.Value(i)
	if c.IsNaN() {
		return geom.NewPointEmpty(n.layout())
	}
	return geom.NewPointFlat(n.layout(), c.AppendTo(nil))
}

func (n *nested) lineString(i int) *geom.LineString {
	start, end := n.span(0, i, i+1)
	return geom.NewLineStringFlat(n.layout(), n.coords.AppendFlat(nil, start, end))
}

func (n *nested) polygon(i int) *geom.Polygon {
	lo, hi := n.span(0, i, i+1)
	start, end := n.span(1, lo, hi)
	return geom.NewPolygonFlat(n.layout(), n.coords.AppendFlat(nil, start, end), n.ends(1, lo, hi, start))
}

func (n *nested) multiPoint(i int) *geom.MultiPoint {
	start, end := n.span(0, i, i+1)
	return geom.NewMultiPointFlat(n.layout(), n.coords.AppendFlat(nil, start, end))
}

func (n *nested) multiLineString(i int) *geom.MultiLineString {
	lo, hi := n.span(0, i, i+1)
	start, end := n.span(1, lo, hi)
	return geom.NewMultiLineStringFlat(n.layout(), n.coords.AppendFlat(nil, start, end), n.ends(1, lo, hi, start))
}

func (n *nested) multiPolygon(i int) *geom.MultiPolygon {
	plo, phi := n.span(0, i, i+1)
	rlo, rhi := n.span(1, plo, phi)
	start, end := n.span(2, rlo, rhi)
	var endss [][]int
	if phi > plo {
		endss = make([][]int, 0, phi-plo)
		for p := plo; p < phi; p++ {
			lo, hi := n.span(1, p, p+1)
			endss = append(endss, n.ends(2, lo, hi, start))
		}
	}
	return geom.NewMultiPolygonFlat(n.layout(), n.coords.AppendFlat(nil, start, end), endss)
}

// value returns element i as the shape of the array.
func (n *nested) value(i int) geom.T {
	switch n.typ.Kind() {
	case geoarrow.KindPoint:
		return n.point(i)
	case geoarrow.KindLineString:
		return n.lineString(i)
	case geoarrow.KindPolygon:
		return n.polygon(i)
	case geoarrow.KindMultiPoint:
		return n.multiPoint(i)
	case geoarrow.KindMultiLineString:
		return n.multiLineString(i)
	case geoarrow.KindMultiPolygon:
		return n.multiPolygon(i)
	}
	panic("geoarray: not a nested kind: " + n.typ.Kind().String())
}

func (n *nested) Geometry(i int) (geom.T, error) {
	if n.IsNull(i) {
		return nil, nil
	}
	return n.value(i), nil
}

// nestedBuilder is the write side of nested. Every level keeps its
// offsets with the leading zero already appended.
type nestedBuilder struct {
	mem      memory.Allocator
	typ      *geoarrow.NativeType
	types    [4]arrow.DataType
	offsets  [3]*bufferbuilder.Builder[int32]
	validity *bufferbuilder.Validity
	coords   *coords.Builder
}

func (b *nestedBuilder) init(mem memory.Allocator, typ *geoarrow.NativeType) {
	typ = geoarrow.NewNativeType(typ.Kind(), typ.Dim(), typ.CoordType(), typ.Metadata())
	b.mem = mem
	b.typ = typ
	b.validity = bufferbuilder.NewValidity(mem)
	b.coords = coords.NewBuilder(mem, typ.Dim(), typ.CoordType())

	dt := typ.StorageType()
	for level := 0; level < typ.Kind().Depth(); level++ {
		b.types[level] = dt
		b.offsets[level] = bufferbuilder.New[int32](mem)
		b.offsets[level].Append(0)
		dt = dt.(*arrow.ListType).Elem()
	}
}

func (b *nestedBuilder) depth() int { return b.typ.Kind().Depth() }

func (b *nestedBuilder) Type() geoarrow.GeoArrowType { return b.typ }

// Len is the number of elements pushed so far.
func (b *nestedBuilder) Len() int { return b.validity.Len() }

// reserve grows the buffers for the given number of additional
// elements per level, outermost first, followed by coordinates.
func (b *nestedBuilder) reserve(geoms int, counts ...int) {
	b.validity.Reserve(geoms)
	if b.depth() == 0 {
		b.coords.Reserve(geoms)
		return
	}
	b.offsets[0].Reserve(geoms)
	for level := 1; level < b.depth(); level++ {
		b.offsets[level].Reserve(counts[level-1])
	}
	b.coords.Reserve(counts[len(counts)-1])
}

func (b *nestedBuilder) checkLayout(g geom.T) error {
	if g.Empty() {
		return nil
	}
	if d, ok := geoarrow.DimensionFromLayout(g.Layout()); !ok || d != b.typ.Dim() {
		return fmt.Errorf("%w: %s geometry pushed into a %s %s builder",
			geoarrow.ErrDimensionMismatch, g.Layout(), b.typ.Dim(), b.typ.Kind())
	}
	return nil
}

// checkGrowth fails with ErrOffsetOverflow when adding the given number
// of entries per level would not fit in int32 offsets. counts follows
// reserve: inner levels, then coordinates.
func (b *nestedBuilder) checkGrowth(counts ...int) error {
	for i, c := range counts {
		have := b.coords.Len()
		if level := i + 1; level < b.depth() {
			have = b.offsets[level].Len() - 1
		}
		if int64(have)+int64(c) > math.MaxInt32 {
			return fmt.Errorf("%w: %s builder", geoarrow.ErrOffsetOverflow, b.typ.Kind())
		}
	}
	return nil
}

func (b *nestedBuilder) closeGeom(valid bool) {
	switch b.depth() {
	case 0:
	case 1:
		b.offsets[0].Append(int32(b.coords.Len()))
	default:
		b.offsets[0].Append(int32(b.offsets[1].Len() - 1))
	}
	b.validity.Append(valid)
}

// PushNull appends a null element: NaN coordinates for a point, a
// zero-length run otherwise.
func (b *nestedBuilder) PushNull() {
	if b.depth() == 0 {
		b.coords.PushNaN()
	}
	b.closeGeom(false)
}

func (b *nestedBuilder) pushNulls(n int) {
	switch b.depth() {
	case 0:
		for i := 0; i < n; i++ {
			b.coords.PushNaN()
		}
	default:
		b.offsets[0].AppendRepeat(b.offsets[0].Last(), n)
	}
	b.validity.AppendN(n, false)
}

// PushEmpty appends a valid empty element.
func (b *nestedBuilder) PushEmpty() {
	if b.depth() == 0 {
		b.coords.PushNaN()
	}
	b.closeGeom(true)
}

func stride(layout geom.Layout, d geoarrow.Dimension) int {
	if s := layout.Stride(); s > 0 {
		return s
	}
	return d.Size()
}

// pushPoint appends a point element or, inside a MultiPoint, a member.
func (b *nestedBuilder) pushPointCoords(p *geom.Point) error {
	if p.Empty() {
		b.coords.PushNaN()
		return nil
	}
	return b.coords.TryPushFlat(p.Layout(), p.FlatCoords())
}

// pushRuns appends coordinates together with one level of ends.
func (b *nestedBuilder) pushRuns(level int, layout geom.Layout, flat []float64, ends []int) error {
	start := b.coords.Len()
	if err := b.coords.TryPushFlat(layout, flat); err != nil {
		return err
	}
	s := stride(layout, b.typ.Dim())
	for _, e := range ends {
		b.offsets[level].Append(int32(start + e/s))
	}
	return nil
}

func (b *nestedBuilder) pushPoint(p *geom.Point) error {
	if err := b.checkLayout(p); err != nil {
		return err
	}
	if err := b.pushPointCoords(p); err != nil {
		return err
	}
	b.closeGeom(true)
	return nil
}

func (b *nestedBuilder) pushLineString(layout geom.Layout, flat []float64) error {
	s := stride(layout, b.typ.Dim())
	if err := b.checkGrowth(len(flat) / s); err != nil {
		return err
	}
	if err := b.coords.TryPushFlat(layout, flat); err != nil {
		return err
	}
	b.closeGeom(true)
	return nil
}

func (b *nestedBuilder) pushMultiPoint(mp *geom.MultiPoint) error {
	if err := b.checkLayout(mp); err != nil {
		return err
	}
	if err := b.checkGrowth(mp.NumPoints()); err != nil {
		return err
	}
	b.coords.Reserve(mp.NumPoints())
	for i := 0; i < mp.NumPoints(); i++ {
		// layout was checked up front, so only an empty point can differ
		if err := b.pushPointCoords(mp.Point(i)); err != nil {
			return err
		}
	}
	b.closeGeom(true)
	return nil
}

// pushRings appends a two level shape: Polygon rings or MultiLineString
// parts.
func (b *nestedBuilder) pushRings(layout geom.Layout, flat []float64, ends []int) error {
	s := stride(layout, b.typ.Dim())
	if err := b.checkGrowth(len(ends), len(flat)/s); err != nil {
		return err
	}
	if err := b.pushRuns(1, layout, flat, ends); err != nil {
		return err
	}
	b.closeGeom(true)
	return nil
}

func (b *nestedBuilder) pushMultiPolygon(mp *geom.MultiPolygon) error {
	if err := b.checkLayout(mp); err != nil {
		return err
	}
	endss := mp.Endss()
	rings := 0
	for _, ends := range endss {
		rings += len(ends)
	}
	s := stride(mp.Layout(), b.typ.Dim())
	if err := b.checkGrowth(len(endss), rings, len(mp.FlatCoords())/s); err != nil {
		return err
	}

	start := b.coords.Len()
	if err := b.coords.TryPushFlat(mp.Layout(), mp.FlatCoords()); err != nil {
		return err
	}
	for _, ends := range endss {
		for _, e := range ends {
			b.offsets[2].Append(int32(start + e/s))
		}
		b.offsets[1].Append(int32(b.offsets[2].Len() - 1))
	}
	b.closeGeom(true)
	return nil
}

// finishData moves the buffers into array data and resets the builder.
func (b *nestedBuilder) finishData() arrow.ArrayData {
	validity, nulls := b.validity.Finish()
	if validity != nil {
		defer validity.Release()
	}

	if b.depth() == 0 {
		return b.coords.FinishData(validity, nulls)
	}

	child := b.coords.FinishData(nil, 0)
	for level := b.depth() - 1; level >= 0; level-- {
		n := b.offsets[level].Len() - 1
		offsets := b.offsets[level].Finish()
		b.offsets[level].Append(0)

		buffers := []*memory.Buffer{nil, offsets}
		nn := 0
		if level == 0 {
			buffers[0], nn = validity, nulls
		}
		data := array.NewData(b.types[level], n, buffers, []arrow.ArrayData{child}, nn, 0)
		child.Release()
		offsets.Release()
		child = data
	}
	return child
}

func (b *nestedBuilder) finishStorage() arrow.Array {
	data := b.finishData()
	defer data.Release()
	return array.MakeFromData(data)
}

func (b *nestedBuilder) Release() {
	b.validity.Release()
	b.coords.Release()
	for _, o := range b.offsets {
		if o != nil {
			o.Release()
		}
	}
}
