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

package wkbio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/internal/utils"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkbcommon"
)

const headerSize = 1 + 4

func stride(g geom.T) int {
	if s := g.Layout().Stride(); s > 0 {
		return s
	}
	return 2
}

// CollectionLayout returns the layout of gc, or when it has none the
// layout of its first non-empty member.
func CollectionLayout(gc *geom.GeometryCollection) geom.Layout {
	if gc.Layout() != geom.NoLayout {
		return gc.Layout()
	}
	for _, member := range gc.Geoms() {
		if member.Empty() {
			continue
		}
		if inner, ok := member.(*geom.GeometryCollection); ok {
			return CollectionLayout(inner)
		}
		return member.Layout()
	}
	return geom.NoLayout
}

// WithCollectionLayout returns g unchanged unless it is a non-empty
// collection without a layout, which is copied with the layout of its
// members.
func WithCollectionLayout(g geom.T) (geom.T, error) {
	gc, ok := g.(*geom.GeometryCollection)
	if !ok || gc.Layout() != geom.NoLayout || gc.Empty() {
		return g, nil
	}
	out := geom.NewGeometryCollection()
	if err := out.Push(gc.Geoms()...); err != nil {
		return nil, err
	}
	if err := out.SetLayout(CollectionLayout(gc)); err != nil {
		return nil, fmt.Errorf("%w: %w", geoarrow.ErrDimensionMismatch, err)
	}
	return out, nil
}

// sizer accumulates a byte count and remembers whether it overflowed.
type sizer struct {
	n  int
	ok bool
}

func (z *sizer) add(n int) {
	if z.ok {
		z.n, z.ok = utils.Add(z.n, n)
	}
}

func (z *sizer) addMul(count, each int) {
	if !z.ok {
		return
	}
	n, ok := utils.Mul(count, each)
	if !ok {
		z.ok = false
		return
	}
	z.add(n)
}

// Size returns the exact number of bytes Append writes for g.
func Size(g geom.T) (int, error) {
	if g == nil {
		return 0, fmt.Errorf("%w: nil geometry", geoarrow.ErrUnexpectedGeometry)
	}
	s := stride(g)
	z := sizer{n: headerSize, ok: true}
	switch g := g.(type) {
	case *geom.Point:
		z.addMul(8, s)
	case *geom.LineString:
		z.add(4)
		z.addMul(8, len(g.FlatCoords()))
	case *geom.Polygon:
		z.add(4)
		z.addMul(4, len(g.Ends()))
		z.addMul(8, len(g.FlatCoords()))
	case *geom.MultiPoint:
		z.add(4)
		z.addMul(g.NumPoints(), headerSize+8*s)
	case *geom.MultiLineString:
		z.add(4)
		z.addMul(g.NumLineStrings(), headerSize+4)
		z.addMul(8, len(g.FlatCoords()))
	case *geom.MultiPolygon:
		z.add(4)
		z.addMul(g.NumPolygons(), headerSize+4)
		z.addMul(8, len(g.FlatCoords()))
		for _, ends := range g.Endss() {
			z.addMul(4, len(ends))
		}
	case *geom.GeometryCollection:
		z.add(4)
		for _, member := range g.Geoms() {
			n, err := Size(member)
			if err != nil {
				return 0, err
			}
			z.add(n)
		}
	default:
		return 0, fmt.Errorf("%w: %T", geoarrow.ErrUnexpectedGeometry, g)
	}
	if !z.ok {
		return 0, fmt.Errorf("%w: %T encodes to more than %d bytes", geoarrow.ErrOffsetOverflow, g, math.MaxInt)
	}
	return z.n, nil
}

// TypeCode returns the ISO WKB type code of a native kind in a layout.
func TypeCode(k geoarrow.Kind, l geom.Layout) uint32 {
	code := uint32(k)
	switch l {
	case geom.XYZ:
		code += 1000
	case geom.XYM:
		code += 2000
	case geom.XYZM:
		code += 3000
	}
	return code
}

type writer struct {
	dst   []byte
	order binary.AppendByteOrder
	id    byte
}

func (w *writer) header(k geoarrow.Kind, l geom.Layout) {
	w.dst = append(w.dst, w.id)
	w.dst = w.order.AppendUint32(w.dst, TypeCode(k, l))
}

func (w *writer) count(n int) { w.dst = w.order.AppendUint32(w.dst, uint32(n)) }

func (w *writer) coords(flat []float64) {
	for _, v := range flat {
		w.dst = w.order.AppendUint64(w.dst, math.Float64bits(v))
	}
}

func (w *writer) nan(n int) {
	for i := 0; i < n; i++ {
		w.dst = w.order.AppendUint64(w.dst, math.Float64bits(math.NaN()))
	}
}

func (w *writer) rings(flat []float64, offset int, ends []int, stride int) int {
	w.count(len(ends))
	for _, end := range ends {
		w.count((end - offset) / stride)
		w.coords(flat[offset:end])
		offset = end
	}
	return offset
}

func (w *writer) write(g geom.T) {
	l, s := g.Layout(), stride(g)
	switch g := g.(type) {
	case *geom.Point:
		w.header(geoarrow.KindPoint, l)
		if g.Empty() {
			w.nan(s)
		} else {
			w.coords(g.FlatCoords())
		}
	case *geom.LineString:
		w.header(geoarrow.KindLineString, l)
		w.count(g.NumCoords())
		w.coords(g.FlatCoords())
	case *geom.Polygon:
		w.header(geoarrow.KindPolygon, l)
		w.rings(g.FlatCoords(), 0, g.Ends(), s)
	case *geom.MultiPoint:
		w.header(geoarrow.KindMultiPoint, l)
		w.count(g.NumPoints())
		for i := 0; i < g.NumPoints(); i++ {
			w.write(g.Point(i))
		}
	case *geom.MultiLineString:
		w.header(geoarrow.KindMultiLineString, l)
		w.count(len(g.Ends()))
		flat, offset := g.FlatCoords(), 0
		for _, end := range g.Ends() {
			w.header(geoarrow.KindLineString, l)
			w.count((end - offset) / s)
			w.coords(flat[offset:end])
			offset = end
		}
	case *geom.MultiPolygon:
		w.header(geoarrow.KindMultiPolygon, l)
		w.count(len(g.Endss()))
		flat, offset := g.FlatCoords(), 0
		for _, ends := range g.Endss() {
			w.header(geoarrow.KindPolygon, l)
			offset = w.rings(flat, offset, ends, s)
		}
	case *geom.GeometryCollection:
		w.header(geoarrow.KindGeometryCollection, CollectionLayout(g))
		w.count(g.NumGeoms())
		for _, member := range g.Geoms() {
			w.write(member)
		}
	}
}

// Append encodes g onto dst in the given byte order. dst is grown once
// to the exact encoded size.
func Append(dst []byte, g geom.T, order binary.ByteOrder) ([]byte, error) {
	var id byte
	switch order {
	case binary.BigEndian:
		id = wkbcommon.XDRID
	case binary.LittleEndian:
		id = wkbcommon.NDRID
	default:
		return dst, wkbcommon.ErrUnsupportedByteOrder{}
	}
	n, err := Size(g)
	if err != nil {
		return dst, err
	}
	if cap(dst)-len(dst) < n {
		grown := make([]byte, len(dst), len(dst)+n)
		copy(grown, dst)
		dst = grown
	}
	w := writer{dst: dst, order: order.(binary.AppendByteOrder), id: id}
	w.write(g)
	return w.dst, nil
}

// Marshal encodes g into a new slice.
func Marshal(g geom.T, order binary.ByteOrder) ([]byte, error) {
	return Append(nil, g, order)
}
