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

// Package coords implements the coordinate buffer underlying every
// native GeoArrow array, in both the interleaved and the separated
// layout.
package coords

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/floats"
)

// Buffer is an immutable view of a coordinate storage array, either a
// FixedSizeList<Float64> or a Struct of Float64 children.
type Buffer struct {
	arr  arrow.Array
	dim  geoarrow.Dimension
	ct   geoarrow.CoordType
	n    int
	flat []float64
	axes [4][]float64
}

// NewBuffer wraps arr, retaining it until Release.
func NewBuffer(arr arrow.Array) (*Buffer, error) {
	dim, ct, err := geoarrow.ParseCoordStorage(arr.DataType())
	if err != nil {
		return nil, err
	}

	b := &Buffer{arr: arr, dim: dim, ct: ct, n: arr.Len()}
	size := dim.Size()
	switch a := arr.(type) {
	case *array.FixedSizeList:
		vals := a.ListValues().(*array.Float64).Float64Values()
		lo, hi := a.Offset()*size, (a.Offset()+b.n)*size
		if hi > len(vals) {
			return nil, fmt.Errorf("%w: %d coordinates need %d values, have %d",
				geoarrow.ErrLengthMismatch, b.n, hi-lo, len(vals)-lo)
		}
		b.flat = vals[lo:hi]
	case *array.Struct:
		for i := 0; i < size; i++ {
			b.axes[i] = a.Field(i).(*array.Float64).Float64Values()
			if len(b.axes[i]) != b.n {
				return nil, fmt.Errorf("%w: axis %d has %d values for %d coordinates",
					geoarrow.ErrLengthMismatch, i, len(b.axes[i]), b.n)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unexpected coordinate array %T", geoarrow.ErrInvalidStorage, arr)
	}
	arr.Retain()
	return b, nil
}

func (b *Buffer) Len() int { return b.n }
func (b *Buffer) Dim() geoarrow.Dimension { return b.dim }
func (b *Buffer) CoordType() geoarrow.CoordType { return b.ct }

// Array returns the storage array. It is not retained.
func (b *Buffer) Array() arrow.Array { return b.arr }

func (b *Buffer) Retain() { b.arr.Retain() }
func (b *Buffer) Release() { b.arr.Release() }

// At returns ordinate axis of coordinate i.
func (b *Buffer) At(i, axis int) float64 {
	if b.ct == geoarrow.Interleaved {
		return b.flat[i*b.dim.Size()+axis]
	}
	return b.axes[axis][i]
}

// Value returns a view of coordinate i.
func (b *Buffer) Value(i int) Coord { return Coord{buf: b, i: i} }

// AppendFlat appends the ordinates of coordinates [start, end) to dst in
// interleaved order.
func (b *Buffer) AppendFlat(dst []float64, start, end int) []float64 {
	if b.ct == geoarrow.Interleaved {
		size := b.dim.Size()
		return append(dst, b.flat[start*size:end*size]...)
	}
	size := b.dim.Size()
	for i := start; i < end; i++ {
		for axis := 0; axis < size; axis++ {
			dst = append(dst, b.axes[axis][i])
		}
	}
	return dst
}

// Slice returns a window of length coordinates starting at offset over
// the same storage.
func (b *Buffer) Slice(offset, length int) *Buffer {
	sl := array.NewSlice(b.arr, int64(offset), int64(offset+length))
	defer sl.Release()
	out, err := NewBuffer(sl)
	if err != nil {
		// a window of a valid buffer is valid
		panic(err)
	}
	return out
}

// IntoCoordType returns the buffer in the target layout, copying the
// ordinates when the layout changes. The result must be released.
func (b *Buffer) IntoCoordType(mem memory.Allocator, target geoarrow.CoordType) (*Buffer, error) {
	if target == b.ct {
		b.Retain()
		return b, nil
	}
	bldr := NewBuilder(mem, b.dim, target)
	defer bldr.Release()
	bldr.Reserve(b.n)
	bldr.AppendBuffer(b, 0, b.n)
	arr := bldr.Finish(nil, 0)
	defer arr.Release()
	return NewBuffer(arr)
}

// Bounds returns the per axis extent of the buffer. NaN ordinates, used
// for empty and null points, are ignored; an axis with no finite value
// keeps the empty +Inf/-Inf extent.
func (b *Buffer) Bounds() *geom.Bounds {
	size := b.dim.Size()
	lo, hi := make([]float64, size), make([]float64, size)
	scratch := make([]float64, 0, b.n)
	for axis := 0; axis < size; axis++ {
		scratch = scratch[:0]
		for i := 0; i < b.n; i++ {
			if v := b.At(i, axis); !math.IsNaN(v) {
				scratch = append(scratch, v)
			}
		}
		if len(scratch) == 0 {
			lo[axis], hi[axis] = math.Inf(1), math.Inf(-1)
			continue
		}
		lo[axis], hi[axis] = floats.Min(scratch), floats.Max(scratch)
	}
	return geom.NewBounds(b.dim.Layout()).Set(append(lo, hi...)...)
}

// Equal compares two buffers coordinate by coordinate, regardless of
// their layouts.
func (b *Buffer) Equal(other *Buffer) bool {
	if b.n != other.n || b.dim != other.dim {
		return false
	}
	for i := 0; i < b.n; i++ {
		if !b.Value(i).Equal(other.Value(i)) {
			return false
		}
	}
	return true
}

// Coord is a view of a single coordinate of a Buffer.
type Coord struct {
	buf *Buffer
	i   int
}

func (c Coord) Dim() geoarrow.Dimension { return c.buf.dim }
func (c Coord) X() float64 { return c.buf.At(c.i, 0) }
func (c Coord) Y() float64 { return c.buf.At(c.i, 1) }

// Nth returns the ordinate on axis n, in x, y, z, m order.
func (c Coord) Nth(n int) float64 { return c.buf.At(c.i, n) }

// Z returns the z ordinate, or NaN when the dimension has none.
func (c Coord) Z() float64 {
	if !c.buf.dim.HasZ() {
		return math.NaN()
	}
	return c.buf.At(c.i, 2)
}

// M returns the m ordinate, or NaN when the dimension has none.
func (c Coord) M() float64 {
	switch c.buf.dim {
	case geoarrow.XYM:
		return c.buf.At(c.i, 2)
	case geoarrow.XYZM:
		return c.buf.At(c.i, 3)
	}
	return math.NaN()
}

// AppendTo appends the ordinates to dst.
func (c Coord) AppendTo(dst []float64) []float64 {
	return c.buf.AppendFlat(dst, c.i, c.i+1)
}

// IsNaN reports whether every ordinate is NaN, the encoding of an empty
// point.
func (c Coord) IsNaN() bool {
	for axis := 0; axis < c.buf.dim.Size(); axis++ {
		if !math.IsNaN(c.buf.At(c.i, axis)) {
			return false
		}
	}
	return true
}

// Equal compares dimension and ordinates; NaN equals NaN.
func (c Coord) Equal(other Coord) bool {
	if c.buf.dim != other.buf.dim {
		return false
	}
	var a, b [4]float64
	return floats.Same(c.AppendTo(a[:0]), other.AppendTo(b[:0]))
}
