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

package coords

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

// Builder accumulates coordinates of a fixed dimension in either layout.
type Builder struct {
	dim  geoarrow.Dimension
	ct   geoarrow.CoordType
	n    int
	flat *bufferbuilder.Builder[float64]
	axes []*bufferbuilder.Builder[float64]
}

func NewBuilder(mem memory.Allocator, dim geoarrow.Dimension, ct geoarrow.CoordType) *Builder {
	b := &Builder{dim: dim, ct: ct}
	if ct == geoarrow.Interleaved {
		b.flat = bufferbuilder.New[float64](mem)
	} else {
		b.axes = make([]*bufferbuilder.Builder[float64], dim.Size())
		for i := range b.axes {
			b.axes[i] = bufferbuilder.New[float64](mem)
		}
	}
	return b
}

func (b *Builder) Len() int { return b.n }
func (b *Builder) Dim() geoarrow.Dimension { return b.dim }
func (b *Builder) CoordType() geoarrow.CoordType { return b.ct }

// Reserve ensures room for n more coordinates.
func (b *Builder) Reserve(n int) {
	if b.flat != nil {
		b.flat.Reserve(n * b.dim.Size())
		return
	}
	for _, a := range b.axes {
		a.Reserve(n)
	}
}

func (b *Builder) push(ord []float64) {
	if b.flat != nil {
		b.flat.AppendValues(ord...)
	} else {
		for axis, v := range ord {
			b.axes[axis].Append(v)
		}
	}
	b.n++
}

// TryPush appends one coordinate given in dimension dim.
func (b *Builder) TryPush(dim geoarrow.Dimension, ordinates ...float64) error {
	if dim != b.dim || len(ordinates) != b.dim.Size() {
		return fmt.Errorf("%w: cannot push %s coordinate of %d ordinates into %s buffer",
			geoarrow.ErrDimensionMismatch, dim, len(ordinates), b.dim)
	}
	b.push(ordinates)
	return nil
}

// Push is TryPush that panics on a dimension mismatch.
func (b *Builder) Push(dim geoarrow.Dimension, ordinates ...float64) {
	if err := b.TryPush(dim, ordinates...); err != nil {
		panic(err)
	}
}

// PushNaN appends a coordinate with every ordinate NaN.
func (b *Builder) PushNaN() {
	var nan [4]float64
	for i := range nan {
		nan[i] = math.NaN()
	}
	b.push(nan[:b.dim.Size()])
}

// TryPushFlat appends every coordinate of a go-geom flat coordinate
// slice laid out in layout.
func (b *Builder) TryPushFlat(layout geom.Layout, flat []float64) error {
	if d, ok := geoarrow.DimensionFromLayout(layout); !ok || d != b.dim {
		if len(flat) == 0 {
			return nil
		}
		return fmt.Errorf("%w: cannot push %s coordinates into %s buffer",
			geoarrow.ErrDimensionMismatch, layout, b.dim)
	}
	size := b.dim.Size()
	if len(flat)%size != 0 {
		return fmt.Errorf("%w: %d ordinates do not divide into %s coordinates",
			geoarrow.ErrLengthMismatch, len(flat), b.dim)
	}
	count := len(flat) / size
	if b.flat != nil {
		b.flat.AppendValues(flat...)
	} else {
		for axis, a := range b.axes {
			a.Reserve(count)
			for i := axis; i < len(flat); i += size {
				a.Append(flat[i])
			}
		}
	}
	b.n += count
	return nil
}

// TryPushCoord copies a coordinate of another buffer.
func (b *Builder) TryPushCoord(c Coord) error {
	if c.Dim() != b.dim {
		return fmt.Errorf("%w: cannot push %s coordinate into %s buffer",
			geoarrow.ErrDimensionMismatch, c.Dim(), b.dim)
	}
	var ord [4]float64
	b.push(c.AppendTo(ord[:0]))
	return nil
}

// AppendBuffer copies coordinates [start, end) of src, which must have
// the builder's dimension.
func (b *Builder) AppendBuffer(src *Buffer, start, end int) {
	if src.dim != b.dim {
		panic(fmt.Errorf("%w: cannot append %s buffer to %s builder", geoarrow.ErrDimensionMismatch, src.dim, b.dim))
	}
	switch {
	case b.flat != nil:
		b.flat.Reserve((end - start) * b.dim.Size())
		for i := start; i < end; i++ {
			for axis := 0; axis < b.dim.Size(); axis++ {
				b.flat.Append(src.At(i, axis))
			}
		}
	case src.ct == geoarrow.Separated:
		for axis, a := range b.axes {
			a.AppendValues(src.axes[axis][start:end]...)
		}
	default:
		for axis, a := range b.axes {
			a.Reserve(end - start)
			for i := start; i < end; i++ {
				a.Append(src.At(i, axis))
			}
		}
	}
	b.n += end - start
}

func float64Data(buf *memory.Buffer, n int) arrow.ArrayData {
	defer buf.Release()
	return array.NewData(arrow.PrimitiveTypes.Float64, n, []*memory.Buffer{nil, buf}, nil, 0, 0)
}

// FinishData returns the coordinate storage as array data with the
// given validity bitmap, which is retained rather than consumed, and
// resets the builder.
func (b *Builder) FinishData(validity *memory.Buffer, nulls int) arrow.ArrayData {
	n := b.n
	b.n = 0
	dt := geoarrow.CoordStorage(b.dim, b.ct)

	var children []arrow.ArrayData
	if b.flat != nil {
		children = []arrow.ArrayData{float64Data(b.flat.Finish(), n*b.dim.Size())}
	} else {
		children = make([]arrow.ArrayData, len(b.axes))
		for i, a := range b.axes {
			children[i] = float64Data(a.Finish(), n)
		}
	}
	defer func() {
		for _, c := range children {
			c.Release()
		}
	}()
	return array.NewData(dt, n, []*memory.Buffer{validity}, children, nulls, 0)
}

// Finish is FinishData wrapped in an array.
func (b *Builder) Finish(validity *memory.Buffer, nulls int) arrow.Array {
	data := b.FinishData(validity, nulls)
	defer data.Release()
	return array.MakeFromData(data)
}

// Release frees the memory of unfinished coordinates.
func (b *Builder) Release() {
	if b.flat != nil {
		b.flat.Release()
	}
	for _, a := range b.axes {
		a.Release()
	}
	b.n = 0
}
