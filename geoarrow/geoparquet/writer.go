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

package geoparquet

import (
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/cast"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/geoarrow/geoarrow-go/geoarrow/wkb"
	"github.com/geoarrow/geoarrow-go/internal/json"
	"github.com/twpayne/go-geom"
)

// Encoding selects how geometry columns are stored.
type Encoding int

const (
	// WKB stores every geometry column as WKB binary.
	WKB Encoding = iota
	// Native stores point to multipolygon columns as GeoArrow separated
	// coordinate structs and falls back to WKB for other types.
	Native
)

type config struct {
	mem         memory.Allocator
	encoding    Encoding
	compression compress.Compression
	primary     string
	rowGroupLen int64
}

type Option func(*config)

func WithAllocator(mem memory.Allocator) Option {
	return func(c *config) { c.mem = mem }
}

func WithEncoding(e Encoding) Option {
	return func(c *config) { c.encoding = e }
}

// WithCompression sets the codec of every column. The default is Snappy.
func WithCompression(codec compress.Compression) Option {
	return func(c *config) { c.compression = codec }
}

// WithPrimaryColumn names the primary geometry column. By default it is
// the first geometry column of the schema.
func WithPrimaryColumn(name string) Option {
	return func(c *config) { c.primary = name }
}

func WithMaxRowGroupLength(n int64) Option {
	return func(c *config) { c.rowGroupLen = n }
}

type column struct {
	idx    int
	typ    geoarrow.GeoArrowType
	target geoarrow.GeoArrowType
	meta   *ColumnMetadata
	kinds  map[geoarray.GeometryKind]struct{}
	bounds *geom.Bounds
}

// Writer writes record batches whose GeoArrow columns are stored in a
// GeoParquet compatible encoding. The "geo" metadata, including each
// column's bounding box and geometry types, is written on Close.
type Writer struct {
	cfg     config
	fw      *pqarrow.FileWriter
	schema  *arrow.Schema
	out     *arrow.Schema
	geo     *Metadata
	columns []*column
}

// NewWriter starts a file for batches of schema. Every GeoArrow field of
// schema is a geometry column.
func NewWriter(w io.Writer, schema *arrow.Schema, opts ...Option) (*Writer, error) {
	cfg := config{
		mem:         memory.DefaultAllocator,
		compression: compress.Codecs.Snappy,
	}
	for _, o := range opts {
		o(&cfg)
	}

	primary, err := geoarrow.GeometryColumn(schema, cfg.primary)
	if err != nil {
		return nil, err
	}
	wr := &Writer{
		cfg:    cfg,
		schema: schema,
		geo: &Metadata{
			Version:       Version,
			PrimaryColumn: schema.Field(primary).Name,
			Columns:       make(map[string]*ColumnMetadata),
		},
	}

	fields := make([]arrow.Field, schema.NumFields())
	copy(fields, schema.Fields())
	for i, f := range schema.Fields() {
		if !geoarrow.IsGeoArrowField(f) {
			continue
		}
		typ, err := geoarrow.FromField(f)
		if err != nil {
			return nil, fmt.Errorf("geoparquet: column %q: %w", f.Name, err)
		}
		col := wr.plan(i, typ)
		wr.columns = append(wr.columns, col)
		wr.geo.Columns[f.Name] = col.meta
		fields[i] = arrow.Field{Name: f.Name, Type: col.target.StorageType(), Nullable: true}
	}
	wr.out = arrow.NewSchema(fields, nil)

	props := []parquet.WriterProperty{
		parquet.WithAllocator(cfg.mem),
		parquet.WithCompression(cfg.compression),
		parquet.WithStats(true),
	}
	if cfg.rowGroupLen > 0 {
		props = append(props, parquet.WithMaxRowGroupLength(cfg.rowGroupLen))
	}
	wr.fw, err = pqarrow.NewFileWriter(wr.out, w, parquet.NewWriterProperties(props...),
		pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(cfg.mem)))
	if err != nil {
		return nil, err
	}
	return wr, nil
}

// plan picks the stored type of a geometry column.
func (w *Writer) plan(idx int, typ geoarrow.GeoArrowType) *column {
	meta := typ.Metadata()
	col := &column{
		idx:    idx,
		typ:    typ,
		target: geoarrow.NewWKBType(meta),
		meta:   &ColumnMetadata{Encoding: EncodingWKB, CRS: meta.CRS, Edges: meta.Edges},
		kinds:  make(map[geoarray.GeometryKind]struct{}),
		bounds: geom.NewBounds(geom.XY),
	}
	if w.cfg.encoding == Native {
		if enc, ok := nativeEncoding(typ.Kind()); ok {
			col.target = typ.WithCoordType(geoarrow.Separated)
			col.meta.Encoding = enc
		}
	}
	return col
}

func (c *column) observe(arr geoarray.Array) error {
	kinds, err := geoarray.InferType(arr)
	if err != nil {
		return err
	}
	for _, k := range kinds {
		c.kinds[k] = struct{}{}
	}
	for i := 0; i < arr.Len(); i++ {
		g, err := arr.Geometry(i)
		if err != nil {
			return geoarrow.AtRow(i, err)
		}
		if g == nil || g.Empty() {
			continue
		}
		flat, stride := g.FlatCoords(), g.Stride()
		for j := 0; j+1 < len(flat); j += stride {
			if math.IsNaN(flat[j]) || math.IsNaN(flat[j+1]) {
				continue
			}
			c.bounds.Extend(geom.NewPointFlat(geom.XY, flat[j:j+2]))
		}
	}
	return nil
}

func (c *column) encode(mem memory.Allocator, arr geoarray.Array) (arrow.Array, error) {
	var out geoarray.Array
	var err error
	if c.target.Kind() == geoarrow.KindWKB {
		out, err = wkb.Encode(mem, arr)
	} else {
		out, err = cast.Cast(mem, arr, c.target)
	}
	if err != nil {
		return nil, err
	}
	defer out.Release()

	storage := out.Storage()
	storage.Retain()
	return storage, nil
}

// Write converts the geometry columns of rec and writes it.
func (w *Writer) Write(rec arrow.RecordBatch) error {
	if !rec.Schema().Equal(w.schema) {
		return fmt.Errorf("%w: geoparquet: record schema does not match writer schema", arrow.ErrInvalid)
	}

	cols := make([]arrow.Array, rec.NumCols())
	for i := range cols {
		cols[i] = rec.Column(i)
		cols[i].Retain()
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for _, c := range w.columns {
		field := w.schema.Field(c.idx)
		arr, err := geoarray.FromField(field, rec.Column(c.idx))
		if err != nil {
			return fmt.Errorf("geoparquet: column %q: %w", field.Name, err)
		}
		err = c.observe(arr)
		if err == nil {
			var enc arrow.Array
			if enc, err = c.encode(w.cfg.mem, arr); err == nil {
				cols[c.idx].Release()
				cols[c.idx] = enc
			}
		}
		arr.Release()
		if err != nil {
			return fmt.Errorf("geoparquet: column %q: %w", field.Name, err)
		}
	}

	out := array.NewRecordBatch(w.out, cols, rec.NumRows())
	defer out.Release()
	return w.fw.Write(out)
}

func (c *column) finish() {
	kinds := make([]geoarray.GeometryKind, 0, len(c.kinds))
	for gk := range c.kinds {
		kinds = append(kinds, gk)
	}
	c.meta.GeometryTypes = geometryTypes(kinds)
	if !c.bounds.IsEmpty() {
		c.meta.BBox = []float64{c.bounds.Min(0), c.bounds.Min(1), c.bounds.Max(0), c.bounds.Max(1)}
	}
}

// Close writes the "geo" metadata and the file footer.
func (w *Writer) Close() error {
	for _, c := range w.columns {
		c.finish()
	}
	doc, err := json.Marshal(w.geo)
	if err != nil {
		return err
	}
	if err := w.fw.AppendKeyValueMetadata(MetadataKey, string(doc)); err != nil {
		return err
	}
	return w.fw.Close()
}
