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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/flatgeobuf"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/geoarrow/geoarrow-go/geoarrow/geojson"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoparquet"
)

const (
	formatCSV     = "csv"
	formatArrow   = "arrow"
	formatParquet = "parquet"
	formatFGB     = "fgb"
	formatGeoJSON = "geojson"

	csvChunkSize = 1 << 16
)

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV, nil
	case ".arrow", ".arrows", ".ipc":
		return formatArrow, nil
	case ".parquet", ".geoparquet":
		return formatParquet, nil
	case ".fgb":
		return formatFGB, nil
	case ".geojson", ".json":
		return formatGeoJSON, nil
	}
	return "", fmt.Errorf("%s: unrecognized file extension", path)
}

// table is a sequence of batches sharing a schema, with one column
// chosen as the geometry.
type table struct {
	schema   *arrow.Schema
	batches  []arrow.RecordBatch
	geometry int
}

func (t *table) NumRows() int64 {
	var n int64
	for _, b := range t.batches {
		n += b.NumRows()
	}
	return n
}

func (t *table) Release() {
	for _, b := range t.batches {
		b.Release()
	}
	t.batches = nil
}

// geometries wraps every chunk of the geometry column.
func (t *table) geometries() ([]geoarray.Array, error) {
	field := t.schema.Field(t.geometry)
	out := make([]geoarray.Array, 0, len(t.batches))
	for _, b := range t.batches {
		arr, err := geoarray.FromField(field, b.Column(t.geometry))
		if err != nil {
			releaseAll(out)
			return nil, err
		}
		out = append(out, arr)
	}
	return out, nil
}

func releaseAll(arrs []geoarray.Array) {
	for _, a := range arrs {
		a.Release()
	}
}

// replaceGeometry returns a table whose geometry column is replaced by
// cols, one per batch, of type typ. cols are not consumed.
func (t *table) replaceGeometry(typ geoarrow.GeoArrowType, cols []arrow.Array) *table {
	fields := make([]arrow.Field, t.schema.NumFields())
	copy(fields, t.schema.Fields())
	fields[t.geometry] = geoarrow.NewField(fields[t.geometry].Name, typ, true)
	meta := t.schema.Metadata()
	schema := arrow.NewSchema(fields, &meta)

	out := &table{schema: schema, geometry: t.geometry}
	for i, b := range t.batches {
		columns := make([]arrow.Array, b.NumCols())
		copy(columns, b.Columns())
		columns[t.geometry] = cols[i]
		out.batches = append(out.batches, array.NewRecordBatch(schema, columns, b.NumRows()))
	}
	return out
}

// retype reinterprets the geometry column as typ over its existing
// storage.
func (t *table) retype(typ geoarrow.GeoArrowType) (*table, error) {
	storage := t.schema.Field(t.geometry).Type
	if ext, ok := storage.(arrow.ExtensionType); ok {
		storage = ext.StorageType()
	}
	typ, err := geoarrow.FromExtension(typ.ExtensionName(), storage, typ.Serialize())
	if err != nil {
		return nil, err
	}

	cols := make([]arrow.Array, len(t.batches))
	for i, b := range t.batches {
		col := b.Column(t.geometry)
		if ext, ok := col.(array.ExtensionArray); ok {
			col = ext.Storage()
		}
		cols[i] = array.NewExtensionArrayWithStorage(typ, col)
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return t.replaceGeometry(typ, cols), nil
}

// readTable reads path and resolves its geometry column. CSV geometry
// columns hold WKT. crs is applied to a geometry column that has none.
func readTable(ctx context.Context, mem memory.Allocator, path, column string, crs geoarrow.CRS) (*table, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	var tbl *table
	switch format {
	case formatCSV:
		tbl, err = readCSV(mem, path)
	case formatArrow:
		tbl, err = readIPC(mem, path)
	case formatParquet:
		tbl, err = readParquet(ctx, mem, path)
	case formatFGB:
		tbl, err = readFGB(mem, path)
	default:
		return nil, fmt.Errorf("%s: %s is not an input format", path, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var typ geoarrow.GeoArrowType
	if format == formatCSV {
		if column == "" {
			column = "geometry"
		}
		idx := tbl.schema.FieldIndices(column)
		if len(idx) == 0 {
			tbl.Release()
			return nil, fmt.Errorf("%s: %w: no column %q", path, arrow.ErrInvalid, column)
		}
		tbl.geometry = idx[0]
		typ = geoarrow.NewWKTType(geoarrow.Metadata{})
	} else {
		if tbl.geometry, err = geoarrow.GeometryColumn(tbl.schema, column); err != nil {
			tbl.Release()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if typ, err = geoarrow.FromField(tbl.schema.Field(tbl.geometry)); err != nil {
			tbl.Release()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if meta := typ.Metadata(); meta.CRS.IsEmpty() && !crs.IsEmpty() {
		meta.CRS = crs
		typ = typ.WithMetadata(meta)
	}

	out, err := tbl.retype(typ)
	tbl.Release()
	return out, err
}

func readCSV(mem memory.Allocator, path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewInferringReader(f, csv.WithAllocator(mem), csv.WithHeader(true), csv.WithChunk(csvChunkSize))
	defer r.Release()

	tbl := &table{}
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		tbl.batches = append(tbl.batches, rec)
	}
	if err := r.Err(); err != nil {
		tbl.Release()
		return nil, err
	}
	tbl.schema = r.Schema()
	if tbl.schema == nil {
		return nil, fmt.Errorf("%w: empty csv file", arrow.ErrInvalid)
	}
	return tbl, nil
}

func readIPC(mem memory.Allocator, path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := ipc.NewReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, err
	}
	defer r.Release()

	tbl := &table{schema: r.Schema()}
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		tbl.batches = append(tbl.batches, rec)
	}
	if err := r.Err(); err != nil {
		tbl.Release()
		return nil, err
	}
	return tbl, nil
}

func readParquet(ctx context.Context, mem memory.Allocator, path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := geoparquet.NewReader(f, mem)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	batches, err := r.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return &table{schema: r.Schema(), batches: batches}, nil
}

func readFGB(mem memory.Allocator, path string) (*table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	arr, hdr, err := flatgeobuf.Read(mem, data)
	if err != nil {
		return nil, err
	}
	defer arr.Release()

	name := "geometry"
	if hdr.Name != "" {
		name = hdr.Name
	}
	schema := arrow.NewSchema([]arrow.Field{geoarrow.NewField(name, arr.Type(), true)}, nil)
	col := arr.ToArrow()
	defer col.Release()
	return &table{
		schema:  schema,
		batches: []arrow.RecordBatch{array.NewRecordBatch(schema, []arrow.Array{col}, int64(arr.Len()))},
	}, nil
}

func parseCompression(s string) (compress.Compression, error) {
	switch strings.ToLower(s) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unknown compression %q", s)
}

func parseEncoding(s string) (geoparquet.Encoding, error) {
	switch strings.ToLower(s) {
	case "", "wkb":
		return geoparquet.WKB, nil
	case "native", "geoarrow":
		return geoparquet.Native, nil
	}
	return geoparquet.WKB, fmt.Errorf("unknown geoparquet encoding %q", s)
}

func writeTable(ctx context.Context, mem memory.Allocator, path string, tbl *table, cfg config) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case formatArrow:
		err = writeIPC(mem, f, tbl)
	case formatParquet:
		err = writeParquet(mem, f, tbl, cfg)
	case formatFGB:
		err = writeFGB(mem, f, tbl)
	case formatGeoJSON:
		err = writeGeoJSON(f, tbl)
	default:
		err = fmt.Errorf("%s is not an output format", format)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeIPC(mem memory.Allocator, f *os.File, tbl *table) error {
	w := ipc.NewWriter(f, ipc.WithSchema(tbl.schema), ipc.WithAllocator(mem))
	for _, b := range tbl.batches {
		if err := w.Write(b); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func writeParquet(mem memory.Allocator, f *os.File, tbl *table, cfg config) error {
	codec, err := parseCompression(cfg.Compression)
	if err != nil {
		return err
	}
	enc, err := parseEncoding(cfg.Encoding)
	if err != nil {
		return err
	}

	w, err := geoparquet.NewWriter(f, tbl.schema,
		geoparquet.WithAllocator(mem),
		geoparquet.WithCompression(codec),
		geoparquet.WithEncoding(enc),
		geoparquet.WithPrimaryColumn(tbl.schema.Field(tbl.geometry).Name))
	if err != nil {
		return err
	}
	for _, b := range tbl.batches {
		if err := w.Write(b); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// writeFGB writes the geometry column only; FlatGeobuf properties are not
// produced.
func writeFGB(mem memory.Allocator, f *os.File, tbl *table) error {
	chunks, err := tbl.geometries()
	if err != nil {
		return err
	}
	defer releaseAll(chunks)

	typ, err := geoarrow.FromField(tbl.schema.Field(tbl.geometry))
	if err != nil {
		return err
	}
	var all arrow.Array
	if len(chunks) == 0 {
		all = array.MakeArrayOfNull(mem, typ.StorageType(), 0)
	} else {
		storage := make([]arrow.Array, len(chunks))
		for i, c := range chunks {
			storage[i] = c.Storage()
		}
		if all, err = array.Concatenate(storage, mem); err != nil {
			return err
		}
	}
	defer all.Release()

	arr, err := geoarray.FromStorage(typ, all)
	if err != nil {
		return err
	}
	defer arr.Release()
	return flatgeobuf.Write(f, arr, flatgeobuf.WithName(tbl.schema.Field(tbl.geometry).Name))
}

// writeGeoJSON hides the file's Close from the record writer; the
// caller owns f.
func writeGeoJSON(f *os.File, tbl *table) error {
	w := geojson.NewRecordWriter(struct{ io.Writer }{f}, geojson.WithGeometryColumn(tbl.schema.Field(tbl.geometry).Name))
	for _, b := range tbl.batches {
		if err := w.Write(b); err != nil {
			return err
		}
	}
	return w.Close()
}
