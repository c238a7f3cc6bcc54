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
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow"
)

// Reader reads a GeoParquet file as record batches whose geometry
// columns are GeoArrow extension arrays.
type Reader struct {
	pf     *file.Reader
	fr     *pqarrow.FileReader
	geo    *Metadata
	schema *arrow.Schema
	types  map[int]geoarrow.GeoArrowType
}

// NewReader opens r, which must carry "geo" metadata.
func NewReader(r parquet.ReaderAtSeeker, mem memory.Allocator) (*Reader, error) {
	pf, err := file.NewParquetReader(r, file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, err
	}
	rdr, err := newReader(pf, mem)
	if err != nil {
		pf.Close()
		return nil, err
	}
	return rdr, nil
}

func newReader(pf *file.Reader, mem memory.Allocator) (*Reader, error) {
	doc := pf.MetaData().KeyValueMetadata().FindValue(MetadataKey)
	if doc == nil {
		return nil, fmt.Errorf("%w: missing %q file metadata", ErrInvalidGeoMetadata, MetadataKey)
	}
	geo, err := ParseMetadata(*doc)
	if err != nil {
		return nil, err
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 64 * 1024}, mem)
	if err != nil {
		return nil, err
	}
	stored, err := fr.Schema()
	if err != nil {
		return nil, err
	}

	rdr := &Reader{pf: pf, fr: fr, geo: geo, types: make(map[int]geoarrow.GeoArrowType)}
	fields := make([]arrow.Field, stored.NumFields())
	copy(fields, stored.Fields())
	for name, col := range geo.Columns {
		idx := stored.FieldIndices(name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("%w: column %q not in file", ErrInvalidGeoMetadata, name)
		}
		f := stored.Field(idx[0])
		typ, err := col.Type(f.Type)
		if err != nil {
			return nil, fmt.Errorf("geoparquet: column %q: %w", name, err)
		}
		rdr.types[idx[0]] = typ
		fields[idx[0]] = geoarrow.NewField(name, typ, f.Nullable)
	}
	md := stored.Metadata()
	rdr.schema = arrow.NewSchema(fields, &md)
	return rdr, nil
}

func (r *Reader) Metadata() *Metadata   { return r.geo }
func (r *Reader) Schema() *arrow.Schema { return r.schema }
func (r *Reader) NumRows() int64        { return r.pf.NumRows() }

func (r *Reader) wrap(rec arrow.RecordBatch) arrow.RecordBatch {
	cols := make([]arrow.Array, rec.NumCols())
	for i := range cols {
		col := rec.Column(i)
		if typ, ok := r.types[i]; ok {
			cols[i] = array.NewExtensionArrayWithStorage(typ, col)
		} else {
			col.Retain()
			cols[i] = col
		}
	}
	out := array.NewRecordBatch(r.schema, cols, rec.NumRows())
	for _, c := range cols {
		c.Release()
	}
	return out
}

// ReadAll reads the whole file. The caller releases the batches.
func (r *Reader) ReadAll(ctx context.Context) ([]arrow.RecordBatch, error) {
	rr, err := r.fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	defer rr.Release()

	var out []arrow.RecordBatch
	for rr.Next() {
		out = append(out, r.wrap(rr.RecordBatch()))
	}
	if err := rr.Err(); err != nil {
		for _, rec := range out {
			rec.Release()
		}
		return nil, err
	}
	return out, nil
}

func (r *Reader) Close() error { return r.pf.Close() }
