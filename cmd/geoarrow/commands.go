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
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/cast"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/pterm/pterm"
)

// castTable converts the geometry column of tbl to the type selected by
// cfg, or simplifies it when cfg.Downcast is set.
func castTable(ctx context.Context, mem memory.Allocator, tbl *table, cfg config) (*table, error) {
	chunks, err := tbl.geometries()
	if err != nil {
		return nil, err
	}
	defer releaseAll(chunks)

	var out []geoarray.Array
	if cfg.Downcast {
		out, err = downcastChunks(mem, chunks)
	} else {
		var target geoarrow.GeoArrowType
		if target, err = castTarget(tbl, cfg); err != nil {
			return nil, err
		}
		out, err = cast.CastChunks(ctx, mem, chunks, target)
	}
	if err != nil {
		return nil, err
	}
	defer releaseAll(out)

	if len(out) == 0 {
		return tbl.retypeEmpty(cfg)
	}
	cols := make([]arrow.Array, len(out))
	for i, a := range out {
		cols[i] = a.ToArrow()
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	return tbl.replaceGeometry(out[0].Type(), cols), nil
}

func castTarget(tbl *table, cfg config) (geoarrow.GeoArrowType, error) {
	src, err := geoarrow.FromField(tbl.schema.Field(tbl.geometry))
	if err != nil {
		return nil, err
	}
	dim, err := parseDimension(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	ct, err := geoarrow.ParseCoordType(cfg.Coords)
	if err != nil {
		return nil, err
	}
	return targetType(cfg.Type, dim, ct, src.Metadata())
}

// retypeEmpty handles a table without batches, where only the schema
// changes.
func (t *table) retypeEmpty(cfg config) (*table, error) {
	if cfg.Downcast {
		return &table{schema: t.schema, geometry: t.geometry}, nil
	}
	target, err := castTarget(t, cfg)
	if err != nil {
		return nil, err
	}
	return t.replaceGeometry(target, nil), nil
}

// downcast simplifies one chunk. Serialized chunks are decoded into a
// mixed Geometry array first.
func downcast(mem memory.Allocator, arr geoarray.Array) (geoarray.Array, error) {
	if typ := arr.Type(); typ.Kind().IsSerialized() {
		decoded, err := cast.Cast(mem, arr, geoarrow.NewGeometryType(geoarrow.Separated, typ.Metadata()))
		if err != nil {
			return nil, err
		}
		defer decoded.Release()
		return cast.Downcast(mem, decoded)
	}
	return cast.Downcast(mem, arr)
}

// downcastChunks simplifies every chunk. Chunks must agree on a type to
// share a schema, so when they do not the input is kept.
func downcastChunks(mem memory.Allocator, chunks []geoarray.Array) ([]geoarray.Array, error) {
	out := make([]geoarray.Array, 0, len(chunks))
	for _, c := range chunks {
		d, err := downcast(mem, c)
		if err != nil {
			releaseAll(out)
			return nil, err
		}
		out = append(out, d)
	}
	for _, d := range out {
		if !d.Type().ExtensionEquals(out[0].Type()) {
			releaseAll(out)
			for _, c := range chunks {
				c.Retain()
			}
			return append([]geoarray.Array(nil), chunks...), nil
		}
	}
	return out, nil
}

// describe prints the schema of tbl and the geometry types found in its
// geometry column.
func describe(w io.Writer, tbl *table) error {
	data := pterm.TableData{{"column", "type", "extension", "crs", "edges"}}
	for i, f := range tbl.schema.Fields() {
		row := []string{f.Name, f.Type.String(), "", "", ""}
		if geoarrow.IsGeoArrowField(f) {
			typ, err := geoarrow.FromField(f)
			if err != nil {
				return fmt.Errorf("column %q: %w", f.Name, err)
			}
			row[1] = typ.StorageType().String()
			row[2] = typ.ExtensionName()
			row[3] = typ.Metadata().CRS.String()
			row[4] = typ.Metadata().Edges.String()
			if i == tbl.geometry {
				row[0] += " *"
			}
		}
		data = append(data, row)
	}
	s, err := pterm.DefaultTable.WithHasHeader(true).WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, s)

	chunks, err := tbl.geometries()
	if err != nil {
		return err
	}
	defer releaseAll(chunks)

	seen := make(map[geoarray.GeometryKind]struct{})
	for _, c := range chunks {
		kinds, err := geoarray.InferType(c)
		if err != nil {
			return err
		}
		for _, k := range kinds {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k.String())
	}
	sort.Strings(names)

	fmt.Fprintf(w, "rows: %d\nbatches: %d\ngeometry types: %s\n",
		tbl.NumRows(), len(tbl.batches), strings.Join(names, ", "))
	return nil
}
