//go:build cgo

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

package cdata

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
)

type (
	CArrowArray  = cdata.CArrowArray
	CArrowSchema = cdata.CArrowSchema
)

// ExportArray exports arr and its extension type. The caller owns out and
// outSchema and must release them, or hand them to a consumer that will.
func ExportArray(arr geoarray.Array, out *CArrowArray, outSchema *CArrowSchema) {
	ext := arr.ToArrow()
	defer ext.Release()
	cdata.ExportArrowArray(ext, out, outSchema)
}

// ImportArray takes ownership of arr and returns it as a geometry array.
// The schema may declare the type either as a registered extension or as
// extension field metadata over the storage.
func ImportArray(arr *CArrowArray, schema *CArrowSchema) (arrow.Field, geoarray.Array, error) {
	field, imported, err := cdata.ImportCArray(arr, schema)
	if err != nil {
		return arrow.Field{}, nil, err
	}
	defer imported.Release()

	out, err := geoarray.FromField(field, imported)
	if err != nil {
		return field, nil, err
	}
	return field, out, nil
}

// ExportRecordBatch exports rec as a struct array.
func ExportRecordBatch(rec arrow.RecordBatch, out *CArrowArray, outSchema *CArrowSchema) {
	cdata.ExportArrowRecordBatch(rec, out, outSchema)
}

// ImportRecordBatch imports a record batch and wraps every GeoArrow column
// as an extension array, whether or not the extension types are
// registered.
func ImportRecordBatch(arr *CArrowArray, schema *CArrowSchema) (arrow.RecordBatch, error) {
	rec, err := cdata.ImportCRecordBatch(arr, schema)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	fields := make([]arrow.Field, rec.NumCols())
	cols := make([]arrow.Array, rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()
	for i, f := range rec.Schema().Fields() {
		col := rec.Column(i)
		if !geoarrow.IsGeoArrowField(f) {
			col.Retain()
			fields[i], cols[i] = f, col
			continue
		}
		g, err := geoarray.FromField(f, col)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		cols[i] = g.ToArrow()
		g.Release()
		fields[i] = geoarrow.NewField(f.Name, g.Type(), f.Nullable)
	}

	meta := rec.Schema().Metadata()
	return array.NewRecordBatch(arrow.NewSchema(fields, &meta), cols, rec.NumRows()), nil
}

// ReleaseArray releases an exported array that was never imported.
func ReleaseArray(arr *CArrowArray) { cdata.ReleaseCArrowArray(arr) }

// ReleaseSchema releases an exported schema that was never imported.
func ReleaseSchema(schema *CArrowSchema) { cdata.ReleaseCArrowSchema(schema) }
