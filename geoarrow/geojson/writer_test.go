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

package geojson_test

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/geoarrow/geoarrow-go/geoarrow/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func record(t *testing.T, mem memory.Allocator) arrow.RecordBatch {
	t.Helper()
	typ := geoarrow.NewPointType(geoarrow.XY, geoarrow.Interleaved, geoarrow.Metadata{})
	pts, err := geoarray.FromGeometries(mem, typ, []geom.T{
		geom.NewPointFlat(geom.XY, []float64{30, 10}),
		nil,
	})
	require.NoError(t, err)
	defer pts.Release()

	nb := array.NewStringBuilder(mem)
	defer nb.Release()
	nb.AppendValues([]string{"a", "b"}, nil)
	names := nb.NewArray()
	defer names.Release()

	col := pts.ToArrow()
	defer col.Release()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		geoarrow.NewField("geom", typ, true),
	}, nil)
	return array.NewRecordBatch(schema, []arrow.Array{names, col}, 2)
}

func TestRecordWriter(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := record(t, mem)
	defer rec.Release()

	var buf bytes.Buffer
	w := geojson.NewRecordWriter(&buf)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	feature := func(name string, geometry string) string {
		return `{"type":"Feature","geometry":` + geometry + `,"properties":{"name":"` + name + `"}}`
	}
	point := `{"type":"Point","coordinates":[30,10]}`
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[`+
		feature("a", point)+","+feature("b", "null")+","+
		feature("a", point)+","+feature("b", "null")+`]}`, buf.String())
}

func TestRecordWriterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, geojson.NewRecordWriter(&buf).Close())
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, buf.String())
}

func TestRecordWriterMissingColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec := record(t, mem)
	defer rec.Release()

	var buf bytes.Buffer
	err := geojson.NewRecordWriter(&buf, geojson.WithGeometryColumn("shape")).Write(rec)
	assert.ErrorIs(t, err, arrow.ErrInvalid)
}
