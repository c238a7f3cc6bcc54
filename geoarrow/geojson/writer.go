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

// Package geojson streams arrow record batches holding a GeoArrow
// column as a GeoJSON FeatureCollection.
package geojson

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/geoarrow/geoarrow-go/geoarrow/orbgeom"
	"github.com/geoarrow/geoarrow-go/internal/json"
	orbjson "github.com/paulmach/orb/geojson"
)

var (
	featureCollectionPrefix = []byte(`{"type":"FeatureCollection","features":[`)
	featureSeparator        = []byte(",")
	featureCollectionSuffix = []byte("]}")
)

type Option func(*RecordWriter)

// WithGeometryColumn names the column written as the feature geometry.
// By default it is the first GeoArrow column of each batch.
func WithGeometryColumn(name string) Option {
	return func(w *RecordWriter) { w.column = name }
}

// RecordWriter writes every row of the batches passed to Write as one
// feature. The geometry column becomes the feature geometry and the
// other columns its properties. Geometries are written in two dimensions.
type RecordWriter struct {
	w        io.Writer
	column   string
	started  bool
	features int
}

func NewRecordWriter(w io.Writer, opts ...Option) *RecordWriter {
	rw := &RecordWriter{w: w}
	for _, o := range opts {
		o(rw)
	}
	return rw
}

type feature struct {
	Type       string            `json:"type"`
	Geometry   *orbjson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

func (w *RecordWriter) start() error {
	if w.started {
		return nil
	}
	w.started = true
	_, err := w.w.Write(featureCollectionPrefix)
	return err
}

func (w *RecordWriter) Write(rec arrow.RecordBatch) error {
	if err := w.start(); err != nil {
		return err
	}

	schema := rec.Schema()
	idx, err := geoarrow.GeometryColumn(schema, w.column)
	if err != nil {
		return err
	}
	geoms, err := geoarray.FromField(schema.Field(idx), rec.Column(idx))
	if err != nil {
		return err
	}
	defer geoms.Release()

	for row := 0; row < int(rec.NumRows()); row++ {
		f := feature{Type: "Feature", Properties: make(map[string]any, int(rec.NumCols())-1)}

		g, err := geoms.Geometry(row)
		if err != nil {
			return fmt.Errorf("geojson: column %q: %w", schema.Field(idx).Name, geoarrow.AtRow(row, err))
		}
		o, err := orbgeom.ToOrb(g)
		if err != nil {
			return fmt.Errorf("geojson: column %q: %w", schema.Field(idx).Name, geoarrow.AtRow(row, err))
		}
		if o != nil {
			f.Geometry = orbjson.NewGeometry(o)
		}

		for col := 0; col < int(rec.NumCols()); col++ {
			if col != idx {
				f.Properties[schema.Field(col).Name] = rec.Column(col).GetOneForMarshal(row)
			}
		}

		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if w.features > 0 {
			if _, err := w.w.Write(featureSeparator); err != nil {
				return err
			}
		}
		if _, err := w.w.Write(data); err != nil {
			return err
		}
		w.features++
	}
	return nil
}

// Close terminates the collection, writing an empty one if no batch was
// written, and closes the underlying writer if it is an io.Closer.
func (w *RecordWriter) Close() error {
	if err := w.start(); err != nil {
		return err
	}
	if _, err := w.w.Write(featureCollectionSuffix); err != nil {
		return err
	}
	if closer, ok := w.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
