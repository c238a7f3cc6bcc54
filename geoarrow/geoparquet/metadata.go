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

// Package geoparquet writes and reads Parquet files carrying GeoParquet
// "geo" file metadata, mapping their geometry columns to and from
// GeoArrow arrays.
package geoparquet

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// MetadataKey is the Parquet key-value metadata entry holding the
	// GeoParquet document.
	MetadataKey = "geo"
	Version     = "1.1.0"

	EncodingWKB = "WKB"
)

var ErrInvalidGeoMetadata = fmt.Errorf("%w: geoparquet", geoarrow.ErrInvalidMetadata)

// Metadata is the decoded "geo" document.
type Metadata struct {
	Version       string
	PrimaryColumn string
	Columns       map[string]*ColumnMetadata
}

// ColumnMetadata describes one geometry column.
type ColumnMetadata struct {
	// Encoding is "WKB" or the lower case name of a native shape.
	Encoding      string
	GeometryTypes []string
	// BBox is [xmin, ymin, xmax, ymax]; nil when the column has no
	// non-empty geometry.
	BBox  []float64
	CRS   geoarrow.CRS
	Edges geoarrow.Edges
}

// nativeEncoding names the GeoParquet encoding of a native kind.
func nativeEncoding(k geoarrow.Kind) (string, bool) {
	switch k {
	case geoarrow.KindPoint, geoarrow.KindLineString, geoarrow.KindPolygon,
		geoarrow.KindMultiPoint, geoarrow.KindMultiLineString, geoarrow.KindMultiPolygon:
		return strings.ToLower(k.String()), true
	}
	return "", false
}

func encodingKind(enc string) (geoarrow.Kind, bool) {
	for k := geoarrow.KindPoint; k <= geoarrow.KindMultiPolygon; k++ {
		if strings.EqualFold(k.String(), enc) {
			return k, true
		}
	}
	return 0, false
}

// geometryTypes lists the distinct GeoParquet type names of kinds in
// type code order. Measures have no GeoParquet name and are dropped.
func geometryTypes(kinds []geoarray.GeometryKind) []string {
	slices.SortFunc(kinds, func(a, b geoarray.GeometryKind) int {
		return cmp.Compare(geoarrow.TypeCode(a.Kind, a.Dim), geoarrow.TypeCode(b.Kind, b.Dim))
	})
	out := make([]string, 0, len(kinds))
	for _, gk := range kinds {
		name := gk.Kind.String()
		if gk.Dim.HasZ() {
			name += " Z"
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Type returns the GeoArrow type of a column of this description stored
// as storage.
func (c *ColumnMetadata) Type(storage arrow.DataType) (geoarrow.GeoArrowType, error) {
	meta := geoarrow.Metadata{CRS: c.CRS, Edges: c.Edges}
	name := ""
	if strings.EqualFold(c.Encoding, EncodingWKB) {
		name = geoarrow.ExtensionNameWKB
	} else if k, ok := encodingKind(c.Encoding); ok {
		name = geoarrow.ExtensionName(k)
	} else {
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrInvalidGeoMetadata, c.Encoding)
	}
	return geoarrow.FromExtension(name, storage, meta.Serialize())
}

var pathEscaper = strings.NewReplacer(`.`, `\.`, `*`, `\*`, `?`, `\?`, `|`, `\|`, `#`, `\#`, `@`, `\@`)

// MarshalJSON renders the document, setting fields in place with sjson
// so that column order follows the sorted column names.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	doc := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, v)
		}
	}
	setRaw := func(path string, raw []byte) {
		if err == nil {
			doc, err = sjson.SetRawBytes(doc, path, raw)
		}
	}

	set("version", m.Version)
	set("primary_column", m.PrimaryColumn)
	names := make([]string, 0, len(m.Columns))
	for name := range m.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := m.Columns[name]
		path := "columns." + pathEscaper.Replace(name)
		set(path+".encoding", c.Encoding)
		types := c.GeometryTypes
		if types == nil {
			types = []string{}
		}
		set(path+".geometry_types", types)
		if c.BBox != nil {
			set(path+".bbox", c.BBox)
		}
		if !c.CRS.IsEmpty() {
			setRaw(path+".crs", c.CRS.Raw())
		}
		if c.Edges != geoarrow.EdgesPlanar {
			set(path+".edges", c.Edges.String())
		}
	}
	return doc, err
}

// ParseMetadata decodes a "geo" document.
func ParseMetadata(doc string) (*Metadata, error) {
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("%w: not valid json", ErrInvalidGeoMetadata)
	}
	root := gjson.Parse(doc)
	m := &Metadata{
		Version:       root.Get("version").String(),
		PrimaryColumn: root.Get("primary_column").String(),
		Columns:       make(map[string]*ColumnMetadata),
	}
	if m.PrimaryColumn == "" {
		return nil, fmt.Errorf("%w: missing primary_column", ErrInvalidGeoMetadata)
	}

	var err error
	root.Get("columns").ForEach(func(key, value gjson.Result) bool {
		c := &ColumnMetadata{Encoding: value.Get("encoding").String()}
		for _, t := range value.Get("geometry_types").Array() {
			c.GeometryTypes = append(c.GeometryTypes, t.String())
		}
		if bbox := value.Get("bbox"); bbox.IsArray() {
			for _, v := range bbox.Array() {
				c.BBox = append(c.BBox, v.Float())
			}
		}
		if crs := value.Get("crs"); crs.Exists() {
			typ := geoarrow.CRSTypeUnknown
			switch {
			case crs.IsObject():
				typ = geoarrow.CRSTypePROJJSON
			case crs.Type == gjson.String && isAuthorityCode(crs.String()):
				typ = geoarrow.CRSTypeAuthorityCode
			}
			if c.CRS, err = geoarrow.NewCRS([]byte(crs.Raw), typ); err != nil {
				return false
			}
		}
		if edges := value.Get("edges"); edges.Exists() {
			if c.Edges, err = geoarrow.ParseEdges(edges.String()); err != nil {
				return false
			}
		}
		m.Columns[key.String()] = c
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGeoMetadata, err)
	}
	if _, ok := m.Columns[m.PrimaryColumn]; !ok {
		return nil, fmt.Errorf("%w: primary column %q is not described", ErrInvalidGeoMetadata, m.PrimaryColumn)
	}
	return m, nil
}

func isAuthorityCode(s string) bool {
	auth, code, ok := strings.Cut(s, ":")
	return ok && auth != "" && code != "" && !strings.ContainsAny(s, " \t\n[]()")
}
