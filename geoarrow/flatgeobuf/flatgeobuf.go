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

// Package flatgeobuf writes GeoArrow arrays as FlatGeobuf files and reads
// them back.
//
// Only two dimensional geometries are supported. Files are always
// written with a packed Hilbert R-tree, which orders features spatially:
// reading a file returns its features in index order, not in the order
// they were written.
package flatgeobuf

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	fgb "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/twpayne/go-geom"
)

var (
	ErrNoIndex     = errors.New("flatgeobuf: file has no spatial index")
	ErrUnsupported = fmt.Errorf("%w: flatgeobuf", geoarrow.ErrUnexpectedGeometry)
)

type config struct {
	name        string
	description string
}

type Option func(*config)

// WithName sets the layer name stored in the header.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

func WithDescription(desc string) Option {
	return func(c *config) { c.description = desc }
}

func geometryType(k geoarrow.Kind) flattypes.GeometryType {
	switch k {
	case geoarrow.KindPoint:
		return flattypes.GeometryTypePoint
	case geoarrow.KindLineString:
		return flattypes.GeometryTypeLineString
	case geoarrow.KindPolygon, geoarrow.KindBox:
		return flattypes.GeometryTypePolygon
	case geoarrow.KindMultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case geoarrow.KindMultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case geoarrow.KindMultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case geoarrow.KindGeometryCollection:
		return flattypes.GeometryTypeGeometryCollection
	}
	return flattypes.GeometryTypeUnknown
}

func kindOf(t flattypes.GeometryType) (geoarrow.Kind, bool) {
	switch t {
	case flattypes.GeometryTypePoint:
		return geoarrow.KindPoint, true
	case flattypes.GeometryTypeLineString:
		return geoarrow.KindLineString, true
	case flattypes.GeometryTypePolygon:
		return geoarrow.KindPolygon, true
	case flattypes.GeometryTypeMultiPoint:
		return geoarrow.KindMultiPoint, true
	case flattypes.GeometryTypeMultiLineString:
		return geoarrow.KindMultiLineString, true
	case flattypes.GeometryTypeMultiPolygon:
		return geoarrow.KindMultiPolygon, true
	case flattypes.GeometryTypeGeometryCollection:
		return geoarrow.KindGeometryCollection, true
	}
	return 0, false
}

// ends converts go-geom ends, counted in ordinates, into FlatGeobuf
// ends counted in coordinates from the start of the geometry.
func ends(ends []int, offset int) []uint32 {
	out := make([]uint32, len(ends))
	for i, e := range ends {
		out[i] = uint32((e - offset) / 2)
	}
	return out
}

func polygonGeometry(b *flatbuffers.Builder, p *geom.Polygon) *writer.Geometry {
	g := writer.NewGeometry(b)
	g.SetType(flattypes.GeometryTypePolygon)
	g.SetXY(p.FlatCoords())
	if p.NumLinearRings() > 1 {
		g.SetEnds(ends(p.Ends(), 0))
	}
	return g
}

// toFGB builds the FlatGeobuf geometry of a non-empty XY geometry.
func toFGB(b *flatbuffers.Builder, g geom.T) (*writer.Geometry, error) {
	if g.Layout() != geom.XY && g.Layout() != geom.NoLayout {
		return nil, fmt.Errorf("%w: %s geometry, only XY is supported", geoarrow.ErrDimensionMismatch, g.Layout())
	}

	switch g := g.(type) {
	case *geom.Point, *geom.LineString, *geom.MultiPoint:
		k, _ := geoarrow.KindOf(g)
		out := writer.NewGeometry(b)
		out.SetType(geometryType(k))
		out.SetXY(g.FlatCoords())
		return out, nil
	case *geom.Polygon:
		return polygonGeometry(b, g), nil
	case *geom.MultiLineString:
		out := writer.NewGeometry(b)
		out.SetType(flattypes.GeometryTypeMultiLineString)
		out.SetXY(g.FlatCoords())
		if g.NumLineStrings() > 1 {
			out.SetEnds(ends(g.Ends(), 0))
		}
		return out, nil
	case *geom.MultiPolygon:
		out := writer.NewGeometry(b)
		out.SetType(flattypes.GeometryTypeMultiPolygon)
		parts := make([]writer.Geometry, 0, g.NumPolygons())
		for i := 0; i < g.NumPolygons(); i++ {
			parts = append(parts, *polygonGeometry(b, g.Polygon(i)))
		}
		out.SetParts(parts)
		return out, nil
	case *geom.GeometryCollection:
		out := writer.NewGeometry(b)
		out.SetType(flattypes.GeometryTypeGeometryCollection)
		parts := make([]writer.Geometry, 0, g.NumGeoms())
		for _, member := range g.Geoms() {
			if member.Empty() {
				continue
			}
			part, err := toFGB(b, member)
			if err != nil {
				return nil, err
			}
			parts = append(parts, *part)
		}
		out.SetParts(parts)
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, g)
}

type generator struct {
	geoms []geom.T
	next  int
	err   error
}

// Generate returns the next feature, skipping nulls and empties, which
// have no FlatGeobuf representation in an indexed file.
func (gen *generator) Generate() *writer.Feature {
	for gen.err == nil && gen.next < len(gen.geoms) {
		g := gen.geoms[gen.next]
		gen.next++
		if g == nil || g.Empty() {
			continue
		}
		b := flatbuffers.NewBuilder(1024)
		fg, err := toFGB(b, g)
		if err != nil {
			gen.err = geoarrow.AtRow(gen.next-1, err)
			return nil
		}
		f := writer.NewFeature(b)
		f.SetGeometry(fg)
		return f
	}
	return nil
}

// crs records an authority code with a numeric code, such as EPSG:4326.
// Other CRS values are not written.
func crs(b *flatbuffers.Builder, meta geoarrow.Metadata) *writer.Crs {
	code, ok := meta.CRS.AuthorityCode()
	if !ok {
		return nil
	}
	org, num, _ := strings.Cut(code, ":")
	n, err := strconv.Atoi(num)
	if err != nil {
		return nil
	}
	c := writer.NewCrs(b)
	c.SetOrg(org)
	c.SetCode(int32(n))
	return c
}

// Write writes the non-null, non-empty elements of arr as an indexed
// FlatGeobuf file without properties.
func Write(w io.Writer, arr geoarray.Array, opts ...Option) error {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	gs, err := geoarray.Geometries(arr)
	if err != nil {
		return err
	}

	b := flatbuffers.NewBuilder(4096)
	h := writer.NewHeader(b)
	h.SetGeometryType(geometryType(arr.Type().Kind()))
	if cfg.name != "" {
		h.SetName(cfg.name)
	}
	if cfg.description != "" {
		h.SetDescription(cfg.description)
	}
	if c := crs(b, arr.Type().Metadata()); c != nil {
		h.SetCrs(c)
	}

	gen := &generator{geoms: gs}
	if _, err := writer.NewWriter(h, true, gen, nil).Write(w); err != nil {
		return err
	}
	return gen.err
}

// Header summarizes a FlatGeobuf file.
type Header struct {
	Name          string
	FeaturesCount uint64
	GeometryType  string
	Envelope      []float64
	CRS           geoarrow.CRS
}

func header(h *flattypes.Header) Header {
	out := Header{
		Name:          string(h.Name()),
		FeaturesCount: h.FeaturesCount(),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
	}
	for i := 0; i < h.EnvelopeLength(); i++ {
		out.Envelope = append(out.Envelope, h.Envelope(i))
	}
	var c flattypes.Crs
	if h.Crs(&c) != nil && len(c.Org()) > 0 {
		code := strconv.Itoa(int(c.Code()))
		if s := c.CodeString(); len(s) > 0 {
			code = string(s)
		}
		out.CRS = geoarrow.AuthorityCodeCRS(string(c.Org()) + ":" + code)
	}
	return out
}

func fromFGB(g *flattypes.Geometry) (geom.T, error) {
	xy := make([]float64, g.XyLength())
	for i := range xy {
		xy[i] = g.Xy(i)
	}
	geomEnds := func() []int {
		n := g.EndsLength()
		if n == 0 {
			return []int{len(xy)}
		}
		out := make([]int, n)
		for i := range out {
			out[i] = 2 * int(g.Ends(i))
		}
		return out
	}
	parts := func() ([]geom.T, error) {
		out := make([]geom.T, 0, g.PartsLength())
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if !g.Parts(&part, i) {
				continue
			}
			p, err := fromFGB(&part)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}

	switch g.Type() {
	case flattypes.GeometryTypePoint:
		if len(xy) == 0 {
			return geom.NewPointEmpty(geom.XY), nil
		}
		return geom.NewPointFlat(geom.XY, xy), nil
	case flattypes.GeometryTypeMultiPoint:
		return geom.NewMultiPointFlat(geom.XY, xy), nil
	case flattypes.GeometryTypeLineString:
		return geom.NewLineStringFlat(geom.XY, xy), nil
	case flattypes.GeometryTypeMultiLineString:
		return geom.NewMultiLineStringFlat(geom.XY, xy, geomEnds()), nil
	case flattypes.GeometryTypePolygon:
		return geom.NewPolygonFlat(geom.XY, xy, geomEnds()), nil
	case flattypes.GeometryTypeMultiPolygon:
		ps, err := parts()
		if err != nil {
			return nil, err
		}
		mp := geom.NewMultiPolygon(geom.XY)
		for _, p := range ps {
			poly, ok := p.(*geom.Polygon)
			if !ok {
				return nil, fmt.Errorf("%w: %T part in a multipolygon", ErrUnsupported, p)
			}
			if err := mp.Push(poly); err != nil {
				return nil, err
			}
		}
		return mp, nil
	case flattypes.GeometryTypeGeometryCollection:
		ps, err := parts()
		if err != nil {
			return nil, err
		}
		gc := geom.NewGeometryCollection()
		if err := gc.Push(ps...); err != nil {
			return nil, err
		}
		if len(ps) > 0 {
			if err := gc.SetLayout(geom.XY); err != nil {
				return nil, err
			}
		}
		return gc, nil
	}
	return nil, fmt.Errorf("%w: geometry type %s", ErrUnsupported, flattypes.EnumNamesGeometryType[g.Type()])
}

// Read decodes every feature of an indexed FlatGeobuf file. The result
// is an array of the header's geometry type, or a mixed Geometry array
// when the header does not fix one.
func Read(mem memory.Allocator, data []byte) (geoarray.Array, Header, error) {
	file, err := fgb.NewWithData(data)
	if err != nil {
		return nil, Header{}, err
	}
	h := file.Header()
	if h == nil {
		return nil, Header{}, fmt.Errorf("%w: flatgeobuf: missing header", geoarrow.ErrInvalidStorage)
	}
	hdr := header(h)
	meta := geoarrow.Metadata{CRS: hdr.CRS}

	var typ geoarrow.GeoArrowType = geoarrow.NewGeometryType(geoarrow.Separated, meta)
	if k, ok := kindOf(h.GeometryType()); ok {
		typ = geoarrow.NewNativeType(k, geoarrow.XY, geoarrow.Separated, meta)
	}

	var gs []geom.T
	if hdr.FeaturesCount > 0 {
		if h.IndexNodeSize() == 0 || len(hdr.Envelope) < 4 {
			return nil, hdr, ErrNoIndex
		}
		features, err := file.Search(hdr.Envelope[0], hdr.Envelope[1], hdr.Envelope[2], hdr.Envelope[3])
		if err != nil {
			return nil, hdr, err
		}
		gs = make([]geom.T, 0, len(features))
		for i, f := range features {
			var fg flattypes.Geometry
			if f.Geometry(&fg) == nil {
				gs = append(gs, nil)
				continue
			}
			g, err := fromFGB(&fg)
			if err != nil {
				return nil, hdr, geoarrow.AtRow(i, err)
			}
			gs = append(gs, g)
		}
	}

	arr, err := geoarray.FromGeometries(mem, typ, gs)
	if err != nil {
		return nil, hdr, err
	}
	return arr, hdr, nil
}
