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

// Package orbgeom converts between github.com/paulmach/orb geometries
// and the go-geom values stored in GeoArrow arrays.
//
// orb is planar XY only: converting to orb drops Z and M, and an empty
// point, which orb cannot express, converts to a nil geometry and is
// left out of multi points and collections.
package orbgeom

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
)

func point(p *geom.Point) orb.Point {
	return orb.Point{p.X(), p.Y()}
}

func emptyPoint(p *geom.Point) bool {
	return p.Empty() || math.IsNaN(p.X()) && math.IsNaN(p.Y())
}

func points(flat []float64, stride int) []orb.Point {
	out := make([]orb.Point, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, orb.Point{flat[i], flat[i+1]})
	}
	return out
}

func polygon(p *geom.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		r := p.LinearRing(i)
		out = append(out, orb.Ring(points(r.FlatCoords(), r.Stride())))
	}
	return out
}

// ToOrb converts g. A nil geometry converts to nil.
func ToOrb(g geom.T) (orb.Geometry, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case *geom.Point:
		if g == nil || emptyPoint(g) {
			return nil, nil
		}
		return point(g), nil
	case *geom.LineString:
		if g == nil {
			return nil, nil
		}
		return orb.LineString(points(g.FlatCoords(), g.Stride())), nil
	case *geom.Polygon:
		if g == nil {
			return nil, nil
		}
		return polygon(g), nil
	case *geom.MultiPoint:
		if g == nil {
			return nil, nil
		}
		out := make(orb.MultiPoint, 0, g.NumPoints())
		for i := 0; i < g.NumPoints(); i++ {
			if p := g.Point(i); !emptyPoint(p) {
				out = append(out, point(p))
			}
		}
		return out, nil
	case *geom.MultiLineString:
		if g == nil {
			return nil, nil
		}
		out := make(orb.MultiLineString, 0, g.NumLineStrings())
		for i := 0; i < g.NumLineStrings(); i++ {
			ls := g.LineString(i)
			out = append(out, orb.LineString(points(ls.FlatCoords(), ls.Stride())))
		}
		return out, nil
	case *geom.MultiPolygon:
		if g == nil {
			return nil, nil
		}
		out := make(orb.MultiPolygon, 0, g.NumPolygons())
		for i := 0; i < g.NumPolygons(); i++ {
			out = append(out, polygon(g.Polygon(i)))
		}
		return out, nil
	case *geom.GeometryCollection:
		if g == nil {
			return nil, nil
		}
		out := make(orb.Collection, 0, g.NumGeoms())
		for i, member := range g.Geoms() {
			o, err := ToOrb(member)
			if err != nil {
				return nil, fmt.Errorf("member %d: %w", i, err)
			}
			if o != nil {
				out = append(out, o)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", geoarrow.ErrUnexpectedGeometry, g)
}

func flat(ps []orb.Point) []float64 {
	out := make([]float64, 0, 2*len(ps))
	for _, p := range ps {
		out = append(out, p[0], p[1])
	}
	return out
}

func rings(p orb.Polygon) ([]float64, []int) {
	var coords []float64
	ends := make([]int, 0, len(p))
	for _, r := range p {
		coords = append(coords, flat(r)...)
		ends = append(ends, len(coords))
	}
	return coords, ends
}

// FromOrb converts g into an XY go-geom geometry. A Ring becomes a
// Polygon and a Bound its rectangle.
func FromOrb(g orb.Geometry) (geom.T, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return geom.NewPointFlat(geom.XY, []float64{g[0], g[1]}), nil
	case orb.MultiPoint:
		return geom.NewMultiPointFlat(geom.XY, flat(g)), nil
	case orb.LineString:
		return geom.NewLineStringFlat(geom.XY, flat(g)), nil
	case orb.MultiLineString:
		var coords []float64
		ends := make([]int, 0, len(g))
		for _, ls := range g {
			coords = append(coords, flat(ls)...)
			ends = append(ends, len(coords))
		}
		return geom.NewMultiLineStringFlat(geom.XY, coords, ends), nil
	case orb.Ring:
		return geom.NewPolygonFlat(geom.XY, flat(g), []int{2 * len(g)}), nil
	case orb.Polygon:
		coords, ends := rings(g)
		return geom.NewPolygonFlat(geom.XY, coords, ends), nil
	case orb.Bound:
		return FromOrb(g.ToPolygon())
	case orb.MultiPolygon:
		var coords []float64
		endss := make([][]int, 0, len(g))
		for _, p := range g {
			c, ends := rings(p)
			for i := range ends {
				ends[i] += len(coords)
			}
			coords = append(coords, c...)
			endss = append(endss, ends)
		}
		return geom.NewMultiPolygonFlat(geom.XY, coords, endss), nil
	case orb.Collection:
		gc := geom.NewGeometryCollection()
		for i, member := range g {
			m, err := FromOrb(member)
			if err != nil {
				return nil, fmt.Errorf("member %d: %w", i, err)
			}
			if err := gc.Push(m); err != nil {
				return nil, err
			}
		}
		if len(g) > 0 {
			if err := gc.SetLayout(geom.XY); err != nil {
				return nil, err
			}
		}
		return gc, nil
	}
	return nil, fmt.Errorf("%w: %T", geoarrow.ErrUnexpectedGeometry, g)
}

// Geometries converts every element of arr. Nulls are nil.
func Geometries(arr geoarray.Array) ([]orb.Geometry, error) {
	out := make([]orb.Geometry, arr.Len())
	for i := range out {
		g, err := arr.Geometry(i)
		if err == nil {
			out[i], err = ToOrb(g)
		}
		if err != nil {
			return nil, geoarrow.AtRow(i, err)
		}
	}
	return out, nil
}

// FromGeometries builds an array of typ from orb geometries, nil ones
// being nulls.
func FromGeometries(mem memory.Allocator, typ geoarrow.GeoArrowType, gs []orb.Geometry) (geoarray.Array, error) {
	converted := make([]geom.T, len(gs))
	for i, g := range gs {
		c, err := FromOrb(g)
		if err != nil {
			return nil, geoarrow.AtRow(i, err)
		}
		converted[i] = c
	}
	return geoarray.FromGeometries(mem, typ, converted)
}
