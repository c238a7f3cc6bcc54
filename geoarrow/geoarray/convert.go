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

package geoarray

import (
	"github.com/twpayne/go-geom"
)

// The as* helpers convert between a single shape and its Multi
// counterpart where that loses nothing: a Multi with one part becomes
// the part, an empty Multi becomes an empty single, and a single becomes
// a one part Multi. Nil inputs return a nil result.

func asPoint(g geom.T) (*geom.Point, error) {
	if isNil(g) {
		return nil, nil
	}
	switch g := g.(type) {
	case *geom.Point:
		return g, nil
	case *geom.MultiPoint:
		switch g.NumPoints() {
		case 0:
			return geom.NewPointEmpty(g.Layout()), nil
		case 1:
			return g.Point(0), nil
		}
	}
	return nil, unexpected(g, "a point")
}

func asLineString(g geom.T) (*geom.LineString, error) {
	if isNil(g) {
		return nil, nil
	}
	switch g := g.(type) {
	case *geom.LineString:
		return g, nil
	case *geom.MultiLineString:
		switch g.NumLineStrings() {
		case 0:
			return geom.NewLineString(g.Layout()), nil
		case 1:
			return g.LineString(0), nil
		}
	}
	return nil, unexpected(g, "a linestring")
}

func asPolygon(g geom.T) (*geom.Polygon, error) {
	if isNil(g) {
		return nil, nil
	}
	switch g := g.(type) {
	case *geom.Polygon:
		return g, nil
	case *geom.MultiPolygon:
		switch g.NumPolygons() {
		case 0:
			return geom.NewPolygon(g.Layout()), nil
		case 1:
			return g.Polygon(0), nil
		}
	}
	return nil, unexpected(g, "a polygon")
}

func asMultiPoint(g geom.T) (*geom.MultiPoint, error) {
	if isNil(g) {
		return nil, nil
	}
	switch g := g.(type) {
	case *geom.MultiPoint:
		return g, nil
	case *geom.Point:
		return pointToMulti(g), nil
	}
	return nil, unexpected(g, "a multipoint")
}

func asMultiLineString(g geom.T) (*geom.MultiLineString, error) {
	if isNil(g) {
		return nil, nil
	}
	switch g := g.(type) {
	case *geom.MultiLineString:
		return g, nil
	case *geom.LineString:
		return lineStringToMulti(g), nil
	}
	return nil, unexpected(g, "a multilinestring")
}

func asMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	if isNil(g) {
		return nil, nil
	}
	switch g := g.(type) {
	case *geom.MultiPolygon:
		return g, nil
	case *geom.Polygon:
		return polygonToMulti(g), nil
	}
	return nil, unexpected(g, "a multipolygon")
}

func pointToMulti(p *geom.Point) *geom.MultiPoint {
	if p.Empty() {
		return geom.NewMultiPoint(p.Layout())
	}
	return geom.NewMultiPointFlat(p.Layout(), p.FlatCoords())
}

func lineStringToMulti(ls *geom.LineString) *geom.MultiLineString {
	if ls.Empty() {
		return geom.NewMultiLineString(ls.Layout())
	}
	return geom.NewMultiLineStringFlat(ls.Layout(), ls.FlatCoords(), []int{len(ls.FlatCoords())})
}

func polygonToMulti(p *geom.Polygon) *geom.MultiPolygon {
	if p.NumLinearRings() == 0 {
		return geom.NewMultiPolygon(p.Layout())
	}
	return geom.NewMultiPolygonFlat(p.Layout(), p.FlatCoords(), [][]int{p.Ends()})
}

// toMulti promotes a single shape to its Multi counterpart and returns
// any other geometry unchanged.
func toMulti(g geom.T) geom.T {
	switch g := g.(type) {
	case *geom.Point:
		return pointToMulti(g)
	case *geom.LineString:
		return lineStringToMulti(g)
	case *geom.Polygon:
		return polygonToMulti(g)
	}
	return g
}
