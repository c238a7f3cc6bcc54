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
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/internal/wkbio"
	"github.com/geoarrow/geoarrow-go/internal/utils"
	"github.com/twpayne/go-geom"
)

// Capacity counters record how many elements each buffer of a builder
// needs so that a builder can be allocated once up front. Adding a nil
// geometry counts a null element only.

type PointCapacity struct {
	Geoms int
}

func (c *PointCapacity) AddPoint(*geom.Point) { c.Geoms++ }

func (c *PointCapacity) AddGeometry(g geom.T) error {
	if _, err := asPoint(g); err != nil {
		return err
	}
	c.Geoms++
	return nil
}

func (c PointCapacity) Add(o PointCapacity) PointCapacity {
	return PointCapacity{Geoms: c.Geoms + o.Geoms}
}

func PointCapacityFromGeometries(gs []geom.T) (PointCapacity, error) {
	var c PointCapacity
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}

type LineStringCapacity struct {
	Coords int
	Geoms  int
}

func (c *LineStringCapacity) AddLineString(ls *geom.LineString) {
	if ls != nil {
		c.Coords += ls.NumCoords()
	}
	c.Geoms++
}

func (c *LineStringCapacity) AddGeometry(g geom.T) error {
	ls, err := asLineString(g)
	if err != nil {
		return err
	}
	c.AddLineString(ls)
	return nil
}

func (c LineStringCapacity) Add(o LineStringCapacity) LineStringCapacity {
	return LineStringCapacity{Coords: c.Coords + o.Coords, Geoms: c.Geoms + o.Geoms}
}

func LineStringCapacityFromGeometries(gs []geom.T) (LineStringCapacity, error) {
	var c LineStringCapacity
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}

type PolygonCapacity struct {
	Coords int
	Rings  int
	Geoms  int
}

func (c *PolygonCapacity) AddPolygon(p *geom.Polygon) {
	if p != nil {
		c.Coords += p.NumCoords()
		c.Rings += p.NumLinearRings()
	}
	c.Geoms++
}

func (c *PolygonCapacity) AddGeometry(g geom.T) error {
	p, err := asPolygon(g)
	if err != nil {
		return err
	}
	c.AddPolygon(p)
	return nil
}

func (c PolygonCapacity) Add(o PolygonCapacity) PolygonCapacity {
	return PolygonCapacity{Coords: c.Coords + o.Coords, Rings: c.Rings + o.Rings, Geoms: c.Geoms + o.Geoms}
}

func PolygonCapacityFromGeometries(gs []geom.T) (PolygonCapacity, error) {
	var c PolygonCapacity
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}

type MultiPointCapacity struct {
	Coords int
	Geoms  int
}

func (c *MultiPointCapacity) AddMultiPoint(mp *geom.MultiPoint) {
	if mp != nil {
		c.Coords += mp.NumPoints()
	}
	c.Geoms++
}

func (c *MultiPointCapacity) AddGeometry(g geom.T) error {
	mp, err := asMultiPoint(g)
	if err != nil {
		return err
	}
	c.AddMultiPoint(mp)
	return nil
}

func (c MultiPointCapacity) Add(o MultiPointCapacity) MultiPointCapacity {
	return MultiPointCapacity{Coords: c.Coords + o.Coords, Geoms: c.Geoms + o.Geoms}
}

func MultiPointCapacityFromGeometries(gs []geom.T) (MultiPointCapacity, error) {
	var c MultiPointCapacity
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}

type MultiLineStringCapacity struct {
	Coords      int
	LineStrings int
	Geoms       int
}

func (c *MultiLineStringCapacity) AddMultiLineString(mls *geom.MultiLineString) {
	if mls != nil {
		c.Coords += mls.NumCoords()
		c.LineStrings += mls.NumLineStrings()
	}
	c.Geoms++
}

func (c *MultiLineStringCapacity) AddGeometry(g geom.T) error {
	mls, err := asMultiLineString(g)
	if err != nil {
		return err
	}
	c.AddMultiLineString(mls)
	return nil
}

func (c MultiLineStringCapacity) Add(o MultiLineStringCapacity) MultiLineStringCapacity {
	return MultiLineStringCapacity{
		Coords:      c.Coords + o.Coords,
		LineStrings: c.LineStrings + o.LineStrings,
		Geoms:       c.Geoms + o.Geoms,
	}
}

func MultiLineStringCapacityFromGeometries(gs []geom.T) (MultiLineStringCapacity, error) {
	var c MultiLineStringCapacity
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}

type MultiPolygonCapacity struct {
	Coords   int
	Rings    int
	Polygons int
	Geoms    int
}

func (c *MultiPolygonCapacity) AddMultiPolygon(mp *geom.MultiPolygon) {
	if mp != nil {
		c.Coords += mp.NumCoords()
		c.Polygons += mp.NumPolygons()
		for _, ends := range mp.Endss() {
			c.Rings += len(ends)
		}
	}
	c.Geoms++
}

func (c *MultiPolygonCapacity) AddGeometry(g geom.T) error {
	mp, err := asMultiPolygon(g)
	if err != nil {
		return err
	}
	c.AddMultiPolygon(mp)
	return nil
}

func (c MultiPolygonCapacity) Add(o MultiPolygonCapacity) MultiPolygonCapacity {
	return MultiPolygonCapacity{
		Coords:   c.Coords + o.Coords,
		Rings:    c.Rings + o.Rings,
		Polygons: c.Polygons + o.Polygons,
		Geoms:    c.Geoms + o.Geoms,
	}
}

func MultiPolygonCapacityFromGeometries(gs []geom.T) (MultiPolygonCapacity, error) {
	var c MultiPolygonCapacity
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}

// MixedCapacity counts the members of geometry collections of a single
// dimension, one counter per non-collection kind.
type MixedCapacity struct {
	Points           PointCapacity
	LineStrings      LineStringCapacity
	Polygons         PolygonCapacity
	MultiPoints      MultiPointCapacity
	MultiLineStrings MultiLineStringCapacity
	MultiPolygons    MultiPolygonCapacity
}

func (c *MixedCapacity) addGeometry(g geom.T, preferMulti bool) error {
	if isNil(g) {
		return unexpected(g, "a geometry collection member")
	}
	if preferMulti {
		g = toMulti(g)
	}
	switch g := g.(type) {
	case *geom.Point:
		c.Points.AddPoint(g)
	case *geom.LineString:
		c.LineStrings.AddLineString(g)
	case *geom.Polygon:
		c.Polygons.AddPolygon(g)
	case *geom.MultiPoint:
		c.MultiPoints.AddMultiPoint(g)
	case *geom.MultiLineString:
		c.MultiLineStrings.AddMultiLineString(g)
	case *geom.MultiPolygon:
		c.MultiPolygons.AddMultiPolygon(g)
	default:
		return unexpected(g, "a geometry collection member")
	}
	return nil
}

func (c MixedCapacity) Add(o MixedCapacity) MixedCapacity {
	return MixedCapacity{
		Points:           c.Points.Add(o.Points),
		LineStrings:      c.LineStrings.Add(o.LineStrings),
		Polygons:         c.Polygons.Add(o.Polygons),
		MultiPoints:      c.MultiPoints.Add(o.MultiPoints),
		MultiLineStrings: c.MultiLineStrings.Add(o.MultiLineStrings),
		MultiPolygons:    c.MultiPolygons.Add(o.MultiPolygons),
	}
}

// Geoms is the total number of members.
func (c MixedCapacity) Geoms() int {
	return c.Points.Geoms + c.LineStrings.Geoms + c.Polygons.Geoms +
		c.MultiPoints.Geoms + c.MultiLineStrings.Geoms + c.MultiPolygons.Geoms
}

type GeometryCollectionCapacity struct {
	PreferMulti bool
	Mixed       MixedCapacity
	Geoms       int
}

func (c *GeometryCollectionCapacity) AddGeometryCollection(gc *geom.GeometryCollection) error {
	if gc != nil {
		for _, member := range gc.Geoms() {
			if err := c.Mixed.addGeometry(member, c.PreferMulti); err != nil {
				return err
			}
		}
	}
	c.Geoms++
	return nil
}

// AddGeometry counts a collection, or any other kind as a one member
// collection.
func (c *GeometryCollectionCapacity) AddGeometry(g geom.T) error {
	if isNil(g) {
		c.Geoms++
		return nil
	}
	if gc, ok := g.(*geom.GeometryCollection); ok {
		return c.AddGeometryCollection(gc)
	}
	if err := c.Mixed.addGeometry(g, c.PreferMulti); err != nil {
		return err
	}
	c.Geoms++
	return nil
}

func (c GeometryCollectionCapacity) Add(o GeometryCollectionCapacity) GeometryCollectionCapacity {
	return GeometryCollectionCapacity{
		PreferMulti: c.PreferMulti || o.PreferMulti,
		Mixed:       c.Mixed.Add(o.Mixed),
		Geoms:       c.Geoms + o.Geoms,
	}
}

func GeometryCollectionCapacityFromGeometries(gs []geom.T, opts ...Option) (GeometryCollectionCapacity, error) {
	c := GeometryCollectionCapacity{PreferMulti: newConfig(opts).preferMulti}
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}

// GeometryCapacity counts the children of a Geometry array, one counter
// per kind and dimension, plus nulls. A null occupies a slot in the child
// of the latest geometry, so it is also counted there; nulls seen before
// any geometry are pending until one arrives.
type GeometryCapacity struct {
	PreferMulti bool
	Nulls       int

	Points              [4]PointCapacity
	LineStrings         [4]LineStringCapacity
	Polygons            [4]PolygonCapacity
	MultiPoints         [4]MultiPointCapacity
	MultiLineStrings    [4]MultiLineStringCapacity
	MultiPolygons       [4]MultiPolygonCapacity
	GeometryCollections [4]GeometryCollectionCapacity

	pending     int
	first, last int // child index + 1, zero before any geometry
}

// addNulls counts n null slots in child idx.
func (c *GeometryCapacity) addNulls(idx, n int) {
	d := geoarrow.Dimension(idx / 7)
	switch geoarrow.Kind(idx%7 + 1) {
	case geoarrow.KindPoint:
		c.Points[d].Geoms += n
	case geoarrow.KindLineString:
		c.LineStrings[d].Geoms += n
	case geoarrow.KindPolygon:
		c.Polygons[d].Geoms += n
	case geoarrow.KindMultiPoint:
		c.MultiPoints[d].Geoms += n
	case geoarrow.KindMultiLineString:
		c.MultiLineStrings[d].Geoms += n
	case geoarrow.KindMultiPolygon:
		c.MultiPolygons[d].Geoms += n
	case geoarrow.KindGeometryCollection:
		c.GeometryCollections[d].Geoms += n
	}
}

// settled returns c with pending nulls placed in the XY point child, where
// a builder holding only nulls stores them.
func (c GeometryCapacity) settled() GeometryCapacity {
	if c.pending > 0 {
		c.addNulls(geoarrow.GeometryChildIndex(geoarrow.KindPoint, geoarrow.XY), c.pending)
		c.pending = 0
	}
	return c
}

// dimensionOf returns the dimension of g. A collection without a layout
// takes the dimension of its first non-empty member, and an empty one
// counts as XY.
func dimensionOf(g geom.T) (geoarrow.Dimension, error) {
	if d, ok := geoarrow.DimensionFromLayout(g.Layout()); ok {
		return d, nil
	}
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for _, member := range gc.Geoms() {
			if !isNil(member) && !member.Empty() {
				return dimensionOf(member)
			}
		}
	}
	if g.Empty() {
		return geoarrow.XY, nil
	}
	return geoarrow.XY, unexpected(g, "a dimensioned geometry")
}

func (c *GeometryCapacity) AddGeometry(g geom.T) error {
	if isNil(g) {
		c.Nulls++
		if c.last > 0 {
			c.addNulls(c.last-1, 1)
		} else {
			c.pending++
		}
		return nil
	}
	d, err := dimensionOf(g)
	if err != nil {
		return err
	}
	if c.PreferMulti {
		g = toMulti(g)
	}
	k, ok := geoarrow.KindOf(g)
	if !ok {
		return unexpected(g, "a geometry")
	}
	switch g := g.(type) {
	case *geom.Point:
		c.Points[d].AddPoint(g)
	case *geom.LineString:
		c.LineStrings[d].AddLineString(g)
	case *geom.Polygon:
		c.Polygons[d].AddPolygon(g)
	case *geom.MultiPoint:
		c.MultiPoints[d].AddMultiPoint(g)
	case *geom.MultiLineString:
		c.MultiLineStrings[d].AddMultiLineString(g)
	case *geom.MultiPolygon:
		c.MultiPolygons[d].AddMultiPolygon(g)
	case *geom.GeometryCollection:
		c.GeometryCollections[d].PreferMulti = c.PreferMulti
		if err := c.GeometryCollections[d].AddGeometryCollection(g); err != nil {
			return err
		}
	}
	c.placed(geoarrow.GeometryChildIndex(k, d))
	return nil
}

// placed records a geometry counted in child idx.
func (c *GeometryCapacity) placed(idx int) {
	if c.first == 0 {
		c.first = idx + 1
	}
	if c.pending > 0 {
		c.addNulls(idx, c.pending)
		c.pending = 0
	}
	c.last = idx + 1
}

func (c GeometryCapacity) Add(o GeometryCapacity) GeometryCapacity {
	out := GeometryCapacity{PreferMulti: c.PreferMulti || o.PreferMulti, Nulls: c.Nulls + o.Nulls}
	for d := range out.Points {
		out.Points[d] = c.Points[d].Add(o.Points[d])
		out.LineStrings[d] = c.LineStrings[d].Add(o.LineStrings[d])
		out.Polygons[d] = c.Polygons[d].Add(o.Polygons[d])
		out.MultiPoints[d] = c.MultiPoints[d].Add(o.MultiPoints[d])
		out.MultiLineStrings[d] = c.MultiLineStrings[d].Add(o.MultiLineStrings[d])
		out.MultiPolygons[d] = c.MultiPolygons[d].Add(o.MultiPolygons[d])
		out.GeometryCollections[d] = c.GeometryCollections[d].Add(o.GeometryCollections[d])
	}
	out.first, out.last, out.pending = c.first, c.last, c.pending
	switch {
	case c.last > 0:
		out.addNulls(c.last-1, o.pending)
	case o.first > 0:
		out.first = o.first
		out.addNulls(o.first-1, c.pending)
		out.pending = 0
	default:
		out.pending += o.pending
	}
	if o.last > 0 {
		out.last = o.last
	}
	return out
}

// Geoms is the total number of elements, nulls included.
func (c GeometryCapacity) Geoms() int {
	n := c.pending
	for d := range c.Points {
		n += c.Points[d].Geoms + c.LineStrings[d].Geoms + c.Polygons[d].Geoms +
			c.MultiPoints[d].Geoms + c.MultiLineStrings[d].Geoms + c.MultiPolygons[d].Geoms +
			c.GeometryCollections[d].Geoms
	}
	return n
}

func GeometryCapacityFromGeometries(gs []geom.T, opts ...Option) (GeometryCapacity, error) {
	c := GeometryCapacity{PreferMulti: newConfig(opts).preferMulti}
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}

type RectCapacity struct {
	Geoms int
}

func (c *RectCapacity) AddGeometry(geom.T) error {
	c.Geoms++
	return nil
}

func (c RectCapacity) Add(o RectCapacity) RectCapacity {
	return RectCapacity{Geoms: c.Geoms + o.Geoms}
}

func RectCapacityFromGeometries(gs []geom.T) (RectCapacity, error) {
	return RectCapacity{Geoms: len(gs)}, nil
}

// WKBCapacity counts encoded bytes and elements.
type WKBCapacity struct {
	Bytes int
	Geoms int
}

func (c *WKBCapacity) AddGeometry(g geom.T) error {
	if !isNil(g) {
		n, err := wkbio.Size(g)
		if err != nil {
			return err
		}
		var ok bool
		if c.Bytes, ok = utils.Add(c.Bytes, n); !ok {
			return geoarrow.ErrOffsetOverflow
		}
	}
	c.Geoms++
	return nil
}

func (c WKBCapacity) Add(o WKBCapacity) WKBCapacity {
	return WKBCapacity{Bytes: c.Bytes + o.Bytes, Geoms: c.Geoms + o.Geoms}
}

func WKBCapacityFromGeometries(gs []geom.T) (WKBCapacity, error) {
	var c WKBCapacity
	for i, g := range gs {
		if err := c.AddGeometry(g); err != nil {
			return c, geoarrow.AtRow(i, err)
		}
	}
	return c, nil
}
