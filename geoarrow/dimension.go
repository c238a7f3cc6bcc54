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

package geoarrow

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// Dimension represents the dimensionality of coordinates
type Dimension int8

const (
	XY Dimension = iota
	XYZ
	XYM
	XYZM
)

// Dimensions lists every dimension in type code order.
var Dimensions = [...]Dimension{XY, XYZ, XYM, XYZM}

// String returns the lower case name of the dimension, as used in
// interleaved child field names.
func (d Dimension) String() string {
	switch d {
	case XY:
		return "xy"
	case XYZ:
		return "xyz"
	case XYM:
		return "xym"
	case XYZM:
		return "xyzm"
	default:
		return fmt.Sprintf("Dimension(%d)", int8(d))
	}
}

// Size returns the number of ordinates per coordinate
func (d Dimension) Size() int {
	switch d {
	case XYZ, XYM:
		return 3
	case XYZM:
		return 4
	default:
		return 2
	}
}

func (d Dimension) HasZ() bool { return d == XYZ || d == XYZM }
func (d Dimension) HasM() bool { return d == XYM || d == XYZM }

func (d Dimension) Valid() bool { return d >= XY && d <= XYZM }

// Names returns the separated coordinate field names.
func (d Dimension) Names() []string {
	switch d {
	case XYZ:
		return []string{"x", "y", "z"}
	case XYM:
		return []string{"x", "y", "m"}
	case XYZM:
		return []string{"x", "y", "z", "m"}
	default:
		return []string{"x", "y"}
	}
}

// Layout returns the go-geom layout with the same ordinates.
func (d Dimension) Layout() geom.Layout {
	switch d {
	case XYZ:
		return geom.XYZ
	case XYM:
		return geom.XYM
	case XYZM:
		return geom.XYZM
	default:
		return geom.XY
	}
}

// DimensionFromLayout maps a go-geom layout to a Dimension. The second
// return is false for geom.NoLayout, which carries no dimension at all.
func DimensionFromLayout(l geom.Layout) (Dimension, bool) {
	switch l {
	case geom.XY:
		return XY, true
	case geom.XYZ:
		return XYZ, true
	case geom.XYM:
		return XYM, true
	case geom.XYZM:
		return XYZM, true
	default:
		return XY, false
	}
}

// CoordType selects the physical layout of a coordinate buffer.
type CoordType int8

const (
	// Separated stores each ordinate in its own Float64 child of a struct.
	Separated CoordType = iota
	// Interleaved stores all ordinates of a coordinate contiguously in a
	// fixed size list.
	Interleaved
)

func (c CoordType) String() string {
	switch c {
	case Separated:
		return "separated"
	case Interleaved:
		return "interleaved"
	default:
		return fmt.Sprintf("CoordType(%d)", int8(c))
	}
}

// ParseCoordType parses the String form of a CoordType.
func ParseCoordType(s string) (CoordType, error) {
	switch s {
	case "separated", "separate", "struct":
		return Separated, nil
	case "interleaved":
		return Interleaved, nil
	}
	return Separated, fmt.Errorf("%w: unknown coord type %q", ErrInvalidStorage, s)
}

// Kind identifies the geometry family of a GeoArrow type. The values of
// the seven native kinds equal their WKB geometry type codes.
type Kind int8

const (
	KindPoint Kind = iota + 1
	KindLineString
	KindPolygon
	KindMultiPoint
	KindMultiLineString
	KindMultiPolygon
	KindGeometryCollection
	KindGeometry
	KindBox
	KindWKB
	KindLargeWKB
	KindWKT
	KindLargeWKT
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "Point"
	case KindLineString:
		return "LineString"
	case KindPolygon:
		return "Polygon"
	case KindMultiPoint:
		return "MultiPoint"
	case KindMultiLineString:
		return "MultiLineString"
	case KindMultiPolygon:
		return "MultiPolygon"
	case KindGeometryCollection:
		return "GeometryCollection"
	case KindGeometry:
		return "Geometry"
	case KindBox:
		return "Box"
	case KindWKB:
		return "WKB"
	case KindLargeWKB:
		return "LargeWKB"
	case KindWKT:
		return "WKT"
	case KindLargeWKT:
		return "LargeWKT"
	default:
		return fmt.Sprintf("Kind(%d)", int8(k))
	}
}

// IsNative reports whether k is one of the seven dimensioned geometry
// kinds stored as nested lists over a coordinate buffer.
func (k Kind) IsNative() bool { return k >= KindPoint && k <= KindGeometryCollection }

// IsSerialized reports whether k is a WKB or WKT encoding.
func (k Kind) IsSerialized() bool { return k >= KindWKB && k <= KindLargeWKT }

// Depth is the number of list levels between an element of a native
// kind and its coordinates.
func (k Kind) Depth() int {
	switch k {
	case KindLineString, KindMultiPoint:
		return 1
	case KindPolygon, KindMultiLineString:
		return 2
	case KindMultiPolygon:
		return 3
	default:
		return 0
	}
}

// Multi returns the multi counterpart of a single kind, or k itself.
func (k Kind) Multi() Kind {
	switch k {
	case KindPoint:
		return KindMultiPoint
	case KindLineString:
		return KindMultiLineString
	case KindPolygon:
		return KindMultiPolygon
	}
	return k
}

// Single returns the single counterpart of a multi kind, or k itself.
func (k Kind) Single() Kind {
	switch k {
	case KindMultiPoint:
		return KindPoint
	case KindMultiLineString:
		return KindLineString
	case KindMultiPolygon:
		return KindPolygon
	}
	return k
}

// KindOf returns the native kind of a go-geom geometry.
func KindOf(g geom.T) (Kind, bool) {
	switch g.(type) {
	case *geom.Point:
		return KindPoint, true
	case *geom.LineString:
		return KindLineString, true
	case *geom.Polygon:
		return KindPolygon, true
	case *geom.MultiPoint:
		return KindMultiPoint, true
	case *geom.MultiLineString:
		return KindMultiLineString, true
	case *geom.MultiPolygon:
		return KindMultiPolygon, true
	case *geom.GeometryCollection:
		return KindGeometryCollection, true
	}
	return 0, false
}

// TypeCode is the dense union type id of a native kind in dimension d,
// shared by the Geometry and GeometryCollection layouts.
func TypeCode(k Kind, d Dimension) int8 {
	return int8(d)*10 + int8(k)
}

// ParseTypeCode splits a union type id into its kind and dimension.
func ParseTypeCode(code int8) (Kind, Dimension, bool) {
	k, d := Kind(code%10), Dimension(code/10)
	if !k.IsNative() || !d.Valid() {
		return 0, XY, false
	}
	return k, d, true
}
