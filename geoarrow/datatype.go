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

	"github.com/apache/arrow-go/v18/arrow"
)

// CoordStorage returns the storage type of a coordinate buffer.
func CoordStorage(d Dimension, ct CoordType) arrow.DataType {
	if ct == Interleaved {
		return arrow.FixedSizeListOfField(int32(d.Size()),
			arrow.Field{Name: d.String(), Type: arrow.PrimitiveTypes.Float64})
	}

	names := d.Names()
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64}
	}
	return arrow.StructOf(fields...)
}

func listOf(name string, elem arrow.DataType) arrow.DataType {
	return arrow.ListOfField(arrow.Field{Name: name, Type: elem})
}

// NativeStorage returns the canonical storage type of a native kind.
func NativeStorage(k Kind, d Dimension, ct CoordType) arrow.DataType {
	coords := CoordStorage(d, ct)
	switch k {
	case KindPoint:
		return coords
	case KindLineString:
		return listOf("vertices", coords)
	case KindPolygon:
		return listOf("rings", listOf("vertices", coords))
	case KindMultiPoint:
		return listOf("points", coords)
	case KindMultiLineString:
		return listOf("linestrings", listOf("vertices", coords))
	case KindMultiPolygon:
		return listOf("polygons", listOf("rings", listOf("vertices", coords)))
	case KindGeometryCollection:
		return listOf("geometries", MixedStorage(d, ct))
	}
	panic(fmt.Sprintf("geoarrow: %s is not a native kind", k))
}

// UnionChildName is the field name of a kind inside the Geometry and
// GeometryCollection unions.
func UnionChildName(k Kind, d Dimension) string {
	switch d {
	case XYZ:
		return k.String() + " Z"
	case XYM:
		return k.String() + " M"
	case XYZM:
		return k.String() + " ZM"
	}
	return k.String()
}

// MixedStorage is the dense union held by a GeometryCollection: one
// child per non-collection kind, all in the same dimension.
func MixedStorage(d Dimension, ct CoordType) arrow.DataType {
	fields := make([]arrow.Field, 0, 6)
	codes := make([]arrow.UnionTypeCode, 0, 6)
	for k := KindPoint; k <= KindMultiPolygon; k++ {
		fields = append(fields, arrow.Field{Name: UnionChildName(k, d), Type: NativeStorage(k, d, ct), Nullable: true})
		codes = append(codes, TypeCode(k, d))
	}
	return arrow.DenseUnionOf(fields, codes)
}

// GeometryStorage is the 28 child dense union of the Geometry type. The
// child for kind k in dimension d sits at index int(d)*7 + int(k) - 1.
func GeometryStorage(ct CoordType) arrow.DataType {
	fields := make([]arrow.Field, 0, 28)
	codes := make([]arrow.UnionTypeCode, 0, 28)
	for _, d := range Dimensions {
		for k := KindPoint; k <= KindGeometryCollection; k++ {
			fields = append(fields, arrow.Field{Name: UnionChildName(k, d), Type: NativeStorage(k, d, ct), Nullable: true})
			codes = append(codes, TypeCode(k, d))
		}
	}
	return arrow.DenseUnionOf(fields, codes)
}

// GeometryChildIndex returns the position of kind k in dimension d in
// GeometryStorage.
func GeometryChildIndex(k Kind, d Dimension) int { return int(d)*7 + int(k) - 1 }

// BoxStorage returns the struct of per axis minima followed by maxima.
func BoxStorage(d Dimension) arrow.DataType {
	names := d.Names()
	fields := make([]arrow.Field, 0, 2*len(names))
	for _, suffix := range []string{"min", "max"} {
		for _, n := range names {
			fields = append(fields, arrow.Field{Name: n + suffix, Type: arrow.PrimitiveTypes.Float64})
		}
	}
	return arrow.StructOf(fields...)
}

func invalidStorage(what string, dt arrow.DataType) error {
	return fmt.Errorf("%w: %s cannot be stored as %s", ErrInvalidStorage, what, dt)
}

// ParseCoordStorage returns the dimension and layout of a coordinate
// buffer storage type.
func ParseCoordStorage(dt arrow.DataType) (Dimension, CoordType, error) {
	return parseCoords(dt)
}

// parseCoords recognizes both coordinate layouts. Three ordinate buffers
// are disambiguated by the name of the last field.
func parseCoords(dt arrow.DataType) (Dimension, CoordType, error) {
	switch dt := dt.(type) {
	case *arrow.FixedSizeListType:
		if dt.Elem().ID() != arrow.FLOAT64 {
			break
		}
		switch dt.Len() {
		case 2:
			return XY, Interleaved, nil
		case 3:
			if dt.ElemField().Name == "xym" {
				return XYM, Interleaved, nil
			}
			return XYZ, Interleaved, nil
		case 4:
			return XYZM, Interleaved, nil
		}
	case *arrow.StructType:
		for _, f := range dt.Fields() {
			if f.Type.ID() != arrow.FLOAT64 {
				return XY, Separated, invalidStorage("coordinates", dt)
			}
		}
		switch dt.NumFields() {
		case 2:
			return XY, Separated, nil
		case 3:
			if dt.Field(2).Name == "m" {
				return XYM, Separated, nil
			}
			return XYZ, Separated, nil
		case 4:
			return XYZM, Separated, nil
		}
	}
	return XY, Separated, invalidStorage("coordinates", dt)
}

// parseNative validates dt as the storage of kind k and returns its
// dimension and coordinate layout.
func parseNative(k Kind, dt arrow.DataType) (Dimension, CoordType, error) {
	if k == KindGeometryCollection {
		lt, ok := dt.(*arrow.ListType)
		if !ok {
			return XY, Separated, invalidStorage(k.String(), dt)
		}
		return parseMixed(lt.Elem())
	}

	inner := dt
	for i := 0; i < k.Depth(); i++ {
		lt, ok := inner.(*arrow.ListType)
		if !ok {
			return XY, Separated, invalidStorage(k.String(), dt)
		}
		inner = lt.Elem()
	}
	return parseCoords(inner)
}

func parseMixed(dt arrow.DataType) (Dimension, CoordType, error) {
	ut, ok := dt.(*arrow.DenseUnionType)
	if !ok || len(ut.Fields()) == 0 {
		return XY, Separated, invalidStorage("GeometryCollection member", dt)
	}

	var (
		dim Dimension
		ct  CoordType
	)
	for i, f := range ut.Fields() {
		k, d, ok := ParseTypeCode(ut.TypeCodes()[i])
		if !ok || k == KindGeometryCollection {
			return XY, Separated, invalidStorage("GeometryCollection member", dt)
		}
		cd, cct, err := parseNative(k, f.Type)
		if err != nil {
			return XY, Separated, err
		}
		if cd != d || (i > 0 && (d != dim || cct != ct)) {
			return XY, Separated, invalidStorage("GeometryCollection member", dt)
		}
		dim, ct = d, cct
	}
	return dim, ct, nil
}

// parseGeometry accepts any subset of the 28 children; they are matched
// by type code rather than by position or name.
func parseGeometry(dt arrow.DataType) (CoordType, error) {
	ut, ok := dt.(*arrow.DenseUnionType)
	if !ok {
		return Separated, invalidStorage("Geometry", dt)
	}
	ct := Separated
	for i, f := range ut.Fields() {
		k, d, ok := ParseTypeCode(ut.TypeCodes()[i])
		if !ok {
			return Separated, invalidStorage("Geometry", dt)
		}
		cd, cct, err := parseNative(k, f.Type)
		if err != nil {
			return Separated, err
		}
		if cd != d || (i > 0 && cct != ct) {
			return Separated, invalidStorage("Geometry", dt)
		}
		ct = cct
	}
	return ct, nil
}

func parseBox(dt arrow.DataType) (Dimension, error) {
	st, ok := dt.(*arrow.StructType)
	if !ok {
		return XY, invalidStorage("Box", dt)
	}
	for _, f := range st.Fields() {
		if f.Type.ID() != arrow.FLOAT64 {
			return XY, invalidStorage("Box", dt)
		}
	}
	switch st.NumFields() {
	case 4:
		return XY, nil
	case 6:
		if st.Field(2).Name == "mmin" {
			return XYM, nil
		}
		return XYZ, nil
	case 8:
		return XYZM, nil
	}
	return XY, invalidStorage("Box", dt)
}

func parseSerialized(name string, dt arrow.DataType) (Kind, error) {
	switch name {
	case ExtensionNameWKB, ExtensionNameOGCWKB:
		switch dt.ID() {
		case arrow.BINARY:
			return KindWKB, nil
		case arrow.LARGE_BINARY:
			return KindLargeWKB, nil
		}
	case ExtensionNameWKT:
		switch dt.ID() {
		case arrow.STRING:
			return KindWKT, nil
		case arrow.LARGE_STRING:
			return KindLargeWKT, nil
		}
	}
	return 0, invalidStorage(name, dt)
}
