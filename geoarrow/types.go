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
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

const (
	ExtensionNamePoint              = "geoarrow.point"
	ExtensionNameLineString         = "geoarrow.linestring"
	ExtensionNamePolygon            = "geoarrow.polygon"
	ExtensionNameMultiPoint         = "geoarrow.multipoint"
	ExtensionNameMultiLineString    = "geoarrow.multilinestring"
	ExtensionNameMultiPolygon       = "geoarrow.multipolygon"
	ExtensionNameGeometryCollection = "geoarrow.geometrycollection"
	ExtensionNameGeometry           = "geoarrow.geometry"
	ExtensionNameBox                = "geoarrow.box"
	ExtensionNameWKB                = "geoarrow.wkb"
	ExtensionNameOGCWKB             = "ogc.wkb"
	ExtensionNameWKT                = "geoarrow.wkt"

	ExtensionKeyName     = "ARROW:extension:name"
	ExtensionKeyMetadata = "ARROW:extension:metadata"
)

// ExtensionName returns the registered extension name of a kind.
func ExtensionName(k Kind) string {
	switch k {
	case KindPoint:
		return ExtensionNamePoint
	case KindLineString:
		return ExtensionNameLineString
	case KindPolygon:
		return ExtensionNamePolygon
	case KindMultiPoint:
		return ExtensionNameMultiPoint
	case KindMultiLineString:
		return ExtensionNameMultiLineString
	case KindMultiPolygon:
		return ExtensionNameMultiPolygon
	case KindGeometryCollection:
		return ExtensionNameGeometryCollection
	case KindGeometry:
		return ExtensionNameGeometry
	case KindBox:
		return ExtensionNameBox
	case KindWKB, KindLargeWKB:
		return ExtensionNameWKB
	case KindWKT, KindLargeWKT:
		return ExtensionNameWKT
	}
	return ""
}

// GeoArrowType is implemented by every extension type of this package.
type GeoArrowType interface {
	arrow.ExtensionType

	Kind() Kind
	Metadata() Metadata
	// Dimension reports the coordinate dimension, if the type fixes one.
	Dimension() (Dimension, bool)
	// CoordType is Separated for types without a coordinate buffer.
	CoordType() CoordType
	WithMetadata(Metadata) GeoArrowType
	WithCoordType(CoordType) GeoArrowType
}

// NativeType is the extension type of the seven dimensioned geometry
// kinds, from geoarrow.point to geoarrow.geometrycollection.
type NativeType struct {
	arrow.ExtensionBase
	kind      Kind
	dim       Dimension
	coordType CoordType
	meta      Metadata
}

// NewNativeType creates the type of kind k with canonical storage. It
// panics when k is not a native kind.
func NewNativeType(k Kind, d Dimension, ct CoordType, meta Metadata) *NativeType {
	if !k.IsNative() {
		panic(fmt.Sprintf("geoarrow: %s is not a native kind", k))
	}
	return &NativeType{
		ExtensionBase: arrow.ExtensionBase{Storage: NativeStorage(k, d, ct)},
		kind:          k,
		dim:           d,
		coordType:     ct,
		meta:          meta,
	}
}

func NewPointType(d Dimension, ct CoordType, meta Metadata) *NativeType {
	return NewNativeType(KindPoint, d, ct, meta)
}

func NewLineStringType(d Dimension, ct CoordType, meta Metadata) *NativeType {
	return NewNativeType(KindLineString, d, ct, meta)
}

func NewPolygonType(d Dimension, ct CoordType, meta Metadata) *NativeType {
	return NewNativeType(KindPolygon, d, ct, meta)
}

func NewMultiPointType(d Dimension, ct CoordType, meta Metadata) *NativeType {
	return NewNativeType(KindMultiPoint, d, ct, meta)
}

func NewMultiLineStringType(d Dimension, ct CoordType, meta Metadata) *NativeType {
	return NewNativeType(KindMultiLineString, d, ct, meta)
}

func NewMultiPolygonType(d Dimension, ct CoordType, meta Metadata) *NativeType {
	return NewNativeType(KindMultiPolygon, d, ct, meta)
}

func NewGeometryCollectionType(d Dimension, ct CoordType, meta Metadata) *NativeType {
	return NewNativeType(KindGeometryCollection, d, ct, meta)
}

func (*NativeType) ArrayType() reflect.Type { return reflect.TypeOf(ExtensionArray{}) }

func (t *NativeType) ExtensionName() string { return ExtensionName(t.kind) }

func (t *NativeType) String() string {
	return fmt.Sprintf("extension<%s[%s, %s]>", t.ExtensionName(), t.dim, t.coordType)
}

// ExtensionEquals compares the logical type only: two arrays of the same
// kind, dimension, layout and metadata are interchangeable even if their
// storage child names differ.
func (t *NativeType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*NativeType)
	return ok && t.kind == o.kind && t.dim == o.dim &&
		t.coordType == o.coordType && t.meta.Equal(o.meta)
}

func (t *NativeType) Serialize() string { return t.meta.Serialize() }

func (t *NativeType) Deserialize(storage arrow.DataType, data string) (arrow.ExtensionType, error) {
	meta, err := ParseMetadata(data)
	if err != nil {
		return nil, err
	}
	dim, ct, err := parseNative(t.kind, storage)
	if err != nil {
		return nil, err
	}
	return &NativeType{
		ExtensionBase: arrow.ExtensionBase{Storage: storage},
		kind:          t.kind,
		dim:           dim,
		coordType:     ct,
		meta:          meta,
	}, nil
}

func (t *NativeType) Kind() Kind { return t.kind }
func (t *NativeType) Dim() Dimension { return t.dim }
func (t *NativeType) Dimension() (Dimension, bool) { return t.dim, true }
func (t *NativeType) CoordType() CoordType { return t.coordType }
func (t *NativeType) Metadata() Metadata { return t.meta }

func (t *NativeType) WithMetadata(m Metadata) GeoArrowType {
	out := *t
	out.meta = m
	return &out
}

func (t *NativeType) WithCoordType(ct CoordType) GeoArrowType {
	return NewNativeType(t.kind, t.dim, ct, t.meta)
}

// WithKind returns the type of another native kind with the same
// dimension, layout and metadata.
func (t *NativeType) WithKind(k Kind) *NativeType {
	return NewNativeType(k, t.dim, t.coordType, t.meta)
}

// GeometryType is the dimensionless mixed geometry type stored as a
// dense union over every native kind and dimension.
type GeometryType struct {
	arrow.ExtensionBase
	coordType CoordType
	meta      Metadata
}

func NewGeometryType(ct CoordType, meta Metadata) *GeometryType {
	return &GeometryType{
		ExtensionBase: arrow.ExtensionBase{Storage: GeometryStorage(ct)},
		coordType:     ct,
		meta:          meta,
	}
}

func (*GeometryType) ArrayType() reflect.Type { return reflect.TypeOf(ExtensionArray{}) }
func (*GeometryType) ExtensionName() string { return ExtensionNameGeometry }

func (t *GeometryType) String() string {
	return fmt.Sprintf("extension<%s[%s]>", ExtensionNameGeometry, t.coordType)
}

func (t *GeometryType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*GeometryType)
	return ok && t.coordType == o.coordType && t.meta.Equal(o.meta)
}

func (t *GeometryType) Serialize() string { return t.meta.Serialize() }

func (t *GeometryType) Deserialize(storage arrow.DataType, data string) (arrow.ExtensionType, error) {
	meta, err := ParseMetadata(data)
	if err != nil {
		return nil, err
	}
	ct, err := parseGeometry(storage)
	if err != nil {
		return nil, err
	}
	return &GeometryType{
		ExtensionBase: arrow.ExtensionBase{Storage: storage},
		coordType:     ct,
		meta:          meta,
	}, nil
}

func (*GeometryType) Kind() Kind { return KindGeometry }
func (*GeometryType) Dimension() (Dimension, bool) { return XY, false }
func (t *GeometryType) CoordType() CoordType { return t.coordType }
func (t *GeometryType) Metadata() Metadata { return t.meta }

func (t *GeometryType) WithMetadata(m Metadata) GeoArrowType {
	out := *t
	out.meta = m
	return &out
}

func (t *GeometryType) WithCoordType(ct CoordType) GeoArrowType {
	return NewGeometryType(ct, t.meta)
}

// BoxType stores one axis aligned bounding box per element.
type BoxType struct {
	arrow.ExtensionBase
	dim  Dimension
	meta Metadata
}

func NewBoxType(d Dimension, meta Metadata) *BoxType {
	return &BoxType{
		ExtensionBase: arrow.ExtensionBase{Storage: BoxStorage(d)},
		dim:           d,
		meta:          meta,
	}
}

func (*BoxType) ArrayType() reflect.Type { return reflect.TypeOf(ExtensionArray{}) }
func (*BoxType) ExtensionName() string { return ExtensionNameBox }

func (t *BoxType) String() string {
	return fmt.Sprintf("extension<%s[%s]>", ExtensionNameBox, t.dim)
}

func (t *BoxType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*BoxType)
	return ok && t.dim == o.dim && t.meta.Equal(o.meta)
}

func (t *BoxType) Serialize() string { return t.meta.Serialize() }

func (t *BoxType) Deserialize(storage arrow.DataType, data string) (arrow.ExtensionType, error) {
	meta, err := ParseMetadata(data)
	if err != nil {
		return nil, err
	}
	dim, err := parseBox(storage)
	if err != nil {
		return nil, err
	}
	return &BoxType{ExtensionBase: arrow.ExtensionBase{Storage: storage}, dim: dim, meta: meta}, nil
}

func (*BoxType) Kind() Kind { return KindBox }
func (t *BoxType) Dim() Dimension { return t.dim }
func (t *BoxType) Dimension() (Dimension, bool) { return t.dim, true }
func (*BoxType) CoordType() CoordType { return Separated }
func (t *BoxType) Metadata() Metadata { return t.meta }

func (t *BoxType) WithMetadata(m Metadata) GeoArrowType {
	out := *t
	out.meta = m
	return &out
}

func (t *BoxType) WithCoordType(CoordType) GeoArrowType { return t }

// SerializedType covers the WKB and WKT encodings with 32 and 64 bit
// offsets.
type SerializedType struct {
	arrow.ExtensionBase
	kind  Kind
	meta  Metadata
	alias string // overrides the extension name, for ogc.wkb
}

func newSerializedType(k Kind, meta Metadata) *SerializedType {
	var storage arrow.DataType
	switch k {
	case KindWKB:
		storage = arrow.BinaryTypes.Binary
	case KindLargeWKB:
		storage = arrow.BinaryTypes.LargeBinary
	case KindWKT:
		storage = arrow.BinaryTypes.String
	case KindLargeWKT:
		storage = arrow.BinaryTypes.LargeString
	default:
		panic(fmt.Sprintf("geoarrow: %s is not a serialized kind", k))
	}
	return &SerializedType{ExtensionBase: arrow.ExtensionBase{Storage: storage}, kind: k, meta: meta}
}

func NewWKBType(meta Metadata) *SerializedType { return newSerializedType(KindWKB, meta) }
func NewLargeWKBType(meta Metadata) *SerializedType { return newSerializedType(KindLargeWKB, meta) }
func NewWKTType(meta Metadata) *SerializedType { return newSerializedType(KindWKT, meta) }
func NewLargeWKTType(meta Metadata) *SerializedType { return newSerializedType(KindLargeWKT, meta) }

func (*SerializedType) ArrayType() reflect.Type { return reflect.TypeOf(ExtensionArray{}) }

func (t *SerializedType) ExtensionName() string {
	if t.alias != "" {
		return t.alias
	}
	return ExtensionName(t.kind)
}

func (t *SerializedType) String() string {
	return fmt.Sprintf("extension<%s[%s]>", t.ExtensionName(), t.Storage)
}

func (t *SerializedType) ExtensionEquals(other arrow.ExtensionType) bool {
	o, ok := other.(*SerializedType)
	return ok && t.kind == o.kind && t.meta.Equal(o.meta)
}

func (t *SerializedType) Serialize() string { return t.meta.Serialize() }

func (t *SerializedType) Deserialize(storage arrow.DataType, data string) (arrow.ExtensionType, error) {
	meta, err := ParseMetadata(data)
	if err != nil {
		return nil, err
	}
	k, err := parseSerialized(t.ExtensionName(), storage)
	if err != nil {
		return nil, err
	}
	out := newSerializedType(k, meta)
	out.alias = t.alias
	return out, nil
}

func (t *SerializedType) Kind() Kind { return t.kind }
func (*SerializedType) Dimension() (Dimension, bool) { return XY, false }
func (*SerializedType) CoordType() CoordType { return Separated }
func (t *SerializedType) Metadata() Metadata { return t.meta }

// IsLarge reports whether the storage uses 64 bit offsets.
func (t *SerializedType) IsLarge() bool { return t.kind == KindLargeWKB || t.kind == KindLargeWKT }

func (t *SerializedType) WithMetadata(m Metadata) GeoArrowType {
	out := *t
	out.meta = m
	return &out
}

func (t *SerializedType) WithCoordType(CoordType) GeoArrowType { return t }

// ExtensionArray is the arrow array type shared by every GeoArrow
// extension type. Geometry access goes through the geoarray package.
type ExtensionArray struct {
	array.ExtensionArrayBase
}

func (a *ExtensionArray) ValueStr(i int) string {
	if a.IsNull(i) {
		return array.NullValueStr
	}
	return a.Storage().ValueStr(i)
}

func (a *ExtensionArray) GetOneForMarshal(i int) any {
	if a.IsNull(i) {
		return nil
	}
	return a.Storage().GetOneForMarshal(i)
}

var (
	_ GeoArrowType         = (*NativeType)(nil)
	_ GeoArrowType         = (*GeometryType)(nil)
	_ GeoArrowType         = (*BoxType)(nil)
	_ GeoArrowType         = (*SerializedType)(nil)
	_ array.ExtensionArray = (*ExtensionArray)(nil)
)
