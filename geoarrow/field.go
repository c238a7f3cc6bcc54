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
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

// NewField returns a field carrying a GeoArrow extension type.
func NewField(name string, typ GeoArrowType, nullable bool) arrow.Field {
	return arrow.Field{Name: name, Type: typ, Nullable: nullable}
}

// StorageField returns a field of the storage type with the extension
// name and metadata recorded as field metadata, for consumers that do
// not register the extension types.
func StorageField(name string, typ GeoArrowType, nullable bool) arrow.Field {
	keys := []string{ExtensionKeyName}
	vals := []string{typ.ExtensionName()}
	if meta := typ.Serialize(); meta != "" {
		keys = append(keys, ExtensionKeyMetadata)
		vals = append(vals, meta)
	}
	return arrow.Field{
		Name:     name,
		Type:     typ.StorageType(),
		Nullable: nullable,
		Metadata: arrow.NewMetadata(keys, vals),
	}
}

// FromExtension builds the type named by an extension name from its
// storage type and serialized metadata.
func FromExtension(name string, storage arrow.DataType, metadata string) (GeoArrowType, error) {
	proto := prototype(name)
	if proto == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}
	t, err := proto.Deserialize(storage, metadata)
	if err != nil {
		return nil, err
	}
	return t.(GeoArrowType), nil
}

// FromDataType resolves the GeoArrow type of an arrow data type. Plain
// storage types are inferred; see InferFromStorage.
func FromDataType(dt arrow.DataType) (GeoArrowType, error) {
	switch dt := dt.(type) {
	case GeoArrowType:
		return dt, nil
	case arrow.ExtensionType:
		return FromExtension(dt.ExtensionName(), dt.StorageType(), dt.Serialize())
	}
	return InferFromStorage(dt)
}

// FromField resolves the GeoArrow type of a field, looking at the
// extension type, then at extension field metadata, then at the storage
// layout alone.
func FromField(f arrow.Field) (GeoArrowType, error) {
	if _, ok := f.Type.(arrow.ExtensionType); ok {
		return FromDataType(f.Type)
	}
	if i := f.Metadata.FindKey(ExtensionKeyName); i >= 0 {
		var meta string
		if j := f.Metadata.FindKey(ExtensionKeyMetadata); j >= 0 {
			meta = f.Metadata.Values()[j]
		}
		return FromExtension(f.Metadata.Values()[i], f.Type, meta)
	}
	return InferFromStorage(f.Type)
}

// InferFromStorage guesses a type from a storage layout with no
// extension name. List depths that fit more than one kind are resolved
// by the child field name and default to the single kind.
func InferFromStorage(dt arrow.DataType) (GeoArrowType, error) {
	switch dt.ID() {
	case arrow.BINARY:
		return NewWKBType(Metadata{}), nil
	case arrow.LARGE_BINARY:
		return NewLargeWKBType(Metadata{}), nil
	case arrow.STRING:
		return NewWKTType(Metadata{}), nil
	case arrow.LARGE_STRING:
		return NewLargeWKTType(Metadata{}), nil
	case arrow.STRUCT, arrow.FIXED_SIZE_LIST:
		return FromExtension(ExtensionNamePoint, dt, "")
	case arrow.DENSE_UNION:
		return FromExtension(ExtensionNameGeometry, dt, "")
	case arrow.LIST:
		depth, names := 0, []string{}
		inner := dt
		for inner.ID() == arrow.LIST {
			lt := inner.(*arrow.ListType)
			names = append(names, lt.ElemField().Name)
			inner = lt.Elem()
			depth++
		}
		var k Kind
		switch {
		case inner.ID() == arrow.DENSE_UNION && depth == 1:
			k = KindGeometryCollection
		case depth == 1 && names[0] == "points":
			k = KindMultiPoint
		case depth == 1:
			k = KindLineString
		case depth == 2 && names[0] == "linestrings":
			k = KindMultiLineString
		case depth == 2:
			k = KindPolygon
		case depth == 3:
			k = KindMultiPolygon
		default:
			return nil, fmt.Errorf("%w from %s", ErrAmbiguousType, dt)
		}
		t, err := FromExtension(ExtensionName(k), dt, "")
		if errors.Is(err, ErrInvalidStorage) {
			return nil, fmt.Errorf("%w from %s", ErrAmbiguousType, dt)
		}
		return t, err
	}
	return nil, fmt.Errorf("%w from %s", ErrAmbiguousType, dt)
}

// IsGeoArrowField reports whether f is declared as a GeoArrow column,
// either by its type or by extension field metadata. Storage layouts
// alone do not count.
func IsGeoArrowField(f arrow.Field) bool {
	name := ""
	if ext, ok := f.Type.(arrow.ExtensionType); ok {
		name = ext.ExtensionName()
	} else if i := f.Metadata.FindKey(ExtensionKeyName); i >= 0 {
		name = f.Metadata.Values()[i]
	}
	return name != "" && prototype(name) != nil
}

// GeometryColumn returns the index of the first GeoArrow field of schema,
// or of the field called name when name is not empty.
func GeometryColumn(schema *arrow.Schema, name string) (int, error) {
	if name != "" {
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return -1, fmt.Errorf("%w: no column %q", arrow.ErrInvalid, name)
		}
		return idx[0], nil
	}
	for i, f := range schema.Fields() {
		if IsGeoArrowField(f) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: no geoarrow column in schema", ErrAmbiguousType)
}
