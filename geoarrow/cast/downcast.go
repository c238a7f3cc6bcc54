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

package cast

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/twpayne/go-geom"
)

// Downcast returns the simplest array type able to hold the values of
// arr: a mixed Geometry array whose values share one shape and dimension
// becomes an array of that shape, and a multi array whose values have at
// most one part each becomes the single shape. When no simpler type
// exists arr is returned with an extra reference.
func Downcast(mem memory.Allocator, arr geoarray.Array) (geoarray.Array, error) {
	typ := arr.Type()
	switch typ.Kind() {
	case geoarrow.KindGeometry:
		kinds, err := geoarray.InferType(arr)
		if err != nil {
			return nil, err
		}
		k, d, ok := commonKind(kinds)
		if !ok {
			break
		}
		native := geoarrow.NewNativeType(k, d, typ.CoordType(), typ.Metadata())
		gs, err := geoarray.Geometries(arr)
		if err != nil {
			return nil, err
		}
		narrow, err := geoarray.FromGeometries(mem, native, gs)
		if err != nil {
			return nil, err
		}
		defer narrow.Release()
		return Downcast(mem, narrow)

	case geoarrow.KindMultiPoint, geoarrow.KindMultiLineString, geoarrow.KindMultiPolygon:
		single, err := singlePart(arr)
		if err != nil {
			return nil, err
		}
		if !single {
			break
		}
		d, _ := typ.Dimension()
		native := geoarrow.NewNativeType(typ.Kind().Single(), d, typ.CoordType(), typ.Metadata())
		gs, err := geoarray.Geometries(arr)
		if err != nil {
			return nil, err
		}
		return geoarray.FromGeometries(mem, native, gs)
	}

	arr.Retain()
	return arr, nil
}

// commonKind finds the one native kind holding every kind in kinds: they
// must share a dimension and be a single shape, its multi counterpart or
// both.
func commonKind(kinds []geoarray.GeometryKind) (geoarrow.Kind, geoarrow.Dimension, bool) {
	if len(kinds) == 0 {
		return 0, 0, false
	}
	k, d := kinds[0].Kind.Multi(), kinds[0].Dim
	single := true
	for _, gk := range kinds {
		if gk.Dim != d || gk.Kind.Multi() != k {
			return 0, 0, false
		}
		if gk.Kind == k && k != k.Single() {
			single = false
		}
	}
	if single {
		k = k.Single()
	}
	return k, d, true
}

// singlePart reports whether no element of a multi array has more than
// one part.
func singlePart(arr geoarray.Array) (bool, error) {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		g, err := arr.Geometry(i)
		if err != nil {
			return false, geoarrow.AtRow(i, err)
		}
		var n int
		switch g := g.(type) {
		case *geom.MultiPoint:
			n = g.NumPoints()
		case *geom.MultiLineString:
			n = g.NumLineStrings()
		case *geom.MultiPolygon:
			n = g.NumPolygons()
		}
		if n > 1 {
			return false, nil
		}
	}
	return true, nil
}
