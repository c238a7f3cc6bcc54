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

// Package wkb encodes geometries as OGC Well-Known Binary and converts
// between GeoArrow arrays and WKB arrays.
//
// The writer emits ISO type codes (1000, 2000 and 3000 offsets for Z, M
// and ZM). The reader also accepts the EWKB flag bits and skips an EWKB
// SRID. Malformed input yields an error wrapping geoarrow.ErrInvalidWKB.
package wkb

import (
	"encoding/binary"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/geoarrow/geoarrow-go/geoarrow/internal/wkbio"
	"github.com/twpayne/go-geom"
)

// Size returns the exact encoded size of g.
func Size(g geom.T) (int, error) { return wkbio.Size(g) }

// Append encodes g at the end of dst, growing it at most once.
func Append(dst []byte, g geom.T, order binary.ByteOrder) ([]byte, error) {
	return wkbio.Append(dst, g, order)
}

// Marshal encodes g into a new slice.
func Marshal(g geom.T, order binary.ByteOrder) ([]byte, error) {
	return wkbio.Marshal(g, order)
}

// Unmarshal decodes exactly one geometry from data.
func Unmarshal(data []byte) (geom.T, error) { return wkbio.Unmarshal(data) }

type config struct {
	order binary.ByteOrder
	large bool
}

type Option func(*config)

// WithByteOrder sets the byte order of encoded values. The default is
// little endian.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(c *config) { c.order = order }
}

// WithLargeOffsets encodes into geoarrow.wkb with LargeBinary storage.
func WithLargeOffsets() Option {
	return func(c *config) { c.large = true }
}

// Encode converts any geometry array into a WKB array holding the same
// elements. The output carries the metadata of arr; nulls stay null.
// The values buffer is sized once from the exact encoded length.
func Encode(mem memory.Allocator, arr geoarray.Array, opts ...Option) (*geoarray.WKBArray, error) {
	cfg := config{order: binary.LittleEndian}
	for _, o := range opts {
		o(&cfg)
	}

	typ := geoarrow.NewWKBType(arr.Type().Metadata())
	if cfg.large {
		typ = geoarrow.NewLargeWKBType(arr.Type().Metadata())
	}

	gs, err := geoarray.Geometries(arr)
	if err != nil {
		return nil, err
	}
	out, err := geoarray.FromGeometries(mem, typ, gs, geoarray.WithByteOrder(cfg.order))
	if err != nil {
		return nil, fmt.Errorf("wkb: encode %s: %w", arr.Type(), err)
	}
	return out.(*geoarray.WKBArray), nil
}

// Decode parses every element of arr into an array of target, which may
// be any native type, Geometry, Box or a serialized type. A geometry that
// target cannot hold fails the whole decode with its row.
func Decode(mem memory.Allocator, arr *geoarray.WKBArray, target geoarrow.GeoArrowType) (geoarray.Array, error) {
	gs, err := geoarray.Geometries(arr)
	if err != nil {
		return nil, err
	}
	out, err := geoarray.FromGeometries(mem, target, gs)
	if err != nil {
		return nil, fmt.Errorf("wkb: decode into %s: %w", target, err)
	}
	return out, nil
}
