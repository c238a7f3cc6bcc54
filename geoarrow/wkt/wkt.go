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

// Package wkt converts between geometries, or GeoArrow arrays, and OGC
// Well-Known Text.
package wkt

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"github.com/geoarrow/geoarrow-go/geoarrow/internal/wkbio"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Marshal formats g. A collection without a layout takes the layout of
// its members.
func Marshal(g geom.T) (string, error) {
	g, err := wkbio.WithCollectionLayout(g)
	if err != nil {
		return "", err
	}
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("%w: %w", geoarrow.ErrInvalidWKT, err)
	}
	return s, nil
}

// Unmarshal parses s.
func Unmarshal(s string) (geom.T, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", geoarrow.ErrInvalidWKT, err)
	}
	return g, nil
}

type config struct {
	large bool
}

type Option func(*config)

// WithLargeOffsets encodes into geoarrow.wkt with LargeUtf8 storage.
func WithLargeOffsets() Option {
	return func(c *config) { c.large = true }
}

// Encode converts any geometry array into a WKT array with the metadata
// of arr.
func Encode(mem memory.Allocator, arr geoarray.Array, opts ...Option) (*geoarray.WKTArray, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	typ := geoarrow.NewWKTType(arr.Type().Metadata())
	if cfg.large {
		typ = geoarrow.NewLargeWKTType(arr.Type().Metadata())
	}

	gs, err := geoarray.Geometries(arr)
	if err != nil {
		return nil, err
	}
	out, err := geoarray.FromGeometries(mem, typ, gs)
	if err != nil {
		return nil, fmt.Errorf("wkt: encode %s: %w", arr.Type(), err)
	}
	return out.(*geoarray.WKTArray), nil
}

// Decode parses every element of arr into an array of target.
func Decode(mem memory.Allocator, arr *geoarray.WKTArray, target geoarrow.GeoArrowType) (geoarray.Array, error) {
	gs, err := geoarray.Geometries(arr)
	if err != nil {
		return nil, err
	}
	out, err := geoarray.FromGeometries(mem, target, gs)
	if err != nil {
		return nil, fmt.Errorf("wkt: decode into %s: %w", target, err)
	}
	return out, nil
}
