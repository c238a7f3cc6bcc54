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
	"encoding/binary"
)

type config struct {
	preferMulti bool
	byteOrder   binary.ByteOrder
}

// Option configures a builder.
type Option func(*config)

// WithPreferMulti stores points, linestrings and polygons pushed into a
// Geometry or GeometryCollection builder as one part Multi* geometries.
func WithPreferMulti() Option {
	return func(c *config) { c.preferMulti = true }
}

// WithByteOrder selects the byte order WKB builders write. The default
// is little endian.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(c *config) { c.byteOrder = order }
}

func newConfig(opts []Option) config {
	c := config{byteOrder: binary.LittleEndian}
	for _, o := range opts {
		o(&c)
	}
	return c
}
