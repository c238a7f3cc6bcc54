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
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
)

func prototypes() []arrow.ExtensionType {
	ogc := NewWKBType(Metadata{})
	ogc.alias = ExtensionNameOGCWKB
	return []arrow.ExtensionType{
		NewPointType(XY, Separated, Metadata{}),
		NewLineStringType(XY, Separated, Metadata{}),
		NewPolygonType(XY, Separated, Metadata{}),
		NewMultiPointType(XY, Separated, Metadata{}),
		NewMultiLineStringType(XY, Separated, Metadata{}),
		NewMultiPolygonType(XY, Separated, Metadata{}),
		NewGeometryCollectionType(XY, Separated, Metadata{}),
		NewGeometryType(Separated, Metadata{}),
		NewBoxType(XY, Metadata{}),
		NewWKBType(Metadata{}),
		ogc,
		NewWKTType(Metadata{}),
	}
}

var protoByName = func() map[string]arrow.ExtensionType {
	out := make(map[string]arrow.ExtensionType)
	for _, p := range prototypes() {
		out[p.ExtensionName()] = p
	}
	return out
}()

func prototype(name string) arrow.ExtensionType { return protoByName[name] }

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterExtensionTypes registers every GeoArrow extension type with
// the arrow registry so that IPC, Parquet and C data imports produce
// extension arrays. Earlier registrations under the same names are
// replaced. It is safe to call more than once.
func RegisterExtensionTypes() error {
	registerOnce.Do(func() {
		for _, p := range prototypes() {
			if arrow.GetExtensionType(p.ExtensionName()) != nil {
				if registerErr = arrow.UnregisterExtensionType(p.ExtensionName()); registerErr != nil {
					return
				}
			}
			if registerErr = arrow.RegisterExtensionType(p); registerErr != nil {
				return
			}
		}
	})
	return registerErr
}
