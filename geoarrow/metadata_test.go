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

package geoarrow_test

import (
	"testing"

	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataSerialize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", geoarrow.Metadata{}.Serialize())
		m, err := geoarrow.ParseMetadata("")
		require.NoError(t, err)
		assert.True(t, m.IsEmpty())
		m, err = geoarrow.ParseMetadata("{}")
		require.NoError(t, err)
		assert.True(t, m.IsEmpty())
	})

	t.Run("authority_code", func(t *testing.T) {
		m := geoarrow.Metadata{
			CRS:   geoarrow.AuthorityCodeCRS("EPSG:4326"),
			Edges: geoarrow.EdgesSpherical,
		}
		s := m.Serialize()
		assert.Equal(t, `{"crs":"EPSG:4326","crs_type":"authority_code","edges":"spherical"}`, s)

		back, err := geoarrow.ParseMetadata(s)
		require.NoError(t, err)
		assert.True(t, m.Equal(back))
		assert.Equal(t, "EPSG:4326", back.CRS.String())
	})

	t.Run("planar_edges_omitted", func(t *testing.T) {
		m, err := geoarrow.ParseMetadata(`{"edges": "planar"}`)
		require.NoError(t, err)
		assert.True(t, m.IsEmpty())
		assert.Equal(t, "", m.Serialize())
	})

	t.Run("projjson", func(t *testing.T) {
		m, err := geoarrow.ParseMetadata(`{"crs": {"type": "GeographicCRS", "id": {"authority": "OGC", "code": "CRS84"}}}`)
		require.NoError(t, err)
		assert.Equal(t, geoarrow.CRSTypePROJJSON, m.CRS.Type())
		code, ok := m.CRS.AuthorityCode()
		require.True(t, ok)
		assert.Equal(t, "OGC:CRS84", code)
		assert.Equal(t, `{"crs":{"type":"GeographicCRS","id":{"authority":"OGC","code":"CRS84"}},"crs_type":"projjson"}`, m.Serialize())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := geoarrow.ParseMetadata(`{"edges": "curvy"}`)
		assert.ErrorIs(t, err, geoarrow.ErrInvalidMetadata)
		_, err = geoarrow.ParseMetadata(`{"crs": "x", "crs_type": "bogus"}`)
		assert.ErrorIs(t, err, geoarrow.ErrInvalidMetadata)
		_, err = geoarrow.ParseMetadata(`not json`)
		assert.ErrorIs(t, err, geoarrow.ErrInvalidMetadata)
	})
}

func TestEdges(t *testing.T) {
	for _, name := range []string{"planar", "spherical", "vincenty", "thomas", "andoyer", "karney"} {
		e, err := geoarrow.ParseEdges(name)
		require.NoError(t, err)
		assert.Equal(t, name, e.String())
	}
}

func TestCRSEquality(t *testing.T) {
	a, err := geoarrow.ProjJSONCRS([]byte(`{ "type" : "x" }`))
	require.NoError(t, err)
	b, err := geoarrow.ProjJSONCRS([]byte(`{"type":"x"}`))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(geoarrow.AuthorityCodeCRS("EPSG:4326")))

	_, err = geoarrow.ProjJSONCRS([]byte(`"EPSG:4326"`))
	assert.ErrorIs(t, err, geoarrow.ErrInvalidMetadata)
}
