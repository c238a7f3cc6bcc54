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
	"bytes"
	"fmt"

	"github.com/geoarrow/geoarrow-go/internal/json"
	"github.com/tidwall/gjson"
)

// Edges is the interpretation of the segment between two vertices.
type Edges int8

const (
	EdgesPlanar Edges = iota
	EdgesSpherical
	EdgesVincenty
	EdgesThomas
	EdgesAndoyer
	EdgesKarney
)

var edgeNames = [...]string{"planar", "spherical", "vincenty", "thomas", "andoyer", "karney"}

func (e Edges) String() string {
	if e >= 0 && int(e) < len(edgeNames) {
		return edgeNames[e]
	}
	return fmt.Sprintf("Edges(%d)", int8(e))
}

func ParseEdges(s string) (Edges, error) {
	for i, n := range edgeNames {
		if n == s {
			return Edges(i), nil
		}
	}
	return EdgesPlanar, fmt.Errorf("%w: unknown edges %q", ErrInvalidMetadata, s)
}

// CRSType tags how the value of a CRS is to be interpreted.
type CRSType string

const (
	CRSTypeUnknown       CRSType = ""
	CRSTypePROJJSON      CRSType = "projjson"
	CRSTypeWKT2_2019     CRSType = "wkt2:2019"
	CRSTypeAuthorityCode CRSType = "authority_code"
	CRSTypeSRID          CRSType = "srid"
)

// CRS is an opaque coordinate reference system carried through the
// extension metadata. The value is kept as compact JSON: an object for
// PROJJSON and a string for every other representation.
type CRS struct {
	value json.RawMessage
	typ   CRSType
}

// NewCRS wraps an arbitrary JSON value. A nil or empty raw value
// yields the empty CRS.
func NewCRS(raw []byte, typ CRSType) (CRS, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return CRS{}, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return CRS{}, fmt.Errorf("%w: crs: %s", ErrInvalidMetadata, err)
	}
	return CRS{value: buf.Bytes(), typ: typ}, nil
}

// ProjJSONCRS wraps a PROJJSON document.
func ProjJSONCRS(doc []byte) (CRS, error) {
	if !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject() {
		return CRS{}, fmt.Errorf("%w: projjson crs must be a JSON object", ErrInvalidMetadata)
	}
	return NewCRS(doc, CRSTypePROJJSON)
}

func stringCRS(s string, typ CRSType) CRS {
	if s == "" {
		return CRS{}
	}
	b, _ := json.Marshal(s)
	return CRS{value: b, typ: typ}
}

// AuthorityCodeCRS wraps an identifier such as "EPSG:4326".
func AuthorityCodeCRS(code string) CRS { return stringCRS(code, CRSTypeAuthorityCode) }

// WKT2CRS wraps a WKT2:2019 string.
func WKT2CRS(wkt string) CRS { return stringCRS(wkt, CRSTypeWKT2_2019) }

// SRIDCRS wraps an opaque SRID string.
func SRIDCRS(srid string) CRS { return stringCRS(srid, CRSTypeSRID) }

func (c CRS) IsEmpty() bool { return len(c.value) == 0 }
func (c CRS) Type() CRSType { return c.typ }
func (c CRS) Raw() json.RawMessage { return c.value }
func (c CRS) Equal(other CRS) bool { return c.typ == other.typ && bytes.Equal(c.value, other.value) }

// String returns the unquoted string value, or the JSON text of an
// object value.
func (c CRS) String() string {
	r := gjson.ParseBytes(c.value)
	if r.Type == gjson.String {
		return r.String()
	}
	return string(c.value)
}

// AuthorityCode returns an "authority:code" identifier when one can be
// read from the CRS without a projection library.
func (c CRS) AuthorityCode() (string, bool) {
	switch c.typ {
	case CRSTypeAuthorityCode:
		return c.String(), true
	case CRSTypePROJJSON, CRSTypeUnknown:
		id := gjson.GetBytes(c.value, "id")
		if !id.Exists() {
			return "", false
		}
		auth, code := id.Get("authority"), id.Get("code")
		if !auth.Exists() || !code.Exists() {
			return "", false
		}
		return auth.String() + ":" + code.String(), true
	}
	return "", false
}

// Metadata is the decoded ARROW:extension:metadata of every GeoArrow
// type.
type Metadata struct {
	CRS   CRS
	Edges Edges
}

type metadataJSON struct {
	CRS     json.RawMessage `json:"crs,omitempty"`
	CRSType string          `json:"crs_type,omitempty"`
	Edges   string          `json:"edges,omitempty"`
}

func (m Metadata) IsEmpty() bool { return m.CRS.IsEmpty() && m.Edges == EdgesPlanar }

func (m Metadata) Equal(other Metadata) bool {
	return m.Edges == other.Edges && m.CRS.Equal(other.CRS)
}

// Serialize returns the JSON document, or the empty string when there
// is neither a CRS nor non-planar edges.
func (m Metadata) Serialize() string {
	if m.IsEmpty() {
		return ""
	}
	doc := metadataJSON{CRS: m.CRS.value}
	if !m.CRS.IsEmpty() {
		doc.CRSType = string(m.CRS.typ)
	}
	if m.Edges != EdgesPlanar {
		doc.Edges = m.Edges.String()
	}
	out, err := json.Marshal(doc)
	if err != nil {
		// all members are pre-validated JSON
		panic(err)
	}
	return string(out)
}

// ParseMetadata decodes an extension metadata document. The empty
// string and "{}" both decode to the zero Metadata.
func ParseMetadata(s string) (Metadata, error) {
	if len(bytes.TrimSpace([]byte(s))) == 0 {
		return Metadata{}, nil
	}
	var doc metadataJSON
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return Metadata{}, fmt.Errorf("%w: %s", ErrInvalidMetadata, err)
	}

	var (
		m   Metadata
		err error
	)
	if doc.Edges != "" {
		if m.Edges, err = ParseEdges(doc.Edges); err != nil {
			return Metadata{}, err
		}
	}

	typ := CRSType(doc.CRSType)
	switch typ {
	case CRSTypeUnknown, CRSTypePROJJSON, CRSTypeWKT2_2019, CRSTypeAuthorityCode, CRSTypeSRID:
	default:
		return Metadata{}, fmt.Errorf("%w: unknown crs_type %q", ErrInvalidMetadata, doc.CRSType)
	}
	if typ == CRSTypeUnknown && gjson.ParseBytes(doc.CRS).IsObject() {
		typ = CRSTypePROJJSON
	}
	if m.CRS, err = NewCRS(doc.CRS, typ); err != nil {
		return Metadata{}, err
	}
	return m, nil
}
