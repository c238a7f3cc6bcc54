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

// Package wkbio reads and writes single geometries as ISO Well Known
// Binary. Extended WKB flags are accepted on read.
package wkbio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkbcommon"
)

var (
	// XDR is big endian.
	XDR = wkbcommon.XDR
	// NDR is little endian.
	NDR = wkbcommon.NDR
)

const (
	ewkbZ    = 0x80000000
	ewkbM    = 0x40000000
	ewkbSRID = 0x20000000

	maxNesting = 64
)

// Unmarshal decodes exactly one geometry from data. Every failure wraps
// geoarrow.ErrInvalidWKB.
func Unmarshal(data []byte) (geom.T, error) {
	r := bytes.NewReader(data)
	g, err := read(r, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", geoarrow.ErrInvalidWKB, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", geoarrow.ErrInvalidWKB, r.Len())
	}
	return g, nil
}

type header struct {
	order  binary.ByteOrder
	kind   geoarrow.Kind
	layout geom.Layout
}

func readHeader(r *bytes.Reader) (header, error) {
	var h header
	bo, err := wkbcommon.ReadByte(r)
	if err != nil {
		return h, err
	}
	switch bo {
	case wkbcommon.XDRID:
		h.order = XDR
	case wkbcommon.NDRID:
		h.order = NDR
	default:
		return h, wkbcommon.ErrUnknownByteOrder(bo)
	}

	raw, err := wkbcommon.ReadUInt32(r, h.order)
	if err != nil {
		return h, err
	}
	if raw&ewkbSRID != 0 {
		if _, err := wkbcommon.ReadUInt32(r, h.order); err != nil {
			return h, err
		}
	}

	code := raw &^ (ewkbZ | ewkbM | ewkbSRID)
	hasZ, hasM := raw&ewkbZ != 0, raw&ewkbM != 0
	switch code / 1000 {
	case 0:
	case 1:
		hasZ = true
	case 2:
		hasM = true
	case 3:
		hasZ, hasM = true, true
	default:
		return h, wkbcommon.ErrUnknownType(raw)
	}

	h.kind = geoarrow.Kind(code % 1000)
	if !h.kind.IsNative() {
		return h, wkbcommon.ErrUnknownType(raw)
	}
	switch {
	case hasZ && hasM:
		h.layout = geom.XYZM
	case hasZ:
		h.layout = geom.XYZ
	case hasM:
		h.layout = geom.XYM
	default:
		h.layout = geom.XY
	}
	return h, nil
}

func readCount(r *bytes.Reader, order binary.ByteOrder, minSize int) (int, error) {
	n, err := wkbcommon.ReadUInt32(r, order)
	if err != nil {
		return 0, err
	}
	// every element needs at least minSize bytes; reject counts the
	// remaining input cannot hold before allocating for them
	if int64(n)*int64(minSize) > int64(r.Len()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(n), nil
}

func readFlat(r *bytes.Reader, order binary.ByteOrder, n, stride int) ([]float64, error) {
	flat := make([]float64, n*stride)
	if err := binary.Read(r, order, flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func readRings(r *bytes.Reader, order binary.ByteOrder, stride int) ([]float64, []int, error) {
	nrings, err := readCount(r, order, 4)
	if err != nil {
		return nil, nil, err
	}
	var (
		flat []float64
		ends []int
	)
	for i := 0; i < nrings; i++ {
		n, err := readCount(r, order, 8*stride)
		if err != nil {
			return nil, nil, err
		}
		ring, err := readFlat(r, order, n, stride)
		if err != nil {
			return nil, nil, err
		}
		flat = append(flat, ring...)
		ends = append(ends, len(flat))
	}
	return flat, ends, nil
}

func read(r *bytes.Reader, depth int) (geom.T, error) {
	if depth > maxNesting {
		return nil, fmt.Errorf("geometry nested deeper than %d levels", maxNesting)
	}
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	stride := h.layout.Stride()

	switch h.kind {
	case geoarrow.KindPoint:
		flat, err := readFlat(r, h.order, 1, stride)
		if err != nil {
			return nil, err
		}
		return geom.NewPointFlatMaybeEmpty(h.layout, flat), nil
	case geoarrow.KindLineString:
		n, err := readCount(r, h.order, 8*stride)
		if err != nil {
			return nil, err
		}
		flat, err := readFlat(r, h.order, n, stride)
		if err != nil {
			return nil, err
		}
		return geom.NewLineStringFlat(h.layout, flat), nil
	case geoarrow.KindPolygon:
		flat, ends, err := readRings(r, h.order, stride)
		if err != nil {
			return nil, err
		}
		return geom.NewPolygonFlat(h.layout, flat, ends), nil
	case geoarrow.KindMultiPoint, geoarrow.KindMultiLineString, geoarrow.KindMultiPolygon:
		return readMulti(r, h, depth)
	default:
		n, err := readCount(r, h.order, 5)
		if err != nil {
			return nil, err
		}
		gc := geom.NewGeometryCollection()
		for i := 0; i < n; i++ {
			g, err := read(r, depth+1)
			if err != nil {
				return nil, err
			}
			if g.Layout() != h.layout {
				return nil, geom.ErrLayoutMismatch{Got: g.Layout(), Want: h.layout}
			}
			if err := gc.Push(g); err != nil {
				return nil, err
			}
		}
		if err := gc.SetLayout(h.layout); err != nil {
			return nil, err
		}
		return gc, nil
	}
}

func readMulti(r *bytes.Reader, h header, depth int) (geom.T, error) {
	n, err := readCount(r, h.order, 5)
	if err != nil {
		return nil, err
	}
	parts := make([]geom.T, 0, n)
	for i := 0; i < n; i++ {
		g, err := read(r, depth+1)
		if err != nil {
			return nil, err
		}
		if k, _ := geoarrow.KindOf(g); k.Multi() != h.kind || k == h.kind {
			return nil, wkbcommon.ErrUnexpectedType{Got: g, Want: h.kind.Single().String()}
		}
		if g.Layout() != h.layout {
			return nil, geom.ErrLayoutMismatch{Got: g.Layout(), Want: h.layout}
		}
		parts = append(parts, g)
	}

	switch h.kind {
	case geoarrow.KindMultiPoint:
		mp := geom.NewMultiPoint(h.layout)
		for _, p := range parts {
			if err := mp.Push(p.(*geom.Point)); err != nil {
				return nil, err
			}
		}
		return mp, nil
	case geoarrow.KindMultiLineString:
		mls := geom.NewMultiLineString(h.layout)
		for _, ls := range parts {
			if err := mls.Push(ls.(*geom.LineString)); err != nil {
				return nil, err
			}
		}
		return mls, nil
	default:
		mp := geom.NewMultiPolygon(h.layout)
		for _, p := range parts {
			if err := mp.Push(p.(*geom.Polygon)); err != nil {
				return nil, err
			}
		}
		return mp, nil
	}
}
