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

// Package cast converts GeoArrow arrays between extension types.
//
// Widening casts never fail on values: a single geometry becomes a
// one-part multi geometry, any dimensioned array becomes a mixed
// Geometry array, and anything can be serialized as WKB or WKT. A
// serialized array can be parsed into any other type, failing with the
// row of the first value that does not fit. Narrowing is the job of
// Downcast, which looks at the values first.
package cast

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/geoarrow/geoarrow-go/geoarrow/geoarray"
	"golang.org/x/sync/errgroup"
)

// CanCast reports whether arrays of from may be cast to to, returning
// the reason when they may not. It does not look at values, so decoding a
// serialized array can still fail in Cast.
func CanCast(from, to geoarrow.GeoArrowType) error {
	if to.Kind().IsSerialized() {
		return nil
	}
	if !from.Metadata().Equal(to.Metadata()) {
		return fmt.Errorf("%w: cannot cast %s to %s", geoarrow.ErrMetadataMismatch, from, to)
	}
	if from.Kind().IsSerialized() {
		return nil
	}

	unsupported := fmt.Errorf("%w: %s to %s", geoarrow.ErrUnsupportedCast, from, to)
	fromDim, fromFixed := from.Dimension()
	toDim, toFixed := to.Dimension()
	switch {
	case !toFixed:
		// everything widens into the mixed Geometry type
		return nil
	case !fromFixed:
		return unsupported
	case fromDim != toDim:
		return fmt.Errorf("%w: cannot cast %s to %s", geoarrow.ErrDimensionMismatch, from, to)
	}

	switch fk, tk := from.Kind(), to.Kind(); {
	case fk == tk:
		return nil
	case fk == geoarrow.KindPoint || fk == geoarrow.KindLineString || fk == geoarrow.KindPolygon:
		if tk == fk.Multi() {
			return nil
		}
	}
	return unsupported
}

// Cast converts arr to target. The result has target's type except that
// a serialized target without metadata inherits the metadata of arr.
// Casting to an identical type returns arr with an extra reference.
func Cast(mem memory.Allocator, arr geoarray.Array, target geoarrow.GeoArrowType) (geoarray.Array, error) {
	if err := CanCast(arr.Type(), target); err != nil {
		return nil, err
	}
	if target.Kind().IsSerialized() && target.Metadata().IsEmpty() {
		target = target.WithMetadata(arr.Type().Metadata())
	}
	if arr.Type().ExtensionEquals(target) {
		arr.Retain()
		return arr, nil
	}

	gs, err := geoarray.Geometries(arr)
	if err != nil {
		return nil, err
	}
	out, err := geoarray.FromGeometries(mem, target, gs)
	if err != nil {
		return nil, fmt.Errorf("cast %s to %s: %w", arr.Type(), target, err)
	}
	return out, nil
}

// CastChunks casts the chunks of a column concurrently. The output keeps
// the chunk order. If any chunk fails, the chunks already cast are
// released and the first error is returned.
func CastChunks(ctx context.Context, mem memory.Allocator, chunks []geoarray.Array, target geoarrow.GeoArrowType) ([]geoarray.Array, error) {
	out := make([]geoarray.Array, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Cast(mem, chunk, target)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, a := range out {
			if a != nil {
				a.Release()
			}
		}
		return nil, err
	}
	return out, nil
}
