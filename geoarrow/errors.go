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

// Package geoarrow defines the GeoArrow extension types for Apache Arrow:
// the dimension and coordinate layout vocabulary, the extension metadata
// document, the storage layouts of every geometry kind and the
// registration of all types with the arrow extension registry.
package geoarrow

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
)

var (
	ErrDimensionMismatch  = fmt.Errorf("%w: dimension mismatch", arrow.ErrInvalid)
	ErrOffsetOverflow     = fmt.Errorf("%w: offset overflow", arrow.ErrInvalid)
	ErrLengthMismatch     = fmt.Errorf("%w: length mismatch", arrow.ErrInvalid)
	ErrInvalidStorage     = fmt.Errorf("%w: invalid geoarrow storage type", arrow.ErrInvalid)
	ErrInvalidMetadata    = fmt.Errorf("%w: invalid geoarrow extension metadata", arrow.ErrInvalid)
	ErrMetadataMismatch   = fmt.Errorf("%w: metadata mismatch", arrow.ErrInvalid)
	ErrUnexpectedGeometry = fmt.Errorf("%w: unexpected geometry type", arrow.ErrInvalid)
	ErrInvalidWKB         = fmt.Errorf("%w: invalid wkb", arrow.ErrInvalid)
	ErrInvalidWKT         = fmt.Errorf("%w: invalid wkt", arrow.ErrInvalid)
	ErrUnsupportedCast    = fmt.Errorf("%w: unsupported geoarrow cast", arrow.ErrNotImplemented)
	ErrUnknownExtension   = fmt.Errorf("%w: unknown geoarrow extension", arrow.ErrType)
	ErrAmbiguousType      = fmt.Errorf("%w: cannot infer geoarrow type", arrow.ErrType)
)

// RowError attaches the index of the offending element to an error
// raised while processing an array.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// AtRow wraps err in a RowError unless it already carries a row.
func AtRow(row int, err error) error {
	if err == nil {
		return nil
	}
	var re *RowError
	if errors.As(err, &re) {
		return err
	}
	return &RowError{Row: row, Err: err}
}
