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

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/docopt/docopt-go"
	"github.com/geoarrow/geoarrow-go/geoarrow"
	"github.com/pterm/pterm"
)

const usage = `GeoArrow tool.
Usage:
  geoarrow info [-v] [--geometry=COLUMN] <file>
  geoarrow convert [-v] [--geometry=COLUMN] [--crs=CRS] [--encoding=ENCODING] [--compression=CODEC] <input> <output>
  geoarrow cast [-v] [--geometry=COLUMN] [--crs=CRS] [--dimension=DIM] [--coords=COORDS] [--downcast] [--type=TYPE] <input> <output>
  geoarrow -h | --help
Options:
  -h --help                Show this screen.
  -v --verbose             Log progress.
  --geometry=COLUMN        Geometry column; the first GeoArrow column, or "geometry" for CSV, when empty.
  --crs=CRS                CRS of the geometry column when the input does not carry one:
                           an authority code such as EPSG:4326 or a PROJJSON document.
  --encoding=ENCODING      GeoParquet geometry encoding, wkb or native [default: wkb].
  --compression=CODEC      Parquet compression, snappy, zstd, gzip or none [default: snappy].
  --type=TYPE              Target type: point, linestring, polygon, multipoint, multilinestring,
                           multipolygon, geometrycollection, geometry, wkb, largewkb, wkt or largewkt [default: geometry].
  --dimension=DIM          Dimension of native targets, xy, xyz, xym or xyzm [default: xy].
  --coords=COORDS          Coordinate layout of native targets, separated or interleaved [default: separated].
  --downcast               Simplify to the narrowest type that holds every value instead of casting.

Input formats are chosen by extension: .csv (with a WKT column), .arrow (IPC stream),
.parquet and .fgb. Outputs may also be .geojson.`

type config struct {
	Info    bool `docopt:"info"`
	Convert bool `docopt:"convert"`
	Cast    bool `docopt:"cast"`

	Verbose     bool   `docopt:"--verbose"`
	Geometry    string `docopt:"--geometry"`
	CRS         string `docopt:"--crs"`
	Encoding    string `docopt:"--encoding"`
	Compression string `docopt:"--compression"`
	Type        string `docopt:"--type"`
	Dimension   string `docopt:"--dimension"`
	Coords      string `docopt:"--coords"`
	Downcast    bool   `docopt:"--downcast"`

	File   string `docopt:"<file>"`
	Input  string `docopt:"<input>"`
	Output string `docopt:"<output>"`
}

// parseCRS reads the --crs flag. A JSON object is taken as PROJJSON and
// anything else as an authority code.
func parseCRS(s string) (geoarrow.CRS, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return geoarrow.CRS{}, nil
	case strings.HasPrefix(s, "{"):
		return geoarrow.ProjJSONCRS([]byte(s))
	default:
		return geoarrow.AuthorityCodeCRS(s), nil
	}
}

func parseDimension(s string) (geoarrow.Dimension, error) {
	for _, d := range geoarrow.Dimensions {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return geoarrow.XY, fmt.Errorf("unknown dimension %q", s)
}

// targetType builds the type named by --type, carrying meta.
func targetType(name string, dim geoarrow.Dimension, ct geoarrow.CoordType, meta geoarrow.Metadata) (geoarrow.GeoArrowType, error) {
	switch strings.ToLower(name) {
	case "geometry":
		return geoarrow.NewGeometryType(ct, meta), nil
	case "wkb":
		return geoarrow.NewWKBType(meta), nil
	case "largewkb":
		return geoarrow.NewLargeWKBType(meta), nil
	case "wkt":
		return geoarrow.NewWKTType(meta), nil
	case "largewkt":
		return geoarrow.NewLargeWKTType(meta), nil
	case "box":
		return geoarrow.NewBoxType(dim, meta), nil
	}
	for k := geoarrow.KindPoint; k <= geoarrow.KindGeometryCollection; k++ {
		if strings.EqualFold(name, k.String()) {
			return geoarrow.NewNativeType(k, dim, ct, meta), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown target type %q", geoarrow.ErrUnknownExtension, name)
}

func run(ctx context.Context, cfg config, logger *pterm.Logger) error {
	mem := memory.DefaultAllocator
	crs, err := parseCRS(cfg.CRS)
	if err != nil {
		return err
	}

	switch {
	case cfg.Info:
		tbl, err := readTable(ctx, mem, cfg.File, cfg.Geometry, crs)
		if err != nil {
			return err
		}
		defer tbl.Release()
		return describe(os.Stdout, tbl)
	case cfg.Convert:
		tbl, err := readTable(ctx, mem, cfg.Input, cfg.Geometry, crs)
		if err != nil {
			return err
		}
		defer tbl.Release()
		logger.Info("read input", logger.Args("file", cfg.Input, "rows", tbl.NumRows(), "batches", len(tbl.batches)))
		return writeTable(ctx, mem, cfg.Output, tbl, cfg)
	case cfg.Cast:
		tbl, err := readTable(ctx, mem, cfg.Input, cfg.Geometry, crs)
		if err != nil {
			return err
		}
		defer tbl.Release()
		out, err := castTable(ctx, mem, tbl, cfg)
		if err != nil {
			return err
		}
		defer out.Release()
		logger.Info("cast geometry column",
			logger.Args("column", out.schema.Field(out.geometry).Name, "type", out.schema.Field(out.geometry).Type))
		return writeTable(ctx, mem, cfg.Output, out, cfg)
	}
	return nil
}

func main() {
	opts, err := docopt.ParseDoc(usage)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}

	var cfg config
	if err := opts.Bind(&cfg); err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}

	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelWarn)
	if cfg.Verbose {
		logger = logger.WithLevel(pterm.LogLevelDebug)
	}

	if err := geoarrow.RegisterExtensionTypes(); err != nil {
		logger.Fatal("registering extension types", logger.Args("error", err))
	}
	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal(err.Error())
	}
}
