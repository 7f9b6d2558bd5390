/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tuple provides Pig UDFs for building, merging and querying
// tuple sketches that carry an array of double values in each summary.
// Summaries of matching keys are combined by summing column-wise.
package tuple

import (
	"bytes"
	"fmt"
	"math/bits"
	"os"
	"strconv"

	dstheta "github.com/apache/datasketches-go/theta"
	dstuple "github.com/apache/datasketches-go/tuple"
	"github.com/rs/zerolog"

	"github.com/kainoa21/sketches-pig/pig"
)

const (
	// DefaultNomEntries is the default nominal number of entries.
	DefaultNomEntries = 1 << dstheta.DefaultLgK

	// MinNomEntries is the smallest supported nominal number of entries.
	MinNomEntries = 1 << dstheta.MinLgK

	// DefaultSeed is the default update seed.
	DefaultSeed = dstheta.DefaultSeed

	maxNumValues = 255
)

// Config holds the sketch parameters shared by all execution strategies
// of a UDF. Stages constructed for the same Pig script must use
// identical parameters; this is not verified at merge time.
type Config struct {
	// NomEntries is the nominal number of entries, a power of 2 that
	// controls the size and accuracy of the sketch.
	NomEntries int

	// NumValues is the number of double values in each summary.
	NumValues int

	// Seed is the update seed. All sketches merged together must have
	// been built with the same seed.
	Seed uint64
}

// DefaultConfig returns a Config with the default nominal entries, one
// value per summary and the default seed.
func DefaultConfig() Config {
	return Config{NomEntries: DefaultNomEntries, NumValues: 1, Seed: DefaultSeed}
}

// NewConfig validates the sketch parameters.
func NewConfig(nomEntries, numValues int, seed uint64) (Config, error) {
	if nomEntries < MinNomEntries || nomEntries&(nomEntries-1) != 0 {
		return Config{}, fmt.Errorf("nominal entries must be a power of 2 not less than %d, got %d", MinNomEntries, nomEntries)
	}
	if numValues < 1 || numValues > maxNumValues {
		return Config{}, fmt.Errorf("number of values per key must be in [1, %d], got %d", maxNumValues, numValues)
	}
	return Config{NomEntries: nomEntries, NumValues: numValues, Seed: seed}, nil
}

// ParseConfig builds a Config from the textual constructor arguments Pig
// passes through a DEFINE statement: an optional number of values per
// key, then an optional nominal entries, then an optional seed.
func ParseConfig(args ...string) (Config, error) {
	cfg := DefaultConfig()
	if len(args) > 3 {
		return Config{}, fmt.Errorf("at most 3 constructor arguments expected, got %d", len(args))
	}
	if len(args) > 0 {
		numValues, err := strconv.Atoi(args[0])
		if err != nil {
			return Config{}, fmt.Errorf("parsing number of values per key: %w", err)
		}
		cfg.NumValues = numValues
	}
	if len(args) > 1 {
		nomEntries, err := strconv.Atoi(args[1])
		if err != nil {
			return Config{}, fmt.Errorf("parsing nominal entries: %w", err)
		}
		cfg.NomEntries = nomEntries
	}
	if len(args) > 2 {
		seed, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parsing seed: %w", err)
		}
		cfg.Seed = seed
	}
	return NewConfig(cfg.NomEntries, cfg.NumValues, cfg.Seed)
}

func (c Config) lgK() uint8 {
	return uint8(bits.Len(uint(c.NomEntries)) - 1)
}

// sumPolicy combines summaries of matching keys by summing column-wise.
type sumPolicy[V dstuple.Number] struct{}

func (p *sumPolicy[V]) Apply(internalSummary, incomingSummary *dstuple.ArrayOfNumbersSummary[V]) {
	internalSummary.Update(incomingSummary.Values())
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func newUpdateSketch(c Config) (*dstuple.ArrayOfNumbersUpdateSketch[float64], error) {
	return dstuple.NewArrayOfNumbersUpdateSketch[float64](
		uint8(c.NumValues),
		dstuple.WithUpdateSketchLgK(c.lgK()),
		dstuple.WithUpdateSketchSeed(c.Seed),
	)
}

func newUnion(c Config) (*dstuple.ArrayOfNumbersSketchUnion[float64], error) {
	return dstuple.NewArrayOfNumbersSketchUnion[float64](
		&sumPolicy[float64]{},
		uint8(c.NumValues),
		dstuple.WithUnionLgK(c.lgK()),
		dstuple.WithUnionSeed(c.Seed),
	)
}

func decodeSketch(b []byte, seed uint64) (*dstuple.ArrayOfNumbersCompactSketch[float64], error) {
	sketch, err := dstuple.DecodeArrayOfNumbersCompactSketch[float64](b, seed)
	if err != nil {
		return nil, fmt.Errorf("decoding sketch: %w", err)
	}
	return sketch, nil
}

func serializeSketch(sketch *dstuple.ArrayOfNumbersCompactSketch[float64]) ([]byte, error) {
	var buf bytes.Buffer
	enc := dstuple.NewArrayOfNumbersSketchEncoder[float64](&buf)
	if err := enc.Encode(sketch); err != nil {
		return nil, fmt.Errorf("serializing sketch: %w", err)
	}
	return buf.Bytes(), nil
}

func sketchTuple(sketch *dstuple.ArrayOfNumbersCompactSketch[float64]) (pig.Tuple, error) {
	b, err := serializeSketch(sketch)
	if err != nil {
		return nil, err
	}
	return pig.Tuple{b}, nil
}

func emptySketchBytes(c Config) ([]byte, error) {
	sketch, err := newUpdateSketch(c)
	if err != nil {
		return nil, err
	}
	compact, err := sketch.Compact(true)
	if err != nil {
		return nil, err
	}
	return serializeSketch(compact)
}
