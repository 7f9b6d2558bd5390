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

// Package theta provides UDFs that build, union, intersect and query
// Theta sketches over the host engine's tuple data model. The sketch
// implementation itself is the DataSketches library; this package only
// adapts bags and tuples to serialized sketches and back, across the
// engine's exec, accumulator and algebraic execution strategies.
package theta

import (
	"fmt"
	"math/bits"
	"strconv"

	dstheta "github.com/apache/datasketches-go/theta"
)

const (
	// DefaultNomEntries is the default nominal number of sketch entries.
	DefaultNomEntries = 1 << dstheta.DefaultLgK

	// MinNomEntries is the smallest nominal size the sketch library accepts.
	MinNomEntries = 1 << dstheta.MinLgK

	// DefaultSeed is the default update hash seed.
	DefaultSeed = dstheta.DefaultSeed
)

// Config is the aggregation configuration fixed at construction time.
//
// The algebraic stage instances cooperating on one logical aggregation are
// constructed independently with no linkage between them; they must be
// given structurally identical Configs or the merged result is silently
// wrong. This is a documented precondition, not checked at runtime.
type Config struct {
	// NomEntries is the nominal number of entries, a power of 2 that
	// controls sketch size and accuracy.
	NomEntries int
	// P is the up-front sampling probability in (0, 1].
	P float32
	// Seed is the update hash seed. Sketches built with different seeds
	// cannot be combined.
	Seed uint64
}

// DefaultConfig returns the default configuration: default nominal
// entries, p = 1.0 and the default seed.
func DefaultConfig() Config {
	return Config{NomEntries: DefaultNomEntries, P: 1.0, Seed: DefaultSeed}
}

// NewConfig validates and returns a configuration. Errors are reported
// here, at construction, rather than on the first exec call.
func NewConfig(nomEntries int, p float32, seed uint64) (Config, error) {
	if nomEntries <= 0 || nomEntries&(nomEntries-1) != 0 {
		return Config{}, fmt.Errorf("nomEntries must be a power of 2: %d", nomEntries)
	}
	if nomEntries < MinNomEntries {
		return Config{}, fmt.Errorf("nomEntries too small: %d, required: %d", nomEntries, MinNomEntries)
	}
	if p <= 0 || p > 1 {
		return Config{}, fmt.Errorf("sampling probability must be in (0, 1]: %v", p)
	}
	return Config{NomEntries: nomEntries, P: p, Seed: seed}, nil
}

// ParseConfig builds a Config from string arguments, in the order
// nomEntries, p, seed; trailing arguments may be omitted and default.
// The host engine's declarative invocation syntax can only pass string
// literals to constructors, so every UDF constructor in this package has
// a FromStrings variant that funnels through here.
func ParseConfig(args ...string) (Config, error) {
	cfg := DefaultConfig()
	if len(args) > 3 {
		return Config{}, fmt.Errorf("at most 3 constructor arguments expected, got %d", len(args))
	}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return Config{}, fmt.Errorf("parsing nomEntries: %w", err)
		}
		cfg.NomEntries = n
	}
	if len(args) > 1 {
		p, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return Config{}, fmt.Errorf("parsing p: %w", err)
		}
		cfg.P = float32(p)
	}
	if len(args) > 2 {
		seed, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parsing seed: %w", err)
		}
		cfg.Seed = seed
	}
	return NewConfig(cfg.NomEntries, cfg.P, cfg.Seed)
}

func (c Config) lgK() uint8 {
	return uint8(bits.Len(uint(c.NomEntries)) - 1)
}

func newUpdateSketch(c Config) (*dstheta.QuickSelectUpdateSketch, error) {
	return dstheta.NewQuickSelectUpdateSketch(
		dstheta.WithUpdateSketchLgK(c.lgK()),
		dstheta.WithUpdateSketchP(c.P),
		dstheta.WithUpdateSketchSeed(c.Seed),
	)
}

func newUnion(c Config) (*dstheta.Union, error) {
	return dstheta.NewUnion(
		dstheta.WithUnionLgK(c.lgK()),
		dstheta.WithUnionSketchP(c.P),
		dstheta.WithUnionSeed(c.Seed),
	)
}

// emptySketchBytes serializes an empty compact ordered sketch for the
// given configuration. Computed once per UDF instance so that absent
// input always yields byte-identical output without touching the engine.
func emptySketchBytes(c Config) ([]byte, error) {
	s, err := newUpdateSketch(c)
	if err != nil {
		return nil, err
	}
	return s.CompactOrdered().MarshalBinary()
}

func serializeOrdered(s *dstheta.CompactSketch) ([]byte, error) {
	b, err := s.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serializing sketch: %w", err)
	}
	return b, nil
}
