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

package theta

import (
	"fmt"
	"strconv"

	dstheta "github.com/apache/datasketches-go/theta"

	"github.com/kainoa21/sketches-pig/pig"
)

// AExcludeB computes the set difference of two serialized sketches: the
// sketch at field 0 minus the sketch at field 1. An absent field is
// treated as an empty sketch.
type AExcludeB struct {
	seed  uint64
	empty *dstheta.CompactSketch
}

// NewAExcludeB constructs the UDF with the default update seed.
func NewAExcludeB() (*AExcludeB, error) {
	return NewAExcludeBWithSeed(DefaultSeed)
}

// NewAExcludeBWithSeed constructs the UDF for sketches built with a
// non-default update seed.
func NewAExcludeBWithSeed(seed uint64) (*AExcludeB, error) {
	sketch, err := newUpdateSketch(Config{NomEntries: DefaultNomEntries, P: 1, Seed: seed})
	if err != nil {
		return nil, err
	}
	return &AExcludeB{seed: seed, empty: sketch.CompactOrdered()}, nil
}

// NewAExcludeBFromStrings constructs the UDF from an optional seed string.
func NewAExcludeBFromStrings(args ...string) (*AExcludeB, error) {
	if len(args) == 0 {
		return NewAExcludeB()
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("at most 1 constructor argument expected, got %d", len(args))
	}
	seed, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	return NewAExcludeBWithSeed(seed)
}

// Exec returns a single-field tuple holding the serialized difference of
// the sketches at fields 0 and 1.
func (u *AExcludeB) Exec(input pig.Tuple) (pig.Tuple, error) {
	a, err := sketchAt(input, 0, u.seed)
	if err != nil {
		return nil, err
	}
	b, err := sketchAt(input, 1, u.seed)
	if err != nil {
		return nil, err
	}
	if a == nil {
		a = u.empty
	}
	if b == nil {
		b = u.empty
	}
	result, err := dstheta.ANotB(a, b, u.seed, true)
	if err != nil {
		return nil, err
	}
	out, err := serializeOrdered(result)
	if err != nil {
		return nil, err
	}
	return pig.Tuple{out}, nil
}
