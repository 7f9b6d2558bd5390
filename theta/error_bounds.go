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

	"github.com/kainoa21/sketches-pig/pig"
)

const defaultNumStdDevs = 2

// ErrorBounds returns the estimate of a serialized sketch together with
// its lower and upper bounds at a given number of standard deviations.
type ErrorBounds struct {
	seed       uint64
	numStdDevs uint8
}

// NewErrorBounds constructs the UDF with the default seed and two
// standard deviations (roughly 95% confidence).
func NewErrorBounds() *ErrorBounds {
	return &ErrorBounds{seed: DefaultSeed, numStdDevs: defaultNumStdDevs}
}

// NewErrorBoundsWithOptions constructs the UDF with an explicit number of
// standard deviations (1, 2 or 3) and update seed.
func NewErrorBoundsWithOptions(numStdDevs uint8, seed uint64) (*ErrorBounds, error) {
	if numStdDevs < 1 || numStdDevs > 3 {
		return nil, fmt.Errorf("number of standard deviations must be 1, 2 or 3, got %d", numStdDevs)
	}
	return &ErrorBounds{seed: seed, numStdDevs: numStdDevs}, nil
}

// NewErrorBoundsFromStrings constructs the UDF from optional numStdDevs
// and seed strings.
func NewErrorBoundsFromStrings(args ...string) (*ErrorBounds, error) {
	numStdDevs := uint8(defaultNumStdDevs)
	seed := uint64(DefaultSeed)
	if len(args) > 2 {
		return nil, fmt.Errorf("at most 2 constructor arguments expected, got %d", len(args))
	}
	if len(args) > 0 {
		n, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("parsing number of standard deviations: %w", err)
		}
		numStdDevs = uint8(n)
	}
	if len(args) > 1 {
		s, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing seed: %w", err)
		}
		seed = s
	}
	return NewErrorBoundsWithOptions(numStdDevs, seed)
}

// Exec decodes the sketch at field 0 and returns a tuple of
// (estimate, lowerBound, upperBound). An absent input yields zeros.
func (e *ErrorBounds) Exec(input pig.Tuple) (pig.Tuple, error) {
	sketch, err := sketchAt(input, 0, e.seed)
	if err != nil {
		return nil, err
	}
	if sketch == nil {
		return pig.Tuple{float64(0), float64(0), float64(0)}, nil
	}
	lower, err := sketch.LowerBound(e.numStdDevs)
	if err != nil {
		return nil, fmt.Errorf("computing lower bound: %w", err)
	}
	upper, err := sketch.UpperBound(e.numStdDevs)
	if err != nil {
		return nil, fmt.Errorf("computing upper bound: %w", err)
	}
	return pig.Tuple{sketch.Estimate(), lower, upper}, nil
}
