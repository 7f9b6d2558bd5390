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

// Estimate returns the unique count estimate of a serialized sketch.
type Estimate struct {
	seed uint64
}

// NewEstimate constructs the UDF with the default update seed.
func NewEstimate() *Estimate {
	return &Estimate{seed: DefaultSeed}
}

// NewEstimateWithSeed constructs the UDF for sketches built with a
// non-default update seed.
func NewEstimateWithSeed(seed uint64) *Estimate {
	return &Estimate{seed: seed}
}

// NewEstimateFromStrings constructs the UDF from an optional seed string.
func NewEstimateFromStrings(args ...string) (*Estimate, error) {
	if len(args) == 0 {
		return NewEstimate(), nil
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("at most 1 constructor argument expected, got %d", len(args))
	}
	seed, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	return NewEstimateWithSeed(seed), nil
}

// Exec decodes the sketch at field 0 and returns its estimate. An absent
// input or field yields 0.
func (e *Estimate) Exec(input pig.Tuple) (float64, error) {
	sketch, err := sketchAt(input, 0, e.seed)
	if err != nil || sketch == nil {
		return 0, err
	}
	return sketch.Estimate(), nil
}

// sketchAt decodes the serialized sketch at field i of the tuple. A nil
// sketch with nil error means the field was absent.
func sketchAt(t pig.Tuple, i int, seed uint64) (*dstheta.CompactSketch, error) {
	f, err := pig.ClassifyAt(t, i)
	if err != nil {
		return nil, err
	}
	switch f.Kind {
	case pig.FieldNull:
		return nil, nil
	case pig.FieldBytes:
		sketch, err := dstheta.Decode(f.Bytes, seed)
		if err != nil {
			return nil, fmt.Errorf("decoding sketch: %w", err)
		}
		return sketch, nil
	}
	return nil, fmt.Errorf("field %d must be a serialized sketch, got %s", i, f.Kind)
}
