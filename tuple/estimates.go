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

package tuple

import (
	"fmt"
	"strconv"

	"github.com/kainoa21/sketches-pig/pig"
)

// ArrayOfDoublesSketchToEstimates returns the unique count estimate of a
// serialized tuple sketch followed by the estimated sum of each summary
// column, scaled up from the retained entries by the effective sampling
// rate.
type ArrayOfDoublesSketchToEstimates struct {
	seed uint64
}

// NewArrayOfDoublesSketchToEstimates constructs the UDF with the default
// update seed.
func NewArrayOfDoublesSketchToEstimates() *ArrayOfDoublesSketchToEstimates {
	return &ArrayOfDoublesSketchToEstimates{seed: DefaultSeed}
}

// NewArrayOfDoublesSketchToEstimatesFromStrings constructs the UDF from
// an optional seed string.
func NewArrayOfDoublesSketchToEstimatesFromStrings(args ...string) (*ArrayOfDoublesSketchToEstimates, error) {
	if len(args) == 0 {
		return NewArrayOfDoublesSketchToEstimates(), nil
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("at most 1 constructor argument expected, got %d", len(args))
	}
	seed, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	return &ArrayOfDoublesSketchToEstimates{seed: seed}, nil
}

// Exec decodes the sketch at field 0 and returns a tuple holding the
// unique count estimate followed by one estimated sum per summary
// column.
func (e *ArrayOfDoublesSketchToEstimates) Exec(input pig.Tuple) (pig.Tuple, error) {
	f, err := pig.ClassifyAt(input, 0)
	if err != nil {
		return nil, err
	}
	if f.Kind != pig.FieldBytes {
		return nil, fmt.Errorf("field 0 must be a serialized sketch, got %s", f.Kind)
	}
	sketch, err := decodeSketch(f.Bytes, e.seed)
	if err != nil {
		return nil, err
	}
	sums := make([]float64, sketch.NumValuesInSummary())
	for _, summary := range sketch.All() {
		for i, v := range summary.Values() {
			sums[i] += v
		}
	}
	result := make(pig.Tuple, 0, len(sums)+1)
	result = append(result, sketch.Estimate())
	theta := sketch.Theta()
	for _, sum := range sums {
		result = append(result, sum/theta)
	}
	return result, nil
}
