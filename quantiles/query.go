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

package quantiles

import (
	"fmt"

	"github.com/apache/datasketches-go/common"
	"github.com/apache/datasketches-go/kll"

	"github.com/kainoa21/sketches-pig/pig"
)

// GetPmfFromStringsSketch approximates the Probability Mass Function of
// the stream behind a strings sketch. Field 0 of the input holds the
// serialized sketch and fields 1..m hold unique, monotonically increasing
// split points dividing the domain into m+1 consecutive disjoint
// intervals, inclusive of the left split point and exclusive of the
// right. The result is a tuple of m+1 doubles, each the approximate
// fraction of stream values that fell into one interval.
type GetPmfFromStringsSketch struct{}

func (GetPmfFromStringsSketch) Exec(input pig.Tuple) (pig.Tuple, error) {
	return pmfExec[string](input, NaturalOrder[string](), common.ItemSketchStringSerDe{}, stringItem)
}

// GetPmfFromLongsSketch is GetPmfFromStringsSketch over int64 items.
type GetPmfFromLongsSketch struct{}

func (GetPmfFromLongsSketch) Exec(input pig.Tuple) (pig.Tuple, error) {
	return pmfExec[int64](input, NaturalOrder[int64](), common.ItemSketchLongSerDe{}, longItem)
}

// GetQuantilesFromStringsSketch returns quantile values from a strings
// sketch. Field 0 of the input holds the serialized sketch. The
// remaining fields are either fractional ranks in [0, 1], or a single
// integer asking for that many evenly spaced ranks over [0, 1]. The
// result is a tuple with one item per requested rank.
type GetQuantilesFromStringsSketch struct{}

func (GetQuantilesFromStringsSketch) Exec(input pig.Tuple) (pig.Tuple, error) {
	return quantilesExec[string](input, NaturalOrder[string](), common.ItemSketchStringSerDe{})
}

// GetQuantilesFromLongsSketch is GetQuantilesFromStringsSketch over
// int64 items.
type GetQuantilesFromLongsSketch struct{}

func (GetQuantilesFromLongsSketch) Exec(input pig.Tuple) (pig.Tuple, error) {
	return quantilesExec[int64](input, NaturalOrder[int64](), common.ItemSketchLongSerDe{})
}

func queriedSketch[C comparable](input pig.Tuple, compare common.CompareFn[C], serde common.ItemSketchSerde[C]) (*kll.ItemsSketch[C], error) {
	if len(input) < 2 {
		return nil, fmt.Errorf("expected at least 2 input fields: sketch and query arguments, got %d", len(input))
	}
	f, err := pig.ClassifyAt(input, 0)
	if err != nil {
		return nil, err
	}
	if f.Kind != pig.FieldBytes {
		return nil, fmt.Errorf("field 0 must be a serialized sketch, got %s", f.Kind)
	}
	return decodeItemsSketch[C](f.Bytes, compare, serde)
}

func pmfExec[C comparable](input pig.Tuple, compare common.CompareFn[C], serde common.ItemSketchSerde[C], item itemFn[C]) (pig.Tuple, error) {
	sketch, err := queriedSketch[C](input, compare, serde)
	if err != nil {
		return nil, err
	}
	splitPoints := make([]C, len(input)-1)
	for i := 1; i < len(input); i++ {
		f, err := pig.ClassifyAt(input, i)
		if err != nil {
			return nil, err
		}
		point, err := item(f)
		if err != nil {
			return nil, fmt.Errorf("split point at field %d: %w", i, err)
		}
		splitPoints[i-1] = point
	}
	pmf, err := sketch.GetPMF(splitPoints, false)
	if err != nil {
		return nil, err
	}
	result := make(pig.Tuple, len(pmf))
	for i, fraction := range pmf {
		result[i] = fraction
	}
	return result, nil
}

func quantilesExec[C comparable](input pig.Tuple, compare common.CompareFn[C], serde common.ItemSketchSerde[C]) (pig.Tuple, error) {
	sketch, err := queriedSketch[C](input, compare, serde)
	if err != nil {
		return nil, err
	}
	ranks, err := queriedRanks(input)
	if err != nil {
		return nil, err
	}
	items, err := sketch.GetQuantiles(ranks, false)
	if err != nil {
		return nil, err
	}
	result := make(pig.Tuple, len(items))
	for i, item := range items {
		result[i] = item
	}
	return result, nil
}

func queriedRanks(input pig.Tuple) ([]float64, error) {
	// A single integer argument asks for evenly spaced ranks over [0, 1].
	if len(input) == 2 {
		f, err := pig.ClassifyAt(input, 1)
		if err != nil {
			return nil, err
		}
		switch f.Kind {
		case pig.FieldInt8, pig.FieldInt32, pig.FieldInt64:
			return evenlySpacedRanks(f.Int)
		}
	}
	ranks := make([]float64, len(input)-1)
	for i := 1; i < len(input); i++ {
		f, err := pig.ClassifyAt(input, i)
		if err != nil {
			return nil, err
		}
		switch f.Kind {
		case pig.FieldFloat32, pig.FieldFloat64:
			ranks[i-1] = f.Float
		default:
			return nil, fmt.Errorf("rank at field %d must be a fraction, got %s", i, f.Kind)
		}
	}
	return ranks, nil
}

func evenlySpacedRanks(n int64) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("number of evenly spaced ranks must be positive, got %d", n)
	}
	if n == 1 {
		return []float64{0}, nil
	}
	ranks := make([]float64, n)
	for i := int64(0); i < n; i++ {
		ranks[i] = float64(i) / float64(n-1)
	}
	return ranks, nil
}
