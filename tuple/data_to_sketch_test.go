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
	"testing"

	dstuple "github.com/apache/datasketches-go/tuple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kainoa21/sketches-pig/pig"
)

// doublesBag builds a bag of datum tuples with int64 keys in [lo, hi)
// and a single constant double value.
func doublesBag(lo, hi int64, value float64) pig.Bag {
	bag := make(pig.Bag, 0, hi-lo)
	for k := lo; k < hi; k++ {
		bag = append(bag, pig.Tuple{k, value})
	}
	return bag
}

func decodeDoubles(t *testing.T, b []byte) *dstuple.ArrayOfNumbersCompactSketch[float64] {
	t.Helper()
	sketch, err := dstuple.DecodeArrayOfNumbersCompactSketch[float64](b, DefaultSeed)
	require.NoError(t, err)
	return sketch
}

// summarySums adds up the retained summary columns of a sketch.
func summarySums(sketch *dstuple.ArrayOfNumbersCompactSketch[float64]) []float64 {
	sums := make([]float64, sketch.NumValuesInSummary())
	for _, summary := range sketch.All() {
		for i, v := range summary.Values() {
			sums[i] += v
		}
	}
	return sums
}

func TestDataToArrayOfDoublesSketchExec(t *testing.T) {
	udf, err := NewDataToArrayOfDoublesSketch(DefaultConfig())
	require.NoError(t, err)

	t.Run("nil input yields empty sketch", func(t *testing.T) {
		b, err := udf.Exec(nil)
		assert.NoError(t, err)
		assert.True(t, decodeDoubles(t, b).IsEmpty())
	})

	t.Run("distinct keys counted and values kept", func(t *testing.T) {
		b, err := udf.Exec(pig.Tuple{doublesBag(0, 64, 1)})
		assert.NoError(t, err)
		sketch := decodeDoubles(t, b)
		assert.Equal(t, float64(64), sketch.Estimate())
		assert.InDelta(t, 64, summarySums(sketch)[0], 1e-9)
	})

	t.Run("repeated keys sum their values", func(t *testing.T) {
		bag := pig.Bag{
			{"a", 1.5},
			{"a", 1.5},
			{"b", 2.0},
		}
		b, err := udf.Exec(pig.Tuple{bag})
		assert.NoError(t, err)
		sketch := decodeDoubles(t, b)
		assert.Equal(t, float64(2), sketch.Estimate())
		assert.InDelta(t, 5.0, summarySums(sketch)[0], 1e-9)
	})

	t.Run("null keys are skipped", func(t *testing.T) {
		bag := pig.Bag{
			{nil, 1.0},
			{int64(1), 1.0},
		}
		b, err := udf.Exec(pig.Tuple{bag})
		assert.NoError(t, err)
		assert.Equal(t, float64(1), decodeDoubles(t, b).Estimate())
	})

	t.Run("rejects wrong arity", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{pig.Bag{{int64(1), 1.0, 2.0}}})
		assert.Error(t, err)
	})

	t.Run("rejects non-double value", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{pig.Bag{{int64(1), "one"}}})
		assert.Error(t, err)
	})
}

func TestDataToArrayOfDoublesSketchTwoValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumValues = 2
	udf, err := NewDataToArrayOfDoublesSketch(cfg)
	require.NoError(t, err)

	bag := pig.Bag{
		{"a", 1.0, 10.0},
		{"b", 2.0, 20.0},
	}
	b, err := udf.Exec(pig.Tuple{bag})
	assert.NoError(t, err)
	sketch := decodeDoubles(t, b)
	assert.Equal(t, float64(2), sketch.Estimate())
	sums := summarySums(sketch)
	assert.InDelta(t, 3.0, sums[0], 1e-9)
	assert.InDelta(t, 30.0, sums[1], 1e-9)
}

func TestDataToArrayOfDoublesSketchAccumulator(t *testing.T) {
	udf, err := NewDataToArrayOfDoublesSketch(DefaultConfig())
	require.NoError(t, err)

	assert.NoError(t, udf.Accumulate(pig.Tuple{doublesBag(0, 32, 1)}))
	assert.NoError(t, udf.Accumulate(pig.Tuple{doublesBag(32, 64, 1)}))
	b, err := udf.GetValue()
	assert.NoError(t, err)
	assert.Equal(t, float64(64), decodeDoubles(t, b).Estimate())

	udf.Cleanup()
	b, err = udf.GetValue()
	assert.NoError(t, err)
	assert.True(t, decodeDoubles(t, b).IsEmpty())
}

func TestDataToArrayOfDoublesSketchAlgebraic(t *testing.T) {
	udf, err := NewDataToArrayOfDoublesSketch(DefaultConfig())
	require.NoError(t, err)

	t.Run("initial is identity", func(t *testing.T) {
		in := pig.Tuple{doublesBag(0, 4, 1)}
		out, err := udf.Initial().Exec(in)
		assert.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("partitions merged across stages", func(t *testing.T) {
		mid1, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{doublesBag(0, 64, 1)}}})
		assert.NoError(t, err)
		mid2, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{doublesBag(64, 91, 1)}}})
		assert.NoError(t, err)

		final, err := udf.Final().Exec(pig.Tuple{pig.Bag{mid1, mid2}})
		assert.NoError(t, err)
		sketch := decodeDoubles(t, final)
		assert.Equal(t, float64(91), sketch.Estimate())
		assert.InDelta(t, 91, summarySums(sketch)[0], 1e-9)
	})

	t.Run("final accepts raw bags when combiner is skipped", func(t *testing.T) {
		mid, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{doublesBag(0, 32, 1)}}})
		assert.NoError(t, err)
		final, err := udf.Final().Exec(pig.Tuple{pig.Bag{mid, {doublesBag(32, 64, 1)}}})
		assert.NoError(t, err)
		assert.Equal(t, float64(64), decodeDoubles(t, final).Estimate())
	})

	t.Run("rejects scalar at merge stage", func(t *testing.T) {
		_, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{int64(1)}}})
		assert.Error(t, err)
	})
}

func TestDataToArrayOfDoublesSketchFromStrings(t *testing.T) {
	udf, err := NewDataToArrayOfDoublesSketchFromStrings("2", "256")
	assert.NoError(t, err)
	b, err := udf.Exec(pig.Tuple{pig.Bag{{"a", 1.0, 2.0}}})
	assert.NoError(t, err)
	assert.Equal(t, float64(1), decodeDoubles(t, b).Estimate())

	_, err = NewDataToArrayOfDoublesSketchFromStrings("0")
	assert.Error(t, err)
	_, err = NewDataToArrayOfDoublesSketchFromStrings("1", "100")
	assert.Error(t, err)
}

func TestTupleConfig(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		_, err := NewConfig(1000, 1, DefaultSeed)
		assert.Error(t, err)
		_, err = NewConfig(1024, 0, DefaultSeed)
		assert.Error(t, err)
		_, err = NewConfig(1024, 256, DefaultSeed)
		assert.Error(t, err)
		cfg, err := NewConfig(1024, 3, 1234)
		assert.NoError(t, err)
		assert.Equal(t, 1024, cfg.NomEntries)
		assert.Equal(t, 3, cfg.NumValues)
		assert.Equal(t, uint64(1234), cfg.Seed)
	})

	t.Run("parse", func(t *testing.T) {
		cfg, err := ParseConfig()
		assert.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)

		cfg, err = ParseConfig("2", "2048", "9002")
		assert.NoError(t, err)
		assert.Equal(t, 2, cfg.NumValues)
		assert.Equal(t, 2048, cfg.NomEntries)
		assert.Equal(t, uint64(9002), cfg.Seed)

		_, err = ParseConfig("two")
		assert.Error(t, err)
		_, err = ParseConfig("1", "2", "3", "4")
		assert.Error(t, err)
	})
}
