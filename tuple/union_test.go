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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kainoa21/sketches-pig/pig"
)

// doublesSketchBytes builds a serialized tuple sketch over int64 keys in
// [lo, hi) with a single constant double value.
func doublesSketchBytes(t *testing.T, lo, hi int64, value float64) []byte {
	t.Helper()
	udf, err := NewDataToArrayOfDoublesSketch(DefaultConfig())
	require.NoError(t, err)
	b, err := udf.Exec(pig.Tuple{doublesBag(lo, hi, value)})
	require.NoError(t, err)
	return b
}

func resultBytes(t *testing.T, result pig.Tuple) []byte {
	t.Helper()
	b, ok := result.FieldAt(0).([]byte)
	require.True(t, ok)
	return b
}

func TestUnionArrayOfDoublesSketchExec(t *testing.T) {
	udf, err := NewUnionArrayOfDoublesSketch(DefaultConfig())
	require.NoError(t, err)

	t.Run("nil input yields empty sketch", func(t *testing.T) {
		result, err := udf.Exec(nil)
		assert.NoError(t, err)
		assert.True(t, decodeDoubles(t, resultBytes(t, result)).IsEmpty())
	})

	t.Run("overlapping keys summed across sketches", func(t *testing.T) {
		bag := pig.Bag{
			{doublesSketchBytes(t, 0, 64, 1)},
			{doublesSketchBytes(t, 32, 91, 1)},
		}
		result, err := udf.Exec(pig.Tuple{bag})
		assert.NoError(t, err)
		sketch := decodeDoubles(t, resultBytes(t, result))
		assert.Equal(t, float64(91), sketch.Estimate())
		// 32 keys appear in both inputs, so their summaries double up.
		assert.InDelta(t, 123, summarySums(sketch)[0], 1e-9)
	})

	t.Run("null and empty items are skipped", func(t *testing.T) {
		bag := pig.Bag{
			{nil},
			{[]byte{}},
			{doublesSketchBytes(t, 0, 10, 1)},
		}
		result, err := udf.Exec(pig.Tuple{bag})
		assert.NoError(t, err)
		assert.Equal(t, float64(10), decodeDoubles(t, resultBytes(t, result)).Estimate())
	})

	t.Run("rejects non-bytes item", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{pig.Bag{{"sketch"}}})
		assert.Error(t, err)
	})
}

func TestUnionArrayOfDoublesSketchAccumulator(t *testing.T) {
	udf, err := NewUnionArrayOfDoublesSketch(DefaultConfig())
	require.NoError(t, err)

	assert.NoError(t, udf.Accumulate(pig.Tuple{pig.Bag{{doublesSketchBytes(t, 0, 50, 1)}}}))
	assert.NoError(t, udf.Accumulate(pig.Tuple{pig.Bag{{doublesSketchBytes(t, 50, 100, 1)}}}))
	result, err := udf.GetValue()
	assert.NoError(t, err)
	assert.Equal(t, float64(100), decodeDoubles(t, resultBytes(t, result)).Estimate())

	udf.Cleanup()
	result, err = udf.GetValue()
	assert.NoError(t, err)
	assert.True(t, decodeDoubles(t, resultBytes(t, result)).IsEmpty())
}

func TestUnionArrayOfDoublesSketchAlgebraic(t *testing.T) {
	udf, err := NewUnionArrayOfDoublesSketch(DefaultConfig())
	require.NoError(t, err)

	t.Run("initial is identity", func(t *testing.T) {
		in := pig.Tuple{pig.Bag{{doublesSketchBytes(t, 0, 5, 1)}}}
		out, err := udf.Initial().Exec(in)
		assert.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("mixed bag and bytes items", func(t *testing.T) {
		outer := pig.Bag{
			{pig.Bag{{doublesSketchBytes(t, 0, 50, 1)}}},
			{doublesSketchBytes(t, 50, 100, 1)},
		}
		result, err := udf.Intermediate().Exec(pig.Tuple{outer})
		assert.NoError(t, err)
		assert.Equal(t, float64(100), decodeDoubles(t, resultBytes(t, result)).Estimate())
	})

	t.Run("intermediate output feeds final", func(t *testing.T) {
		mid1, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{pig.Bag{{doublesSketchBytes(t, 0, 30, 1)}}}}})
		assert.NoError(t, err)
		mid2, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{pig.Bag{{doublesSketchBytes(t, 30, 60, 1)}}}}})
		assert.NoError(t, err)
		final, err := udf.Final().Exec(pig.Tuple{pig.Bag{mid1, mid2}})
		assert.NoError(t, err)
		assert.Equal(t, float64(60), decodeDoubles(t, resultBytes(t, final)).Estimate())
	})

	t.Run("rejects scalar item", func(t *testing.T) {
		stage, err := NewUnionArrayOfDoublesSketchIntermediateFinal(DefaultConfig())
		assert.NoError(t, err)
		_, err = stage.Exec(pig.Tuple{pig.Bag{{float64(1)}}})
		assert.Error(t, err)
	})
}

func TestArrayOfDoublesSketchToEstimates(t *testing.T) {
	udf := NewArrayOfDoublesSketchToEstimates()

	t.Run("estimate and column sums", func(t *testing.T) {
		result, err := udf.Exec(pig.Tuple{doublesSketchBytes(t, 0, 64, 2)})
		assert.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, float64(64), result.FieldAt(0))
		assert.InDelta(t, 128, result.FieldAt(1), 1e-9)
	})

	t.Run("empty sketch", func(t *testing.T) {
		empty, err := emptySketchBytes(DefaultConfig())
		require.NoError(t, err)
		result, err := udf.Exec(pig.Tuple{empty})
		assert.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, float64(0), result.FieldAt(0))
	})

	t.Run("rejects non-bytes field", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{"sketch"})
		assert.Error(t, err)
	})

	t.Run("constructor arguments", func(t *testing.T) {
		_, err := NewArrayOfDoublesSketchToEstimatesFromStrings("9001")
		assert.NoError(t, err)
		_, err = NewArrayOfDoublesSketchToEstimatesFromStrings("later")
		assert.Error(t, err)
	})
}
