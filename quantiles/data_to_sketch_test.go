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
	"testing"

	"github.com/apache/datasketches-go/common"
	"github.com/apache/datasketches-go/kll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kainoa21/sketches-pig/pig"
)

// stringBag builds a bag of single-field tuples holding zero-padded
// string items for indexes in the half-open range [lo, hi).
func stringBag(lo, hi int) pig.Bag {
	bag := make(pig.Bag, 0, hi-lo)
	for i := lo; i < hi; i++ {
		bag = append(bag, pig.Tuple{fmt.Sprintf("%03d", i)})
	}
	return bag
}

func decodeStrings(t *testing.T, result pig.Tuple) *kll.ItemsSketch[string] {
	t.Helper()
	b, ok := result.FieldAt(0).([]byte)
	require.True(t, ok)
	sketch, err := kll.NewKllItemsSketchFromSlice[string](b, NaturalOrder[string](), common.ItemSketchStringSerDe{})
	require.NoError(t, err)
	return sketch
}

func TestDataToStringsSketchExec(t *testing.T) {
	udf, err := NewDataToStringsSketch(DefaultConfig())
	require.NoError(t, err)

	t.Run("nil input yields empty sketch", func(t *testing.T) {
		result, err := udf.Exec(nil)
		assert.NoError(t, err)
		assert.True(t, decodeStrings(t, result).IsEmpty())
	})

	t.Run("items are counted and ordered", func(t *testing.T) {
		result, err := udf.Exec(pig.Tuple{stringBag(0, 100)})
		assert.NoError(t, err)
		sketch := decodeStrings(t, result)
		assert.Equal(t, uint64(100), sketch.GetN())
		min, err := sketch.GetQuantile(0, false)
		assert.NoError(t, err)
		assert.Equal(t, "000", min)
		max, err := sketch.GetQuantile(1, false)
		assert.NoError(t, err)
		assert.Equal(t, "099", max)
	})

	t.Run("null items are skipped", func(t *testing.T) {
		result, err := udf.Exec(pig.Tuple{pig.Bag{{nil}, {"a"}, {"b"}}})
		assert.NoError(t, err)
		assert.Equal(t, uint64(2), decodeStrings(t, result).GetN())
	})

	t.Run("rejects non-string item", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{pig.Bag{{int64(1)}}})
		assert.Error(t, err)
	})
}

func TestDataToStringsSketchAccumulator(t *testing.T) {
	udf, err := NewDataToStringsSketch(DefaultConfig())
	require.NoError(t, err)

	assert.NoError(t, udf.Accumulate(pig.Tuple{stringBag(0, 50)}))
	assert.NoError(t, udf.Accumulate(pig.Tuple{stringBag(50, 100)}))
	result, err := udf.GetValue()
	assert.NoError(t, err)
	assert.Equal(t, uint64(100), decodeStrings(t, result).GetN())

	udf.Cleanup()
	result, err = udf.GetValue()
	assert.NoError(t, err)
	assert.True(t, decodeStrings(t, result).IsEmpty())
}

func TestDataToStringsSketchAlgebraic(t *testing.T) {
	udf, err := NewDataToStringsSketch(DefaultConfig())
	require.NoError(t, err)

	t.Run("initial is identity", func(t *testing.T) {
		in := pig.Tuple{stringBag(0, 4)}
		out, err := udf.Initial().Exec(in)
		assert.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("partitions merged across stages", func(t *testing.T) {
		mid1, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{stringBag(0, 50)}}})
		assert.NoError(t, err)
		mid2, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{stringBag(50, 100)}}})
		assert.NoError(t, err)

		final, err := udf.Final().Exec(pig.Tuple{pig.Bag{mid1, mid2}})
		assert.NoError(t, err)
		sketch := decodeStrings(t, final)
		assert.Equal(t, uint64(100), sketch.GetN())
		max, err := sketch.GetQuantile(1, false)
		assert.NoError(t, err)
		assert.Equal(t, "099", max)
	})

	t.Run("final accepts raw bags when combiner is skipped", func(t *testing.T) {
		mid, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{stringBag(0, 10)}}})
		assert.NoError(t, err)
		final, err := udf.Final().Exec(pig.Tuple{pig.Bag{mid, {stringBag(10, 20)}}})
		assert.NoError(t, err)
		assert.Equal(t, uint64(20), decodeStrings(t, final).GetN())
	})

	t.Run("rejects scalar at merge stage", func(t *testing.T) {
		_, err := udf.Intermediate().Exec(pig.Tuple{pig.Bag{{"item"}}})
		assert.Error(t, err)
	})
}

func TestDataToLongsSketch(t *testing.T) {
	udf, err := NewDataToLongsSketch(DefaultConfig())
	require.NoError(t, err)

	bag := pig.Bag{{int8(1)}, {int32(2)}, {int64(3)}}
	result, err := udf.Exec(pig.Tuple{bag})
	assert.NoError(t, err)

	b, ok := result.FieldAt(0).([]byte)
	require.True(t, ok)
	sketch, err := kll.NewKllItemsSketchFromSlice[int64](b, NaturalOrder[int64](), common.ItemSketchLongSerDe{})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sketch.GetN())
	max, err := sketch.GetQuantile(1, false)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), max)

	_, err = udf.Exec(pig.Tuple{pig.Bag{{"one"}}})
	assert.Error(t, err)
}

func TestDataToSketchFromStrings(t *testing.T) {
	udf, err := NewDataToStringsSketchFromStrings("128")
	assert.NoError(t, err)
	result, err := udf.Exec(pig.Tuple{stringBag(0, 10)})
	assert.NoError(t, err)
	assert.Equal(t, uint64(10), decodeStrings(t, result).GetN())

	_, err = NewDataToStringsSketchFromStrings("7")
	assert.Error(t, err)
	_, err = NewDataToLongsSketchFromStrings("many")
	assert.Error(t, err)
}
