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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kainoa21/sketches-pig/pig"
)

func TestGetPmfFromStringsSketch(t *testing.T) {
	udf := GetPmfFromStringsSketch{}

	t.Run("split point halves the stream", func(t *testing.T) {
		result, err := udf.Exec(pig.Tuple{stringsSketchBytes(t, 0, 100), "050"})
		assert.NoError(t, err)
		require.Len(t, result, 2)
		assert.InDelta(t, 0.5, result.FieldAt(0), 1e-9)
		assert.InDelta(t, 0.5, result.FieldAt(1), 1e-9)
	})

	t.Run("multiple split points", func(t *testing.T) {
		result, err := udf.Exec(pig.Tuple{stringsSketchBytes(t, 0, 100), "025", "075"})
		assert.NoError(t, err)
		require.Len(t, result, 3)
		assert.InDelta(t, 0.25, result.FieldAt(0), 1e-9)
		assert.InDelta(t, 0.5, result.FieldAt(1), 1e-9)
		assert.InDelta(t, 0.25, result.FieldAt(2), 1e-9)
	})

	t.Run("requires sketch and split points", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{stringsSketchBytes(t, 0, 10)})
		assert.Error(t, err)
	})

	t.Run("rejects non-bytes sketch field", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{"sketch", "050"})
		assert.Error(t, err)
	})

	t.Run("rejects non-string split point", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{stringsSketchBytes(t, 0, 10), int64(5)})
		assert.Error(t, err)
	})
}

func TestGetQuantilesFromStringsSketch(t *testing.T) {
	udf := GetQuantilesFromStringsSketch{}

	t.Run("fractional ranks", func(t *testing.T) {
		result, err := udf.Exec(pig.Tuple{stringsSketchBytes(t, 0, 100), float64(0), float64(1)})
		assert.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "000", result.FieldAt(0))
		assert.Equal(t, "099", result.FieldAt(1))
	})

	t.Run("evenly spaced ranks", func(t *testing.T) {
		result, err := udf.Exec(pig.Tuple{stringsSketchBytes(t, 0, 100), int64(3)})
		assert.NoError(t, err)
		require.Len(t, result, 3)
		assert.Equal(t, "000", result.FieldAt(0))
		assert.Equal(t, "099", result.FieldAt(2))
	})

	t.Run("rejects non-positive count", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{stringsSketchBytes(t, 0, 10), int64(0)})
		assert.Error(t, err)
	})

	t.Run("rejects non-fraction rank", func(t *testing.T) {
		_, err := udf.Exec(pig.Tuple{stringsSketchBytes(t, 0, 10), "half", float64(1)})
		assert.Error(t, err)
	})
}

func TestGetQuantilesFromLongsSketch(t *testing.T) {
	data, err := NewDataToLongsSketch(DefaultConfig())
	require.NoError(t, err)
	bag := make(pig.Bag, 0, 100)
	for i := int64(0); i < 100; i++ {
		bag = append(bag, pig.Tuple{i})
	}
	sketchResult, err := data.Exec(pig.Tuple{bag})
	require.NoError(t, err)
	b, ok := sketchResult.FieldAt(0).([]byte)
	require.True(t, ok)

	udf := GetQuantilesFromLongsSketch{}
	result, err := udf.Exec(pig.Tuple{b, float64(0), float64(1)})
	assert.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, int64(0), result.FieldAt(0))
	assert.Equal(t, int64(99), result.FieldAt(1))

	pmf := GetPmfFromLongsSketch{}
	pmfResult, err := pmf.Exec(pig.Tuple{b, int64(50)})
	assert.NoError(t, err)
	require.Len(t, pmfResult, 2)
	assert.InDelta(t, 0.5, pmfResult.FieldAt(0), 1e-9)
}

func TestQuantilesConfig(t *testing.T) {
	t.Run("zero selects library default", func(t *testing.T) {
		cfg, err := NewConfig(0)
		assert.NoError(t, err)
		assert.Equal(t, uint16(0), cfg.K)
	})

	t.Run("bounds", func(t *testing.T) {
		_, err := NewConfig(7)
		assert.Error(t, err)
		_, err = NewConfig(65536)
		assert.Error(t, err)
		_, err = NewConfig(MinK)
		assert.NoError(t, err)
	})

	t.Run("parse", func(t *testing.T) {
		cfg, err := ParseConfig("256")
		assert.NoError(t, err)
		assert.Equal(t, uint16(256), cfg.K)

		_, err = ParseConfig("a lot")
		assert.Error(t, err)
		_, err = ParseConfig("1", "2")
		assert.Error(t, err)
	})
}
