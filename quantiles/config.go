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

// Package quantiles provides Pig UDFs for building, merging and querying
// KLL quantiles sketches over comparable items such as strings and longs.
package quantiles

import (
	"fmt"
	"strconv"

	"github.com/apache/datasketches-go/common"
	"github.com/apache/datasketches-go/kll"
	"golang.org/x/exp/constraints"
)

const (
	// MinK and MaxK bound the accuracy parameter k.
	MinK = 8
	MaxK = 65535

	// minimum level width of the underlying KLL sketch
	defaultM = 8
)

// Config holds the quantiles sketch parameter shared by all execution
// strategies of a UDF.
type Config struct {
	// K determines the accuracy and size of the sketch. Zero selects the
	// library default.
	K uint16
}

// DefaultConfig returns a Config selecting the library default k.
func DefaultConfig() Config {
	return Config{}
}

// NewConfig validates k, where 0 means the library default.
func NewConfig(k int) (Config, error) {
	if k != 0 && (k < MinK || k > MaxK) {
		return Config{}, fmt.Errorf("k must be 0 or in [%d, %d], got %d", MinK, MaxK, k)
	}
	return Config{K: uint16(k)}, nil
}

// ParseConfig builds a Config from the textual constructor arguments Pig
// passes through a DEFINE statement: an optional k.
func ParseConfig(args ...string) (Config, error) {
	if len(args) == 0 {
		return DefaultConfig(), nil
	}
	if len(args) > 1 {
		return Config{}, fmt.Errorf("at most 1 constructor argument expected, got %d", len(args))
	}
	k, err := strconv.Atoi(args[0])
	if err != nil {
		return Config{}, fmt.Errorf("parsing k: %w", err)
	}
	return NewConfig(k)
}

// NaturalOrder returns the ascending comparator for any ordered item type.
func NaturalOrder[C constraints.Ordered]() common.CompareFn[C] {
	return func(a, b C) bool { return a < b }
}

func newItemsSketch[C comparable](cfg Config, compare common.CompareFn[C], serde common.ItemSketchSerde[C]) (*kll.ItemsSketch[C], error) {
	if cfg.K == 0 {
		return kll.NewKllItemsSketchWithDefault[C](compare, serde)
	}
	return kll.NewKllItemsSketch[C](cfg.K, defaultM, compare, serde)
}

func decodeItemsSketch[C comparable](b []byte, compare common.CompareFn[C], serde common.ItemSketchSerde[C]) (*kll.ItemsSketch[C], error) {
	sketch, err := kll.NewKllItemsSketchFromSlice[C](b, compare, serde)
	if err != nil {
		return nil, fmt.Errorf("decoding items sketch: %w", err)
	}
	return sketch, nil
}
