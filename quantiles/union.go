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

// UnionItemsSketch merges a bag of serialized quantiles sketches and
// returns the result inside a single-field tuple. It implements the
// stateless, Accumulator and Algebraic execution strategies.
type UnionItemsSketch[C comparable] struct {
	cfg        Config
	compare    common.CompareFn[C]
	serde      common.ItemSketchSerde[C]
	emptyTuple pig.Tuple
	accum      *kll.ItemsSketch[C]
}

func newUnionItemsSketch[C comparable](cfg Config, compare common.CompareFn[C], serde common.ItemSketchSerde[C]) (*UnionItemsSketch[C], error) {
	empty, err := newItemsSketch[C](cfg, compare, serde)
	if err != nil {
		return nil, err
	}
	emptyTuple, err := itemsSketchTuple(empty)
	if err != nil {
		return nil, err
	}
	return &UnionItemsSketch[C]{
		cfg:        cfg,
		compare:    compare,
		serde:      serde,
		emptyTuple: emptyTuple,
	}, nil
}

// NewUnionStringsSketch constructs the UDF over string items.
func NewUnionStringsSketch(cfg Config) (*UnionItemsSketch[string], error) {
	return newUnionItemsSketch[string](cfg, NaturalOrder[string](), common.ItemSketchStringSerDe{})
}

// NewUnionStringsSketchFromStrings constructs the UDF from an optional
// k string.
func NewUnionStringsSketchFromStrings(args ...string) (*UnionItemsSketch[string], error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewUnionStringsSketch(cfg)
}

// NewUnionLongsSketch constructs the UDF over int64 items.
func NewUnionLongsSketch(cfg Config) (*UnionItemsSketch[int64], error) {
	return newUnionItemsSketch[int64](cfg, NaturalOrder[int64](), common.ItemSketchLongSerDe{})
}

// NewUnionLongsSketchFromStrings constructs the UDF from an optional
// k string.
func NewUnionLongsSketchFromStrings(args ...string) (*UnionItemsSketch[int64], error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewUnionLongsSketch(cfg)
}

// Exec merges all sketches in the bag at field 0 of the input tuple and
// returns the result as a sketch tuple.
func (u *UnionItemsSketch[C]) Exec(input pig.Tuple) (pig.Tuple, error) {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return u.emptyTuple, nil
	}
	result, err := newItemsSketch[C](u.cfg, u.compare, u.serde)
	if err != nil {
		return nil, err
	}
	if err := u.mergeSketchBag(bag, result); err != nil {
		return nil, err
	}
	return itemsSketchTuple(result)
}

// Accumulate feeds one bag of serialized sketches into the running
// merge.
func (u *UnionItemsSketch[C]) Accumulate(input pig.Tuple) error {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return nil
	}
	if u.accum == nil {
		sketch, err := newItemsSketch[C](u.cfg, u.compare, u.serde)
		if err != nil {
			return err
		}
		u.accum = sketch
	}
	return u.mergeSketchBag(bag, u.accum)
}

// GetValue returns the merged sketch accumulated so far.
func (u *UnionItemsSketch[C]) GetValue() (pig.Tuple, error) {
	if u.accum == nil {
		return u.emptyTuple, nil
	}
	return itemsSketchTuple(u.accum)
}

// Cleanup discards the accumulated state.
func (u *UnionItemsSketch[C]) Cleanup() {
	u.accum = nil
}

// Initial returns the identity first stage of the Algebraic form.
func (u *UnionItemsSketch[C]) Initial() pig.EvalFunc[pig.Tuple] {
	return Initial{}
}

// Intermediate returns the combiner stage of the Algebraic form.
func (u *UnionItemsSketch[C]) Intermediate() pig.EvalFunc[pig.Tuple] {
	return &UnionItemsSketchIntermediateFinal[C]{parent: u}
}

// Final returns the reducer stage of the Algebraic form; it is the same
// stage as Intermediate.
func (u *UnionItemsSketch[C]) Final() pig.EvalFunc[pig.Tuple] {
	return &UnionItemsSketchIntermediateFinal[C]{parent: u}
}

func (u *UnionItemsSketch[C]) mergeSketchBag(bag pig.Bag, result *kll.ItemsSketch[C]) error {
	for _, datum := range bag {
		f, err := pig.ClassifyAt(datum, 0)
		if err != nil {
			return err
		}
		switch f.Kind {
		case pig.FieldNull:
			continue
		case pig.FieldBytes:
			if len(f.Bytes) == 0 {
				continue
			}
			other, err := decodeItemsSketch[C](f.Bytes, u.compare, u.serde)
			if err != nil {
				return err
			}
			result.Merge(other)
		default:
			return fmt.Errorf("sketch field 0 must be bytes, got %s", f.Kind)
		}
	}
	return nil
}

// UnionItemsSketchIntermediateFinal is the combiner and reducer stage of
// the Algebraic form of UnionItemsSketch. Each item of the outer bag
// carries either a bag of sketch tuples, when outputs of Initial arrive
// directly, or a serialized sketch produced by a prior combiner pass.
type UnionItemsSketchIntermediateFinal[C comparable] struct {
	parent *UnionItemsSketch[C]
}

// NewUnionStringsSketchIntermediateFinal constructs the stage over
// string items from an optional k string.
func NewUnionStringsSketchIntermediateFinal(args ...string) (*UnionItemsSketchIntermediateFinal[string], error) {
	parent, err := NewUnionStringsSketchFromStrings(args...)
	if err != nil {
		return nil, err
	}
	return &UnionItemsSketchIntermediateFinal[string]{parent: parent}, nil
}

// NewUnionLongsSketchIntermediateFinal constructs the stage over int64
// items from an optional k string.
func NewUnionLongsSketchIntermediateFinal(args ...string) (*UnionItemsSketchIntermediateFinal[int64], error) {
	parent, err := NewUnionLongsSketchFromStrings(args...)
	if err != nil {
		return nil, err
	}
	return &UnionItemsSketchIntermediateFinal[int64]{parent: parent}, nil
}

// Exec merges the outer bag at field 0 of the input tuple into one
// sketch and returns it as a sketch tuple.
func (s *UnionItemsSketchIntermediateFinal[C]) Exec(input pig.Tuple) (pig.Tuple, error) {
	u := s.parent
	bag := pig.ExtractBag(input)
	if bag == nil {
		return u.emptyTuple, nil
	}
	result, err := newItemsSketch[C](u.cfg, u.compare, u.serde)
	if err != nil {
		return nil, err
	}
	for _, datum := range bag {
		f, err := pig.ClassifyAt(datum, 0)
		if err != nil {
			return nil, err
		}
		switch f.Kind {
		case pig.FieldNull:
			continue
		case pig.FieldBag:
			if len(f.Bag) == 0 {
				continue
			}
			if err := u.mergeSketchBag(f.Bag, result); err != nil {
				return nil, err
			}
		case pig.FieldBytes:
			other, err := decodeItemsSketch[C](f.Bytes, u.compare, u.serde)
			if err != nil {
				return nil, err
			}
			result.Merge(other)
		default:
			return nil, fmt.Errorf("algebraic input field 0 must be a bag or bytes, got %s", f.Kind)
		}
	}
	return itemsSketchTuple(result)
}
