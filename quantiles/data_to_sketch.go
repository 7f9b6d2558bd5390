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

// itemFn converts a classified Pig field into a sketch item.
type itemFn[C comparable] func(f pig.Field) (C, error)

func stringItem(f pig.Field) (string, error) {
	if f.Kind != pig.FieldString {
		return "", fmt.Errorf("datum field 0 must be a string, got %s", f.Kind)
	}
	return f.Str, nil
}

func longItem(f pig.Field) (int64, error) {
	switch f.Kind {
	case pig.FieldInt8, pig.FieldInt32, pig.FieldInt64:
		return f.Int, nil
	}
	return 0, fmt.Errorf("datum field 0 must be an integer, got %s", f.Kind)
}

// Initial is the identity first stage shared by the Algebraic forms of
// the UDFs in this package.
type Initial struct{}

// NewInitialFromStrings mirrors the textual constructors of the main UDF
// classes; the arguments are accepted and ignored.
func NewInitialFromStrings(args ...string) (Initial, error) {
	return Initial{}, nil
}

// Exec passes every record through unchanged for the combiner stages.
func (Initial) Exec(input pig.Tuple) (pig.Tuple, error) {
	return input, nil
}

// DataToItemsSketch builds a quantiles sketch from a bag of raw items
// and returns it serialized inside a single-field tuple. It implements
// the stateless, Accumulator and Algebraic execution strategies.
type DataToItemsSketch[C comparable] struct {
	cfg        Config
	compare    common.CompareFn[C]
	serde      common.ItemSketchSerde[C]
	item       itemFn[C]
	emptyTuple pig.Tuple
	accum      *kll.ItemsSketch[C]
}

func newDataToItemsSketch[C comparable](cfg Config, compare common.CompareFn[C], serde common.ItemSketchSerde[C], item itemFn[C]) (*DataToItemsSketch[C], error) {
	empty, err := newItemsSketch[C](cfg, compare, serde)
	if err != nil {
		return nil, err
	}
	emptyTuple, err := itemsSketchTuple(empty)
	if err != nil {
		return nil, err
	}
	return &DataToItemsSketch[C]{
		cfg:        cfg,
		compare:    compare,
		serde:      serde,
		item:       item,
		emptyTuple: emptyTuple,
	}, nil
}

// NewDataToStringsSketch constructs the UDF over string items.
func NewDataToStringsSketch(cfg Config) (*DataToItemsSketch[string], error) {
	return newDataToItemsSketch[string](cfg, NaturalOrder[string](), common.ItemSketchStringSerDe{}, stringItem)
}

// NewDataToStringsSketchFromStrings constructs the UDF from an optional
// k string.
func NewDataToStringsSketchFromStrings(args ...string) (*DataToItemsSketch[string], error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewDataToStringsSketch(cfg)
}

// NewDataToLongsSketch constructs the UDF over int64 items. Narrower
// integer fields are widened before the update.
func NewDataToLongsSketch(cfg Config) (*DataToItemsSketch[int64], error) {
	return newDataToItemsSketch[int64](cfg, NaturalOrder[int64](), common.ItemSketchLongSerDe{}, longItem)
}

// NewDataToLongsSketchFromStrings constructs the UDF from an optional
// k string.
func NewDataToLongsSketchFromStrings(args ...string) (*DataToItemsSketch[int64], error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewDataToLongsSketch(cfg)
}

// Exec builds one sketch over the bag of raw items at field 0 of the
// input tuple and returns it serialized inside a single-field tuple.
func (d *DataToItemsSketch[C]) Exec(input pig.Tuple) (pig.Tuple, error) {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return d.emptyTuple, nil
	}
	sketch, err := newItemsSketch[C](d.cfg, d.compare, d.serde)
	if err != nil {
		return nil, err
	}
	if err := d.updateFromBag(bag, sketch); err != nil {
		return nil, err
	}
	return itemsSketchTuple(sketch)
}

// Accumulate feeds one bag of raw items into the running sketch.
func (d *DataToItemsSketch[C]) Accumulate(input pig.Tuple) error {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return nil
	}
	if d.accum == nil {
		sketch, err := newItemsSketch[C](d.cfg, d.compare, d.serde)
		if err != nil {
			return err
		}
		d.accum = sketch
	}
	return d.updateFromBag(bag, d.accum)
}

// GetValue returns the sketch accumulated so far as a sketch tuple.
func (d *DataToItemsSketch[C]) GetValue() (pig.Tuple, error) {
	if d.accum == nil {
		return d.emptyTuple, nil
	}
	return itemsSketchTuple(d.accum)
}

// Cleanup discards the accumulated state.
func (d *DataToItemsSketch[C]) Cleanup() {
	d.accum = nil
}

// Initial returns the identity first stage of the Algebraic form.
func (d *DataToItemsSketch[C]) Initial() pig.EvalFunc[pig.Tuple] {
	return Initial{}
}

// Intermediate returns the combiner stage of the Algebraic form.
func (d *DataToItemsSketch[C]) Intermediate() pig.EvalFunc[pig.Tuple] {
	return &DataToItemsSketchIntermediateFinal[C]{parent: d}
}

// Final returns the reducer stage of the Algebraic form. It is the same
// stage as Intermediate since both consume and produce sketch tuples.
func (d *DataToItemsSketch[C]) Final() pig.EvalFunc[pig.Tuple] {
	return &DataToItemsSketchIntermediateFinal[C]{parent: d}
}

func (d *DataToItemsSketch[C]) updateFromBag(bag pig.Bag, sketch *kll.ItemsSketch[C]) error {
	for _, datum := range bag {
		f, err := pig.ClassifyAt(datum, 0)
		if err != nil {
			return err
		}
		if f.Kind == pig.FieldNull {
			continue
		}
		item, err := d.item(f)
		if err != nil {
			return err
		}
		sketch.Update(item)
	}
	return nil
}

// DataToItemsSketchIntermediateFinal is the combiner and reducer stage of
// the Algebraic form of DataToItemsSketch. Each item of the outer bag
// carries either a bag of raw items, when the combiner was bypassed and
// outputs of Initial arrive directly, or a serialized sketch produced by
// a prior combiner pass.
type DataToItemsSketchIntermediateFinal[C comparable] struct {
	parent *DataToItemsSketch[C]
}

// NewDataToStringsSketchIntermediateFinal constructs the stage over
// string items from an optional k string.
func NewDataToStringsSketchIntermediateFinal(args ...string) (*DataToItemsSketchIntermediateFinal[string], error) {
	parent, err := NewDataToStringsSketchFromStrings(args...)
	if err != nil {
		return nil, err
	}
	return &DataToItemsSketchIntermediateFinal[string]{parent: parent}, nil
}

// NewDataToLongsSketchIntermediateFinal constructs the stage over int64
// items from an optional k string.
func NewDataToLongsSketchIntermediateFinal(args ...string) (*DataToItemsSketchIntermediateFinal[int64], error) {
	parent, err := NewDataToLongsSketchFromStrings(args...)
	if err != nil {
		return nil, err
	}
	return &DataToItemsSketchIntermediateFinal[int64]{parent: parent}, nil
}

// Exec merges the outer bag at field 0 of the input tuple into one
// sketch and returns it as a sketch tuple.
func (s *DataToItemsSketchIntermediateFinal[C]) Exec(input pig.Tuple) (pig.Tuple, error) {
	d := s.parent
	bag := pig.ExtractBag(input)
	if bag == nil {
		return d.emptyTuple, nil
	}
	result, err := newItemsSketch[C](d.cfg, d.compare, d.serde)
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
			if err := d.updateFromBag(f.Bag, result); err != nil {
				return nil, err
			}
		case pig.FieldBytes:
			other, err := decodeItemsSketch[C](f.Bytes, d.compare, d.serde)
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

func itemsSketchTuple[C comparable](sketch *kll.ItemsSketch[C]) (pig.Tuple, error) {
	b, err := sketch.ToSlice()
	if err != nil {
		return nil, fmt.Errorf("serializing items sketch: %w", err)
	}
	return pig.Tuple{b}, nil
}
