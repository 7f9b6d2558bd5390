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

	dstheta "github.com/apache/datasketches-go/theta"

	"github.com/kainoa21/sketches-pig/pig"
)

// DataToSketch builds a Theta sketch from a bag of datum tuples. Each
// datum tuple carries one value at field 0: an integer, a float, a string
// or a byte buffer. The result is the serialized compact ordered sketch.
//
// The UDF supports all three execution strategies. Exec is stateless;
// Accumulate keeps a sketch across calls until Cleanup; the algebraic
// stages let the engine split the aggregation across combiner passes.
type DataToSketch struct {
	cfg        Config
	emptyBytes []byte
	accum      *dstheta.QuickSelectUpdateSketch
}

// NewDataToSketch constructs the UDF with the given configuration.
func NewDataToSketch(cfg Config) (*DataToSketch, error) {
	cfg, err := NewConfig(cfg.NomEntries, cfg.P, cfg.Seed)
	if err != nil {
		return nil, err
	}
	empty, err := emptySketchBytes(cfg)
	if err != nil {
		return nil, err
	}
	return &DataToSketch{cfg: cfg, emptyBytes: empty}, nil
}

// NewDataToSketchFromStrings constructs the UDF from the string arguments
// of the engine's declarative invocation syntax: nomEntries, p, seed.
func NewDataToSketchFromStrings(args ...string) (*DataToSketch, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewDataToSketch(cfg)
}

// Exec builds one sketch from the bag at field 0 of the input tuple and
// returns its serialization. An absent input or bag yields the empty
// sketch bytes without constructing a sketch.
func (d *DataToSketch) Exec(input pig.Tuple) ([]byte, error) {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return d.emptyBytes, nil
	}
	sketch, err := newUpdateSketch(d.cfg)
	if err != nil {
		return nil, err
	}
	if err := updateFromBag(bag, sketch); err != nil {
		return nil, err
	}
	return serializeOrdered(sketch.CompactOrdered())
}

// Accumulate feeds another bag of datum tuples into the sketch kept by
// this instance, creating it on first use. A nil bag is a no-op.
func (d *DataToSketch) Accumulate(input pig.Tuple) error {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return nil
	}
	if d.accum == nil {
		sketch, err := newUpdateSketch(d.cfg)
		if err != nil {
			return err
		}
		d.accum = sketch
	}
	return updateFromBag(bag, d.accum)
}

// GetValue returns the serialization of the accumulated sketch without
// resetting it. Before any Accumulate call it returns the empty sketch.
func (d *DataToSketch) GetValue() ([]byte, error) {
	if d.accum == nil {
		return d.emptyBytes, nil
	}
	return serializeOrdered(d.accum.CompactOrdered())
}

// Cleanup discards the accumulated sketch so the next Accumulate starts
// fresh. Safe to call repeatedly and before any Accumulate.
func (d *DataToSketch) Cleanup() {
	d.accum = nil
}

// Initial returns the identity pass of the algebraic split.
func (d *DataToSketch) Initial() pig.EvalFunc[pig.Tuple] {
	return Initial{}
}

// Intermediate returns the partial-merge pass of the algebraic split.
func (d *DataToSketch) Intermediate() pig.EvalFunc[pig.Tuple] {
	im, _ := NewDataToSketchIntermediate(d.cfg) // cfg already validated
	return im
}

// Final returns the terminal pass of the algebraic split.
func (d *DataToSketch) Final() pig.EvalFunc[[]byte] {
	fin, _ := NewDataToSketchFinal(d.cfg)
	return fin
}

// updateFromBag presents the value at field 0 of every tuple in the bag
// to the sketch. Null fields are skipped, non-scalar shapes abort the
// call. Rejected updates (duplicates, empty values, sampling screen-outs)
// are part of normal sketch operation and are ignored.
func updateFromBag(bag pig.Bag, sketch *dstheta.QuickSelectUpdateSketch) error {
	for _, datum := range bag {
		f, err := pig.ClassifyAt(datum, 0)
		if err != nil {
			return err
		}
		switch f.Kind {
		case pig.FieldNull:
			continue
		case pig.FieldInt8:
			_ = sketch.UpdateInt8(int8(f.Int))
		case pig.FieldInt32:
			_ = sketch.UpdateInt32(int32(f.Int))
		case pig.FieldInt64:
			_ = sketch.UpdateInt64(f.Int)
		case pig.FieldFloat32:
			_ = sketch.UpdateFloat32(float32(f.Float))
		case pig.FieldFloat64:
			_ = sketch.UpdateFloat64(f.Float)
		case pig.FieldString:
			_ = sketch.UpdateString(f.Str)
		case pig.FieldBytes:
			_ = sketch.UpdateBytes(f.Bytes)
		default:
			return fmt.Errorf("datum field 0 must be a scalar, string or bytes, got %s", f.Kind)
		}
	}
	return nil
}

// dataMergeCore is the shared Intermediate/Final logic for DataToSketch.
//
// Field 0 of every tuple in the outer bag is interpreted by shape: a
// nested bag means the engine bypassed the Intermediate stage and
// coalesced raw Initial outputs, so its tuples carry raw datum values; a
// byte buffer is a sketch serialized by a prior Intermediate call on
// another partition. Both may appear in one call and must merge into one
// sketch regardless of how the engine partitioned the work.
type dataMergeCore struct {
	cfg   Config
	empty *dstheta.CompactSketch
}

func newDataMergeCore(cfg Config) (dataMergeCore, error) {
	cfg, err := NewConfig(cfg.NomEntries, cfg.P, cfg.Seed)
	if err != nil {
		return dataMergeCore{}, err
	}
	s, err := newUpdateSketch(cfg)
	if err != nil {
		return dataMergeCore{}, err
	}
	return dataMergeCore{cfg: cfg, empty: s.CompactOrdered()}, nil
}

func (c dataMergeCore) buildSketch(input pig.Tuple) (*dstheta.CompactSketch, error) {
	outer := pig.ExtractBag(input)
	if outer == nil {
		return c.empty, nil
	}

	union, err := newUnion(c.cfg)
	if err != nil {
		return nil, err
	}
	var raw *dstheta.QuickSelectUpdateSketch // lazily built for bypassed-Initial items

	for _, dataTuple := range outer {
		f, err := pig.ClassifyAt(dataTuple, 0)
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
			if raw == nil {
				if raw, err = newUpdateSketch(c.cfg); err != nil {
					return nil, err
				}
			}
			if err := updateFromBag(f.Bag, raw); err != nil {
				return nil, err
			}
		case pig.FieldBytes:
			incoming, err := dstheta.Decode(f.Bytes, c.cfg.Seed)
			if err != nil {
				return nil, fmt.Errorf("decoding intermediate sketch: %w", err)
			}
			if err := union.Update(incoming); err != nil {
				return nil, err
			}
		default:
			// The engine only ever hands this stage bags or serialized
			// sketches; anything else is a contract violation.
			return nil, fmt.Errorf("algebraic input field 0 must be a bag or bytes, got %s", f.Kind)
		}
	}

	if raw != nil {
		if err := union.Update(raw); err != nil {
			return nil, err
		}
	}
	return union.OrderedResult()
}

// DataToSketchIntermediate is the combiner pass of the algebraic split.
// Its output wraps the partial sketch in a tuple so a later Intermediate
// or Final call finds it on the byte-buffer path of the shape dispatch.
type DataToSketchIntermediate struct {
	core dataMergeCore
}

// NewDataToSketchIntermediate constructs the intermediate stage. The
// engine passes the same constructor arguments as the top-level UDF.
func NewDataToSketchIntermediate(cfg Config) (*DataToSketchIntermediate, error) {
	core, err := newDataMergeCore(cfg)
	if err != nil {
		return nil, err
	}
	return &DataToSketchIntermediate{core: core}, nil
}

// NewDataToSketchIntermediateFromStrings mirrors the string-argument
// construction of the top-level UDF.
func NewDataToSketchIntermediateFromStrings(args ...string) (*DataToSketchIntermediate, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewDataToSketchIntermediate(cfg)
}

// Exec merges one outer bag and returns the partial sketch as a tuple.
func (s *DataToSketchIntermediate) Exec(input pig.Tuple) (pig.Tuple, error) {
	result, err := s.core.buildSketch(input)
	if err != nil {
		return nil, err
	}
	b, err := serializeOrdered(result)
	if err != nil {
		return nil, err
	}
	return pig.Tuple{b}, nil
}

// DataToSketchFinal is the terminal pass of the algebraic split. It runs
// the same merge core but returns the finished serialized sketch
// directly, since nothing downstream will merge it again.
type DataToSketchFinal struct {
	core dataMergeCore
}

// NewDataToSketchFinal constructs the final stage. The engine passes the
// same constructor arguments as the top-level UDF.
func NewDataToSketchFinal(cfg Config) (*DataToSketchFinal, error) {
	core, err := newDataMergeCore(cfg)
	if err != nil {
		return nil, err
	}
	return &DataToSketchFinal{core: core}, nil
}

// NewDataToSketchFinalFromStrings mirrors the string-argument
// construction of the top-level UDF.
func NewDataToSketchFinalFromStrings(args ...string) (*DataToSketchFinal, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewDataToSketchFinal(cfg)
}

// Exec merges one outer bag and returns the finished serialized sketch.
func (s *DataToSketchFinal) Exec(input pig.Tuple) ([]byte, error) {
	result, err := s.core.buildSketch(input)
	if err != nil {
		return nil, err
	}
	return serializeOrdered(result)
}
