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

	dstuple "github.com/apache/datasketches-go/tuple"
	"github.com/rs/zerolog"

	"github.com/kainoa21/sketches-pig/pig"
)

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

// DataToArrayOfDoublesSketch builds a tuple sketch from a bag of datum
// tuples, each holding a key at field 0 followed by one double value per
// summary column, and returns its serialized form. It implements the
// stateless, Accumulator and Algebraic execution strategies.
type DataToArrayOfDoublesSketch struct {
	cfg        Config
	emptyBytes []byte
	accum      *dstuple.ArrayOfNumbersUpdateSketch[float64]
	log        zerolog.Logger
	firstCall  bool
}

// NewDataToArrayOfDoublesSketch constructs the UDF from a validated
// Config.
func NewDataToArrayOfDoublesSketch(cfg Config) (*DataToArrayOfDoublesSketch, error) {
	cfg, err := NewConfig(cfg.NomEntries, cfg.NumValues, cfg.Seed)
	if err != nil {
		return nil, err
	}
	empty, err := emptySketchBytes(cfg)
	if err != nil {
		return nil, err
	}
	return &DataToArrayOfDoublesSketch{
		cfg:        cfg,
		emptyBytes: empty,
		log:        newLogger(),
		firstCall:  true,
	}, nil
}

// NewDataToArrayOfDoublesSketchFromStrings constructs the UDF from the
// textual constructor arguments of a Pig DEFINE statement.
func NewDataToArrayOfDoublesSketchFromStrings(args ...string) (*DataToArrayOfDoublesSketch, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewDataToArrayOfDoublesSketch(cfg)
}

// Exec builds one sketch over the bag of datum tuples at field 0 of the
// input tuple and returns its serialized form.
func (d *DataToArrayOfDoublesSketch) Exec(input pig.Tuple) ([]byte, error) {
	if d.firstCall {
		d.log.Info().Msg("exec is used")
		d.firstCall = false
	}
	bag := pig.ExtractBag(input)
	if bag == nil {
		return d.emptyBytes, nil
	}
	sketch, err := newUpdateSketch(d.cfg)
	if err != nil {
		return nil, err
	}
	if err := d.updateFromBag(bag, sketch); err != nil {
		return nil, err
	}
	compact, err := sketch.Compact(true)
	if err != nil {
		return nil, err
	}
	return serializeSketch(compact)
}

// Accumulate feeds one bag of datum tuples into the running sketch.
func (d *DataToArrayOfDoublesSketch) Accumulate(input pig.Tuple) error {
	if d.firstCall {
		d.log.Info().Msg("accumulator is used")
		d.firstCall = false
	}
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
	return d.updateFromBag(bag, d.accum)
}

// GetValue returns the serialized sketch accumulated so far.
func (d *DataToArrayOfDoublesSketch) GetValue() ([]byte, error) {
	if d.accum == nil {
		return d.emptyBytes, nil
	}
	compact, err := d.accum.Compact(true)
	if err != nil {
		return nil, err
	}
	return serializeSketch(compact)
}

// Cleanup discards the accumulated state.
func (d *DataToArrayOfDoublesSketch) Cleanup() {
	d.accum = nil
}

// Initial returns the identity first stage of the Algebraic form.
func (d *DataToArrayOfDoublesSketch) Initial() pig.EvalFunc[pig.Tuple] {
	return Initial{}
}

// Intermediate returns the combiner stage of the Algebraic form.
func (d *DataToArrayOfDoublesSketch) Intermediate() pig.EvalFunc[pig.Tuple] {
	s, _ := NewDataToArrayOfDoublesSketchIntermediate(d.cfg)
	return s
}

// Final returns the reducer stage of the Algebraic form.
func (d *DataToArrayOfDoublesSketch) Final() pig.EvalFunc[[]byte] {
	s, _ := NewDataToArrayOfDoublesSketchFinal(d.cfg)
	return s
}

// updateFromBag feeds every datum tuple of the bag into the sketch. Each
// datum carries a key at field 0 and one double per summary column in
// the following fields. Datum tuples with a null key are skipped.
func (d *DataToArrayOfDoublesSketch) updateFromBag(bag pig.Bag, sketch *dstuple.ArrayOfNumbersUpdateSketch[float64]) error {
	for _, datum := range bag {
		if len(datum) != d.cfg.NumValues+1 {
			return fmt.Errorf("datum tuple must have %d fields, got %d", d.cfg.NumValues+1, len(datum))
		}
		key, err := pig.ClassifyAt(datum, 0)
		if err != nil {
			return err
		}
		if key.Kind == pig.FieldNull {
			continue
		}
		values := make([]float64, d.cfg.NumValues)
		for i := range values {
			f, err := pig.ClassifyAt(datum, i+1)
			if err != nil {
				return err
			}
			switch f.Kind {
			case pig.FieldFloat32, pig.FieldFloat64:
				values[i] = f.Float
			default:
				return fmt.Errorf("value field %d must be a double, got %s", i+1, f.Kind)
			}
		}
		switch key.Kind {
		case pig.FieldInt8:
			_ = sketch.UpdateInt8(int8(key.Int), values)
		case pig.FieldInt32:
			_ = sketch.UpdateInt32(int32(key.Int), values)
		case pig.FieldInt64:
			_ = sketch.UpdateInt64(key.Int, values)
		case pig.FieldFloat32:
			_ = sketch.UpdateFloat32(float32(key.Float), values)
		case pig.FieldFloat64:
			_ = sketch.UpdateFloat64(key.Float, values)
		case pig.FieldString:
			_ = sketch.UpdateString(key.Str, values)
		case pig.FieldBytes:
			_ = sketch.UpdateBytes(key.Bytes, values)
		default:
			return fmt.Errorf("key field 0 must be a scalar, string or bytes, got %s", key.Kind)
		}
	}
	return nil
}

// mergeCore merges the outer bag of an Algebraic combiner input into one
// compact sketch. Each item of the outer bag carries either a bag of raw
// datum tuples, when outputs of Initial arrive directly, or a serialized
// sketch produced by a prior combiner pass.
type mergeCore struct {
	parent *DataToArrayOfDoublesSketch
}

func (c mergeCore) buildSketch(input pig.Tuple) (*dstuple.ArrayOfNumbersCompactSketch[float64], error) {
	d := c.parent
	union, err := newUnion(d.cfg)
	if err != nil {
		return nil, err
	}
	bag := pig.ExtractBag(input)
	var raw *dstuple.ArrayOfNumbersUpdateSketch[float64]
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
			if raw == nil {
				raw, err = newUpdateSketch(d.cfg)
				if err != nil {
					return nil, err
				}
			}
			if err := d.updateFromBag(f.Bag, raw); err != nil {
				return nil, err
			}
		case pig.FieldBytes:
			sketch, err := decodeSketch(f.Bytes, d.cfg.Seed)
			if err != nil {
				return nil, err
			}
			if err := union.Update(sketch); err != nil {
				return nil, err
			}
		default:
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

// DataToArrayOfDoublesSketchIntermediate is the combiner stage of the
// Algebraic form of DataToArrayOfDoublesSketch. It wraps the partial
// sketch in a tuple for the next pass.
type DataToArrayOfDoublesSketchIntermediate struct {
	core mergeCore
}

// NewDataToArrayOfDoublesSketchIntermediate constructs the stage from a
// validated Config.
func NewDataToArrayOfDoublesSketchIntermediate(cfg Config) (*DataToArrayOfDoublesSketchIntermediate, error) {
	parent, err := NewDataToArrayOfDoublesSketch(cfg)
	if err != nil {
		return nil, err
	}
	return &DataToArrayOfDoublesSketchIntermediate{core: mergeCore{parent: parent}}, nil
}

// NewDataToArrayOfDoublesSketchIntermediateFromStrings constructs the
// stage from the textual constructor arguments of a Pig DEFINE
// statement.
func NewDataToArrayOfDoublesSketchIntermediateFromStrings(args ...string) (*DataToArrayOfDoublesSketchIntermediate, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewDataToArrayOfDoublesSketchIntermediate(cfg)
}

func (s *DataToArrayOfDoublesSketchIntermediate) Exec(input pig.Tuple) (pig.Tuple, error) {
	d := s.core.parent
	if d.firstCall {
		d.log.Info().Msg("algebraic is used")
		d.firstCall = false
	}
	sketch, err := s.core.buildSketch(input)
	if err != nil {
		return nil, err
	}
	return sketchTuple(sketch)
}

// DataToArrayOfDoublesSketchFinal is the reducer stage of the Algebraic
// form of DataToArrayOfDoublesSketch. It returns the terminal serialized
// sketch.
type DataToArrayOfDoublesSketchFinal struct {
	core mergeCore
}

// NewDataToArrayOfDoublesSketchFinal constructs the stage from a
// validated Config.
func NewDataToArrayOfDoublesSketchFinal(cfg Config) (*DataToArrayOfDoublesSketchFinal, error) {
	parent, err := NewDataToArrayOfDoublesSketch(cfg)
	if err != nil {
		return nil, err
	}
	return &DataToArrayOfDoublesSketchFinal{core: mergeCore{parent: parent}}, nil
}

// NewDataToArrayOfDoublesSketchFinalFromStrings constructs the stage
// from the textual constructor arguments of a Pig DEFINE statement.
func NewDataToArrayOfDoublesSketchFinalFromStrings(args ...string) (*DataToArrayOfDoublesSketchFinal, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewDataToArrayOfDoublesSketchFinal(cfg)
}

func (s *DataToArrayOfDoublesSketchFinal) Exec(input pig.Tuple) ([]byte, error) {
	d := s.core.parent
	if d.firstCall {
		d.log.Info().Msg("algebraic is used")
		d.firstCall = false
	}
	sketch, err := s.core.buildSketch(input)
	if err != nil {
		return nil, err
	}
	return serializeSketch(sketch)
}
