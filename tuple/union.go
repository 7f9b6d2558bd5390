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

// UnionArrayOfDoublesSketch merges a bag of serialized tuple sketches
// and returns the result inside a single-field tuple. Summaries of
// matching keys are summed column-wise. It implements the stateless,
// Accumulator and Algebraic execution strategies.
type UnionArrayOfDoublesSketch struct {
	cfg        Config
	emptyTuple pig.Tuple
	accum      *dstuple.ArrayOfNumbersSketchUnion[float64]
	log        zerolog.Logger
	firstCall  bool
}

// NewUnionArrayOfDoublesSketch constructs the UDF from a validated
// Config.
func NewUnionArrayOfDoublesSketch(cfg Config) (*UnionArrayOfDoublesSketch, error) {
	cfg, err := NewConfig(cfg.NomEntries, cfg.NumValues, cfg.Seed)
	if err != nil {
		return nil, err
	}
	empty, err := emptySketchBytes(cfg)
	if err != nil {
		return nil, err
	}
	return &UnionArrayOfDoublesSketch{
		cfg:        cfg,
		emptyTuple: pig.Tuple{empty},
		log:        newLogger(),
		firstCall:  true,
	}, nil
}

// NewUnionArrayOfDoublesSketchFromStrings constructs the UDF from the
// textual constructor arguments of a Pig DEFINE statement.
func NewUnionArrayOfDoublesSketchFromStrings(args ...string) (*UnionArrayOfDoublesSketch, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewUnionArrayOfDoublesSketch(cfg)
}

// Exec merges all sketches in the bag at field 0 of the input tuple and
// returns the result as a sketch tuple.
func (u *UnionArrayOfDoublesSketch) Exec(input pig.Tuple) (pig.Tuple, error) {
	if u.firstCall {
		u.log.Info().Msg("exec is used")
		u.firstCall = false
	}
	bag := pig.ExtractBag(input)
	if bag == nil {
		return u.emptyTuple, nil
	}
	union, err := newUnion(u.cfg)
	if err != nil {
		return nil, err
	}
	if err := u.mergeSketchBag(bag, union); err != nil {
		return nil, err
	}
	result, err := union.OrderedResult()
	if err != nil {
		return nil, err
	}
	return sketchTuple(result)
}

// Accumulate feeds one bag of serialized sketches into the running
// union.
func (u *UnionArrayOfDoublesSketch) Accumulate(input pig.Tuple) error {
	if u.firstCall {
		u.log.Info().Msg("accumulator is used")
		u.firstCall = false
	}
	bag := pig.ExtractBag(input)
	if bag == nil {
		return nil
	}
	if u.accum == nil {
		union, err := newUnion(u.cfg)
		if err != nil {
			return err
		}
		u.accum = union
	}
	return u.mergeSketchBag(bag, u.accum)
}

// GetValue returns the merged sketch accumulated so far.
func (u *UnionArrayOfDoublesSketch) GetValue() (pig.Tuple, error) {
	if u.accum == nil {
		return u.emptyTuple, nil
	}
	result, err := u.accum.OrderedResult()
	if err != nil {
		return nil, err
	}
	return sketchTuple(result)
}

// Cleanup resets the accumulated state.
func (u *UnionArrayOfDoublesSketch) Cleanup() {
	if u.accum != nil {
		u.accum.Reset()
	}
}

// Initial returns the identity first stage of the Algebraic form.
func (u *UnionArrayOfDoublesSketch) Initial() pig.EvalFunc[pig.Tuple] {
	return Initial{}
}

// Intermediate returns the combiner stage of the Algebraic form.
func (u *UnionArrayOfDoublesSketch) Intermediate() pig.EvalFunc[pig.Tuple] {
	s, _ := NewUnionArrayOfDoublesSketchIntermediateFinal(u.cfg)
	return s
}

// Final returns the reducer stage of the Algebraic form; it is the same
// stage as Intermediate since both consume and produce sketch tuples.
func (u *UnionArrayOfDoublesSketch) Final() pig.EvalFunc[pig.Tuple] {
	s, _ := NewUnionArrayOfDoublesSketchIntermediateFinal(u.cfg)
	return s
}

func (u *UnionArrayOfDoublesSketch) mergeSketchBag(bag pig.Bag, union *dstuple.ArrayOfNumbersSketchUnion[float64]) error {
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
			sketch, err := decodeSketch(f.Bytes, u.cfg.Seed)
			if err != nil {
				return err
			}
			if err := union.Update(sketch); err != nil {
				return err
			}
		default:
			return fmt.Errorf("sketch field 0 must be bytes, got %s", f.Kind)
		}
	}
	return nil
}

// UnionArrayOfDoublesSketchIntermediateFinal is the combiner and reducer
// stage of the Algebraic form of UnionArrayOfDoublesSketch. Each item of
// the outer bag carries either a bag of sketch tuples, when outputs of
// Initial arrive directly, or a serialized sketch produced by a prior
// combiner pass.
type UnionArrayOfDoublesSketchIntermediateFinal struct {
	parent *UnionArrayOfDoublesSketch
}

// NewUnionArrayOfDoublesSketchIntermediateFinal constructs the stage
// from a validated Config.
func NewUnionArrayOfDoublesSketchIntermediateFinal(cfg Config) (*UnionArrayOfDoublesSketchIntermediateFinal, error) {
	parent, err := NewUnionArrayOfDoublesSketch(cfg)
	if err != nil {
		return nil, err
	}
	return &UnionArrayOfDoublesSketchIntermediateFinal{parent: parent}, nil
}

// NewUnionArrayOfDoublesSketchIntermediateFinalFromStrings constructs
// the stage from the textual constructor arguments of a Pig DEFINE
// statement.
func NewUnionArrayOfDoublesSketchIntermediateFinalFromStrings(args ...string) (*UnionArrayOfDoublesSketchIntermediateFinal, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewUnionArrayOfDoublesSketchIntermediateFinal(cfg)
}

// Exec merges the outer bag at field 0 of the input tuple into one
// sketch and returns it as a sketch tuple.
func (s *UnionArrayOfDoublesSketchIntermediateFinal) Exec(input pig.Tuple) (pig.Tuple, error) {
	u := s.parent
	if u.firstCall {
		u.log.Info().Msg("algebraic is used")
		u.firstCall = false
	}
	bag := pig.ExtractBag(input)
	if bag == nil {
		return u.emptyTuple, nil
	}
	union, err := newUnion(u.cfg)
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
			if err := u.mergeSketchBag(f.Bag, union); err != nil {
				return nil, err
			}
		case pig.FieldBytes:
			sketch, err := decodeSketch(f.Bytes, u.cfg.Seed)
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
	result, err := union.OrderedResult()
	if err != nil {
		return nil, err
	}
	return sketchTuple(result)
}
