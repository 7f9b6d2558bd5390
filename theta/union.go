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

// Union performs the union set operation on sketches that were built
// independently, for example one per partition. Unlike DataToSketch the
// items in the input bag are always serialized sketches, never raw
// values. The result is a sketch tuple holding the merged serialization.
//
// Sampling probability is accepted for completeness, but the proper
// place for up-front sampling is when the sketches are built.
type Union struct {
	cfg        Config
	emptyTuple pig.Tuple
	accum      *dstheta.Union
}

// NewUnion constructs the UDF with the given configuration.
func NewUnion(cfg Config) (*Union, error) {
	cfg, err := NewConfig(cfg.NomEntries, cfg.P, cfg.Seed)
	if err != nil {
		return nil, err
	}
	empty, err := emptySketchBytes(cfg)
	if err != nil {
		return nil, err
	}
	return &Union{cfg: cfg, emptyTuple: pig.Tuple{empty}}, nil
}

// NewUnionFromStrings constructs the UDF from the string arguments of
// the engine's declarative invocation syntax: nomEntries, p, seed.
func NewUnionFromStrings(args ...string) (*Union, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewUnion(cfg)
}

// Exec merges the sketch tuples in the bag at field 0 of the input and
// returns the result as a sketch tuple. Absent input yields the empty
// sketch tuple precomputed for this configuration.
func (u *Union) Exec(input pig.Tuple) (pig.Tuple, error) {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return u.emptyTuple, nil
	}
	union, err := newUnion(u.cfg)
	if err != nil {
		return nil, err
	}
	if err := mergeSketchBag(bag, union, u.cfg.Seed); err != nil {
		return nil, err
	}
	return sketchTuple(union)
}

// Accumulate merges another bag of sketch tuples into the union kept by
// this instance, creating it on first use. A nil bag is a no-op.
func (u *Union) Accumulate(input pig.Tuple) error {
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
	return mergeSketchBag(bag, u.accum, u.cfg.Seed)
}

// GetValue returns the merged sketch tuple without resetting the union.
func (u *Union) GetValue() (pig.Tuple, error) {
	if u.accum == nil {
		return u.emptyTuple, nil
	}
	return sketchTuple(u.accum)
}

// Cleanup discards the union kept by this instance.
func (u *Union) Cleanup() {
	u.accum = nil
}

// Initial returns the identity pass of the algebraic split.
func (u *Union) Initial() pig.EvalFunc[pig.Tuple] {
	return Initial{}
}

// Intermediate returns the combiner pass of the algebraic split. For
// Union the intermediate and final passes are the same stage, since its
// output is already a sketch tuple.
func (u *Union) Intermediate() pig.EvalFunc[pig.Tuple] {
	s, _ := NewUnionIntermediateFinal(u.cfg) // cfg already validated
	return s
}

// Final returns the terminal pass of the algebraic split.
func (u *Union) Final() pig.EvalFunc[pig.Tuple] {
	s, _ := NewUnionIntermediateFinal(u.cfg)
	return s
}

func sketchTuple(union *dstheta.Union) (pig.Tuple, error) {
	result, err := union.OrderedResult()
	if err != nil {
		return nil, err
	}
	b, err := serializeOrdered(result)
	if err != nil {
		return nil, err
	}
	return pig.Tuple{b}, nil
}

// mergeSketchBag merges the serialized sketch at field 0 of every tuple
// in the bag into the union. Null fields and empty buffers contribute
// nothing; any other shape aborts the call.
func mergeSketchBag(bag pig.Bag, union *dstheta.Union, seed uint64) error {
	for _, inner := range bag {
		f, err := pig.ClassifyAt(inner, 0)
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
			incoming, err := dstheta.Decode(f.Bytes, seed)
			if err != nil {
				return fmt.Errorf("decoding sketch: %w", err)
			}
			if err := union.Update(incoming); err != nil {
				return err
			}
		default:
			return fmt.Errorf("sketch field 0 must be bytes, got %s", f.Kind)
		}
	}
	return nil
}

// UnionIntermediateFinal is the combiner and terminal pass of the
// algebraic split for Union. It may run in the combiner and again in the
// reducer, receiving either nested bags of sketch tuples (the Initial
// outputs, when the engine bypassed a combiner pass) or byte buffers
// (sketches from prior Intermediate calls), so it dispatches on the
// runtime shape of each item.
type UnionIntermediateFinal struct {
	cfg        Config
	emptyTuple pig.Tuple
}

// NewUnionIntermediateFinal constructs the stage. The engine passes the
// same constructor arguments as the top-level UDF.
func NewUnionIntermediateFinal(cfg Config) (*UnionIntermediateFinal, error) {
	cfg, err := NewConfig(cfg.NomEntries, cfg.P, cfg.Seed)
	if err != nil {
		return nil, err
	}
	empty, err := emptySketchBytes(cfg)
	if err != nil {
		return nil, err
	}
	return &UnionIntermediateFinal{cfg: cfg, emptyTuple: pig.Tuple{empty}}, nil
}

// NewUnionIntermediateFinalFromStrings mirrors the string-argument
// construction of the top-level UDF.
func NewUnionIntermediateFinalFromStrings(args ...string) (*UnionIntermediateFinal, error) {
	cfg, err := ParseConfig(args...)
	if err != nil {
		return nil, err
	}
	return NewUnionIntermediateFinal(cfg)
}

// Exec merges one outer bag and returns the partial union as a sketch
// tuple.
func (s *UnionIntermediateFinal) Exec(input pig.Tuple) (pig.Tuple, error) {
	outer := pig.ExtractBag(input)
	if outer == nil {
		return s.emptyTuple, nil
	}

	union, err := newUnion(s.cfg)
	if err != nil {
		return nil, err
	}
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
			if err := mergeSketchBag(f.Bag, union, s.cfg.Seed); err != nil {
				return nil, err
			}
		case pig.FieldBytes:
			incoming, err := dstheta.Decode(f.Bytes, s.cfg.Seed)
			if err != nil {
				return nil, fmt.Errorf("decoding intermediate sketch: %w", err)
			}
			if err := union.Update(incoming); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("algebraic input field 0 must be a bag or bytes, got %s", f.Kind)
		}
	}
	return sketchTuple(union)
}
