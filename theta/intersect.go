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
	"strconv"

	dstheta "github.com/apache/datasketches-go/theta"

	"github.com/kainoa21/sketches-pig/pig"
)

// Intersect computes the intersection of a bag of serialized sketches and
// returns the result as a single-field tuple holding the serialized
// intersection. Unlike union, intersection is not associative over data
// partitions, so no Algebraic form is offered; the Accumulator interface
// still streams bags into one running intersection.
type Intersect struct {
	seed       uint64
	emptyTuple pig.Tuple
	accum      *dstheta.Intersection
}

// NewIntersect constructs the UDF with the default update seed.
func NewIntersect() (*Intersect, error) {
	return NewIntersectWithSeed(DefaultSeed)
}

// NewIntersectWithSeed constructs the UDF for sketches built with a
// non-default update seed.
func NewIntersectWithSeed(seed uint64) (*Intersect, error) {
	empty, err := emptySketchBytes(Config{NomEntries: DefaultNomEntries, P: 1, Seed: seed})
	if err != nil {
		return nil, err
	}
	return &Intersect{seed: seed, emptyTuple: pig.Tuple{empty}}, nil
}

// NewIntersectFromStrings constructs the UDF from an optional seed string.
func NewIntersectFromStrings(args ...string) (*Intersect, error) {
	if len(args) == 0 {
		return NewIntersect()
	}
	if len(args) > 1 {
		return nil, fmt.Errorf("at most 1 constructor argument expected, got %d", len(args))
	}
	seed, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	return NewIntersectWithSeed(seed)
}

// Exec intersects all sketches in the bag at field 0 of the input tuple.
func (i *Intersect) Exec(input pig.Tuple) (pig.Tuple, error) {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return i.emptyTuple, nil
	}
	intersection := dstheta.NewIntersection(dstheta.WithIntersectionSeed(i.seed))
	if err := intersectSketchBag(bag, intersection, i.seed); err != nil {
		return nil, err
	}
	return i.resultTuple(intersection)
}

// Accumulate feeds one bag of serialized sketches into the running
// intersection.
func (i *Intersect) Accumulate(input pig.Tuple) error {
	bag := pig.ExtractBag(input)
	if bag == nil {
		return nil
	}
	if i.accum == nil {
		i.accum = dstheta.NewIntersection(dstheta.WithIntersectionSeed(i.seed))
	}
	return intersectSketchBag(bag, i.accum, i.seed)
}

// GetValue returns the serialized intersection accumulated so far.
func (i *Intersect) GetValue() (pig.Tuple, error) {
	if i.accum == nil {
		return i.emptyTuple, nil
	}
	return i.resultTuple(i.accum)
}

// Cleanup discards the accumulated state.
func (i *Intersect) Cleanup() {
	i.accum = nil
}

func (i *Intersect) resultTuple(intersection *dstheta.Intersection) (pig.Tuple, error) {
	if !intersection.HasResult() {
		return i.emptyTuple, nil
	}
	result, err := intersection.OrderedResult()
	if err != nil {
		return nil, err
	}
	b, err := serializeOrdered(result)
	if err != nil {
		return nil, err
	}
	return pig.Tuple{b}, nil
}

func intersectSketchBag(bag pig.Bag, intersection *dstheta.Intersection, seed uint64) error {
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
			sketch, err := dstheta.Decode(f.Bytes, seed)
			if err != nil {
				return fmt.Errorf("decoding sketch: %w", err)
			}
			if err := intersection.Update(sketch); err != nil {
				return err
			}
		default:
			return fmt.Errorf("sketch field 0 must be bytes, got %s", f.Kind)
		}
	}
	return nil
}
