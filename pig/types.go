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

// Package pig defines the host engine's in-memory data model (tuples and
// bags of tuples) and the three evaluation contracts a UDF may implement:
// plain per-call evaluation, incremental accumulation, and the three-stage
// algebraic split used by the engine's combiner.
package pig

// Tuple is an ordered sequence of typed fields. Fields may be nil.
//
// Supported field values are int8, int32, int64, int, float32, float64,
// string, []byte, Bag and nil. Anything else is rejected by Classify.
type Tuple []any

// FieldAt returns the field at index i, or nil if the tuple is nil or
// i is out of range. Absent fields and null fields are indistinguishable
// on purpose: both mean "contributes nothing".
func (t Tuple) FieldAt(i int) any {
	if t == nil || i < 0 || i >= len(t) {
		return nil
	}
	return t[i]
}

// Bag is an ordered collection of tuples.
type Bag []Tuple

// ExtractBag returns the bag held in field 0 of the input tuple, or nil
// when the tuple is nil, has no fields, holds a nil field, or holds
// something that is not a bag. A nil return always means "no input",
// never an error.
func ExtractBag(t Tuple) Bag {
	bag, _ := t.FieldAt(0).(Bag)
	return bag
}
