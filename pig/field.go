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

package pig

import "fmt"

// FieldKind identifies the decoded runtime shape of a tuple field.
type FieldKind uint8

const (
	// FieldNull marks an absent or nil field.
	FieldNull FieldKind = iota
	// FieldBag marks a nested bag of tuples.
	FieldBag
	// FieldBytes marks a byte buffer, typically a serialized sketch.
	FieldBytes
	// FieldInt8 marks a signed 8-bit integer.
	FieldInt8
	// FieldInt32 marks a signed 32-bit integer.
	FieldInt32
	// FieldInt64 marks a signed 64-bit integer. Plain int decodes here.
	FieldInt64
	// FieldFloat32 marks a single-precision float.
	FieldFloat32
	// FieldFloat64 marks a double-precision float.
	FieldFloat64
	// FieldString marks a text value.
	FieldString
)

// String returns the kind's name, used in error messages.
func (k FieldKind) String() string {
	switch k {
	case FieldNull:
		return "null"
	case FieldBag:
		return "bag"
	case FieldBytes:
		return "bytes"
	case FieldInt8:
		return "int8"
	case FieldInt32:
		return "int32"
	case FieldInt64:
		return "int64"
	case FieldFloat32:
		return "float32"
	case FieldFloat64:
		return "float64"
	case FieldString:
		return "string"
	}
	return "unknown"
}

// Field is the decoded form of a single tuple field. Kind selects which
// of the payload members is meaningful. Integer payloads are widened to
// Int with the original width preserved in Kind; float payloads likewise
// in Float.
//
// Decoding up front keeps the downstream merge logic branch-free over an
// explicit sum type instead of re-dispatching on raw runtime types.
type Field struct {
	Kind  FieldKind
	Bag   Bag
	Bytes []byte
	Str   string
	Int   int64
	Float float64
}

// Classify decodes a raw field value into a Field. Unsupported runtime
// types produce an error naming the offending concrete type; nil is the
// FieldNull value, never an error.
func Classify(v any) (Field, error) {
	switch x := v.(type) {
	case nil:
		return Field{Kind: FieldNull}, nil
	case Bag:
		return Field{Kind: FieldBag, Bag: x}, nil
	case []byte:
		return Field{Kind: FieldBytes, Bytes: x}, nil
	case int8:
		return Field{Kind: FieldInt8, Int: int64(x)}, nil
	case int32:
		return Field{Kind: FieldInt32, Int: int64(x)}, nil
	case int64:
		return Field{Kind: FieldInt64, Int: x}, nil
	case int:
		return Field{Kind: FieldInt64, Int: int64(x)}, nil
	case float32:
		return Field{Kind: FieldFloat32, Float: float64(x)}, nil
	case float64:
		return Field{Kind: FieldFloat64, Float: x}, nil
	case string:
		return Field{Kind: FieldString, Str: x}, nil
	}
	return Field{}, fmt.Errorf("unsupported field type %T", v)
}

// ClassifyAt decodes field i of the given tuple.
func ClassifyAt(t Tuple, i int) (Field, error) {
	return Classify(t.FieldAt(i))
}
