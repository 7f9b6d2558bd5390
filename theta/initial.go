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

import "github.com/kainoa21/sketches-pig/pig"

// Initial is the first pass of the algebraic split for every UDF in this
// package. It passes records through unchanged; its only purpose is to
// let the engine's optimizer place a combiner boundary. Construction
// arguments are accepted and ignored so the engine can instantiate it
// with the same arguments as the top-level UDF.
type Initial struct{}

// NewInitialFromStrings constructs the identity stage, ignoring the
// arguments the engine forwards from the top-level UDF.
func NewInitialFromStrings(args ...string) (Initial, error) {
	return Initial{}, nil
}

// Exec returns the input tuple unchanged.
func (Initial) Exec(input pig.Tuple) (pig.Tuple, error) {
	return input, nil
}
