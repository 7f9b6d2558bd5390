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

// EvalFunc is the basic evaluation contract: a stateless function of one
// input tuple. The engine may call Exec any number of times on the same
// instance; implementations must not carry state between calls.
type EvalFunc[T any] interface {
	Exec(input Tuple) (T, error)
}

// Accumulator is the incremental evaluation contract. The engine calls
// Accumulate zero or more times for one logical group, reads the result
// with GetValue, and calls Cleanup before reusing the instance for the
// next group. Cleanup must be safe to call at any time, repeatedly.
type Accumulator[T any] interface {
	Accumulate(input Tuple) error
	GetValue() (T, error)
	Cleanup()
}

// Algebraic is the three-stage combiner contract. The engine constructs
// each stage independently with the same configuration and invokes, per
// logical group, Initial zero or more times, Intermediate zero or more
// times, and Final exactly once, in whatever combination it chose when
// partitioning the job.
//
// Because the stage instances have no linkage to each other, structurally
// identical configuration across them is a correctness precondition that
// this layer documents but does not verify.
type Algebraic[T any] interface {
	Initial() EvalFunc[Tuple]
	Intermediate() EvalFunc[Tuple]
	Final() EvalFunc[T]
}
