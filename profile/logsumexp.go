// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package profile

import (
	"math"

	"github.com/grailbio/base/traverse"
	"gonum.org/v1/gonum/floats"
)

// Group is a contiguous range [Start, End) of positions in a values
// slice that should be reduced together. Ordering within a group never
// affects the result of any reduction over it.
type Group struct {
	Start int
	End   int
}

// ReadGroup is a Group of LikelihoodTable rows sharing the same ReadID,
// as produced by buildReadGroups.
type ReadGroup struct {
	ReadID string
	Group
}

// readGroupRanges extracts the plain Group ranges from a slice of ReadGroup, for
// use with ParallelLogSumExp.
func readGroupRanges(rg []ReadGroup) []Group {
	out := make([]Group, len(rg))
	for i, g := range rg {
		out[i] = g.Group
	}
	return out
}

// ParallelLogSumExp computes, for each group, max_x + log(sum(exp(x -
// max_x))) over values[group.Start:group.End], with max_x coerced to 0
// when it is non-finite (NumericDegeneracy, recovered locally so that an
// all -Inf group yields -Inf rather than NaN). Groups are processed across a pool of
// parallelism workers, each taking a contiguous slice of the groups;
// since groups are disjoint, this is safe without further
// synchronization.
func ParallelLogSumExp(groups []Group, values []float64, parallelism int) ([]float64, error) {
	out := make([]float64, len(groups))
	if len(groups) == 0 {
		return out, nil
	}
	if parallelism < 1 {
		parallelism = 1
	}
	if parallelism > len(groups) {
		parallelism = len(groups)
	}
	n := len(groups)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		start := (jobIdx * n) / parallelism
		end := ((jobIdx + 1) * n) / parallelism
		for i := start; i < end; i++ {
			g := groups[i]
			out[i] = logSumExp(values[g.Start:g.End])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// logSumExp is a numerically stable log-sum-exp reduction. The maximum
// is located with gonum/floats; a non-finite maximum (for example an
// all -Inf input) is coerced to 0 before exponentiating, so x - max never
// evaluates -Inf - (-Inf) = NaN and an all -Inf input yields -Inf. Empty
// input returns -Inf.
func logSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	m := floats.Max(xs)
	if math.IsInf(m, 0) || math.IsNaN(m) {
		m = 0
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - m)
	}
	return m + math.Log(sum)
}
