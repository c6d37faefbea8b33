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
	"sort"

	"github.com/grailbio/base/log"
)

// Frequencies is a frequency vector F: target_id -> probability. All
// values are strictly positive and sum to 1 over the retained support.
type Frequencies map[int]float64

// convergenceThreshold is the absolute log-likelihood delta below which
// EM is considered converged.
const convergenceThreshold = 0.01

// SnapshotFunc is called after each EM iteration when intermediate
// snapshots are requested. iter is 1-based.
type SnapshotFunc func(iter int, f Frequencies) error

// emState precomputes the static indexing structures EM needs once per
// run: the target axis grouping (mirroring table.ReadGroups on the read
// axis) and the row->read-group lookup used to broadcast S(r) back onto
// rows.
type emState struct {
	table         *LikelihoodTable
	readRanges    []Group
	rowToReadGrp  []int
	targetOrder   []int // indices into table rows, sorted by TargetID
	targetGroups  []Group
	targetIDs     []int // one entry per targetGroups element
	nReads        int
	parallelism   int
}

func newEMState(table *LikelihoodTable, parallelism int) *emState {
	s := &emState{
		table:       table,
		readRanges:  readGroupRanges(table.ReadGroups),
		nReads:      len(table.ReadGroups),
		parallelism: parallelism,
	}
	s.rowToReadGrp = make([]int, len(table.TargetID))
	for gi, g := range table.ReadGroups {
		for i := g.Start; i < g.End; i++ {
			s.rowToReadGrp[i] = gi
		}
	}

	order := make([]int, len(table.TargetID))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return table.TargetID[order[i]] < table.TargetID[order[j]]
	})
	s.targetOrder = order

	i := 0
	for i < len(order) {
		j := i + 1
		tid := table.TargetID[order[i]]
		for j < len(order) && table.TargetID[order[j]] == tid {
			j++
		}
		s.targetGroups = append(s.targetGroups, Group{Start: i, End: j})
		s.targetIDs = append(s.targetIDs, tid)
		i = j
	}
	return s
}

// eStep computes, for every row, log P(t|r) = u(r,t) - S(r), along with
// the total log-likelihood LL = sum_r S(r) (over reads with at least one
// row surviving the merge with F) and the count of such reads.
func (s *emState) eStep(f Frequencies) (logPtr []float64, ll float64, nSurviving int, err error) {
	n := len(s.table.TargetID)
	u := make([]float64, n)
	for i, t := range s.table.TargetID {
		lf, ok := f[t]
		if !ok {
			u[i] = math.Inf(-1)
			continue
		}
		u[i] = s.table.LogP[i] + math.Log(lf)
	}

	svals, err := ParallelLogSumExp(s.readRanges, u, s.parallelism)
	if err != nil {
		return nil, 0, 0, err
	}

	logPtr = make([]float64, n)
	for i := range logPtr {
		sv := svals[s.rowToReadGrp[i]]
		if math.IsInf(sv, -1) {
			// No row of this read survived the merge with F; drop the read
			// for this iteration instead of producing -Inf - (-Inf) = NaN.
			logPtr[i] = math.Inf(-1)
			continue
		}
		logPtr[i] = u[i] - sv
	}

	for _, sv := range svals {
		if !math.IsInf(sv, -1) {
			ll += sv
			nSurviving++
		}
	}
	return logPtr, ll, nSurviving, nil
}

// mStep aggregates log P(t|r) across reads for each target and produces
// F_new[t] = exp(lse_r logPtr(t,r) - log(N)), dropping zero entries.
func (s *emState) mStep(logPtr []float64, n int) (Frequencies, error) {
	byTarget := make([]float64, len(s.targetOrder))
	for i, rowIdx := range s.targetOrder {
		byTarget[i] = logPtr[rowIdx]
	}
	lses, err := ParallelLogSumExp(s.targetGroups, byTarget, s.parallelism)
	if err != nil {
		return nil, err
	}
	logN := math.Log(float64(n))
	fNew := make(Frequencies, len(s.targetIDs))
	for i, tid := range s.targetIDs {
		v := math.Exp(lses[i] - logN)
		if v != 0 {
			fNew[tid] = v
		}
	}
	return fNew, nil
}

// RunEM implements C5: it initializes F uniformly over candidates,
// alternates E/M steps until the log-likelihood delta falls below
// convergenceThreshold, prunes low-abundance targets, and performs one
// final refit using the pruned support as the prior.
func RunEM(table *LikelihoodTable, candidates []int, parallelism int, snapshot SnapshotFunc) (Frequencies, error) {
	if len(candidates) == 0 {
		return nil, errNoAlignments()
	}
	f := make(Frequencies, len(candidates))
	for _, t := range candidates {
		f[t] = 1.0 / float64(len(candidates))
	}

	state := newEMState(table, parallelism)

	var prevLL float64
	first := true
	iter := 0
	for {
		iter++
		logPtr, ll, n, err := state.eStep(f)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, errNoAlignments()
		}
		fNew, err := state.mStep(logPtr, n)
		if err != nil {
			return nil, err
		}
		if !first && ll < prevLL-1e-9 {
			log.Debug.Printf("taxprofile: EM log-likelihood decreased from %v to %v at iteration %d", prevLL, ll, iter)
		}
		f = fNew
		if snapshot != nil {
			if err := snapshot(iter, f); err != nil {
				return nil, err
			}
		}
		if !first && ll-prevLL < convergenceThreshold {
			prevLL = ll
			break
		}
		prevLL = ll
		first = false
	}

	lowThreshold := 1.0 / float64(state.nReads)
	finalPrior := make(Frequencies, len(f))
	for t, v := range f {
		if v >= lowThreshold {
			finalPrior[t] = v
		}
	}
	if len(finalPrior) == 0 {
		return nil, errNoAlignments()
	}

	logPtr, _, n, err := state.eStep(finalPrior)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errNoAlignments()
	}
	final, err := state.mStep(logPtr, n)
	if err != nil {
		return nil, err
	}
	return final, nil
}
