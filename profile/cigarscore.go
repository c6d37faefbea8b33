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

	"github.com/grailbio/hts/sam"
)

// markovScoredOps are the op kinds the Markov scorer's per-op cost term
// applies to. Match is intentionally excluded: the aligner invocation
// this profiler is built around emits Eq/X in place of Match.
var markovScoredOps = map[sam.CigarOpType]bool{
	sam.CigarInsertion:   true,
	sam.CigarDeletion:    true,
	sam.CigarEqual:       true,
	sam.CigarMismatch:    true,
	sam.CigarHardClipped: true,
	sam.CigarSoftClipped: true,
}

// ScoreCigar maps a CIGAR to a log-likelihood under model. model must be
// a MultinomialModel or a MarkovModel (never both); ScoreCigar panics if
// given neither.
func ScoreCigar(cig sam.Cigar, model *CigarModel) float64 {
	switch {
	case model.Multinomial != nil:
		return scoreMultinomial(cig, model.Multinomial)
	case model.Markov != nil:
		return scoreMarkov(cig, model.Markov)
	default:
		panic("profile: ScoreCigar called with neither Multinomial nor Markov model set")
	}
}

// scoreMultinomial sums length*log(cost[op]) over every CIGAR entry,
// including leading/trailing HardClip by design (unlike the Markov
// scorer, which excludes it).
func scoreMultinomial(cig sam.Cigar, m *MultinomialModel) float64 {
	var logP float64
	for _, op := range cig {
		t := op.Type()
		if int(t) >= numOpKinds {
			continue
		}
		logP += float64(op.Len()) * math.Log(m.Cost[t])
	}
	return logP
}

// scoreMarkov walks the CIGAR skipping a HardClip only when it is the
// first or last op, accumulating within-op repeat cost and transition
// cost. A zero-mass diagonal entry falls back to the fixed multinomial
// default for that op (NumericDegeneracy, recovered locally).
func scoreMarkov(cig sam.Cigar, m *MarkovModel) float64 {
	ops := trimHardClip(cig)
	var logP float64
	prev := -1
	for _, op := range ops {
		t := op.Type()
		if !markovScoredOps[t] {
			continue
		}
		ti := int(t)
		n := op.Len()
		if n > 1 {
			diag := m.T[ti][ti]
			if diag > 0 {
				logP += float64(n-1) * math.Log(diag)
			} else {
				logP += float64(n-1) * math.Log(fixedMultinomialDefaults[ti])
			}
		}
		if prev >= 0 && m.T[prev][ti] > 0 {
			logP += math.Log(m.T[prev][ti])
		}
		prev = ti
	}
	return logP
}
