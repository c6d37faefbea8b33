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
	"github.com/grailbio/hts/sam"
)

// numOpKinds is the number of distinct sam.CigarOpType values this
// package cares about (Match..Mismatch, i.e. 0..8); index 8 is the
// highest op type (CigarMismatch). We size arrays at numOpKinds+1 and
// reserve the extra slot (index numOpKinds) as the Markov model's
// terminal symbol.
const numOpKinds = int(sam.CigarMismatch) + 1

const terminalOp = numOpKinds

// costBearingOps are the op kinds whose base counts contribute to the
// multinomial model's denominator: Ins, Del, X, HardClip, SoftClip.
var costBearingOps = []sam.CigarOpType{
	sam.CigarInsertion, sam.CigarDeletion, sam.CigarMismatch,
	sam.CigarHardClipped, sam.CigarSoftClipped,
}

// fixedMultinomialDefaults are the fallback per-op costs used when no
// training data is available, or as the Markov scorer's per-op fallback
// when a transition row has zero mass.
var fixedMultinomialDefaults = func() [numOpKinds]float64 {
	var d [numOpKinds]float64
	d[sam.CigarMatch] = 1
	d[sam.CigarEqual] = 1
	d[sam.CigarInsertion] = 0.005
	d[sam.CigarDeletion] = 0.005
	d[sam.CigarMismatch] = 0.01
	d[sam.CigarHardClipped] = 0.001
	d[sam.CigarSoftClipped] = 0.05
	return d
}()

// MultinomialModel maps each CIGAR op kind to a per-base cost
// probability. cost[Match] and cost[Eq] are always 1.
type MultinomialModel struct {
	Cost [numOpKinds]float64
}

// MarkovModel is a row-stochastic transition matrix over the seven
// CIGAR op kinds plus a terminal symbol. T[a][b] is the probability of
// transitioning from op a to op b; rows with zero observed mass are
// all-zero.
type MarkovModel struct {
	T [numOpKinds + 1][numOpKinds + 1]float64
}

// CigarModel is either a MultinomialModel or a MarkovModel, optionally
// stratified per marker gene.
type CigarModel struct {
	Multinomial *MultinomialModel
	Markov      *MarkovModel
	// PerGene holds one model per gene tag when per-gene stratification
	// is enabled. Keys are marker gene tags; values share the same
	// variant (Multinomial xor Markov) as the top-level model.
	PerGene map[string]*CigarModel
}

// BuildCigarModel trains a CigarModel from the primary, non-supplementary
// alignments produced by src, under the scoring model selected by
// scoreModel. Alignments whose gene tag is not in genes are ignored for
// per-gene stratification, but still contribute to the global model.
//
// Under ScoreAS, BuildCigarModel is a no-op: the returned CigarModel has
// both Multinomial and Markov nil, since C3 never consults it.
func BuildCigarModel(src AlignmentSource, scoreModel ScoreModel, schema ReferenceSchema, genes GeneSet, perGene bool) (*CigarModel, error) {
	if scoreModel == ScoreAS {
		return &CigarModel{}, nil
	}

	var globalCounts opCounts
	perGeneCounts := map[string]*opCounts{}

	for src.Scan() {
		rec := src.Record()
		if !IsPrimary(rec) {
			continue
		}
		globalCounts.accumulate(rec.Cigar)
		if perGene {
			_, geneTag, ok := ParseReferenceName(rec.Ref.Name(), schema)
			if ok && genes.Contains(geneTag) {
				c, found := perGeneCounts[geneTag]
				if !found {
					c = &opCounts{}
					perGeneCounts[geneTag] = c
				}
				c.accumulate(rec.Cigar)
			}
		}
	}
	if err := src.Err(); err != nil {
		return nil, err
	}

	model := globalCounts.toModel(scoreModel)
	if perGene {
		model.PerGene = make(map[string]*CigarModel, len(perGeneCounts))
		for gene, c := range perGeneCounts {
			model.PerGene[gene] = c.toModel(scoreModel)
		}
	}
	return model, nil
}

// opCounts accumulates the raw statistics needed to build either
// variant of CigarModel from a stream of CIGARs.
type opCounts struct {
	// baseCounts[op] is the total base count contributed by op; the
	// multinomial model reads only the cost-bearing entries.
	baseCounts [numOpKinds]int64
	// transitions[a][b] counts observed a->b adjacent-op transitions (or
	// within-op repeats on the diagonal), used by the Markov model.
	transitions [numOpKinds + 1][numOpKinds + 1]int64
}

func (c *opCounts) accumulate(cig sam.Cigar) {
	// Multinomial: accumulate base counts for every op kind; toMultinomial
	// uses only the cost-bearing ones.
	for _, op := range cig {
		t := op.Type()
		if int(t) < numOpKinds {
			c.baseCounts[t] += int64(op.Len())
		}
	}

	// Markov: skip leading/trailing HardClip, then walk ops in order.
	ops := trimHardClip(cig)
	prev := -1
	for _, op := range ops {
		t := int(op.Type())
		if t >= numOpKinds {
			continue
		}
		n := op.Len()
		if n > 1 {
			c.transitions[t][t] += int64(n - 1)
		}
		if prev >= 0 {
			c.transitions[prev][t]++
		}
		prev = t
	}
}

// trimHardClip drops a leading and/or trailing HardClip op, mirroring
// the Markov model builder's "skipping any leading or trailing HardClip"
// rule.
func trimHardClip(cig sam.Cigar) sam.Cigar {
	start, end := 0, len(cig)
	if end > 0 && cig[start].Type() == sam.CigarHardClipped {
		start++
	}
	if end > start && cig[end-1].Type() == sam.CigarHardClipped {
		end--
	}
	return cig[start:end]
}

func (c *opCounts) toModel(scoreModel ScoreModel) *CigarModel {
	switch scoreModel {
	case ScoreMarkov:
		return &CigarModel{Markov: c.toMarkov()}
	default:
		return &CigarModel{Multinomial: c.toMultinomial()}
	}
}

func (c *opCounts) toMultinomial() *MultinomialModel {
	var n int64
	for _, op := range costBearingOps {
		n += c.baseCounts[op]
	}
	m := &MultinomialModel{}
	if n == 0 {
		m.Cost = fixedMultinomialDefaults
		return m
	}
	m.Cost[sam.CigarMatch] = 1
	m.Cost[sam.CigarEqual] = 1
	for _, op := range costBearingOps {
		m.Cost[op] = float64(c.baseCounts[op]) / float64(n)
	}
	return m
}

func (c *opCounts) toMarkov() *MarkovModel {
	m := &MarkovModel{}
	for a := 0; a < numOpKinds+1; a++ {
		var sum int64
		for b := 0; b < numOpKinds+1; b++ {
			sum += c.transitions[a][b]
		}
		if sum == 0 {
			continue
		}
		for b := 0; b < numOpKinds+1; b++ {
			if c.transitions[a][b] != 0 {
				m.T[a][b] = float64(c.transitions[a][b]) / float64(sum)
			}
		}
	}
	return m
}
