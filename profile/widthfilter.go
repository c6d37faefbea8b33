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

import "math"

// widthStats holds the three quantities the uniform-hit model is built
// from for one target.
type widthStats struct {
	genomeGenes int // G_t: marker genes observed for t in the gene-length table.
	hitGenes    int // g_t: distinct gene tags present in P(r|t) rows for t.
	reads       int // r_t: distinct reads present in P(r|t) rows for t.
}

// ApplyWidthFilter implements C6: under a uniform-hit null model where
// each of r_t reads independently hits one of G_t genes with probability
// 1/G_t, it removes targets whose observed gene coverage g_t is
// implausibly narrow. It returns the set of target_ids to retain.
func ApplyWidthFilter(table *LikelihoodTable, geneLen GeneLengthTable) map[int]bool {
	stats := collectWidthStats(table, geneLen)
	keep := make(map[int]bool, len(stats))
	for t, s := range stats {
		if widthFilterRetain(s) {
			keep[t] = true
		}
	}
	return keep
}

func collectWidthStats(table *LikelihoodTable, geneLen GeneLengthTable) map[int]*widthStats {
	genomeGenes := map[int]map[string]struct{}{}
	for _, entry := range geneLen {
		genes, ok := genomeGenes[entry.TargetID]
		if !ok {
			genes = map[string]struct{}{}
			genomeGenes[entry.TargetID] = genes
		}
		genes[entry.GeneTag] = struct{}{}
	}

	stats := map[int]*widthStats{}
	hitGenesByTarget := map[int]map[string]struct{}{}
	readsByTarget := map[int]map[string]struct{}{}
	for i, t := range table.TargetID {
		hitGenes, ok := hitGenesByTarget[t]
		if !ok {
			hitGenes = map[string]struct{}{}
			hitGenesByTarget[t] = hitGenes
		}
		hitGenes[table.GeneTag[i]] = struct{}{}

		reads, ok := readsByTarget[t]
		if !ok {
			reads = map[string]struct{}{}
			readsByTarget[t] = reads
		}
		reads[table.ReadID[i]] = struct{}{}
	}
	for t, reads := range readsByTarget {
		s := &widthStats{reads: len(reads), hitGenes: len(hitGenesByTarget[t])}
		if genes, ok := genomeGenes[t]; ok {
			s.genomeGenes = len(genes)
		}
		stats[t] = s
	}
	return stats
}

// widthFilterRetain evaluates the width-filter retention rule: r_t=0 is
// dropped; G_t=1 is kept and G_t=0 dropped; otherwise r_t in [1,10] is
// kept conservatively; above that, the target
// must clear either the coverage-ratio bound or the variance bound,
// comparing E-g_t against 3*sqrt(V).
func widthFilterRetain(s *widthStats) bool {
	if s.reads == 0 {
		return false
	}
	if s.genomeGenes <= 1 {
		// G_t=1: accept iff r_t>0, already true here. G_t=0 is a
		// degenerate input (target absent from the gene-length table);
		// reject for lack of an evidence base.
		return s.genomeGenes == 1
	}
	if s.reads <= 10 {
		return true
	}
	if s.hitGenes <= 1 {
		return false
	}
	g := float64(s.genomeGenes)
	r := float64(s.reads)
	q := 1 - 1/g
	e := g * (1 - math.Pow(q, r))
	v := g*math.Pow(q, r) +
		g*g*q*math.Pow(1-2/g, r) -
		g*g*math.Pow(q, 2*r)

	if e <= 0 {
		return false
	}
	if float64(s.hitGenes)/e > 0.7 {
		return true
	}
	if v < 0 {
		v = 0
	}
	return e-float64(s.hitGenes) <= 3*math.Sqrt(v)
}
