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

	"github.com/grailbio/hts/sam"
)

// RawRow is one row of P_rgs_df_raw.tsv: a single alignment's
// length-normalized log-likelihood, before the gene-length join.
type RawRow struct {
	ReadID      string
	TargetID    int
	GeneTag     string
	ReferenceID string
	AlnLen      int
	LogP        float64
}

// GeneRow is one row of gene_P_rgs_df_raw.tsv: a RawRow joined with the
// gene-length table, carrying the derived columns used by the filter.
type GeneRow struct {
	RawRow
	GeneLength  int
	AlnLenRatio float64
	Fidelity    float64
}

// LikelihoodTable is the post-filter, deduplicated P(r|t) table (C3's
// final product), stored columnar with a contiguous per-read grouping
// index so C4's parallel log-sum-exp can operate directly on it.
type LikelihoodTable struct {
	ReadID      []string
	TargetID    []int
	GeneTag     []string
	ReferenceID []string
	AlnLen      []int
	LogP        []float64
	ReadGroups  []ReadGroup
}

// LikelihoodResult bundles the three intermediate tables the CLI writes
// to disk, plus the final table EM consumes.
type LikelihoodResult struct {
	Raw   []RawRow
	Gene  []GeneRow
	Final *LikelihoodTable
}

// alnLen is the alignment length in bp: the sum of CIGAR op lengths over
// the Ins, Eq and X ops.
func alnLen(cig sam.Cigar) int {
	n := 0
	for _, op := range cig {
		switch op.Type() {
		case sam.CigarInsertion, sam.CigarEqual, sam.CigarMismatch:
			n += op.Len()
		}
	}
	return n
}

// alnScore returns the aligner-reported AS tag value, and whether one was
// present.
func alnScore(rec *sam.Record) (int, bool) {
	aux := rec.AuxFields.Get(sam.NewTag("AS"))
	if aux == nil {
		return 0, false
	}
	v := aux.Value()
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	default:
		return 0, false
	}
}

// BuildLikelihoodTable streams src and produces the raw, gene-joined,
// and final LikelihoodTable: emit per-alignment rows, normalize by
// per-read max alignment length, join with geneLen to reweight by
// length ratio, filter, and deduplicate to at most one row per
// (read_id, target_id).
func BuildLikelihoodTable(src AlignmentSource, model *CigarModel, geneLen GeneLengthTable, genes GeneSet, opts *Opts) (*LikelihoodResult, error) {
	raw, err := scanRawRows(src, model, genes, opts)
	if err != nil {
		return nil, err
	}
	normalizeByReadMaxLen(raw)

	gene := joinGeneLength(raw, geneLen, opts.RefWeight)

	maxLogPByRead := maxLogPPerRead(gene)
	filtered := filterRows(gene, maxLogPByRead, opts)
	if len(filtered) == 0 {
		return nil, errNoAlignments()
	}
	final := dedupAndBuildTable(filtered)

	return &LikelihoodResult{Raw: raw, Gene: gene, Final: final}, nil
}

// scanRawRows derives one row per relevant primary alignment.
func scanRawRows(src AlignmentSource, model *CigarModel, genes GeneSet, opts *Opts) ([]RawRow, error) {
	var rows []RawRow
	for src.Scan() {
		rec := src.Record()
		if !IsPrimary(rec) {
			continue
		}
		score, ok := alnScore(rec)
		if !ok || score <= 0 {
			continue
		}
		targetID, geneTag, ok := ParseReferenceName(rec.Ref.Name(), opts.RefSchema)
		if !ok || (opts.RefSchema == SchemaColon && !genes.Contains(geneTag)) {
			continue
		}
		length := alnLen(rec.Cigar)
		if length <= 0 {
			continue
		}
		var logP float64
		switch opts.AlnScore {
		case ScoreAS:
			logP = math.Log(float64(score) / (2 * float64(length)))
		default:
			m := model
			if opts.AlnScoreGene {
				if pg, ok := model.PerGene[geneTag]; ok {
					m = pg
				}
			}
			logP = ScoreCigar(rec.Cigar, m)
		}
		rows = append(rows, RawRow{
			ReadID:      rec.Name,
			TargetID:    targetID,
			GeneTag:     geneTag,
			ReferenceID: rec.Ref.Name(),
			AlnLen:      length,
			LogP:        logP,
		})
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// normalizeByReadMaxLen rescales log_p by max_aln_len[read]/aln_len so
// that log-likelihoods from differently-covered alignments of the same
// read are on a comparable footing.
func normalizeByReadMaxLen(rows []RawRow) {
	maxLen := map[string]int{}
	for _, r := range rows {
		if r.AlnLen > maxLen[r.ReadID] {
			maxLen[r.ReadID] = r.AlnLen
		}
	}
	for i := range rows {
		m := maxLen[rows[i].ReadID]
		rows[i].LogP = rows[i].LogP * float64(m) / float64(rows[i].AlnLen)
	}
}

// joinGeneLength joins rows with the gene-length table and computes the
// derived aln_len_ratio/fidelity columns, applying the ref_weight
// length-ratio reweighting to log_p in place.
func joinGeneLength(rows []RawRow, geneLen GeneLengthTable, refWeight float64) []GeneRow {
	out := make([]GeneRow, 0, len(rows))
	for _, r := range rows {
		entry, ok := geneLen[r.ReferenceID]
		if !ok || entry.Length <= 0 {
			continue
		}
		ratio := float64(r.AlnLen) / float64(entry.Length)
		fidelity := r.LogP / float64(r.AlnLen)
		logP := r.LogP
		if refWeight != 0 {
			logP += refWeight * math.Log(ratio)
		}
		r.LogP = logP
		out = append(out, GeneRow{
			RawRow:      r,
			GeneLength:  entry.Length,
			AlnLenRatio: ratio,
			Fidelity:    fidelity,
		})
	}
	return out
}

func maxLogPPerRead(rows []GeneRow) map[string]float64 {
	m := map[string]float64{}
	for _, r := range rows {
		if cur, ok := m[r.ReadID]; !ok || r.LogP > cur {
			m[r.ReadID] = r.LogP
		}
	}
	return m
}

// filterRows removes rows failing the length-ratio threshold, the
// AS-mode per-read relative-score threshold, or the fidelity threshold.
func filterRows(rows []GeneRow, maxLogPByRead map[string]float64, opts *Opts) []GeneRow {
	out := make([]GeneRow, 0, len(rows))
	for _, r := range rows {
		if r.AlnLenRatio < opts.MinAlnLenRatio {
			continue
		}
		if opts.AlnScore == ScoreAS {
			if r.LogP < 1.1*maxLogPByRead[r.ReadID] {
				continue
			}
			if r.LogP < math.Log(opts.MinFidelity) {
				continue
			}
		} else {
			if r.Fidelity < opts.MinFidelity {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// dedupAndBuildTable reduces to at most one row per (read_id,
// target_id), keeping the maximum log_p, then builds the columnar
// LikelihoodTable with a contiguous per-read grouping index.
func dedupAndBuildTable(rows []GeneRow) *LikelihoodTable {
	type key struct {
		read   string
		target int
	}
	best := map[key]GeneRow{}
	for _, r := range rows {
		k := key{r.ReadID, r.TargetID}
		if cur, ok := best[k]; !ok || r.LogP > cur.LogP {
			best[k] = r
		}
	}
	deduped := make([]GeneRow, 0, len(best))
	for _, r := range best {
		deduped = append(deduped, r)
	}
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].ReadID != deduped[j].ReadID {
			return deduped[i].ReadID < deduped[j].ReadID
		}
		return deduped[i].TargetID < deduped[j].TargetID
	})

	t := &LikelihoodTable{
		ReadID:      make([]string, len(deduped)),
		TargetID:    make([]int, len(deduped)),
		GeneTag:     make([]string, len(deduped)),
		ReferenceID: make([]string, len(deduped)),
		AlnLen:      make([]int, len(deduped)),
		LogP:        make([]float64, len(deduped)),
	}
	for i, r := range deduped {
		t.ReadID[i] = r.ReadID
		t.TargetID[i] = r.TargetID
		t.GeneTag[i] = r.GeneTag
		t.ReferenceID[i] = r.ReferenceID
		t.AlnLen[i] = r.AlnLen
		t.LogP[i] = r.LogP
	}
	t.ReadGroups = buildReadGroups(t.ReadID)
	return t
}

// buildReadGroups computes the contiguous [Start,End) ranges for each
// distinct read_id. readID must already be sorted.
func buildReadGroups(readID []string) []ReadGroup {
	var groups []ReadGroup
	i := 0
	for i < len(readID) {
		j := i + 1
		for j < len(readID) && readID[j] == readID[i] {
			j++
		}
		groups = append(groups, ReadGroup{ReadID: readID[i], Group: Group{Start: i, End: j}})
		i = j
	}
	return groups
}
