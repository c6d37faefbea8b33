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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/log"
)

// Run drives one end-to-end profiling job: align (or reuse a prebuilt
// alignment file), build the CIGAR model, build the likelihood table,
// optionally apply the width filter, run EM, and write every output
// table opts names. It is the single entry point cmd/bio-taxprofile
// calls into.
func Run(ctx context.Context, opts *Opts) error {
	if err := os.RemoveAll(opts.Output); err != nil {
		return err
	}
	if err := os.MkdirAll(opts.Output, 0755); err != nil {
		return err
	}

	taxonomy, err := LoadTaxonomyTable(ctx, opts.TaxPath)
	if err != nil {
		return err
	}
	geneLen, err := LoadGeneLengthTable(ctx, filepath.Join(opts.DBPrefix, "gene2len.tsv"), opts.RefSchema)
	if err != nil {
		return err
	}
	ref2genome, err := LoadRef2GenomeTable(ctx, filepath.Join(opts.DBPrefix, "reference2genome.tsv"))
	if err != nil {
		return err
	}
	genes := DefaultMarkerGenes

	alnPath := opts.SamInput
	if alnPath == "" {
		log.Debug.Printf("taxprofile: running aligner against %s", opts.DBPrefix)
		alnPath, err = RunAligner(ctx, opts)
		if err != nil {
			return err
		}
		if !opts.KeepAlignments {
			defer func() { _ = os.Remove(alnPath) }()
		}
	}

	var model *CigarModel
	if opts.AlnScore != ScoreAS {
		src, err := OpenAlignments(ctx, alnPath)
		if err != nil {
			return err
		}
		model, err = BuildCigarModel(src, opts.AlnScore, opts.RefSchema, genes, opts.AlnScoreGene)
		_ = src.Close()
		if err != nil {
			return err
		}
	} else {
		model = &CigarModel{}
	}

	src, err := OpenAlignments(ctx, alnPath)
	if err != nil {
		return err
	}
	result, err := BuildLikelihoodTable(src, model, geneLen, genes, opts)
	closeErr := src.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	if err := WriteRawTable(ctx, filepath.Join(opts.Output, "P_rgs_df_raw.tsv"), result.Raw, ref2genome); err != nil {
		return err
	}
	if err := WriteGeneTable(ctx, filepath.Join(opts.Output, "gene_P_rgs_df_raw.tsv"), result.Gene, ref2genome); err != nil {
		return err
	}

	table := result.Final
	candidates := distinctTargets(table.TargetID)

	if opts.WidthFilter {
		keep := ApplyWidthFilter(table, geneLen)
		table = filterTableByTarget(table, keep)
		if len(table.TargetID) == 0 {
			return errNoAlignments()
		}
		candidates = distinctTargets(table.TargetID)
	}

	if err := WriteFinalTable(ctx, filepath.Join(opts.Output, "P_rgs_df.tsv"), table, ref2genome); err != nil {
		return err
	}

	var snapshot SnapshotFunc
	if opts.SaveIntermediateProfile {
		snapshot = func(iter int, f Frequencies) error {
			path := filepath.Join(opts.Output, fmt.Sprintf("relative_abundance-EM-%d.tsv", iter))
			return WriteAbundanceTable(ctx, path, f, taxonomy)
		}
	}

	f, err := RunEM(table, candidates, opts.NumThreads, snapshot)
	if err != nil {
		return err
	}

	if err := WriteAbundanceTable(ctx, filepath.Join(opts.Output, "relative_abundance.tsv"), f, taxonomy); err != nil {
		return err
	}

	if opts.Rank != "" {
		sums, err := CollapseRank(f, taxonomy, opts.Rank)
		if err != nil {
			return err
		}
		path := filepath.Join(opts.Output, fmt.Sprintf("relative_abundance-%s.tsv", opts.Rank))
		if err := WriteRankTable(ctx, path, sums); err != nil {
			return err
		}
	}

	return nil
}

func distinctTargets(targetID []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, t := range targetID {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// filterTableByTarget rebuilds table with only the rows whose TargetID is
// in keep, recomputing the read-grouping index over the reduced set.
func filterTableByTarget(table *LikelihoodTable, keep map[int]bool) *LikelihoodTable {
	out := &LikelihoodTable{}
	for i, t := range table.TargetID {
		if !keep[t] {
			continue
		}
		out.ReadID = append(out.ReadID, table.ReadID[i])
		out.TargetID = append(out.TargetID, t)
		out.GeneTag = append(out.GeneTag, table.GeneTag[i])
		out.ReferenceID = append(out.ReferenceID, table.ReferenceID[i])
		out.AlnLen = append(out.AlnLen, table.AlnLen[i])
		out.LogP = append(out.LogP, table.LogP[i])
	}
	out.ReadGroups = buildReadGroups(out.ReadID)
	return out
}
