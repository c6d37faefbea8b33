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
	"sort"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// rawTsvRow is the on-disk shape of P_rgs_df_raw.tsv.
type rawTsvRow struct {
	ReadID      string  `tsv:"read_id"`
	TargetID    int     `tsv:"target_id"`
	GeneTag     string  `tsv:"gene_tag"`
	ReferenceID string  `tsv:"reference_id"`
	Genome      string  `tsv:"genome"`
	AlnLen      int     `tsv:"aln_len"`
	LogP        float64 `tsv:"log_p"`
}

// geneTsvRow is the on-disk shape of gene_P_rgs_df_raw.tsv.
type geneTsvRow struct {
	rawTsvRow
	GeneLength  int     `tsv:"gene_length"`
	AlnLenRatio float64 `tsv:"aln_len_ratio"`
	Fidelity    float64 `tsv:"fidelity"`
}

// abundanceRow is the on-disk shape of relative_abundance.tsv and the
// relative_abundance-EM-<i>.tsv snapshots.
type abundanceRow struct {
	TargetID     int     `tsv:"target_id"`
	Frequency    float64 `tsv:"frequency"`
	Species      string  `tsv:"species"`
	Genus        string  `tsv:"genus"`
	Family       string  `tsv:"family"`
	Order        string  `tsv:"order"`
	Class        string  `tsv:"class"`
	Phylum       string  `tsv:"phylum"`
	Clade        string  `tsv:"clade"`
	Superkingdom string  `tsv:"superkingdom"`
}

// rankRow is the on-disk shape of relative_abundance-<rank>.tsv.
type rankRow struct {
	Rank      string  `tsv:"rank"`
	Frequency float64 `tsv:"frequency"`
}

func createTSV(ctx context.Context, path string) (file.File, *tsv.RowWriter, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return out, tsv.NewRowWriter(out.Writer(ctx)), nil
}

// WriteRawTable writes P_rgs_df_raw.tsv.
func WriteRawTable(ctx context.Context, path string, rows []RawRow, ref2genome Ref2GenomeTable) error {
	out, w, err := createTSV(ctx, path)
	if err != nil {
		return err
	}
	for _, r := range rows {
		row := rawTsvRow{ReadID: r.ReadID, TargetID: r.TargetID, GeneTag: r.GeneTag, ReferenceID: r.ReferenceID, Genome: ref2genome[r.ReferenceID], AlnLen: r.AlnLen, LogP: r.LogP}
		if err := w.Write(&row); err != nil {
			_ = out.Close(ctx)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = out.Close(ctx)
		return err
	}
	return out.Close(ctx)
}

// WriteGeneTable writes gene_P_rgs_df_raw.tsv.
func WriteGeneTable(ctx context.Context, path string, rows []GeneRow, ref2genome Ref2GenomeTable) error {
	out, w, err := createTSV(ctx, path)
	if err != nil {
		return err
	}
	for _, r := range rows {
		row := geneTsvRow{
			rawTsvRow:   rawTsvRow{ReadID: r.ReadID, TargetID: r.TargetID, GeneTag: r.GeneTag, ReferenceID: r.ReferenceID, Genome: ref2genome[r.ReferenceID], AlnLen: r.AlnLen, LogP: r.LogP},
			GeneLength:  r.GeneLength,
			AlnLenRatio: r.AlnLenRatio,
			Fidelity:    r.Fidelity,
		}
		if err := w.Write(&row); err != nil {
			_ = out.Close(ctx)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = out.Close(ctx)
		return err
	}
	return out.Close(ctx)
}

// WriteFinalTable writes P_rgs_df.tsv, the post-filter deduplicated
// table, in a canonical (read_id, target_id) order so repeated runs
// produce byte-identical output.
func WriteFinalTable(ctx context.Context, path string, table *LikelihoodTable, ref2genome Ref2GenomeTable) error {
	out, w, err := createTSV(ctx, path)
	if err != nil {
		return err
	}
	for i := range table.ReadID {
		row := rawTsvRow{
			ReadID:      table.ReadID[i],
			TargetID:    table.TargetID[i],
			GeneTag:     table.GeneTag[i],
			ReferenceID: table.ReferenceID[i],
			Genome:      ref2genome[table.ReferenceID[i]],
			AlnLen:      table.AlnLen[i],
			LogP:        table.LogP[i],
		}
		if err := w.Write(&row); err != nil {
			_ = out.Close(ctx)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = out.Close(ctx)
		return err
	}
	return out.Close(ctx)
}

// WriteAbundanceTable writes F joined with taxonomy, sorted by
// descending frequency then ascending target_id for a canonical,
// reproducible row order.
func WriteAbundanceTable(ctx context.Context, path string, f Frequencies, taxonomy TaxonomyTable) error {
	out, w, err := createTSV(ctx, path)
	if err != nil {
		return err
	}
	rows := abundanceRows(f, taxonomy)
	for _, row := range rows {
		if err := w.Write(&row); err != nil {
			_ = out.Close(ctx)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = out.Close(ctx)
		return err
	}
	return out.Close(ctx)
}

func abundanceRows(f Frequencies, taxonomy TaxonomyTable) []abundanceRow {
	targets := make([]int, 0, len(f))
	for t := range f {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		if f[targets[i]] != f[targets[j]] {
			return f[targets[i]] > f[targets[j]]
		}
		return targets[i] < targets[j]
	})
	rows := make([]abundanceRow, 0, len(targets))
	for _, t := range targets {
		lin := taxonomy[t]
		rows = append(rows, abundanceRow{
			TargetID:     t,
			Frequency:    f[t],
			Species:      lin.Species,
			Genus:        lin.Genus,
			Family:       lin.Family,
			Order:        lin.Order,
			Class:        lin.Class,
			Phylum:       lin.Phylum,
			Clade:        lin.Clade,
			Superkingdom: lin.Superkingdom,
		})
	}
	return rows
}

// rankColumn extracts the rank value for one lineage.
func rankColumn(lin Lineage, rank string) (string, bool) {
	switch rank {
	case "species":
		return lin.Species, true
	case "genus":
		return lin.Genus, true
	case "family":
		return lin.Family, true
	case "order":
		return lin.Order, true
	case "class":
		return lin.Class, true
	case "phylum":
		return lin.Phylum, true
	case "clade":
		return lin.Clade, true
	case "superkingdom":
		return lin.Superkingdom, true
	default:
		return "", false
	}
}

// CollapseRank group-sums F by the requested taxonomic rank: a simple
// table join against taxonomy followed by a group-sum.
func CollapseRank(f Frequencies, taxonomy TaxonomyTable, rank string) (map[string]float64, error) {
	sums := map[string]float64{}
	for t, freq := range f {
		lin, ok := taxonomy[t]
		if !ok {
			continue
		}
		val, ok := rankColumn(lin, rank)
		if !ok {
			return nil, errInvalidRank(rank)
		}
		sums[val] += freq
	}
	return sums, nil
}

// WriteRankTable writes relative_abundance-<rank>.tsv.
func WriteRankTable(ctx context.Context, path string, sums map[string]float64) error {
	out, w, err := createTSV(ctx, path)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if sums[names[i]] != sums[names[j]] {
			return sums[names[i]] > sums[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		row := rankRow{Rank: name, Frequency: sums[name]}
		if err := w.Write(&row); err != nil {
			_ = out.Close(ctx)
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = out.Close(ctx)
		return err
	}
	return out.Close(ctx)
}
