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
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// taxonomyRow mirrors one line of taxonomy.tsv. Field order on disk
// doesn't matter: tsv.Reader maps by header name.
type taxonomyRow struct {
	TaxID        int    `tsv:"tax_id"`
	Species      string `tsv:"species"`
	Genus        string `tsv:"genus"`
	Family       string `tsv:"family"`
	Order        string `tsv:"order"`
	Class        string `tsv:"class"`
	Phylum       string `tsv:"phylum"`
	Clade        string `tsv:"clade"`
	Superkingdom string `tsv:"superkingdom"`
}

// LoadTaxonomyTable reads taxonomy.tsv from path.
func LoadTaxonomyTable(ctx context.Context, path string) (TaxonomyTable, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errMissingInputFile(path, err)
	}
	defer func() { _ = in.Close(ctx) }()

	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true

	table := TaxonomyTable{}
	for {
		var row taxonomyRow
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errSchemaMismatch(path, err.Error())
		}
		table[row.TaxID] = Lineage{
			TaxID:        row.TaxID,
			Species:      row.Species,
			Genus:        row.Genus,
			Family:       row.Family,
			Order:        row.Order,
			Class:        row.Class,
			Phylum:       row.Phylum,
			Clade:        row.Clade,
			Superkingdom: row.Superkingdom,
		}
	}
	return table, nil
}

// geneLenRow mirrors one line of gene2len.tsv.
type geneLenRow struct {
	ID     string `tsv:"#id"`
	Length int    `tsv:"length"`
}

// LoadGeneLengthTable reads gene2len.tsv from path, deriving target_id
// and gene_tag from the "#id" column per schema.
func LoadGeneLengthTable(ctx context.Context, path string, schema ReferenceSchema) (GeneLengthTable, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errMissingInputFile(path, err)
	}
	defer func() { _ = in.Close(ctx) }()

	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true

	table := GeneLengthTable{}
	for {
		var row geneLenRow
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errSchemaMismatch(path, err.Error())
		}
		targetID, geneTag, ok := ParseReferenceName(row.ID, schema)
		if !ok {
			continue
		}
		table[row.ID] = GeneLengthEntry{TargetID: targetID, GeneTag: geneTag, Length: row.Length}
	}
	return table, nil
}

// LoadRef2GenomeTable reads reference2genome.tsv, a headerless two
// column TSV (reference identifier, genome label).
func LoadRef2GenomeTable(ctx context.Context, path string) (Ref2GenomeTable, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errMissingInputFile(path, err)
	}
	defer func() { _ = in.Close(ctx) }()

	table := Ref2GenomeTable{}
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.SplitN(line, "\t", 2)
		if len(cols) != 2 {
			return nil, errSchemaMismatch(path, "expected 2 tab-separated columns, got: "+line)
		}
		table[cols[0]] = cols[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, errSchemaMismatch(path, err.Error())
	}
	return table, nil
}
