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

// Package profile implements the statistical engine of the taxonomic
// profiler: construction of the per-(read,target) log-likelihood table,
// the EM loop that converges it to a relative-abundance vector, and the
// width filter that prunes implausibly narrow targets.
package profile

// ScoreModel selects the CIGAR scoring model used by C1/C2/C3.
type ScoreModel int

const (
	// ScoreAS passes through the aligner-reported AS tag, normalized by
	// alignment length. C1 is a no-op under this model.
	ScoreAS ScoreModel = iota
	// ScoreEdit scores under a per-operation multinomial cost model.
	ScoreEdit
	// ScoreMarkov scores under a first-order Markov model over CIGAR ops.
	ScoreMarkov
)

// ParseScoreModel parses the -aln-score flag value.
func ParseScoreModel(s string) (ScoreModel, bool) {
	switch s {
	case "AS":
		return ScoreAS, true
	case "edit":
		return ScoreEdit, true
	case "markov":
		return ScoreMarkov, true
	default:
		return ScoreAS, false
	}
}

// ReferenceSchema selects how reference_name is parsed into a target ID
// and gene tag.
type ReferenceSchema int

const (
	// SchemaColon parses "<target_id>:<gene_tag>/..." (the default).
	SchemaColon ReferenceSchema = iota
	// SchemaGID parses "<target_id>_<suffix>".
	SchemaGID
)

// Opts holds every knob recognized by the CLI surface. It is built once
// by the command-line entry point and treated as immutable for the
// duration of a run; workers only ever see a *Opts, never mutate it.
type Opts struct {
	// Input is the path to the read file handed to the aligner. Opaque to
	// this package.
	Input string
	// Output is the directory results are written to. Recreated if it
	// already exists.
	Output string
	// DBPrefix is the directory holding the reference sequences and the
	// auxiliary tables (gene2len.tsv, reference2genome.tsv).
	DBPrefix string
	// TaxPath is the path to taxonomy.tsv.
	TaxPath string
	// NumThreads sizes the worker pool used by traverse.Each.
	NumThreads int
	// AlnScore selects the C2/C3 scoring model.
	AlnScore ScoreModel
	// AlnScoreGene enables per-gene stratification in C1.
	AlnScoreGene bool
	// Rank is the target rank for the rank-collapse output. Empty means
	// skip rank collapse.
	Rank string
	// MinAlnLenRatio is the lower bound on aln_len/gene_length.
	MinAlnLenRatio float64
	// MinFidelity is the lower bound on fidelity (semantics depend on
	// AlnScore; see filterRows in likelihood.go).
	MinFidelity float64
	// RefWeight weights the length-ratio reweighting term.
	RefWeight float64
	// SamInput, if set, is a prebuilt alignment file; the aligner is not
	// invoked.
	SamInput string
	// SaveIntermediateProfile emits a snapshot after each EM iteration.
	SaveIntermediateProfile bool
	// WidthFilter enables C6.
	WidthFilter bool
	// RefSchema selects the reference_name parsing schema.
	RefSchema ReferenceSchema
	// KeepAlignments retains the alignment file after the run.
	KeepAlignments bool
}

// DefaultOpts mirrors the CLI surface's documented defaults.
var DefaultOpts = Opts{
	NumThreads:     1,
	AlnScore:       ScoreAS,
	MinAlnLenRatio: 0.75,
	MinFidelity:    0.50,
	RefWeight:      1.0,
	RefSchema:      SchemaColon,
}

// Lineage is one row of the taxonomy table, carried through to output
// without interpretation by this package.
type Lineage struct {
	TaxID        int
	Species      string
	Genus        string
	Family       string
	Order        string
	Class        string
	Phylum       string
	Clade        string
	Superkingdom string
}

// TaxonomyTable maps target_id to its lineage. The core only consumes
// the key set; values are passed through to output.
type TaxonomyTable map[int]Lineage

// GeneLengthEntry is one row of gene2len.tsv.
type GeneLengthEntry struct {
	TargetID int
	GeneTag  string
	Length   int
}

// GeneLengthTable maps a reference identifier ("<target_id>:<gene_tag>/...")
// to its entry.
type GeneLengthTable map[string]GeneLengthEntry

// Ref2GenomeTable maps a reference identifier to a genome label, carried
// through to output.
type Ref2GenomeTable map[string]string

// GeneSet is a fixed ordered list of marker gene tags. Only alignments
// whose gene tag is in this set are relevant to the profiler.
type GeneSet struct {
	tags []string
	set  map[string]struct{}
}

// NewGeneSet builds a GeneSet from an ordered list of tags.
func NewGeneSet(tags []string) GeneSet {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return GeneSet{tags: tags, set: set}
}

// Contains reports whether tag is one of the marker genes.
func (g GeneSet) Contains(tag string) bool {
	_, ok := g.set[tag]
	return ok
}

// Len returns the number of marker genes in the set.
func (g GeneSet) Len() int { return len(g.tags) }

// Tags returns the ordered list of marker gene tags. The caller must
// not modify the returned slice.
func (g GeneSet) Tags() []string { return g.tags }

// DefaultMarkerGenes is the panel of universal single-copy marker genes
// used when no custom gene set is supplied. It mirrors the ~40-gene
// ribosomal-protein panel commonly used for single-copy phylogenetic
// profiling (e.g. rps/rpl ribosomal proteins plus a handful of other
// universal single-copy genes).
var DefaultMarkerGenes = NewGeneSet([]string{
	"rpsB", "rpsC", "rpsE", "rpsI", "rpsJ", "rpsK", "rpsM", "rpsQ", "rpsS",
	"rplB", "rplC", "rplD", "rplE", "rplF", "rplK", "rplN", "rplP", "rplR",
	"rplT", "rplV", "rplX",
	"rpoB", "rpoC",
	"dnaG", "infB", "infC",
	"pyrG", "pgk", "frr", "nusA", "tsf", "smpB", "rbfA",
	"gyrA", "gyrB",
	"recA", "alaS", "ileS", "leuS", "metG",
})
