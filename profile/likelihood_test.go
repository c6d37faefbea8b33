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
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
)

// newTestRecord builds a minimal primary alignment record with an AS tag
// and the given CIGAR, bypassing sam.NewRecord's
// header-bound reference ID validation (tests never serialize these).
func newTestRecord(t *testing.T, name, refName string, score int, cig sam.Cigar) *sam.Record {
	ref, err := sam.NewReference(refName, "", "", 1000, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	aux, err := sam.NewAux(sam.NewTag("AS"), score)
	if err != nil {
		t.Fatal(err)
	}
	return &sam.Record{
		Name:      name,
		Ref:       ref,
		Cigar:     cig,
		AuxFields: sam.AuxFields{aux},
	}
}

func TestAlnLen(t *testing.T) {
	cig := sam.Cigar{
		sam.NewCigarOp(sam.CigarEqual, 90),
		sam.NewCigarOp(sam.CigarMismatch, 5),
		sam.NewCigarOp(sam.CigarInsertion, 3),
		sam.NewCigarOp(sam.CigarDeletion, 2),
		sam.NewCigarOp(sam.CigarSoftClipped, 10),
	}
	assert.Equal(t, 98, alnLen(cig))
}

func TestAlnScore(t *testing.T) {
	rec := newTestRecord(t, "r1", "1:genome/rpsB", 42, sam.Cigar{sam.NewCigarOp(sam.CigarEqual, 50)})
	score, ok := alnScore(rec)
	assert.True(t, ok)
	assert.Equal(t, 42, score)
}

func TestAlnScoreMissing(t *testing.T) {
	rec := &sam.Record{Name: "r1"}
	_, ok := alnScore(rec)
	assert.False(t, ok)
}

type sliceAlignmentSource struct {
	recs []*sam.Record
	i    int
}

func (s *sliceAlignmentSource) Scan() bool {
	if s.i >= len(s.recs) {
		return false
	}
	s.i++
	return true
}
func (s *sliceAlignmentSource) Record() *sam.Record { return s.recs[s.i-1] }
func (s *sliceAlignmentSource) Err() error           { return nil }
func (s *sliceAlignmentSource) Close() error         { return nil }

func TestBuildLikelihoodTableBasic(t *testing.T) {
	eq100 := sam.Cigar{sam.NewCigarOp(sam.CigarEqual, 100)}
	recs := []*sam.Record{
		newTestRecord(t, "read1", "1:genomeA/rpsB", 100, eq100),
		newTestRecord(t, "read1", "2:genomeB/rpsB", 90, eq100),
		newTestRecord(t, "read2", "1:genomeA/rpsB", 100, eq100),
	}
	src := &sliceAlignmentSource{recs: recs}
	geneLen := GeneLengthTable{
		"1:genomeA/rpsB": {TargetID: 1, GeneTag: "rpsB", Length: 100},
		"2:genomeB/rpsB": {TargetID: 2, GeneTag: "rpsB", Length: 100},
	}
	opts := DefaultOpts
	opts.RefSchema = SchemaColon
	result, err := BuildLikelihoodTable(src, &CigarModel{}, geneLen, DefaultMarkerGenes, &opts)
	assert.NoError(t, err)
	assert.Len(t, result.Raw, 3)
	assert.NotEmpty(t, result.Final.ReadID)

	// The AS-mode filter keeps only rows within a factor of 1.1 (in log
	// space) of the per-read maximum score, so read1's weaker (target 2)
	// alignment is pruned and both reads end up assigned to target 1.
	counts := map[string]int{}
	for i, r := range result.Final.ReadID {
		counts[r]++
		assert.Equal(t, 1, result.Final.TargetID[i])
	}
	assert.Equal(t, 1, counts["read1"])
	assert.Equal(t, 1, counts["read2"])
}

func TestBuildLikelihoodTableNoAlignmentsError(t *testing.T) {
	src := &sliceAlignmentSource{}
	opts := DefaultOpts
	_, err := BuildLikelihoodTable(src, &CigarModel{}, GeneLengthTable{}, DefaultMarkerGenes, &opts)
	assert.Error(t, err)
}

func TestBuildReadGroups(t *testing.T) {
	groups := buildReadGroups([]string{"a", "a", "b", "c", "c", "c"})
	assert.Equal(t, []ReadGroup{
		{ReadID: "a", Group: Group{Start: 0, End: 2}},
		{ReadID: "b", Group: Group{Start: 2, End: 3}},
		{ReadID: "c", Group: Group{Start: 3, End: 6}},
	}, groups)
}
