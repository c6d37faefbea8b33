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

func TestTrimHardClip(t *testing.T) {
	cig := sam.Cigar{
		sam.NewCigarOp(sam.CigarHardClipped, 5),
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarHardClipped, 3),
	}
	trimmed := trimHardClip(cig)
	assert.Len(t, trimmed, 1)
	assert.Equal(t, sam.CigarMatch, trimmed[0].Type())

	noClip := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 10)}
	assert.Equal(t, noClip, trimHardClip(noClip))

	allClip := sam.Cigar{sam.NewCigarOp(sam.CigarHardClipped, 5)}
	assert.Len(t, trimHardClip(allClip), 0)
}

func TestOpCountsToMultinomial(t *testing.T) {
	var c opCounts
	c.accumulate(sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 90),
		sam.NewCigarOp(sam.CigarInsertion, 5),
		sam.NewCigarOp(sam.CigarDeletion, 5),
	})
	m := c.toMultinomial()
	assert.Equal(t, 1.0, m.Cost[sam.CigarMatch])
	assert.Equal(t, 1.0, m.Cost[sam.CigarEqual])
	assert.InDelta(t, 0.5, m.Cost[sam.CigarInsertion], 1e-9)
	assert.InDelta(t, 0.5, m.Cost[sam.CigarDeletion], 1e-9)
}

func TestOpCountsToMultinomialEmptyUsesDefaults(t *testing.T) {
	var c opCounts
	m := c.toMultinomial()
	assert.Equal(t, fixedMultinomialDefaults, m.Cost)
}

func TestOpCountsToMarkov(t *testing.T) {
	var c opCounts
	c.accumulate(sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 3),
		sam.NewCigarOp(sam.CigarInsertion, 1),
		sam.NewCigarOp(sam.CigarMatch, 2),
	})
	m := c.toMarkov()
	assert.InDelta(t, 3.0/4.0, m.T[sam.CigarMatch][sam.CigarMatch], 1e-9)
	assert.InDelta(t, 1.0/4.0, m.T[sam.CigarMatch][sam.CigarInsertion], 1e-9)
	assert.Equal(t, 1.0, m.T[sam.CigarInsertion][sam.CigarMatch])
}

func TestBuildCigarModelNoOpUnderScoreAS(t *testing.T) {
	model, err := BuildCigarModel(&fakeAlignmentSource{}, ScoreAS, SchemaColon, DefaultMarkerGenes, false)
	assert.NoError(t, err)
	assert.Nil(t, model.Multinomial)
	assert.Nil(t, model.Markov)
}

// fakeAlignmentSource is an empty AlignmentSource stub for tests that
// don't need real BAM records.
type fakeAlignmentSource struct {
	i    int
	recs []*sam.Record
	err  error
}

func (f *fakeAlignmentSource) Scan() bool {
	if f.i >= len(f.recs) {
		return false
	}
	f.i++
	return true
}
func (f *fakeAlignmentSource) Record() *sam.Record { return f.recs[f.i-1] }
func (f *fakeAlignmentSource) Err() error           { return f.err }
func (f *fakeAlignmentSource) Close() error         { return nil }
