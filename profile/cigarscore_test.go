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
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
)

func TestScoreCigarMultinomial(t *testing.T) {
	model := &CigarModel{Multinomial: &MultinomialModel{Cost: fixedMultinomialDefaults}}
	cig := sam.Cigar{
		sam.NewCigarOp(sam.CigarMatch, 10),
		sam.NewCigarOp(sam.CigarInsertion, 2),
	}
	got := ScoreCigar(cig, model)
	want := 10*math.Log(1) + 2*math.Log(fixedMultinomialDefaults[sam.CigarInsertion])
	assert.InDelta(t, want, got, 1e-9)
}

func TestScoreCigarMarkovFallsBackToDefaults(t *testing.T) {
	model := &CigarModel{Markov: &MarkovModel{}}
	cig := sam.Cigar{sam.NewCigarOp(sam.CigarEqual, 3)}
	got := ScoreCigar(cig, model)
	want := 2 * math.Log(fixedMultinomialDefaults[sam.CigarEqual])
	assert.InDelta(t, want, got, 1e-9)
}

func TestScoreCigarMarkovIgnoresMatch(t *testing.T) {
	model := &CigarModel{Markov: &MarkovModel{}}
	cig := sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 5)}
	assert.Equal(t, 0.0, ScoreCigar(cig, model))
}

func TestScoreCigarPanicsWithoutModel(t *testing.T) {
	model := &CigarModel{}
	assert.Panics(t, func() {
		ScoreCigar(sam.Cigar{sam.NewCigarOp(sam.CigarMatch, 1)}, model)
	})
}
