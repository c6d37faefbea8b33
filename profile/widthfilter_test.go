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

	"github.com/stretchr/testify/assert"
)

func TestWidthFilterRetainEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		s    widthStats
		want bool
	}{
		{"zero reads rejected", widthStats{genomeGenes: 20, hitGenes: 0, reads: 0}, false},
		{"single genome gene with reads accepted", widthStats{genomeGenes: 1, hitGenes: 1, reads: 5}, true},
		{"zero genome genes rejected", widthStats{genomeGenes: 0, hitGenes: 0, reads: 5}, false},
		{"ten or fewer reads always kept", widthStats{genomeGenes: 20, hitGenes: 1, reads: 10}, true},
		{"single hit gene beyond low-read regime rejected", widthStats{genomeGenes: 20, hitGenes: 1, reads: 40}, false},
	}
	for _, test := range tests {
		got := widthFilterRetain(&test.s)
		assert.Equal(t, test.want, got, test.name)
	}
}

func TestWidthFilterRetainWorkedExample(t *testing.T) {
	// G_t=20, g_t=2, r_t=40: narrow coverage relative to the genome's
	// marker-gene count should be rejected.
	s := widthStats{genomeGenes: 20, hitGenes: 2, reads: 40}
	assert.False(t, widthFilterRetain(&s))
}

func TestWidthFilterRetainBroadCoverage(t *testing.T) {
	// Coverage proportional to genome size should be retained.
	s := widthStats{genomeGenes: 20, hitGenes: 18, reads: 100}
	assert.True(t, widthFilterRetain(&s))
}

func TestApplyWidthFilter(t *testing.T) {
	table := &LikelihoodTable{
		ReadID:   []string{"r1", "r2", "r3"},
		TargetID: []int{1, 1, 2},
		GeneTag:  []string{"rpsB", "rpsB", "rplK"},
	}
	geneLen := GeneLengthTable{
		"1:g/rpsB": {TargetID: 1, GeneTag: "rpsB", Length: 100},
		"1:g/rplK": {TargetID: 1, GeneTag: "rplK", Length: 100},
		"2:g/rplK": {TargetID: 2, GeneTag: "rplK", Length: 100},
	}
	keep := ApplyWidthFilter(table, geneLen)
	// Target 1 has genomeGenes=2 but only 2 reads (<= 10): conservatively kept.
	assert.True(t, keep[1])
	assert.True(t, keep[2])
}
