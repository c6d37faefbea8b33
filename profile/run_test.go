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

func TestDistinctTargets(t *testing.T) {
	got := distinctTargets([]int{3, 1, 3, 2, 1})
	assert.Equal(t, []int{3, 1, 2}, got)
}

func TestFilterTableByTarget(t *testing.T) {
	table := &LikelihoodTable{
		ReadID:      []string{"r1", "r1", "r2", "r3"},
		TargetID:    []int{1, 2, 1, 2},
		GeneTag:     []string{"g1", "g2", "g1", "g2"},
		ReferenceID: []string{"ref1", "ref2", "ref1", "ref2"},
		AlnLen:      []int{100, 100, 100, 100},
		LogP:        []float64{-1, -2, -1, -2},
	}
	filtered := filterTableByTarget(table, map[int]bool{1: true})
	assert.Equal(t, []string{"r1", "r2"}, filtered.ReadID)
	assert.Equal(t, []int{1, 1}, filtered.TargetID)
	assert.Len(t, filtered.ReadGroups, 2)
}
