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

func TestParseReferenceNameColon(t *testing.T) {
	tests := []struct {
		name     string
		targetID int
		geneTag  string
		ok       bool
	}{
		{"42:genomeA/path/to/rpsB", 42, "rpsB", true},
		{"7:rplK", 7, "rplK", true},
		{"not-a-number:rplK", 0, "", false},
		{"noColonHere", 0, "", false},
	}
	for _, test := range tests {
		id, gene, ok := ParseReferenceName(test.name, SchemaColon)
		assert.Equal(t, test.ok, ok, test.name)
		if test.ok {
			assert.Equal(t, test.targetID, id, test.name)
			assert.Equal(t, test.geneTag, gene, test.name)
		}
	}
}

func TestParseReferenceNameGID(t *testing.T) {
	id, gene, ok := ParseReferenceName("123_contig4", SchemaGID)
	assert.True(t, ok)
	assert.Equal(t, 123, id)
	assert.Equal(t, "", gene)

	_, _, ok = ParseReferenceName("noUnderscore", SchemaGID)
	assert.False(t, ok)
}
