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
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadRef2GenomeTable(t *testing.T) {
	dir, err := ioutil.TempDir("", "ref2genome")
	assert.NoError(t, err)
	path := filepath.Join(dir, "reference2genome.tsv")
	content := "ref1\tgenomeA\nref2\tgenomeB\n"
	assert.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))

	table, err := LoadRef2GenomeTable(context.Background(), path)
	assert.NoError(t, err)
	assert.Equal(t, "genomeA", table["ref1"])
	assert.Equal(t, "genomeB", table["ref2"])
	assert.Len(t, table, 2)
}

func TestLoadRef2GenomeTableMissingFile(t *testing.T) {
	_, err := LoadRef2GenomeTable(context.Background(), "/nonexistent/reference2genome.tsv")
	assert.Error(t, err)
}

func TestLoadRef2GenomeTableMalformedRow(t *testing.T) {
	dir, err := ioutil.TempDir("", "ref2genome")
	assert.NoError(t, err)
	path := filepath.Join(dir, "reference2genome.tsv")
	assert.NoError(t, ioutil.WriteFile(path, []byte("ref1-with-no-tab\n"), 0600))

	_, err = LoadRef2GenomeTable(context.Background(), path)
	assert.Error(t, err)
}
