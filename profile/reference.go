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
	"strconv"
	"strings"
)

// ParseReferenceName splits a reference_name into a target_id and gene
// tag according to schema.
//
// Under SchemaColon, the name has the form "<target_id>:<gene_tag>/...";
// the gene tag is the final '/'-separated component of the second colon
// field.
//
// Under SchemaGID, the name has the form "<target_id>_<suffix>"; there
// is no gene tag (callers relying on gene stratification should not use
// this schema with per-gene models).
func ParseReferenceName(name string, schema ReferenceSchema) (targetID int, geneTag string, ok bool) {
	switch schema {
	case SchemaGID:
		idx := strings.IndexByte(name, '_')
		if idx < 0 {
			return 0, "", false
		}
		id, err := strconv.Atoi(name[:idx])
		if err != nil {
			return 0, "", false
		}
		return id, "", true
	default:
		parts := strings.SplitN(name, ":", 3)
		if len(parts) < 2 {
			return 0, "", false
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, "", false
		}
		geneField := parts[1]
		if slash := strings.LastIndexByte(geneField, '/'); slash >= 0 {
			geneTag = geneField[slash+1:]
		} else {
			geneTag = geneField
		}
		return id, geneTag, true
	}
}
