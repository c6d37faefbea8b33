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
	"github.com/grailbio/base/errors"
)

// Error kinds surfaced by this package. These are not exported as
// errors.Kind constants (the upstream package owns that enumeration);
// instead each is a tagged, wrapped *errors.Error constructed with the
// closest matching errors.Kind, so callers can still use errors.Is /
// the Kind field for the coarse cases (missing file, precondition).

// errMissingInputFile reports that one of the on-disk tables this
// package requires (taxonomy.tsv, gene2len.tsv, reference2genome.tsv)
// is absent.
func errMissingInputFile(path string, cause error) error {
	return errors.E(errors.NotExist, "taxprofile: missing input file", path, cause)
}

// errSchemaMismatch reports a required column missing or malformed in
// an input table.
func errSchemaMismatch(path, detail string) error {
	return errors.E(errors.Invalid, "taxprofile: schema mismatch in", path, detail)
}

// errNoAlignments reports that P(r|t) has zero rows after filtering.
func errNoAlignments() error {
	return errors.E(errors.Precondition,
		"taxprofile: no alignments survived filtering; relax -min-aln-len-ratio or -min-fidelity")
}

// errInvalidRank reports an unknown rank name requested for collapse.
func errInvalidRank(rank string) error {
	return errors.E(errors.Invalid, "taxprofile: unknown rank", rank)
}

// errAlignerFailed wraps a nonzero aligner exit, surfacing its stdout
// and stderr in the message.
func errAlignerFailed(cause error, output string) error {
	return errors.E(errors.Unknown, "taxprofile: aligner failed", cause, output)
}
