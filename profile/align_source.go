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
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// AlignmentSource streams alignment records in file order. The
// likelihood-table builder makes one forward pass and never needs
// genomic-coordinate sharding, since its own parallelism is over the
// resulting in-memory table, not over file regions.
type AlignmentSource interface {
	// Scan advances to the next record, returning false at EOF or on
	// error; callers must check Err after a false return.
	Scan() bool
	// Record returns the current record. Valid only after Scan returns
	// true.
	Record() *sam.Record
	// Err returns the first error encountered, or nil.
	Err() error
	// Close releases the underlying file. Idempotent-safe to call once.
	Close() error
}

// bamSource is an AlignmentSource backed by a BAM file opened through
// github.com/grailbio/base/file, so local and remote paths are both
// supported, mirroring bamprovider.BAMProvider.
type bamSource struct {
	in     file.File
	reader *bam.Reader
	ctx    context.Context
	rec    *sam.Record
	err    error
	done   bool
}

// OpenAlignments opens path (a BAM file, prebuilt or freshly produced by
// the aligner) for streaming.
func OpenAlignments(ctx context.Context, path string) (AlignmentSource, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errMissingInputFile(path, err)
	}
	reader, err := bam.NewReader(in.Reader(ctx), 0)
	if err != nil {
		_ = in.Close(ctx)
		return nil, errSchemaMismatch(path, err.Error())
	}
	return &bamSource{in: in, reader: reader, ctx: ctx}, nil
}

func (s *bamSource) Scan() bool {
	if s.done {
		return false
	}
	rec, err := s.reader.Read()
	if err != nil {
		if err != io.EOF {
			s.err = err
		}
		s.done = true
		s.rec = nil
		return false
	}
	s.rec = rec
	return true
}

func (s *bamSource) Record() *sam.Record { return s.rec }

func (s *bamSource) Err() error { return s.err }

func (s *bamSource) Close() error {
	return s.in.Close(s.ctx)
}

// IsPrimary reports whether rec is a primary alignment: not secondary,
// not supplementary.
func IsPrimary(rec *sam.Record) bool {
	return rec.Flags&(sam.Secondary|sam.Supplementary) == 0
}
