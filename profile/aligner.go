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
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/grailbio/base/log"
)

// AlignerBinary is the external aligner invoked by RunAligner. It is a
// package variable so that another binary can be substituted.
var AlignerBinary = "bio-taxprofile-aligner"

// AlignerExitError wraps a nonzero aligner exit so the CLI entry point
// can propagate the exact exit code, per the documented exit-code
// contract (a nonzero aligner exit is propagated verbatim).
type AlignerExitError struct {
	ExitCode int
	cause    error
}

func (e *AlignerExitError) Error() string { return e.cause.Error() }
func (e *AlignerExitError) Unwrap() error { return e.cause }

// RunAligner shells out to the external read aligner against opts.DBPrefix,
// writing a BAM file under opts.Output and returning its path. The
// profiling pipeline itself never aligns reads; alignment is delegated to
// whatever tool produced the DB, matching the CLI's own two-phase design
// (align, then profile) when -sam-input isn't given.
func RunAligner(ctx context.Context, opts *Opts) (string, error) {
	outPath := filepath.Join(opts.Output, "alignments.bam")
	args := []string{
		"-x", opts.DBPrefix,
		"-U", opts.Input,
		"-o", outPath,
		"-p", fmt.Sprintf("%d", opts.NumThreads),
	}
	cmd := exec.CommandContext(ctx, AlignerBinary, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	log.Debug.Printf("taxprofile: running aligner: %s %v", AlignerBinary, args)
	if err := cmd.Run(); err != nil {
		wrapped := errAlignerFailed(err, output.String())
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", &AlignerExitError{ExitCode: exitErr.ExitCode(), cause: wrapped}
		}
		return "", wrapped
	}
	return outPath, nil
}
