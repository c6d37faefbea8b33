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
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	grailerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/taxprofile/profile"
)

var (
	dbPrefix       = flag.String("db-prefix", "", "Directory holding the marker-gene database and its gene2len.tsv/reference2genome.tsv tables")
	taxPath        = flag.String("tax-path", "", "Path to taxonomy.tsv")
	out            = flag.String("output", "bio-taxprofile-out", "Output directory; recreated if it already exists")
	numThreads     = flag.Int("num-threads", 0, "Worker parallelism for the likelihood and EM stages; 0 = runtime.NumCPU()")
	alnScore       = flag.String("aln-score", "AS", "CIGAR scoring model: 'AS', 'edit', or 'markov'")
	alnScoreGene   = flag.Bool("aln-score-gene", false, "Stratify the CIGAR model per marker gene")
	rank           = flag.String("rank", "", "Additionally collapse relative_abundance.tsv to this taxonomic rank")
	minAlnLenRatio = flag.Float64("min-aln-len-ratio", profile.DefaultOpts.MinAlnLenRatio, "Lower bound on aln_len/gene_length")
	minFidelity    = flag.Float64("min-fidelity", profile.DefaultOpts.MinFidelity, "Lower bound on alignment fidelity")
	refWeight      = flag.Float64("ref-weight", profile.DefaultOpts.RefWeight, "Weight of the length-ratio reweighting term")
	samInput       = flag.String("sam-input", "", "Skip alignment; use this prebuilt BAM instead")
	saveIntProfile = flag.Bool("save-intermediate-profile", false, "Write relative_abundance-EM-<i>.tsv after each EM iteration")
	widthFilter    = flag.Bool("width-filter", false, "Apply the marker-gene width filter before EM")
	gidName        = flag.Bool("gid-name", false, "Switch reference-name schema to '<target>_<suffix>' form")
	keepAlignments = flag.Bool("keep-alignments", false, "Retain the alignment file after the run")
)

func bioTaxprofileUsage() {
	fmt.Printf("Usage: %s [OPTIONS] readpath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioTaxprofileUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Missing positional argument (readpath required); please check flag syntax")
	}
	opts := parseOpts(flag.Arg(0))

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("bio-taxprofile: received %v, aborting", sig)
		cancel()
	}()

	if err := profile.Run(ctx, opts); err != nil {
		if ctx.Err() != nil {
			os.Exit(128)
		}
		var alignerErr *profile.AlignerExitError
		if errors.As(err, &alignerErr) {
			log.Printf("bio-taxprofile: %v", err)
			os.Exit(alignerErr.ExitCode)
		}
		if e, ok := err.(*grailerrors.Error); ok && e.Kind == grailerrors.Precondition {
			log.Printf("bio-taxprofile: %v", err)
			os.Exit(1)
		}
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}

func parseOpts(input string) *profile.Opts {
	model, ok := profile.ParseScoreModel(*alnScore)
	if !ok {
		log.Fatalf("invalid -aln-score %q: must be AS, edit, or markov", *alnScore)
	}
	schema := profile.SchemaColon
	if *gidName {
		schema = profile.SchemaGID
	}
	threads := *numThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &profile.Opts{
		Input:                   input,
		Output:                  *out,
		DBPrefix:                *dbPrefix,
		TaxPath:                 *taxPath,
		NumThreads:              threads,
		AlnScore:                model,
		AlnScoreGene:            *alnScoreGene,
		Rank:                    *rank,
		MinAlnLenRatio:          *minAlnLenRatio,
		MinFidelity:             *minFidelity,
		RefWeight:               *refWeight,
		SamInput:                *samInput,
		SaveIntermediateProfile: *saveIntProfile,
		WidthFilter:             *widthFilter,
		RefSchema:               schema,
		KeepAlignments:          *keepAlignments,
	}
}
