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

/*
bio-taxprofile estimates the relative abundance of a fixed panel of
reference genomes in a metagenomic read set, by aligning reads against a
marker-gene database and resolving multiply-mapped reads with an
expectation-maximization model over per-alignment log-likelihoods.

Sample usage:
bio-taxprofile \
    -db-prefix marker-db \
    -tax-path taxonomy.tsv \
    -output profile-out \
    reads.fastq
*/
package main
