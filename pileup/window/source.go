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
package window

import (
	"context"
	"fmt"
	"io"

	"github.com/genomics-workbench/mist/exttool"
	"github.com/genomics-workbench/mist/interval"
	"github.com/genomics-workbench/mist/pileup"
	"github.com/genomics-workbench/mist/pileup/mpileup"
	"github.com/grailbio/base/log"
)

// ToolSource fetches columns by running "samtools mpileup" on an indexed
// BAM and decoding its text output.  Malformed lines are logged and
// skipped.
type ToolSource struct {
	Runner exttool.Runner
	// Samtools is the samtools executable name or path.
	Samtools string
	BAMPath  string
	// FastaPath, if set, is passed with -f so reference bases are filled in.
	FastaPath string
	// Args holds extra mpileup arguments, e.g. "-Q", "0".
	Args []string
}

// MpileupArgs returns the samtools arguments used to fetch iv on refName.
func (s *ToolSource) MpileupArgs(refName string, iv interval.Interval) []string {
	args := []string{"mpileup", "-r", fmt.Sprintf("%s:%d-%d", refName, iv.Start, iv.End)}
	if s.FastaPath != "" {
		args = append(args, "-f", s.FastaPath)
	}
	args = append(args, s.Args...)
	return append(args, s.BAMPath)
}

// Fetch implements Source.
func (s *ToolSource) Fetch(ctx context.Context, refName string, iv interval.Interval) ([]pileup.Column, error) {
	var (
		cols     []pileup.Column
		nSkipped int
	)
	err := exttool.Stream(ctx, s.Runner, func(stdout io.Reader) error {
		sc := mpileup.NewScanner(stdout)
		for sc.Scan() {
			cols = append(cols, mpileup.CopyColumn(sc.Column()))
		}
		nSkipped = sc.Skipped()
		return sc.Err()
	}, s.Samtools, s.MpileupArgs(refName, iv)...)
	if err != nil {
		return nil, err
	}
	if nSkipped > 0 {
		log.Printf("window: %s:%d-%d: skipped %d malformed pileup lines", refName, iv.Start, iv.End, nSkipped)
	}
	return cols, nil
}
