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
package mpileup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/genomics-workbench/mist/pileup"
)

// Column layout of a samtools mpileup line:
//   chrom  pos  ref  {depth  readBases  quals}...
// with one {depth, readBases, quals} triple per sample.  Quality columns
// are ignored.
const (
	colChrom = iota
	colPos
	colRef
	colFirstSample

	// nMinCol is the minimum usable number of columns: the first sample's
	// quality column may be absent.
	nMinCol    = colFirstSample + 2
	nSampleCol = 3
)

// DecodeError reports a malformed pileup line.  Callers are expected to skip
// the line and continue.
type DecodeError struct {
	// LineNum is the 1-based line number within the stream, or 0 if unknown.
	LineNum int
	Line    string
	Msg     string
}

func (e *DecodeError) Error() string {
	line := e.Line
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	if e.LineNum > 0 {
		return fmt.Sprintf("mpileup: line %d: %s: %q", e.LineNum, e.Msg, line)
	}
	return fmt.Sprintf("mpileup: %s: %q", e.Msg, line)
}

// Decode parses one mpileup line.  When the line carries several samples,
// their read-base columns are merged into the same records.
func Decode(line string) (pileup.Column, error) {
	var col pileup.Column
	err := DecodeInto(&col, line)
	return col, err
}

// DecodeInto is Decode with a caller-supplied destination, whose Records
// slice is reused.
func DecodeInto(col *pileup.Column, line string) error {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, "\t")
	if len(fields) < nMinCol {
		return &DecodeError{Line: line, Msg: fmt.Sprintf("expected at least %d tab-separated fields, found %d", nMinCol, len(fields))}
	}
	if fields[colChrom] == "" {
		return &DecodeError{Line: line, Msg: "empty chromosome"}
	}
	pos, err := strconv.ParseInt(fields[colPos], 10, 32)
	if err != nil || pos <= 0 {
		return &DecodeError{Line: line, Msg: fmt.Sprintf("invalid position %q", fields[colPos])}
	}
	if len(fields[colRef]) == 0 {
		return &DecodeError{Line: line, Msg: "empty reference base"}
	}
	ref := pileup.EnumToASCIITable[pileup.ASCIIToEnumTable[fields[colRef][0]]]

	col.RefName = fields[colChrom]
	col.Pos = pileup.PosType(pos)
	col.Depth = 0
	col.Records = append(col.Records[:0], pileup.NewRecord(ref))
	for s := colFirstSample; s+1 < len(fields); s += nSampleCol {
		depth, err := strconv.ParseUint(fields[s], 10, 32)
		if err != nil {
			return &DecodeError{Line: line, Msg: fmt.Sprintf("invalid depth %q", fields[s])}
		}
		col.Depth += uint32(depth)
		toks, err := Tokenize(fields[s+1])
		if err != nil {
			return &DecodeError{Line: line, Msg: err.Error()}
		}
		Interpret(col, toks)
	}
	return nil
}

// Interpret applies the depth increments described by toks to col, whose
// Records[0] must already hold the primary record.  Insertion records are
// created on demand and shared between reads: the k-th inserted base of
// every read lands in Records[k].
func Interpret(col *pileup.Column, toks []Token) {
	primary := &col.Records[0]
	for _, tok := range toks {
		switch tok.Kind {
		case Match:
			sym := primary.Ref
			if tok.Strand == pileup.StrandRev {
				sym |= 0x20
			}
			primary.Add(sym)
		case MismatchForward, MismatchReverse:
			primary.Add(tok.Base)
		case InsertionStart:
			for k := 1; k <= len(tok.Seq); k++ {
				for len(col.Records) <= k {
					col.Records = append(col.Records, pileup.NewRecord(pileup.RefInsertion))
				}
				// Records may have been reallocated.
				primary = &col.Records[0]
				if b := tok.Seq[k-1]; pileup.IsBase(b) {
					col.Records[k].Add(b)
				}
			}
		case DeletionStart, ReadStart, ReadEnd, ReferenceSkip, DeletedBase:
			// No depth contribution.
		}
	}
}
