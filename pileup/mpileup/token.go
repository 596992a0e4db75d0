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

	"github.com/genomics-workbench/mist/pileup"
)

// TokenKind classifies one element of a read-base column.
type TokenKind uint8

const (
	// Match is '.' (forward) or ',' (reverse): the read agrees with the
	// reference.
	Match TokenKind = iota
	// MismatchForward is an uppercase base literal.
	MismatchForward
	// MismatchReverse is a lowercase base literal.
	MismatchReverse
	// InsertionStart is "+<N><N bases>": bases inserted after this position.
	InsertionStart
	// DeletionStart is "-<N><N bases>": reference bases deleted after this
	// position.  The deleted bases appear as DeletedBase in later lines.
	DeletionStart
	// ReadStart is '^' followed by a mapping-quality byte.
	ReadStart
	// ReadEnd is '$'.
	ReadEnd
	// ReferenceSkip is '<' or '>', a reference skip (e.g. an N CIGAR
	// operation).  Accepted, but contributes nothing.
	ReferenceSkip
	// DeletedBase is '*' (or '#' on the reverse strand in newer samtools):
	// a base deleted by an earlier DeletionStart.
	DeletedBase
)

var tokenKindNames = [...]string{
	Match:           "Match",
	MismatchForward: "MismatchForward",
	MismatchReverse: "MismatchReverse",
	InsertionStart:  "InsertionStart",
	DeletionStart:   "DeletionStart",
	ReadStart:       "ReadStart",
	ReadEnd:         "ReadEnd",
	ReferenceSkip:   "ReferenceSkip",
	DeletedBase:     "DeletedBase",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// Token is one element of a read-base column.
type Token struct {
	Kind TokenKind
	// Strand is meaningful for Match, MismatchForward and MismatchReverse.
	Strand pileup.StrandType
	// Base is the base literal for mismatches, and the quality byte for
	// ReadStart.
	Base byte
	// Seq holds the inserted or deleted bases of an indel.
	Seq string
	// Width is the number of column bytes the token spans.  For an indel it
	// is 1 + len(digits) + len(Seq).
	Width int
}

// Tokenize splits a read-base column into tokens.  It fails on an unknown
// character, a '^' without a quality byte, or an indel whose length is
// missing, non-numeric, or longer than the remaining column.
func Tokenize(readBases string) ([]Token, error) {
	// Most columns are one token per byte.
	toks := make([]Token, 0, len(readBases))
	for pos := 0; pos < len(readBases); {
		tok, err := nextToken(readBases, pos)
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		pos += tok.Width
	}
	return toks, nil
}

// nextToken decodes the token starting at readBases[pos].
func nextToken(readBases string, pos int) (Token, error) {
	c := readBases[pos]
	switch c {
	case '.':
		return Token{Kind: Match, Strand: pileup.StrandFwd, Width: 1}, nil
	case ',':
		return Token{Kind: Match, Strand: pileup.StrandRev, Width: 1}, nil
	case 'A', 'C', 'G', 'T', 'N':
		return Token{Kind: MismatchForward, Strand: pileup.StrandFwd, Base: c, Width: 1}, nil
	case 'a', 'c', 'g', 't', 'n':
		return Token{Kind: MismatchReverse, Strand: pileup.StrandRev, Base: c, Width: 1}, nil
	case '+', '-':
		return indelToken(readBases, pos)
	case '^':
		if pos+1 >= len(readBases) {
			return Token{}, fmt.Errorf("read-start marker at column offset %d has no quality byte", pos)
		}
		return Token{Kind: ReadStart, Base: readBases[pos+1], Width: 2}, nil
	case '$':
		return Token{Kind: ReadEnd, Width: 1}, nil
	case '<', '>':
		return Token{Kind: ReferenceSkip, Width: 1}, nil
	case '*', '#':
		return Token{Kind: DeletedBase, Width: 1}, nil
	}
	return Token{}, fmt.Errorf("unexpected character %q at column offset %d", c, pos)
}

// indelToken decodes "+<N><bases>" or "-<N><bases>" at readBases[pos].  The
// digit run may have any length.
func indelToken(readBases string, pos int) (Token, error) {
	digitStart := pos + 1
	digitEnd := digitStart
	n := 0
	for ; digitEnd < len(readBases); digitEnd++ {
		d := readBases[digitEnd]
		if d < '0' || d > '9' {
			break
		}
		n = n*10 + int(d-'0')
		if n > len(readBases) {
			// Can't possibly fit; also guards against overflow.
			return Token{}, fmt.Errorf("indel length at column offset %d exceeds column", pos)
		}
	}
	if digitEnd == digitStart {
		return Token{}, fmt.Errorf("indel at column offset %d has no length", pos)
	}
	seqEnd := digitEnd + n
	if seqEnd > len(readBases) {
		return Token{}, fmt.Errorf("indel at column offset %d: length %d exceeds remaining %d bytes", pos, n, len(readBases)-digitEnd)
	}
	kind := InsertionStart
	if readBases[pos] == '-' {
		kind = DeletionStart
	}
	return Token{
		Kind:  kind,
		Seq:   readBases[digitEnd:seqEnd],
		Width: seqEnd - pos,
	}, nil
}
