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
package pileup

import (
	"fmt"
	"strings"
)

// Record holds the per-allele, per-strand depths observed at one position
// (or one inserted sub-position).
//
// Counts are uint32 rather than int to keep a window of records compact.
type Record struct {
	// Ref is the reference base, one of A/C/G/T/N, or RefInsertion.
	Ref byte
	// Counts is indexed by [base enum][StrandType].
	Counts [NBaseEnum][2]uint32
}

// NewRecord returns an all-zero record with the given reference base.
func NewRecord(ref byte) Record {
	return Record{Ref: ref}
}

// Add increments the depth of a case-sensitive base symbol: uppercase is
// forward strand, lowercase is reverse strand.
func (r *Record) Add(sym byte) {
	r.Counts[ASCIIToEnumTable[sym]][SymbolStrand(sym)]++
}

// Depth returns the depth of a case-sensitive base symbol.
func (r *Record) Depth(sym byte) uint32 {
	if !IsBase(sym) {
		return 0
	}
	return r.Counts[ASCIIToEnumTable[sym]][SymbolStrand(sym)]
}

// Total returns the sum of all counts.
func (r *Record) Total() uint32 {
	var n uint32
	for _, c := range r.Counts {
		n += c[StrandFwd] + c[StrandRev]
	}
	return n
}

// IsInsertion returns whether the record describes an inserted position.
func (r *Record) IsInsertion() bool {
	return r.Ref == RefInsertion
}

// String renders the nonzero counts, e.g. "A[A=5 a=5]".
func (r Record) String() string {
	var sb strings.Builder
	sb.WriteByte(r.Ref)
	sb.WriteByte('[')
	first := true
	for e, c := range r.Counts {
		for s, n := range c {
			if n == 0 {
				continue
			}
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			sym := EnumToASCIITable[e]
			if StrandType(s) == StrandRev {
				sym |= 0x20
			}
			fmt.Fprintf(&sb, "%c=%d", sym, n)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// Column is everything decoded for one genomic position: the primary record
// followed by one record per inserted sub-position, in insertion-offset
// order.  Records[k] for k >= 1 is the insertion record at offset k.
type Column struct {
	RefName string
	Pos     PosType
	// Depth is the read count reported by the source, which may differ from
	// Primary().Total() since deletions and skips are not counted there.
	Depth   uint32
	Records []Record
}

// Primary returns the record for the position itself.
func (c *Column) Primary() *Record {
	return &c.Records[0]
}

// Insertions returns the insertion records, which may be empty.
func (c *Column) Insertions() []Record {
	return c.Records[1:]
}

// EmptyColumn returns a column with no coverage at pos.  Its reference base
// is unknown, so it is reported as 'N'.
func EmptyColumn(refName string, pos PosType) Column {
	return Column{
		RefName: refName,
		Pos:     pos,
		Records: []Record{NewRecord('N')},
	}
}
