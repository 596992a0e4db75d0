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
	"github.com/genomics-workbench/mist/interval"
)

// Common pileup components.

// PosType is the integer type used to represent genomic positions.  Unlike
// the binary formats, every position in this package is 1-based, since the
// pileup text it is decoded from is 1-based.
type PosType = interval.PosType

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = interval.PosTypeMax

const (
	// BaseA represents an A base.
	BaseA byte = iota
	// BaseC represents an C base.
	BaseC
	// BaseG represents an G base.
	BaseG
	// BaseT represents an T base.
	BaseT
	// BaseX is a catch-all, rendered as 'N'.
	BaseX
)

const (
	// NBase is the number of regular base types.
	NBase = 4
	// NBaseEnum counts BaseX as well as the regular base types.
	NBaseEnum = 5
)

// RefInsertion is the reference "base" of a record describing an inserted
// position, which has no reference base of its own.
const RefInsertion = '*'

// EnumToASCIITable is the A/C/G/T/X -> ASCII mapping, with X rendered as 'N'.
var EnumToASCIITable = [...]byte{'A', 'C', 'G', 'T', 'N'}

// ASCIIToEnumTable maps both cases of A/C/G/T/N to their enum value; every
// other byte maps to BaseX.
var ASCIIToEnumTable = func() (t [256]byte) {
	for i := range t {
		t[i] = BaseX
	}
	for e, c := range EnumToASCIITable {
		t[c] = byte(e)
		t[c|0x20] = byte(e)
	}
	return
}()

// StrandType describes which strand a base was read from.
type StrandType int

const (
	// StrandFwd is the forward strand; pileup text renders it in uppercase
	// (or '.').
	StrandFwd StrandType = iota
	// StrandRev is the reverse strand; pileup text renders it in lowercase
	// (or ',').
	StrandRev
)

// StrandTypeToASCIITable is the StrandType -> ASCII mapping.
var StrandTypeToASCIITable = [...]byte{'+', '-'}

// IsBase returns whether c is one of ACGTNacgtn.
func IsBase(c byte) bool {
	switch c | 0x20 {
	case 'a', 'c', 'g', 't', 'n':
		return true
	}
	return false
}

// SymbolStrand returns the strand encoded by the case of a base symbol.
func SymbolStrand(c byte) StrandType {
	if c >= 'a' && c <= 'z' {
		return StrandRev
	}
	return StrandFwd
}
