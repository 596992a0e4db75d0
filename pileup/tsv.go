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
	"io"

	"github.com/grailbio/base/tsv"
)

// ColumnTSVHeader is the header row written by ColumnWriter.  INS is 0 for
// the position itself and k for the k-th inserted sub-position after it.
var ColumnTSVHeader = func() string {
	h := "#CHROM\tPOS\tINS\tREF\tDEPTH"
	for _, b := range EnumToASCIITable {
		for _, s := range StrandTypeToASCIITable {
			h += "\t" + string([]byte{b, s})
		}
	}
	return h
}()

// ColumnWriter writes columns as basestrand-style TSV, one row per record.
type ColumnWriter struct {
	w *tsv.Writer
}

// NewColumnWriter writes the header row and returns a writer.
func NewColumnWriter(w io.Writer) (*ColumnWriter, error) {
	cw := &ColumnWriter{w: tsv.NewWriter(w)}
	cw.w.WriteString(ColumnTSVHeader)
	if err := cw.w.EndLine(); err != nil {
		return nil, err
	}
	return cw, nil
}

// Write appends the rows of each column.
func (cw *ColumnWriter) Write(cols ...Column) error {
	for i := range cols {
		col := &cols[i]
		for k := range col.Records {
			r := &col.Records[k]
			cw.w.WriteString(col.RefName)
			cw.w.WriteUint32(uint32(col.Pos))
			cw.w.WriteUint32(uint32(k))
			cw.w.WriteByte(r.Ref)
			if k == 0 {
				cw.w.WriteUint32(col.Depth)
			} else {
				cw.w.WriteUint32(r.Total())
			}
			for e := 0; e < NBaseEnum; e++ {
				cw.w.WriteUint32(r.Counts[e][StrandFwd])
				cw.w.WriteUint32(r.Counts[e][StrandRev])
			}
			if err := cw.w.EndLine(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush writes out buffered rows.
func (cw *ColumnWriter) Flush() error {
	return cw.w.Flush()
}
