package mpileup

import (
	"bufio"
	"io"

	"github.com/genomics-workbench/mist/pileup"
	"github.com/grailbio/base/log"
)

// maxLineLen bounds a single mpileup line.  Deep targeted sequencing can
// produce read-base columns of several megabytes.
const maxLineLen = 256 << 20

// Scanner reads mpileup text one column at a time.  Malformed lines are
// logged and skipped; only I/O errors stop the scan.
//
// Usage:
//   s := mpileup.NewScanner(r)
//   for s.Scan() {
//     col := s.Column()
//     ...
//   }
//   if err := s.Err(); err != nil { ... }
type Scanner struct {
	sc       *bufio.Scanner
	col      pileup.Column
	lineNum  int
	nSkipped int
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineLen)
	return &Scanner{sc: sc}
}

// Scan advances to the next well-formed column.
func (s *Scanner) Scan() bool {
	for s.sc.Scan() {
		s.lineNum++
		line := s.sc.Text()
		if len(line) == 0 {
			continue
		}
		if err := DecodeInto(&s.col, line); err != nil {
			if de, ok := err.(*DecodeError); ok {
				de.LineNum = s.lineNum
			}
			log.Error.Printf("skipping pileup line: %v", err)
			s.nSkipped++
			continue
		}
		return true
	}
	return false
}

// Column returns the most recently scanned column.  Its Records slice is
// reused by the next call to Scan; copy it to retain it.
func (s *Scanner) Column() pileup.Column {
	return s.col
}

// Err returns the first I/O error encountered.
func (s *Scanner) Err() error {
	return s.sc.Err()
}

// Skipped returns the number of malformed lines skipped so far.
func (s *Scanner) Skipped() int {
	return s.nSkipped
}

// CopyColumn returns a deep copy of col.
func CopyColumn(col pileup.Column) pileup.Column {
	col.Records = append([]pileup.Record(nil), col.Records...)
	return col
}
