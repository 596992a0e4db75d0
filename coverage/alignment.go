package coverage

import (
	"fmt"
	"strconv"
	"strings"
)

// UnmappedRefName is the SAM RNAME of unmapped reads.  In a sorted stream
// they come last, so it marks the end of useful data.
const UnmappedRefName = "*"

// SAM text columns used here.
const (
	samColRName = 2
	samColPos   = 3
	samColSeq   = 9
	samNCol     = 11
)

// Alignment is the part of a SAM record the depth tracker needs.
type Alignment struct {
	RefName string
	// Pos is the 1-based leftmost mapping position.
	Pos PosType
	// ReadLen is the length of SEQ; 0 when SEQ is "*".
	ReadLen int
}

// ParseError reports a malformed SAM record.  Callers skip the record.
type ParseError struct {
	Line string
	Msg  string
}

func (e *ParseError) Error() string {
	line := e.Line
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	return fmt.Sprintf("coverage: malformed SAM record: %s: %q", e.Msg, line)
}

// ParseAlignment extracts RNAME, POS and the SEQ length from a SAM text
// record.
func ParseAlignment(line string) (Alignment, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.SplitN(line, "\t", samNCol+1)
	if len(fields) < samNCol {
		return Alignment{}, &ParseError{Line: line, Msg: fmt.Sprintf("expected %d tab-separated fields, found %d", samNCol, len(fields))}
	}
	a := Alignment{RefName: fields[samColRName]}
	if a.RefName == "" {
		return Alignment{}, &ParseError{Line: line, Msg: "empty RNAME"}
	}
	pos, err := strconv.ParseInt(fields[samColPos], 10, 32)
	if err != nil || pos < 0 {
		return Alignment{}, &ParseError{Line: line, Msg: fmt.Sprintf("invalid POS %q", fields[samColPos])}
	}
	a.Pos = PosType(pos)
	if seq := fields[samColSeq]; seq != "*" {
		a.ReadLen = len(seq)
	}
	return a, nil
}
