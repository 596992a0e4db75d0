package coverage_test

import (
	"testing"

	"github.com/genomics-workbench/mist/contig"
	"github.com/genomics-workbench/mist/coverage"
	"github.com/genomics-workbench/mist/interval"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func newTable(t *testing.T, kv ...interface{}) *contig.Table {
	table := contig.NewTable()
	for i := 0; i < len(kv); i += 2 {
		assert.NoError(t, table.Add(kv[i].(string), interval.PosType(kv[i+1].(int))))
	}
	return table
}

type flushRecorder struct {
	arrays []*coverage.DepthArray
	// nAddedAtFlush[i] is the number of Add calls made before arrays[i] was
	// flushed.
	nAddedAtFlush []int
	nAdded        int
}

func (r *flushRecorder) flush(d *coverage.DepthArray) error {
	r.arrays = append(r.arrays, d)
	r.nAddedAtFlush = append(r.nAddedAtFlush, r.nAdded)
	return nil
}

func (r *flushRecorder) add(t *testing.T, tr *coverage.Tracker, a coverage.Alignment) {
	assert.NoError(t, tr.Add(a))
	r.nAdded++
}

func TestDepthArrayInclusiveRange(t *testing.T) {
	d := coverage.NewDepthArray("1", 10)
	expect.EQ(t, len(d.Depths), 11)
	expect.EQ(t, d.Len(), interval.PosType(10))
	expect.EQ(t, d.AddRange(interval.Interval{Start: 2, End: 4}), 0)
	expect.EQ(t, d.Depths, []uint32{0, 0, 1, 1, 1, 0, 0, 0, 0, 0, 0})
	expect.EQ(t, d.AddRange(interval.Interval{Start: 9, End: 12}), 2)
	expect.EQ(t, d.Depth(10), uint32(1))
	expect.EQ(t, d.Depth(11), uint32(0))
	expect.EQ(t, d.AddRange(interval.Interval{Start: 20, End: 22}), 3)
}

func TestTrackerRollover(t *testing.T) {
	rec := &flushRecorder{}
	tr := coverage.NewTracker(newTable(t, "1", 10, "2", 20), rec.flush)

	rec.add(t, tr, coverage.Alignment{RefName: "1", Pos: 1, ReadLen: 3})
	rec.add(t, tr, coverage.Alignment{RefName: "1", Pos: 3, ReadLen: 2})
	expect.EQ(t, len(rec.arrays), 0)
	rec.add(t, tr, coverage.Alignment{RefName: "2", Pos: 5, ReadLen: 1})
	// Chromosome 1 is flushed by the first chromosome 2 record, before that
	// record is accumulated.
	assert.EQ(t, len(rec.arrays), 1)
	expect.EQ(t, rec.nAddedAtFlush[0], 2)
	d1 := rec.arrays[0]
	expect.EQ(t, d1.RefName, "1")
	expect.EQ(t, len(d1.Depths), 10+1)
	// [1,4] and [3,5], inclusive of start+length.
	expect.EQ(t, d1.Depths, []uint32{0, 1, 1, 2, 2, 1, 0, 0, 0, 0, 0})

	assert.NoError(t, tr.Close())
	assert.EQ(t, len(rec.arrays), 2)
	d2 := rec.arrays[1]
	expect.EQ(t, d2.RefName, "2")
	expect.EQ(t, len(d2.Depths), 20+1)
	expect.EQ(t, d2.Depth(5), uint32(1))
	expect.EQ(t, d2.Depth(6), uint32(1))
	expect.EQ(t, d2.Depth(7), uint32(0))

	// Close is idempotent.
	assert.NoError(t, tr.Close())
	expect.EQ(t, len(rec.arrays), 2)
	expect.EQ(t, tr.Stats(), coverage.Stats{NRecord: 3, NChromosome: 2})
}

func TestTrackerUnmappedEndsStream(t *testing.T) {
	rec := &flushRecorder{}
	tr := coverage.NewTracker(newTable(t, "1", 10, "2", 10), rec.flush)
	rec.add(t, tr, coverage.Alignment{RefName: "1", Pos: 2, ReadLen: 1})
	rec.add(t, tr, coverage.Alignment{RefName: "*", Pos: 0, ReadLen: 5})
	assert.EQ(t, len(rec.arrays), 1)
	rec.add(t, tr, coverage.Alignment{RefName: "2", Pos: 2, ReadLen: 1})
	assert.NoError(t, tr.Close())
	expect.EQ(t, len(rec.arrays), 1)
	expect.EQ(t, tr.Stats().NRecord, 1)
}

func TestTrackerClipsOutOfBounds(t *testing.T) {
	rec := &flushRecorder{}
	tr := coverage.NewTracker(newTable(t, "1", 5), rec.flush)
	rec.add(t, tr, coverage.Alignment{RefName: "1", Pos: 4, ReadLen: 3})
	rec.add(t, tr, coverage.Alignment{RefName: "1", Pos: 0, ReadLen: 1})
	assert.NoError(t, tr.Close())
	assert.EQ(t, len(rec.arrays), 1)
	expect.EQ(t, rec.arrays[0].Depths, []uint32{0, 1, 0, 0, 1, 1})
	expect.EQ(t, tr.Stats().NClipped, 2)
}

func TestTrackerMissingContig(t *testing.T) {
	rec := &flushRecorder{}
	tr := coverage.NewTracker(newTable(t, "1", 10, "3", 10), rec.flush)
	rec.add(t, tr, coverage.Alignment{RefName: "1", Pos: 2, ReadLen: 1})
	err := tr.Add(coverage.Alignment{RefName: "2", Pos: 2, ReadLen: 1})
	_, ok := err.(*coverage.MissingContigError)
	expect.True(t, ok, "got %v", err)
	// The previous chromosome was still flushed.
	expect.EQ(t, len(rec.arrays), 1)
	// Later records on the same chromosome are skipped silently.
	rec.add(t, tr, coverage.Alignment{RefName: "2", Pos: 3, ReadLen: 1})
	rec.add(t, tr, coverage.Alignment{RefName: "3", Pos: 3, ReadLen: 1})
	assert.NoError(t, tr.Close())
	assert.EQ(t, len(rec.arrays), 2)
	expect.EQ(t, rec.arrays[1].RefName, "3")
	expect.EQ(t, tr.Stats().NSkipped, 2)
}

func TestTrackerRejectsUnsorted(t *testing.T) {
	rec := &flushRecorder{}
	tr := coverage.NewTracker(newTable(t, "1", 10, "2", 10), rec.flush)
	rec.add(t, tr, coverage.Alignment{RefName: "1", Pos: 2, ReadLen: 1})
	rec.add(t, tr, coverage.Alignment{RefName: "2", Pos: 2, ReadLen: 1})
	expect.NotNil(t, tr.Add(coverage.Alignment{RefName: "1", Pos: 5, ReadLen: 1}))
}

func TestTrackerAbortDiscardsPartial(t *testing.T) {
	rec := &flushRecorder{}
	tr := coverage.NewTracker(newTable(t, "1", 10, "2", 10), rec.flush)
	rec.add(t, tr, coverage.Alignment{RefName: "1", Pos: 2, ReadLen: 1})
	rec.add(t, tr, coverage.Alignment{RefName: "2", Pos: 2, ReadLen: 1})
	tr.Abort()
	assert.NoError(t, tr.Close())
	assert.EQ(t, len(rec.arrays), 1)
	expect.EQ(t, rec.arrays[0].RefName, "1")
}

func TestParseAlignment(t *testing.T) {
	a, err := coverage.ParseAlignment("r1\t0\tchr1\t100\t60\t4M\t*\t0\t0\tACGT\tIIII\tNM:i:0\n")
	assert.NoError(t, err)
	expect.EQ(t, a, coverage.Alignment{RefName: "chr1", Pos: 100, ReadLen: 4})

	a, err = coverage.ParseAlignment("r2\t256\tchr1\t100\t0\t4M\t*\t0\t0\t*\t*")
	assert.NoError(t, err)
	expect.EQ(t, a.ReadLen, 0)

	a, err = coverage.ParseAlignment("r3\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII")
	assert.NoError(t, err)
	expect.EQ(t, a.RefName, coverage.UnmappedRefName)

	for _, line := range []string{
		"r1\t0\tchr1\t100",
		"r1\t0\tchr1\tx\t60\t4M\t*\t0\t0\tACGT\tIIII",
		"r1\t0\t\t100\t60\t4M\t*\t0\t0\tACGT\tIIII",
	} {
		_, err := coverage.ParseAlignment(line)
		_, ok := err.(*coverage.ParseError)
		expect.True(t, ok, "line %q: got %v", line, err)
	}
}
