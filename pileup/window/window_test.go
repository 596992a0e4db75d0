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
package window_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/genomics-workbench/mist/contig"
	"github.com/genomics-workbench/mist/exttool"
	"github.com/genomics-workbench/mist/interval"
	"github.com/genomics-workbench/mist/pileup"
	"github.com/genomics-workbench/mist/pileup/window"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// fakeSource reports coverage at every even position, with depth equal to
// the position.
type fakeSource struct {
	fetched []interval.Interval
	err     error
}

func (s *fakeSource) Fetch(ctx context.Context, refName string, iv interval.Interval) ([]pileup.Column, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.fetched = append(s.fetched, iv)
	var cols []pileup.Column
	for pos := iv.Start; pos <= iv.End; pos++ {
		if pos%2 == 0 {
			cols = append(cols, pileup.Column{RefName: refName, Pos: pos, Depth: uint32(pos), Records: []pileup.Record{pileup.NewRecord('A')}})
		}
	}
	return cols, nil
}

func checkColumns(t *testing.T, cols []pileup.Column, refName string, start, end interval.PosType) {
	assert.EQ(t, len(cols), int(end-start+1))
	for i, col := range cols {
		pos := start + interval.PosType(i)
		expect.EQ(t, col.RefName, refName)
		expect.EQ(t, col.Pos, pos)
		if pos%2 == 0 {
			expect.EQ(t, col.Depth, uint32(pos))
			expect.EQ(t, col.Primary().Ref, byte('A'))
		} else {
			expect.EQ(t, col.Depth, uint32(0))
			expect.EQ(t, col.Primary().Ref, byte('N'))
		}
	}
}

func TestBufferHitAndMiss(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	b := window.NewBuffer(src, window.Opts{Margin: 10})
	_, _, ok := b.Bounds()
	expect.False(t, ok)

	cols, err := b.Range(ctx, "chr1", 60, 140)
	assert.NoError(t, err)
	checkColumns(t, cols, "chr1", 60, 140)
	ref, win, ok := b.Bounds()
	assert.True(t, ok)
	expect.EQ(t, ref, "chr1")
	expect.EQ(t, win, interval.Interval{Start: 50, End: 150})
	expect.EQ(t, b.Fetches(), 1)

	// Inside [50,150]: served from the cache.
	cols, err = b.Range(ctx, "chr1", 100, 120)
	assert.NoError(t, err)
	checkColumns(t, cols, "chr1", 100, 120)
	cols, err = b.Range(ctx, "chr1", 50, 150)
	assert.NoError(t, err)
	checkColumns(t, cols, "chr1", 50, 150)
	expect.EQ(t, b.Fetches(), 1)

	// Outside: exactly one fetch covering the range plus margin.
	cols, err = b.Range(ctx, "chr1", 200, 220)
	assert.NoError(t, err)
	checkColumns(t, cols, "chr1", 200, 220)
	expect.EQ(t, b.Fetches(), 2)
	expect.EQ(t, src.fetched[1], interval.Interval{Start: 190, End: 230})

	// Same range on another contig misses.
	_, err = b.Range(ctx, "chr2", 200, 220)
	assert.NoError(t, err)
	expect.EQ(t, b.Fetches(), 3)

	b.Invalidate()
	_, err = b.Range(ctx, "chr2", 200, 220)
	assert.NoError(t, err)
	expect.EQ(t, b.Fetches(), 4)
}

func TestBufferClipsWindow(t *testing.T) {
	ctx := context.Background()
	lengths := contig.NewTable()
	assert.NoError(t, lengths.Add("chr1", 100))
	src := &fakeSource{}
	b := window.NewBuffer(src, window.Opts{Margin: 50, Lengths: lengths})

	cols, err := b.Range(ctx, "chr1", 5, 60)
	assert.NoError(t, err)
	checkColumns(t, cols, "chr1", 5, 60)
	expect.EQ(t, src.fetched, []interval.Interval{{Start: 1, End: 100}})

	_, err = b.Range(ctx, "chr1", 90, 101)
	expect.NotNil(t, err)
	_, err = b.Range(ctx, "chrUn", 1, 10)
	expect.NotNil(t, err)
	_, err = b.Range(ctx, "chr1", 0, 10)
	expect.NotNil(t, err)
	_, err = b.Range(ctx, "chr1", 20, 10)
	expect.NotNil(t, err)
	expect.EQ(t, b.Fetches(), 1)
}

func TestBufferKeepsWindowOnError(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	b := window.NewBuffer(src, window.Opts{Margin: 0})
	_, err := b.Range(ctx, "chr1", 10, 20)
	assert.NoError(t, err)

	src.err = fmt.Errorf("samtools died")
	_, err = b.Range(ctx, "chr1", 30, 40)
	expect.EQ(t, err, src.err)
	ref, win, ok := b.Bounds()
	assert.True(t, ok)
	expect.EQ(t, ref, "chr1")
	expect.EQ(t, win, interval.Interval{Start: 10, End: 20})
	cols, err := b.Range(ctx, "chr1", 12, 14)
	assert.NoError(t, err)
	checkColumns(t, cols, "chr1", 12, 14)
}

func TestBufferRejectsNegativeMargin(t *testing.T) {
	src := &fakeSource{}
	b := window.NewBuffer(src, window.Opts{Margin: -5})
	_, err := b.Range(context.Background(), "chr1", 10, 20)
	expect.NotNil(t, err)
	expect.EQ(t, len(src.fetched), 0)
	_, _, ok := b.Bounds()
	expect.False(t, ok)
}

func TestToolSource(t *testing.T) {
	fake := &exttool.Fake{Handler: func(name string, args []string) exttool.FakeResult {
		return exttool.FakeResult{Stdout: []string{
			"chr1\t11\tA\t3\t.,T\tIII",
			"chr1\t12\tC\tbad\t..\tII",
			"chr1\t13\tG\t2\t.+1Ac\tII",
		}}
	}}
	src := &window.ToolSource{Runner: fake, Samtools: "samtools", BAMPath: "in.bam", FastaPath: "ref.fa"}
	b := window.NewBuffer(src, window.Opts{Margin: 1})
	cols, err := b.Range(context.Background(), "chr1", 11, 13)
	assert.NoError(t, err)
	expect.EQ(t, fake.Calls(), []exttool.Call{{
		Name: "samtools",
		Args: []string{"mpileup", "-r", "chr1:10-14", "-f", "ref.fa", "in.bam"},
	}})
	assert.EQ(t, len(cols), 3)

	p := cols[0].Primary()
	expect.EQ(t, p.Ref, byte('A'))
	expect.EQ(t, p.Depth('A'), uint32(1))
	expect.EQ(t, p.Depth('a'), uint32(1))
	expect.EQ(t, p.Depth('T'), uint32(1))

	// The malformed line is skipped and shows up as an empty column.
	expect.EQ(t, cols[1].Primary().Ref, byte('N'))
	expect.EQ(t, cols[1].Primary().Total(), uint32(0))

	assert.EQ(t, len(cols[2].Records), 2)
	expect.EQ(t, cols[2].Primary().Depth('G'), uint32(1))
	expect.EQ(t, cols[2].Primary().Depth('c'), uint32(1))
	expect.EQ(t, cols[2].Insertions()[0].Depth('A'), uint32(1))
}

func TestToolSourceFailure(t *testing.T) {
	fake := &exttool.Fake{Handler: func(name string, args []string) exttool.FakeResult {
		return exttool.FakeResult{Stderr: []string{"[mpileup] fail to read the header"}, ExitCode: 1}
	}}
	src := &window.ToolSource{Runner: fake, Samtools: "samtools", BAMPath: "in.bam"}
	b := window.NewBuffer(src, window.DefaultOpts)
	_, err := b.Range(context.Background(), "chr1", 1, 10)
	_, ok := err.(*exttool.ToolError)
	expect.True(t, ok, "got %v", err)
	expect.EQ(t, b.Fetches(), 0)
}
