package interval_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/genomics-workbench/mist/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestExpandClip(t *testing.T) {
	iv := interval.Interval{Start: 10, End: 20}
	w := iv.Expand(5)
	expect.EQ(t, w, interval.Interval{Start: 5, End: 25})
	expect.EQ(t, w.Len(), 21)

	c, ok := interval.Interval{Start: 3, End: 10}.Expand(5).Clip(1, 12)
	expect.True(t, ok)
	expect.EQ(t, c, interval.Interval{Start: 1, End: 12})

	_, ok = interval.Interval{Start: 100, End: 120}.Clip(1, 50)
	expect.False(t, ok)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b interval.Interval
		want bool
	}{
		{interval.Interval{Start: 1, End: 5}, interval.Interval{Start: 5, End: 9}, true},
		{interval.Interval{Start: 1, End: 5}, interval.Interval{Start: 6, End: 9}, false},
		{interval.Interval{Start: 3, End: 4}, interval.Interval{Start: 1, End: 9}, true},
		{interval.Interval{Start: 3, End: 2}, interval.Interval{Start: 1, End: 9}, false},
	}
	for _, tt := range tests {
		expect.EQ(t, tt.a.Overlaps(tt.b), tt.want, "%v %v", tt.a, tt.b)
		expect.EQ(t, tt.b.Overlaps(tt.a), tt.want, "%v %v", tt.b, tt.a)
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    interval.Region
		wantErr bool
	}{
		{"chr1:100-200", interval.Region{RefName: "chr1", Interval: interval.Interval{Start: 100, End: 200}}, false},
		{"chr1:1,000-2,000", interval.Region{RefName: "chr1", Interval: interval.Interval{Start: 1000, End: 2000}}, false},
		{"chr2:7", interval.Region{RefName: "chr2", Interval: interval.Interval{Start: 7, End: 7}}, false},
		{"chrM", interval.Region{RefName: "chrM", Interval: interval.Interval{Start: 1, End: interval.PosTypeMax - 1}}, false},
		{"", interval.Region{}, true},
		{":5-6", interval.Region{}, true},
		{"chr1:0-5", interval.Region{}, true},
		{"chr1:9-5", interval.Region{}, true},
		{"chr1:a-5", interval.Region{}, true},
	}
	for _, tt := range tests {
		got, err := interval.ParseRegion(tt.in)
		if tt.wantErr {
			expect.NotNil(t, err, tt.in)
			continue
		}
		assert.NoError(t, err)
		expect.EQ(t, got, tt.want)
	}
}

func TestTargets(t *testing.T) {
	targets := interval.NewTargets([]interval.Region{
		{RefName: "chr1", Interval: interval.Interval{Start: 50, End: 60}},
		{RefName: "chr1", Interval: interval.Interval{Start: 10, End: 20}},
		{RefName: "chr1", Interval: interval.Interval{Start: 21, End: 30}},
		{RefName: "chr1", Interval: interval.Interval{Start: 25, End: 28}},
		{RefName: "chr2", Interval: interval.Interval{Start: 5, End: 5}},
	})
	// [10,20] and [21,30] touch and are merged; [25,28] lies inside them.
	expect.EQ(t, targets.NBases(), 21+11+1)

	tests := []struct {
		chr  string
		iv   interval.Interval
		want bool
	}{
		{"chr1", interval.Interval{Start: 1, End: 9}, false},
		{"chr1", interval.Interval{Start: 1, End: 10}, true},
		{"chr1", interval.Interval{Start: 31, End: 49}, false},
		{"chr1", interval.Interval{Start: 31, End: 50}, true},
		{"chr1", interval.Interval{Start: 60, End: 100}, true},
		{"chr1", interval.Interval{Start: 61, End: 100}, false},
		{"chr2", interval.Interval{Start: 5, End: 5}, true},
		{"chr3", interval.Interval{Start: 1, End: 100}, false},
	}
	for _, tt := range tests {
		expect.EQ(t, targets.Overlaps(tt.chr, tt.iv), tt.want, "%s %v", tt.chr, tt.iv)
	}
}

func TestReadBEDPath(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	ctx := vcontext.Background()
	bedpath := filepath.Join(tmpdir, "targets.bed")
	out, err := file.Create(ctx, bedpath)
	assert.NoError(t, err)
	_, err = out.Writer(ctx).Write([]byte("track name=x\nchr1\t9\t20\nchr1\t100\t105\textra\n\n"))
	assert.NoError(t, err)
	assert.NoError(t, out.Close(ctx))

	targets, err := interval.ReadBEDPath(bedpath)
	assert.NoError(t, err)
	expect.EQ(t, targets.NBases(), 11+5)
	for _, tt := range []struct {
		pos  interval.PosType
		want bool
	}{{9, false}, {10, true}, {20, true}, {21, false}, {100, false}, {101, true}, {105, true}, {106, false}} {
		expect.EQ(t, targets.Overlaps("chr1", interval.Interval{Start: tt.pos, End: tt.pos}), tt.want, "pos %d", tt.pos)
	}
}

func TestReadBEDMalformed(t *testing.T) {
	_, err := interval.ReadBED(strings.NewReader("chr1\t5\n"))
	expect.NotNil(t, err)
	_, err = interval.ReadBED(strings.NewReader("chr1\t5\t3\n"))
	expect.NotNil(t, err)
}
