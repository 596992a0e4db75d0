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

// Package window caches a contiguous stretch of pileup columns around the
// most recently requested range, so that scrolling through a region does
// not re-run the pileup source on every step.
package window

import (
	"context"
	"fmt"

	"github.com/genomics-workbench/mist/contig"
	"github.com/genomics-workbench/mist/interval"
	"github.com/genomics-workbench/mist/pileup"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Source produces pileup columns for a region.  Columns must be in ascending
// position order; positions with no coverage may be omitted.
type Source interface {
	Fetch(ctx context.Context, refName string, iv interval.Interval) ([]pileup.Column, error)
}

// Opts configures a Buffer.
type Opts struct {
	// Margin is added on both sides of a missed range before fetching.  It
	// must not be negative.
	Margin int
	// Lengths, if set, clips fetches to the contig length and rejects
	// unknown contigs.
	Lengths contig.Lengths
}

// DefaultOpts is the default Buffer configuration.
var DefaultOpts = Opts{
	Margin: 500,
}

// Buffer is a single-window pileup cache.  It is either empty, or holds one
// column per position of [Bounds().Start, Bounds().End] on one contig.  A
// request inside the cached window is served without touching the Source;
// any other request replaces the window wholesale.
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	src  Source
	opts Opts

	refName string
	bounds  interval.Interval
	cols    []pileup.Column
	nFetch  int
}

// NewBuffer returns an empty Buffer reading from src.
func NewBuffer(src Source, opts Opts) *Buffer {
	return &Buffer{src: src, opts: opts}
}

// Range returns the columns of [start, end] on refName, one per position.
// The result aliases the cache: callers must not modify it, and it is only
// valid until the next call that misses.
//
// If the fetch fails, the previous window is kept.
func (b *Buffer) Range(ctx context.Context, refName string, start, end interval.PosType) ([]pileup.Column, error) {
	if b.opts.Margin < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("window: negative margin %d", b.opts.Margin))
	}
	req := interval.Interval{Start: start, End: end}
	if start < 1 || req.Empty() {
		return nil, errors.E(errors.Invalid, "window: invalid range", refName, req.String())
	}
	limit := interval.PosType(interval.PosTypeMax - 1)
	if b.opts.Lengths != nil {
		length, ok := b.opts.Lengths.Len(refName)
		if !ok {
			return nil, errors.E(errors.NotExist, "window: unknown contig", refName)
		}
		if end > length {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("window: range %s exceeds length %d of %s", req, length, refName))
		}
		limit = length
	}
	if b.cols != nil && refName == b.refName && b.bounds.ContainsInterval(req) {
		return b.slice(req), nil
	}

	win, _ := req.Expand(interval.PosType(b.opts.Margin)).Clip(1, limit)
	fetched, err := b.src.Fetch(ctx, refName, win)
	if err != nil {
		return nil, err
	}
	b.nFetch++
	b.fill(refName, win, fetched)
	log.Debug.Printf("window: fetched %s:%d-%d (%d columns with coverage)", refName, win.Start, win.End, len(fetched))
	return b.slice(req), nil
}

// fill replaces the window with win, placing fetched columns at their
// positions and empty columns everywhere else.
func (b *Buffer) fill(refName string, win interval.Interval, fetched []pileup.Column) {
	cols := make([]pileup.Column, win.Len())
	have := make([]bool, len(cols))
	nIgnored := 0
	for _, col := range fetched {
		if col.RefName != refName || !win.Contains(col.Pos) {
			nIgnored++
			continue
		}
		i := col.Pos - win.Start
		if have[i] {
			nIgnored++
			continue
		}
		cols[i] = col
		have[i] = true
	}
	for i := range cols {
		if !have[i] {
			cols[i] = pileup.EmptyColumn(refName, win.Start+interval.PosType(i))
		}
	}
	if nIgnored > 0 {
		log.Error.Printf("window: ignored %d columns outside %s:%d-%d or duplicated", nIgnored, refName, win.Start, win.End)
	}
	b.refName = refName
	b.bounds = win
	b.cols = cols
}

func (b *Buffer) slice(req interval.Interval) []pileup.Column {
	lo := req.Start - b.bounds.Start
	return b.cols[lo : lo+interval.PosType(req.Len())]
}

// Bounds returns the cached contig and window.  ok is false when the buffer
// is empty.
func (b *Buffer) Bounds() (refName string, win interval.Interval, ok bool) {
	if b.cols == nil {
		return "", interval.Interval{}, false
	}
	return b.refName, b.bounds, true
}

// Fetches returns the number of Source fetches made so far.
func (b *Buffer) Fetches() int {
	return b.nFetch
}

// Invalidate empties the buffer, so the next request fetches.
func (b *Buffer) Invalidate() {
	b.refName = ""
	b.bounds = interval.Interval{}
	b.cols = nil
}
