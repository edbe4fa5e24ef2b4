// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package resolver picks the playback timestamp an answer should link to.
package resolver

import (
	"cmp"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/retrieval"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/textutil"
)

// DefaultTolerance is the distance difference below which two candidates
// count as tied.
const DefaultTolerance = 1e-6

// MaxStartSeconds is the largest start time a candidate may carry. Later
// starts cannot be represented as a playback offset and are skipped.
const MaxStartSeconds = math.MaxInt32

// Options tune Resolve.
type Options struct {
	// LeadIn is subtracted from the chosen start time, floored at zero.
	LeadIn int
	// Duration bounds usable start times to [0, Duration). Zero means
	// unbounded.
	Duration int
	// Tolerance is the tie window on distance. Zero uses DefaultTolerance;
	// negative means exact ties only.
	Tolerance float64
}

// Timestamp is a resolved playback position.
type Timestamp struct {
	Seconds int `json:"seconds"`
}

// Resolve chooses one candidate to anchor playback on. Candidates are ranked
// by distance; candidates whose distances fall within the tolerance of the
// best in their group are ordered by longest text, then by how many answer
// tokens they share, then by query tokens, then by transcript position. The
// first ranked candidate inside the duration bound wins. ok is false when no
// candidate qualifies.
func Resolve(query, answer string, candidates []retrieval.Candidate, opts Options) (ts Timestamp, ok bool) {
	_, ts, ok = Choose(query, answer, candidates, opts)
	return ts, ok
}

// Choose is Resolve that also returns the winning candidate.
func Choose(query, answer string, candidates []retrieval.Candidate, opts Options) (retrieval.Candidate, Timestamp, bool) {
	for _, c := range Rank(query, answer, candidates, opts.Tolerance) {
		st := c.Segment.StartTime
		if math.IsNaN(st) || st > MaxStartSeconds {
			continue
		}
		if opts.Duration > 0 && st >= float64(opts.Duration) {
			continue
		}
		start := max(int(math.Floor(st)), 0)
		return c, Timestamp{Seconds: max(0, start-max(opts.LeadIn, 0))}, true
	}
	return retrieval.Candidate{}, Timestamp{}, false
}

type scored struct {
	c             retrieval.Candidate
	length        int
	answerOverlap int
	queryOverlap  int
}

// Rank orders candidates by the policy Resolve applies. The input slice is
// not modified.
func Rank(query, answer string, candidates []retrieval.Candidate, tolerance float64) []retrieval.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	tolerance = max(tolerance, 0)

	answerTokens := textutil.TokenSet(answer)
	queryTokens := textutil.TokenSet(query)

	items := make([]scored, len(candidates))
	for i, c := range candidates {
		items[i] = scored{
			c:             c,
			length:        utf8.RuneCountInString(c.Segment.Text),
			answerOverlap: textutil.Overlap(answerTokens, c.Segment.Text),
			queryOverlap:  textutil.Overlap(queryTokens, c.Segment.Text),
		}
	}
	slices.SortStableFunc(items, func(a, b scored) int {
		if c := cmp.Compare(a.c.Distance, b.c.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.c.Ordinal, b.c.Ordinal)
	})

	out := make([]retrieval.Candidate, 0, len(items))
	for start := 0; start < len(items); {
		end := start + 1
		for end < len(items) && items[end].c.Distance-items[start].c.Distance <= tolerance {
			end++
		}
		group := items[start:end]
		slices.SortStableFunc(group, compareTied)
		for _, it := range group {
			out = append(out, it.c)
		}
		start = end
	}
	return out
}

func compareTied(a, b scored) int {
	if c := cmp.Compare(b.length, a.length); c != 0 {
		return c
	}
	if c := cmp.Compare(b.answerOverlap, a.answerOverlap); c != 0 {
		return c
	}
	if c := cmp.Compare(b.queryOverlap, a.queryOverlap); c != 0 {
		return c
	}
	return cmp.Compare(a.c.Ordinal, b.c.Ordinal)
}
