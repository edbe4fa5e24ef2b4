// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"cmp"
	"slices"
)

// SortMatches orders matches by distance, then ordinal.
func SortMatches(matches []Match) {
	slices.SortStableFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})
}

// NearestWithTies asks fetch for one match more than k and widens the request
// while the last fetched match ties with the k-th one, so that the final
// ordinal tie-break sees every tied candidate. n is the index size.
func NearestWithTies(k, n int, fetch func(limit int) ([]Match, error)) ([]Match, error) {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	limit := min(k+1, n)
	for {
		matches, err := fetch(limit)
		if err != nil {
			return nil, err
		}
		SortMatches(matches)

		done := len(matches) <= k || limit >= n ||
			matches[len(matches)-1].Distance > matches[k-1].Distance
		if done {
			if len(matches) > k {
				matches = matches[:k]
			}
			return matches, nil
		}
		limit = min(limit*2, n)
	}
}
