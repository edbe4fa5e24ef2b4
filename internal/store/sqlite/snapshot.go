// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"
	"database/sql"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

var _ store.Snapshot = (*snapshot)(nil)

type snapshot struct {
	db       *sql.DB
	manifest store.Manifest
	segments []transcript.Segment
}

func (s *snapshot) Manifest() store.Manifest { return s.manifest }

func (s *snapshot) Len() int { return len(s.segments) }

func (s *snapshot) Segment(ordinal int) (transcript.Segment, bool) {
	if ordinal < 0 || ordinal >= len(s.segments) {
		return transcript.Segment{}, false
	}
	return s.segments[ordinal], true
}

// Nearest runs a vec0 KNN query. Distance is L2.
func (s *snapshot) Nearest(ctx context.Context, query []float32, k int) ([]store.Match, error) {
	if len(query) != s.manifest.Dimension {
		return nil, chatboterr.New(chatboterr.CodeIndexSearchDimensionInvalid, "query dimension does not match index",
			chatboterr.Field("want", s.manifest.Dimension), chatboterr.Field("got", len(query)))
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, chatboterr.Wrap(err, chatboterr.CodeIndexSearchInvalidInput, "serializing query vector")
	}

	const q = `SELECT rowid, distance
FROM vectors
WHERE embedding MATCH ? AND k = ?
ORDER BY distance`

	return store.NearestWithTies(k, len(s.segments), func(limit int) ([]store.Match, error) {
		rows, err := s.db.QueryContext(ctx, q, blob, limit)
		if err != nil {
			return nil, chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "searching vectors",
				chatboterr.FieldBuildID(s.manifest.BuildID))
		}
		defer func() { _ = rows.Close() }()

		matches := make([]store.Match, 0, limit)
		for rows.Next() {
			var rowid int64
			var m store.Match
			if err := rows.Scan(&rowid, &m.Distance); err != nil {
				return nil, dbErr(err, "scanning vector result")
			}
			m.Ordinal = ordinalOf(rowid)
			matches = append(matches, m)
		}
		if err := rows.Err(); err != nil {
			return nil, dbErr(err, "iterating vector results")
		}
		return matches, nil
	})
}

func (s *snapshot) Close() error {
	return s.db.Close()
}
