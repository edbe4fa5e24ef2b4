// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

var _ store.Snapshot = (*snapshot)(nil)

type snapshot struct {
	pool     *pgxpool.Pool
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

// Nearest orders by the pgvector L2 operator. The ordinal secondary sort
// makes ties deterministic without widening.
func (s *snapshot) Nearest(ctx context.Context, query []float32, k int) ([]store.Match, error) {
	if len(query) != s.manifest.Dimension {
		return nil, chatboterr.New(chatboterr.CodeIndexSearchDimensionInvalid, "query dimension does not match index",
			chatboterr.Field("want", s.manifest.Dimension), chatboterr.Field("got", len(query)))
	}
	k = min(k, len(s.segments))
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ordinal, embedding <-> $2 AS distance
		FROM chatbot_segments
		WHERE build_id = $1
		ORDER BY distance, ordinal
		LIMIT $3`, s.manifest.BuildID, pgvector.NewVector(query), k)
	if err != nil {
		return nil, chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "searching vectors",
			chatboterr.FieldBuildID(s.manifest.BuildID))
	}
	defer rows.Close()

	matches := make([]store.Match, 0, k)
	for rows.Next() {
		var m store.Match
		if err := rows.Scan(&m.Ordinal, &m.Distance); err != nil {
			return nil, dbErr(err, "scanning vector result")
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err, "iterating vector results")
	}
	return matches, nil
}

func (s *snapshot) Close() error { return nil }
