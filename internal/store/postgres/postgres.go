// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package postgres stores builds in PostgreSQL with the pgvector extension.
// Each build is a row in chatbot_builds plus its segments; the active flag
// flips inside the publishing transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

func init() {
	store.RegisterBackend("postgres", func(ctx context.Context, cfg store.Config) (store.IndexStore, error) {
		return New(ctx, cfg.PostgresURL, cfg.KeepBuilds)
	})
}

// insertBatch bounds rows per INSERT; six parameters per row keeps the
// statement well under the protocol's parameter limit.
const insertBatch = 1000

const schemaDDL = `
CREATE TABLE IF NOT EXISTS chatbot_builds (
	build_id   TEXT PRIMARY KEY,
	dimension  INTEGER NOT NULL,
	count      INTEGER NOT NULL,
	embedder   TEXT NOT NULL,
	corpus     TEXT NOT NULL DEFAULT '',
	skipped    BIGINT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE UNIQUE INDEX IF NOT EXISTS chatbot_builds_one_active ON chatbot_builds (active) WHERE active;
CREATE TABLE IF NOT EXISTS chatbot_segments (
	build_id   TEXT NOT NULL REFERENCES chatbot_builds(build_id) ON DELETE CASCADE,
	ordinal    INTEGER NOT NULL,
	start_time DOUBLE PRECISION NOT NULL,
	text       TEXT NOT NULL,
	video_link TEXT NOT NULL DEFAULT '',
	embedding  vector NOT NULL,
	PRIMARY KEY (build_id, ordinal)
);`

// Compile-time interface check.
var _ store.IndexStore = (*IndexStore)(nil)

// IndexStore implements store.IndexStore on PostgreSQL.
type IndexStore struct {
	pool    *pgxpool.Pool
	keep    int
	lockKey int64
}

// New connects to url, enables pgvector and creates the schema.
func New(ctx context.Context, url string, keep int) (*IndexStore, error) {
	if url == "" {
		return nil, chatboterr.New(chatboterr.CodeServerConfigInvalid, "storage postgres url is required")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, dbErr(err, "connecting to postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, dbErr(err, "pinging postgres")
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		pool.Close()
		return nil, dbErr(err, "enabling pgvector extension")
	}
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		pool.Close()
		return nil, dbErr(err, "creating schema")
	}

	return &IndexStore{pool: pool, keep: keep, lockKey: advisoryKey(pool.Config().ConnConfig.Database)}, nil
}

// advisoryKey derives a stable advisory lock key per database.
func advisoryKey(database string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("chatbot-build:" + database))
	return int64(h.Sum64())
}

func (s *IndexStore) Publish(ctx context.Context, m store.Manifest, records []store.Record) error {
	if err := store.ValidateRecords(m, records); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return dbErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	skipped := make([]int64, len(m.Skipped))
	for i, v := range m.Skipped {
		skipped[i] = int64(v)
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO chatbot_builds (build_id, dimension, count, embedder, corpus, skipped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (build_id) DO NOTHING`,
		m.BuildID, m.Dimension, m.Count, m.Embedder, m.Corpus, skipped, m.CreatedAt)
	if err != nil {
		return chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "inserting build", chatboterr.FieldBuildID(m.BuildID))
	}
	if tag.RowsAffected() == 0 {
		return chatboterr.New(chatboterr.CodeIndexBuildInvalidInput, "build id already exists",
			chatboterr.FieldBuildID(m.BuildID))
	}

	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))
		if err := insertSegments(ctx, tx, m.BuildID, records[start:end]); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE chatbot_builds SET active = FALSE WHERE active`); err != nil {
		return dbErr(err, "deactivating previous build")
	}
	if _, err := tx.Exec(ctx, `UPDATE chatbot_builds SET active = TRUE WHERE build_id = $1`, m.BuildID); err != nil {
		return chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "activating build", chatboterr.FieldBuildID(m.BuildID))
	}

	if s.keep > 0 {
		_, err := tx.Exec(ctx, `
			DELETE FROM chatbot_builds WHERE build_id IN (
				SELECT build_id FROM chatbot_builds WHERE NOT active
				ORDER BY created_at DESC, build_id DESC
				OFFSET $1
			)`, s.keep-1)
		if err != nil {
			return dbErr(err, "pruning builds")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "committing build", chatboterr.FieldBuildID(m.BuildID))
	}
	return nil
}

func insertSegments(ctx context.Context, tx pgx.Tx, buildID string, records []store.Record) error {
	var b strings.Builder
	b.WriteString("INSERT INTO chatbot_segments (build_id, ordinal, start_time, text, video_link, embedding) VALUES ")
	args := make([]any, 0, len(records)*6)
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 6
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args, buildID, r.Ordinal, r.Segment.StartTime, r.Segment.Text, r.Segment.SourceRef, pgvector.NewVector(r.Vector))
	}

	if _, err := tx.Exec(ctx, b.String(), args...); err != nil {
		return chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "inserting segments",
			chatboterr.FieldBuildID(buildID), chatboterr.FieldOrdinal(records[0].Ordinal))
	}
	return nil
}

func (s *IndexStore) Active(ctx context.Context) (store.Manifest, error) {
	var m store.Manifest
	var skipped []int64
	err := s.pool.QueryRow(ctx, `
		SELECT build_id, dimension, count, embedder, corpus, skipped, created_at
		FROM chatbot_builds WHERE active`).
		Scan(&m.BuildID, &m.Dimension, &m.Count, &m.Embedder, &m.Corpus, &skipped, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return m, chatboterr.New(chatboterr.CodeIndexLoadNotFound, "no index has been built")
	}
	if err != nil {
		return m, dbErr(err, "reading active build")
	}
	for _, v := range skipped {
		m.Skipped = append(m.Skipped, int(v))
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

// Open loads the active build's catalog and checks it against the manifest.
// Vectors stay in the database and are searched there.
func (s *IndexStore) Open(ctx context.Context) (store.Snapshot, error) {
	m, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ordinal, start_time, text, video_link
		FROM chatbot_segments WHERE build_id = $1
		ORDER BY ordinal`, m.BuildID)
	if err != nil {
		return nil, chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "reading catalog", chatboterr.FieldBuildID(m.BuildID))
	}
	defer rows.Close()

	var segments []transcript.Segment
	for rows.Next() {
		var ordinal int
		var seg transcript.Segment
		if err := rows.Scan(&ordinal, &seg.StartTime, &seg.Text, &seg.SourceRef); err != nil {
			return nil, dbErr(err, "scanning catalog row")
		}
		if ordinal != len(segments) {
			return nil, store.Mismatch(m.BuildID, m.Count, len(segments), m.Count)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err, "iterating catalog")
	}

	if err := store.CheckCounts(m.BuildID, len(segments), len(segments), m.Count); err != nil {
		return nil, err
	}
	return &snapshot{pool: s.pool, manifest: m, segments: segments}, nil
}

// Lock takes a session-level advisory lock on a dedicated connection.
func (s *IndexStore) Lock(ctx context.Context) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, dbErr(err, "acquiring connection for build lock")
	}

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, s.lockKey).Scan(&ok); err != nil {
		conn.Release()
		return nil, dbErr(err, "acquiring build lock")
	}
	if !ok {
		conn.Release()
		return nil, chatboterr.New(chatboterr.CodeIndexBuildConflict, "another build is in progress")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, s.lockKey)
			conn.Release()
		})
	}, nil
}

func (s *IndexStore) Close() error {
	s.pool.Close()
	return nil
}

func dbErr(err error, msg string) error {
	return chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, msg)
}
