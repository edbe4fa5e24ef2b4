// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package store persists a vector index and its embedding catalog as one
// artifact pair and serves nearest-neighbor queries over it.
package store

import (
	"context"
	"time"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
)

// Record is one indexed segment. Ordinal is its position in the vector index
// and the join key into the catalog.
type Record struct {
	Ordinal int
	Vector  []float32
	Segment transcript.Segment
}

// Manifest describes a published build.
type Manifest struct {
	BuildID   string    `json:"build_id"`
	Dimension int       `json:"dimension"`
	Count     int       `json:"count"`
	Embedder  string    `json:"embedder"`
	Corpus    string    `json:"corpus,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Skipped holds the source positions of segments whose embedding failed.
	Skipped []int `json:"skipped,omitempty"`
}

// Match is a raw nearest-neighbor hit.
type Match struct {
	Ordinal  int
	Distance float64
}

// IndexStore publishes and opens artifact pairs. Publish makes the new pair
// visible only once both halves are durable; a failed Publish leaves the
// previously active pair in place.
type IndexStore interface {
	Publish(ctx context.Context, m Manifest, records []Record) error

	// Open returns the active pair. It fails with CodeIndexLoadNotFound when
	// nothing was ever published and CodeIndexCorpusMismatch when the index
	// and catalog disagree.
	Open(ctx context.Context) (Snapshot, error)

	// Active returns the manifest of the active pair without loading it.
	Active(ctx context.Context) (Manifest, error)

	// Lock takes the exclusive build lock, failing fast with
	// CodeIndexBuildConflict when another builder holds it.
	Lock(ctx context.Context) (release func(), err error)

	Close() error
}

// Snapshot is a read-only view of one published pair. It is safe for
// concurrent use.
type Snapshot interface {
	Manifest() Manifest
	Len() int
	Segment(ordinal int) (transcript.Segment, bool)

	// Nearest returns up to k matches ordered by ascending L2 distance, ties
	// broken by ordinal.
	Nearest(ctx context.Context, query []float32, k int) ([]Match, error)

	Close() error
}
