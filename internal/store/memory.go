// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

func init() {
	RegisterBackend("memory", func(_ context.Context, cfg Config) (IndexStore, error) {
		return NewMemoryStore(cfg.KeepBuilds), nil
	})
}

// MemoryStore keeps published builds in process memory and searches them by
// brute force. It is used for tests and throwaway serving.
type MemoryStore struct {
	mu     sync.RWMutex
	builds []*memorySnapshot
	active *memorySnapshot
	keep   int

	lockMu sync.Mutex
	locked bool
}

var _ IndexStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store retaining at most keep builds (0
// keeps all).
func NewMemoryStore(keep int) *MemoryStore {
	return &MemoryStore{keep: keep}
}

func (s *MemoryStore) Publish(ctx context.Context, m Manifest, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateRecords(m, records); err != nil {
		return err
	}

	snap := &memorySnapshot{
		manifest: cloneManifest(m),
		vectors:  make([][]float32, len(records)),
		segments: make([]transcript.Segment, len(records)),
	}
	for i, r := range records {
		snap.vectors[i] = slices.Clone(r.Vector)
		snap.segments[i] = r.Segment
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds = append(s.builds, snap)
	s.active = snap
	if s.keep > 0 && len(s.builds) > s.keep {
		s.builds = slices.Clone(s.builds[len(s.builds)-s.keep:])
	}
	return nil
}

func (s *MemoryStore) Open(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil, chatboterr.New(chatboterr.CodeIndexLoadNotFound, "no index has been built")
	}
	return s.active, nil
}

func (s *MemoryStore) Active(ctx context.Context) (Manifest, error) {
	snap, err := s.Open(ctx)
	if err != nil {
		return Manifest{}, err
	}
	return snap.Manifest(), nil
}

func (s *MemoryStore) Lock(_ context.Context) (func(), error) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.locked {
		return nil, chatboterr.New(chatboterr.CodeIndexBuildConflict, "another build is in progress")
	}
	s.locked = true

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lockMu.Lock()
			s.locked = false
			s.lockMu.Unlock()
		})
	}, nil
}

// Builds returns the build IDs currently retained, oldest first.
func (s *MemoryStore) Builds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.builds))
	for i, b := range s.builds {
		ids[i] = b.manifest.BuildID
	}
	return ids
}

func (s *MemoryStore) Close() error { return nil }

type memorySnapshot struct {
	manifest Manifest
	vectors  [][]float32
	segments []transcript.Segment
}

func (m *memorySnapshot) Manifest() Manifest { return cloneManifest(m.manifest) }

func (m *memorySnapshot) Len() int { return len(m.vectors) }

func (m *memorySnapshot) Segment(ordinal int) (transcript.Segment, bool) {
	if ordinal < 0 || ordinal >= len(m.segments) {
		return transcript.Segment{}, false
	}
	return m.segments[ordinal], true
}

func (m *memorySnapshot) Nearest(ctx context.Context, query []float32, k int) ([]Match, error) {
	if len(query) != m.manifest.Dimension {
		return nil, chatboterr.New(chatboterr.CodeIndexSearchDimensionInvalid, "query dimension does not match index",
			chatboterr.Field("want", m.manifest.Dimension), chatboterr.Field("got", len(query)))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := make([]Match, len(m.vectors))
	for i, v := range m.vectors {
		all[i] = Match{Ordinal: i, Distance: L2(query, v)}
	}
	SortMatches(all)
	if k < len(all) {
		all = all[:max(k, 0)]
	}
	return all, nil
}

func (m *memorySnapshot) Close() error { return nil }

// L2 is the Euclidean distance between equal-length vectors.
func L2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func cloneManifest(m Manifest) Manifest {
	m.Skipped = slices.Clone(m.Skipped)
	return m
}
