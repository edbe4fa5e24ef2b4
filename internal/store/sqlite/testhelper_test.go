// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test and returns cleanup func.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "chatbot-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func testRecords(vecs ...[]float32) []store.Record {
	out := make([]store.Record, len(vecs))
	for i, v := range vecs {
		out[i] = store.Record{
			Ordinal: i,
			Vector:  v,
			Segment: transcript.Segment{StartTime: float64(i) * 10, Text: fmt.Sprintf("segment %d", i)},
		}
	}
	return out
}

func testManifest(id string, dims, n int) store.Manifest {
	return store.Manifest{
		BuildID:   id,
		Dimension: dims,
		Count:     n,
		Embedder:  "hashing/fnv1a-signed",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
