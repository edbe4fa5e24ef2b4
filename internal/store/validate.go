// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// ValidateRecords checks the lock-step invariant before anything is written:
// ordinals are exactly 0..n-1 in order, every vector has the manifest
// dimension, and the manifest count matches.
func ValidateRecords(m Manifest, records []Record) error {
	if m.BuildID == "" {
		return chatboterr.New(chatboterr.CodeIndexBuildInvalidInput, "manifest has no build id")
	}
	if len(records) == 0 {
		return chatboterr.New(chatboterr.CodeIndexBuildEmptyCorpus, "no records to publish",
			chatboterr.FieldBuildID(m.BuildID))
	}
	if m.Dimension <= 0 {
		return chatboterr.New(chatboterr.CodeIndexBuildInvalidInput, "manifest dimension must be positive",
			chatboterr.FieldBuildID(m.BuildID))
	}
	if m.Count != len(records) {
		return chatboterr.New(chatboterr.CodeIndexBuildInvalidInput, "manifest count does not match records",
			chatboterr.FieldBuildID(m.BuildID), chatboterr.Field("count", m.Count), chatboterr.Field("records", len(records)))
	}

	for i, r := range records {
		if r.Ordinal != i {
			return chatboterr.New(chatboterr.CodeIndexBuildInvalidInput, "ordinals must be contiguous from zero",
				chatboterr.FieldBuildID(m.BuildID), chatboterr.FieldOrdinal(r.Ordinal), chatboterr.Field("position", i))
		}
		if len(r.Vector) != m.Dimension {
			return chatboterr.New(chatboterr.CodeIndexBuildInvalidInput, "vector dimension does not match manifest",
				chatboterr.FieldBuildID(m.BuildID), chatboterr.FieldOrdinal(i),
				chatboterr.Field("want", m.Dimension), chatboterr.Field("got", len(r.Vector)))
		}
	}
	return nil
}

// Mismatch reports an index/catalog disagreement for a build.
func Mismatch(buildID string, vectors, catalog, manifest int) error {
	return chatboterr.New(chatboterr.CodeIndexCorpusMismatch, "index and catalog are out of step",
		chatboterr.FieldBuildID(buildID),
		chatboterr.Field("vectors", vectors),
		chatboterr.Field("catalog", catalog),
		chatboterr.Field("manifest", manifest))
}

// CheckCounts returns a Mismatch error unless all three counts agree.
func CheckCounts(buildID string, vectors, catalog, manifest int) error {
	if vectors != catalog || catalog != manifest {
		return Mismatch(buildID, vectors, catalog, manifest)
	}
	return nil
}
