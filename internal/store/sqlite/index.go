// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package sqlite stores each build as a directory holding a sqlite-vec index
// database, a JSON catalog and a manifest. A CURRENT file names the active
// build; replacing it by rename is the commit point of a publish.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/transcript"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

const (
	currentFile   = "CURRENT"
	lockFile      = "build.lock"
	buildsDir     = "builds"
	indexFile     = "index.db"
	catalogFile   = "catalog.json"
	manifestFile  = "manifest.json"
	stagingPrefix = ".staging-"
)

// Compile-time interface check.
var _ store.IndexStore = (*IndexStore)(nil)

// IndexStore implements store.IndexStore on the local filesystem.
type IndexStore struct {
	dir  string
	keep int
}

// New opens (or creates) a data directory. keep bounds the number of
// retained builds; 0 keeps all of them.
func New(dataDir string, keep int) (*IndexStore, error) {
	if dataDir == "" {
		return nil, chatboterr.New(chatboterr.CodeServerConfigInvalid, "storage data dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dataDir, buildsDir), 0o755); err != nil {
		return nil, chatboterr.Wrap(err, chatboterr.CodeStoreFilesystemFailure, "creating data dir",
			chatboterr.FieldPath(dataDir))
	}
	return &IndexStore{dir: dataDir, keep: keep}, nil
}

// Dir returns the data directory.
func (s *IndexStore) Dir() string { return s.dir }

func (s *IndexStore) buildPath(id string) string {
	return filepath.Join(s.dir, buildsDir, id)
}

// Publish writes the pair into a staging directory, moves it into place and
// then repoints CURRENT. Nothing a reader can see changes until the final
// rename.
func (s *IndexStore) Publish(ctx context.Context, m store.Manifest, records []store.Record) error {
	if err := store.ValidateRecords(m, records); err != nil {
		return err
	}
	if strings.ContainsAny(m.BuildID, `/\`) || strings.HasPrefix(m.BuildID, ".") {
		return chatboterr.New(chatboterr.CodeIndexBuildInvalidInput, "build id is not a valid directory name",
			chatboterr.FieldBuildID(m.BuildID))
	}

	final := s.buildPath(m.BuildID)
	if _, err := os.Stat(final); err == nil {
		return chatboterr.New(chatboterr.CodeIndexBuildInvalidInput, "build id already exists",
			chatboterr.FieldBuildID(m.BuildID))
	}

	staging := s.buildPath(stagingPrefix + m.BuildID)
	if err := os.RemoveAll(staging); err != nil {
		return fsErr(err, "clearing staging dir", staging)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fsErr(err, "creating staging dir", staging)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	if err := writeIndex(ctx, filepath.Join(staging, indexFile), m.Dimension, records); err != nil {
		return chatboterr.With(err, chatboterr.FieldBuildID(m.BuildID))
	}

	segments := make([]transcript.Segment, len(records))
	for i, r := range records {
		segments[i] = r.Segment
	}
	if err := writeJSON(filepath.Join(staging, catalogFile), segments); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(staging, manifestFile), m); err != nil {
		return err
	}

	if err := os.Rename(staging, final); err != nil {
		return fsErr(err, "moving build into place", final)
	}
	committed = true

	if err := s.setCurrent(m.BuildID); err != nil {
		_ = os.RemoveAll(final)
		return err
	}

	// Pruning failures leave extra builds behind but never affect the
	// active one.
	_ = s.prune(m.BuildID)
	return nil
}

func writeIndex(ctx context.Context, path string, dims int, records []store.Record) error {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=DELETE&_busy_timeout=5000")
	if err != nil {
		return dbErr(err, "opening index db")
	}
	defer func() { _ = db.Close() }()

	ddl := fmt.Sprintf(`CREATE VIRTUAL TABLE vectors USING vec0(embedding float[%d])`, dims)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return dbErr(err, "creating vectors virtual table")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vectors(rowid, embedding) VALUES (?, ?)`)
	if err != nil {
		return dbErr(err, "preparing insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		blob, err := sqlite_vec.SerializeFloat32(r.Vector)
		if err != nil {
			return chatboterr.Wrap(err, chatboterr.CodeStoreArtifactInvalid, "serializing embedding",
				chatboterr.FieldOrdinal(r.Ordinal))
		}
		if _, err := stmt.ExecContext(ctx, rowID(r.Ordinal), blob); err != nil {
			return chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "inserting vector",
				chatboterr.FieldOrdinal(r.Ordinal))
		}
	}

	if err := tx.Commit(); err != nil {
		return dbErr(err, "committing index")
	}
	return nil
}

// rowid 0 is reserved by vec0, so ordinals are stored shifted by one.
func rowID(ordinal int) int64 { return int64(ordinal) + 1 }

func ordinalOf(rowid int64) int { return int(rowid - 1) }

func (s *IndexStore) setCurrent(id string) error {
	tmp := filepath.Join(s.dir, currentFile+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fsErr(err, "writing current pointer", tmp)
	}
	if _, err := f.WriteString(id + "\n"); err != nil {
		_ = f.Close()
		return fsErr(err, "writing current pointer", tmp)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fsErr(err, "syncing current pointer", tmp)
	}
	if err := f.Close(); err != nil {
		return fsErr(err, "closing current pointer", tmp)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, currentFile)); err != nil {
		return fsErr(err, "activating build", s.dir)
	}
	return nil
}

func (s *IndexStore) current() (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", chatboterr.New(chatboterr.CodeIndexLoadNotFound, "no index has been built",
			chatboterr.FieldPath(s.dir))
	}
	if err != nil {
		return "", fsErr(err, "reading current pointer", s.dir)
	}
	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", chatboterr.New(chatboterr.CodeIndexLoadNotFound, "current pointer is empty",
			chatboterr.FieldPath(s.dir))
	}
	return id, nil
}

// Builds lists retained build IDs in ascending name order, which is creation
// order for time-ordered IDs.
func (s *IndexStore) Builds() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, buildsDir))
	if err != nil {
		return nil, fsErr(err, "listing builds", s.dir)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *IndexStore) prune(active string) error {
	if s.keep <= 0 {
		return nil
	}
	ids, err := s.Builds()
	if err != nil {
		return err
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return id == active })
	// The active build counts toward keep.
	excess := len(ids) - (s.keep - 1)
	var errs []error
	for i := 0; i < excess && i < len(ids); i++ {
		if err := os.RemoveAll(s.buildPath(ids[i])); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *IndexStore) readManifest(id string) (store.Manifest, error) {
	var m store.Manifest
	path := filepath.Join(s.buildPath(id), manifestFile)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, chatboterr.New(chatboterr.CodeIndexCorpusMismatch, "active build has no manifest",
			chatboterr.FieldBuildID(id), chatboterr.FieldPath(path))
	}
	if err != nil {
		return m, fsErr(err, "reading manifest", path)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, chatboterr.Wrap(err, chatboterr.CodeStoreArtifactInvalid, "decoding manifest",
			chatboterr.FieldPath(path))
	}
	return m, nil
}

func (s *IndexStore) Active(_ context.Context) (store.Manifest, error) {
	id, err := s.current()
	if err != nil {
		return store.Manifest{}, err
	}
	return s.readManifest(id)
}

// Open loads the active build and verifies that the index, catalog and
// manifest agree on the number of entries.
func (s *IndexStore) Open(ctx context.Context) (store.Snapshot, error) {
	id, err := s.current()
	if err != nil {
		return nil, err
	}
	m, err := s.readManifest(id)
	if err != nil {
		return nil, err
	}

	catalogPath := filepath.Join(s.buildPath(id), catalogFile)
	raw, err := os.ReadFile(catalogPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.Mismatch(id, m.Count, 0, m.Count)
	}
	if err != nil {
		return nil, fsErr(err, "reading catalog", catalogPath)
	}
	var segments []transcript.Segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, chatboterr.Wrap(err, chatboterr.CodeStoreArtifactInvalid, "decoding catalog",
			chatboterr.FieldPath(catalogPath))
	}

	indexPath := filepath.Join(s.buildPath(id), indexFile)
	if _, err := os.Stat(indexPath); errors.Is(err, fs.ErrNotExist) {
		return nil, store.Mismatch(id, 0, len(segments), m.Count)
	}
	db, err := sql.Open("sqlite3", "file:"+indexPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, dbErr(err, "opening index db")
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		_ = db.Close()
		return nil, chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, "counting vectors",
			chatboterr.FieldBuildID(id))
	}
	if err := store.CheckCounts(id, n, len(segments), m.Count); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &snapshot{db: db, manifest: m, segments: segments}, nil
}

func (s *IndexStore) Close() error { return nil }

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return chatboterr.Wrap(err, chatboterr.CodeStoreArtifactInvalid, "encoding artifact",
			chatboterr.FieldPath(path))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fsErr(err, "writing artifact", path)
	}
	return nil
}

func fsErr(err error, msg, path string) error {
	return chatboterr.Wrap(err, chatboterr.CodeStoreFilesystemFailure, msg, chatboterr.FieldPath(path))
}

func dbErr(err error, msg string) error {
	return chatboterr.Wrap(err, chatboterr.CodeStoreDatabaseFailure, msg)
}
