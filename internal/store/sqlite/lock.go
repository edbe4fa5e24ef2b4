// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build !windows

package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// Lock takes a non-blocking exclusive flock on the data directory's lock
// file. The lock is released when the returned func is called or the
// process exits.
func (s *IndexStore) Lock(_ context.Context) (func(), error) {
	path := filepath.Join(s.dir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fsErr(err, "opening build lock", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, chatboterr.New(chatboterr.CodeIndexBuildConflict, "another build is in progress",
				chatboterr.FieldPath(path))
		}
		return nil, fsErr(err, "acquiring build lock", path)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
			_ = f.Close()
		})
	}, nil
}
