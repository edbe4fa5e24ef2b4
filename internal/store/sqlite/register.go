// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"context"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", func(_ context.Context, cfg store.Config) (store.IndexStore, error) {
		return New(cfg.DataDir, cfg.KeepBuilds)
	})
}
