// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package retrieval

import (
	"context"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/store"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/health"
)

// Status reports the active build and the query embedder.
type Status struct {
	// Manifest is nil when nothing has been built yet.
	Manifest *store.Manifest `json:"manifest,omitempty"`
	Embedder string          `json:"embedder"`
	// Compatible is false when the embedder's dimension differs from the
	// active build's.
	Compatible bool            `json:"compatible"`
	Health     *health.Metrics `json:"health,omitempty"`
}

// Status returns the active build manifest without loading the index.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	st := &Status{Embedder: provider.Describe(p.embedder)}
	if hr, ok := p.embedder.(provider.HealthReporter); ok {
		m := hr.HealthMetrics()
		st.Health = &m
	}

	m, err := p.store.Active(ctx)
	if err != nil {
		return st, err
	}
	st.Manifest = &m
	dims := p.embedder.Dimensions()
	st.Compatible = dims <= 0 || dims == m.Dimension
	return st, nil
}
