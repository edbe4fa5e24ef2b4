// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/secrets"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
)

// mockSecretStore is an in-memory secrets.Store for testing.
type mockSecretStore struct {
	data map[string]string // key → value (service is always "chatbot")
}

var _ secrets.Store = (*mockSecretStore)(nil)

func newMockSecretStore(keys ...string) *mockSecretStore {
	m := &mockSecretStore{data: make(map[string]string)}
	for _, k := range keys {
		m.data[k] = "redacted"
	}
	return m
}

func (m *mockSecretStore) Store(_, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *mockSecretStore) Retrieve(_, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", chatboterr.Errorf(chatboterr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *mockSecretStore) Delete(_, key string) error {
	if _, ok := m.data[key]; !ok {
		return chatboterr.Errorf(chatboterr.CodeSecretNotFound, "not found")
	}
	delete(m.data, key)
	return nil
}

func (m *mockSecretStore) List(_ string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// useSecretStore swaps the package secret store for the duration of a test.
func useSecretStore(t *testing.T, s secrets.Store) {
	t.Helper()
	orig := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return s }
	t.Cleanup(func() { secretStoreFactory = orig })
}

// runCLI executes the root command against a fresh global viper and returns
// its stdout. HOME points at a temp dir so config bootstrap stays sandboxed.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

const scenarioTranscript = `[
  {"start_time": 0.0, "text": "Welcome to the show."},
  {"start_time": 30.0, "text": "Capital gains on real estate are taxed differently."},
  {"start_time": 75.0, "text": "Let's talk about estate planning."}
]`

type testEnv struct {
	dir        string
	configPath string
	corpusPath string
	dataDir    string
}

// newTestEnv writes the scenario transcript and a config using the local
// hashing embedder and sqlite storage under t.TempDir(). extra is appended to
// the config verbatim.
func newTestEnv(t *testing.T, extra string) testEnv {
	t.Helper()

	dir := t.TempDir()
	env := testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "chatbot.yaml"),
		corpusPath: filepath.Join(dir, "structured_transcripts", "ep1.json"),
		dataDir:    filepath.Join(dir, "data"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(env.corpusPath), 0o755))
	require.NoError(t, os.WriteFile(env.corpusPath, []byte(scenarioTranscript), 0o600))

	cfg := fmt.Sprintf(`embedding:
  provider: hashing
  dimensions: 64
corpus:
  path: %q
  video_link: "https://example.com/video"
storage:
  backend: sqlite
  data_dir: %q
logging:
  level: error
%s`, env.corpusPath, env.dataDir, extra)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o600))
	return env
}

// newTestEnvConfig returns just the config path of a fresh test env.
func newTestEnvConfig(t *testing.T) string {
	t.Helper()
	return newTestEnv(t, "").configPath
}
