// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/config"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

func TestGenerateConfigYAML(t *testing.T) {
	tests := []struct {
		name   string
		result initResult
		want   []string
	}{
		{
			name: "openai for both",
			result: initResult{
				EmbeddingProvider: types.ProviderOpenAI, EmbeddingKey: "sk-embed",
				AnswerProvider: types.ProviderOpenAI, AnswerKey: "sk-embed",
			},
			want: []string{"text-embedding-3-small", "dimensions: 1536", "keyring://chatbot/openai-api-key", `model: "gpt-4o"`},
		},
		{
			name: "hashing with anthropic",
			result: initResult{
				EmbeddingProvider: types.ProviderHashing,
				AnswerProvider:    types.ProviderAnthropic, AnswerKey: "sk-ant",
				VideoLink: "https://example.com/v",
			},
			want: []string{"provider: hashing", "dimensions: 256", "keyring://chatbot/anthropic-api-key", `video_link: "https://example.com/v"`},
		},
		{
			name: "google for both",
			result: initResult{
				EmbeddingProvider: types.ProviderGoogle, EmbeddingKey: "g",
				AnswerProvider: types.ProviderGoogle, AnswerKey: "g",
			},
			want: []string{"text-embedding-004", "dimensions: 768", "gemini-2.0-flash", "keyring://chatbot/google-api-key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := GenerateConfigYAML(tt.result)
			for _, w := range tt.want {
				assert.Contains(t, yaml, w)
			}
			assert.NotContains(t, yaml, "sk-", "plain-text API key must not appear in YAML")

			// The generated file must pass validation.
			path := filepath.Join(t.TempDir(), "chatbot.yaml")
			require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
			cfg, err := config.Load(path)
			require.NoError(t, err)
			assert.Equal(t, string(tt.result.EmbeddingProvider), cfg.Embedding.Provider)
			assert.Equal(t, string(tt.result.AnswerProvider), cfg.Answer.Provider)
		})
	}
}

func TestGenerateConfigYAML_HashingHasNoEmbeddingKey(t *testing.T) {
	yaml := GenerateConfigYAML(initResult{EmbeddingProvider: types.ProviderHashing, AnswerProvider: types.ProviderOpenAI})
	assert.NotContains(t, yaml, "keyring://chatbot/hashing-api-key")
}

// --- bubbletea model state transition tests ---

func TestInitModel_EmbeddingSelection(t *testing.T) {
	m := newInitModel(nil)
	assert.Equal(t, stepEmbedding, m.step)

	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m3, _ := m2.(initModel).Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, m3.(initModel).embeddingIdx)

	m4, _ := m3.(initModel).Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m4.(initModel).embeddingIdx)

	// Can't go above 0.
	m5, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m5.(initModel).embeddingIdx)

	// Can't go below max.
	mMax := m
	mMax.embeddingIdx = len(types.EmbeddingProviders) - 1
	m6, _ := mMax.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, len(types.EmbeddingProviders)-1, m6.(initModel).embeddingIdx)
}

func TestInitModel_SelectEmbedding_TransitionsToKey(t *testing.T) {
	m := newInitModel(nil)
	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	result := m2.(initModel)
	assert.Equal(t, stepEmbeddingKey, result.step)
	assert.Equal(t, types.ProviderOpenAI, result.result.EmbeddingProvider)
}

func TestInitModel_HashingSkipsKey(t *testing.T) {
	m := newInitModel(nil)
	m.embeddingIdx = 2 // hashing

	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	result := m2.(initModel)
	assert.Equal(t, stepAnswer, result.step)
	assert.Equal(t, types.ProviderHashing, result.result.EmbeddingProvider)
}

func TestInitModel_EmptyAPIKey_ShowsError(t *testing.T) {
	m := newInitModel(nil)
	m.step = stepEmbeddingKey
	m.result.EmbeddingProvider = types.ProviderOpenAI

	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	result := m2.(initModel)
	assert.Equal(t, stepEmbeddingKey, result.step)
	assert.NotEmpty(t, result.validationErr)
}

func TestInitModel_KeyEntered_StartsValidation(t *testing.T) {
	m := newInitModel(nil)
	m.step = stepEmbeddingKey
	m.result.EmbeddingProvider = types.ProviderOpenAI
	m.keyInput.SetValue("  sk-abc  ")

	m2, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	result := m2.(initModel)
	assert.Equal(t, stepValidateEmbedding, result.step)
	assert.Equal(t, "sk-abc", result.result.EmbeddingKey)
	assert.NotNil(t, cmd)
}

func TestInitModel_ValidationSuccess_EmbeddingTransitionsToAnswer(t *testing.T) {
	m := newInitModel(nil)
	m.step = stepValidateEmbedding

	m2, _ := m.Update(validationSuccessMsg{step: stepValidateEmbedding})
	assert.Equal(t, stepAnswer, m2.(initModel).step)
}

func TestInitModel_ValidationError_ResetsToInput(t *testing.T) {
	tests := []struct {
		from, want initWizardStep
	}{
		{stepValidateEmbedding, stepEmbeddingKey},
		{stepValidateAnswer, stepAnswerKey},
	}
	for _, tt := range tests {
		m := newInitModel(nil)
		m.step = tt.from
		m2, _ := m.Update(validationErrorMsg{step: tt.from, err: chatboterr.New(chatboterr.CodeProviderKeyInvalid, "bad key")})
		result := m2.(initModel)
		assert.Equal(t, tt.want, result.step)
		assert.Contains(t, result.validationErr, "bad key")
	}
}

func TestInitModel_SameProviderReusesKey(t *testing.T) {
	m := newInitModel(newMockSecretStore())
	m.step = stepAnswer
	m.result.EmbeddingProvider = types.ProviderOpenAI
	m.result.EmbeddingKey = "sk-shared"
	m.answerIdx = 0 // openai

	m2, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	result := m2.(initModel)
	assert.Equal(t, "sk-shared", result.result.AnswerKey)
	assert.NotEqual(t, stepAnswerKey, result.step)
	assert.NotNil(t, cmd)
}

func TestInitModel_DifferentProviderAsksForKey(t *testing.T) {
	m := newInitModel(nil)
	m.step = stepAnswer
	m.result.EmbeddingProvider = types.ProviderOpenAI
	m.result.EmbeddingKey = "sk-openai"
	m.answerIdx = 1 // anthropic

	m2, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	result := m2.(initModel)
	assert.Equal(t, stepAnswerKey, result.step)
	assert.Equal(t, types.ProviderAnthropic, result.result.AnswerProvider)
}

func TestInitModel_ConfigWritten_TransitionsToDone(t *testing.T) {
	m := newInitModel(nil)
	m.step = stepValidateAnswer

	m2, _ := m.Update(configWrittenMsg{path: "/tmp/chatbot.yaml"})
	fm := m2.(initModel)
	assert.Equal(t, stepDone, fm.step)
	assert.Equal(t, "/tmp/chatbot.yaml", fm.configPath)
	assert.Contains(t, fm.View(), "chatbot index")
}

func TestInitModel_View(t *testing.T) {
	tests := []struct {
		step initWizardStep
		want []string
	}{
		{stepEmbedding, []string{"Step 1/2", "openai", "google", "hashing"}},
		{stepAnswer, []string{"Step 2/2", "openai", "anthropic", "google"}},
		{stepAnswerKey, []string{"Step 2/2", "API key"}},
	}
	for _, tt := range tests {
		m := newInitModel(nil)
		m.step = tt.step
		m.result.AnswerProvider = types.ProviderAnthropic
		view := m.View()
		for _, w := range tt.want {
			assert.Contains(t, view, w)
		}
	}
}

func useConfigPath(t *testing.T, path string) {
	t.Helper()
	orig := configPathForWrite
	configPathForWrite = func() (string, error) { return path, nil }
	t.Cleanup(func() { configPathForWrite = orig })
}

func TestStoreSecretsAndWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chatbot.yaml")
	useConfigPath(t, path)
	store := newMockSecretStore()

	got, err := storeSecretsAndWriteConfig(initResult{
		EmbeddingProvider: types.ProviderOpenAI, EmbeddingKey: "sk-1",
		AnswerProvider: types.ProviderAnthropic, AnswerKey: "sk-2",
	}, store, false)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, "sk-1", store.data["openai-api-key"])
	assert.Equal(t, "sk-2", store.data["anthropic-api-key"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreSecretsAndWriteConfig_OverwriteProtection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("existing: true\n"), 0o600))
	useConfigPath(t, path)

	result := initResult{EmbeddingProvider: types.ProviderHashing, AnswerProvider: types.ProviderOpenAI, AnswerKey: "sk"}

	_, err := storeSecretsAndWriteConfig(result, newMockSecretStore(), false)
	require.Error(t, err)
	assert.True(t, chatboterr.HasCode(err, chatboterr.CodeConfigAlreadyExists))

	_, err = storeSecretsAndWriteConfig(result, newMockSecretStore(), true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "provider: hashing")
}

func TestInitCommand_RequiresTerminal(t *testing.T) {
	_, err := runCLI(t, "", "init", "--config", newTestEnvConfig(t))
	require.Error(t, err)
	assert.True(t, chatboterr.HasCode(err, chatboterr.CodeCLISetupFailure))
}

func TestStoreSecretsAndWriteConfig_SharedProviderStoresOnce(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "chatbot.yaml"))
	store := newMockSecretStore()

	_, err := storeSecretsAndWriteConfig(initResult{
		EmbeddingProvider: types.ProviderOpenAI, EmbeddingKey: "sk-1",
		AnswerProvider: types.ProviderOpenAI, AnswerKey: "sk-1",
	}, store, false)
	require.NoError(t, err)

	keys, err := store.List(serviceName)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai-api-key"}, keys)
}
