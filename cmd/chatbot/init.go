// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/arjunrreddy/rnblawgroupchatbot/internal/config"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/provider"
	"github.com/arjunrreddy/rnblawgroupchatbot/internal/secrets"
	chatboterr "github.com/arjunrreddy/rnblawgroupchatbot/pkg/errors"
	"github.com/arjunrreddy/rnblawgroupchatbot/pkg/types"
)

// initHTTPClient is the HTTP client used for key validation. Tests replace it.
var initHTTPClient = &http.Client{Timeout: 10 * time.Second}

type initWizardStep int

const (
	stepEmbedding         initWizardStep = iota // select embedding provider
	stepEmbeddingKey                            // enter embedding API key
	stepValidateEmbedding                       // validating key (spinner)
	stepAnswer                                  // select answer provider
	stepAnswerKey                               // enter answer API key
	stepValidateAnswer                          // validating key (spinner)
	stepDone                                    // wizard complete
	stepError                                   // terminal error
)

// initResult holds the collected wizard configuration.
type initResult struct {
	EmbeddingProvider types.ProviderName
	EmbeddingKey      string
	AnswerProvider    types.ProviderName
	AnswerKey         string
	VideoLink         string
}

type (
	validationSuccessMsg struct{ step initWizardStep }
	validationErrorMsg   struct {
		step initWizardStep
		err  error
	}
	configWrittenMsg struct{ path string }
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// initModel is the bubbletea model for the init wizard.
type initModel struct {
	step           initWizardStep
	embeddingIdx   int
	answerIdx      int
	keyInput       textinput.Model
	spinner        spinner.Model
	result         initResult
	validationErr  string
	configPath     string
	secretStore    secrets.Store
	errFinal       error
	forceOverwrite bool
}

func newInitModel(store secrets.Store) initModel {
	key := textinput.New()
	key.Placeholder = "paste API key here"
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return initModel{
		step:        stepEmbedding,
		keyInput:    key,
		spinner:     sp,
		secretStore: store,
	}
}

func (m initModel) Init() tea.Cmd {
	return nil
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case validationSuccessMsg:
		return m.handleValidationSuccess(msg)

	case validationErrorMsg:
		m.validationErr = msg.err.Error()
		switch msg.step {
		case stepValidateEmbedding:
			m.step = stepEmbeddingKey
		case stepValidateAnswer:
			m.step = stepAnswerKey
		}
		m.keyInput.Focus()
		return m, nil

	case configWrittenMsg:
		m.step = stepDone
		m.configPath = msg.path
		return m, tea.Quit

	case error:
		m.step = stepError
		m.errFinal = msg
		return m, tea.Quit
	}

	if m.step == stepEmbeddingKey || m.step == stepAnswerKey {
		var cmd tea.Cmd
		m.keyInput, cmd = m.keyInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m initModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.step {
	case stepEmbedding:
		idx, chosen, cmd := moveCursor(msg, m.embeddingIdx, len(types.EmbeddingProviders))
		m.embeddingIdx = idx
		if chosen {
			return m.choose(types.EmbeddingProviders[idx])
		}
		return m, cmd
	case stepAnswer:
		idx, chosen, cmd := moveCursor(msg, m.answerIdx, len(types.AnswerProviders))
		m.answerIdx = idx
		if chosen {
			return m.choose(types.AnswerProviders[idx])
		}
		return m, cmd
	case stepEmbeddingKey, stepAnswerKey:
		return m.handleKeyInput(msg)
	}
	return m, nil
}

// moveCursor applies a navigation key to a list of n options. chosen is true
// on enter.
func moveCursor(msg tea.KeyMsg, idx, n int) (next int, chosen bool, cmd tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if idx > 0 {
			idx--
		}
	case "down", "j":
		if idx < n-1 {
			idx++
		}
	case "enter":
		return idx, true, nil
	case "q", "ctrl+c":
		return idx, false, tea.Quit
	}
	return idx, false, nil
}

func (m initModel) choose(p types.ProviderName) (tea.Model, tea.Cmd) {
	m.validationErr = ""
	m.keyInput.SetValue("")

	if m.step == stepEmbedding {
		m.result.EmbeddingProvider = p
		if !p.NeedsAPIKey() {
			m.step = stepAnswer
			return m, nil
		}
		m.step = stepEmbeddingKey
		m.keyInput.Focus()
		return m, textinput.Blink
	}

	m.result.AnswerProvider = p
	if p == m.result.EmbeddingProvider && m.result.EmbeddingKey != "" {
		// Same vendor: reuse the key already validated.
		m.result.AnswerKey = m.result.EmbeddingKey
		return m, writeConfigCmd(m.result, m.secretStore, m.forceOverwrite)
	}
	m.step = stepAnswerKey
	m.keyInput.Focus()
	return m, textinput.Blink
}

func (m initModel) handleKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.keyInput.Value())
		if key == "" {
			m.validationErr = "API key must not be empty"
			return m, nil
		}
		m.validationErr = ""
		if m.step == stepEmbeddingKey {
			m.result.EmbeddingKey = key
			m.step = stepValidateEmbedding
			return m, tea.Batch(m.spinner.Tick, validateKeyCmd(stepValidateEmbedding, m.result.EmbeddingProvider, key))
		}
		m.result.AnswerKey = key
		m.step = stepValidateAnswer
		return m, tea.Batch(m.spinner.Tick, validateKeyCmd(stepValidateAnswer, m.result.AnswerProvider, key))
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

func (m initModel) handleValidationSuccess(msg validationSuccessMsg) (tea.Model, tea.Cmd) {
	switch msg.step {
	case stepValidateEmbedding:
		m.step = stepAnswer
		m.keyInput.Blur()
	case stepValidateAnswer:
		return m, writeConfigCmd(m.result, m.secretStore, m.forceOverwrite)
	}
	return m, nil
}

func (m initModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  Transcript Chatbot Setup  ") + "\n\n")

	switch m.step {
	case stepEmbedding:
		b.WriteString(promptStyle.Render("Step 1/2: Choose the embedding provider") + "\n\n")
		writeOptions(&b, types.EmbeddingProviders, m.embeddingIdx)
		b.WriteString("\n" + dimStyle.Render("↑/↓ to navigate  enter to select  q to quit"))

	case stepEmbeddingKey:
		b.WriteString(promptStyle.Render("Step 1/2: "+string(m.result.EmbeddingProvider)+" API key") + "\n\n")
		m.writeKeyInput(&b)

	case stepValidateEmbedding:
		b.WriteString(m.spinner.View() + " Validating " + string(m.result.EmbeddingProvider) + " API key…\n")

	case stepAnswer:
		b.WriteString(promptStyle.Render("Step 2/2: Choose the answer provider") + "\n\n")
		writeOptions(&b, types.AnswerProviders, m.answerIdx)
		b.WriteString("\n" + dimStyle.Render("↑/↓ to navigate  enter to select  q to quit"))

	case stepAnswerKey:
		b.WriteString(promptStyle.Render("Step 2/2: "+string(m.result.AnswerProvider)+" API key") + "\n\n")
		m.writeKeyInput(&b)

	case stepValidateAnswer:
		b.WriteString(m.spinner.View() + " Validating " + string(m.result.AnswerProvider) + " API key…\n")

	case stepDone:
		b.WriteString(successStyle.Render("  Setup complete!  ") + "\n\n")
		if m.configPath != "" {
			b.WriteString(dimStyle.Render("Config written to: "+m.configPath) + "\n\n")
		}
		b.WriteString("Run " + promptStyle.Render("chatbot index") + " to build the index, then " +
			promptStyle.Render("chatbot serve") + ".\n")
		b.WriteString("Run " + promptStyle.Render("chatbot doctor") + " to verify setup.\n")

	case stepError:
		b.WriteString(errorStyle.Render("Setup failed: "+m.errFinal.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

func writeOptions(b *strings.Builder, options []types.ProviderName, selected int) {
	for i, p := range options {
		if i == selected {
			b.WriteString(selectedStyle.Render("  > "+string(p)) + "\n")
		} else {
			b.WriteString(dimStyle.Render("    "+string(p)) + "\n")
		}
	}
}

func (m initModel) writeKeyInput(b *strings.Builder) {
	b.WriteString(m.keyInput.View() + "\n")
	if m.validationErr != "" {
		b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("enter to continue  ctrl+c to quit"))
}

// --- tea.Cmd factories ---

func validateKeyCmd(step initWizardStep, p types.ProviderName, key string) tea.Cmd {
	return func() tea.Msg {
		if err := provider.ValidateKey(context.Background(), initHTTPClient, p, key, ""); err != nil {
			return validationErrorMsg{step: step, err: err}
		}
		return validationSuccessMsg{step: step}
	}
}

func writeConfigCmd(result initResult, store secrets.Store, forceOverwrite bool) tea.Cmd {
	return func() tea.Msg {
		path, err := storeSecretsAndWriteConfig(result, store, forceOverwrite)
		if err != nil {
			return err
		}
		return configWrittenMsg{path: path}
	}
}

// --- Config generation ---

// keyName is the keyring entry holding p's API key.
func keyName(p types.ProviderName) string {
	return string(p) + "-api-key"
}

// GenerateConfigYAML produces chatbot.yaml from the wizard result. API keys
// are referenced via keyring:// URIs and never written in plain text.
func GenerateConfigYAML(result initResult) string {
	embedModel, dims := defaultEmbeddingModel(result.EmbeddingProvider)

	var sb strings.Builder
	sb.WriteString("# Transcript chatbot configuration, generated by chatbot init\n\n")

	sb.WriteString("embedding:\n")
	fmt.Fprintf(&sb, "  provider: %s\n", result.EmbeddingProvider)
	if embedModel != "" {
		fmt.Fprintf(&sb, "  model: %q\n", embedModel)
	}
	fmt.Fprintf(&sb, "  dimensions: %d\n", dims)
	if result.EmbeddingProvider.NeedsAPIKey() {
		fmt.Fprintf(&sb, "  api_key: \"keyring://%s/%s\"\n", serviceName, keyName(result.EmbeddingProvider))
	}
	sb.WriteString("\n")

	sb.WriteString("answer:\n")
	fmt.Fprintf(&sb, "  provider: %s\n", result.AnswerProvider)
	fmt.Fprintf(&sb, "  model: %q\n", defaultAnswerModel(result.AnswerProvider))
	fmt.Fprintf(&sb, "  api_key: \"keyring://%s/%s\"\n\n", serviceName, keyName(result.AnswerProvider))

	sb.WriteString("corpus:\n")
	sb.WriteString("  path: data/structured_transcripts/march_11.json\n")
	if result.VideoLink != "" {
		fmt.Fprintf(&sb, "  video_link: %q\n", result.VideoLink)
	}
	sb.WriteString("\n")

	sb.WriteString("storage:\n")
	sb.WriteString("  backend: sqlite\n")
	sb.WriteString("  data_dir: data\n\n")

	sb.WriteString("server:\n")
	sb.WriteString("  listen: \"127.0.0.1:8000\"\n")

	return sb.String()
}

func defaultEmbeddingModel(p types.ProviderName) (model string, dims int) {
	switch p {
	case types.ProviderOpenAI:
		return "text-embedding-3-small", 1536
	case types.ProviderGoogle:
		return "text-embedding-004", 768
	default:
		return "", 256
	}
}

func defaultAnswerModel(p types.ProviderName) string {
	switch p {
	case types.ProviderAnthropic:
		return "claude-sonnet-4-5"
	case types.ProviderGoogle:
		return "gemini-2.0-flash"
	default:
		return "gpt-4o"
	}
}

// storeSecretsAndWriteConfig saves API keys to the keyring and writes the
// config file. An existing config is kept unless forceOverwrite is set.
func storeSecretsAndWriteConfig(result initResult, store secrets.Store, forceOverwrite bool) (string, error) {
	cfgPath, err := configPathForWrite()
	if err != nil {
		return "", err
	}
	if !forceOverwrite {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return "", chatboterr.Errorf(chatboterr.CodeConfigAlreadyExists,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	keys := map[types.ProviderName]string{}
	if result.EmbeddingKey != "" {
		keys[result.EmbeddingProvider] = result.EmbeddingKey
	}
	if result.AnswerKey != "" {
		keys[result.AnswerProvider] = result.AnswerKey
	}
	for p, key := range keys {
		if err := store.Store(serviceName, keyName(p), key); err != nil {
			return "", chatboterr.Errorf(chatboterr.CodeSecretStoreFailure, "storing %s API key: %w", p, err)
		}
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", chatboterr.Errorf(chatboterr.CodeConfigLoadReadFailure, "creating config directory %s: %w", dir, err)
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateConfigYAML(result)), 0o600); err != nil {
		return "", chatboterr.Errorf(chatboterr.CodeConfigLoadReadFailure, "writing config to %s: %w", cfgPath, err)
	}

	return cfgPath, nil
}

// configPathForWrite returns the config path the wizard writes. Tests
// override it.
var configPathForWrite = config.DefaultConfigPath

// --- Cobra command ---

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		Long: `Run an interactive TUI wizard that walks you through:
  1. Choosing the embedding provider (openai, google or the local hashing embedder)
  2. Choosing the answer provider (openai, anthropic, google)

API keys are stored in the OS keyring and referenced via keyring:// URIs
in the config file. No secrets are written in plain text.`,
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "overwrite an existing config file")
	cmd.Flags().String("video-link", "", "link to the recording the transcript belongs to")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(f) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(),
			"chatbot init requires an interactive terminal.\n"+
				"To configure non-interactively, edit ~/.config/chatbot/chatbot.yaml directly.")
		return chatboterr.New(chatboterr.CodeCLISetupFailure, "chatbot init: not an interactive terminal")
	}

	m := newInitModel(secretStoreFactory())
	m.forceOverwrite, _ = cmd.Flags().GetBool("force")
	m.result.VideoLink, _ = cmd.Flags().GetString("video-link")

	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return chatboterr.Errorf(chatboterr.CodeCLISetupFailure, "init wizard error: %w", err)
	}

	fm, ok := finalModel.(initModel)
	if !ok {
		return chatboterr.New(chatboterr.CodeCLISetupFailure, "unexpected model type after wizard")
	}
	if fm.errFinal != nil {
		return chatboterr.Errorf(chatboterr.CodeCLISetupFailure, "init failed: %w", fm.errFinal)
	}
	if fm.configPath != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", fm.configPath)
	}
	return nil
}

// isTerminal reports whether f is a terminal file descriptor.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
