package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ctxwin/internal/compaction"
	"ctxwin/internal/config"
	ctxmgr "ctxwin/internal/context"
	"ctxwin/internal/fragment"
	"ctxwin/internal/history"
	"ctxwin/internal/message"
)

// execute runs the root command against a config file in a fresh temp dir.
func execute(t *testing.T, configBody string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if configBody != "" {
		require.NoError(t, os.WriteFile(cfgPath, []byte(configBody), 0600))
	}
	return executeWith(t, cfgPath, args...)
}

// executeWith runs the root command against the config file at cfgPath.
func executeWith(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--quiet"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// writeHistory stores n alternating user/assistant turns of roughly 50 tokens each.
func writeHistory(t *testing.T, name string, n int) string {
	t.Helper()
	msgs := []message.Message{message.NewText(message.RoleSystem, "You are a careful assistant.")}
	for i := 0; i < n; i++ {
		role := message.RoleUser
		if i%2 == 1 {
			role = message.RoleAssistant
		}
		msgs = append(msgs, message.NewText(role, strings.Repeat("turn text ", 20)))
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, history.Save(path, msgs))
	return path
}

func TestCountCmd(t *testing.T) {
	hist := writeHistory(t, "h.json", 4)

	out, err := execute(t, "", "-o", "json", "count", hist, "--system", strings.Repeat("x", 40))
	require.NoError(t, err)

	var count ctxmgr.TokenCount
	require.NoError(t, json.Unmarshal([]byte(out), &count))
	assert.Equal(t, 10, count.SystemPrompt)
	assert.Positive(t, count.Messages)
	assert.Equal(t, count.SystemPrompt+count.Messages, count.Total)
	assert.Equal(t, 40000, count.ToolOutputReserve)
	assert.Equal(t, 200000-count.Total-40000, count.Available)
}

func TestStateCmd_ConfigAndYAML(t *testing.T) {
	hist := writeHistory(t, "h.jsonl", 6)

	out, err := execute(t, "context:\n  max_tokens: 300\n", "-o", "yaml", "state", hist)
	require.NoError(t, err)

	var state map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &state))
	assert.Equal(t, 300, state["max_tokens"])
	assert.Equal(t, true, state["needs_compression"])
}

func TestScoreCmd(t *testing.T) {
	hist := writeHistory(t, "h.yaml", 3)

	out, err := execute(t, "", "-o", "json", "score", hist)
	require.NoError(t, err)

	var rows []scoreRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, message.RoleSystem, rows[0].Role)
	assert.Equal(t, compaction.ImportanceCritical, rows[0].Importance)
	for _, r := range rows {
		assert.NotEmpty(t, r.ID)
	}
}

func TestSummarizeCmd(t *testing.T) {
	hist := writeHistory(t, "h.json", 4)

	out, err := execute(t, "", "-o", "json", "summarize", hist)
	require.NoError(t, err)

	var summary compaction.ConversationSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 5, summary.MessageCount)
	assert.NotEmpty(t, summary.Content)
}

func TestCompressCmd_WritesOutput(t *testing.T) {
	hist := writeHistory(t, "h.json", 6)
	outPath := filepath.Join(t.TempDir(), "compressed.jsonl")

	out, err := execute(t, "", "-o", "json", "compress", hist,
		"--strategy", "remove_old", "--target", "120", "--keep-recent", "2", "--out", outPath)
	require.NoError(t, err)

	var result compaction.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, compaction.StrategyRemoveOld, result.Strategy)
	assert.Positive(t, result.RemovedCount)
	assert.Len(t, result.Messages, 7-result.RemovedCount)
	assert.Equal(t, message.RoleSystem, result.Messages[0].Role)

	written, err := history.Load(outPath)
	require.NoError(t, err)
	assert.Len(t, written, len(result.Messages))
}

func TestCompressCmd_AutoBelowThreshold(t *testing.T) {
	hist := writeHistory(t, "h.json", 2)

	out, err := execute(t, "", "-o", "json", "compress", "--auto", hist)
	require.NoError(t, err)

	var result compaction.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Messages, 3)
	assert.Zero(t, result.RemovedCount)
	assert.Equal(t, result.OriginalTokens, result.CompressedTokens)
}

func TestCompressCmd_TextOutput(t *testing.T) {
	hist := writeHistory(t, "h.json", 6)

	out, err := execute(t, "", "-o", "text", "compress", hist, "-s", "smart", "-t", "150", "-k", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy:   smart")
	assert.Contains(t, out, "Tokens:")
}

func TestFragmentsCmd(t *testing.T) {
	src := `package main

import "fmt"

func helper() int {
	return 1
}

func parseConfig(path string) error {
	fmt.Println("parsing", path)
	return nil
}
`
	file := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(file, []byte(src), 0644))

	out, err := execute(t, "", "-o", "json", "fragments", file, "--query", "where is parseConfig", "--lines", "4")
	require.NoError(t, err)

	var frags []fragment.Fragment
	require.NoError(t, json.Unmarshal([]byte(out), &frags))
	require.NotEmpty(t, frags)
	assert.Equal(t, file, frags[0].Path)
	assert.Contains(t, frags[0].Content, "func parseConfig")
	assert.Positive(t, frags[0].RelevanceScore)
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-o", "json", "version"})
	require.NoError(t, cmd.Execute())

	var info BuildInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")

	out.Reset()
	cmd = NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "ctxwin "+Version))
}

func TestConfigCmd(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "ctxwin", "config.yaml")

	out, err := executeWith(t, cfgPath, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfgPath, strings.TrimSpace(out))

	_, err = executeWith(t, cfgPath, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, cfgPath)

	_, err = executeWith(t, cfgPath, "config", "init")
	assert.Error(t, err, "init must not overwrite without --force")

	_, err = executeWith(t, cfgPath, "config", "set", "context.max_tokens", "4096")
	require.NoError(t, err)

	out, err = executeWith(t, cfgPath, "-o", "json", "config", "get", "context.max_tokens")
	require.NoError(t, err)
	assert.Equal(t, "4096", strings.TrimSpace(out))

	out, err = executeWith(t, cfgPath, "-o", "json", "state", writeHistory(t, "h.json", 1))
	require.NoError(t, err)
	var state ctxmgr.ContextWindowState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, 4096, state.MaxTokens)

	_, err = executeWith(t, cfgPath, "config", "set", "context.compression_threshold", "2")
	assert.Error(t, err)
	_, err = executeWith(t, cfgPath, "config", "get", "context.nope")
	assert.Error(t, err)

	out, err = executeWith(t, cfgPath, "-o", "text", "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "context.max_tokens = 4096")
	assert.Contains(t, out, "log.level = info")
}

func TestRootCmd_Errors(t *testing.T) {
	hist := writeHistory(t, "h.json", 2)
	bad := filepath.Join(t.TempDir(), "h.txt")
	require.NoError(t, os.WriteFile(bad, []byte("hello"), 0644))

	tests := []struct {
		name string
		args []string
	}{
		{"unknown output format", []string{"-o", "xml", "count", hist}},
		{"unsupported history", []string{"count", bad}},
		{"missing history", []string{"count", filepath.Join(t.TempDir(), "none.json")}},
		{"unknown strategy", []string{"compress", hist, "-s", "fastest"}},
		{"auto with strategy", []string{"compress", hist, "--auto", "-s", "smart"}},
		{"system flags exclusive", []string{"count", hist, "--system", "a", "--system-file", "b"}},
		{"missing argument", []string{"state"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputAuto, false},
		{"auto", OutputAuto, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", OutputYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := parseOutputFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestOutputFormat_ResolveNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, OutputJSON, OutputAuto.resolve(&buf))
	assert.Equal(t, OutputYAML, OutputYAML.resolve(&buf))
}
