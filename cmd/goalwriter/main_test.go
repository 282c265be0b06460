// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goalwriter/internal/conversation"
	"github.com/pdiddy/goalwriter/internal/critic"
	"github.com/pdiddy/goalwriter/internal/critic/critictest"
	"github.com/pdiddy/goalwriter/internal/goalstore"
	"github.com/pdiddy/goalwriter/internal/secrets"
	"github.com/pdiddy/goalwriter/internal/sentence"
	"github.com/pdiddy/goalwriter/pkg/types"
)

func newViper(t *testing.T, yamlConfig string) *viper.Viper {
	t.Helper()
	v := viper.New()
	registerDefaults(v)
	if yamlConfig != "" {
		path := filepath.Join(t.TempDir(), "goalwriter.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o644))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return v
}

func testClient(b *critictest.Backend) *critic.Client {
	cfg := types.DefaultAppConfig().Critic
	cfg.RetryBaseDelay = time.Millisecond
	return critic.NewClient(b, cfg, nil)
}

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg, err := loadAppConfig(newViper(t, ""), nil)
	require.NoError(t, err)
	if diff := cmp.Diff(types.DefaultAppConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAppConfigLayers(t *testing.T) {
	t.Setenv("GOALWRITER_CRITIC_MAX_RETRIES", "5")
	t.Setenv("GOALWRITER_PERSISTENCE_REDIS_DB", "3")
	v := newViper(t, `critic:
  backend: claude
  model: my-model
analysis:
  batch_size: 2
  debounce: 1s
persistence:
  driver: redis
`)
	s := secrets.Secrets{secrets.AnthropicAPIKey: "ak", secrets.GeminiAPIKey: "gk", secrets.JWTSecret: "js"}

	cfg, err := loadAppConfig(v, s)
	require.NoError(t, err)
	assert.Equal(t, types.BackendClaude, cfg.Critic.Backend)
	assert.Equal(t, "my-model", cfg.Critic.Model)
	assert.Equal(t, "ak", cfg.Critic.APIKey, "claude reads the anthropic key")
	assert.Equal(t, 5, cfg.Critic.MaxRetries)
	assert.Equal(t, 2, cfg.Analysis.BatchSize)
	assert.Equal(t, time.Second, cfg.Analysis.Debounce)
	assert.Equal(t, types.DriverRedis, cfg.Persistence.Driver)
	assert.Equal(t, 3, cfg.Persistence.RedisDB)
	assert.Equal(t, "js", cfg.Server.JWTSecret)
	assert.Equal(t, 2*time.Second, cfg.Persistence.SaveDebounce, "unset keys keep defaults")
}

func TestLoadAppConfigExplicitKeyWins(t *testing.T) {
	t.Setenv("GOALWRITER_CRITIC_API_KEY", "from-env")
	cfg, err := loadAppConfig(newViper(t, ""), secrets.Secrets{secrets.GeminiAPIKey: "from-file"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Critic.APIKey)
}

func TestLoadAppConfigRejectsSternness(t *testing.T) {
	t.Setenv("GOALWRITER_CRITIC_STERNNESS", "cruel")
	_, err := loadAppConfig(newViper(t, ""), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cruel")
}

func TestChat(t *testing.T) {
	conv := conversation.New(goalstore.NewStore(types.NewGoalStructure()), testClient(critictest.New()), nil, nil)
	in := strings.NewReader("an idea\nzero\n2\nIntro\nwhat it does\nMethods\nhow\n")
	var out bytes.Buffer

	g, err := chat(context.Background(), conv, in, &out)
	require.NoError(t, err)
	require.Len(t, g.PaperOutline, 2)
	assert.Equal(t, "Intro", g.PaperOutline[0].SectionName)
	assert.Equal(t, "Methods", g.PaperOutline[1].SectionName)
	assert.Equal(t, "O", g.PaperOutline[1].Objective)
	assert.Equal(t, "T", g.Metadata.WorkingTitle)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, conversation.Greeting))
	assert.Contains(t, text, "Please enter a valid number of sections, between 1 and 14.")
	assert.Contains(t, text, "What is the title of Section 2?")
}

func TestChatInputEnds(t *testing.T) {
	conv := conversation.New(goalstore.NewStore(types.NewGoalStructure()), testClient(critictest.New()), nil, nil)
	_, err := chat(context.Background(), conv, strings.NewReader("an idea\n1\n"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input ended")
}

func TestAnalyzeDraft(t *testing.T) {
	g := types.NewGoalStructure()
	g.PaperOutline = []types.Section{{
		SectionName: "Intro",
		KeyPoints:   []types.KeyPoint{types.Plain("k1"), types.WithSubGoals("k2", "s1")},
	}}
	b := critictest.New().Score(critic.KindContent, "k2", 1)

	report, err := analyzeDraft(context.Background(), testClient(b), 2, g, "Some text.", true)
	require.NoError(t, err)
	assert.Len(t, report.Goals, 3)
	assert.Equal(t, 1, report.Counts.Problems)
	require.NotNil(t, report.Problem)
	assert.Equal(t, 1, report.Problem.Index)
	require.NotNil(t, report.Advice)
	assert.Equal(t, 1, b.Calls(critic.KindSuggestion))

	var out bytes.Buffer
	printReport(&out, report)
	assert.Contains(t, out.String(), "3 goal(s), 1 problem(s)")
	assert.Contains(t, out.String(), "First problem: goal 1 (Content, 0.00): k2")
	assert.Contains(t, out.String(), "Add a sentence on it.")
}

func TestAnalyzeDraftWithoutProblems(t *testing.T) {
	g := types.NewGoalStructure()
	g.PaperOutline = []types.Section{{KeyPoints: []types.KeyPoint{types.Plain("k1")}}}
	b := critictest.New()

	report, err := analyzeDraft(context.Background(), testClient(b), 0, g, "Some text.", true)
	require.NoError(t, err)
	assert.Nil(t, report.Problem)
	assert.Nil(t, report.Advice)
	assert.Zero(t, b.Calls(critic.KindSuggestion))
}

func TestSplitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.txt")
	require.NoError(t, os.WriteFile(path, []byte("First one. Second?\n\nThird!"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"split", "--json", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	require.NoError(t, rootCmd.Execute())

	var got []sentence.Sentence
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, []sentence.Sentence{
		{ID: 0, Text: "First one."},
		{ID: 1, Text: "Second?"},
		{ID: 2, Text: "Third!"},
	}, got)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "goalwriter dev\n", out.String())
}
