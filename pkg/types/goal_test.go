// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

const sampleGoalsJSON = `{
  "metadata": {"working_title": "T", "target_venue": "V", "keywords": ["a", "b"]},
  "paper_outline": [
    {
      "section_name": "Intro",
      "objective": "Motivate.",
      "key_points": [
        "plain point",
        {"text": "object point", "sub_goals": ["s1", "s2"]},
        {"text": "bare object"},
        {"text": "empty subs", "sub_goals": []}
      ]
    }
  ]
}`

func TestKeyPointJSONPreservesKind(t *testing.T) {
	var g GoalStructure
	require.NoError(t, json.Unmarshal([]byte(sampleGoalsJSON), &g))

	kps := g.PaperOutline[0].KeyPoints
	require.Len(t, kps, 4)
	assert.True(t, kps[0].IsPlain())
	assert.Equal(t, "plain point", kps[0].Text)
	assert.Equal(t, KeyPointObject, kps[1].Kind)
	assert.Equal(t, []string{"s1", "s2"}, kps[1].SubGoals)
	assert.Equal(t, KeyPointObject, kps[2].Kind)
	assert.Nil(t, kps[2].SubGoals)
	assert.NotNil(t, kps[3].SubGoals)
	assert.Empty(t, kps[3].SubGoals)

	out, err := json.Marshal(&g)
	require.NoError(t, err)
	assert.JSONEq(t, sampleGoalsJSON, string(out))
}

func TestKeyPointJSONRejectsNumbers(t *testing.T) {
	var kp KeyPoint
	assert.Error(t, json.Unmarshal([]byte(`42`), &kp))
}

func TestKeyPointYAML(t *testing.T) {
	src := `metadata:
  working_title: T
  target_venue: V
  keywords: [a]
paper_outline:
  - section_name: Intro
    objective: Motivate.
    key_points:
      - plain point
      - text: object point
        sub_goals: [s1]
      - text: bare object
`
	var g GoalStructure
	require.NoError(t, yaml.Unmarshal([]byte(src), &g))
	kps := g.PaperOutline[0].KeyPoints
	require.Len(t, kps, 3)
	assert.True(t, kps[0].IsPlain())
	assert.Equal(t, WithSubGoals("object point", "s1"), kps[1])
	assert.Equal(t, KeyPoint{Kind: KeyPointObject, Text: "bare object"}, kps[2])

	out, err := yaml.Marshal(&g)
	require.NoError(t, err)
	var again GoalStructure
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.Equal(t, g, again)
	assert.NotContains(t, string(out), "sub_goals: []")
}

func TestKeyPointWithTextKeepsKind(t *testing.T) {
	kp := WithSubGoals("old", "s")
	got := kp.WithText("new")
	assert.Equal(t, KeyPointObject, got.Kind)
	assert.Equal(t, []string{"s"}, got.SubGoals)
	assert.Equal(t, "new", got.Text)
	assert.True(t, Plain("x").WithText("y").IsPlain())
}

func TestGoalStructureClone(t *testing.T) {
	var g GoalStructure
	require.NoError(t, json.Unmarshal([]byte(sampleGoalsJSON), &g))
	c := g.Clone()
	c.PaperOutline[0].KeyPoints[1].SubGoals[0] = "changed"
	c.Metadata.Keywords[0] = "changed"
	assert.Equal(t, "s1", g.PaperOutline[0].KeyPoints[1].SubGoals[0])
	assert.Equal(t, "a", g.Metadata.Keywords[0])
}

func TestNewGoalStructureEncodesEmptyArrays(t *testing.T) {
	out, err := json.Marshal(NewGoalStructure())
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{"working_title":"","target_venue":"","keywords":[]},"paper_outline":[]}`, string(out))
}
