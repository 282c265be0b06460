// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package goalfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/goalwriter/pkg/types"
)

func sample() *types.GoalStructure {
	return &types.GoalStructure{
		Metadata: types.Metadata{WorkingTitle: "T", TargetVenue: "V", Keywords: []string{"a", "b"}},
		PaperOutline: []types.Section{{
			SectionName: "Intro",
			Objective:   "O",
			KeyPoints:   []types.KeyPoint{types.Plain("k1"), types.WithSubGoals("k2", "s1", "s2")},
		}},
	}
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatOf("goals.json"))
	assert.Equal(t, FormatJSON, FormatOf("GOALS.JSON"))
	assert.Equal(t, FormatYAML, FormatOf("goals.yaml"))
	assert.Equal(t, FormatYAML, FormatOf("goals"))
}

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"goals.yaml", "nested/goals.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, sample()))

			got, err := Load(path)
			require.NoError(t, err)
			if diff := cmp.Diff(sample(), got); diff != "" {
				t.Errorf("goals mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    *types.GoalStructure
		wantErr bool
	}{
		{
			name: "mixed key point forms",
			yaml: `metadata:
  working_title: T
paper_outline:
  - section_name: Intro
    objective: O
    key_points:
      - k1
      - text: k2
        sub_goals: [s1]
`,
			want: &types.GoalStructure{
				Metadata: types.Metadata{WorkingTitle: "T", Keywords: []string{}},
				PaperOutline: []types.Section{{
					SectionName: "Intro",
					Objective:   "O",
					KeyPoints:   []types.KeyPoint{types.Plain("k1"), types.WithSubGoals("k2", "s1")},
				}},
			},
		},
		{
			name: "empty document",
			yaml: "{}\n",
			want: types.NewGoalStructure(),
		},
		{
			name: "section without key points",
			yaml: "paper_outline:\n  - section_name: Only\n",
			want: &types.GoalStructure{
				Metadata:     types.Metadata{Keywords: []string{}},
				PaperOutline: []types.Section{{SectionName: "Only", KeyPoints: []types.KeyPoint{}}},
			},
		},
		{
			name:    "key point list of lists",
			yaml:    "paper_outline:\n  - key_points:\n      - [a]\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			yaml:    ":::bad\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.yaml), FormatYAML)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("goals mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeKeepsKeyPointForms(t *testing.T) {
	out, err := Encode(sample(), FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(out), "- k1\n")
	assert.Contains(t, string(out), "text: k2")

	out, err = Encode(sample(), FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"k1"`)
	assert.Contains(t, string(out), `"sub_goals": [`)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.txt")
	require.NoError(t, os.WriteFile(path, []byte("One. Two."), 0o644))
	got, err := LoadText(path)
	require.NoError(t, err)
	assert.Equal(t, "One. Two.", got)
}
