// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package goalfile reads and writes goal structures as files, so that goals
// set up with the CLI can be analyzed later or imported into a session.
// Files ending in .json are JSON; everything else is YAML.
package goalfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// DefaultName is the goal file written by setup when no path is given.
const DefaultName = "goals.yaml"

// Format is a goal file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the encoding from the file extension.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads a goal structure from path.
func Load(path string) (*types.GoalStructure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading goals: %w", err)
	}
	g, err := Decode(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("parsing goals %s: %w", path, err)
	}
	return g, nil
}

// Decode parses data in format f. Missing collections decode as empty.
func Decode(data []byte, f Format) (*types.GoalStructure, error) {
	var g types.GoalStructure
	var err error
	if f == FormatJSON {
		err = json.Unmarshal(data, &g)
	} else {
		err = yaml.Unmarshal(data, &g)
	}
	if err != nil {
		return nil, err
	}
	if g.Metadata.Keywords == nil {
		g.Metadata.Keywords = []string{}
	}
	if g.PaperOutline == nil {
		g.PaperOutline = []types.Section{}
	}
	for i := range g.PaperOutline {
		if g.PaperOutline[i].KeyPoints == nil {
			g.PaperOutline[i].KeyPoints = []types.KeyPoint{}
		}
	}
	return &g, nil
}

// Encode renders g in format f.
func Encode(g *types.GoalStructure, f Format) ([]byte, error) {
	if g == nil {
		g = types.NewGoalStructure()
	}
	if f == FormatJSON {
		out, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes g to path, creating parent directories.
func Save(path string, g *types.GoalStructure) error {
	data, err := Encode(g, FormatOf(path))
	if err != nil {
		return fmt.Errorf("encoding goals: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating goals directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing goals: %w", err)
	}
	return nil
}

// LoadText reads a plain-text draft.
func LoadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return string(data), nil
}
