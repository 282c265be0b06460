// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data model shared by every stage of goalwriter:
// the goal structure a writer sets up, the flattened goal list the critics
// score against, judgments, analysis results, the persisted document, and
// configuration.
package types

import (
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Metadata describes the paper as a whole.
type Metadata struct {
	// WorkingTitle is the provisional paper title.
	WorkingTitle string `json:"working_title" yaml:"working_title"`

	// TargetVenue is the conference or journal the paper is aimed at.
	TargetVenue string `json:"target_venue" yaml:"target_venue"`

	// Keywords lists topic keywords in the order the writer gave them.
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Section is one entry of the paper outline.
type Section struct {
	// SectionName is the section heading.
	SectionName string `json:"section_name" yaml:"section_name"`

	// Objective is a one-sentence summary of what the section must achieve.
	Objective string `json:"objective" yaml:"objective"`

	// KeyPoints lists the claims the section text should satisfy.
	KeyPoints []KeyPoint `json:"key_points" yaml:"key_points"`
}

// GoalStructure is the root of a writer's goals: paper metadata plus the
// ordered outline. Values reachable from a GoalStructure returned by the
// goal store are shared between snapshots and must be treated as read-only.
type GoalStructure struct {
	Metadata     Metadata  `json:"metadata" yaml:"metadata"`
	PaperOutline []Section `json:"paper_outline" yaml:"paper_outline"`
}

// NewGoalStructure returns an empty structure with non-nil collections so
// that it encodes as `[]` rather than `null`.
func NewGoalStructure() *GoalStructure {
	return &GoalStructure{
		Metadata:     Metadata{Keywords: []string{}},
		PaperOutline: []Section{},
	}
}

// Clone returns a deep copy of g.
func (g *GoalStructure) Clone() *GoalStructure {
	if g == nil {
		return nil
	}
	out := &GoalStructure{
		Metadata: Metadata{
			WorkingTitle: g.Metadata.WorkingTitle,
			TargetVenue:  g.Metadata.TargetVenue,
			Keywords:     cloneStrings(g.Metadata.Keywords),
		},
	}
	if g.PaperOutline != nil {
		out.PaperOutline = make([]Section, len(g.PaperOutline))
		for i, s := range g.PaperOutline {
			out.PaperOutline[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of s.
func (s Section) Clone() Section {
	out := Section{SectionName: s.SectionName, Objective: s.Objective}
	if s.KeyPoints != nil {
		out.KeyPoints = make([]KeyPoint, len(s.KeyPoints))
		for i, kp := range s.KeyPoints {
			out.KeyPoints[i] = kp.Clone()
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// KeyPointKind tags which representation a KeyPoint was read from.
type KeyPointKind int

const (
	// KeyPointPlain is a bare string key point.
	KeyPointPlain KeyPointKind = iota
	// KeyPointObject is a `{text, sub_goals?}` key point.
	KeyPointObject
)

// KeyPoint is either a plain string or an object carrying text and optional
// sub goals. The kind survives a decode/encode round trip: a plain key point
// encodes as a string, an object key point as an object, and an object
// without a sub_goals key encodes without one.
type KeyPoint struct {
	Kind     KeyPointKind
	Text     string
	SubGoals []string
}

// Plain returns a string key point.
func Plain(text string) KeyPoint {
	return KeyPoint{Kind: KeyPointPlain, Text: text}
}

// WithSubGoals returns an object key point. An empty (non-nil) sub goal list
// is kept so it encodes as `"sub_goals": []`.
func WithSubGoals(text string, subGoals ...string) KeyPoint {
	if subGoals == nil {
		subGoals = []string{}
	}
	return KeyPoint{Kind: KeyPointObject, Text: text, SubGoals: subGoals}
}

// IsPlain reports whether the key point is a bare string.
func (k KeyPoint) IsPlain() bool { return k.Kind == KeyPointPlain }

// WithText returns a copy of k with its text replaced and its kind and sub
// goals unchanged.
func (k KeyPoint) WithText(text string) KeyPoint {
	k.Text = text
	return k
}

// Clone returns a deep copy of k.
func (k KeyPoint) Clone() KeyPoint {
	k.SubGoals = cloneStrings(k.SubGoals)
	return k
}

// keyPointObject is the object representation of a KeyPoint on the wire.
type keyPointObject struct {
	Text     string    `json:"text" yaml:"text"`
	SubGoals *[]string `json:"sub_goals,omitempty" yaml:"sub_goals,omitempty"`
}

func (k KeyPoint) object() keyPointObject {
	obj := keyPointObject{Text: k.Text}
	if k.SubGoals != nil {
		subs := k.SubGoals
		obj.SubGoals = &subs
	}
	return obj
}

func fromObject(obj keyPointObject) KeyPoint {
	kp := KeyPoint{Kind: KeyPointObject, Text: obj.Text}
	if obj.SubGoals != nil {
		kp.SubGoals = *obj.SubGoals
		if kp.SubGoals == nil {
			kp.SubGoals = []string{}
		}
	}
	return kp
}

// MarshalJSON encodes the key point in the representation it was read from.
func (k KeyPoint) MarshalJSON() ([]byte, error) {
	if k.IsPlain() {
		return json.Marshal(k.Text)
	}
	return json.Marshal(k.object())
}

// UnmarshalJSON accepts a JSON string or a `{text, sub_goals}` object.
func (k *KeyPoint) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*k = Plain(text)
		return nil
	}
	var obj keyPointObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("key point must be a string or an object with text: %w", err)
	}
	*k = fromObject(obj)
	return nil
}

// MarshalYAML encodes the key point in the representation it was read from.
func (k KeyPoint) MarshalYAML() (interface{}, error) {
	if k.IsPlain() {
		return k.Text, nil
	}
	return k.object(), nil
}

// UnmarshalYAML accepts a scalar or a mapping with text and sub_goals.
func (k *KeyPoint) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*k = Plain(value.Value)
		return nil
	case yaml.MappingNode:
		var obj keyPointObject
		if err := value.Decode(&obj); err != nil {
			return fmt.Errorf("decoding key point: %w", err)
		}
		*k = fromObject(obj)
		return nil
	default:
		return fmt.Errorf("line %d: key point must be a string or a mapping", value.Line)
	}
}

// GoalType distinguishes key points from their sub goals in the flat list.
type GoalType string

const (
	GoalMain GoalType = "main"
	GoalSub  GoalType = "sub"
)

// FlatGoal is one entry of the depth-first linearization of a GoalStructure.
// Its position in the flat list is the index used by every score array.
type FlatGoal struct {
	// Text is the key point or sub goal text.
	Text string `json:"text"`

	// Path is the dotted address of the goal inside the GoalStructure,
	// e.g. "paper_outline.0.key_points.1.sub_goals.2".
	Path string `json:"path"`

	// Type is "main" for key points and "sub" for sub goals.
	Type GoalType `json:"type"`

	// SectionIndex is the index of the owning section in the outline.
	SectionIndex int `json:"sectionIndex"`
}
