// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package goalstore reads and edits a GoalStructure by dotted path
// (e.g. "paper_outline.0.key_points.1.sub_goals.2") and flattens it into the
// goal list the analysis engine scores against.
//
// Every edit is a pure function returning a new snapshot. Only the containers
// along the edited path are copied; all other subtrees are shared with the
// input, so callers must not mutate values obtained from a snapshot.
package goalstore

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// Values given to inserted siblings.
const (
	NewKeyPointText = "New Sibling Goal"
	NewSubGoalText  = "New Sibling Sub-goal"
	NewSectionName  = "New Section"
)

// UpdateFunc receives the current value at a path and returns its
// replacement. Values are typed by location: string, []string,
// types.KeyPoint, []types.KeyPoint, types.Section, []types.Section,
// types.Metadata, or *types.GoalStructure for the empty path. A replacement
// may also be a json.RawMessage, decoded into the location's type; a string
// is accepted where a KeyPoint is expected and becomes a plain key point.
type UpdateFunc func(current any) (any, error)

// Get returns the value at path.
func Get(g *types.GoalStructure, path string) (any, error) {
	var out any
	_, err := Update(g, path, func(cur any) (any, error) {
		out = cur
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Text returns the text at path: the string itself, or a key point's text.
func Text(g *types.GoalStructure, path string) (string, error) {
	v, err := Get(g, path)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case types.KeyPoint:
		return x.Text, nil
	}
	return "", &TypeError{Path: path, Want: "text", Got: v}
}

// Set replaces the value at path.
func Set(g *types.GoalStructure, path string, value any) (*types.GoalStructure, error) {
	return Update(g, path, func(any) (any, error) { return value, nil })
}

// SetText writes text at path. An object key point keeps its kind and sub
// goals and only its text changes; any other value is overwritten.
func SetText(g *types.GoalStructure, path, text string) (*types.GoalStructure, error) {
	return Update(g, path, func(cur any) (any, error) {
		if kp, ok := cur.(types.KeyPoint); ok && !kp.IsPlain() {
			return kp.WithText(text), nil
		}
		return text, nil
	})
}

// Update replaces the value at path with fn's result.
func Update(g *types.GoalStructure, path string, fn UpdateFunc) (*types.GoalStructure, error) {
	if g == nil {
		g = types.NewGoalStructure()
	}
	w := &walker{path: path, fn: fn}
	segs := splitPath(path)
	if len(segs) == 0 {
		v, err := fn(g)
		if err != nil {
			return nil, err
		}
		return w.rootValue(v)
	}
	return w.root(g, segs)
}

// InsertSibling inserts a default item after the array element at path.
func InsertSibling(g *types.GoalStructure, path string) (*types.GoalStructure, error) {
	parent, idx, err := splitElement(path)
	if err != nil {
		return nil, err
	}
	field := parent[strings.LastIndex(parent, ".")+1:]
	return Update(g, parent, func(cur any) (any, error) {
		switch list := cur.(type) {
		case []types.Section:
			if err := checkIndex(path, idx, len(list)); err != nil {
				return nil, err
			}
			sec := types.Section{SectionName: NewSectionName, KeyPoints: []types.KeyPoint{}}
			return insertAt(list, idx+1, sec), nil
		case []types.KeyPoint:
			if err := checkIndex(path, idx, len(list)); err != nil {
				return nil, err
			}
			return insertAt(list, idx+1, types.WithSubGoals(NewKeyPointText)), nil
		case []string:
			if err := checkIndex(path, idx, len(list)); err != nil {
				return nil, err
			}
			value := ""
			if field == "sub_goals" {
				value = NewSubGoalText
			}
			return insertAt(list, idx+1, value), nil
		}
		return nil, &NotAnArrayError{Path: path}
	})
}

// RemoveAt deletes the array element at path.
func RemoveAt(g *types.GoalStructure, path string) (*types.GoalStructure, error) {
	parent, idx, err := splitElement(path)
	if err != nil {
		return nil, err
	}
	return Update(g, parent, func(cur any) (any, error) {
		switch list := cur.(type) {
		case []types.Section:
			if err := checkIndex(path, idx, len(list)); err != nil {
				return nil, err
			}
			return removeAt(list, idx), nil
		case []types.KeyPoint:
			if err := checkIndex(path, idx, len(list)); err != nil {
				return nil, err
			}
			return removeAt(list, idx), nil
		case []string:
			if err := checkIndex(path, idx, len(list)); err != nil {
				return nil, err
			}
			return removeAt(list, idx), nil
		}
		return nil, &NotAnArrayError{Path: path}
	})
}

// Flatten walks the outline depth first (section, key point, sub goals) and
// returns one FlatGoal per key point and sub goal.
func Flatten(g *types.GoalStructure) []types.FlatGoal {
	goals := []types.FlatGoal{}
	if g == nil {
		return goals
	}
	for si, sec := range g.PaperOutline {
		for ki, kp := range sec.KeyPoints {
			base := "paper_outline." + strconv.Itoa(si) + ".key_points." + strconv.Itoa(ki)
			goals = append(goals, types.FlatGoal{
				Text:         kp.Text,
				Path:         base,
				Type:         types.GoalMain,
				SectionIndex: si,
			})
			for gi, sub := range kp.SubGoals {
				goals = append(goals, types.FlatGoal{
					Text:         sub,
					Path:         base + ".sub_goals." + strconv.Itoa(gi),
					Type:         types.GoalSub,
					SectionIndex: si,
				})
			}
		}
	}
	return goals
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// splitElement separates an element path into its array path and index.
func splitElement(path string) (string, int, error) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", 0, &NotAnArrayError{Path: path}
	}
	idx, ok := parseIndex(path[i+1:])
	if !ok {
		return "", 0, &NotAnArrayError{Path: path}
	}
	return path[:i], idx, nil
}

func parseIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

func checkIndex(path string, idx, n int) error {
	if idx >= n {
		return &PathError{Path: path, Segment: strconv.Itoa(idx), Reason: "index out of range"}
	}
	return nil
}

func insertAt[T any](list []T, i int, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, v)
	return append(out, list[i:]...)
}

func removeAt[T any](list []T, i int) []T {
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func replaceAt[T any](list []T, i int, v T) []T {
	out := make([]T, len(list))
	copy(out, list)
	out[i] = v
	return out
}

// coerce converts an UpdateFunc result to the location's type.
func coerce[T any](path, want string, v any) (T, error) {
	var zero T
	switch x := v.(type) {
	case T:
		return x, nil
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(x, &out); err != nil {
			return zero, &TypeError{Path: path, Want: want, Got: v}
		}
		return out, nil
	}
	return zero, &TypeError{Path: path, Want: want, Got: v}
}
