// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package goalstore

import (
	"encoding/json"

	"github.com/pdiddy/goalwriter/pkg/types"
)

// walker resolves a path one typed level at a time and rebuilds the spine
// above the replaced value.
type walker struct {
	path string
	fn   UpdateFunc
}

func (w *walker) unknown(seg string) error {
	return &PathError{Path: w.path, Segment: seg, Reason: "unknown field"}
}

func (w *walker) index(seg string, n int) (int, error) {
	idx, ok := parseIndex(seg)
	if !ok {
		return 0, &PathError{Path: w.path, Segment: seg, Reason: "not an index"}
	}
	if idx >= n {
		return 0, &PathError{Path: w.path, Segment: seg, Reason: "index out of range"}
	}
	return idx, nil
}

func (w *walker) rootValue(v any) (*types.GoalStructure, error) {
	switch x := v.(type) {
	case *types.GoalStructure:
		if x == nil {
			return types.NewGoalStructure(), nil
		}
		return x, nil
	case types.GoalStructure:
		return &x, nil
	}
	g, err := coerce[types.GoalStructure](w.path, "goal structure", v)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (w *walker) root(g *types.GoalStructure, segs []string) (*types.GoalStructure, error) {
	out := *g
	switch segs[0] {
	case "metadata":
		m, err := w.metadata(g.Metadata, segs[1:])
		if err != nil {
			return nil, err
		}
		out.Metadata = m
	case "paper_outline":
		secs, err := w.sections(g.PaperOutline, segs[1:])
		if err != nil {
			return nil, err
		}
		out.PaperOutline = secs
	default:
		return nil, w.unknown(segs[0])
	}
	return &out, nil
}

func (w *walker) metadata(m types.Metadata, segs []string) (types.Metadata, error) {
	if len(segs) == 0 {
		v, err := w.fn(m)
		if err != nil {
			return m, err
		}
		return coerce[types.Metadata](w.path, "metadata", v)
	}
	var err error
	switch segs[0] {
	case "working_title":
		m.WorkingTitle, err = w.text(m.WorkingTitle, segs[1:])
	case "target_venue":
		m.TargetVenue, err = w.text(m.TargetVenue, segs[1:])
	case "keywords":
		m.Keywords, err = w.strings(m.Keywords, segs[1:])
	default:
		err = w.unknown(segs[0])
	}
	return m, err
}

func (w *walker) sections(list []types.Section, segs []string) ([]types.Section, error) {
	if len(segs) == 0 {
		v, err := w.fn(list)
		if err != nil {
			return nil, err
		}
		return coerce[[]types.Section](w.path, "section list", v)
	}
	i, err := w.index(segs[0], len(list))
	if err != nil {
		return nil, err
	}
	sec, err := w.section(list[i], segs[1:])
	if err != nil {
		return nil, err
	}
	return replaceAt(list, i, sec), nil
}

func (w *walker) section(s types.Section, segs []string) (types.Section, error) {
	if len(segs) == 0 {
		v, err := w.fn(s)
		if err != nil {
			return s, err
		}
		return coerce[types.Section](w.path, "section", v)
	}
	var err error
	switch segs[0] {
	case "section_name":
		s.SectionName, err = w.text(s.SectionName, segs[1:])
	case "objective":
		s.Objective, err = w.text(s.Objective, segs[1:])
	case "key_points":
		s.KeyPoints, err = w.keyPoints(s.KeyPoints, segs[1:])
	default:
		err = w.unknown(segs[0])
	}
	return s, err
}

func (w *walker) keyPoints(list []types.KeyPoint, segs []string) ([]types.KeyPoint, error) {
	if len(segs) == 0 {
		v, err := w.fn(list)
		if err != nil {
			return nil, err
		}
		return coerce[[]types.KeyPoint](w.path, "key point list", v)
	}
	i, err := w.index(segs[0], len(list))
	if err != nil {
		return nil, err
	}
	kp, err := w.keyPoint(list[i], segs[1:])
	if err != nil {
		return nil, err
	}
	return replaceAt(list, i, kp), nil
}

func (w *walker) keyPoint(kp types.KeyPoint, segs []string) (types.KeyPoint, error) {
	if len(segs) == 0 {
		v, err := w.fn(kp)
		if err != nil {
			return kp, err
		}
		return w.keyPointValue(v)
	}
	switch segs[0] {
	case "text":
		text, err := w.text(kp.Text, segs[1:])
		if err != nil {
			return kp, err
		}
		return kp.WithText(text), nil
	case "sub_goals":
		if kp.IsPlain() && len(segs) > 1 {
			return kp, &PathError{Path: w.path, Segment: segs[0], Reason: "plain key point has no sub goals"}
		}
		subs, err := w.strings(kp.SubGoals, segs[1:])
		if err != nil {
			return kp, err
		}
		// Assigning the whole list turns a plain key point into an object.
		kp.Kind = types.KeyPointObject
		kp.SubGoals = subs
		return kp, nil
	}
	return kp, w.unknown(segs[0])
}

func (w *walker) keyPointValue(v any) (types.KeyPoint, error) {
	switch x := v.(type) {
	case types.KeyPoint:
		return x, nil
	case string:
		return types.Plain(x), nil
	case json.RawMessage:
		var kp types.KeyPoint
		if err := json.Unmarshal(x, &kp); err != nil {
			return kp, &TypeError{Path: w.path, Want: "key point", Got: v}
		}
		return kp, nil
	}
	return types.KeyPoint{}, &TypeError{Path: w.path, Want: "key point", Got: v}
}

func (w *walker) strings(list []string, segs []string) ([]string, error) {
	if len(segs) == 0 {
		v, err := w.fn(list)
		if err != nil {
			return nil, err
		}
		return coerce[[]string](w.path, "string list", v)
	}
	i, err := w.index(segs[0], len(list))
	if err != nil {
		return nil, err
	}
	s, err := w.text(list[i], segs[1:])
	if err != nil {
		return nil, err
	}
	return replaceAt(list, i, s), nil
}

func (w *walker) text(cur string, segs []string) (string, error) {
	if len(segs) > 0 {
		return "", &PathError{Path: w.path, Segment: segs[0], Reason: "text has no children"}
	}
	v, err := w.fn(cur)
	if err != nil {
		return "", err
	}
	return coerce[string](w.path, "text", v)
}
