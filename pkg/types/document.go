// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Document is the unit persisted per user: the goal structure and the editor
// text. Its JSON layout, with exactly these two top-level fields, is the only
// persisted format.
type Document struct {
	GoalStructure *GoalStructure `json:"goalStructure"`
	EditorText    string         `json:"editorText"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{GoalStructure: NewGoalStructure()}
}

// DocumentPatch is a partial write. Nil fields leave the stored value as is.
type DocumentPatch struct {
	GoalStructure *GoalStructure
	EditorText    *string
}

// IsEmpty reports whether the patch would change nothing.
func (p DocumentPatch) IsEmpty() bool {
	return p.GoalStructure == nil && p.EditorText == nil
}

// Apply merges the patch into d and returns the result. d may be nil.
func (p DocumentPatch) Apply(d *Document) *Document {
	out := NewDocument()
	if d != nil {
		out.EditorText = d.EditorText
		if d.GoalStructure != nil {
			out.GoalStructure = d.GoalStructure
		}
	}
	if p.GoalStructure != nil {
		out.GoalStructure = p.GoalStructure
	}
	if p.EditorText != nil {
		out.EditorText = *p.EditorText
	}
	return out
}
