// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package goalstore

import "fmt"

// PathError reports a path that does not resolve: an unknown field, an index
// out of range, or a segment below a value that has no children.
type PathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("goal path %q: segment %q: %s", e.Path, e.Segment, e.Reason)
}

// NotAnArrayError reports an insert or remove whose target is not an element
// of an array.
type NotAnArrayError struct {
	Path string
}

func (e *NotAnArrayError) Error() string {
	return fmt.Sprintf("goal path %q does not address an array element", e.Path)
}

// TypeError reports a value that cannot be stored at the addressed location.
type TypeError struct {
	Path string
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("goal path %q: want %s, got %T", e.Path, e.Want, e.Got)
}
