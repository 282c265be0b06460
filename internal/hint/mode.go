// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hint

import (
	"fmt"
	"strings"
	"time"
)

// Mode sets how eagerly hints surface: the number of edits that must
// accumulate and the pause after the last edit before the check runs.
type Mode struct {
	Name      string        `json:"name"`
	Threshold int           `json:"threshold"`
	Delay     time.Duration `json:"delay"`
	Disabled  bool          `json:"disabled"`
}

// Built-in modes.
var (
	ModeStrict   = Mode{Name: "strict", Threshold: 3, Delay: 300 * time.Millisecond}
	ModeLenient  = Mode{Name: "lenient", Threshold: 7, Delay: 500 * time.Millisecond}
	ModeDisabled = Mode{Name: "disabled", Disabled: true}
)

// ParseMode resolves a mode name. "standard", "weak" and "none" are accepted
// as aliases of strict, lenient and disabled.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "strict", "standard", "":
		return ModeStrict, nil
	case "lenient", "weak":
		return ModeLenient, nil
	case "disabled", "none", "off":
		return ModeDisabled, nil
	}
	return Mode{}, fmt.Errorf("unknown hint mode %q", name)
}
