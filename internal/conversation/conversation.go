// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package conversation runs the guided chat that builds a goal structure:
// paper idea, number of sections, then a name and a description for each
// section, ending in a plan the writer confirms.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/goalwriter/internal/events"
	"github.com/pdiddy/goalwriter/internal/goalstore"
	"github.com/pdiddy/goalwriter/pkg/types"
)

// State is a step of the chat.
type State string

const (
	AwaitingInitialIdea                 State = "awaiting_initial_idea"
	AwaitingSectionCount                State = "awaiting_section_count"
	AwaitingSectionName                 State = "awaiting_section_name"
	AwaitingSectionObjectiveDescription State = "awaiting_section_objective_description"
	Finalizing                          State = "finalizing"
)

// MaxSections is the largest accepted section count.
const MaxSections = 14

var (
	// ErrInvalidInput is returned for a section count outside [1, MaxSections].
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy is returned when a message arrives while another is in flight.
	ErrBusy = errors.New("conversation is busy")

	// ErrNotFinalizing is returned by Confirm before the plan is complete,
	// and by Send once it is.
	ErrNotFinalizing = errors.New("goal setting is not finalizing")

	// ErrInvalidRawJSON is returned by EditRaw and Confirm while the raw
	// edit buffer does not parse.
	ErrInvalidRawJSON = errors.New("raw goal structure is not valid JSON")
)

// Assistant lines.
const (
	Greeting          = "Hello! I'm your Writing Assistant. To begin, please tell me your initial paper idea."
	askSectionCount   = "Thanks! I've populated the metadata. Now, how many main sections will your paper have?"
	askCountAgain     = "Please enter a valid number of sections, between 1 and 14."
	askFirstName      = "Great. What is the title of Section 1?"
	askDescriptionFmt = "Got it. Now, please briefly describe the main goal of the %s section."
	askNextNameFmt    = "Excellent. What is the title of Section %d?"
	planComplete      = "Great! The initial plan is complete. Please review it, then confirm to start writing."
)

// Planner drafts metadata and section plans. *critic.Client satisfies it.
type Planner interface {
	Metadata(ctx context.Context, idea string) (types.Metadata, error)
	Objective(ctx context.Context, description string) (types.SectionPlan, error)
}

// Recorder records interaction events. events.UserRecorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, name string, details map[string]any)
}

// Role identifies the speaker of a chat message.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is one chat line.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Reply is the outcome of one Send.
type Reply struct {
	State    State     `json:"state"`
	Messages []Message `json:"messages"`
}

// Conversation writes into a goal store as the chat progresses.
type Conversation struct {
	store    *goalstore.Store
	planner  Planner
	recorder Recorder
	log      *zap.Logger

	mu         sync.Mutex
	state      State
	total      int
	current    int
	busy       bool
	transcript []Message
	raw        string
	rawValid   bool
}

// New starts a conversation at the initial-idea step.
func New(store *goalstore.Store, planner Planner, recorder Recorder, log *zap.Logger) *Conversation {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conversation{
		store:      store,
		planner:    planner,
		recorder:   recorder,
		log:        log,
		state:      AwaitingInitialIdea,
		transcript: []Message{{Role: RoleAssistant, Text: Greeting}},
		rawValid:   true,
	}
}

// State returns the current step.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns every message so far, starting with the greeting.
func (c *Conversation) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.transcript...)
}

// Progress returns the zero-based index of the section being set up and the
// total section count (zero until the count is given).
func (c *Conversation) Progress() (current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.total
}

// Send handles one user message. Blank messages are ignored. A section
// count outside [1, MaxSections] re-prompts and returns ErrInvalidInput
// with the state unchanged. Planner failures do not stop the chat: the
// affected fields are left empty and the chat moves on.
func (c *Conversation) Send(ctx context.Context, text string) (Reply, error) {
	input := strings.TrimSpace(text)

	c.mu.Lock()
	if input == "" {
		defer c.mu.Unlock()
		return Reply{State: c.state}, nil
	}
	if c.busy {
		defer c.mu.Unlock()
		return Reply{State: c.state}, ErrBusy
	}
	if c.state == Finalizing {
		defer c.mu.Unlock()
		return Reply{State: c.state}, ErrNotFinalizing
	}
	c.busy = true
	c.transcript = append(c.transcript, Message{Role: RoleUser, Text: text})
	state, idx := c.state, c.current
	c.mu.Unlock()

	var (
		next    State
		say     string
		inErr   error
		section int
	)
	switch state {
	case AwaitingInitialIdea:
		c.setMetadata(ctx, text)
		next, say = AwaitingSectionCount, askSectionCount
	case AwaitingSectionCount:
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > MaxSections {
			next, say, inErr = state, askCountAgain, fmt.Errorf("section count %q: %w", input, ErrInvalidInput)
			break
		}
		section = n
		next, say = AwaitingSectionName, askFirstName
	case AwaitingSectionName:
		c.setSectionName(idx, text)
		next, say = AwaitingSectionObjectiveDescription, fmt.Sprintf(askDescriptionFmt, text)
	case AwaitingSectionObjectiveDescription:
		c.setObjective(ctx, idx, text)
		next = AwaitingSectionName
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	switch state {
	case AwaitingSectionCount:
		if inErr == nil {
			c.total = section
			c.current = 0
		}
	case AwaitingSectionObjectiveDescription:
		c.current++
		if c.current < c.total {
			say = fmt.Sprintf(askNextNameFmt, c.current+1)
		} else {
			next, say = Finalizing, planComplete
		}
	}
	c.state = next
	c.rawValid = true
	c.raw = ""
	msg := Message{Role: RoleAssistant, Text: say}
	c.transcript = append(c.transcript, msg)
	return Reply{State: next, Messages: []Message{msg}}, inErr
}

func (c *Conversation) setMetadata(ctx context.Context, idea string) {
	m, err := c.planner.Metadata(ctx, idea)
	if err != nil {
		c.log.Warn("drafting metadata failed", zap.Error(err))
		m = types.Metadata{Keywords: []string{}}
	}
	if _, err := c.store.Set("metadata", m); err != nil {
		c.log.Error("storing metadata", zap.Error(err))
	}
}

func (c *Conversation) setSectionName(idx int, name string) {
	_, err := c.store.Update("paper_outline", func(cur any) (any, error) {
		list, _ := cur.([]types.Section)
		out := make([]types.Section, max(len(list), idx+1))
		copy(out, list)
		for i := len(list); i < idx; i++ {
			out[i] = types.Section{KeyPoints: []types.KeyPoint{}}
		}
		out[idx] = types.Section{SectionName: name, KeyPoints: []types.KeyPoint{}}
		return out, nil
	})
	if err != nil {
		c.log.Error("storing section name", zap.Int("section", idx), zap.Error(err))
	}
}

func (c *Conversation) setObjective(ctx context.Context, idx int, description string) {
	plan, err := c.planner.Objective(ctx, description)
	if err != nil {
		c.log.Warn("drafting objective failed", zap.Int("section", idx), zap.Error(err))
	}
	keyPoints := make([]types.KeyPoint, 0, len(plan.KeyPoints))
	for _, kp := range plan.KeyPoints {
		keyPoints = append(keyPoints, types.Plain(kp))
	}
	// The path is resolved now, against whatever the outline looks like
	// after the planner call returned.
	_, err = c.store.Update("paper_outline."+strconv.Itoa(idx), func(cur any) (any, error) {
		sec := cur.(types.Section)
		sec.Objective = plan.Objective
		sec.KeyPoints = keyPoints
		return sec, nil
	})
	if err != nil {
		c.log.Error("storing objective", zap.Int("section", idx), zap.Error(err))
	}
}

// RawJSON returns the raw edit buffer while it holds invalid JSON, and the
// current structure as indented JSON otherwise.
func (c *Conversation) RawJSON() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.rawValid {
		return c.raw
	}
	out, err := json.MarshalIndent(c.store.Current(), "", "  ")
	if err != nil {
		return c.raw
	}
	return string(out)
}

// RawValid reports whether the raw edit buffer parses.
func (c *Conversation) RawValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawValid
}

// EditRaw replaces the structure with the parsed text. Invalid JSON is kept
// in the buffer, leaves the structure unchanged, and blocks Confirm until a
// valid edit arrives.
func (c *Conversation) EditRaw(text string) error {
	var g types.GoalStructure
	err := json.Unmarshal([]byte(text), &g)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = text
	if err != nil {
		c.rawValid = false
		return fmt.Errorf("%w: %v", ErrInvalidRawJSON, err)
	}
	if g.Metadata.Keywords == nil {
		g.Metadata.Keywords = []string{}
	}
	if g.PaperOutline == nil {
		g.PaperOutline = []types.Section{}
	}
	c.rawValid = true
	c.store.Replace(&g)
	return nil
}

// Confirm finishes goal setting and returns the agreed structure.
func (c *Conversation) Confirm(ctx context.Context) (*types.GoalStructure, error) {
	c.mu.Lock()
	state, valid := c.state, c.rawValid
	c.mu.Unlock()

	if state != Finalizing {
		return nil, ErrNotFinalizing
	}
	if !valid {
		return nil, ErrInvalidRawJSON
	}
	g := c.store.Current()
	if c.recorder != nil {
		c.recorder.Record(ctx, events.GoalSettingConfirmed, map[string]any{
			"sections": len(g.PaperOutline),
			"goals":    len(goalstore.Flatten(g)),
		})
	}
	return g, nil
}
