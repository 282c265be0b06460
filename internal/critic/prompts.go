// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package critic

import (
	"fmt"
	"regexp"
)

// Kind names a critic prompt.
type Kind string

const (
	KindMetadata   Kind = "metadata"
	KindObjective  Kind = "objective"
	KindContent    Kind = "content_judge"
	KindReview     Kind = "review_judge"
	KindSummary    Kind = "summary"
	KindSuggestion Kind = "suggestion"
)

// Vars maps placeholder names to values. Values are rendered with fmt.Sprint.
type Vars map[string]any

// Placeholder names used by the prompt templates.
const (
	VarIdea               = "idea"
	VarDescription        = "description"
	VarKeyPoint           = "key_point"
	VarCurrentText        = "current_text"
	VarProblemDescription = "problem_description"
	VarSternness          = "sternness"
)

// prompts holds one template per kind. {name} placeholders are substituted
// by Render.
var prompts = map[Kind]string{
	KindMetadata: `From the paper idea below, propose a working title, a target conference or journal, and five to seven keywords.
IDEA: "{idea}"
Respond with a JSON object only, with keys "working_title" (string), "target_venue" (string), and "keywords" (array of strings).`,

	KindObjective: `From the section description below, write a one-sentence objective for the section and a list of the key points the section must make.
DESCRIPTION: "{description}"
Respond with a JSON object only, with keys "objective" (string) and "key_points" (array of strings).`,

	KindContent: `You judge whether a passage of academic writing achieves a stated goal.
First split [TEXT] into sentences and number them from 1. Use the numbers to cite sentences; do not output the list.
Label each cited sentence with its natural-language-inference relation to the goal: entailment, contradiction, or neutral.
Score alignment from 1 (unrelated or contradicted) to 5 (fully achieved).
Respond with a JSON object only, with keys: score (integer 1-5), statement (one sentence), reason (one or two sentences citing sentence numbers), evidence (array of {"sentence_id": <int>, "sentence": "<text>", "relation": "<label>"}).
[GOAL]: "{key_point}"
[TEXT]: "{current_text}"`,

	KindReview: `You are a peer reviewer for a research venue. Review the passage below as a reviewer would, with {sternness} strictness.
First split [TEXT TO REVIEW] into sentences and number them from 1. Use the numbers to cite sentences; do not output the list.
Consider originality, soundness, comparison with prior work, replicability, and substance.
Score the passage from 1 (reject) to 5 (strong accept).
Respond with a JSON object only, with keys: score (integer 1-5), statement (one-sentence verdict), reason (one or two sentences citing sentence numbers), evidence (array of {"sentence_id": <int>, "sentence": "<text>", "dimension": "<originality|soundness|comparison|replicability|substance>"}).
[KEY POINT CONTEXT]: "{key_point}"
[TEXT TO REVIEW]: "{current_text}"`,

	KindSummary: `You assist a researcher while they write. Say briefly and encouragingly whether the text achieves the goal: how it does, or what is missing.
[GOAL]: "{key_point}"
[USER TEXT]: "{current_text}"
Respond with a JSON object only, with the single key "summary_text".`,

	KindSuggestion: `You coach academic writers. The text below falls short of its goal.
[GOAL]: "{key_point}"
[TEXT]: "{current_text}"
[PROBLEM]: "{problem_description}"
Explain why the text is failing and give one actionable piece of advice.
Respond with a JSON object only, with keys "state_description" and "suggestion".`,
}

// Template returns the prompt template for kind.
func Template(kind Kind) (string, bool) {
	t, ok := prompts[kind]
	return t, ok
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render replaces every {name} in tmpl with fmt.Sprint(vars[name]) in a
// single pass, so substituted values are never rescanned. Placeholders with
// no entry in vars are left as written.
func Render(tmpl string, vars Vars) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := vars[name]
		if !ok {
			return m
		}
		return fmt.Sprint(v)
	})
}
