// Package voice classifies recognized speech phrases from the external
// speech-recognition collaborator.
package voice

import "strings"

// Kind is the interpretation of one recognized phrase.
type Kind int

const (
	// KindUnknown is any phrase outside the registered set. Logged, ignored.
	KindUnknown Kind = iota
	// KindDescribe triggers the pending image question.
	KindDescribe
	// KindConfirm plays a confirmation cue in any state.
	KindConfirm
)

// Matcher matches phrases case-insensitively against the registered
// describe/confirm triggers. Matching is exact after trimming; the speech
// collaborator owns fuzzy recognition.
type Matcher struct {
	describe string
	confirm  string
}

// NewMatcher builds a matcher for the configured trigger phrases.
func NewMatcher(describe, confirm string) Matcher {
	return Matcher{
		describe: normalize(describe),
		confirm:  normalize(confirm),
	}
}

// Match classifies one recognized phrase.
func (m Matcher) Match(phrase string) Kind {
	switch normalize(phrase) {
	case m.describe:
		return KindDescribe
	case m.confirm:
		return KindConfirm
	default:
		return KindUnknown
	}
}

// Phrases returns the phrase set the speech collaborator should register.
// The session advertises it in status replies on the control socket.
func (m Matcher) Phrases() []string {
	return []string{m.describe, m.confirm}
}

func normalize(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}
