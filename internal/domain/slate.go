package domain

import (
	"fmt"
	"time"
)

// SlotCount is the number of candidate slots in every slate.
const SlotCount = 3

// Slate is one word-selection moment offered to a player.
// A nil slot means the eligible pool had fewer than SlotCount words.
type Slate struct {
	ID         string
	Candidates [SlotCount]*WordRef
	CreatedAt  time.Time
}

// Words returns the non-empty candidates in slot order.
func (s Slate) Words() []WordRef {
	out := make([]WordRef, 0, SlotCount)
	for _, c := range s.Candidates {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// Candidate returns the slot whose word matches word case-insensitively.
func (s Slate) Candidate(word string) (WordRef, bool) {
	word = NormalizeWord(word)
	for _, c := range s.Candidates {
		if c != nil && NormalizeWord(c.Word) == word {
			return *c, true
		}
	}
	return WordRef{}, false
}

// Action is a player interaction with a slate reported by the client.
type Action string

const (
	ActionImpression Action = "impression"
	ActionClick      Action = "click"
	ActionPublish    Action = "publish"
)

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionImpression, ActionClick, ActionPublish:
		return a, nil
	default:
		return "", fmt.Errorf("unknown slate action %q", raw)
	}
}

// Field returns the counter an action increments.
func (a Action) Field() CounterField {
	switch a {
	case ActionClick:
		return FieldPicked
	case ActionPublish:
		return FieldPosted
	default:
		return FieldServed
	}
}

// SlateActionEvent is a tracked action against an issued slate.
type SlateActionEvent struct {
	SlateID   string
	Action    Action
	Word      string
	Metadata  map[string]any
	Timestamp time.Time
}

// Outcome is a gameplay result attributed to a word after it was drawn.
type Outcome string

const (
	OutcomeGuess Outcome = "guess"
	OutcomeSkip  Outcome = "skip"
	OutcomeSolve Outcome = "solve"
)

// ParseOutcome validates a raw outcome name.
func ParseOutcome(raw string) (Outcome, error) {
	switch o := Outcome(raw); o {
	case OutcomeGuess, OutcomeSkip, OutcomeSolve:
		return o, nil
	default:
		return "", fmt.Errorf("unknown word outcome %q", raw)
	}
}

// Field returns the counter an outcome increments.
func (o Outcome) Field() CounterField {
	switch o {
	case OutcomeSkip:
		return FieldSkips
	case OutcomeSolve:
		return FieldSolves
	default:
		return FieldGuesses
	}
}
