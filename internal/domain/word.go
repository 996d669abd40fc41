package domain

import "strings"

// CounterField names one engagement counter tracked per word.
type CounterField string

const (
	FieldServed  CounterField = "served"
	FieldPicked  CounterField = "picked"
	FieldPosted  CounterField = "posted"
	FieldGuesses CounterField = "guesses"
	FieldSkips   CounterField = "skips"
	FieldSolves  CounterField = "solves"
)

// CounterFields lists every counter in storage column order.
var CounterFields = []CounterField{FieldServed, FieldPicked, FieldPosted, FieldGuesses, FieldSkips, FieldSolves}

// Valid reports whether f is one of the known counters.
func (f CounterField) Valid() bool {
	for _, known := range CounterFields {
		if f == known {
			return true
		}
	}
	return false
}

// Counters are the monotonically non-decreasing engagement counts of a word.
type Counters struct {
	Served  int64 `json:"served"`
	Picked  int64 `json:"picked"`
	Posted  int64 `json:"posted"`
	Guesses int64 `json:"guesses"`
	Skips   int64 `json:"skips"`
	Solves  int64 `json:"solves"`
}

// Get returns the value of a single counter.
func (c Counters) Get(f CounterField) int64 {
	switch f {
	case FieldServed:
		return c.Served
	case FieldPicked:
		return c.Picked
	case FieldPosted:
		return c.Posted
	case FieldGuesses:
		return c.Guesses
	case FieldSkips:
		return c.Skips
	case FieldSolves:
		return c.Solves
	default:
		return 0
	}
}

// Add increments a single counter by delta.
func (c *Counters) Add(f CounterField, delta int64) {
	switch f {
	case FieldServed:
		c.Served += delta
	case FieldPicked:
		c.Picked += delta
	case FieldPosted:
		c.Posted += delta
	case FieldGuesses:
		c.Guesses += delta
	case FieldSkips:
		c.Skips += delta
	case FieldSolves:
		c.Solves += delta
	}
}

// WordRef identifies a word offered to players and the dictionary it came from.
type WordRef struct {
	Word       string `json:"word"`
	Dictionary string `json:"dictionaryName"`
}

// WordRecord is a dictionary word together with its counters.
// Words without stored counters are represented with zero Counters.
type WordRecord struct {
	WordRef
	Counters Counters
}

// NormalizeWord returns the case-insensitive identity of a word:
// trimmed, lower-cased and with inner whitespace collapsed to single spaces.
func NormalizeWord(word string) string {
	return strings.Join(strings.Fields(strings.ToLower(word)), " ")
}
