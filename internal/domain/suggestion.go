package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Suggestion kinds emitted by the context engine.
const (
	SuggestionAutomation = "automation"
	SuggestionAlternative = "alternative"
	SuggestionPreference = "preference"
)

// Suggestion is a proactive hint derived from session context. Suggestions
// are ephemeral; they are recomputed on each request and never stored.
type Suggestion struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Benefit     string  `json:"benefit"`
	Confidence  float64 `json:"confidence"`
}

// PatternCommandSequence is the only pattern kind currently detected.
const PatternCommandSequence = "command_sequence"

// SequencePattern describes a repeating contiguous run of intent types,
// a candidate for automation. Ephemeral, like Suggestion.
type SequencePattern struct {
	Type           string    `json:"type"`
	Commands       []string  `json:"commands"`
	Frequency      int       `json:"frequency"`
	LastOccurrence time.Time `json:"last_occurrence"`
	Description    string    `json:"description"`
}

// CorrectionPair records that the user corrected one phrasing to another.
// Both sides are stored lower-cased. The pair serializes as a two-element
// JSON array to keep the stored preference shape stable.
type CorrectionPair struct {
	Original  string
	Corrected string
}

// MarshalJSON encodes the pair as ["original","corrected"].
func (c CorrectionPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{c.Original, c.Corrected})
}

// UnmarshalJSON decodes the two-element array form.
func (c *CorrectionPair) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("correction pair: %w", err)
	}
	c.Original, c.Corrected = pair[0], pair[1]
	return nil
}
