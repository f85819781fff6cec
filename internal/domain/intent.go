// Package domain defines core business entities and value objects for Parley.
//
// The domain layer is independent of infrastructure concerns and represents
// pure data structures: intents, entities, commands, sessions, and the
// suggestion/pattern types produced by the context engine.
package domain

// IntentUnknown is the sentinel intent type returned when no category matched.
const IntentUnknown = "unknown"

// Entity types produced by the classifier and the generic extractor.
const (
	EntityNumber           = "number"
	EntityFilePath         = "file_path"
	EntityQuotedString     = "quoted_string"
	EntityApplication      = "application"
	EntityDirection        = "direction"
	EntityGeneric          = "generic"
	EntityReferencedOutput = "referenced_output"
)

// Entity is a typed value extracted from command text. Entities are
// immutable once produced.
type Entity struct {
	Type       string  `json:"type"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Intent is the structured interpretation of one utterance. Confidence is
// always within [0,1]; NeedsClarification is set whenever the confidence is
// below 0.5, the type is IntentUnknown, or the matched category expects
// entities and none were extracted.
type Intent struct {
	Type               string   `json:"type"`
	Entities           []Entity `json:"entities"`
	Confidence         float64  `json:"confidence"`
	NeedsClarification bool     `json:"needs_clarification"`
}
