// Package nlp implements the command-understanding core: an ordered intent
// pattern table, a keyword-and-rule intent classifier, and a generic entity
// extractor. The table is built once and never mutated at runtime.
package nlp

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/parley-ai/parley/assets"
)

// IntentPattern declares the trigger keywords, expected entity types, and
// ordered regular-expression rules for one intent category.
type IntentPattern struct {
	Intent      string   `yaml:"intent"`
	Keywords    []string `yaml:"keywords"`
	EntityTypes []string `yaml:"entity_types"`
	Rules       []string `yaml:"rules"`
}

type patternsFile struct {
	Patterns []IntentPattern `yaml:"patterns"`
}

// compiledPattern is an IntentPattern with its rules compiled.
type compiledPattern struct {
	intent      string
	keywords    []string
	entityTypes []string
	rules       []*regexp.Regexp
}

// PatternTable is the compiled, ordered rule set consumed by the Parser.
// Category order is the declaration order; classification tie-breaking
// depends on it, so the table is a slice rather than a map.
type PatternTable struct {
	patterns []compiledPattern
}

// NewPatternTable compiles the given patterns, preserving order.
func NewPatternTable(patterns []IntentPattern) (*PatternTable, error) {
	table := &PatternTable{patterns: make([]compiledPattern, 0, len(patterns))}
	for _, p := range patterns {
		cp := compiledPattern{
			intent:      p.Intent,
			keywords:    p.Keywords,
			entityTypes: p.EntityTypes,
		}
		for _, rule := range p.Rules {
			re, err := regexp.Compile(rule)
			if err != nil {
				return nil, fmt.Errorf("compile rule %q for intent %q: %w", rule, p.Intent, err)
			}
			cp.rules = append(cp.rules, re)
		}
		table.patterns = append(table.patterns, cp)
	}
	return table, nil
}

// ParsePatternTable builds a table from yaml bytes.
func ParsePatternTable(data []byte) (*PatternTable, error) {
	var file patternsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pattern table: %w", err)
	}
	return NewPatternTable(file.Patterns)
}

// LoadPatternTable reads a yaml pattern file from disk.
func LoadPatternTable(path string) (*PatternTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern table: %w", err)
	}
	return ParsePatternTable(data)
}

// DefaultPatternTable returns the embedded default table. The embedded yaml
// is validated by tests; a failure to compile it is a programming error.
func DefaultPatternTable() *PatternTable {
	table, err := ParsePatternTable(assets.DefaultPatternsYAML)
	if err != nil {
		panic(fmt.Sprintf("nlp: embedded pattern table invalid: %v", err))
	}
	return table
}

// EntityTypes returns the declared entity types for an intent, or nil when
// the intent is not in the table.
func (t *PatternTable) EntityTypes(intent string) []string {
	for _, p := range t.patterns {
		if p.intent == intent {
			return p.entityTypes
		}
	}
	return nil
}
