// Package services contains the context engine: the use-case layer that
// turns raw utterances into context-adjusted intents and maintains
// per-session conversational state.
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/internal/domain"
	"github.com/parley-ai/parley/internal/nlp"
	"github.com/parley-ai/parley/internal/ports"
)

// Confidence-boost arithmetic; empirically tuned, preserved exactly.
const (
	boostThreshold = 0.6
	boostStep      = 0.2
	boostCap       = 0.8
)

// referencePhrases are scanned (substring containment, in this order) when
// rewriting references out of command text.
var referencePhrases = []string{
	"it", "that", "this", "them", "those", "these",
	"the previous one", "the last one", "previous", "last",
}

// pronouns must match a reference exactly for it to resolve.
var pronouns = map[string]struct{}{
	"it": {}, "that": {}, "this": {}, "them": {}, "those": {}, "these": {},
}

// previousPhrases match a reference by substring containment.
var previousPhrases = []string{
	"the previous one", "the last one", "previous", "last",
}

// referentEntityTypes are the entity kinds a reference may resolve to, in
// resolution priority.
var referentEntityTypes = map[string]struct{}{
	"file_path": {}, "application": {}, "file_name": {},
	"quoted_string": {}, "process_name": {}, "network_name": {},
	"device_name": {},
}

// ContextEngine layers conversational context over the intent parser:
// learned correction rewriting, reference resolution, history-driven
// confidence boosts, repetition detection, and proactive suggestions.
//
// The correction list and type buffer are per-user in-memory caches over
// the durable preference store, hydrated lazily on first access per user;
// the type buffer is rebuilt from nothing on restart. The engine is
// synchronous and assumes one caller per session at a time; independent
// users may be processed concurrently only if the backing stores are safe
// for concurrent access by user key.
type ContextEngine struct {
	Parser      *nlp.Parser
	Preferences ports.PreferenceStore
	Sessions    ports.SessionStore
	Usage       ports.UsageStore
	Logger      ports.Logger

	// Now supplies timestamps; overridable in tests.
	Now func() time.Time

	corrections map[string][]domain.CorrectionPair
	typeBuffer  map[string][]typedEvent
}

// typedEvent is one type-buffer entry: when a command completed and what
// intent type it carried.
type typedEvent struct {
	At     time.Time
	Intent string
}

// NewContextEngine wires a context engine over its collaborators.
func NewContextEngine(
	parser *nlp.Parser,
	preferences ports.PreferenceStore,
	sessions ports.SessionStore,
	usage ports.UsageStore,
	log ports.Logger,
) *ContextEngine {
	return &ContextEngine{
		Parser:      parser,
		Preferences: preferences,
		Sessions:    sessions,
		Usage:       usage,
		Logger:      log,
		Now:         time.Now,
		corrections: make(map[string][]domain.CorrectionPair),
		typeBuffer:  make(map[string][]typedEvent),
	}
}

// NewSession starts a fresh session for a user.
func (e *ContextEngine) NewSession(userID string) *domain.Session {
	return &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartTime: e.Now(),
	}
}

// EndSession stamps the end time and persists the session.
func (e *ContextEngine) EndSession(session *domain.Session) error {
	end := e.Now()
	session.EndTime = &end
	if err := e.Sessions.Save(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ProcessCommand parses one utterance with session context: learned
// corrections are applied first, then references are rewritten, then the
// result is classified and its confidence adjusted from recent history.
// Nothing is persisted. The only error source is correction hydration from
// the preference store.
func (e *ContextEngine) ProcessCommand(text string, session *domain.Session) (domain.Intent, error) {
	corrected, err := e.applyCorrections(text, session.UserID)
	if err != nil {
		return domain.Intent{}, err
	}

	resolved := e.resolveTextReferences(corrected, session)

	intent := e.Parser.Parse(resolved)
	e.boostFromHistory(&intent, session)

	e.Logger.Debug("command processed", map[string]interface{}{
		"intent":     intent.Type,
		"confidence": intent.Confidence,
	})
	return intent, nil
}

// applyCorrections rewrites the lower-cased text with every stored pair in
// storage order; later pairs can act on text already rewritten by earlier
// ones. When no pair fires the original-cased text passes through.
func (e *ContextEngine) applyCorrections(text, userID string) (string, error) {
	pairs, err := e.loadCorrections(userID)
	if err != nil {
		return "", err
	}

	corrected := strings.ToLower(text)
	for _, pair := range pairs {
		if strings.Contains(corrected, pair.Original) {
			corrected = strings.ReplaceAll(corrected, pair.Original, pair.Corrected)
		}
	}

	if corrected == strings.ToLower(text) {
		return text, nil
	}
	return corrected, nil
}

// loadCorrections returns the user's correction list, hydrating the cache
// from the preference store on first access.
func (e *ContextEngine) loadCorrections(userID string) ([]domain.CorrectionPair, error) {
	if pairs, ok := e.corrections[userID]; ok {
		return pairs, nil
	}

	raw, found, err := e.Preferences.Get(domain.PrefKeyCorrections, userID)
	if err != nil {
		return nil, fmt.Errorf("load corrections: %w", err)
	}
	var pairs []domain.CorrectionPair
	if found {
		if err := json.Unmarshal(raw, &pairs); err != nil {
			return nil, fmt.Errorf("decode corrections: %w", err)
		}
	}
	e.corrections[userID] = pairs
	return pairs, nil
}

// resolveTextReferences replaces reference phrases found in the text with
// values resolved from session history. Replacement tries the phrase
// as-is, capitalized, and upper-cased to follow the user's casing.
func (e *ContextEngine) resolveTextReferences(text string, session *domain.Session) string {
	lower := strings.ToLower(text)
	for _, phrase := range referencePhrases {
		if !strings.Contains(lower, phrase) {
			continue
		}
		entity, ok := e.ResolveReference(phrase, session)
		if !ok {
			continue
		}
		value := fmt.Sprint(entity.Value)
		text = strings.ReplaceAll(text, phrase, value)
		text = strings.ReplaceAll(text, capitalize(phrase), value)
		text = strings.ReplaceAll(text, strings.ToUpper(phrase), value)
	}
	return text
}

// ResolveReference resolves a pronoun or "previous" phrase to a concrete
// entity from session history, most recent record first. Within a record,
// entities are scanned in their original order; low-confidence entities are
// skipped, and only referent-worthy kinds qualify. A record with no
// qualifying entity can still resolve through its result: short non-empty
// output of a successful command becomes a referenced_output entity.
func (e *ContextEngine) ResolveReference(reference string, session *domain.Session) (domain.Entity, bool) {
	ref := strings.ToLower(strings.TrimSpace(reference))

	_, isPronoun := pronouns[ref]
	isPrevious := false
	for _, phrase := range previousPhrases {
		if strings.Contains(ref, phrase) {
			isPrevious = true
			break
		}
	}
	if !isPronoun && !isPrevious {
		return domain.Entity{}, false
	}

	for i := len(session.History) - 1; i >= 0; i-- {
		record := session.History[i]
		for _, entity := range record.Command.Intent.Entities {
			if entity.Confidence < 0.5 {
				continue
			}
			if _, ok := referentEntityTypes[entity.Type]; ok {
				return entity, true
			}
		}

		if record.Result.Success && record.Result.Output != "" {
			output := strings.TrimSpace(record.Result.Output)
			if output != "" && len(output) < domain.MaxReferencedOutputLen {
				return domain.Entity{
					Type:       domain.EntityReferencedOutput,
					Value:      output,
					Confidence: 0.7,
				}, true
			}
		}
	}

	return domain.Entity{}, false
}

// AddToHistory appends a completed command and its result to the session,
// records the intent type in the user's type buffer, and persists the
// session.
func (e *ContextEngine) AddToHistory(command domain.Command, result domain.CommandResult, session *domain.Session) error {
	now := e.Now()
	session.History = append(session.History, domain.CommandRecord{
		Command:   command,
		Result:    result,
		Timestamp: now,
	})

	buffer := append(e.typeBuffer[session.UserID], typedEvent{At: now, Intent: command.Intent.Type})
	if len(buffer) > domain.TypeBufferSize {
		buffer = buffer[len(buffer)-domain.TypeBufferSize:]
	}
	e.typeBuffer[session.UserID] = buffer

	if err := e.Sessions.Save(session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LearnCorrection records that the user corrected one phrasing to another.
// Both sides are stored lower-cased; the list is capped at
// domain.MaxCorrections (oldest dropped) and persisted to the preference
// store in full.
func (e *ContextEngine) LearnCorrection(original, corrected string, session *domain.Session) error {
	userID := session.UserID
	pairs, err := e.loadCorrections(userID)
	if err != nil {
		return err
	}

	pairs = append(pairs, domain.CorrectionPair{
		Original:  strings.ToLower(original),
		Corrected: strings.ToLower(corrected),
	})
	if len(pairs) > domain.MaxCorrections {
		pairs = pairs[len(pairs)-domain.MaxCorrections:]
	}
	e.corrections[userID] = pairs

	if err := e.Preferences.Set(domain.PrefKeyCorrections, pairs, userID); err != nil {
		return fmt.Errorf("persist corrections: %w", err)
	}
	return nil
}

// DetectRepetition scans the user's type buffer for a contiguous sequence
// of 2 to 4 intent types repeated at least domain.RepeatThreshold times
// within the most recent domain.PatternWindow entries. Shorter sequences
// win over longer ones; among equal lengths the first-seen sequence wins.
func (e *ContextEngine) DetectRepetition(session *domain.Session) (domain.SequencePattern, bool) {
	buffer := e.typeBuffer[session.UserID]
	if len(buffer) < domain.MinBufferForDetection {
		return domain.SequencePattern{}, false
	}

	recent := buffer
	if len(recent) > domain.PatternWindow {
		recent = recent[len(recent)-domain.PatternWindow:]
	}

	for length := 2; length <= 4; length++ {
		type group struct {
			commands []string
			times    []time.Time
		}
		groups := make(map[string]*group)
		var order []string // first-seen key order; map iteration would not preserve it

		for i := 0; i+length <= len(recent); i++ {
			commands := make([]string, length)
			for j := 0; j < length; j++ {
				commands[j] = recent[i+j].Intent
			}
			key := strings.Join(commands, "\x1f")
			g, ok := groups[key]
			if !ok {
				g = &group{commands: commands}
				groups[key] = g
				order = append(order, key)
			}
			g.times = append(g.times, recent[i].At)
		}

		for _, key := range order {
			g := groups[key]
			if len(g.times) < domain.RepeatThreshold {
				continue
			}
			last := g.times[0]
			for _, ts := range g.times[1:] {
				if ts.After(last) {
					last = ts
				}
			}
			return domain.SequencePattern{
				Type:           domain.PatternCommandSequence,
				Commands:       g.commands,
				Frequency:      len(g.times),
				LastOccurrence: last,
				Description:    strings.Join(g.commands, " → "),
			}, true
		}
	}

	return domain.SequencePattern{}, false
}

// boostFromHistory raises a low classifier confidence when the user has
// recently issued the same kind of command: min(0.8, c+0.2) when any of
// the last domain.RecentIntentWindow records shares the intent type.
func (e *ContextEngine) boostFromHistory(intent *domain.Intent, session *domain.Session) {
	if intent.Confidence >= boostThreshold || len(session.History) == 0 {
		return
	}
	start := len(session.History) - domain.RecentIntentWindow
	if start < 0 {
		start = 0
	}
	for _, record := range session.History[start:] {
		if record.Command.Intent.Type == intent.Type {
			boosted := intent.Confidence + boostStep
			if boosted > boostCap {
				boosted = boostCap
			}
			intent.Confidence = boosted
			return
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
