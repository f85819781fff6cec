package nlp

import (
	"math"
	"strings"

	"github.com/parley-ai/parley/internal/domain"
)

// Confidence arithmetic. These constants are empirically tuned; behavior
// compatibility depends on the exact values.
const (
	ruleConfidenceBase     = 0.5
	ruleConfidenceCap      = 0.9
	fallbackConfidenceBase = 0.3
	fallbackConfidenceCap  = 0.7
	keywordConfidenceStep  = 0.2

	// ClarificationThreshold is the confidence below which an intent needs
	// clarification.
	ClarificationThreshold = 0.5

	capturedNumberConfidence = 0.9
	capturedEntityConfidence = 0.8
)

// Parser classifies free text into intents using an injected pattern table.
// It never fails: blank or empty input yields the unknown intent with zero
// confidence.
type Parser struct {
	table *PatternTable
}

// NewParser builds a Parser over the given table.
func NewParser(table *PatternTable) *Parser {
	return &Parser{table: table}
}

// Parse turns one utterance into an Intent.
//
// Categories are scored in table order. A category is considered only when
// at least one of its keywords occurs in the lower-cased text; its rules are
// then tried in order and the first match wins with confidence
// min(0.9, 0.5 + 0.2*keywords). A later category replaces the best only on
// strictly greater confidence, so the first-declared category wins ties.
// When no rule matched anywhere, a keyword-only fallback pass scores
// min(0.7, 0.3 + 0.2*keywords) and extracts entities generically.
func (p *Parser) Parse(text string) domain.Intent {
	if strings.TrimSpace(text) == "" {
		return domain.Intent{
			Type:               domain.IntentUnknown,
			Entities:           []domain.Entity{},
			Confidence:         0.0,
			NeedsClarification: true,
		}
	}

	normalized := strings.ToLower(strings.TrimSpace(text))

	var (
		bestIntent      string
		bestConfidence  float64
		bestEntities    []domain.Entity
		bestEntityTypes []string
	)

	for _, pat := range p.table.patterns {
		if pat.intent == domain.IntentUnknown {
			continue
		}
		keywordCount := countKeywords(pat.keywords, normalized)
		if keywordCount == 0 {
			continue
		}
		for _, rule := range pat.rules {
			match := rule.FindStringSubmatch(normalized)
			if match == nil {
				continue
			}
			confidence := math.Min(ruleConfidenceCap, ruleConfidenceBase+keywordConfidenceStep*float64(keywordCount))
			if confidence > bestConfidence {
				bestConfidence = confidence
				bestIntent = pat.intent
				bestEntities = entitiesFromGroups(match[1:], pat.entityTypes)
				bestEntityTypes = pat.entityTypes
			}
			break
		}
	}

	// Keyword-only fallback when no rule matched for any category.
	if bestIntent == "" {
		for _, pat := range p.table.patterns {
			if pat.intent == domain.IntentUnknown {
				continue
			}
			keywordCount := countKeywords(pat.keywords, normalized)
			if keywordCount == 0 {
				continue
			}
			confidence := math.Min(fallbackConfidenceCap, fallbackConfidenceBase+keywordConfidenceStep*float64(keywordCount))
			if confidence > bestConfidence {
				bestConfidence = confidence
				bestIntent = pat.intent
				bestEntities = p.ExtractEntities(normalized)
				bestEntityTypes = pat.entityTypes
			}
		}
	}

	needsClarification := bestIntent == "" ||
		bestConfidence < ClarificationThreshold ||
		(len(bestEntities) == 0 && len(bestEntityTypes) > 0)

	intentType := bestIntent
	if intentType == "" {
		intentType = domain.IntentUnknown
	}

	return domain.Intent{
		Type:               intentType,
		Entities:           bestEntities,
		Confidence:         bestConfidence,
		NeedsClarification: needsClarification,
	}
}

func countKeywords(keywords []string, normalized string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			count++
		}
	}
	return count
}

// entitiesFromGroups maps positional capture groups onto the declared
// entity types. A group parsing as a bare integer always becomes a number
// entity regardless of its declared slot.
func entitiesFromGroups(groups []string, entityTypes []string) []domain.Entity {
	var entities []domain.Entity
	for i, group := range groups {
		if group == "" {
			continue
		}
		entityType := domain.EntityGeneric
		if i < len(entityTypes) {
			entityType = entityTypes[i]
		}
		cleaned := strings.TrimSpace(group)
		if n, ok := parseDigits(cleaned); ok {
			entities = append(entities, domain.Entity{
				Type:       domain.EntityNumber,
				Value:      n,
				Confidence: capturedNumberConfidence,
			})
			continue
		}
		entities = append(entities, domain.Entity{
			Type:       entityType,
			Value:      cleaned,
			Confidence: capturedEntityConfidence,
		})
	}
	return entities
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
