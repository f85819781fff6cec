package nlp

import (
	"regexp"
	"strings"

	"github.com/parley-ai/parley/internal/domain"
)

// Extraction confidences per entity kind.
const (
	numberEntityConfidence    = 0.9
	pathEntityConfidence      = 0.85
	quotedEntityConfidence    = 0.9
	appEntityConfidence       = 0.7
	directionEntityConfidence = 0.85
)

var (
	numberRe = regexp.MustCompile(`\b(\d+)\b`)

	// Four path shapes: drive-letter-rooted, doubled-separator network
	// style, root-rooted POSIX style, home-relative.
	pathRes = []*regexp.Regexp{
		regexp.MustCompile(`([A-Za-z]:\\(?:[^\s\\]+\\)*[^\s\\]+)`),
		regexp.MustCompile(`(\\\\[^\s\\]+(?:\\[^\s\\]+)+)`),
		regexp.MustCompile(`(/(?:[^\s/]+/)*[^\s/]+)`),
		regexp.MustCompile(`(~/(?:[^\s/]+/)*[^\s/]+)`),
	}

	quotedRe = regexp.MustCompile(`["']([^"']+)["']`)

	// Capitalized word or run of capitalized words; the application-name
	// heuristic.
	appRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`)

	directionRe = regexp.MustCompile(`\b(up|down|increase|decrease|raise|lower|higher)\b`)
)

// stopWords filters capitalized common words out of application candidates.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "from": {}, "in": {}, "on": {},
	"at": {}, "for": {}, "with": {}, "by": {}, "of": {}, "and": {}, "or": {},
	"but": {}, "is": {}, "are": {}, "was": {}, "were": {}, "please": {},
	"can": {}, "you": {}, "could": {}, "would": {},
}

// ExtractEntities scans text for entities without any intent context:
// numbers, file-system paths, quoted substrings, capitalized application
// candidates, and direction words. Numbers and directions are matched on
// the lower-cased text; paths, quotes, and application names on the
// original casing.
func (p *Parser) ExtractEntities(text string) []domain.Entity {
	var entities []domain.Entity
	normalized := strings.ToLower(strings.TrimSpace(text))

	for _, match := range numberRe.FindAllStringSubmatch(normalized, -1) {
		n, ok := parseDigits(match[1])
		if !ok {
			continue
		}
		entities = append(entities, domain.Entity{
			Type:       domain.EntityNumber,
			Value:      n,
			Confidence: numberEntityConfidence,
		})
	}

	for _, re := range pathRes {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			entities = append(entities, domain.Entity{
				Type:       domain.EntityFilePath,
				Value:      match[1],
				Confidence: pathEntityConfidence,
			})
		}
	}

	for _, match := range quotedRe.FindAllStringSubmatch(text, -1) {
		entities = append(entities, domain.Entity{
			Type:       domain.EntityQuotedString,
			Value:      match[1],
			Confidence: quotedEntityConfidence,
		})
	}

	for _, match := range appRe.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if _, stop := stopWords[strings.ToLower(name)]; stop {
			continue
		}
		entities = append(entities, domain.Entity{
			Type:       domain.EntityApplication,
			Value:      name,
			Confidence: appEntityConfidence,
		})
	}

	for _, match := range directionRe.FindAllStringSubmatch(normalized, -1) {
		entities = append(entities, domain.Entity{
			Type:       domain.EntityDirection,
			Value:      normalizeDirection(match[1]),
			Confidence: directionEntityConfidence,
		})
	}

	return entities
}

func normalizeDirection(word string) string {
	switch word {
	case "increase", "raise", "higher":
		return "up"
	case "decrease", "lower":
		return "down"
	default:
		return word
	}
}
