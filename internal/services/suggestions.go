package services

import (
	"fmt"

	"github.com/parley-ai/parley/internal/domain"
)

// Automation-suggestion confidence arithmetic; preserved exactly.
const (
	automationConfidenceBase = 0.5
	automationConfidenceStep = 0.1
	automationConfidenceCap  = 0.9

	alternativeConfidence = 0.7
	preferenceConfidence  = 0.6

	// Morning window for the preference suggestion.
	morningStartHour = 6
	morningEndHour   = 12

	// Launch count a top application needs before it is worth suggesting.
	frequentLaunchThreshold = 5
)

// alternativeSuggestions maps a failed intent type to a recovery hint.
var alternativeSuggestions = map[string]struct {
	description string
	benefit     string
}{
	"search_files": {
		description: "Try searching in a specific directory",
		benefit:     "Narrow down the search scope for faster results",
	},
	"launch_app": {
		description: "Try using the full application name",
		benefit:     "Avoid ambiguity in application identification",
	},
	"delete_file": {
		description: "Verify the file path is correct",
		benefit:     "Ensure you're targeting the right file",
	},
	"terminate_process": {
		description: "Try using the process ID (PID) instead",
		benefit:     "More precise process identification",
	},
}

// Suggestions derives proactive suggestions from session context. Three
// independent sources are concatenated: a detected repetitive pattern
// (automation), the most recent failure in the trailing history window
// (alternative), and morning usage habits (preference). An empty result is
// normal; only usage-store I/O can fail.
func (e *ContextEngine) Suggestions(session *domain.Session) ([]domain.Suggestion, error) {
	var suggestions []domain.Suggestion

	if pattern, ok := e.DetectRepetition(session); ok {
		confidence := automationConfidenceBase + automationConfidenceStep*float64(pattern.Frequency)
		if confidence > automationConfidenceCap {
			confidence = automationConfidenceCap
		}
		suggestions = append(suggestions, domain.Suggestion{
			Type:        domain.SuggestionAutomation,
			Description: fmt.Sprintf("Automate repetitive task: %s", pattern.Description),
			Benefit:     fmt.Sprintf("Save time by automating %d repeated commands", pattern.Frequency),
			Confidence:  confidence,
		})
	}

	if alt, ok := e.alternativeForRecentFailure(session); ok {
		suggestions = append(suggestions, alt)
	}

	usage, err := e.Usage.AllUsage(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("load usage patterns: %w", err)
	}
	if len(usage) > 0 && len(session.History) > 0 {
		hour := e.Now().Hour()
		if hour >= morningStartHour && hour < morningEndHour {
			top := usage[0]
			if top.LaunchCount > frequentLaunchThreshold {
				suggestions = append(suggestions, domain.Suggestion{
					Type:        domain.SuggestionPreference,
					Description: fmt.Sprintf("Launch %s", top.ApplicationName),
					Benefit:     fmt.Sprintf("You frequently use %s", top.ApplicationName),
					Confidence:  preferenceConfidence,
				})
			}
		}
	}

	return suggestions, nil
}

// alternativeForRecentFailure inspects the trailing history window for
// failures and maps the most recent one to a recovery suggestion.
func (e *ContextEngine) alternativeForRecentFailure(session *domain.Session) (domain.Suggestion, bool) {
	start := len(session.History) - domain.RecentFailureWindow
	if start < 0 {
		start = 0
	}

	var failedIntent string
	found := false
	for _, record := range session.History[start:] {
		if !record.Result.Success {
			failedIntent = record.Command.Intent.Type
			found = true
		}
	}
	if !found {
		return domain.Suggestion{}, false
	}

	alt, ok := alternativeSuggestions[failedIntent]
	if !ok {
		return domain.Suggestion{}, false
	}
	return domain.Suggestion{
		Type:        domain.SuggestionAlternative,
		Description: alt.description,
		Benefit:     alt.benefit,
		Confidence:  alternativeConfidence,
	}, true
}
