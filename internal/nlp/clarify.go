package nlp

import "github.com/parley-ai/parley/internal/domain"

// requiredEntities is a narrower table than the classifier's own declared
// entity types: the entity kinds an intent must carry at least one of to be
// actionable. Used only by the ambiguity check.
var requiredEntities = map[string][]string{
	"launch_app":        {"application"},
	"search_files":      {"file_name", "quoted_string", "file_path"},
	"create_file":       {"file_name", "quoted_string", "file_path"},
	"delete_file":       {"file_name", "quoted_string", "file_path"},
	"move_file":         {"source_path", "destination_path"},
	"copy_file":         {"source_path", "destination_path"},
	"terminate_process": {"process_name", "pid"},
	"create_note":       {"note_content"},
	"create_reminder":   {"reminder_content", "time"},
}

// intentDescriptions are human phrasings used by low-confidence
// clarification questions.
var intentDescriptions = map[string]string{
	"launch_app":        "launch an application",
	"adjust_volume":     "adjust the volume",
	"adjust_brightness": "adjust the brightness",
	"search_files":      "search for files",
	"create_file":       "create a file",
	"delete_file":       "delete a file",
	"move_file":         "move a file",
	"copy_file":         "copy a file",
	"shutdown_system":   "shutdown the system",
	"restart_system":    "restart the system",
	"manage_wifi":       "manage Wi-Fi",
	"manage_bluetooth":  "manage Bluetooth",
	"list_processes":    "list running processes",
	"terminate_process": "terminate a process",
	"read_screen":       "read the screen",
	"create_note":       "create a note",
	"create_reminder":   "create a reminder",
}

var missingEntityQuestions = map[string]string{
	"launch_app":        "Which application would you like me to launch?",
	"search_files":      "What file are you looking for?",
	"create_file":       "What should I name the new file?",
	"delete_file":       "Which file would you like me to delete?",
	"move_file":         "Where would you like me to move the file to?",
	"copy_file":         "Where would you like me to copy the file to?",
	"terminate_process": "Which process would you like me to terminate?",
	"create_note":       "What would you like me to note down?",
	"create_reminder":   "What should I remind you about, and when?",
}

// IsAmbiguous reports whether an intent needs clarification before it can
// be acted on: already flagged, low confidence, unknown, or missing every
// required entity kind for its category.
func (p *Parser) IsAmbiguous(intent domain.Intent) bool {
	if intent.NeedsClarification {
		return true
	}
	if intent.Confidence < ClarificationThreshold {
		return true
	}
	if intent.Type == domain.IntentUnknown {
		return true
	}

	required, ok := requiredEntities[intent.Type]
	if !ok {
		return false
	}
	for _, entity := range intent.Entities {
		for _, req := range required {
			if entity.Type == req {
				return false
			}
		}
	}
	return true
}

// ClarificationQuestion produces a follow-up question for an ambiguous
// intent, tiered by how much was understood.
func (p *Parser) ClarificationQuestion(intent domain.Intent) string {
	if intent.Type == domain.IntentUnknown || intent.Confidence < 0.3 {
		return "I'm not sure what you want me to do. Could you please rephrase your request?"
	}

	if intent.Confidence < ClarificationThreshold {
		description, ok := intentDescriptions[intent.Type]
		if !ok {
			description = "perform an action"
		}
		return "Did you want me to " + description + "?"
	}

	if question, ok := missingEntityQuestions[intent.Type]; ok {
		return question
	}

	return "Could you provide more details about what you'd like me to do?"
}
