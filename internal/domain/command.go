package domain

import "time"

// Command is a fully resolved unit of work handed to an executor.
type Command struct {
	ID                string         `json:"id"`
	Intent            Intent         `json:"intent"`
	Parameters        map[string]any `json:"parameters"`
	Timestamp         time.Time      `json:"timestamp"`
	NeedsConfirmation bool           `json:"needs_confirmation"`
}

// CommandResult captures the outcome of executing a Command.
type CommandResult struct {
	CommandID  string `json:"command_id"`
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// CommandRecord pairs a command with its result; the append-only unit of
// session history.
type CommandRecord struct {
	Command   Command       `json:"command"`
	Result    CommandResult `json:"result"`
	Timestamp time.Time     `json:"timestamp"`
}
