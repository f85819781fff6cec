package domain

import "time"

// Session is one user's conversation. History is append-only and
// chronological; the context engine appends records but never reorders or
// deletes them. A Session is owned by exactly one caller per turn.
type Session struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      *time.Time      `json:"end_time,omitempty"`
	History      []CommandRecord `json:"history"`
	ContextState map[string]any  `json:"context_state,omitempty"`
}
