package domain

import "time"

// ApplicationUsage aggregates launch statistics for one application.
type ApplicationUsage struct {
	ApplicationName string    `json:"application_name"`
	LaunchCount     int       `json:"launch_count"`
	FirstLaunched   time.Time `json:"first_launched"`
	LastLaunched    time.Time `json:"last_launched"`
}
