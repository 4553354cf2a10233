package services

import "time"

// GetCurrentTimestamp returns the current time in ISO-8601 (RFC3339).
// Turn timestamps are always assigned here, never taken from the client.
func GetCurrentTimestamp() string {
	return time.Now().Format(time.RFC3339)
}
