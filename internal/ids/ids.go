// Package ids defines the 128-bit opaque task identifier used across the
// engine and task manager.
package ids

import "github.com/google/uuid"

// TaskID is the opaque identifier assigned to a task at creation time.
type TaskID = uuid.UUID

// New allocates a fresh random TaskID.
func New() TaskID {
	return uuid.New()
}

// Parse parses a canonical UUID string into a TaskID.
func Parse(s string) (TaskID, error) {
	return uuid.Parse(s)
}
