package types

import "github.com/google/uuid"

// NewID returns a UUID v7 string, falling back to v4 if v7 generation fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
