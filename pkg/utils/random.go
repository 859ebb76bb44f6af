package utils

import (
	"github.com/google/uuid"
)

// GenerateSessionID mints a new visitor session identifier.
func GenerateSessionID() string {
	return uuid.NewString()
}
