package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a random UUID as 32 hex characters.
func GenerateUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
