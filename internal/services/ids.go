package services

import (
	"strings"

	"github.com/google/uuid"
)

// newID builds an opaque identifier like "exp_6f1a2b3c4d5e6f70".
func newID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:16]
}
