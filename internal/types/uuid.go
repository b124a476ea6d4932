package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex audit_01HZX3M4ZP2Q8YJ5S8E6K1VQ2A
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_AUDIT_LOG = "audit"
	UUID_PREFIX_REQUEST   = "req"
	UUID_PREFIX_SWEEP     = "sweep"
)
