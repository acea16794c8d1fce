package idgen

import (
	"github.com/google/uuid"
)

// ID prefixes for different models
const (
	PrefixDevice = "dev_"
	PrefixState  = "st_"
)

// NewDevice generates a local device ID with dev_ prefix, used when the
// server registry could not assign one
func NewDevice() string {
	return PrefixDevice + uuid.New().String()
}

// NewState generates an unguessable OAuth state value with st_ prefix
func NewState() string {
	return PrefixState + uuid.New().String()
}

// New generates a generic UUID without prefix (for internal use only)
func New() string {
	return uuid.New().String()
}
