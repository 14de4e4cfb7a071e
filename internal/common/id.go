package common

import (
	"github.com/google/uuid"
)

// NewSessionID generates a session ID with the "ses_" prefix
func NewSessionID() string {
	return "ses_" + uuid.New().String()
}

// NewQueryID generates a model query ID with the "qry_" prefix
func NewQueryID() string {
	return "qry_" + uuid.New().String()
}
