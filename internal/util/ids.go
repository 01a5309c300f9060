package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const sessionIDLength = 21

// NewSessionID generates a fresh session identifier. Session IDs partition
// the graph, the object store prefix, and the chat history.
func NewSessionID() (string, error) {
	return gonanoid.New(sessionIDLength)
}

// IsSessionID reports whether s is a well-formed session identifier. Used to
// reject malformed IDs before they reach a query parameter.
func IsSessionID(s string) bool {
	if len(s) != sessionIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
