package internal

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

const (
	sequenceIDSize    = 16
	csrfSecretSize    = 32
	sessionMarkerSize = 16

	// CSRFTokenLen is the encoded length of a CSRF token: 32 bytes,
	// base64url, no padding.
	CSRFTokenLen = 43
)

// NewFamilyID returns the identifier for a new refresh family (one login's
// rotation chain).
func NewFamilyID() string {
	return uuid.NewString()
}

// NewSequenceID returns the identifier of one rotation link within a family.
func NewSequenceID() (string, error) {
	return randomToken(sequenceIDSize)
}

// NewCSRFToken returns a script-readable double-submit token.
func NewCSRFToken() (string, error) {
	return randomToken(csrfSecretSize)
}

// NewSessionMarker returns the opaque session marker cookie value.
func NewSessionMarker() (string, error) {
	return randomToken(sessionMarkerSize)
}

func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidCSRFFormat checks token shape before any comparison: exact encoded
// length and base64url alphabet only.
func ValidCSRFFormat(s string) bool {
	if len(s) != CSRFTokenLen {
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
