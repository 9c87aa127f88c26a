package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
)

// CSRFHeader carries the token on cookie-authenticated mutations
const CSRFHeader = "X-CSRF-Token"

const csrfDomain = "typingclash/csrf\x00"

// ErrNoSession is returned when a token is requested without a session
var ErrNoSession = errors.New("csrf: session id is required")

// CSRFGenerator binds CSRF tokens to a login session with HMAC-SHA256.
// New tokens are signed with the current secret; tokens signed with a
// previous secret keep validating until their session ends, so the secret
// can be rotated without logging everyone out.
type CSRFGenerator struct {
	keys [][]byte
}

// NewCSRFGenerator creates a generator signing with secret and accepting
// tokens from any of the previous secrets. Empty previous secrets are ignored.
func NewCSRFGenerator(secret string, previous ...string) *CSRFGenerator {
	g := &CSRFGenerator{keys: [][]byte{[]byte(secret)}}
	for _, p := range previous {
		if p != "" && p != secret {
			g.keys = append(g.keys, []byte(p))
		}
	}
	return g
}

func csrfMAC(key []byte, sessionID string) []byte {
	mac := hmac.New(sha256.New, key)
	io.WriteString(mac, csrfDomain)
	io.WriteString(mac, sessionID)
	return mac.Sum(nil)
}

// GenerateToken returns the token for sessionID under the current secret
func (g *CSRFGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}
	return base64.RawURLEncoding.EncodeToString(csrfMAC(g.keys[0], sessionID)), nil
}

// ValidateToken reports whether token belongs to sessionID
func (g *CSRFGenerator) ValidateToken(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	for _, key := range g.keys {
		if hmac.Equal(got, csrfMAC(key, sessionID)) {
			return true
		}
	}
	return false
}
