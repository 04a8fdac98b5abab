package security

import (
	"crypto/rand"
	"encoding/hex"
)

// sessionTokenBytes gives 256 bits of entropy; the token is both the session's
// identifier and its secret, so it must be unguessable.
const sessionTokenBytes = 32

// NewSessionToken returns an opaque, high-entropy session token. The token is
// never derived from account data; validity is established only by looking it
// up in the session store.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
