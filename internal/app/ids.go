package app

import (
	"crypto/rand"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// shortRefAlphabet avoids 0/O and 1/I so references survive being read over
// the phone or scribbled on a paper tag.
const shortRefAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newShortRef returns a 6-character human-readable booking reference.
func newShortRef() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	for i := range b {
		b[i] = shortRefAlphabet[int(b[i])%len(shortRefAlphabet)]
	}
	return string(b)
}
