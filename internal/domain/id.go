package domain

import (
	"crypto/rand"
	"regexp"
)

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 12

	// GroupIDPrefix and SourceIDPrefix identify the entity kind in an ID.
	GroupIDPrefix  = "kg"
	SourceIDPrefix = "ks"
)

var idPattern = regexp.MustCompile(`^[a-z]+_[a-z0-9]{12}$`)

// NewID generates an identifier of the form "{prefix}_{12 lowercase alphanumerics}".
// Randomness comes from crypto/rand; collisions are negligible and the store's
// uniqueness constraint is the enforced invariant.
func NewID(prefix string) string {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic("domain: rand.Read: " + err.Error())
	}
	for i := range buf {
		buf[i] = idAlphabet[int(buf[i])%len(idAlphabet)]
	}
	return prefix + "_" + string(buf)
}

// NewGroupID generates a knowledge group identifier.
func NewGroupID() string {
	return NewID(GroupIDPrefix)
}

// NewSourceID generates a knowledge source identifier.
func NewSourceID() string {
	return NewID(SourceIDPrefix)
}

// IsValidID reports whether s has the "{prefix}_{token}" shape.
func IsValidID(s string) bool {
	return idPattern.MatchString(s)
}
