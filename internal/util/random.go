package util

import (
	mrand "math/rand"
	"time"
)

const letters = "abcdefghijklmnpqrstuvwxyz"

// RandomAlphaString returns a random alphanumeric string consisting of `length` characters.
// Note the shared math/Rand source should be seeded.
func RandomAlphaString(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = letters[mrand.Intn(len(letters))]
	}
	return string(b)
}

func init() {
	mrand.Seed(time.Now().UnixNano())
}
