package app

import (
	"math/rand"
	"strings"
)

// pinAlphabet excludes visually ambiguous glyphs (0/O, 1/I). Collision
// avoidance, not a security control.
const pinAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// pinLength is the fixed size of every session join code.
const pinLength = 6

// GeneratePin draws a random join code from the restricted alphabet.
func GeneratePin() string {
	var b strings.Builder
	b.Grow(pinLength)
	for i := 0; i < pinLength; i++ {
		b.WriteByte(pinAlphabet[rand.Intn(len(pinAlphabet))])
	}
	return b.String()
}

// NormalizePin canonicalizes a client-supplied code: PINs are routed
// case-insensitively and stored uppercase.
func NormalizePin(pin string) string {
	return strings.ToUpper(strings.TrimSpace(pin))
}
