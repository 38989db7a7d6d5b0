package qr

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	codeLength = 6
	// Uppercase letters and digits minus the characters easily confused
	// when read aloud or handwritten (I, O, 0, 1).
	codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var codePattern = regexp.MustCompile(`^[` + codeChars + `]{6}$`)

// GenerateCode returns a random 6-character friend code.
func GenerateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}

// LooksLikeCode reports whether input, uppercased, has the shape of a friend
// code: 6 characters, all from the code alphabet. Manual add uses this to
// decide between a code lookup and a username lookup; a username can still
// collide with the shape, so a code miss falls back to the username path.
func LooksLikeCode(input string) bool {
	return codePattern.MatchString(strings.ToUpper(strings.TrimSpace(input)))
}

// NormalizeCode uppercases and trims a code entered by hand.
func NormalizeCode(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}
