package ids

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// codeAlphabet omits visually ambiguous characters (0/O/1/I) so codes can be
// read aloud or typed from a phone screen without mistakes.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the standard room code length.
const CodeLength = 6

// RoomCode returns a random uppercase code of the given length. It makes no
// uniqueness guarantee; callers are expected to check for collisions and
// retry. Codes must be compared case-insensitively.
func RoomCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// EntityID returns an opaque unique token such as "p_1b4e28ba-...". No other
// component may assume anything about its format or ordering.
func EntityID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
