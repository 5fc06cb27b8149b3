// Package address normalizes player identities. Players are identified by their
// Ethereum account address, carried in EIP-55 mixed-case checksum form.
package address

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethduel/duel-server-go/internal/game/rules"
	"golang.org/x/crypto/sha3"
)

const hexLength = 40

// Normalize validates s and returns its EIP-55 checksum form. Lowercase and
// uppercase inputs are accepted; mixed-case inputs must carry a valid checksum.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	body, ok := strings.CutPrefix(s, "0x")
	if !ok {
		body, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || len(body) != hexLength {
		return "", rules.Errorf(rules.CodeInvalidPlayer, "%q is not a 20 byte hex address", s)
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", rules.Errorf(rules.CodeInvalidPlayer, "%q is not a 20 byte hex address", s)
	}

	sum := checksum(body)
	lower, upper := strings.ToLower(body), strings.ToUpper(body)
	if body != lower && body != upper && "0x"+body != sum {
		return "", rules.Errorf(rules.CodeInvalidPlayer, "%q fails its EIP-55 checksum", s)
	}
	return sum, nil
}

// MustNormalize is Normalize for constants in tests and tooling.
func MustNormalize(s string) string {
	out, err := Normalize(s)
	if err != nil {
		panic(fmt.Sprintf("address: %v", err))
	}
	return out
}

// IsValid reports whether s normalizes without error.
func IsValid(s string) bool {
	_, err := Normalize(s)
	return err == nil
}

func checksum(body string) string {
	lower := strings.ToLower(body)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := make([]byte, 0, 2+hexLength)
	out = append(out, '0', 'x')
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
