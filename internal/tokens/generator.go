package tokens

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// Installation token values follow a fixed, interop-sensitive format:
// LANET-{CLIENT_CODE}-{SITE_CODE}-{RANDOM}, all segments uppercase
// alphanumeric. Installers parse the prefix to recognize pasted tokens.
const (
	valuePrefix  = "LANET"
	randomLength = 8
	alphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateValue composes a new token value from the client and site
// codes plus a random suffix from crypto/rand.
func GenerateValue(clientCode, siteCode string) (string, error) {
	suffix, err := randomSegment(randomLength)
	if err != nil {
		return "", fmt.Errorf("generate token suffix: %w", err)
	}
	return strings.Join([]string{
		valuePrefix,
		normalizeCode(clientCode),
		normalizeCode(siteCode),
		suffix,
	}, "-"), nil
}

func randomSegment(length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// normalizeCode upper-cases a client/site code and strips anything that
// is not alphanumeric, so codes with punctuation still produce a
// well-formed token value.
func normalizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if unicode.IsUpper(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}
