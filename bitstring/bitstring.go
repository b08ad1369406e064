// Package bitstring converts bit strings to and from URL-safe, unpadded base64 tokens.
package bitstring

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/prebid/consent-string/bitutils"
	"github.com/prebid/consent-string/errortypes"
)

var rawURL = base64.RawURLEncoding

// ToToken right-pads bits with zeros to a whole number of bytes and encodes them.
func ToToken(bits string) (string, error) {
	if err := bitutils.Validate(bits); err != nil {
		return "", err
	}
	return rawURL.EncodeToString(pack(bits)), nil
}

// FromToken decodes a token into a bit string whose length is always a multiple of 8.
// Bits past the last field of the layout are padding; callers must ignore them.
//
// Standard base64 characters and '=' padding are accepted as well, since tokens stored by
// other systems are sometimes rewritten.
func FromToken(token string) (string, error) {
	normalized := strings.TrimRight(token, "=")
	normalized = strings.NewReplacer("+", "-", "/", "_").Replace(normalized)
	data, err := rawURL.DecodeString(normalized)
	if err != nil {
		return "", &errortypes.InvalidToken{Token: token, Cause: err}
	}
	return unpack(data), nil
}

func pack(bits string) []byte {
	data := make([]byte, (len(bits)+7)/8)
	for i := 0; i < len(bits); i++ {
		if bits[i] == '1' {
			data[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return data
}

func unpack(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 8)
	for _, b := range data {
		sb.WriteString(fmt.Sprintf("%08b", b))
	}
	return sb.String()
}
