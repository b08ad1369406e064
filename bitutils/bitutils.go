// Package bitutils converts scalar values to and from fixed width bit strings.
//
// A bit string is a Go string holding only the characters '0' and '1', most significant bit first.
package bitutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prebid/consent-string/errortypes"
)

const (
	msPerDeci  = 100
	alphabetSz = 26
)

// IntToBits returns the binary representation of value left-padded with zeros to width.
//
// A value which needs more than width bits is returned in full, without truncation.
// Callers that need a fixed layout should check Fits first.
func IntToBits(value int, width int) (string, error) {
	if value < 0 {
		return "", &errortypes.BadInput{Message: fmt.Sprintf("cannot encode negative value %d", value)}
	}
	if width < 0 {
		return "", &errortypes.BadInput{Message: fmt.Sprintf("cannot encode into negative width %d", width)}
	}
	bits := strconv.FormatInt(int64(value), 2)
	if len(bits) >= width {
		return bits, nil
	}
	return strings.Repeat("0", width-len(bits)) + bits, nil
}

// Fits returns true if value can be written in width bits without overflowing.
func Fits(value int, width int) bool {
	if value < 0 || width < 0 {
		return false
	}
	if width >= 63 {
		return true
	}
	return value < 1<<uint(width)
}

// BitsToInt parses a pure binary string.
func BitsToInt(bits string) (int, error) {
	if err := Validate(bits); err != nil {
		return 0, err
	}
	if len(bits) == 0 {
		return 0, &errortypes.InvalidBitSequence{Message: "cannot parse an empty bit string"}
	}
	value, err := strconv.ParseInt(bits, 2, 64)
	if err != nil {
		return 0, &errortypes.InvalidBitSequence{Message: fmt.Sprintf("bit string %q does not fit an integer", bits)}
	}
	return int(value), nil
}

// BoolToBits maps false to "0" and true to "1", left-padded to width.
func BoolToBits(value bool, width int) (string, error) {
	if value {
		return IntToBits(1, width)
	}
	return IntToBits(0, width)
}

// BitsToBool only accepts exactly "0" or "1".
func BitsToBool(bits string) (bool, error) {
	switch bits {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, &errortypes.InvalidBitSequence{Message: fmt.Sprintf("bit string %q is not a boolean", bits)}
}

// TimeToBits encodes whole deciseconds since the Unix epoch.
func TimeToBits(value time.Time, width int) (string, error) {
	return IntToBits(ToDeciseconds(value), width)
}

// BitsToTime decodes deciseconds since the Unix epoch. The result is in UTC.
func BitsToTime(bits string) (time.Time, error) {
	deciseconds, err := BitsToInt(bits)
	if err != nil {
		return time.Time{}, err
	}
	return FromDeciseconds(deciseconds), nil
}

// ToDeciseconds returns floor(milliseconds / 100) for the instant.
func ToDeciseconds(value time.Time) int {
	ms := value.UnixMilli()
	deciseconds := ms / msPerDeci
	if ms%msPerDeci < 0 {
		deciseconds--
	}
	return int(deciseconds)
}

// FromDeciseconds is the inverse of ToDeciseconds, minus the sub-decisecond precision.
func FromDeciseconds(deciseconds int) time.Time {
	return time.UnixMilli(int64(deciseconds) * msPerDeci).UTC()
}

// LetterToBits encodes the 0-based alphabet index of a single letter, case-insensitive.
func LetterToBits(letter string, width int) (string, error) {
	if len(letter) != 1 {
		return "", &errortypes.InvalidLanguageCode{Message: fmt.Sprintf("%q is not a single letter", letter)}
	}
	c := letter[0]
	switch {
	case c >= 'a' && c <= 'z':
		return IntToBits(int(c-'a'), width)
	case c >= 'A' && c <= 'Z':
		return IntToBits(int(c-'A'), width)
	}
	return "", &errortypes.InvalidLanguageCode{Message: fmt.Sprintf("%q is not a letter", letter)}
}

// BitsToLetter decodes an alphabet index into a lower case letter.
func BitsToLetter(bits string) (string, error) {
	index, err := BitsToInt(bits)
	if err != nil {
		return "", err
	}
	if index >= alphabetSz {
		return "", &errortypes.InvalidLanguageCode{Message: fmt.Sprintf("letter index %d is outside a-z", index)}
	}
	return string(rune('a' + index)), nil
}

// LanguageToBits concatenates the letter encoding of each character of code, then left-pads to width.
func LanguageToBits(code string, letterWidth int, width int) (string, error) {
	if len(code) != 2 {
		return "", &errortypes.InvalidLanguageCode{Message: fmt.Sprintf("language code %q must be two letters", code)}
	}
	var sb strings.Builder
	for i := 0; i < len(code); i++ {
		bits, err := LetterToBits(code[i:i+1], letterWidth)
		if err != nil {
			return "", err
		}
		sb.WriteString(bits)
	}
	bits := sb.String()
	if len(bits) < width {
		bits = strings.Repeat("0", width-len(bits)) + bits
	}
	return bits, nil
}

// BitsToLanguage splits bits into letterWidth groups and decodes each one to a letter.
func BitsToLanguage(bits string, letterWidth int) (string, error) {
	if letterWidth <= 0 || len(bits)%letterWidth != 0 {
		return "", &errortypes.InvalidBitSequence{Message: fmt.Sprintf("language bits of length %d do not split into %d bit letters", len(bits), letterWidth)}
	}
	var sb strings.Builder
	for i := 0; i < len(bits); i += letterWidth {
		letter, err := BitsToLetter(bits[i : i+letterWidth])
		if err != nil {
			return "", err
		}
		sb.WriteString(letter)
	}
	return sb.String(), nil
}

// Validate returns an InvalidBitSequence error if bits holds anything but '0' and '1'.
func Validate(bits string) error {
	for i := 0; i < len(bits); i++ {
		if bits[i] != '0' && bits[i] != '1' {
			return &errortypes.InvalidBitSequence{Message: fmt.Sprintf("unexpected character %q at index %d of bit string", bits[i], i)}
		}
	}
	return nil
}
