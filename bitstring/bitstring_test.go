package bitstring

import (
	"errors"
	"strings"
	"testing"

	"github.com/prebid/consent-string/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bitfieldToken = "BOEFBi5OEFBi5ABACDENABwAAAAAZoA"
	bitfieldBits  = "0000010011100001000001010000011000101110010011100001000001010000011000101110010000000000010000000000100000110001000011010000000000011100000000000000000000000000000000000110011010000000"
)

func TestToToken(t *testing.T) {
	tests := []struct {
		name          string
		bits          string
		expectedToken string
	}{
		{name: "empty", bits: "", expectedToken: ""},
		{name: "one_byte", bits: "11111011", expectedToken: "-w"},
		{name: "url_safe_alphabet", bits: "1111101111111111", expectedToken: "-_8"},
		{name: "right_padded", bits: "1", expectedToken: "gA"},
		{name: "consent_string", bits: strings.TrimRight(bitfieldBits, "0"), expectedToken: bitfieldToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := ToToken(tt.bits)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedToken, token)
		})
	}
}

func TestToTokenRejectsNonBinary(t *testing.T) {
	_, err := ToToken("0102")
	var invalid *errortypes.InvalidBitSequence
	assert.True(t, errors.As(err, &invalid))
}

func TestFromToken(t *testing.T) {
	bits, err := FromToken(bitfieldToken)
	require.NoError(t, err)
	assert.Equal(t, bitfieldBits, bits)
	assert.Zero(t, len(bits)%8)

	standard, err := FromToken("+/8=")
	require.NoError(t, err)
	urlSafe, err := FromToken("-_8")
	require.NoError(t, err)
	assert.Equal(t, "1111101111111111", urlSafe)
	assert.Equal(t, urlSafe, standard)
}

func TestFromTokenInvalid(t *testing.T) {
	for _, token := range []string{"not base64!", "B", "ab*c"} {
		_, err := FromToken(token)
		var invalid *errortypes.InvalidToken
		assert.True(t, errors.As(err, &invalid), "token %q", token)
	}
}

func TestRoundTrip(t *testing.T) {
	bits := "101100111000111100001"
	token, err := ToToken(bits)
	require.NoError(t, err)

	decoded, err := FromToken(token)
	require.NoError(t, err)
	assert.Equal(t, bits+"000", decoded)
}
