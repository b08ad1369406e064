package consent

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prebid/consent-string/bitstring"
	"github.com/prebid/consent-string/errortypes"
	"github.com/prebid/consent-string/metrics"
	"github.com/prebid/consent-string/vendorconsent"
	"github.com/prebid/consent-string/versions"
	"github.com/prebid/go-gdpr/consentconstants"
	gdprconsent "github.com/prebid/go-gdpr/vendorconsent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	bitfieldToken = "BOEFBi5OEFBi5ABACDENABwAAAAAZoA"
	rangeToken    = "BOEFBi5OEFBi5ABACDENABwAAAAAaACgACAAQABA"
	noVendorToken = "BOEFBi5OEFBi5ABACDENABwAAAAAAA"
)

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debugf(msg string, args ...any) {}
func (l *recordingLogger) Infof(msg string, args ...any)  {}
func (l *recordingLogger) Warnf(msg string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(msg, args...))
}
func (l *recordingLogger) Errorf(msg string, args ...any) {}
func (l *recordingLogger) Fatalf(msg string, args ...any) {}

// vendorOnly drops the editor fields, which the consent string does not carry.
func vendorOnly(p Params) Params {
	p.EditorVersion = 0
	p.EditorPurposeIDs = nil
	return p
}

func TestEncodeBitfield(t *testing.T) {
	token, err := EncodeWith(newScenarioRecord(t), vendorconsent.Bitfield)
	require.NoError(t, err)
	assert.Equal(t, bitfieldToken, token)
}

func TestEncodeRange(t *testing.T) {
	token, err := EncodeWith(newScenarioRecord(t), vendorconsent.Range)
	require.NoError(t, err)
	assert.Equal(t, rangeToken, token)
}

func TestEncodeAutomaticPicksBitfieldForScenario(t *testing.T) {
	token, err := Encode(newScenarioRecord(t))
	require.NoError(t, err)
	assert.Equal(t, bitfieldToken, token)
}

func TestDecodeBitfield(t *testing.T) {
	r, err := Decode(bitfieldToken)
	require.NoError(t, err)

	expected, err := NewRecord(vendorOnly(scenarioParams()))
	require.NoError(t, err)
	assert.True(t, expected.Equal(r), "decoded %v", r)
	assert.Equal(t, "110000000000000000000000", r.PurposeConsents())
}

func TestDecodeRange(t *testing.T) {
	r, err := Decode(rangeToken)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 4}, r.AllowedVendorIDs())
	assert.Equal(t, 6, r.MaxVendorID())
	assert.Equal(t, scenarioTime, r.Created())
	assert.Equal(t, Language("en"), r.Language())
}

func TestDecodeAcceptsPaddedStandardBase64(t *testing.T) {
	padded := strings.NewReplacer("-", "+", "_", "/").Replace(rangeToken) + "=="
	r, err := Decode(padded)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, r.AllowedVendorIDs())
}

func TestRoundTrip(t *testing.T) {
	testCases := []struct {
		desc    string
		vendors []int
		max     int
	}{
		{desc: "scenario vendors", vendors: []int{1, 2, 4}, max: 6},
		{desc: "no vendors", vendors: []int{}, max: 0},
		{desc: "no vendor allowed", vendors: []int{}, max: 40},
		{desc: "every vendor allowed", vendors: rangeOf(1, 300), max: 300},
		{desc: "sparse vendors", vendors: []int{3, 900, 901, 902, 2000}, max: 2000},
		{desc: "last vendor only", vendors: []int{65535}, max: 65535},
	}

	for _, test := range testCases {
		p := vendorOnly(scenarioParams())
		p.AllowedVendorIDs = test.vendors
		p.MaxVendorID = test.max
		r, err := NewRecord(p)
		require.NoError(t, err, test.desc)

		for _, enc := range []vendorconsent.Encoding{vendorconsent.Automatic, vendorconsent.Bitfield, vendorconsent.Range} {
			token, err := EncodeWith(r, enc)
			require.NoError(t, err, "%s: %s", test.desc, enc)
			decoded, err := Decode(token)
			require.NoError(t, err, "%s: %s", test.desc, enc)
			assert.True(t, r.Equal(decoded), "%s: %s decoded %v", test.desc, enc, decoded)
		}
	}
}

func TestRoundTripWithPublisherSection(t *testing.T) {
	p := scenarioParams()
	p.EditorVersion = 12
	p.EditorPurposeIDs = []int{1, 5, 24}
	r, err := NewRecord(p)
	require.NoError(t, err)

	token, err := Encode(r)
	require.NoError(t, err)
	editorToken, err := EncodeEditor(r)
	require.NoError(t, err)

	decoded, err := Decode(token)
	require.NoError(t, err)
	assert.False(t, r.Equal(decoded), "the consent string alone has no editor fields")

	decoded, err = DecodeEditor(editorToken, decoded)
	require.NoError(t, err)
	assert.True(t, r.Equal(decoded))
}

func TestAutomaticEncodingIsMinimal(t *testing.T) {
	testCases := []struct {
		desc    string
		vendors []int
		max     int
	}{
		{desc: "dense", vendors: []int{1, 2, 4}, max: 6},
		{desc: "sparse", vendors: []int{5, 1000}, max: 1000},
		{desc: "one long run", vendors: rangeOf(1, 500), max: 500},
		{desc: "tie prefers bitfield", vendors: []int{5}, max: 30},
	}

	for _, test := range testCases {
		p := vendorOnly(scenarioParams())
		p.AllowedVendorIDs = test.vendors
		p.MaxVendorID = test.max
		r, err := NewRecord(p)
		require.NoError(t, err, test.desc)

		engine := &metrics.MetricsEngineMock{}
		engine.On("RecordOperation", mock.Anything).Return()
		engine.On("RecordTokenBits", mock.Anything, mock.Anything).Return()
		codec := NewCodec(versions.Default(), WithMetrics(engine))

		_, err = codec.EncodeWith(r, vendorconsent.Bitfield)
		require.NoError(t, err, test.desc)
		_, err = codec.EncodeWith(r, vendorconsent.Range)
		require.NoError(t, err, test.desc)
		_, err = codec.Encode(r)
		require.NoError(t, err, test.desc)

		sizes := tokenBits(engine)
		require.Len(t, sizes, 3, test.desc)
		bitfieldBits, rangeBits, autoBits := sizes[0], sizes[1], sizes[2]
		assert.Equal(t, min(bitfieldBits, rangeBits), autoBits, test.desc)
		if bitfieldBits == rangeBits {
			assert.Equal(t, metrics.VendorEncodingBitfield, lastEncoding(engine), test.desc)
		}
	}
}

func tokenBits(engine *metrics.MetricsEngineMock) []int {
	var sizes []int
	for _, call := range engine.Calls {
		if call.Method == "RecordTokenBits" {
			sizes = append(sizes, call.Arguments.Int(1))
		}
	}
	return sizes
}

func lastEncoding(engine *metrics.MetricsEngineMock) metrics.VendorEncoding {
	var enc metrics.VendorEncoding
	for _, call := range engine.Calls {
		if call.Method == "RecordTokenBits" {
			enc = call.Arguments.Get(0).(metrics.Labels).Encoding
		}
	}
	return enc
}

func TestEncodeIsOrderInvariant(t *testing.T) {
	p := scenarioParams()
	p.AllowedVendorIDs = []int{4, 2, 1, 4}
	p.AllowedPurposeIDs = []int{2, 1}
	r, err := NewRecord(p)
	require.NoError(t, err)

	token, err := EncodeWith(r, vendorconsent.Bitfield)
	require.NoError(t, err)
	assert.Equal(t, bitfieldToken, token)
}

func TestMaxVendorIDZero(t *testing.T) {
	p := scenarioParams()
	p.MaxVendorID = 0
	p.AllowedVendorIDs = nil
	r, err := NewRecord(p)
	require.NoError(t, err)

	token, err := Encode(r)
	require.NoError(t, err)
	assert.Equal(t, noVendorToken, token)

	decoded, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.MaxVendorID())
	assert.Empty(t, decoded.AllowedVendorIDs())
	assert.Equal(t, "", decoded.VendorConsents())
}

func TestDecodeFailures(t *testing.T) {
	testCases := []struct {
		desc     string
		token    string
		expField string
		expCause int
	}{
		{
			desc:     "not base64",
			token:    "BOEF!i5O",
			expField: "token",
			expCause: errortypes.InvalidTokenErrorCode,
		},
		{
			desc:     "empty token",
			token:    "",
			expField: "version",
			expCause: errortypes.UnknownErrorCode,
		},
		{
			desc:     "unknown version",
			token:    "_w",
			expField: "version",
			expCause: errortypes.UnknownFormatVersionErrorCode,
		},
		{
			desc:     "truncated in the header",
			token:    bitfieldToken[:20],
			expField: "vendorListVersion",
			expCause: errortypes.UnknownErrorCode,
		},
		{
			desc:     "truncated in the vendor field",
			token:    rangeToken[:34],
			expField: "vendorConsents",
			expCause: errortypes.UnknownErrorCode,
		},
	}

	for _, test := range testCases {
		r, err := Decode(test.token)
		assert.Equal(t, Record{}, r, test.desc)

		var failure *errortypes.DecodeFailure
		if assert.True(t, errors.As(err, &failure), test.desc) {
			assert.Equal(t, test.expField, failure.Field, test.desc)
			assert.Equal(t, test.expCause, errortypes.ReadCode(failure.Cause), test.desc)
			assert.Equal(t, errortypes.DecodeFailureErrorCode, errortypes.ReadCode(err), test.desc)
		}
	}
}

func TestDecodeUnknownVersion(t *testing.T) {
	_, err := Decode("_w")

	var unknown *errortypes.UnknownFormatVersion
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, 63, unknown.Version)
}

func TestDecodeRejectsLetterOutsideAlphabet(t *testing.T) {
	bits, err := bitstring.FromToken(bitfieldToken)
	require.NoError(t, err)
	// The first letter of the language starts at bit 108.
	bits = bits[:108] + "011110" + bits[114:]
	token, err := bitstring.ToToken(bits)
	require.NoError(t, err)

	_, err = Decode(token)
	var failure *errortypes.DecodeFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "consentLanguage", failure.Field)
	assert.Equal(t, errortypes.InvalidLanguageCodeErrorCode, errortypes.ReadCode(failure.Cause))
}

func TestEncodeUnknownVersionForCodec(t *testing.T) {
	r := newScenarioRecord(t)
	codec := NewCodec(versions.NewRegistry())

	_, err := codec.Encode(r)
	assert.Equal(t, errortypes.UnknownFormatVersionErrorCode, errortypes.ReadCode(err))
}

func TestEncodeOverflowIsNotTruncated(t *testing.T) {
	p := scenarioParams()
	p.CmpID = 5000
	r, err := NewRecord(p)
	require.NoError(t, err)

	log := &recordingLogger{}
	codec := NewCodec(versions.Default(), WithLogger(log))
	token, err := codec.EncodeWith(r, vendorconsent.Bitfield)
	require.NoError(t, err)

	bits, err := bitstring.FromToken(token)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(bits), 180, "the 13 bit cmp id shifts the rest of the string")
	require.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], "cmpId value 5000 does not fit 12 bits")
}

func TestEncodeWithWarnings(t *testing.T) {
	p := scenarioParams()
	p.VendorListVersion = 4096
	p.MaxVendorID = 70000
	r, err := NewRecord(p)
	require.NoError(t, err)

	log := &recordingLogger{}
	codec := NewCodec(versions.Default(), WithLogger(log))
	token, warnings, err := codec.EncodeWithWarnings(r, vendorconsent.Range)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, log.warnings, "returned warnings are not logged")

	require.Len(t, warnings, 2)
	for _, warning := range warnings {
		assert.True(t, errortypes.IsWarning(warning))
		assert.Equal(t, errortypes.WidthOverflowWarningCode, errortypes.ReadCode(warning))
	}
	assert.Contains(t, warnings[0].Error(), "vendorListVersion")
	assert.Contains(t, warnings[1].Error(), "maxVendorId")
}

func TestCodecMetrics(t *testing.T) {
	engine := &metrics.MetricsEngineMock{}
	encodeOK := metrics.Labels{Operation: metrics.OperationEncode, Encoding: metrics.VendorEncodingBitfield, Status: metrics.StatusOK}
	decodeOK := metrics.Labels{Operation: metrics.OperationDecode, Encoding: metrics.VendorEncodingRange, Status: metrics.StatusOK}
	decodeErr := metrics.Labels{Operation: metrics.OperationDecode, Encoding: metrics.VendorEncodingNone, Status: metrics.StatusErr}
	engine.On("RecordOperation", encodeOK).Return()
	engine.On("RecordTokenBits", encodeOK, 179).Return()
	engine.On("RecordOperation", decodeOK).Return()
	engine.On("RecordOperation", decodeErr).Return()

	codec := NewCodec(versions.Default(), WithMetrics(engine))
	_, err := codec.Encode(newScenarioRecord(t))
	require.NoError(t, err)
	_, err = codec.Decode(rangeToken)
	require.NoError(t, err)
	_, err = codec.Decode("_w")
	require.Error(t, err)

	engine.AssertExpectations(t)
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	codec := NewCodec(versions.Default(), WithMetrics(nil), WithLogger(nil))
	token, err := codec.Encode(newScenarioRecord(t))
	require.NoError(t, err)
	assert.Equal(t, bitfieldToken, token)
}

// go-gdpr is the parser prebid server reads consent strings with.
func TestBitfieldTokenParsesWithGoGDPR(t *testing.T) {
	parsed, err := gdprconsent.ParseString(bitfieldToken)
	require.NoError(t, err)

	assert.Equal(t, uint8(1), parsed.Version())
	assert.Equal(t, uint16(1), parsed.VendorListVersion())
	assert.Equal(t, uint16(6), parsed.MaxVendorID())
	assert.True(t, parsed.PurposeAllowed(consentconstants.Purpose(1)))
	assert.True(t, parsed.PurposeAllowed(consentconstants.Purpose(2)))
	assert.False(t, parsed.PurposeAllowed(consentconstants.Purpose(3)))
	assert.True(t, parsed.VendorConsent(1))
	assert.True(t, parsed.VendorConsent(4))
	assert.False(t, parsed.VendorConsent(3))
}

func rangeOf(start, end int) []int {
	ids := make([]int, 0, end-start+1)
	for id := start; id <= end; id++ {
		ids = append(ids, id)
	}
	return ids
}

func TestEncodeWithWarningsReportsRangeEntryCount(t *testing.T) {
	p := vendorOnly(scenarioParams())
	p.MaxVendorID = 8192
	p.AllowedVendorIDs = nil
	for id := 1; id <= 8191; id += 2 {
		p.AllowedVendorIDs = append(p.AllowedVendorIDs, id)
	}
	r, err := NewRecord(p)
	require.NoError(t, err)

	_, warnings, err := NewCodec(versions.Default()).EncodeWithWarnings(r, vendorconsent.Range)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, errortypes.WidthOverflowWarningCode, errortypes.ReadCode(warnings[0]))
	assert.Contains(t, warnings[0].Error(), "numEntries")

	_, warnings, err = NewCodec(versions.Default()).EncodeWithWarnings(r, vendorconsent.Automatic)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
