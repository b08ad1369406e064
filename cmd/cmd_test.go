package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prebid/consent-string/consent"
	"github.com/prebid/consent-string/errortypes"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bitfieldToken = "BOEFBi5OEFBi5ABACDENABwAAAAAZoA"
	rangeToken    = "BOEFBi5OEFBi5ABACDENABwAAAAAaACgACAAQABA"
	v5List        = "../vendorlist/testdata/vendorlist-v5.json"
	v6List        = "../vendorlist/testdata/vendorlist-v6.json"
)

var scenarioTime = time.Date(2017, 11, 7, 18, 59, 4, 900*int(time.Millisecond), time.UTC)

var scenarioFlags = []string{
	"--cmp-id", "1",
	"--cmp-version", "2",
	"--consent-screen", "3",
	"--language", "EN",
	"--vendor-list-version", "1",
	"--purposes", "1,2",
	"--vendors", "4,1,2",
	"--max-vendor-id", "6",
	"--created", "2017-11-07T18:59:04.9Z",
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	mockClock := clock.NewMock()
	mockClock.Set(scenarioTime)

	root := NewRootCommand(viper.New(), mockClock)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func encodeArgs(extra ...string) []string {
	return append(append([]string{"encode"}, scenarioFlags...), extra...)
}

func parseEncoded(t *testing.T, out string) encodedRecord {
	t.Helper()
	var result encodedRecord
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return result
}

func TestEncode(t *testing.T) {
	testCases := []struct {
		desc     string
		encoding string
		expected string
	}{
		{desc: "bitfield", encoding: "bitfield", expected: bitfieldToken},
		{desc: "range", encoding: "range", expected: rangeToken},
		{desc: "automatic", encoding: "auto", expected: bitfieldToken},
	}

	for _, test := range testCases {
		out, _, err := run(t, encodeArgs("--encoding", test.encoding)...)
		require.NoError(t, err, test.desc)

		result := parseEncoded(t, out)
		assert.Equal(t, test.expected, result.ConsentString, test.desc)
		assert.Empty(t, result.PublisherString, test.desc)
	}
}

func TestEncodeYAML(t *testing.T) {
	out, _, err := run(t, encodeArgs("-o", "yaml", "--encoding", "bitfield")...)
	require.NoError(t, err)
	assert.Equal(t, "consent_string: "+bitfieldToken+"\n", out)
}

func TestEncodePublisherSection(t *testing.T) {
	out, _, err := run(t, encodeArgs("--editor-version", "1", "--editor-purposes", "1,3")...)
	require.NoError(t, err)

	result := parseEncoded(t, out)
	assert.Equal(t, bitfieldToken, result.ConsentString)
	assert.Equal(t, "BABoAAAA", result.PublisherString)
}

func TestEncodeInfersMaxVendorID(t *testing.T) {
	out, _, err := run(t, "encode", "--vendors", "2,9")
	require.NoError(t, err)

	r, err := consent.Decode(parseEncoded(t, out).ConsentString)
	require.NoError(t, err)
	assert.Equal(t, 9, r.MaxVendorID())
	assert.Equal(t, []int{2, 9}, r.AllowedVendorIDs())
	assert.Equal(t, scenarioTime, r.Created(), "created defaults to the clock")
	assert.Equal(t, scenarioTime, r.LastUpdated(), "last updated defaults to created")
}

func TestEncodeAcceptAll(t *testing.T) {
	out, _, err := run(t, "encode", "--accept-all", "--vendor-list", v6List, "--cmp-id", "7")
	require.NoError(t, err)

	r, err := consent.Decode(parseEncoded(t, out).ConsentString)
	require.NoError(t, err)
	assert.Equal(t, 7, r.CmpID())
	assert.Equal(t, 6, r.VendorListVersion())
	assert.Equal(t, []int{1, 2, 3, 4}, r.AllowedPurposeIDs())
	assert.Equal(t, []int{1, 4, 5, 8}, r.AllowedVendorIDs())
}

func TestEncodeErrors(t *testing.T) {
	testCases := []struct {
		desc string
		args []string
	}{
		{desc: "cmp id too wide", args: []string{"encode", "--cmp-id", "5000"}},
		{desc: "bad language", args: []string{"encode", "--language", "e1"}},
		{desc: "bad encoding", args: []string{"encode", "--encoding", "dense"}},
		{desc: "bad timestamp", args: []string{"encode", "--created", "yesterday"}},
		{desc: "negative vendor", args: []string{"encode", "--vendors", "-1"}},
		{desc: "accept all without vendor list", args: []string{"encode", "--accept-all"}},
		{desc: "unknown output format", args: []string{"encode", "-o", "xml"}},
		{desc: "positional argument", args: []string{"encode", "BOEF"}},
	}

	for _, test := range testCases {
		out, _, err := run(t, test.args...)
		assert.Error(t, err, test.desc)
		assert.Empty(t, out, test.desc)
	}
}

func TestDecode(t *testing.T) {
	out, _, err := run(t, "decode", rangeToken)
	require.NoError(t, err)

	var decoded decodedRecord
	require.NoError(t, json.Unmarshal([]byte(out), &decoded), out)
	assert.Equal(t, 1, decoded.FormatVersion)
	assert.True(t, scenarioTime.Equal(decoded.Created))
	assert.Equal(t, 1, decoded.CmpID)
	assert.Equal(t, 2, decoded.CmpVersion)
	assert.Equal(t, 3, decoded.ConsentScreen)
	assert.Equal(t, "en", decoded.Language)
	assert.Equal(t, "English", decoded.LanguageName)
	assert.Equal(t, 6, decoded.MaxVendorID)
	assert.Equal(t, []int{1, 2, 4}, decoded.AllowedVendorIDs)
	assert.Equal(t, "110000000000000000000000", decoded.PurposeConsents)
	assert.Equal(t, "110100", decoded.VendorConsents)
}

func TestDecodeWithPublisherSection(t *testing.T) {
	out, _, err := run(t, "decode", bitfieldToken, "--publisher", "BABoAAAA", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "consent_language: en\n")
	assert.Contains(t, out, "language_name: English\n")
	assert.Contains(t, out, "editor_version: 1\n")
	assert.Contains(t, out, "editor_purpose_consents: \"101000000000000000000000\"\n")
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := run(t, "decode", "_w")
	var failure *errortypes.DecodeFailure
	assert.True(t, errors.As(err, &failure))

	_, _, err = run(t, "decode", bitfieldToken, "--publisher", "BACA")
	assert.True(t, errors.As(err, &failure))

	_, _, err = run(t, "decode")
	assert.Error(t, err)
}

func v5Token(t *testing.T) string {
	t.Helper()
	r, err := consent.NewRecord(consent.Params{
		FormatVersion:     1,
		Created:           scenarioTime.Add(-time.Hour),
		LastUpdated:       scenarioTime.Add(-time.Hour),
		CmpID:             1,
		Language:          "en",
		VendorListVersion: 5,
		MaxVendorID:       4,
		AllowedPurposeIDs: []int{1},
		AllowedVendorIDs:  []int{2, 4},
	})
	require.NoError(t, err)
	token, err := consent.Encode(r)
	require.NoError(t, err)
	return token
}

func TestMigrate(t *testing.T) {
	out, _, err := run(t, "migrate", v5Token(t), "--old", v5List, "--new", v6List)
	require.NoError(t, err)

	r, err := consent.Decode(parseEncoded(t, out).ConsentString)
	require.NoError(t, err)
	assert.Equal(t, 6, r.VendorListVersion())
	assert.Equal(t, []int{1, 4}, r.AllowedPurposeIDs())
	assert.Equal(t, []int{4, 5, 8}, r.AllowedVendorIDs())
	assert.Equal(t, scenarioTime, r.LastUpdated())
	assert.Equal(t, scenarioTime.Add(-time.Hour), r.Created())
}

func TestMigrateKeepLastUpdated(t *testing.T) {
	out, _, err := run(t, "migrate", v5Token(t), "--old", v5List, "--new", v6List, "--keep-last-updated")
	require.NoError(t, err)

	r, err := consent.Decode(parseEncoded(t, out).ConsentString)
	require.NoError(t, err)
	assert.Equal(t, scenarioTime.Add(-time.Hour), r.LastUpdated())
}

func TestMigrateErrors(t *testing.T) {
	_, _, err := run(t, "migrate", v5Token(t), "--old", v6List, "--new", v6List)
	assert.Equal(t, errortypes.CatalogVersionMismatchErrorCode, errortypes.ReadCode(err))

	_, _, err = run(t, "migrate", v5Token(t), "--new", v6List)
	assert.Error(t, err, "--old is required")

	_, _, err = run(t, "migrate", v5Token(t), "--old", v5List, "--new", "missing.json")
	assert.Error(t, err)

	_, _, err = run(t, "migrate", v5Token(t), "--old", v5List, "--new", v6List, "--old-editor", v5List)
	assert.Error(t, err, "editor migration needs every editor flag")
}

func TestConfigFileAndMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "consent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cmp:
  id: 1
  version: 2
consent_screen: 3
encoding: range
metrics:
  prometheus:
    enabled: true
    namespace: cmp
`), 0644))

	out, errOut, err := run(t, "--config", path, "encode", "--vendors", "1,2,4", "--max-vendor-id", "6",
		"--purposes", "1,2", "--vendor-list-version", "1")
	require.NoError(t, err)
	assert.Equal(t, rangeToken, parseEncoded(t, out).ConsentString)
	assert.Contains(t, errOut, `cmp_operations_total{encoding="range",operation="encode",status="ok"} 1`)
	assert.Contains(t, errOut, "cmp_token_bits_bucket")
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "decode", bitfieldToken)
	assert.Error(t, err)
}

func TestExecute(t *testing.T) {
	root := NewRootCommand(viper.New(), clock.NewMock())
	var errOut bytes.Buffer
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&errOut)

	root.SetArgs([]string{"decode", bitfieldToken})
	assert.Equal(t, 0, Execute(root))

	root.SetArgs([]string{"decode", "_w"})
	assert.Equal(t, 1, Execute(root))
	assert.Contains(t, errOut.String(), "consentstring: consent string decode failed at version")
}

func TestEncodeWidthOverflow(t *testing.T) {
	out, errOut, err := run(t, "encode", "--vendor-list-version", "5000")
	require.NoError(t, err)
	assert.NotEmpty(t, parseEncoded(t, out).ConsentString)
	assert.Contains(t, errOut, "warning: vendorListVersion value 5000 does not fit 12 bits")

	out, _, err = run(t, "encode", "--vendor-list-version", "5000", "--strict")
	var aggregate errortypes.AggregateErrors
	require.True(t, errors.As(err, &aggregate))
	assert.Len(t, aggregate.Errors, 1)
	assert.Equal(t, errortypes.WidthOverflowWarningCode, errortypes.ReadCode(aggregate.Errors[0]))
	assert.Empty(t, out)
}
