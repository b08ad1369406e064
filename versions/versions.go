// Package versions holds the bit layout of every supported consent string format version.
package versions

import (
	"sort"

	"github.com/prebid/consent-string/errortypes"
)

// FormatVersionWidth is the width of the leading version tag. It is fixed for all versions,
// since it has to be read before the configuration is known.
const FormatVersionWidth = 6

// Field names a fixed width field of the consent string.
type Field string

const (
	FieldVersion           Field = "version"
	FieldCreated           Field = "created"
	FieldLastUpdated       Field = "lastUpdated"
	FieldCmpID             Field = "cmpId"
	FieldCmpVersion        Field = "cmpVersion"
	FieldConsentScreen     Field = "consentScreen"
	FieldLanguage          Field = "consentLanguage"
	FieldLanguageLetter    Field = "consentLanguageLetter"
	FieldEditorVersion     Field = "editorVersion"
	FieldVendorListVersion Field = "vendorListVersion"
	FieldEditorPurposes    Field = "editorPurposesAllowed"
	FieldPurposes          Field = "purposesAllowed"
	FieldMaxVendorID       Field = "maxVendorId"
	FieldEncodingType      Field = "encodingType"
	FieldDefaultConsent    Field = "defaultConsent"
	FieldNumEntries        Field = "numEntries"
	FieldEntryType         Field = "singleOrRange"
	FieldSingleVendorID    Field = "singleVendorId"
	FieldStartVendorID     Field = "startVendorId"
	FieldEndVendorID       Field = "endVendorId"
)

// Config is the immutable description of one format version.
type Config struct {
	version int
	widths  map[Field]int
	layout  []Field
	editor  []Field

	bitfieldTag    string
	rangeTag       string
	singleEntryTag string
	rangeEntryTag  string
}

// Definition is used to build a Config.
type Definition struct {
	Version int
	Widths  map[Field]int
	// Layout is the order of the header fields of the consent string. The vendor field, which
	// starts with the max vendor id, follows it.
	Layout []Field
	// EditorLayout is the order of the fields of the publisher section.
	EditorLayout []Field

	BitfieldTag    string
	RangeTag       string
	SingleEntryTag string
	RangeEntryTag  string
}

// NewConfig copies def into an immutable Config.
func NewConfig(def Definition) Config {
	widths := make(map[Field]int, len(def.Widths))
	for field, width := range def.Widths {
		widths[field] = width
	}
	return Config{
		version:        def.Version,
		widths:         widths,
		layout:         append([]Field(nil), def.Layout...),
		editor:         append([]Field(nil), def.EditorLayout...),
		bitfieldTag:    def.BitfieldTag,
		rangeTag:       def.RangeTag,
		singleEntryTag: def.SingleEntryTag,
		rangeEntryTag:  def.RangeEntryTag,
	}
}

func (c Config) Version() int {
	return c.version
}

// Width returns the bit width of a field, or 0 if the version does not define it.
func (c Config) Width(field Field) int {
	return c.widths[field]
}

// Layout returns a copy of the header field order.
func (c Config) Layout() []Field {
	return append([]Field(nil), c.layout...)
}

// EditorLayout returns a copy of the publisher section field order.
func (c Config) EditorLayout() []Field {
	return append([]Field(nil), c.editor...)
}

func (c Config) BitfieldTag() string {
	return c.bitfieldTag
}

func (c Config) RangeTag() string {
	return c.rangeTag
}

func (c Config) SingleEntryTag() string {
	return c.singleEntryTag
}

func (c Config) RangeEntryTag() string {
	return c.rangeEntryTag
}

// Registry maps format versions to their configuration. The zero value holds no versions.
type Registry struct {
	configs map[int]Config
}

// NewRegistry builds a registry. A later config replaces an earlier one with the same version.
func NewRegistry(configs ...Config) Registry {
	r := Registry{configs: make(map[int]Config, len(configs))}
	for _, c := range configs {
		r.configs[c.version] = c
	}
	return r
}

// Lookup returns the configuration of a version, or an UnknownFormatVersion error.
func (r Registry) Lookup(version int) (Config, error) {
	c, ok := r.configs[version]
	if !ok {
		return Config{}, &errortypes.UnknownFormatVersion{Version: version}
	}
	return c, nil
}

// Versions returns the registered versions in ascending order.
func (r Registry) Versions() []int {
	versions := make([]int, 0, len(r.configs))
	for v := range r.configs {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

// Default returns a registry holding every version this package defines.
func Default() Registry {
	return NewRegistry(V1())
}

// V1 is the only version in use.
func V1() Config {
	return NewConfig(Definition{
		Version: 1,
		Widths: map[Field]int{
			FieldVersion:           FormatVersionWidth,
			FieldCreated:           36,
			FieldLastUpdated:       36,
			FieldCmpID:             12,
			FieldCmpVersion:        12,
			FieldConsentScreen:     6,
			FieldLanguage:          12,
			FieldLanguageLetter:    6,
			FieldEditorVersion:     12,
			FieldVendorListVersion: 12,
			FieldEditorPurposes:    24,
			FieldPurposes:          24,
			FieldMaxVendorID:       16,
			FieldEncodingType:      1,
			FieldDefaultConsent:    1,
			FieldNumEntries:        12,
			FieldEntryType:         1,
			FieldSingleVendorID:    16,
			FieldStartVendorID:     16,
			FieldEndVendorID:       16,
		},
		Layout: []Field{
			FieldVersion,
			FieldCreated,
			FieldLastUpdated,
			FieldCmpID,
			FieldCmpVersion,
			FieldConsentScreen,
			FieldLanguage,
			FieldVendorListVersion,
			FieldPurposes,
		},
		EditorLayout: []Field{
			FieldVersion,
			FieldEditorVersion,
			FieldEditorPurposes,
		},
		BitfieldTag:    "0",
		RangeTag:       "1",
		SingleEntryTag: "0",
		RangeEntryTag:  "1",
	})
}
