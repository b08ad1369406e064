// Package consent holds the consent record and the codec which turns it into a consent string and back.
package consent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prebid/consent-string/errortypes"
	"github.com/prebid/consent-string/versions"
)

const decisecond = 100 * time.Millisecond

// Params are the inputs of a Record. Id lists are treated as sets: order and duplicates do not matter.
type Params struct {
	FormatVersion     int       `json:"formatVersion" yaml:"format_version"`
	Created           time.Time `json:"created" yaml:"created"`
	LastUpdated       time.Time `json:"lastUpdated" yaml:"last_updated"`
	CmpID             int       `json:"cmpId" yaml:"cmp_id"`
	CmpVersion        int       `json:"cmpVersion" yaml:"cmp_version"`
	ConsentScreen     int       `json:"consentScreen" yaml:"consent_screen"`
	Language          string    `json:"consentLanguage" yaml:"consent_language"`
	EditorVersion     int       `json:"editorVersion" yaml:"editor_version"`
	VendorListVersion int       `json:"vendorListVersion" yaml:"vendor_list_version"`
	MaxVendorID       int       `json:"maxVendorId" yaml:"max_vendor_id"`
	EditorPurposeIDs  []int     `json:"editorPurposeIds" yaml:"editor_purpose_ids"`
	AllowedPurposeIDs []int     `json:"allowedPurposeIds" yaml:"allowed_purpose_ids"`
	AllowedVendorIDs  []int     `json:"allowedVendorIds" yaml:"allowed_vendor_ids"`
}

// Record is one user's consent decision. It is immutable: every update returns a new Record.
//
// The zero Record is not valid; build one with NewRecord, Codec.NewRecord or Codec.Decode.
type Record struct {
	cfg versions.Config

	created           time.Time
	lastUpdated       time.Time
	cmpID             int
	cmpVersion        int
	consentScreen     int
	language          Language
	editorVersion     int
	vendorListVersion int
	maxVendorID       int
	editorPurposeIDs  []int
	allowedPurposeIDs []int
	allowedVendorIDs  []int
}

// NewRecord validates p against the default version registry.
func NewRecord(p Params) (Record, error) {
	return defaultCodec.NewRecord(p)
}

func build(cfg versions.Config, p Params) (Record, error) {
	language, err := ParseLanguage(p.Language)
	if err != nil {
		return Record{}, err
	}

	for _, field := range []struct {
		name  string
		value int
	}{
		{"cmpId", p.CmpID},
		{"cmpVersion", p.CmpVersion},
		{"consentScreen", p.ConsentScreen},
		{"editorVersion", p.EditorVersion},
		{"vendorListVersion", p.VendorListVersion},
		{"maxVendorId", p.MaxVendorID},
	} {
		if field.value < 0 {
			return Record{}, &errortypes.BadInput{Message: fmt.Sprintf("%s must not be negative. Got %d", field.name, field.value)}
		}
	}

	for _, field := range []struct {
		name  string
		value time.Time
	}{
		{"created", p.Created},
		{"lastUpdated", p.LastUpdated},
	} {
		if field.value.Before(epoch) {
			return Record{}, &errortypes.BadInput{Message: fmt.Sprintf("%s must not be before %s. Got %s", field.name, epoch.Format(time.RFC3339), field.value.Format(time.RFC3339Nano))}
		}
	}

	editorPurposes, err := normalizeIDs("editor purpose", p.EditorPurposeIDs)
	if err != nil {
		return Record{}, err
	}
	purposes, err := normalizeIDs("purpose", p.AllowedPurposeIDs)
	if err != nil {
		return Record{}, err
	}
	vendors, err := normalizeIDs("vendor", p.AllowedVendorIDs)
	if err != nil {
		return Record{}, err
	}

	return Record{
		cfg:               cfg,
		created:           truncate(p.Created),
		lastUpdated:       truncate(p.LastUpdated),
		cmpID:             p.CmpID,
		cmpVersion:        p.CmpVersion,
		consentScreen:     p.ConsentScreen,
		language:          language,
		editorVersion:     p.EditorVersion,
		vendorListVersion: p.VendorListVersion,
		maxVendorID:       p.MaxVendorID,
		editorPurposeIDs:  editorPurposes,
		allowedPurposeIDs: purposes,
		allowedVendorIDs:  vendors,
	}, nil
}

// epoch is the earliest time a consent string can hold.
var epoch = time.Unix(0, 0).UTC()

// truncate drops sub-decisecond precision, the native time unit of the consent string.
func truncate(t time.Time) time.Time {
	return t.Truncate(decisecond).UTC()
}

func normalizeIDs(kind string, ids []int) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, &errortypes.BadInput{Message: fmt.Sprintf("%s ids must be positive. Got %d", kind, id)}
		}
		out = append(out, id)
	}
	sort.Ints(out)
	return dedupe(out), nil
}

func dedupe(sorted []int) []int {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, id := range sorted[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

func contains(sorted []int, id int) bool {
	i := sort.SearchInts(sorted, id)
	return i < len(sorted) && sorted[i] == id
}

func (r Record) FormatVersion() int      { return r.cfg.Version() }
func (r Record) Created() time.Time      { return r.created }
func (r Record) LastUpdated() time.Time  { return r.lastUpdated }
func (r Record) CmpID() int              { return r.cmpID }
func (r Record) CmpVersion() int         { return r.cmpVersion }
func (r Record) ConsentScreen() int      { return r.consentScreen }
func (r Record) Language() Language      { return r.language }
func (r Record) EditorVersion() int      { return r.editorVersion }
func (r Record) VendorListVersion() int  { return r.vendorListVersion }
func (r Record) MaxVendorID() int        { return r.maxVendorID }
func (r Record) EditorPurposeIDs() []int { return append([]int(nil), r.editorPurposeIDs...) }
func (r Record) AllowedPurposeIDs() []int {
	return append([]int(nil), r.allowedPurposeIDs...)
}
func (r Record) AllowedVendorIDs() []int {
	return append([]int(nil), r.allowedVendorIDs...)
}

// Params returns the inputs which rebuild this Record.
func (r Record) Params() Params {
	return Params{
		FormatVersion:     r.FormatVersion(),
		Created:           r.created,
		LastUpdated:       r.lastUpdated,
		CmpID:             r.cmpID,
		CmpVersion:        r.cmpVersion,
		ConsentScreen:     r.consentScreen,
		Language:          r.language.String(),
		EditorVersion:     r.editorVersion,
		VendorListVersion: r.vendorListVersion,
		MaxVendorID:       r.maxVendorID,
		EditorPurposeIDs:  r.EditorPurposeIDs(),
		AllowedPurposeIDs: r.AllowedPurposeIDs(),
		AllowedVendorIDs:  r.AllowedVendorIDs(),
	}
}

// Equal compares two records field by field.
func (r Record) Equal(other Record) bool {
	return r.FormatVersion() == other.FormatVersion() &&
		r.created.Equal(other.created) &&
		r.lastUpdated.Equal(other.lastUpdated) &&
		r.cmpID == other.cmpID &&
		r.cmpVersion == other.cmpVersion &&
		r.consentScreen == other.consentScreen &&
		r.language == other.language &&
		r.editorVersion == other.editorVersion &&
		r.vendorListVersion == other.vendorListVersion &&
		r.maxVendorID == other.maxVendorID &&
		equalIDs(r.editorPurposeIDs, other.editorPurposeIDs) &&
		equalIDs(r.allowedPurposeIDs, other.allowedPurposeIDs) &&
		equalIDs(r.allowedVendorIDs, other.allowedVendorIDs)
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r Record) IsPurposeAllowed(id int) bool {
	return contains(r.allowedPurposeIDs, id)
}

func (r Record) IsEditorPurposeAllowed(id int) bool {
	return contains(r.editorPurposeIDs, id)
}

func (r Record) IsVendorAllowed(id int) bool {
	return contains(r.allowedVendorIDs, id)
}

// PurposeConsents is the purposes field as a string of '1' and '0', one character per purpose id
// starting at 1. This is the value CMPs store for other SDKs to read.
func (r Record) PurposeConsents() string {
	return dense(r.allowedPurposeIDs, r.cfg.Width(versions.FieldPurposes))
}

// EditorPurposeConsents is PurposeConsents for the editor catalog.
func (r Record) EditorPurposeConsents() string {
	return dense(r.editorPurposeIDs, r.cfg.Width(versions.FieldEditorPurposes))
}

// VendorConsents has one character per vendor id, up to the max vendor id.
func (r Record) VendorConsents() string {
	return dense(r.allowedVendorIDs, r.maxVendorID)
}

func dense(sorted []int, width int) string {
	var sb strings.Builder
	sb.Grow(width)
	for id := 1; id <= width; id++ {
		if contains(sorted, id) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// parseDense is the inverse of dense.
func parseDense(bits string) []int {
	ids := make([]int, 0)
	for i := 0; i < len(bits); i++ {
		if bits[i] == '1' {
			ids = append(ids, i+1)
		}
	}
	return ids
}

func (r Record) String() string {
	return fmt.Sprintf("consent{version=%d created=%s lastUpdated=%s cmp=%d/%d screen=%d language=%s vendorList=%d maxVendorId=%d purposes=%v vendors=%v editor=%d:%v}",
		r.FormatVersion(), r.created.Format(time.RFC3339Nano), r.lastUpdated.Format(time.RFC3339Nano),
		r.cmpID, r.cmpVersion, r.consentScreen, r.language, r.vendorListVersion, r.maxVendorID,
		r.allowedPurposeIDs, r.allowedVendorIDs, r.editorVersion, r.editorPurposeIDs)
}
