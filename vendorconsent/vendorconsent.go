// Package vendorconsent encodes the set of allowed vendor ids of a consent string.
//
// The field starts with the max vendor id and an encoding tag, followed by either a BitField
// with one bit per vendor, or a RangeSection listing the runs of ids which differ from a default.
package vendorconsent

import (
	"fmt"
	"strings"

	"github.com/prebid/consent-string/bitutils"
	"github.com/prebid/consent-string/errortypes"
	"github.com/prebid/consent-string/versions"
)

// Encoding selects how the vendor field is written.
type Encoding int

const (
	// Automatic writes whichever of Bitfield and Range is shorter, preferring Bitfield on a tie.
	Automatic Encoding = iota
	Bitfield
	Range
)

func (e Encoding) String() string {
	switch e {
	case Automatic:
		return "auto"
	case Bitfield:
		return "bitfield"
	case Range:
		return "range"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// ParseEncoding maps "auto", "bitfield" and "range" to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "auto", "automatic":
		return Automatic, nil
	case "bitfield":
		return Bitfield, nil
	case "range":
		return Range, nil
	}
	return Automatic, fmt.Errorf("unknown vendor encoding %q, expected auto, bitfield or range", s)
}

// Section is the decoded vendor field.
type Section struct {
	MaxVendorID int
	Encoding    Encoding
	// DefaultConsent and Ranges are only set for the Range encoding.
	DefaultConsent bool
	Ranges         []VendorRange
	// AllowedIDs is sorted ascending.
	AllowedIDs []int
}

// Encode writes the vendor field. Ids outside [1, maxVendorID] cannot be represented and are ignored.
//
// The Encoding actually written is returned, which matters for Automatic.
func Encode(cfg versions.Config, maxVendorID int, allowed []int, enc Encoding) (string, Encoding, error) {
	bits, used, _, err := EncodeWithWarnings(cfg, maxVendorID, allowed, enc)
	return bits, used, err
}

// EncodeWithWarnings is Encode, also returning a width overflow warning when a Range field
// has more entries than its NumEntries field can count.
func EncodeWithWarnings(cfg versions.Config, maxVendorID int, allowed []int, enc Encoding) (string, Encoding, []error, error) {
	switch enc {
	case Bitfield:
		bits, err := EncodeBitfield(cfg, maxVendorID, allowed)
		return bits, Bitfield, nil, err
	case Range:
		bits, warnings, err := encodeRange(cfg, maxVendorID, allowed, false)
		return bits, Range, warnings, err
	case Automatic:
	default:
		return "", enc, nil, fmt.Errorf("unknown vendor encoding %v", enc)
	}

	best, err := EncodeBitfield(cfg, maxVendorID, allowed)
	if err != nil {
		return "", Bitfield, nil, err
	}
	ranged, warnings, err := encodeRange(cfg, maxVendorID, allowed, false)
	if err != nil {
		return "", Range, warnings, err
	}
	if len(ranged) < len(best) {
		return ranged, Range, warnings, nil
	}
	return best, Bitfield, nil, nil
}

// EncodeBitfield writes maxVendorID bits, one per vendor id starting at 1.
func EncodeBitfield(cfg versions.Config, maxVendorID int, allowed []int) (string, error) {
	w := header(cfg, maxVendorID, cfg.BitfieldTag())
	if w.Err() != nil {
		return "", w.Err()
	}

	isAllowed := membership(allowed)
	var sb strings.Builder
	sb.Grow(maxVendorID)
	for id := 1; id <= maxVendorID; id++ {
		if isAllowed[id] {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	w.WriteBits(sb.String())
	return w.String(), w.Err()
}

// EncodeRange writes the runs of ids whose membership differs from defaultConsent.
func EncodeRange(cfg versions.Config, maxVendorID int, allowed []int, defaultConsent bool) (string, error) {
	bits, _, err := encodeRange(cfg, maxVendorID, allowed, defaultConsent)
	return bits, err
}

func encodeRange(cfg versions.Config, maxVendorID int, allowed []int, defaultConsent bool) (string, []error, error) {
	w := header(cfg, maxVendorID, cfg.RangeTag())
	ranges := Ranges(maxVendorID, allowed, defaultConsent)

	var warnings []error
	entriesWidth := cfg.Width(versions.FieldNumEntries)
	if !bitutils.Fits(len(ranges), entriesWidth) {
		warnings = append(warnings, &errortypes.Warning{
			Message:     fmt.Sprintf("%s value %d does not fit %d bits; later fields will be misaligned", versions.FieldNumEntries, len(ranges), entriesWidth),
			WarningCode: errortypes.WidthOverflowWarningCode,
		})
	}

	w.WriteBool(defaultConsent, cfg.Width(versions.FieldDefaultConsent))
	w.WriteInt(len(ranges), entriesWidth)
	for _, r := range ranges {
		if r.Len() == 1 {
			w.WriteBits(cfg.SingleEntryTag())
			w.WriteInt(r.Start, cfg.Width(versions.FieldSingleVendorID))
			continue
		}
		w.WriteBits(cfg.RangeEntryTag())
		w.WriteInt(r.Start, cfg.Width(versions.FieldStartVendorID))
		w.WriteInt(r.End, cfg.Width(versions.FieldEndVendorID))
	}
	return w.String(), warnings, w.Err()
}

func header(cfg versions.Config, maxVendorID int, tag string) *bitutils.Writer {
	w := &bitutils.Writer{}
	w.WriteInt(maxVendorID, cfg.Width(versions.FieldMaxVendorID))
	w.WriteBits(tag)
	return w
}

func membership(ids []int) map[int]bool {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
