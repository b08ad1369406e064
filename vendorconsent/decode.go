package vendorconsent

import (
	"fmt"
	"sort"

	"github.com/prebid/consent-string/bitutils"
	"github.com/prebid/consent-string/versions"
)

// Decode reads the vendor field from r. A failure leaves nothing usable behind; the caller
// should reject the whole consent string.
func Decode(cfg versions.Config, r *bitutils.Reader) (Section, error) {
	maxVendorID, err := r.ReadInt(cfg.Width(versions.FieldMaxVendorID))
	if err != nil {
		return Section{}, fmt.Errorf("parse MaxVendorId: %w", err)
	}
	tag, err := r.Next(cfg.Width(versions.FieldEncodingType))
	if err != nil {
		return Section{}, fmt.Errorf("parse EncodingType: %w", err)
	}

	switch tag {
	case cfg.BitfieldTag():
		return parseBitField(r, maxVendorID)
	case cfg.RangeTag():
		return parseRangeSection(cfg, r, maxVendorID)
	}
	return Section{}, fmt.Errorf("unexpected vendor encoding type %q at bit %d", tag, r.Offset()-len(tag))
}

func parseBitField(r *bitutils.Reader, maxVendorID int) (Section, error) {
	bits, err := r.Next(maxVendorID)
	if err != nil {
		return Section{}, fmt.Errorf("a BitField for %d vendors: %w", maxVendorID, err)
	}

	allowed := make([]int, 0)
	// Careful here... vendor IDs start at index 1...
	for i := 0; i < len(bits); i++ {
		if bits[i] == '1' {
			allowed = append(allowed, i+1)
		}
	}
	return Section{
		MaxVendorID: maxVendorID,
		Encoding:    Bitfield,
		AllowedIDs:  allowed,
	}, nil
}

func parseRangeSection(cfg versions.Config, r *bitutils.Reader, maxVendorID int) (Section, error) {
	defaultConsent, err := r.ReadBool(cfg.Width(versions.FieldDefaultConsent))
	if err != nil {
		return Section{}, fmt.Errorf("parse DefaultConsent: %w", err)
	}
	numEntries, err := r.ReadInt(cfg.Width(versions.FieldNumEntries))
	if err != nil {
		return Section{}, fmt.Errorf("parse NumEntries: %w", err)
	}

	ranges := make([]VendorRange, 0, numEntries)
	for i := 0; i < numEntries; i++ {
		entry, err := parseRangeEntry(cfg, r, maxVendorID)
		if err != nil {
			return Section{}, fmt.Errorf("range entry %d of %d: %w", i+1, numEntries, err)
		}
		ranges = append(ranges, entry)
	}

	var allowed []int
	if defaultConsent {
		allowed = complement(maxVendorID, ranges)
	} else {
		allowed = enumerate(ranges)
		sort.Ints(allowed)
	}
	if allowed == nil {
		allowed = make([]int, 0)
	}

	return Section{
		MaxVendorID:    maxVendorID,
		Encoding:       Range,
		DefaultConsent: defaultConsent,
		Ranges:         ranges,
		AllowedIDs:     allowed,
	}, nil
}

func parseRangeEntry(cfg versions.Config, r *bitutils.Reader, maxVendorID int) (VendorRange, error) {
	initialBit := r.Offset()
	tag, err := r.Next(cfg.Width(versions.FieldEntryType))
	if err != nil {
		return VendorRange{}, err
	}

	switch tag {
	case cfg.SingleEntryTag():
		vendorID, err := r.ReadInt(cfg.Width(versions.FieldSingleVendorID))
		if err != nil {
			return VendorRange{}, err
		}
		if vendorID == 0 || vendorID > maxVendorID {
			return VendorRange{}, fmt.Errorf("bit %d range entry names vendor %d, but only vendors [1, %d] are valid", initialBit, vendorID, maxVendorID)
		}
		return VendorRange{Start: vendorID, End: vendorID}, nil
	case cfg.RangeEntryTag():
		start, err := r.ReadInt(cfg.Width(versions.FieldStartVendorID))
		if err != nil {
			return VendorRange{}, err
		}
		end, err := r.ReadInt(cfg.Width(versions.FieldEndVendorID))
		if err != nil {
			return VendorRange{}, err
		}
		if start == 0 {
			return VendorRange{}, fmt.Errorf("bit %d range entry starts at 0, but the min vendor ID is 1", initialBit)
		}
		if end > maxVendorID {
			return VendorRange{}, fmt.Errorf("bit %d range entry ends at %d, but the max vendor ID is %d", initialBit, end, maxVendorID)
		}
		if end < start {
			return VendorRange{}, fmt.Errorf("bit %d range entry covers vendors [%d, %d]. The start should not be greater than the end", initialBit, start, end)
		}
		return VendorRange{Start: start, End: end}, nil
	}
	return VendorRange{}, fmt.Errorf("unexpected range entry type %q at bit %d", tag, initialBit)
}
