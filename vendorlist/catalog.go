// Package vendorlist builds catalog snapshots, the purpose and vendor ids a consent was collected against.
package vendorlist

import (
	"fmt"
	"os"
	"sort"

	"github.com/buger/jsonparser"
	"github.com/prebid/go-gdpr/vendorlist"
)

// Catalog is an immutable snapshot of one catalog version.
type Catalog struct {
	version    int
	purposeIDs []int
	vendorIDs  []int
}

// NewCatalog builds a Catalog. Ids are sorted and de-duplicated; non-positive ids are rejected.
func NewCatalog(version int, purposeIDs []int, vendorIDs []int) (Catalog, error) {
	if version < 0 {
		return Catalog{}, fmt.Errorf("catalog version must not be negative. Got %d", version)
	}
	purposes, err := normalize("purpose", purposeIDs)
	if err != nil {
		return Catalog{}, err
	}
	vendors, err := normalize("vendor", vendorIDs)
	if err != nil {
		return Catalog{}, err
	}
	return Catalog{version: version, purposeIDs: purposes, vendorIDs: vendors}, nil
}

func (c Catalog) Version() int {
	return c.version
}

// PurposeIDs returns a sorted copy of the purpose ids.
func (c Catalog) PurposeIDs() []int {
	return append([]int(nil), c.purposeIDs...)
}

// VendorIDs returns a sorted copy of the vendor ids.
func (c Catalog) VendorIDs() []int {
	return append([]int(nil), c.vendorIDs...)
}

// MaxVendorID is the largest vendor id of the catalog, or 0 if it has no vendors.
func (c Catalog) MaxVendorID() int {
	if len(c.vendorIDs) == 0 {
		return 0
	}
	return c.vendorIDs[len(c.vendorIDs)-1]
}

func (c Catalog) HasPurpose(id int) bool {
	return contains(c.purposeIDs, id)
}

func (c Catalog) HasVendor(id int) bool {
	return contains(c.vendorIDs, id)
}

// ParseCatalog reads a Global Vendor List (v1) document.
//
// The document is checked against a schema and validated by go-gdpr first, so a list without a version
// or without vendors is rejected.
func ParseCatalog(data []byte) (Catalog, error) {
	if err := validateDocument(data); err != nil {
		return Catalog{}, fmt.Errorf("invalid vendor list: %v", err)
	}
	list, err := vendorlist.ParseEagerly(data)
	if err != nil {
		return Catalog{}, fmt.Errorf("invalid vendor list: %v", err)
	}

	purposeIDs, err := collectIDs(data, "purposes")
	if err != nil {
		return Catalog{}, err
	}
	vendorIDs, err := collectIDs(data, "vendors")
	if err != nil {
		return Catalog{}, err
	}
	for _, id := range vendorIDs {
		if id > 0 && list.Vendor(uint16(id)) == nil {
			return Catalog{}, fmt.Errorf("vendor %d is listed but could not be parsed", id)
		}
	}

	return NewCatalog(int(list.Version()), purposeIDs, vendorIDs)
}

// LoadCatalog reads and parses a Global Vendor List document from disk.
func LoadCatalog(path string) (Catalog, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("error reading from file %s: %v", path, err)
	}
	catalog, err := ParseCatalog(contents)
	if err != nil {
		return Catalog{}, fmt.Errorf("error processing vendor list from %s: %v", path, err)
	}
	return catalog, nil
}

func collectIDs(data []byte, key string) ([]int, error) {
	var ids []int
	var eachErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if eachErr != nil {
			return
		}
		if err != nil {
			eachErr = err
			return
		}
		id, err := jsonparser.GetInt(value, "id")
		if err != nil {
			eachErr = fmt.Errorf("%s entry at offset %d has no numeric id: %v", key, offset, err)
			return
		}
		ids = append(ids, int(id))
	}, key)
	if err == jsonparser.KeyPathNotFoundError {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid vendor list %s: %v", key, err)
	}
	return ids, eachErr
}

func normalize(kind string, ids []int) ([]int, error) {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("%s ids must be positive. Got %d", kind, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

func contains(sorted []int, id int) bool {
	i := sort.SearchInts(sorted, id)
	return i < len(sorted) && sorted[i] == id
}
