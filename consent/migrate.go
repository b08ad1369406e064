package consent

import (
	"github.com/prebid/consent-string/errortypes"
	"github.com/prebid/consent-string/vendorlist"
)

// MigrateVendorList moves r from the vendor list it was collected against to updated.
//
// Purposes and vendors present in both lists keep their state, ids new in updated are allowed
// and ids missing from updated are dropped. old must be the list r was collected against.
func (r Record) MigrateVendorList(old, updated vendorlist.Catalog, opts ...UpdateOption) (Record, error) {
	if old.Version() != r.vendorListVersion {
		return Record{}, &errortypes.CatalogVersionMismatch{Catalog: "vendor list", Expected: r.vendorListVersion, Actual: old.Version()}
	}

	p := r.Params()
	p.VendorListVersion = updated.Version()
	p.MaxVendorID = updated.MaxVendorID()
	p.AllowedPurposeIDs = migrateIDs(updated.PurposeIDs(), old.HasPurpose, r.IsPurposeAllowed)
	p.AllowedVendorIDs = migrateIDs(updated.VendorIDs(), old.HasVendor, r.IsVendorAllowed)
	return r.derive(p, opts)
}

// MigrateEditorCatalog moves the editor purposes of r to updated. Only the purposes of the catalogs are read.
func (r Record) MigrateEditorCatalog(old, updated vendorlist.Catalog, opts ...UpdateOption) (Record, error) {
	if old.Version() != r.editorVersion {
		return Record{}, &errortypes.CatalogVersionMismatch{Catalog: "editor catalog", Expected: r.editorVersion, Actual: old.Version()}
	}

	p := r.Params()
	p.EditorVersion = updated.Version()
	p.EditorPurposeIDs = migrateIDs(updated.PurposeIDs(), old.HasPurpose, r.IsEditorPurposeAllowed)
	return r.derive(p, opts)
}

func migrateIDs(updated []int, known func(int) bool, allowed func(int) bool) []int {
	out := make([]int, 0, len(updated))
	for _, id := range updated {
		if !known(id) || allowed(id) {
			out = append(out, id)
		}
	}
	return out
}

// AcceptAll builds the record of a user who allowed everything in both catalogs.
// base supplies the CMP fields; its catalog fields and timestamps are replaced.
func AcceptAll(base Params, vendorList, editor vendorlist.Catalog, opts ...UpdateOption) (Record, error) {
	return defaultCodec.AcceptAll(base, vendorList, editor, opts...)
}

// AcceptAll is the package AcceptAll for the registry of c.
func (c *Codec) AcceptAll(base Params, vendorList, editor vendorlist.Catalog, opts ...UpdateOption) (Record, error) {
	stamp := now(opts)
	base.Created = stamp
	base.LastUpdated = stamp
	base.VendorListVersion = vendorList.Version()
	base.MaxVendorID = vendorList.MaxVendorID()
	base.AllowedPurposeIDs = vendorList.PurposeIDs()
	base.AllowedVendorIDs = vendorList.VendorIDs()
	base.EditorVersion = editor.Version()
	base.EditorPurposeIDs = editor.PurposeIDs()
	return c.NewRecord(base)
}
