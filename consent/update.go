package consent

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prebid/consent-string/errortypes"
)

// UpdateOption controls the LastUpdated stamp of a derived record.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	clock clock.Clock
	at    *time.Time
}

// UpdatedAt stamps the derived record with t instead of the current time.
func UpdatedAt(t time.Time) UpdateOption {
	return func(o *updateOptions) {
		o.at = &t
	}
}

// UsingClock reads the current time from c.
func UsingClock(c clock.Clock) UpdateOption {
	return func(o *updateOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

func now(opts []UpdateOption) time.Time {
	o := updateOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.at != nil {
		return *o.at
	}
	return o.clock.Now()
}

// derive rebuilds r from p. Created is kept; LastUpdated is refreshed.
func (r Record) derive(p Params, opts []UpdateOption) (Record, error) {
	p.Created = r.created
	p.LastUpdated = now(opts)
	return build(r.cfg, p)
}

func checkID(kind string, id int) error {
	if id <= 0 {
		return &errortypes.BadInput{Message: fmt.Sprintf("%s ids must be positive. Got %d", kind, id)}
	}
	return nil
}

// setID adds id to or removes it from a sorted id set, returning a new slice.
func setID(ids []int, id int, allowed bool) []int {
	out := make([]int, 0, len(ids)+1)
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	if allowed {
		out = append(out, id)
	}
	return out
}

func union(ids []int, more []int) []int {
	return append(append(make([]int, 0, len(ids)+len(more)), ids...), more...)
}

func minus(ids []int, drop []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !containsUnsorted(drop, id) {
			out = append(out, id)
		}
	}
	return out
}

func containsUnsorted(ids []int, id int) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (r Record) WithPurposeAllowed(id int, allowed bool, opts ...UpdateOption) (Record, error) {
	if err := checkID("purpose", id); err != nil {
		return Record{}, err
	}
	p := r.Params()
	p.AllowedPurposeIDs = setID(p.AllowedPurposeIDs, id, allowed)
	return r.derive(p, opts)
}

func (r Record) WithEditorPurposeAllowed(id int, allowed bool, opts ...UpdateOption) (Record, error) {
	if err := checkID("editor purpose", id); err != nil {
		return Record{}, err
	}
	p := r.Params()
	p.EditorPurposeIDs = setID(p.EditorPurposeIDs, id, allowed)
	return r.derive(p, opts)
}

// WithVendorAllowed does not touch MaxVendorID, so allowing an id above it has no effect on the encoded string.
func (r Record) WithVendorAllowed(id int, allowed bool, opts ...UpdateOption) (Record, error) {
	if err := checkID("vendor", id); err != nil {
		return Record{}, err
	}
	p := r.Params()
	p.AllowedVendorIDs = setID(p.AllowedVendorIDs, id, allowed)
	return r.derive(p, opts)
}

// WithAllPurposesAllowed allows every id of catalogPurposeIDs on top of the purposes already allowed.
func (r Record) WithAllPurposesAllowed(catalogPurposeIDs []int, opts ...UpdateOption) (Record, error) {
	p := r.Params()
	p.AllowedPurposeIDs = union(p.AllowedPurposeIDs, catalogPurposeIDs)
	return r.derive(p, opts)
}

// WithNoPurposesAllowed denies every id of catalogPurposeIDs. Purposes outside the catalog are kept.
func (r Record) WithNoPurposesAllowed(catalogPurposeIDs []int, opts ...UpdateOption) (Record, error) {
	p := r.Params()
	p.AllowedPurposeIDs = minus(p.AllowedPurposeIDs, catalogPurposeIDs)
	return r.derive(p, opts)
}

func (r Record) WithAllEditorPurposesAllowed(catalogPurposeIDs []int, opts ...UpdateOption) (Record, error) {
	p := r.Params()
	p.EditorPurposeIDs = union(p.EditorPurposeIDs, catalogPurposeIDs)
	return r.derive(p, opts)
}

func (r Record) WithNoEditorPurposesAllowed(catalogPurposeIDs []int, opts ...UpdateOption) (Record, error) {
	p := r.Params()
	p.EditorPurposeIDs = minus(p.EditorPurposeIDs, catalogPurposeIDs)
	return r.derive(p, opts)
}

func (r Record) WithAllVendorsAllowed(catalogVendorIDs []int, opts ...UpdateOption) (Record, error) {
	p := r.Params()
	p.AllowedVendorIDs = union(p.AllowedVendorIDs, catalogVendorIDs)
	return r.derive(p, opts)
}

func (r Record) WithNoVendorsAllowed(catalogVendorIDs []int, opts ...UpdateOption) (Record, error) {
	p := r.Params()
	p.AllowedVendorIDs = minus(p.AllowedVendorIDs, catalogVendorIDs)
	return r.derive(p, opts)
}
