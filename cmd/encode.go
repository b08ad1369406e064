package cmd

import (
	"fmt"
	"time"

	"github.com/prebid/consent-string/consent"
	"github.com/prebid/consent-string/errortypes"
	"github.com/prebid/consent-string/vendorlist"
	"github.com/spf13/cobra"
)

type encodeFlags struct {
	created           string
	lastUpdated       string
	vendorListVersion int
	maxVendorID       int
	purposes          []int
	vendors           []int
	editorVersion     int
	editorPurposes    []int
	editorCatalog     string
	acceptAll         bool
	strict            bool
}

func newEncodeCommand(a *app) *cobra.Command {
	flags := &encodeFlags{}
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a consent record into a consent string",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.buildRecord(cmd, flags)
			if err != nil {
				return err
			}
			return a.printEncoded(cmd, r, flags.strict)
		},
	}

	fs := cmd.Flags()
	fs.Int("format-version", 1, "consent string format version")
	fs.Int("cmp-id", 0, "id of the consent management platform")
	fs.Int("cmp-version", 0, "version of the consent management platform")
	fs.Int("consent-screen", 0, "screen of the CMP on which consent was given")
	fs.String("language", "en", "two letter language of the CMP screen")
	fs.String("encoding", "auto", "vendor field encoding: auto, bitfield or range")
	fs.String("vendor-list", "", "Global Vendor List document used by --accept-all")
	fs.StringVar(&flags.created, "created", "", "creation time, RFC 3339; defaults to now")
	fs.StringVar(&flags.lastUpdated, "last-updated", "", "last update time, RFC 3339; defaults to --created")
	fs.IntVar(&flags.vendorListVersion, "vendor-list-version", 0, "version of the vendor list the consent was collected against")
	fs.IntVar(&flags.maxVendorID, "max-vendor-id", 0, "largest vendor id; defaults to the largest of --vendors")
	fs.IntSliceVar(&flags.purposes, "purposes", nil, "allowed purpose ids")
	fs.IntSliceVar(&flags.vendors, "vendors", nil, "allowed vendor ids")
	fs.IntVar(&flags.editorVersion, "editor-version", 0, "version of the publisher purpose catalog")
	fs.IntSliceVar(&flags.editorPurposes, "editor-purposes", nil, "allowed publisher purpose ids")
	fs.StringVar(&flags.editorCatalog, "editor-catalog", "", "Global Vendor List style document holding the publisher purposes, used by --accept-all")
	fs.BoolVar(&flags.acceptAll, "accept-all", false, "allow every purpose and vendor of --vendor-list and --editor-catalog")
	fs.BoolVar(&flags.strict, "strict", false, "fail instead of writing a value wider than its field")

	bindFlags(a, cmd, map[string]string{
		"format_version":   "format-version",
		"cmp.id":           "cmp-id",
		"cmp.version":      "cmp-version",
		"consent_screen":   "consent-screen",
		"language":         "language",
		"encoding":         "encoding",
		"vendor_list.path": "vendor-list",
	})
	return cmd
}

func bindFlags(a *app, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag --%s to %s: %v", flag, key, err))
		}
	}
}

func (a *app) baseParams() consent.Params {
	return consent.Params{
		FormatVersion: a.cfg.FormatVersion,
		CmpID:         a.cfg.CMP.ID,
		CmpVersion:    a.cfg.CMP.Version,
		ConsentScreen: a.cfg.ConsentScreen,
		Language:      a.cfg.Language,
	}
}

func (a *app) buildRecord(cmd *cobra.Command, flags *encodeFlags) (consent.Record, error) {
	if flags.acceptAll {
		return a.acceptAll(flags)
	}

	p := a.baseParams()
	var err error
	if p.Created, err = parseTime(flags.created, a.clock.Now()); err != nil {
		return consent.Record{}, fmt.Errorf("--created: %v", err)
	}
	if p.LastUpdated, err = parseTime(flags.lastUpdated, p.Created); err != nil {
		return consent.Record{}, fmt.Errorf("--last-updated: %v", err)
	}
	p.VendorListVersion = flags.vendorListVersion
	p.AllowedPurposeIDs = flags.purposes
	p.AllowedVendorIDs = flags.vendors
	p.EditorVersion = flags.editorVersion
	p.EditorPurposeIDs = flags.editorPurposes
	p.MaxVendorID = flags.maxVendorID
	if !cmd.Flags().Changed("max-vendor-id") {
		for _, id := range flags.vendors {
			p.MaxVendorID = max(p.MaxVendorID, id)
		}
	}
	return a.codec.NewRecord(p)
}

func (a *app) acceptAll(flags *encodeFlags) (consent.Record, error) {
	if a.cfg.VendorList.Path == "" {
		return consent.Record{}, fmt.Errorf("--accept-all needs --vendor-list")
	}
	vendorList, err := vendorlist.LoadCatalog(a.cfg.VendorList.Path)
	if err != nil {
		return consent.Record{}, err
	}
	editor, err := vendorlist.NewCatalog(flags.editorVersion, flags.editorPurposes, nil)
	if err != nil {
		return consent.Record{}, err
	}
	if flags.editorCatalog != "" {
		if editor, err = vendorlist.LoadCatalog(flags.editorCatalog); err != nil {
			return consent.Record{}, err
		}
	}
	return a.codec.AcceptAll(a.baseParams(), vendorList, editor, consent.UsingClock(a.clock))
}

func parseTime(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

// printEncoded prints the consent string of r, plus its publisher section when r carries editor fields.
// Width overflow warnings go to stderr, or fail the command when strict is set.
func (a *app) printEncoded(cmd *cobra.Command, r consent.Record, strict bool) error {
	token, warnings, err := a.codec.EncodeWithWarnings(r, a.cfg.VendorEncoding())
	if err != nil {
		return err
	}
	if strict && len(warnings) > 0 {
		return errortypes.NewAggregateErrors("consent string would be misaligned", warnings)
	}
	for _, warning := range warnings {
		if errortypes.IsWarning(warning) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", warning)
		}
	}
	result := encodedRecord{ConsentString: token}
	if r.EditorVersion() > 0 || len(r.EditorPurposeIDs()) > 0 {
		if result.PublisherString, err = a.codec.EncodeEditor(r); err != nil {
			return err
		}
	}
	return a.print(cmd.OutOrStdout(), result)
}
