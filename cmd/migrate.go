package cmd

import (
	"fmt"

	"github.com/prebid/consent-string/consent"
	"github.com/prebid/consent-string/vendorlist"
	"github.com/spf13/cobra"
)

type migrateFlags struct {
	oldList     string
	newList     string
	publisher   string
	oldEditor   string
	newEditor   string
	keepUpdated bool
}

func newMigrateCommand(a *app) *cobra.Command {
	flags := &migrateFlags{}
	cmd := &cobra.Command{
		Use:   "migrate <consent string>",
		Short: "Move a consent string to a newer vendor list",
		Long: `Move a consent string to a newer vendor list.

Purposes and vendors listed in both vendor lists keep their state. The ones only in the new list are
allowed, the ones missing from it are dropped. The publisher section is migrated the same way when
--publisher, --old-editor and --new-editor are all given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.migrate(args[0], flags)
			if err != nil {
				return err
			}
			return a.printEncoded(cmd, r, false)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.oldList, "old", "", "vendor list the consent string was collected against")
	fs.StringVar(&flags.newList, "new", "", "vendor list to migrate to")
	fs.StringVar(&flags.publisher, "publisher", "", "publisher section stored next to the consent string")
	fs.StringVar(&flags.oldEditor, "old-editor", "", "publisher purpose catalog the publisher section was collected against")
	fs.StringVar(&flags.newEditor, "new-editor", "", "publisher purpose catalog to migrate to")
	fs.BoolVar(&flags.keepUpdated, "keep-last-updated", false, "keep the last updated time instead of stamping the current time")
	cmd.MarkFlagRequired("old")
	cmd.MarkFlagRequired("new")
	return cmd
}

func (a *app) migrate(token string, flags *migrateFlags) (consent.Record, error) {
	r, err := a.codec.Decode(token)
	if err != nil {
		return consent.Record{}, err
	}
	if flags.publisher != "" {
		if r, err = a.codec.DecodeEditor(flags.publisher, r); err != nil {
			return consent.Record{}, err
		}
	}

	opts := []consent.UpdateOption{consent.UsingClock(a.clock)}
	if flags.keepUpdated {
		opts = append(opts, consent.UpdatedAt(r.LastUpdated()))
	}

	oldList, newList, err := loadPair(flags.oldList, flags.newList)
	if err != nil {
		return consent.Record{}, err
	}
	if r, err = r.MigrateVendorList(oldList, newList, opts...); err != nil {
		return consent.Record{}, err
	}

	if flags.oldEditor == "" && flags.newEditor == "" {
		return r, nil
	}
	if flags.publisher == "" || flags.oldEditor == "" || flags.newEditor == "" {
		return consent.Record{}, fmt.Errorf("migrating the publisher section needs --publisher, --old-editor and --new-editor")
	}
	oldEditor, newEditor, err := loadPair(flags.oldEditor, flags.newEditor)
	if err != nil {
		return consent.Record{}, err
	}
	return r.MigrateEditorCatalog(oldEditor, newEditor, opts...)
}

func loadPair(oldPath, newPath string) (vendorlist.Catalog, vendorlist.Catalog, error) {
	old, err := vendorlist.LoadCatalog(oldPath)
	if err != nil {
		return vendorlist.Catalog{}, vendorlist.Catalog{}, err
	}
	updated, err := vendorlist.LoadCatalog(newPath)
	if err != nil {
		return vendorlist.Catalog{}, vendorlist.Catalog{}, err
	}
	return old, updated, nil
}
