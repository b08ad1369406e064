package cmd

import (
	"github.com/spf13/cobra"
)

func newDecodeCommand(a *app) *cobra.Command {
	var publisher string
	cmd := &cobra.Command{
		Use:   "decode <consent string>",
		Short: "Print the consent record held by a consent string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.codec.Decode(args[0])
			if err != nil {
				return err
			}
			if publisher != "" {
				if r, err = a.codec.DecodeEditor(publisher, r); err != nil {
					return err
				}
			}
			return a.print(cmd.OutOrStdout(), newDecodedRecord(r))
		},
	}
	cmd.Flags().StringVar(&publisher, "publisher", "", "publisher section stored next to the consent string")
	return cmd
}
