package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"chisel/core/pattern"
	"chisel/core/spec"
)

// newEnzymesCmd lists the restriction enzymes usable as "<Name>_site" patterns.
func newEnzymesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enzymes",
		Short: "List enzymes usable in site patterns",
		Long: `Lists every built-in enzyme by name along with its recognition sequence.
Use them in patterns as NAME_site, e.g. "pattern: BsaI_site".

	<Name>: <Recognition sequence>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, e := range pattern.Enzymes() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.Name, e.Site); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// newKindsCmd lists the specification kinds a problem file may use.
func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List specification kinds accepted in problem files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, k := range spec.NewRegistry().Kinds() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), k); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
