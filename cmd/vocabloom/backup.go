package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every word record as a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) (err error) {
			var w io.Writer = cmd.OutOrStdout()
			if output != "-" {
				f, ferr := os.Create(output)
				if ferr != nil {
					return fmt.Errorf("create output file: %w", ferr)
				}
				defer func() {
					if cerr := f.Close(); err == nil && cerr != nil {
						err = cerr
					}
				}()
				w = f
			}
			n, err := a.sched.Export(cmd.Context(), w)
			if err != nil {
				return err
			}
			if output != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, output)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load word records from a snapshot written by export",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			n, err := a.sched.Import(cmd.Context(), r)
			if err != nil {
				return fmt.Errorf("import stopped after %d records: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records.\n", n)
			return nil
		}),
	}
}
