package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInfoCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <descriptor|name>",
		Short: "Show a descriptor resolved for the target platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := a.loadDescriptor(ctx, args[0])
			if err != nil {
				return err
			}

			switch format {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(d); err != nil {
					return fmt.Errorf("encode descriptor: %w", err)
				}
				return enc.Close()
			case "text":
			default:
				return fmt.Errorf("invalid --format %q (expected text|yaml)", format)
			}

			detector, err := a.detector()
			if err != nil {
				return err
			}
			info, err := detector.Detect(ctx)
			if err != nil {
				return fmt.Errorf("detect platform: %w", err)
			}
			r, err := d.Resolve(info)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", r.Name(), r.Version())
			if r.Description() != "" {
				fmt.Fprintf(out, "%s\n", r.Description())
			}
			if r.Homepage() != "" {
				fmt.Fprintf(out, "%s\n", r.Homepage())
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Target:  %s\n", r.Target)
			fmt.Fprintf(out, "URL:     %s\n", r.URL)
			fmt.Fprintf(out, "SHA256:  %s\n", r.Digest())
			fmt.Fprintf(out, "Binary:  %s\n", r.Bin())
			fmt.Fprintf(out, "Test:    %s %s\n", r.Bin(), strings.Join(r.TestArgs(), " "))
			if r.SignatureURL != "" {
				fmt.Fprintf(out, "OpenPGP: %s\n", r.SignatureURL)
			}
			if r.BundleURL != "" {
				fmt.Fprintf(out, "Sigstore: %s\n", r.BundleURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text or yaml")
	return cmd
}
