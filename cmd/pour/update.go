package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/kyrylokulyhin/pour/internal/tap"
)

func newUpdateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Clone or pull the --tap repository",
		Long: `Update brings the tap given with --tap up to date, cloning it into the
state directory on first use, and lists the formulae it provides.`,
		Example: `  pour update --tap https://github.com/kyrylokulyhin/homebrew-tap`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.opts.tapURL == "" {
				return errors.New("update needs --tap")
			}
			ctx := cmd.Context()

			t, err := tap.OpenOrClone(ctx, a.opts.tapURL, a.tapsDir())
			if err != nil {
				return err
			}
			if err := t.Update(ctx); err != nil {
				return err
			}

			head, err := t.Head()
			if err != nil {
				return err
			}
			names, err := t.Names()
			if err != nil {
				return err
			}

			a.printf("==> %s at %.12s\n", t.Dir(), head)
			for _, name := range names {
				a.printf("  %s\n", name)
			}
			return nil
		},
	}
}
