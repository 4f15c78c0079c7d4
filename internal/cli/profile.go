package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/splitexec/internal/config"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Work with isolation profiles",
	}
	cmd.AddCommand(newProfileValidateCmd())
	return cmd
}

func newProfileValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Load a profile and report whether it is usable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := config.Load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: ok\n", args[0])
			if profile.Root != "" {
				fmt.Fprintf(out, "  root: %s\n", profile.Root)
			}
			if profile.Workdir != "" {
				fmt.Fprintf(out, "  workdir: %s\n", profile.Workdir)
			}
			if profile.UID != nil {
				fmt.Fprintf(out, "  credentials: uid=%d gid=%d\n", *profile.UID, *profile.GID)
			}
			if len(profile.Env) > 0 {
				fmt.Fprintf(out, "  env vars: %d\n", len(profile.Env))
			}
			return nil
		},
	}
}
