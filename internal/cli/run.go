package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/splitexec"
	"github.com/Paintersrp/splitexec/internal/config"
	"github.com/Paintersrp/splitexec/internal/isolate"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		profilePath string
		envEntries  []string
		keepAllEnv  bool
		workdir     string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command inside a fork-isolated child",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := &config.Profile{}
			if profilePath != "" {
				loaded, err := config.Load(profilePath)
				if err != nil {
					return err
				}
				profile = loaded
			}

			overrides, err := parseEnvEntries(envEntries)
			if err != nil {
				return err
			}
			if len(overrides) > 0 {
				if profile.Env == nil {
					profile.Env = make(map[string]string, len(overrides))
				}
				for k, v := range overrides {
					profile.Env[k] = v
				}
			}
			if keepAllEnv {
				profile.KeepAllEnv = true
			}
			if workdir != "" {
				profile.Workdir = workdir
			}

			payload, err := isolate.MarshalSpec(&isolate.Spec{
				Profile: *profile,
				Argv:    args,
			})
			if err != nil {
				return err
			}

			sep, err := splitexec.New(isolate.RegionName,
				splitexec.WithPayload(payload),
				splitexec.WithLogger(opts.logger()))
			if err != nil {
				return err
			}
			return sep.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Path to an isolation profile")
	cmd.Flags().StringArrayVarP(&envEntries, "env", "e", nil, "Set an environment variable in the child (KEY=VALUE, repeatable)")
	cmd.Flags().BoolVar(&keepAllEnv, "keep-all-env", false, "Carry the parent's entire environment into the child")
	cmd.Flags().StringVarP(&workdir, "workdir", "w", "", "Working directory inside the confinement")

	return cmd
}

func parseEnvEntries(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env entry %q, expected KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}
