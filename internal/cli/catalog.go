package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/histnorm/internal/core"
	"github.com/JonMunkholm/histnorm/internal/country"
	"github.com/JonMunkholm/histnorm/internal/source"
)

func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the source catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd.Context())
			if err != nil {
				return err
			}
			sources, err := source.Load(cfg.Paths.SourcesFile)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout(), "ID", "Name", "Type", "Parameters")
			for _, id := range sources.IDs() {
				ds, err := sources.Describe(id)
				if err != nil {
					return err
				}
				t.AppendRow([]any{ds.ID, ds.Name, string(ds.Fetch.Kind), formatParams(ds.Fetch)})
			}
			t.Render()
			return nil
		},
	}
}

func newDatasetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List registered dataset plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := newTable(cmd.OutOrStdout(), "ID", "Name", "Check", "Dropped columns")
			for _, ds := range core.DefaultRegistry().All() {
				check := "no"
				if ds.Check != nil {
					check = "yes"
				}
				dropped := 0
				if ds.Columns != nil {
					dropped = len(ds.Columns.Drop)
				}
				t.AppendRow([]any{ds.Info.ID, ds.Info.Name, check, dropped})
			}
			t.Render()
			return nil
		},
	}
}

func newResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "resolve <name>...",
		Short:   "Show the ISO code and region for country names",
		Example: `  histnorm resolve China Korea "United States"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfig(cmd.Context())
			if err != nil {
				return err
			}
			regions, err := country.LoadRegions(cfg.Paths.RegionsFile)
			if err != nil {
				return err
			}
			resolver := country.NewResolver(regions)

			var failed int
			t := newTable(cmd.OutOrStdout(), "Name", "ISO Code", "Region")
			for _, name := range args {
				res, err := resolver.Resolve(name)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, core.FormatUserError(err))
					failed++
					continue
				}
				t.AppendRow([]any{name, res.ISOCode, res.Region})
			}
			t.Render()

			if failed > 0 {
				return fmt.Errorf("%d of %d names could not be resolved", failed, len(args))
			}
			return nil
		},
	}
}

// formatParams renders fetch parameters as sorted key=value pairs.
func formatParams(spec source.FetchSpec) string {
	keys := make([]string, 0, len(spec.Params))
	for k := range spec.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + spec.Param(k)
	}
	return strings.Join(parts, " ")
}
