package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/histnorm/internal/source"
)

func newResetCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset [id...]",
		Short: "Delete published observations from the database",
		Long: `Delete the published rows of the named datasets from the observations
table, or of every dataset with --all. Output files are not touched.`,
		Example: `  histnorm reset T001
  histnorm reset --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("name at least one dataset or pass --all")
			}
			if len(args) > 0 && all {
				return errors.New("--all cannot be combined with dataset ids")
			}

			cfg, err := getConfig(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return ErrNoDatabase
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ids := make([]string, len(args))
			for i, arg := range args {
				ids[i] = source.CanonicalID(arg)
			}
			n, err := a.store.Reset(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d rows\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every dataset's rows")
	return cmd
}
