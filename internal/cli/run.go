package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/histnorm/internal/core"
	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/logging"
	"github.com/JonMunkholm/histnorm/internal/source"
)

// FetchOptions holds options for the fetch command.
type FetchOptions struct {
	NoCache bool
}

// ProcessOptions holds options for the process command.
type ProcessOptions struct {
	Preview int
	Fetch   bool
}

func newFetchCommand() *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <id>...",
		Short: "Download sources into the cache directory",
		Long: `Download each source named by id into <cache dir>/<ID>.csv.

An existing cached file is reused without any freshness check unless
--no-cache is given.`,
		Example: `  histnorm fetch 1
  histnorm fetch T001 --no-cache`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "download even when a cached copy exists")
	return cmd
}

func newProcessCommand() *cobra.Command {
	opts := &ProcessOptions{}

	cmd := &cobra.Command{
		Use:   "process <id>...",
		Short: "Normalize datasets and write their long and wide outputs",
		Long: `Run each dataset through its plugin and write
<output dir>/<ID>_cleaned_PF.csv and <ID>_cleaned_UF.csv.

A failure on one dataset does not stop the others; the command exits with an
error if any dataset failed.`,
		Example: `  histnorm process 1
  histnorm process T001 --preview 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.Preview, "preview", 0, "print the first N rows of each result")
	cmd.Flags().BoolVar(&opts.Fetch, "fetch", false, "download the source into the input file first")
	return cmd
}

func runFetch(cmd *cobra.Command, ids []string, opts *FetchOptions) error {
	cfg, err := getConfig(cmd.Context())
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	return runBatch(cmd.Context(), cmd.ErrOrStderr(), ids, func(ctx context.Context, id string) error {
		path, err := a.fetcher.Materialize(ctx, id, !opts.NoCache)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", id, path)
		return nil
	})
}

func runProcess(cmd *cobra.Command, ids []string, opts *ProcessOptions) error {
	cfg, err := getConfig(cmd.Context())
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	return runBatch(cmd.Context(), cmd.ErrOrStderr(), ids, func(ctx context.Context, id string) error {
		if opts.Fetch {
			if err := a.fetchInput(ctx, id); err != nil {
				return err
			}
		}

		res, err := a.pipeline.Process(ctx, id)
		if res != nil {
			printResult(out, res)
			if opts.Preview > 0 {
				renderPreview(out, res.Table, opts.Preview)
			}
		}
		return err
	})
}

// fetchInput downloads a source and installs it as the dataset's input file.
func (a *app) fetchInput(ctx context.Context, id string) error {
	path, err := a.fetcher.Materialize(ctx, id, false)
	if err != nil {
		return err
	}
	table, err := frame.ReadFile(path)
	if err != nil {
		return err
	}
	return frame.WriteFile(a.pipeline.InputPath(id), table)
}

func printResult(w io.Writer, res *core.Result) {
	fmt.Fprintf(w, "%s: %d rows in %s\n", res.DatasetID, res.Rows, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  long: %s\n  wide: %s\n", res.LongPath, res.WidePath)
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	for _, sink := range res.Published {
		fmt.Fprintf(w, "  published: %s\n", sink)
	}
}

// runBatch applies fn to every id in order. A failing id is reported and
// the rest still run; the returned error counts the failures.
func runBatch(ctx context.Context, errOut io.Writer, ids []string, fn func(ctx context.Context, id string) error) error {
	var failed []string
	for _, raw := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := source.CanonicalID(raw)
		if err := fn(ctx, id); err != nil {
			logging.FromContext(ctx).Error("dataset failed", "dataset", id, "error", err)
			fmt.Fprintf(errOut, "%s: %s\n", id, core.FormatUserError(err))
			failed = append(failed, id)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d datasets failed: %v", len(failed), len(ids), failed)
	}
	return nil
}
