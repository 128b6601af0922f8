package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/histnorm/internal/config"
	"github.com/JonMunkholm/histnorm/internal/core"
	_ "github.com/JonMunkholm/histnorm/internal/core/datasets" // Register all datasets
	"github.com/JonMunkholm/histnorm/internal/country"
	"github.com/JonMunkholm/histnorm/internal/remote"
	"github.com/JonMunkholm/histnorm/internal/source"
	"github.com/JonMunkholm/histnorm/internal/store"
)

// ErrNoDatabase is returned by commands that need the database when no
// database URL is configured.
var ErrNoDatabase = errors.New("no database configured (set database.url or DATABASE_URL)")

// app holds the components one command run needs.
type app struct {
	cfg      *config.Config
	sources  *source.Registry
	resolver *country.Resolver
	pipeline *core.Pipeline
	fetcher  *core.Fetcher
	store    *store.ObservationStore
	pool     *pgxpool.Pool
}

// newApp loads the catalogues and wires the pipeline. When a database URL
// is configured the observation store is connected and added as a sink.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	sources, err := source.Load(cfg.Paths.SourcesFile)
	if err != nil {
		return nil, err
	}
	regions, err := country.LoadRegions(cfg.Paths.RegionsFile)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		sources:  sources,
		resolver: country.NewResolver(regions),
	}

	httpClient := &http.Client{Timeout: cfg.Remote.Timeout}
	a.fetcher = core.NewFetcher(sources, cfg.Paths.CacheDir, map[source.Kind]remote.Client{
		source.KindSDMX:        remote.NewSDMXClient(httpClient, cfg.Remote.SDMXProviders),
		source.KindOpenKAPSARC: remote.NewOpenKAPSARCClient(httpClient, cfg.Remote.OpenKAPSARCURL, cfg.Remote.APIKey),
	})

	var opts []core.PipelineOption
	if cfg.Database.URL != "" {
		if err := a.connect(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, core.WithSinks(a.store), core.WithRecorder(a.store))
	}

	a.pipeline = core.NewPipeline(a.resolver, cfg.Paths.InputDir, core.NewOutputWriter(cfg.Paths.OutputDir), opts...)

	slog.Debug("application ready",
		"sources", sources.Len(),
		"datasets", core.DefaultRegistry().Count(),
		"regions", len(regions.Regions()),
		"publishing", a.store != nil,
	)
	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	pool, err := store.Connect(ctx, store.PoolConfig{
		URL:             a.cfg.Database.URL,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: a.cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return err
	}

	st := store.NewObservationStore(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("prepare database: %w", err)
	}

	a.pool = pool
	a.store = st
	return nil
}

// Close releases the database pool, if any.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
