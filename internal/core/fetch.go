package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/logging"
	"github.com/JonMunkholm/histnorm/internal/remote"
	"github.com/JonMunkholm/histnorm/internal/source"
)

// ErrUnsupportedSourceKind is returned when a source's fetch type has no
// registered client.
var ErrUnsupportedSourceKind = errors.New("unsupported source kind")

// Fetcher materializes remote sources as local CSV files.
type Fetcher struct {
	sources  *source.Registry
	clients  map[source.Kind]remote.Client
	cacheDir string
}

// NewFetcher creates a fetcher writing to cacheDir. clients maps each fetch
// type to the client that serves it.
func NewFetcher(sources *source.Registry, cacheDir string, clients map[source.Kind]remote.Client) *Fetcher {
	cl := make(map[source.Kind]remote.Client, len(clients))
	for k, c := range clients {
		cl[k] = c
	}
	return &Fetcher{sources: sources, clients: cl, cacheDir: cacheDir}
}

// CachePath returns the file a source is materialized to.
func (f *Fetcher) CachePath(id any) string {
	return filepath.Join(f.cacheDir, source.CanonicalID(id)+".csv")
}

// Materialize returns the path of a local copy of the source. With useCache
// set, an existing file is returned as is, without any freshness check and
// without consulting the registry. Otherwise the source is downloaded and
// the file replaced.
func (f *Fetcher) Materialize(ctx context.Context, id any, useCache bool) (string, error) {
	key := source.CanonicalID(id)
	path := f.CachePath(key)

	if useCache {
		if _, err := os.Stat(path); err == nil {
			logging.WithFields(ctx, "dataset", key).Info("using cached source", "path", path)
			return path, nil
		}
	}

	ds, err := f.sources.Describe(key)
	if err != nil {
		return "", err
	}
	logger := logging.WithFields(ctx, "dataset", ds.ID, "kind", string(ds.Fetch.Kind))

	client, ok := f.clients[ds.Fetch.Kind]
	if !ok {
		return "", fmt.Errorf("%s: %w: %q", ds.ID, ErrUnsupportedSourceKind, ds.Fetch.Kind)
	}

	start := time.Now()
	logger.Info("fetching source")

	table, err := client.Fetch(ctx, ds.Fetch.Params)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", ds.ID, err)
	}

	if err := frame.WriteFile(path, table); err != nil {
		return "", fmt.Errorf("save %s: %w", ds.ID, err)
	}

	logger.Info("source saved",
		"path", path,
		"rows", table.Len(),
		"duration", time.Since(start),
	)
	return path, nil
}
