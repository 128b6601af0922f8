package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/histnorm/internal/core"
	"github.com/JonMunkholm/histnorm/internal/logging"
	"github.com/JonMunkholm/histnorm/internal/source"
)

// DatasetSummary describes a registered plugin and, when known, its source.
type DatasetSummary struct {
	core.Info
	HasCheck   bool               `json:"has_check"`
	Drop       []string           `json:"drop,omitempty"`
	CommonDims map[string]string  `json:"common_dims,omitempty"`
	Source     *source.DataSource `json:"source,omitempty"`
}

// FetchResponse reports where a source was materialized.
type FetchResponse struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Cached bool   `json:"cached"`
}

// ProcessResponse is a run summary. Error is set when the output files were
// written but publishing to a sink failed.
type ProcessResponse struct {
	*core.Result
	Error *ErrorResponse `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.limiter.Status())
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	ids := s.sources.IDs()
	out := make([]source.DataSource, 0, len(ids))
	for _, id := range ids {
		ds, err := s.sources.Describe(id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		out = append(out, ds)
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	ds, err := s.sources.Describe(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ds)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	all := s.pipeline.Registry().All()
	out := make([]DatasetSummary, 0, len(all))
	for _, ds := range all {
		sum := DatasetSummary{
			Info:       ds.Info,
			HasCheck:   ds.Check != nil,
			CommonDims: ds.CommonDims,
		}
		if ds.Columns != nil {
			sum.Drop = ds.Columns.Drop
		}
		if src, err := s.sources.Describe(ds.Info.ID); err == nil {
			sum.Source = &src
		}
		out = append(out, sum)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// handleFetch downloads a source. The cached copy is reused unless the
// request carries cache=false.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	id := source.CanonicalID(chi.URLParam(r, "id"))

	useCache := true
	if v := r.URL.Query().Get("cache"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.respondErrorStatus(w, r, fmt.Errorf("cache parameter: %w", err), http.StatusBadRequest)
			return
		}
		useCache = b
	}

	path, err := s.fetcher.Materialize(r.Context(), id, useCache)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, FetchResponse{ID: id, Path: path, Cached: useCache})
}

// handleProcess runs the pipeline for one dataset. Runs are serialized
// through the limiter; a request that cannot get the slot in time gets 503.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id := source.CanonicalID(chi.URLParam(r, "id"))

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	res, err := s.pipeline.Process(r.Context(), id)
	if err != nil && res == nil {
		s.respondError(w, r, err)
		return
	}

	resp := ProcessResponse{Result: res}
	if err != nil {
		logging.FromContext(r.Context()).Error("publish failed", "dataset", id, "error", err)
		msg := core.MapError(err)
		resp.Error = &ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleOutput serves a written view as CSV.
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	view, err := core.ParseView(chi.URLParam(r, "view"))
	if err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}

	ds, err := s.pipeline.Registry().Lookup(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	f, err := s.pipeline.Writer().Open(ds.Info.ID, view)
	if errors.Is(err, core.ErrNoOutput) {
		s.respondErrorStatus(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer f.Close()

	suffix := "PF"
	if view == core.ViewWide {
		suffix = "UF"
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_cleaned_%s.csv"`, ds.Info.ID, suffix))
	if _, err := io.Copy(w, f); err != nil {
		logging.FromContext(r.Context()).Error("stream output", "dataset", ds.Info.ID, "error", err)
	}
}
