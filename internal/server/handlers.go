package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/kinship/pkg/buildinfo"
	"github.com/matzehuels/kinship/pkg/core/lineage"
	kerrors "github.com/matzehuels/kinship/pkg/errors"
	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/pipeline"
	"github.com/matzehuels/kinship/pkg/store"
)

const defaultListLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings)
}

type createdRecord struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Nodes     int    `json:"nodes"`
	Edges     int    `json:"edges"`
}

// handleCreateRecord stores a posted relation record and reports the size of
// its canonical graph.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	rec, err := lineage.ReadRecord(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "record too large", Code: kerrors.ErrCodeInvalidRecord})
			return
		}
		s.writeError(w, r, kerrors.Wrap(kerrors.ErrCodeInvalidRecord, err, "invalid record"))
		return
	}
	if rec.OriginalImage == "" {
		s.writeError(w, r, kerrors.New(kerrors.ErrCodeInvalidRecord, "original_image is required"))
		return
	}

	g, err := s.runner.BuildGraph(r.Context(), rec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.store.Put(r.Context(), store.Entry{Record: *rec})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("stored record", "id", entry.ID, "original", rec.OriginalImage, "nodes", g.NodeCount())
	w.Header().Set("Location", "/records/"+entry.ID)
	writeJSON(w, http.StatusCreated, createdRecord{
		ID:        entry.ID,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeError(w, r, kerrors.New(kerrors.ErrCodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	entries, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	entry, err := s.entry(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := kerrors.ValidateRecordID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, rec, err := s.graph(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = graph.WriteGraph(g, rec.OriginalImage, w)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	g, rec, err := s.graph(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.runner.ComputeLayout(r.Context(), g, rec, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, pipeline.FormatDOT)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.render(w, r, format)
}

var contentTypes = map[string]string{
	pipeline.FormatJSON: "application/json",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, format string) {
	g, rec, err := s.graph(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Formats = []string{format}
	l, err := s.runner.ComputeLayout(r.Context(), g, rec, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), l, g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = w.Write(artifacts[format])
}

// entry loads the record named by the {id} URL parameter.
func (s *Server) entry(r *http.Request) (store.Entry, error) {
	id := chi.URLParam(r, "id")
	if err := kerrors.ValidateRecordID(id); err != nil {
		return store.Entry{}, err
	}
	return s.store.Get(r.Context(), id)
}

func (s *Server) graph(r *http.Request) (lineage.Graph, *lineage.Record, error) {
	return s.graphFor(r.Context(), chi.URLParam(r, "id"))
}

// graphFor loads the record id and its canonical graph.
func (s *Server) graphFor(ctx context.Context, id string) (lineage.Graph, *lineage.Record, error) {
	if err := kerrors.ValidateRecordID(id); err != nil {
		return lineage.Graph{}, nil, err
	}
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return lineage.Graph{}, nil, err
	}
	g, err := s.runner.BuildGraph(ctx, &entry.Record)
	if err != nil {
		return lineage.Graph{}, nil, err
	}
	return g, &entry.Record, nil
}

// options derives pipeline options from the server settings and the query
// string.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.FromConfig(s.settings)
	opts.Logger = s.logger
	q := r.URL.Query()

	if v := q.Get("mode"); v != "" {
		m, err := layout.ParseMode(v)
		if err != nil {
			return opts, kerrors.Wrap(kerrors.ErrCodeInvalidMode, err, "invalid mode %q", v)
		}
		opts.Mode = m
	}
	opts.ClusterID = q.Get("cluster")
	opts.Refresh = q.Get("refresh") == "1" || q.Get("refresh") == "true"
	opts.Detailed = q.Get("detailed") == "1" || q.Get("detailed") == "true"

	ints := map[string]*int{"max_nodes": &opts.MaxNodes, "width": &opts.Width, "height": &opts.Height}
	for name, dst := range ints {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, kerrors.New(kerrors.ErrCodeInvalidInput, "%s must be an integer", name)
			}
			*dst = n
		}
	}
	if v := q.Get("t"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return opts, kerrors.New(kerrors.ErrCodeInvalidInput, "t must be a number")
		}
		opts.Time = float32(f)
	}
	if err := opts.ValidateForLayout(); err != nil {
		return opts, err
	}
	return opts, nil
}
