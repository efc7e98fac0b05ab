package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/pipeline"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Sessions  int       `json:"sessions"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   s.cfg.Version,
		Sessions:  s.cfg.Sessions.Len(),
		Timestamp: time.Now().UTC(),
	})
}

type responsiveResponse struct {
	Width      float64        `json:"width"`
	Breakpoint layout.Partial `json:"breakpoint"`
	Config     layout.Config  `json:"config"`
}

func (s *Server) handleResponsive(w http.ResponseWriter, r *http.Request) {
	width, err := queryFloat(r, "width", -1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if width < 0 {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "width is required"))
		return
	}
	cfg, _ := s.cfg.Runner.ResolveConfig(pipeline.Request{ScreenWidth: width})
	s.writeJSON(w, http.StatusOK, responsiveResponse{
		Width:      width,
		Breakpoint: s.cfg.Runner.Breakpoints.Resolve(width),
		Config:     cfg,
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.cfg.Runner.Layout(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGalleryLayout(w http.ResponseWriter, r *http.Request) {
	req, err := galleryRequest(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.cfg.Runner.Layout(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func galleryRequest(r *http.Request, galleryID string) (pipeline.Request, error) {
	width, err := queryFloat(r, "width", 0)
	if err != nil {
		return pipeline.Request{}, err
	}
	screen, err := queryFloat(r, "screen", 0)
	if err != nil {
		return pipeline.Request{}, err
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return pipeline.Request{
		GalleryID:      galleryID,
		ContainerWidth: width,
		ScreenWidth:    screen,
		Refresh:        refresh,
	}, nil
}
