package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/tiledgallery/pkg/errors"
	"github.com/matzehuels/tiledgallery/pkg/layout"
	"github.com/matzehuels/tiledgallery/pkg/loader"
	"github.com/matzehuels/tiledgallery/pkg/pipeline"
	"github.com/matzehuels/tiledgallery/pkg/session"
)

type ctxKey struct{}

// withSession resolves {sid} and stores the session in the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.cfg.Sessions.Get(r.Context(), chi.URLParam(r, "sid"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(ctxKey{}).(*session.Session)
}

// createSessionRequest opens a loader. When GalleryID and ContainerWidth
// are both set, the gallery's layout is computed and its tile order drives
// preloading and priority.
type createSessionRequest struct {
	GalleryID      string          `json:"gallery_id,omitempty"`
	ContainerWidth float64         `json:"container_width,omitempty"`
	ScreenWidth    float64         `json:"screen_width,omitempty"`
	Options        json.RawMessage `json:"options,omitempty"`
}

type createSessionResponse struct {
	Session *session.Session `json:"session"`
	Options loader.Options   `json:"options"`
	Status  loader.Status    `json:"status"`
	Layout  *layout.Layout   `json:"layout,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	opts := s.cfg.LoaderOptions
	if len(req.Options) > 0 {
		if err := json.Unmarshal(req.Options, &opts); err != nil {
			s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid loader options"))
			return
		}
		if err := opts.Validate(); err != nil {
			s.writeError(w, err)
			return
		}
		if err := opts.Within(s.cfg.Limits); err != nil {
			s.writeError(w, err)
			return
		}
	}

	var tiles *layout.Layout
	if req.GalleryID != "" && req.ContainerWidth > 0 {
		res, err := s.cfg.Runner.Layout(r.Context(), pipeline.Request{
			GalleryID:      req.GalleryID,
			ContainerWidth: req.ContainerWidth,
			ScreenWidth:    req.ScreenWidth,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		tiles = &res.Layout
	}

	sess, err := session.New(req.GalleryID, opts, session.Config{
		TTL:     s.cfg.SessionTTL,
		Memory:  s.cfg.Memory,
		Options: []loader.Option{loader.WithLogger(s.logger), loader.WithHooks(s.cfg.Hooks)},
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.cfg.Sessions.Set(r.Context(), sess); err != nil {
		sess.Close()
		s.writeError(w, err)
		return
	}
	if tiles != nil {
		sess.Loader.SetTiles(tiles.Tiles)
	}

	s.runners.Add(1)
	go func() {
		defer s.runners.Done()
		_ = sess.Loader.Run(context.Background())
	}()

	s.logger.Debug("session created", "id", sess.ID, "gallery", req.GalleryID)
	s.writeJSON(w, http.StatusCreated, createSessionResponse{
		Session: sess,
		Options: opts,
		Status:  sess.Loader.Status(),
		Layout:  tiles,
	})
}

// idsRequest is the body of the per-tile session events.
type idsRequest struct {
	IDs []string `json:"ids"`
}

// eventResponse reports the tiles the client should be fetching after an
// event.
type eventResponse struct {
	Loading []string `json:"loading"`
}

func (s *Server) handleIDs(w http.ResponseWriter, r *http.Request, apply func(*session.Session, []string)) {
	var req idsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	for _, id := range req.IDs {
		if id == "" {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "ids must not be empty"))
			return
		}
	}
	sess := sessionFrom(r)
	apply(sess, req.IDs)
	s.writeJSON(w, http.StatusOK, eventResponse{Loading: loading(sess)})
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	s.handleIDs(w, r, func(sess *session.Session, ids []string) {
		for _, id := range ids {
			sess.Loader.Observe(id, nil)
		}
	})
}

func (s *Server) handleUnobserve(w http.ResponseWriter, r *http.Request) {
	s.handleIDs(w, r, func(sess *session.Session, ids []string) {
		for _, id := range ids {
			sess.Loader.Unobserve(id)
		}
	})
}

func (s *Server) handleVisible(w http.ResponseWriter, r *http.Request) {
	s.handleIDs(w, r, func(sess *session.Session, ids []string) {
		sess.Observer.Report(ids...)
	})
}

func (s *Server) handleLoaded(w http.ResponseWriter, r *http.Request) {
	s.handleIDs(w, r, func(sess *session.Session, ids []string) {
		for _, id := range ids {
			sess.Loader.HandleLoad(id)
		}
	})
}

func (s *Server) handleFailed(w http.ResponseWriter, r *http.Request) {
	s.handleIDs(w, r, func(sess *session.Session, ids []string) {
		for _, id := range ids {
			sess.Loader.HandleError(id)
		}
	})
}

type preloadRequest struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type preloadResponse struct {
	Admitted []string `json:"admitted"`
	Loading  []string `json:"loading"`
}

func (s *Server) handlePreload(w http.ResponseWriter, r *http.Request) {
	var req preloadRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sess := sessionFrom(r)
	admitted := sess.Loader.PreloadNext(req.Current, req.Total)
	if admitted == nil {
		admitted = []string{}
	}
	s.writeJSON(w, http.StatusOK, preloadResponse{Admitted: admitted, Loading: loading(sess)})
}

type clearResponse struct {
	Reclamation loader.Reclamation `json:"reclamation"`
	Loading     []string           `json:"loading"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	res := sess.Loader.ClearMemory()
	s.writeJSON(w, http.StatusOK, clearResponse{Reclamation: res, Loading: loading(sess)})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, sessionFrom(r).Loader.PerformanceMetrics())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, sessionFrom(r).Loader.Status())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Sessions.Delete(r.Context(), sessionFrom(r).ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func loading(sess *session.Session) []string {
	ids := sess.Loader.Loading()
	if ids == nil {
		return []string{}
	}
	return ids
}
