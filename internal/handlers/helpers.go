package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/render"
	"yatube/internal/utils"

	"github.com/gorilla/mux"
)

// render adds the viewer to data and renders the named page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data render.Context) {
	if data == nil {
		data = render.Context{}
	}
	user, _ := middleware.UserFromContext(r.Context())
	data["user"] = user

	if err := s.Renderer.Render(w, status, name, data); err != nil {
		s.Logger.Error("failed to render page",
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("template", name),
			slog.Any("error", err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("request failed",
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	s.render(w, r, http.StatusInternalServerError, "core/500.html", nil)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "core/404.html", render.Context{"path": r.URL.Path})
}

// handleError renders storage errors: not found as 404, the rest as 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if utils.StatusFor(err) == http.StatusNotFound {
		s.notFound(w, r)
		return
	}
	s.serverError(w, r, err)
}

// redirect sends a 302 to a named route.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, name string, pairs ...string) {
	target, err := s.URL(name, pairs...)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// currentUser is the authenticated viewer or nil.
func currentUser(r *http.Request) *models.User {
	user, _ := middleware.UserFromContext(r.Context())
	return user
}

// postID reads the post_id route variable.
func postID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["post_id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func viewerKey(r *http.Request) string {
	if user := currentUser(r); user != nil {
		return strconv.FormatInt(user.ID, 10)
	}
	return "0"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
