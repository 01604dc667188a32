package handlers

import (
	"net/http"

	"yatube/internal/database"
	"yatube/internal/render"

	"github.com/gorilla/mux"
)

// HandleFollowIndex lists posts by the authors the viewer follows.
func (s *Server) HandleFollowIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.postPage(r, database.PostFilter{FollowerID: currentUser(r).ID})
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, http.StatusOK, "posts/follow.html", render.Context{
			"page_obj": page,
		})
	}
}

// HandleProfileFollow subscribes the viewer to an author. Following
// yourself is silently ignored.
func (s *Server) HandleProfileFollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		author, err := s.DB.GetUserByUsername(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if !user.Is(author) {
			if err := s.DB.FollowUser(r.Context(), user.ID, author.ID); err != nil {
				s.handleError(w, r, err)
				return
			}
		}
		s.redirect(w, r, RouteProfile, "username", author.Username)
	}
}

// HandleProfileUnfollow drops the subscription. A missing one is a 404.
func (s *Server) HandleProfileUnfollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author, err := s.DB.GetUserByUsername(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if err := s.DB.UnfollowUser(r.Context(), currentUser(r).ID, author.ID); err != nil {
			s.handleError(w, r, err)
			return
		}
		s.redirect(w, r, RouteProfile, "username", author.Username)
	}
}

func (s *Server) HandleGroupFollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group, err := s.DB.GetGroupBySlug(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if err := s.DB.FollowGroup(r.Context(), currentUser(r).ID, group.ID); err != nil {
			s.handleError(w, r, err)
			return
		}
		s.redirect(w, r, RouteGroupList, "slug", group.Slug)
	}
}

func (s *Server) HandleGroupUnfollow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group, err := s.DB.GetGroupBySlug(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if err := s.DB.UnfollowGroup(r.Context(), currentUser(r).ID, group.ID); err != nil {
			s.handleError(w, r, err)
			return
		}
		s.redirect(w, r, RouteGroupList, "slug", group.Slug)
	}
}
