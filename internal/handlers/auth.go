package handlers

import (
	"log/slog"
	"net/http"

	"yatube/internal/forms"
	"yatube/internal/middleware"
	"yatube/internal/render"
	"yatube/internal/utils"
)

// HandleSignup registers an account and logs it in.
func (s *Server) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := forms.NewSignupForm(s.DB)
		if r.Method != http.MethodPost {
			s.render(w, r, http.StatusOK, "users/signup.html", render.Context{"form": form})
			return
		}
		if err := form.Bind(r); err != nil {
			s.serverError(w, r, err)
			return
		}

		user, err := form.Validate(r.Context())
		if err == nil {
			err = s.DB.CreateUser(r.Context(), user)
			if utils.IsErrorCode(err, utils.ErrDuplicate) {
				form.Errors.Add("username", "A user with that username already exists.")
				err = form.Errors
			}
		}
		if err != nil {
			if _, invalid := forms.AsFieldErrors(err); invalid {
				s.render(w, r, http.StatusOK, "users/signup.html", render.Context{"form": form})
				return
			}
			s.serverError(w, r, err)
			return
		}

		if err := s.Sessions.Login(w, user); err != nil {
			s.serverError(w, r, err)
			return
		}
		s.Logger.Info("user signed up", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
		s.redirect(w, r, RouteIndex)
	}
}

// HandleLogin authenticates and sends the user on to next or the index.
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := forms.NewLoginForm(s.DB)
		form.Next = r.URL.Query().Get("next")

		if r.Method != http.MethodPost {
			s.render(w, r, http.StatusOK, "users/login.html", render.Context{"form": form, "next": form.Next})
			return
		}
		if err := form.Bind(r); err != nil {
			s.serverError(w, r, err)
			return
		}

		user, err := form.Validate(r.Context())
		if err != nil {
			if _, invalid := forms.AsFieldErrors(err); invalid {
				s.render(w, r, http.StatusOK, "users/login.html", render.Context{"form": form, "next": form.Next})
				return
			}
			s.serverError(w, r, err)
			return
		}

		if err := s.Sessions.Login(w, user); err != nil {
			s.serverError(w, r, err)
			return
		}
		if next := middleware.SafeNext(form.Next); next != "" {
			http.Redirect(w, r, next, http.StatusFound)
			return
		}
		s.redirect(w, r, RouteIndex)
	}
}

func (s *Server) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Sessions.Logout(w)
		s.redirect(w, r, RouteIndex)
	}
}

// HandleAbout renders a static page.
func (s *Server) HandleAbout(template string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, template, nil)
	}
}
