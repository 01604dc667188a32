package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"yatube/internal/cache"
	"yatube/internal/middleware"

	"github.com/gorilla/mux"
)

// Route names, reversible with Server.URL.
const (
	RouteIndex           = "posts:index"
	RouteGroupList       = "posts:group_list"
	RouteGroupFollow     = "posts:group_follow"
	RouteGroupUnfollow   = "posts:group_unfollow"
	RouteProfile         = "posts:profile"
	RoutePostDetail      = "posts:post_detail"
	RoutePostCreate      = "posts:post_create"
	RoutePostEdit        = "posts:post_edit"
	RoutePostDelete      = "posts:post_delete"
	RouteAddComment      = "posts:add_comment"
	RouteFollowIndex     = "posts:follow_index"
	RouteProfileFollow   = "posts:profile_follow"
	RouteProfileUnfollow = "posts:profile_unfollow"
	RouteSignup          = "users:signup"
	RouteLogin           = "users:login"
	RouteLogout          = "users:logout"
	RouteAboutAuthor     = "about:author"
	RouteAboutTech       = "about:tech"
)

func (s *Server) routes() {
	r := mux.NewRouter().StrictSlash(true)

	chain := []mux.MiddlewareFunc{
		middleware.RequestID,
		middleware.Logging(s.Logger, s.Metrics),
		middleware.Recover(s.Logger, s.internalError),
		s.Sessions.Authenticate(s.DB, s.Logger),
	}
	r.Use(chain...)
	r.NotFoundHandler = wrap(http.HandlerFunc(s.notFound), chain)
	r.MethodNotAllowedHandler = wrap(http.HandlerFunc(s.methodNotAllowed), chain)

	indexPage := cache.CachePage(s.Cache, cache.PageOptions{
		Prefix: "index_page",
		TTL:    s.IndexCacheTTL,
		Vary:   viewerKey,
		OnHit:  s.Metrics.CacheHit,
		OnMiss: s.Metrics.CacheMiss,
	})

	// Posts
	r.Handle("/", indexPage(s.HandleIndex())).Name(RouteIndex)
	r.HandleFunc("/group/{slug}/", s.HandleGroupList()).Name(RouteGroupList)
	r.HandleFunc("/group/{slug}/follow/", middleware.RequireLogin(s.HandleGroupFollow())).Name(RouteGroupFollow)
	r.HandleFunc("/group/{slug}/unfollow/", middleware.RequireLogin(s.HandleGroupUnfollow())).Name(RouteGroupUnfollow)
	r.HandleFunc("/profile/{username}/", s.HandleProfile()).Name(RouteProfile)
	r.HandleFunc("/profile/{username}/follow/", middleware.RequireLogin(s.HandleProfileFollow())).Name(RouteProfileFollow)
	r.HandleFunc("/profile/{username}/unfollow/", middleware.RequireLogin(s.HandleProfileUnfollow())).Name(RouteProfileUnfollow)
	r.HandleFunc("/posts/{post_id:[0-9]+}/", s.HandlePostDetail()).Name(RoutePostDetail)
	r.HandleFunc("/posts/{post_id:[0-9]+}/edit/", middleware.RequireLogin(s.HandlePostEdit())).Name(RoutePostEdit)
	r.HandleFunc("/posts/{post_id:[0-9]+}/delete/", middleware.RequireLogin(s.HandlePostDelete())).Name(RoutePostDelete)
	r.HandleFunc("/posts/{post_id:[0-9]+}/comment/", middleware.RequireLogin(s.HandleAddComment())).Name(RouteAddComment)
	r.HandleFunc("/create/", middleware.RequireLogin(s.HandlePostCreate())).Name(RoutePostCreate)
	r.HandleFunc("/follow/", middleware.RequireLogin(s.HandleFollowIndex())).Name(RouteFollowIndex)

	// Users
	r.HandleFunc("/auth/signup/", s.HandleSignup()).Name(RouteSignup)
	r.HandleFunc("/auth/login/", s.HandleLogin()).Name(RouteLogin)
	r.HandleFunc("/auth/logout/", s.HandleLogout()).Name(RouteLogout)

	// About
	r.HandleFunc("/about/author/", s.HandleAbout("about/author.html")).Name(RouteAboutAuthor)
	r.HandleFunc("/about/tech/", s.HandleAbout("about/tech.html")).Name(RouteAboutTech)

	// Service endpoints
	r.HandleFunc("/health", s.HandleHealth()).Methods(http.MethodGet)
	r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	if s.Media != nil {
		r.PathPrefix("/media/").Handler(http.StripPrefix("/media/", mediaHandler(s.Media.Root))).Methods(http.MethodGet, http.MethodHead)
	}

	s.router = r
}

// URL reverses a named route. pairs alternate variable names and values.
func (s *Server) URL(name string, pairs ...string) (string, error) {
	route := s.router.Get(name)
	if route == nil {
		return "", fmt.Errorf("no route named %q", name)
	}
	u, err := route.URL(pairs...)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusInternalServerError, "core/500.html", nil)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func wrap(h http.Handler, chain []mux.MiddlewareFunc) http.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// mediaHandler serves uploaded files without directory listings.
func mediaHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
