package handlers

import (
	"context"
	"net/http"
	"strconv"

	"yatube/internal/database"
	"yatube/internal/forms"
	"yatube/internal/models"
	"yatube/internal/paginator"
	"yatube/internal/render"

	"github.com/gorilla/mux"
)

// postPage loads the requested page of posts matching filter.
func (s *Server) postPage(r *http.Request, filter database.PostFilter) (*paginator.Page[*models.Post], error) {
	return paginator.Paginate(r.Context(), r.URL.Query().Get(paginator.PageParam), s.PostsPerPage,
		func(ctx context.Context) (int, error) {
			return s.DB.CountPosts(ctx, filter)
		},
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.DB.ListPosts(ctx, filter, limit, offset)
		},
	)
}

// HandleIndex lists every post, newest first.
func (s *Server) HandleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.postPage(r, database.PostFilter{})
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.render(w, r, http.StatusOK, "posts/index.html", render.Context{
			"page_obj": page,
		})
	}
}

// HandleGroupList lists the posts of one group.
func (s *Server) HandleGroupList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group, err := s.DB.GetGroupBySlug(r.Context(), mux.Vars(r)["slug"])
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		page, err := s.postPage(r, database.PostFilter{GroupID: group.ID})
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		following := false
		if user := currentUser(r); user != nil {
			if following, err = s.DB.IsFollowingGroup(r.Context(), user.ID, group.ID); err != nil {
				s.serverError(w, r, err)
				return
			}
		}

		s.render(w, r, http.StatusOK, "posts/group_list.html", render.Context{
			"group":     group,
			"page_obj":  page,
			"following": following,
		})
	}
}

// HandleProfile lists the posts of one author.
func (s *Server) HandleProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author, err := s.DB.GetUserByUsername(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		page, err := s.postPage(r, database.PostFilter{AuthorID: author.ID})
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		following := false
		if user := currentUser(r); user != nil && !user.Is(author) {
			if following, err = s.DB.IsFollowing(r.Context(), user.ID, author.ID); err != nil {
				s.serverError(w, r, err)
				return
			}
		}

		s.render(w, r, http.StatusOK, "posts/profile.html", render.Context{
			"author":    author,
			"page_obj":  page,
			"following": following,
		})
	}
}

// HandlePostDetail shows a post with its comments and an empty comment form.
func (s *Server) HandlePostDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := s.loadPost(w, r)
		if !ok {
			return
		}

		comments, err := s.DB.ListComments(r.Context(), post.ID)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		authorPosts, err := s.DB.CountPosts(r.Context(), database.PostFilter{AuthorID: post.AuthorID})
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		s.render(w, r, http.StatusOK, "posts/post_detail.html", render.Context{
			"post":              post,
			"comments":          comments,
			"form":              forms.NewCommentForm(),
			"author_post_count": authorPosts,
			"can_modify":        CanModify(post, currentUser(r)),
		})
	}
}

// HandlePostCreate shows the post form and creates a post on a valid submit.
func (s *Server) HandlePostCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		form := forms.NewPostForm(s.DB, s.Media, nil)

		if r.Method != http.MethodPost {
			s.renderPostForm(w, r, form, nil)
			return
		}
		if err := form.Bind(r); err != nil {
			s.serverError(w, r, err)
			return
		}

		post, err := form.Validate(r.Context())
		if err != nil {
			if _, invalid := forms.AsFieldErrors(err); invalid {
				s.renderPostForm(w, r, form, nil)
				return
			}
			s.serverError(w, r, err)
			return
		}

		post.AuthorID = user.ID
		if err := s.DB.CreatePost(r.Context(), post); err != nil {
			s.serverError(w, r, err)
			return
		}
		s.redirect(w, r, RouteProfile, "username", user.Username)
	}
}

// HandlePostEdit lets the author change a post. Anybody else is sent back to
// the post untouched.
func (s *Server) HandlePostEdit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := s.loadPost(w, r)
		if !ok {
			return
		}
		detailID := strconv.FormatInt(post.ID, 10)
		if !CanModify(post, currentUser(r)) {
			s.redirect(w, r, RoutePostDetail, "post_id", detailID)
			return
		}

		form := forms.NewPostForm(s.DB, s.Media, post)
		if r.Method != http.MethodPost {
			s.renderPostForm(w, r, form, post)
			return
		}
		if err := form.Bind(r); err != nil {
			s.serverError(w, r, err)
			return
		}

		edited, err := form.Validate(r.Context())
		if err != nil {
			if _, invalid := forms.AsFieldErrors(err); invalid {
				s.renderPostForm(w, r, form, post)
				return
			}
			s.serverError(w, r, err)
			return
		}

		changes := database.PostChanges{Text: edited.Text, GroupID: edited.GroupID, Image: edited.Image}
		if err := s.DB.UpdatePost(r.Context(), post.ID, changes); err != nil {
			s.handleError(w, r, err)
			return
		}
		s.redirect(w, r, RoutePostDetail, "post_id", detailID)
	}
}

// HandlePostDelete asks for confirmation on GET and deletes on POST.
func (s *Server) HandlePostDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, ok := s.loadPost(w, r)
		if !ok {
			return
		}
		if !CanModify(post, currentUser(r)) {
			s.redirect(w, r, RoutePostDetail, "post_id", strconv.FormatInt(post.ID, 10))
			return
		}

		if r.Method != http.MethodPost {
			s.render(w, r, http.StatusOK, "posts/delete_post.html", render.Context{"post": post})
			return
		}

		if err := s.DB.DeletePost(r.Context(), post.ID); err != nil {
			s.handleError(w, r, err)
			return
		}
		s.redirect(w, r, RouteProfile, "username", post.AuthorUsername)
	}
}

// HandleAddComment stores a valid comment. Invalid input is dropped and,
// like success, ends on the post page.
func (s *Server) HandleAddComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := postID(r)
		if !ok {
			s.notFound(w, r)
			return
		}

		form := forms.NewCommentForm()
		if err := form.Bind(r); err != nil {
			s.serverError(w, r, err)
			return
		}

		if comment, err := form.Validate(r.Context()); err == nil {
			if _, err := s.DB.GetPost(r.Context(), id); err != nil {
				s.handleError(w, r, err)
				return
			}
			comment.AuthorID = currentUser(r).ID
			comment.PostID = id
			if err := s.DB.CreateComment(r.Context(), comment); err != nil {
				s.handleError(w, r, err)
				return
			}
		}

		s.redirect(w, r, RoutePostDetail, "post_id", strconv.FormatInt(id, 10))
	}
}

// loadPost resolves the post_id route variable, rendering 404 on failure.
func (s *Server) loadPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, ok := postID(r)
	if !ok {
		s.notFound(w, r)
		return nil, false
	}
	post, err := s.DB.GetPost(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return nil, false
	}
	return post, true
}

func (s *Server) renderPostForm(w http.ResponseWriter, r *http.Request, form *forms.PostForm, post *models.Post) {
	groups, err := s.DB.ListGroups(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "posts/create_post.html", render.Context{
		"form":    form,
		"is_edit": post != nil,
		"post":    post,
		"groups":  groups,
	})
}
