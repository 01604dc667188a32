package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/database"
	"yatube/internal/engine"
	"yatube/internal/forms"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/paginator"
	"yatube/internal/render"
	"yatube/internal/storage"
	"yatube/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	t        *testing.T
	db       *engine.Engine
	server   *Server
	renderer *render.Recorder

	author *models.User
	other  *models.User
	group  *models.Group
	post   *models.Post
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, render.NewRecorder())
}

// newTestEnvWith builds a server on a fresh in-memory store. A nil
// renderer selects the real HTML templates.
func newTestEnvWith(t *testing.T, recorder *render.Recorder) *testEnv {
	t.Helper()
	ctx := context.Background()

	db := engine.NewMemoryDB(utils.NewMetricsCollector(), utils.DiscardLogger())
	t.Cleanup(func() { _ = db.Close(ctx) })

	opts := Options{
		DB:            db,
		Sessions:      middleware.NewSessionManager("test-secret", time.Hour),
		Media:         storage.NewMediaStore(t.TempDir()),
		Cache:         cache.New(),
		Logger:        utils.DiscardLogger(),
		IndexCacheTTL: 20 * time.Second,
	}
	if recorder != nil {
		opts.Renderer = recorder
	}
	server, err := NewServer(opts)
	require.NoError(t, err)

	env := &testEnv{t: t, db: db, server: server, renderer: recorder}
	env.author = env.user("author")
	env.other = env.user("reader")
	env.group = &models.Group{Title: "Test group", Slug: "test-slug", Description: "about"}
	require.NoError(t, db.CreateGroup(ctx, env.group))
	env.post = env.newPost(env.author, env.group, "Test post text")
	return env
}

func (e *testEnv) user(username string) *models.User {
	e.t.Helper()
	user := &models.User{Username: username}
	require.NoError(e.t, user.SetPassword("correct-horse"))
	require.NoError(e.t, e.db.CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) newPost(author *models.User, group *models.Group, text string) *models.Post {
	e.t.Helper()
	post := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		post.GroupID = &group.ID
	}
	require.NoError(e.t, e.db.CreatePost(context.Background(), post))
	return post
}

// do serves a request as user (nil for anonymous). form, when given, is sent
// urlencoded with POST.
func (e *testEnv) do(method, target string, user *models.User, form url.Values) *httptest.ResponseRecorder {
	e.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return e.serve(req, user)
}

// upload POSTs fields and one image file as multipart form data.
func (e *testEnv) upload(target string, user *models.User, fields url.Values, filename string, data []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, values := range fields {
		for _, v := range values {
			require.NoError(e.t, mw.WriteField(name, v))
		}
	}
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(e.t, err)
	_, err = fw.Write(data)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.serve(req, user)
}

func (e *testEnv) serve(req *http.Request, user *models.User) *httptest.ResponseRecorder {
	e.t.Helper()
	if user != nil {
		token, err := e.server.Sessions.GenerateToken(user.ID)
		require.NoError(e.t, err)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(target string, user *models.User) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, target, user, nil)
}

func (e *testEnv) submit(target string, user *models.User, form url.Values) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, user, form)
}

func (e *testEnv) url(name string, pairs ...string) string {
	e.t.Helper()
	u, err := e.server.URL(name, pairs...)
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) rendered() render.Rendered {
	e.t.Helper()
	last, ok := e.renderer.Last()
	require.True(e.t, ok, "nothing was rendered")
	return last
}

func pageOf(t *testing.T, r render.Rendered) *paginator.Page[*models.Post] {
	t.Helper()
	page, ok := r.Context["page_obj"].(*paginator.Page[*models.Post])
	require.True(t, ok, "page_obj missing from %s", r.Name)
	return page
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestRouteReverse(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.post.ID)

	cases := map[string]string{
		env.url(RouteIndex):                                 "/",
		env.url(RouteGroupList, "slug", "test-slug"):        "/group/test-slug/",
		env.url(RouteProfile, "username", "author"):         "/profile/author/",
		env.url(RoutePostDetail, "post_id", id):             "/posts/" + id + "/",
		env.url(RoutePostEdit, "post_id", id):               "/posts/" + id + "/edit/",
		env.url(RoutePostDelete, "post_id", id):             "/posts/" + id + "/delete/",
		env.url(RouteAddComment, "post_id", id):             "/posts/" + id + "/comment/",
		env.url(RoutePostCreate):                            "/create/",
		env.url(RouteFollowIndex):                           "/follow/",
		env.url(RouteProfileFollow, "username", "author"):   "/profile/author/follow/",
		env.url(RouteProfileUnfollow, "username", "author"): "/profile/author/unfollow/",
		env.url(RouteGroupFollow, "slug", "test-slug"):      "/group/test-slug/follow/",
		env.url(RouteGroupUnfollow, "slug", "test-slug"):    "/group/test-slug/unfollow/",
		env.url(RouteSignup):                                "/auth/signup/",
		env.url(RouteLogin):                                 "/auth/login/",
		env.url(RouteLogout):                                "/auth/logout/",
		env.url(RouteAboutAuthor):                           "/about/author/",
		env.url(RouteAboutTech):                             "/about/tech/",
	}
	for got, want := range cases {
		assert.Equal(t, want, got)
	}

	_, err := env.server.URL("posts:nope")
	assert.Error(t, err)
}

func TestPagesAndTemplates(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.post.ID)

	cases := []struct {
		path     string
		user     *models.User
		status   int
		template string
		location string
	}{
		{"/", nil, http.StatusOK, "posts/index.html", ""},
		{"/group/test-slug/", nil, http.StatusOK, "posts/group_list.html", ""},
		{"/profile/author/", nil, http.StatusOK, "posts/profile.html", ""},
		{"/posts/" + id + "/", nil, http.StatusOK, "posts/post_detail.html", ""},
		{"/about/author/", nil, http.StatusOK, "about/author.html", ""},
		{"/about/tech/", nil, http.StatusOK, "about/tech.html", ""},
		{"/auth/signup/", nil, http.StatusOK, "users/signup.html", ""},
		{"/auth/login/", nil, http.StatusOK, "users/login.html", ""},
		{"/create/", env.author, http.StatusOK, "posts/create_post.html", ""},
		{"/posts/" + id + "/edit/", env.author, http.StatusOK, "posts/create_post.html", ""},
		{"/posts/" + id + "/delete/", env.author, http.StatusOK, "posts/delete_post.html", ""},
		{"/follow/", env.other, http.StatusOK, "posts/follow.html", ""},
		{"/unexisting_page/", nil, http.StatusNotFound, "core/404.html", ""},
		{"/group/missing/", nil, http.StatusNotFound, "core/404.html", ""},
		{"/profile/nobody/", nil, http.StatusNotFound, "core/404.html", ""},
		{"/posts/999999/", nil, http.StatusNotFound, "core/404.html", ""},
		{"/create/", nil, http.StatusFound, "", "/auth/login/?next=/create/"},
		{"/follow/", nil, http.StatusFound, "", "/auth/login/?next=/follow/"},
		{"/posts/" + id + "/edit/", nil, http.StatusFound, "", "/auth/login/?next=/posts/" + id + "/edit/"},
		{"/posts/" + id + "/edit/", env.other, http.StatusFound, "", "/posts/" + id + "/"},
		{"/posts/" + id + "/delete/", env.other, http.StatusFound, "", "/posts/" + id + "/"},
		{"/posts/" + id + "/comment/", nil, http.StatusFound, "", "/auth/login/?next=/posts/" + id + "/comment/"},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			env.renderer.Reset()
			rec := env.get(tc.path, tc.user)
			require.Equal(t, tc.status, rec.Code)
			if tc.location != "" {
				assert.Equal(t, tc.location, rec.Header().Get("Location"))
			}
			if tc.template != "" {
				assert.Equal(t, tc.template, env.rendered().Name)
			}
		})
	}
}

func TestPagination(t *testing.T) {
	env := newTestEnv(t)
	// 12 more posts for 13 in total, all in the group and by the author.
	for i := 0; i < 12; i++ {
		env.newPost(env.author, env.group, "bulk post")
	}
	require.NoError(t, env.db.FollowUser(context.Background(), env.other.ID, env.author.ID))

	for _, base := range []string{"/", "/group/test-slug/", "/profile/author/", "/follow/"} {
		t.Run(base, func(t *testing.T) {
			env.server.Cache.Clear()

			env.get(base, env.other)
			page := pageOf(t, env.rendered())
			assert.Len(t, page.Items, 10)
			assert.Equal(t, 13, page.Count)
			assert.Equal(t, 2, page.NumPages)

			env.get(base+"?page=2", env.other)
			assert.Len(t, pageOf(t, env.rendered()).Items, 3)

			env.get(base+"?page=abc", env.other)
			assert.Equal(t, 1, pageOf(t, env.rendered()).Number)

			env.get(base+"?page=99", env.other)
			assert.Equal(t, 2, pageOf(t, env.rendered()).Number)
		})
	}
}

func TestPageContext(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.post.ID)

	env.get("/group/test-slug/", nil)
	r := env.rendered()
	assert.Equal(t, env.group.ID, r.Context["group"].(*models.Group).ID)
	assert.Equal(t, false, r.Context["following"])

	env.get("/profile/author/", env.other)
	r = env.rendered()
	assert.Equal(t, "author", r.Context["author"].(*models.User).Username)
	assert.Equal(t, env.post.ID, pageOf(t, r).Items[0].ID)

	env.get("/posts/"+id+"/", env.author)
	r = env.rendered()
	assert.Equal(t, env.post.ID, r.Context["post"].(*models.Post).ID)
	assert.Equal(t, 1, r.Context["author_post_count"])
	assert.Equal(t, true, r.Context["can_modify"])
	assert.IsType(t, &forms.CommentForm{}, r.Context["form"])

	env.get("/posts/"+id+"/edit/", env.author)
	r = env.rendered()
	assert.Equal(t, true, r.Context["is_edit"])
	form := r.Context["form"].(*forms.PostForm)
	assert.Equal(t, "Test post text", form.Text)
	assert.True(t, form.Selected(env.group.ID))
}

func TestPostInAnotherGroup(t *testing.T) {
	env := newTestEnv(t)
	other := &models.Group{Title: "Other", Slug: "other"}
	require.NoError(t, env.db.CreateGroup(context.Background(), other))

	env.get("/group/other/", nil)
	assert.Empty(t, pageOf(t, env.rendered()).Items)
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before, err := env.db.CountPosts(ctx, database.PostFilter{})
	require.NoError(t, err)

	rec := env.submit("/create/", env.author, url.Values{
		"text":  {"Brand new post"},
		"group": {itoa(env.group.ID)},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))

	after, err := env.db.CountPosts(ctx, database.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	latest, err := env.db.ListPosts(ctx, database.PostFilter{}, 1, 0)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Brand new post", latest[0].Text)
	assert.Equal(t, env.author.ID, latest[0].AuthorID)
	require.NotNil(t, latest[0].GroupID)
	assert.Equal(t, env.group.ID, *latest[0].GroupID)
}

func TestCreatePostInvalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.submit("/create/", env.author, url.Values{"text": {"   "}, "group": {"12345"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	r := env.rendered()
	assert.Equal(t, "posts/create_post.html", r.Name)
	form := r.Context["form"].(*forms.PostForm)
	assert.True(t, form.Errors.Has("text"))
	assert.True(t, form.Errors.Has("group"))

	count, err := env.db.CountPosts(context.Background(), database.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAnonymousCannotCreate(t *testing.T) {
	env := newTestEnv(t)
	rec := env.submit("/create/", nil, url.Values{"text": {"sneaky"}})
	assert.Equal(t, http.StatusFound, rec.Code)

	count, err := env.db.CountPosts(context.Background(), database.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEditPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := itoa(env.post.ID)

	rec := env.submit("/posts/"+id+"/edit/", env.author, url.Values{"text": {"Edited text"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/posts/"+id+"/", rec.Header().Get("Location"))

	edited, err := env.db.GetPost(ctx, env.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited text", edited.Text)
	assert.Nil(t, edited.GroupID)
	assert.Equal(t, env.author.ID, edited.AuthorID)
	assert.True(t, edited.Created.Equal(env.post.Created))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 1))))
	return buf.Bytes()
}

func TestCreatePostWithImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.upload("/create/", env.author, url.Values{
		"text":  {"Post with a picture"},
		"group": {itoa(env.group.ID)},
	}, "small.png", pngBytes(t))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))

	latest, err := env.db.ListPosts(ctx, database.PostFilter{}, 1, 0)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Post with a picture", latest[0].Text)
	assert.Equal(t, "posts/small.png", latest[0].Image)

	stored, err := os.ReadFile(env.server.Media.Path(latest[0].Image))
	require.NoError(t, err)
	assert.Equal(t, pngBytes(t), stored)
}

func TestEditPostWithImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := itoa(env.post.ID)
	second := &models.Group{Title: "Second", Slug: "second"}
	require.NoError(t, env.db.CreateGroup(ctx, second))

	rec := env.upload("/posts/"+id+"/edit/", env.author, url.Values{
		"text":  {"New text"},
		"group": {itoa(second.ID)},
	}, "edited.png", pngBytes(t))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/posts/"+id+"/", rec.Header().Get("Location"))

	edited, err := env.db.GetPost(ctx, env.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "New text", edited.Text)
	require.NotNil(t, edited.GroupID)
	assert.Equal(t, second.ID, *edited.GroupID)
	assert.Equal(t, "posts/edited.png", edited.Image)
	assert.FileExists(t, env.server.Media.Path(edited.Image))

	env.get("/group/second/", nil)
	items := pageOf(t, env.rendered()).Items
	require.Len(t, items, 1)
	assert.Equal(t, env.post.ID, items[0].ID)
	env.get("/group/test-slug/", nil)
	assert.Empty(t, pageOf(t, env.rendered()).Items)
}

func TestOversizedImageIsAFieldError(t *testing.T) {
	env := newTestEnv(t)
	big := bytes.Repeat([]byte{0}, forms.MaxUploadSize+2<<20)

	rec := env.upload("/create/", env.author, url.Values{"text": {"hello"}}, "big.png", big)
	assert.Equal(t, http.StatusOK, rec.Code)

	r := env.rendered()
	assert.Equal(t, "posts/create_post.html", r.Name)
	form := r.Context["form"].(*forms.PostForm)
	assert.True(t, form.Errors.Has("image"))

	rec = env.upload("/posts/"+itoa(env.post.ID)+"/edit/", env.author, url.Values{"text": {"hello"}}, "big.png", big)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "posts/create_post.html", env.rendered().Name)

	count, err := env.db.CountPosts(context.Background(), database.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	unchanged, err := env.db.GetPost(context.Background(), env.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test post text", unchanged.Text)
	assert.Empty(t, unchanged.Image)
}

func TestEditPostByStranger(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.post.ID)

	rec := env.submit("/posts/"+id+"/edit/", env.other, url.Values{"text": {"Hijacked"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/posts/"+id+"/", rec.Header().Get("Location"))

	unchanged, err := env.db.GetPost(context.Background(), env.post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test post text", unchanged.Text)
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	id := itoa(env.post.ID)

	rec := env.submit("/posts/"+id+"/delete/", env.other, url.Values{})
	assert.Equal(t, http.StatusFound, rec.Code)
	_, err := env.db.GetPost(context.Background(), env.post.ID)
	require.NoError(t, err)

	rec = env.submit("/posts/"+id+"/delete/", env.author, url.Values{})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))
	_, err = env.db.GetPost(context.Background(), env.post.ID)
	assert.True(t, utils.IsNotFound(err))
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := itoa(env.post.ID)

	rec := env.submit("/posts/"+id+"/comment/", nil, url.Values{"text": {"anonymous"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/auth/login/"))

	rec = env.submit("/posts/"+id+"/comment/", env.other, url.Values{"text": {"Nice post"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/posts/"+id+"/", rec.Header().Get("Location"))

	rec = env.submit("/posts/"+id+"/comment/", env.other, url.Values{"text": {""}})
	assert.Equal(t, http.StatusFound, rec.Code)

	comments, err := env.db.ListComments(ctx, env.post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Nice post", comments[0].Text)
	assert.Equal(t, env.other.ID, comments[0].AuthorID)

	env.get("/posts/"+id+"/", nil)
	shown := env.rendered().Context["comments"].([]*models.Comment)
	require.Len(t, shown, 1)
	assert.Equal(t, "Nice post", shown[0].Text)

	rec = env.submit("/posts/999999/comment/", env.other, url.Values{"text": {"lost"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFollowFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	stranger := env.user("stranger")

	rec := env.get("/profile/author/follow/", env.other)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))

	following, err := env.db.IsFollowing(ctx, env.other.ID, env.author.ID)
	require.NoError(t, err)
	assert.True(t, following)

	env.get("/profile/author/", env.other)
	assert.Equal(t, true, env.rendered().Context["following"])

	env.get("/follow/", env.other)
	page := pageOf(t, env.rendered())
	require.Len(t, page.Items, 1)
	assert.Equal(t, env.post.ID, page.Items[0].ID)

	env.get("/follow/", stranger)
	assert.Empty(t, pageOf(t, env.rendered()).Items)

	rec = env.get("/profile/author/unfollow/", env.other)
	assert.Equal(t, http.StatusFound, rec.Code)
	following, err = env.db.IsFollowing(ctx, env.other.ID, env.author.ID)
	require.NoError(t, err)
	assert.False(t, following)

	rec = env.get("/profile/author/unfollow/", env.other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFollowSelfIsIgnored(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/profile/author/follow/", env.author)
	assert.Equal(t, http.StatusFound, rec.Code)

	following, err := env.db.IsFollowing(context.Background(), env.author.ID, env.author.ID)
	require.NoError(t, err)
	assert.False(t, following)

	env.get("/profile/author/", env.author)
	assert.Equal(t, false, env.rendered().Context["following"])
}

func TestGroupFollow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/group/test-slug/follow/", env.other)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/group/test-slug/", rec.Header().Get("Location"))

	env.get("/group/test-slug/", env.other)
	assert.Equal(t, true, env.rendered().Context["following"])

	rec = env.get("/group/test-slug/unfollow/", env.other)
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = env.get("/group/missing/follow/", env.other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignupLoginLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.submit("/auth/signup/", nil, url.Values{
		"first_name": {"Lev"},
		"last_name":  {"Tolstoy"},
		"username":   {"leo"},
		"password1":  {"war-and-peace"},
		"password2":  {"war-and-peace"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), middleware.SessionCookieName+"=")

	user, err := env.db.GetUserByUsername(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, "Lev Tolstoy", user.FullName())

	rec = env.submit("/auth/signup/", nil, url.Values{
		"username":  {"leo"},
		"password1": {"war-and-peace"},
		"password2": {"war-and-peace"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.rendered().Context["form"].(*forms.SignupForm).Errors.Has("username"))

	rec = env.submit("/auth/login/?next=/create/", nil, url.Values{
		"username": {"leo"},
		"password": {"war-and-peace"},
		"next":     {"/create/"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/create/", rec.Header().Get("Location"))

	rec = env.submit("/auth/login/", nil, url.Values{
		"username": {"leo"},
		"password": {"wrong-password"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.rendered().Context["form"].(*forms.LoginForm).Errors.Has(forms.NonFieldErrors))

	rec = env.submit("/auth/login/", nil, url.Values{
		"username": {"leo"},
		"password": {"war-and-peace"},
		"next":     {"https://evil.example/"},
	})
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = env.get("/auth/logout/", user)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestLoginKeepsNext(t *testing.T) {
	env := newTestEnv(t)
	env.get("/auth/login/?next=/follow/", nil)
	assert.Equal(t, "/follow/", env.rendered().Context["next"])
}

func TestIndexIsCached(t *testing.T) {
	env := newTestEnvWith(t, nil)
	ctx := context.Background()

	first := env.get("/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Contains(t, first.Body.String(), "Test post text")

	require.NoError(t, env.db.DeletePost(ctx, env.post.ID))
	second := env.get("/", nil)
	assert.Equal(t, first.Body.String(), second.Body.String())

	env.server.Cache.Clear()
	third := env.get("/", nil)
	assert.NotEqual(t, first.Body.String(), third.Body.String())
	assert.NotContains(t, third.Body.String(), "Test post text")
}

func TestRealTemplatesRender(t *testing.T) {
	env := newTestEnvWith(t, nil)
	id := itoa(env.post.ID)

	for _, path := range []string{
		"/group/test-slug/",
		"/profile/author/",
		"/posts/" + id + "/",
		"/auth/login/",
		"/auth/signup/",
		"/about/author/",
		"/about/tech/",
	} {
		rec := env.get(path, env.other)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
	}

	rec := env.get("/create/", env.author)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.get("/nowhere/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.get("/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestCanModify(t *testing.T) {
	post := &models.Post{AuthorID: 1}
	assert.True(t, CanModify(post, &models.User{ID: 1}))
	assert.False(t, CanModify(post, &models.User{ID: 2}))
	assert.False(t, CanModify(post, nil))
}
