package main

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"yatube/internal/database"
	"yatube/internal/engine"
	"yatube/internal/handlers"
	"yatube/internal/middleware"
	"yatube/internal/storage"
	"yatube/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, base string) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar:     jar,
			Timeout: 5 * time.Second,
		},
	}
}

// get follows redirects and returns the final path and body.
func (b *browser) get(path string) (string, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	return b.read(resp)
}

func (b *browser) submit(path string, form url.Values) (string, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base+path, form)
	require.NoError(b.t, err)
	return b.read(resp)
}

func (b *browser) read(resp *http.Response) (string, string) {
	b.t.Helper()
	defer resp.Body.Close()
	require.Equal(b.t, http.StatusOK, resp.StatusCode, resp.Request.URL.String())
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.Request.URL.RequestURI(), string(body)
}

func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()
	metrics := utils.NewMetricsCollector()
	db := engine.NewMemoryDB(metrics, utils.DiscardLogger())
	defer db.Close(ctx)

	server, err := handlers.NewServer(handlers.Options{
		DB:       db,
		Sessions: middleware.NewSessionManager("flow-secret", time.Hour),
		Media:    storage.NewMediaStore(t.TempDir()),
		Metrics:  metrics,
		Logger:   utils.DiscardLogger(),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(server)
	defer ts.Close()

	group, err := newGroup("Писатели", "writers", "Group for writers")
	require.NoError(t, err)
	require.NoError(t, db.CreateGroup(ctx, group))

	// Step 1: anonymous visitors are sent to the login page
	anon := newBrowser(t, ts.URL)
	path, _ := anon.get("/create/")
	assert.Equal(t, "/auth/login/?next=/create/", path)

	// Step 2: sign up two users
	author := newBrowser(t, ts.URL)
	path, _ = author.submit("/auth/signup/", url.Values{
		"username":  {"leo"},
		"password1": {"war-and-peace"},
		"password2": {"war-and-peace"},
	})
	assert.Equal(t, "/", path)

	reader := newBrowser(t, ts.URL)
	reader.submit("/auth/signup/", url.Values{
		"username":  {"anna"},
		"password1": {"requiem-1935"},
		"password2": {"requiem-1935"},
	})

	// Step 3: the author writes a post in the group
	path, body := author.submit("/create/", url.Values{
		"text":  {"Все счастливые семьи похожи друг на друга"},
		"group": {itoa(group.ID)},
	})
	assert.Equal(t, "/profile/leo/", path)
	assert.Contains(t, body, "Все счастливые семьи")

	_, body = anon.get("/group/writers/")
	assert.Contains(t, body, "Все счастливые семьи")

	posts, err := db.ListPosts(ctx, database.PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	postPath := "/posts/" + itoa(posts[0].ID) + "/"

	// Step 4: the reader follows the author and sees the post in the feed
	_, body = reader.get("/follow/")
	assert.NotContains(t, body, "Все счастливые семьи")

	path, _ = reader.get("/profile/leo/follow/")
	assert.Equal(t, "/profile/leo/", path)
	_, body = reader.get("/follow/")
	assert.Contains(t, body, "Все счастливые семьи")

	// Step 5: the reader comments
	path, body = reader.submit(postPath+"comment/", url.Values{"text": {"Но каждая несчастна по-своему"}})
	assert.Equal(t, postPath, path)
	assert.Contains(t, body, "Но каждая несчастна по-своему")

	// Step 6: only the author may edit
	path, _ = reader.submit(postPath+"edit/", url.Values{"text": {"hijacked"}})
	assert.Equal(t, postPath, path)
	path, body = author.submit(postPath+"edit/", url.Values{"text": {"Исправленный текст"}})
	assert.Equal(t, postPath, path)
	assert.Contains(t, body, "Исправленный текст")

	// Step 7: logging out drops the session
	path, _ = author.get("/auth/logout/")
	assert.Equal(t, "/", path)
	path, _ = author.get("/create/")
	assert.True(t, strings.HasPrefix(path, "/auth/login/"))
}

func TestNewGroup(t *testing.T) {
	_, err := newGroup("", "slug", "")
	assert.Error(t, err)
	_, err = newGroup("Title", "bad slug", "")
	assert.Error(t, err)
	_, err = newGroup("Title", strings.Repeat("s", 101), "")
	assert.Error(t, err)

	group, err := newGroup(" Title ", "good-slug_1", "desc")
	require.NoError(t, err)
	assert.Equal(t, "Title", group.Title)
	assert.Equal(t, "good-slug_1", group.Slug)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "createuser", "creategroup", "seed"} {
		assert.True(t, names[want], want)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
