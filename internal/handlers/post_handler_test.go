package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/hexagon/backend/internal/models"
)

func TestCreatePost_NotifiesFollowers(t *testing.T) {
	env := newTestEnv(t)
	h := NewPostHandler(env.posts, env.producer)
	_, err := env.follows.InsertIfAbsent(context.Background(), "u1", "u2")
	require.NoError(t, err)

	c, rec := env.context(http.MethodPost, "/api/v1/posts", `{"content":"first post"}`, "u2")
	require.NoError(t, h.CreatePost(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var post models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, "u2", post.AccountID)

	env.tasks.Wait()

	stored := env.notifications.forRecipient("u1")
	require.Len(t, stored, 1)
	n := stored[0]
	assert.Equal(t, models.NotificationTypeNewPost, n.Type)
	assert.Equal(t, "u2", n.RelatedUserID)
	assert.Equal(t, post.ID.Hex(), n.RelatedPostID)
	assert.Equal(t, "bob posted something new.", n.Message)
	assert.False(t, n.IsRead)

	live := env.live.to("u1")
	require.Len(t, live, 1)
	assert.Equal(t, n, *live[0])

	assert.Empty(t, env.notifications.forRecipient("u2"), "author is not notified")
}

func TestCreatePost_NoFollowers(t *testing.T) {
	env := newTestEnv(t)
	h := NewPostHandler(env.posts, env.producer)

	c, rec := env.context(http.MethodPost, "/api/v1/posts", `{"content":"hello"}`, "u2")
	require.NoError(t, h.CreatePost(c))
	env.tasks.Wait()

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, env.notifications.items)
}

func TestCreatePost_TruncatesContent(t *testing.T) {
	env := newTestEnv(t)
	h := NewPostHandler(env.posts, env.producer)

	body, err := json.Marshal(echo.Map{"content": strings.Repeat("a", models.MaxPostLength+100)})
	require.NoError(t, err)
	c, rec := env.context(http.MethodPost, "/api/v1/posts", string(body), "u2")
	require.NoError(t, h.CreatePost(c))
	env.tasks.Wait()

	var post models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Len(t, post.Content, models.MaxPostLength)
}

func TestCreatePost_RequiresContent(t *testing.T) {
	env := newTestEnv(t)
	h := NewPostHandler(env.posts, env.producer)

	c, _ := env.context(http.MethodPost, "/api/v1/posts", `{"content":""}`, "u2")
	var he *echo.HTTPError
	require.ErrorAs(t, h.CreatePost(c), &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestGetAndDeletePost(t *testing.T) {
	env := newTestEnv(t)
	h := NewPostHandler(env.posts, env.producer)
	post := env.posts.add("u2")

	call := func(fn echo.HandlerFunc, method, id, userID string) (*httptestResult, error) {
		c, rec := env.context(method, "/api/v1/posts/"+id, "", userID)
		c.SetPath("/api/v1/posts/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		err := fn(c)
		return &httptestResult{code: rec.Code, body: rec.Body.String()}, err
	}

	res, err := call(h.GetPost, http.MethodGet, post.ID.Hex(), "u1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.code)

	var he *echo.HTTPError
	_, err = call(h.GetPost, http.MethodGet, "not-an-id", "u1")
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)

	_, err = call(h.DeletePost, http.MethodDelete, post.ID.Hex(), "u1")
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)

	res, err = call(h.DeletePost, http.MethodDelete, post.ID.Hex(), "u2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, res.body)

	_, err = call(h.DeletePost, http.MethodDelete, post.ID.Hex(), "u2")
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetPosts_ByAccount(t *testing.T) {
	env := newTestEnv(t)
	h := NewPostHandler(env.posts, env.producer)
	env.posts.add("u1")
	env.posts.add("u2")

	c, rec := env.context(http.MethodGet, "/api/v1/posts?accountId=u1", "", "u1")
	require.NoError(t, h.GetPosts(c))

	var posts []models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "u1", posts[0].AccountID)
}

type httptestResult struct {
	code int
	body string
}
