package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/pkg/log"
)

func TestCreateComment_TruncatesAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	h := NewCommentHandler(env.comments, env.posts, env.producer, log.NewNop())
	post := env.posts.add("u2")

	body, err := json.Marshal(echo.Map{
		"targetType": "post",
		"targetId":   post.ID.Hex(),
		"accountId":  "u1",
		"content":    strings.Repeat("é", models.MaxCommentLength+5),
	})
	require.NoError(t, err)

	c, rec := env.context(http.MethodPost, "/api/v1/comments", string(body), "u1")
	require.NoError(t, h.CreateComment(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	env.tasks.Wait()

	var comment models.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))
	assert.Equal(t, models.MaxCommentLength, len([]rune(comment.Content)))

	got := env.notifications.forRecipient("u2")
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationTypeComment, got[0].Type)
	assert.Equal(t, "alice commented on your post.", got[0].Message)

	c, rec = env.context(http.MethodGet, "/api/v1/comments?count=1&targetType=post&targetId="+post.ID.Hex(), "", "u1")
	require.NoError(t, h.GetComments(c))
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func TestCreateComment_OwnPostIsSilent(t *testing.T) {
	env := newTestEnv(t)
	h := NewCommentHandler(env.comments, env.posts, env.producer, log.NewNop())
	post := env.posts.add("u2")

	body := `{"targetType":"post","targetId":"` + post.ID.Hex() + `","accountId":"u2","content":"thanks all"}`
	c, _ := env.context(http.MethodPost, "/api/v1/comments", body, "u2")
	require.NoError(t, h.CreateComment(c))
	env.tasks.Wait()

	assert.Empty(t, env.notifications.items)
}

func TestCreateComment_Validation(t *testing.T) {
	env := newTestEnv(t)
	h := NewCommentHandler(env.comments, env.posts, env.producer, log.NewNop())

	c, _ := env.context(http.MethodPost, "/api/v1/comments", `{"targetType":"post","targetId":"p1","accountId":"u1"}`, "u1")
	var he *echo.HTTPError
	require.ErrorAs(t, h.CreateComment(c), &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
