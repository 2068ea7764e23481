package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/hexagon/backend/internal/models"
)

func TestFollowUser_NotifiesFollowedUser(t *testing.T) {
	env := newTestEnv(t)
	h := NewFollowHandler(env.follows, env.producer)

	c, rec := env.context(http.MethodPost, "/api/v1/follow", `{"followingId":"u2"}`, "u1")
	require.NoError(t, h.FollowUser(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	env.tasks.Wait()

	got := env.notifications.forRecipient("u2")
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationTypeFollow, got[0].Type)
	assert.Equal(t, "alice started following you.", got[0].Message)
	assert.Equal(t, "u1", got[0].RelatedUserID)
	assert.Equal(t, "alice", got[0].RelatedUsername)
	assert.Len(t, env.live.to("u2"), 1)
}

func TestFollowUser_RejectsSelf(t *testing.T) {
	env := newTestEnv(t)
	h := NewFollowHandler(env.follows, env.producer)

	c, _ := env.context(http.MethodPost, "/api/v1/follow", `{"followingId":"u1"}`, "u1")
	err := h.FollowUser(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, 0, env.follows.count())
}

func TestFollowUser_RequiresTarget(t *testing.T) {
	env := newTestEnv(t)
	h := NewFollowHandler(env.follows, env.producer)

	c, _ := env.context(http.MethodPost, "/api/v1/follow", `{}`, "u1")
	var he *echo.HTTPError
	require.ErrorAs(t, h.FollowUser(c), &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestFollowUser_AlreadyFollowing(t *testing.T) {
	env := newTestEnv(t)
	h := NewFollowHandler(env.follows, env.producer)

	for i := 0; i < 2; i++ {
		c, _ := env.context(http.MethodPost, "/api/v1/follow", `{"followingId":"u2"}`, "u1")
		require.NoError(t, h.FollowUser(c))
	}
	c, rec := env.context(http.MethodPost, "/api/v1/follow", `{"followingId":"u2"}`, "u1")
	require.NoError(t, h.FollowUser(c))
	env.tasks.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"alreadyFollowing":true}`, rec.Body.String())
	assert.Len(t, env.notifications.forRecipient("u2"), 1)
}

func TestFollowUser_ConcurrentDuplicates(t *testing.T) {
	env := newTestEnv(t)
	h := NewFollowHandler(env.follows, env.producer)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, _ := env.context(http.MethodPost, "/api/v1/follow", `{"followingId":"u2"}`, "u1")
			assert.NoError(t, h.FollowUser(c))
		}()
	}
	wg.Wait()
	env.tasks.Wait()

	assert.Equal(t, 1, env.follows.count())
	assert.Len(t, env.notifications.forRecipient("u2"), 1)
}

func TestFollowUser_UnknownActorName(t *testing.T) {
	env := newTestEnv(t)
	h := NewFollowHandler(env.follows, env.producer)

	c, _ := env.context(http.MethodPost, "/api/v1/follow", `{"followingId":"u2"}`, "ghost")
	require.NoError(t, h.FollowUser(c))
	env.tasks.Wait()

	got := env.notifications.forRecipient("u2")
	require.Len(t, got, 1)
	assert.Equal(t, "Someone started following you.", got[0].Message)
	assert.Equal(t, "Someone", got[0].RelatedUsername)
}

func TestUnfollowAndStats(t *testing.T) {
	env := newTestEnv(t)
	h := NewFollowHandler(env.follows, env.producer)

	c, _ := env.context(http.MethodPost, "/api/v1/follow", `{"followingId":"u2"}`, "u1")
	require.NoError(t, h.FollowUser(c))

	c, rec := env.context(http.MethodGet, "/api/v1/follow/stats?accountId=u2", "", "u1")
	require.NoError(t, h.GetFollowStats(c))
	assert.JSONEq(t, `{"followers":1,"following":0}`, rec.Body.String())

	c, rec = env.context(http.MethodGet, "/api/v1/follow/status?followingId=u2", "", "u1")
	require.NoError(t, h.GetFollowStatus(c))
	assert.JSONEq(t, `{"following":true}`, rec.Body.String())

	c, rec = env.context(http.MethodDelete, "/api/v1/follow?followingId=u2", "", "u1")
	require.NoError(t, h.UnfollowUser(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.follows.count())

	// Unfollowing again is a no-op.
	c, rec = env.context(http.MethodDelete, "/api/v1/follow", `{"followingId":"u2"}`, "u1")
	require.NoError(t, h.UnfollowUser(c))
	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body["ok"])

	env.tasks.Wait()
}

func TestFollowStats_NoAccount(t *testing.T) {
	env := newTestEnv(t)
	h := NewFollowHandler(env.follows, env.producer)

	c, rec := env.context(http.MethodGet, "/api/v1/follow/stats", "", "u1")
	require.NoError(t, h.GetFollowStats(c))
	assert.JSONEq(t, `{"followers":0,"following":0}`, rec.Body.String())
}
