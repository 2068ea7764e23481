package handlers

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/anonto42/hexagon/backend/internal/middleware"
	"github.com/anonto42/hexagon/backend/internal/models"
	"github.com/anonto42/hexagon/backend/internal/notifier"
	"github.com/anonto42/hexagon/backend/internal/push"
	"github.com/anonto42/hexagon/backend/internal/repositories"
	"github.com/anonto42/hexagon/backend/pkg/log"
	"github.com/anonto42/hexagon/backend/validators"
)

type memUsers map[string]*models.User

func (m memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return u, nil
}

type memFollows struct {
	mu   sync.Mutex
	rows []models.Follow
}

func (m *memFollows) InsertIfAbsent(_ context.Context, followerID, followingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.FollowerID == followerID && r.FollowingID == followingID {
			return false, nil
		}
	}
	m.rows = append(m.rows, models.Follow{FollowerID: followerID, FollowingID: followingID, CreatedAt: time.Now()})
	return true, nil
}

func (m *memFollows) DeleteFollow(_ context.Context, followerID, followingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.FollowerID == followerID && r.FollowingID == followingID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memFollows) IsFollowing(_ context.Context, followerID, followingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.FollowerID == followerID && r.FollowingID == followingID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memFollows) GetFollowerIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, r := range m.rows {
		if r.FollowingID == userID {
			ids = append(ids, r.FollowerID)
		}
	}
	return ids, nil
}

func (m *memFollows) GetFollowersCount(ctx context.Context, userID string) (int64, error) {
	ids, _ := m.GetFollowerIDs(ctx, userID)
	return int64(len(ids)), nil
}

func (m *memFollows) GetFollowingCount(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.FollowerID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memFollows) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memLikes struct {
	mu   sync.Mutex
	rows []models.Like
}

func (m *memLikes) InsertIfAbsent(_ context.Context, like *models.Like) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TargetType == like.TargetType && r.TargetID == like.TargetID && r.AccountID == like.AccountID {
			return false, nil
		}
	}
	like.CreatedAt = time.Now()
	m.rows = append(m.rows, *like)
	return true, nil
}

func (m *memLikes) DeleteLike(_ context.Context, targetType, targetID, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.TargetType == targetType && r.TargetID == targetID && r.AccountID == accountID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memLikes) match(f repositories.LikeFilter) []models.Like {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Like{}
	for _, r := range m.rows {
		if r.TargetType == f.TargetType && r.TargetID == f.TargetID && (f.AccountID == "" || r.AccountID == f.AccountID) {
			out = append(out, r)
		}
	}
	return out
}

func (m *memLikes) GetLikesByTarget(_ context.Context, f repositories.LikeFilter, _ int64) ([]models.Like, error) {
	return m.match(f), nil
}

func (m *memLikes) CountLikesByTarget(_ context.Context, f repositories.LikeFilter) (int64, error) {
	return int64(len(m.match(f))), nil
}

type memComments struct {
	mu   sync.Mutex
	rows []models.Comment
}

func (m *memComments) CreateComment(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now()
	m.rows = append(m.rows, *c)
	return nil
}

func (m *memComments) GetCommentsByTarget(_ context.Context, targetType, targetID string, _ int64) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Comment{}
	for _, r := range m.rows {
		if r.TargetType == targetType && r.TargetID == targetID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memComments) CountCommentsByTarget(ctx context.Context, targetType, targetID string) (int64, error) {
	rows, _ := m.GetCommentsByTarget(ctx, targetType, targetID, 0)
	return int64(len(rows)), nil
}

type memPosts struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newMemPosts() *memPosts { return &memPosts{posts: map[string]*models.Post{}} }

func (m *memPosts) add(accountID string) *models.Post {
	p := &models.Post{AccountID: accountID, Content: "hello"}
	_ = m.CreatePost(context.Background(), p)
	return p
}

func (m *memPosts) CreatePost(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.posts[p.ID.Hex()] = p
	return nil
}

func (m *memPosts) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, repositories.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) GetPostsByAccountID(_ context.Context, accountID string, _, _ int64) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Post{}
	for _, p := range m.posts {
		if p.AccountID == accountID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memPosts) GetAllPosts(_ context.Context, _, _ int64) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Post{}
	for _, p := range m.posts {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memPosts) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) IncrementLikesCount(_ context.Context, postID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[postID]; ok {
		p.LikesCount += delta
	}
	return nil
}

func (m *memPosts) IncrementCommentsCount(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[postID]; ok {
		p.CommentsCount++
	}
	return nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []*models.Notification
}

func (m *memNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	m.items = append(m.items, n)
	return nil
}

func (m *memNotifications) CreateNotifications(ctx context.Context, ns []*models.Notification) ([]*models.Notification, error) {
	for _, n := range ns {
		_ = m.CreateNotification(ctx, n)
	}
	return ns, nil
}

func (m *memNotifications) find(id string) *models.Notification {
	for _, n := range m.items {
		if n.ID.Hex() == id {
			return n
		}
	}
	return nil
}

func (m *memNotifications) GetNotificationByID(_ context.Context, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.find(id); n != nil {
		cp := *n
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (m *memNotifications) forRecipient(recipientID string) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range m.items {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memNotifications) GetRecentByRecipientID(_ context.Context, recipientID string, limit int64) ([]models.Notification, error) {
	out := m.forRecipient(recipientID)
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) GetByRecipientID(_ context.Context, recipientID string, page, limit int64) ([]models.Notification, int64, error) {
	all := m.forRecipient(recipientID)
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= total {
		return []models.Notification{}, total, nil
	}
	end := min(start+limit, total)
	return all[start:end], total, nil
}

func (m *memNotifications) GetUnreadCount(_ context.Context, recipientID string) (int64, error) {
	var n int64
	for _, item := range m.forRecipient(recipientID) {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) MarkAsRead(_ context.Context, id, recipientID string) (*models.Notification, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, repositories.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(id)
	if n == nil {
		return nil, repositories.ErrNotFound
	}
	if n.RecipientID != recipientID {
		return nil, repositories.ErrForbidden
	}
	n.IsRead = true
	cp := *n
	return &cp, nil
}

func (m *memNotifications) MarkAllAsRead(_ context.Context, recipientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

type memPushSubs struct {
	mu   sync.Mutex
	subs map[string]models.PushSubscription
}

func (m *memPushSubs) SaveSubscription(_ context.Context, sub *models.PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = map[string]models.PushSubscription{}
	}
	m.subs[sub.Token] = *sub
	return nil
}

func (m *memPushSubs) DeleteSubscription(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[token]; ok && s.UserID == userID {
		delete(m.subs, token)
		return nil
	}
	return repositories.ErrNotFound
}

func (m *memPushSubs) GetTokensByUserID(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for tok, s := range m.subs {
		if s.UserID == userID {
			out = append(out, tok)
		}
	}
	return out, nil
}

func (m *memPushSubs) DeleteTokens(_ context.Context, tokens []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, tok := range tokens {
		if _, ok := m.subs[tok]; ok {
			delete(m.subs, tok)
			n++
		}
	}
	return n, nil
}

type noopSender struct{}

func (noopSender) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	resp := &messaging.BatchResponse{SuccessCount: len(m.Tokens)}
	for range m.Tokens {
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true})
	}
	return resp, nil
}

// recordingLive captures every live delivery.
type recordingLive struct {
	mu        sync.Mutex
	delivered map[string][]*models.Notification
}

func (r *recordingLive) Deliver(userID string, n *models.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delivered == nil {
		r.delivered = map[string][]*models.Notification{}
	}
	r.delivered[userID] = append(r.delivered[userID], n)
	return true, nil
}

func (r *recordingLive) to(userID string) []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delivered[userID]
}

type testEnv struct {
	e             *echo.Echo
	users         memUsers
	follows       *memFollows
	likes         *memLikes
	comments      *memComments
	posts         *memPosts
	notifications *memNotifications
	pushSubs      *memPushSubs
	live          *recordingLive
	monitor       *notifier.Monitor
	tasks         *notifier.Supervisor
	producer      *Producer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users: memUsers{
			"u1": {ID: "u1", Username: "alice", IsActive: true},
			"u2": {ID: "u2", Username: "bob", IsActive: true},
		},
		follows:       &memFollows{},
		likes:         &memLikes{},
		comments:      &memComments{},
		posts:         newMemPosts(),
		notifications: &memNotifications{},
		pushSubs:      &memPushSubs{},
		live:          &recordingLive{},
		monitor:       notifier.NewMonitor(),
	}
	env.tasks = notifier.NewSupervisor(5*time.Second, env.monitor, log.NewNop())
	n := notifier.New(
		env.notifications,
		env.live,
		push.NewFCMDispatcher(noopSender{}, env.pushSubs, log.NewNop()),
		env.tasks,
		env.monitor,
		notifier.Config{PushTimeout: time.Second, FanoutConcurrency: 4},
		log.NewNop(),
	)
	env.producer = NewProducer(n, env.users, env.posts, env.follows, log.NewNop())

	env.e = echo.New()
	env.e.Validator = validators.NewValidator()
	return env
}

func (env *testEnv) context(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if userID != "" {
		c.Set(middleware.UserIDKey, userID)
	}
	return c, rec
}
