package data

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-site/internal/client/query"
	"github.com/magabrotheeeer/subscription-site/internal/client/rest"
	"github.com/magabrotheeeer/subscription-site/internal/client/token"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// recordingNotifier собирает заголовки уведомлений для проверок.
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, title)
}

func (n *recordingNotifier) Error(title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, title)
}

func newTestEnv(t *testing.T, handler http.Handler) (*query.Cache, *rest.Client, *recordingNotifier) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := newNoopLogger()
	tokens := token.New("", log)
	tokens.Store("access", "refresh")
	api := rest.NewClient(rest.Config{BaseURL: srv.URL}, tokens, log)
	return query.New(log, query.Options{}), api, &recordingNotifier{}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func seededSubscriberList() *rest.SubscriberList {
	return &rest.SubscriberList{
		Subscribers: []rest.Subscriber{
			{ID: "s1", Email: "a@example.com", Name: "Alice", IsActive: true, PlanID: "free"},
			{ID: "s2", Email: "b@example.com", Name: "Bob", IsActive: true, PlanID: "premium"},
		},
		Total: 2,
	}
}

func TestSubscribers_DeleteRollsBackOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /subscribers/s1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewSubscribers(cache, api, notify, newNoopLogger())

	cache.Set(keySubscribers, seededSubscriberList())

	err := store.Delete(context.Background(), "s1")
	require.Error(t, err)

	// Оптимистичное удаление откатилось к снимку.
	v, exists := cache.Get(keySubscribers)
	require.True(t, exists)
	list := v.(*rest.SubscriberList)
	require.Len(t, list.Subscribers, 2)
	assert.Equal(t, "s1", list.Subscribers[0].ID)
	assert.Equal(t, 2, list.Total)

	assert.Equal(t, []string{"Failed to delete subscriber"}, notify.errors)
	assert.Empty(t, notify.successes)
}

func TestSubscribers_DeleteCommitsOnSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /subscribers/s1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewSubscribers(cache, api, notify, newNoopLogger())

	cache.Set(keySubscribers, seededSubscriberList())

	require.NoError(t, store.Delete(context.Background(), "s1"))

	v, exists := cache.Get(keySubscribers)
	require.True(t, exists)
	list := v.(*rest.SubscriberList)
	require.Len(t, list.Subscribers, 1)
	assert.Equal(t, "s2", list.Subscribers[0].ID)
	assert.Equal(t, 1, list.Total)

	// Списки помечены устаревшими: следующий запрос сверится с бэкендом.
	assert.True(t, cache.IsStale(keySubscribers))
	assert.Equal(t, []string{"Subscriber deleted!"}, notify.successes)
}

func TestSubscribers_UpdateKeepsOptimisticEditOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /subscribers/s2", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewSubscribers(cache, api, notify, newNoopLogger())

	cache.Set(keySubscribers, seededSubscriberList())

	_, err := store.SetActive(context.Background(), "s2", false)
	require.Error(t, err)

	// Правка намеренно не откатывается: пользователь видит свой выбор
	// вместе с уведомлением об ошибке.
	v, exists := cache.Get(keySubscribers)
	require.True(t, exists)
	list := v.(*rest.SubscriberList)
	assert.False(t, list.Subscribers[1].IsActive)
	assert.Equal(t, []string{"Failed to update subscriber"}, notify.errors)
}

func TestSubscribers_UpdateDoesNotMutatePriorValue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /subscribers/s1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "s1", "name": "Alicia", "plan_id": "free"})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewSubscribers(cache, api, notify, newNoopLogger())

	seeded := seededSubscriberList()
	cache.Set(keySubscribers, seeded)

	name := "Alicia"
	_, err := store.Update(context.Background(), "s1", rest.UpdateSubscriberRequest{Name: &name})
	require.NoError(t, err)

	// Исходный список не тронут: оптимистичная правка строит копию.
	assert.Equal(t, "Alice", seeded.Subscribers[0].Name)
}

func TestSubscribers_CreateInvalidatesDerivedKeys(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /subscribers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": "s3", "email": "c@example.com", "plan_id": "free"})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewSubscribers(cache, api, notify, newNoopLogger())

	cache.Set(keySubscribers, seededSubscriberList())
	derived := subscribersKey(&rest.ListSubscribersParams{Skip: rest.Int(0), Limit: rest.Int(10)})
	cache.Set(derived, seededSubscriberList())

	sub, err := store.Create(context.Background(), "c@example.com", "Carol")
	require.NoError(t, err)
	assert.Equal(t, "s3", sub.ID)

	assert.True(t, cache.IsStale(keySubscribers))
	assert.True(t, cache.IsStale(derived))
	assert.Equal(t, []string{"Subscriber added!"}, notify.successes)
}

func seededPostList() *rest.PostList {
	return &rest.PostList{
		Posts: []rest.Post{
			{ID: "p1", Title: "First", Published: true},
			{ID: "p2", Title: "Draft", Published: false},
		},
		Total: 2,
	}
}

func TestPosts_CreateInvalidatesBothListings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /posts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": "p3", "title": "New"})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewPosts(cache, api, notify, newNoopLogger())

	cache.Set(postsKey(nil), seededPostList())
	cache.Set(postsKey(rest.Bool(true)), seededPostList())

	_, err := store.Create(context.Background(), rest.CreatePostRequest{Title: "New", Content: "body"})
	require.NoError(t, err)

	// Инвалидация по префиксу накрывает и админский, и публичный списки.
	assert.True(t, cache.IsStale(postsKey(nil)))
	assert.True(t, cache.IsStale(postsKey(rest.Bool(true))))
	assert.Equal(t, []string{"Post published!"}, notify.successes)
}

func TestPosts_UpdateRollsBackListAndDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /posts/p1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewPosts(cache, api, notify, newNoopLogger())

	cache.Set(keyPosts, seededPostList())
	cache.Set(postKey("p1"), &rest.Post{ID: "p1", Title: "First", Published: true})

	title := "Renamed"
	_, err := store.Update(context.Background(), "p1", rest.UpdatePostRequest{Title: &title})
	require.Error(t, err)

	v, exists := cache.Get(keyPosts)
	require.True(t, exists)
	assert.Equal(t, "First", v.(*rest.PostList).Posts[0].Title)

	v, exists = cache.Get(postKey("p1"))
	require.True(t, exists)
	assert.Equal(t, "First", v.(*rest.Post).Title)
	assert.Equal(t, []string{"Failed to update post"}, notify.errors)
}

func TestPosts_UpdateAppliesOptimisticEdit(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /posts/p2", func(w http.ResponseWriter, _ *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]any{"id": "p2", "title": "Draft", "published": true})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewPosts(cache, api, notify, newNoopLogger())

	cache.Set(keyPosts, seededPostList())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := store.Update(context.Background(), "p2", rest.UpdatePostRequest{Published: rest.Bool(true)})
		assert.NoError(t, err)
	}()

	// Пока сетевой вызов не завершён, кеш уже показывает правку.
	assert.Eventually(t, func() bool {
		v, exists := cache.Get(keyPosts)
		if !exists {
			return false
		}
		return v.(*rest.PostList).Posts[1].Published
	}, time.Second, 5*time.Millisecond)

	close(release)
	<-done
	assert.Equal(t, []string{"Post updated!"}, notify.successes)
}

func TestPosts_DeleteRollsBackOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /posts/p1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewPosts(cache, api, notify, newNoopLogger())

	cache.Set(keyPosts, seededPostList())

	err := store.Delete(context.Background(), "p1")
	require.Error(t, err)

	v, exists := cache.Get(keyPosts)
	require.True(t, exists)
	list := v.(*rest.PostList)
	require.Len(t, list.Posts, 2)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, []string{"Failed to delete post"}, notify.errors)
}

func TestPosts_AdminListAlwaysRefetches(t *testing.T) {
	var listCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("published") == "" {
			listCalls++
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": []any{}, "total": listCalls})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewPosts(cache, api, notify, newNoopLogger())

	first, err := store.List(context.Background(), nil)
	require.NoError(t, err)
	second, err := store.List(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Total)
	assert.Equal(t, 2, second.Total)
}

func TestPosts_PublicListIsCached(t *testing.T) {
	var listCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, _ *http.Request) {
		listCalls++
		writeJSON(w, http.StatusOK, map[string]any{"posts": []any{}, "total": 0})
	})
	cache, api, notify := newTestEnv(t, mux)
	store := NewPosts(cache, api, notify, newNoopLogger())

	for range 3 {
		_, err := store.List(context.Background(), rest.Bool(true))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, listCalls)
}

func TestSession_LoginResetsCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, rest.LoginResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			User:         rest.User{ID: "u1", Username: "admin", Role: "admin"},
		})
	})
	cache, api, notify := newTestEnv(t, mux)
	session := NewSession(cache, api, notify, newNoopLogger())

	cache.Set("posts", "leftover")

	user, err := session.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	_, exists := cache.Get("posts")
	assert.False(t, exists)

	// Текущий пользователь доступен из кеша без запроса к /auth/me.
	got, err := session.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

func TestSession_LogoutClearsCacheEvenOnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
	})
	cache, api, notify := newTestEnv(t, mux)
	session := NewSession(cache, api, notify, newNoopLogger())

	cache.Set("posts", "leftover")

	err := session.Logout(context.Background())
	require.Error(t, err)

	_, exists := cache.Get("posts")
	assert.False(t, exists)
}
