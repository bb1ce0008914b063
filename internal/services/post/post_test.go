package post

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-site/internal/models"
	"github.com/magabrotheeeer/subscription-site/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreatePost(ctx context.Context, post models.Post) (string, error) {
	args := m.Called(ctx, post)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) ReadPost(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *RepoMock) ListPosts(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error) {
	args := m.Called(ctx, filter)
	posts, _ := args.Get(0).([]*models.Post)
	return posts, args.Int(1), args.Error(2)
}

func (m *RepoMock) UpdatePost(ctx context.Context, post models.Post) (int, error) {
	args := m.Called(ctx, post)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) RemovePost(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCreate_DerivesExcerptFromMarkdown(t *testing.T) {
	repo := new(RepoMock)
	service := New(repo, new(CacheMock), newNoopLogger())

	repo.On("CreatePost", mock.Anything, mock.MatchedBy(func(post models.Post) bool {
		return post.Title == "Hello" && post.Excerpt == "Hello World" && post.Published
	})).Return("p1", nil)
	repo.On("ReadPost", mock.Anything, "p1").
		Return(&models.Post{ID: "p1", Title: "Hello", Excerpt: "Hello World", Published: true}, nil)

	post, err := service.Create(context.Background(), models.CreatePostRequest{
		Title:   "Hello",
		Content: "# Hello\n\n**World**",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello World", post.Excerpt)
	repo.AssertExpectations(t)
}

func TestCreate_ExplicitDraft(t *testing.T) {
	repo := new(RepoMock)
	service := New(repo, new(CacheMock), newNoopLogger())

	published := false
	repo.On("CreatePost", mock.Anything, mock.MatchedBy(func(post models.Post) bool {
		return !post.Published
	})).Return("p1", nil)
	repo.On("ReadPost", mock.Anything, "p1").
		Return(&models.Post{ID: "p1", Published: false}, nil)

	post, err := service.Create(context.Background(), models.CreatePostRequest{
		Title:     "Draft",
		Content:   "text",
		Published: &published,
	})
	require.NoError(t, err)
	assert.False(t, post.Published)
}

func TestUpdate_ContentChangeRecomputesExcerpt(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, newNoopLogger())

	repo.On("ReadPost", mock.Anything, "p1").
		Return(&models.Post{ID: "p1", Title: "Hello", Content: "old", Excerpt: "old"}, nil)
	repo.On("UpdatePost", mock.Anything, mock.MatchedBy(func(post models.Post) bool {
		return post.Content == "## New text" && post.Excerpt == "New text"
	})).Return(1, nil)
	cache.On("Invalidate", "post:p1").Return(nil)

	content := "## New text"
	post, err := service.Update(context.Background(), "p1", models.UpdatePostRequest{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "New text", post.Excerpt)
}

func TestUpdate_TitleChangeKeepsExcerpt(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, newNoopLogger())

	repo.On("ReadPost", mock.Anything, "p1").
		Return(&models.Post{ID: "p1", Title: "Old", Content: "body", Excerpt: "body"}, nil)
	repo.On("UpdatePost", mock.Anything, mock.MatchedBy(func(post models.Post) bool {
		return post.Title == "New" && post.Excerpt == "body"
	})).Return(1, nil)
	cache.On("Invalidate", "post:p1").Return(nil)

	title := "New"
	post, err := service.Update(context.Background(), "p1", models.UpdatePostRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "body", post.Excerpt)
}

func TestUpdate_NotFound(t *testing.T) {
	repo := new(RepoMock)
	service := New(repo, new(CacheMock), newNoopLogger())

	repo.On("ReadPost", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	title := "New"
	_, err := service.Update(context.Background(), "missing", models.UpdatePostRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_CacheMissFillsCache(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, newNoopLogger())

	cache.On("Get", "post:p1", mock.Anything).Return(false, nil)
	repo.On("ReadPost", mock.Anything, "p1").
		Return(&models.Post{ID: "p1", Title: "Hello"}, nil)
	cache.On("Set", "post:p1", mock.Anything, time.Hour).Return(nil)

	post, err := service.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Title)
	cache.AssertExpectations(t)
}

func TestDelete_NotFound(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	service := New(repo, cache, newNoopLogger())

	cache.On("Invalidate", "post:missing").Return(nil)
	repo.On("RemovePost", mock.Anything, "missing").Return(0, nil)

	err := service.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
