package data

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/magabrotheeeer/subscription-site/internal/client/query"
	"github.com/magabrotheeeer/subscription-site/internal/client/rest"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
)

// keyPosts — базовый ключ семейства постов: под ним живёт админский
// список (все посты). Публичный список и отдельные посты кешируются
// под производными ключами и инвалидируются по общему префиксу.
const keyPosts = "posts"

// listLimit — размер страницы списков постов: представления загружают
// весь набор одним запросом.
const listLimit = 1000

func postsKey(published *bool) string {
	if published == nil {
		return keyPosts
	}
	return query.Key(keyPosts, "published="+strconv.FormatBool(*published))
}

func postKey(id string) string {
	return query.Key(keyPosts, id)
}

// Posts — хранилище постов блога.
type Posts struct {
	cache  *query.Cache
	api    *rest.Client
	notify Notifier
	log    *slog.Logger
}

// NewPosts создаёт хранилище постов.
func NewPosts(cache *query.Cache, api *rest.Client, notify Notifier, log *slog.Logger) *Posts {
	return &Posts{
		cache:  cache,
		api:    api,
		notify: notify,
		log:    log,
	}
}

// List возвращает список постов. Админская выборка (published == nil)
// всегда считается устаревшей и перечитывается при каждом обращении,
// чтобы отражать последнюю мутацию; публичная кешируется до
// инвалидации.
func (p *Posts) List(ctx context.Context, published *bool) (*rest.PostList, error) {
	var opts []query.QueryOption
	if published == nil {
		opts = append(opts, query.WithAlwaysStale())
	}
	params := &rest.ListPostsParams{Limit: rest.Int(listLimit), Published: published}

	v, err := p.cache.Fetch(ctx, postsKey(published), func(ctx context.Context) (any, error) {
		return p.api.ListPosts(ctx, params)
	}, opts...)
	if err != nil {
		return nil, err
	}
	return v.(*rest.PostList), nil
}

// Get возвращает один пост, используя кеш.
func (p *Posts) Get(ctx context.Context, id string) (*rest.Post, error) {
	v, err := p.cache.Fetch(ctx, postKey(id), func(ctx context.Context) (any, error) {
		return p.api.GetPost(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*rest.Post), nil
}

// Create создаёт пост и инвалидирует всё семейство постов: и админский,
// и публичный списки сходятся к каноническому состоянию.
func (p *Posts) Create(ctx context.Context, req rest.CreatePostRequest) (*rest.Post, error) {
	post, err := p.api.CreatePost(ctx, req)
	if err != nil {
		p.log.Error("failed to create post", sl.Err(err))
		p.notify.Error("Failed to create post", "Unable to create post. Please try again later.")
		return nil, err
	}
	p.cache.InvalidatePrefix(keyPosts)
	p.notify.Success("Post published!", "Your post is now live.")
	return post, nil
}

// Update изменяет пост с оптимистичной правкой списка и отдельной
// записи; при неудаче обе возвращаются к снимку.
func (p *Posts) Update(ctx context.Context, id string, req rest.UpdatePostRequest) (*rest.Post, error) {
	p.cache.CancelPrefix(keyPosts)
	snap := p.cache.Snapshot(keyPosts, postKey(id))
	p.applyUpdate(id, req)

	post, err := p.api.UpdatePost(ctx, id, req)
	if err != nil {
		p.cache.Restore(snap)
		p.log.Error("failed to update post", sl.Err(err))
		p.notify.Error("Failed to update post", "Unable to update post. Please try again later.")
		return nil, err
	}

	p.cache.InvalidatePrefix(keyPosts)
	p.notify.Success("Post updated!", "Your changes have been saved.")
	return post, nil
}

// Delete удаляет пост с оптимистичным удалением из списка и откатом
// к снимку при неудаче.
func (p *Posts) Delete(ctx context.Context, id string) error {
	p.cache.CancelPrefix(keyPosts)
	snap := p.cache.Snapshot(keyPosts)

	if list, exists := p.cachedList(); exists {
		next := &rest.PostList{
			Posts: make([]rest.Post, 0, len(list.Posts)),
			Total: list.Total - 1,
			Page:  list.Page,
			Limit: list.Limit,
		}
		for _, post := range list.Posts {
			if post.ID != id {
				next.Posts = append(next.Posts, post)
			}
		}
		p.cache.Set(keyPosts, next)
	}

	if err := p.api.DeletePost(ctx, id); err != nil {
		p.cache.Restore(snap)
		p.log.Error("failed to delete post", sl.Err(err))
		p.notify.Error("Failed to delete post", "Unable to delete post. Please try again later.")
		return err
	}

	p.cache.InvalidatePrefix(keyPosts)
	p.notify.Success("Post deleted!", "The post has been removed.")
	return nil
}

func (p *Posts) cachedList() (*rest.PostList, bool) {
	v, exists := p.cache.Get(keyPosts)
	if !exists {
		return nil, false
	}
	list, isList := v.(*rest.PostList)
	return list, isList
}

// applyUpdate применяет частичное обновление к кешированному списку и
// отдельной записи поста, строя новые копии значений.
func (p *Posts) applyUpdate(id string, req rest.UpdatePostRequest) {
	patch := func(post rest.Post) rest.Post {
		if req.Title != nil {
			post.Title = *req.Title
		}
		if req.Content != nil {
			post.Content = *req.Content
		}
		if req.Published != nil {
			post.Published = *req.Published
		}
		return post
	}

	if list, exists := p.cachedList(); exists {
		next := &rest.PostList{
			Posts: make([]rest.Post, len(list.Posts)),
			Total: list.Total,
			Page:  list.Page,
			Limit: list.Limit,
		}
		copy(next.Posts, list.Posts)
		for i, post := range next.Posts {
			if post.ID == id {
				next.Posts[i] = patch(post)
			}
		}
		p.cache.Set(keyPosts, next)
	}

	if v, exists := p.cache.Get(postKey(id)); exists {
		if post, isPost := v.(*rest.Post); isPost {
			patched := patch(*post)
			p.cache.Set(postKey(id), &patched)
		}
	}
}
