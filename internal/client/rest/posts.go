package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Post — каноническое клиентское представление поста блога.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"createdAt"`
	Published bool      `json:"published"`
}

// rawPost — пост в том виде, в каком его может прислать бэкенд.
// Дата создания приходит либо в createdAt, либо в created_at.
type rawPost struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Excerpt      string     `json:"excerpt"`
	CreatedAt    *time.Time `json:"createdAt"`
	AltCreatedAt *time.Time `json:"created_at"`
	Published    bool       `json:"published"`
}

// normalizePost приводит ответ бэкенда к каноническому виду.
// Таблица приоритетов полей: createdAt, затем created_at.
func normalizePost(raw rawPost) Post {
	var createdAt time.Time
	switch {
	case raw.CreatedAt != nil:
		createdAt = *raw.CreatedAt
	case raw.AltCreatedAt != nil:
		createdAt = *raw.AltCreatedAt
	}
	return Post{
		ID:        raw.ID,
		Title:     raw.Title,
		Content:   raw.Content,
		Excerpt:   raw.Excerpt,
		CreatedAt: createdAt,
		Published: raw.Published,
	}
}

// ListPostsParams — параметры выборки списка постов.
// Nil-поля не сериализуются в запрос.
type ListPostsParams struct {
	Skip      *int
	Limit     *int
	Published *bool
}

func (p *ListPostsParams) encode() string {
	if p == nil {
		return ""
	}
	q := url.Values{}
	if p.Skip != nil {
		q.Set("skip", strconv.Itoa(*p.Skip))
	}
	if p.Limit != nil {
		q.Set("limit", strconv.Itoa(*p.Limit))
	}
	if p.Published != nil {
		q.Set("published", strconv.FormatBool(*p.Published))
	}
	return q.Encode()
}

// PostList — страница списка постов.
type PostList struct {
	Posts []Post `json:"posts"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// ListPosts возвращает страницу постов.
func (c *Client) ListPosts(ctx context.Context, params *ListPostsParams) (*PostList, error) {
	path := "/posts"
	if qs := params.encode(); qs != "" {
		path += "?" + qs
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to fetch posts")
	}

	var raw struct {
		Posts []rawPost `json:"posts"`
		Total int       `json:"total"`
		Page  int       `json:"page"`
		Limit int       `json:"limit"`
	}
	if err := decodeInto(resp, &raw); err != nil {
		return nil, err
	}

	list := &PostList{
		Posts: make([]Post, 0, len(raw.Posts)),
		Total: raw.Total,
		Page:  raw.Page,
		Limit: raw.Limit,
	}
	for _, post := range raw.Posts {
		list.Posts = append(list.Posts, normalizePost(post))
	}
	return list, nil
}

// GetPost возвращает один пост. Отсутствующий пост отличим от прочих
// сбоев: возвращается NotFoundError.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/posts/%s", id), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		drain(resp)
		return nil, &NotFoundError{Resource: "post", ID: id}
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to fetch post")
	}

	var raw rawPost
	if err := decodeInto(resp, &raw); err != nil {
		return nil, err
	}
	post := normalizePost(raw)
	return &post, nil
}

// CreatePostRequest — данные создания поста.
type CreatePostRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Published *bool  `json:"published,omitempty"`
}

// CreatePost создаёт пост (только для админа).
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	resp, err := c.do(ctx, http.MethodPost, "/posts", req)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to create post")
	}

	var raw rawPost
	if err := decodeInto(resp, &raw); err != nil {
		return nil, err
	}
	post := normalizePost(raw)
	return &post, nil
}

// UpdatePostRequest — частичное обновление поста.
type UpdatePostRequest struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	Published *bool   `json:"published,omitempty"`
}

// UpdatePost изменяет пост (только для админа).
func (c *Client) UpdatePost(ctx context.Context, id string, req UpdatePostRequest) (*Post, error) {
	resp, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/posts/%s", id), req)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to update post")
	}

	var raw rawPost
	if err := decodeInto(resp, &raw); err != nil {
		return nil, err
	}
	post := normalizePost(raw)
	return &post, nil
}

// DeletePost удаляет пост (только для админа).
func (c *Client) DeletePost(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/posts/%s", id), nil)
	if err != nil {
		return err
	}
	if !ok(resp) {
		return errorFromResponse(resp, "failed to delete post")
	}
	drain(resp)
	return nil
}
