package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Subscriber — каноническое клиентское представление подписчика.
// Идентификатор отдаётся в поле _id: исторический формат админ-панели.
type Subscriber struct {
	ID             string     `json:"_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	IsActive       bool       `json:"is_active"`
	PlanID         string     `json:"plan_id"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`
}

// rawSubscriber — подписчик в том виде, в каком его может прислать бэкенд.
// Идентификатор приходит либо в id, либо в _id.
type rawSubscriber struct {
	ID             string     `json:"id"`
	AltID          string     `json:"_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	IsActive       bool       `json:"is_active"`
	PlanID         string     `json:"plan_id"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at"`
}

// normalizeSubscriber приводит ответ бэкенда к каноническому виду.
// Таблица приоритетов полей: id, затем _id. Неизвестный тариф
// приводится к free. Отсутствующая дата отписки нормализуется
// в явный nil.
func normalizeSubscriber(raw rawSubscriber) Subscriber {
	id := raw.ID
	if id == "" {
		id = raw.AltID
	}
	plan := raw.PlanID
	if plan != "free" && plan != "standard" && plan != "premium" {
		plan = "free"
	}
	return Subscriber{
		ID:             id,
		Email:          raw.Email,
		Name:           raw.Name,
		IsActive:       raw.IsActive,
		PlanID:         plan,
		SubscribedAt:   raw.SubscribedAt,
		UnsubscribedAt: raw.UnsubscribedAt,
	}
}

// ListSubscribersParams — параметры выборки списка подписчиков.
// Nil-поля и пустые строки не сериализуются в запрос.
type ListSubscribersParams struct {
	Skip     *int
	Limit    *int
	Search   string
	IsActive *bool
	PlanID   string
}

func (p *ListSubscribersParams) encode() string {
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
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*p.IsActive))
	}
	if p.PlanID != "" {
		q.Set("plan_id", p.PlanID)
	}
	return q.Encode()
}

// SubscriberList — страница списка подписчиков.
type SubscriberList struct {
	Subscribers []Subscriber `json:"subscribers"`
	Total       int          `json:"total"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
}

// ListSubscribers возвращает страницу подписчиков (только для админа).
func (c *Client) ListSubscribers(ctx context.Context, params *ListSubscribersParams) (*SubscriberList, error) {
	path := "/subscribers"
	if qs := params.encode(); qs != "" {
		path += "?" + qs
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to fetch subscribers")
	}

	var raw struct {
		Subscribers []rawSubscriber `json:"subscribers"`
		Total       int             `json:"total"`
		Page        int             `json:"page"`
		Limit       int             `json:"limit"`
	}
	if err := decodeInto(resp, &raw); err != nil {
		return nil, err
	}

	list := &SubscriberList{
		Subscribers: make([]Subscriber, 0, len(raw.Subscribers)),
		Total:       raw.Total,
		Page:        raw.Page,
		Limit:       raw.Limit,
	}
	for _, sub := range raw.Subscribers {
		list.Subscribers = append(list.Subscribers, normalizeSubscriber(sub))
	}
	return list, nil
}

// CreateSubscriber создаёт подписчика через публичную форму подписки.
func (c *Client) CreateSubscriber(ctx context.Context, email, name string) (*Subscriber, error) {
	resp, err := c.do(ctx, http.MethodPost, "/subscribers", map[string]string{
		"email": email,
		"name":  name,
	})
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to create subscriber")
	}

	var raw rawSubscriber
	if err := decodeInto(resp, &raw); err != nil {
		return nil, err
	}
	sub := normalizeSubscriber(raw)
	return &sub, nil
}

// UpdateSubscriberRequest — частичное обновление подписчика.
type UpdateSubscriberRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	PlanID   *string `json:"plan_id,omitempty"`
}

// UpdateSubscriber изменяет подписчика (статус, тариф, имя).
func (c *Client) UpdateSubscriber(ctx context.Context, id string, req UpdateSubscriberRequest) (*Subscriber, error) {
	resp, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/subscribers/%s", id), req)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to update subscriber")
	}

	var raw rawSubscriber
	if err := decodeInto(resp, &raw); err != nil {
		return nil, err
	}
	sub := normalizeSubscriber(raw)
	return &sub, nil
}

// DeleteSubscriber удаляет подписчика.
func (c *Client) DeleteSubscriber(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/subscribers/%s", id), nil)
	if err != nil {
		return err
	}
	if !ok(resp) {
		return errorFromResponse(resp, "failed to delete subscriber")
	}
	drain(resp)
	return nil
}
