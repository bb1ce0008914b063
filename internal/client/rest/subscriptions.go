package rest

import (
	"context"
	"log/slog"
	"net/http"
)

// PaymentDetails — токен платёжного провайдера из формы оплаты.
type PaymentDetails struct {
	StripeToken string `json:"stripe_token,omitempty"`
}

// CreateSubscriptionRequest — данные оформления платной подписки.
type CreateSubscriptionRequest struct {
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	PlanID         string          `json:"plan_id"`
	PaymentDetails *PaymentDetails `json:"payment_details,omitempty"`
}

// SubscriptionResponse — результат оформления подписки.
type SubscriptionResponse struct {
	SubscriptionID string     `json:"subscription_id"`
	Status         string     `json:"status"`
	Plan           string     `json:"plan"`
	Subscriber     Subscriber `json:"subscriber"`
}

// CreateSubscription оформляет подписку с публичной страницы тарифов.
func (c *Client) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*SubscriptionResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/subscriptions", req)
	if err != nil {
		return nil, err
	}
	if !ok(resp) {
		return nil, errorFromResponse(resp, "failed to create subscription")
	}

	var raw struct {
		SubscriptionID string        `json:"subscription_id"`
		Status         string        `json:"status"`
		Plan           string        `json:"plan"`
		Subscriber     rawSubscriber `json:"subscriber"`
	}
	if err := decodeInto(resp, &raw); err != nil {
		return nil, err
	}

	c.log.Info("subscription created",
		slog.String("plan", raw.Plan),
		slog.String("email", req.Email),
	)
	return &SubscriptionResponse{
		SubscriptionID: raw.SubscriptionID,
		Status:         raw.Status,
		Plan:           raw.Plan,
		Subscriber:     normalizeSubscriber(raw.Subscriber),
	}, nil
}
