package models

// PaymentDetails содержит токен платёжного провайдера из формы оплаты.
// Реальная интеграция с провайдером отсутствует: токен принимается,
// но платёж имитируется.
type PaymentDetails struct {
	StripeToken string `json:"stripe_token,omitempty"`
}

// CreateSubscriptionRequest используется для приёма данных оформления
// платной подписки с публичной страницы тарифов.
type CreateSubscriptionRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	Name           string          `json:"name" validate:"required"`
	PlanID         string          `json:"plan_id" validate:"required"`
	PaymentDetails *PaymentDetails `json:"payment_details,omitempty"`
}

// Subscription представляет результат оформления подписки.
type Subscription struct {
	SubscriptionID string     `json:"subscription_id"` // Идентификатор оформленной подписки
	Status         string     `json:"status"`          // Статус: active
	Plan           string     `json:"plan"`            // Оформленный тариф
	Subscriber     Subscriber `json:"subscriber"`      // Созданный или обновлённый подписчик
}
