package models

import "time"

// Тарифные планы подписчика. Неизвестные значения приводятся к PlanFree
// на границе системы.
const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// IsValidPlan сообщает, входит ли plan в список известных тарифов.
func IsValidPlan(plan string) bool {
	return plan == PlanFree || plan == PlanStandard || plan == PlanPremium
}

// Subscriber представляет подписчика рассылки.
// UnsubscribedAt равен nil, пока подписчик не был деактивирован
// через переключение статуса.
type Subscriber struct {
	ID             string     `json:"id"`              // Уникальный идентификатор подписчика
	Email          string     `json:"email"`           // Электронная почта (уникальная)
	Name           string     `json:"name"`            // Отображаемое имя
	IsActive       bool       `json:"is_active"`       // Признак активной подписки
	PlanID         string     `json:"plan_id"`         // Тарифный план: free, standard или premium
	SubscribedAt   time.Time  `json:"subscribed_at"`   // Дата оформления подписки
	UnsubscribedAt *time.Time `json:"unsubscribed_at"` // Дата деактивации, nil для активных
}

// CreateSubscriberRequest используется для приёма данных публичной формы подписки.
type CreateSubscriberRequest struct {
	Email string `json:"email" validate:"required,email"` // Электронная почта
	Name  string `json:"name" validate:"required"`        // Имя подписчика
}

// UpdateSubscriberRequest используется для частичного обновления подписчика.
// Поля-указатели: nil означает "не менять".
type UpdateSubscriberRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	PlanID   *string `json:"plan_id,omitempty"`
}

// SubscriberFilter описывает параметры выборки списка подписчиков.
type SubscriberFilter struct {
	Skip     int     // Смещение выборки
	Limit    int     // Размер страницы
	Search   string  // Подстрока для поиска по email и имени
	IsActive *bool   // Фильтр по статусу, nil — без фильтра
	PlanID   *string // Фильтр по тарифу, nil — без фильтра
}
