package models

import "time"

// Post представляет пост блога.
// Excerpt — производное поле: markdown-разметка контента снимается,
// текст усекается до фиксированной длины. Пересчитывается при создании
// поста и при изменении контента.
// Дата создания сериализуется в createdAt: исторический формат клиента.
type Post struct {
	ID        string    `json:"id"`        // Уникальный идентификатор поста
	Title     string    `json:"title"`     // Заголовок
	Content   string    `json:"content"`   // Текст поста в markdown
	Excerpt   string    `json:"excerpt"`   // Краткий анонс без разметки
	CreatedAt time.Time `json:"createdAt"` // Дата создания
	Published bool      `json:"published"` // Признак публикации
}

// CreatePostRequest используется для приёма данных создания поста.
// Published по умолчанию true: новый пост сразу публикуется.
type CreatePostRequest struct {
	Title     string `json:"title" validate:"required"`
	Content   string `json:"content" validate:"required"`
	Published *bool  `json:"published,omitempty"`
}

// UpdatePostRequest используется для частичного обновления поста.
// Поля-указатели: nil означает "не менять".
type UpdatePostRequest struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	Published *bool   `json:"published,omitempty"`
}

// PostFilter описывает параметры выборки списка постов.
type PostFilter struct {
	Skip      int   // Смещение выборки
	Limit     int   // Размер страницы
	Published *bool // Фильтр по публикации, nil — все посты
}
