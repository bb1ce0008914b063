// Package data связывает кеш запросов с REST-клиентом и реализует
// политики оптимистичных мутаций для каждой семьи ресурсов.
//
// Каждая мутация — одна последовательная функция с фиксированным
// порядком шагов: отмена догоняющих чтений → снимок → оптимистичная
// правка → сетевой вызов → фиксация или откат. Исход операции
// сообщается пользователю через Notifier; ошибки дополнительно
// возвращаются вызывающему коду.
package data

import "log/slog"

// Notifier получает неблокирующие уведомления об исходе операций —
// аналог всплывающих уведомлений интерфейса.
type Notifier interface {
	Success(title, message string)
	Error(title, message string)
}

// LogNotifier пишет уведомления в лог. Реализация по умолчанию
// для CLI и тестовых сценариев.
type LogNotifier struct {
	Log *slog.Logger
}

// Success логирует успешный исход операции.
func (n *LogNotifier) Success(title, message string) {
	n.Log.Info(title, slog.String("detail", message))
}

// Error логирует неудачный исход операции.
func (n *LogNotifier) Error(title, message string) {
	n.Log.Warn(title, slog.String("detail", message))
}
