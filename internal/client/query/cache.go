// Package query реализует клиентский кеш запросов с дедупликацией.
//
// Каждая запись кеша проходит состояния empty → fetching → fresh
// (или error, из которого возможен повторный запрос). Инвалидация
// переводит запись в stale: данные остаются читаемыми, но следующий
// Fetch уходит в сеть. На один ключ в любой момент существует не более
// одного сетевого вызова: конкурентные вызовы Fetch разделяют его
// результат. Простаивающие записи выгружаются из памяти по таймеру.
package query

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
)

// Options задаёт политику кеша.
type Options struct {
	GCTime     time.Duration // Окно простоя до выгрузки записи; <=0 — без выгрузки
	Retries    int           // Число повторов неудачного чтения
	RetryDelay time.Duration // Пауза перед повтором
}

// DefaultOptions — политика по умолчанию: записи не устаревают сами,
// один повтор чтения через секунду, выгрузка простаивающих записей
// через 30 минут.
func DefaultOptions() Options {
	return Options{
		GCTime:     30 * time.Minute,
		Retries:    1,
		RetryDelay: time.Second,
	}
}

// FetchFunc выполняет сетевое чтение для записи кеша.
type FetchFunc func(ctx context.Context) (any, error)

// Key собирает ключ кеша из упорядоченных сегментов.
func Key(segments ...string) string {
	return strings.Join(segments, "/")
}

type state int

const (
	stateEmpty state = iota
	stateFetching
	stateFresh
	stateError
	stateStale
)

// call — один сетевой вызов, разделяемый всеми ожидающими.
type call struct {
	done   chan struct{}
	cancel context.CancelFunc
	data   any
	err    error
}

type entry struct {
	state       state
	data        any
	hasData     bool
	err         error
	alwaysStale bool
	inflight    *call
	gcTimer     *time.Timer
}

// Cache — кеш результатов запросов, привязанный к одной сессии клиента.
// Создаётся явно и передаётся зависимостям; глобального состояния нет.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	log     *slog.Logger
	opts    Options
}

// New создаёт кеш с заданной политикой.
func New(log *slog.Logger, opts Options) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		log:     log,
		opts:    opts,
	}
}

// QueryOption настраивает поведение конкретного ключа.
type QueryOption func(*entry)

// WithAlwaysStale помечает ключ немедленно устаревающим: каждый Fetch
// уходит в сеть. Используется для админского списка постов, который
// обязан отражать последнюю мутацию.
func WithAlwaysStale() QueryOption {
	return func(e *entry) { e.alwaysStale = true }
}

// Fetch возвращает значение по ключу: из кеша, если запись свежая,
// иначе — выполняя fn. Конкурентные вызовы по одному ключу разделяют
// один сетевой вызов и его результат. Неудачное чтение повторяется
// согласно политике Retries/RetryDelay.
func (c *Cache) Fetch(ctx context.Context, key string, fn FetchFunc, opts ...QueryOption) (any, error) {
	c.mu.Lock()
	e := c.ensure(key)
	for _, opt := range opts {
		opt(e)
	}

	if e.state == stateFresh && !e.alwaysStale {
		data := e.data
		c.touch(key, e)
		c.mu.Unlock()
		return data, nil
	}

	if cl := e.inflight; cl != nil {
		c.mu.Unlock()
		return c.wait(ctx, cl)
	}

	fctx, cancel := context.WithCancel(context.Background())
	cl := &call{done: make(chan struct{}), cancel: cancel}
	e.inflight = cl
	e.state = stateFetching
	c.mu.Unlock()

	// Сетевой вызов живёт своей жизнью: отмена контекста одного из
	// ожидающих не прерывает чтение для остальных.
	go c.runFetch(fctx, key, cl, fn)

	return c.wait(ctx, cl)
}

// wait блокирует вызывающий код до завершения разделяемого вызова
// или отмены его собственного контекста.
func (c *Cache) wait(ctx context.Context, cl *call) (any, error) {
	select {
	case <-cl.done:
		return cl.data, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runFetch выполняет чтение с ограниченным числом повторов и публикует
// результат в запись кеша и всем ожидающим.
func (c *Cache) runFetch(ctx context.Context, key string, cl *call, fn FetchFunc) {
	data, err := fn(ctx)
	for attempt := 0; err != nil && attempt < c.opts.Retries && ctx.Err() == nil; attempt++ {
		select {
		case <-time.After(c.opts.RetryDelay):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		c.log.Debug("retrying query", slog.String("key", key), sl.Err(err))
		data, err = fn(ctx)
	}

	c.mu.Lock()
	e := c.entries[key]
	if e != nil && e.inflight == cl {
		e.inflight = nil
		switch {
		case ctx.Err() != nil:
			// Отменённое чтение не перезаписывает данные: запись
			// возвращается к прежнему содержимому (например,
			// оптимистичной правке).
			if e.hasData {
				e.state = stateFresh
			} else {
				e.state = stateEmpty
			}
		case err != nil:
			e.state = stateError
			e.err = err
		default:
			e.state = stateFresh
			e.data = data
			e.hasData = true
			e.err = nil
		}
		c.touch(key, e)
	}
	c.mu.Unlock()

	if ctx.Err() != nil {
		cl.err = context.Canceled
	} else {
		cl.data, cl.err = data, err
	}
	close(cl.done)
}

// Get возвращает последнее известное значение по ключу, включая
// устаревшие записи. Используется для снимков перед оптимистичной правкой.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key]
	if !exists || !e.hasData {
		return nil, false
	}
	c.touch(key, e)
	return e.data, true
}

// Set записывает значение по ключу, помечая запись свежей.
// Используется для оптимистичных правок и восстановления снимков.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.ensure(key)
	e.data = value
	e.hasData = true
	e.err = nil
	e.state = stateFresh
	c.touch(key, e)
}

// Remove удаляет запись целиком.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop(key)
}

// Invalidate помечает ключи устаревшими: данные остаются читаемыми,
// следующий Fetch уйдёт в сеть.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if e, exists := c.entries[key]; exists {
			c.markStale(e)
		}
	}
}

// InvalidatePrefix помечает устаревшими ключ prefix и все производные
// от него ключи (prefix/...). Так сходятся представления одного
// семейства ресурсов: админский и публичный списки постов.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			c.markStale(e)
		}
	}
}

// CancelPrefix отменяет сетевые вызовы по ключу prefix и производным
// ключам. Вызывается перед оптимистичной правкой, чтобы догоняющее
// чтение не затёрло её устаревшим результатом.
func (c *Cache) CancelPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if key != prefix && !strings.HasPrefix(key, prefix+"/") {
			continue
		}
		if e.inflight != nil {
			e.inflight.cancel()
		}
	}
}

// IsStale сообщает, помечен ли ключ устаревшим.
func (c *Cache) IsStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[key]
	return exists && (e.state == stateStale || e.alwaysStale)
}

// Clear сбрасывает кеш целиком, отменяя сетевые вызовы.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		c.drop(key)
	}
}

// ensure возвращает запись по ключу, создавая пустую при отсутствии.
// Вызывается под мьютексом.
func (c *Cache) ensure(key string) *entry {
	e, exists := c.entries[key]
	if !exists {
		e = &entry{state: stateEmpty}
		c.entries[key] = e
	}
	return e
}

// markStale переводит запись в stale. Вызывается под мьютексом.
func (c *Cache) markStale(e *entry) {
	if e.hasData {
		e.state = stateStale
	} else if e.state != stateFetching {
		e.state = stateEmpty
	}
}

// touch перезапускает таймер выгрузки записи. Вызывается под мьютексом.
func (c *Cache) touch(key string, e *entry) {
	if c.opts.GCTime <= 0 {
		return
	}
	if e.gcTimer != nil {
		e.gcTimer.Stop()
	}
	e.gcTimer = time.AfterFunc(c.opts.GCTime, func() {
		c.evict(key)
	})
}

// evict удаляет простаивающую запись, если по ней нет сетевого вызова.
func (c *Cache) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, exists := c.entries[key]; exists && e.inflight == nil {
		c.drop(key)
	}
}

// drop удаляет запись и останавливает её ресурсы. Вызывается под мьютексом.
func (c *Cache) drop(key string) {
	e, exists := c.entries[key]
	if !exists {
		return
	}
	if e.inflight != nil {
		e.inflight.cancel()
	}
	if e.gcTimer != nil {
		e.gcTimer.Stop()
	}
	delete(c.entries, key)
}
