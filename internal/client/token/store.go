// Package token реализует хранилище учётных данных API-клиента.
//
// Access-токен живёт только в памяти процесса: его область действия —
// текущая сессия, за пределы которой он не сохраняется. Refresh-токен
// хранится долговременно в JSON-файле состояния и переживает перезапуск.
// Хранилище не делает сетевых вызовов и не трогает кеш запросов.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
)

// stateFile описывает формат файла долговременного состояния.
type stateFile struct {
	RefreshToken string `json:"refresh_token"`
}

// Store хранит пару токенов в двух областях: сессионной и долговременной.
// Безопасен для конкурентного использования.
type Store struct {
	mu        sync.Mutex
	log       *slog.Logger
	statePath string // Путь к файлу состояния; пустая строка — без долговременного хранения
	access    string
	refresh   string
}

// New создаёт Store и читает refresh-токен из файла состояния, если он есть.
// Ошибки чтения логируются и не считаются фатальными: клиент просто
// начинает без refresh-токена.
func New(statePath string, log *slog.Logger) *Store {
	s := &Store{
		log:       log,
		statePath: statePath,
	}
	if statePath == "" {
		return s
	}
	data, err := os.ReadFile(statePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("failed to read token state file", sl.Err(err))
		}
		return s
	}
	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn("failed to parse token state file", sl.Err(err))
		return s
	}
	s.refresh = state.RefreshToken
	return s
}

// AccessToken возвращает текущий access-токен и признак его наличия.
func (s *Store) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.access != ""
}

// RefreshToken возвращает текущий refresh-токен и признак его наличия.
func (s *Store) RefreshToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh, s.refresh != ""
}

// Store записывает access-токен в сессионную область. Если refresh
// не пуст, он записывается в долговременную область; пустой refresh
// оставляет долговременную область без изменений.
func (s *Store) Store(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = access
	if refresh == "" {
		return
	}
	s.refresh = refresh
	s.persist()
	s.log.Debug("tokens stored", slog.Bool("has_refresh_token", true))
}

// Clear удаляет оба токена из их областей, включая файл состояния.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = ""
	s.refresh = ""
	if s.statePath != "" {
		if err := os.Remove(s.statePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("failed to remove token state file", sl.Err(err))
		}
	}
	s.log.Debug("tokens cleared")
}

// persist сохраняет refresh-токен в файл состояния. Вызывается под мьютексом.
func (s *Store) persist() {
	if s.statePath == "" {
		return
	}
	const op = "token.persist"
	data, err := json.Marshal(stateFile{RefreshToken: s.refresh})
	if err != nil {
		s.log.Warn("failed to marshal token state", sl.Err(fmt.Errorf("%s: %w", op, err)))
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.statePath), 0o700); err != nil {
		s.log.Warn("failed to create token state dir", sl.Err(fmt.Errorf("%s: %w", op, err)))
		return
	}
	if err := os.WriteFile(s.statePath, data, 0o600); err != nil {
		s.log.Warn("failed to write token state file", sl.Err(fmt.Errorf("%s: %w", op, err)))
	}
}
