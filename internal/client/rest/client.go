// Package rest реализует типизированный клиент REST API сайта подписок.
//
// Client оборачивает net/http: подставляет bearer-токен из хранилища,
// прозрачно обновляет его по refresh-токену при 401 с одним повтором
// исходного запроса, различает транспортные и HTTP-ошибки и приводит
// ответы бэкенда к каноническим типам на границе системы.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-site/internal/client/token"
	"github.com/magabrotheeeer/subscription-site/internal/lib/sl"
)

// Config задаёт параметры клиента.
// BaseURL включает версионный префикс API (например http://localhost:8080/api/v1).
// Пустой BaseURL означает относительные пути: запрос уходит по path как есть,
// что позволяет работать за same-origin прокси или с кастомным транспортом.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client — HTTP-клиент API с автоматической авторизацией.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        *token.Store
	log           *slog.Logger
	onAuthFailure func()
}

// Option настраивает Client при создании.
type Option func(*Client)

// WithHTTPClient подменяет нижележащий http.Client (для тестов и прокси).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAuthFailureHandler задаёт обработчик невосстановимого отказа
// авторизации — аналог редиректа на страницу входа.
func WithAuthFailureHandler(fn func()) Option {
	return func(c *Client) { c.onAuthFailure = fn }
}

// NewClient создаёт клиент API поверх переданного хранилища токенов.
func NewClient(cfg Config, tokens *token.Store, log *slog.Logger, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		tokens:        tokens,
		log:           log,
		onAuthFailure: func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// endpoint собирает полный URL запроса из базового адреса и пути.
func (c *Client) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// do выполняет запрос с подстановкой bearer-токена и обработкой 401.
//
// Алгоритм: если access-токен есть — он прикладывается к запросу.
// Ответ 401 с приложенным токеном вызывает ровно одну попытку refresh
// и ровно один повтор исходного запроса; повторный 401 возвращается
// как есть. 401 без приложенного токена refresh не запускает.
// Ответивший сервер (любой статус) возвращается вызывающему коду,
// транспортный сбой превращается в NetworkError.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	url := c.endpoint(path)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("rest.do: marshal body: %w", err)
		}
	}

	access, attached := c.tokens.AccessToken()
	c.log.Debug("request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Bool("has_token", attached),
	)

	resp, err := c.send(ctx, method, url, payload, access)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || !attached {
		return resp, nil
	}
	_ = resp.Body.Close()

	c.log.Debug("401 received, refreshing token")
	newAccess := c.refreshAccessToken(ctx)
	if newAccess == "" {
		c.tokens.Clear()
		c.onAuthFailure()
		return nil, &AuthenticationError{Reason: "token refresh failed, please log in again"}
	}

	// Ровно один повтор с новым токеном; его результат возвращается
	// как есть, даже если это снова 401.
	return c.send(ctx, method, url, payload, newAccess)
}

// send выполняет одиночный HTTP-запрос без логики повторов.
func (c *Client) send(ctx context.Context, method, url string, payload []byte, access string) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("rest.send: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("transport failure", sl.Err(err), slog.String("url", url))
		return nil, &NetworkError{Endpoint: url, Err: err}
	}
	return resp, nil
}

// refreshAccessToken обменивает refresh-токен на новый access-токен
// через выделенный неавторизованный endpoint. Возвращает пустую строку,
// если обмен невозможен. Сам вызов refresh не проходит через do и
// поэтому никогда не запускает повторный refresh.
func (c *Client) refreshAccessToken(ctx context.Context) string {
	refresh, ok := c.tokens.RefreshToken()
	if !ok {
		c.log.Debug("token refresh skipped: no refresh token")
		return ""
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": refresh})
	if err != nil {
		return ""
	}
	resp, err := c.send(ctx, http.MethodPost, c.endpoint("/auth/refresh"), payload, "")
	if err != nil {
		c.log.Error("token refresh failed", sl.Err(err))
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("token refresh rejected", slog.Int("status", resp.StatusCode))
		return ""
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || data.AccessToken == "" {
		c.log.Warn("token refresh: no access_token in response")
		return ""
	}

	// Обновляется только access: refresh-токен остаётся прежним.
	c.tokens.Store(data.AccessToken, "")
	c.log.Debug("token refreshed")
	return data.AccessToken
}

// decodeInto закрывает тело ответа после декодирования JSON в v.
func decodeInto(resp *http.Response, v any) error {
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("rest.decodeInto: %w", err)
	}
	return nil
}

// errorFromResponse извлекает человекочитаемое сообщение из тела ошибки
// (поле detail, затем message) с запасным текстом операции и закрывает
// тело. 5xx превращается в ServerError, остальные статусы — в ValidationError.
func errorFromResponse(resp *http.Response, fallback string) error {
	defer func() { _ = resp.Body.Close() }()

	detail := fallback
	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Detail != "" {
			detail = body.Detail
		} else if body.Message != "" {
			detail = body.Message
		}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return &ServerError{Status: resp.StatusCode, Detail: detail}
	}
	return &ValidationError{Status: resp.StatusCode, Detail: detail}
}

// ok сообщает, является ли статус успешным (2xx).
func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// drain закрывает тело ответа, содержимое которого не нужно.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// Int возвращает указатель на v: для опциональных числовых параметров.
func Int(v int) *int { return &v }

// Bool возвращает указатель на v: для опциональных булевых параметров.
func Bool(v bool) *bool { return &v }
