// Package flash хранит одноразовые сообщения между редиректом и следующей
// отрисованной страницей.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Ключи сообщений, которые понимают шаблоны.
const (
	KeyMessage      = "message"
	KeyCommentError = "commentError"
)

// Messages — сообщения одной пары "редирект → страница".
type Messages map[string]string

func (m Messages) Get(key string) string { return m[key] }

// Store сохраняет сообщения в ответе и забирает их (один раз) из запроса.
type Store interface {
	Set(w http.ResponseWriter, r *http.Request, msgs Messages) error
	Pop(w http.ResponseWriter, r *http.Request) (Messages, error)
}

const cookieName = "todoboard_flash"

// CookieStore держит сообщения прямо в cookie (base64url JSON).
type CookieStore struct {
	MaxAge time.Duration
	Secure bool
}

func NewCookieStore(maxAge time.Duration) *CookieStore {
	return &CookieStore{MaxAge: maxAge}
}

func (s *CookieStore) Set(w http.ResponseWriter, _ *http.Request, msgs Messages) error {
	if len(msgs) == 0 {
		return nil
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   int(s.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop читает сообщения и сразу стирает cookie. Испорченная cookie
// просто стирается: показывать пользователю там нечего.
func (s *CookieStore) Pop(w http.ResponseWriter, r *http.Request) (Messages, error) {
	c, err := r.Cookie(cookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	clearCookie(w, cookieName, s.Secure)

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil, nil
	}
	var msgs Messages
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, nil
	}
	return msgs, nil
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
