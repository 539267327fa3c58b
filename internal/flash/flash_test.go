package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// carry переносит cookie из ответа в следующий запрос, как это делает браузер.
func carry(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/todos/1", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(c)
	}
	return req
}

func TestCookieStoreRoundTrip(t *testing.T) {
	store := NewCookieStore(time.Minute)

	rec := httptest.NewRecorder()
	msgs := Messages{KeyMessage: "Post created.", KeyCommentError: "Content is required."}
	if err := store.Set(rec, httptest.NewRequest(http.MethodPost, "/todos", nil), msgs); err != nil {
		t.Fatalf("set: %v", err)
	}

	next := httptest.NewRecorder()
	got, err := store.Pop(next, carry(t, rec))
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if got.Get(KeyMessage) != "Post created." || got.Get(KeyCommentError) != "Content is required." {
		t.Errorf("unexpected messages: %v", got)
	}

	cleared := false
	for _, c := range next.Result().Cookies() {
		if c.Name == cookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected flash cookie to be cleared after pop")
	}
}

func TestCookieStorePopWithoutCookie(t *testing.T) {
	store := NewCookieStore(time.Minute)
	got, err := store.Pop(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no messages, got %v", got)
	}
}

func TestCookieStoreIgnoresGarbage(t *testing.T) {
	store := NewCookieStore(time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "%%%not-base64"})

	got, err := store.Pop(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no messages, got %v", got)
	}
}

func TestCookieStoreSetEmptyIsNoop(t *testing.T) {
	store := NewCookieStore(time.Minute)
	rec := httptest.NewRecorder()
	if err := store.Set(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no cookie for empty messages")
	}
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreSingleUse(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)

	rec := httptest.NewRecorder()
	if err := store.Set(rec, httptest.NewRequest(http.MethodPost, "/todos", nil), Messages{KeyMessage: "Saved."}); err != nil {
		t.Fatalf("set: %v", err)
	}

	req := carry(t, rec)
	sid := sessionID(req)
	if sid == "" {
		t.Fatal("expected session cookie")
	}
	if ttl := mr.TTL(flashKey(sid)); ttl != time.Minute {
		t.Errorf("expected ttl 1m, got %v", ttl)
	}

	got, err := store.Pop(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if got.Get(KeyMessage) != "Saved." {
		t.Errorf("unexpected messages: %v", got)
	}

	again, err := store.Pop(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("second pop: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected messages to be consumed, got %v", again)
	}
}

func TestRedisStoreReusesSession(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)

	first := httptest.NewRecorder()
	if err := store.Set(first, httptest.NewRequest(http.MethodPost, "/", nil), Messages{KeyMessage: "one"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	req := carry(t, first)

	second := httptest.NewRecorder()
	if err := store.Set(second, req, Messages{KeyMessage: "two"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if sessionID(carry(t, second)) != sessionID(req) {
		t.Error("expected the existing session id to be reused")
	}

	got, _ := store.Pop(httptest.NewRecorder(), req)
	if got.Get(KeyMessage) != "two" {
		t.Errorf("expected latest message, got %v", got)
	}
}

func TestRedisStoreExpires(t *testing.T) {
	store, mr := newRedisStore(t, time.Second)

	rec := httptest.NewRecorder()
	if err := store.Set(rec, httptest.NewRequest(http.MethodPost, "/", nil), Messages{KeyMessage: "soon gone"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(2 * time.Second)

	got, err := store.Pop(httptest.NewRecorder(), carry(t, rec))
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected expired messages to be gone, got %v", got)
	}
}

func TestRedisStoreRejectsForgedSession(t *testing.T) {
	store, _ := newRedisStore(t, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "../../etc"})

	got, err := store.Pop(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected nothing for forged id, got %v", got)
	}
}

func TestSecureFlagOnCookies(t *testing.T) {
	cookieStore := NewCookieStore(time.Minute)
	cookieStore.Secure = true
	redisStore, _ := newRedisStore(t, time.Minute)
	redisStore.Secure = true

	for name, store := range map[string]Store{"cookie": cookieStore, "redis": redisStore} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := store.Set(rec, httptest.NewRequest(http.MethodPost, "/todos", nil), Messages{KeyMessage: "Saved."}); err != nil {
				t.Fatalf("set: %v", err)
			}
			next := httptest.NewRecorder()
			if _, err := store.Pop(next, carry(t, rec)); err != nil {
				t.Fatalf("pop: %v", err)
			}

			cookies := append(rec.Result().Cookies(), next.Result().Cookies()...)
			if len(cookies) == 0 {
				t.Fatal("expected cookies")
			}
			for _, c := range cookies {
				if !c.Secure {
					t.Errorf("cookie %s (max-age %d) is not Secure", c.Name, c.MaxAge)
				}
			}
		})
	}
}
