package flash

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionCookieName = "todoboard_flash_sid"

// RedisStore кладёт сообщения в Redis, а в cookie — только id сессии.
// Нужен, когда перед доской стоит несколько экземпляров сервиса.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration

	// Secure ставит флаг Secure на cookie с id сессии.
	Secure bool
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("flash.NewRedisStore: redis client is nil")
	}
	return &RedisStore{redis: client, ttl: ttl}
}

func (s *RedisStore) Set(w http.ResponseWriter, r *http.Request, msgs Messages) error {
	if len(msgs) == 0 {
		return nil
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return err
	}

	sid := sessionID(r)
	if sid == "" {
		sid = uuid.NewString()
	}
	if err := s.redis.Set(r.Context(), flashKey(sid), data, s.ttl).Err(); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop забирает сообщения атомарно (GETDEL): второй Pop ничего не вернёт.
func (s *RedisStore) Pop(_ http.ResponseWriter, r *http.Request) (Messages, error) {
	sid := sessionID(r)
	if sid == "" {
		return nil, nil
	}

	data, err := s.redis.GetDel(r.Context(), flashKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs Messages
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, nil
	}
	return msgs, nil
}

// sessionID возвращает id из cookie, если это корректный UUID.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

func flashKey(sid string) string {
	return "flash:" + sid
}
