package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager reads cookie based sessions from Redis. Sessions are issued
// by the host's login flow; this service only resolves and refreshes them.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data.
type Session struct {
	ID     string
	values map[string]string
	userID string
	dirty  bool
	stored bool
}

type sessionPayload struct {
	Values map[string]string `json:"values"`
	UserID string            `json:"user_id"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load returns the session referenced by the request cookie. Requests without
// a cookie, or with an unknown one, get an anonymous session.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return &Session{}, nil
		}
		return nil, err
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return &Session{}, nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Session{}, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	return &Session{ID: cookie.Value, values: stored.Values, userID: stored.UserID, stored: true}, nil
}

// Create persists a new authenticated session and returns its id.
func (sm *SessionManager) Create(ctx context.Context, userID string) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), userID: userID, dirty: true}
	if err := sm.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Touch slides the expiry of a stored session and persists pending changes.
func (sm *SessionManager) Touch(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return nil
	}
	if sess.dirty {
		if err := sm.save(ctx, sess); err != nil {
			return err
		}
	} else if err := sm.client.Expire(ctx, sm.redisKey(sess.ID), sm.ttl).Err(); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID})
	if err != nil {
		return err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
		return err
	}
	sess.dirty = false
	sess.stored = true
	return nil
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// UserID parses the session user as a host user id.
func (s *Session) UserID() (int64, bool) {
	if s == nil {
		return 0, false
	}
	raw := strings.TrimSpace(s.userID)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
