package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage is a one-time notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager keeps sessions in Redis under an opaque cookie id. Every
// load slides the expiry forward by ttl.
type SessionManager struct {
	client     redis.UniversalClient
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session is the per-request view of a stored session.
type Session struct {
	ID    string
	state sessionState
	dirty bool
}

// sessionState is the JSON document stored in Redis. Membership fields are
// written by the sign-in flow; the role stays raw text until the
// authorization layer parses it.
type sessionState struct {
	UserID  string            `json:"user_id,omitempty"`
	OrgID   int64             `json:"org_id,omitempty"`
	Role    string            `json:"role,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client redis.UniversalClient, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName, ttl: ttl, secure: secure}
}

// Load returns the session named by the request cookie. A missing cookie or
// an expired record yields a fresh session with a new id; stale cookie
// values are never reused.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil || cookie.Value == "" {
		return sm.fresh(), nil
	}

	raw, err := sm.client.GetEx(ctx, sm.key(cookie.Value), sm.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return sm.fresh(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("shared: load session: %w", err)
	}

	sess := &Session{ID: cookie.Value}
	if err := json.Unmarshal(raw, &sess.state); err != nil {
		return nil, fmt.Errorf("shared: decode session: %w", err)
	}
	return sess, nil
}

// Commit stores a modified session and refreshes the cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, _ *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.dirty {
		data, err := json.Marshal(sess.state)
		if err != nil {
			return fmt.Errorf("shared: encode session: %w", err)
		}
		if err := sm.client.Set(ctx, sm.key(sess.ID), data, sm.ttl).Err(); err != nil {
			return fmt.Errorf("shared: store session: %w", err)
		}
		sess.dirty = false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

func (sm *SessionManager) fresh() *Session {
	return &Session{ID: uuid.NewString(), dirty: true}
}

func (sm *SessionManager) key(id string) string {
	return "ledgerdesk:session:" + id
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.state.Values == nil {
		s.state.Values = make(map[string]string)
	}
	s.state.Values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.state.Values[key]
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id string) {
	s.state.UserID = id
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.state.UserID
}

// SetMembership records the active organisation and the role text issued by
// the sign-in flow.
func (s *Session) SetMembership(orgID int64, role string) {
	s.state.OrgID = orgID
	s.state.Role = role
	s.dirty = true
}

// Membership returns the active organisation and raw role text. ok is false
// when no organisation is set. The role may be blank; callers treat it like
// any other unrecognized role.
func (s *Session) Membership() (orgID int64, role string, ok bool) {
	if s.state.OrgID <= 0 {
		return 0, "", false
	}
	return s.state.OrgID, strings.TrimSpace(s.state.Role), true
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.state.Flashes = append(s.state.Flashes, msg)
	s.dirty = true
}

// PopFlash removes and returns the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.state.Flashes) == 0 {
		return nil
	}
	msg := s.state.Flashes[0]
	s.state.Flashes = s.state.Flashes[1:]
	s.dirty = true
	return &msg
}
