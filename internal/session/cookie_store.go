package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/taskmaster/console/internal/infrastructure/config"
	"github.com/taskmaster/console/internal/infrastructure/logger"
)

const (
	tokenKey = "token"
	idKey    = "sid"
)

// CookieStore issues per-request stores backed by a signed and encrypted
// session cookie. The mirror cookie carries the token under the configured
// name so the route guard can tell signed-in browsers apart without
// decoding the session.
type CookieStore struct {
	store      *sessions.CookieStore
	name       string
	mirrorName string
	maxAge     time.Duration
	secure     bool
	domain     string
	logger     *logger.Logger
}

// NewCookieStore builds the store from the session config. An empty secret
// gets a random key, so sessions do not survive a restart.
func NewCookieStore(cfg config.SessionConfig, log *logger.Logger) *CookieStore {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithComponent("session")

	hashKey := []byte(cfg.Secret)
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		log.Warnw("Session secret is empty; using an ephemeral key")
	} else if len(hashKey) < 32 {
		log.Warnw("Session secret is short; 32+ chars recommended", "length", len(hashKey))
	}
	blockKey := sha256.Sum256(hashKey)

	store := sessions.NewCookieStore(hashKey, blockKey[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &CookieStore{
		store:      store,
		name:       cfg.StoreName,
		mirrorName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     cfg.Secure,
		domain:     cfg.Domain,
		logger:     log,
	}
}

// MirrorName is the cookie the route guard checks.
func (c *CookieStore) MirrorName() string {
	return c.mirrorName
}

// HasMirror reports whether the request carries a non-empty mirror cookie.
func (c *CookieStore) HasMirror(r *http.Request) bool {
	ck, err := r.Cookie(c.mirrorName)
	return err == nil && ck.Value != ""
}

// Bind returns the Store for one request/response pair.
func (c *CookieStore) Bind(w http.ResponseWriter, r *http.Request) *RequestStore {
	return &RequestStore{parent: c, w: w, r: r}
}

// RequestStore is a Store scoped to one HTTP exchange.
type RequestStore struct {
	parent *CookieStore
	w      http.ResponseWriter
	r      *http.Request
	sess   *sessions.Session
}

func (s *RequestStore) session() *sessions.Session {
	if s.sess != nil {
		return s.sess
	}
	sess, err := s.parent.store.Get(s.r, s.parent.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			s.parent.logger.Warnw("Session cookie invalid, using fresh session", "error", err)
		} else {
			s.parent.logger.Errorw("Session store error, using fresh session", "error", err)
		}
	}
	s.sess = sess
	return sess
}

// ID returns the stable per-browser id, minting one on first use.
func (s *RequestStore) ID() string {
	sess := s.session()
	if id, ok := sess.Values[idKey].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	sess.Values[idKey] = id
	if err := sess.Save(s.r, s.w); err != nil {
		s.parent.logger.Warnw("Failed to persist session id", "error", err)
	}
	return id
}

func (s *RequestStore) Load() (string, error) {
	token, _ := s.session().Values[tokenKey].(string)
	return token, nil
}

func (s *RequestStore) Save(token string) error {
	sess := s.session()
	sess.Values[tokenKey] = token
	if _, ok := sess.Values[idKey].(string); !ok {
		sess.Values[idKey] = uuid.NewString()
	}
	if err := sess.Save(s.r, s.w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.setMirror(token, int(s.parent.maxAge.Seconds()))
	return nil
}

// Clear drops the token but keeps the session id so the browser's cache
// slot survives a re-login.
func (s *RequestStore) Clear() error {
	sess := s.session()
	delete(sess.Values, tokenKey)
	err := sess.Save(s.r, s.w)
	s.setMirror("", -1)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RequestStore) setMirror(value string, maxAge int) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.parent.mirrorName,
		Value:    value,
		Path:     "/",
		Domain:   s.parent.domain,
		MaxAge:   maxAge,
		Secure:   s.parent.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
