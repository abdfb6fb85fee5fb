package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskmaster/console/internal/infrastructure/config"
)

type failingStore struct{ MemoryStore }

func (f *failingStore) Load() (string, error) { return "", errors.New("disk gone") }

func TestSession_TokenLifecycle(t *testing.T) {
	s := New(NewMemoryStore(""), nil)
	if got := s.GetToken(); got != "" {
		t.Fatalf("empty session: got %q", got)
	}
	if err := s.SetToken("abc"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if s.Token() != "abc" {
		t.Errorf("Token: got %q", s.Token())
	}
	if err := s.RemoveToken(); err != nil {
		t.Fatalf("RemoveToken: %v", err)
	}
	if s.GetToken() != "" {
		t.Errorf("after remove: got %q", s.GetToken())
	}
	// idempotent
	if err := s.RemoveToken(); err != nil {
		t.Errorf("second RemoveToken: %v", err)
	}
}

func TestSession_LoadErrorReadsAsAbsent(t *testing.T) {
	s := New(&failingStore{}, nil)
	if got := s.GetToken(); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	fs := NewFileStore(path)

	if tok, err := fs.Load(); err != nil || tok != "" {
		t.Fatalf("missing file: %q %v", tok, err)
	}
	if err := fs.Save("tok-1"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode: got %v", info.Mode().Perm())
	}
	if tok, _ := fs.Load(); tok != "tok-1" {
		t.Errorf("Load: got %q", tok)
	}
	if err := fs.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := fs.Clear(); err != nil {
		t.Errorf("Clear on missing file: %v", err)
	}
}

func testCookieStore() *CookieStore {
	return NewCookieStore(config.SessionConfig{
		CookieName: "cni_session",
		StoreName:  "taskmaster-session",
		MaxAge:     7 * 24 * time.Hour,
		Secret:     "0123456789abcdef0123456789abcdef",
	}, nil)
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCookieStore_SaveWritesMirror(t *testing.T) {
	cs := testCookieStore()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if err := cs.Bind(rec, req).Save("tok-42"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cookies := rec.Result().Cookies()
	mirror := cookieNamed(cookies, "cni_session")
	if mirror == nil {
		t.Fatal("mirror cookie not set")
	}
	if mirror.Value != "tok-42" || mirror.Path != "/" || mirror.MaxAge != 604800 {
		t.Errorf("mirror: %+v", mirror)
	}
	if cookieNamed(cookies, "taskmaster-session") == nil {
		t.Fatal("session cookie not set")
	}

	next := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	if !cs.HasMirror(next) {
		t.Error("HasMirror should be true")
	}
	bound := cs.Bind(httptest.NewRecorder(), next)
	tok, err := bound.Load()
	if err != nil || tok != "tok-42" {
		t.Errorf("Load: %q %v", tok, err)
	}
	if bound.ID() == "" {
		t.Error("expected a session id")
	}
}

func TestCookieStore_ClearExpiresMirrorAndKeepsID(t *testing.T) {
	cs := testCookieStore()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	first := cs.Bind(rec, req)
	if err := first.Save("tok"); err != nil {
		t.Fatal(err)
	}
	id := first.ID()

	next := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	rec2 := httptest.NewRecorder()
	bound := cs.Bind(rec2, next)
	if err := bound.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	mirror := cookieNamed(rec2.Result().Cookies(), "cni_session")
	if mirror == nil || mirror.MaxAge >= 0 {
		t.Errorf("mirror should be expired: %+v", mirror)
	}

	third := httptest.NewRequest(http.MethodGet, "/login", nil)
	third.AddCookie(cookieNamed(rec2.Result().Cookies(), "taskmaster-session"))
	again := cs.Bind(httptest.NewRecorder(), third)
	if tok, _ := again.Load(); tok != "" {
		t.Errorf("token should be gone, got %q", tok)
	}
	if again.ID() != id {
		t.Errorf("session id changed: %q -> %q", id, again.ID())
	}
}

func TestCookieStore_TamperedCookieIsFresh(t *testing.T) {
	cs := testCookieStore()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "taskmaster-session", Value: "garbage"})

	tok, err := cs.Bind(httptest.NewRecorder(), req).Load()
	if err != nil || tok != "" {
		t.Errorf("got %q %v", tok, err)
	}
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "USR-003",
		"role": "EMPLOYEE",
		"exp":  exp.Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}

	info, err := Inspect(signed)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Subject != "USR-003" || info.Role != "EMPLOYEE" {
		t.Errorf("info: %+v", info)
	}
	if info.ExpiresAt == nil || !info.ExpiresAt.Equal(exp) {
		t.Errorf("expiry: %v", info.ExpiresAt)
	}
	if !info.Expired(time.Now()) {
		t.Error("token should be expired")
	}

	if _, err := Inspect("opaque-token"); err == nil {
		t.Error("expected an error for an opaque token")
	}
}
