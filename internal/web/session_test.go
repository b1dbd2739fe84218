package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-skip-tracker/internal/api"
)

func TestSessionStore_CreateAndGet(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	session, err := store.Create(ctx, &oauth2.Token{AccessToken: "a"}, "u1", "User")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}

	got := store.Get(ctx, session.ID)
	if got == nil || got.UserID != "u1" || got.UserName != "User" {
		t.Fatalf("Get() = %+v", got)
	}

	if store.Get(ctx, "unknown") != nil {
		t.Error("Get(unknown) != nil")
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	store := NewSessionStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	session, err := store.Create(context.Background(), &oauth2.Token{AccessToken: "a"}, "u1", "User")
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(sessionTTL - time.Minute)
	if store.Get(context.Background(), session.ID) == nil {
		t.Fatal("session expired early")
	}

	now = now.Add(2 * time.Minute)
	if store.Get(context.Background(), session.ID) != nil {
		t.Error("expired session returned")
	}
}

func TestSessionStore_UpdateToken(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	session, err := store.Create(ctx, &oauth2.Token{AccessToken: "old"}, "u1", "User")
	if err != nil {
		t.Fatal(err)
	}

	store.UpdateToken(ctx, session.ID, &oauth2.Token{AccessToken: "new"})

	if got := store.Get(ctx, session.ID).Token.AccessToken; got != "new" {
		t.Errorf("AccessToken = %q, want new", got)
	}
}

func TestSessionStore_Cookies(t *testing.T) {
	store := NewSessionStore()
	session, err := store.Create(context.Background(), &oauth2.Token{}, "u1", "User")
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	store.SetCookie(rec, session)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != api.SessionCookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	if got := store.GetFromRequest(req); got == nil || got.ID != session.ID {
		t.Errorf("GetFromRequest() = %+v", got)
	}

	rec = httptest.NewRecorder()
	store.ClearCookie(rec)
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("ClearCookie() cookies = %+v", c)
	}
}

func TestSessionContext(t *testing.T) {
	if sessionFromContext(context.Background()) != nil {
		t.Error("empty context returned a session")
	}

	s := &Session{ID: "x"}
	if got := sessionFromContext(contextWithSession(context.Background(), s)); got != s {
		t.Errorf("sessionFromContext() = %v, want %v", got, s)
	}
}
