package app

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"corkboard/internal/config"
	"corkboard/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSignUpVerifySignIn(t *testing.T) {
	app := newTestApp(t, nil)

	rr := app.postForm(t, "/api/auth/signup", url.Values{
		"username": {"avery"},
		"email":    {"avery@example.com"},
		"password": {"password123"},
	}, nil)
	expectStatus(t, rr, http.StatusCreated)
	signup := decodeMap(t, rr)
	token, _ := signup["devVerificationToken"].(string)
	if token == "" {
		t.Fatalf("expected dev verification token without SMTP, got %v", signup)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Fatalf("response leaks password fields: %s", rr.Body.String())
	}

	t.Run("duplicate username", func(t *testing.T) {
		rr := app.postForm(t, "/api/auth/signup", url.Values{
			"username": {"avery"},
			"email":    {"other@example.com"},
			"password": {"password123"},
		}, nil)
		expectStatus(t, rr, http.StatusConflict)
	})

	t.Run("sign in before verification", func(t *testing.T) {
		rr := app.postForm(t, "/api/auth/signin", url.Values{"login": {"avery"}, "password": {"password123"}}, nil)
		expectStatus(t, rr, http.StatusForbidden)
		if decodeMap(t, rr)["code"] != "EMAIL_NOT_VERIFIED" {
			t.Fatalf("unexpected body %s", rr.Body.String())
		}
	})

	expectStatus(t, app.get(t, "/api/auth/verify-email?token="+token, nil), http.StatusOK)
	expectStatus(t, app.get(t, "/api/auth/verify-email?token="+token, nil), http.StatusBadRequest)

	t.Run("wrong password", func(t *testing.T) {
		rr := app.postForm(t, "/api/auth/signin", url.Values{"login": {"avery"}, "password": {"nope-nope"}}, nil)
		expectStatus(t, rr, http.StatusUnauthorized)
	})

	rr = app.postJSON(t, "/api/auth/signin", map[string]string{"email": "avery@example.com", "password": "password123"}, nil)
	expectStatus(t, rr, http.StatusOK)
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value == "" {
		t.Fatalf("expected session cookie, got %v", rr.Result().Cookies())
	}

	rr = app.get(t, "/api/session", header{"Cookie": sessionCookie + "=" + cookie.Value})
	body := decodeMap(t, rr)
	if body["authenticated"] != true || body["username"] != "avery" {
		t.Fatalf("expected cookie session, got %v", body)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	app := newTestApp(t, nil)
	auth, _ := app.signUpAndIn(t, "blake")

	if decodeMap(t, app.get(t, "/api/session", auth))["authenticated"] != true {
		t.Fatal("expected session before sign out")
	}
	expectStatus(t, app.postForm(t, "/api/auth/signout", nil, auth), http.StatusOK)
	if decodeMap(t, app.get(t, "/api/session", auth))["authenticated"] != false {
		t.Fatal("expected token to be revoked")
	}
	expectStatus(t, app.postForm(t, "/api/auth/signout", nil, auth), http.StatusUnauthorized)
}

func TestSignUpWithoutVerification(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config, deps *Deps) {
		cfg.RequireEmailVerification = false
	})
	rr := app.postForm(t, "/api/auth/signup", url.Values{
		"username": {"casey"},
		"email":    {"casey@example.com"},
		"password": {"password123"},
	}, nil)
	expectStatus(t, rr, http.StatusCreated)
	if _, ok := decodeMap(t, rr)["devVerificationToken"]; ok {
		t.Fatal("no token expected when verification is off")
	}
	expectStatus(t, app.postForm(t, "/api/auth/signin", url.Values{"login": {"casey"}, "password": {"password123"}}, nil), http.StatusOK)
}

func TestRedisBackedSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	app := newTestApp(t, func(cfg *config.Config, deps *Deps) {
		deps.Sessions = session.NewRedisStoreWithClient(client)
	})
	auth, _ := app.signUpAndIn(t, "devon")
	if len(mr.Keys()) != 1 {
		t.Fatalf("expected one redis session key, got %v", mr.Keys())
	}
	if decodeMap(t, app.get(t, "/api/session", auth))["authenticated"] != true {
		t.Fatal("expected redis session to authenticate")
	}

	mr.FastForward(2 * testConfig().SessionTTL)
	if decodeMap(t, app.get(t, "/api/session", auth))["authenticated"] != false {
		t.Fatal("expected expired redis session to be rejected")
	}
}

func TestTamperedTokenIsAnonymous(t *testing.T) {
	app := newTestApp(t, nil)
	auth, _ := app.signUpAndIn(t, "emery")
	auth["Authorization"] += "x"
	body := decodeMap(t, app.get(t, "/api/session", auth))
	if body["authenticated"] != false {
		t.Fatalf("expected tampered token to be ignored, got %v", body)
	}
}
