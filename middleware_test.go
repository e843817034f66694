package phoneauth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pa "github.com/phoneauth/phoneauth"
	"github.com/phoneauth/phoneauth/stores"
)

func newGuardedAuth(t *testing.T) (*pa.PhoneAuth, *stores.FSStore) {
	t.Helper()
	cfg := pa.DefaultConfig()
	cfg.SecretKey = "test-secret-key"
	store := stores.NewFSStore(t.TempDir())
	auth, err := pa.New(cfg, store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return auth, store
}

// sessionToken mints the same JWT the login handler would issue.
func sessionToken(t *testing.T, auth *pa.PhoneAuth, userId string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userId,
		"iss": auth.JwtIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(auth.Config.SecretKey))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// serveGuarded runs a request through a guard-wrapped handler with the
// session middleware loaded, and reports the response.
func serveGuarded(auth *pa.PhoneAuth, guard pa.Guard, req *http.Request) *httptest.ResponseRecorder {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	auth.Session.LoadAndSave(auth.Require(guard, ok)).ServeHTTP(rec, req)
	return rec
}

func TestLoginRequired(t *testing.T) {
	auth, _ := newGuardedAuth(t)

	// Anonymous browser request is redirected to the login page.
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	rec := serveGuarded(auth, auth.LoginRequired(), req)
	if rec.Code != http.StatusFound {
		t.Fatalf("anonymous status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/accounts/login/" {
		t.Errorf("redirect = %q", loc)
	}

	// Anonymous JSON request gets a 403 instead.
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Accept", "application/json")
	rec = serveGuarded(auth, auth.LoginRequired(), req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous JSON status = %d, want 403", rec.Code)
	}

	// A bearer token is enough.
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, auth, "u1"))
	rec = serveGuarded(auth, auth.LoginRequired(), req)
	if rec.Code != http.StatusOK {
		t.Errorf("bearer status = %d, want 200", rec.Code)
	}

	// A forged token is not.
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = serveGuarded(auth, auth.LoginRequired(), req)
	if rec.Code != http.StatusFound {
		t.Errorf("forged token status = %d, want 302", rec.Code)
	}
}

func TestAnonymousRequired(t *testing.T) {
	auth, _ := newGuardedAuth(t)

	req := httptest.NewRequest(http.MethodGet, "/login-page", nil)
	rec := serveGuarded(auth, auth.AnonymousRequired(), req)
	if rec.Code != http.StatusOK {
		t.Errorf("anonymous status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/login-page", nil)
	req.AddCookie(&http.Cookie{Name: auth.AuthTokenSessionVar, Value: sessionToken(t, auth, "u1")})
	rec = serveGuarded(auth, auth.AnonymousRequired(), req)
	if rec.Code != http.StatusFound {
		t.Fatalf("logged-in status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != auth.Config.LoginRedirectURL {
		t.Errorf("redirect = %q", loc)
	}
}

func TestVerifiedContactGuards(t *testing.T) {
	auth, store := newGuardedAuth(t)

	hash, _ := pa.HashPassword("s3cretpass")
	user, err := store.CreateAccount(&pa.Registration{
		Username:     "frank",
		Phone:        "+15551230020",
		Email:        "frank@example.com",
		PasswordHash: hash,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	token := sessionToken(t, auth, user.Id())

	authedReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	// Nothing verified yet: both guards deny toward the verification page.
	rec := serveGuarded(auth, auth.VerifiedEmailRequired(), authedReq())
	if rec.Code != http.StatusFound {
		t.Fatalf("unverified email status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/accounts/user_verification/" {
		t.Errorf("redirect = %q", loc)
	}

	// Verify the email record; the email guard opens, the phone guard stays
	// shut.
	records, _ := store.UserRecords(user.Id())
	for _, r := range records {
		if r.Kind == pa.KindEmail {
			if err := store.MarkVerified(r.Kind, r.ID); err != nil {
				t.Fatalf("MarkVerified: %v", err)
			}
		}
	}

	rec = serveGuarded(auth, auth.VerifiedEmailRequired(), authedReq())
	if rec.Code != http.StatusOK {
		t.Errorf("verified email status = %d, want 200", rec.Code)
	}
	rec = serveGuarded(auth, auth.VerifiedPhoneRequired(), authedReq())
	if rec.Code != http.StatusFound {
		t.Errorf("unverified phone status = %d, want 302", rec.Code)
	}

	// Anonymous callers go to login, not to the verification page.
	rec = serveGuarded(auth, auth.VerifiedEmailRequired(), httptest.NewRequest(http.MethodGet, "/private", nil))
	if loc := rec.Header().Get("Location"); loc != "/accounts/login/" {
		t.Errorf("anonymous redirect = %q", loc)
	}
}
