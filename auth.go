package phoneauth

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// PhoneAuth is the plug-in surface a host application mounts. It wires the
// resolver, authenticator and token engine to HTTP handlers, keeps login
// state in an scs session plus a signed JWT cookie, and fires delivery for
// verification/reset links.
type PhoneAuth struct {
	Config  *Config
	Store   AccountStore
	Session *scs.SessionManager
	Tokens  *TokenGenerator

	// Delivery carries verification/reset links. Defaults to ConsoleDelivery.
	Delivery Delivery

	// BaseURL prefixes generated verification/reset links.
	BaseURL string

	// PathPrefix is where the host mounted Handler(), used when building
	// links ("/accounts" by default).
	PathPrefix string

	// JwtIssuer is the iss claim on session tokens.
	JwtIssuer string

	// AuthTokenSessionVar names the session key holding the JWT.
	AuthTokenSessionVar string

	// SessionTimeoutInSeconds bounds the login cookie. Defaults to 1 day.
	SessionTimeoutInSeconds int

	resolver      *Resolver
	authenticator *Authenticator
}

// New validates cfg eagerly and builds the plug-in. An empty
// AuthenticationMethods list fails here, before any request is served.
func New(cfg *Config, store AccountStore) (*PhoneAuth, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &PhoneAuth{
		Config:   cfg,
		Store:    store,
		Session:  scs.New(),
		Delivery: &ConsoleDelivery{},
		Tokens: &TokenGenerator{
			Secret: []byte(cfg.SecretKey),
			MaxAge: cfg.TokenMaxAge,
		},
		PathPrefix:              "/accounts",
		JwtIssuer:               "PhoneAuth-Issuer",
		AuthTokenSessionVar:     "PhoneAuthToken",
		SessionTimeoutInSeconds: 86400,
	}
	a.resolver = &Resolver{Users: store, Contacts: store, Config: cfg}
	a.authenticator = &Authenticator{Resolver: a.resolver}
	return a, nil
}

// Resolver exposes the credential resolver for host-side use.
func (a *PhoneAuth) Resolver() *Resolver { return a.resolver }

// Authenticator exposes the (login, password) authenticator.
func (a *PhoneAuth) Authenticator() *Authenticator { return a.authenticator }

// Router returns the route table. Paths mirror the flows the library owns;
// everything else belongs to the host.
func (a *PhoneAuth) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/register/", a.HandleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login/", a.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout/", a.HandleLogout).Methods(http.MethodPost)
	r.HandleFunc("/password_reset/", a.HandleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/password_reset_confirm/{uidb64}/{token}/", a.HandleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/user_verification/", a.HandleVerificationList).Methods(http.MethodGet)
	r.HandleFunc("/user_verification/", a.HandleVerificationRequest).Methods(http.MethodPost)
	r.HandleFunc("/user_verification_confirm/{idb64}/{token}/", a.HandleVerificationConfirm).Methods(http.MethodGet)
	return r
}

// Handler wraps the router with session load/save middleware. Mount it under
// PathPrefix:
//
//	http.Handle("/accounts/", http.StripPrefix("/accounts", auth.Handler()))
func (a *PhoneAuth) Handler() http.Handler {
	return a.Session.LoadAndSave(a.Router())
}

// HandleLogin authenticates a (login, password) pair and establishes the
// session. Every failure is answered with the same "Invalid Credentials"
// message regardless of cause.
func (a *PhoneAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	login, password, err := a.parseLoginForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": err.Error(), "code": ErrCodeMissingField, "field": "login",
		})
		return
	}

	user, err := a.authenticator.Authenticate(login, password)
	if err != nil || user == nil {
		if err == ErrNoAuthMethods {
			// Configuration error, not a login failure; do not mask it.
			log.Println("login rejected: ", err)
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Invalid Credentials", "code": ErrCodeInvalidCreds, "field": "login",
		})
		return
	}

	a.setLoggedInUser(user, w, r)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": user.Id()})
		return
	}
	http.Redirect(w, r, a.Config.LoginRedirectURL, http.StatusFound)
}

// HandleLogout clears the session and redirects to LogoutRedirectURL.
func (a *PhoneAuth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a.setLoggedInUser(nil, w, r)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	http.Redirect(w, r, a.Config.LogoutRedirectURL, http.StatusFound)
}

func (a *PhoneAuth) parseLoginForm(r *http.Request) (login, password string, err error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err = r.ParseForm(); err != nil {
			return "", "", fmt.Errorf("error parsing form")
		}
		login = r.FormValue("login")
		password = r.FormValue("password")
	} else {
		var data map[string]any
		if err = json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", "", fmt.Errorf("invalid post body")
		}
		if l, ok := data["login"].(string); ok {
			login = l
		}
		if p, ok := data["password"].(string); ok {
			password = p
		}
	}

	if login == "" || password == "" {
		return "", "", fmt.Errorf("login and password required")
	}
	return login, password, nil
}

// setLoggedInUser stores the logged-in user id and a signed JWT in the
// session and mirrors the JWT into a cookie. Passing nil logs the user out.
func (a *PhoneAuth) setLoggedInUser(user User, w http.ResponseWriter, r *http.Request) {
	if user == nil {
		a.Session.Remove(r.Context(), "loggedInUserId")
		a.Session.Remove(r.Context(), a.AuthTokenSessionVar)
		http.SetCookie(w, &http.Cookie{
			Name: a.AuthTokenSessionVar, Value: "", Path: "/",
			MaxAge: -1, Expires: time.Now(),
		})
		return
	}

	a.Session.Put(r.Context(), "loggedInUserId", user.Id())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.Id(),
		"iss": a.JwtIssuer,
		"exp": time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)).Unix(),
		"iat": time.Now().Unix(),
	})
	tokenString, err := token.SignedString([]byte(a.Config.SecretKey))
	if err != nil {
		slog.Info("error signing session token", "err", err)
		return
	}

	a.Session.Put(r.Context(), a.AuthTokenSessionVar, tokenString)
	http.SetCookie(w, &http.Cookie{
		Name:    a.AuthTokenSessionVar,
		Value:   tokenString,
		Path:    "/",
		Expires: time.Now().Add(time.Second * time.Duration(a.SessionTimeoutInSeconds)),
		MaxAge:  a.SessionTimeoutInSeconds,
	})
}

// verifyJWT parses a session token and returns the subject user id.
func (a *PhoneAuth) verifyJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(a.Config.SecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}

func (a *PhoneAuth) loginPath() string {
	return a.PathPrefix + "/login/"
}

// link builds an absolute URL for a path under the mount point.
func (a *PhoneAuth) link(path string) string {
	return a.BaseURL + a.PathPrefix + path
}
