package phoneauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// Registration is the validated input to AccountStore.CreateAccount. Values
// are already normalized and the password already hashed by the time a store
// sees them.
type Registration struct {
	Username     string
	Phone        string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
}

// registerForm is the raw form/JSON input before validation.
type registerForm struct {
	Phone           string `json:"phone"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// HandleRegister processes user registration: field validation, password
// hashing, and the all-or-nothing account + contact-record create. Duplicate
// values caught by the storage layer come back as the same field errors a
// pre-check would produce.
func (a *PhoneAuth) HandleRegister(w http.ResponseWriter, r *http.Request) {
	form, err := a.parseRegisterForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Error parsing form"})
		return
	}

	fieldErrs := a.validateRegistration(form)
	if len(fieldErrs) > 0 {
		writeFieldErrors(w, fieldErrs)
		return
	}

	hash, err := HashPassword(form.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Registration failed"})
		return
	}

	username := form.Username
	if username == "" {
		// No username supplied and none required: generate an opaque one
		// so the account row still has a unique handle.
		username = randomUsername()
	}

	reg := &Registration{
		Username:     username,
		Phone:        NormalizePhone(form.Phone),
		Email:        NormalizeEmail(form.Email),
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: hash,
	}

	user, err := a.Store.CreateAccount(reg)
	if err != nil {
		var fe FieldErrors
		if errors.As(err, &fe) {
			writeFieldErrors(w, fe)
			return
		}
		log.Println("error creating account: ", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Registration failed"})
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user_id": user.Id()})
		return
	}
	http.Redirect(w, r, a.loginPath(), http.StatusFound)
}

func (a *PhoneAuth) validateRegistration(form *registerForm) FieldErrors {
	cfg := a.Config
	errs := FieldErrors{}

	if form.Phone == "" {
		errs.Add("phone", "Phone is required")
	} else if !IsValidPhone(form.Phone) {
		errs.Add("phone", "Enter a valid phone number")
	}

	if form.Username == "" {
		if cfg.RegisterUsernameRequired {
			errs.Add("username", "Username is required")
		}
	} else if !IsValidUsername(form.Username) {
		errs.Add("username", "Username should be 150 characters or fewer. Letters, digits and ./-/_ only")
	}

	if form.Email == "" {
		if cfg.RegisterEmailRequired {
			errs.Add("email", "Email is required")
		}
	} else if !IsValidEmail(form.Email) {
		errs.Add("email", "Enter a valid email address")
	}

	if cfg.RegisterFirstNameRequired && form.FirstName == "" {
		errs.Add("first_name", "First name is required")
	}
	if cfg.RegisterLastNameRequired && form.LastName == "" {
		errs.Add("last_name", "Last name is required")
	}

	if form.Password == "" {
		errs.Add("password", "Password is required")
	} else if len(form.Password) < cfg.MinPasswordLength {
		errs.Add("password", "Password is too short")
	}
	if cfg.RegisterConfirmPasswordRequired && form.Password != form.ConfirmPassword {
		errs.Add("confirm_password", "Password didn't match")
	}

	return errs
}

func (a *PhoneAuth) parseRegisterForm(r *http.Request) (*registerForm, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return &registerForm{
			Phone:           r.FormValue("phone"),
			Username:        r.FormValue("username"),
			Email:           r.FormValue("email"),
			FirstName:       r.FormValue("first_name"),
			LastName:        r.FormValue("last_name"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirm_password"),
		}, nil
	}

	var form registerForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		return nil, err
	}
	return &form, nil
}

// randomUsername generates an opaque unique handle for accounts registered
// without an explicit username.
func randomUsername() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func writeFieldErrors(w http.ResponseWriter, errs FieldErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": errs})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
