package phoneauth

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

const resetSentMessage = "If that account exists, a reset link has been sent"

// HandleForgotPassword accepts a phone number or email address, and if it
// belongs to an account, delivers a one-time reset link over the matching
// channel. The response is the same whether or not the account exists.
//
// Only phone and email are tried here - a username is not a reset channel.
func (a *PhoneAuth) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Error parsing form"})
		return
	}
	login := r.FormValue("login")
	if login == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Login is required", "code": ErrCodeMissingField, "field": "login",
		})
		return
	}

	a.sendResetLink(login)
	writeJSON(w, http.StatusOK, map[string]any{"message": resetSentMessage})
}

func (a *PhoneAuth) sendResetLink(login string) {
	var kind ContactKind
	var value string
	switch {
	case IsValidPhone(login):
		kind, value = KindPhone, NormalizePhone(login)
	case IsValidEmail(login):
		kind, value = KindEmail, NormalizeEmail(login)
	default:
		return
	}

	rec, err := a.Store.GetByValue(kind, value)
	if err != nil {
		return
	}
	user, err := a.Store.GetUserById(rec.UserID)
	if err != nil {
		return
	}

	token := a.Tokens.MakeResetToken(user)
	link := a.link(fmt.Sprintf("/password_reset_confirm/%s/%s/", EncodeUserRef(user.Id()), token))

	if kind == KindPhone {
		err = a.Delivery.SendPhonePasswordReset(rec.Value, link)
	} else {
		err = a.Delivery.SendEmailPasswordReset(rec.Value, link)
	}
	if err != nil {
		log.Println("error delivering reset link: ", err)
	}
}

// HandleResetPassword validates a {uidb64}/{token} reset link and sets the
// new password. The token is bound to the current password hash, so it can
// be used exactly once: the update it performs invalidates it.
func (a *PhoneAuth) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Error parsing form"})
		return
	}
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	user, ok := a.resetLinkUser(vars["uidb64"], vars["token"])
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid or expired link"})
		return
	}

	errs := FieldErrors{}
	if password == "" {
		errs.Add("password", "Password is required")
	} else if len(password) < a.Config.MinPasswordLength {
		errs.Add("password", "Password is too short")
	}
	if a.Config.RegisterConfirmPasswordRequired && password != confirm {
		errs.Add("confirm_password", "Password didn't match")
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	hash, err := HashPassword(password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Password reset failed"})
		return
	}
	if err := a.Store.UpdatePassword(user.Id(), hash); err != nil {
		log.Println("error updating password: ", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Password reset failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *PhoneAuth) resetLinkUser(uidb64, token string) (User, bool) {
	userId, err := DecodeUserRef(uidb64)
	if err != nil {
		return nil, false
	}
	user, err := a.Store.GetUserById(userId)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			log.Println("error loading user for reset: ", err)
		}
		return nil, false
	}
	if !a.Tokens.CheckResetToken(user, token) {
		return nil, false
	}
	return user, true
}
