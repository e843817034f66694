package phoneauth

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// verificationSentMessage is returned for every verification request,
// including ones naming records that don't exist or belong to someone else,
// to avoid user enumeration.
const verificationSentMessage = "Verification Sent"

// verificationFailedMessage covers expired, tampered, state-changed and
// malformed-reference cases alike.
const verificationFailedMessage = "Verification failed"

// HandleVerificationList shows the caller's contact records with their
// verification status.
func (a *PhoneAuth) HandleVerificationList(w http.ResponseWriter, r *http.Request) {
	userId := a.LoggedInUserId(r)
	if userId == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Not authenticated"})
		return
	}

	records, err := a.Store.UserRecords(userId)
	if err != nil {
		log.Println("error listing contact records: ", err)
		writeJSON(w, http.StatusOK, map[string]any{"phone_numbers": []any{}, "email_addresses": []any{}})
		return
	}

	type item struct {
		ID       int64  `json:"id"`
		Value    string `json:"value"`
		Verified bool   `json:"verified"`
	}
	phones := []item{}
	emails := []item{}
	for _, rec := range records {
		it := item{ID: rec.ID, Value: rec.Value, Verified: rec.Verified}
		if rec.Kind == KindPhone {
			phones = append(phones, it)
		} else {
			emails = append(emails, it)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"phone_numbers":   phones,
		"email_addresses": emails,
	})
}

// HandleVerificationRequest mints a verification token for one of the
// caller's contact records and hands the link to the delivery layer. The
// response never reveals whether the named record exists.
func (a *PhoneAuth) HandleVerificationRequest(w http.ResponseWriter, r *http.Request) {
	userId := a.LoggedInUserId(r)
	if userId == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Not authenticated"})
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Error parsing form"})
		return
	}
	method := r.FormValue("method")
	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)

	var kind ContactKind
	switch method {
	case string(KindEmail):
		kind = KindEmail
	case string(KindPhone):
		kind = KindPhone
	default:
		err = fmt.Errorf("unknown method")
	}

	if err == nil {
		a.sendVerification(kind, id, userId)
	}

	// Same answer for bad ids, foreign records and successes alike.
	writeJSON(w, http.StatusOK, map[string]any{"message": verificationSentMessage})
}

func (a *PhoneAuth) sendVerification(kind ContactKind, id int64, userId string) {
	rec, err := a.Store.GetRecord(kind, id)
	if err != nil || rec.UserID != userId {
		return
	}
	if rec.Verified {
		return
	}

	token := a.Tokens.MakeRecordToken(rec)
	link := a.link(fmt.Sprintf("/user_verification_confirm/%s/%s/", EncodeReference(rec.Kind, rec.ID), token))

	if kind == KindEmail {
		err = a.Delivery.SendEmailVerification(rec.Value, link)
	} else {
		err = a.Delivery.SendPhoneVerification(rec.Value, link)
	}
	if err != nil {
		log.Println("error delivering verification link: ", err)
	}
}

// HandleVerificationConfirm validates an {idb64}/{token} pair and flips the
// record's verified flag. Decode failures, unknown records, expired windows
// and state changes all land on the same "Verification failed" answer.
func (a *PhoneAuth) HandleVerificationConfirm(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	verified := a.confirmVerification(vars["idb64"], vars["token"])

	title := verificationFailedMessage
	if verified {
		title = "Verification successful"
	}
	// Failure is a normal page, not an HTTP error.
	writeJSON(w, http.StatusOK, map[string]any{"verified": verified, "title": title})
}

func (a *PhoneAuth) confirmVerification(idb64, token string) bool {
	kind, id, err := DecodeReference(idb64)
	if err != nil {
		return false
	}
	rec, err := a.Store.GetRecord(kind, id)
	if err != nil {
		return false
	}
	if !a.Tokens.CheckRecordToken(rec, token) {
		return false
	}
	if err := a.Store.MarkVerified(kind, id); err != nil {
		log.Println("error marking record verified: ", err)
		return false
	}
	return true
}
