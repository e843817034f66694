package phoneauth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	pa "github.com/phoneauth/phoneauth"
	"github.com/phoneauth/phoneauth/stores"
)

// captureDelivery records the links the library tries to send.
type captureDelivery struct {
	emailVerifyLink string
	phoneVerifyLink string
	emailResetLink  string
	phoneResetLink  string
	sends           int
}

func (c *captureDelivery) SendEmailVerification(to, link string) error {
	c.emailVerifyLink = link
	c.sends++
	return nil
}

func (c *captureDelivery) SendPhoneVerification(to, link string) error {
	c.phoneVerifyLink = link
	c.sends++
	return nil
}

func (c *captureDelivery) SendEmailPasswordReset(to, link string) error {
	c.emailResetLink = link
	c.sends++
	return nil
}

func (c *captureDelivery) SendPhonePasswordReset(to, link string) error {
	c.phoneResetLink = link
	c.sends++
	return nil
}

// newTestServer mounts the full handler surface on an httptest server with a
// cookie-carrying client.
func newTestServer(t *testing.T) (*captureDelivery, *httptest.Server, *http.Client) {
	t.Helper()

	cfg := pa.DefaultConfig()
	cfg.SecretKey = "test-secret-key"

	auth, err := pa.New(cfg, stores.NewFSStore(t.TempDir()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Links resolve directly against the test server root.
	auth.PathPrefix = ""

	capture := &captureDelivery{}
	auth.Delivery = capture

	server := httptest.NewServer(auth.Handler())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return capture, server, client
}

func postJSON(t *testing.T, client *http.Client, url string, body map[string]any) (int, map[string]any) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response from %s: %v", url, err)
	}
	return resp.StatusCode, decoded
}

func getJSON(t *testing.T, client *http.Client, url string) (int, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response from %s: %v", url, err)
	}
	return resp.StatusCode, decoded
}

func registerUser(t *testing.T, client *http.Client, baseURL string) {
	t.Helper()
	status, body := postJSON(t, client, baseURL+"/register/", map[string]any{
		"phone":            "+15551234567",
		"username":         "dave",
		"email":            "dave@example.com",
		"first_name":       "Dave",
		"last_name":        "Smith",
		"password":         "s3cretpass",
		"confirm_password": "s3cretpass",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status = %d, body = %v", status, body)
	}
}

func loginUser(t *testing.T, client *http.Client, baseURL, login, password string) {
	t.Helper()
	status, body := postJSON(t, client, baseURL+"/login/", map[string]any{
		"login": login, "password": password,
	})
	if status != http.StatusOK {
		t.Fatalf("login(%q) status = %d, body = %v", login, status, body)
	}
}

func TestRegistrationValidation(t *testing.T) {
	_, server, client := newTestServer(t)

	status, body := postJSON(t, client, server.URL+"/register/", map[string]any{
		"phone":            "not-a-phone",
		"username":         "dave",
		"email":            "not-an-email",
		"password":         "short",
		"confirm_password": "different",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d", status)
	}
	errs, ok := body["errors"].(map[string]any)
	if !ok {
		t.Fatalf("no field errors in %v", body)
	}
	for _, field := range []string{"phone", "email", "first_name", "last_name", "password", "confirm_password"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("missing field error for %q, got %v", field, errs)
		}
	}
}

func TestRegistrationDuplicatePhone(t *testing.T) {
	_, server, client := newTestServer(t)
	registerUser(t, client, server.URL)

	status, body := postJSON(t, client, server.URL+"/register/", map[string]any{
		"phone":            "+1 (555) 123-4567", // same number, different formatting
		"username":         "eve",
		"email":            "eve@example.com",
		"first_name":       "Eve",
		"last_name":        "Adams",
		"password":         "s3cretpass",
		"confirm_password": "s3cretpass",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate register status = %d, body = %v", status, body)
	}
	errs, _ := body["errors"].(map[string]any)
	if _, ok := errs["phone"]; !ok {
		t.Errorf("expected a phone field error, got %v", body)
	}
}

// Wrong password and unknown account produce byte-identical answers.
func TestLoginUniformFailure(t *testing.T) {
	_, server, client := newTestServer(t)
	registerUser(t, client, server.URL)

	var bodies []map[string]any
	for _, creds := range []map[string]any{
		{"login": "dave", "password": "wrongpass"},
		{"login": "nobody", "password": "s3cretpass"},
		{"login": "+15559990000", "password": "s3cretpass"},
	} {
		status, body := postJSON(t, client, server.URL+"/login/", creds)
		if status != http.StatusBadRequest {
			t.Fatalf("status = %d for %v", status, creds)
		}
		bodies = append(bodies, body)
	}
	for _, body := range bodies {
		if body["error"] != "Invalid Credentials" {
			t.Errorf("error = %v, want Invalid Credentials", body["error"])
		}
	}
}

func TestLoginWithEachIdentifier(t *testing.T) {
	_, server, _ := newTestServer(t)

	// Register once with a throwaway client.
	jar, _ := cookiejar.New(nil)
	registerUser(t, &http.Client{Jar: jar}, server.URL)

	for _, login := range []string{"dave", "dave@example.com", "+15551234567", "+1 555 123 4567", "DAVE@example.COM"} {
		jar, _ := cookiejar.New(nil)
		client := &http.Client{Jar: jar}
		loginUser(t, client, server.URL, login, "s3cretpass")
	}
}

func TestLogout(t *testing.T) {
	_, server, client := newTestServer(t)
	registerUser(t, client, server.URL)
	loginUser(t, client, server.URL, "dave", "s3cretpass")

	status, body := postJSON(t, client, server.URL+"/logout/", map[string]any{})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("logout = %d %v", status, body)
	}

	// The session is gone, so the verification list is unauthorized again.
	status, _ = getJSON(t, client, server.URL+"/user_verification/")
	if status != http.StatusUnauthorized {
		t.Errorf("post-logout list status = %d, want 401", status)
	}
}

func TestVerificationJourney(t *testing.T) {
	capture, server, client := newTestServer(t)
	registerUser(t, client, server.URL)
	loginUser(t, client, server.URL, "dave", "s3cretpass")

	// Both records start unverified.
	status, body := getJSON(t, client, server.URL+"/user_verification/")
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	phones := body["phone_numbers"].([]any)
	if len(phones) != 1 {
		t.Fatalf("phone_numbers = %v", body)
	}
	phone := phones[0].(map[string]any)
	if phone["verified"] != false {
		t.Fatal("phone already verified")
	}
	phoneId := phone["id"].(float64)

	// Request verification; the link goes out via delivery.
	resp, err := client.PostForm(server.URL+"/user_verification/", url.Values{
		"method": {"phone"},
		"id":     {jsonNumber(phoneId)},
	})
	if err != nil {
		t.Fatalf("verification request: %v", err)
	}
	resp.Body.Close()
	if capture.phoneVerifyLink == "" {
		t.Fatal("no verification link delivered")
	}

	// Following the link flips the flag.
	status, body = getJSON(t, client, server.URL+capture.phoneVerifyLink)
	if status != http.StatusOK || body["verified"] != true {
		t.Fatalf("confirm = %d %v", status, body)
	}

	// The same link is dead now: verifying changed the state it was
	// bound to.
	_, body = getJSON(t, client, server.URL+capture.phoneVerifyLink)
	if body["verified"] != false {
		t.Error("verification link worked twice")
	}

	_, body = getJSON(t, client, server.URL+"/user_verification/")
	phone = body["phone_numbers"].([]any)[0].(map[string]any)
	if phone["verified"] != true {
		t.Error("record not verified after confirmation")
	}
}

// Requests naming records that don't exist or belong to someone else get the
// same answer as real ones, and nothing is delivered.
func TestVerificationRequestRevealsNothing(t *testing.T) {
	capture, server, client := newTestServer(t)
	registerUser(t, client, server.URL)
	loginUser(t, client, server.URL, "dave", "s3cretpass")

	for _, id := range []string{"999999", "abc"} {
		resp, err := client.PostForm(server.URL+"/user_verification/", url.Values{
			"method": {"email"},
			"id":     {id},
		})
		if err != nil {
			t.Fatalf("verification request: %v", err)
		}
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || body["message"] != "Verification Sent" {
			t.Errorf("id %q: got %d %v", id, resp.StatusCode, body)
		}
	}
	if capture.sends != 0 {
		t.Errorf("%d deliveries fired for bogus requests", capture.sends)
	}
}

func TestVerificationConfirmMalformed(t *testing.T) {
	_, server, client := newTestServer(t)

	status, body := getJSON(t, client, server.URL+"/user_verification_confirm/bogus-ref/bogus-token/")
	if status != http.StatusOK || body["verified"] != false {
		t.Errorf("malformed confirm = %d %v", status, body)
	}
	if body["title"] != "Verification failed" {
		t.Errorf("title = %v", body["title"])
	}
}

func TestPasswordResetJourney(t *testing.T) {
	capture, server, client := newTestServer(t)
	registerUser(t, client, server.URL)

	resp, err := client.PostForm(server.URL+"/password_reset/", url.Values{
		"login": {"dave@example.com"},
	})
	if err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	resp.Body.Close()
	if capture.emailResetLink == "" {
		t.Fatal("no reset link delivered")
	}

	// Set a new password through the link.
	resp, err = client.PostForm(server.URL+capture.emailResetLink, url.Values{
		"password":         {"brandnewpass"},
		"confirm_password": {"brandnewpass"},
	})
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("reset = %d %v", resp.StatusCode, body)
	}

	// The link was bound to the old password hash; it cannot be replayed.
	resp, err = client.PostForm(server.URL+capture.emailResetLink, url.Values{
		"password":         {"anotherpass1"},
		"confirm_password": {"anotherpass1"},
	})
	if err != nil {
		t.Fatalf("reset replay: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("replayed reset link status = %d, want 400", resp.StatusCode)
	}

	// Old password dead, new one live.
	status, _ := postJSON(t, client, server.URL+"/login/", map[string]any{
		"login": "dave", "password": "s3cretpass",
	})
	if status != http.StatusBadRequest {
		t.Error("old password still works after reset")
	}
	loginUser(t, client, server.URL, "dave", "brandnewpass")
}

func TestPasswordResetViaPhone(t *testing.T) {
	capture, server, client := newTestServer(t)
	registerUser(t, client, server.URL)

	resp, err := client.PostForm(server.URL+"/password_reset/", url.Values{
		"login": {"+1 555 123-4567"},
	})
	if err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	resp.Body.Close()
	if capture.phoneResetLink == "" {
		t.Fatal("no reset link delivered over the phone channel")
	}
	if capture.emailResetLink != "" {
		t.Error("reset link also sent over email")
	}
}

// The forgot-password answer is identical whether or not the account exists,
// and a username is never a reset channel.
func TestPasswordResetRevealsNothing(t *testing.T) {
	capture, server, client := newTestServer(t)
	registerUser(t, client, server.URL)

	var bodies []map[string]any
	for _, login := range []string{"dave@example.com", "nobody@example.com", "dave", "+15559990000"} {
		resp, err := client.PostForm(server.URL+"/password_reset/", url.Values{"login": {login}})
		if err != nil {
			t.Fatalf("forgot password: %v", err)
		}
		var body map[string]any
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("login %q: status = %d", login, resp.StatusCode)
		}
		bodies = append(bodies, body)
	}
	for _, body := range bodies[1:] {
		if body["message"] != bodies[0]["message"] {
			t.Errorf("responses differ: %v vs %v", bodies[0], body)
		}
	}
	// Only the real email-address request should have delivered anything.
	if capture.sends != 1 {
		t.Errorf("sends = %d, want 1", capture.sends)
	}
}

func TestResetPasswordValidation(t *testing.T) {
	capture, server, client := newTestServer(t)
	registerUser(t, client, server.URL)

	resp, _ := client.PostForm(server.URL+"/password_reset/", url.Values{"login": {"dave@example.com"}})
	resp.Body.Close()

	resp, err := client.PostForm(server.URL+capture.emailResetLink, url.Values{
		"password":         {"short"},
		"confirm_password": {"different"},
	})
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	errs, _ := body["errors"].(map[string]any)
	if _, ok := errs["password"]; !ok {
		t.Errorf("missing password error in %v", body)
	}
	if _, ok := errs["confirm_password"]; !ok {
		t.Errorf("missing confirm_password error in %v", body)
	}

	// A failed attempt must not burn the link.
	resp, err = client.PostForm(server.URL+capture.emailResetLink, url.Values{
		"password":         {"brandnewpass"},
		"confirm_password": {"brandnewpass"},
	})
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid retry status = %d, want 200", resp.StatusCode)
	}
}

func jsonNumber(f float64) string {
	return strconv.FormatInt(int64(f), 10)
}
