package phoneauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Default token expiry and timestamp granularity.
const (
	DefaultTokenMaxAge      = 72 * time.Hour
	DefaultTokenGranularity = time.Hour
)

// TokenGenerator mints and checks single-use verification and reset tokens.
//
// Tokens are never stored. A token is an HMAC over the mutable state of the
// thing it verifies - for a contact record, its current value and verified
// flag - plus a coarse timestamp bucket. Validation recomputes the HMAC from
// the record's *current* state for every bucket inside the expiry window, so
// a token dies the moment the record's value changes or its verified flag
// flips. The only mutation a successful verification performs is flipping
// that flag, which is what makes each token single-use.
type TokenGenerator struct {
	// Secret keys the HMAC. Required.
	Secret []byte

	// MaxAge bounds token validity. Defaults to DefaultTokenMaxAge.
	MaxAge time.Duration

	// Granularity is the timestamp bucket width. Coarse buckets bound
	// the validation rescan. Defaults to DefaultTokenGranularity.
	Granularity time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// MakeRecordToken issues a verification token for a contact record,
// computed from the record's current value and verified flag.
func (g *TokenGenerator) MakeRecordToken(rec *ContactRecord) string {
	return g.hash(g.bucket(), g.recordState(rec))
}

// CheckRecordToken reports whether token was issued for rec within the
// expiry window and rec's value and verified flag are unchanged since.
// Returns false, never an error, for malformed or stale input.
func (g *TokenGenerator) CheckRecordToken(rec *ContactRecord, token string) bool {
	if rec == nil {
		return false
	}
	return g.check(token, g.recordState(rec))
}

// MakeResetToken issues a password-reset token bound to the user's current
// password hash and active flag, so a password change or deactivation
// invalidates every outstanding reset link.
func (g *TokenGenerator) MakeResetToken(user User) string {
	return g.hash(g.bucket(), g.userState(user))
}

// CheckResetToken reports whether token is a live reset token for user.
func (g *TokenGenerator) CheckResetToken(user User, token string) bool {
	if user == nil {
		return false
	}
	return g.check(token, g.userState(user))
}

func (g *TokenGenerator) recordState(rec *ContactRecord) string {
	return fmt.Sprintf("%s:%d:%s:%s:%t", rec.UserID, rec.ID, rec.Kind, rec.Value, rec.Verified)
}

func (g *TokenGenerator) userState(user User) string {
	return fmt.Sprintf("reset:%s:%s:%t", user.Id(), user.PasswordHash(), user.IsActive())
}

func (g *TokenGenerator) check(token, state string) bool {
	if token == "" || len(g.Secret) == 0 {
		return false
	}
	now := g.bucket()
	steps := int64(g.maxAge() / g.granularity())
	for i := int64(0); i <= steps; i++ {
		if hmac.Equal([]byte(g.hash(now-i, state)), []byte(token)) {
			return true
		}
	}
	return false
}

func (g *TokenGenerator) hash(bucket int64, state string) string {
	mac := hmac.New(sha256.New, g.Secret)
	fmt.Fprintf(mac, "%d|%s", bucket, state)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *TokenGenerator) bucket() int64 {
	return g.now().Unix() / int64(g.granularity()/time.Second)
}

func (g *TokenGenerator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *TokenGenerator) maxAge() time.Duration {
	if g.MaxAge > 0 {
		return g.MaxAge
	}
	return DefaultTokenMaxAge
}

func (g *TokenGenerator) granularity() time.Duration {
	if g.Granularity > 0 {
		return g.Granularity
	}
	return DefaultTokenGranularity
}
