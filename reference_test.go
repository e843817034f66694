package phoneauth_test

import (
	"encoding/base64"
	"errors"
	"testing"

	pa "github.com/phoneauth/phoneauth"
)

func TestReferenceRoundTrip(t *testing.T) {
	cases := []struct {
		kind pa.ContactKind
		id   int64
	}{
		{pa.KindPhone, 1},
		{pa.KindEmail, 1},
		{pa.KindPhone, 0},
		{pa.KindEmail, 9223372036854775807},
	}
	for _, c := range cases {
		ref := pa.EncodeReference(c.kind, c.id)
		kind, id, err := pa.DecodeReference(ref)
		if err != nil {
			t.Fatalf("DecodeReference(%q): %v", ref, err)
		}
		if kind != c.kind || id != c.id {
			t.Errorf("round trip (%s, %d) = (%s, %d)", c.kind, c.id, kind, id)
		}
	}
}

func TestReferencesAreDistinct(t *testing.T) {
	// Same id under different kinds must not collide.
	if pa.EncodeReference(pa.KindPhone, 7) == pa.EncodeReference(pa.KindEmail, 7) {
		t.Error("phone and email references collide for the same id")
	}
}

func TestDecodeReferencePadded(t *testing.T) {
	// Padded variants of a valid reference still decode.
	ref := pa.EncodeReference(pa.KindPhone, 42) + "=="
	kind, id, err := pa.DecodeReference(ref)
	if err != nil || kind != pa.KindPhone || id != 42 {
		t.Errorf("padded decode = (%s, %d, %v)", kind, id, err)
	}
}

func TestDecodeReferenceMalformed(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"too short", base64.RawURLEncoding.EncodeToString([]byte("ph"))},
		{"unknown tag", base64.RawURLEncoding.EncodeToString([]byte("login123"))},
		{"non-numeric id", base64.RawURLEncoding.EncodeToString([]byte("phoneabc"))},
		{"negative id", base64.RawURLEncoding.EncodeToString([]byte("phone-5"))},
		{"tag only", base64.RawURLEncoding.EncodeToString([]byte("phone"))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := pa.DecodeReference(c.input)
			if !errors.Is(err, pa.ErrInvalidReference) {
				t.Errorf("DecodeReference(%q) err = %v, want ErrInvalidReference", c.input, err)
			}
		})
	}
}

func TestUserRefRoundTrip(t *testing.T) {
	ref := pa.EncodeUserRef("user-123")
	id, err := pa.DecodeUserRef(ref)
	if err != nil || id != "user-123" {
		t.Errorf("user ref round trip = (%q, %v)", id, err)
	}

	if _, err := pa.DecodeUserRef(""); !errors.Is(err, pa.ErrInvalidReference) {
		t.Errorf("empty user ref err = %v, want ErrInvalidReference", err)
	}
	if _, err := pa.DecodeUserRef("!!!"); !errors.Is(err, pa.ErrInvalidReference) {
		t.Errorf("malformed user ref err = %v, want ErrInvalidReference", err)
	}
}
