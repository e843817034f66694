package phoneauth

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// refTagLen is the fixed width of the kind tag inside an encoded reference;
// "phone" and "email" are both five characters.
const refTagLen = 5

// EncodeReference encodes a (kind, record id) pair into the URL-safe opaque
// string used inside verification links. The reference is reversible and not
// secret; authorization comes from the accompanying token.
func EncodeReference(kind ContactKind, id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(string(kind) + strconv.FormatInt(id, 10)))
}

// DecodeReference reverses EncodeReference. It returns ErrInvalidReference
// for anything malformed: bad base64, unknown tag, or a non-numeric id.
func DecodeReference(s string) (ContactKind, int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", 0, ErrInvalidReference
	}
	if len(raw) <= refTagLen {
		return "", 0, ErrInvalidReference
	}
	kind := ContactKind(raw[:refTagLen])
	if kind != KindPhone && kind != KindEmail {
		return "", 0, ErrInvalidReference
	}
	id, err := strconv.ParseInt(string(raw[refTagLen:]), 10, 64)
	if err != nil || id < 0 {
		return "", 0, ErrInvalidReference
	}
	return kind, id, nil
}

// EncodeUserRef encodes a user id for use in password-reset links.
func EncodeUserRef(userId string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userId))
}

// DecodeUserRef reverses EncodeUserRef.
func DecodeUserRef(s string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidReference
	}
	return string(raw), nil
}
