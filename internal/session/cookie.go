package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/nacl/secretbox"
)

var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieCodec seals session ids into opaque cookie values so clients cannot
// forge or enumerate another browser's id.
type CookieCodec struct {
	key [32]byte
}

func NewCookieCodec(secret string) *CookieCodec {
	return &CookieCodec{key: sha256.Sum256([]byte(secret))}
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

func (c *CookieCodec) Encode(id string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], []byte(id), &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *CookieCodec) Decode(value string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return "", ErrInvalidCookie
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	opened, ok := secretbox.Open(nil, raw[24:], &nonce, &c.key)
	if !ok {
		return "", ErrInvalidCookie
	}
	id := string(opened)
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrInvalidCookie
	}
	return id, nil
}
