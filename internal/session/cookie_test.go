package session

import (
	"strings"
	"testing"
)

func TestCookieCodecRoundTrip(t *testing.T) {
	codec := NewCookieCodec("0123456789abcdef-secret")
	id := NewID()

	value, err := codec.Encode(id)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(value, id) {
		t.Fatal("cookie value must not expose the raw id")
	}
	got, err := codec.Decode(value)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != id {
		t.Fatalf("Decode = %q, want %q", got, id)
	}
}

func TestCookieCodecRejectsForgery(t *testing.T) {
	codec := NewCookieCodec("0123456789abcdef-secret")
	other := NewCookieCodec("another-secret-entirely")

	value, err := codec.Encode(NewID())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := other.Decode(value); err != ErrInvalidCookie {
		t.Fatalf("foreign key: got %v, want ErrInvalidCookie", err)
	}

	tampered := []byte(value)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}
	if _, err := codec.Decode(string(tampered)); err == nil {
		t.Fatal("tampered cookie should not decode")
	}

	for _, bad := range []string{"", "not-base64!!", "c2hvcnQ"} {
		if _, err := codec.Decode(bad); err != ErrInvalidCookie {
			t.Errorf("Decode(%q) = %v, want ErrInvalidCookie", bad, err)
		}
	}
}
