package identity

import (
	"strings"
	"testing"
)

func TestGenerateAndVerifyAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(key, "qna_ak_") {
		t.Fatalf("key %q missing prefix", key)
	}

	other, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}
	if key == other {
		t.Fatalf("two generated keys collided")
	}

	hash := HashAPIKey(key)
	if hash == key || len(hash) != 64 {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !VerifyAPIKey(key, hash) {
		t.Fatalf("key failed to verify against its own hash")
	}
	if VerifyAPIKey(other, hash) {
		t.Fatalf("different key verified against the hash")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"Bearer   abc  ", "abc"},
		{"", ""},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, c := range cases {
		if got := BearerToken(c.header); got != c.want {
			t.Fatalf("BearerToken(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}
