package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash equals plaintext")
	}
	if err := CheckPassword(hash, "s3cret"); err != nil {
		t.Errorf("CheckPassword: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("CheckPassword wrong password: err = %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Hour)
	raw, err := tokens.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	userID, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("userID = %q", userID)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	raw, err := NewTokens("secret-a", time.Hour).Issue("user-42")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokens("secret-b", time.Hour).Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Minute)
	issued := time.Now()
	tokens.now = func() time.Time { return issued }
	raw, err := tokens.Issue("user-42")
	if err != nil {
		t.Fatal(err)
	}

	tokens.now = func() time.Time { return issued.Add(30 * time.Second) }
	if _, err := tokens.Verify(raw); err != nil {
		t.Errorf("Verify before expiry: %v", err)
	}

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify after expiry: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	tokens := NewTokens("signing-secret", time.Hour)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := tokens.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q): err = %v, want ErrInvalidToken", raw, err)
		}
	}
}
