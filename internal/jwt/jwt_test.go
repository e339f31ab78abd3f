package jwt

import (
	"testing"
	"time"
)

func TestCreateVerifyRoundTrip(t *testing.T) {
	tokens := New("test-secret", false)

	cookie, err := tokens.Create(false, 42)
	if err != nil {
		t.Fatal(err)
	}
	if cookie.Name != "JWT" || cookie.Value == "" {
		t.Fatalf("Unexpected cookie: %+v", cookie)
	}
	if cookie.Secure {
		t.Error("Cookie marked Secure without https")
	}

	userToken, err := tokens.Verify(cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if userToken.UserID != 42 {
		t.Errorf("Got user ID %d, want 42", userToken.UserID)
	}
	if userToken.Remember {
		t.Error("Remember flag set on a plain session")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	cookie, err := New("secret-a", false).Create(false, 42)
	if err != nil {
		t.Fatal(err)
	}

	_, err = New("secret-b", false).Verify(cookie.Value)
	if err == nil {
		t.Error("Token signed with another secret verified")
	}
}

func TestRememberedTokenLifetime(t *testing.T) {
	tokens := New("test-secret", true)

	cookie, err := tokens.Create(true, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !cookie.Secure {
		t.Error("Https cookie not marked Secure")
	}
	if cookie.Expires.IsZero() {
		t.Fatal("Remembered cookie has no expiry, would die with the browser")
	}

	userToken, err := tokens.Verify(cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if !userToken.Remember {
		t.Error("Remember flag lost in the claims")
	}

	lifetime := userToken.ExpiresAt.Sub(userToken.IssuedAt.Time)
	if lifetime < 27*24*time.Hour {
		t.Errorf("Remembered token lives %v, want about four weeks", lifetime)
	}
}
