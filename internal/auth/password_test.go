package auth

import (
	"errors"
	"testing"
)

func TestHashPasswordDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}

	h1, err := HashPassword("Sekret1!", salt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashPassword("Sekret1!", salt)
	if err != nil {
		t.Fatalf("hash again: %v", err)
	}
	if h1 != h2 {
		t.Error("same password and salt must produce the same hash")
	}
}

func TestHashPasswordSaltMatters(t *testing.T) {
	s1, _ := GenerateSalt()
	s2, _ := GenerateSalt()
	if s1 == s2 {
		t.Fatal("expected distinct salts")
	}

	h1, _ := HashPassword("Sekret1!", s1)
	h2, _ := HashPassword("Sekret1!", s2)
	if h1 == h2 {
		t.Error("different salts must produce different hashes")
	}
}

func TestVerifyPassword(t *testing.T) {
	salt, _ := GenerateSalt()
	hash, _ := HashPassword("Sekret1!", salt)

	if !VerifyPassword("Sekret1!", salt, hash) {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Error("expected wrong password to fail")
	}
	if VerifyPassword("Sekret1!", "not-base64!!", hash) {
		t.Error("expected bad salt to fail")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Sekret1!", true},
		{"LongEnough9", true},
		{"Symbols#Only", true},
		{"short1A", false},      // under 8
		{"alllower1", false},    // no upper
		{"ALLUPPER1", false},    // no lower
		{"NoDigitsHere", false}, // no digit or special
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if tt.valid && err != nil {
			t.Errorf("ValidatePassword(%q) = %v, want nil", tt.password, err)
		}
		if !tt.valid && !errors.Is(err, ErrWeakPassword) {
			t.Errorf("ValidatePassword(%q) = %v, want ErrWeakPassword", tt.password, err)
		}
	}
}
