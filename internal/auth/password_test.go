package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash equals plaintext")
	}
	if !VerifyPassword("s3cret-pass", hash) {
		t.Error("correct password rejected")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword("", 4); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestHashPasswordCostOutOfRange(t *testing.T) {
	hash, err := HashPassword("abc123", 99)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("abc123", hash) {
		t.Error("password hashed with fallback cost rejected")
	}
}

func TestVerifyPasswordPlaintextFallback(t *testing.T) {
	if !VerifyPassword("legacy123", "legacy123") {
		t.Error("plaintext credential rejected")
	}
	if VerifyPassword("legacy123", "other") {
		t.Error("mismatched plaintext accepted")
	}
}

func TestVerifyPasswordMalformedBcrypt(t *testing.T) {
	// A bcrypt prefix forces the bcrypt path even when the hash is garbage.
	if VerifyPassword("$2b$garbage", "$2b$garbage") {
		t.Error("malformed bcrypt value accepted via equality")
	}
}
