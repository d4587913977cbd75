package auth

import "testing"

func TestBcryptHashAndVerify(t *testing.T) {
	h := NewBcrypt()
	hash, err := h.Hash("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !h.Verify("hunter2", hash) {
		t.Fatalf("expected correct password to verify")
	}
	if h.Verify("wrong", hash) {
		t.Fatalf("expected incorrect password to fail verification")
	}
}

func TestBcryptVerifyEmptyHash(t *testing.T) {
	h := NewBcrypt()
	if h.Verify("anything", "") {
		t.Fatalf("expected empty stored hash to never verify")
	}
}
