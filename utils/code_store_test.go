package utils

import (
	"testing"
	"time"
)

func TestGenerateVerificationCode(t *testing.T) {
	for _, n := range []int{0, 4, 6, 8} {
		code := GenerateVerificationCode(n)
		want := n
		if want <= 0 {
			want = 6
		}
		if len(code) != want {
			t.Errorf("len(GenerateVerificationCode(%d)) = %d", n, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Errorf("non-digit %q in %q", r, code)
			}
		}
	}
}

func TestResetCodeIsConsumed(t *testing.T) {
	SaveResetCode("User@Example.com", "123456", time.Minute)

	// a wrong guess burns the code
	if VerifyAndConsumeResetCode("user@example.com", "000000") {
		t.Fatal("wrong code accepted")
	}
	if VerifyAndConsumeResetCode("user@example.com", "123456") {
		t.Fatal("code usable after a failed attempt")
	}

	SaveResetCode("user@example.com", "654321", time.Minute)
	if !VerifyAndConsumeResetCode(" USER@example.com ", "654321") {
		t.Fatal("correct code rejected")
	}
	if VerifyAndConsumeResetCode("user@example.com", "654321") {
		t.Fatal("code accepted twice")
	}
}

func TestEmailCooldown(t *testing.T) {
	if !EmailCooldownTrySet("cool@example.com", time.Minute) {
		t.Fatal("first send blocked")
	}
	if EmailCooldownTrySet("COOL@example.com", time.Minute) {
		t.Fatal("second send allowed during cooldown")
	}
}

func TestRegistrationChecksWithoutRedis(t *testing.T) {
	ip := "203.0.113.9"
	for i := 0; i < 3; i++ {
		if got := CheckRegistration(ip); got != RegistrationOpen {
			t.Fatalf("attempt %d: CheckRegistration = %v, want open", i, got)
		}
		if n := RegistrationFailed(ip); n != 0 {
			t.Fatalf("RegistrationFailed counted %d without redis", n)
		}
	}
	RegistrationSucceeded(ip)
	if got := CheckRegistration(ip); got != RegistrationOpen {
		t.Errorf("daily cap enforced without redis: %v", got)
	}
}
