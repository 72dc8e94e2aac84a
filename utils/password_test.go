package utils

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestValidPasswordLength(t *testing.T) {
	tests := []struct {
		pw   string
		want bool
	}{
		{"", false},
		{"12345", false},
		{"123456", true},
		{strings.Repeat("x", 72), true},
		{strings.Repeat("x", 73), false},
	}
	for _, tt := range tests {
		if got := ValidPasswordLength(tt.pw); got != tt.want {
			t.Errorf("ValidPasswordLength(len %d) = %v, want %v", len(tt.pw), got, tt.want)
		}
	}
}
