package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestSendMailDisabled(t *testing.T) {
	if err := SendMail("a@example.com", "hi", "body"); !errors.Is(err, ErrMailDisabled) {
		t.Fatalf("SendMail without smtp = %v, want ErrMailDisabled", err)
	}
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("", "noreply@example.com", "a@example.com", "✅ Report updated", "line one"))

	head, body, ok := strings.Cut(msg, "\r\n\r\n")
	if !ok {
		t.Fatalf("no header/body separator in %q", msg)
	}
	if body != "line one" {
		t.Errorf("body = %q", body)
	}
	for _, want := range []string{
		"From: PhishGuard <noreply@example.com>",
		"To: a@example.com",
		"Subject: =?UTF-8?b?",
		"Content-Type: text/plain; charset=UTF-8",
	} {
		if !strings.Contains(head, want) {
			t.Errorf("headers missing %q:\n%s", want, head)
		}
	}
}
