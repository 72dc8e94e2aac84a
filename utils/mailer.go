package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/phishguard/config"
)

// ErrMailDisabled is returned when SMTP is not configured.
var ErrMailDisabled = errors.New("smtp not configured")

// SendMail sends a plain text email using SMTP settings from config.
func SendMail(to, subject, body string) error {
	sc := config.Get().SMTP
	if !sc.Enabled() {
		return ErrMailDisabled
	}
	addr := net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
	auth := smtp.PlainAuth("", sc.Username, sc.Password, sc.Host)
	msg := buildMessage(sc.FromName, sc.From, to, subject, body)

	if !sc.TLS {
		return smtp.SendMail(addr, auth, sc.From, []string{to}, msg)
	}

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, sc.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: sc.Host}); err != nil {
			return err
		}
	}
	if sc.Username != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(sc.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// SendMailAsync sends in the background and only logs failures.
func SendMailAsync(to, subject, body string) {
	go func() {
		if err := SendMail(to, subject, body); err != nil && !errors.Is(err, ErrMailDisabled) {
			Sugar.Warnf("send mail to=%s failed: %v", to, err)
		}
	}()
}

func buildMessage(fromName, from, to, subject, body string) []byte {
	if fromName == "" {
		fromName = "PhishGuard"
	}
	headers := [][2]string{
		{"From", fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), from)},
		{"To", to},
		{"Subject", mime.BEncoding.Encode("UTF-8", subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}
	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}
