package utils

import (
	"strings"

	"github.com/mojocn/base64Captcha"

	"github.com/cppla/phishguard/config"
)

const (
	captchaDigits = 5
	captchaHeight = 40
	captchaWidth  = 120
)

var (
	captchaStore  = NewCaptchaStore(0)
	captchaDriver = base64Captcha.NewDriverDigit(captchaHeight, captchaWidth, captchaDigits, 0.7, 80)
)

// GenerateCaptcha returns a new captcha id and its PNG as a data URI.
func GenerateCaptcha() (id, image string, err error) {
	id, image, _, err = base64Captcha.NewCaptcha(captchaDriver, captchaStore).Generate()
	return id, image, err
}

// VerifyCaptcha checks an answer. The captcha is consumed whatever the outcome.
func VerifyCaptcha(id, answer string) bool {
	id, answer = strings.TrimSpace(id), strings.TrimSpace(answer)
	if id == "" || answer == "" {
		return false
	}
	return captchaStore.Verify(id, answer, true)
}

// RegistrationCaptchaPassed gates sign-up. Every attempt passes while
// register.captcha_enabled is off.
func RegistrationCaptchaPassed(id, answer string) bool {
	if !config.Get().Register.CaptchaEnabled {
		return true
	}
	return VerifyCaptcha(id, answer)
}
