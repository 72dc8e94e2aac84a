package utils

import (
	"os"
	"testing"

	"github.com/cppla/phishguard/config"
)

func TestMain(m *testing.M) {
	c := config.Defaults()
	c.Auth.JWTSecret = "utils-test-secret-0123"
	c.Redis.Host = ""
	config.Use(c)
	os.Exit(m.Run())
}
