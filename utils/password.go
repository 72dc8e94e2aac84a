package utils

import "golang.org/x/crypto/bcrypt"

// bcrypt ignores input past 72 bytes
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// HashPassword returns the bcrypt hash of the password using a cost that balances security and performance.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidPasswordLength reports whether the password fits bcrypt and the minimum policy.
func ValidPasswordLength(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength
}
