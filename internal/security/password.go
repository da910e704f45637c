// Package security wraps credential hashing so handlers never touch bcrypt
// directly.
package security

import "golang.org/x/crypto/bcrypt"

// bcryptCost pins the work factor so a library default bump does not silently
// change login latency.
const bcryptCost = bcrypt.DefaultCost

// HashPassword derives a bcrypt hash from a plaintext password. Only the hash
// is ever persisted or logged.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a stored bcrypt hash.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
