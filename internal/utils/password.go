package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash of the plain password at the
// configured cost. The hash is what gets stored in the users table.
func HashPassword(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plain password matches the stored
// bcrypt hash. Comparison time does not depend on where they differ.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
