package utils

import "golang.org/x/crypto/bcrypt"

// DefaultPasswordCost is the bcrypt cost used when config does not set one.
const DefaultPasswordCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of plain using the given cost.
// Costs outside bcrypt's range fall back to DefaultPasswordCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
