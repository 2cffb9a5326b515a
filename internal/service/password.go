package service

import "golang.org/x/crypto/bcrypt"

// hashPassword genera un hash bcrypt con salt propio.
func hashPassword(plaintext string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// verifyPassword compara plaintext contra el hash almacenado.
func verifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
