package auth

import "golang.org/x/crypto/bcrypt"

// HashFunctionKey hashes a plaintext function key for AUTH_FUNCTION_KEY_HASH. A cost
// of zero uses bcrypt.DefaultCost.
func HashFunctionKey(key string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareFunctionKey verifies a presented key against its hashed value.
func CompareFunctionKey(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
