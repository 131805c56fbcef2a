package domain

// PasswordHasher hides the hashing policy from the login flow. Verify
// returns an error for any mismatch; callers treat it as bad credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}
