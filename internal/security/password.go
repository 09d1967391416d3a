package security

import "golang.org/x/crypto/bcrypt"

// PasswordHasher hashes and checks login passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher at the given bcrypt cost. Costs
// outside bcrypt's supported range (including the zero value) fall back
// to bcrypt.DefaultCost, so config typos cannot silently produce
// trivially cheap hashes.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Cost reports the effective bcrypt cost the hasher was built with.
func (h *PasswordHasher) Cost() int { return h.cost }

func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify returns nil when plain matches hashed. A mismatch is an
// expected outcome on login, not an internal failure, so callers map it
// to ErrUnauthorized rather than logging it as an error.
func (h *PasswordHasher) Verify(plain, hashed string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
