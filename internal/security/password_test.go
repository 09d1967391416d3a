package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chatcore/internal/security"
)

func TestPasswordHashAndVerify(t *testing.T) {
	h := security.NewPasswordHasher(bcrypt.MinCost)

	hashed, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hashed)

	assert.NoError(t, h.Verify("s3cret-pass", hashed))
	assert.ErrorIs(t, h.Verify("wrong-pass", hashed), bcrypt.ErrMismatchedHashAndPassword)
}

func TestPasswordCostPolicy(t *testing.T) {
	cases := []struct {
		name string
		in   int
		want int
	}{
		{"Zero", 0, bcrypt.DefaultCost},
		{"Negative", -1, bcrypt.DefaultCost},
		{"BelowMin", bcrypt.MinCost - 1, bcrypt.DefaultCost},
		{"AboveMax", bcrypt.MaxCost + 1, bcrypt.DefaultCost},
		{"InRange", bcrypt.MinCost, bcrypt.MinCost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, security.NewPasswordHasher(tc.in).Cost())
		})
	}
}

func TestPasswordCostSurvivesHashing(t *testing.T) {
	h := security.NewPasswordHasher(bcrypt.MinCost)

	hashed, err := h.Hash("s3cret-pass")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}
