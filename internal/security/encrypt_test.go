package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcore/internal/security"
)

func TestEncryptorRoundTrip(t *testing.T) {
	enc, err := security.NewEncryptor([]byte("some arbitrary-length secret"))
	require.NoError(t, err)

	sealed, err := enc.Encrypt("hello, world 👋")
	require.NoError(t, err)
	assert.NotEqual(t, "hello, world 👋", sealed)

	plain, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello, world 👋", plain)
}

func TestEncryptorWrongKey(t *testing.T) {
	a, err := security.NewEncryptor([]byte("key-one"))
	require.NoError(t, err)
	b, err := security.NewEncryptor([]byte("key-two"))
	require.NoError(t, err)

	sealed, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(sealed)
	assert.Error(t, err)
}

func TestEncryptorEmptyKey(t *testing.T) {
	_, err := security.NewEncryptor(nil)
	assert.Error(t, err)
}

func TestEncryptorRejectsGarbage(t *testing.T) {
	enc, err := security.NewEncryptor([]byte("key"))
	require.NoError(t, err)

	_, err = enc.Decrypt("not base64 at all!!!")
	assert.Error(t, err)
	_, err = enc.Decrypt("YWJj") // valid base64, too short for a nonce
	assert.Error(t, err)
}
