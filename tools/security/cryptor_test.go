package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptorRoundTrip(t *testing.T) {
	c := NewCryptor("server-private-key")

	token, err := c.Encrypt("42", "pub-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	plain, err := c.Decrypt(token, "pub-1")
	require.NoError(t, err)
	assert.Equal(t, "42", plain)
}

func TestCryptorTokensAreNonDeterministic(t *testing.T) {
	c := NewCryptor("server-private-key")

	a, err := c.Encrypt("42", "pub-1")
	require.NoError(t, err)
	b, err := c.Encrypt("42", "pub-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCryptorWrongPublicKeyFails(t *testing.T) {
	c := NewCryptor("server-private-key")

	token, err := c.Encrypt("42", "pub-1")
	require.NoError(t, err)
	_, err = c.Decrypt(token, "pub-2")
	assert.Error(t, err)
}

func TestCryptorDifferentPrivateKeyFails(t *testing.T) {
	token, err := NewCryptor("key-a").Encrypt("42", "pub-1")
	require.NoError(t, err)
	_, err = NewCryptor("key-b").Decrypt(token, "pub-1")
	assert.Error(t, err)
}

func TestCryptorTamperedTokenFails(t *testing.T) {
	c := NewCryptor("server-private-key")

	token, err := c.Encrypt("42", "pub-1")
	require.NoError(t, err)
	tampered := []byte(token)
	if tampered[len(tampered)-1] == 'A' {
		tampered[len(tampered)-1] = 'B'
	} else {
		tampered[len(tampered)-1] = 'A'
	}
	_, err = c.Decrypt(string(tampered), "pub-1")
	assert.Error(t, err)
}

func TestCryptorRejectsGarbage(t *testing.T) {
	c := NewCryptor("server-private-key")

	for _, bad := range []string{"", "!!!!", "dG9vc2hvcnQ"} {
		_, err := c.Decrypt(bad, "pub-1")
		assert.Error(t, err, "token %q", bad)
	}
}
