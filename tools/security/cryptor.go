package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

// Cryptor seals and opens opaque bearer tokens for the data-plane handshake.
// The per-user encryption key is derived from the server private key plus the
// caller-supplied public key identifier, so a token minted for one publicKey
// never opens under another.
type Cryptor struct {
	privateKey []byte
}

func NewCryptor(privateKey string) *Cryptor {
	return &Cryptor{privateKey: []byte(privateKey)}
}

func (c *Cryptor) deriveKey(publicKey string) []byte {
	sum := sha256.Sum256(append(append([]byte{}, c.privateKey...), []byte(publicKey)...))
	return sum[:]
}

// Encrypt seals plaintext into a url-safe token: base64url(nonce || ciphertext).
func (c *Cryptor) Encrypt(plaintext, publicKey string) (string, error) {
	block, err := aes.NewCipher(c.deriveKey(publicKey))
	if err != nil {
		return "", errors.Wrap(err, "new cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Wrap(err, "new gcm")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "read nonce")
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt. Any tampering, truncation or
// wrong publicKey fails with an error, never with garbage plaintext.
func (c *Cryptor) Decrypt(token, publicKey string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", errors.Wrap(err, "decode token")
	}
	block, err := aes.NewCipher(c.deriveKey(publicKey))
	if err != nil {
		return "", errors.Wrap(err, "new cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Wrap(err, "new gcm")
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("token too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, "open token")
	}
	return string(plain), nil
}
