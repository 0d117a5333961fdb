package auth

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashCost matches the original deployment's bcrypt cost so seeded hashes
// stay verifiable.
const hashCost = 10

var ErrDecrypt = errors.New("auth: ciphertext decryption failed")

// Cipher recovers plaintext passwords from their transport form: AES-ECB
// with PKCS#7 padding under a fixed pre-shared key, base64-encoded on the
// wire. This is an obfuscation layer for the login payload, not a security
// boundary; the boundary is the one-way hash at rest.
type Cipher struct {
	key []byte
}

// NewCipher validates the pre-shared key. AES requires 16, 24 or 32 bytes.
func NewCipher(key string) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
		return &Cipher{key: []byte(key)}, nil
	default:
		return nil, fmt.Errorf("auth: cipher key must be 16, 24 or 32 bytes, got %d", len(key))
	}
}

// Decrypt recovers the plaintext password from its wire form. Any malformed
// input (bad base64, partial blocks, invalid padding) fails with ErrDecrypt.
// Neither the key nor the recovered plaintext may ever reach a log line.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return "", ErrDecrypt
	}
	// ECB: each block decrypts independently. No stdlib mode wrapper exists,
	// so the loop is explicit.
	plain := make([]byte, len(raw))
	for i := 0; i < len(raw); i += block.BlockSize() {
		block.Decrypt(plain[i:], raw[i:])
	}
	unpadded, err := pkcs7Unpad(plain, block.BlockSize())
	if err != nil {
		return "", ErrDecrypt
	}
	return string(unpadded), nil
}

// Encrypt is the inverse transform (what browser clients apply before
// sending credentials). Exposed for clients and tests.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plaintext), block.BlockSize())
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += block.BlockSize() {
		block.Encrypt(out[i:], padded[i:])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-pad], nil
}

// HashPassword hashes a recovered plaintext password for storage.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("auth: password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with the stored hash. A
// mismatch is reported as an error by bcrypt; only malformed hashes are
// operational failures, and callers treat both as a credential rejection.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("auth: password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
